package backend

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/learnhub/learnhub/src/internal/domain"
	"github.com/learnhub/learnhub/src/internal/platform/apierr"
)

// ListCourses searches the public catalogue.
func (c *Client) ListCourses(ctx context.Context, q domain.CourseQuery) (*domain.Page[domain.Course], error) {
	query := url.Values{}
	if q.Search != "" {
		query.Set("q", q.Search)
	}
	if q.CategoryID > 0 {
		query.Set("category_id", strconv.FormatInt(q.CategoryID, 10))
	}
	if q.LecturerID > 0 {
		query.Set("lecturer_id", strconv.FormatInt(q.LecturerID, 10))
	}
	if q.Page > 1 {
		query.Set("page", strconv.Itoa(q.Page))
	}
	return getPage[domain.Course](ctx, c, request{
		op:     "list_courses",
		method: http.MethodGet,
		path:   "/courses/",
		query:  query,
	})
}

func (c *Client) Categories(ctx context.Context) ([]domain.Category, error) {
	return getList[domain.Category](ctx, c, request{
		op:     "categories",
		method: http.MethodGet,
		path:   "/categories/",
	})
}

func (c *Client) Teachers(ctx context.Context) ([]domain.Lecturer, error) {
	return getList[domain.Lecturer](ctx, c, request{
		op:     "teachers",
		method: http.MethodGet,
		path:   "/teachers/",
	})
}

// CourseDetail returns a course with its chapters. The token is optional;
// when given, the backend fills in the enrolment flag.
func (c *Client) CourseDetail(ctx context.Context, token string, courseID int64) (*domain.Course, error) {
	var course domain.Course
	err := c.doValidated(ctx, request{
		op:     "course_detail",
		method: http.MethodGet,
		path:   idPath("/courses/%d/detail/", courseID),
		token:  token,
	}, &course)
	if err != nil {
		return nil, err
	}
	return &course, nil
}

func (c *Client) Enroll(ctx context.Context, token string, courseID int64) error {
	if token == "" {
		return apierr.ErrUnauthenticated
	}
	return c.do(ctx, request{
		op:     "enroll",
		method: http.MethodPost,
		path:   "/enrollments/create/",
		token:  token,
		json:   map[string]int64{"course": courseID},
	}, nil)
}

func (c *Client) EnrolledCourses(ctx context.Context, token string) ([]domain.EnrolledCourse, error) {
	if token == "" {
		return nil, apierr.ErrUnauthenticated
	}
	return getList[domain.EnrolledCourse](ctx, c, request{
		op:     "enrolled_courses",
		method: http.MethodGet,
		path:   "/enrolled-courses/",
		token:  token,
	})
}

// MyCourses lists the courses a lecturer teaches.
func (c *Client) MyCourses(ctx context.Context, token string, page int) (*domain.Page[domain.Course], error) {
	if token == "" {
		return nil, apierr.ErrUnauthenticated
	}
	query := url.Values{}
	if page > 1 {
		query.Set("page", strconv.Itoa(page))
	}
	return getPage[domain.Course](ctx, c, request{
		op:     "my_courses",
		method: http.MethodGet,
		path:   "/courses/my-course/",
		query:  query,
		token:  token,
	})
}
