package backend

import (
	"context"
	"fmt"
	"net/http"

	"github.com/learnhub/learnhub/src/internal/domain"
	"github.com/learnhub/learnhub/src/internal/platform/apierr"
)

// LessonProgressByCourse fetches the course aggregate and every lesson
// record the learner has for courseID.
func (c *Client) LessonProgressByCourse(ctx context.Context, token string, courseID int64) (*domain.CourseLearnData, error) {
	if token == "" {
		return nil, apierr.ErrUnauthenticated
	}
	var data domain.CourseLearnData
	err := c.doValidated(ctx, request{
		op:     "lesson_progress_by_course",
		method: http.MethodGet,
		path:   idPath("/lesson-progress/course/%d/", courseID),
		token:  token,
	}, &data)
	if err != nil {
		return nil, err
	}
	if data.LessonProgresses == nil {
		data.LessonProgresses = []domain.LessonProgressRecord{}
	}
	return &data, nil
}

// UpdateLessonProgress records watch time and completion for one lesson.
func (c *Client) UpdateLessonProgress(ctx context.Context, token string, update domain.ProgressUpdate) error {
	if token == "" {
		return apierr.ErrUnauthenticated
	}
	if err := domain.Validate(update); err != nil {
		return fmt.Errorf("update lesson progress: %w: %w", apierr.ErrValidation, err)
	}
	return c.do(ctx, request{
		op:     "update_lesson_progress",
		method: http.MethodPost,
		path:   "/lesson-progress/update-progress/",
		token:  token,
		json:   update,
	}, nil)
}
