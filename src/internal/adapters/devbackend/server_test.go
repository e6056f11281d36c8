package devbackend_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/learnhub/learnhub/src/internal/adapters/backend"
	"github.com/learnhub/learnhub/src/internal/adapters/devbackend"
	"github.com/learnhub/learnhub/src/internal/domain"
	"github.com/learnhub/learnhub/src/internal/platform/apierr"
	"github.com/learnhub/learnhub/src/internal/platform/logger"
)

func setup(t *testing.T) (*backend.Client, *devbackend.State) {
	t.Helper()
	state := devbackend.NewState()
	devbackend.Seed(state)
	srv := httptest.NewServer(devbackend.NewServer(state, logger.NewNop(), "web", "s3cret").Handler())
	t.Cleanup(srv.Close)
	return backend.NewClient(srv.URL, backend.WithClientCredentials("web", "s3cret")), state
}

func login(t *testing.T, c *backend.Client, username string) string {
	t.Helper()
	grant, err := c.IssueToken(context.Background(), username, devbackend.DemoPassword)
	require.NoError(t, err)
	return grant.AccessToken
}

func TestPasswordGrantAndCurrentUser(t *testing.T) {
	c, _ := setup(t)
	ctx := context.Background()

	token := login(t, c, devbackend.DemoStudent)
	u, err := c.CurrentUser(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", u.DisplayName())

	_, err = c.IssueToken(ctx, devbackend.DemoStudent, "wrong")
	var rejected *apierr.ServerRejectedError
	require.True(t, errors.As(err, &rejected))
	assert.Equal(t, "Invalid credentials given.", rejected.Message)
}

func TestRevokedTokenIsUnauthenticated(t *testing.T) {
	c, state := setup(t)
	token := login(t, c, devbackend.DemoStudent)
	state.RevokeToken(token)

	_, err := c.CurrentUser(context.Background(), token)
	assert.ErrorIs(t, err, apierr.ErrUnauthenticated)
}

func TestProgressLifecycle(t *testing.T) {
	c, _ := setup(t)
	ctx := context.Background()
	token := login(t, c, devbackend.DemoStudent)

	data, err := c.LessonProgressByCourse(ctx, token, 7)
	require.NoError(t, err)
	assert.Empty(t, data.LessonProgresses)
	assert.Equal(t, 3, data.CourseProgress.TotalLessons)

	require.NoError(t, c.UpdateLessonProgress(ctx, token, domain.ProgressUpdate{LessonID: 120, WatchTime: 120, CompletionPercentage: 40}))
	data, err = c.LessonProgressByCourse(ctx, token, 7)
	require.NoError(t, err)
	rec, ok := data.Lesson(120)
	require.True(t, ok)
	assert.Equal(t, domain.LessonInProgress, rec.Status)
	assert.Equal(t, 120.0, rec.WatchTime)

	require.NoError(t, c.UpdateLessonProgress(ctx, token, domain.ProgressUpdate{LessonID: 120, WatchTime: 130, CompletionPercentage: 95}))
	// a later, lower report does not undo completion
	require.NoError(t, c.UpdateLessonProgress(ctx, token, domain.ProgressUpdate{LessonID: 120, WatchTime: 10, CompletionPercentage: 5}))

	data, err = c.LessonProgressByCourse(ctx, token, 7)
	require.NoError(t, err)
	rec, _ = data.Lesson(120)
	assert.Equal(t, domain.LessonCompleted, rec.Status)
	assert.Equal(t, 95.0, rec.CompletionPercentage)
	assert.NotNil(t, rec.CompletedAt)
	assert.Equal(t, 1, data.CourseProgress.CompletedLessons)
	assert.InDelta(t, 33.33, data.CourseProgress.CompletionPercentage, 0.01)
}

func TestProgressRequiresEnrolment(t *testing.T) {
	c, _ := setup(t)
	ctx := context.Background()
	token := login(t, c, devbackend.DemoStudent)

	err := c.UpdateLessonProgress(ctx, token, domain.ProgressUpdate{LessonID: 130, CompletionPercentage: 10})
	var rejected *apierr.ServerRejectedError
	require.True(t, errors.As(err, &rejected))
	assert.Equal(t, 403, rejected.Status)

	require.NoError(t, c.Enroll(ctx, token, 8))
	require.NoError(t, c.UpdateLessonProgress(ctx, token, domain.ProgressUpdate{LessonID: 130, CompletionPercentage: 10}))

	enrolled, err := c.EnrolledCourses(ctx, token)
	require.NoError(t, err)
	assert.Len(t, enrolled, 2)
}

func TestCatalogue(t *testing.T) {
	c, _ := setup(t)
	ctx := context.Background()

	page, err := c.ListCourses(ctx, domain.CourseQuery{Search: "sql"})
	require.NoError(t, err)
	require.Len(t, page.Results, 1)
	assert.Equal(t, int64(8), page.Results[0].ID)

	detail, err := c.CourseDetail(ctx, "", 7)
	require.NoError(t, err)
	assert.Len(t, detail.Lessons(), 3)
	assert.False(t, detail.IsEnrolled)

	detail, err = c.CourseDetail(ctx, login(t, c, devbackend.DemoStudent), 7)
	require.NoError(t, err)
	assert.True(t, detail.IsEnrolled)

	teachers, err := c.Teachers(ctx)
	require.NoError(t, err)
	require.Len(t, teachers, 1)

	cats, err := c.Categories(ctx)
	require.NoError(t, err)
	assert.Len(t, cats, 2)

	mine, err := c.MyCourses(ctx, login(t, c, devbackend.DemoTeacher), 1)
	require.NoError(t, err)
	assert.Equal(t, 2, mine.Count)
}

func TestForum(t *testing.T) {
	c, _ := setup(t)
	ctx := context.Background()
	student := login(t, c, devbackend.DemoStudent)
	teacher := login(t, c, devbackend.DemoTeacher)

	forums, err := c.Forums(ctx, student, 7)
	require.NoError(t, err)
	require.Len(t, forums, 1)

	_, err = c.CreateForum(ctx, student, domain.NewForum{Course: 7, Name: "Off-topic"})
	assert.Error(t, err, "only lecturers open forums")

	topic, err := c.CreateTopic(ctx, student, domain.NewTopic{Forum: forums[0].ID, Title: "Help", Content: "Stuck on lesson 2"})
	require.NoError(t, err)

	root, err := c.CreateComment(ctx, teacher, domain.NewComment{Topic: topic.ID, Content: "Which part?"})
	require.NoError(t, err)
	_, err = c.CreateComment(ctx, student, domain.NewComment{Topic: topic.ID, Content: "Interfaces", Parent: &root.ID})
	require.NoError(t, err)

	comments, err := c.Comments(ctx, student, topic.ID)
	require.NoError(t, err)
	tree := domain.BuildCommentTree(comments)
	require.Len(t, tree, 1)
	require.Len(t, tree[0].Replies, 1)

	topics, err := c.Topics(ctx, student, forums[0].ID)
	require.NoError(t, err)
	require.Len(t, topics, 2)
	assert.True(t, topics[0].IsPinned, "pinned topics sort first")

	_, err = c.PinTopic(ctx, student, topic.ID, true)
	assert.Error(t, err)
	pinned, err := c.PinTopic(ctx, teacher, topic.ID, true)
	require.NoError(t, err)
	assert.True(t, pinned.IsPinned)
}

func TestFederatedSignIn(t *testing.T) {
	c, _ := setup(t)
	idToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"email": "new@example.edu", "given_name": "New", "family_name": "Learner",
	}).SignedString([]byte("k"))
	require.NoError(t, err)

	grant, err := c.ExchangeFederatedToken(context.Background(), idToken)
	require.NoError(t, err)
	assert.Equal(t, "new@example.edu", grant.User.Email)

	u, err := c.CurrentUser(context.Background(), grant.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, grant.User.ID, u.ID)
}

func TestRegisterThenLogin(t *testing.T) {
	c, _ := setup(t)
	ctx := context.Background()
	require.NoError(t, c.Register(ctx, domain.Registration{
		Role: "student", Username: "linus", Password: "penguin", Email: "linus@example.edu",
	}))
	err := c.Register(ctx, domain.Registration{
		Role: "student", Username: "linus", Password: "penguin", Email: "linus@example.edu",
	})
	assert.Error(t, err)

	_, err = c.IssueToken(ctx, "linus", "penguin")
	assert.NoError(t, err)
}
