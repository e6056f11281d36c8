package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserProfile_KeepsUnknownFields(t *testing.T) {
	raw := `{"id":1,"name":"A","username":"alice","userRole":"Teacher","settings":{"dark":true}}`

	var u UserProfile
	require.NoError(t, json.Unmarshal([]byte(raw), &u))
	assert.Equal(t, int64(1), u.ID)
	assert.Equal(t, "alice", u.Username)
	assert.True(t, u.IsTeacher())
	assert.Equal(t, "A", u.Extra["name"])
	assert.NotContains(t, u.Extra, "id")

	out, err := json.Marshal(u)
	require.NoError(t, err)
	assert.JSONEq(t, raw, string(out))
}

func TestUserProfile_DisplayName(t *testing.T) {
	assert.Equal(t, "Ada Lovelace", (&UserProfile{FirstName: "Ada", LastName: "Lovelace"}).DisplayName())
	assert.Equal(t, "ada", (&UserProfile{Username: "ada"}).DisplayName())
	assert.Equal(t, "A", (&UserProfile{Extra: map[string]interface{}{"name": "A"}}).DisplayName())
	var nilUser *UserProfile
	assert.Equal(t, "", nilUser.DisplayName())
}

func TestValidate_UserProfileRequiresID(t *testing.T) {
	assert.Error(t, Validate(&UserProfile{Username: "x"}))
	assert.NoError(t, Validate(&UserProfile{ID: 3}))
}

func TestValidate_LessonProgressRecord(t *testing.T) {
	ok := LessonProgressRecord{Lesson: 7, Status: LessonInProgress, WatchTime: 120, CompletionPercentage: 95}
	assert.NoError(t, Validate(&ok))

	badStatus := ok
	badStatus.Status = "WATCHING"
	assert.Error(t, Validate(&badStatus))

	overflow := ok
	overflow.CompletionPercentage = 120
	assert.Error(t, Validate(&overflow))
}

func TestValidate_CourseLearnDataDivesIntoRecords(t *testing.T) {
	data := CourseLearnData{
		CourseProgress: CourseProgress{Course: 1, TotalLessons: 2, CompletedLessons: 1},
		LessonProgresses: []LessonProgressRecord{
			{Lesson: 7, Status: LessonCompleted},
			{Lesson: 0, Status: LessonCompleted},
		},
	}
	assert.Error(t, Validate(&data))

	data.LessonProgresses[1].Lesson = 8
	assert.NoError(t, Validate(&data))

	rec, ok := data.Lesson(8)
	require.True(t, ok)
	assert.Equal(t, LessonCompleted, rec.Status)
	_, ok = data.Lesson(99)
	assert.False(t, ok)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, LessonInProgress, StatusFor(89.9, false))
	assert.Equal(t, LessonCompleted, StatusFor(CompletionThresholdPercent, false))
	assert.Equal(t, LessonCompleted, StatusFor(10, true))
}

func TestBuildCommentTree(t *testing.T) {
	p := func(id int64) *int64 { return &id }
	comments := []Comment{
		{ID: 1, Content: "root"},
		{ID: 2, Content: "reply to 1", Parent: p(1)},
		{ID: 3, Content: "second root"},
		{ID: 4, Content: "reply to 2", Parent: p(2)},
		{ID: 5, Content: "orphan", Parent: p(42)},
	}

	roots := BuildCommentTree(comments)
	require.Len(t, roots, 3)
	assert.Equal(t, int64(1), roots[0].ID)
	assert.Equal(t, int64(3), roots[1].ID)
	assert.Equal(t, int64(5), roots[2].ID)

	require.Len(t, roots[0].Replies, 1)
	assert.Equal(t, int64(2), roots[0].Replies[0].ID)
	require.Len(t, roots[0].Replies[0].Replies, 1)
	assert.Equal(t, int64(4), roots[0].Replies[0].Replies[0].ID)
}

func TestCourse_LessonLookup(t *testing.T) {
	c := Course{ID: 1, Name: "Go", Chapters: []Chapter{
		{ID: 1, Lessons: nil},
		{ID: 2, Lessons: []Lesson{{ID: 10, Name: "Intro"}, {ID: 11, Name: "Types"}}},
	}}

	first, ok := c.FirstLesson()
	require.True(t, ok)
	assert.Equal(t, int64(10), first.ID)

	l, ok := c.FindLesson(11)
	require.True(t, ok)
	assert.Equal(t, "Types", l.Name)
	assert.Len(t, c.Lessons(), 2)
}
