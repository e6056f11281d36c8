package domain

import "time"

type LessonStatus string

const (
	LessonNotStarted LessonStatus = "NOT_STARTED"
	LessonInProgress LessonStatus = "IN_PROGRESS"
	LessonCompleted  LessonStatus = "COMPLETED"
	LessonPaused     LessonStatus = "PAUSED"
)

// CompletionThresholdPercent is the manual-progress level at which a lesson
// counts as completed. Reaching the end of the media always completes it.
// The completion notice uses the same threshold.
const CompletionThresholdPercent = 90.0

// StatusFor derives the client-side status for a progress report.
func StatusFor(completionPercentage float64, endOfMedia bool) LessonStatus {
	if endOfMedia || completionPercentage >= CompletionThresholdPercent {
		return LessonCompleted
	}
	return LessonInProgress
}

// LessonProgressRecord is the backend's record of one learner's progress on
// one lesson.
type LessonProgressRecord struct {
	ID                   int64        `json:"id"`
	Lesson               int64        `json:"lesson" validate:"required"`
	LessonName           string       `json:"lesson_name"`
	LessonDuration       float64      `json:"lesson_duration" validate:"gte=0"`
	Status               LessonStatus `json:"status" validate:"required,oneof=NOT_STARTED IN_PROGRESS COMPLETED PAUSED"`
	StatusDisplay        string       `json:"status_display,omitempty"`
	StartedAt            *time.Time   `json:"started_at"`
	CompletedAt          *time.Time   `json:"completed_at"`
	WatchTime            float64      `json:"watch_time" validate:"gte=0"`
	LastWatchedAt        *time.Time   `json:"last_watched_at"`
	CompletionPercentage float64      `json:"completion_percentage" validate:"gte=0,lte=100"`
}

// CourseProgress holds the aggregate completion stats of one enrolment.
type CourseProgress struct {
	ID                   int64      `json:"id"`
	Course               int64      `json:"course" validate:"required"`
	CourseName           string     `json:"course_name"`
	CourseImage          string     `json:"course_image,omitempty"`
	TotalLessons         int        `json:"total_lessons" validate:"gte=0"`
	CompletedLessons     int        `json:"completed_lessons" validate:"gte=0,ltefield=TotalLessons"`
	TotalWatchTime       float64    `json:"total_watch_time" validate:"gte=0"`
	CompletionPercentage float64    `json:"completion_percentage" validate:"gte=0,lte=100"`
	LastAccessedAt       *time.Time `json:"last_accessed_at"`
	EnrolledAt           *time.Time `json:"enrolled_at"`
}

// CourseLearnData is the authoritative progress set for a course.
type CourseLearnData struct {
	CourseProgress   CourseProgress         `json:"course_progress"`
	LessonProgresses []LessonProgressRecord `json:"lesson_progresses" validate:"dive"`
}

// Lesson returns the record for lessonID, if the backend has one.
func (d *CourseLearnData) Lesson(lessonID int64) (*LessonProgressRecord, bool) {
	if d == nil {
		return nil, false
	}
	for i := range d.LessonProgresses {
		if d.LessonProgresses[i].Lesson == lessonID {
			return &d.LessonProgresses[i], true
		}
	}
	return nil, false
}

// ProgressUpdate is the body of a progress write.
type ProgressUpdate struct {
	LessonID             int64   `json:"lesson_id" validate:"required"`
	WatchTime            int64   `json:"watch_time" validate:"gte=0"`
	CompletionPercentage float64 `json:"completion_percentage" validate:"gte=0,lte=100"`
}
