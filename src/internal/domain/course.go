package domain

import "time"

type Category struct {
	ID   int64  `json:"id" validate:"required"`
	Name string `json:"name"`
}

// Lecturer is the public view of a teacher account.
type Lecturer struct {
	ID        int64  `json:"id" validate:"required"`
	Username  string `json:"username,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Avatar    string `json:"avatar,omitempty"`
}

type Lesson struct {
	ID       int64   `json:"id" validate:"required"`
	Name     string  `json:"name"`
	VideoURL string  `json:"video_url,omitempty"`
	Duration float64 `json:"duration" validate:"gte=0"`
}

type Chapter struct {
	ID      int64    `json:"id" validate:"required"`
	Name    string   `json:"name"`
	Lessons []Lesson `json:"lessons" validate:"dive"`
}

type Course struct {
	ID          int64     `json:"id" validate:"required"`
	Name        string    `json:"name" validate:"required"`
	Description string    `json:"description,omitempty"`
	Image       string    `json:"image,omitempty"`
	Price       float64   `json:"price" validate:"gte=0"`
	Duration    int       `json:"duration" validate:"gte=0"` // minutes
	Category    *Category `json:"category,omitempty"`
	Lecturer    *Lecturer `json:"lecturer,omitempty"`
	Chapters    []Chapter `json:"chapters,omitempty" validate:"dive"`
	IsEnrolled  bool      `json:"is_enrolled,omitempty"`
	CreatedDate time.Time `json:"created_date,omitempty"`
}

// Lessons flattens the chapters in order.
func (c *Course) Lessons() []Lesson {
	var out []Lesson
	for _, ch := range c.Chapters {
		out = append(out, ch.Lessons...)
	}
	return out
}

// FindLesson looks a lesson up across chapters.
func (c *Course) FindLesson(id int64) (*Lesson, bool) {
	for i := range c.Chapters {
		for j := range c.Chapters[i].Lessons {
			if c.Chapters[i].Lessons[j].ID == id {
				return &c.Chapters[i].Lessons[j], true
			}
		}
	}
	return nil, false
}

// FirstLesson is the lesson a learner lands on when opening a course.
func (c *Course) FirstLesson() (*Lesson, bool) {
	for i := range c.Chapters {
		if len(c.Chapters[i].Lessons) > 0 {
			return &c.Chapters[i].Lessons[0], true
		}
	}
	return nil, false
}

// IsLecturer reports whether user teaches the course.
func (c *Course) IsLecturer(user *UserProfile) bool {
	return user != nil && c.Lecturer != nil && c.Lecturer.ID == user.ID
}

// EnrolledCourse is one entry of the learner's enrolments.
type EnrolledCourse struct {
	ID        int64           `json:"id"`
	Course    Course          `json:"course"`
	Status    string          `json:"status,omitempty"`
	Progress  *CourseProgress `json:"progress,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// CourseQuery filters the public catalogue.
type CourseQuery struct {
	Search     string
	CategoryID int64
	LecturerID int64
	Page       int
}

// Page is the paginated list envelope used by the backend.
type Page[T any] struct {
	Count    int     `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results" validate:"dive"`
}
