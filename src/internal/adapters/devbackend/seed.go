package devbackend

import (
	"time"

	"github.com/learnhub/learnhub/src/internal/domain"
)

// Seeded account credentials.
const (
	DemoStudent  = "student"
	DemoTeacher  = "teacher"
	DemoPassword = "learnhub"
)

// Seed fills s with a small catalogue: two categories, one lecturer, one
// learner enrolled in the first course, and a forum with a pinned topic.
func Seed(s *State) {
	teacher := s.AddUser(domain.UserProfile{
		ID: 1, Username: DemoTeacher, FirstName: "Grace", LastName: "Hopper",
		Email: "grace@example.edu", Role: domain.RoleTeacher,
	}, DemoPassword)
	student := s.AddUser(domain.UserProfile{
		ID: 2, Username: DemoStudent, FirstName: "Ada", LastName: "Lovelace",
		Email: "ada@example.edu", Role: domain.RoleStudent,
	}, DemoPassword)

	programming := domain.Category{ID: 1, Name: "Programming"}
	data := domain.Category{ID: 2, Name: "Data"}
	s.AddCategory(programming)
	s.AddCategory(data)

	lecturer := &domain.Lecturer{ID: teacher.ID, Username: teacher.Username, FirstName: teacher.FirstName, LastName: teacher.LastName}
	created := time.Date(2025, 9, 1, 9, 0, 0, 0, time.UTC)

	s.AddCourse(domain.Course{
		ID: 7, Name: "Go for Backend Engineers", Price: 499000, Duration: 42,
		Description: "Services, concurrency and testing in Go.",
		Category:    &programming, Lecturer: lecturer, CreatedDate: created,
		Chapters: []domain.Chapter{
			{ID: 70, Name: "Basics", Lessons: []domain.Lesson{
				{ID: 120, Name: "Tooling", VideoURL: "https://cdn.example.edu/go/120.mp4", Duration: 600},
				{ID: 121, Name: "Types", VideoURL: "https://cdn.example.edu/go/121.mp4", Duration: 720},
			}},
			{ID: 71, Name: "Concurrency", Lessons: []domain.Lesson{
				{ID: 122, Name: "Goroutines", VideoURL: "https://cdn.example.edu/go/122.mp4", Duration: 900},
			}},
		},
	})
	s.AddCourse(domain.Course{
		ID: 8, Name: "SQL Fundamentals", Price: 0, Duration: 20,
		Category: &data, Lecturer: lecturer, CreatedDate: created,
		Chapters: []domain.Chapter{
			{ID: 80, Name: "Queries", Lessons: []domain.Lesson{
				{ID: 130, Name: "SELECT", VideoURL: "https://cdn.example.edu/sql/130.mp4", Duration: 480},
			}},
		},
	})

	_ = s.enroll(student.ID, 7)

	forum, _ := s.createForum(teacher, domain.NewForum{Course: 7, Name: "Q&A"})
	topic, _ := s.createTopic(teacher, domain.NewTopic{Forum: forum.ID, Title: "Welcome", Content: "Introduce yourself here."})
	_, _ = s.pinTopic(teacher, topic.ID, true)
}
