// Package devbackend is an in-memory server that speaks the course
// platform's REST contract. It backs local development and the client
// tests; it is not a production backend.
package devbackend

import (
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/learnhub/learnhub/src/internal/domain"
)

// rejection is an error the server reports to the client verbatim.
type rejection struct {
	status int
	detail string
}

func (r *rejection) Error() string { return r.detail }

var (
	errNotFound      = &rejection{http.StatusNotFound, "Not found."}
	errNotEnrolled   = &rejection{http.StatusForbidden, "You are not enrolled in this course."}
	errForbidden     = &rejection{http.StatusForbidden, "You do not have permission to perform this action."}
	errUsernameTaken = &rejection{http.StatusBadRequest, "A user with that username already exists."}
)

type account struct {
	profile  domain.UserProfile
	password string
}

type progressKey struct {
	userID   int64
	lessonID int64
}

// State is the server's data. All methods are safe for concurrent use.
type State struct {
	mu sync.Mutex

	nextID     int64
	accounts   map[int64]*account
	tokens     map[string]int64
	courses    map[int64]*domain.Course
	categories []domain.Category
	enrolments map[int64]map[int64]time.Time // user -> course -> enrolled at
	progress   map[progressKey]*domain.LessonProgressRecord
	lastSeen   map[progressKey]time.Time // user,course -> last access
	forums     map[int64]*domain.Forum
	topics     map[int64]*domain.Topic
	comments   map[int64]*domain.Comment

	now func() time.Time
}

func NewState() *State {
	return &State{
		nextID:     1000,
		accounts:   make(map[int64]*account),
		tokens:     make(map[string]int64),
		courses:    make(map[int64]*domain.Course),
		enrolments: make(map[int64]map[int64]time.Time),
		progress:   make(map[progressKey]*domain.LessonProgressRecord),
		lastSeen:   make(map[progressKey]time.Time),
		forums:     make(map[int64]*domain.Forum),
		topics:     make(map[int64]*domain.Topic),
		comments:   make(map[int64]*domain.Comment),
		now:        time.Now,
	}
}

func (s *State) id() int64 {
	s.nextID++
	return s.nextID
}

// AddUser registers an account and returns its profile.
func (s *State) AddUser(profile domain.UserProfile, password string) domain.UserProfile {
	s.mu.Lock()
	defer s.mu.Unlock()

	if profile.ID == 0 {
		profile.ID = s.id()
	}
	s.accounts[profile.ID] = &account{profile: profile, password: password}
	return profile
}

// AddCourse stores a course as given. Ids must be set by the caller.
func (s *State) AddCourse(c domain.Course) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.courses[c.ID] = &c
}

func (s *State) AddCategory(c domain.Category) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.categories = append(s.categories, c)
}

// IssueToken mints a bearer token for userID.
func (s *State) IssueToken(userID int64) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.issueTokenLocked(userID)
}

func (s *State) issueTokenLocked(userID int64) string {
	token := strings.ReplaceAll(uuid.NewString(), "-", "")
	s.tokens[token] = userID
	return token
}

// RevokeToken makes token unknown, as if it expired.
func (s *State) RevokeToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, token)
}

func (s *State) authenticate(token string) (domain.UserProfile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.tokens[token]
	if !ok {
		return domain.UserProfile{}, false
	}
	acc, ok := s.accounts[id]
	if !ok {
		return domain.UserProfile{}, false
	}
	return acc.profile, true
}

func (s *State) passwordGrant(username, password string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, acc := range s.accounts {
		if acc.profile.Username == username && acc.password == password && password != "" {
			return s.issueTokenLocked(id), true
		}
	}
	return "", false
}

// federatedLogin finds or creates the account for a verified email.
func (s *State) federatedLogin(email, first, last string) (domain.UserProfile, string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, acc := range s.accounts {
		if strings.EqualFold(acc.profile.Email, email) {
			return acc.profile, s.issueTokenLocked(id)
		}
	}
	profile := domain.UserProfile{
		ID:        s.id(),
		Username:  email,
		Email:     email,
		FirstName: first,
		LastName:  last,
		Role:      domain.RoleStudent,
	}
	s.accounts[profile.ID] = &account{profile: profile}
	return profile, s.issueTokenLocked(profile.ID)
}

func (s *State) register(reg domain.Registration) (domain.UserProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, acc := range s.accounts {
		if acc.profile.Username == reg.Username {
			return domain.UserProfile{}, errUsernameTaken
		}
	}
	role := domain.RoleStudent
	if reg.Role == "teacher" {
		role = domain.RoleTeacher
	}
	profile := domain.UserProfile{
		ID:        s.id(),
		Username:  reg.Username,
		Email:     reg.Email,
		FirstName: reg.FirstName,
		LastName:  reg.LastName,
		Role:      role,
	}
	s.accounts[profile.ID] = &account{profile: profile, password: reg.Password}
	return profile, nil
}

func (s *State) updateProfile(userID int64, u domain.ProfileUpdate) (domain.UserProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.accounts[userID]
	if !ok {
		return domain.UserProfile{}, errNotFound
	}
	if u.FirstName != "" {
		acc.profile.FirstName = u.FirstName
	}
	if u.LastName != "" {
		acc.profile.LastName = u.LastName
	}
	if u.Email != "" {
		acc.profile.Email = u.Email
	}
	if u.Avatar != "" {
		acc.profile.Avatar = u.Avatar
	}
	return acc.profile, nil
}

func (s *State) listCourses(q domain.CourseQuery) []domain.Course {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.Course
	for _, c := range s.courses {
		if q.Search != "" && !strings.Contains(strings.ToLower(c.Name), strings.ToLower(q.Search)) {
			continue
		}
		if q.CategoryID > 0 && (c.Category == nil || c.Category.ID != q.CategoryID) {
			continue
		}
		if q.LecturerID > 0 && (c.Lecturer == nil || c.Lecturer.ID != q.LecturerID) {
			continue
		}
		summary := *c
		summary.Chapters = nil
		out = append(out, summary)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *State) courseDetail(courseID, userID int64) (domain.Course, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.courses[courseID]
	if !ok {
		return domain.Course{}, errNotFound
	}
	out := *c
	_, out.IsEnrolled = s.enrolments[userID][courseID]
	return out, nil
}

func (s *State) lecturers() []domain.Lecturer {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.Lecturer
	for _, acc := range s.accounts {
		if acc.profile.IsTeacher() {
			p := acc.profile
			out = append(out, domain.Lecturer{ID: p.ID, Username: p.Username, FirstName: p.FirstName, LastName: p.LastName, Avatar: p.Avatar})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *State) enroll(userID, courseID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.courses[courseID]; !ok {
		return errNotFound
	}
	if s.enrolments[userID] == nil {
		s.enrolments[userID] = make(map[int64]time.Time)
	}
	if _, ok := s.enrolments[userID][courseID]; !ok {
		s.enrolments[userID][courseID] = s.now()
	}
	return nil
}

func (s *State) enrolled(userID int64) []domain.EnrolledCourse {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.EnrolledCourse
	for courseID, at := range s.enrolments[userID] {
		c := s.courses[courseID]
		agg := s.aggregateLocked(userID, c)
		out = append(out, domain.EnrolledCourse{
			ID:        courseID,
			Course:    *c,
			Status:    "active",
			Progress:  &agg,
			CreatedAt: at,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *State) taughtBy(userID int64) []domain.Course {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.Course
	for _, c := range s.courses {
		if c.Lecturer != nil && c.Lecturer.ID == userID {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// courseOfLessonLocked returns the course containing lessonID.
func (s *State) courseOfLessonLocked(lessonID int64) (*domain.Course, *domain.Lesson) {
	for _, c := range s.courses {
		if l, ok := c.FindLesson(lessonID); ok {
			return c, l
		}
	}
	return nil, nil
}

// courseProgress returns the learn data for one enrolled course. Lessons
// without a record are omitted, as the real backend does.
func (s *State) courseProgress(userID, courseID int64) (domain.CourseLearnData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.courses[courseID]
	if !ok {
		return domain.CourseLearnData{}, errNotFound
	}
	if _, ok := s.enrolments[userID][courseID]; !ok {
		return domain.CourseLearnData{}, errNotEnrolled
	}

	data := domain.CourseLearnData{
		CourseProgress:   s.aggregateLocked(userID, c),
		LessonProgresses: []domain.LessonProgressRecord{},
	}
	for _, l := range c.Lessons() {
		if rec, ok := s.progress[progressKey{userID, l.ID}]; ok {
			data.LessonProgresses = append(data.LessonProgresses, *rec)
		}
	}
	return data, nil
}

// updateProgress applies a progress report. Completion never regresses: a
// completed lesson stays completed and the percentage keeps its maximum.
func (s *State) updateProgress(userID int64, u domain.ProgressUpdate) (domain.LessonProgressRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, lesson := s.courseOfLessonLocked(u.LessonID)
	if c == nil {
		return domain.LessonProgressRecord{}, errNotFound
	}
	if _, ok := s.enrolments[userID][c.ID]; !ok {
		return domain.LessonProgressRecord{}, errNotEnrolled
	}

	now := s.now()
	key := progressKey{userID, u.LessonID}
	rec, ok := s.progress[key]
	if !ok {
		rec = &domain.LessonProgressRecord{
			ID:             s.id(),
			Lesson:         lesson.ID,
			LessonName:     lesson.Name,
			LessonDuration: lesson.Duration,
			Status:         domain.LessonNotStarted,
		}
		s.progress[key] = rec
	}

	rec.WatchTime = float64(u.WatchTime)
	rec.LastWatchedAt = &now
	if u.CompletionPercentage > rec.CompletionPercentage {
		rec.CompletionPercentage = u.CompletionPercentage
	}
	if rec.StartedAt == nil && (u.WatchTime > 0 || u.CompletionPercentage > 0) {
		rec.StartedAt = &now
	}
	switch {
	case rec.Status == domain.LessonCompleted:
	case domain.StatusFor(rec.CompletionPercentage, rec.CompletionPercentage >= 100) == domain.LessonCompleted:
		rec.Status = domain.LessonCompleted
		rec.CompletedAt = &now
	case rec.StartedAt != nil:
		rec.Status = domain.LessonInProgress
	}
	rec.StatusDisplay = statusDisplay(rec.Status)
	s.lastSeen[progressKey{userID, c.ID}] = now
	return *rec, nil
}

func (s *State) aggregateLocked(userID int64, c *domain.Course) domain.CourseProgress {
	lessons := c.Lessons()
	agg := domain.CourseProgress{
		ID:           c.ID,
		Course:       c.ID,
		CourseName:   c.Name,
		CourseImage:  c.Image,
		TotalLessons: len(lessons),
	}
	for _, l := range lessons {
		rec, ok := s.progress[progressKey{userID, l.ID}]
		if !ok {
			continue
		}
		agg.TotalWatchTime += rec.WatchTime
		if rec.Status == domain.LessonCompleted {
			agg.CompletedLessons++
		}
	}
	if agg.TotalLessons > 0 {
		agg.CompletionPercentage = float64(agg.CompletedLessons) / float64(agg.TotalLessons) * 100
	}
	if at, ok := s.enrolments[userID][c.ID]; ok {
		agg.EnrolledAt = &at
	}
	if at, ok := s.lastSeen[progressKey{userID, c.ID}]; ok {
		agg.LastAccessedAt = &at
	}
	return agg
}

func statusDisplay(st domain.LessonStatus) string {
	switch st {
	case domain.LessonCompleted:
		return "Completed"
	case domain.LessonInProgress:
		return "In progress"
	case domain.LessonPaused:
		return "Paused"
	default:
		return "Not started"
	}
}
