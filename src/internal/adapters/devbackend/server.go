package devbackend

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/learnhub/learnhub/src/internal/domain"
	"github.com/learnhub/learnhub/src/internal/platform/logger"
)

const pageSize = 10

// Server exposes a State over HTTP using the backend's paths.
type Server struct {
	state        *State
	log          *logger.Logger
	clientID     string
	clientSecret string
}

func NewServer(state *State, log *logger.Logger, clientID, clientSecret string) *Server {
	return &Server{
		state:        state,
		log:          log.With("component", "devbackend"),
		clientID:     clientID,
		clientSecret: clientSecret,
	}
}

func (s *Server) State() *State {
	return s.state
}

func (s *Server) RegisterHandlers(mux *http.ServeMux) {
	mux.HandleFunc("POST /o/token/", s.handleToken)
	mux.HandleFunc("POST /auth/google/", s.handleGoogle)
	mux.HandleFunc("POST /users/register-student/", s.handleRegister("student"))
	mux.HandleFunc("POST /users/register-teacher/", s.handleRegister("teacher"))
	mux.HandleFunc("GET /users/current-user/", s.requireAuth(s.handleCurrentUser))
	mux.HandleFunc("PATCH /users/current-user/", s.requireAuth(s.handleUpdateUser))

	mux.HandleFunc("GET /courses/", s.handleCourses)
	mux.HandleFunc("GET /courses/my-course/", s.requireAuth(s.handleMyCourses))
	mux.HandleFunc("GET /courses/{id}/detail/", s.handleCourseDetail)
	mux.HandleFunc("GET /categories/", s.handleCategories)
	mux.HandleFunc("GET /teachers/", s.handleTeachers)
	mux.HandleFunc("POST /enrollments/create/", s.requireAuth(s.handleEnroll))
	mux.HandleFunc("GET /enrolled-courses/", s.requireAuth(s.handleEnrolled))

	mux.HandleFunc("GET /lesson-progress/course/{id}/", s.requireAuth(s.handleCourseProgress))
	mux.HandleFunc("POST /lesson-progress/update-progress/", s.requireAuth(s.handleUpdateProgress))

	mux.HandleFunc("GET /forums/", s.handleForums)
	mux.HandleFunc("POST /forums/", s.requireAuth(s.handleCreateForum))
	mux.HandleFunc("GET /topics/", s.handleTopics)
	mux.HandleFunc("POST /topics/", s.requireAuth(s.handleCreateTopic))
	mux.HandleFunc("PATCH /topics/{id}/", s.requireAuth(s.handlePinTopic))
	mux.HandleFunc("GET /comments/", s.handleComments)
	mux.HandleFunc("POST /comments/", s.requireAuth(s.handleCreateComment))
}

// Handler returns a mux with every route registered.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterHandlers(mux)
	return mux
}

type authedHandler func(w http.ResponseWriter, r *http.Request, user domain.UserProfile)

func (s *Server) requireAuth(next authedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := s.userFrom(r)
		if !ok {
			writeDetail(w, http.StatusUnauthorized, "Authentication credentials were not provided.")
			return
		}
		next(w, r, user)
	}
}

func (s *Server) userFrom(r *http.Request) (domain.UserProfile, bool) {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || token == "" {
		return domain.UserProfile{}, false
	}
	return s.state.authenticate(token)
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_request"})
		return
	}
	if r.PostForm.Get("grant_type") != "password" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unsupported_grant_type"})
		return
	}
	if s.clientID != "" && (r.PostForm.Get("client_id") != s.clientID || r.PostForm.Get("client_secret") != s.clientSecret) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid_client"})
		return
	}
	token, ok := s.state.passwordGrant(r.PostForm.Get("username"), r.PostForm.Get("password"))
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error":             "invalid_grant",
			"error_description": "Invalid credentials given.",
		})
		return
	}
	s.log.Info("Issued token", "username", r.PostForm.Get("username"))
	writeJSON(w, http.StatusOK, domain.TokenGrant{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   36000,
		Scope:       "read write",
	})
}

// handleGoogle accepts any well-formed ID token. Signatures are not checked;
// the dev server trusts the caller to have verified the token already.
func (s *Server) handleGoogle(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Token == "" {
		writeFieldError(w, "token", "This field is required.")
		return
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(body.Token, claims); err != nil {
		writeDetail(w, http.StatusBadRequest, "Invalid Google token.")
		return
	}
	email, _ := claims["email"].(string)
	if email == "" {
		writeDetail(w, http.StatusBadRequest, "Google token has no email.")
		return
	}
	first, _ := claims["given_name"].(string)
	last, _ := claims["family_name"].(string)

	user, token := s.state.federatedLogin(email, first, last)
	writeJSON(w, http.StatusOK, domain.TokenGrant{
		AccessToken:  token,
		RefreshToken: token + "-refresh",
		TokenType:    "Bearer",
		User:         &user,
	})
}

func (s *Server) handleRegister(role string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var reg domain.Registration
		if err := json.NewDecoder(r.Body).Decode(&reg); err != nil {
			writeDetail(w, http.StatusBadRequest, "Malformed request body.")
			return
		}
		reg.Role = role
		if err := domain.Validate(reg); err != nil {
			writeDetail(w, http.StatusBadRequest, err.Error())
			return
		}
		user, err := s.state.register(reg)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, user)
	}
}

func (s *Server) handleCurrentUser(w http.ResponseWriter, r *http.Request, user domain.UserProfile) {
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request, user domain.UserProfile) {
	var u domain.ProfileUpdate
	if err := json.NewDecoder(r.Body).Decode(&u); err != nil {
		writeDetail(w, http.StatusBadRequest, "Malformed request body.")
		return
	}
	if err := domain.Validate(u); err != nil {
		writeFieldError(w, "email", "Enter a valid value.")
		return
	}
	updated, err := s.state.updateProfile(user.ID, u)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleCourses(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := domain.CourseQuery{
		Search:     q.Get("q"),
		CategoryID: queryInt(q.Get("category_id")),
		LecturerID: queryInt(q.Get("lecturer_id")),
		Page:       int(queryInt(q.Get("page"))),
	}
	writeJSON(w, http.StatusOK, paginate(r, s.state.listCourses(query), query.Page))
}

func (s *Server) handleMyCourses(w http.ResponseWriter, r *http.Request, user domain.UserProfile) {
	if !user.IsTeacher() {
		writeError(w, errForbidden)
		return
	}
	writeJSON(w, http.StatusOK, paginate(r, s.state.taughtBy(user.ID), int(queryInt(r.URL.Query().Get("page")))))
}

func (s *Server) handleCourseDetail(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	user, _ := s.userFrom(r)
	course, err := s.state.courseDetail(id, user.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, course)
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	s.state.mu.Lock()
	cats := append([]domain.Category{}, s.state.categories...)
	s.state.mu.Unlock()
	writeJSON(w, http.StatusOK, cats)
}

func (s *Server) handleTeachers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, paginate(r, s.state.lecturers(), int(queryInt(r.URL.Query().Get("page")))))
}

func (s *Server) handleEnroll(w http.ResponseWriter, r *http.Request, user domain.UserProfile) {
	var body struct {
		Course int64 `json:"course"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Course == 0 {
		writeFieldError(w, "course", "This field is required.")
		return
	}
	if err := s.state.enroll(user.ID, body.Course); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"course": body.Course, "status": "active"})
}

func (s *Server) handleEnrolled(w http.ResponseWriter, r *http.Request, user domain.UserProfile) {
	list := s.state.enrolled(user.ID)
	if list == nil {
		list = []domain.EnrolledCourse{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleCourseProgress(w http.ResponseWriter, r *http.Request, user domain.UserProfile) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	data, err := s.state.courseProgress(user.ID, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, data)
}

func (s *Server) handleUpdateProgress(w http.ResponseWriter, r *http.Request, user domain.UserProfile) {
	var u domain.ProgressUpdate
	if err := json.NewDecoder(r.Body).Decode(&u); err != nil {
		writeDetail(w, http.StatusBadRequest, "Malformed request body.")
		return
	}
	if err := domain.Validate(u); err != nil {
		writeFieldError(w, "completion_percentage", "Ensure this value is between 0 and 100.")
		return
	}
	rec, err := s.state.updateProgress(user.ID, u)
	if err != nil {
		writeError(w, err)
		return
	}
	s.log.Debug("Progress updated", "user_id", user.ID, "lesson_id", u.LessonID,
		"watch_time", u.WatchTime, "completion_percentage", u.CompletionPercentage)
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleForums(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.state.forumsFor(queryInt(r.URL.Query().Get("course"))))
}

func (s *Server) handleCreateForum(w http.ResponseWriter, r *http.Request, user domain.UserProfile) {
	var in domain.NewForum
	if !decodeValid(w, r, &in) {
		return
	}
	f, err := s.state.createForum(user, in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, f)
}

func (s *Server) handleTopics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.state.topicsFor(queryInt(r.URL.Query().Get("forum_id"))))
}

func (s *Server) handleCreateTopic(w http.ResponseWriter, r *http.Request, user domain.UserProfile) {
	var in domain.NewTopic
	if !decodeValid(w, r, &in) {
		return
	}
	t, err := s.state.createTopic(user, in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (s *Server) handlePinTopic(w http.ResponseWriter, r *http.Request, user domain.UserProfile) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var body struct {
		IsPinned bool `json:"is_pinned"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeDetail(w, http.StatusBadRequest, "Malformed request body.")
		return
	}
	t, err := s.state.pinTopic(user, id, body.IsPinned)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleComments(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.state.commentsFor(queryInt(r.URL.Query().Get("topic_id"))))
}

func (s *Server) handleCreateComment(w http.ResponseWriter, r *http.Request, user domain.UserProfile) {
	var in domain.NewComment
	if !decodeValid(w, r, &in) {
		return
	}
	c, err := s.state.createComment(user, in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func decodeValid(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeDetail(w, http.StatusBadRequest, "Malformed request body.")
		return false
	}
	if err := domain.Validate(v); err != nil {
		writeDetail(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

func paginate[T any](r *http.Request, items []T, page int) domain.Page[T] {
	if page < 1 {
		page = 1
	}
	out := domain.Page[T]{Count: len(items), Results: []T{}}
	start := (page - 1) * pageSize
	if start < len(items) {
		end := min(start+pageSize, len(items))
		out.Results = items[start:end]
	}
	link := func(p int) *string {
		q := r.URL.Query()
		q.Set("page", strconv.Itoa(p))
		u := *r.URL
		u.RawQuery = q.Encode()
		s := u.String()
		return &s
	}
	if start+pageSize < len(items) {
		out.Next = link(page + 1)
	}
	if page > 1 {
		out.Previous = link(page - 1)
	}
	return out
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, errNotFound)
		return 0, false
	}
	return id, true
}

func queryInt(v string) int64 {
	n, _ := strconv.ParseInt(v, 10, 64)
	return n
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func writeFieldError(w http.ResponseWriter, field, msg string) {
	writeJSON(w, http.StatusBadRequest, map[string][]string{field: {msg}})
}

func writeError(w http.ResponseWriter, err error) {
	var rej *rejection
	if errors.As(err, &rej) {
		writeDetail(w, rej.status, rej.detail)
		return
	}
	writeDetail(w, http.StatusInternalServerError, err.Error())
}
