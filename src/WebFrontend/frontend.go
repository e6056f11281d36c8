package main

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/learnhub/learnhub/src/internal/app"
	"github.com/learnhub/learnhub/src/internal/domain"
	"github.com/learnhub/learnhub/src/internal/platform/apierr"
	"github.com/learnhub/learnhub/src/internal/platform/logger"
	"github.com/learnhub/learnhub/src/internal/progress"
	"github.com/learnhub/learnhub/src/internal/session"
)

//go:embed templates/*.html
var templateFS embed.FS

type frontend struct {
	app   *app.App
	log   *logger.Logger
	pages *template.Template
	live  *liveHub
	proxy http.Handler

	mu       sync.Mutex
	trackers map[int64]*progress.Tracker
	lastUser int64

	unsubscribe func()
}

func newFrontend(a *app.App) (*frontend, error) {
	pages, err := template.New("").Funcs(template.FuncMap{
		"minutes": func(seconds float64) string {
			s := int64(seconds)
			return strconv.FormatInt(s/60, 10) + ":" + leftPad(strconv.FormatInt(s%60, 10))
		},
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	target, err := url.Parse(a.Backend.BaseURL())
	if err != nil {
		return nil, err
	}
	proxy := httputil.NewSingleHostReverseProxy(target)
	originalDirector := proxy.Director
	proxy.Director = func(req *http.Request) {
		originalDirector(req)
		req.Host = target.Host
	}
	proxy.ModifyResponse = func(resp *http.Response) error {
		if resp.StatusCode != http.StatusUnauthorized {
			return nil
		}
		if token, ok := strings.CutPrefix(resp.Request.Header.Get("Authorization"), "Bearer "); ok {
			a.Session.HandleUnauthorized(token)
		}
		return nil
	}

	f := &frontend{
		app:      a,
		log:      a.Log.With("component", "web"),
		pages:    pages,
		live:     newLiveHub(a.Log),
		trackers: make(map[int64]*progress.Tracker),
	}
	f.proxy = http.StripPrefix("/api/v1", f.withBearer(proxy))
	f.unsubscribe = a.Session.Subscribe(f.onSession)
	return f, nil
}

func leftPad(s string) string {
	if len(s) < 2 {
		return "0" + s
	}
	return s
}

func (f *frontend) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", f.handleHome)
	mux.HandleFunc("GET /login", f.handleLoginPage)
	mux.HandleFunc("POST /login", f.handlePasswordLogin)
	mux.HandleFunc("GET /auth/google", f.handleGoogleLogin)
	mux.HandleFunc("GET /auth/callback", f.handleCallback)
	mux.HandleFunc("POST /logout", f.handleLogout)
	mux.HandleFunc("GET /courses/{id}", f.handleCourse)

	mux.HandleFunc("GET /api/session", f.handleSession)
	mux.HandleFunc("GET /api/session/ws", f.live.serveWS(f.currentSessionMessage))
	mux.HandleFunc("POST /api/progress/{course}", f.handleProgress)
	mux.HandleFunc("POST /client-log", f.handleClientLog)
	mux.Handle("GET /metrics", f.app.Metrics.Handler())
	mux.Handle("/api/v1/", f.proxy)
	return mux
}

// Close stops every tracker and live connection.
func (f *frontend) Close() {
	if f.unsubscribe != nil {
		f.unsubscribe()
	}
	f.closeTrackers()
	f.live.Close()
}

type sessionView struct {
	Status string              `json:"status"`
	User   *domain.UserProfile `json:"user"`
}

func sessionViewOf(s session.Session) sessionView {
	return sessionView{Status: string(s.Status()), User: s.User}
}

func (f *frontend) currentSessionMessage() liveMessage {
	v := sessionViewOf(f.app.Session.State())
	return liveMessage{Type: "session", Session: &v}
}

func (f *frontend) onSession(s session.Session) {
	v := sessionViewOf(s)
	f.live.Broadcast(liveMessage{Type: "session", Session: &v})

	var id int64
	if s.User != nil {
		id = s.User.ID
	}
	f.mu.Lock()
	changed := f.lastUser != id
	f.lastUser = id
	f.mu.Unlock()
	if changed {
		f.closeTrackers()
	}
}

func (f *frontend) render(w http.ResponseWriter, name string, data interface{}) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := f.pages.ExecuteTemplate(w, name, data); err != nil {
		f.log.Error("Error executing template", "template", name, "error", err)
	}
}

func (f *frontend) handleHome(w http.ResponseWriter, r *http.Request) {
	state := f.app.Session.State()
	data := map[string]interface{}{
		"Time":    time.Now().Format(time.RFC3339),
		"Session": sessionViewOf(state),
	}
	if token, ok := f.app.Session.Token(); ok && state.User != nil {
		enrolled, err := f.app.Backend.EnrolledCourses(r.Context(), token)
		if err != nil {
			f.log.Warn("Failed to load enrolled courses", "error", err)
			data["Error"] = "Could not load your courses."
		}
		data["Enrolled"] = enrolled
	}
	f.render(w, "index.html", data)
}

func (f *frontend) handleCourse(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	token, _ := f.app.Session.Token()
	course, err := f.app.Backend.CourseDetail(r.Context(), token, id)
	if err != nil {
		f.writeAPIError(w, err)
		return
	}

	data := map[string]interface{}{
		"Session": sessionViewOf(f.app.Session.State()),
		"Course":  course,
		"Status":  map[int64]domain.LessonStatus{},
	}
	if token != "" {
		learn, err := f.app.Progress.GetLessonProgress(r.Context(), id)
		switch {
		case err == nil:
			data["Progress"] = learn
			data["Status"] = lessonStatuses(learn)
		case errors.Is(err, apierr.ErrUnauthenticated):
		default:
			f.log.Warn("Failed to load progress", "course_id", id, "error", err)
		}
	}
	f.render(w, "course.html", data)
}

func lessonStatuses(d *domain.CourseLearnData) map[int64]domain.LessonStatus {
	out := make(map[int64]domain.LessonStatus, len(d.LessonProgresses))
	for _, r := range d.LessonProgresses {
		out[r.Lesson] = r.Status
	}
	return out
}

func (f *frontend) handleSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, sessionViewOf(f.app.Session.State()))
}

// playerEvent is what the lesson page posts while a video plays.
type playerEvent struct {
	Event       string  `json:"event"` // start, select, timeupdate, ended, manual
	LessonID    int64   `json:"lesson_id"`
	CurrentTime float64 `json:"current_time"`
	Duration    float64 `json:"duration"`
	Percent     float64 `json:"percent"`
}

func (f *frontend) handleProgress(w http.ResponseWriter, r *http.Request) {
	courseID, err := strconv.ParseInt(r.PathValue("course"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "invalid course id"})
		return
	}
	var ev playerEvent
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&ev); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "invalid event"})
		return
	}

	tr, err := f.tracker(r.Context(), courseID)
	if err != nil {
		f.writeAPIError(w, err)
		return
	}

	switch ev.Event {
	case "start":
		err = tr.Start(r.Context())
	case "select":
		err = tr.SelectLesson(r.Context(), ev.LessonID)
	case "timeupdate":
		tr.TimeUpdate(ev.CurrentTime, ev.Duration)
	case "ended":
		tr.Complete()
	case "manual":
		err = tr.ManualProgress(ev.Percent)
	default:
		err = apierr.ErrValidation
	}
	if err != nil {
		f.writeAPIError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]int64{"current_lesson": tr.Current()})
}

// tracker returns the tracker for courseID, creating it on first use.
func (f *frontend) tracker(ctx context.Context, courseID int64) (*progress.Tracker, error) {
	f.mu.Lock()
	tr, ok := f.trackers[courseID]
	f.mu.Unlock()
	if ok {
		return tr, nil
	}

	token, ok := f.app.Session.Token()
	if !ok {
		return nil, apierr.ErrUnauthenticated
	}
	course, err := f.app.Backend.CourseDetail(ctx, token, courseID)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if existing, ok := f.trackers[courseID]; ok {
		return existing, nil
	}
	tr = progress.NewTracker(f.app.Progress, course, f.log)
	f.trackers[courseID] = tr
	go f.forward(tr)
	return tr, nil
}

// forward relays tracker events to live clients until the tracker closes.
func (f *frontend) forward(tr *progress.Tracker) {
	for ev := range tr.Events() {
		msg := liveMessage{Type: "progress", Progress: &progressView{
			Kind:       string(ev.Kind),
			CourseID:   ev.CourseID,
			LessonID:   ev.LessonID,
			LessonName: ev.LessonName,
			Percent:    ev.Update.CompletionPercentage,
		}}
		if ev.Err != nil {
			msg.Progress.Error = ev.Err.Error()
		}
		f.live.Broadcast(msg)
	}
}

func (f *frontend) closeTrackers() {
	f.mu.Lock()
	trackers := f.trackers
	f.trackers = make(map[int64]*progress.Tracker)
	f.mu.Unlock()
	for _, tr := range trackers {
		tr.Close()
	}
}

type clientLogEntry struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

func (f *frontend) handleClientLog(w http.ResponseWriter, r *http.Request) {
	var entry clientLogEntry
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 16<<10)).Decode(&entry); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	level := strings.ToLower(entry.Level)
	switch level {
	case "error":
		f.log.Error("[CLIENT] "+entry.Message, "source", "browser")
	case "warn", "warning":
		level = "warn"
		f.log.Warn("[CLIENT] "+entry.Message, "source", "browser")
	case "debug":
		f.log.Debug("[CLIENT] "+entry.Message, "source", "browser")
	default:
		level = "info"
		f.log.Info("[CLIENT] "+entry.Message, "source", "browser")
	}
	f.app.Metrics.ClientLog(level)
	w.WriteHeader(http.StatusNoContent)
}

func (f *frontend) writeAPIError(w http.ResponseWriter, err error) {
	var rejected *apierr.ServerRejectedError
	switch {
	case errors.Is(err, apierr.ErrUnauthenticated):
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "sign in first"})
	case errors.As(err, &rejected) && rejected.IsNotFound():
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": rejected.Message})
	case errors.As(err, &rejected) && rejected.Status < 500:
		writeJSON(w, rejected.Status, map[string]string{"detail": rejected.Message})
	case errors.Is(err, apierr.ErrMalformedResponse):
		f.log.Error("Backend sent a malformed response", "error", err)
		writeJSON(w, http.StatusBadGateway, map[string]string{"detail": "unexpected backend response"})
	case errors.Is(err, apierr.ErrValidation):
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": err.Error()})
	default:
		f.log.Error("Backend request failed", "error", err)
		writeJSON(w, http.StatusBadGateway, map[string]string{"detail": "backend unavailable"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
