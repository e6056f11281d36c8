package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/learnhub/learnhub/src/internal/adapters/devbackend"
	"github.com/learnhub/learnhub/src/internal/app"
	"github.com/learnhub/learnhub/src/internal/config"
	"github.com/learnhub/learnhub/src/internal/platform/logger"
)

type harness struct {
	app    *app.App
	server *httptest.Server
	client *http.Client
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	state := devbackend.NewState()
	devbackend.Seed(state)
	backend := httptest.NewServer(devbackend.NewServer(state, logger.NewNop(), "", "").Handler())
	t.Cleanup(backend.Close)

	cfg := config.DefaultClientConfig()
	cfg.BackendURL = backend.URL
	cfg.Storage = config.StorageConfig{Driver: "memory"}
	a, err := app.New(context.Background(), cfg, logger.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	fe, err := newFrontend(a)
	require.NoError(t, err)
	t.Cleanup(fe.Close)

	srv := httptest.NewServer(fe.routes())
	t.Cleanup(srv.Close)
	return &harness{
		app:    a,
		server: srv,
		client: &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }},
	}
}

func (h *harness) sessionStatus(t *testing.T) string {
	t.Helper()
	resp, err := h.client.Get(h.server.URL + "/api/session")
	require.NoError(t, err)
	defer resp.Body.Close()
	var v sessionView
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v.Status
}

func (h *harness) login(t *testing.T) {
	t.Helper()
	h.app.Session.Restore(context.Background())
	resp, err := h.client.PostForm(h.server.URL+"/login", url.Values{
		"username": {devbackend.DemoStudent},
		"password": {devbackend.DemoPassword},
	})
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusFound, resp.StatusCode)
	require.Equal(t, "/", resp.Header.Get("Location"))
}

func TestSessionLifecycle(t *testing.T) {
	h := newHarness(t)

	assert.Equal(t, "restoring", h.sessionStatus(t))
	h.login(t)
	assert.Equal(t, "authenticated", h.sessionStatus(t))

	resp, err := h.client.Get(h.server.URL + "/")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, string(body), "Ada Lovelace")
	assert.Contains(t, string(body), "Go for Backend Engineers")

	resp, err = h.client.Post(h.server.URL+"/logout", "", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "anonymous", h.sessionStatus(t))
}

func TestLoginWithWrongPassword(t *testing.T) {
	h := newHarness(t)
	h.app.Session.Restore(context.Background())

	resp, err := h.client.PostForm(h.server.URL+"/login", url.Values{
		"username": {devbackend.DemoStudent},
		"password": {"wrong"},
	})
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "/login?error=credentials", resp.Header.Get("Location"))
	assert.Equal(t, "anonymous", h.sessionStatus(t))
}

func TestProgressEventsReachLiveClients(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	wsURL := "ws" + strings.TrimPrefix(h.server.URL, "http") + "/api/session/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var hello liveMessage
	require.NoError(t, conn.ReadJSON(&hello))
	require.Equal(t, "session", hello.Type)
	assert.Equal(t, "authenticated", hello.Session.Status)

	resp, err := h.client.Post(h.server.URL+"/api/progress/7", "application/json", strings.NewReader(`{"event":"start"}`))
	require.NoError(t, err)
	var started map[string]int64
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&started))
	resp.Body.Close()
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, int64(120), started["current_lesson"])

	var ev liveMessage
	require.NoError(t, conn.ReadJSON(&ev))
	require.Equal(t, "progress", ev.Type)
	assert.Equal(t, "reported", ev.Progress.Kind)
	assert.Equal(t, int64(120), ev.Progress.LessonID)

	resp, err = h.client.Post(h.server.URL+"/api/progress/7", "application/json", strings.NewReader(`{"event":"manual","percent":95}`))
	require.NoError(t, err)
	resp.Body.Close()
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, "completed", ev.Progress.Kind)
	assert.Equal(t, "Tooling", ev.Progress.LessonName)
}

func TestProgressRejectsBadInput(t *testing.T) {
	h := newHarness(t)
	h.app.Session.Restore(context.Background())

	resp, err := h.client.Post(h.server.URL+"/api/progress/7", "application/json", strings.NewReader(`{"event":"start"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	h.login(t)
	resp, err = h.client.Post(h.server.URL+"/api/progress/7", "application/json", strings.NewReader(`{"event":"select","lesson_id":999}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = h.client.Post(h.server.URL+"/api/progress/7", "application/json", strings.NewReader(`{"event":"manual","percent":140}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestProxyInjectsBearer(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	resp, err := h.client.Get(h.server.URL + "/api/v1/users/current-user/")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var user map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&user))
	assert.Equal(t, devbackend.DemoStudent, user["username"])
}

func TestClientLogAndMetrics(t *testing.T) {
	h := newHarness(t)

	resp, err := h.client.Post(h.server.URL+"/client-log", "application/json", strings.NewReader(`{"level":"warning","message":"video stalled"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, err = h.client.Get(h.server.URL + "/metrics")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, string(body), `learnhub_client_logs_total{level="warn"} 1`)
}

func TestCoursePageForAnonymousVisitor(t *testing.T) {
	h := newHarness(t)
	h.app.Session.Restore(context.Background())

	resp, err := h.client.Get(h.server.URL + "/courses/8")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "SQL Fundamentals")
	assert.Contains(t, string(body), "Sign in")

	resp, err = h.client.Get(h.server.URL + "/courses/404")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
