package main

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/learnhub/learnhub/src/internal/platform/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxMessageSize = 512
	sendBufferSize = 32
)

// liveMessage is pushed to dashboard tabs over /api/session/ws.
type liveMessage struct {
	Type     string        `json:"type"` // session, progress
	Session  *sessionView  `json:"session,omitempty"`
	Progress *progressView `json:"progress,omitempty"`
}

type progressView struct {
	Kind       string  `json:"kind"`
	CourseID   int64   `json:"course_id"`
	LessonID   int64   `json:"lesson_id"`
	LessonName string  `json:"lesson_name,omitempty"`
	Percent    float64 `json:"completion_percentage"`
	Error      string  `json:"error,omitempty"`
}

// The dashboard only listens on localhost, so any origin that reached it is
// accepted.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type liveHub struct {
	log *logger.Logger

	mu      sync.Mutex
	clients map[*liveClient]struct{}
	closed  bool
}

type liveClient struct {
	conn *websocket.Conn
	send chan []byte
}

func newLiveHub(log *logger.Logger) *liveHub {
	return &liveHub{log: log.With("component", "live"), clients: make(map[*liveClient]struct{})}
}

// Broadcast queues msg for every connected client. Clients that cannot keep
// up are disconnected.
func (h *liveHub) Broadcast(msg liveMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.log.Error("Failed to encode live message", "error", err)
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			h.dropLocked(c)
		}
	}
}

func (h *liveHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		h.dropLocked(c)
	}
}

func (h *liveHub) dropLocked(c *liveClient) {
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *liveHub) unregister(c *liveClient) {
	h.mu.Lock()
	h.dropLocked(c)
	h.mu.Unlock()
}

// serveWS upgrades the request and sends hello first, then every broadcast.
func (h *liveHub) serveWS(hello func() liveMessage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			h.log.Warn("Websocket upgrade failed", "error", err)
			return
		}
		c := &liveClient{conn: conn, send: make(chan []byte, sendBufferSize)}

		first, err := json.Marshal(hello())
		if err != nil {
			conn.Close()
			return
		}
		c.send <- first

		h.mu.Lock()
		if h.closed {
			h.mu.Unlock()
			conn.Close()
			return
		}
		h.clients[c] = struct{}{}
		h.mu.Unlock()

		go c.writePump()
		c.readPump(h)
	}
}

// readPump discards client frames; it exists to process pongs and notice
// disconnects.
func (c *liveClient) readPump(h *liveHub) {
	defer func() {
		h.unregister(c)
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Debug("Live connection closed", "error", err)
			}
			return
		}
	}
}

func (c *liveClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
