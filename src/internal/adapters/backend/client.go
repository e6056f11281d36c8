// Package backend is the HTTP client for the course platform's REST API.
package backend

import (
	"net/http"
	"strings"
	"time"

	"github.com/learnhub/learnhub/src/internal/observability"
	"github.com/learnhub/learnhub/src/internal/platform/logger"
)

const (
	DefaultTimeout = 15 * time.Second
	userAgent      = "learnhub-client/1.0"
)

// Client talks to the backend. Authenticated methods take the bearer token
// explicitly so the caller decides which identity a request runs as.
type Client struct {
	baseURL      string
	clientID     string
	clientSecret string
	httpClient   *http.Client
	log          *logger.Logger
	metrics      *observability.Metrics

	onUnauthorized func(token string)
}

type Option func(*Client)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if c.httpClient == nil {
			c.httpClient = &http.Client{}
		}
		c.httpClient.Timeout = timeout
	}
}

// WithClientCredentials sets the OAuth application used by the password
// grant.
func WithClientCredentials(clientID, clientSecret string) Option {
	return func(c *Client) {
		c.clientID = clientID
		c.clientSecret = clientSecret
	}
}

func WithLogger(log *logger.Logger) Option {
	return func(c *Client) {
		c.log = log
	}
}

func WithMetrics(m *observability.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithUnauthorizedHook registers fn to run when an authenticated request is
// answered with 401.
func WithUnauthorizedHook(fn func(token string)) Option {
	return func(c *Client) {
		c.onUnauthorized = fn
	}
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
		log:        logger.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.With("component", "backend")
	return c
}

// SetUnauthorizedHook replaces the 401 hook after construction. The session
// store is built after the client, so wiring needs this.
func (c *Client) SetUnauthorizedHook(fn func(token string)) {
	c.onUnauthorized = fn
}

func (c *Client) BaseURL() string {
	return c.baseURL
}
