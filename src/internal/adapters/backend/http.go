package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/learnhub/learnhub/src/internal/domain"
	"github.com/learnhub/learnhub/src/internal/platform/apierr"
)

const (
	headerAuthorization = "Authorization"
	headerContentType   = "Content-Type"
	headerUserAgent     = "User-Agent"
	headerRequestID     = "X-Request-ID"
	contentTypeJSON     = "application/json"
	contentTypeForm     = "application/x-www-form-urlencoded"
)

// request describes one backend call. op names it in logs and metrics.
type request struct {
	op     string
	method string
	path   string
	query  url.Values
	token  string
	json   interface{}
	form   url.Values
}

// do performs the request and decodes a 2xx body into result.
func (c *Client) do(ctx context.Context, r request, result interface{}) error {
	reqURL := c.baseURL + "/" + strings.TrimLeft(r.path, "/")
	if len(r.query) > 0 {
		reqURL += "?" + r.query.Encode()
	}

	var body io.Reader
	contentType := ""
	switch {
	case r.form != nil:
		body = strings.NewReader(r.form.Encode())
		contentType = contentTypeForm
	case r.json != nil:
		raw, err := json.Marshal(r.json)
		if err != nil {
			return fmt.Errorf("%s: marshal request body: %w", r.op, err)
		}
		body = bytes.NewReader(raw)
		contentType = contentTypeJSON
	}

	req, err := http.NewRequestWithContext(ctx, r.method, reqURL, body)
	if err != nil {
		return fmt.Errorf("%s: create request: %w", r.op, err)
	}
	requestID := uuid.NewString()
	req.Header.Set(headerUserAgent, userAgent)
	req.Header.Set(headerRequestID, requestID)
	req.Header.Set("Accept", contentTypeJSON)
	if contentType != "" {
		req.Header.Set(headerContentType, contentType)
	}
	if r.token != "" {
		req.Header.Set(headerAuthorization, "Bearer "+r.token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observe(r.op, "network", start)
		c.log.Warn("Backend request failed", "op", r.op, "request_id", requestID, "error", err)
		return apierr.Network(r.op, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		c.observe(r.op, "network", start)
		return apierr.Network(r.op, err)
	}

	if resp.StatusCode >= 400 {
		c.observe(r.op, fmt.Sprintf("%dxx", resp.StatusCode/100), start)
		rejected := apierr.Parse(resp.StatusCode, respBody)
		c.log.Debug("Backend rejected request", "op", r.op, "request_id", requestID,
			"status", resp.StatusCode, "message", rejected.Message)
		if rejected.IsUnauthorized() && r.token != "" && c.onUnauthorized != nil {
			c.onUnauthorized(r.token)
		}
		return fmt.Errorf("%s: %w", r.op, rejected)
	}
	c.observe(r.op, "ok", start)

	if result == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, result); err != nil {
		return apierr.Malformed(r.op, err)
	}
	return nil
}

// doValidated is do followed by a struct-tag check of the decoded record.
func (c *Client) doValidated(ctx context.Context, r request, result interface{}) error {
	if err := c.do(ctx, r, result); err != nil {
		return err
	}
	if err := domain.Validate(result); err != nil {
		return apierr.Malformed(r.op, err)
	}
	return nil
}

func (c *Client) observe(op, outcome string, start time.Time) {
	c.metrics.ObserveBackendRequest(op, outcome, time.Since(start).Seconds())
}

// listOrPage accepts either a bare JSON array or a paginated envelope, since
// several list endpoints switch between the two depending on server config.
type listOrPage[T any] struct {
	items []T
}

func (l *listOrPage[T]) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		return json.Unmarshal(trimmed, &l.items)
	}
	var page domain.Page[T]
	if err := json.Unmarshal(trimmed, &page); err != nil {
		return err
	}
	l.items = page.Results
	return nil
}

func getList[T any](ctx context.Context, c *Client, r request) ([]T, error) {
	var out listOrPage[T]
	if err := c.do(ctx, r, &out); err != nil {
		return nil, err
	}
	if err := domain.ValidateAll(out.items); err != nil {
		return nil, apierr.Malformed(r.op, err)
	}
	if out.items == nil {
		out.items = []T{}
	}
	return out.items, nil
}

func getPage[T any](ctx context.Context, c *Client, r request) (*domain.Page[T], error) {
	var page domain.Page[T]
	if err := c.doValidated(ctx, r, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func idPath(format string, id int64) string {
	return fmt.Sprintf(format, id)
}
