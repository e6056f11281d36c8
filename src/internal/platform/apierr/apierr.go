// Package apierr holds the error taxonomy shared by the backend client, the
// session store and the progress client.
package apierr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrUnauthenticated is returned when no token is held or the backend
	// rejected the one we sent.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrNetworkFailure wraps transport errors: the request never produced a
	// response.
	ErrNetworkFailure = errors.New("network failure")
	// ErrValidation is returned for client-side input checks.
	ErrValidation = errors.New("validation failure")
	// ErrMalformedResponse is returned when a 2xx body does not match the
	// expected record shape.
	ErrMalformedResponse = fmt.Errorf("%w: malformed response", ErrValidation)
)

// ServerRejectedError is a non-2xx response that carried a body.
type ServerRejectedError struct {
	Status  int
	Message string
	Body    []byte
}

func (e *ServerRejectedError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("server rejected request (%d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("server rejected request (%d)", e.Status)
}

// Is lets errors.Is(err, ErrUnauthenticated) match 401 responses.
func (e *ServerRejectedError) Is(target error) bool {
	return target == ErrUnauthenticated && e.Status == http.StatusUnauthorized
}

// IsUnauthorized reports whether the rejection was an auth failure.
func (e *ServerRejectedError) IsUnauthorized() bool {
	return e.Status == http.StatusUnauthorized
}

// IsNotFound reports a 404.
func (e *ServerRejectedError) IsNotFound() bool {
	return e.Status == http.StatusNotFound
}

// Network wraps a transport error so that errors.Is(err, ErrNetworkFailure)
// holds while keeping the cause.
func Network(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrNetworkFailure, err)
}

// Malformed wraps a decode or validation error of a response payload.
func Malformed(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrMalformedResponse, err)
}

// Parse turns a non-2xx response into a *ServerRejectedError, extracting the
// most useful message from the usual REST error shapes: "detail", then
// "non_field_errors", then the first field error, then the raw body.
func Parse(status int, body []byte) *ServerRejectedError {
	return &ServerRejectedError{
		Status:  status,
		Message: extractMessage(body),
		Body:    body,
	}
}

func extractMessage(body []byte) string {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return ""
	}

	var data interface{}
	if err := json.Unmarshal(body, &data); err != nil {
		return trimmed
	}

	switch v := data.(type) {
	case string:
		return v
	case []interface{}:
		if len(v) > 0 {
			return fmt.Sprint(v[0])
		}
	case map[string]interface{}:
		if detail, ok := v["detail"].(string); ok {
			return detail
		}
		if s := firstString(v["non_field_errors"]); s != "" {
			return s
		}
		if msg, ok := v["error_description"].(string); ok {
			return msg
		}
		// Django-style field errors: {"field": ["msg", ...]}. Pick the
		// lexically first key so the message is stable.
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		if k := minKey(keys); k != "" {
			if s := firstString(v[k]); s != "" {
				return s
			}
		}
	}
	return trimmed
}

func firstString(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case []interface{}:
		if len(t) > 0 {
			if s, ok := t[0].(string); ok {
				return s
			}
		}
	}
	return ""
}

func minKey(keys []string) string {
	min := ""
	for _, k := range keys {
		if min == "" || k < min {
			min = k
		}
	}
	return min
}
