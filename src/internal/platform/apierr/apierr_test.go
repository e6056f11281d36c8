package apierr

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse_Messages(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"detail", `{"detail":"Authentication credentials were not provided."}`, "Authentication credentials were not provided."},
		{"non field errors", `{"non_field_errors":["Already enrolled"]}`, "Already enrolled"},
		{"first field error", `{"username":["This field is required."],"password":["Too short"]}`, "Too short"},
		{"oauth error", `{"error":"invalid_grant","error_description":"Invalid credentials given."}`, "Invalid credentials given."},
		{"list", `["bad thing"]`, "bad thing"},
		{"plain text", `Bad Gateway`, "Bad Gateway"},
		{"empty", ``, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Parse(http.StatusBadRequest, []byte(tt.body))
			assert.Equal(t, tt.want, err.Message)
			assert.Equal(t, http.StatusBadRequest, err.Status)
		})
	}
}

func TestServerRejectedError_IsUnauthenticated(t *testing.T) {
	var err error = Parse(http.StatusUnauthorized, []byte(`{"detail":"expired"}`))
	assert.True(t, errors.Is(err, ErrUnauthenticated))

	err = Parse(http.StatusForbidden, nil)
	assert.False(t, errors.Is(err, ErrUnauthenticated))
}

func TestWrappers(t *testing.T) {
	cause := errors.New("connection refused")
	err := Network("get progress", cause)
	assert.ErrorIs(t, err, ErrNetworkFailure)
	assert.ErrorIs(t, err, cause)

	err = Malformed("decode user", cause)
	assert.ErrorIs(t, err, ErrMalformedResponse)
	assert.ErrorIs(t, err, ErrValidation)
}
