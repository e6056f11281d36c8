package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/learnhub/learnhub/src/internal/domain"
	"github.com/learnhub/learnhub/src/internal/platform/apierr"
)

// IssueToken runs the OAuth password grant.
func (c *Client) IssueToken(ctx context.Context, username, password string) (*domain.TokenGrant, error) {
	if username == "" || password == "" {
		return nil, fmt.Errorf("issue token: %w: username and password are required", apierr.ErrValidation)
	}
	form := url.Values{
		"grant_type": {"password"},
		"username":   {username},
		"password":   {password},
	}
	if c.clientID != "" {
		form.Set("client_id", c.clientID)
	}
	if c.clientSecret != "" {
		form.Set("client_secret", c.clientSecret)
	}

	var grant domain.TokenGrant
	err := c.doValidated(ctx, request{
		op:     "issue_token",
		method: http.MethodPost,
		path:   "/o/token/",
		form:   form,
	}, &grant)
	if err != nil {
		return nil, err
	}
	return &grant, nil
}

// ExchangeFederatedToken trades a verified Google ID token for a backend
// token. The response carries the user inline.
func (c *Client) ExchangeFederatedToken(ctx context.Context, idToken string) (*domain.TokenGrant, error) {
	if idToken == "" {
		return nil, fmt.Errorf("exchange federated token: %w: id token is required", apierr.ErrValidation)
	}
	var grant domain.TokenGrant
	err := c.doValidated(ctx, request{
		op:     "exchange_federated_token",
		method: http.MethodPost,
		path:   "/auth/google/",
		json:   map[string]string{"token": idToken},
	}, &grant)
	if err != nil {
		return nil, err
	}
	if grant.User == nil {
		return nil, apierr.Malformed("exchange_federated_token", fmt.Errorf("response has no user"))
	}
	if err := domain.Validate(grant.User); err != nil {
		return nil, apierr.Malformed("exchange_federated_token", err)
	}
	return &grant, nil
}

// CurrentUser resolves the profile that token belongs to.
func (c *Client) CurrentUser(ctx context.Context, token string) (*domain.UserProfile, error) {
	if token == "" {
		return nil, apierr.ErrUnauthenticated
	}
	var user domain.UserProfile
	err := c.doValidated(ctx, request{
		op:     "current_user",
		method: http.MethodGet,
		path:   "/users/current-user/",
		token:  token,
	}, &user)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateCurrentUser patches the signed-in user's profile and returns the
// server's copy.
func (c *Client) UpdateCurrentUser(ctx context.Context, token string, update domain.ProfileUpdate) (*domain.UserProfile, error) {
	if token == "" {
		return nil, apierr.ErrUnauthenticated
	}
	if err := domain.Validate(update); err != nil {
		return nil, fmt.Errorf("update current user: %w: %w", apierr.ErrValidation, err)
	}
	var user domain.UserProfile
	err := c.doValidated(ctx, request{
		op:     "update_current_user",
		method: http.MethodPatch,
		path:   "/users/current-user/",
		token:  token,
		json:   update,
	}, &user)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Register creates a student or teacher account.
func (c *Client) Register(ctx context.Context, reg domain.Registration) error {
	if err := domain.Validate(reg); err != nil {
		return fmt.Errorf("register: %w: %w", apierr.ErrValidation, err)
	}
	body := struct {
		domain.Registration
		ConfirmPassword string `json:"confirm_password"`
	}{Registration: reg, ConfirmPassword: reg.Password}

	return c.do(ctx, request{
		op:     "register",
		method: http.MethodPost,
		path:   "/users/register-" + reg.Role + "/",
		json:   body,
	}, nil)
}
