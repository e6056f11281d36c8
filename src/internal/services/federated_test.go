package services

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/learnhub/learnhub/src/internal/config"
	"github.com/learnhub/learnhub/src/internal/domain"
	"github.com/learnhub/learnhub/src/internal/platform/logger"
)

const (
	testIssuer   = "https://accounts.example.test"
	testClientID = "learnhub-web"
)

type fakeAuth struct {
	exchanged string
	grant     domain.TokenGrant
}

func (f *fakeAuth) CurrentUser(ctx context.Context, token string) (*domain.UserProfile, error) {
	return &domain.UserProfile{ID: 77}, nil
}

func (f *fakeAuth) IssueToken(ctx context.Context, username, password string) (*domain.TokenGrant, error) {
	return nil, nil
}

func (f *fakeAuth) ExchangeFederatedToken(ctx context.Context, idToken string) (*domain.TokenGrant, error) {
	f.exchanged = idToken
	g := f.grant
	return &g, nil
}

type fakeSession struct {
	user  *domain.UserProfile
	token string
}

func (f *fakeSession) Login(ctx context.Context, user *domain.UserProfile, token string) error {
	f.user, f.token = user, token
	return nil
}

func signIDToken(t *testing.T, key *rsa.PrivateKey, aud string) string {
	t.Helper()
	raw, err := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
		"iss":   testIssuer,
		"aud":   aud,
		"sub":   "google-123",
		"email": "ada@example.edu",
		"iat":   time.Now().Unix(),
		"exp":   time.Now().Add(time.Hour).Unix(),
	}).SignedString(key)
	require.NoError(t, err)
	return raw
}

func newTestFlow(t *testing.T, idToken string, auth *fakeAuth, sess *fakeSession, key *rsa.PrivateKey) *FederatedSignIn {
	t.Helper()
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "the-code", r.PostForm.Get("code"))
		assert.NotEmpty(t, r.PostForm.Get("code_verifier"))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token": "provider-access",
			"token_type":   "Bearer",
			"expires_in":   3600,
			"id_token":     idToken,
		})
	}))
	t.Cleanup(tokenSrv.Close)

	conf := oauth2.Config{
		ClientID:    testClientID,
		RedirectURL: "http://localhost:3000/auth/callback",
		Endpoint:    oauth2.Endpoint{AuthURL: testIssuer + "/auth", TokenURL: tokenSrv.URL},
		Scopes:      []string{oidc.ScopeOpenID, "email"},
	}
	keySet := &oidc.StaticKeySet{PublicKeys: []crypto.PublicKey{key.Public()}}
	verifier := oidc.NewVerifier(testIssuer, keySet, &oidc.Config{ClientID: testClientID})
	return newFederatedSignIn(conf, verifier, auth, sess, logger.NewNop())
}

func TestFederatedSignIn_Disabled(t *testing.T) {
	_, err := NewFederatedSignIn(context.Background(), config.OIDCConfig{}, &fakeAuth{}, &fakeSession{}, logger.NewNop())
	assert.ErrorIs(t, err, ErrFederatedDisabled)
}

func TestFederatedSignIn_Complete(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	idToken := signIDToken(t, key, testClientID)
	auth := &fakeAuth{grant: domain.TokenGrant{AccessToken: "backend-token", User: &domain.UserProfile{ID: 5}}}
	sess := &fakeSession{}
	flow := newTestFlow(t, idToken, auth, sess, key)

	authURL, state := flow.AuthCodeURL("")
	u, err := url.Parse(authURL)
	require.NoError(t, err)
	assert.Equal(t, state, u.Query().Get("state"))
	assert.Equal(t, "S256", u.Query().Get("code_challenge_method"))
	assert.Equal(t, "http://localhost:3000/auth/callback", u.Query().Get("redirect_uri"))

	user, err := flow.Complete(context.Background(), state, "the-code")
	require.NoError(t, err)
	assert.Equal(t, int64(5), user.ID)
	assert.Equal(t, idToken, auth.exchanged)
	assert.Equal(t, "backend-token", sess.token)

	// states are single use
	_, err = flow.Complete(context.Background(), state, "the-code")
	assert.ErrorIs(t, err, ErrStateMismatch)
}

func TestFederatedSignIn_FetchesUserWhenGrantHasNone(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	auth := &fakeAuth{grant: domain.TokenGrant{AccessToken: "backend-token"}}
	sess := &fakeSession{}
	flow := newTestFlow(t, signIDToken(t, key, testClientID), auth, sess, key)

	_, state := flow.AuthCodeURL("http://127.0.0.1:5555/callback")
	user, err := flow.Complete(context.Background(), state, "the-code")
	require.NoError(t, err)
	assert.Equal(t, int64(77), user.ID)
}

func TestFederatedSignIn_RejectsForeignAudience(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	sess := &fakeSession{}
	flow := newTestFlow(t, signIDToken(t, key, "someone-else"), &fakeAuth{}, sess, key)

	_, state := flow.AuthCodeURL("")
	_, err = flow.Complete(context.Background(), state, "the-code")
	assert.Error(t, err)
	assert.Nil(t, sess.user)
}

func TestFederatedSignIn_UnknownOrExpiredState(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	flow := newTestFlow(t, signIDToken(t, key, testClientID), &fakeAuth{}, &fakeSession{}, key)

	_, err = flow.Complete(context.Background(), "random-state-xyz", "the-code")
	assert.ErrorIs(t, err, ErrStateMismatch)

	_, state := flow.AuthCodeURL("")
	flow.now = func() time.Time { return time.Now().Add(pendingTTL + time.Minute) }
	_, err = flow.Complete(context.Background(), state, "the-code")
	assert.ErrorIs(t, err, ErrStateMismatch)
}
