package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/learnhub/learnhub/src/internal/config"
	"github.com/learnhub/learnhub/src/internal/domain"
	"github.com/learnhub/learnhub/src/internal/platform/logger"
	"github.com/learnhub/learnhub/src/internal/ports"
)

var (
	ErrFederatedDisabled = errors.New("federated sign-in is not configured")
	ErrStateMismatch     = errors.New("unknown or expired sign-in state")
)

const pendingTTL = 10 * time.Minute

// SessionSink receives the result of a successful sign-in.
type SessionSink interface {
	Login(ctx context.Context, user *domain.UserProfile, token string) error
}

type pendingAuth struct {
	verifier    string
	redirectURL string
	created     time.Time
}

// FederatedSignIn runs the OIDC authorization-code flow against an identity
// provider, then trades the verified ID token for a backend token.
type FederatedSignIn struct {
	oauth    oauth2.Config
	verifier *oidc.IDTokenVerifier
	auth     ports.AuthAPI
	session  SessionSink
	log      *logger.Logger

	mu      sync.Mutex
	pending map[string]pendingAuth
	now     func() time.Time
}

// NewFederatedSignIn discovers the provider. It returns ErrFederatedDisabled
// when cfg is incomplete.
func NewFederatedSignIn(ctx context.Context, cfg config.OIDCConfig, auth ports.AuthAPI, session SessionSink, log *logger.Logger) (*FederatedSignIn, error) {
	if !cfg.Enabled() {
		return nil, ErrFederatedDisabled
	}
	provider, err := oidc.NewProvider(ctx, cfg.ProviderURL)
	if err != nil {
		return nil, fmt.Errorf("discover OIDC provider %s: %w", cfg.ProviderURL, err)
	}
	conf := oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
		Endpoint:     provider.Endpoint(),
		Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
	}
	verifier := provider.Verifier(&oidc.Config{ClientID: cfg.ClientID})
	return newFederatedSignIn(conf, verifier, auth, session, log), nil
}

func newFederatedSignIn(conf oauth2.Config, verifier *oidc.IDTokenVerifier, auth ports.AuthAPI, session SessionSink, log *logger.Logger) *FederatedSignIn {
	return &FederatedSignIn{
		oauth:    conf,
		verifier: verifier,
		auth:     auth,
		session:  session,
		log:      log.With("component", "federated"),
		pending:  make(map[string]pendingAuth),
		now:      time.Now,
	}
}

// AuthCodeURL starts a sign-in. The returned state must come back on the
// callback. An empty redirectURL uses the configured one.
func (f *FederatedSignIn) AuthCodeURL(redirectURL string) (authURL, state string) {
	state = uuid.NewString()
	pkce := oauth2.GenerateVerifier()
	if redirectURL == "" {
		redirectURL = f.oauth.RedirectURL
	}

	f.mu.Lock()
	f.gcLocked()
	f.pending[state] = pendingAuth{verifier: pkce, redirectURL: redirectURL, created: f.now()}
	f.mu.Unlock()

	conf := f.oauth
	conf.RedirectURL = redirectURL
	return conf.AuthCodeURL(state, oauth2.S256ChallengeOption(pkce)), state
}

// Complete finishes the flow started with state: it redeems code, verifies
// the ID token, exchanges it with the backend and signs the session in.
func (f *FederatedSignIn) Complete(ctx context.Context, state, code string) (*domain.UserProfile, error) {
	f.mu.Lock()
	p, ok := f.pending[state]
	delete(f.pending, state)
	f.mu.Unlock()
	if !ok || f.now().Sub(p.created) > pendingTTL {
		return nil, ErrStateMismatch
	}

	conf := f.oauth
	conf.RedirectURL = p.redirectURL
	oauth2Token, err := conf.Exchange(ctx, code, oauth2.VerifierOption(p.verifier))
	if err != nil {
		return nil, fmt.Errorf("redeem authorization code: %w", err)
	}
	rawIDToken, ok := oauth2Token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return nil, errors.New("provider response has no id_token")
	}
	if _, err := f.verifier.Verify(ctx, rawIDToken); err != nil {
		return nil, fmt.Errorf("verify id token: %w", err)
	}

	grant, err := f.auth.ExchangeFederatedToken(ctx, rawIDToken)
	if err != nil {
		return nil, err
	}
	user := grant.User
	if user == nil {
		if user, err = f.auth.CurrentUser(ctx, grant.AccessToken); err != nil {
			return nil, err
		}
	}
	if err := f.session.Login(ctx, user, grant.AccessToken); err != nil {
		return nil, err
	}
	f.log.Info("Federated sign-in complete", "user_id", user.ID)
	return user, nil
}

func (f *FederatedSignIn) gcLocked() {
	for state, p := range f.pending {
		if f.now().Sub(p.created) > pendingTTL {
			delete(f.pending, state)
		}
	}
}
