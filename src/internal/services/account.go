package services

import (
	"context"
	"fmt"

	"github.com/learnhub/learnhub/src/internal/domain"
	"github.com/learnhub/learnhub/src/internal/platform/apierr"
	"github.com/learnhub/learnhub/src/internal/platform/logger"
	"github.com/learnhub/learnhub/src/internal/ports"
)

// ProfileAPI is the backend call behind profile edits.
type ProfileAPI interface {
	UpdateCurrentUser(ctx context.Context, token string, update domain.ProfileUpdate) (*domain.UserProfile, error)
}

// AccountSession is the part of the session store the account service
// drives.
type AccountSession interface {
	SessionSink
	ports.TokenSource
	UpdateUser(ctx context.Context, user *domain.UserProfile) error
	Logout(ctx context.Context) error
}

// AccountService signs learners in with a password and edits their profile.
type AccountService struct {
	auth     ports.AuthAPI
	profiles ProfileAPI
	session  AccountSession
	log      *logger.Logger
}

func NewAccountService(auth ports.AuthAPI, profiles ProfileAPI, session AccountSession, log *logger.Logger) *AccountService {
	return &AccountService{
		auth:     auth,
		profiles: profiles,
		session:  session,
		log:      log.With("component", "account"),
	}
}

// PasswordLogin runs the password grant, resolves the profile for the new
// token and records both in the session.
func (s *AccountService) PasswordLogin(ctx context.Context, username, password string) (*domain.UserProfile, error) {
	grant, err := s.auth.IssueToken(ctx, username, password)
	if err != nil {
		return nil, err
	}
	user, err := s.auth.CurrentUser(ctx, grant.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("load profile after sign-in: %w", err)
	}
	if err := s.session.Login(ctx, user, grant.AccessToken); err != nil {
		return nil, err
	}
	return user, nil
}

// UpdateProfile saves the edit on the backend and mirrors the server's copy
// into the session.
func (s *AccountService) UpdateProfile(ctx context.Context, update domain.ProfileUpdate) (*domain.UserProfile, error) {
	token, ok := s.session.Token()
	if !ok {
		return nil, apierr.ErrUnauthenticated
	}
	user, err := s.profiles.UpdateCurrentUser(ctx, token, update)
	if err != nil {
		return nil, err
	}
	if err := s.session.UpdateUser(ctx, user); err != nil {
		return nil, err
	}
	s.log.Info("Profile updated", "user_id", user.ID)
	return user, nil
}

func (s *AccountService) Logout(ctx context.Context) error {
	return s.session.Logout(ctx)
}
