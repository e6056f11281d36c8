package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/learnhub/learnhub/src/internal/adapters/memory"
	"github.com/learnhub/learnhub/src/internal/domain"
	"github.com/learnhub/learnhub/src/internal/platform/apierr"
	"github.com/learnhub/learnhub/src/internal/platform/logger"
	"github.com/learnhub/learnhub/src/internal/session"
)

type passwordAuth struct {
	fakeAuth
}

func (p *passwordAuth) IssueToken(ctx context.Context, username, password string) (*domain.TokenGrant, error) {
	if password != "pw" {
		return nil, apierr.Parse(400, []byte(`{"error_description":"Invalid credentials given."}`))
	}
	return &domain.TokenGrant{AccessToken: "tok-" + username}, nil
}

type echoProfiles struct{}

func (echoProfiles) UpdateCurrentUser(ctx context.Context, token string, u domain.ProfileUpdate) (*domain.UserProfile, error) {
	return &domain.UserProfile{ID: 77, FirstName: u.FirstName}, nil
}

func newAccount(t *testing.T) (*AccountService, *session.Store) {
	t.Helper()
	auth := &passwordAuth{}
	store := session.NewStore(memory.NewKVStore(), auth, logger.NewNop())
	return NewAccountService(auth, echoProfiles{}, store, logger.NewNop()), store
}

func TestAccount_PasswordLogin(t *testing.T) {
	svc, store := newAccount(t)
	ctx := context.Background()

	_, err := svc.PasswordLogin(ctx, "ada", "wrong")
	require.Error(t, err)
	assert.Equal(t, session.StatusRestoring, store.Status())

	user, err := svc.PasswordLogin(ctx, "ada", "pw")
	require.NoError(t, err)
	assert.Equal(t, int64(77), user.ID)
	tok, _ := store.Token()
	assert.Equal(t, "tok-ada", tok)
	assert.Equal(t, session.StatusAuthenticated, store.Status())
}

func TestAccount_UpdateProfile(t *testing.T) {
	svc, store := newAccount(t)
	ctx := context.Background()

	_, err := svc.UpdateProfile(ctx, domain.ProfileUpdate{FirstName: "Ada"})
	assert.ErrorIs(t, err, apierr.ErrUnauthenticated)

	_, err = svc.PasswordLogin(ctx, "ada", "pw")
	require.NoError(t, err)
	_, err = svc.UpdateProfile(ctx, domain.ProfileUpdate{FirstName: "Ada"})
	require.NoError(t, err)
	assert.Equal(t, "Ada", store.State().User.FirstName)

	require.NoError(t, svc.Logout(ctx))
	assert.Equal(t, session.StatusAnonymous, store.Status())
}
