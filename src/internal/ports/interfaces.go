package ports

import (
	"context"
	"errors"

	"github.com/learnhub/learnhub/src/internal/domain"
)

// ErrKeyNotFound is returned by KeyValueStore.Get for a missing key.
var ErrKeyNotFound = errors.New("key not found")

// KeyValueStore is durable client storage: a handful of named string slots.
type KeyValueStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// TokenSource hands out the bearer token for authenticated requests.
type TokenSource interface {
	Token() (string, bool)
}

// CurrentUserFetcher resolves "who am I" for an explicit token.
type CurrentUserFetcher interface {
	CurrentUser(ctx context.Context, token string) (*domain.UserProfile, error)
}

// ProgressAPI is the backend surface the progress client needs.
type ProgressAPI interface {
	LessonProgressByCourse(ctx context.Context, token string, courseID int64) (*domain.CourseLearnData, error)
	UpdateLessonProgress(ctx context.Context, token string, update domain.ProgressUpdate) error
}

// AuthAPI covers credential exchange.
type AuthAPI interface {
	CurrentUserFetcher
	IssueToken(ctx context.Context, username, password string) (*domain.TokenGrant, error)
	ExchangeFederatedToken(ctx context.Context, idToken string) (*domain.TokenGrant, error)
}
