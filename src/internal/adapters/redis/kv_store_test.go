package redis

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/learnhub/learnhub/src/internal/adapters/storagetest"
)

// Set LEARNHUB_TEST_REDIS_URL (for example redis://localhost:6379/0) to run
// against a real server.
func TestRedisKVStore(t *testing.T) {
	url := os.Getenv("LEARNHUB_TEST_REDIS_URL")
	if url == "" {
		t.Skip("LEARNHUB_TEST_REDIS_URL not set")
	}
	store, err := NewKVStore(context.Background(), url, "learnhub-test-"+uuid.NewString())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	storagetest.Run(t, store)
}

func TestNewKVStore_BadURL(t *testing.T) {
	_, err := NewKVStore(context.Background(), "not-a-redis-url", "x")
	require.Error(t, err)
}
