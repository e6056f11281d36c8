// Package storagetest is a conformance suite for ports.KeyValueStore
// implementations.
package storagetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/learnhub/learnhub/src/internal/ports"
)

// Run exercises get/set/delete semantics against store.
func Run(t *testing.T, store ports.KeyValueStore) {
	t.Helper()
	ctx := context.Background()

	t.Run("missing key", func(t *testing.T) {
		_, err := store.Get(ctx, "absent")
		assert.ErrorIs(t, err, ports.ErrKeyNotFound)
	})

	t.Run("set then get", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "access_token", "tok-1"))
		v, err := store.Get(ctx, "access_token")
		require.NoError(t, err)
		assert.Equal(t, "tok-1", v)
	})

	t.Run("overwrite", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "auth-storage", `{"user":{"id":1}}`))
		require.NoError(t, store.Set(ctx, "auth-storage", `{"user":{"id":2}}`))
		v, err := store.Get(ctx, "auth-storage")
		require.NoError(t, err)
		assert.Equal(t, `{"user":{"id":2}}`, v)
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "gone", "x"))
		require.NoError(t, store.Delete(ctx, "gone"))
		require.NoError(t, store.Delete(ctx, "gone"))
		_, err := store.Get(ctx, "gone")
		assert.ErrorIs(t, err, ports.ErrKeyNotFound)
	})

	t.Run("keys are independent", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, "a", "1"))
		require.NoError(t, store.Set(ctx, "b", "2"))
		require.NoError(t, store.Delete(ctx, "a"))
		v, err := store.Get(ctx, "b")
		require.NoError(t, err)
		assert.Equal(t, "2", v)
	})
}
