package querycache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counter(value string, calls *atomic.Int32) func(context.Context) (string, error) {
	return func(ctx context.Context) (string, error) {
		calls.Add(1)
		return value, nil
	}
}

func TestCache_HitAfterFirstFetch(t *testing.T) {
	c := New[string](0, nil)
	var calls atomic.Int32

	for i := 0; i < 3; i++ {
		v, err := c.Get(context.Background(), "k", counter("v", &calls))
		require.NoError(t, err)
		assert.Equal(t, "v", v)
	}
	assert.Equal(t, int32(1), calls.Load())
}

func TestCache_DeduplicatesConcurrentFetches(t *testing.T) {
	c := New[string](0, nil)
	var calls atomic.Int32
	release := make(chan struct{})

	fetch := func(ctx context.Context) (string, error) {
		calls.Add(1)
		<-release
		return "shared", nil
	}

	var wg sync.WaitGroup
	results := make([]string, 5)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := c.Get(context.Background(), "k", fetch)
			assert.NoError(t, err)
			results[i] = v
		}(i)
	}

	// Give every goroutine a chance to join the flight before releasing it.
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, v := range results {
		assert.Equal(t, "shared", v)
	}
}

func TestCache_InvalidateForcesRefetch(t *testing.T) {
	c := New[string](0, nil)
	var calls atomic.Int32

	_, err := c.Get(context.Background(), "lesson-progress:1", counter("old", &calls))
	require.NoError(t, err)

	c.Invalidate("lesson-progress:1")
	_, ok := c.Peek("lesson-progress:1")
	assert.False(t, ok)

	v, err := c.Get(context.Background(), "lesson-progress:1", counter("new", &calls))
	require.NoError(t, err)
	assert.Equal(t, "new", v)
	assert.Equal(t, int32(2), calls.Load())
}

func TestCache_InFlightFetchDoesNotRepopulateAfterInvalidate(t *testing.T) {
	c := New[string](0, nil)
	started := make(chan struct{})
	release := make(chan struct{})

	done := make(chan string)
	go func() {
		v, _ := c.Get(context.Background(), "k", func(ctx context.Context) (string, error) {
			close(started)
			<-release
			return "before-write", nil
		})
		done <- v
	}()

	<-started
	c.Invalidate("k")
	close(release)
	assert.Equal(t, "before-write", <-done, "the original caller still gets its answer")

	_, ok := c.Peek("k")
	assert.False(t, ok, "stale flight must not be cached")

	var calls atomic.Int32
	v, err := c.Get(context.Background(), "k", counter("after-write", &calls))
	require.NoError(t, err)
	assert.Equal(t, "after-write", v)
	assert.Equal(t, int32(1), calls.Load())
}

func TestCache_ClearFencesUnseenFlights(t *testing.T) {
	c := New[string](0, nil)
	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})

	go func() {
		defer close(done)
		_, _ = c.Get(context.Background(), "k", func(ctx context.Context) (string, error) {
			close(started)
			<-release
			return "previous user", nil
		})
	}()

	<-started
	c.Clear()
	close(release)
	<-done

	_, ok := c.Peek("k")
	assert.False(t, ok)
}

func TestCache_ErrorsAreNotCached(t *testing.T) {
	c := New[string](0, nil)
	boom := errors.New("boom")

	_, err := c.Get(context.Background(), "k", func(ctx context.Context) (string, error) {
		return "", boom
	})
	assert.ErrorIs(t, err, boom)

	var calls atomic.Int32
	v, err := c.Get(context.Background(), "k", counter("ok", &calls))
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
}

func TestCache_StaleTime(t *testing.T) {
	c := New[string](time.Minute, nil)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	var calls atomic.Int32

	_, _ = c.Get(context.Background(), "k", counter("v", &calls))
	now = now.Add(30 * time.Second)
	_, _ = c.Get(context.Background(), "k", counter("v", &calls))
	assert.Equal(t, int32(1), calls.Load())

	now = now.Add(31 * time.Second)
	_, _ = c.Get(context.Background(), "k", counter("v", &calls))
	assert.Equal(t, int32(2), calls.Load())
}

func TestCache_InvalidatePrefix(t *testing.T) {
	c := New[string](0, nil)
	var calls atomic.Int32
	_, _ = c.Get(context.Background(), "lesson-progress:1", counter("a", &calls))
	_, _ = c.Get(context.Background(), "lesson-progress:2", counter("b", &calls))
	_, _ = c.Get(context.Background(), "course:1", counter("c", &calls))

	c.InvalidatePrefix("lesson-progress:")

	_, ok := c.Peek("lesson-progress:1")
	assert.False(t, ok)
	_, ok = c.Peek("lesson-progress:2")
	assert.False(t, ok)
	_, ok = c.Peek("course:1")
	assert.True(t, ok)
}

func TestCache_CallerCancellation(t *testing.T) {
	c := New[string](0, nil)
	release := make(chan struct{})
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Get(ctx, "k", func(ctx context.Context) (string, error) {
		<-release
		return "late", nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}
