// Package querycache is a small read-through cache for backend queries.
//
// Concurrent reads of the same key share one fetch. Invalidate drops the
// entry and bumps the key's generation; a fetch that started under an older
// generation still answers its own callers but never repopulates the cache,
// so a read issued after an invalidation always reaches the network.
package querycache

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/learnhub/learnhub/src/internal/observability"
)

type entry[V any] struct {
	value     V
	fetchedAt time.Time
}

type Cache[V any] struct {
	mu        sync.Mutex
	entries   map[string]entry[V]
	gens      map[string]uint64
	group     singleflight.Group
	staleTime time.Duration
	now       func() time.Time
	metrics   *observability.Metrics
}

// New creates a cache. Entries older than staleTime are refetched; a
// staleTime of zero keeps entries until they are invalidated.
func New[V any](staleTime time.Duration, metrics *observability.Metrics) *Cache[V] {
	return &Cache[V]{
		entries:   make(map[string]entry[V]),
		gens:      make(map[string]uint64),
		staleTime: staleTime,
		now:       time.Now,
		metrics:   metrics,
	}
}

// Get returns the cached value for key or runs fetch. The shared fetch is
// detached from the caller's cancellation; each caller still stops waiting
// when its own ctx is done.
func (c *Cache[V]) Get(ctx context.Context, key string, fetch func(context.Context) (V, error)) (V, error) {
	var zero V

	c.mu.Lock()
	if e, ok := c.entries[key]; ok && c.fresh(e) {
		c.mu.Unlock()
		c.metrics.CacheLookup("hit")
		return e.value, nil
	}
	gen, seen := c.gens[key]
	if !seen {
		// Register the key so Clear and InvalidatePrefix fence this flight.
		c.gens[key] = 0
	}
	c.mu.Unlock()

	flightKey := key + "#" + strconv.FormatUint(gen, 10)
	ch := c.group.DoChan(flightKey, func() (interface{}, error) {
		v, err := fetch(context.WithoutCancel(ctx))
		if err != nil {
			return v, err
		}
		c.store(key, gen, v)
		return v, nil
	})

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Shared {
			c.metrics.CacheLookup("shared")
		} else {
			c.metrics.CacheLookup("miss")
		}
		if res.Err != nil {
			return zero, res.Err
		}
		v, _ := res.Val.(V)
		return v, nil
	}
}

// Peek returns a fresh cached value without fetching.
func (c *Cache[V]) Peek(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok || !c.fresh(e) {
		var zero V
		return zero, false
	}
	return e.value, true
}

// Invalidate discards key so the next Get goes to the network.
func (c *Cache[V]) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, key)
	c.gens[key]++
}

// InvalidatePrefix discards every key starting with prefix.
func (c *Cache[V]) InvalidatePrefix(prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for k := range c.entries {
		if strings.HasPrefix(k, prefix) {
			delete(c.entries, k)
		}
	}
	for k := range c.gens {
		if strings.HasPrefix(k, prefix) {
			c.gens[k]++
		}
	}
}

// Clear drops everything, e.g. when the signed-in user changes.
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]entry[V])
	for k := range c.gens {
		c.gens[k]++
	}
}

func (c *Cache[V]) store(key string, gen uint64, v V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.gens[key] != gen {
		return
	}
	c.entries[key] = entry[V]{value: v, fetchedAt: c.now()}
}

func (c *Cache[V]) fresh(e entry[V]) bool {
	return c.staleTime <= 0 || c.now().Sub(e.fetchedAt) < c.staleTime
}
