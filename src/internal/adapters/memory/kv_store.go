package memory

import (
	"context"
	"sync"

	"github.com/learnhub/learnhub/src/internal/ports"
)

type InMemoryKVStore struct {
	items map[string]string
	mu    sync.RWMutex
}

func NewKVStore() *InMemoryKVStore {
	return &InMemoryKVStore{
		items: make(map[string]string),
	}
}

func (s *InMemoryKVStore) Get(ctx context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.items[key]
	if !ok {
		return "", ports.ErrKeyNotFound
	}
	return v, nil
}

func (s *InMemoryKVStore) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items[key] = value
	return nil
}

func (s *InMemoryKVStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.items, key)
	return nil
}

func (s *InMemoryKVStore) Close() error { return nil }

// Snapshot copies the current contents. Used by tests.
func (s *InMemoryKVStore) Snapshot() map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]string, len(s.items))
	for k, v := range s.items {
		out[k] = v
	}
	return out
}
