package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/learnhub/learnhub/src/internal/ports"
	goredis "github.com/redis/go-redis/v9"
)

// RedisKVStore keeps client slots as plain string keys under a prefix.
type RedisKVStore struct {
	client *goredis.Client
	prefix string
}

// NewKVStore connects using a redis:// URL and pings with a short timeout.
func NewKVStore(ctx context.Context, url, prefix string) (*RedisKVStore, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := goredis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return NewKVStoreWithClient(client, prefix), nil
}

func NewKVStoreWithClient(client *goredis.Client, prefix string) *RedisKVStore {
	if prefix == "" {
		prefix = "learnhub"
	}
	return &RedisKVStore{client: client, prefix: prefix}
}

func (s *RedisKVStore) key(k string) string {
	return s.prefix + ":" + k
}

func (s *RedisKVStore) Get(ctx context.Context, key string) (string, error) {
	v, err := s.client.Get(ctx, s.key(key)).Result()
	if errors.Is(err, goredis.Nil) {
		return "", ports.ErrKeyNotFound
	}
	if err != nil {
		return "", err
	}
	return v, nil
}

func (s *RedisKVStore) Set(ctx context.Context, key, value string) error {
	return s.client.Set(ctx, s.key(key), value, 0).Err()
}

func (s *RedisKVStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.key(key)).Err()
}

func (s *RedisKVStore) Close() error {
	return s.client.Close()
}
