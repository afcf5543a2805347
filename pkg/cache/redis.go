package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrCacheMiss indicates the requested key was not found in the tier.
var ErrCacheMiss = errors.New("cache miss")

// RedisStore is the optional shared cache tier. It carries classified
// responses across runs and processes with the same TTL discipline as
// the memory tier.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore creates a Redis-backed cache tier.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if client == nil {
		panic("redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{
		client: client,
		ttl:    ttl,
	}
}

// Get retrieves the cached payload for an identifier.
// Returns ErrCacheMiss when the key does not exist.
func (r *RedisStore) Get(ctx context.Context, identifier string) ([]byte, error) {
	data, err := r.client.Get(ctx, Key(identifier)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrCacheMiss
		}
		CacheErrors.WithLabelValues("get").Inc()
		return nil, fmt.Errorf("redis get: %w", err)
	}

	CacheHits.WithLabelValues("redis").Inc()
	return data, nil
}

// Put stores a payload with the tier's TTL. Redis expires the key on its
// own; there is no sweep for this tier.
func (r *RedisStore) Put(ctx context.Context, identifier string, data []byte) error {
	if err := r.client.Set(ctx, Key(identifier), data, r.ttl).Err(); err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Delete removes a cached payload.
func (r *RedisStore) Delete(ctx context.Context, identifier string) error {
	if err := r.client.Del(ctx, Key(identifier)).Err(); err != nil {
		CacheErrors.WithLabelValues("delete").Inc()
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
