package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jonwraymond/aicache/config"
)

// RedisBackend stores entries in a shared Redis instance.
type RedisBackend struct {
	client *redis.Client
}

// NewRedisBackend creates a backend from the given Redis settings.
func NewRedisBackend(cfg config.RedisConfig) *RedisBackend {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &RedisBackend{client: rdb}
}

// NewRedisBackendFromClient wraps an existing client, e.g. one shared
// with the rest of the process.
func NewRedisBackendFromClient(client *redis.Client) *RedisBackend {
	return &RedisBackend{client: client}
}

// Get retrieves a value. A redis.Nil reply is a plain miss; any other
// error is a backend failure the caller must fail open on.
func (b *RedisBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := b.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return data, true, nil
}

// Set stores a value with the given TTL.
func (b *RedisBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return b.client.Set(ctx, key, value, ttl).Err()
}

// Delete removes a value. Idempotent - no error on miss.
func (b *RedisBackend) Delete(ctx context.Context, key string) error {
	return b.client.Del(ctx, key).Err()
}

// Ping checks the connection.
func (b *RedisBackend) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}

// Close releases the underlying client.
func (b *RedisBackend) Close() error {
	return b.client.Close()
}

// Ensure RedisBackend implements Backend
var _ Backend = (*RedisBackend)(nil)
