// Package cache provides the Redis-backed query cache and the daily
// invalidation gate in front of it.
//
// The cache is strictly best-effort: if Redis is unreachable at startup or
// at any later point, every operation degrades to a no-op and the service
// keeps answering from the store.
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/avolkov/spimexfeed/internal/logger"
)

// Backend is the key-value surface the query layer and the invalidation
// gate rely on. Get reports a miss (not an error) for absent keys and for
// an unavailable backend; Set and Flush report whether they took effect.
type Backend interface {
	Enabled() bool
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
	Flush(ctx context.Context) bool
}

// RedisCache implements Backend on a Redis database. A dedicated database
// is expected: the daily invalidation flushes it entirely.
type RedisCache struct {
	client *redis.Client
}

// NewRedis connects to Redis and verifies the connection with a ping.
// On failure it logs a warning and returns a disabled cache instead of an
// error, so callers never have to special-case a missing backend.
func NewRedis(addr, password string, db int) *RedisCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		lg := logger.With("cache")
		lg.Warn().Str("addr", addr).Err(err).Msg("redis unreachable, caching disabled")
		_ = client.Close()
		return &RedisCache{}
	}
	return &RedisCache{client: client}
}

// NewRedisFromClient wraps an existing client; used by tests.
func NewRedisFromClient(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

// Enabled reports whether a backend connection exists.
func (c *RedisCache) Enabled() bool {
	return c != nil && c.client != nil
}

// Get returns the cached value and whether it was a hit.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	if !c.Enabled() {
		return nil, false
	}
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			lg := logger.With("cache")
			lg.Warn().Str("key", key).Err(err).Msg("cache get failed")
		}
		return nil, false
	}
	return raw, true
}

// Set stores a value with the given TTL; ttl <= 0 stores without expiry.
func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if !c.Enabled() {
		return
	}
	if ttl < 0 {
		ttl = 0
	}
	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		lg := logger.With("cache")
		lg.Warn().Str("key", key).Err(err).Msg("cache set failed")
	}
}

// Flush drops every key in the cache database and reports success.
func (c *RedisCache) Flush(ctx context.Context) bool {
	if !c.Enabled() {
		return false
	}
	if err := c.client.FlushDB(ctx).Err(); err != nil {
		lg := logger.With("cache")
		lg.Warn().Err(err).Msg("cache flush failed")
		return false
	}
	return true
}

// Close releases the underlying connection.
func (c *RedisCache) Close() error {
	if !c.Enabled() {
		return nil
	}
	return c.client.Close()
}
