package cache

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"grchub/internal/config"
	"grchub/pkg/logger"
)

// ErrMiss is returned when a key is absent from the cache
var ErrMiss = redis.Nil

// RedisCache wraps the Redis client with typed operations
type RedisCache struct {
	client    *redis.Client
	keyPrefix string
	logger    *logger.Logger
}

// NewRedis creates a new Redis client
func NewRedis(ctx context.Context, cfg config.RedisConfig, log *logger.Logger) (*RedisCache, error) {
	log = log.WithComponent("redis")
	log.Info().Str("host", cfg.Host).Int("port", cfg.Port).Msg("connecting to Redis")

	opts := &redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	}
	if cfg.TLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	log.Info().Msg("connected to Redis successfully")

	return &RedisCache{
		client:    client,
		keyPrefix: cfg.KeyPrefix,
		logger:    log,
	}, nil
}

// Close closes the Redis connection
func (c *RedisCache) Close() error {
	c.logger.Info().Msg("closing Redis connection")
	return c.client.Close()
}

// Ping checks the Redis connection
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// key prepends the namespace prefix to a key
func (c *RedisCache) key(k string) string {
	return c.keyPrefix + k
}

// Get retrieves a value from cache
func (c *RedisCache) Get(ctx context.Context, key string) (string, error) {
	return c.client.Get(ctx, c.key(key)).Result()
}

// GetJSON retrieves and unmarshals a JSON value from cache. Returns
// (false, nil) on a miss.
func (c *RedisCache) GetJSON(ctx context.Context, key string, dest any) (bool, error) {
	data, err := c.Get(ctx, key)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal([]byte(data), dest); err != nil {
		return false, err
	}
	return true, nil
}

// Set stores a value in cache with optional TTL
func (c *RedisCache) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	return c.client.Set(ctx, c.key(key), value, ttl).Err()
}

// SetJSON marshals and stores a value in cache
func (c *RedisCache) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}
	return c.Set(ctx, key, string(data), ttl)
}

// Delete removes keys from cache
func (c *RedisCache) Delete(ctx context.Context, keys ...string) error {
	prefixed := make([]string, len(keys))
	for i, k := range keys {
		prefixed[i] = c.key(k)
	}
	return c.client.Del(ctx, prefixed...).Err()
}

// Incr increments an integer value
func (c *RedisCache) Incr(ctx context.Context, key string) (int64, error) {
	return c.client.Incr(ctx, c.key(key)).Result()
}

// Expire sets a TTL on a key
func (c *RedisCache) Expire(ctx context.Context, key string, ttl time.Duration) error {
	return c.client.Expire(ctx, c.key(key), ttl).Err()
}

// AcquireLock attempts to acquire a distributed lock
func (c *RedisCache) AcquireLock(ctx context.Context, lockKey string, ttl time.Duration) (bool, error) {
	return c.client.SetNX(ctx, c.key("lock:"+lockKey), "locked", ttl).Result()
}

// RefreshLock extends the TTL of a held lock
func (c *RedisCache) RefreshLock(ctx context.Context, lockKey string, ttl time.Duration) error {
	return c.Expire(ctx, "lock:"+lockKey, ttl)
}

// ReleaseLock releases a distributed lock
func (c *RedisCache) ReleaseLock(ctx context.Context, lockKey string) error {
	return c.Delete(ctx, "lock:"+lockKey)
}

// CheckRateLimit applies a fixed-window counter for clientID. It returns
// whether the request is allowed, how many requests remain in the current
// window, and when the window resets.
func (c *RedisCache) CheckRateLimit(ctx context.Context, clientID string, limit int64, window time.Duration) (bool, int64, time.Time, error) {
	key := c.key("ratelimit:" + clientID)

	count, err := c.client.Incr(ctx, key).Result()
	if err != nil {
		return true, 0, time.Time{}, err
	}
	if count == 1 {
		if err := c.client.Expire(ctx, key, window).Err(); err != nil {
			return true, 0, time.Time{}, err
		}
	}

	ttl, err := c.client.TTL(ctx, key).Result()
	if err != nil || ttl < 0 {
		ttl = window
	}
	resetTime := time.Now().Add(ttl)

	remaining := limit - count
	if remaining < 0 {
		remaining = 0
	}
	return count <= limit, remaining, resetTime, nil
}
