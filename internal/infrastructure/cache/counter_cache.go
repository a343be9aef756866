package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Dashboard counter keys
const (
	KeyPendingDisputes = "dashboard:pending_disputes"
	KeyPendingRefunds  = "dashboard:pending_refunds"
)

const defaultCounterTTL = 30 * time.Second

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// NewRedisClient creates a Redis client and verifies connectivity
func NewRedisClient(cfg RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return client, nil
}

// CountLoader loads a counter value from the source of truth
type CountLoader func(ctx context.Context) (int64, error)

// CounterCache is a read-through Redis cache for dashboard counters.
// Redis failures degrade to loading from the repository directly, so
// the dashboard keeps working when Redis is down.
type CounterCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// CounterCacheOption is a functional option for configuring the cache
type CounterCacheOption func(*CounterCache)

// WithCounterTTL sets the cached counter lifetime
func WithCounterTTL(ttl time.Duration) CounterCacheOption {
	return func(c *CounterCache) {
		c.ttl = ttl
	}
}

// NewCounterCache creates a counter cache backed by an existing Redis client.
// The caller retains ownership of the client.
func NewCounterCache(client *redis.Client, logger *zap.Logger, opts ...CounterCacheOption) *CounterCache {
	cache := &CounterCache{
		client: client,
		ttl:    defaultCounterTTL,
		logger: logger,
	}
	for _, opt := range opts {
		opt(cache)
	}
	return cache
}

// Get returns the cached counter value, loading and caching it on a miss
func (c *CounterCache) Get(ctx context.Context, key string, load CountLoader) (int64, error) {
	val, err := c.client.Get(ctx, key).Result()
	if err == nil {
		count, parseErr := strconv.ParseInt(val, 10, 64)
		if parseErr == nil {
			return count, nil
		}
		c.logger.Warn("corrupt counter value in cache, reloading",
			zap.String("key", key),
			zap.String("value", val),
		)
	} else if err != redis.Nil {
		c.logger.Warn("counter cache read failed, falling back to repository",
			zap.String("key", key),
			zap.Error(err),
		)
	}

	count, err := load(ctx)
	if err != nil {
		return 0, err
	}

	if setErr := c.client.Set(ctx, key, strconv.FormatInt(count, 10), c.ttl).Err(); setErr != nil {
		c.logger.Warn("counter cache write failed",
			zap.String("key", key),
			zap.Error(setErr),
		)
	}

	return count, nil
}

// Invalidate drops the given counter keys so the next read reloads them
func (c *CounterCache) Invalidate(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		return
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.logger.Warn("counter cache invalidation failed",
			zap.Strings("keys", keys),
			zap.Error(err),
		)
	}
}

// Close closes the underlying Redis client
func (c *CounterCache) Close() error {
	return c.client.Close()
}
