package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"tasklist/internal/config"
	"tasklist/pkg/logger"
)

const pageKeyPrefix = "page:"

var (
	client *redis.Client
	once   sync.Once
)

// Client returns the global Redis client (initialized on first use).
func Client(ctx context.Context) *redis.Client {
	once.Do(func() {
		cfg := config.Get()
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Error(ctx, "Invalid REDIS_URL", "error", err, "url", cfg.RedisURL)
			return
		}
		opts.PoolSize = cfg.RedisPoolSize
		c := redis.NewClient(opts)
		if err := c.Ping(ctx).Err(); err != nil {
			logger.Error(ctx, "Redis ping failed", "error", err)
			return
		}
		client = c
		logger.Info(ctx, "Redis client initialized", "pool_size", cfg.RedisPoolSize)
	})
	return client
}

// PageCache stores rendered page payloads keyed by path. A nil client turns
// every call into a miss / no-op so the store stays the source of truth.
type PageCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewPageCache returns a PageCache over rdb.
func NewPageCache(rdb *redis.Client, ttl time.Duration) *PageCache {
	return &PageCache{rdb: rdb, ttl: ttl}
}

// Key returns the Redis key for path.
func Key(path string) string {
	return pageKeyPrefix + path
}

// Get returns the cached payload for path. Returns (nil, false) on miss or error.
func (c *PageCache) Get(ctx context.Context, path string) ([]byte, bool) {
	if c == nil || c.rdb == nil {
		return nil, false
	}
	b, err := c.rdb.Get(ctx, Key(path)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		logger.Debug(ctx, "Redis get page failed", "error", err, "path", path)
		return nil, false
	}
	return b, true
}

// Set writes the payload for path with the configured TTL.
func (c *PageCache) Set(ctx context.Context, path string, b []byte) {
	if c == nil || c.rdb == nil {
		return
	}
	if err := c.rdb.Set(ctx, Key(path), b, c.ttl).Err(); err != nil {
		logger.Debug(ctx, "Redis set page failed", "error", err, "path", path)
	}
}

// Invalidate deletes the payload for path so the next read goes to the store.
func (c *PageCache) Invalidate(ctx context.Context, path string) error {
	if c == nil || c.rdb == nil {
		return nil
	}
	if err := c.rdb.Del(ctx, Key(path)).Err(); err != nil {
		logger.Debug(ctx, "Redis invalidate page failed", "error", err, "path", path)
		return err
	}
	return nil
}
