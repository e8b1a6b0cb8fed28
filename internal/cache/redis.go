package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// RedisCache shares cached responses between server instances. Redis
// enforces the TTL, so Sweep has nothing to do.
type RedisCache struct {
	rdb    *goredis.Client
	prefix string
	ttl    time.Duration
	logger *slog.Logger
}

// RedisConfig configures a RedisCache.
type RedisConfig struct {
	URL    string // redis://host:port/db
	Prefix string
	TTL    time.Duration
	Logger *slog.Logger
}

// NewRedisCache connects to Redis and verifies the connection.
func NewRedisCache(ctx context.Context, cfg RedisConfig) (*RedisCache, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("missing redis url")
	}
	opts, err := goredis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	opts.DialTimeout = 5 * time.Second

	rdb := goredis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return newRedisCache(rdb, cfg), nil
}

func newRedisCache(rdb *goredis.Client, cfg RedisConfig) *RedisCache {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "promptiverse:"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &RedisCache{
		rdb:    rdb,
		prefix: cfg.Prefix,
		ttl:    cfg.TTL,
		logger: cfg.Logger.With("component", "redis_cache"),
	}
}

// WithPrefix returns a cache sharing the connection under another key prefix.
func (c *RedisCache) WithPrefix(prefix string) *RedisCache {
	clone := *c
	clone.prefix = c.prefix + prefix
	return &clone
}

// Get returns the payload for key. Redis errors read as misses.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	val, err := c.rdb.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, goredis.Nil) {
			c.logger.Warn("redis get failed", "error", err)
		}
		return nil, false
	}
	return val, true
}

// Set stores payload with the cache TTL.
func (c *RedisCache) Set(ctx context.Context, key string, payload []byte) {
	if err := c.rdb.Set(ctx, c.prefix+key, payload, c.ttl).Err(); err != nil {
		c.logger.Warn("redis set failed", "error", err)
	}
}

// Sweep is a no-op; keys expire server-side.
func (c *RedisCache) Sweep(context.Context) int {
	return 0
}

// Close closes the underlying connection.
func (c *RedisCache) Close() error {
	return c.rdb.Close()
}

var _ Cache = (*RedisCache)(nil)
