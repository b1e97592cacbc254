package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tusharbhayani/SigText/internal/model"
)

const (
	orgCacheTTL    = 5 * time.Minute
	orgCachePrefix = "sigtext:org:"
	ratePrefix     = "sigtext:rate:"
)

// Cache is the Redis layer: it memoizes wallet to organization lookups
// and enforces a fixed-window rate limit per sender address.
type Cache struct {
	rdb    *redis.Client
	limit  int
	window time.Duration
	logger *slog.Logger
}

// NewCache connects to Redis. limit <= 0 disables rate limiting.
func NewCache(addr string, limit int, window time.Duration, logger *slog.Logger) (*Cache, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis at %s: %w", addr, err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	if window <= 0 {
		window = time.Minute
	}
	return &Cache{rdb: rdb, limit: limit, window: window, logger: logger}, nil
}

// Close releases the Redis connection.
func (c *Cache) Close() error {
	return c.rdb.Close()
}

// Organization returns a cached lookup result. Cache failures are
// treated as misses.
func (c *Cache) Organization(ctx context.Context, wallet string) (*model.Organization, bool) {
	raw, err := c.rdb.Get(ctx, orgCachePrefix+wallet).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("redis get failed", "error", err)
		}
		return nil, false
	}
	var org model.Organization
	if err := json.Unmarshal(raw, &org); err != nil {
		return nil, false
	}
	return &org, true
}

// StoreOrganization caches a lookup result for a short TTL.
func (c *Cache) StoreOrganization(ctx context.Context, wallet string, org *model.Organization) {
	raw, err := json.Marshal(org)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, orgCachePrefix+wallet, raw, orgCacheTTL).Err(); err != nil {
		c.logger.Warn("redis set failed", "error", err)
	}
}

// Allow reports whether a sender is within its verification rate limit.
// Redis failures allow the request rather than blocking verification.
func (c *Cache) Allow(ctx context.Context, sender string) bool {
	if c.limit <= 0 {
		return true
	}
	key := ratePrefix + sender
	n, err := c.rdb.Incr(ctx, key).Result()
	if err != nil {
		c.logger.Warn("redis incr failed", "error", err)
		return true
	}
	if n == 1 {
		c.rdb.Expire(ctx, key, c.window)
	}
	return n <= int64(c.limit)
}
