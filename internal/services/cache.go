package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// CacheKeyPrefix is the Redis key prefix for cached data
	CacheKeyPrefix = "cache:"
	// DefaultContextTTL is used when no TTL is configured
	DefaultContextTTL = 10 * time.Minute
	MinContextTTL     = time.Minute
	MaxContextTTL     = 12 * time.Hour
)

// ContextCache stores prompt context bundles per user.
type ContextCache interface {
	Get(ctx context.Context, userID string) (*ContextBundle, bool, error)
	Set(ctx context.Context, userID string, bundle ContextBundle) error
	Invalidate(ctx context.Context, userID string) error
}

// CacheKey generates a cache key for a specific resource
func CacheKey(resource string, identifier string) string {
	return fmt.Sprintf("%s%s:%s", CacheKeyPrefix, resource, identifier)
}

// RedisContextCache keeps bundles as JSON under cache:context:<userId>.
type RedisContextCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisContextCache returns a cache with ttl clamped to [MinContextTTL, MaxContextTTL].
func NewRedisContextCache(rdb *redis.Client, ttl time.Duration) *RedisContextCache {
	if ttl <= 0 {
		ttl = DefaultContextTTL
	}
	if ttl < MinContextTTL {
		ttl = MinContextTTL
	}
	if ttl > MaxContextTTL {
		ttl = MaxContextTTL
	}
	return &RedisContextCache{rdb: rdb, ttl: ttl}
}

func (c *RedisContextCache) Get(ctx context.Context, userID string) (*ContextBundle, bool, error) {
	val, err := c.rdb.Get(ctx, CacheKey("context", userID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var b ContextBundle
	if err := json.Unmarshal([]byte(val), &b); err != nil {
		return nil, false, err
	}
	return &b, true, nil
}

func (c *RedisContextCache) Set(ctx context.Context, userID string, bundle ContextBundle) error {
	jsonData, err := json.Marshal(bundle)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, CacheKey("context", userID), jsonData, c.ttl).Err()
}

func (c *RedisContextCache) Invalidate(ctx context.Context, userID string) error {
	return c.rdb.Del(ctx, CacheKey("context", userID)).Err()
}

// NopContextCache never stores anything.
type NopContextCache struct{}

func (NopContextCache) Get(context.Context, string) (*ContextBundle, bool, error) {
	return nil, false, nil
}
func (NopContextCache) Set(context.Context, string, ContextBundle) error { return nil }
func (NopContextCache) Invalidate(context.Context, string) error         { return nil }
