package middleware

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// SubmissionWindow is the fixed window for journal submissions.
	SubmissionWindow = time.Hour
	// SubmissionKeyPrefix is the Redis key prefix for per-user submission counters.
	SubmissionKeyPrefix = "ratelimit:journal:"
)

// Counter increments a windowed counter and returns the new value.
type Counter interface {
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
}

// redisCounterCmds is the part of the Redis client RedisCounter uses.
type redisCounterCmds interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
}

// RedisCounter is a fixed-window counter. The TTL is set by the request that opens the window.
type RedisCounter struct {
	rdb redisCounterCmds
}

func NewRedisCounter(rdb *redis.Client) *RedisCounter {
	return &RedisCounter{rdb: rdb}
}

func (c *RedisCounter) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	count, err := c.rdb.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	// Plain EXPIRE works on every Redis version, unlike EXPIRE NX (7.0+).
	if count == 1 {
		if err := c.rdb.Expire(ctx, key, window).Err(); err != nil {
			return 0, err
		}
	}
	return count, nil
}

// SubmissionLimit caps journal submissions per authenticated user per hour.
// It must run after RequireIdentity. A limit <= 0 disables it, and Redis errors fail open.
func SubmissionLimit(counter Counter, limit int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if counter == nil || limit <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := IdentityFrom(r.Context())
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			count, err := counter.Incr(r.Context(), SubmissionKeyPrefix+identity.ID, SubmissionWindow)
			if err != nil {
				log.Printf("[SubmissionLimit] Counter failed for user %s, allowing request: %v", identity.ID, err)
				next.ServeHTTP(w, r)
				return
			}

			remaining := int64(limit) - count
			if remaining < 0 {
				remaining = 0
			}
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

			if count > int64(limit) {
				w.Header().Set("Retry-After", strconv.Itoa(int(SubmissionWindow.Seconds())))
				writeError(w, http.StatusTooManyRequests, "Too many journal entries. Please try again later.")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
