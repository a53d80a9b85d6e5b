package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter counts requests with INCR and starts the window with EXPIRE
// on the first hit, so every instance sharing the Redis server shares the
// same counters.
type RedisLimiter struct {
	client    redis.Cmdable
	keyPrefix string
	limit     int
	length    time.Duration
	now       func() time.Time
}

// NewRedisLimiter allows limit requests per key in each window of length.
func NewRedisLimiter(client redis.Cmdable, keyPrefix string, limit int, length time.Duration) *RedisLimiter {
	return &RedisLimiter{
		client:    client,
		keyPrefix: keyPrefix,
		limit:     limit,
		length:    length,
		now:       time.Now,
	}
}

var _ Limiter = (*RedisLimiter)(nil)

// Allow implements Limiter.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (Result, error) {
	redisKey := l.keyPrefix + key

	count, err := l.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return Result{}, fmt.Errorf("rate limit increment failed: %w", err)
	}
	if count == 1 {
		if err := l.client.Expire(ctx, redisKey, l.length).Err(); err != nil {
			return Result{}, fmt.Errorf("rate limit expire failed: %w", err)
		}
	}

	ttl, err := l.client.PTTL(ctx, redisKey).Result()
	if err != nil {
		return Result{}, fmt.Errorf("rate limit ttl failed: %w", err)
	}
	if ttl < 0 {
		// The key lost its expiry, e.g. a crash between INCR and EXPIRE.
		if err := l.client.Expire(ctx, redisKey, l.length).Err(); err != nil {
			return Result{}, fmt.Errorf("rate limit expire failed: %w", err)
		}
		ttl = l.length
	}

	res := Result{
		Limit:   l.limit,
		ResetAt: l.now().Add(ttl),
	}
	if count > int64(l.limit) {
		return res, nil
	}
	res.Allowed = true
	res.Remaining = l.limit - int(count)
	return res, nil
}
