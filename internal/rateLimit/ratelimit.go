package rateLimit

import (
	"context"
	"time"

	redisadapter "github.com/robertarktes/rail-seat-booking/internal/adapters/redis"
)

// RateLimiter is a fixed-window counter per key.
type RateLimiter struct {
	redis *redisadapter.Cache
}

func NewRateLimiter(redis *redisadapter.Cache) *RateLimiter {
	return &RateLimiter{redis: redis}
}

func (rl *RateLimiter) Allow(ctx context.Context, key string, rate int, period time.Duration) (bool, error) {
	fullKey := "rl:" + key

	pipe := rl.redis.Client().TxPipeline()
	incr := pipe.Incr(ctx, fullKey)
	pipe.ExpireNX(ctx, fullKey, period)

	_, err := pipe.Exec(ctx)
	if err != nil {
		return false, err
	}

	return incr.Val() <= int64(rate), nil
}
