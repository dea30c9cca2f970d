package redis

import (
	"context"
	"fmt"
	"time"
)

// RateLimiter is the shared-state variant of the sender limiter, for deployments running
// more than one bot process. The first INCR of a window sets its expiry, so the window is
// fixed from the sender's first event, like the in-memory limiter. A key left without an
// expiry (the first EXPIRE failed) gets one on the next throttled event, so a sender is
// never locked out for longer than one window.
type RateLimiter struct {
	client RedisClient
	window time.Duration
	limit  int
}

func NewRateLimiter(client RedisClient, window time.Duration, limit int) *RateLimiter {
	return &RateLimiter{client: client, window: window, limit: limit}
}

func (r *RateLimiter) Allow(ctx context.Context, sender string) (bool, error) {
	key := SenderKey(sender)
	count, err := r.client.Incr(ctx, key)
	if err != nil {
		return false, err
	}

	if count == 1 {
		err = r.client.Expire(ctx, key, r.window)
		if err != nil {
			return false, err
		}
	}

	if count > int64(r.limit) {
		ttl, err := r.client.TTL(ctx, key)
		if err != nil {
			return false, err
		}
		if ttl == -1 {
			if err := r.client.Expire(ctx, key, r.window); err != nil {
				return false, err
			}
		}
		return false, nil
	}

	return true, nil
}

func SenderKey(sender string) string {
	return fmt.Sprintf("rate_limit:%s", sender)
}
