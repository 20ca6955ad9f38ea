package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "inbox:ratelimit:"

// Redis is a sliding-window limiter over a sorted set per key: members
// are request timestamps, trimmed to the window on every call. Shared
// across instances.
type Redis struct {
	client *redis.Client
	now    func() time.Time
}

// NewRedis creates a Redis-backed limiter.
func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client, now: time.Now}
}

// Allow trims the window, counts remaining entries, and records this
// request if it fits. The trim, count, add, and expire run in one
// pipeline round trip.
func (r *Redis) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if limit <= 0 {
		return true, nil
	}

	now := r.now()
	redisKey := redisKeyPrefix + key
	cutoff := now.Add(-window).UnixNano()

	pipe := r.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, redisKey, "0", fmt.Sprintf("%d", cutoff))
	countCmd := pipe.ZCard(ctx, redisKey)
	pipe.ZAdd(ctx, redisKey, redis.Z{
		Score:  float64(now.UnixNano()),
		Member: fmt.Sprintf("%d", now.UnixNano()),
	})
	pipe.Expire(ctx, redisKey, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("ratelimit pipeline: %w", err)
	}

	// The count predates this request's ZAdd, so >= limit means the
	// window was already full.
	if countCmd.Val() >= int64(limit) {
		r.client.ZRem(ctx, redisKey, fmt.Sprintf("%d", now.UnixNano()))
		return false, nil
	}
	return true, nil
}
