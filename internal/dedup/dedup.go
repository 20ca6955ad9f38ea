// Package dedup provides a Redis-backed positive cache of recently
// ingested message identifiers. It only accelerates the duplicate
// check; the database unique constraints remain the source of truth,
// so cache misses and Redis outages are safe.
package dedup

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "inbox:seen:"

// Filter remembers identifiers for a TTL window.
type Filter struct {
	client *redis.Client
	ttl    time.Duration
}

// New creates a filter. A zero ttl defaults to 24 hours, which covers
// typical provider retry windows.
func New(client *redis.Client, ttl time.Duration) *Filter {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Filter{client: client, ttl: ttl}
}

// Seen reports whether the identifier was remembered recently.
func (f *Filter) Seen(ctx context.Context, id string) (bool, error) {
	n, err := f.client.Exists(ctx, keyPrefix+id).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Remember records identifiers with the configured TTL.
func (f *Filter) Remember(ctx context.Context, ids ...string) error {
	pipe := f.client.Pipeline()
	for _, id := range ids {
		if id == "" {
			continue
		}
		pipe.Set(ctx, keyPrefix+id, 1, f.ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}
