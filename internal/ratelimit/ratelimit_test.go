package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemorySlidingWindow(t *testing.T) {
	now := time.Now()
	m := NewMemory()
	m.now = func() time.Time { return now }

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		ok, err := m.Allow(ctx, "user:1", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, ok, "request %d should be allowed", i+1)
	}

	ok, err := m.Allow(ctx, "user:1", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "fourth request must be rejected")

	// Other keys are unaffected.
	ok, _ = m.Allow(ctx, "user:2", 3, time.Minute)
	assert.True(t, ok)

	// Once the window slides past the old requests, capacity frees up.
	now = now.Add(61 * time.Second)
	ok, err = m.Allow(ctx, "user:1", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryZeroLimitAllowsAll(t *testing.T) {
	m := NewMemory()
	ok, err := m.Allow(context.Background(), "k", 0, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func newRedisLimiter(t *testing.T) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedis(client), mr
}

func TestRedisSlidingWindow(t *testing.T) {
	r, _ := newRedisLimiter(t)
	base := time.Now()
	step := 0
	r.now = func() time.Time {
		step++
		return base.Add(time.Duration(step) * time.Millisecond)
	}

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		ok, err := r.Allow(ctx, "user:1", 5, time.Minute)
		require.NoError(t, err)
		assert.True(t, ok, "request %d should be allowed", i+1)
	}

	ok, err := r.Allow(ctx, "user:1", 5, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisWindowExpiry(t *testing.T) {
	r, mr := newRedisLimiter(t)
	base := time.Now()
	offset := time.Duration(0)
	r.now = func() time.Time { return base.Add(offset) }

	ctx := context.Background()
	ok, err := r.Allow(ctx, "user:1", 1, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = r.Allow(ctx, "user:1", 1, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	// Past the window the old entry is trimmed and the key admits
	// again.
	offset = 2 * time.Minute
	mr.FastForward(2 * time.Minute)
	ok, err = r.Allow(ctx, "user:1", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisBackendDownReturnsError(t *testing.T) {
	r, mr := newRedisLimiter(t)
	mr.Close()

	_, err := r.Allow(context.Background(), "user:1", 5, time.Minute)
	assert.Error(t, err)
}
