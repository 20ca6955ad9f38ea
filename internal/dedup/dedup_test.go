package dedup

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFilter(t *testing.T, ttl time.Duration) (*Filter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return New(client, ttl), mr
}

func TestRememberAndSeen(t *testing.T) {
	f, _ := newFilter(t, time.Hour)
	ctx := context.Background()

	seen, err := f.Seen(ctx, "<m1@x>")
	require.NoError(t, err)
	assert.False(t, seen)

	require.NoError(t, f.Remember(ctx, "<m1@x>", "<ident-1>", ""))

	for _, id := range []string{"<m1@x>", "<ident-1>"} {
		seen, err = f.Seen(ctx, id)
		require.NoError(t, err)
		assert.True(t, seen, "id %q", id)
	}

	// The empty identifier is skipped, not remembered as a key.
	seen, err = f.Seen(ctx, "")
	require.NoError(t, err)
	assert.False(t, seen)
}

func TestEntriesExpire(t *testing.T) {
	f, mr := newFilter(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, f.Remember(ctx, "<m1@x>"))
	mr.FastForward(2 * time.Minute)

	seen, err := f.Seen(ctx, "<m1@x>")
	require.NoError(t, err)
	assert.False(t, seen)
}
