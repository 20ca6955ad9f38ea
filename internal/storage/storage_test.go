package storage

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inboxly/inbox-intel/internal/config"
)

func TestLocalStoreRoundTrip(t *testing.T) {
	s, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	location, err := s.Save(ctx, "5/abc_invoice.pdf", "application/pdf", []byte("pdf bytes"))
	require.NoError(t, err)
	assert.NotEmpty(t, location)

	rc, err := s.Open(ctx, "5/abc_invoice.pdf")
	require.NoError(t, err)
	defer rc.Close()

	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, []byte("pdf bytes"), data)
}

func TestLocalStoreRejectsTraversal(t *testing.T) {
	s, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	for _, key := range []string{"../escape", "5/../../etc/passwd", "/abs/path"} {
		_, err := s.Save(ctx, key, "", []byte("x"))
		assert.Error(t, err, "key %q", key)
		_, err = s.Open(ctx, key)
		assert.Error(t, err, "key %q", key)
	}
}

func TestLocalStoreOpenMissing(t *testing.T) {
	s, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	_, err = s.Open(context.Background(), "5/nope.pdf")
	assert.Error(t, err)
}

func TestNewRejectsUnknownType(t *testing.T) {
	_, err := New(context.Background(), config.StorageConfig{Type: "ftp"})
	assert.Error(t, err)
}

func TestNewDefaultsToLocal(t *testing.T) {
	store, err := New(context.Background(), config.StorageConfig{LocalDir: t.TempDir()})
	require.NoError(t, err)
	_, ok := store.(*LocalStore)
	assert.True(t, ok)
}
