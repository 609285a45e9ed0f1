package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T, ttl time.Duration) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "cache.db"), ttl)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPutGet(t *testing.T) {
	s := openTestStore(t, time.Hour)
	ctx := context.Background()

	key := Key("https://example.com", "main", "html")
	require.NoError(t, s.Put(ctx, key, []byte("payload")))

	val, hit, err := s.Get(ctx, key)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, []byte("payload"), val)

	_, hit, err = s.Get(ctx, Key("https://example.com", "full", "html"))
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestUpsert(t *testing.T) {
	s := openTestStore(t, time.Hour)
	ctx := context.Background()

	key := Key("u", "s", "f")
	require.NoError(t, s.Put(ctx, key, []byte("v1")))
	require.NoError(t, s.Put(ctx, key, []byte("v2")))

	val, hit, err := s.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, hit)
	assert.Equal(t, []byte("v2"), val)
}

func TestExpiry(t *testing.T) {
	s := openTestStore(t, -time.Second) // already expired on write
	ctx := context.Background()

	key := Key("u", "s", "f")
	require.NoError(t, s.Put(ctx, key, []byte("stale")))

	_, hit, err := s.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, hit, "expired entries are misses")

	pruned, err := s.Prune(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, pruned)
}

func TestKeyDistinguishesInputs(t *testing.T) {
	assert.NotEqual(t, Key("u", "main", "html"), Key("u", "main", "text"))
	assert.NotEqual(t, Key("u1", "main", "html"), Key("u2", "main", "html"))
	assert.Equal(t, Key("u", "main", "html"), Key("u", "main", "html"))
}
