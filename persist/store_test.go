package persist

import (
	"context"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// storeContract runs the behavior every Store must share.
func storeContract(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	_, err := s.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, s.Delete(ctx, "missing"), "deleting a missing key is not an error")

	require.NoError(t, s.Put(ctx, "respcache:user:b", []byte("2")))
	require.NoError(t, s.Put(ctx, "respcache:user:a/1?x=y", []byte("1")))
	require.NoError(t, s.Put(ctx, "respcache:api:c", []byte("3")))

	got, err := s.Get(ctx, "respcache:user:a/1?x=y")
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), got)

	require.NoError(t, s.Put(ctx, "respcache:user:b", []byte("22")))
	got, err = s.Get(ctx, "respcache:user:b")
	require.NoError(t, err)
	assert.Equal(t, []byte("22"), got, "Put overwrites")

	keys, err := s.Keys(ctx, "respcache:user:")
	require.NoError(t, err)
	assert.Equal(t, []string{"respcache:user:a/1?x=y", "respcache:user:b"}, keys)

	require.NoError(t, s.Delete(ctx, "respcache:user:b"))
	keys, err = s.Keys(ctx, "respcache:")
	require.NoError(t, err)
	assert.Equal(t, []string{"respcache:api:c", "respcache:user:a/1?x=y"}, keys)
}

func TestMemoryStore_Contract(t *testing.T) {
	t.Parallel()
	storeContract(t, NewMemoryStore(0))
}

func TestFSStore_Contract(t *testing.T) {
	t.Parallel()

	s, err := NewFSStore(memfs.New(), "/var/cache/respcache")
	require.NoError(t, err)
	storeContract(t, s)
}

func TestMemoryStore_Quota(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	s := NewMemoryStore(4)
	require.NoError(t, s.Put(ctx, "a", []byte("abc")))
	assert.ErrorIs(t, s.Put(ctx, "b", []byte("de")), ErrQuotaExceeded)
	require.NoError(t, s.Put(ctx, "a", []byte("abcd")), "replacing counts only the delta")
	require.NoError(t, s.Delete(ctx, "a"))
	require.NoError(t, s.Put(ctx, "b", []byte("de")))
	assert.Equal(t, 1, s.Len())
}

func TestStores_HonorCancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fsStore, err := NewFSStore(memfs.New(), "d")
	require.NoError(t, err)
	for _, s := range []Store{NewMemoryStore(0), fsStore} {
		assert.ErrorIs(t, s.Put(ctx, "k", nil), context.Canceled)
		_, err := s.Get(ctx, "k")
		assert.ErrorIs(t, err, context.Canceled)
		_, err = s.Keys(ctx, "")
		assert.ErrorIs(t, err, context.Canceled)
	}
}

func TestFSStore_IgnoresForeignFiles(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	bfs := memfs.New()
	s, err := NewFSStore(bfs, "d")
	require.NoError(t, err)
	require.NoError(t, util.WriteFile(bfs, "d/README.md", []byte("x"), 0o644))
	require.NoError(t, util.WriteFile(bfs, "d/.tmp-9", []byte("x"), 0o644))
	require.NoError(t, s.Put(ctx, "respcache:api:k", []byte("v")))

	keys, err := s.Keys(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"respcache:api:k"}, keys)
}

func TestNewFSStore_NilFilesystem(t *testing.T) {
	t.Parallel()

	_, err := NewFSStore(nil, "d")
	assert.Error(t, err)
}

func TestRecord_Expired(t *testing.T) {
	t.Parallel()

	r := Record{Timestamp: 1000, TTL: 500}
	assert.False(t, r.Expired(1500))
	assert.True(t, r.Expired(1501))
}
