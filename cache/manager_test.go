package cache

import (
	"context"
	"testing"
	"time"

	"github.com/jmgilman/go/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IvanBrykalov/respcache/persist"
)

func newTestManager(t *testing.T, store persist.Store, opts ...ManagerOption) *Manager {
	t.Helper()
	opts = append([]ManagerOption{WithSweepInterval(-1)}, opts...)
	m, err := NewDefaultManager(store, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func TestManager_DefaultProfiles(t *testing.T) {
	t.Parallel()

	m := newTestManager(t, persist.NewMemoryStore(0))
	assert.Equal(t, []string{ProfileAPI, ProfileStatic, ProfileUser}, m.Names())

	api, ok := m.Cache(ProfileAPI)
	require.True(t, ok)
	cfg := api.Config()
	assert.Equal(t, 5*time.Minute, cfg.TTL)
	assert.Equal(t, 50, cfg.MaxSizeMB)
	assert.Equal(t, "lru", cfg.Policy.Name())
	assert.True(t, cfg.Compress)
	assert.False(t, cfg.Persist)

	user, _ := m.Cache(ProfileUser)
	assert.Equal(t, 15*time.Minute, user.Config().TTL)
	assert.Equal(t, "lfu", user.Config().Policy.Name())
	assert.True(t, user.Config().Persist)

	static, _ := m.Cache(ProfileStatic)
	assert.Equal(t, 24*time.Hour, static.Config().TTL)
	assert.Equal(t, 100, static.Config().MaxSizeMB)
	assert.Equal(t, "fifo", static.Config().Policy.Name())
	assert.True(t, static.Config().Persist)

	_, ok = m.Cache("missing")
	assert.False(t, ok)
}

func TestManager_NilStoreDisablesPersistence(t *testing.T) {
	t.Parallel()

	m := newTestManager(t, nil)
	for _, name := range m.Names() {
		c, _ := m.Cache(name)
		assert.False(t, c.Config().Persist, name)
	}
	require.NoError(t, m.Restore(context.Background()))
}

func TestManager_RegisterDuplicate(t *testing.T) {
	t.Parallel()

	m := NewManager(WithSweepInterval(-1))
	t.Cleanup(func() { _ = m.Close() })

	_, err := m.Register(Config{Name: "x", TTL: time.Second, MaxSizeMB: 1})
	require.NoError(t, err)
	_, err = m.Register(Config{Name: "x", TTL: time.Second, MaxSizeMB: 1})
	require.Error(t, err)
	assert.Equal(t, errors.CodeAlreadyExists, errors.GetCode(err))

	_, err = m.Register(Config{Name: "bad"})
	assert.Equal(t, errors.CodeInvalidConfig, errors.GetCode(err))
}

func TestManager_StatsAndTotals(t *testing.T) {
	t.Parallel()

	m := newTestManager(t, nil)
	api, _ := m.Cache(ProfileAPI)
	user, _ := m.Cache(ProfileUser)

	api.Set("a", 1)
	user.Set("u", 2)
	var v int
	api.Get("a", &v)
	user.Get("u", &v)
	user.Get("missing", &v)

	st := m.Stats()
	require.Len(t, st, 3)
	assert.Equal(t, uint64(1), st[ProfileAPI].Hits)
	assert.Equal(t, uint64(1), st[ProfileUser].Misses)
	assert.InDelta(t, 50.0, st[ProfileUser].HitRate, 1e-9)

	tot := m.Totals()
	assert.Equal(t, uint64(2), tot.Hits)
	assert.Equal(t, uint64(1), tot.Misses)
	assert.Equal(t, 2, tot.EntryCount)
	assert.InDelta(t, 200.0/3, tot.HitRate, 1e-9)
	assert.Equal(t, int64(160*bytesPerMB), tot.MaxSize)
}

func TestManager_InvalidateAll(t *testing.T) {
	t.Parallel()

	m := newTestManager(t, nil)
	for _, name := range m.Names() {
		c, _ := m.Cache(name)
		c.Set("user:1", 1)
		c.Set("team:1", 1)
	}

	assert.Equal(t, 3, m.InvalidateAll("user:"))
	assert.Equal(t, 3, m.InvalidateAll(""))
	assert.Zero(t, m.Totals().EntryCount)
}

func TestManager_RestoreAll(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store := persist.NewMemoryStore(0)
	first, err := NewDefaultManager(store, WithSweepInterval(-1))
	require.NoError(t, err)
	for _, name := range first.Names() {
		c, _ := first.Cache(name)
		c.Set("k", name)
	}
	require.NoError(t, first.Close())

	second := newTestManager(t, store)
	require.NoError(t, second.Restore(ctx))

	for name, want := range map[string]bool{ProfileAPI: false, ProfileUser: true, ProfileStatic: true} {
		c, _ := second.Cache(name)
		got, ok := Load[string](c, "k")
		assert.Equal(t, want, ok, name)
		if want {
			assert.Equal(t, name, got)
		}
	}
}

func TestManager_OptionsApply(t *testing.T) {
	t.Parallel()

	clk := &fakeClock{}
	metrics := map[string]*countingMetrics{}
	m := NewManager(
		WithSweepInterval(-1),
		WithManagerClock(clk),
		WithMetricsFactory(func(name string) Metrics {
			cm := &countingMetrics{evicts: map[EvictReason]int{}}
			metrics[name] = cm
			return cm
		}),
	)
	t.Cleanup(func() { _ = m.Close() })

	c, err := m.Register(Config{Name: "x", TTL: time.Second, MaxSizeMB: 1})
	require.NoError(t, err)
	c.Set("a", 1)
	clk.add(2 * time.Second)
	var v int
	assert.False(t, c.Get("a", &v))

	require.Contains(t, metrics, "x")
	assert.Equal(t, 1, metrics["x"].misses)
	assert.Equal(t, 1, metrics["x"].evicts[EvictTTL])
}

func TestManager_CloseIsIdempotent(t *testing.T) {
	t.Parallel()

	m, err := NewDefaultManager(persist.NewMemoryStore(0))
	require.NoError(t, err)
	api, _ := m.Cache(ProfileAPI)
	require.NotNil(t, api.sweeper)

	require.NoError(t, m.Close())
	require.NoError(t, m.Close())
	assert.True(t, api.closed.Load())

	_, err = m.Register(Config{Name: "late", TTL: time.Second, MaxSizeMB: 1})
	assert.Equal(t, errors.CodeUnavailable, errors.GetCode(err))
}
