package cache

import (
	"context"
	stderrors "errors"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/jmgilman/go/errors"
	"golang.org/x/sync/errgroup"

	"github.com/IvanBrykalov/respcache/persist"
)

// Names of the default profiles.
const (
	ProfileAPI    = "api"
	ProfileUser   = "user"
	ProfileStatic = "static"
)

// DefaultProfiles returns the three preconfigured instances: short-lived
// general responses, medium-lived user data, and long-lived static data.
// Store is left nil; NewDefaultManager fills it in.
func DefaultProfiles() []Config {
	return []Config{
		{Name: ProfileAPI, TTL: 5 * time.Minute, MaxSizeMB: 50, Strategy: StrategyLRU, Compress: true},
		{Name: ProfileUser, TTL: 15 * time.Minute, MaxSizeMB: 10, Strategy: StrategyLFU, Persist: true},
		{Name: ProfileStatic, TTL: 24 * time.Hour, MaxSizeMB: 100, Strategy: StrategyFIFO, Compress: true, Persist: true},
	}
}

// ManagerOption configures a Manager. Options fill in Config fields left
// empty by the configs passed to Register.
type ManagerOption func(*Manager)

// WithManagerLogger sets the logger for caches without one.
func WithManagerLogger(l *slog.Logger) ManagerOption {
	return func(m *Manager) { m.log = l }
}

// WithMetricsFactory builds the Metrics of each cache from its name.
func WithMetricsFactory(f func(name string) Metrics) ManagerOption {
	return func(m *Manager) { m.metrics = f }
}

// WithManagerClock sets the clock for caches without one.
func WithManagerClock(c Clock) ManagerOption {
	return func(m *Manager) { m.clock = c }
}

// WithSweepInterval sets the sweep interval for caches without one.
func WithSweepInterval(d time.Duration) ManagerOption {
	return func(m *Manager) { m.sweep = d }
}

// Manager owns a set of named caches. Closing the manager closes every
// cache it created, which stops their sweepers.
type Manager struct {
	mu     sync.RWMutex
	caches map[string]*Cache
	closed bool

	log     *slog.Logger
	metrics func(name string) Metrics
	clock   Clock
	sweep   time.Duration
}

// NewManager returns an empty manager.
func NewManager(opts ...ManagerOption) *Manager {
	m := &Manager{caches: make(map[string]*Cache)}
	for _, o := range opts {
		o(m)
	}
	return m
}

// NewDefaultManager registers DefaultProfiles. A nil store turns persistence
// off for every profile.
func NewDefaultManager(store persist.Store, opts ...ManagerOption) (*Manager, error) {
	m := NewManager(opts...)
	for _, cfg := range DefaultProfiles() {
		cfg.Store = store
		if store == nil {
			cfg.Persist = false
		}
		if _, err := m.Register(cfg); err != nil {
			_ = m.Close()
			return nil, err
		}
	}
	return m, nil
}

// Register creates a cache from cfg. Names must be unique.
func (m *Manager) Register(cfg Config) (*Cache, error) {
	if cfg.Name == "" {
		cfg.Name = DefaultName
	}
	if cfg.Logger == nil {
		cfg.Logger = m.log
	}
	if cfg.Metrics == nil && m.metrics != nil {
		cfg.Metrics = m.metrics(cfg.Name)
	}
	if cfg.Clock == nil {
		cfg.Clock = m.clock
	}
	if cfg.SweepInterval == 0 {
		cfg.SweepInterval = m.sweep
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, errors.New(errors.CodeUnavailable, "cache: manager is closed")
	}
	if _, dup := m.caches[cfg.Name]; dup {
		return nil, errors.Newf(errors.CodeAlreadyExists, "cache: %q is already registered", cfg.Name)
	}
	c, err := New(cfg)
	if err != nil {
		return nil, err
	}
	m.caches[cfg.Name] = c
	return c, nil
}

// Cache returns the named cache.
func (m *Manager) Cache(name string) (*Cache, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.caches[name]
	return c, ok
}

// Names returns the registered names, sorted.
func (m *Manager) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.caches))
	for n := range m.caches {
		out = append(out, n)
	}
	slices.Sort(out)
	return out
}

// Stats returns a snapshot per cache.
func (m *Manager) Stats() map[string]Stats {
	out := make(map[string]Stats)
	for _, c := range m.list() {
		out[c.Name()] = c.Stats()
	}
	return out
}

// Totals sums the counters of every cache; HitRate is recomputed from the sums.
func (m *Manager) Totals() Stats {
	var t Stats
	for _, c := range m.list() {
		t = t.add(c.Stats())
	}
	return t
}

// InvalidateAll applies Invalidate(pattern) to every cache and returns the
// total number of removed entries.
func (m *Manager) InvalidateAll(pattern string) int {
	n := 0
	for _, c := range m.list() {
		n += c.Invalidate(pattern)
	}
	return n
}

// Restore reloads persisted entries of every cache concurrently.
func (m *Manager) Restore(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, c := range m.list() {
		g.Go(func() error {
			_, err := c.Restore(ctx)
			return err
		})
	}
	return g.Wait()
}

// Close closes every cache. Later calls are no-ops.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	caches := m.caches
	m.mu.Unlock()

	var errs []error
	for _, c := range caches {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return errors.Wrap(stderrors.Join(errs...), errors.CodeInternal, "cache: close manager")
	}
	return nil
}

func (m *Manager) list() []*Cache {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Cache, 0, len(m.caches))
	for _, c := range m.caches {
		out = append(out, c)
	}
	slices.SortFunc(out, func(a, b *Cache) int {
		switch {
		case a.name < b.name:
			return -1
		case a.name > b.name:
			return 1
		}
		return 0
	})
	return out
}
