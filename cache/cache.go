package cache

import (
	"context"
	"log/slog"
	"reflect"
	"sort"
	"sync/atomic"
	"time"

	"github.com/jmgilman/go/errors"

	"github.com/IvanBrykalov/respcache/codec"
	"github.com/IvanBrykalov/respcache/internal/flight"
	"github.com/IvanBrykalov/respcache/persist"
	"github.com/IvanBrykalov/respcache/policy"
	"github.com/IvanBrykalov/respcache/policy/fifo"
	"github.com/IvanBrykalov/respcache/policy/lfu"
	"github.com/IvanBrykalov/respcache/policy/lru"
)

// closeTimeout bounds how long Close waits for the persistence queue.
const closeTimeout = 5 * time.Second

// Cache is a bounded, TTL-aware in-memory cache of JSON-serializable values.
// All methods are safe for concurrent use by multiple goroutines.
type Cache struct {
	name string
	cfg  Config
	st   *store

	mirror  *persist.Mirror // nil unless Config.Persist
	sweeper *sweeper        // nil when sweeping is disabled
	log     *slog.Logger
	metrics Metrics

	// flight coalesces concurrent GetOrFetch loads for the same key.
	flight flight.Group[any]
	closed atomic.Bool
}

// New validates cfg and constructs a cache.
// Defaults:
//   - empty Name      -> DefaultName
//   - nil Policy      -> chosen by Strategy (lru when empty)
//   - nil Metrics     -> NoopMetrics
//   - SweepInterval 0 -> DefaultSweepInterval (negative: no sweeper)
func New(cfg Config) (*Cache, error) {
	if cfg.Name == "" {
		cfg.Name = DefaultName
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Metrics == nil {
		cfg.Metrics = NoopMetrics{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Policy == nil {
		cfg.Policy = strategyPolicy(cfg.Strategy)
	}
	if cfg.SweepInterval == 0 {
		cfg.SweepInterval = DefaultSweepInterval
	}

	c := &Cache{
		name:    cfg.Name,
		cfg:     cfg,
		st:      newStore(cfg.MaxBytes(), cfg.Policy),
		log:     cfg.Logger.With("cache", cfg.Name),
		metrics: cfg.Metrics,
	}
	if cfg.Persist {
		c.mirror = persist.NewMirror(cfg.Store, cfg.Name, persist.WithLogger(cfg.Logger))
		c.st.journal = c.mirror
	}
	if cfg.SweepInterval > 0 {
		c.sweeper = startSweeper(cfg.SweepInterval, func() { c.Sweep() })
	}
	return c, nil
}

func strategyPolicy(s Strategy) policy.Policy {
	switch s {
	case StrategyLFU:
		return lfu.New()
	case StrategyFIFO:
		return fifo.New()
	default:
		return lru.New()
	}
}

// Name returns the instance name.
func (c *Cache) Name() string { return c.name }

// Config returns the effective configuration, defaults applied.
func (c *Cache) Config() Config { return c.cfg }

// Get decodes the live value stored under key into dst, which must be a
// non-nil pointer, and reports whether it did. An expired entry is removed
// and counted as a miss. An entry that cannot be decoded into dst is removed
// and Get reports false; a corrupt entry never surfaces as an error.
func (c *Cache) Get(key string, dst any) bool {
	if c.closed.Load() || !validTarget(dst) {
		return false
	}

	v, ok, removed := c.st.get(key, c.now())
	c.report(removed)
	if !ok {
		c.metrics.Miss()
		return false
	}
	c.metrics.Hit()

	if err := decodeInto(v, dst); err != nil {
		c.log.Warn("cache: dropping undecodable entry", "key", key, "err", err)
		if c.st.drop(key, v.seq) {
			c.report([]removal{{key: key, reason: EvictCorrupt}})
		}
		return false
	}
	return true
}

// Load is the typed form of Get.
func Load[T any](c *Cache, key string) (T, bool) {
	var v T
	ok := c.Get(key, &v)
	return v, ok
}

// Set stores value under key with the default TTL.
func (c *Cache) Set(key string, value any) { c.SetWithTTL(key, value, 0) }

// SetWithTTL stores value under key, replacing any previous entry.
// A non-positive ttl selects the default TTL. Set never fails: a value that
// cannot be serialized is kept as-is with size 0 and is not persisted; a
// value that cannot be compressed is stored uncompressed.
func (c *Cache) SetWithTTL(key string, value any, ttl time.Duration) {
	if c.closed.Load() {
		return
	}
	if ttl <= 0 {
		ttl = c.cfg.TTL
	}

	e := &entry{key: key, timestamp: c.now(), ttl: ttl}
	enc, err := codec.Encode(value, c.cfg.Compress)
	if err != nil {
		c.log.Debug("cache: storing unserializable value", "key", key, "err", err)
		e.raw, e.unencoded = value, true
	} else {
		e.data, e.size, e.compressed = enc.Data, enc.Size, enc.Compressed
	}

	_, removed := c.st.put(e, e.timestamp, false)
	c.report(removed)
	c.publishSize()
}

// Has reports whether a live entry exists under key. It does not count as a
// hit or miss and does not decode the value.
func (c *Cache) Has(key string) bool {
	if c.closed.Load() {
		return false
	}
	return c.st.has(key, c.now())
}

// Delete removes key and reports whether it was present, expired or not.
// Hit and miss counters are unaffected.
func (c *Cache) Delete(key string) bool {
	if c.closed.Load() {
		return false
	}
	if !c.st.remove(key) {
		return false
	}
	c.publishSize()
	return true
}

// Clear drops every entry and resets all statistics to zero.
func (c *Cache) Clear() {
	if c.closed.Load() {
		return
	}
	c.st.clear()
	c.publishSize()
}

// Keys returns the sorted keys of live entries.
func (c *Cache) Keys() []string { return c.st.keys(c.now(), "", false) }

// Len returns the number of resident entries, including expired entries
// the sweeper has not reclaimed yet. It equals Stats().EntryCount.
func (c *Cache) Len() int { return c.st.len() }

// Stats returns a snapshot of the counters.
func (c *Cache) Stats() Stats { return c.st.stats() }

// Sweep removes every expired entry now and returns how many it removed.
// The background sweeper calls it every SweepInterval.
func (c *Cache) Sweep() int {
	if c.closed.Load() {
		return 0
	}
	removed := c.st.sweep(c.now())
	if len(removed) > 0 {
		c.report(removed)
		c.publishSize()
		c.log.Debug("cache: swept expired entries", "count", len(removed))
	}
	return len(removed)
}

// Restore reloads previously persisted entries. Each record keeps its
// original timestamp and TTL; expired records are deleted from the store
// instead of being admitted, and keys already live in memory are kept.
// It returns the number of entries admitted. Without persistence it is a no-op.
func (c *Cache) Restore(ctx context.Context) (int, error) {
	if c.mirror == nil || c.closed.Load() {
		return 0, nil
	}
	if err := c.mirror.Flush(ctx); err != nil {
		return 0, errors.Wrap(err, errors.CodeUnavailable, "cache: flush persistence queue")
	}
	recs, err := c.mirror.Load(ctx)
	if err != nil {
		return 0, errors.Wrap(err, errors.CodeUnavailable, "cache: load persisted entries")
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].Timestamp < recs[j].Timestamp })

	now := c.now()
	var restored, discarded int
	for _, rec := range recs {
		if rec.Expired(now) {
			discarded++
			if err := c.mirror.Discard(ctx, rec.Key); err != nil {
				c.log.Warn("cache: discard expired record", "key", rec.Key, "err", err)
			}
			continue
		}
		e := &entry{
			key:        rec.Key,
			data:       rec.Data,
			compressed: rec.Compressed,
			timestamp:  rec.Timestamp,
			ttl:        rec.TTL,
			size:       codec.Measure(rec.Data),
		}
		ok, removed := c.st.put(e, now, true)
		c.report(removed)
		if ok {
			restored++
		}
	}
	c.publishSize()
	c.log.Info("cache: restored persisted entries", "restored", restored, "discarded", discarded)
	return restored, nil
}

// Close stops the sweeper and drains the persistence queue. Afterwards
// reads miss and writes are ignored. Calling Close again is a no-op.
func (c *Cache) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	if c.sweeper != nil {
		c.sweeper.stop()
	}
	if c.mirror != nil {
		ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
		defer cancel()
		if err := c.mirror.Close(ctx); err != nil {
			return errors.Wrap(err, errors.CodeTimeout, "cache: drain persistence queue")
		}
	}
	return nil
}

// ---- helpers ----

func (c *Cache) now() int64 {
	if c.cfg.Clock != nil {
		return c.cfg.Clock.NowUnixNano()
	}
	return time.Now().UnixNano()
}

// report forwards store-initiated removals to metrics and OnEvict. The
// store has already journaled them to the mirror under its lock.
func (c *Cache) report(removed []removal) {
	for _, r := range removed {
		c.metrics.Evict(r.reason)
		if cb := c.cfg.OnEvict; cb != nil {
			cb(r.key, r.reason)
		}
	}
}

func (c *Cache) publishSize() {
	n, bytes := c.st.size()
	c.metrics.Size(n, bytes)
}

func validTarget(dst any) bool {
	rv := reflect.ValueOf(dst)
	return rv.Kind() == reflect.Pointer && !rv.IsNil()
}

var errNotAssignable = errors.New(errors.CodeInternal, "cache: stored value is not assignable to target")

// decodeInto writes the stored value into dst. Unserialized values are
// assigned directly when the types allow it.
func decodeInto(v view, dst any) error {
	if !v.unencoded {
		return codec.Decode(v.data, v.compressed, dst)
	}
	target := reflect.ValueOf(dst).Elem()
	if v.raw == nil {
		target.SetZero()
		return nil
	}
	src := reflect.ValueOf(v.raw)
	if !src.Type().AssignableTo(target.Type()) {
		return errNotAssignable
	}
	target.Set(src)
	return nil
}
