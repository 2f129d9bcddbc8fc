// Package cache provides bounded, TTL-aware in-memory caches of
// JSON-serializable values with pluggable eviction, optional compression
// and best-effort persistence.
//
// Design
//
//   - Storage: values are kept in their stored representation (JSON, gzipped
//     above codec.CompressThreshold when Config.Compress is set). Size is
//     accounted in bytes of that representation and bounded by MaxSizeMB.
//
//   - Concurrency: one mutex per cache guards the entry map and counters.
//     Every public method is atomic with respect to the others and to the
//     background sweeper.
//
//   - Eviction: when a write would exceed the budget, expired entries are
//     purged first. If that is not enough, the lowest-ranked 10% of the
//     remaining entries are removed in one pass. Ranking comes from the
//     policy package: lru and fifo order by insertion time, lfu by hits.
//
//   - TTL: every entry carries its own TTL. Expiry is lazy on Get and also
//     enforced by a sweeper goroutine every SweepInterval.
//
//   - Persistence: with Config.Persist, writes and deletes are mirrored to a
//     persist.Store by a background worker. Store failures are logged and
//     never surface to callers. Restore reloads surviving records.
//
//   - GetOrFetch: coalesces concurrent misses for the same key so fetch runs
//     once; its error is returned unchanged and nothing is cached.
//
//   - Metrics: Config.Metrics receives Hit/Miss/Evict/Size signals.
//     NoopMetrics is used by default; see metrics/prom and metrics/otel.
//
// Basic usage
//
//	c, err := cache.New(cache.Config{Name: "api", TTL: 5 * time.Minute, MaxSizeMB: 50})
//	if err != nil {
//	    return err
//	}
//	defer c.Close()
//
//	c.Set("user:42", profile)
//	var p Profile
//	if c.Get("user:42", &p) {
//	    _ = p // use value
//	}
//
// Loading through the cache
//
//	p, err := cache.GetOrFetch(ctx, c, "user:42", func(ctx context.Context) (Profile, error) {
//	    return db.LoadProfile(ctx, 42)
//	}, 0)
//
// Several named caches
//
//	m, err := cache.NewDefaultManager(persist.NewMemoryStore(0))
//	if err != nil {
//	    return err
//	}
//	defer m.Close()
//	api, _ := m.Cache(cache.ProfileAPI)
//	api.Set("GET /teams", teams)
package cache
