// Package prom exports cache.Metrics signals as Prometheus metrics.
package prom

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/IvanBrykalov/respcache/cache"
)

// Collector owns the metric vectors shared by every cache registered
// against one registry. Each cache is told apart by the "cache" label.
type Collector struct {
	hits    *prometheus.CounterVec
	misses  *prometheus.CounterVec
	evicts  *prometheus.CounterVec
	entries *prometheus.GaugeVec
	bytes   *prometheus.GaugeVec
}

// New constructs and registers the vectors.
//   - reg:     registry to register metrics with (nil => prometheus.DefaultRegisterer)
//   - ns, sub: Prometheus namespace and subsystem
func New(reg prometheus.Registerer, ns, sub string) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	c := &Collector{
		hits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: sub,
			Name:      "hits_total",
			Help:      "Cache hits",
		}, []string{"cache"}),
		misses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: sub,
			Name:      "misses_total",
			Help:      "Cache misses",
		}, []string{"cache"}),
		evicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Subsystem: sub,
			Name:      "evictions_total",
			Help:      "Entries removed by reason (capacity, ttl, corrupt)",
		}, []string{"cache", "reason"}),
		entries: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: ns,
			Subsystem: sub,
			Name:      "size_entries",
			Help:      "Number of resident entries",
		}, []string{"cache"}),
		bytes: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: ns,
			Subsystem: sub,
			Name:      "size_bytes",
			Help:      "Bytes of stored representation",
		}, []string{"cache"}),
	}
	reg.MustRegister(c.hits, c.misses, c.evicts, c.entries, c.bytes)
	return c
}

// For returns the Metrics of one cache. Its signature matches
// cache.WithMetricsFactory.
func (c *Collector) For(name string) cache.Metrics {
	return &Adapter{
		name:    name,
		hits:    c.hits.WithLabelValues(name),
		misses:  c.misses.WithLabelValues(name),
		evicts:  c.evicts,
		entries: c.entries.WithLabelValues(name),
		bytes:   c.bytes.WithLabelValues(name),
	}
}

// Adapter implements cache.Metrics for one cache.
// Safe for concurrent use; all Prometheus metric types are goroutine-safe.
type Adapter struct {
	name    string
	hits    prometheus.Counter
	misses  prometheus.Counter
	evicts  *prometheus.CounterVec
	entries prometheus.Gauge
	bytes   prometheus.Gauge
}

// Hit increments the hit counter.
func (a *Adapter) Hit() { a.hits.Inc() }

// Miss increments the miss counter.
func (a *Adapter) Miss() { a.misses.Inc() }

// Evict increments the eviction counter with a reason label.
func (a *Adapter) Evict(r cache.EvictReason) {
	a.evicts.WithLabelValues(a.name, r.String()).Inc()
}

// Size updates gauges for the number of entries and stored bytes.
func (a *Adapter) Size(entries int, bytes int64) {
	a.entries.Set(float64(entries))
	a.bytes.Set(float64(bytes))
}

// Compile-time check: ensure Adapter implements cache.Metrics.
var _ cache.Metrics = (*Adapter)(nil)
