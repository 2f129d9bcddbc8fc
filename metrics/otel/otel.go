// Package otel exports cache.Metrics signals through the OpenTelemetry
// metric API.
package otel

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/IvanBrykalov/respcache/cache"
)

// Instrument names.
const (
	HitsName      = "respcache.hits"
	MissesName    = "respcache.misses"
	EvictionsName = "respcache.evictions"
	EntriesName   = "respcache.size.entries"
	BytesName     = "respcache.size.bytes"
)

// Recorder holds the instruments shared by every cache of one meter.
type Recorder struct {
	hits    metric.Int64Counter
	misses  metric.Int64Counter
	evicts  metric.Int64Counter
	entries metric.Int64Gauge
	bytes   metric.Int64Gauge
}

// New creates the instruments on meter.
func New(meter metric.Meter) (*Recorder, error) {
	hits, err := meter.Int64Counter(HitsName,
		metric.WithDescription("Cache hits"),
		metric.WithUnit("{hit}"),
	)
	if err != nil {
		return nil, err
	}
	misses, err := meter.Int64Counter(MissesName,
		metric.WithDescription("Cache misses"),
		metric.WithUnit("{miss}"),
	)
	if err != nil {
		return nil, err
	}
	evicts, err := meter.Int64Counter(EvictionsName,
		metric.WithDescription("Entries removed by reason"),
		metric.WithUnit("{entry}"),
	)
	if err != nil {
		return nil, err
	}
	entries, err := meter.Int64Gauge(EntriesName,
		metric.WithDescription("Number of resident entries"),
		metric.WithUnit("{entry}"),
	)
	if err != nil {
		return nil, err
	}
	bytes, err := meter.Int64Gauge(BytesName,
		metric.WithDescription("Bytes of stored representation"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}
	return &Recorder{hits: hits, misses: misses, evicts: evicts, entries: entries, bytes: bytes}, nil
}

// For returns the Metrics of one cache, tagged with a "cache" attribute.
func (r *Recorder) For(name string) cache.Metrics {
	return &Adapter{r: r, name: name, opt: metric.WithAttributes(attribute.String("cache", name))}
}

// Adapter implements cache.Metrics for one cache.
type Adapter struct {
	r    *Recorder
	name string
	opt  metric.MeasurementOption
}

func (a *Adapter) Hit()  { a.r.hits.Add(context.Background(), 1, a.opt) }
func (a *Adapter) Miss() { a.r.misses.Add(context.Background(), 1, a.opt) }

func (a *Adapter) Evict(reason cache.EvictReason) {
	a.r.evicts.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("cache", a.name),
		attribute.String("reason", reason.String()),
	))
}

func (a *Adapter) Size(entries int, bytes int64) {
	a.r.entries.Record(context.Background(), int64(entries), a.opt)
	a.r.bytes.Record(context.Background(), bytes, a.opt)
}

var _ cache.Metrics = (*Adapter)(nil)
