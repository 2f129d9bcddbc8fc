package cache

import (
	"log/slog"
	"strings"
	"time"

	"github.com/jmgilman/go/errors"

	"github.com/IvanBrykalov/respcache/persist"
	"github.com/IvanBrykalov/respcache/policy"
)

// Strategy names a built-in eviction policy.
type Strategy string

const (
	// StrategyLRU ranks by insertion time. Reads do not refresh the rank, so
	// it evicts in the same order as StrategyFIFO.
	StrategyLRU Strategy = "lru"
	// StrategyLFU ranks by read count, ties by insertion order.
	StrategyLFU Strategy = "lfu"
	// StrategyFIFO ranks by insertion time.
	StrategyFIFO Strategy = "fifo"
)

// ParseStrategy validates s. The empty string selects StrategyLRU.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case "", StrategyLRU:
		return StrategyLRU, nil
	case StrategyLFU, StrategyFIFO:
		return Strategy(s), nil
	}
	return "", errors.Newf(errors.CodeInvalidConfig, "cache: unknown strategy %q (use lru, lfu or fifo)", s)
}

// EvictReason explains why an entry was removed.
type EvictReason int

const (
	// EvictCapacity means the entry was removed to keep the cache under its size budget.
	EvictCapacity EvictReason = iota
	// EvictTTL means the entry was removed because its TTL elapsed (on read, on write pressure, or by the sweeper).
	EvictTTL
	// EvictCorrupt means the entry was removed because its stored form could not be decoded.
	EvictCorrupt
)

func (r EvictReason) String() string {
	switch r {
	case EvictTTL:
		return "ttl"
	case EvictCorrupt:
		return "corrupt"
	default:
		return "capacity"
	}
}

// Metrics exposes cache-level observability hooks.
// A NoopMetrics implementation is provided and used by default.
type Metrics interface {
	Hit()
	Miss()
	Evict(reason EvictReason)
	Size(entries int, bytes int64)
}

// Clock provides time in UnixNano; useful for deterministic tests.
type Clock interface{ NowUnixNano() int64 }

const (
	// DefaultSweepInterval is how often expired entries are reclaimed.
	DefaultSweepInterval = 5 * time.Minute
	// DefaultName is used when Config.Name is empty.
	DefaultName = "default"

	bytesPerMB = 1024 * 1024
)

// Config configures one cache instance. It is copied by New and not
// consulted again afterwards.
//
// Required: TTL > 0 and MaxSizeMB > 0. Defaults applied in New():
//   - empty Name      => DefaultName
//   - empty Strategy  => StrategyLRU (ignored when Policy is set)
//   - SweepInterval 0 => DefaultSweepInterval; negative disables the sweeper
//   - nil Metrics     => NoopMetrics
//   - nil Logger      => discard
//   - nil Clock       => time.Now()
type Config struct {
	Name string

	// TTL is the default time-to-live of entries stored without an override.
	TTL time.Duration
	// MaxSizeMB is the size budget in megabytes of stored representation.
	MaxSizeMB int

	Strategy Strategy
	// Policy overrides Strategy with a custom ranking.
	Policy policy.Policy

	// Compress gzips values whose JSON form is larger than codec.CompressThreshold.
	Compress bool

	// Persist mirrors every write into Store on a best-effort basis.
	Persist bool
	Store   persist.Store

	SweepInterval time.Duration

	// Observability
	// OnEvict is called after an entry is removed by eviction, expiry or
	// corruption (not by Delete or Clear). It runs outside the cache lock.
	OnEvict func(key string, reason EvictReason)
	Metrics Metrics
	Logger  *slog.Logger

	// Clock allows overriding time source (tests). Nil => time.Now().
	Clock Clock
}

// MaxBytes returns the size budget in bytes.
func (c Config) MaxBytes() int64 { return int64(c.MaxSizeMB) * bytesPerMB }

// Validate reports the first invalid field, if any. Names may not contain
// ':', which separates the name from the key in persisted records.
func (c Config) Validate() error {
	if strings.Contains(c.Name, ":") {
		return c.invalid("cache: name must not contain ':'")
	}
	if c.TTL <= 0 {
		return c.invalid("cache: ttl must be > 0")
	}
	if c.MaxSizeMB <= 0 {
		return c.invalid("cache: max size must be > 0 MB")
	}
	if c.Policy == nil {
		if _, err := ParseStrategy(string(c.Strategy)); err != nil {
			return errors.WithContext(err, "cache", c.Name)
		}
	}
	if c.Persist && c.Store == nil {
		return c.invalid("cache: persist requires a store")
	}
	return nil
}

func (c Config) invalid(msg string) error {
	return errors.WithContext(errors.New(errors.CodeInvalidConfig, msg), "cache", c.Name)
}
