package cache

import (
	"context"
	"time"

	"github.com/gobwas/glob"
	"github.com/jmgilman/go/errors"
)

// ErrTypeMismatch is returned by GetOrFetch when a coalesced load for the
// same key produced a value of a different type than the caller asked for.
var ErrTypeMismatch = errors.New(errors.CodeInternal, "cache: coalesced load returned a different type")

// GetOrFetch returns the cached value for key, or calls fetch on a miss and
// caches its result with ttl (non-positive: the default TTL).
// Concurrent misses for the same key share one fetch. A fetch error is
// returned unchanged and nothing is cached.
func GetOrFetch[T any](ctx context.Context, c *Cache, key string, fetch func(context.Context) (T, error), ttl time.Duration) (T, error) {
	// fast path
	var v T
	if c.Get(key, &v) {
		return v, nil
	}

	res, _, err := c.flight.Do(ctx, key, func() (any, error) {
		// re-check after winning the flight; Has keeps the miss count honest
		var again T
		if c.Has(key) && c.Get(key, &again) {
			return again, nil
		}
		fv, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		c.SetWithTTL(key, fv, ttl)
		return fv, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	if out, ok := res.(T); ok {
		return out, nil
	}
	// Another caller loaded the key as a different type; read our own view.
	if c.Get(key, &v) {
		return v, nil
	}
	var zero T
	return zero, ErrTypeMismatch
}

// Invalidate deletes every key containing pattern and returns how many
// were removed. An empty pattern clears the cache, statistics included.
func (c *Cache) Invalidate(pattern string) int {
	if pattern == "" {
		n := c.Len()
		c.Clear()
		return n
	}
	n := 0
	for _, k := range c.st.keys(c.now(), pattern, true) {
		if c.Delete(k) {
			n++
		}
	}
	return n
}

// InvalidateGlob deletes every key matching a glob pattern, where ':' and
// '/' separate segments ("user:*:roster", "teams/**").
func (c *Cache) InvalidateGlob(pattern string) (int, error) {
	g, err := glob.Compile(pattern, ':', '/')
	if err != nil {
		return 0, errors.Wrapf(err, errors.CodeInvalidInput, "cache: invalid glob %q", pattern)
	}
	n := 0
	for _, k := range c.st.keys(c.now(), "", true) {
		if g.Match(k) && c.Delete(k) {
			n++
		}
	}
	return n, nil
}
