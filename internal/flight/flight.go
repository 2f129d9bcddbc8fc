// Package flight coalesces concurrent loads of the same key.
package flight

import (
	"context"
	"fmt"
	"sync"
)

// Group runs at most one fn per key at a time. Callers that arrive while a
// call is in flight wait for its result instead of starting their own.
//
// Concurrency notes:
//   - The first caller for a key becomes the leader and runs fn on its own
//     goroutine stack.
//   - Publishing (val, err) happens-before close(c.done), so followers
//     reading after <-done observe the final values.
//   - A follower whose ctx is cancelled returns ctx.Err(); the leader keeps
//     running. Thread ctx into fn if the work itself must stop.
//   - If fn panics, followers receive an error and the panic is re-raised
//     in the leader.
type Group[V any] struct {
	mu sync.Mutex
	m  map[string]*call[V]
}

type call[V any] struct {
	done chan struct{} // closed when val/err are published
	val  V
	err  error
}

// Do runs fn once for key among concurrent callers. shared reports whether
// the result was produced by another caller's fn.
func (g *Group[V]) Do(ctx context.Context, key string, fn func() (V, error)) (v V, shared bool, err error) {
	g.mu.Lock()
	if g.m == nil {
		g.m = make(map[string]*call[V])
	}
	if c, ok := g.m[key]; ok {
		g.mu.Unlock()

		select {
		case <-c.done:
			return c.val, true, c.err
		case <-ctx.Done():
			var zero V
			return zero, false, ctx.Err()
		}
	}

	c := &call[V]{done: make(chan struct{})}
	g.m[key] = c
	g.mu.Unlock()

	g.run(key, c, fn)
	return c.val, false, c.err
}

// InFlight reports whether a call for key is running.
func (g *Group[V]) InFlight(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.m[key]
	return ok
}

func (g *Group[V]) run(key string, c *call[V], fn func() (V, error)) {
	normal := false
	defer func() {
		if !normal {
			if r := recover(); r != nil {
				c.err = fmt.Errorf("flight: load for %q panicked: %v", key, r)
				g.finish(key, c)
				panic(r)
			}
		}
		g.finish(key, c)
	}()

	c.val, c.err = fn()
	normal = true
}

// finish publishes the result and removes the in-flight marker.
func (g *Group[V]) finish(key string, c *call[V]) {
	g.mu.Lock()
	delete(g.m, key)
	g.mu.Unlock()
	close(c.done)
}
