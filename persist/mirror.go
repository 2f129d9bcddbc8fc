package persist

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Namespace prefixes every key a Mirror writes.
const Namespace = "respcache"

const (
	defaultQueueSize = 256
	defaultTimeout   = 5 * time.Second
)

type opKind int

const (
	opSave opKind = iota
	opRemove
	opRemoveAll
	opBarrier
)

type op struct {
	kind opKind
	key  string
	data []byte
	ack  chan struct{} // opBarrier only
}

// MirrorOption configures a Mirror.
type MirrorOption func(*Mirror)

// WithLogger sets the logger for dropped or failed operations.
func WithLogger(l *slog.Logger) MirrorOption {
	return func(m *Mirror) {
		if l != nil {
			m.log = l
		}
	}
}

// WithQueueSize bounds the number of pending operations.
func WithQueueSize(n int) MirrorOption {
	return func(m *Mirror) {
		if n > 0 {
			m.queue = n
		}
	}
}

// WithTimeout bounds each store call made by the worker.
func WithTimeout(d time.Duration) MirrorOption {
	return func(m *Mirror) {
		if d > 0 {
			m.timeout = d
		}
	}
}

// Mirror is the best-effort persistence side channel of one cache.
// Save, Remove and RemoveAll never block and never fail; operations are
// applied in order by a single worker goroutine.
type Mirror struct {
	store   Store
	prefix  string
	log     *slog.Logger
	queue   int
	timeout time.Duration

	mu     sync.RWMutex // guards closed and sends on ops
	closed bool
	ops    chan op
	done   chan struct{}

	dropped atomic.Uint64
	failed  atomic.Uint64
}

// NewMirror starts a mirror writing the records of cache name into store.
func NewMirror(store Store, name string, opts ...MirrorOption) *Mirror {
	m := &Mirror{
		store:   store,
		prefix:  Namespace + ":" + name + ":",
		log:     slog.New(slog.DiscardHandler),
		queue:   defaultQueueSize,
		timeout: defaultTimeout,
		done:    make(chan struct{}),
	}
	for _, o := range opts {
		o(m)
	}
	m.log = m.log.With("cache", name)
	m.ops = make(chan op, m.queue)
	go m.run()
	return m
}

// Key returns the namespaced store key for a cache key.
func (m *Mirror) Key(cacheKey string) string { return m.prefix + cacheKey }

// Save queues rec for writing.
func (m *Mirror) Save(rec Record) {
	data, err := json.Marshal(rec)
	if err != nil {
		m.failed.Add(1)
		m.log.Warn("persist: encode record", "key", rec.Key, "err", err)
		return
	}
	m.enqueue(op{kind: opSave, key: rec.Key, data: data})
}

// Remove queues the deletion of one cache key.
func (m *Mirror) Remove(cacheKey string) { m.enqueue(op{kind: opRemove, key: cacheKey}) }

// RemoveAll queues the deletion of every record of this cache.
func (m *Mirror) RemoveAll() { m.enqueue(op{kind: opRemoveAll}) }

// Dropped returns how many operations were discarded because the queue was full.
func (m *Mirror) Dropped() uint64 { return m.dropped.Load() }

// Failed returns how many operations the store rejected.
func (m *Mirror) Failed() uint64 { return m.failed.Load() }

func (m *Mirror) enqueue(o op) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return
	}
	select {
	case m.ops <- o:
	default:
		m.dropped.Add(1)
		m.log.Warn("persist: queue full, dropping operation", "key", o.key)
	}
}

// Flush waits until every operation queued before the call has been applied.
func (m *Mirror) Flush(ctx context.Context) error {
	ack := make(chan struct{})

	m.mu.RLock()
	if m.closed {
		m.mu.RUnlock()
		return ErrClosed
	}
	select {
	case m.ops <- op{kind: opBarrier, ack: ack}:
		m.mu.RUnlock()
	case <-ctx.Done():
		m.mu.RUnlock()
		return ctx.Err()
	}

	select {
	case <-ack:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting operations and waits for the queue to drain.
// It is safe to call more than once.
func (m *Mirror) Close(ctx context.Context) error {
	m.mu.Lock()
	if !m.closed {
		m.closed = true
		close(m.ops)
	}
	m.mu.Unlock()

	select {
	case <-m.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Load returns every record stored for this cache. Records that cannot be
// parsed are deleted from the store; records whose embedded key does not
// match their store key are skipped and left in place.
func (m *Mirror) Load(ctx context.Context) ([]Record, error) {
	keys, err := m.store.Keys(ctx, m.prefix)
	if err != nil {
		return nil, err
	}
	out := make([]Record, 0, len(keys))
	for _, k := range keys {
		b, err := m.store.Get(ctx, k)
		if err != nil {
			m.log.Warn("persist: read record", "key", k, "err", err)
			continue
		}
		var rec Record
		if err := json.Unmarshal(b, &rec); err != nil {
			m.log.Warn("persist: discarding unreadable record", "key", k, "err", err)
			if err := m.store.Delete(ctx, k); err != nil {
				m.log.Warn("persist: delete unreadable record", "key", k, "err", err)
			}
			continue
		}
		if m.Key(rec.Key) != k {
			// Not written by this mirror; leave it to its owner.
			m.log.Warn("persist: skipping foreign record", "key", k)
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

// Discard deletes one record synchronously. Used while restoring, when the
// caller already holds the record and knows it is stale.
func (m *Mirror) Discard(ctx context.Context, cacheKey string) error {
	return m.store.Delete(ctx, m.Key(cacheKey))
}

func (m *Mirror) run() {
	defer close(m.done)
	for o := range m.ops {
		if o.kind == opBarrier {
			close(o.ack)
			continue
		}
		m.apply(o)
	}
}

func (m *Mirror) apply(o op) {
	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()

	var err error
	switch o.kind {
	case opSave:
		err = m.store.Put(ctx, m.Key(o.key), o.data)
	case opRemove:
		err = m.store.Delete(ctx, m.Key(o.key))
	case opRemoveAll:
		err = m.removeAll(ctx)
	}
	if err != nil {
		m.failed.Add(1)
		m.log.Warn("persist: store operation failed", "key", o.key, "err", err)
	}
}

func (m *Mirror) removeAll(ctx context.Context) error {
	keys, err := m.store.Keys(ctx, m.prefix)
	if err != nil {
		return err
	}
	for _, k := range keys {
		if !strings.HasPrefix(k, m.prefix) {
			continue
		}
		if err := m.store.Delete(ctx, k); err != nil {
			return err
		}
	}
	return nil
}
