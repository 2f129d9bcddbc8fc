package cache

import (
	"slices"
	"strings"
	"sync"

	"github.com/IvanBrykalov/respcache/persist"
	"github.com/IvanBrykalov/respcache/policy"
)

// journal receives persistence operations in the order the store applies
// them. It is called with the store lock held and must not block.
type journal interface {
	Save(rec persist.Record)
	Remove(key string)
	RemoveAll()
}

// removal records an entry the store dropped on its own, so the facade can
// notify metrics and callbacks outside the lock.
type removal struct {
	key    string
	reason EvictReason
}

// view is the part of an entry a reader needs after the lock is released.
type view struct {
	data       []byte
	compressed bool
	raw        any
	unencoded  bool
	seq        uint64
}

// store is the entry map plus size and hit bookkeeping for one cache.
// Every method takes the lock for its whole duration, so callers never
// observe a partially applied operation.
type store struct {
	// ---- guarded by mu ----
	mu        sync.Mutex
	m         map[string]*entry
	seq       uint64
	totalSize int64

	hits        uint64
	misses      uint64
	evictions   uint64
	expirations uint64

	maxBytes int64
	pol      policy.Policy
	fraction float64

	// journal is nil unless the cache persists.
	journal journal
}

func newStore(maxBytes int64, pol policy.Policy) *store {
	return &store{
		m:        make(map[string]*entry),
		maxBytes: maxBytes,
		pol:      pol,
		fraction: policy.DefaultFraction,
	}
}

// get looks up a live entry and counts the hit or miss. An expired entry is
// removed and reported.
func (s *store) get(key string, now int64) (view, bool, []removal) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.m[key]
	if !ok {
		s.misses++
		return view{}, false, nil
	}
	if e.expired(now) {
		s.removeLocked(e)
		s.expirations++
		s.misses++
		return view{}, false, []removal{{key: key, reason: EvictTTL}}
	}

	e.hits++
	s.hits++
	return view{data: e.data, compressed: e.compressed, raw: e.raw, unencoded: e.unencoded, seq: e.seq}, true, nil
}

// has reports liveness without touching any counter.
func (s *store) has(key string, now int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.m[key]
	return ok && !e.expired(now)
}

// put inserts e, replacing any entry under the same key. Eviction runs
// first with the prospective size, and never selects the key being written.
// When onlyIfAbsent is set and a live entry exists, nothing changes.
func (s *store) put(e *entry, now int64, onlyIfAbsent bool) (bool, []removal) {
	s.mu.Lock()
	defer s.mu.Unlock()

	old := s.m[e.key]
	if onlyIfAbsent && old != nil && !old.expired(now) {
		return false, nil
	}
	var oldSize int64
	if old != nil {
		oldSize = old.size
	}

	var removed []removal
	if s.totalSize-oldSize+e.size > s.maxBytes {
		removed = s.evictLocked(e.key, e.size-oldSize, now)
	}

	if old != nil {
		s.unlinkLocked(old)
	}
	s.seq++
	e.seq = s.seq
	s.m[e.key] = e
	s.totalSize += e.size

	// A restored entry is already in the store.
	if s.journal != nil && !onlyIfAbsent {
		if e.unencoded {
			s.journal.Remove(e.key) // drop any older persisted value
		} else {
			s.journal.Save(e.record())
		}
	}
	return true, removed
}

// remove deletes key, reporting whether it was present (expired or not).
func (s *store) remove(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.m[key]
	if !ok {
		return false
	}
	s.removeLocked(e)
	return true
}

// drop removes key only if it still holds the entry with the given seq.
func (s *store) drop(key string, seq uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.m[key]
	if !ok || e.seq != seq {
		return false
	}
	s.removeLocked(e)
	return true
}

// clear drops every entry and zeroes all counters. It returns how many
// entries were dropped.
func (s *store) clear() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.m)
	s.m = make(map[string]*entry)
	s.totalSize = 0
	s.hits, s.misses, s.evictions, s.expirations = 0, 0, 0, 0
	if s.journal != nil {
		s.journal.RemoveAll()
	}
	return n
}

// sweep removes every expired entry.
func (s *store) sweep(now int64) []removal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expireLocked("", now)
}

// keys returns the sorted keys of live entries; with a non-empty substr only
// keys containing it. includeExpired also lists entries awaiting expiry.
func (s *store) keys(now int64, substr string, includeExpired bool) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, 0, len(s.m))
	for k, e := range s.m {
		if !includeExpired && e.expired(now) {
			continue
		}
		if substr != "" && !strings.Contains(k, substr) {
			continue
		}
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

func (s *store) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.m)
}

func (s *store) size() (int, int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.m), s.totalSize
}

func (s *store) stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Stats{
		Hits:        s.hits,
		Misses:      s.misses,
		HitRate:     hitRate(s.hits, s.misses),
		TotalSize:   s.totalSize,
		MaxSize:     s.maxBytes,
		EntryCount:  len(s.m),
		Evictions:   s.evictions,
		Expirations: s.expirations,
	}
}

// -------------------- internals (mu held) --------------------

// removeLocked drops e and journals the deletion.
func (s *store) removeLocked(e *entry) {
	s.unlinkLocked(e)
	if s.journal != nil {
		s.journal.Remove(e.key)
	}
}

// unlinkLocked drops e from the map and the size total only.
func (s *store) unlinkLocked(e *entry) {
	delete(s.m, e.key)
	s.totalSize -= e.size
	if s.totalSize < 0 {
		s.totalSize = 0
	}
}

// expireLocked removes expired entries other than skip.
func (s *store) expireLocked(skip string, now int64) []removal {
	var removed []removal
	for k, e := range s.m {
		if k == skip || !e.expired(now) {
			continue
		}
		s.removeLocked(e)
		s.expirations++
		removed = append(removed, removal{key: k, reason: EvictTTL})
	}
	return removed
}
