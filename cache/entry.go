package cache

import (
	"time"

	"github.com/IvanBrykalov/respcache/persist"
	"github.com/IvanBrykalov/respcache/policy"
)

// entry is one stored value plus the metadata used by expiry, eviction
// and size accounting. data is never mutated after insertion; a Set on the
// same key installs a new entry.
type entry struct {
	key string

	// Stored representation (JSON, gzip-compressed when compressed is set).
	data       []byte
	compressed bool

	// raw holds the original value when it could not be serialized.
	// Such entries have size 0 and are never persisted.
	raw       any
	unencoded bool

	// Insertion time in UnixNano. Not refreshed on read.
	timestamp int64
	ttl       time.Duration

	hits uint64
	size int64

	// Insertion sequence within the owning store; breaks ranking ties.
	seq uint64
}

func (e *entry) Key() string     { return e.key }
func (e *entry) Inserted() int64 { return e.timestamp }
func (e *entry) Hits() uint64    { return e.hits }
func (e *entry) Seq() uint64     { return e.seq }

// expired reports whether now - timestamp > ttl.
func (e *entry) expired(now int64) bool { return now-e.timestamp > int64(e.ttl) }

func (e *entry) record() persist.Record {
	return persist.Record{
		Key:        e.key,
		Data:       e.data,
		Timestamp:  e.timestamp,
		TTL:        e.ttl,
		Size:       e.size,
		Compressed: e.compressed,
	}
}

var _ policy.Candidate = (*entry)(nil)
