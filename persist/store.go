package persist

import (
	"context"
	stderrors "errors"
	"time"
)

var (
	// ErrNotFound is returned by Store.Get for an unknown key.
	ErrNotFound = stderrors.New("persist: key not found")
	// ErrQuotaExceeded is returned by a Store that is out of space.
	ErrQuotaExceeded = stderrors.New("persist: quota exceeded")
	// ErrClosed is returned by Mirror.Flush after Close.
	ErrClosed = stderrors.New("persist: mirror closed")
)

// Store is an opaque durable key-value target.
// Implementations must be safe for concurrent use.
type Store interface {
	Put(ctx context.Context, key string, value []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Keys lists every stored key with the given prefix, sorted.
	Keys(ctx context.Context, prefix string) ([]string, error)
}

// Record is the persisted form of one cache entry.
type Record struct {
	Key        string        `json:"key"`
	Data       []byte        `json:"data"`
	Timestamp  int64         `json:"timestamp"` // UnixNano
	TTL        time.Duration `json:"ttl"`
	Size       int64         `json:"size"`
	Compressed bool          `json:"compressed"`
}

// Expired reports whether the record's TTL has elapsed at now (UnixNano).
func (r Record) Expired(now int64) bool {
	return now-r.Timestamp > int64(r.TTL)
}
