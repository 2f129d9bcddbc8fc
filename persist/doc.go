// Package persist mirrors cache entries into a durable key-value store.
//
// Persistence is a best-effort side channel. A Mirror queues writes and
// deletes for a single worker goroutine, so callers never wait on the store,
// and every store failure is logged and dropped. On startup Load returns the
// records previously saved for one cache; the cache decides which are still
// live.
//
// Two stores are provided: MemoryStore (optionally quota-limited) and FSStore,
// which keeps one file per key on a go-billy filesystem (osfs for disk,
// memfs for tests).
package persist
