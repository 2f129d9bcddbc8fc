// Package lru implements the "lru" eviction policy.
//
// Entries are ranked by insertion time, which is never refreshed on read,
// so the order is the same as policy/fifo. Callers rely on that ordering;
// true recency tracking would be a behavior change.
package lru

import "github.com/IvanBrykalov/respcache/policy"

type lru struct{}

// New returns the lru policy.
func New() policy.Policy { return lru{} }

func (lru) Name() string { return "lru" }

// Less evicts the oldest insertion first.
func (lru) Less(a, b policy.Candidate) bool {
	if a.Inserted() != b.Inserted() {
		return a.Inserted() < b.Inserted()
	}
	return policy.BySeq(a, b)
}
