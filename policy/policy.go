// Package policy defines how eviction candidates are ranked.
package policy

import (
	"math"
	"slices"
)

// Candidate is the read-only view of a cache entry a policy ranks.
type Candidate interface {
	Key() string
	// Inserted is the insertion time in UnixNano. It is not refreshed on read.
	Inserted() int64
	// Hits counts successful reads of the entry.
	Hits() uint64
	// Seq is a per-cache insertion counter, used to break ties deterministically.
	Seq() uint64
}

// Policy orders candidates from first-to-evict to last-to-evict.
// Implementations must be stateless and safe for concurrent use.
type Policy interface {
	Name() string
	// Less reports whether a should be evicted before b.
	Less(a, b Candidate) bool
}

// DefaultFraction is the share of the population removed per eviction pass.
const DefaultFraction = 0.10

// Victims ranks cs with p and returns the lowest-ranked ceil(fraction*len(cs))
// candidates, at least one when cs is non-empty. cs is sorted in place.
func Victims[C Candidate](p Policy, cs []C, fraction float64) []C {
	if len(cs) == 0 {
		return nil
	}
	slices.SortStableFunc(cs, func(a, b C) int {
		switch {
		case p.Less(a, b):
			return -1
		case p.Less(b, a):
			return 1
		}
		return 0
	})
	return cs[:Count(len(cs), fraction)]
}

// Count returns how many of n candidates one pass removes.
func Count(n int, fraction float64) int {
	if n <= 0 {
		return 0
	}
	// epsilon keeps 30*0.1 from rounding up to 4
	k := int(math.Ceil(float64(n)*fraction - 1e-9))
	if k < 1 {
		k = 1
	}
	if k > n {
		k = n
	}
	return k
}

// BySeq orders by insertion counter only.
func BySeq(a, b Candidate) bool { return a.Seq() < b.Seq() }
