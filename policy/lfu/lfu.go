// Package lfu implements least-frequently-used eviction.
package lfu

import "github.com/IvanBrykalov/respcache/policy"

type lfu struct{}

// New returns the lfu policy.
func New() policy.Policy { return lfu{} }

func (lfu) Name() string { return "lfu" }

// Less evicts the least-read entry first; equal hit counts fall back to
// insertion order.
func (lfu) Less(a, b policy.Candidate) bool {
	if a.Hits() != b.Hits() {
		return a.Hits() < b.Hits()
	}
	return policy.BySeq(a, b)
}
