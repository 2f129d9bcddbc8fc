// Package fifo implements first-in-first-out eviction.
package fifo

import "github.com/IvanBrykalov/respcache/policy"

type fifo struct{}

// New returns the fifo policy.
func New() policy.Policy { return fifo{} }

func (fifo) Name() string { return "fifo" }

func (fifo) Less(a, b policy.Candidate) bool {
	if a.Inserted() != b.Inserted() {
		return a.Inserted() < b.Inserted()
	}
	return policy.BySeq(a, b)
}
