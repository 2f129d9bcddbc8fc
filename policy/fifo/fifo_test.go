package fifo

import (
	"testing"

	"github.com/IvanBrykalov/respcache/policy"
	"github.com/IvanBrykalov/respcache/policy/lru"
	"github.com/stretchr/testify/assert"
)

type testNode struct {
	k    string
	ts   int64
	hits uint64
	seq  uint64
}

func (n *testNode) Key() string     { return n.k }
func (n *testNode) Inserted() int64 { return n.ts }
func (n *testNode) Hits() uint64    { return n.hits }
func (n *testNode) Seq() uint64     { return n.seq }

// fifo and lru must produce the same eviction order.
func TestFIFO_SameOrderAsLRU(t *testing.T) {
	t.Parallel()

	mk := func() []*testNode {
		return []*testNode{
			{k: "b", ts: 20, hits: 0, seq: 2},
			{k: "a", ts: 10, hits: 9, seq: 1},
			{k: "d", ts: 20, hits: 1, seq: 4},
			{k: "c", ts: 15, hits: 3, seq: 3},
		}
	}
	f := policy.Victims(New(), mk(), 1)
	l := policy.Victims(lru.New(), mk(), 1)

	var fk, lk []string
	for i := range f {
		fk = append(fk, f[i].k)
		lk = append(lk, l[i].k)
	}
	assert.Equal(t, []string{"a", "c", "b", "d"}, fk)
	assert.Equal(t, fk, lk)
}
