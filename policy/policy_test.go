package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type cand struct{ seq uint64 }

func (c cand) Key() string     { return "" }
func (c cand) Inserted() int64 { return 0 }
func (c cand) Hits() uint64    { return 0 }
func (c cand) Seq() uint64     { return c.seq }

type seqPolicy struct{}

func (seqPolicy) Name() string              { return "seq" }
func (seqPolicy) Less(a, b Candidate) bool { return BySeq(a, b) }

func TestCount(t *testing.T) {
	t.Parallel()

	cases := []struct {
		n    int
		want int
	}{
		{0, 0}, {1, 1}, {5, 1}, {10, 1}, {11, 2}, {20, 2}, {25, 3}, {30, 3}, {31, 4}, {100, 10},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Count(tc.n, DefaultFraction), "n=%d", tc.n)
	}
	assert.Equal(t, 3, Count(3, 5), "clamped to population")
}

func TestVictims_Empty(t *testing.T) {
	t.Parallel()

	assert.Nil(t, Victims[cand](seqPolicy{}, nil, DefaultFraction))
}

func TestVictims_SortsInPlace(t *testing.T) {
	t.Parallel()

	cs := []cand{{3}, {1}, {2}}
	v := Victims(seqPolicy{}, cs, 0.5)
	assert.Equal(t, []cand{{1}, {2}}, v)
	assert.Equal(t, []cand{{1}, {2}, {3}}, cs)
}
