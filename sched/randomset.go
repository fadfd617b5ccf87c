package sched

import (
	"context"
	"sync/atomic"
)

// randomSet is the scheduler's ConcurrentRandomSet: a per-worker flag
// array marking which workers are currently parked on the lifeline. It is
// not required for correctness (nothing else depends on its contents) —
// it exists for diagnostics and for tests that observe lifeline liveness.
type randomSet struct {
	flags []atomic.Bool
}

func newRandomSet(n int, init bool) *randomSet {
	rs := &randomSet{flags: make([]atomic.Bool, n)}
	for i := range rs.flags {
		rs.flags[i].Store(init)
	}
	return rs
}

func (rs *randomSet) add(i int)    { rs.flags[i].Store(true) }
func (rs *randomSet) remove(i int) { rs.flags[i].Store(false) }
func (rs *randomSet) exists(i int) bool {
	return rs.flags[i].Load()
}

// members returns the ids currently flagged, for diagnostics.
func (rs *randomSet) members() []int {
	out := make([]int, 0, len(rs.flags))
	for i := range rs.flags {
		if rs.flags[i].Load() {
			out = append(out, i)
		}
	}
	return out
}

// sample busy-loops until rng() lands on a flagged member, exactly like
// the original ConcurrentRandomSet.sample. The original only ever calls it
// when at least one element is known to be present and never returns
// otherwise; a port should assert that precondition rather than guess, so
// here the caller supplies a context and sample returns false if it is
// cancelled before a member is found, instead of spinning forever.
func (rs *randomSet) sample(ctx context.Context, rng func() int) (int, bool) {
	for {
		select {
		case <-ctx.Done():
			return 0, false
		default:
		}
		n := len(rs.flags)
		if n == 0 {
			return 0, false
		}
		i := rng() % n
		if rs.flags[i].Load() {
			return i, true
		}
	}
}
