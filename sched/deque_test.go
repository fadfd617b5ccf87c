package sched

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDequePushPopOwnerOnly(t *testing.T) {
	d := NewDeque()
	_, ok := d.PopBottom()
	require.False(t, ok, "empty deque should not yield a job")

	var ran []int
	for i := 0; i < 5; i++ {
		i := i
		d.PushBottom(func() { ran = append(ran, i) })
	}
	for i := 4; i >= 0; i-- {
		job, ok := d.PopBottom()
		require.True(t, ok)
		job()
		assert.Equal(t, i, ran[len(ran)-1])
	}
	_, ok = d.PopBottom()
	assert.False(t, ok)
}

func TestDequeStealFromTop(t *testing.T) {
	d := NewDeque()
	var order []int
	for i := 0; i < 10; i++ {
		i := i
		d.PushBottom(func() { order = append(order, i) })
	}

	job, ok := d.PopTop()
	require.True(t, ok)
	job()
	assert.Equal(t, []int{0}, order)

	job, ok = d.PopBottom()
	require.True(t, ok)
	job()
	assert.Equal(t, 9, order[len(order)-1])
}

func TestDequeOverflowPanics(t *testing.T) {
	d := NewDeque()
	assert.Panics(t, func() {
		for i := 0; i < queueCapacity+1; i++ {
			d.PushBottom(func() {})
		}
	})
}

// TestDequeConcurrentStealNeverDuplicates exercises the invariant that a
// job is delivered to exactly one of the owner (via PopBottom) and any
// number of concurrent thieves (via PopTop): total jobs run must equal
// total jobs pushed, with no duplicates and no losses.
func TestDequeConcurrentStealNeverDuplicates(t *testing.T) {
	const n = queueCapacity
	d := NewDeque()
	var seen [n]atomic.Int32
	for i := 0; i < n; i++ {
		i := i
		d.PushBottom(func() { seen[i].Add(1) })
	}

	var ownerDone atomic.Bool
	var wg sync.WaitGroup
	for th := 0; th < 8; th++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				job, ok := d.PopTop()
				if ok {
					job()
					continue
				}
				if ownerDone.Load() {
					return
				}
			}
		}()
	}
	for {
		job, ok := d.PopBottom()
		if !ok {
			break
		}
		job()
	}
	ownerDone.Store(true)
	wg.Wait()

	total := 0
	for i := 0; i < n; i++ {
		c := seen[i].Load()
		require.LessOrEqual(t, c, int32(1), "job %d ran more than once", i)
		total += int(c)
	}
	assert.Equal(t, n, total)
}
