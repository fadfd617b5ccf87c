package sched

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusPackRoundTrip(t *testing.T) {
	cases := []status{
		{busy: false, priority: 0, head: 0},
		{busy: true, priority: 1, head: 5},
		{busy: false, priority: priorityMask, head: uint8(headMask)},
		{busy: true, priority: 0x00abcdef, head: 42},
	}
	for _, c := range cases {
		got := unpackStatus(packStatus(c))
		assert.Equal(t, c, got)
	}
}

func TestAtomicStatusWordClearAndLoad(t *testing.T) {
	var w atomicStatusWord
	w.clear(123, 7)
	got := w.load()
	assert.False(t, got.busy)
	assert.Equal(t, uint64(123), got.priority)
	assert.Equal(t, uint8(7), got.head)
}

func TestAtomicStatusWordSetBusyBitPreservesHeadAndPriority(t *testing.T) {
	var w atomicStatusWord
	w.clear(99, 3)
	before := w.setBusyBit()
	assert.False(t, before.busy, "setBusyBit returns the pre-set snapshot")
	assert.Equal(t, uint64(99), before.priority)
	assert.Equal(t, uint8(3), before.head)

	after := w.load()
	assert.True(t, after.busy)
	assert.Equal(t, uint64(99), after.priority)
	assert.Equal(t, uint8(3), after.head)
}

func TestAtomicStatusWordCasHead(t *testing.T) {
	var w atomicStatusWord
	w.clear(1, 0)
	snap := w.load()
	assert.True(t, w.casHead(snap, 9))
	assert.Equal(t, uint8(9), w.load().head)

	// A stale snapshot must fail to CAS once the word has moved on.
	assert.False(t, w.casHead(snap, 2))
}
