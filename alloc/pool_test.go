package alloc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func singleWorkerID() (int, bool) { return 0, true }

func sequentialParfor(lo, hi int, body func(int), granularity int, conservative bool) {
	for i := lo; i < hi; i++ {
		body(i)
	}
}

func TestNewPoolAllocatorRejectsBadSizes(t *testing.T) {
	assert.Panics(t, func() {
		NewPoolAllocator([]uintptr{4, 8}, 1, singleWorkerID, nil)
	})
	assert.Panics(t, func() {
		NewPoolAllocator([]uintptr{16, 16}, 1, singleWorkerID, nil)
	})
	assert.Panics(t, func() {
		NewPoolAllocator(nil, 1, singleWorkerID, nil)
	})
}

func TestPoolAllocatorSmallBucketRoutesBySizeBoundary(t *testing.T) {
	sizes := []uintptr{16, 32, 64}
	p := NewPoolAllocator(sizes, 1, singleWorkerID, sequentialParfor)

	assert.Equal(t, 0, p.smallBucket(16))
	assert.Equal(t, 1, p.smallBucket(17))
	assert.Equal(t, 1, p.smallBucket(32))
	assert.Equal(t, 2, p.smallBucket(33))
}

func TestPoolAllocatorSmallAllocDeallocRoundTrip(t *testing.T) {
	p := NewPoolAllocator([]uintptr{16, 64, 256}, 1, singleWorkerID, sequentialParfor)
	ptr := p.Allocate(40)
	require.NotNil(t, ptr)
	p.Deallocate(ptr, 40)

	stats := p.Stats()
	require.Len(t, stats.Buckets, 3)
	assert.EqualValues(t, 0, stats.Buckets[1].Used)
}

func TestPoolAllocatorLargeAllocationCachesOnDeallocate(t *testing.T) {
	small := uintptr(1 << 10)
	large := uintptr(1 << 17) // above largeThreshold
	p := NewPoolAllocator([]uintptr{small, large}, 1, singleWorkerID, sequentialParfor)

	ptr := p.Allocate(large)
	require.NotNil(t, ptr)
	assert.EqualValues(t, large, p.LargeAllocated())

	p.Deallocate(ptr, large)
	// Cached, not released: large_allocated stays charged until Clear.
	assert.EqualValues(t, large, p.LargeAllocated())

	ptr2 := p.Allocate(large)
	assert.Equal(t, ptr, ptr2, "a cached slab should be reused before a fresh system allocation")

	p.Deallocate(ptr2, large)
	p.Clear()
	assert.EqualValues(t, 0, p.LargeAllocated())
}

func TestPoolAllocatorAboveMaxSizeGoesStraightToSystem(t *testing.T) {
	p := NewPoolAllocator([]uintptr{16, 1 << 17}, 1, singleWorkerID, sequentialParfor)

	huge := uintptr(1 << 20)
	ptr := p.Allocate(huge)
	require.NotNil(t, ptr)
	assert.EqualValues(t, huge, p.LargeAllocated())

	p.Deallocate(ptr, huge)
	assert.EqualValues(t, 0, p.LargeAllocated(), "above max_size, deallocate releases straight back to the system")
}

func TestPoolAllocatorReserveOnlyAffectsSmallBuckets(t *testing.T) {
	p := NewPoolAllocator([]uintptr{16, 1 << 17}, 1, singleWorkerID, sequentialParfor)
	p.Reserve(16, 10)
	assert.GreaterOrEqual(t, len(p.smallAllocators[0].freeLists[0].blocks), 10)

	// Reserving a large size is a documented no-op; it must not panic.
	p.Reserve(1<<17, 10)
}

func TestPoolAllocatorClearIsIdempotent(t *testing.T) {
	p := NewPoolAllocator([]uintptr{16, 1 << 17}, 1, singleWorkerID, sequentialParfor)
	p.Clear()
	p.Clear()
	assert.EqualValues(t, 0, p.LargeAllocated())
}

func TestPoolAllocatorFirstTouchRunsViaParfor(t *testing.T) {
	var touched int
	parfor := func(lo, hi int, body func(int), granularity int, conservative bool) {
		for i := lo; i < hi; i++ {
			touched++
			body(i)
		}
	}
	p := NewPoolAllocator([]uintptr{16, 1 << 17}, 1, singleWorkerID, parfor)
	ptr := p.Allocate(firstTouchStride * 3)
	require.NotNil(t, ptr)
	assert.Equal(t, 3, touched)
	p.Deallocate(ptr, firstTouchStride*3)
	p.Clear()
}
