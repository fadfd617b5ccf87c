package alloc

import (
	"fmt"
	"sort"
	"sync/atomic"
	"unsafe"
)

const (
	largeThreshold   = 1 << 16
	largeAlign       = 64
	firstTouchStride = 1 << 21 // 2 MiB, a huge-page-sized stride
)

// PoolAllocator is B.2: a vector of size buckets, small ones backed by a
// blockAllocator with per-worker free-lists, large ones backed by a
// shared lockFreeStack of previously used slabs. workerID and parfor are
// supplied by the caller rather than imported from sched, so this
// package never depends on the scheduler package directly.
type PoolAllocator struct {
	sizes    []uintptr
	numSmall int
	maxSmall uintptr
	maxSize  uintptr

	smallAllocators []*blockAllocator
	largeBuckets    []lockFreeStack

	largeAllocated atomic.Int64

	parfor func(lo, hi int, body func(int), granularity int, conservative bool)
}

// NewPoolAllocator builds a pool allocator over sizes, a strictly
// increasing vector of bucket sizes each at least 8 bytes. workerID
// reports the calling goroutine's worker id (ok=false routes through the
// shared fallback bucket); parfor drives large allocations' first-touch
// pass and may be nil to skip it.
func NewPoolAllocator(
	sizes []uintptr,
	numWorkers int,
	workerID func() (int, bool),
	parfor func(lo, hi int, body func(int), granularity int, conservative bool),
) *PoolAllocator {
	if len(sizes) == 0 {
		panic("alloc: pool allocator needs at least one bucket size")
	}
	prev := uintptr(0)
	for _, s := range sizes {
		if s < 8 {
			panic(fmt.Sprintf("alloc: bucket size %d is below the 8-byte minimum", s))
		}
		if s <= prev {
			panic("alloc: bucket sizes must be strictly increasing")
		}
		prev = s
	}

	p := &PoolAllocator{
		sizes:   sizes,
		maxSize: sizes[len(sizes)-1],
		parfor:  parfor,
	}
	for p.numSmall < len(sizes) && sizes[p.numSmall] < largeThreshold {
		p.numSmall++
	}
	if p.numSmall > 0 {
		p.maxSmall = sizes[p.numSmall-1]
	}

	p.smallAllocators = make([]*blockAllocator, p.numSmall)
	for i := 0; i < p.numSmall; i++ {
		p.smallAllocators[i] = newBlockAllocator(sizes[i], numWorkers, workerID)
	}
	p.largeBuckets = make([]lockFreeStack, len(sizes)-p.numSmall)
	return p
}

// smallBucket finds the smallest bucket index among the small buckets
// whose size is >= n. Callers must already know n <= maxSmall.
func (p *PoolAllocator) smallBucket(n uintptr) int {
	return sort.Search(p.numSmall, func(i int) bool { return p.sizes[i] >= n })
}

// bucket finds the smallest bucket index (small or large) whose size is
// >= n, over the whole sizes vector.
func (p *PoolAllocator) bucket(n uintptr) int {
	return sort.Search(len(p.sizes), func(i int) bool { return p.sizes[i] >= n })
}

// Allocate returns n bytes from the matching bucket, or a fresh
// system-aligned allocation above the largest configured bucket. On the
// small path, a system-allocation failure while refilling a free list is
// Reported rather than Fatal: Allocate returns nil and leaves the
// diagnostic to whatever refill already printed.
func (p *PoolAllocator) Allocate(n uintptr) unsafe.Pointer {
	if n <= p.maxSmall {
		ptr, ok := p.smallAllocators[p.smallBucket(n)].alloc()
		if !ok {
			return nil
		}
		return ptr
	}
	return p.allocateLarge(n)
}

func (p *PoolAllocator) allocateLarge(n uintptr) unsafe.Pointer {
	if n <= p.maxSize {
		b := p.bucket(n)
		if ptr, ok := p.largeBuckets[b-p.numSmall].pop(); ok {
			return ptr
		}
	}

	a := sysAlignedAlloc(largeAlign, n)
	if a == nil {
		panic(fmt.Sprintf("alloc: system allocation failed on size %d", n))
	}
	p.largeAllocated.Add(int64(n))
	p.firstTouch(a, n)
	return a
}

// firstTouch writes one byte per 2 MiB stride of a, spread across
// workers via parfor, so the OS faults each page from the worker that
// will actually use it rather than all on the allocating thread.
func (p *PoolAllocator) firstTouch(a unsafe.Pointer, n uintptr) {
	if p.parfor == nil {
		return
	}
	strides := int(n / firstTouchStride)
	if strides == 0 {
		return
	}
	base := uintptr(a)
	p.parfor(0, strides, func(i int) {
		*(*byte)(unsafe.Pointer(base + uintptr(i)*firstTouchStride)) = 0
	}, 0, false)
}

// Deallocate returns ptr, previously obtained from Allocate(n) with the
// same n, to its bucket (or the system, above the largest bucket).
func (p *PoolAllocator) Deallocate(ptr unsafe.Pointer, n uintptr) {
	switch {
	case n > p.maxSize:
		sysFree(ptr)
		p.largeAllocated.Add(-int64(n))
	case n > p.maxSmall:
		b := p.bucket(n)
		p.largeBuckets[b-p.numSmall].push(ptr)
	default:
		p.smallAllocators[p.smallBucket(n)].free(ptr)
	}
}

// Clear drains every large bucket's cached slabs back to the system.
// Idempotent: calling it again on already-empty buckets is a no-op.
func (p *PoolAllocator) Clear() {
	for i := range p.largeBuckets {
		size := int64(p.sizes[p.numSmall+i])
		for {
			ptr, ok := p.largeBuckets[i].pop()
			if !ok {
				break
			}
			sysFree(ptr)
			p.largeAllocated.Add(-size)
		}
	}
}

// Reserve pre-populates the calling worker's free-list for the bucket
// holding size n with at least count blocks, so a subsequent burst of
// allocations at that size does not pay slab-carving cost inline. Only
// meaningful for small buckets; reserving a large size is a no-op, since
// large slabs are cached lazily by whatever gets deallocated.
func (p *PoolAllocator) Reserve(n uintptr, count int) {
	if n > p.maxSmall {
		return
	}
	p.smallAllocators[p.smallBucket(n)].reserve(count)
}

// LargeAllocated reports bytes currently held by the large path (system
// allocations not yet returned, whether cached or live in caller hands).
func (p *PoolAllocator) LargeAllocated() int64 { return p.largeAllocated.Load() }
