package alloc

import (
	"fmt"
	"os"
	"sync/atomic"
	"unsafe"
)

// slabBlockCount is how many blocks of a bucket's size are carved from a
// single system allocation when a free list runs dry.
const slabBlockCount = 512

// blockAllocator is B.1: a fixed block size served from per-worker LIFO
// free-lists, plus one lock-free stack shared by every caller that is not
// a pool worker. Each per-worker list is touched only by the worker that
// currently owns it — alloc pops from the calling worker's list, free
// pushes onto the calling worker's list regardless of who originally
// allocated the block — so those lists need no locking. The shared
// fallback is different: any number of non-worker goroutines can call in
// concurrently (this package is meant to work standalone, before a
// scheduler ever calls SetScheduler), so it is backed by the same
// lockFreeStack used for large buckets rather than a plain slice.
type blockAllocator struct {
	blockSize uintptr
	workerID  func() (int, bool)
	freeLists []freeList
	fallback  lockFreeStack

	allocatedBlocks atomic.Int64
	usedBlocks      atomic.Int64
}

// freeList is one worker's stack of free blocks for one bucket size.
// Single-writer: only ever touched by the worker it belongs to.
type freeList struct {
	blocks []unsafe.Pointer
}

// newBlockAllocator reserves one free-list per worker; callers that are
// not pool workers go through the shared lock-free fallback instead (see
// blockAllocator's doc comment).
func newBlockAllocator(blockSize uintptr, numWorkers int, workerID func() (int, bool)) *blockAllocator {
	if blockSize < 8 {
		panic(fmt.Sprintf("alloc: block size %d is below the 8-byte minimum", blockSize))
	}
	return &blockAllocator{
		blockSize: blockSize,
		workerID:  workerID,
		freeLists: make([]freeList, numWorkers),
	}
}

// alloc pops a block for the calling goroutine, refilling from a fresh
// slab first if its list (or the shared fallback) is empty. ok is false
// only when the system allocator failed to carve a refill slab — the
// small path is Reported, not Fatal, so callers get a nil pointer to
// propagate instead of a panic.
func (b *blockAllocator) alloc() (unsafe.Pointer, bool) {
	id, ok := b.workerID()
	if !ok {
		return b.allocFallback()
	}
	fl := &b.freeLists[id]
	if len(fl.blocks) == 0 {
		if !b.refill(fl) {
			return nil, false
		}
	}
	n := len(fl.blocks) - 1
	p := fl.blocks[n]
	fl.blocks = fl.blocks[:n]
	b.usedBlocks.Add(1)
	return p, true
}

// allocFallback serves alloc() for non-worker callers: pop from the
// shared stack, carving a fresh slab onto it (one push per block) when
// it runs dry.
func (b *blockAllocator) allocFallback() (unsafe.Pointer, bool) {
	if p, ok := b.fallback.pop(); ok {
		b.usedBlocks.Add(1)
		return p, true
	}
	if !b.refillFallback() {
		return nil, false
	}
	p, ok := b.fallback.pop()
	if !ok {
		return nil, false
	}
	b.usedBlocks.Add(1)
	return p, true
}

func (b *blockAllocator) free(p unsafe.Pointer) {
	if id, ok := b.workerID(); ok {
		fl := &b.freeLists[id]
		fl.blocks = append(fl.blocks, p)
	} else {
		b.fallback.push(p)
	}
	b.usedBlocks.Add(-1)
}

// refill carves a fresh slab into blockSize chunks and pushes all of
// them onto fl. fl belongs to whichever worker is currently calling, so
// no other worker can be carving into the same slice concurrently.
// Reports (prints the failing size and returns false) rather than
// aborting the process — the small path is not fatal.
func (b *blockAllocator) refill(fl *freeList) bool {
	slab, ok := b.carveSlab()
	if !ok {
		return false
	}
	if fl.blocks == nil {
		fl.blocks = make([]unsafe.Pointer, 0, slabBlockCount)
	}
	base := uintptr(slab)
	for i := uintptr(0); i < slabBlockCount; i++ {
		fl.blocks = append(fl.blocks, unsafe.Pointer(base+i*b.blockSize))
	}
	return true
}

// refillFallback carves a fresh slab and pushes its blocks onto the
// shared lock-free stack, one CAS-push per block, safe for any number of
// concurrent callers racing to refill at once.
func (b *blockAllocator) refillFallback() bool {
	slab, ok := b.carveSlab()
	if !ok {
		return false
	}
	base := uintptr(slab)
	for i := uintptr(0); i < slabBlockCount; i++ {
		b.fallback.push(unsafe.Pointer(base + i*b.blockSize))
	}
	return true
}

func (b *blockAllocator) carveSlab() (unsafe.Pointer, bool) {
	total := b.blockSize * slabBlockCount
	slab := sysAlignedAlloc(8, total)
	if slab == nil {
		fmt.Fprintf(os.Stderr, "alloc: system allocation failed carving a %d-byte slab\n", total)
		return nil, false
	}
	b.allocatedBlocks.Add(slabBlockCount)
	return slab, true
}

// reserve tops up the calling worker's list until it holds at least
// count free blocks, carving additional slabs as needed. Stops early,
// with whatever it managed to carve, if a refill fails. A no-op for
// non-worker callers — the shared fallback has no per-caller list to
// pre-populate.
func (b *blockAllocator) reserve(count int) {
	id, ok := b.workerID()
	if !ok {
		return
	}
	fl := &b.freeLists[id]
	for len(fl.blocks) < count {
		if !b.refill(fl) {
			return
		}
	}
}

func (b *blockAllocator) numAllocatedBlocks() int64 { return b.allocatedBlocks.Load() }
func (b *blockAllocator) numUsedBlocks() int64      { return b.usedBlocks.Load() }
