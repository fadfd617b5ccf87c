// Package alloc implements a thread-aware pool allocator: per-worker
// block free-lists for small sizes, a shared cache of aligned slabs for
// large sizes, and a size-tagged wrapper for callers that cannot track
// allocation sizes themselves.
//
// The package has no hard dependency on sched; worker affinity and
// parallel first-touch are supplied by the caller as plain functions
// (see SetScheduler), so a PoolAllocator can be built and used standalone
// for single-threaded tests.
package alloc
