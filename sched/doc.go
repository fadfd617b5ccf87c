// Package sched implements a fixed-size work-stealing fork/join scheduler:
// a pool of worker goroutines, each owning a bounded lock-free deque, random
// victim selection, and an elastic "lifeline" extension that parks idle
// workers instead of spinning. Pardo and Parfor are the fork/join and
// data-parallel surfaces built on top of the pool.
package sched
