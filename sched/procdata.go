package sched

import "golang.org/x/sys/cpu"

// maxWorkers bounds N: the status word's head field is only 7 bits wide,
// so it can name at most 128 distinct workers (a worker's own id doubles
// as the "no children" sentinel).
const maxWorkers = 128

// procData is the per-worker state used by the lifeline extension. It is
// cache-line padded on both sides so that one worker's busy/priority
// churn never bounces a neighbor's cache line.
type procData struct {
	_ cpu.CacheLinePad

	seed   uint64
	status atomicStatusWord
	sem    *semaphore

	// children holds the lifeline linked list: children[w] is the next
	// child after w, or w itself as the terminator. Indexing by worker
	// id avoids any heap allocation on the parking path.
	children [maxWorkers]uint8

	_ cpu.CacheLinePad
}

func newProcData(n int, seed uint64) *procData {
	pd := &procData{seed: seed, sem: newSemaphore(n)}
	return pd
}
