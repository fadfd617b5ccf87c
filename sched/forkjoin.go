package sched

import (
	"runtime"
	"time"
)

// probeThreshold bounds how long Parfor's granularity probe runs before
// committing to a chunk size, expressed in wall-clock time rather than
// raw clock ticks (the ~1000-tick figure from the original, translated to
// a portable duration).
const probeThreshold = 10 * time.Microsecond

// Pardo forks left and right and waits for both to finish. right runs on
// (possibly) another worker's goroutine; left always runs inline on the
// caller. conservative, if true, waits by yielding instead of re-entering
// the scheduler — slower, but safe when left/right hold locks that a
// stolen job elsewhere in the program might also need, where recursive
// scheduling could deadlock.
func (p *Pool) Pardo(left, right func(), conservative bool) {
	rightDone := make(chan struct{})
	rightJob := func() {
		right()
		close(rightDone)
	}
	p.Spawn(rightJob)
	left()

	if job, ok := p.tryPop(); ok {
		// We beat every thief to our own spawn: run it inline instead
		// of waiting on a goroutine nobody else will ever execute.
		job()
		return
	}

	id, _ := p.reg.lookup()
	finished := func() bool {
		select {
		case <-rightDone:
			return true
		default:
			return false
		}
	}
	if conservative {
		for !finished() {
			runtime.Gosched()
		}
		return
	}
	p.start(id, finished)
}

// getGranularity sequentially runs body over doubling-size chunks
// starting at lo until either probeThreshold elapses or the range is
// exhausted, and returns how many elements it consumed. This mirrors the
// original's get_granularity, used only when the caller leaves
// granularity at zero.
func getGranularity(lo, hi int, body func(int)) int {
	done := 0
	size := 1
	for {
		if size > hi-(lo+done) {
			size = hi - (lo + done)
		}
		start := time.Now()
		for i := 0; i < size; i++ {
			body(lo + done + i)
		}
		elapsed := time.Since(start)
		done += size
		size *= 2
		if elapsed >= probeThreshold || done >= hi-lo {
			return done
		}
	}
}

// Parfor runs body(i) for i in [lo,hi), splitting work recursively via
// Pardo once the remaining range exceeds granularity. granularity==0
// triggers the probe above to pick one automatically.
func (p *Pool) Parfor(lo, hi int, body func(int), granularity int, conservative bool) {
	if hi <= lo {
		return
	}
	if granularity == 0 {
		done := getGranularity(lo, hi, body)
		granularity = done
		if g := (hi - lo) / (128 * p.numWorkers); g > granularity {
			granularity = g
		}
		p.parforSplit(lo+done, hi, body, granularity, conservative)
		return
	}
	p.parforSplit(lo, hi, body, granularity, conservative)
}

func (p *Pool) parforSplit(lo, hi int, body func(int), granularity int, conservative bool) {
	if hi-lo <= granularity {
		for i := lo; i < hi; i++ {
			body(i)
		}
		return
	}
	n := hi - lo
	// Biased off-center (9/16 rather than 1/2) to avoid set-associative
	// cache aliasing between the two halves on power-of-two sized ranges.
	mid := lo + 9*(n+1)/16
	p.Pardo(
		func() { p.parforSplit(lo, mid, body, granularity, conservative) },
		func() { p.parforSplit(mid, hi, body, granularity, conservative) },
		conservative,
	)
}
