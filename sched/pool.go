package sched

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

// Backend selects between the two steal-loop implementations the original
// source ships side by side, left as a deliberately open choice rather than
// collapsed into one: a plain ABP scheduler that busy-spins with a sleep
// backoff, and the elastic/lifeline scheduler that parks idle workers
// instead. Both are exposed behind the same Pool/Scheduler surface so
// callers choose without a build flag.
type Backend int

const (
	BackendLifeline Backend = iota
	BackendSimple
)

// PoolOptions configures a Pool. A zero value is valid: NumWorkers is
// resolved from NUM_THREADS/hardware concurrency and Backend defaults to
// the lifeline-extended scheduler.
type PoolOptions struct {
	// NumWorkers overrides detection. Zero means "detect": read
	// NUM_THREADS from the environment, falling back to
	// runtime.NumCPU(). Values above 128 are fatal, per the status
	// word's 7-bit head field.
	NumWorkers int
	Backend    Backend
}

// Pool is the fixed array of deques and worker goroutines underlying
// Scheduler. Exactly NumWorkers() goroutines run for the pool's lifetime;
// id 0 is the goroutine that called NewPool.
type Pool struct {
	numWorkers int
	numDeques  int
	deques     []*Deque
	backend    Backend

	data     []*procData   // lifeline backend only, len == numWorkers
	attempts []atomic.Uint64 // simple backend only, len == numDeques

	finished atomic.Bool
	reg      *registry
	parked   *randomSet
	wg       sync.WaitGroup
}

// NewPool constructs the pool, spawning NumWorkers()-1 helper goroutines;
// the calling goroutine becomes worker 0 but does not itself enter the
// steal loop until it later calls Pardo/Parfor and needs to wait for a
// spawned job — exactly as in the original, where the constructing thread
// is thread_id 0 but only runs start() from within wait().
func NewPool(opts PoolOptions) *Pool {
	n := resolveNumWorkers(opts.NumWorkers)

	p := &Pool{
		numWorkers: n,
		numDeques:  2 * n,
		backend:    opts.Backend,
		reg:        newRegistry(),
		parked:     newRandomSet(n, false),
	}
	p.deques = make([]*Deque, p.numDeques)
	for i := range p.deques {
		p.deques[i] = NewDeque()
	}

	switch p.backend {
	case BackendLifeline:
		p.data = make([]*procData, n)
		for i := 0; i < n; i++ {
			seed := splitmix64(uint64(i) + 1)
			pd := newProcData(n, seed)
			pd.status.clear(priorityOf(splitmix64(seed)), uint8(i))
			p.data[i] = pd
		}
	default:
		p.attempts = make([]atomic.Uint64, p.numDeques)
	}

	p.reg.bind(0)

	p.wg.Add(n - 1)
	for i := 1; i < n; i++ {
		go func(id int) {
			defer p.wg.Done()
			defer p.reg.unbind()
			p.reg.bind(id)
			p.start(id, p.isFinished)
		}(i)
	}
	return p
}

func resolveNumWorkers(requested int) int {
	n := requested
	if n == 0 {
		if v := os.Getenv("NUM_THREADS"); v != "" {
			if parsed, err := strconv.Atoi(v); err == nil && parsed >= 1 {
				n = parsed
			}
		}
	}
	if n == 0 {
		n = runtime.NumCPU()
	}
	if n > maxWorkers {
		panic(fmt.Sprintf("sched: NUM_THREADS=%d exceeds the %d-worker limit", n, maxWorkers))
	}
	if n < 1 {
		n = 1
	}
	return n
}

func (p *Pool) isFinished() bool { return p.finished.Load() }

// NumWorkers returns N, the fixed worker count.
func (p *Pool) NumWorkers() int { return p.numWorkers }

// WorkerID returns the calling goroutine's worker id, or ok=false if the
// calling goroutine is not one of the pool's workers (e.g. it never went
// through bind). Callers outside the pool should route through a shared
// fallback instead of assuming 0, unlike the original's thread_local
// default.
func (p *Pool) WorkerID() (int, bool) { return p.reg.lookup() }

// ParkedWorkers returns the ids currently parked on the lifeline, for
// diagnostics and liveness tests.
func (p *Pool) ParkedWorkers() []int { return p.parked.members() }

// Spawn pushes job onto the calling worker's local deque. job's lifetime
// must extend to the matching join; raw Spawn is a sharp edge (the
// scheduler only ever holds a non-owning reference) — prefer Pardo/Parfor,
// which scope the job to the call that spawned it.
func (p *Pool) Spawn(job Job) {
	id, ok := p.reg.lookup()
	if !ok {
		panic("sched: Spawn called from a goroutine that is not a pool worker")
	}
	p.deques[id].PushBottom(job)
}

// tryPop pops from the calling worker's own deque, or reports ok=false if
// the caller is not a worker or its deque is empty.
func (p *Pool) tryPop() (Job, bool) {
	id, ok := p.reg.lookup()
	if !ok {
		return nil, false
	}
	return p.deques[id].PopBottom()
}

// start runs until finished() holds, executing one job per getJob result.
func (p *Pool) start(id int, finished func() bool) {
	for {
		job, ok := p.getJob(id, finished)
		if !ok {
			return
		}
		job()
	}
}

func (p *Pool) getJob(id int, finished func() bool) (Job, bool) {
	if finished() {
		return nil, false
	}
	if job, ok := p.deques[id].PopBottom(); ok {
		return job, true
	}
	if p.backend == BackendLifeline {
		return p.getJobLifeline(id, finished)
	}
	return p.getJobSimple(id, finished)
}

// getJobSimple is the plain ABP steal loop: by the coupon collector's
// problem, numDeques*100 random probes should touch every deque at least
// once before backing off to a short sleep.
func (p *Pool) getJobSimple(id int, finished func() bool) (Job, bool) {
	for {
		for i := 0; i <= p.numDeques*100; i++ {
			if finished() {
				return nil, false
			}
			if job, ok := p.trySteal(id); ok {
				return job, true
			}
		}
		if finished() {
			return nil, false
		}
		time.Sleep(time.Duration(p.numDeques*100) * time.Nanosecond)
	}
}

func (p *Pool) trySteal(id int) (Job, bool) {
	target := int((splitmix64(uint64(id)) + splitmix64(p.attempts[id].Add(1))) % uint64(p.numDeques))
	if target == id {
		return nil, false
	}
	return p.deques[target].PopTop()
}

// getJobLifeline is the elastic steal loop: on success it wakes every
// worker transitively parked on this worker's lifeline; on failure it may
// attach itself as a child of an idle (not busy), higher-priority target
// and park.
func (p *Pool) getJobLifeline(id int, finished func() bool) (Job, bool) {
	pd := p.data[id]
	pd.status.clear(priorityOf(nextSeed(&pd.seed)), uint8(id))

	for {
		if finished() {
			return nil, false
		}
		target := p.stealTarget(id, pd)
		if target == id {
			continue
		}
		if job, ok := p.deques[target].PopTop(); ok {
			self := pd.status.setBusyBit()
			idx := self.head
			for idx != uint8(id) {
				p.data[idx].sem.post()
				idx = pd.children[idx]
			}
			return job, true
		}
		if target >= p.numWorkers {
			// Deques past numWorkers have no owning worker and no
			// procData, so there is no lifeline to attach to.
			continue
		}

		targetStatus := p.data[target].status.load()
		myStatus := pd.status.load()
		if !targetStatus.busy && targetStatus.priority > myStatus.priority {
			p.data[target].children[id] = targetStatus.head
			if p.data[target].status.casHead(targetStatus, uint8(id)) {
				p.parked.add(id)
				pd.sem.wait()
				p.parked.remove(id)
			}
			// CAS failure: the target raced us; fall through and retry.
		}
	}
}

func (p *Pool) stealTarget(id int, pd *procData) int {
	h := splitmix64(uint64(id)) + nextSeed(&pd.seed)
	return int(h % uint64(p.numDeques))
}

// Destroy signals every worker to stop once its current job (if any)
// finishes, then joins all helper goroutines. It must be called before
// the Pool is dropped; a safe embedding typically defers it.
//
// A worker parked on its lifeline only re-checks finished() after being
// posted to, so setting the flag alone would leave any currently-parked
// worker stuck forever once the pool has gone idle — which, for a pool
// with no more work queued, is the common case by the time Destroy runs.
// Destroy posts to every worker's semaphore unconditionally to break
// that wait; a spurious post to a worker that was never parked is
// harmless, since the next thing that worker does after waking is
// re-check finished() and exit.
func (p *Pool) Destroy() {
	p.finished.Store(true)
	if p.backend == BackendLifeline {
		for _, pd := range p.data {
			pd.sem.post()
		}
	}
	p.wg.Wait()
	p.reg.unbind()
}
