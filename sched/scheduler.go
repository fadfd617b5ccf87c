package sched

// Scheduler is the entry point for fork/join parallelism: a fixed pool of
// worker goroutines sharing a ring of work-stealing deques, optionally
// extended with the lifeline parking discipline. Create one with New,
// use it for the lifetime of the parallel region, and Destroy it when
// done — mirroring the original's fork_join_scheduler, which owns a
// scheduler<Job> for its whole process lifetime.
type Scheduler struct {
	pool *Pool
}

// New builds a Scheduler and starts its workers. The goroutine that calls
// New becomes worker 0 and must be the one driving Pardo/Parfor calls, or
// later WorkerID lookups from it will fail after it hands off to other
// goroutines.
func New(opts PoolOptions) *Scheduler {
	return &Scheduler{pool: NewPool(opts)}
}

// NumWorkers returns N.
func (s *Scheduler) NumWorkers() int { return s.pool.NumWorkers() }

// WorkerID returns the id of the calling worker, or ok=false if the
// caller is not one of the scheduler's workers.
func (s *Scheduler) WorkerID() (int, bool) { return s.pool.WorkerID() }

// ParkedWorkers reports which workers are currently parked on the
// lifeline (always empty under BackendSimple).
func (s *Scheduler) ParkedWorkers() []int { return s.pool.ParkedWorkers() }

// Spawn pushes job onto the calling worker's local deque without waiting
// for it. Must be called from a worker goroutine; prefer Pardo/Parfor
// unless you are implementing a new composition primitive on top of Spawn
// directly.
func (s *Scheduler) Spawn(job Job) { s.pool.Spawn(job) }

// Pardo runs left and right to completion, running right on whichever
// worker steals it (or inline if nobody does) and left on the caller.
// conservative trades throughput for safety around externally held locks;
// pass false unless you know you need it.
func (s *Scheduler) Pardo(left, right func(), conservative bool) {
	s.pool.Pardo(left, right, conservative)
}

// Parfor runs body(i) for every i in [lo,hi), recursively forking at
// roughly granularity-sized chunks. granularity==0 asks Parfor to probe
// for a reasonable chunk size by running a little of the range
// sequentially first.
func (s *Scheduler) Parfor(lo, hi int, body func(int), granularity int, conservative bool) {
	s.pool.Parfor(lo, hi, body, granularity, conservative)
}

// Destroy stops every worker and waits for them to exit. Safe to defer
// immediately after New.
func (s *Scheduler) Destroy() { s.pool.Destroy() }
