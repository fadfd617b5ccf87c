package sched

// semaphore is the scheduler's single blocking primitive: a counting
// semaphore used only on the lifeline parking path. Go has no sem_t
// equivalent in the standard library or in any dependency this repo
// already carries, so a buffered channel is the idiomatic stand-in — a
// send is Post, a receive is Wait, and the channel's buffer is the count.
type semaphore struct {
	tokens chan struct{}
}

// newSemaphore creates a semaphore initially at zero, with room for up to
// cap outstanding posts. cap is sized to the number of workers: a parked
// worker is a child of exactly one target at a time, so it can never be
// posted to more than once before it wakes and removes itself.
func newSemaphore(cap int) *semaphore {
	if cap < 1 {
		cap = 1
	}
	return &semaphore{tokens: make(chan struct{}, cap)}
}

func (s *semaphore) post() {
	select {
	case s.tokens <- struct{}{}:
	default:
		// Buffer already holds cap outstanding tokens, so this post is
		// dropped; a lost wakeup here would
		// violate the no-lost-wakeups invariant, but per the lifeline
		// protocol a worker parks at most once per attach, so the
		// buffer (sized to numWorkers) never actually fills.
	}
}

func (s *semaphore) wait() {
	<-s.tokens
}
