package sched

import (
	"fmt"
	"sync/atomic"
)

// Job is a thunk invoked at most once, owned by the stack frame that
// spawned it. The scheduler only ever holds a non-owning reference to it.
type Job = func()

// queueCapacity is Q from the deque invariants: 0 <= top <= bot <= Q.
// A port could make this configurable; we keep it a constant matching the
// original's fixed bound and document it here as a deliberately open
// design question rather than plumb it through as a tunable.
const queueCapacity = 200

// Deque is the Arora-Blumofe-Plaxton bounded work-stealing deque: the
// owner pushes and pops at the bottom, any worker may steal from the top.
// age packs (tag, top) into one machine word so a single CAS defeats ABA
// on top across racing steals.
type Deque struct {
	// bot is read by thieves (to bound their steal) and written only by
	// the owner, so it must be atomic despite having a single writer.
	bot atomic.Uint32

	_ [cacheLinePad]byte

	// age packs tag:32|top:32. It is the linearization point for steals.
	age atomic.Uint64

	_ [cacheLinePad]byte

	slots [queueCapacity]Job
}

const cacheLinePad = 64

func packAge(tag, top uint32) uint64 {
	return uint64(tag)<<32 | uint64(top)
}

func unpackAge(v uint64) (tag, top uint32) {
	return uint32(v >> 32), uint32(v)
}

// NewDeque returns an empty deque with capacity queueCapacity.
func NewDeque() *Deque {
	return &Deque{}
}

// PushBottom is owner-only: append job at bottom.
func (d *Deque) PushBottom(job Job) {
	b := d.bot.Load()
	if b == queueCapacity {
		panic(fmt.Sprintf("sched: deque overflow: more than %d unfinished jobs on one worker", queueCapacity))
	}
	d.slots[b] = job
	b++
	d.bot.Store(b)
}

// PopBottom is owner-only: remove and return the job at bottom, if any.
// It races with thieves only on the last remaining slot, resolved by a CAS
// on the packed age word.
func (d *Deque) PopBottom() (Job, bool) {
	b := d.bot.Load()
	if b == 0 {
		return nil, false
	}
	b--
	d.bot.Store(b)

	job := d.slots[b]
	old := d.age.Load()
	_, oldTop := unpackAge(old)
	if b > oldTop {
		return job, true
	}

	// Down to the last job (or already empty): contend with thieves.
	d.bot.Store(0)
	oldTag, _ := unpackAge(old)
	newAge := packAge(oldTag+1, 0)
	if b == oldTop && d.age.CompareAndSwap(old, newAge) {
		return job, true
	}
	d.age.Store(newAge)
	return nil, false
}

// PopTop may be called by any worker, including the owner's thieves. It
// never races with PushBottom (which only ever grows bot away from top)
// but does race with PopBottom and with other thieves, resolved by the
// same age CAS.
func (d *Deque) PopTop() (Job, bool) {
	old := d.age.Load()
	oldTag, oldTop := unpackAge(old)
	b := d.bot.Load()
	if b <= oldTop {
		return nil, false
	}
	job := d.slots[oldTop]
	newAge := packAge(oldTag, oldTop+1)
	if d.age.CompareAndSwap(old, newAge) {
		return job, true
	}
	return nil, false
}
