// Package sync provides a spinlock synchronization primitive that is usable
// before (and after) thread scheduling has been set up.
package sync

import "sync/atomic"

var (
	// yieldFn is invoked by Spinlock.Acquire once a lock has been contended
	// for attemptsBeforeYielding consecutive spins. It defaults to a no-op
	// since spinlocks may be exercised before the thread runtime has called
	// SetYieldFunc; on a single processor that just means the spinning code
	// path never actually reschedules, which matches the pre-threading boot
	// environment where nothing else could run anyway. This completes a seam
	// that predates context-switching support: yieldFn originally spun
	// forever with no way to give up the CPU under contention.
	yieldFn func() = func() {}
)

// SetYieldFunc installs the function that Spinlock uses to relinquish the
// CPU to another thread while spinning. The thread runtime calls this once
// during its own initialization so that a contended spinlock does not spin
// forever on a single processor waiting for the holder, which can only make
// progress if it gets scheduled.
func SetYieldFunc(fn func()) {
	yieldFn = fn
}

// attemptsBeforeYielding controls how many failed compare-and-swap attempts
// Acquire makes before giving up its timeslice via yieldFn.
const attemptsBeforeYielding = 1000

// Spinlock implements a lock where each task trying to acquire it busy-waits
// till the lock becomes available.
type Spinlock struct {
	state uint32
}

// Acquire blocks until the lock can be acquired by the currently active task.
// Any attempt to re-acquire a lock already held by the current task will
// cause a deadlock.
func (l *Spinlock) Acquire() {
	for {
		for attempt := 0; attempt < attemptsBeforeYielding; attempt++ {
			if atomic.CompareAndSwapUint32(&l.state, 0, 1) {
				return
			}
		}
		yieldFn()
	}
}

// TryToAcquire attempts to acquire the lock and returns true if the lock
// could be acquired or false otherwise.
func (l *Spinlock) TryToAcquire() bool {
	return atomic.SwapUint32(&l.state, 1) == 0
}

// Release relinquishes a held lock allowing other tasks to acquire it.
// Calling Release while the lock is free has no effect.
func (l *Spinlock) Release() {
	atomic.StoreUint32(&l.state, 0)
}
