// Package sync provides the synchronization primitives available to the
// kernel before (and without) a scheduler: a spinlock and a lazily
// initialized, run-once guard for process-wide hardware-bound state.
package sync

import "sync/atomic"

var (
	// yieldFn is invoked by busy-wait loops after a number of failed
	// attempts. There is no scheduler so the kernel leaves it nil; tests
	// substitute runtime.Gosched.
	yieldFn func()
)

// spinAttemptsBeforeYield is the number of failed attempts a busy-wait loop
// makes before calling yieldFn.
const spinAttemptsBeforeYield = 64

// Spinlock implements a lock where each task trying to acquire it busy-waits
// till the lock becomes available. Interrupt handlers must never try to
// acquire a spinlock held by the code they interrupted.
type Spinlock struct {
	state uint32
}

// Acquire blocks until the lock can be acquired by the currently active task.
// Any attempt to re-acquire a lock already held by the current task will cause
// a deadlock.
func (l *Spinlock) Acquire() {
	for attempt := uint32(1); !atomic.CompareAndSwapUint32(&l.state, 0, 1); attempt++ {
		if attempt%spinAttemptsBeforeYield == 0 && yieldFn != nil {
			yieldFn()
		}
	}
}

// TryToAcquire attempts to acquire the lock and returns true if the lock could
// be acquired or false otherwise.
func (l *Spinlock) TryToAcquire() bool {
	return atomic.SwapUint32(&l.state, 1) == 0
}

// Release relinquishes a held lock allowing other tasks to acquire it. Calling
// Release while the lock is free has no effect.
func (l *Spinlock) Release() {
	atomic.StoreUint32(&l.state, 0)
}
