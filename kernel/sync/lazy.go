package sync

import "sync/atomic"

// LazyState describes the initialization state of a Lazy guard.
type LazyState uint32

const (
	// Uninit is the state of a Lazy whose constructor has not run yet.
	Uninit LazyState = iota

	// Initializing is the state while the first accessor runs the
	// constructor. Other accessors spin until it changes.
	Initializing

	// Initialized is the state after the constructor has completed.
	Initialized
)

// String implements fmt.Stringer.
func (s LazyState) String() string {
	switch s {
	case Uninit:
		return "uninit"
	case Initializing:
		return "initializing"
	case Initialized:
		return "initialized"
	default:
		return "invalid"
	}
}

// Lazy guards the one-time construction of a process-wide value. The value
// itself lives with the caller (typically a package-level variable); Lazy
// only orders access to it:
//   - the constructor passed to Do runs at most once;
//   - no caller returns from Do before the constructor has completed, so a
//     partially constructed value is never observed;
//   - all callers therefore see the same instance.
//
// The zero value is ready to use. A constructor must not call Do on the same
// Lazy; doing so spins forever.
type Lazy struct {
	state uint32
}

// State returns the current initialization state.
func (l *Lazy) State() LazyState {
	return LazyState(atomic.LoadUint32(&l.state))
}

// Do runs fn if and only if this is the first call to Do for l. Callers that
// race with the first call busy-wait until fn returns.
func (l *Lazy) Do(fn func()) {
	if atomic.LoadUint32(&l.state) == uint32(Initialized) {
		return
	}

	if atomic.CompareAndSwapUint32(&l.state, uint32(Uninit), uint32(Initializing)) {
		fn()
		atomic.StoreUint32(&l.state, uint32(Initialized))
		return
	}

	for attempt := uint32(1); atomic.LoadUint32(&l.state) != uint32(Initialized); attempt++ {
		if attempt%spinAttemptsBeforeYield == 0 && yieldFn != nil {
			yieldFn()
		}
	}
}
