// Package thread tracks the state of the kernel's threads of execution.
// There is no scheduler yet; the only thread is the one that runs kmain.
package thread

import "sync/atomic"

// State describes what a thread is currently doing.
type State uint8

// The supported thread states.
const (
	Running State = iota
	Ready
	Blocked
	Dying
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Ready:
		return "ready"
	case Blocked:
		return "blocked"
	case Dying:
		return "dying"
	default:
		return "unknown"
	}
}

// Thread holds the bookkeeping data for a thread.
type Thread struct {
	// StackTop is the address just above the thread's stack.
	StackTop uintptr

	ID    uint32
	State State

	// Ticks counts the timer interrupts taken while this thread was
	// running. It is updated from interrupt context.
	Ticks atomic.Uint64
}

var bootThread = Thread{ID: 0, State: Running}

// Current returns the thread that is executing. Until a scheduler exists
// this is always the boot thread.
func Current() *Thread {
	return &bootThread
}

// SetBootStack records the top of the stack set up by the boot code.
func SetBootStack(top uintptr) {
	bootThread.StackTop = top
}

// Tick charges one timer interrupt to the running thread.
//
//go:nosplit
func Tick() {
	if cur := Current(); cur.State == Running {
		cur.Ticks.Add(1)
	}
}
