package kfmt

import (
	"x86kern/kernel"
	"x86kern/kernel/cpu"
)

const panicRule = "\n-----------------------------------\n"

var (
	// cpuHaltFn is replaced by tests; the compiler inlines it otherwise.
	cpuHaltFn = cpu.Halt

	// disableInterruptsFn masks interrupts so that nothing preempts the
	// halted CPU.
	disableInterruptsFn = cpu.DisableInterrupts

	errRuntimePanic = &kernel.Error{Module: "rt", Message: "unknown cause"}
)

// Panic prints e, if not nil, to the active output sink, masks interrupts and
// halts the CPU. It never returns. The Go runtime's panic entry point is
// redirected here, so calling panic() anywhere in the kernel ends up in Panic.
//
//go:redirect-from runtime.gopanic
func Panic(e interface{}) {
	var err *kernel.Error

	switch t := e.(type) {
	case *kernel.Error:
		err = t
	case string:
		panicString(t)
		return
	case error:
		errRuntimePanic.Message = t.Error()
		err = errRuntimePanic
	}

	Printf(panicRule)
	if err != nil {
		Printf("[%s] unrecoverable error: %s\n", err.Module, err.Message)
	}
	Printf("*** kernel panic: system halted ***")
	Printf(panicRule)

	disableInterruptsFn()
	cpuHaltFn()
}

// panicString is the redirect target for runtime.throw.
//
//go:redirect-from runtime.throw
func panicString(msg string) {
	errRuntimePanic.Message = msg
	Panic(errRuntimePanic)
}
