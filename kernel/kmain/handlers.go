package kmain

import (
	"x86kern/device/irqchip"
	"x86kern/device/kbd"
	"x86kern/device/timer"
	"x86kern/kernel"
	"x86kern/kernel/cpu"
	"x86kern/kernel/gate"
	"x86kern/kernel/kfmt"
	"x86kern/kernel/thread"
)

var (
	errUnrecoverablePageFault = &kernel.Error{Module: "kmain", Message: "unrecoverable page fault"}
	errSegmentNotPresent      = &kernel.Error{Module: "kmain", Message: "segment not present"}
	errGeneralProtection      = &kernel.Error{Module: "kmain", Message: "general protection fault"}
	errDoubleFault            = &kernel.Error{Module: "kmain", Message: "double fault"}

	// The following functions are mocked by tests.
	readCR0Fn           = cpu.ReadCR0
	readCR2Fn           = cpu.ReadCR2
	readCR3Fn           = cpu.ReadCR3
	eoiFn               = irqchip.EOI
	timerTickFn         = timer.Tick
	keyboardInterruptFn = kbd.Default.HandleInterrupt
	panicFn             = kfmt.Panic
)

func breakpointHandler(frame *gate.Frame, _ *gate.Registers) {
	kfmt.Printf("[kmain] breakpoint at 0x%x\n", frame.EIP)
}

// pageFaultHandler reports the faulting address and access. The kernel does
// no demand paging so the faulting instruction can never be retried.
func pageFaultHandler(code uint32, frame *gate.Frame, regs *gate.Registers) {
	kfmt.Printf("\nPage fault while accessing address: 0x%8x\nReason: ", readCR2Fn())
	gate.PageFaultError(code).DumpTo(kfmt.GetOutputSink())
	if readCR0Fn()&cpu.CR0Paging == 0 {
		kfmt.Printf("Paging is disabled\n")
	}

	dumpState(frame, regs)
	panic(errUnrecoverablePageFault)
}

func segmentNotPresentHandler(code uint32, frame *gate.Frame, regs *gate.Registers) {
	kfmt.Printf("\nSegment not present: ")
	gate.SelectorError(code).DumpTo(kfmt.GetOutputSink())

	dumpState(frame, regs)
	panic(errSegmentNotPresent)
}

func generalProtectionFaultHandler(code uint32, frame *gate.Frame, regs *gate.Registers) {
	kfmt.Printf("\nGeneral protection fault")
	if code != 0 {
		kfmt.Printf(": ")
		gate.SelectorError(code).DumpTo(kfmt.GetOutputSink())
	} else {
		kfmt.Printf("\n")
	}

	dumpState(frame, regs)
	panic(errGeneralProtection)
}

// doubleFaultHandler never returns; the saved state of the first fault is
// lost by the time it runs.
func doubleFaultHandler(_ uint32, frame *gate.Frame, regs *gate.Registers) {
	kfmt.Printf("\nDouble fault\n")
	dumpState(frame, regs)
	panicFn(errDoubleFault)
}

func timerHandler(_ *gate.Frame, _ *gate.Registers) {
	timerTickFn()
	thread.Tick()
	eoiFn(irqchip.Vector(timerIRQ))
}

func keyboardHandler(_ *gate.Frame, _ *gate.Registers) {
	if err := keyboardInterruptFn(); err != nil {
		kfmt.Printf("[%s] %s\n", err.Module, err.Message)
	}
	eoiFn(irqchip.Vector(keyboardIRQ))
}

// spuriousHandler swallows spurious IRQ 7s raised by the master controller.
// A spurious interrupt must not be acknowledged.
func spuriousHandler(_ *gate.Frame, _ *gate.Registers) {}

// slaveSpuriousHandler handles a spurious IRQ 15. The slave must not be
// acknowledged but the master saw a real request on the cascade line.
func slaveSpuriousHandler(_ *gate.Frame, _ *gate.Registers) {
	eoiFn(irqchip.Vector(cascadeIRQ))
}

func dumpState(frame *gate.Frame, regs *gate.Registers) {
	w := kfmt.GetOutputSink()
	kfmt.Fprintf(w, "\nRegisters:\n")
	regs.DumpTo(w)
	frame.DumpTo(w)
	kfmt.Fprintf(w, "CR0 = %8x CR3 = %8x\n", readCR0Fn(), readCR3Fn())
}
