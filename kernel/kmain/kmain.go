// Package kmain contains the kernel entry point and the interrupt handlers
// that the boot sequence installs.
package kmain

import (
	"x86kern/device/irqchip"
	"x86kern/kernel"
	"x86kern/kernel/cpu"
	"x86kern/kernel/gate"
	"x86kern/kernel/hal"
	"x86kern/kernel/kfmt"
	"x86kern/kernel/thread"
)

// PIC lines used by the kernel. Timer, keyboard and cascade (which carries
// the slave controller) are left unmasked; 7 and 15 are where each
// controller reports spurious interrupts.
const (
	timerIRQ         = 0
	keyboardIRQ      = 1
	cascadeIRQ       = 2
	spuriousIRQ      = 7
	slaveSpuriousIRQ = 15
)

var (
	errKmainReturned = &kernel.Error{Module: "kmain", Message: "Kmain returned"}

	// The following functions are mocked by tests.
	disableInterruptsFn = cpu.DisableInterrupts
	enableInterruptsFn  = cpu.EnableInterrupts
	breakpointFn        = cpu.Breakpoint
	haltFn              = cpu.Halt
	detectHardwareFn    = hal.DetectHardware
	publishFn           = (*gate.Table).Publish
	setMaskFn           = irqchip.SetMask
	masksFn             = irqchip.Masks
	stackPointerFn      = cpu.StackPointer
	idleFn              = idle
)

// Kmain is invoked by the rt0 code once the GDT is loaded and a stack is set
// up. It brings up the devices, installs the interrupt handlers, publishes
// the IDT and then idles, waking up on every interrupt.
//
// Kmain is not expected to return. If it does, the rt0 code will halt the CPU.
//
//go:noinline
func Kmain() {
	disableInterruptsFn()
	thread.SetBootStack(stackPointerFn())
	kfmt.Printf("[kmain] starting x86kern\n")

	detectHardwareFn()

	idt := gate.IDT()
	if err := InstallHandlers(idt); err != nil {
		panic(err)
	}

	if err := publishFn(idt); err != nil {
		panic(err)
	}

	if err := unmaskIRQLines(); err != nil {
		panic(err)
	}

	master, slave := masksFn()
	kfmt.Printf("[kmain] irq masks: master 0x%2x slave 0x%2x\n", master, slave)

	enableInterruptsFn()

	// Raise a breakpoint to check that the published table works.
	breakpointFn()
	kfmt.Printf("[kmain] interrupts enabled\n")

	idleFn()

	// Call kfmt.Panic through panicFn instead of panic so the compiler does
	// not treat kfmt.Panic as dead code.
	panicFn(errKmainReturned)
}

// irqHandlers lists the handlers installed for PIC lines.
var irqHandlers = []struct {
	irq     uint8
	handler gate.Handler
}{
	{timerIRQ, timerHandler},
	{keyboardIRQ, keyboardHandler},
	{spuriousIRQ, spuriousHandler},
	{slaveSpuriousIRQ, slaveSpuriousHandler},
}

// InstallHandlers installs the kernel's exception and device handlers into t.
// IRQ vectors depend on where the PIC is remapped so they are installed
// through the checked SetHandler.
func InstallHandlers(t *gate.Table) *kernel.Error {
	t.Breakpoint().SetHandlerFn(breakpointHandler)
	t.PageFault().SetHandlerFn(pageFaultHandler)
	t.DoubleFault().SetHandlerFn(doubleFaultHandler)
	t.SegmentNotPresent().SetHandlerFn(segmentNotPresentHandler)
	t.GeneralProtectionFault().SetHandlerFn(generalProtectionFaultHandler)

	for _, h := range irqHandlers {
		if err := t.SetHandler(irqchip.Vector(h.irq), h.handler); err != nil {
			return err
		}
	}

	return nil
}

// unmaskIRQLines masks every IRQ line without a handler.
func unmaskIRQLines() *kernel.Error {
	for irq := uint8(0); irq < 16; irq++ {
		masked := irq != timerIRQ && irq != keyboardIRQ && irq != cascadeIRQ
		if err := setMaskFn(irq, masked); err != nil {
			return err
		}
	}

	return nil
}

func idle() {
	for {
		haltFn()
	}
}
