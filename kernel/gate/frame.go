package gate

import (
	"io"

	"x86kern/kernel/kfmt"
)

// Frame is the return frame the CPU pushes when it transfers control through
// an interrupt gate without a privilege change. The kernel runs everything
// at ring 0, so the ESP/SS pair pushed on ring transitions never appears.
type Frame struct {
	EIP    uint32
	CS     uint32
	EFlags uint32
}

// DumpTo writes the frame contents to w.
func (f *Frame) DumpTo(w io.Writer) {
	kfmt.Fprintf(w, "EIP = %8x CS  = %8x\n", f.EIP, f.CS)
	kfmt.Fprintf(w, "EFL = %8x\n", f.EFlags)
}

// Registers is the snapshot of the general purpose registers saved by the
// gate stubs (PUSHAL order). ESP is the value before PUSHAL executed.
type Registers struct {
	EDI uint32
	ESI uint32
	EBP uint32
	ESP uint32
	EBX uint32
	EDX uint32
	ECX uint32
	EAX uint32
}

// DumpTo writes the register contents to w.
func (r *Registers) DumpTo(w io.Writer) {
	kfmt.Fprintf(w, "EAX = %8x EBX = %8x\n", r.EAX, r.EBX)
	kfmt.Fprintf(w, "ECX = %8x EDX = %8x\n", r.ECX, r.EDX)
	kfmt.Fprintf(w, "ESI = %8x EDI = %8x\n", r.ESI, r.EDI)
	kfmt.Fprintf(w, "EBP = %8x ESP = %8x\n", r.EBP, r.ESP)
}

// interruptContext is the stack layout seen by dispatchInterrupt. Fields are
// ordered from the lowest address upwards: the stub pushes the error code
// (or a zero) and the vector, then PUSHAL; the CPU pushed Frame before that.
type interruptContext struct {
	Regs   Registers
	Vector uint32
	Code   uint32
	Frame  Frame
}

// PageFaultError is the error code pushed for a page fault.
type PageFaultError uint32

const (
	// PageFaultProtection is set when the fault was caused by a protection
	// violation and clear when the page was not present.
	PageFaultProtection PageFaultError = 1 << iota

	// PageFaultWrite is set when the faulting access was a write.
	PageFaultWrite

	// PageFaultUser is set when the access originated at ring 3.
	PageFaultUser

	// PageFaultReservedBit is set when a reserved bit was set in a paging
	// structure entry.
	PageFaultReservedBit

	// PageFaultInstructionFetch is set when the fault was caused by an
	// instruction fetch.
	PageFaultInstructionFetch
)

// DumpTo writes a human readable description of the error code to w.
func (e PageFaultError) DumpTo(w io.Writer) {
	cause := "page not present"
	if e&PageFaultProtection != 0 {
		cause = "protection violation"
	}

	access := "read"
	switch {
	case e&PageFaultInstructionFetch != 0:
		access = "instruction fetch"
	case e&PageFaultWrite != 0:
		access = "write"
	}

	mode := "supervisor"
	if e&PageFaultUser != 0 {
		mode = "user"
	}

	kfmt.Fprintf(w, "%s: %s %s", cause, mode, access)
	if e&PageFaultReservedBit != 0 {
		kfmt.Fprintf(w, " (reserved bit set)")
	}
	kfmt.Fprintf(w, "\n")
}

// SelectorError is the error code pushed by exceptions that refer to a
// segment selector or IDT vector (#TS, #NP, #SS, #GP).
type SelectorError uint32

const (
	selErrExternal = 1 << 0
	selErrIDT      = 1 << 1
	selErrLDT      = 1 << 2
)

// External returns true if the exception was raised by an event external to
// the program, such as a hardware interrupt.
func (e SelectorError) External() bool {
	return e&selErrExternal != 0
}

// Table returns the name of the descriptor table the index refers to.
func (e SelectorError) Table() string {
	switch {
	case e&selErrIDT != 0:
		return "IDT"
	case e&selErrLDT != 0:
		return "LDT"
	default:
		return "GDT"
	}
}

// Index returns the descriptor index (or vector, for the IDT) that caused
// the exception.
func (e SelectorError) Index() uint16 {
	return uint16(e >> 3)
}

// DumpTo writes a human readable description of the error code to w.
func (e SelectorError) DumpTo(w io.Writer) {
	if e == 0 {
		kfmt.Fprintf(w, "no selector\n")
		return
	}

	kfmt.Fprintf(w, "%s index %d external=%t\n", e.Table(), e.Index(), e.External())
}
