// Package gate manages the interrupt descriptor table (IDT) of a 32-bit x86
// CPU: building its entries, installing Go handlers for each vector and
// handing the table to the CPU.
//
// Every vector is served by a small assembly stub that normalizes the stack
// (pushing a zero error code where the CPU does not push one) and calls the
// Go dispatcher, which invokes the handler installed through one of the
// typed entry views returned by the Table accessors. The view type encodes
// the handler convention of the vector, so installing a handler with the
// wrong signature fails to compile.
package gate

import (
	"encoding/binary"
	"unsafe"

	"x86kern/kernel"
	"x86kern/kernel/cpu"
	"x86kern/kernel/kfmt"
)

// Size is the size of the encoded table in bytes.
const Size = NumVectors * EntrySize

var (
	// The following functions are mocked by tests.
	loadIDTFn           = cpu.LoadIDT
	disableInterruptsFn = cpu.DisableInterrupts
	gateEntryFn         = gateEntry

	// activeTable is the table most recently loaded into the CPU.
	activeTable *Table

	// idtr holds the packed pseudo-descriptor consumed by lidt. It lives
	// outside the stack as the CPU only reads it while lidt executes but
	// the address must remain valid for the duration of the call.
	idtr [pointerSize]byte

	errReservedEntry  = &kernel.Error{Module: "gate", Message: "entry is reserved"}
	errErrorCodeEntry = &kernel.Error{Module: "gate", Message: "entry is an exception with error code, use the named field"}
	errDivergingEntry = &kernel.Error{Module: "gate", Message: "entry is a diverging exception (must not return)"}

	errKindMismatch     = &kernel.Error{Module: "gate", Message: "handler convention does not match vector"}
	errUnsupportedFn    = &kernel.Error{Module: "gate", Message: "unsupported handler type"}
	errPresentNoAddr    = &kernel.Error{Module: "gate", Message: "present entry without a handler address"}
	errPresentNoCS      = &kernel.Error{Module: "gate", Message: "present entry with a null code segment selector"}
	errReservedPresent  = &kernel.Error{Module: "gate", Message: "reserved vector marked present"}
	errAlreadyPublished = &kernel.Error{Module: "gate", Message: "a different table has already been published"}
)

// Table is the interrupt descriptor table. The entries array is the memory
// image the CPU reads, so a published Table must stay at a fixed address
// until the system halts; the process-wide instance returned by IDT is a
// package variable and satisfies this.
type Table struct {
	entries [NumVectors]Entry
	slots   [NumVectors]handlerSlot
}

// New returns a table with every entry absent.
func New() *Table {
	t := &Table{}
	t.Reset()
	return t
}

// Reset marks every entry absent and uninstalls all handlers.
func (t *Table) Reset() {
	for i := range t.entries {
		t.entries[i].Reset()
		t.slots[i] = handlerSlot{}
	}
}

// install stores the Go handler for v and points its descriptor at the
// vector's assembly stub.
func (t *Table) install(v Vector, slot handlerSlot) {
	t.slots[v] = slot
	t.entries[v].SetHandlerAddr(gateEntryFn(uint8(v)))
}

// Entry returns the raw descriptor for v. No handler convention is attached
// to the returned value; SetHandlerAddr on it bypasses the Go dispatcher.
func (t *Table) Entry(v Vector) *Entry {
	return &t.entries[v]
}

func (t *Table) plain(v Vector) PlainEntry {
	return PlainEntry{Entry: &t.entries[v], table: t, vector: v}
}

func (t *Table) withCode(v Vector) ErrorCodeEntry {
	return ErrorCodeEntry{Entry: &t.entries[v], table: t, vector: v}
}

// DivideError returns the entry for vector 0.
func (t *Table) DivideError() PlainEntry { return t.plain(DivideError) }

// Debug returns the entry for vector 1.
func (t *Table) Debug() PlainEntry { return t.plain(Debug) }

// NonMaskableInterrupt returns the entry for vector 2.
func (t *Table) NonMaskableInterrupt() PlainEntry { return t.plain(NonMaskableInterrupt) }

// Breakpoint returns the entry for vector 3.
func (t *Table) Breakpoint() PlainEntry { return t.plain(Breakpoint) }

// Overflow returns the entry for vector 4.
func (t *Table) Overflow() PlainEntry { return t.plain(Overflow) }

// BoundRangeExceeded returns the entry for vector 5.
func (t *Table) BoundRangeExceeded() PlainEntry { return t.plain(BoundRangeExceeded) }

// InvalidOpcode returns the entry for vector 6.
func (t *Table) InvalidOpcode() PlainEntry { return t.plain(InvalidOpcode) }

// DeviceNotAvailable returns the entry for vector 7.
func (t *Table) DeviceNotAvailable() PlainEntry { return t.plain(DeviceNotAvailable) }

// DoubleFault returns the entry for vector 8. Its handler always receives a
// zero error code and must not return.
func (t *Table) DoubleFault() DivergingErrorCodeEntry {
	return DivergingErrorCodeEntry{Entry: &t.entries[DoubleFault], table: t, vector: DoubleFault}
}

// InvalidTSS returns the entry for vector 10.
func (t *Table) InvalidTSS() ErrorCodeEntry { return t.withCode(InvalidTSS) }

// SegmentNotPresent returns the entry for vector 11.
func (t *Table) SegmentNotPresent() ErrorCodeEntry { return t.withCode(SegmentNotPresent) }

// StackSegmentFault returns the entry for vector 12.
func (t *Table) StackSegmentFault() ErrorCodeEntry { return t.withCode(StackSegmentFault) }

// GeneralProtectionFault returns the entry for vector 13.
func (t *Table) GeneralProtectionFault() ErrorCodeEntry { return t.withCode(GeneralProtectionFault) }

// PageFault returns the entry for vector 14. The faulting address is
// available through cpu.ReadCR2.
func (t *Table) PageFault() ErrorCodeEntry { return t.withCode(PageFault) }

// X87FloatingPoint returns the entry for vector 16.
func (t *Table) X87FloatingPoint() PlainEntry { return t.plain(X87FloatingPoint) }

// AlignmentCheck returns the entry for vector 17. Its error code is always
// zero.
func (t *Table) AlignmentCheck() ErrorCodeEntry { return t.withCode(AlignmentCheck) }

// MachineCheck returns the entry for vector 18.
func (t *Table) MachineCheck() DivergingEntry {
	return DivergingEntry{Entry: &t.entries[MachineCheck], table: t, vector: MachineCheck}
}

// SIMDFloatingPoint returns the entry for vector 19.
func (t *Table) SIMDFloatingPoint() PlainEntry { return t.plain(SIMDFloatingPoint) }

// Virtualization returns the entry for vector 20.
func (t *Table) Virtualization() PlainEntry { return t.plain(Virtualization) }

// SecurityException returns the entry for vector 30.
func (t *Table) SecurityException() ErrorCodeEntry { return t.withCode(SecurityException) }

// Index returns the entry for a vector whose handler takes no error code and
// may return: the device and software vectors 32-255 and the plain
// exceptions. Indexing a reserved vector, an exception with an error code or
// a diverging exception is a kernel defect and panics.
func (t *Table) Index(v Vector) PlainEntry {
	switch {
	case v >= FirstDeviceVector:
	case v == 9, v == 15, v >= 20 && v <= 29, v == 31:
		badIndex(v, errReservedEntry)
	case v == DoubleFault, v >= 10 && v <= 14, v == AlignmentCheck, v == SecurityException:
		badIndex(v, errErrorCodeEntry)
	case v == MachineCheck:
		badIndex(v, errDivergingEntry)
	}

	return t.plain(v)
}

func badIndex(v Vector, err *kernel.Error) {
	kfmt.Printf("[gate] entry %d: %s\n", uint8(v), err.Message)
	panic(err)
}

// SetHandler installs h for v after checking it against the convention of
// the vector at run time. h must be one of Handler, ErrorCodeHandler,
// DivergingHandler or DivergingErrorCodeHandler; the unnamed func types
// with the Handler and ErrorCodeHandler signatures are accepted as those.
// It is meant for vectors that are only known at run time, such as device
// lines routed by an interrupt controller; the typed accessors should be
// preferred otherwise.
func (t *Table) SetHandler(v Vector, h interface{}) *kernel.Error {
	want := Describe(v).Kind
	if want == KindReserved {
		return errReservedEntry
	}

	var slot handlerSlot
	switch fn := h.(type) {
	case Handler:
		slot = handlerSlot{kind: KindPlain, fn: fn}
	case func(*Frame, *Registers):
		slot = handlerSlot{kind: KindPlain, fn: fn}
	case ErrorCodeHandler:
		slot = handlerSlot{kind: KindErrorCode, codeFn: fn}
	case func(uint32, *Frame, *Registers):
		slot = handlerSlot{kind: KindErrorCode, codeFn: fn}
	case DivergingHandler:
		slot = handlerSlot{kind: KindDiverging, fn: fn}
	case DivergingErrorCodeHandler:
		slot = handlerSlot{kind: KindDivergingErrorCode, codeFn: fn}
	default:
		return errUnsupportedFn
	}

	if slot.kind != want || slot.fn == nil && slot.codeFn == nil {
		return errKindMismatch
	}

	slot.installed = true
	t.install(v, slot)
	return nil
}

// Validate checks that every present entry has a handler address and a code
// segment, that no reserved vector is present and that every installed Go
// handler follows the convention of its vector.
func (t *Table) Validate() *kernel.Error {
	for i := range t.entries {
		v := Vector(i)
		e := &t.entries[i]
		info := Describe(v)

		if slot := &t.slots[i]; slot.installed && slot.kind != info.Kind {
			kfmt.Printf("[gate] vector %d expects a %s handler; got %s\n", i, info.Kind.String(), slot.kind.String())
			return errKindMismatch
		}

		if !e.Present() {
			continue
		}

		switch {
		case info.Reserved:
			kfmt.Printf("[gate] vector %d: %s\n", i, errReservedPresent.Message)
			return errReservedPresent
		case e.HandlerAddr() == 0:
			kfmt.Printf("[gate] vector %d: %s\n", i, errPresentNoAddr.Message)
			return errPresentNoAddr
		case e.Selector().Index() == 0:
			kfmt.Printf("[gate] vector %d: %s\n", i, errPresentNoCS.Message)
			return errPresentNoCS
		}
	}

	return nil
}

// Encode writes the table image into b, which must be at least Size bytes
// long.
func (t *Table) Encode(b []byte) {
	_ = b[Size-1]
	for i := range t.entries {
		t.entries[i].Encode(b[i*EntrySize:])
	}
}

// pointerSize is the size of an encoded DescriptorTablePointer.
const pointerSize = 6

// DescriptorTablePointer is the operand of lidt.
type DescriptorTablePointer struct {
	// Limit is the table size in bytes minus one.
	Limit uint16

	// Base is the linear address of the first entry.
	Base uint32
}

// Encode writes the packed 6-byte little-endian pointer into b.
func (p DescriptorTablePointer) Encode(b []byte) {
	_ = b[pointerSize-1]
	binary.LittleEndian.PutUint16(b[0:], p.Limit)
	binary.LittleEndian.PutUint32(b[2:], p.Base)
}

// Pointer returns the lidt operand describing t.
func (t *Table) Pointer() DescriptorTablePointer {
	return DescriptorTablePointer{
		Limit: Size - 1,
		Base:  uint32(uintptr(unsafe.Pointer(&t.entries[0]))),
	}
}

// Publish validates the table and loads it into the CPU. Interrupts are
// disabled first and left disabled; the caller enables them once the
// devices raising them are set up. Only one table may ever be published;
// publishing the same table again reloads it. After Publish returns t must
// never move or be freed.
func (t *Table) Publish() *kernel.Error {
	if activeTable != nil && activeTable != t {
		return errAlreadyPublished
	}

	if err := t.Validate(); err != nil {
		return err
	}

	disableInterruptsFn()
	t.Pointer().Encode(idtr[:])
	loadIDTFn(uintptr(unsafe.Pointer(&idtr[0])))
	activeTable = t

	return nil
}
