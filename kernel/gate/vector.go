package gate

// Vector identifies one of the 256 trap/interrupt sources.
type Vector uint8

// NumVectors is the number of entries in the interrupt descriptor table.
const NumVectors = 256

// Architecturally defined vectors.
const (
	// DivideError (#DE) is raised by DIV/IDIV with a zero divisor or a
	// quotient that does not fit the destination.
	DivideError = Vector(0)

	// Debug (#DB) is raised on debug register matches and single-stepping.
	Debug = Vector(1)

	// NonMaskableInterrupt reports unrecoverable hardware errors and
	// watchdog expiry.
	NonMaskableInterrupt = Vector(2)

	// Breakpoint (#BP) is raised by INT3.
	Breakpoint = Vector(3)

	// Overflow (#OF) is raised by INTO when EFLAGS.OF is set.
	Overflow = Vector(4)

	// BoundRangeExceeded (#BR) is raised by BOUND with an out of range
	// index.
	BoundRangeExceeded = Vector(5)

	// InvalidOpcode (#UD) is raised for undefined or reserved opcodes.
	InvalidOpcode = Vector(6)

	// DeviceNotAvailable (#NM) is raised by FPU instructions while the FPU
	// is unavailable or CR0.TS is set.
	DeviceNotAvailable = Vector(7)

	// DoubleFault (#DF) is raised when the CPU fails to invoke the handler
	// of another exception. The saved state cannot be resumed.
	DoubleFault = Vector(8)

	// CoprocessorSegmentOverrun is not raised by CPUs after the 386.
	CoprocessorSegmentOverrun = Vector(9)

	// InvalidTSS (#TS) is raised when a task switch references an invalid
	// TSS. The error code holds the offending selector.
	InvalidTSS = Vector(10)

	// SegmentNotPresent (#NP) is raised when loading a segment or gate
	// whose present bit is clear. The error code holds the selector.
	SegmentNotPresent = Vector(11)

	// StackSegmentFault (#SS) is raised on stack limit violations and when
	// loading a non-present stack segment.
	StackSegmentFault = Vector(12)

	// GeneralProtectionFault (#GP) is raised for protection violations not
	// covered by a more specific exception.
	GeneralProtectionFault = Vector(13)

	// PageFault (#PF) is raised when a page is not present or an access
	// violates its protection. CR2 holds the faulting address.
	PageFault = Vector(14)

	// X87FloatingPoint (#MF) reports a pending unmasked x87 exception.
	X87FloatingPoint = Vector(16)

	// AlignmentCheck (#AC) is raised for unaligned accesses at ring 3 while
	// CR0.AM and EFLAGS.AC are set. Its error code is always zero.
	AlignmentCheck = Vector(17)

	// MachineCheck (#MC) reports internal CPU, bus or cache errors. The
	// saved state cannot be resumed.
	MachineCheck = Vector(18)

	// SIMDFloatingPoint (#XM) reports an unmasked SSE exception.
	SIMDFloatingPoint = Vector(19)

	// Virtualization (#VE) is raised by EPT violations in a guest.
	Virtualization = Vector(20)

	// SecurityException (#SX) is raised by security-sensitive events in an
	// SVM guest.
	SecurityException = Vector(30)

	// FirstDeviceVector is the first vector available to devices and
	// software interrupts.
	FirstDeviceVector = Vector(32)
)

// Kind is the calling convention that the handler of a vector must follow.
type Kind uint8

const (
	// KindPlain handlers receive no error code and may return.
	KindPlain Kind = iota

	// KindErrorCode handlers receive the error code the CPU pushed and
	// may return.
	KindErrorCode

	// KindDiverging handlers receive no error code and must never return.
	KindDiverging

	// KindDivergingErrorCode handlers receive an error code and must never
	// return.
	KindDivergingErrorCode

	// KindReserved marks vectors that must never be present.
	KindReserved
)

// HasErrorCode returns true if handlers of this kind receive an error code.
func (k Kind) HasErrorCode() bool {
	return k == KindErrorCode || k == KindDivergingErrorCode
}

// Diverges returns true if handlers of this kind must never return.
func (k Kind) Diverges() bool {
	return k == KindDiverging || k == KindDivergingErrorCode
}

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case KindPlain:
		return "plain"
	case KindErrorCode:
		return "error-code"
	case KindDiverging:
		return "diverging"
	case KindDivergingErrorCode:
		return "diverging error-code"
	case KindReserved:
		return "reserved"
	default:
		return "invalid"
	}
}

// Info describes the architectural semantics of a vector.
type Info struct {
	// Name is a human readable name such as "Page fault".
	Name string

	// Mnemonic is the short exception name used by the Intel manuals
	// (e.g. "#PF"). Device vectors use "INTR".
	Mnemonic string

	// Kind is the calling convention of the vector's handler.
	Kind Kind

	// Reserved is true for vectors that must be left absent.
	Reserved bool

	// IPSemantics describes what the saved instruction pointer refers to.
	IPSemantics string
}

const (
	ipFaulting    = "the offending instruction"
	ipUndefined   = "undefined, non-restartable"
	ipAfterIntr   = "instruction after recognition boundary or after INTn"
	ipUnspecified = "not applicable"
)

var (
	exceptionInfo = [FirstDeviceVector]Info{
		DivideError:               {"Divide error", "#DE", KindPlain, false, "the faulting instruction"},
		Debug:                     {"Debug", "#DB", KindPlain, false, "the faulting instruction or the next one, condition-dependent"},
		NonMaskableInterrupt:      {"Non-maskable interrupt", "NMI", KindPlain, false, "instruction after recognition boundary"},
		Breakpoint:                {"Breakpoint", "#BP", KindPlain, false, "instruction after INT3"},
		Overflow:                  {"Overflow", "#OF", KindPlain, false, "instruction after INTO"},
		BoundRangeExceeded:        {"Bound range exceeded", "#BR", KindPlain, false, "the BOUND instruction"},
		InvalidOpcode:             {"Invalid opcode", "#UD", KindPlain, false, ipFaulting},
		DeviceNotAvailable:        {"Device not available", "#NM", KindPlain, false, ipFaulting},
		DoubleFault:               {"Double fault", "#DF", KindDivergingErrorCode, false, ipUndefined},
		CoprocessorSegmentOverrun: {"Coprocessor segment overrun", "", KindReserved, true, ipUnspecified},
		InvalidTSS:                {"Invalid TSS", "#TS", KindErrorCode, false, "the control-transfer instruction"},
		SegmentNotPresent:         {"Segment not present", "#NP", KindErrorCode, false, "the segment-load instruction"},
		StackSegmentFault:         {"Stack-segment fault", "#SS", KindErrorCode, false, ipFaulting},
		GeneralProtectionFault:    {"General protection fault", "#GP", KindErrorCode, false, ipFaulting},
		PageFault:                 {"Page fault", "#PF", KindErrorCode, false, ipFaulting},
		15:                        {"Reserved", "", KindReserved, true, ipUnspecified},
		X87FloatingPoint:          {"x87 floating point", "#MF", KindPlain, false, ipFaulting},
		AlignmentCheck:            {"Alignment check", "#AC", KindErrorCode, false, ipFaulting},
		MachineCheck:              {"Machine check", "#MC", KindDiverging, false, ipUndefined},
		SIMDFloatingPoint:         {"SIMD floating point", "#XM", KindPlain, false, ipFaulting},
		Virtualization:            {"Virtualization", "#VE", KindPlain, false, ipFaulting},
		SecurityException:         {"Security exception", "#SX", KindErrorCode, false, "implementation-defined"},
		31:                        {"Reserved", "", KindReserved, true, ipUnspecified},
	}

	deviceInfo   = Info{"Device/software interrupt", "INTR", KindPlain, false, ipAfterIntr}
	reservedInfo = Info{"Reserved", "", KindReserved, true, ipUnspecified}
)

// Describe returns the architectural semantics of v.
func Describe(v Vector) Info {
	switch {
	case v >= FirstDeviceVector:
		return deviceInfo
	case v >= 21 && v <= 29:
		return reservedInfo
	default:
		return exceptionInfo[v]
	}
}
