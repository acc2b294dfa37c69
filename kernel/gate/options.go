package gate

// Options is the 16-bit type/attribute word of an interrupt descriptor:
//
//	bit  15    present
//	bits 13-14 descriptor privilege level
//	bits 9-11  gate type, fixed to 0b111 (32-bit gate)
//	bit  8     trap flag; clear for an interrupt gate, set for a trap gate
//	bits 0-2   alternate stack index, zero unless set explicitly
//
// All other bits are reserved and always zero. None of the setters can clear
// the fixed gate type bits.
type Options uint16

const (
	optStackIndexMask = Options(0x0007)
	optTrap           = Options(1 << 8)
	optMustBeOne      = Options(0x0e00)
	optDPLShift       = 13
	optDPLMask        = Options(0x3 << optDPLShift)
	optPresent        = Options(1 << 15)

	optDefinedBits = optStackIndexMask | optTrap | optMustBeOne | optDPLMask | optPresent
)

// DefaultOptions returns the option word of an absent entry: interrupt gate,
// ring 0, not present.
func DefaultOptions() Options {
	return optMustBeOne
}

// NewOptions returns an option word with the given trap flag, privilege level
// and present bit.
func NewOptions(trap bool, dpl PrivilegeLevel, present bool) Options {
	o := DefaultOptions()
	o.SetTrap(trap)
	o.SetPrivilegeLevel(dpl)
	o.SetPresent(present)
	return o
}

// Trap returns true if the entry describes a trap gate; interrupts stay
// enabled while its handler runs.
func (o Options) Trap() bool {
	return o&optTrap != 0
}

// SetTrap selects trap gate (true) or interrupt gate (false) semantics.
func (o *Options) SetTrap(trap bool) {
	*o = o.with(optTrap, trap)
}

// PrivilegeLevel returns the lowest privileged ring allowed to raise the
// vector with a software interrupt.
func (o Options) PrivilegeLevel() PrivilegeLevel {
	return PrivilegeLevel((o & optDPLMask) >> optDPLShift)
}

// SetPrivilegeLevel sets the descriptor privilege level.
func (o *Options) SetPrivilegeLevel(dpl PrivilegeLevel) {
	*o = (*o&^optDPLMask | Options(dpl)<<optDPLShift&optDPLMask) | optMustBeOne
}

// Present returns true if the present bit is set.
func (o Options) Present() bool {
	return o&optPresent != 0
}

// SetPresent sets or clears the present bit.
func (o *Options) SetPresent(present bool) {
	*o = o.with(optPresent, present)
}

// StackIndex returns the alternate stack index stored in bits 0-2.
func (o Options) StackIndex() uint8 {
	return uint8(o & optStackIndexMask)
}

// SetStackIndex stores index in bits 0-2. Values above 7 are truncated.
func (o *Options) SetStackIndex(index uint8) {
	*o = (*o&^optStackIndexMask | Options(index)&optStackIndexMask) | optMustBeOne
}

func (o Options) with(bit Options, set bool) Options {
	if set {
		return o | bit | optMustBeOne
	}
	return o&^bit | optMustBeOne
}

// sanitize clears reserved bits and forces the gate type bits.
func (o Options) sanitize() Options {
	return o&optDefinedBits | optMustBeOne
}
