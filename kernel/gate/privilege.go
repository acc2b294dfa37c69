package gate

// PrivilegeLevel is an x86 protection ring.
type PrivilegeLevel uint8

const (
	// Ring0 is the privilege level the kernel runs at.
	Ring0 PrivilegeLevel = iota
	Ring1
	Ring2

	// Ring3 is the least privileged level, used by user code.
	Ring3
)

// SegmentSelector references a segment descriptor in the GDT. The low two
// bits hold the requested privilege level, bit 2 the table indicator (always
// zero for the GDT) and bits 3-15 the descriptor index.
type SegmentSelector uint16

const selectorRPLMask = 0x3

// NewSegmentSelector returns a GDT selector for the descriptor at index with
// the given requested privilege level.
func NewSegmentSelector(index uint16, rpl PrivilegeLevel) SegmentSelector {
	return SegmentSelector(index<<3 | uint16(rpl)&selectorRPLMask)
}

// Index returns the GDT index referenced by the selector.
func (s SegmentSelector) Index() uint16 {
	return uint16(s) >> 3
}

// RPL returns the requested privilege level.
func (s SegmentSelector) RPL() PrivilegeLevel {
	return PrivilegeLevel(uint16(s) & selectorRPLMask)
}

// SetRPL replaces the requested privilege level.
func (s *SegmentSelector) SetRPL(rpl PrivilegeLevel) {
	*s = SegmentSelector(uint16(*s)&^selectorRPLMask | uint16(rpl)&selectorRPLMask)
}
