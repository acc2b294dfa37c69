package gate

import "encoding/binary"

// EntrySize is the size of an encoded interrupt descriptor in bytes.
const EntrySize = 8

// Entry is a 32-bit interrupt descriptor. Its fields are laid out in the
// order the CPU reads them so that a [NumVectors]Entry array is the table
// image; Encode and DecodeEntry provide the same layout explicitly.
type Entry struct {
	addrLow  uint16
	selector SegmentSelector
	options  Options
	addrMid  uint16
}

// absentEntry is the value of an entry whose vector has no handler.
var absentEntry = Entry{options: optMustBeOne}

// SetHandlerAddr points the entry at addr, selects the active code segment
// and marks the entry as a present ring 0 interrupt gate. It is the only
// operation that sets the present bit; Reset clears it.
func (e *Entry) SetHandlerAddr(addr uintptr) {
	e.addrLow = uint16(addr)
	e.addrMid = uint16(addr >> 16)
	e.selector = SegmentSelector(activeCSFn())
	e.options = NewOptions(false, Ring0, true)
}

// SetOptions overwrites the entry options. Reserved bits are cleared and the
// gate type bits are always kept set.
func (e *Entry) SetOptions(opts Options) {
	e.options = opts.sanitize()
}

// Options returns the entry options.
func (e Entry) Options() Options {
	return e.options
}

// Present is a shorthand for e.Options().Present().
func (e Entry) Present() bool {
	return e.options.Present()
}

// Reset returns the entry to its absent state.
func (e *Entry) Reset() {
	*e = absentEntry
}

// HandlerAddr returns the handler address stored in the entry.
func (e Entry) HandlerAddr() uintptr {
	return uintptr(e.addrMid)<<16 | uintptr(e.addrLow)
}

// Selector returns the code segment the handler runs under.
func (e Entry) Selector() SegmentSelector {
	return e.selector
}

// Encode writes the 8-byte little-endian descriptor into b.
func (e *Entry) Encode(b []byte) {
	_ = b[EntrySize-1]
	binary.LittleEndian.PutUint16(b[0:], e.addrLow)
	binary.LittleEndian.PutUint16(b[2:], uint16(e.selector))
	binary.LittleEndian.PutUint16(b[4:], uint16(e.options))
	binary.LittleEndian.PutUint16(b[6:], e.addrMid)
}

// DecodeEntry parses an 8-byte descriptor. Bytes are taken verbatim; no
// sanitization is applied to the option word.
func DecodeEntry(b []byte) Entry {
	_ = b[EntrySize-1]
	return Entry{
		addrLow:  binary.LittleEndian.Uint16(b[0:]),
		selector: SegmentSelector(binary.LittleEndian.Uint16(b[2:])),
		options:  Options(binary.LittleEndian.Uint16(b[4:])),
		addrMid:  binary.LittleEndian.Uint16(b[6:]),
	}
}
