// Package kbd reads key presses from a PS/2 keyboard using scan code set 1
// and forwards the decoded characters to a byte sink, normally the active
// terminal.
package kbd

import (
	"io"

	"x86kern/device"
	"x86kern/kernel"
	"x86kern/kernel/cpu"
	"x86kern/kernel/kfmt"
)

const (
	dataPort   = 0x60
	statusPort = 0x64

	// statusOutputFull is set while the controller holds a byte for us.
	statusOutputFull = 1 << 0

	// releaseBit is set in break codes (key released).
	releaseBit = 0x80

	// maxFlush bounds the number of stale bytes drained during init.
	maxFlush = 16
)

var (
	// portReadByteFn is mocked by tests.
	portReadByteFn = cpu.PortReadByte

	errDetection = &kernel.Error{Module: "ps2kbd", Message: "key detection error (scancode 0x00)"}

	letterRows = [...]struct {
		first uint8
		keys  string
	}{
		{0x10, "qwertyuiop"},
		{0x1e, "asdfghjkl"},
		{0x2c, "zxcvbnm"},
	}
)

// Translate maps a set-1 make code to the character it produces. Break codes
// return ok == false. Keys without a character mapping produce '?'.
func Translate(scancode uint8) (ch byte, ok bool) {
	switch {
	case scancode&releaseBit != 0:
		return 0, false
	case scancode >= 0x02 && scancode <= 0x0a:
		return '1' + scancode - 0x02, true
	case scancode == 0x0b:
		return '0', true
	case scancode == 0x0e:
		return '\b', true
	case scancode == 0x1c:
		return '\n', true
	case scancode == 0x39:
		return ' ', true
	}

	for _, row := range letterRows {
		if scancode >= row.first && int(scancode-row.first) < len(row.keys) {
			return row.keys[scancode-row.first], true
		}
	}

	return '?', true
}

// Keyboard decodes scancodes into characters for a sink.
type Keyboard struct {
	sink io.ByteWriter
}

// SetSink directs decoded characters to w. A nil sink discards them.
func (k *Keyboard) SetSink(w io.ByteWriter) {
	k.sink = w
}

// Sink returns the writer that receives decoded characters.
func (k *Keyboard) Sink() io.ByteWriter {
	return k.sink
}

// HandleInterrupt reads the pending scancode and forwards its character to
// the sink. It is called by the IRQ 1 handler, which is responsible for
// acknowledging the interrupt controller.
func (k *Keyboard) HandleInterrupt() *kernel.Error {
	scancode := portReadByteFn(dataPort)
	if scancode == 0 {
		return errDetection
	}

	if ch, ok := Translate(scancode); ok && k.sink != nil {
		k.sink.WriteByte(ch)
	}

	return nil
}

func (k *Keyboard) DriverName() string {
	return "ps2kbd"
}

func (k *Keyboard) DriverVersion() (uint16, uint16, uint16) {
	return 0, 1, 0
}

// DriverInit drains any bytes left in the controller output buffer; until
// they are read the controller raises no further interrupts.
func (k *Keyboard) DriverInit(w io.Writer) *kernel.Error {
	drained := 0
	for ; drained < maxFlush && portReadByteFn(statusPort)&statusOutputFull != 0; drained++ {
		portReadByteFn(dataPort)
	}

	kfmt.Fprintf(w, "drained %d stale bytes\n", drained)
	return nil
}

// Default is the system keyboard.
var Default Keyboard

func detectKeyboard() device.Driver {
	return &Default
}

func init() {
	device.RegisterDriver(&device.DriverInfo{
		Order:  device.DetectOrderInput,
		Detect: detectKeyboard,
	})
}
