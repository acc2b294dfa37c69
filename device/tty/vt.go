package tty

import (
	"io"

	"x86kern/device"
	"x86kern/device/video/console"
	"x86kern/kernel"
)

// cell is a single character position of the terminal screen.
type cell struct {
	ch, fg, bg uint8
}

// VT implements a terminal that mirrors the screen of an attached console.
// The terminal interprets the following special characters:
//   - \r (carriage-return)
//   - \n (line-feed)
//   - \b (backspace)
//   - \t (tab; expanded to tabWidth spaces)
//
// The screen contents are kept in a fixed array inside the VT so attaching a
// console never allocates. While the terminal is inactive writes only update
// that copy; activating the terminal repaints the console from it.
type VT struct {
	cons console.Device

	width, height uint32
	cells         [maxCells]cell

	tabWidth         uint8
	fg, bg           uint8
	cursorX, cursorY uint32
	state            State
}

// NewVT creates a new virtual terminal device whose tabs expand to tabWidth
// spaces.
func NewVT(tabWidth uint8) *VT {
	t := &VT{}
	t.reset(tabWidth)
	return t
}

func (t *VT) reset(tabWidth uint8) {
	t.cons = nil
	t.width, t.height = 0, 0
	t.state = StateInactive
	t.tabWidth = tabWidth
	t.cursorX, t.cursorY = 1, 1
}

// AttachTo connects a TTY to a console instance and clears the terminal
// using the console's default colors. Consoles with more cells than the
// terminal can hold lose their bottom rows.
func (t *VT) AttachTo(cons console.Device) {
	if cons == nil {
		return
	}

	w, h := cons.Dimensions(console.Characters)
	if w == 0 || h == 0 {
		return
	}

	if w > maxCells {
		w = maxCells
	}
	if w*h > maxCells {
		h = maxCells / w
	}

	t.cons = cons
	t.width, t.height = w, h
	t.fg, t.bg = cons.DefaultColors()
	t.cursorX, t.cursorY = 1, 1
	t.clear(t.screen())
}

// screen returns the cells covered by the attached console.
func (t *VT) screen() []cell {
	return t.cells[:t.width*t.height]
}

func (t *VT) clear(cells []cell) {
	for i := range cells {
		cells[i] = cell{' ', t.fg, t.bg}
	}
}

// State returns the TTY's state.
func (t *VT) State() State {
	return t.state
}

// SetState updates the TTY's state. Activating a terminal repaints the
// attached console with the terminal contents.
func (t *VT) SetState(newState State) {
	if t.state == newState {
		return
	}

	t.state = newState
	if t.state != StateActive || t.cons == nil {
		return
	}

	for i, c := range t.screen() {
		x, y := uint32(i)%t.width, uint32(i)/t.width
		t.cons.Write(c.ch, c.fg, c.bg, x+1, y+1)
	}
	t.syncCursor()
}

// CursorPosition returns the current cursor position.
func (t *VT) CursorPosition() (uint32, uint32) {
	return t.cursorX, t.cursorY
}

// SetCursorPosition sets the current cursor position to (x,y), clipped to the
// terminal dimensions.
func (t *VT) SetCursorPosition(x, y uint32) {
	if t.cons == nil {
		return
	}

	t.cursorX, t.cursorY = clip(x, t.width), clip(y, t.height)
	t.syncCursor()
}

func clip(v, max uint32) uint32 {
	switch {
	case v < 1:
		return 1
	case v > max:
		return max
	default:
		return v
	}
}

// Write implements io.Writer.
func (t *VT) Write(data []byte) (int, error) {
	for count, b := range data {
		if err := t.WriteByte(b); err != nil {
			return count, err
		}
	}

	return len(data), nil
}

// WriteByte implements io.ByteWriter.
func (t *VT) WriteByte(b byte) error {
	if t.cons == nil {
		return io.ErrClosedPipe
	}

	switch b {
	case '\r':
		t.cursorX = 1
	case '\n':
		t.newLine()
	case '\b':
		if t.cursorX > 1 {
			t.cursorX--
			t.put(' ')
		}
	case '\t':
		for i := uint8(0); i < t.tabWidth; i++ {
			t.put(' ')
			t.advance()
		}
	default:
		t.put(b)
		t.advance()
	}

	t.syncCursor()
	return nil
}

// syncCursor moves the hardware cursor of an active terminal's console, if it
// has one, to the terminal cursor position.
func (t *VT) syncCursor() {
	if t.state != StateActive || t.cons == nil {
		return
	}

	if cs, ok := t.cons.(console.CursorSetter); ok {
		cs.SetCursor(t.cursorX, t.cursorY)
	}
}

// put stores b at the cursor position and, if the terminal is active, draws
// it on the console.
func (t *VT) put(b byte) {
	t.cells[(t.cursorY-1)*t.width+t.cursorX-1] = cell{b, t.fg, t.bg}
	if t.state == StateActive {
		t.cons.Write(b, t.fg, t.bg, t.cursorX, t.cursorY)
	}
}

// advance moves the cursor one column right, wrapping to the next line at
// the right edge.
func (t *VT) advance() {
	if t.cursorX++; t.cursorX > t.width {
		t.newLine()
	}
}

// newLine moves the cursor to the start of the next line, scrolling the
// contents up when the cursor is on the last line.
func (t *VT) newLine() {
	t.cursorX = 1
	if t.cursorY < t.height {
		t.cursorY++
		return
	}

	screen := t.screen()
	copy(screen, screen[t.width:])
	t.clear(screen[len(screen)-int(t.width):])

	if t.state == StateActive {
		t.cons.Scroll(console.ScrollDirUp, 1)
		t.cons.Fill(1, t.height, t.width, 1, t.fg, t.bg)
	}
}

// DriverName returns the name of this driver.
func (t *VT) DriverName() string {
	return "vt"
}

// DriverVersion returns the version of this driver.
func (t *VT) DriverVersion() (uint16, uint16, uint16) {
	return 0, 1, 0
}

// DriverInit initializes this driver.
func (t *VT) DriverInit(_ io.Writer) *kernel.Error { return nil }

var vt0 VT

func detectVT() device.Driver {
	vt0.reset(DefaultTabWidth)
	return &vt0
}

func init() {
	device.RegisterDriver(&device.DriverInfo{
		Order:  device.DetectOrderTTY,
		Detect: detectVT,
	})
}
