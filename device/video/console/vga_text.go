package console

import (
	"image/color"
	"io"
	"unsafe"

	"x86kern/device"
	"x86kern/kernel"
	"x86kern/kernel/cpu"
	"x86kern/kernel/kfmt"
)

const (
	// KernelVirtBase is the address where the boot code maps the first 4M
	// of physical memory.
	KernelVirtBase = 0xc0000000

	// vgaTextPhysAddr is the physical address of the mode 0x3 framebuffer.
	vgaTextPhysAddr = 0xb8000

	vgaTextColumns = 80
	vgaTextRows    = 25

	crtcIndexPort  = 0x3d4
	crtcDataPort   = 0x3d5
	crtcCursorHigh = 0x0e
	crtcCursorLow  = 0x0f

	dacWriteIndexPort = 0x3c8
	dacDataPort       = 0x3c9
)

var (
	portWriteByteFn = cpu.PortWriteByte

	// mapFramebufferFn returns a slice backed by the memory at addr. It is
	// replaced by tests with a function that returns a regular slice.
	mapFramebufferFn = func(addr uintptr, cells int) []uint16 {
		return unsafe.Slice((*uint16)(unsafe.Pointer(addr)), cells)
	}

	egaPalette = [16]color.RGBA{
		{R: 0, G: 0, B: 1},       /* black */
		{R: 0, G: 0, B: 128},     /* blue */
		{R: 0, G: 128, B: 1},     /* green */
		{R: 0, G: 128, B: 128},   /* cyan */
		{R: 128, G: 0, B: 1},     /* red */
		{R: 128, G: 0, B: 128},   /* magenta */
		{R: 64, G: 64, B: 1},     /* brown */
		{R: 128, G: 128, B: 128}, /* light gray */
		{R: 64, G: 64, B: 64},    /* dark gray */
		{R: 0, G: 0, B: 255},     /* light blue */
		{R: 0, G: 255, B: 1},     /* light green */
		{R: 0, G: 255, B: 255},   /* light cyan */
		{R: 255, G: 0, B: 1},     /* light red */
		{R: 255, G: 0, B: 255},   /* light magenta */
		{R: 255, G: 255, B: 1},   /* yellow */
		{R: 255, G: 255, B: 255}, /* white */
	}
)

// VgaTextConsole implements an EGA-compatible text console using VGA mode
// 0x3. Each cell of the framebuffer is two bytes: the character code followed
// by an attribute byte holding the background color in the high nibble and
// the foreground color in the low nibble.
//
// The console starts out with light gray text (color 7) on a black background
// (color 0) and uses space as the clear character.
type VgaTextConsole struct {
	width  uint32
	height uint32

	fbAddr uintptr
	fb     []uint16

	palette   [16]color.RGBA
	defaultFg uint8
	defaultBg uint8
	clearChar uint16
}

// NewVgaTextConsole creates a new vga text console whose framebuffer lives at
// the virtual address fbAddr.
func NewVgaTextConsole(columns, rows uint32, fbAddr uintptr) *VgaTextConsole {
	cons := &VgaTextConsole{}
	cons.reset(columns, rows, fbAddr)
	return cons
}

func (cons *VgaTextConsole) reset(columns, rows uint32, fbAddr uintptr) {
	cons.width, cons.height = columns, rows
	cons.fbAddr = fbAddr
	cons.fb = nil
	cons.palette = egaPalette
	cons.defaultFg, cons.defaultBg = 7, 0
	cons.clearChar = uint16(' ')
}

// Dimensions returns the console width and height in the specified dimension.
func (cons *VgaTextConsole) Dimensions(dim Dimension) (uint32, uint32) {
	switch dim {
	case Characters:
		return cons.width, cons.height
	default:
		return cons.width * 8, cons.height * 16
	}
}

// DefaultColors returns the default foreground and background colors
// used by this console.
func (cons *VgaTextConsole) DefaultColors() (fg uint8, bg uint8) {
	return cons.defaultFg, cons.defaultBg
}

// Fill sets the contents of the specified rectangular region to the requested
// color. Both x and y coordinates are 1-based.
func (cons *VgaTextConsole) Fill(x, y, width, height uint32, fg, bg uint8) {
	var (
		clr                  = attr(fg, bg) | cons.clearChar
		rowOffset, colOffset uint32
	)

	// clip rectangle
	if x == 0 {
		x = 1
	} else if x >= cons.width {
		x = cons.width
	}

	if y == 0 {
		y = 1
	} else if y >= cons.height {
		y = cons.height
	}

	if x+width-1 > cons.width {
		width = cons.width - x + 1
	}

	if y+height-1 > cons.height {
		height = cons.height - y + 1
	}

	rowOffset = ((y - 1) * cons.width) + (x - 1)
	for ; height > 0; height, rowOffset = height-1, rowOffset+cons.width {
		for colOffset = rowOffset; colOffset < rowOffset+width; colOffset++ {
			cons.fb[colOffset] = clr
		}
	}
}

// Scroll the console contents to the specified direction. The caller
// is responsible for updating (e.g. clear or replace) the contents of
// the region that was scrolled.
func (cons *VgaTextConsole) Scroll(dir ScrollDir, lines uint32) {
	if lines == 0 || lines > cons.height {
		return
	}

	offset := lines * cons.width
	last := cons.height * cons.width

	switch dir {
	case ScrollDirUp:
		copy(cons.fb[:last-offset], cons.fb[offset:last])
	case ScrollDirDown:
		copy(cons.fb[offset:last], cons.fb[:last-offset])
	}
}

// Write a char to the specified location. If fg or bg exceed the supported
// colors for this console, they will be set to their default value. Both x and
// y coordinates are 1-based
func (cons *VgaTextConsole) Write(ch byte, fg, bg uint8, x, y uint32) {
	if x < 1 || x > cons.width || y < 1 || y > cons.height {
		return
	}

	if int(fg) >= len(cons.palette) {
		fg = cons.defaultFg
	}
	if int(bg) >= len(cons.palette) {
		bg = cons.defaultBg
	}

	cons.fb[((y-1)*cons.width)+(x-1)] = attr(fg, bg) | uint16(ch)
}

func attr(fg, bg uint8) uint16 {
	return ((uint16(bg) << 4) | uint16(fg&0xf)) << 8
}

// SetCursor moves the hardware cursor to (x,y) by programming the CRTC cursor
// location registers. Both coordinates are 1-based.
func (cons *VgaTextConsole) SetCursor(x, y uint32) {
	pos := cons.width * cons.height
	if x >= 1 && x <= cons.width && y >= 1 && y <= cons.height {
		pos = (y-1)*cons.width + (x - 1)
	}

	portWriteByteFn(crtcIndexPort, crtcCursorLow)
	portWriteByteFn(crtcDataPort, uint8(pos))
	portWriteByteFn(crtcIndexPort, crtcCursorHigh)
	portWriteByteFn(crtcDataPort, uint8(pos>>8))
}

// PaletteColor returns the color definition for the specified palette index.
func (cons *VgaTextConsole) PaletteColor(index uint8) color.RGBA {
	if int(index) >= len(cons.palette) {
		return color.RGBA{}
	}
	return cons.palette[index]
}

// SetPaletteColor updates the color definition for the specified
// palette index. Passing a color index greater than the number of
// supported colors is a no-op.
func (cons *VgaTextConsole) SetPaletteColor(index uint8, rgba color.RGBA) {
	if int(index) >= len(cons.palette) {
		return
	}

	cons.palette[index] = rgba

	// The DAC takes 6-bit components.
	portWriteByteFn(dacWriteIndexPort, index)
	portWriteByteFn(dacDataPort, rgba.R>>2)
	portWriteByteFn(dacDataPort, rgba.G>>2)
	portWriteByteFn(dacDataPort, rgba.B>>2)
}

// DriverName returns the name of this driver.
func (cons *VgaTextConsole) DriverName() string {
	return "vga_text_console"
}

// DriverVersion returns the version of this driver.
func (cons *VgaTextConsole) DriverVersion() (uint16, uint16, uint16) {
	return 0, 1, 0
}

// DriverInit attaches the framebuffer and clears it.
func (cons *VgaTextConsole) DriverInit(w io.Writer) *kernel.Error {
	cons.fb = mapFramebufferFn(cons.fbAddr, int(cons.width*cons.height))
	cons.Fill(1, 1, cons.width, cons.height, cons.defaultFg, cons.defaultBg)
	cons.SetCursor(1, 1)

	kfmt.Fprintf(w, "%dx%d text mode, framebuffer at 0x%x\n", cons.width, cons.height, cons.fbAddr)
	return nil
}

var vgaText VgaTextConsole

// detectVgaTextConsole returns the mode 0x3 console. The boot code never
// switches away from text mode so the framebuffer is always present.
func detectVgaTextConsole() device.Driver {
	vgaText.reset(vgaTextColumns, vgaTextRows, KernelVirtBase+vgaTextPhysAddr)
	return &vgaText
}

func init() {
	device.RegisterDriver(&device.DriverInfo{
		Order:  device.DetectOrderConsole,
		Detect: detectVgaTextConsole,
	})
}
