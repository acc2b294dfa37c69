package hal

import (
	"bytes"
	"image/color"
	"io"
	"testing"

	"x86kern/device"
	"x86kern/device/kbd"
	"x86kern/device/tty"
	"x86kern/device/video/console"
	"x86kern/kernel"
	"x86kern/kernel/kfmt"
)

func resetDevices(t *testing.T) {
	origSink := kfmt.GetOutputSink()
	devices = managedDevices{}
	logSink.reset()

	t.Cleanup(func() {
		devices = managedDevices{}
		logSink.reset()
		kfmt.SetOutputSink(origSink)
	})
}

func TestDetect(t *testing.T) {
	resetDevices(t)

	var buf bytes.Buffer
	kfmt.SetOutputSink(&buf)

	cons := newMockConsole(80, 25)
	vt := tty.NewVT(tty.DefaultTabWidth)
	failing := &mockDriver{name: "failing", initErr: &kernel.Error{Module: "test", Message: "no device"}}

	detect(device.DriverInfoList{
		{Detect: func() device.Driver { return failing }},
		{Detect: func() device.Driver { return nil }},
		{Detect: func() device.Driver { return cons }},
		{Detect: func() device.Driver { return vt }},
	})

	exp := "[hal] failing(0.0.1): init failed: no device\n" +
		"[hal] mockcons(0.0.1): initialized\n" +
		"[hal] vt(0.1.0): initialized\n"
	if got := buf.String(); got != exp {
		t.Fatalf("expected detect output:\n%q\ngot:\n%q", exp, got)
	}

	if ActiveConsole() != cons {
		t.Error("expected the mock console to become the active console")
	}

	if ActiveTTY() != vt {
		t.Error("expected the VT to become the active TTY")
	}

	if drivers := ActiveDrivers(); len(drivers) != 2 || drivers[0] != cons || drivers[1] != vt {
		t.Errorf("expected the console and the VT to be the active drivers; got %v", drivers)
	}

	if vt.State() != tty.StateActive {
		t.Error("expected the linked TTY to be active")
	}

	if kfmt.GetOutputSink() != &logSink {
		t.Fatal("expected kfmt output to be routed through the log sink")
	}

	kfmt.Printf("hi")
	if cons.chars[0] != 'h' || cons.chars[1] != 'i' {
		t.Errorf("expected kfmt output to reach the console; got %q", cons.chars[:2])
	}
}

func TestConsoleFirstOrTTYFirst(t *testing.T) {
	specs := []struct {
		consoleFirst bool
	}{
		{true},
		{false},
	}

	for specIndex, spec := range specs {
		resetDevices(t)
		kfmt.SetOutputSink(io.Discard)

		cons := newMockConsole(80, 25)
		vt := tty.NewVT(tty.DefaultTabWidth)

		if spec.consoleFirst {
			onDriverInit(nil, cons)
			onDriverInit(nil, vt)
		} else {
			onDriverInit(nil, vt)
			onDriverInit(nil, cons)
		}

		// Only the first console and TTY are used
		onDriverInit(nil, newMockConsole(40, 10))
		onDriverInit(nil, tty.NewVT(tty.DefaultTabWidth))

		if ActiveConsole() != cons || ActiveTTY() != vt {
			t.Errorf("[spec %d] expected the first console and TTY to be active", specIndex)
		}

		if vt.State() != tty.StateActive {
			t.Errorf("[spec %d] expected TTY to be linked to the console", specIndex)
		}
	}
}

func TestKeyboardSink(t *testing.T) {
	t.Run("keyboard before tty", func(t *testing.T) {
		resetDevices(t)
		kfmt.SetOutputSink(io.Discard)

		var kb kbd.Keyboard
		onDriverInit(nil, &kb)

		cons := newMockConsole(80, 25)
		vt := tty.NewVT(tty.DefaultTabWidth)
		onDriverInit(nil, cons)
		onDriverInit(nil, vt)

		if devices.activeKeyboard != &kb {
			t.Fatal("expected keyboard to be tracked")
		}

		if kb.Sink() != vt {
			t.Fatal("expected keyboard input to be sent to the linked TTY")
		}
	})

	t.Run("keyboard after tty", func(t *testing.T) {
		resetDevices(t)
		kfmt.SetOutputSink(io.Discard)

		cons := newMockConsole(80, 25)
		vt := tty.NewVT(tty.DefaultTabWidth)
		onDriverInit(nil, cons)
		onDriverInit(nil, vt)

		var kb, other kbd.Keyboard
		onDriverInit(nil, &kb)
		onDriverInit(nil, &other)

		if devices.activeKeyboard != &kb {
			t.Fatal("expected the first keyboard to stay active")
		}

		if kb.Sink() != vt || other.Sink() != nil {
			t.Fatal("expected only the active keyboard to be connected to the TTY")
		}
	})
}

func TestLogSink(t *testing.T) {
	resetDevices(t)

	var serialOut bytes.Buffer
	devices.activeSerial = &serialOut

	kfmt.SetOutputSink(nil)
	kfmt.Printf("early ")
	updateLogSink()
	kfmt.Printf("serial ")

	cons := newMockConsole(80, 25)
	onDriverInit(nil, cons)
	onDriverInit(nil, tty.NewVT(tty.DefaultTabWidth))
	kfmt.Printf("both")

	if exp, got := "early serial both", serialOut.String(); got != exp {
		t.Errorf("expected serial output %q; got %q", exp, got)
	}

	if got := string(cons.chars[:4]); got != "both" {
		t.Errorf("expected console output %q; got %q", "both", got)
	}

	if logSink.count != 2 {
		t.Errorf("expected log sink to fan out to 2 writers; got %d", logSink.count)
	}
}

func TestTeeWriter(t *testing.T) {
	var (
		tw   teeWriter
		a, b bytes.Buffer
	)

	tw.add(&a)
	tw.add(&b)
	tw.add(io.Discard) // ignored, no free slots

	if n, err := tw.Write([]byte("data")); n != 4 || err != nil {
		t.Fatalf("expected Write to return (4, nil); got (%d, %v)", n, err)
	}

	if a.String() != "data" || b.String() != "data" {
		t.Fatalf("expected both sinks to receive the data; got %q and %q", a.String(), b.String())
	}

	tw.reset()
	tw.Write([]byte("more"))
	if a.Len() != 4 {
		t.Fatal("expected reset to detach all sinks")
	}
}

func TestLineBuffer(t *testing.T) {
	var lb lineBuffer

	kfmt.Fprintf(&lb, "[hal] %s(%d.%d.%d): ", "uart16550", 0, 1, 0)
	if exp, got := "[hal] uart16550(0.1.0): ", string(lb.Bytes()); got != exp {
		t.Fatalf("expected %q; got %q", exp, got)
	}

	lb.Reset()
	long := bytes.Repeat([]byte{'x'}, 100)
	if n, _ := lb.Write(long); n != len(long) {
		t.Fatalf("expected Write to report %d bytes; got %d", len(long), n)
	}

	if got := len(lb.Bytes()); got != len(lb.buf) {
		t.Fatalf("expected overflowing writes to be truncated to %d bytes; got %d", len(lb.buf), got)
	}
}

type mockDriver struct {
	name    string
	initErr *kernel.Error
}

func (d *mockDriver) DriverName() string                      { return d.name }
func (d *mockDriver) DriverVersion() (uint16, uint16, uint16) { return 0, 0, 1 }
func (d *mockDriver) DriverInit(_ io.Writer) *kernel.Error    { return d.initErr }

type mockConsole struct {
	mockDriver
	width, height uint32
	chars         []uint8
}

func newMockConsole(w, h uint32) *mockConsole {
	return &mockConsole{
		mockDriver: mockDriver{name: "mockcons"},
		width:      w,
		height:     h,
		chars:      make([]uint8, w*h),
	}
}

func (cons *mockConsole) Dimensions(_ console.Dimension) (uint32, uint32) {
	return cons.width, cons.height
}

func (cons *mockConsole) DefaultColors() (uint8, uint8)         { return 7, 0 }
func (cons *mockConsole) Fill(_, _, _, _ uint32, _, _ uint8)    {}
func (cons *mockConsole) Scroll(_ console.ScrollDir, _ uint32)  {}
func (cons *mockConsole) PaletteColor(_ uint8) color.RGBA       { return color.RGBA{} }
func (cons *mockConsole) SetPaletteColor(_ uint8, _ color.RGBA) {}

func (cons *mockConsole) Write(b byte, _, _ uint8, x, y uint32) {
	cons.chars[(y-1)*cons.width+(x-1)] = b
}
