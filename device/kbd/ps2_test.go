package kbd

import (
	"bytes"
	"testing"

	"x86kern/kernel/cpu"
)

func TestTranslate(t *testing.T) {
	specs := []struct {
		scancode uint8
		expCh    byte
		expOK    bool
	}{
		{0x02, '1', true},
		{0x0a, '9', true},
		{0x0b, '0', true},
		{0x0e, '\b', true},
		{0x10, 'q', true},
		{0x19, 'p', true},
		{0x1c, '\n', true},
		{0x1e, 'a', true},
		{0x26, 'l', true},
		{0x2c, 'z', true},
		{0x32, 'm', true},
		{0x39, ' ', true},
		{0x01, '?', true}, // escape
		{0x1a, '?', true},
		{0x27, '?', true},
		{0x33, '?', true},
		{0x82, 0, false}, // '1' released
		{0xff, 0, false},
	}

	for specIndex, spec := range specs {
		ch, ok := Translate(spec.scancode)
		if ch != spec.expCh || ok != spec.expOK {
			t.Errorf("[spec %d] expected Translate(0x%x) to return (%q, %t); got (%q, %t)", specIndex, spec.scancode, spec.expCh, spec.expOK, ch, ok)
		}
	}
}

func mockScancodes(t *testing.T, status uint8, codes ...uint8) {
	portReadByteFn = func(port uint16) uint8 {
		if port == statusPort {
			if len(codes) == 0 {
				return 0
			}
			return status
		}

		if len(codes) == 0 {
			return 0
		}
		code := codes[0]
		codes = codes[1:]
		return code
	}
	t.Cleanup(func() { portReadByteFn = cpu.PortReadByte })
}

func TestHandleInterrupt(t *testing.T) {
	var (
		buf bytes.Buffer
		k   Keyboard
	)
	k.SetSink(&buf)

	mockScancodes(t, 0, 0x23, 0xa3, 0x12, 0x26, 0x26, 0x18, 0x1c)
	for i := 0; i < 7; i++ {
		if err := k.HandleInterrupt(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if exp := "hello\n"; buf.String() != exp {
		t.Fatalf("expected sink to receive %q; got %q", exp, buf.String())
	}

	mockScancodes(t, 0, 0x00)
	if err := k.HandleInterrupt(); err != errDetection {
		t.Fatalf("expected errDetection; got %v", err)
	}

	t.Run("no sink", func(t *testing.T) {
		var k Keyboard
		mockScancodes(t, 0, 0x1e)
		if err := k.HandleInterrupt(); err != nil {
			t.Fatal(err)
		}
	})
}

func TestDriverInit(t *testing.T) {
	mockScancodes(t, statusOutputFull, 0xfa, 0xaa)

	drv := detectKeyboard()
	if drv.DriverName() != "ps2kbd" {
		t.Fatalf("unexpected driver name %q", drv.DriverName())
	}

	var buf bytes.Buffer
	if err := drv.DriverInit(&buf); err != nil {
		t.Fatal(err)
	}

	if exp := "drained 2 stale bytes\n"; buf.String() != exp {
		t.Fatalf("expected output %q; got %q", exp, buf.String())
	}
}
