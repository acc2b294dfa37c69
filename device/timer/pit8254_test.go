package timer

import (
	"bytes"
	"testing"

	"x86kern/kernel/cpu"
)

func TestReloadCount(t *testing.T) {
	specs := []struct {
		freq uint32
		exp  uint16
	}{
		{0, 0},
		{18, 0},
		// 19 Hz is the lowest frequency that still fits; only lower ones load 0
		{19, 62799},
		{100, 11932},
		{200, 5966},
		{1000, 1193},
		{596590, 2},
		{BaseFrequency, 2},
		{BaseFrequency + 1, 2},
		{0xffffffff, 2},
	}

	for specIndex, spec := range specs {
		if got := ReloadCount(spec.freq); got != spec.exp {
			t.Errorf("[spec %d] expected ReloadCount(%d) to return %d; got %d", specIndex, spec.freq, spec.exp, got)
		}
	}
}

type portWrite struct {
	port uint16
	val  uint8
}

func mockPorts(t *testing.T) *[]portWrite {
	var writes []portWrite
	portWriteByteFn = func(port uint16, val uint8) {
		writes = append(writes, portWrite{port, val})
	}
	t.Cleanup(func() { portWriteByteFn = cpu.PortWriteByte })
	return &writes
}

func TestConfigureChannel(t *testing.T) {
	specs := []struct {
		ch     uint8
		mode   Mode
		freq   uint32
		exp    []portWrite
		expErr bool
	}{
		{0, ModeRateGenerator, 100, []portWrite{{0x43, 0x34}, {0x40, 0x9c}, {0x40, 0x2e}}, false},
		{2, ModeSquareWave, 1000, []portWrite{{0x43, 0xb6}, {0x42, 0xa9}, {0x42, 0x04}}, false},
		{0, ModeSquareWave, 10, []portWrite{{0x43, 0x36}, {0x40, 0x00}, {0x40, 0x00}}, false},
		{1, ModeRateGenerator, 100, nil, true},
		{3, ModeRateGenerator, 100, nil, true},
		{0, Mode(0), 100, nil, true},
	}

	for specIndex, spec := range specs {
		writes := mockPorts(t)

		err := ConfigureChannel(spec.ch, spec.mode, spec.freq)
		if (err != nil) != spec.expErr {
			t.Errorf("[spec %d] unexpected error value: %v", specIndex, err)
			continue
		}

		if len(*writes) != len(spec.exp) {
			t.Errorf("[spec %d] expected %d writes; got %v", specIndex, len(spec.exp), *writes)
			continue
		}

		for i := range spec.exp {
			if (*writes)[i] != spec.exp[i] {
				t.Errorf("[spec %d] write %d: expected %v; got %v", specIndex, i, spec.exp[i], (*writes)[i])
			}
		}
	}
}

func TestTicks(t *testing.T) {
	before := Ticks()
	for i := 0; i < 5; i++ {
		Tick()
	}

	if got := Ticks() - before; got != 5 {
		t.Fatalf("expected 5 ticks to be recorded; got %d", got)
	}
}

func TestDriver(t *testing.T) {
	writes := mockPorts(t)

	drv := detectPIT()
	if drv.DriverName() != "pit8254" {
		t.Fatalf("unexpected driver name %q", drv.DriverName())
	}

	var buf bytes.Buffer
	if err := drv.DriverInit(&buf); err != nil {
		t.Fatal(err)
	}

	if len(*writes) != 3 || (*writes)[0] != (portWrite{0x43, 0x34}) {
		t.Fatalf("expected channel 0 to be programmed in mode 2; got %v", *writes)
	}

	if exp := "channel 0 at 200 Hz (count 5966)\n"; buf.String() != exp {
		t.Fatalf("expected output %q; got %q", exp, buf.String())
	}
}
