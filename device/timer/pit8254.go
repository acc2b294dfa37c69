// Package timer drives the 8254 programmable interval timer. Channel 0 is
// wired to IRQ 0 and provides the periodic system tick; channel 2 drives the
// PC speaker.
package timer

import (
	"io"
	"sync/atomic"

	"x86kern/device"
	"x86kern/kernel"
	"x86kern/kernel/cpu"
	"x86kern/kernel/kfmt"
)

const (
	// BaseFrequency is the frequency of the PIT oscillator in Hz.
	BaseFrequency = 1193180

	// MinFrequency is the lowest frequency a 16-bit reload count can
	// produce. Lower frequencies use the maximum count (0, read as 65536).
	MinFrequency = 19

	// DefaultFrequency is the system tick rate in Hz.
	DefaultFrequency = 200

	controlPort  = 0x43
	counter0Port = 0x40

	// accessLowHigh selects a low byte then high byte reload count.
	accessLowHigh = 0x30
)

// Mode is a PIT operating mode.
type Mode uint8

const (
	// ModeRateGenerator (mode 2) fires once every reload count ticks.
	ModeRateGenerator Mode = 2

	// ModeSquareWave (mode 3) outputs a square wave at the programmed
	// frequency.
	ModeSquareWave Mode = 3
)

var (
	// portWriteByteFn is mocked by tests.
	portWriteByteFn = cpu.PortWriteByte

	ticks uint64

	errBadChannel = &kernel.Error{Module: "pit8254", Message: "unsupported channel"}
	errBadMode    = &kernel.Error{Module: "pit8254", Message: "unsupported mode"}
)

// ReloadCount returns the 16-bit counter reload value for freq Hz, rounded to
// the nearest integer. Frequencies below MinFrequency yield 0, which the
// PIT interprets as 65536. Counts below 2 are illegal in the periodic modes
// and are raised to 2.
func ReloadCount(freq uint32) uint16 {
	if freq < MinFrequency {
		return 0
	}

	count := (BaseFrequency + freq/2) / freq
	if count < 2 {
		return 2
	}

	return uint16(count)
}

// ConfigureChannel programs channel ch (0 or 2) for mode at freq Hz.
func ConfigureChannel(ch uint8, mode Mode, freq uint32) *kernel.Error {
	if ch != 0 && ch != 2 {
		return errBadChannel
	}

	if mode != ModeRateGenerator && mode != ModeSquareWave {
		return errBadMode
	}

	count := ReloadCount(freq)
	portWriteByteFn(controlPort, ch<<6|accessLowHigh|uint8(mode)<<1)
	portWriteByteFn(counter0Port+uint16(ch), uint8(count))
	portWriteByteFn(counter0Port+uint16(ch), uint8(count>>8))

	return nil
}

// Tick records one timer interrupt. It is called by the IRQ 0 handler.
func Tick() {
	atomic.AddUint64(&ticks, 1)
}

// Ticks returns the number of timer interrupts since boot.
func Ticks() uint64 {
	return atomic.LoadUint64(&ticks)
}

type pit8254Driver struct{}

func (*pit8254Driver) DriverName() string {
	return "pit8254"
}

func (*pit8254Driver) DriverVersion() (uint16, uint16, uint16) {
	return 0, 1, 0
}

func (*pit8254Driver) DriverInit(w io.Writer) *kernel.Error {
	if err := ConfigureChannel(0, ModeRateGenerator, DefaultFrequency); err != nil {
		return err
	}

	kfmt.Fprintf(w, "channel 0 at %d Hz (count %d)\n", DefaultFrequency, ReloadCount(DefaultFrequency))
	return nil
}

var pitDriver pit8254Driver

func detectPIT() device.Driver {
	return &pitDriver
}

func init() {
	device.RegisterDriver(&device.DriverInfo{
		Order:  device.DetectOrderTimer,
		Detect: detectPIT,
	})
}
