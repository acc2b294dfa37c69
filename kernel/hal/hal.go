// Package hal runs the registered device drivers and connects the devices
// it finds: the first console gets the first TTY, the TTY and the serial port
// carry kernel log output and the keyboard types into the TTY.
package hal

import (
	"io"

	"x86kern/device"
	"x86kern/device/kbd"
	"x86kern/device/serial"
	"x86kern/device/tty"
	"x86kern/device/video/console"
	"x86kern/kernel/kfmt"
)

// maxActiveDrivers bounds the number of drivers the HAL keeps track of.
const maxActiveDrivers = 16

// managedDevices contains the devices discovered by the HAL.
type managedDevices struct {
	activeConsole  console.Device
	activeTTY      tty.Device
	activeSerial   io.Writer
	activeKeyboard *kbd.Keyboard

	// activeDrivers tracks all initialized device drivers.
	activeDrivers     [maxActiveDrivers]device.Driver
	activeDriverCount int
}

var (
	devices managedDevices

	// logSink fans kfmt output out to the active serial port and TTY.
	logSink teeWriter

	// prefix holds the "[hal] name(x.y.z): " prefix for the driver being
	// initialized.
	prefix lineBuffer
)

// ActiveTTY returns the currently active TTY.
func ActiveTTY() tty.Device {
	return devices.activeTTY
}

// ActiveConsole returns the currently active console.
func ActiveConsole() console.Device {
	return devices.activeConsole
}

// ActiveDrivers returns the drivers that were successfully initialized in the
// order they were initialized.
func ActiveDrivers() []device.Driver {
	return devices.activeDrivers[:devices.activeDriverCount]
}

// DetectHardware looks for hardware devices and initializes the appropriate
// drivers. Drivers are detected in detection order so the interrupt controller
// is set up before any driver that unmasks an IRQ line.
func DetectHardware() {
	detect(device.DriverList())
}

// detect executes the detect function for each driver and invokes
// onDriverInit for each successfully initialized driver.
func detect(driverInfoList device.DriverInfoList) {
	var w = kfmt.PrefixWriter{Sink: kfmt.Writer{}}

	for _, info := range driverInfoList {
		drv := info.Detect()
		if drv == nil {
			continue
		}

		prefix.Reset()
		major, minor, patch := drv.DriverVersion()
		kfmt.Fprintf(&prefix, "[hal] %s(%d.%d.%d): ", drv.DriverName(), major, minor, patch)
		w.Prefix = prefix.Bytes()

		if err := drv.DriverInit(&w); err != nil {
			kfmt.Fprintf(&w, "init failed: %s\n", err.Message)
			continue
		}

		kfmt.Fprintf(&w, "initialized\n")
		onDriverInit(info, drv)

		if devices.activeDriverCount < maxActiveDrivers {
			devices.activeDrivers[devices.activeDriverCount] = drv
			devices.activeDriverCount++
		}
	}
}

// onDriverInit is invoked by detect() whenever a piece of hardware is detected
// and successfully initialized.
func onDriverInit(_ *device.DriverInfo, drv device.Driver) {
	switch drvImpl := drv.(type) {
	case *serial.Port:
		onSerialInit(drvImpl)
	case *kbd.Keyboard:
		onKeyboardInit(drvImpl)
	case console.Device:
		onConsoleInit(drvImpl)
	case tty.Device:
		if devices.activeTTY != nil {
			return
		}

		devices.activeTTY = drvImpl
		if devices.activeConsole != nil {
			linkTTYToConsole()
		}
	}
}

// onSerialInit routes kernel output to the first serial port. Anything logged
// so far is flushed to it.
func onSerialInit(port *serial.Port) {
	if devices.activeSerial != nil {
		return
	}

	devices.activeSerial = port
	updateLogSink()
}

// onConsoleInit is invoked whenever a console is initialized. The first
// console becomes the active console and gets linked to the active TTY, if
// there is one.
func onConsoleInit(cons console.Device) {
	if devices.activeConsole != nil {
		return
	}

	devices.activeConsole = cons
	if devices.activeTTY != nil {
		linkTTYToConsole()
	}
}

// onKeyboardInit feeds key presses to the active TTY.
func onKeyboardInit(kb *kbd.Keyboard) {
	if devices.activeKeyboard != nil {
		return
	}

	devices.activeKeyboard = kb
	if devices.activeTTY != nil {
		kb.SetSink(devices.activeTTY)
	}
}

// linkTTYToConsole connects the active TTY device to the active console device
// and syncs their contents.
func linkTTYToConsole() {
	devices.activeTTY.AttachTo(devices.activeConsole)

	// Sync terminal contents with console
	devices.activeTTY.SetState(tty.StateActive)

	if devices.activeKeyboard != nil {
		devices.activeKeyboard.SetSink(devices.activeTTY)
	}

	updateLogSink()
}

// updateLogSink points kfmt at the serial port and the linked TTY.
func updateLogSink() {
	logSink.reset()
	if devices.activeSerial != nil {
		logSink.add(devices.activeSerial)
	}
	if devices.activeTTY != nil && devices.activeConsole != nil {
		logSink.add(devices.activeTTY)
	}

	kfmt.SetOutputSink(&logSink)
}

// teeWriter duplicates writes to a fixed set of sinks. Write errors from
// individual sinks are ignored so a failing device does not silence the
// others.
type teeWriter struct {
	sinks [2]io.Writer
	count int
}

func (t *teeWriter) reset() {
	t.sinks = [2]io.Writer{}
	t.count = 0
}

func (t *teeWriter) add(w io.Writer) {
	if t.count < len(t.sinks) {
		t.sinks[t.count] = w
		t.count++
	}
}

// Write implements io.Writer.
func (t *teeWriter) Write(p []byte) (int, error) {
	for i := 0; i < t.count; i++ {
		t.sinks[i].Write(p)
	}
	return len(p), nil
}

// lineBuffer is a fixed capacity io.Writer. Bytes that do not fit are
// dropped.
type lineBuffer struct {
	buf [80]byte
	len int
}

func (b *lineBuffer) Reset() {
	b.len = 0
}

func (b *lineBuffer) Bytes() []byte {
	return b.buf[:b.len]
}

func (b *lineBuffer) Write(p []byte) (int, error) {
	n := copy(b.buf[b.len:], p)
	b.len += n
	return len(p), nil
}
