// Package irqchip drives the pair of cascaded 8259A programmable interrupt
// controllers found on PC-compatible machines. The master serves IRQ 0-7
// and the slave, wired to master line 2, serves IRQ 8-15. Both are remapped
// so that their lines raise vectors 0x20-0x2f, clear of the CPU exceptions.
package irqchip

import (
	"io"

	"x86kern/device"
	"x86kern/kernel"
	"x86kern/kernel/cpu"
	"x86kern/kernel/gate"
	"x86kern/kernel/kfmt"
)

const (
	masterCmdPort  = 0x20
	masterDataPort = 0x21
	slaveCmdPort   = 0xa0
	slaveDataPort  = 0xa1

	// icw1Init starts the initialization sequence and announces that ICW4
	// follows.
	icw1Init = 0x11

	// icw3MasterSlaveAt tells the master which of its lines has a slave
	// attached (bit mask, line 2).
	icw3MasterSlaveAt = 1 << cascadeLine

	// icw3SlaveID tells the slave its cascade identity (numeric, 2).
	icw3SlaveID = cascadeLine

	// icw4Mode8086 selects 8086/88 mode.
	icw4Mode8086 = 0x01

	cmdEOI = 0x20

	cascadeLine = 2

	// NumLines is the number of interrupt lines served by the pair.
	NumLines = 16
)

// Vector offsets of the master and slave lines.
const (
	MasterOffset = gate.Vector(0x20)
	SlaveOffset  = gate.Vector(0x28)
)

var (
	// The following functions are mocked by tests.
	portWriteByteFn = cpu.PortWriteByte
	portReadByteFn  = cpu.PortReadByte
	ioWaitFn        = cpu.IOWait

	errBadLine = &kernel.Error{Module: "pic8259", Message: "interrupt line out of range"}
)

// Vector returns the vector raised by IRQ line irq once the controllers are
// initialized.
func Vector(irq uint8) gate.Vector {
	return MasterOffset + gate.Vector(irq)
}

// Init runs the initialization sequence on both controllers and leaves every
// line unmasked. Interrupts must be disabled while Init runs.
func Init() {
	// mask everything while reprogramming
	portWriteByteFn(masterDataPort, 0xff)
	portWriteByteFn(slaveDataPort, 0xff)

	// ICW1
	portWriteByteFn(masterCmdPort, icw1Init)
	ioWaitFn()
	portWriteByteFn(slaveCmdPort, icw1Init)
	ioWaitFn()

	// ICW2: vector offsets
	portWriteByteFn(masterDataPort, uint8(MasterOffset))
	ioWaitFn()
	portWriteByteFn(slaveDataPort, uint8(SlaveOffset))
	ioWaitFn()

	// ICW3: cascade wiring, as seen from either side
	portWriteByteFn(masterDataPort, icw3MasterSlaveAt)
	ioWaitFn()
	portWriteByteFn(slaveDataPort, icw3SlaveID)
	ioWaitFn()

	// ICW4
	portWriteByteFn(masterDataPort, icw4Mode8086)
	ioWaitFn()
	portWriteByteFn(slaveDataPort, icw4Mode8086)
	ioWaitFn()

	// unmask all lines
	portWriteByteFn(masterDataPort, 0x00)
	portWriteByteFn(slaveDataPort, 0x00)
}

// EOI acknowledges the interrupt that raised v. Vectors served by the slave
// are acknowledged on both controllers; vectors outside the remapped range
// are ignored. Handlers of controller-sourced vectors must call EOI before
// returning or the line, and every line of lower priority, stays blocked.
func EOI(v gate.Vector) {
	if v < MasterOffset || v >= MasterOffset+NumLines {
		return
	}

	if v >= SlaveOffset {
		portWriteByteFn(slaveCmdPort, cmdEOI)
	}
	portWriteByteFn(masterCmdPort, cmdEOI)
}

// SetMask masks (or unmasks) IRQ line irq.
func SetMask(irq uint8, masked bool) *kernel.Error {
	if irq >= NumLines {
		return errBadLine
	}

	port := uint16(masterDataPort)
	if irq >= 8 {
		port = slaveDataPort
		irq -= 8
	}

	mask := portReadByteFn(port)
	if masked {
		mask |= 1 << irq
	} else {
		mask &^= 1 << irq
	}
	portWriteByteFn(port, mask)

	return nil
}

// Masks returns the current interrupt masks of the master and slave.
func Masks() (master, slave uint8) {
	return portReadByteFn(masterDataPort), portReadByteFn(slaveDataPort)
}

type pic8259Driver struct{}

func (*pic8259Driver) DriverName() string {
	return "pic8259"
}

func (*pic8259Driver) DriverVersion() (uint16, uint16, uint16) {
	return 0, 1, 0
}

func (*pic8259Driver) DriverInit(w io.Writer) *kernel.Error {
	Init()
	kfmt.Fprintf(w, "remapped IRQ 0-15 to vectors 0x%x-0x%x\n", uint8(MasterOffset), uint8(MasterOffset)+NumLines-1)
	return nil
}

var picDriver pic8259Driver

func detectPIC() device.Driver {
	return &picDriver
}

func init() {
	device.RegisterDriver(&device.DriverInfo{
		Order:  device.DetectOrderInterruptController,
		Detect: detectPIC,
	})
}
