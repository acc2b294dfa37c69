// Package serial drives 16550-compatible UARTs. The kernel uses COM1 as a
// second output sink so that logs survive a broken or absent console.
package serial

import (
	"io"

	"x86kern/device"
	"x86kern/kernel"
	"x86kern/kernel/cpu"
	"x86kern/kernel/kfmt"
)

// COM1 is the I/O base of the first serial port.
const COM1 = 0x3f8

// Register offsets from the port base.
const (
	regData        = 0 // DLAB=0
	regDivisorLow  = 0 // DLAB=1
	regIntEnable   = 1 // DLAB=0
	regDivisorHigh = 1 // DLAB=1
	regFIFOControl = 2
	regLineControl = 3
	regModemCtrl   = 4
	regLineStatus  = 5
)

const (
	lcrDLAB     = 0x80
	lcr8N1      = 0x03
	fifoEnable  = 0xc7 // enable, clear both, 14 byte threshold
	mcrDTRRTS   = 0x0b // DTR, RTS, OUT2
	ierRxAvail  = 0x01
	lsrTHREmpty = 0x20

	// baudDivisor selects 38400 baud.
	baudDivisor = 3
)

var (
	// The following functions are mocked by tests.
	portWriteByteFn = cpu.PortWriteByte
	portReadByteFn  = cpu.PortReadByte
)

// Port is a 16550 UART.
type Port struct {
	base uint16
}

// NewPort returns the UART at I/O base address base.
func NewPort(base uint16) *Port {
	return &Port{base: base}
}

// Init programs the UART for 38400 baud, 8 data bits, no parity, one stop
// bit with FIFOs enabled and the receive interrupt on.
func (p *Port) Init() {
	portWriteByteFn(p.base+regIntEnable, 0x00)
	portWriteByteFn(p.base+regLineControl, lcrDLAB)
	portWriteByteFn(p.base+regDivisorLow, baudDivisor&0xff)
	portWriteByteFn(p.base+regDivisorHigh, baudDivisor>>8)
	portWriteByteFn(p.base+regLineControl, lcr8N1)
	portWriteByteFn(p.base+regFIFOControl, fifoEnable)
	portWriteByteFn(p.base+regModemCtrl, mcrDTRRTS)
	portWriteByteFn(p.base+regIntEnable, ierRxAvail)
}

// send busy-waits until the transmit holding register is empty and then
// writes b.
func (p *Port) send(b byte) {
	for portReadByteFn(p.base+regLineStatus)&lsrTHREmpty == 0 {
	}
	portWriteByteFn(p.base+regData, b)
}

// WriteByte implements io.ByteWriter. Line feeds are sent as CR LF and a
// backspace erases the previous character on the remote terminal.
func (p *Port) WriteByte(b byte) error {
	switch b {
	case '\n':
		p.send('\r')
		p.send('\n')
	case '\b':
		p.send('\b')
		p.send(' ')
		p.send('\b')
	default:
		p.send(b)
	}

	return nil
}

// Write implements io.Writer.
func (p *Port) Write(data []byte) (int, error) {
	for _, b := range data {
		p.WriteByte(b)
	}

	return len(data), nil
}

// DriverName returns the name of this driver.
func (p *Port) DriverName() string {
	return "uart16550"
}

// DriverVersion returns the version of this driver.
func (p *Port) DriverVersion() (uint16, uint16, uint16) {
	return 0, 1, 0
}

// DriverInit initializes the UART.
func (p *Port) DriverInit(w io.Writer) *kernel.Error {
	p.Init()
	kfmt.Fprintf(w, "port 0x%x at 38400 8N1\n", p.base)
	return nil
}

var com1 = Port{base: COM1}

func detectCOM1() device.Driver {
	return &com1
}

func init() {
	device.RegisterDriver(&device.DriverInfo{
		Order:  device.DetectOrderSerial,
		Detect: detectCOM1,
	})
}
