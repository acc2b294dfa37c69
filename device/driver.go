// Package device defines the contract between hardware drivers and the HAL:
// drivers register a detect function together with a detection order and the
// HAL initializes whatever they find.
package device

import (
	"io"

	"x86kern/kernel"
	ksync "x86kern/kernel/sync"
)

// Driver is an interface implemented by all drivers.
type Driver interface {
	// DriverName returns the name of the driver.
	DriverName() string

	// DriverVersion returns the driver version.
	DriverVersion() (major uint16, minor uint16, patch uint16)

	// DriverInit initializes the device driver. If the driver init code
	// needs to log some output, it can use the supplied io.Writer in
	// conjunction with a call to kfmt.Fprintf.
	DriverInit(io.Writer) *kernel.Error
}

// DetectFn is a function that scans for the presence of a particular
// piece of hardware and returns a driver for it, or nil if the hardware is
// absent.
type DetectFn func() Driver

// DetectOrder specifies when a driver is detected relative to the others.
// Drivers with a lower order are detected first.
type DetectOrder int8

const (
	// DetectOrderEarly is used by drivers that others depend on.
	DetectOrderEarly DetectOrder = -128

	// DetectOrderInterruptController is used by the PIC; device drivers
	// that unmask interrupt lines must be detected after it.
	DetectOrderInterruptController DetectOrder = -64

	// DetectOrderTimer is used by the interval timer.
	DetectOrderTimer DetectOrder = -48

	// DetectOrderSerial is used by serial ports so that they can capture
	// the output of the drivers detected after them.
	DetectOrderSerial DetectOrder = -32

	// DetectOrderConsole is used by console drivers.
	DetectOrderConsole DetectOrder = -16

	// DetectOrderTTY is used by terminal drivers, which attach to the
	// console detected before them.
	DetectOrderTTY DetectOrder = 0

	// DetectOrderInput is used by input devices that feed the active TTY.
	DetectOrderInput DetectOrder = 16

	// DetectOrderLast is used by drivers that should be detected after all
	// others.
	DetectOrderLast DetectOrder = 127
)

// DriverInfo describes a registered driver.
type DriverInfo struct {
	// Order specifies when the driver is detected.
	Order DetectOrder

	// Detect scans for the hardware supported by the driver.
	Detect DetectFn
}

// DriverInfoList is a list of registered drivers sorted by detection order.
type DriverInfoList []*DriverInfo

// maxDrivers bounds the registry. Registration happens from init() blocks
// before any allocator is available so the list is backed by a fixed array.
const maxDrivers = 16

var (
	registryLock          ksync.Spinlock
	registeredDrivers     [maxDrivers]*DriverInfo
	registeredDriverCount int

	errRegistryFull = &kernel.Error{Module: "device", Message: "driver registry is full"}
)

// RegisterDriver adds info to the registry, keeping the registry sorted by
// detection order. Drivers with the same order are detected in registration
// order. Drivers register themselves from an init() block.
func RegisterDriver(info *DriverInfo) {
	registryLock.Acquire()
	if registeredDriverCount == maxDrivers {
		registryLock.Release()
		panic(errRegistryFull)
	}

	i := registeredDriverCount
	for ; i > 0 && registeredDrivers[i-1].Order > info.Order; i-- {
		registeredDrivers[i] = registeredDrivers[i-1]
	}
	registeredDrivers[i] = info
	registeredDriverCount++
	registryLock.Release()
}

// DriverList returns the registered drivers in detection order.
func DriverList() DriverInfoList {
	registryLock.Acquire()
	defer registryLock.Release()
	return registeredDrivers[:registeredDriverCount]
}
