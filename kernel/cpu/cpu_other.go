//go:build !386 && !amd64

package cpu

// The kernel only runs on x86. These stubs keep the package buildable on
// other host architectures so that tests of dependent packages can run.

func EnableInterrupts() {
	panic(errNotX86)
}

func DisableInterrupts() {
	panic(errNotX86)
}

func Halt() {
	panic(errNotX86)
}

func Breakpoint() {
	panic(errNotX86)
}

func ActiveCodeSegment() uint16 {
	panic(errNotX86)
}

func ReadCR0() uintptr {
	panic(errNotX86)
}

func ReadCR2() uintptr {
	panic(errNotX86)
}

func ReadCR3() uintptr {
	panic(errNotX86)
}

func StackPointer() uintptr {
	panic(errNotX86)
}

func LoadIDT(ptr uintptr) {
	panic(errNotX86)
}

func PortWriteByte(port uint16, val uint8) {
	panic(errNotX86)
}

func PortReadByte(port uint16) uint8 {
	panic(errNotX86)
}

const errNotX86 = "cpu: privileged instruction invoked on a non-x86 host"
