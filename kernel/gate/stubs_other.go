//go:build !386

package gate

// Host builds have no gate stubs. Stub addresses are simulated with a fixed
// stride starting at the usual kernel load address so that tables built by
// tests and hosted tools look like the real thing.
const (
	hostStubBase   = 0x00100000
	hostStubStride = 16

	// hostKernelCS is the flat ring 0 code segment set up by the boot GDT.
	hostKernelCS = 0x08
)

// activeCSFn returns the selector installed into new entries. Host builds
// report the kernel code segment instead of the host's own.
var activeCSFn = func() uint16 { return hostKernelCS }

func gateEntry(vec uint8) uintptr {
	return hostStubBase + uintptr(vec)*hostStubStride
}
