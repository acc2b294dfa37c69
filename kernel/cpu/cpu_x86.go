//go:build 386 || amd64

package cpu

// EnableInterrupts enables interrupt handling (sti).
func EnableInterrupts()

// DisableInterrupts disables interrupt handling (cli).
func DisableInterrupts()

// Halt stops instruction execution until the next interrupt (hlt).
func Halt()

// Breakpoint raises a breakpoint exception (int3).
func Breakpoint()

// ActiveCodeSegment returns the selector currently loaded in CS.
func ActiveCodeSegment() uint16

// ReadCR0 returns the value stored in the CR0 register.
func ReadCR0() uintptr

// ReadCR2 returns the value stored in the CR2 register. After a page fault
// it holds the linear address whose access faulted.
func ReadCR2() uintptr

// ReadCR3 returns the physical address of the active page directory.
func ReadCR3() uintptr

// StackPointer returns the value of ESP at the call site.
func StackPointer() uintptr

// LoadIDT loads the interrupt descriptor table register from the 6-byte
// pseudo-descriptor (limit, base) located at ptr.
func LoadIDT(ptr uintptr)

// PortWriteByte writes a uint8 value to the requested port.
func PortWriteByte(port uint16, val uint8)

// PortReadByte reads a uint8 value from the requested port.
func PortReadByte(port uint16) uint8
