// Package cpu exposes the single-instruction primitives the kernel needs to
// talk to an x86 processor running in 32-bit protected mode. Every function
// without a body is implemented in cpu_386.s; cpu_amd64.s carries the same
// encodings so that host test binaries link. Tests must never call them and
// should mock the function variables declared by the packages that use them.
package cpu

// IOWait performs a write to port 0x80 (POST diagnostics) which takes long
// enough for slow devices such as the 8259A to settle between commands.
func IOWait() {
	PortWriteByte(postPort, 0)
}

const postPort = 0x80

// CR0Paging is set in CR0 when paging is enabled.
const CR0Paging = 1 << 31
