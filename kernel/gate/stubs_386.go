package gate

import "x86kern/kernel/cpu"

//go:generate go run ../../tools/gengates -o stubs_386.s

// gateEntry returns the address of the assembly stub serving vec.
func gateEntry(vec uint8) uintptr

// activeCSFn returns the selector installed into new entries. It is mocked
// by tests.
var activeCSFn = cpu.ActiveCodeSegment
