package gate

import "x86kern/kernel/sync"

var (
	idtOnce sync.Lazy
	idt     Table
)

// IDT returns the process-wide interrupt descriptor table, constructing it
// with every entry absent on first use. Concurrent first callers all get the
// same, fully constructed table.
func IDT() *Table {
	idtOnce.Do(idt.Reset)
	return &idt
}
