package gate

import (
	"x86kern/kernel"
	"x86kern/kernel/kfmt"
)

// Handler handles a vector that does not push an error code. Changes to the
// frame or registers are propagated back to the interrupted code when the
// handler returns.
type Handler func(*Frame, *Registers)

// ErrorCodeHandler handles a vector for which the CPU pushes an error code.
type ErrorCodeHandler func(code uint32, frame *Frame, regs *Registers)

// DivergingHandler handles a vector whose saved state cannot be resumed. It
// must never return; usually it dumps the state and calls kfmt.Panic.
type DivergingHandler func(*Frame, *Registers)

// DivergingErrorCodeHandler is a DivergingHandler that also receives the
// error code pushed by the CPU.
type DivergingErrorCodeHandler func(code uint32, frame *Frame, regs *Registers)

var (
	errDivergingReturned = &kernel.Error{Module: "gate", Message: "diverging handler returned"}
	errUnhandledVector   = &kernel.Error{Module: "gate", Message: "no handler installed for vector"}
)

// handlerSlot holds the Go handler invoked by the dispatcher for a vector.
// Exactly one of fn and codeFn is set when installed is true.
type handlerSlot struct {
	installed bool
	kind      Kind
	fn        func(*Frame, *Registers)
	codeFn    func(uint32, *Frame, *Registers)
}

// PlainEntry is an entry whose handler takes no error code and may return.
type PlainEntry struct {
	*Entry
	table  *Table
	vector Vector
}

// SetHandlerFn installs h as the handler for the entry's vector and points
// the descriptor at the vector's gate stub.
func (e PlainEntry) SetHandlerFn(h Handler) {
	e.table.install(e.vector, handlerSlot{installed: true, kind: KindPlain, fn: h})
}

// ErrorCodeEntry is an entry whose handler receives an error code.
type ErrorCodeEntry struct {
	*Entry
	table  *Table
	vector Vector
}

// SetHandlerFn installs h as the handler for the entry's vector.
func (e ErrorCodeEntry) SetHandlerFn(h ErrorCodeHandler) {
	e.table.install(e.vector, handlerSlot{installed: true, kind: KindErrorCode, codeFn: h})
}

// DivergingEntry is an entry whose handler must never return.
type DivergingEntry struct {
	*Entry
	table  *Table
	vector Vector
}

// SetHandlerFn installs h as the handler for the entry's vector. If h
// returns, the dispatcher panics.
func (e DivergingEntry) SetHandlerFn(h DivergingHandler) {
	e.table.install(e.vector, handlerSlot{installed: true, kind: KindDiverging, fn: h})
}

// DivergingErrorCodeEntry is an entry whose handler receives an error code
// and must never return.
type DivergingErrorCodeEntry struct {
	*Entry
	table  *Table
	vector Vector
}

// SetHandlerFn installs h as the handler for the entry's vector. If h
// returns, the dispatcher panics.
func (e DivergingErrorCodeEntry) SetHandlerFn(h DivergingErrorCodeHandler) {
	e.table.install(e.vector, handlerSlot{installed: true, kind: KindDivergingErrorCode, codeFn: h})
}

// Vector returns the vector served by the entry.
func (e PlainEntry) Vector() Vector { return e.vector }

// Vector returns the vector served by the entry.
func (e ErrorCodeEntry) Vector() Vector { return e.vector }

// Vector returns the vector served by the entry.
func (e DivergingEntry) Vector() Vector { return e.vector }

// Vector returns the vector served by the entry.
func (e DivergingErrorCodeEntry) Vector() Vector { return e.vector }

// dispatchInterrupt is called by the common gate stub with a pointer to the
// saved context on the interrupted stack. It routes the interrupt to the
// handler installed in the table that was last published.
//
//go:nosplit
func dispatchInterrupt(ctx *interruptContext) {
	activeTable.dispatch(ctx)
}

// dispatch invokes the handler installed for ctx.Vector.
func (t *Table) dispatch(ctx *interruptContext) {
	v := Vector(ctx.Vector)
	if t == nil || !t.slots[v].installed {
		unhandled(v, ctx)
		return
	}

	slot := &t.slots[v]
	switch slot.kind {
	case KindPlain:
		slot.fn(&ctx.Frame, &ctx.Regs)
	case KindErrorCode:
		slot.codeFn(ctx.Code, &ctx.Frame, &ctx.Regs)
	case KindDiverging:
		slot.fn(&ctx.Frame, &ctx.Regs)
		divergingReturned(v)
	case KindDivergingErrorCode:
		slot.codeFn(ctx.Code, &ctx.Frame, &ctx.Regs)
		divergingReturned(v)
	}
}

func divergingReturned(v Vector) {
	kfmt.Printf("[gate] handler for vector %d (%s) returned\n", uint8(v), Describe(v).Name)
	panic(errDivergingReturned)
}

func unhandled(v Vector, ctx *interruptContext) {
	info := Describe(v)
	kfmt.Printf("\n[gate] unhandled vector %d (%s %s) code=%x\n", uint8(v), info.Mnemonic, info.Name, ctx.Code)
	ctx.Frame.DumpTo(kfmt.GetOutputSink())
	ctx.Regs.DumpTo(kfmt.GetOutputSink())
	panic(errUnhandledVector)
}

// Fire runs the handler installed for v exactly as the dispatcher would if
// the CPU had raised v with the given frame and error code, and returns the
// frame as left by the handler. The code is ignored for vectors that do not
// take one. No CPU state is touched, so Fire is safe to use from tests and
// hosted tools.
func (t *Table) Fire(v Vector, frame Frame, code uint32) Frame {
	ctx := interruptContext{Vector: uint32(v), Frame: frame}
	if Describe(v).Kind.HasErrorCode() {
		ctx.Code = code
	}

	t.dispatch(&ctx)
	return ctx.Frame
}
