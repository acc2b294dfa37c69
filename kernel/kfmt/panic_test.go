package kfmt

import (
	"bytes"
	"errors"
	"testing"

	"x86kern/kernel"
	"x86kern/kernel/cpu"
)

func TestPanic(t *testing.T) {
	origSink := outputSink
	defer func() {
		cpuHaltFn = cpu.Halt
		disableInterruptsFn = cpu.DisableInterrupts
		outputSink = origSink
	}()

	var haltCalled, cliCalled bool
	cpuHaltFn = func() { haltCalled = true }
	disableInterruptsFn = func() { cliCalled = true }

	var buf bytes.Buffer
	SetOutputSink(&buf)

	specs := []struct {
		descr string
		arg   interface{}
		exp   string
	}{
		{
			"with *kernel.Error",
			&kernel.Error{Module: "test", Message: "panic test"},
			"[test] unrecoverable error: panic test\n",
		},
		{
			"with error",
			errors.New("go error"),
			"[rt] unrecoverable error: go error\n",
		},
		{
			"with string",
			"string error",
			"[rt] unrecoverable error: string error\n",
		},
		{
			"without error",
			nil,
			"",
		},
	}

	for _, spec := range specs {
		t.Run(spec.descr, func(t *testing.T) {
			buf.Reset()
			haltCalled, cliCalled = false, false

			Panic(spec.arg)

			exp := panicRule + spec.exp + "*** kernel panic: system halted ***" + panicRule
			if got := buf.String(); got != exp {
				t.Fatalf("expected to get:\n%q\ngot:\n%q", exp, got)
			}

			if !cliCalled {
				t.Fatal("expected Panic to disable interrupts")
			}

			if !haltCalled {
				t.Fatal("expected Panic to halt the CPU")
			}
		})
	}
}
