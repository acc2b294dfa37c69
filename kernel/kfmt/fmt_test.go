package kfmt

import (
	"bytes"
	"testing"
)

func TestPrintf(t *testing.T) {
	origSink := outputSink
	defer func() {
		outputSink = origSink
	}()

	// mute vet warnings about malformed printf formatting strings
	printfn := Printf

	specs := []struct {
		fn        func()
		expOutput string
	}{
		{
			func() { printfn("no args") },
			"no args",
		},
		// bool values
		{
			func() { printfn("%t", true) },
			"true",
		},
		{
			func() { printfn("%41t", false) },
			"false",
		},
		// strings and byte slices
		{
			func() { printfn("%s arg", "STRING") },
			"STRING arg",
		},
		{
			func() { printfn("%s arg", []byte("BYTE SLICE")) },
			"BYTE SLICE arg",
		},
		{
			func() { printfn("'%4s' arg with padding", "ABC") },
			"' ABC' arg with padding",
		},
		{
			func() { printfn("'%4s' arg longer than padding", "ABCDE") },
			"'ABCDE' arg longer than padding",
		},
		// single characters
		{
			func() { printfn("vector %c", 'A') },
			"vector A",
		},
		{
			func() { printfn("[%3c]", byte('x')) },
			"[  x]",
		},
		{
			func() { printfn("%c", int32(0x100)) },
			"%!(WRONGTYPE)",
		},
		// unsigned integers
		{
			func() { printfn("uint arg: %d", uint8(10)) },
			"uint arg: 10",
		},
		{
			func() { printfn("uint arg: %o", uint16(0777)) },
			"uint arg: 777",
		},
		{
			func() { printfn("uint arg: 0x%x", uint32(0xbadf00d)) },
			"uint arg: 0xbadf00d",
		},
		{
			func() { printfn("uint arg with padding: '%10d'", uint64(123)) },
			"uint arg with padding: '       123'",
		},
		{
			func() { printfn("uint arg with padding: '%4o'", uint64(0777)) },
			"uint arg with padding: '0777'",
		},
		{
			func() { printfn("uint arg with padding: '0x%10x'", uint64(0xbadf00d)) },
			"uint arg with padding: '0x000badf00d'",
		},
		{
			func() { printfn("uint arg longer than padding: '0x%5x'", int64(0xbadf00d)) },
			"uint arg longer than padding: '0xbadf00d'",
		},
		{
			func() { printfn("eip=%8x", uintptr(0x100010)) },
			"eip=00100010",
		},
		{
			func() { printfn("%x", uint(0)) },
			"0",
		},
		// signed integers
		{
			func() { printfn("int arg: %d", int8(-10)) },
			"int arg: -10",
		},
		{
			func() { printfn("int arg: %o", int16(0777)) },
			"int arg: 777",
		},
		{
			func() { printfn("int arg: %x", int32(-0xbadf00d)) },
			"int arg: -badf00d",
		},
		{
			func() { printfn("int arg with padding: '%10d'", int64(-12345678)) },
			"int arg with padding: ' -12345678'",
		},
		{
			func() { printfn("int arg with padding: '%10d'", int(-123)) },
			"int arg with padding: '      -123'",
		},
		{
			func() { printfn("int arg with padding: '%6x'", int(-0xff)) },
			"int arg with padding: '-000ff'",
		},
		{
			func() { printfn("int arg longer than padding: '%5x'", int(-0xbadf00d)) },
			"int arg longer than padding: '-badf00d'",
		},
		// multiple arguments
		{
			func() { printfn("%%%s%d%t", "foo", 123, true) },
			"%foo123true",
		},
		// errors
		{
			func() { printfn("more args", "foo", "bar", "baz") },
			"more args%!(EXTRA)%!(EXTRA)%!(EXTRA)",
		},
		{
			func() { printfn("missing args %s") },
			"missing args (MISSING)",
		},
		{
			func() { printfn("bad verb %Q") },
			"bad verb %!(NOVERB)",
		},
		{
			func() { printfn("not bool %t", "foo") },
			"not bool %!(WRONGTYPE)",
		},
		{
			func() { printfn("not int %d", "foo") },
			"not int %!(WRONGTYPE)",
		},
		{
			func() { printfn("not string %s", 123) },
			"not string %!(WRONGTYPE)",
		},
		{
			func() { printfn("dangling width %12") },
			"dangling width %!(NOVERB)",
		},
	}

	var buf bytes.Buffer
	SetOutputSink(&buf)

	for specIndex, spec := range specs {
		buf.Reset()
		spec.fn()

		if got := buf.String(); got != spec.expOutput {
			t.Errorf("[spec %d] expected to get %q; got %q", specIndex, spec.expOutput, got)
		}
	}
}

func TestFprintf(t *testing.T) {
	var buf bytes.Buffer
	Fprintf(&buf, "vector %d: %s", 3, "breakpoint")

	if exp, got := "vector 3: breakpoint", buf.String(); got != exp {
		t.Fatalf("expected to get %q; got %q", exp, got)
	}
}

func TestPrintfToRingBuffer(t *testing.T) {
	origSink := outputSink
	defer func() {
		outputSink = origSink
		earlyPrintBuffer.Reset()
	}()

	outputSink = nil
	earlyPrintBuffer.Reset()

	exp := "early output"
	Printf("%s %s", "early", "output")

	if got := earlyPrintBuffer.Len(); got != len(exp) {
		t.Fatalf("expected ring buffer to hold %d bytes; got %d", len(exp), got)
	}

	var buf bytes.Buffer
	SetOutputSink(&buf)

	if got := buf.String(); got != exp {
		t.Fatalf("expected SetOutputSink to flush %q; got %q", exp, got)
	}

	if GetOutputSink() != &buf {
		t.Fatal("expected GetOutputSink to return the attached sink")
	}

	if got := earlyPrintBuffer.Len(); got != 0 {
		t.Fatalf("expected ring buffer to be drained; %d bytes left", got)
	}
}

func TestWriterFollowsSink(t *testing.T) {
	origSink := outputSink
	defer func() {
		outputSink = origSink
		earlyPrintBuffer.Reset()
	}()

	outputSink = nil
	earlyPrintBuffer.Reset()

	var w Writer
	Fprintf(w, "before ")

	var first, second bytes.Buffer
	SetOutputSink(&first)
	Fprintf(w, "first")

	SetOutputSink(&second)
	Fprintf(w, "second")

	if exp, got := "before first", first.String(); got != exp {
		t.Errorf("expected first sink to receive %q; got %q", exp, got)
	}

	if exp, got := "second", second.String(); got != exp {
		t.Errorf("expected second sink to receive %q; got %q", exp, got)
	}
}
