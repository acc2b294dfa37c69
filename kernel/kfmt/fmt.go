// Package kfmt implements the kernel's logging and panic facilities. Its
// formatting functions never allocate so they can be used from interrupt
// handlers and before any allocator exists.
package kfmt

import (
	"io"
	"unsafe"
)

// maxBufSize defines the buffer size for formatting numbers.
const maxBufSize = 32

var (
	errMissingArg   = []byte("(MISSING)")
	errWrongArgType = []byte("%!(WRONGTYPE)")
	errNoVerb       = []byte("%!(NOVERB)")
	errExtraArg     = []byte("%!(EXTRA)")
	trueValue       = []byte("true")
	falseValue      = []byte("false")

	numFmtBuf = []byte("012345678901234567890123456789012")

	// singleByte is used as a shared buffer for passing single characters
	// to doWrite.
	singleByte = []byte(" ")

	// earlyPrintBuffer is a ring buffer that stores Printf output before
	// any output device has been attached.
	earlyPrintBuffer ringBuffer

	// outputSink is the io.Writer where Printf sends its output. While it
	// is nil, output is captured by earlyPrintBuffer.
	outputSink io.Writer
)

// SetOutputSink sets the default target for calls to Printf to w and copies
// any data accumulated in the earlyPrintBuffer to it.
func SetOutputSink(w io.Writer) {
	outputSink = w
	if w != nil {
		io.Copy(w, &earlyPrintBuffer)
	}
}

// GetOutputSink returns the current target for calls to Printf.
func GetOutputSink() io.Writer {
	return outputSink
}

// Writer is an io.Writer that forwards everything to the current output
// sink, or to the early buffer while no sink is set. Unlike the value
// returned by GetOutputSink it follows later calls to SetOutputSink.
type Writer struct{}

// Write implements io.Writer.
func (Writer) Write(p []byte) (int, error) {
	doWrite(outputSink, p)
	return len(p), nil
}

// Printf provides a minimal Printf implementation that can be safely used
// from interrupt context. It supports the following subset of fmt verbs:
//
//	%s  string or byte slice
//	%c  a single byte
//	%d  base 10 integer
//	%o  base 8 integer
//	%x  base 16 integer, lower-case
//	%t  "true" or "false"
//	%%  a literal percent sign
//
// A decimal width may precede the verb. Strings and base-10 integers are
// left-padded with spaces; base-8 and base-16 integers with zeroes.
//
// Only the built-in integer, string and bool types are supported. The
// arguments are never checked for io.Stringer as that would require itables
// that may not be set up yet.
//
// Output goes to the sink installed with SetOutputSink or, if none is set,
// to a ring buffer that is flushed into the first sink.
func Printf(format string, args ...interface{}) {
	Fprintf(outputSink, format, args...)
}

// Fprintf behaves exactly like Printf but it writes the formatted output to
// the specified io.Writer.
func Fprintf(w io.Writer, format string, args ...interface{}) {
	var (
		argIndex  int
		litStart  int
		cur       int
		width     int
		formatLen = len(format)
	)

	for cur < formatLen {
		if format[cur] != '%' {
			cur++
			continue
		}

		writeLiteral(w, format, litStart, cur)

		// Scan until we hit a verb
		width = 0
		for cur++; cur < formatLen; cur++ {
			ch := format[cur]
			if ch >= '0' && ch <= '9' {
				width = width*10 + int(ch-'0')
				continue
			}

			if ch == '%' {
				writeByte(w, '%')
				break
			}

			if !isVerb(ch) {
				doWrite(w, errNoVerb)
				break
			}

			if argIndex >= len(args) {
				doWrite(w, errMissingArg)
				break
			}

			fmtArg(w, ch, args[argIndex], width)
			argIndex++
			break
		}

		if cur == formatLen {
			// reached the end of the format string while scanning the width
			doWrite(w, errNoVerb)
		}

		cur++
		litStart = cur
	}

	writeLiteral(w, format, litStart, formatLen)

	for ; argIndex < len(args); argIndex++ {
		doWrite(w, errExtraArg)
	}
}

func isVerb(ch byte) bool {
	switch ch {
	case 'd', 'o', 'x', 's', 't', 'c':
		return true
	}
	return false
}

func fmtArg(w io.Writer, verb byte, arg interface{}, width int) {
	switch verb {
	case 'd':
		fmtInt(w, arg, 10, width)
	case 'o':
		fmtInt(w, arg, 8, width)
	case 'x':
		fmtInt(w, arg, 16, width)
	case 's':
		fmtString(w, arg, width)
	case 't':
		fmtBool(w, arg)
	case 'c':
		fmtChar(w, arg, width)
	}
}

// writeLiteral copies format[from:to] to w. Slicing the format string into a
// byte slice would allocate so the bytes are written one at a time.
func writeLiteral(w io.Writer, format string, from, to int) {
	for i := from; i < to; i++ {
		writeByte(w, format[i])
	}
}

func writeByte(w io.Writer, b byte) {
	singleByte[0] = b
	doWrite(w, singleByte)
}

// fmtBool prints a formatted version of boolean value v.
func fmtBool(w io.Writer, v interface{}) {
	bVal, ok := v.(bool)
	switch {
	case !ok:
		doWrite(w, errWrongArgType)
	case bVal:
		doWrite(w, trueValue)
	default:
		doWrite(w, falseValue)
	}
}

// fmtChar prints a single byte, padded to width with spaces.
func fmtChar(w io.Writer, v interface{}, width int) {
	var ch byte
	switch castedVal := v.(type) {
	case uint8:
		ch = castedVal
	case int32:
		if castedVal < 0 || castedVal > 0xff {
			doWrite(w, errWrongArgType)
			return
		}
		ch = byte(castedVal)
	default:
		doWrite(w, errWrongArgType)
		return
	}

	fmtRepeat(w, ' ', width-1)
	writeByte(w, ch)
}

// fmtString prints a formatted version of string or []byte value v, applying
// the padding specified by width.
func fmtString(w io.Writer, v interface{}, width int) {
	switch castedVal := v.(type) {
	case string:
		fmtRepeat(w, ' ', width-len(castedVal))
		for i := 0; i < len(castedVal); i++ {
			writeByte(w, castedVal[i])
		}
	case []byte:
		fmtRepeat(w, ' ', width-len(castedVal))
		doWrite(w, castedVal)
	default:
		doWrite(w, errWrongArgType)
	}
}

// fmtRepeat writes count bytes with value ch.
func fmtRepeat(w io.Writer, ch byte, count int) {
	for i := 0; i < count; i++ {
		writeByte(w, ch)
	}
}

// fmtInt prints out a formatted version of v in the requested base, applying
// the padding specified by width. All built-in signed and unsigned integer
// types are supported.
func fmtInt(w io.Writer, v interface{}, base uint64, width int) {
	var (
		uval     uint64
		negative bool
		padCh    byte = '0'
	)

	if width >= maxBufSize {
		width = maxBufSize - 1
	}

	if base == 10 {
		padCh = ' '
	}

	switch castedVal := v.(type) {
	case uint8:
		uval = uint64(castedVal)
	case uint16:
		uval = uint64(castedVal)
	case uint32:
		uval = uint64(castedVal)
	case uint64:
		uval = castedVal
	case uint:
		uval = uint64(castedVal)
	case uintptr:
		uval = uint64(castedVal)
	case int8:
		uval, negative = absInt(int64(castedVal))
	case int16:
		uval, negative = absInt(int64(castedVal))
	case int32:
		uval, negative = absInt(int64(castedVal))
	case int64:
		uval, negative = absInt(castedVal)
	case int:
		uval, negative = absInt(int64(castedVal))
	default:
		doWrite(w, errWrongArgType)
		return
	}

	// Digits are generated in reverse order and flipped at the end
	right := 0
	for {
		digit := uval % base
		if digit < 10 {
			numFmtBuf[right] = byte(digit) + '0'
		} else {
			numFmtBuf[right] = byte(digit-10) + 'a'
		}
		right++

		uval /= base
		if uval == 0 || right == maxBufSize {
			break
		}
	}

	// Blank padding goes in front of the sign, zero padding after it.
	if negative && padCh == ' ' {
		numFmtBuf[right] = '-'
		right++
	}

	padTo := width
	if negative && padCh == '0' {
		padTo--
	}
	for ; right < padTo && right < maxBufSize; right++ {
		numFmtBuf[right] = padCh
	}

	if negative && padCh == '0' {
		numFmtBuf[right] = '-'
		right++
	}

	for left, end := 0, right-1; left < end; left, end = left+1, end-1 {
		numFmtBuf[left], numFmtBuf[end] = numFmtBuf[end], numFmtBuf[left]
	}

	doWrite(w, numFmtBuf[:right])
}

func absInt(v int64) (uint64, bool) {
	if v < 0 {
		return uint64(-v), true
	}
	return uint64(v), false
}

// doWrite is a proxy that uses the runtime.noescape hack to hide p from the
// compiler's escape analysis. Without it the compiler flags p as escaping
// (it is handed to an unknown io.Writer) and every Printf call would
// allocate.
func doWrite(w io.Writer, p []byte) {
	doRealWrite(w, noEscape(unsafe.Pointer(&p)))
}

func doRealWrite(w io.Writer, bufPtr unsafe.Pointer) {
	p := *(*[]byte)(bufPtr)
	if w != nil {
		w.Write(p)
	} else {
		earlyPrintBuffer.Write(p)
	}
}

// noEscape hides a pointer from escape analysis. This function is copied over
// from runtime/stubs.go
//
//go:nosplit
func noEscape(p unsafe.Pointer) unsafe.Pointer {
	x := uintptr(p)
	return unsafe.Pointer(x ^ 0)
}
