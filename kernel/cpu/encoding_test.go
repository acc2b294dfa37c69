package cpu

import (
	"bufio"
	"os"
	"strconv"
	"strings"
	"testing"

	"golang.org/x/arch/x86/x86asm"
)

type encodedInsn struct {
	line  int
	bytes []byte
	want  string
}

// scanEncodings extracts every raw instruction encoding from an assembly file.
// Encodings are written as "BYTE $0x..; BYTE $0x.. // mnemonic operands".
func scanEncodings(t *testing.T, path string) []encodedInsn {
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	var (
		out    []encodedInsn
		lineNo int
		scan   = bufio.NewScanner(f)
	)

	for scan.Scan() {
		lineNo++
		line := strings.TrimSpace(scan.Text())
		if !strings.HasPrefix(line, "BYTE ") {
			continue
		}

		commentIndex := strings.Index(line, "//")
		if commentIndex == -1 {
			t.Fatalf("%s:%d: raw encoding without a disassembly comment", path, lineNo)
		}

		insn := encodedInsn{line: lineNo, want: strings.TrimSpace(line[commentIndex+2:])}
		for _, field := range strings.Split(line[:commentIndex], ";") {
			field = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(field), "BYTE"))
			val, err := strconv.ParseUint(strings.TrimPrefix(field, "$"), 0, 8)
			if err != nil {
				t.Fatalf("%s:%d: malformed BYTE operand %q: %v", path, lineNo, field, err)
			}
			insn.bytes = append(insn.bytes, byte(val))
		}

		out = append(out, insn)
	}

	if err := scan.Err(); err != nil {
		t.Fatal(err)
	}

	return out
}

func checkEncodings(t *testing.T, path string, mode int) {
	insns := scanEncodings(t, path)
	if len(insns) == 0 {
		t.Fatalf("%s: no raw encodings found", path)
	}

	for _, insn := range insns {
		decoded, err := x86asm.Decode(insn.bytes, mode)
		if err != nil {
			t.Errorf("%s:%d: unable to decode % x: %v", path, insn.line, insn.bytes, err)
			continue
		}

		if decoded.Len != len(insn.bytes) {
			t.Errorf("%s:%d: expected % x to be a single %d-byte instruction; decoded length %d", path, insn.line, insn.bytes, len(insn.bytes), decoded.Len)
		}

		fields := strings.Fields(strings.NewReplacer(",", " ", "[", " ", "]", " ").Replace(insn.want))
		if got := decoded.Op.String(); got != strings.ToUpper(fields[0]) {
			t.Errorf("%s:%d: expected % x to decode to %s; got %s", path, insn.line, insn.bytes, strings.ToUpper(fields[0]), got)
		}

		syntax := x86asm.IntelSyntax(decoded, 0, nil)
		for _, operand := range fields[1:] {
			if _, err := strconv.Atoi(operand); err == nil {
				continue
			}
			if !strings.Contains(syntax, operand) {
				t.Errorf("%s:%d: expected operand %q in disassembly %q", path, insn.line, operand, syntax)
			}
		}
	}
}

func TestInstructionEncodings(t *testing.T) {
	t.Run("386", func(t *testing.T) {
		checkEncodings(t, "cpu_386.s", 32)
	})

	t.Run("amd64", func(t *testing.T) {
		checkEncodings(t, "cpu_amd64.s", 64)
	})
}
