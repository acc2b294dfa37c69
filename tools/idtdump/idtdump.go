// Command idtdump builds the interrupt descriptor table exactly as the
// kernel does at boot and prints it.
//
// Usage:
//
//	idtdump [-all] [-raw] [-base 0x108000] [-o file] [-i]
//
// When stdout is a terminal a listing of the populated vectors is printed,
// clipped to the terminal width. Otherwise (or with -raw) the 2048-byte
// table image is written followed by the 6-byte lidt operand, using -base as
// the linear address of the table. With -i the vectors can be browsed one at
// a time: j/n next, k/p previous, g first, G last, q quit.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"x86kern/kernel/gate"
	"x86kern/kernel/kmain"
)

// defaultBase is where the linker places the table in the boot image.
const defaultBase = 0x00108000

func exit(err error) {
	fmt.Fprintf(os.Stderr, "[idtdump] error: %s\n", err.Error())
	os.Exit(1)
}

// buildTable returns a table populated with the kernel's handlers.
func buildTable() (*gate.Table, error) {
	t := gate.New()
	if err := kmain.InstallHandlers(t); err != nil {
		return nil, fmt.Errorf("%s: %s", err.Module, err.Message)
	}
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %s", err.Module, err.Message)
	}

	return t, nil
}

// writeImage emits the encoded table followed by a pointer describing a
// table loaded at base.
func writeImage(w io.Writer, t *gate.Table, base uint32) error {
	var buf [gate.Size + 6]byte
	t.Encode(buf[:gate.Size])

	ptr := t.Pointer()
	ptr.Base = base
	ptr.Encode(buf[gate.Size:])

	_, err := w.Write(buf[:])
	return err
}

func gateType(opts gate.Options) string {
	if opts.Trap() {
		return "trap"
	}
	return "interrupt"
}

// fitLine clips s to width columns. A non-positive width disables clipping.
func fitLine(s string, width int) string {
	if width <= 0 || len(s) <= width {
		return s
	}
	return s[:width]
}

func formatEntry(t *gate.Table, v gate.Vector) string {
	var (
		info  = gate.Describe(v)
		entry = t.Entry(v)
		opts  = entry.Options()
	)

	mnemonic := info.Mnemonic
	if mnemonic == "" {
		mnemonic = "-"
	}

	return fmt.Sprintf("%3d 0x%02x %-5s %-28s %-20s %-7t 0x%08x 0x%04x %-9s dpl=%d",
		v, uint8(v), mnemonic, info.Name, info.Kind, entry.Present(),
		entry.HandlerAddr(), uint16(entry.Selector()), gateType(opts), opts.PrivilegeLevel())
}

// writeListing prints one line per vector. Absent vectors are skipped unless
// all is set.
func writeListing(w io.Writer, t *gate.Table, all bool, width int) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintln(bw, fitLine(hostBanner(), width))
	fmt.Fprintln(bw, fitLine(fmt.Sprintf("%3s %-4s %-5s %-28s %-20s %-7s %-10s %-6s %s",
		"vec", "hex", "mnem", "name", "kind", "present", "address", "cs", "options"), width))

	for i := 0; i < gate.NumVectors; i++ {
		v := gate.Vector(i)
		if !all && !t.Entry(v).Present() {
			continue
		}
		fmt.Fprintln(bw, fitLine(formatEntry(t, v), width))
	}

	return bw.Flush()
}

// describeVector prints the details of a single vector for the browser.
func describeVector(w io.Writer, t *gate.Table, v gate.Vector) {
	var (
		info  = gate.Describe(v)
		entry = t.Entry(v)
		opts  = entry.Options()
	)

	fmt.Fprintf(w, "vector %d (0x%02x) %s %s\n", v, uint8(v), info.Mnemonic, info.Name)
	fmt.Fprintf(w, "  kind:     %s\n", info.Kind)
	fmt.Fprintf(w, "  saved ip: %s\n", info.IPSemantics)
	if !entry.Present() {
		fmt.Fprintln(w, "  absent")
		return
	}
	fmt.Fprintf(w, "  handler:  0x%08x cs=0x%04x\n", entry.HandlerAddr(), uint16(entry.Selector()))
	fmt.Fprintf(w, "  gate:     %s dpl=%d\n", gateType(opts), opts.PrivilegeLevel())
}

// browse shows one vector at a time and moves according to the keys read
// from in. It returns when q is pressed or in is exhausted.
func browse(in io.Reader, out io.Writer, t *gate.Table) error {
	var (
		cur = 0
		key [1]byte
	)

	for {
		describeVector(out, t, gate.Vector(cur))

		if _, err := in.Read(key[:]); err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}

		switch key[0] {
		case 'q':
			return nil
		case 'j', 'n', ' ':
			cur = (cur + 1) % gate.NumVectors
		case 'k', 'p':
			cur = (cur + gate.NumVectors - 1) % gate.NumVectors
		case 'g':
			cur = 0
		case 'G':
			cur = gate.NumVectors - 1
		}
	}
}

func main() {
	outFile := flag.String("o", "", "output file (default stdout)")
	base := flag.Uint("base", defaultBase, "linear address of the table in the emitted lidt operand")
	raw := flag.Bool("raw", false, "always write the binary image")
	all := flag.Bool("all", false, "list absent vectors too")
	interactive := flag.Bool("i", false, "browse the vectors interactively")
	flag.Parse()

	t, err := buildTable()
	if err != nil {
		exit(err)
	}

	if *interactive {
		fd := os.Stdin.Fd()
		if !term.IsTerminal(int(fd)) {
			exit(fmt.Errorf("-i requires a terminal on stdin"))
		}

		restore, err := enterRawMode(fd)
		if err != nil {
			exit(err)
		}
		err = browse(os.Stdin, os.Stdout, t)
		restore()
		if err != nil {
			exit(err)
		}
		return
	}

	var w io.Writer = os.Stdout
	if *outFile != "" {
		f, err := os.Create(*outFile)
		if err != nil {
			exit(err)
		}
		defer f.Close()
		w = f
	}

	stdoutFd := int(os.Stdout.Fd())
	if *raw || *outFile != "" || !term.IsTerminal(stdoutFd) {
		err = writeImage(w, t, uint32(*base))
	} else {
		width, _, sizeErr := term.GetSize(stdoutFd)
		if sizeErr != nil {
			width = 0
		}
		err = writeListing(w, t, *all, width)
	}

	if err != nil {
		exit(err)
	}
}

// joinNonEmpty joins the non-empty parts with a single space.
func joinNonEmpty(parts ...string) string {
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, " ")
}
