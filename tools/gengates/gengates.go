// Command gengates writes the assembly gate stubs for all 256 interrupt
// vectors together with the table of their addresses.
//
// Usage:
//
//	gengates [-o kernel/gate/stubs_386.s] [-list]
//
// With -list the machine code of each stub prologue is disassembled and
// printed instead, which is handy when comparing against objdump output of
// the kernel image.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/arch/x86/x86asm"
)

const numVectors = 256

// cpuPushesErrorCode returns true for the vectors where the CPU pushes an
// error code before transferring control.
func cpuPushesErrorCode(vec int) bool {
	switch vec {
	case 8, 10, 11, 12, 13, 14, 17, 21, 29, 30:
		return true
	}
	return false
}

func exit(err error) {
	fmt.Fprintf(os.Stderr, "[gengates] error: %s\n", err.Error())
	os.Exit(1)
}

// writeStubs emits the Go assembly source for the gate stubs.
func writeStubs(w io.Writer) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintln(bw, "// Code generated by gengates; DO NOT EDIT.")
	fmt.Fprintln(bw)
	fmt.Fprintln(bw, `#include "textflag.h"`)
	fmt.Fprintln(bw)

	for vec := 0; vec < numVectors; vec++ {
		fmt.Fprintf(bw, "TEXT gate%d<>(SB),NOSPLIT,$0\n", vec)
		if !cpuPushesErrorCode(vec) {
			fmt.Fprintln(bw, "\tPUSHL $0")
		}
		fmt.Fprintf(bw, "\tPUSHL $%d\n", vec)
		fmt.Fprintln(bw, "\tJMP gateCommon<>(SB)")
		fmt.Fprintln(bw)
	}

	fmt.Fprintln(bw, "// gateCommon saves the general purpose registers and calls")
	fmt.Fprintln(bw, "// dispatchInterrupt with a pointer to the saved context. On return it")
	fmt.Fprintln(bw, "// restores the registers, drops the vector and error code and resumes")
	fmt.Fprintln(bw, "// the interrupted code.")
	fmt.Fprintln(bw, "TEXT gateCommon<>(SB),NOSPLIT,$0")
	fmt.Fprintln(bw, "\tPUSHAL")
	fmt.Fprintln(bw, "\tMOVL SP, AX")
	fmt.Fprintln(bw, "\tPUSHL AX")
	fmt.Fprintln(bw, "\tCALL ·dispatchInterrupt(SB)")
	fmt.Fprintln(bw, "\tADDL $4, SP")
	fmt.Fprintln(bw, "\tPOPAL")
	fmt.Fprintln(bw, "\tADDL $8, SP")
	fmt.Fprintln(bw, "\tIRETL")
	fmt.Fprintln(bw)

	for vec := 0; vec < numVectors; vec++ {
		fmt.Fprintf(bw, "DATA ·gateEntries+%d(SB)/4, $gate%d<>(SB)\n", vec*4, vec)
	}
	fmt.Fprintf(bw, "GLOBL ·gateEntries(SB), RODATA, $%d\n", numVectors*4)
	fmt.Fprintln(bw)

	fmt.Fprintln(bw, "// func gateEntry(vec uint8) uintptr")
	fmt.Fprintln(bw, "TEXT ·gateEntry(SB),NOSPLIT,$0-8")
	fmt.Fprintln(bw, "\tMOVBLZX vec+0(FP), AX")
	fmt.Fprintln(bw, "\tMOVL ·gateEntries(SB)(AX*4), AX")
	fmt.Fprintln(bw, "\tMOVL AX, ret+4(FP)")
	fmt.Fprintln(bw, "\tRET")

	return bw.Flush()
}

// encodeStub returns the machine code the assembler produces for the stub
// of vec. The JMP displacement is left as zero as it is only known after
// linking.
func encodeStub(vec int) []byte {
	var code []byte
	if !cpuPushesErrorCode(vec) {
		code = append(code, 0x6a, 0x00) // push 0
	}

	if vec < 0x80 {
		code = append(code, 0x6a, byte(vec)) // push imm8
	} else {
		code = append(code, 0x68, byte(vec), 0, 0, 0) // push imm32
	}

	return append(code, 0xe9, 0, 0, 0, 0) // jmp rel32
}

// listStubs disassembles every stub prologue in Intel syntax.
func listStubs(w io.Writer) error {
	bw := bufio.NewWriter(w)
	for vec := 0; vec < numVectors; vec++ {
		insns, err := disassemble(encodeStub(vec))
		if err != nil {
			return fmt.Errorf("vector %d: %s", vec, err)
		}

		fmt.Fprintf(bw, "gate%-3d %s\n", vec, strings.Join(insns, "; "))
	}

	return bw.Flush()
}

func disassemble(code []byte) ([]string, error) {
	var out []string
	for pc := 0; pc < len(code); {
		insn, err := x86asm.Decode(code[pc:], 32)
		if err != nil {
			return nil, err
		}

		out = append(out, x86asm.IntelSyntax(insn, uint64(pc), nil))
		pc += insn.Len
	}

	return out, nil
}

func main() {
	outFile := flag.String("o", "", "output file (default stdout)")
	list := flag.Bool("list", false, "disassemble the stub prologues instead of generating them")
	flag.Parse()

	var w io.Writer = os.Stdout
	if *outFile != "" && !*list {
		f, err := os.Create(*outFile)
		if err != nil {
			exit(err)
		}
		defer f.Close()
		w = f
	}

	var err error
	if *list {
		err = listStubs(w)
	} else {
		err = writeStubs(w)
	}

	if err != nil {
		exit(err)
	}
}
