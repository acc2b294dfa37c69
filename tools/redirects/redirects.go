// Command redirects patches the kernel image so that calls to selected Go
// runtime functions end up in kernel replacements.
//
// Kernel functions declare the runtime symbol they replace with a
// "//go:redirect-from runtime.symbol" comment. The count command prints the
// number of redirects so the linker script can reserve the .goredirectstbl
// section; populate-table resolves both ends of each redirect in the linked
// image and writes (src, dst) address pairs into that section, sized for the
// image's ELF class. The rt0 code applies the table at boot.
package main

import (
	"bufio"
	"bytes"
	"debug/elf"
	"encoding/binary"
	"errors"
	"flag"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

const redirectDirective = "//go:redirect-from"

type redirect struct {
	src string
	dst string

	srcVMA uint64
	dstVMA uint64
}

func exit(err error) {
	fmt.Fprintf(os.Stderr, "[redirects] error: %s\n", err.Error())
	os.Exit(1)
}

// modulePath returns the module path declared in the go.mod file at root.
func modulePath(root string) (string, error) {
	f, err := os.Open(filepath.Join(root, "go.mod"))
	if err != nil {
		return "", err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 2 && fields[0] == "module" {
			return strings.Trim(fields[1], `"`), nil
		}
	}

	if err := scanner.Err(); err != nil {
		return "", err
	}

	return "", fmt.Errorf("%s: no module directive", f.Name())
}

func collectGoFiles(root, dir string) ([]string, error) {
	var goFiles []string
	err := filepath.WalkDir(filepath.Join(root, dir), func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}

		if filepath.Ext(p) == ".go" && !strings.HasSuffix(p, "_test.go") {
			rel, err := filepath.Rel(root, p)
			if err != nil {
				return err
			}
			goFiles = append(goFiles, filepath.ToSlash(rel))
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return goFiles, nil
}

// findRedirects parses goFiles (relative to root) and returns one redirect
// for every function annotated with the redirect directive. Destination
// symbols are qualified with the import path of the function's package.
func findRedirects(root, modPath string, goFiles []string) ([]*redirect, error) {
	var redirects []*redirect

	for _, goFile := range goFiles {
		fset := token.NewFileSet()

		f, err := parser.ParseFile(fset, filepath.Join(root, goFile), nil, parser.ParseComments)
		if err != nil {
			return nil, fmt.Errorf("%s: %s", goFile, err)
		}

		for _, decl := range f.Decls {
			fnDecl, ok := decl.(*ast.FuncDecl)
			if !ok || fnDecl.Doc == nil || fnDecl.Recv != nil {
				continue
			}

			for _, comment := range fnDecl.Doc.List {
				if !strings.HasPrefix(comment.Text, redirectDirective) {
					continue
				}

				fqName := fmt.Sprintf("%s/%s.%s", modPath, path.Dir(goFile), fnDecl.Name.Name)

				fields := strings.Fields(comment.Text)
				if len(fields) != 2 || fields[0] != redirectDirective {
					return nil, fmt.Errorf("malformed go:redirect-from syntax for %q", fqName)
				}

				redirects = append(redirects, &redirect{
					src: fields[1],
					dst: fqName,
				})
			}
		}
	}

	return redirects, nil
}

// resolveRedirectSymbols fills in the addresses of both ends of each redirect.
func resolveRedirectSymbols(redirects []*redirect, symbols []elf.Symbol) error {
	for _, redirect := range redirects {
		for _, symbol := range symbols {
			if symbol.Name == redirect.src {
				redirect.srcVMA = symbol.Value
			}
			if symbol.Name == redirect.dst {
				redirect.dstVMA = symbol.Value
			}
		}

		switch {
		case redirect.srcVMA == 0:
			return fmt.Errorf("could not locate address of %q", redirect.src)
		case redirect.dstVMA == 0:
			return fmt.Errorf("could not locate address of %q", redirect.dst)
		}
	}

	return nil
}

// encodeRedirectTable serializes the (src, dst) pairs using the address size
// of class.
func encodeRedirectTable(redirects []*redirect, class elf.Class) ([]byte, error) {
	var buf bytes.Buffer

	for _, redirect := range redirects {
		switch class {
		case elf.ELFCLASS32:
			if redirect.srcVMA > 0xffffffff || redirect.dstVMA > 0xffffffff {
				return nil, fmt.Errorf("address of %q does not fit in a 32-bit image", redirect.src)
			}
			binary.Write(&buf, binary.LittleEndian, uint32(redirect.srcVMA))
			binary.Write(&buf, binary.LittleEndian, uint32(redirect.dstVMA))
		case elf.ELFCLASS64:
			binary.Write(&buf, binary.LittleEndian, redirect.srcVMA)
			binary.Write(&buf, binary.LittleEndian, redirect.dstVMA)
		default:
			return nil, fmt.Errorf("unsupported ELF class %s", class)
		}
	}

	return buf.Bytes(), nil
}

func populateTable(redirects []*redirect, imgFile string) error {
	img, err := elf.Open(imgFile)
	if err != nil {
		return err
	}

	symbols, err := img.Symbols()
	if err != nil {
		img.Close()
		return err
	}

	section := img.Section(".goredirectstbl")
	class := img.Class
	img.Close()

	if section == nil {
		return fmt.Errorf("%s: missing .goredirectstbl section", imgFile)
	}

	if err = resolveRedirectSymbols(redirects, symbols); err != nil {
		return fmt.Errorf("%s: %w", imgFile, err)
	}

	table, err := encodeRedirectTable(redirects, class)
	if err != nil {
		return err
	}

	if uint64(len(table)) > section.Size {
		return fmt.Errorf("%s: redirect table needs %d bytes; .goredirectstbl holds %d", imgFile, len(table), section.Size)
	}

	f, err := os.OpenFile(imgFile, os.O_WRONLY, 0)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = f.WriteAt(table, int64(section.Offset))
	return err
}

func main() {
	flag.Parse()
	if matches, _ := filepath.Glob("kernel/"); len(matches) != 1 {
		exit(errors.New("this tool must be run from the kernel root folder"))
	}

	if len(flag.Args()) == 0 {
		exit(errors.New("missing command"))
	}

	cmd := flag.Arg(0)
	var imgFile string
	switch cmd {
	case "count":
	case "populate-table":
		if len(flag.Args()) != 2 {
			exit(errors.New("populate-table requires the path to the kernel image as an argument"))
		}
		imgFile = flag.Arg(1)
	default:
		exit(fmt.Errorf("unknown command %q", cmd))
	}

	modPath, err := modulePath(".")
	if err != nil {
		exit(err)
	}

	goFiles, err := collectGoFiles(".", "kernel")
	if err != nil {
		exit(err)
	}

	redirects, err := findRedirects(".", modPath, goFiles)
	if err != nil {
		exit(err)
	}

	if cmd == "count" {
		fmt.Printf("%d", len(redirects))
		return
	}

	if err = populateTable(redirects, imgFile); err != nil {
		exit(err)
	}
}
