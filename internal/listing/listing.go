// Package listing renders a human-readable listing file alongside a compiled binary: the origin
// and total size, a procedure table, a global table, and a 16-bytes-per-row hex dump with absolute
// address prefixes. It is a write-only report; nothing here is ever parsed back in.
package listing

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/retrolang/actzc/internal/codegen"
)

// bytesPerRow is the width of the hex dump, matching the teacher's encoding.HexEncoding's own
// notion of one record per line, here fixed at 16 bytes rather than a record's variable length.
const bytesPerRow = 16

// Write renders result as a listing and writes it to w.
func Write(w io.Writer, result *codegen.Result) error {
	var b strings.Builder

	fmt.Fprintf(&b, "origin:  0x%04X\n", result.Origin)
	fmt.Fprintf(&b, "entry:   0x%04X\n", result.EntryAddress)
	fmt.Fprintf(&b, "size:    %d bytes\n\n", len(result.Code))

	writeProcedures(&b, result.Procedures)
	writeGlobals(&b, result.Globals)
	writeHexDump(&b, result)

	_, err := io.WriteString(w, b.String())

	return err
}

func writeProcedures(b *strings.Builder, procs codegen.ProcedureTable) {
	b.WriteString("procedures:\n")

	names := make([]string, 0, len(procs))
	for name := range procs {
		names = append(names, name)
	}

	sort.Slice(names, func(i, j int) bool { return procs[names[i]].Address < procs[names[j]].Address })

	for _, name := range names {
		fmt.Fprintf(b, "  0x%04X  %s\n", procs[name].Address, name)
	}

	b.WriteString("\n")
}

func writeGlobals(b *strings.Builder, globals codegen.SymbolTable) {
	b.WriteString("globals:\n")

	names := make([]string, 0, len(globals))
	for name := range globals {
		names = append(names, name)
	}

	sort.Slice(names, func(i, j int) bool { return globals[names[i]].Address < globals[names[j]].Address })

	for _, name := range names {
		info := globals[name]
		fmt.Fprintf(b, "  0x%04X  %-20s %s\n", info.Address, name, typeName(info))
	}

	b.WriteString("\n")
}

func typeName(info codegen.SymbolInfo) string {
	if info.Type.IsArray() {
		return fmt.Sprintf("%s(%d)", info.Type.Base, info.Type.Count)
	}

	return info.Type.Base.String()
}

func writeHexDump(b *strings.Builder, result *codegen.Result) {
	b.WriteString("dump:\n")

	code := result.Code

	for offset := 0; offset < len(code); offset += bytesPerRow {
		end := offset + bytesPerRow
		if end > len(code) {
			end = len(code)
		}

		row := code[offset:end]
		addr := result.Origin + uint16(offset)

		fmt.Fprintf(b, "  %04X: ", addr)

		for i := 0; i < bytesPerRow; i++ {
			if i < len(row) {
				fmt.Fprintf(b, "%02X ", row[i])
			} else {
				b.WriteString("   ")
			}
		}

		b.WriteString(" ")

		for _, c := range row {
			if c >= 0x20 && c < 0x7F {
				b.WriteByte(c)
			} else {
				b.WriteByte('.')
			}
		}

		b.WriteString("\n")
	}
}
