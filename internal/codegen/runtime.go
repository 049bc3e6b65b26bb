package codegen

import (
	"fmt"
	"strings"

	"github.com/retrolang/actzc/internal/z80"
)

// RuntimeSymbols locates every routine in the assembled runtime library blob, so the generator can
// emit CALL instructions against them while it lowers ProcCall/FunctionCall nodes for the built-in
// print and console I/O intrinsics.
type RuntimeSymbols struct {
	PrintB     uint16
	PrintC     uint16
	PrintE     uint16
	Print      uint16
	GetD       uint16
	PutD       uint16
	Multiply   uint16
	Div8       uint16
	DivMod16   uint16
	EndAddress uint16
}

// intrinsicNames are the procedure names the generator recognizes as calls into the runtime
// library rather than user-defined procedures.
var intrinsicNames = map[string]bool{
	"PRINTB": true,
	"PRINTC": true,
	"PRINTE": true,
	"PRINT":  true,
	"GETD":   true,
	"PUTD":   true,
}

// IsIntrinsic reports whether name refers to a runtime routine rather than a user procedure.
func IsIntrinsic(name string) bool {
	return intrinsicNames[strings.ToUpper(name)]
}

// Address looks up a runtime routine's entry point by name, case-insensitively.
func (s *RuntimeSymbols) Address(name string) (uint16, bool) {
	switch strings.ToUpper(name) {
	case "PRINTB":
		return s.PrintB, true
	case "PRINTC":
		return s.PrintC, true
	case "PRINTE":
		return s.PrintE, true
	case "PRINT":
		return s.Print, true
	case "GETD":
		return s.GetD, true
	case "PUTD":
		return s.PutD, true
	default:
		return 0, false
	}
}

// EmitRuntime assembles the fixed runtime library at origin and returns the bytes along with the
// symbol table locating every routine in it.
//
// Routines are emitted in dependency order, helpers before the code that calls them, so every call
// site can reference an already-known absolute address directly instead of needing the two-pass
// backpatching the original PrintB implementation required for its calls into div8.
func EmitRuntime(origin uint16) ([]byte, *RuntimeSymbols, error) {
	buf := newBuffer(origin)
	sym := &RuntimeSymbols{}

	sym.Div8 = emitDiv8(buf)
	sym.DivMod16 = emitDivMod16(buf)
	sym.Multiply = emitMultiply(buf)
	sym.PrintB = emitPrintB(buf, sym.Div8)
	sym.PrintC = emitPrintC(buf, sym.DivMod16)
	sym.PrintE = emitPrintE(buf)
	sym.Print = emitPrint(buf)
	sym.GetD = emitGetD(buf)
	sym.PutD = emitPutD(buf)

	sym.EndAddress = buf.pc()

	if buf.err != nil {
		return nil, nil, fmt.Errorf("assembling runtime library: %w", buf.err)
	}

	return buf.code, sym, nil
}

// emitDiv8 assembles an 8-bit division routine: A = A / B, remainder left in C, quotient in A.
// Used by PrintB to split a byte into its hundreds/tens/ones digits.
func emitDiv8(buf *buffer) uint16 {
	addr := buf.pc()

	buf.emit(z80.LD_C_A)
	buf.emit(z80.LD_D_N, 0)

	loop := buf.pc()
	buf.emit(z80.LD_A_C, z80.CP_B)
	doneDisp := buf.jrForward(z80.JR_C_N)
	buf.emit(z80.SUB_B, z80.LD_C_A, z80.INC_D)
	buf.jrBack(z80.JR_N, loop)

	done := buf.pc()
	buf.patchRelative(doneDisp, done)
	buf.emit(z80.LD_A_D, z80.RET)

	return addr
}

// emitDivMod16 assembles a 16-bit division routine dividing HL by BC: quotient left in DE,
// remainder in HL. It is the general word-sized division PrintC needs to print a full CARD/INT value, which
// the 8-bit div8 cannot do.
func emitDivMod16(buf *buffer) uint16 {
	addr := buf.pc()

	buf.emit(z80.LD_DE_NN)
	buf.emitWord(0)

	loop := buf.pc()
	buf.emit(z80.PUSH_HL, z80.OR_A)
	buf.emit(z80.SBC_HL_BC...)
	restoreDisp := buf.jrForward(z80.JR_C_N)
	buf.emit(z80.POP_AF, z80.INC_DE)
	buf.jrBack(z80.JR_N, loop)

	restore := buf.pc()
	buf.patchRelative(restoreDisp, restore)
	buf.emit(z80.POP_HL, z80.RET)

	return addr
}

// emitMultiply assembles a 16x16-bit multiply, truncated to the low 16 bits of the product: entry
// BC = multiplicand, DE = multiplier; exit HL = product.
func emitMultiply(buf *buffer) uint16 {
	addr := buf.pc()

	buf.emit(z80.PUSH_BC, z80.PUSH_DE)
	buf.emit(z80.LD_HL_NN)
	buf.emitWord(0)
	buf.emit(z80.LD_A_N, 16) // bit counter in A, so BC keeps the whole multiplicand

	loop := buf.pc()
	buf.emit(z80.ADD_HL_HL)
	buf.emit(z80.SLA_E...)
	buf.emit(z80.RL_D...)
	skipDisp := buf.jrForward(z80.JR_NC_N)
	buf.emit(z80.ADD_HL_BC)

	skip := buf.pc()
	buf.patchRelative(skipDisp, skip)
	buf.emit(z80.DEC_A)
	buf.jrBack(z80.JR_NZ_N, loop)

	buf.emit(z80.POP_DE, z80.POP_BC, z80.RET)

	return addr
}

// emitPrintB assembles the byte-decimal printer: entry A = value (0-255), printed to the console
// data port as 1-3 ASCII digits with leading zeros suppressed.
func emitPrintB(buf *buffer, div8Addr uint16) uint16 {
	addr := buf.pc()

	buf.emit(z80.PUSH_BC, z80.PUSH_DE)

	buf.emit(z80.LD_B_N, 100)
	buf.emitCall(div8Addr)
	buf.emit(z80.LD_D_A) // D = hundreds digit
	buf.emit(z80.OR_A)
	afterHundredsDisp := buf.jrForward(z80.JR_Z_N)
	buf.emit(z80.ADD_A_N, '0')
	buf.emit(z80.OUT_N_A, z80.ConsoleData)

	afterHundreds := buf.pc()
	buf.patchRelative(afterHundredsDisp, afterHundreds)

	buf.emit(z80.LD_A_C)
	buf.emit(z80.LD_B_N, 10)
	buf.emit(z80.PUSH_DE) // div8 counts in D; keep the hundreds digit across the call
	buf.emitCall(div8Addr)
	buf.emit(z80.POP_DE)
	buf.emit(z80.LD_E_A) // E = tens digit

	buf.emit(z80.LD_A_D, z80.OR_A)
	printTensDisp := buf.jrForward(z80.JR_NZ_N)
	buf.emit(z80.LD_A_E, z80.OR_A)
	afterTensDisp := buf.jrForward(z80.JR_Z_N)

	printTens := buf.pc()
	buf.patchRelative(printTensDisp, printTens)
	buf.emit(z80.LD_A_E)
	buf.emit(z80.ADD_A_N, '0')
	buf.emit(z80.OUT_N_A, z80.ConsoleData)

	afterTens := buf.pc()
	buf.patchRelative(afterTensDisp, afterTens)

	buf.emit(z80.LD_A_C)
	buf.emit(z80.ADD_A_N, '0')
	buf.emit(z80.OUT_N_A, z80.ConsoleData)

	buf.emit(z80.POP_DE, z80.POP_BC, z80.RET)

	return addr
}

// emitPrintC assembles the card/int decimal printer: entry HL = value (0-65535), printed as a
// decimal string with leading zeros suppressed, the same way PrintB suppresses them for a byte.
// This is the fix for the reference bug this replaces: the original forwarded only the low byte of
// HL to the byte printer, silently truncating every value above 255.
func emitPrintC(buf *buffer, divMod16Addr uint16) uint16 {
	addr := buf.pc()

	buf.emit(z80.PUSH_BC, z80.PUSH_DE)
	buf.emit(z80.LD_B_N, 0) // B: 1 once a nonzero digit has been printed

	for _, divisor := range []uint16{10000, 1000, 100, 10} {
		// DivMod16 leaves B and C untouched, but this iteration's own LD BC,divisor is about to
		// overwrite B, so the flag has to survive the call on the real stack instead.
		buf.emit(z80.LD_A_B)
		buf.emit(z80.PUSH_AF)

		buf.emit(z80.LD_BC_NN)
		buf.emitWord(divisor)
		buf.emitCall(divMod16Addr) // DE = this digit, HL = remainder for the next divisor

		buf.emit(z80.POP_AF)
		buf.emit(z80.LD_B_A) // B = flag again, A now free to hold the digit

		buf.emit(z80.LD_A_E)
		buf.emit(z80.OR_A)
		printDisp := buf.jrForward(z80.JR_NZ_N)
		buf.emit(z80.LD_A_B, z80.OR_A)
		skipDisp := buf.jrForward(z80.JR_Z_N)

		printAddr := buf.pc()
		buf.patchRelative(printDisp, printAddr)
		buf.emit(z80.LD_A_E)
		buf.emit(z80.ADD_A_N, '0')
		buf.emit(z80.OUT_N_A, z80.ConsoleData)
		buf.emit(z80.LD_B_N, 1)

		skip := buf.pc()
		buf.patchRelative(skipDisp, skip)
	}

	buf.emit(z80.LD_A_L) // the final remainder is the units digit, always printed
	buf.emit(z80.ADD_A_N, '0')
	buf.emit(z80.OUT_N_A, z80.ConsoleData)

	buf.emit(z80.POP_DE, z80.POP_BC, z80.RET)

	return addr
}

// emitPrintE assembles a routine that writes a CRLF line terminator.
func emitPrintE(buf *buffer) uint16 {
	addr := buf.pc()

	buf.emit(z80.LD_A_N, 13, z80.OUT_N_A, z80.ConsoleData)
	buf.emit(z80.LD_A_N, 10, z80.OUT_N_A, z80.ConsoleData)
	buf.emit(z80.RET)

	return addr
}

// emitPrint assembles a routine that writes a NUL-terminated string: entry HL = string address.
func emitPrint(buf *buffer) uint16 {
	addr := buf.pc()

	loop := buf.pc()
	buf.emit(z80.LD_A_HL, z80.OR_A, z80.RET_Z)
	buf.emit(z80.OUT_N_A, z80.ConsoleData)
	buf.emit(z80.INC_HL)
	buf.jrBack(z80.JR_N, loop)

	return addr
}

// emitGetD assembles a blocking console input routine: polls the status port until a byte is
// ready, then returns it in A.
func emitGetD(buf *buffer) uint16 {
	addr := buf.pc()

	loop := buf.pc()
	buf.emit(z80.IN_A_N, z80.ConsoleStatus)
	buf.emit(z80.AND_N, z80.StatusReady)
	buf.jrBack(z80.JR_Z_N, loop)
	buf.emit(z80.IN_A_N, z80.ConsoleData)
	buf.emit(z80.RET)

	return addr
}

// emitPutD assembles a routine that writes the byte in A to the console data port.
func emitPutD(buf *buffer) uint16 {
	addr := buf.pc()

	buf.emit(z80.OUT_N_A, z80.ConsoleData)
	buf.emit(z80.RET)

	return addr
}
