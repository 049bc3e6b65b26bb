package codegen

import (
	"github.com/retrolang/actzc/internal/lang"
	"github.com/retrolang/actzc/internal/z80"
)

// genBinary evaluates both operands as words (promoting a byte result by zero-extension) and
// lowers the operator against HL (left) and DE (right). Arithmetic, shift, and bitwise operators
// leave a word result in HL; comparisons and logical operators leave a 0/1 byte in A.
func (g *Generator) genBinary(e lang.BinaryExpr) (bool, error) {
	if err := g.genExprWord(e.Left); err != nil {
		return false, err
	}

	g.buf.emit(z80.PUSH_HL)

	if err := g.genExprWord(e.Right); err != nil {
		return false, err
	}

	g.buf.emit(z80.EX_DE_HL) // DE = right
	g.buf.emit(z80.POP_HL)   // HL = left

	switch e.Op {
	case lang.OpAdd:
		g.buf.emit(z80.ADD_HL_DE)
		return true, nil

	case lang.OpSubtract:
		g.buf.emit(z80.OR_A)
		g.buf.emit(z80.SBC_HL_DE...)

		return true, nil

	case lang.OpMultiply:
		g.buf.emit(z80.LD_B_H, z80.LD_C_L)
		g.buf.emitCall(g.runtime.Multiply)

		return true, nil

	case lang.OpDivide:
		g.buf.emit(z80.PUSH_DE, z80.POP_BC)
		g.buf.emitCall(g.runtime.DivMod16)
		g.buf.emit(z80.EX_DE_HL) // quotient, left in DE by divmod16, into HL

		return true, nil

	case lang.OpModulo:
		g.buf.emit(z80.PUSH_DE, z80.POP_BC)
		g.buf.emitCall(g.runtime.DivMod16)
		// remainder is already left in HL by divmod16

		return true, nil

	case lang.OpLeftShift:
		g.genShift(z80.ADD_HL_HL)
		return true, nil

	case lang.OpRightShift:
		g.genShift(append(append([]byte{}, z80.SRL_H...), z80.RR_L...)...)
		return true, nil

	case lang.OpBitAnd:
		g.genBitwiseByteOp(z80.AND_D, z80.AND_E)
		return true, nil

	case lang.OpBitOr:
		// Fixes the dead OR lowering in the implementation this replaces: bitwise-or must
		// actually combine bits, the same way BitAnd does, byte by byte.
		g.genBitwiseByteOp(z80.OR_D, z80.OR_E)
		return true, nil

	case lang.OpBitXor:
		g.genBitwiseByteOp(z80.XOR_D, z80.XOR_E)
		return true, nil

	case lang.OpEqual:
		g.genCompare(z80.JR_Z_N)
		return false, nil

	case lang.OpNotEqual:
		g.genCompare(z80.JR_NZ_N)
		return false, nil

	case lang.OpLess:
		g.genCompare(z80.JR_C_N)
		return false, nil

	case lang.OpLessEqual:
		// Fixes the fragile double-jump LessEqual in the implementation this replaces: a single
		// CP-equivalent (here SBC HL,DE) sets both flags at once, so true is carry set OR zero
		// set, with no separate byte-offset-counted jump sequence needed.
		g.genCompareEither(z80.JR_C_N, z80.JR_Z_N)
		return false, nil

	case lang.OpGreater:
		g.genCompareNeither(z80.JR_C_N, z80.JR_Z_N)
		return false, nil

	case lang.OpGreaterEqual:
		g.genCompareNeither(z80.JR_C_N)
		return false, nil

	case lang.OpAnd:
		g.genLogicalAnd()
		return false, nil

	case lang.OpOr:
		g.genLogicalOr()
		return false, nil

	case lang.OpXor:
		g.genLogicalXor()
		return false, nil

	default:
		return false, &InternalError{Msg: "unhandled binary operator"}
	}
}

// genShift applies opcodes count times, where count is DE's low byte (E); shifting by zero does
// nothing, which DJNZ alone cannot express since it always runs its body at least once.
func (g *Generator) genShift(opcodes ...byte) {
	g.buf.emit(z80.LD_A_E, z80.OR_A)
	doneDisp := g.buf.jrForward(z80.JR_Z_N)
	g.buf.emit(z80.LD_B_A)

	loop := g.buf.pc()
	g.buf.emit(opcodes...)
	g.buf.jrBack(z80.DJNZ_N, loop)

	done := g.buf.pc()
	g.buf.patchRelative(doneDisp, done)
}

// genBitwiseByteOp combines HL and DE byte-by-byte: hiOp on H against D, loOp on L against E.
func (g *Generator) genBitwiseByteOp(hiOp, loOp byte) {
	g.buf.emit(z80.LD_A_H, hiOp, z80.LD_H_A)
	g.buf.emit(z80.LD_A_L, loOp, z80.LD_L_A)
}

// genCompare computes HL-DE via SBC HL,DE and produces a 0/1 byte in A: 1 if branchOn's
// condition holds, 0 otherwise.
func (g *Generator) genCompare(branchOn byte) {
	g.buf.emit(z80.OR_A)
	g.buf.emit(z80.SBC_HL_DE...)

	trueDisp := g.buf.jrForward(branchOn)
	g.buf.emit(z80.XOR_A)
	doneDisp := g.buf.jrForward(z80.JR_N)

	trueAddr := g.buf.pc()
	g.buf.patchRelative(trueDisp, trueAddr)
	g.buf.emit(z80.LD_A_N, 1)

	done := g.buf.pc()
	g.buf.patchRelative(doneDisp, done)
}

// genCompareEither is true when either flag condition holds after a single SBC HL,DE (used for
// LessEqual: carry set or zero set).
func (g *Generator) genCompareEither(firstBranch, secondBranch byte) {
	g.buf.emit(z80.OR_A)
	g.buf.emit(z80.SBC_HL_DE...)

	true1 := g.buf.jrForward(firstBranch)
	true2 := g.buf.jrForward(secondBranch)
	g.buf.emit(z80.XOR_A)
	doneDisp := g.buf.jrForward(z80.JR_N)

	trueAddr := g.buf.pc()
	g.buf.patchRelative(true1, trueAddr)
	g.buf.patchRelative(true2, trueAddr)
	g.buf.emit(z80.LD_A_N, 1)

	done := g.buf.pc()
	g.buf.patchRelative(doneDisp, done)
}

// genCompareNeither is true only when none of the given flag conditions hold (used for Greater =
// not LessEqual, and GreaterEqual = not Less).
func (g *Generator) genCompareNeither(branches ...byte) {
	g.buf.emit(z80.OR_A)
	g.buf.emit(z80.SBC_HL_DE...)

	falseDisps := make([]uint16, len(branches))
	for i, b := range branches {
		falseDisps[i] = g.buf.jrForward(b)
	}

	g.buf.emit(z80.LD_A_N, 1)
	doneDisp := g.buf.jrForward(z80.JR_N)

	falseAddr := g.buf.pc()
	for _, d := range falseDisps {
		g.buf.patchRelative(d, falseAddr)
	}

	g.buf.emit(z80.XOR_A)

	done := g.buf.pc()
	g.buf.patchRelative(doneDisp, done)
}

func (g *Generator) genLogicalAnd() {
	g.buf.emit(z80.LD_A_H, z80.OR_L)
	leftFalseDisp := g.buf.jrForward(z80.JR_Z_N)
	g.buf.emit(z80.LD_A_D, z80.OR_E)
	rightFalseDisp := g.buf.jrForward(z80.JR_Z_N)
	g.buf.emit(z80.LD_A_N, 1)
	doneDisp := g.buf.jrForward(z80.JR_N)

	falseAddr := g.buf.pc()
	g.buf.patchRelative(leftFalseDisp, falseAddr)
	g.buf.patchRelative(rightFalseDisp, falseAddr)
	g.buf.emit(z80.XOR_A)

	done := g.buf.pc()
	g.buf.patchRelative(doneDisp, done)
}

func (g *Generator) genLogicalOr() {
	g.buf.emit(z80.LD_A_H, z80.OR_L)
	leftTrueDisp := g.buf.jrForward(z80.JR_NZ_N)
	g.buf.emit(z80.LD_A_D, z80.OR_E)
	rightFalseDisp := g.buf.jrForward(z80.JR_Z_N)

	trueAddr := g.buf.pc()
	g.buf.patchRelative(leftTrueDisp, trueAddr)
	g.buf.emit(z80.LD_A_N, 1)
	doneDisp := g.buf.jrForward(z80.JR_N)

	falseAddr := g.buf.pc()
	g.buf.patchRelative(rightFalseDisp, falseAddr)
	g.buf.emit(z80.XOR_A)

	done := g.buf.pc()
	g.buf.patchRelative(doneDisp, done)
}

func (g *Generator) genLogicalXor() {
	g.buf.emit(z80.LD_A_H, z80.OR_L)
	leftFalseDisp := g.buf.jrForward(z80.JR_Z_N)
	g.buf.emit(z80.LD_B_N, 1)
	leftDoneDisp := g.buf.jrForward(z80.JR_N)

	leftFalse := g.buf.pc()
	g.buf.patchRelative(leftFalseDisp, leftFalse)
	g.buf.emit(z80.LD_B_N, 0)

	leftDone := g.buf.pc()
	g.buf.patchRelative(leftDoneDisp, leftDone)

	g.buf.emit(z80.LD_A_D, z80.OR_E)
	rightFalseDisp := g.buf.jrForward(z80.JR_Z_N)
	g.buf.emit(z80.LD_A_N, 1)
	rightDoneDisp := g.buf.jrForward(z80.JR_N)

	rightFalse := g.buf.pc()
	g.buf.patchRelative(rightFalseDisp, rightFalse)
	g.buf.emit(z80.XOR_A)

	rightDone := g.buf.pc()
	g.buf.patchRelative(rightDoneDisp, rightDone)

	g.buf.emit(z80.XOR_B)
}
