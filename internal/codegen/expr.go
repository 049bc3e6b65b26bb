package codegen

import (
	"github.com/retrolang/actzc/internal/lang"
	"github.com/retrolang/actzc/internal/z80"
)

// genExpr generates code for e and reports whether the result it leaves is a word (in HL) or a
// byte (in A). Comparisons and logical operators always report byte, since they produce a 0/1
// truth value regardless of their operands' width.
func (g *Generator) genExpr(e lang.Expr) (bool, error) {
	switch expr := e.(type) {
	case lang.Number:
		return g.genNumber(expr)

	case lang.StringLit:
		g.genStringLit(expr.Value)
		return true, nil

	case lang.CharLit:
		g.buf.emit(z80.LD_A_N, expr.Value)
		return false, nil

	case lang.VariableRef:
		return g.genLoadVar(expr.Name)

	case lang.ArrayAccess:
		return g.genLoadArray(expr)

	case lang.Negate:
		return g.genNegate(expr)

	case lang.Not:
		return g.genNot(expr)

	case lang.AddressOf:
		return g.genAddressOf(expr)

	case lang.Dereference:
		return g.genDereference(expr)

	case lang.BinaryExpr:
		return g.genBinary(expr)

	case lang.FunctionCall:
		return g.genCallExpr(expr)

	default:
		return false, &InternalError{Msg: "unhandled expression type"}
	}
}

// genExprWord generates e and ensures its result ends up in HL, zero-extending a byte result.
func (g *Generator) genExprWord(e lang.Expr) error {
	isWord, err := g.genExpr(e)
	if err != nil {
		return err
	}

	if !isWord {
		g.buf.emit(z80.LD_L_A, z80.LD_H_N, 0)
	}

	return nil
}

func (g *Generator) genNumber(n lang.Number) (bool, error) {
	if n.Value >= 0 && n.Value <= 255 {
		g.buf.emit(z80.LD_A_N, byte(n.Value))
		return false, nil
	}

	g.buf.emit(z80.LD_HL_NN)
	g.buf.emitWord(uint16(uint32(n.Value)))

	return true, nil
}

func (g *Generator) genLoadVar(name string) (bool, error) {
	info, ok := g.lookup(name)
	if !ok {
		return false, &UndefinedVariableError{Name: name}
	}

	if info.Type.IsWord() {
		g.buf.emit(z80.LD_HL_NN_IND)
		g.buf.emitWord(info.Address)

		return true, nil
	}

	g.buf.emit(z80.LD_A_NN)
	g.buf.emitWord(info.Address)

	return false, nil
}

func (g *Generator) genLoadArray(a lang.ArrayAccess) (bool, error) {
	info, ok := g.lookup(a.Array)
	if !ok {
		return false, &UndefinedVariableError{Name: a.Array}
	}

	if !info.Type.IsArray() {
		return false, &TypeMismatchError{Expected: "array", Found: "scalar"}
	}

	elem := info.Type.ElementType()

	if err := g.genElementAddress(info.Address, a.Index, elem.Size()); err != nil {
		return false, err
	}

	if elem.IsWord() {
		// Load a 16-bit value from the computed pointer in HL: low byte at (HL), high byte at
		// (HL+1), reassembled into HL itself via DE.
		g.buf.emit(z80.LD_A_HL)
		g.buf.emit(z80.LD_E_A)
		g.buf.emit(z80.INC_HL)
		g.buf.emit(z80.LD_A_HL)
		g.buf.emit(z80.LD_D_A)
		g.buf.emit(z80.EX_DE_HL)

		return true, nil
	}

	g.buf.emit(z80.LD_A_HL)

	return false, nil
}

func (g *Generator) genNegate(n lang.Negate) (bool, error) {
	isWord, err := g.genExpr(n.Operand)
	if err != nil {
		return false, err
	}

	if !isWord {
		g.buf.emit(z80.NEG...)
		return false, nil
	}

	g.buf.emit(z80.EX_DE_HL)
	g.buf.emit(z80.LD_HL_NN)
	g.buf.emitWord(0)
	g.buf.emit(z80.OR_A)
	g.buf.emit(z80.SBC_HL_DE...)

	return true, nil
}

func (g *Generator) genNot(n lang.Not) (bool, error) {
	if err := g.genCondition(n.Operand); err != nil {
		return false, err
	}

	trueDisp := g.buf.jrForward(z80.JR_Z_N)
	g.buf.emit(z80.XOR_A)
	doneDisp := g.buf.jrForward(z80.JR_N)

	trueAddr := g.buf.pc()
	g.buf.patchRelative(trueDisp, trueAddr)
	g.buf.emit(z80.LD_A_N, 1)

	done := g.buf.pc()
	g.buf.patchRelative(doneDisp, done)

	return false, nil
}

func (g *Generator) genAddressOf(a lang.AddressOf) (bool, error) {
	info, ok := g.lookup(a.Name)
	if !ok {
		return false, &UndefinedVariableError{Name: a.Name}
	}

	g.buf.emit(z80.LD_HL_NN)
	g.buf.emitWord(info.Address)

	return true, nil
}

func (g *Generator) genDereference(d lang.Dereference) (bool, error) {
	if err := g.genExprWord(d.Pointer); err != nil {
		return false, err
	}

	g.buf.emit(z80.LD_A_HL)

	return false, nil
}
