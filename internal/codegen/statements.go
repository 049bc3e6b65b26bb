package codegen

import (
	"github.com/retrolang/actzc/internal/lang"
	"github.com/retrolang/actzc/internal/z80"
)

func (g *Generator) genStatement(stmt lang.Stmt) error {
	switch s := stmt.(type) {
	case lang.VarDecl:
		if s.Variable.InitialValue == nil {
			return nil
		}

		return g.genStore(s.Variable.Name, s.Variable.InitialValue)

	case lang.Assignment:
		return g.genStore(s.Target, s.Value)

	case lang.ArrayAssignment:
		return g.genArrayStore(s.Array, s.Index, s.Value)

	case lang.PointerAssignment:
		return g.genPointerStore(s.Pointer, s.Value)

	case lang.If:
		return g.genIf(s)

	case lang.While:
		return g.genWhile(s)

	case lang.For:
		return g.genFor(s)

	case lang.Until:
		return g.genUntil(s)

	case lang.Exit:
		return g.genExit()

	case lang.Return:
		return g.genReturn(s)

	case lang.ProcCall:
		_, err := g.genExpr(lang.FunctionCall{Name: s.Name, Args: s.Args})
		return err

	default:
		return &InternalError{Msg: "unhandled statement type"}
	}
}

func (g *Generator) genBlock(block lang.Block) error {
	for _, stmt := range block {
		if err := g.genStatement(stmt); err != nil {
			return err
		}
	}

	return nil
}

// genStore evaluates value and writes it into the scalar variable named target, truncating a word
// result to its low byte if target is byte-sized and zero-extending a byte result if target is
// word-sized.
func (g *Generator) genStore(target string, value lang.Expr) error {
	info, ok := g.lookup(target)
	if !ok {
		return &UndefinedVariableError{Name: target}
	}

	isWord, err := g.genExpr(value)
	if err != nil {
		return err
	}

	if info.Type.IsWord() {
		if !isWord {
			g.buf.emit(z80.LD_H_N, 0, z80.LD_L_A)
		}

		g.buf.emit(z80.LD_NN_HL)
		g.buf.emitWord(info.Address)

		return nil
	}

	if isWord {
		g.buf.emit(z80.LD_A_L)
	}

	g.buf.emit(z80.LD_NN_A)
	g.buf.emitWord(info.Address)

	return nil
}

// genArrayStore evaluates index and value, scales the index by the array's element size, and
// writes value into array[index]. This is the REDESIGN-flagged fix for element addressing: the
// implementation this replaces always treated every array as byte-sized, silently corrupting
// CARD ARRAY and INT ARRAY writes.
func (g *Generator) genArrayStore(array string, index, value lang.Expr) error {
	info, ok := g.lookup(array)
	if !ok {
		return &UndefinedVariableError{Name: array}
	}

	if !info.Type.IsArray() {
		return &TypeMismatchError{Expected: "array", Found: "scalar"}
	}

	elemSize := info.Type.ElementType().Size()

	if err := g.genElementAddress(info.Address, index, elemSize); err != nil {
		return err
	}

	g.buf.emit(z80.PUSH_HL)

	isWord, err := g.genExpr(value)
	if err != nil {
		return err
	}

	if info.Type.ElementType().IsWord() {
		if !isWord {
			g.buf.emit(z80.LD_H_N, 0, z80.LD_L_A)
		}

		g.buf.emit(z80.EX_DE_HL) // DE = value, HL = garbage
		g.buf.emit(z80.POP_HL)   // HL = element address
		g.buf.emit(z80.LD_HL_E)
		g.buf.emit(z80.INC_HL)
		g.buf.emit(z80.LD_HL_D)

		return nil
	}

	if isWord {
		g.buf.emit(z80.LD_A_L)
	}

	g.buf.emit(z80.POP_HL)
	g.buf.emit(z80.LD_HL_A)

	return nil
}

// genElementAddress evaluates index, scales it by elemSize (1 or 2), and leaves
// base+scaled-index in HL.
func (g *Generator) genElementAddress(base uint16, index lang.Expr, elemSize int) error {
	if err := g.genExprWord(index); err != nil {
		return err
	}

	if elemSize == 2 {
		g.buf.emit(z80.ADD_HL_HL)
	}

	g.buf.emit(z80.LD_DE_NN)
	g.buf.emitWord(base)
	g.buf.emit(z80.ADD_HL_DE)

	return nil
}

// genPointerStore evaluates pointer to get a target address in HL and writes value's low byte
// there. Pointer targets are treated uniformly as byte cells; see DESIGN.md for why this
// generator does not track pointee width.
func (g *Generator) genPointerStore(pointer, value lang.Expr) error {
	if err := g.genExprWord(pointer); err != nil {
		return err
	}

	g.buf.emit(z80.PUSH_HL)

	isWord, err := g.genExpr(value)
	if err != nil {
		return err
	}

	if isWord {
		g.buf.emit(z80.LD_A_L)
	}

	g.buf.emit(z80.POP_HL)
	g.buf.emit(z80.LD_HL_A)

	return nil
}

func (g *Generator) genIf(s lang.If) error {
	if err := g.genCondition(s.Condition); err != nil {
		return err
	}

	g.buf.emit(z80.JP_Z_NN)
	elseOperand := g.buf.reserveWord()

	if err := g.genBlock(s.Then); err != nil {
		return err
	}

	if s.Else == nil {
		g.buf.patchWord(elseOperand, g.buf.pc())
		return nil
	}

	g.buf.emit(z80.JP_NN)
	endOperand := g.buf.reserveWord()

	g.buf.patchWord(elseOperand, g.buf.pc())

	if err := g.genBlock(s.Else); err != nil {
		return err
	}

	g.buf.patchWord(endOperand, g.buf.pc())

	return nil
}

func (g *Generator) genWhile(s lang.While) error {
	top := g.buf.pc()

	if err := g.genCondition(s.Condition); err != nil {
		return err
	}

	g.buf.emit(z80.JP_Z_NN)
	endOperand := g.buf.reserveWord()

	frame := &loopFrame{}
	g.loopStack = append(g.loopStack, frame)

	if err := g.genBlock(s.Body); err != nil {
		return err
	}

	g.buf.emit(z80.JP_NN)
	g.buf.emitWord(top)

	end := g.buf.pc()
	g.buf.patchWord(endOperand, end)
	g.popLoop(end)

	return nil
}

func (g *Generator) genUntil(s lang.Until) error {
	top := g.buf.pc()

	frame := &loopFrame{}
	g.loopStack = append(g.loopStack, frame)

	if err := g.genBlock(s.Body); err != nil {
		return err
	}

	if err := g.genCondition(s.Condition); err != nil {
		return err
	}

	g.buf.emit(z80.JP_Z_NN)
	g.buf.emitWord(top)

	end := g.buf.pc()
	g.popLoop(end)

	return nil
}

func (g *Generator) genFor(s lang.For) error {
	if err := g.genStore(s.Var, s.Start); err != nil {
		return err
	}

	info, ok := g.lookup(s.Var)
	if !ok {
		return &UndefinedVariableError{Name: s.Var}
	}

	ascending := true

	if n, isNum := s.Step.(lang.Number); isNum && n.Value < 0 {
		ascending = false
	}

	var cmpOp lang.BinaryOp
	if ascending {
		cmpOp = lang.OpLessEqual
	} else {
		cmpOp = lang.OpGreaterEqual
	}

	step := s.Step
	if step == nil {
		step = lang.Number{Value: 1}
	}

	top := g.buf.pc()

	cond := lang.BinaryExpr{Op: cmpOp, Left: lang.VariableRef{Name: s.Var}, Right: s.End}
	if err := g.genCondition(cond); err != nil {
		return err
	}

	g.buf.emit(z80.JP_Z_NN)
	endOperand := g.buf.reserveWord()

	frame := &loopFrame{}
	g.loopStack = append(g.loopStack, frame)

	if err := g.genBlock(s.Body); err != nil {
		return err
	}

	incr := lang.BinaryExpr{Op: lang.OpAdd, Left: lang.VariableRef{Name: s.Var}, Right: step}
	if err := g.genStore(s.Var, incr); err != nil {
		return err
	}

	g.buf.emit(z80.JP_NN)
	g.buf.emitWord(top)

	end := g.buf.pc()
	g.buf.patchWord(endOperand, end)
	g.popLoop(end)

	_ = info // looked up only to validate the loop variable is declared

	return nil
}

func (g *Generator) genExit() error {
	if len(g.loopStack) == 0 {
		return &CodeGenError{Msg: "EXIT outside of a loop"}
	}

	frame := g.loopStack[len(g.loopStack)-1]

	g.buf.emit(z80.JP_NN)
	operand := g.buf.reserveWord()
	frame.exitPatches = append(frame.exitPatches, operand)

	return nil
}

// popLoop pops the innermost loop frame and patches every EXIT that targeted it to jump to end,
// the address immediately after the loop. This is the REDESIGN-flagged fix for EXIT: the
// implementation being replaced only patched EXIT when a later, unrelated branch happened to
// already know the address, and otherwise left the CALL operand as an unpatched zero.
func (g *Generator) popLoop(end uint16) {
	frame := g.loopStack[len(g.loopStack)-1]
	g.loopStack = g.loopStack[:len(g.loopStack)-1]

	for _, operand := range frame.exitPatches {
		g.buf.patchWord(operand, end)
	}
}

func (g *Generator) genReturn(s lang.Return) error {
	if s.Value != nil {
		isWord, err := g.genExpr(s.Value)
		if err != nil {
			return err
		}

		if isWord {
			// Word results already sit in HL, the convention a FUNC caller expects.
		} else {
			// Byte results stay in A; callers of a byte-returning FUNC read A, not HL.
		}
	}

	g.buf.emit(z80.RET)

	return nil
}

// genCondition generates e and leaves the Z flag reflecting whether its value was zero (false) or
// nonzero (true), without needing to materialize an explicit boolean. Comparison and logical
// operators already compute a 0/1 byte; anything else is tested for zero directly, word results
// via H|L and byte results via A itself.
func (g *Generator) genCondition(e lang.Expr) error {
	isWord, err := g.genExpr(e)
	if err != nil {
		return err
	}

	if isWord {
		g.buf.emit(z80.LD_A_H, z80.OR_L)
	} else {
		g.buf.emit(z80.OR_A)
	}

	return nil
}
