package codegen

import (
	"fmt"
	"strings"

	"github.com/retrolang/actzc/internal/lang"
	"github.com/retrolang/actzc/internal/z80"
)

// genCallExpr lowers a call to either a runtime intrinsic or a user-defined procedure and reports
// whether the value it leaves behind (if any) is a word or a byte.
func (g *Generator) genCallExpr(e lang.FunctionCall) (bool, error) {
	if IsIntrinsic(e.Name) {
		return g.genIntrinsicCall(e)
	}

	return g.genProcedureCall(e)
}

// genIntrinsicCall lowers a call to one of the fixed runtime library routines. Each intrinsic has
// its own fixed argument register, matching the convention the routines in runtime.go were
// assembled against.
func (g *Generator) genIntrinsicCall(e lang.FunctionCall) (bool, error) {
	name := strings.ToUpper(e.Name)

	switch name {
	case "PRINTB", "PUTD":
		if len(e.Args) != 1 {
			return false, &CodeGenError{Msg: fmt.Sprintf("%s takes exactly one argument", e.Name)}
		}

		isWord, err := g.genExpr(e.Args[0])
		if err != nil {
			return false, err
		}

		if isWord {
			g.buf.emit(z80.LD_A_L)
		}

		g.genCall(name)

		return false, nil

	case "PRINTC":
		if len(e.Args) != 1 {
			return false, &CodeGenError{Msg: "PRINTC takes exactly one argument"}
		}

		if err := g.genExprWord(e.Args[0]); err != nil {
			return false, err
		}

		g.genCall(name)

		return false, nil

	case "PRINT":
		if len(e.Args) != 1 {
			return false, &CodeGenError{Msg: "PRINT takes exactly one argument"}
		}

		if err := g.genExprWord(e.Args[0]); err != nil {
			return false, err
		}

		g.genCall(name)

		return false, nil

	case "PRINTE":
		if len(e.Args) != 0 {
			return false, &CodeGenError{Msg: "PRINTE takes no arguments"}
		}

		g.genCall(name)

		return false, nil

	case "GETD":
		if len(e.Args) != 0 {
			return false, &CodeGenError{Msg: "GETD takes no arguments"}
		}

		g.genCall(name)

		return false, nil

	default:
		return false, &InternalError{Msg: "unhandled intrinsic " + e.Name}
	}
}

// genProcedureCall evaluates each argument and stores it into the callee's fixed parameter
// address before emitting the CALL itself. Every procedure has its own, distinct parameter/locals
// range (see allocateProcedureLocals), so arguments can be written directly rather than pushed on a
// stack; only true recursion, which remains out of scope, would need a real stack frame instead.
func (g *Generator) genProcedureCall(e lang.FunctionCall) (bool, error) {
	decl, declared := g.procDecls[strings.ToUpper(e.Name)]

	if !declared {
		return false, &UndefinedProcedureError{Name: e.Name}
	}

	if len(e.Args) != len(decl.Params) {
		return false, &CodeGenError{
			Msg: fmt.Sprintf("%s expects %d argument(s), got %d", e.Name, len(decl.Params), len(e.Args)),
		}
	}

	for i, arg := range e.Args {
		isWord, err := g.genExpr(arg)
		if err != nil {
			return false, err
		}

		// Every procedure's parameters live at fixed addresses derived purely from its
		// declaration (see paramAddress), so this resolves correctly whether the callee has
		// already been generated or still lies ahead in source order.
		paramAddr, paramIsWord, ok := g.paramAddress(e.Name, i)
		if !ok {
			return false, &InternalError{Msg: "parameter " + decl.Params[i].Name + " has no allocated address"}
		}

		if paramIsWord {
			if !isWord {
				g.buf.emit(z80.LD_H_N, 0, z80.LD_L_A)
			}

			g.buf.emit(z80.LD_NN_HL)
			g.buf.emitWord(paramAddr)
		} else {
			if isWord {
				g.buf.emit(z80.LD_A_L)
			}

			g.buf.emit(z80.LD_NN_A)
			g.buf.emitWord(paramAddr)
		}
	}

	g.genCall(e.Name)

	if decl.ReturnType != nil {
		return decl.ReturnType.IsWord(), nil
	}

	return false, nil
}
