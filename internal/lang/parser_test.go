package lang

import "testing"

func parse(t *testing.T, src string) Program {
	t.Helper()

	lex := NewLexer([]byte(src))

	toks, err := lex.Tokenize()
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}

	p := NewParser(toks)

	prog := p.Parse()
	if err := p.Err(); err != nil {
		t.Fatalf("Parse: %v", err)
	}

	return prog
}

func TestParseGlobalDecl(t *testing.T) {
	prog := parse(t, "BYTE x = 5\nCARD ARRAY nums(10)\n")

	if len(prog.Globals) != 2 {
		t.Fatalf("got %d globals, want 2", len(prog.Globals))
	}

	if prog.Globals[0].Name != "x" || prog.Globals[0].Type.Base != TypeByte {
		t.Errorf("global 0: got %+v", prog.Globals[0])
	}

	if n, ok := prog.Globals[0].InitialValue.(Number); !ok || n.Value != 5 {
		t.Errorf("global 0 initializer: got %+v", prog.Globals[0].InitialValue)
	}

	if prog.Globals[1].Type.Base != TypeCardArray || prog.Globals[1].Type.Count != 10 {
		t.Errorf("global 1: got %+v", prog.Globals[1])
	}
}

func TestParseProcedureWithReturn(t *testing.T) {
	prog := parse(t, `
FUNC CARD Add(CARD a, CARD b)
RETURN a + b
OD
`)

	if len(prog.Procedures) != 1 {
		t.Fatalf("got %d procedures, want 1", len(prog.Procedures))
	}

	proc := prog.Procedures[0]

	if proc.Name != "Add" || proc.ReturnType == nil || proc.ReturnType.Base != TypeCard {
		t.Fatalf("got %+v", proc)
	}

	if len(proc.Params) != 2 {
		t.Fatalf("got %d params, want 2", len(proc.Params))
	}

	if len(proc.Body) != 1 {
		t.Fatalf("got %d body statements, want 1 (the trailing RETURN)", len(proc.Body))
	}

	ret, ok := proc.Body[0].(Return)
	if !ok {
		t.Fatalf("last statement: got %T, want Return", proc.Body[0])
	}

	bin, ok := ret.Value.(BinaryExpr)
	if !ok || bin.Op != OpAdd {
		t.Fatalf("return value: got %+v", ret.Value)
	}
}

func TestParseIfWhileFor(t *testing.T) {
	prog := parse(t, `
PROC Main
  BYTE i
  IF i = 0 THEN
    i = 1
  ELSE
    i = 2
  FI
  WHILE i < 10 DO
    i = i + 1
  OD
  FOR i = 0 TO 9 STEP 2 DO
    EXIT
  OD
OD
`)

	proc := prog.Procedures[0]

	if len(proc.Body) != 3 {
		t.Fatalf("got %d statements, want 3: %+v", len(proc.Body), proc.Body)
	}

	ifStmt, ok := proc.Body[0].(If)
	if !ok {
		t.Fatalf("statement 0: got %T", proc.Body[0])
	}

	if len(ifStmt.Then) != 1 || len(ifStmt.Else) != 1 {
		t.Fatalf("if branches: got then=%d else=%d", len(ifStmt.Then), len(ifStmt.Else))
	}

	whileStmt, ok := proc.Body[1].(While)
	if !ok || len(whileStmt.Body) != 1 {
		t.Fatalf("statement 1: got %+v", proc.Body[1])
	}

	forStmt, ok := proc.Body[2].(For)
	if !ok || forStmt.Step == nil {
		t.Fatalf("statement 2: got %+v", proc.Body[2])
	}

	if _, ok := forStmt.Body[0].(Exit); !ok {
		t.Fatalf("for body: got %+v", forStmt.Body)
	}
}

func TestParsePosttestLoop(t *testing.T) {
	prog := parse(t, `
PROC Main
  BYTE i
  DO
    i = i + 1
  UNTIL i = 3
  OD
OD
`)

	proc := prog.Procedures[0]

	loop, ok := proc.Body[0].(Until)
	if !ok || len(loop.Body) != 1 {
		t.Fatalf("got %+v", proc.Body[0])
	}

	cond, ok := loop.Condition.(BinaryExpr)
	if !ok || cond.Op != OpEqual {
		t.Fatalf("condition: got %+v", loop.Condition)
	}
}

func TestParseArrayAndPointerAssignment(t *testing.T) {
	prog := parse(t, `
PROC Main
  BYTE ARRAY a(4)
  INT p
  a[0] = 7
  ^p = 9
OD
`)

	proc := prog.Procedures[0]

	arr, ok := proc.Body[0].(ArrayAssignment)
	if !ok || arr.Array != "a" {
		t.Fatalf("got %+v", proc.Body[0])
	}

	ptr, ok := proc.Body[1].(PointerAssignment)
	if !ok {
		t.Fatalf("got %+v", proc.Body[1])
	}

	if vr, ok := ptr.Pointer.(VariableRef); !ok || vr.Name != "p" {
		t.Fatalf("pointer target: got %+v", ptr.Pointer)
	}
}

func TestParseCallStatementsAndExpressionPrecedence(t *testing.T) {
	prog := parse(t, `
PROC Main
  PrintB(1 + 2 * 3)
  PrintE
OD
`)

	proc := prog.Procedures[0]

	call, ok := proc.Body[0].(ProcCall)
	if !ok || call.Name != "PrintB" || len(call.Args) != 1 {
		t.Fatalf("got %+v", proc.Body[0])
	}

	top, ok := call.Args[0].(BinaryExpr)
	if !ok || top.Op != OpAdd {
		t.Fatalf("expected top-level Add, got %+v", call.Args[0])
	}

	right, ok := top.Right.(BinaryExpr)
	if !ok || right.Op != OpMultiply {
		t.Fatalf("expected Multiply to bind tighter than Add, got %+v", top.Right)
	}

	bare, ok := proc.Body[1].(ProcCall)
	if !ok || bare.Name != "PrintE" || bare.Args != nil {
		t.Fatalf("got %+v", proc.Body[1])
	}
}

func TestParseErrorRecoveryAccumulatesMultiple(t *testing.T) {
	lex := NewLexer([]byte("BYTE\nCARD\n"))

	toks, err := lex.Tokenize()
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}

	p := NewParser(toks)
	_ = p.Parse()

	if p.Err() == nil {
		t.Fatal("expected accumulated parse errors for two malformed declarations")
	}

	joined, ok := p.Err().(interface{ Unwrap() []error })
	if !ok || len(joined.Unwrap()) != 2 {
		t.Fatalf("expected one error per malformed declaration, got %v", p.Err())
	}
}
