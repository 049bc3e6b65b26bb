package codegen_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/retrolang/actzc/internal/codegen"
	"github.com/retrolang/actzc/internal/emulator"
	"github.com/retrolang/actzc/internal/lang"
	"github.com/retrolang/actzc/internal/z80"
)

// compileAndRun lowers src, runs the result in the emulator with a preloaded keyboard buffer, and
// returns whatever the program wrote to its console.
func compileAndRun(t *testing.T, src string, keys ...byte) string {
	t.Helper()

	tokens, err := lang.NewLexer([]byte(src)).Tokenize()
	if err != nil {
		t.Fatalf("lex: %v", err)
	}

	parser := lang.NewParser(tokens)
	program := parser.Parse()

	if err := parser.Err(); err != nil {
		t.Fatalf("parse: %v", err)
	}

	result, err := codegen.Generate(&program, 0x4200)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	var out bytes.Buffer

	console := emulator.NewConsole(&out)
	console.Feed(keys...)

	cpu := emulator.New()
	cpu.MapPort(z80.ConsoleData, console)
	cpu.MapPort(z80.ConsoleStatus, console)

	loader := emulator.NewLoader(cpu)
	if err := loader.Load(emulator.ObjectCode{Origin: result.Origin, Code: result.Code}); err != nil {
		t.Fatalf("load: %v", err)
	}

	// The binary's first three bytes are JP entry; execution always starts at Origin.
	if err := cpu.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	return out.String()
}

func TestPrintCSuppressesLeadingZeros(t *testing.T) {
	const src = `
PROC MAIN
  PRINTC(7)
OD
`
	if got := compileAndRun(t, src); got != "7" {
		t.Errorf("output = %q, want %q", got, "7")
	}
}

func TestArithmeticAndComparison(t *testing.T) {
	const src = `
CARD x
CARD y

PROC MAIN
  x = 200
  y = 100
  PRINTC(x + y)
  IF x > y THEN
    PRINTC(1)
  FI
  IF y >= x THEN
    PRINTC(9)
  FI
OD
`
	if got := compileAndRun(t, src); got != "3001" {
		t.Errorf("output = %q, want %q", got, "3001")
	}
}

func TestForwardProcedureCall(t *testing.T) {
	const src = `
PROC MAIN
  CARD result
  result = DOUBLE(21)
  PRINTC(result)
OD

FUNC CARD DOUBLE(CARD n)
  RETURN n * 2
OD
`
	if got := compileAndRun(t, src); got != "42" {
		t.Errorf("output = %q, want %q", got, "42")
	}
}

func TestWhileLoopWithExit(t *testing.T) {
	const src = `
PROC MAIN
  CARD i
  i = 0
  WHILE 1 DO
    i = i + 1
    IF i = 5 THEN
      EXIT
    FI
  OD
  PRINTC(i)
OD
`
	if got := compileAndRun(t, src); got != "5" {
		t.Errorf("output = %q, want %q", got, "5")
	}
}

func TestPosttestLoopRunsUntilConditionHolds(t *testing.T) {
	const src = `
PROC MAIN
  CARD i
  i = 0
  DO
    i = i + 1
  UNTIL i = 3
  OD
  PRINTC(i)
OD
`
	if got := compileAndRun(t, src); got != "3" {
		t.Errorf("output = %q, want %q", got, "3")
	}
}

func TestCardArrayElementScaling(t *testing.T) {
	const src = `
CARD ARRAY nums(4)

PROC MAIN
  nums[0] = 10
  nums[1] = 20
  nums[2] = 30
  PRINTC(nums[2])
OD
`
	if got := compileAndRun(t, src); got != "30" {
		t.Errorf("output = %q, want %q", got, "30")
	}
}

func TestPrintStringLiteral(t *testing.T) {
	const src = `
PROC MAIN
  PRINT("HI")
OD
`
	if got := compileAndRun(t, src); got != "HI" {
		t.Errorf("output = %q, want %q", got, "HI")
	}
}

func TestCallerLocalSurvivesProcedureCall(t *testing.T) {
	const src = `
PROC MAIN
  BYTE x
  x = 5
  HELPER(10)
  PRINTB(x)
OD

PROC HELPER(BYTE n)
  PRINTB(n)
OD
`
	if got := compileAndRun(t, src); got != "105" {
		t.Errorf("output = %q, want %q", got, "105")
	}
}

func TestGetDReadsConsoleInput(t *testing.T) {
	const src = `
PROC MAIN
  BYTE b
  b = GETD()
  PUTD(b)
OD
`
	if got := compileAndRun(t, src, 'q'); got != "q" {
		t.Errorf("output = %q, want %q", got, "q")
	}
}
