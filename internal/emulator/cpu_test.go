package emulator

import (
	"bytes"
	"context"
	"testing"

	"github.com/retrolang/actzc/internal/z80"
)

func TestStepArithmetic(t *testing.T) {
	t.Run("ADD HL,DE sets carry on overflow", func(t *testing.T) {
		c := New()
		c.setHL(0xFFFF)
		c.setDE(0x0002)
		c.Mem[0] = z80.ADD_HL_DE
		c.PC = 0

		if err := c.Step(); err != nil {
			t.Fatalf("step: %v", err)
		}

		if got := c.HL(); got != 0x0001 {
			t.Errorf("HL = %04X, want 0001", got)
		}

		if !c.flag(FlagC) {
			t.Errorf("carry flag not set")
		}
	})

	t.Run("SBC HL,DE drives LessEqual comparisons", func(t *testing.T) {
		c := New()
		c.setHL(3)
		c.setDE(5)
		c.Mem[0], c.Mem[1] = z80.OR_A, z80.SBC_HL_DE[0]
		c.Mem[2] = z80.SBC_HL_DE[1]
		c.PC = 0

		for i := 0; i < 2; i++ {
			if err := c.Step(); err != nil {
				t.Fatalf("step %d: %v", i, err)
			}
		}

		if !c.flag(FlagC) {
			t.Errorf("expected carry set for 3 < 5")
		}
	})
}

func TestStepRelativeJumps(t *testing.T) {
	c := New()
	c.Mem[0] = z80.JR_N
	c.Mem[1] = 2 // skip the next two bytes
	c.Mem[2] = z80.LD_A_N
	c.Mem[3] = 0xFF
	c.Mem[4] = z80.LD_A_N
	c.Mem[5] = 0x42
	c.PC = 0

	for i := 0; i < 2; i++ {
		if err := c.Step(); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}

	if c.A != 0x42 {
		t.Errorf("A = %02X, want 42 (relative jump should have skipped the 0xFF load)", c.A)
	}
}

func TestStepDJNZLoop(t *testing.T) {
	c := New()
	c.B = 5
	c.A = 0
	// loop: INC A; DJNZ loop
	c.Mem[0] = z80.INC_A
	c.Mem[1] = z80.DJNZ_N
	c.Mem[2] = 0xFD // -3: back to address 0 (INC A), relative to the byte after this displacement
	c.PC = 0

	for i := 0; i < 10 && c.B != 0; i++ {
		if err := c.Step(); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}

		if err := c.Step(); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}

	if c.A != 5 {
		t.Errorf("A = %d, want 5 after five DJNZ iterations", c.A)
	}
}

func TestStepCallAndReturn(t *testing.T) {
	c := New()
	c.SP = 0x4000
	// main: CALL routine; HALT
	c.Mem[0] = z80.CALL_NN
	c.Mem[1], c.Mem[2] = 0x05, 0x00
	c.Mem[3] = z80.HALT
	// routine at 0x0005: LD A,9; RET
	c.Mem[5] = z80.LD_A_N
	c.Mem[6] = 9
	c.Mem[7] = z80.RET
	c.PC = 0

	if err := c.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	if c.A != 9 {
		t.Errorf("A = %d, want 9", c.A)
	}

	if c.PC != 4 {
		t.Errorf("PC = %04X, want 0004 (stopped at HALT)", c.PC)
	}
}

func TestUnknownOpcode(t *testing.T) {
	c := New()
	c.Mem[0] = 0xFD // not in the emitted subset
	c.PC = 0

	err := c.Step()
	if err == nil {
		t.Fatal("expected an error for an unrecognized opcode")
	}
}

func TestConsolePutDAndGetD(t *testing.T) {
	var out bytes.Buffer

	console := NewConsole(&out)
	console.Feed('y')

	c := New()
	c.MapPort(z80.ConsoleData, console)
	c.MapPort(z80.ConsoleStatus, console)

	// PutD: OUT (ConsoleData),A
	c.A = 'x'
	c.Mem[0] = z80.OUT_N_A
	c.Mem[1] = z80.ConsoleData
	c.PC = 0

	if err := c.Step(); err != nil {
		t.Fatalf("step: %v", err)
	}

	if out.String() != "x" {
		t.Errorf("console output = %q, want %q", out.String(), "x")
	}

	// GetD: IN A,(ConsoleData)
	c.Mem[2] = z80.IN_A_N
	c.Mem[3] = z80.ConsoleData

	if err := c.Step(); err != nil {
		t.Fatalf("step: %v", err)
	}

	if c.A != 'y' {
		t.Errorf("A = %q, want %q", c.A, 'y')
	}
}

func TestLoaderRejectsEmptyObject(t *testing.T) {
	c := New()
	loader := NewLoader(c)

	if err := loader.Load(ObjectCode{Origin: 0x8000}); err == nil {
		t.Fatal("expected an error loading an empty object")
	}
}

func TestLoaderPlacesCodeAtOrigin(t *testing.T) {
	c := New()
	loader := NewLoader(c)

	code := []byte{z80.NOP, z80.HALT}

	if err := loader.Load(ObjectCode{Origin: 0x9000, Code: code}); err != nil {
		t.Fatalf("load: %v", err)
	}

	if c.Mem[0x9000] != z80.NOP || c.Mem[0x9001] != z80.HALT {
		t.Errorf("code not placed at origin")
	}

	if c.PC != 0x9000 {
		t.Errorf("PC = %04X, want 9000", c.PC)
	}
}
