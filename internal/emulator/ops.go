package emulator

import "github.com/retrolang/actzc/internal/z80"

// step decodes and executes one instruction at PC, advancing it past the instruction's bytes.
// Only the opcodes internal/codegen and its runtime library ever emit (internal/z80/opcodes.go)
// are recognized; anything else is reported as an unknown-opcode error rather than silently
// misinterpreted.
func (c *CPU) step() error {
	op := c.fetchByte()

	switch op {
	case z80.NOP:

	case z80.LD_BC_NN:
		c.setBC(c.fetchWord())
	case z80.LD_DE_NN:
		c.setDE(c.fetchWord())
	case z80.LD_HL_NN:
		c.setHL(c.fetchWord())
	case z80.LD_SP_NN:
		c.SP = c.fetchWord()

	case z80.LD_A_N:
		c.A = c.fetchByte()
	case z80.LD_B_N:
		c.B = c.fetchByte()
	case z80.LD_C_N:
		c.C = c.fetchByte()
	case z80.LD_D_N:
		c.D = c.fetchByte()
	case z80.LD_E_N:
		c.E = c.fetchByte()
	case z80.LD_H_N:
		c.H = c.fetchByte()
	case z80.LD_L_N:
		c.L = c.fetchByte()

	case z80.LD_A_HL:
		c.A = c.Mem[c.HL()]
	case z80.LD_HL_A:
		c.Mem[c.HL()] = c.A
	case z80.LD_HL_D:
		c.Mem[c.HL()] = c.D
	case z80.LD_HL_E:
		c.Mem[c.HL()] = c.E

	case z80.LD_DE_A:
		c.Mem[c.DE()] = c.A
	case z80.LD_A_DE:
		c.A = c.Mem[c.DE()]

	case z80.LD_A_NN:
		c.A = c.Mem[c.fetchWord()]
	case z80.LD_NN_A:
		c.Mem[c.fetchWord()] = c.A
	case z80.LD_HL_NN_IND:
		addr := c.fetchWord()
		c.setHL(uint16(c.Mem[addr]) | uint16(c.Mem[addr+1])<<8)
	case z80.LD_NN_HL:
		addr := c.fetchWord()
		hl := c.HL()
		c.Mem[addr] = byte(hl)
		c.Mem[addr+1] = byte(hl >> 8)

	case z80.LD_A_B:
		c.A = c.B
	case z80.LD_A_C:
		c.A = c.C
	case z80.LD_A_D:
		c.A = c.D
	case z80.LD_A_E:
		c.A = c.E
	case z80.LD_A_H:
		c.A = c.H
	case z80.LD_A_L:
		c.A = c.L

	case z80.LD_B_A:
		c.B = c.A
	case z80.LD_C_A:
		c.C = c.A
	case z80.LD_D_A:
		c.D = c.A
	case z80.LD_E_A:
		c.E = c.A
	case z80.LD_H_A:
		c.H = c.A
	case z80.LD_L_A:
		c.L = c.A

	case z80.LD_H_B:
		c.H = c.B
	case z80.LD_L_C:
		c.L = c.C
	case z80.LD_D_H:
		c.D = c.H
	case z80.LD_E_L:
		c.E = c.L
	case z80.LD_B_H:
		c.B = c.H
	case z80.LD_C_L:
		c.C = c.L

	case z80.PUSH_AF:
		c.push(uint16(c.A)<<8 | uint16(c.F))
	case z80.PUSH_BC:
		c.push(c.BC())
	case z80.PUSH_DE:
		c.push(c.DE())
	case z80.PUSH_HL:
		c.push(c.HL())

	case z80.POP_AF:
		w := c.pop()
		c.A, c.F = byte(w>>8), byte(w)
	case z80.POP_BC:
		c.setBC(c.pop())
	case z80.POP_DE:
		c.setDE(c.pop())
	case z80.POP_HL:
		c.setHL(c.pop())

	case z80.ADD_A_N:
		c.addA(c.fetchByte())
	case z80.ADD_A_B:
		c.addA(c.B)
	case z80.ADD_A_C:
		c.addA(c.C)
	case z80.ADD_HL_BC:
		c.addHL(c.BC())
	case z80.ADD_HL_DE:
		c.addHL(c.DE())
	case z80.ADD_HL_HL:
		c.addHL(c.HL())

	case z80.SUB_N:
		c.subA(c.fetchByte())
	case z80.SUB_B:
		c.subA(c.B)

	case z80.AND_N:
		c.andA(c.fetchByte())
	case z80.AND_B:
		c.andA(c.B)
	case z80.AND_D:
		c.andA(c.D)
	case z80.AND_E:
		c.andA(c.E)

	case z80.OR_N:
		c.orA(c.fetchByte())
	case z80.OR_A:
		c.orA(c.A)
	case z80.OR_B:
		c.orA(c.B)
	case z80.OR_C:
		c.orA(c.C)
	case z80.OR_D:
		c.orA(c.D)
	case z80.OR_E:
		c.orA(c.E)
	case z80.OR_L:
		c.orA(c.L)

	case z80.XOR_N:
		c.xorA(c.fetchByte())
	case z80.XOR_A:
		c.xorA(c.A)
	case z80.XOR_B:
		c.xorA(c.B)
	case z80.XOR_D:
		c.xorA(c.D)
	case z80.XOR_E:
		c.xorA(c.E)

	case z80.CP_N:
		c.cpA(c.fetchByte())
	case z80.CP_B:
		c.cpA(c.B)

	case z80.INC_A:
		c.A = c.inc8(c.A)
	case z80.INC_B:
		c.B = c.inc8(c.B)
	case z80.INC_C:
		c.C = c.inc8(c.C)
	case z80.INC_D:
		c.D = c.inc8(c.D)
	case z80.INC_HL:
		c.setHL(c.HL() + 1)
	case z80.INC_BC:
		c.setBC(c.BC() + 1)
	case z80.INC_DE:
		c.setDE(c.DE() + 1)

	case z80.DEC_A:
		c.A = c.dec8(c.A)
	case z80.DEC_B:
		c.B = c.dec8(c.B)
	case z80.DEC_BC:
		c.setBC(c.BC() - 1)
	case z80.DEC_DE:
		c.setDE(c.DE() - 1)
	case z80.DEC_HL:
		c.setHL(c.HL() - 1)

	case z80.JP_NN:
		c.PC = c.fetchWord()
	case z80.JP_Z_NN:
		addr := c.fetchWord()
		if c.flag(FlagZ) {
			c.PC = addr
		}
	case z80.JP_NZ_NN:
		addr := c.fetchWord()
		if !c.flag(FlagZ) {
			c.PC = addr
		}
	case z80.JP_C_NN:
		addr := c.fetchWord()
		if c.flag(FlagC) {
			c.PC = addr
		}
	case z80.JP_NC_NN:
		addr := c.fetchWord()
		if !c.flag(FlagC) {
			c.PC = addr
		}

	case z80.JR_N:
		c.jumpRelative(true)
	case z80.JR_Z_N:
		c.jumpRelative(c.flag(FlagZ))
	case z80.JR_NZ_N:
		c.jumpRelative(!c.flag(FlagZ))
	case z80.JR_C_N:
		c.jumpRelative(c.flag(FlagC))
	case z80.JR_NC_N:
		c.jumpRelative(!c.flag(FlagC))

	case z80.DJNZ_N:
		c.B--
		c.jumpRelative(c.B != 0)

	case z80.CALL_NN:
		addr := c.fetchWord()
		c.push(c.PC)
		c.PC = addr
	case z80.CALL_Z_NN:
		addr := c.fetchWord()
		if c.flag(FlagZ) {
			c.push(c.PC)
			c.PC = addr
		}
	case z80.CALL_NZ_NN:
		addr := c.fetchWord()
		if !c.flag(FlagZ) {
			c.push(c.PC)
			c.PC = addr
		}

	case z80.RET:
		c.PC = c.pop()
	case z80.RET_Z:
		if c.flag(FlagZ) {
			c.PC = c.pop()
		}

	case z80.RST_00:
		c.push(c.PC)
		c.PC = 0

	case z80.HALT:
		c.Halted = true

	case z80.DI, z80.EI:
		// No interrupts are modeled; these exist only so hand-written startup code that
		// disables/enables them assembles and runs without tripping an unknown-opcode error.

	case z80.EX_DE_HL:
		c.D, c.H = c.H, c.D
		c.E, c.L = c.L, c.E

	case z80.IN_A_N:
		port := c.fetchByte()
		c.A = c.in(port)
	case z80.OUT_N_A:
		port := c.fetchByte()
		c.out(port, c.A)

	case z80.CPL:
		c.A = ^c.A
		c.setFlag(FlagN, true)
		c.setFlag(FlagH, true)

	case 0xCB:
		return c.stepCB()
	case 0xED:
		return c.stepED()

	default:
		return &UnknownOpcodeError{Opcode: op, Address: c.PC - 1}
	}

	return nil
}

func (c *CPU) stepCB() error {
	sub := c.fetchByte()

	switch sub {
	case z80.SLA_A[1]:
		c.setFlag(FlagC, c.A&0x80 != 0)
		c.A <<= 1
		c.setZS(c.A)
	case z80.SLA_E[1]:
		c.setFlag(FlagC, c.E&0x80 != 0)
		c.E <<= 1
		c.setZS(c.E)
	case z80.SRA_A[1]:
		carry := c.A&0x01 != 0
		c.A = (c.A & 0x80) | (c.A >> 1)
		c.setFlag(FlagC, carry)
		c.setZS(c.A)
	case z80.SRL_A[1]:
		c.setFlag(FlagC, c.A&0x01 != 0)
		c.A >>= 1
		c.setZS(c.A)
	case z80.SRL_H[1]:
		c.setFlag(FlagC, c.H&0x01 != 0)
		c.H >>= 1
		c.setZS(c.H)
	case z80.RL_D[1]:
		oldCarry := byte(0)
		if c.flag(FlagC) {
			oldCarry = 1
		}

		c.setFlag(FlagC, c.D&0x80 != 0)
		c.D = (c.D << 1) | oldCarry
		c.setZS(c.D)
	case z80.RR_L[1]:
		oldCarry := byte(0)
		if c.flag(FlagC) {
			oldCarry = 0x80
		}

		c.setFlag(FlagC, c.L&0x01 != 0)
		c.L = (c.L >> 1) | oldCarry
		c.setZS(c.L)
	default:
		return &UnknownOpcodeError{Opcode: sub, Address: c.PC - 1, Prefix: 0xCB}
	}

	return nil
}

func (c *CPU) stepED() error {
	sub := c.fetchByte()

	switch sub {
	case z80.NEG[1]:
		result := -int16(c.A)
		c.setFlag(FlagC, c.A != 0)
		c.A = byte(result)
		c.setZS(c.A)
	case z80.SBC_HL_BC[1]:
		c.sbcHL(c.BC())
	case z80.SBC_HL_DE[1]:
		c.sbcHL(c.DE())
	default:
		return &UnknownOpcodeError{Opcode: sub, Address: c.PC - 1, Prefix: 0xED}
	}

	return nil
}

func (c *CPU) jumpRelative(take bool) {
	disp := int8(c.fetchByte())

	if take {
		c.PC = uint16(int32(c.PC) + int32(disp))
	}
}

func (c *CPU) addA(n byte) {
	result := int16(c.A) + int16(n)
	c.setFlag(FlagC, result > 0xFF)
	c.A = byte(result)
	c.setZS(c.A)
}

func (c *CPU) subA(n byte) {
	result := int16(c.A) - int16(n)
	c.setFlag(FlagC, result < 0)
	c.setFlag(FlagN, true)
	c.A = byte(result)
	c.setZS(c.A)
}

func (c *CPU) cpA(n byte) {
	saved := c.A
	c.subA(n)
	c.A = saved
}

func (c *CPU) andA(n byte) {
	c.A &= n
	c.setFlag(FlagC, false)
	c.setZS(c.A)
}

func (c *CPU) orA(n byte) {
	c.A |= n
	c.setFlag(FlagC, false)
	c.setZS(c.A)
}

func (c *CPU) xorA(n byte) {
	c.A ^= n
	c.setFlag(FlagC, false)
	c.setZS(c.A)
}

func (c *CPU) inc8(v byte) byte {
	v++
	c.setFlag(FlagZ, v == 0)
	c.setFlag(FlagS, v&0x80 != 0)

	return v
}

func (c *CPU) dec8(v byte) byte {
	v--
	c.setFlag(FlagZ, v == 0)
	c.setFlag(FlagS, v&0x80 != 0)
	c.setFlag(FlagN, true)

	return v
}

func (c *CPU) addHL(n uint16) {
	result := uint32(c.HL()) + uint32(n)
	c.setFlag(FlagC, result > 0xFFFF)
	c.setHL(uint16(result))
}

// sbcHL computes HL = HL - n - carry, the instruction genCompare and genCompareEither build every
// comparison operator on: Zero means equal, Carry means HL < n (unsigned).
func (c *CPU) sbcHL(n uint16) {
	borrow := int32(0)
	if c.flag(FlagC) {
		borrow = 1
	}

	result := int32(c.HL()) - int32(n) - borrow
	c.setFlag(FlagC, result < 0)
	c.setFlag(FlagN, true)

	r16 := uint16(result)
	c.setHL(r16)
	c.setFlag(FlagZ, r16 == 0)
	c.setFlag(FlagS, r16&0x8000 != 0)
}

func (c *CPU) in(port byte) byte {
	if dev, ok := c.Ports[port]; ok {
		return dev.In(port)
	}

	return 0
}

func (c *CPU) out(port byte, value byte) {
	if dev, ok := c.Ports[port]; ok {
		dev.Out(port, value)
	}
}
