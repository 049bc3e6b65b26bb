package codegen

import "github.com/retrolang/actzc/internal/z80"

// buffer accumulates assembled bytes at a fixed origin and resolves relative and absolute
// addresses against it, the same emit/patch pattern used throughout the generator: write
// provisional bytes at the point a jump or call is needed, then patch them once the destination
// address is known.
type buffer struct {
	origin uint16
	code   []byte
	err    error
}

func newBuffer(origin uint16) *buffer {
	return &buffer{origin: origin}
}

// pc returns the absolute address the next emitted byte will occupy.
func (b *buffer) pc() uint16 {
	return b.origin + uint16(len(b.code))
}

func (b *buffer) emit(bs ...byte) {
	b.code = append(b.code, bs...)
}

func (b *buffer) emitWord(w uint16) {
	lo, hi := z80.LowHigh(w)
	b.code = append(b.code, lo, hi)
}

// reserveWord emits a placeholder word and returns its absolute address, to be filled in later
// with patchWord once the value it should hold is known.
func (b *buffer) reserveWord() uint16 {
	addr := b.pc()
	b.emitWord(0)

	return addr
}

func (b *buffer) patchWord(addr uint16, value uint16) {
	offset := int(addr - b.origin)
	lo, hi := z80.LowHigh(value)
	b.code[offset] = lo
	b.code[offset+1] = hi
}

// emitCall emits CALL nn against a target address that is already known, which is the common case
// in this generator: runtime helpers and earlier procedures are emitted before anything that
// calls them.
func (b *buffer) emitCall(target uint16) {
	b.emit(z80.CALL_NN)
	b.emitWord(target)
}

// reserveCall emits CALL nn with a placeholder target and returns the operand's address, for
// forward references that can only be patched once the callee is generated.
func (b *buffer) reserveCall() uint16 {
	b.emit(z80.CALL_NN)
	return b.reserveWord()
}

// jrBack emits a relative jump (or DJNZ) back to an address that has already been emitted.
func (b *buffer) jrBack(opcode byte, target uint16) {
	b.emit(opcode)
	disp := b.pc()
	b.emit(0)
	b.patchRelative(disp, target)
}

// jrForward emits a relative jump with a placeholder displacement and returns its address, to be
// resolved with patchRelative once the forward target is known.
func (b *buffer) jrForward(opcode byte) uint16 {
	b.emit(opcode)
	disp := b.pc()
	b.emit(0)

	return disp
}

// patchRelative resolves the signed displacement byte at dispAddr so that it jumps to target. The
// displacement is relative to the address immediately following the displacement byte itself, per
// the Z80's JR/DJNZ encoding.
func (b *buffer) patchRelative(dispAddr, target uint16) {
	if b.err != nil {
		return
	}

	rel := int(target) - int(dispAddr+1)
	if rel < -128 || rel > 127 {
		b.err = &CodeGenError{Msg: "relative jump target out of range"}
		return
	}

	b.code[int(dispAddr-b.origin)] = byte(int8(rel))
}
