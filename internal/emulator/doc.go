// Package emulator runs the flat binaries internal/codegen produces. It implements exactly the
// subset of the Z80 instruction set the code generator and runtime library emit: 8-bit loads and
// arithmetic, 16-bit register-pair arithmetic, conditional and relative jumps, CALL/RET, and the
// two polled console I/O ports. It is not a general-purpose Z80 simulator and does not attempt the
// full instruction set, undocumented opcodes, or interrupt modes.
package emulator
