// Package z80 collects the byte-level vocabulary shared by the code generator and the emulator:
// opcode constants, little-endian operand encoding, and the console port assignments used by the
// runtime library's I/O routines.
package z80
