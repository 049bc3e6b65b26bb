package z80

// Console I/O port assignments used by the runtime library and the emulator alike.
const (
	ConsoleData   byte = 0x00
	ConsoleStatus byte = 0x01

	// StatusReady is the bit in ConsoleStatus that GetD polls: a 1 means a byte is waiting in
	// ConsoleData.
	StatusReady byte = 0x01
)
