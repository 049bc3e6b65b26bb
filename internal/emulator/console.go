package emulator

import (
	"io"

	"github.com/retrolang/actzc/internal/z80"
)

// Console implements PortDevice for the two console ports the runtime library's GetD/PutD/Print
// routines poll: ConsoleStatus (readable, bit StatusReady set whenever a byte is buffered) and
// ConsoleData (the byte itself, on either direction).
//
// It is deliberately simple: output is written through immediately, and input is drawn from an
// internal buffer that a driver (internal/tty, for interactive use, or a test) fills by calling
// Feed.
type Console struct {
	out io.Writer

	pending []byte
}

// NewConsole creates a console that writes PutD/Print output to out.
func NewConsole(out io.Writer) *Console {
	return &Console{out: out}
}

// Feed appends bytes to the console's input buffer, to be read back by GetD one at a time.
func (c *Console) Feed(b ...byte) {
	c.pending = append(c.pending, b...)
}

// In reads a console port. ConsoleStatus reports whether a buffered input byte is ready;
// ConsoleData consumes and returns it (or 0 if none is ready, though well-behaved generated code
// always polls ConsoleStatus first).
func (c *Console) In(port byte) byte {
	switch port {
	case z80.ConsoleStatus:
		if len(c.pending) > 0 {
			return z80.StatusReady
		}

		return 0
	case z80.ConsoleData:
		if len(c.pending) == 0 {
			return 0
		}

		b := c.pending[0]
		c.pending = c.pending[1:]

		return b
	default:
		return 0
	}
}

// Out writes a console port. Only ConsoleData is meaningful to write; a write to ConsoleStatus is
// accepted and ignored, since generated code never performs one.
func (c *Console) Out(port byte, value byte) {
	if port == z80.ConsoleData && c.out != nil {
		_, _ = c.out.Write([]byte{value})
	}
}
