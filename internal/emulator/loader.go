package emulator

import "fmt"

// ObjectCode is a compiled image and the address it was assembled to run at, the same shape
// internal/codegen.Result produces via its Code and Origin fields.
type ObjectCode struct {
	Origin uint16
	Code   []byte
}

// Loader copies object code into a CPU's address space.
type Loader struct {
	cpu *CPU
}

// NewLoader creates a loader bound to cpu.
func NewLoader(cpu *CPU) *Loader {
	return &Loader{cpu: cpu}
}

// Load copies obj into memory at its origin and points PC at the start of the image. Since the
// compiled binary's first three bytes are always a JP to the real entry point (see
// internal/codegen.Generate), starting execution at Origin is always correct regardless of which
// procedure the program designates as MAIN.
func (l *Loader) Load(obj ObjectCode) error {
	if len(obj.Code) == 0 {
		return fmt.Errorf("%w: object code is empty", ErrEmptyObject)
	}

	end := int(obj.Origin) + len(obj.Code)
	if end > len(l.cpu.Mem) {
		return fmt.Errorf("%w: object of %d bytes at origin %04X overruns memory", ErrObjectOverrun, len(obj.Code), obj.Origin)
	}

	l.cpu.Load(obj.Code, obj.Origin)

	return nil
}

var (
	// ErrEmptyObject is returned when Load is given an object with no code bytes.
	ErrEmptyObject = fmt.Errorf("loader error: empty object")

	// ErrObjectOverrun is returned when an object's origin and length run past the top of the
	// 64KiB address space.
	ErrObjectOverrun = fmt.Errorf("loader error: object overruns memory")
)
