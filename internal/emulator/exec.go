package emulator

import (
	"context"
	"errors"
	"fmt"
)

// ErrHalted is returned by Step once the CPU has executed a HALT instruction.
var ErrHalted = errors.New("halted")

// Step executes a single instruction, or returns ErrHalted if the machine has already halted.
func (c *CPU) Step() error {
	if c.Halted {
		return fmt.Errorf("step: %w", ErrHalted)
	}

	if err := c.step(); err != nil {
		return fmt.Errorf("step: %w", err)
	}

	return nil
}

// Run executes instructions until the machine halts, ctx is cancelled, or an error occurs.
func (c *CPU) Run(ctx context.Context) error {
	c.log.Info("START", "STATE", c.String())

	for !c.Halted {
		select {
		case <-ctx.Done():
			c.log.Warn("CANCELLED")
			return ctx.Err()
		default:
		}

		if err := c.Step(); err != nil {
			if errors.Is(err, ErrHalted) {
				break
			}

			c.log.Error("HALTED (HCF)", "ERR", err, "STATE", c.String())
			return err
		}
	}

	c.log.Info("HALTED", "STATE", c.String())

	return nil
}
