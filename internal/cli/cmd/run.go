package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/retrolang/actzc/internal/cli"
	"github.com/retrolang/actzc/internal/emulator"
	"github.com/retrolang/actzc/internal/log"
	"github.com/retrolang/actzc/internal/tty"
	"github.com/retrolang/actzc/internal/z80"
)

// Runner is the command that compiles (if needed) and executes a program in the Z80 emulator,
// with the terminal wired up as an interactive console.
//
//	actzc run prog.act
//	actzc run prog.bin
func Runner() cli.Command {
	return new(runner)
}

type runner struct {
	org     string
	timeout time.Duration
	verbose bool
}

func (runner) Description() string {
	return "run a compiled program (or source file) in the emulator"
}

func (runner) Usage(out io.Writer) error {
	_, err := fmt.Fprintln(out, `run [--org ADDR] [--timeout DURATION] FILE

Loads FILE into the emulator and runs it. A ".act" source file is compiled first; anything else is
loaded as a flat binary at --org.`)

	return err
}

func (r *runner) FlagSet() *cli.FlagSet {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	fs.StringVar(&r.org, "org", "0x4200", "load `address` for a raw binary, decimal or 0x-prefixed hex")
	fs.DurationVar(&r.timeout, "timeout", 10*time.Second, "stop the emulator after `duration`")
	fs.BoolVar(&r.verbose, "verbose", false, "enable debug logging")

	return fs
}

// Run loads args[0], starts the emulator, and connects the terminal as its console.
func (r *runner) Run(ctx context.Context, args []string, stdout io.Writer, logger *log.Logger) int {
	if r.verbose {
		log.LogLevel.Set(log.Debug)
	}

	if len(args) == 0 {
		logger.Error("usage: run FILE")
		return 1
	}

	origin, err := parseOrigin(r.org)
	if err != nil {
		logger.Error("bad --org", "err", err)
		return 1
	}

	code, loadOrigin, err := r.loadObject(args[0], origin)
	if err != nil {
		logger.Error("load failed", "file", args[0], "err", err)
		return 1
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	console := emulator.NewConsole(stdout)

	cpu := emulator.New()
	cpu.MapPort(z80.ConsoleData, console)
	cpu.MapPort(z80.ConsoleStatus, console)

	loader := emulator.NewLoader(cpu)
	if err := loader.Load(emulator.ObjectCode{Origin: loadOrigin, Code: code}); err != nil {
		logger.Error("load failed", "err", err)
		return 1
	}

	ctx, _, restore := tty.ConsoleContext(ctx, console)
	defer restore()

	logger.Debug("starting emulator", "origin", fmt.Sprintf("0x%04X", loadOrigin))

	err = cpu.Run(ctx)

	switch {
	case errors.Is(err, emulator.ErrHalted):
		logger.Info("program halted")
		return 0
	case errors.Is(err, context.DeadlineExceeded):
		logger.Warn("run timeout")
		return 2
	case err != nil:
		logger.Error("run failed", "err", err)
		return 1
	default:
		return 0
	}
}

// loadObject returns the object code and the address to place it at. Source files are compiled
// first; anything else is read as a raw binary and placed at origin.
func (r *runner) loadObject(path string, origin uint16) ([]byte, uint16, error) {
	if strings.EqualFold(filepath.Ext(path), ".act") {
		result, err := compileFile(path, origin)
		if err != nil {
			return nil, 0, err
		}

		return result.Code, result.Origin, nil
	}

	code, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, err
	}

	return code, origin, nil
}
