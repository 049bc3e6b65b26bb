// Termtest is a testing tool for Unix terminal I/O. Lacking simple PTY support, running this tool
// manually is easier than writing automated tests.
package main

import (
	"context"
	"os"
	"time"

	"github.com/retrolang/actzc/internal/emulator"
	"github.com/retrolang/actzc/internal/log"
	"github.com/retrolang/actzc/internal/tty"
	"github.com/retrolang/actzc/internal/z80"
)

var logger = log.DefaultLogger()

func main() {
	ctx := context.Background()

	console := emulator.NewConsole(os.Stdout)

	ctx, _, cancel := tty.ConsoleContext(ctx, console)
	defer cancel()

	select {
	case <-ctx.Done():
		logger.Debug("cause", context.Cause(ctx))
	default:
	}

	logger.Info("Polling console. Type keys; they echo back once GetD reads them.")

	poll := time.Tick(100 * time.Millisecond)
	timeout := time.After(5 * time.Second)

	for {
		select {
		case <-poll:
			if console.In(z80.ConsoleStatus)&z80.StatusReady != 0 {
				key := console.In(z80.ConsoleData)
				console.Out(z80.ConsoleData, key)
			}
		case <-timeout:
			cancel()
			return
		case <-ctx.Done():
			if ctx.Err() != nil {
				cause := context.Cause(ctx)
				logger.Error(cause.Error())
			} else {
				logger.Info("Done")
			}

			return
		}
	}
}
