// Command actzc is the command-line interface to the Action-family cross-compiler for Z80.
package main

import (
	"context"
	"os"

	"github.com/retrolang/actzc/internal/cli"
	"github.com/retrolang/actzc/internal/cli/cmd"
)

var (
	compile  = cmd.Compiler()
	commands = []cli.Command{
		compile,
		cmd.Runner(),
	}
)

// Entry point.
func main() {
	result :=
		cli.New(context.Background()).
			WithLogger(os.Stderr).
			WithCommands(commands).
			WithHelp(cmd.Help(commands)).
			WithDefault(compile).
			Execute(os.Args[1:])

	os.Exit(result)
}
