package cmd

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/retrolang/actzc/internal/cli"
	"github.com/retrolang/actzc/internal/codegen"
	"github.com/retrolang/actzc/internal/lang"
	"github.com/retrolang/actzc/internal/listing"
	"github.com/retrolang/actzc/internal/log"
)

// defaultOrigin is the load address used when --org is not given.
const defaultOrigin = 0x4200

// Compiler is the command that translates Action-family source into a flat Z80 binary.
//
//	actzc --input prog.act --output prog.bin --org 0x4200 --listing --verbose
func Compiler() cli.Command {
	return new(compiler)
}

type compiler struct {
	input   string
	output  string
	org     string
	listing bool
	verbose bool
}

func (compiler) Description() string {
	return "compile source into a flat Z80 binary"
}

func (compiler) Usage(out io.Writer) error {
	_, err := fmt.Fprintln(out, `compile --input FILE [--output FILE] [--org ADDR] [--listing] [--verbose]

Translate an Action-family source file into a flat binary image, loadable at --org.`)

	return err
}

func (c *compiler) FlagSet() *cli.FlagSet {
	fs := flag.NewFlagSet("compile", flag.ExitOnError)
	fs.StringVar(&c.input, "input", "", "source `file` to compile (required)")
	fs.StringVar(&c.output, "output", "", "output `file` (default: input with .bin extension)")
	fs.StringVar(&c.org, "org", "0x4200", "load `address`, decimal or 0x-prefixed hex")
	fs.BoolVar(&c.listing, "listing", false, "also write a .lst listing file")
	fs.BoolVar(&c.verbose, "verbose", false, "enable debug logging")

	return fs
}

// Run reads --input, compiles it, and writes --output (and optionally a listing).
func (c *compiler) Run(ctx context.Context, args []string, stdout io.Writer, logger *log.Logger) int {
	if c.verbose {
		log.LogLevel.Set(log.Debug)
	}

	if c.input == "" {
		logger.Error("missing required flag --input")
		return 1
	}

	origin, err := parseOrigin(c.org)
	if err != nil {
		logger.Error("bad --org", "err", err)
		return 1
	}

	output := c.output
	if output == "" {
		ext := filepath.Ext(c.input)
		output = strings.TrimSuffix(c.input, ext) + ".bin"
	}

	result, err := compileFile(c.input, origin)
	if err != nil {
		logger.Error("compile failed", "file", c.input, "err", err)
		return 1
	}

	if err := os.WriteFile(output, result.Code, 0o644); err != nil {
		logger.Error("write failed", "file", output, "err", err)
		return 1
	}

	logger.Info("compiled",
		"input", c.input,
		"output", output,
		"origin", fmt.Sprintf("0x%04X", result.Origin),
		"entry", fmt.Sprintf("0x%04X", result.EntryAddress),
		"size", len(result.Code),
	)

	if c.listing {
		ext := filepath.Ext(output)
		listingPath := strings.TrimSuffix(output, ext) + ".lst"

		if err := writeListing(listingPath, result); err != nil {
			logger.Error("listing failed", "file", listingPath, "err", err)
			return 1
		}

		logger.Debug("wrote listing", "file", listingPath)
	}

	return 0
}

// compileFile parses src and lowers it into a Result, the pipeline shared by Compiler and Runner.
func compileFile(path string, origin uint16) (*codegen.Result, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	tokens, err := lang.NewLexer(src).Tokenize()
	if err != nil {
		return nil, err
	}

	parser := lang.NewParser(tokens)
	program := parser.Parse()

	if err := parser.Err(); err != nil {
		return nil, err
	}

	return codegen.Generate(&program, origin)
}

func writeListing(path string, result *codegen.Result) error {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer out.Close()

	return listing.Write(out, result)
}

// parseOrigin accepts a decimal or 0x-prefixed hexadecimal address.
func parseOrigin(s string) (uint16, error) {
	if s == "" {
		return defaultOrigin, nil
	}

	base := 10

	trimmed := s
	if strings.HasPrefix(strings.ToLower(s), "0x") {
		trimmed = s[2:]
		base = 16
	}

	v, err := strconv.ParseUint(trimmed, base, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid address %q: %w", s, err)
	}

	if v > 0xFFFF {
		return 0, fmt.Errorf("address %q out of 16-bit range", s)
	}

	return uint16(v), nil
}
