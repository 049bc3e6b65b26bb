// Package codegen lowers a parsed program into Z80 machine code in a single forward pass over its
// procedures. Forward references — a call to a procedure not yet generated, or an EXIT whose
// enclosing loop hasn't finished emitting its tail — are recorded as placeholder operands and
// patched once the target address is known, the same emit-then-patch discipline the runtime
// library in runtime.go uses for its own forward jumps.
package codegen

import (
	"fmt"
	"strings"

	"github.com/retrolang/actzc/internal/lang"
	"github.com/retrolang/actzc/internal/z80"
)

// globalsBase is the fixed address the first global variable is placed at; every compiled program
// starts its data segment here regardless of code size, since the runtime library and procedure
// code are always emitted before any global is ever referenced.
const globalsBase = 0x2000

// ListingEntry is one disassembled line for the optional listing output: the address a chunk of
// bytes was placed at, the bytes themselves, and a human-readable label for what they are.
type ListingEntry struct {
	Address uint16
	Bytes   []byte
	Source  string
}

// Result is everything Generate produces: the assembled binary image and the symbol information
// needed to write a listing file alongside it.
type Result struct {
	Code         []byte
	Origin       uint16
	EntryAddress uint16
	Globals      SymbolTable
	Procedures   ProcedureTable
	Runtime      *RuntimeSymbols
	Listing      []ListingEntry
}

// loopFrame tracks the state needed to resolve EXIT statements once every statement in the loop's
// body has been generated. The loop's own backward jump target is kept by the gen function that
// emits the loop.
type loopFrame struct {
	exitPatches []uint16 // addresses of placeholder JP operands to patch to the loop's exit address
}

// Generator lowers one Program into machine code. Create one with newGenerator and drive it with
// genProcedure; use Generate for the usual end-to-end compile.
type Generator struct {
	buf     *buffer
	globals SymbolTable
	locals  SymbolTable
	procs   ProcedureTable
	runtime *RuntimeSymbols

	localsBase uint16 // first free RAM address after globals, where procedure locals regions begin

	// procLocals holds every procedure's parameter/local symbol table, laid out once up front (see
	// allocateProcedureLocals) in a monotonically advancing region of RAM: procedure N's table
	// starts where procedure N-1's left off, so two procedures never alias the same storage.
	// Pre-computing every table before any procedure is generated is also what lets paramAddress
	// resolve a forward call's argument addresses before the callee itself has been emitted.
	procLocals map[string]SymbolTable

	data          []byte              // string literal bytes, appended after all procedure code
	stringOffsets map[string]uint16   // string -> offset within data (dedupes identical literals)
	stringPatches map[string][]uint16 // string -> LD HL,nn operands awaiting data's final address

	pendingCalls map[string][]uint16 // procedure name -> CALL operand addresses awaiting patch
	loopStack    []*loopFrame

	procDecls map[string]lang.Procedure // every procedure's signature, known before any is generated

	listing []ListingEntry
}

func newGenerator(codeOrigin uint16, runtime *RuntimeSymbols) *Generator {
	return &Generator{
		buf:           newBuffer(codeOrigin),
		globals:       SymbolTable{},
		procs:         ProcedureTable{},
		runtime:       runtime,
		procLocals:    map[string]SymbolTable{},
		stringOffsets: map[string]uint16{},
		stringPatches: map[string][]uint16{},
		pendingCalls:  map[string][]uint16{},
	}
}

// Generate compiles program into a flat Z80 binary: a 3-byte JP prologue to the start of program
// code, the runtime library, and the generated program code (startup preamble, then procedures),
// in that order. origin is the address the first byte of the image will be loaded at.
func Generate(program *lang.Program, origin uint16) (*Result, error) {
	const stubSize = 3

	runtimeOrigin := origin + stubSize

	runtimeCode, runtimeSym, err := EmitRuntime(runtimeOrigin)
	if err != nil {
		return nil, err
	}

	codeOrigin := runtimeOrigin + uint16(len(runtimeCode))

	g := newGenerator(codeOrigin, runtimeSym)
	g.allocateGlobals(program.Globals)

	g.procDecls = make(map[string]lang.Procedure, len(program.Procedures))
	for _, proc := range program.Procedures {
		g.procDecls[strings.ToUpper(proc.Name)] = proc
	}

	g.allocateProcedureLocals(program.Procedures)

	// Global initializers run before any procedure: the prologue's JP lands on this hidden
	// preamble, which initializes globals, calls the entry procedure, and halts once it returns,
	// matching how a load-time data segment would be initialized on a machine with no OS support
	// for it.
	preambleAddr := g.buf.pc()

	for _, v := range program.Globals {
		if v.InitialValue == nil {
			continue
		}

		if err := g.genStore(v.Name, v.InitialValue); err != nil {
			return nil, fmt.Errorf("initializing %s: %w", v.Name, err)
		}
	}

	var entryCall uint16 // CALL operand, patched to the entry procedure below
	if len(program.Procedures) > 0 {
		entryCall = g.buf.reserveCall()
	}

	g.buf.emit(z80.HALT)

	procAddrs := make(map[string]uint16, len(program.Procedures))

	for _, proc := range program.Procedures {
		addr, err := g.genProcedure(proc)
		if err != nil {
			return nil, fmt.Errorf("procedure %s: %w", proc.Name, err)
		}

		key := strings.ToUpper(proc.Name)
		procAddrs[key] = addr
		g.procs[key] = ProcedureInfo{Address: addr, Params: proc.Params, ReturnType: proc.ReturnType}
		g.resolvePendingCalls(key, addr)
	}

	if err := g.checkUnresolvedCalls(); err != nil {
		return nil, err
	}

	entry, err := resolveEntryPoint(program, procAddrs, preambleAddr)
	if err != nil {
		return nil, err
	}

	if len(program.Procedures) > 0 {
		g.buf.patchWord(entryCall, entry)
	}

	if g.buf.err != nil {
		return nil, fmt.Errorf("generating code: %w", g.buf.err)
	}

	// String literals are appended after all procedure code, so their addresses are only known now
	// that g.buf.pc() reflects the final code length; patch every LD HL,nn operand that loads one.
	dataBase := g.buf.pc()

	for s, offset := range g.stringOffsets {
		addr := dataBase + offset
		for _, operand := range g.stringPatches[s] {
			g.buf.patchWord(operand, addr)
		}
	}

	code := make([]byte, 0, stubSize+len(runtimeCode)+len(g.buf.code)+len(g.data))
	code = append(code, z80.JP_NN)
	lo, hi := z80.LowHigh(preambleAddr)
	code = append(code, lo, hi)
	code = append(code, runtimeCode...)
	code = append(code, g.buf.code...)
	code = append(code, g.data...)

	return &Result{
		Code:         code,
		Origin:       origin,
		EntryAddress: entry,
		Globals:      g.globals,
		Procedures:   g.procs,
		Runtime:      runtimeSym,
		Listing:      g.listing,
	}, nil
}

// resolveEntryPoint picks MAIN if declared, else the first procedure in source order, else (a
// program with no procedures at all, only an initialized global preamble) the preamble itself.
func resolveEntryPoint(program *lang.Program, procAddrs map[string]uint16, preamble uint16) (uint16, error) {
	if addr, ok := procAddrs["MAIN"]; ok {
		return addr, nil
	}

	if len(program.Procedures) > 0 {
		return procAddrs[strings.ToUpper(program.Procedures[0].Name)], nil
	}

	return preamble, nil
}

func (g *Generator) allocateGlobals(globals []lang.Variable) {
	addr := uint16(globalsBase)

	for _, v := range globals {
		g.globals[v.Name] = SymbolInfo{Address: addr, Type: v.Type}
		addr += uint16(v.Type.Size())
	}

	g.localsBase = addr
}

// layoutLocals lays out one procedure's parameters and locals starting at base, in declaration
// order. It is pure: given the same base and declaration, it always produces the same addresses,
// which is what lets a forward call compute a not-yet-generated callee's parameter addresses
// directly from its declaration.
func layoutLocals(base uint16, params []lang.Parameter, locals []lang.Variable) (SymbolTable, uint16) {
	table := SymbolTable{}
	addr := base

	for _, p := range params {
		table[p.Name] = SymbolInfo{Address: addr, Type: p.Type, IsParam: true}
		addr += uint16(p.Type.Size())
	}

	for _, v := range locals {
		table[v.Name] = SymbolInfo{Address: addr, Type: v.Type}
		addr += uint16(v.Type.Size())
	}

	return table, addr
}

// allocateProcedureLocals lays out every procedure's parameters and locals up front, in source
// order, each starting where the previous procedure's left off. Ordinary sequential calls (A calls
// B, then uses its own locals again) are not recursion, and giving every procedure a distinct
// storage range is what keeps one procedure's parameters from aliasing another's locals. Only true
// self- or mutual recursion would break this scheme, and recursion remains out of scope.
// Precomputing the whole table before any procedure body is generated also lets paramAddress
// resolve a forward call's argument addresses before the callee itself has been emitted.
func (g *Generator) allocateProcedureLocals(procs []lang.Procedure) {
	base := g.localsBase

	for _, proc := range procs {
		table, next := layoutLocals(base, proc.Params, proc.Locals)
		g.procLocals[strings.ToUpper(proc.Name)] = table
		base = next
	}
}

// paramAddress returns the fixed address and width a given parameter of procName will be found
// at, computed from its precomputed layout rather than requiring the procedure to already be
// generated.
func (g *Generator) paramAddress(procName string, index int) (uint16, bool, bool) {
	proc, ok := g.procDecls[strings.ToUpper(procName)]
	if !ok || index >= len(proc.Params) {
		return 0, false, false
	}

	table := g.procLocals[strings.ToUpper(procName)]
	info := table[proc.Params[index].Name]

	return info.Address, info.Type.IsWord(), true
}

func (g *Generator) lookup(name string) (SymbolInfo, bool) {
	return Lookup(g.locals, g.globals, name)
}

// genStringLit emits LD HL,nn loading the address of a NUL-terminated string literal, deduplicating
// identical literals. The literal's bytes are appended to the data section now, but its final
// address isn't known until every procedure has been generated (the data section follows all of
// them), so the operand is reserved here and patched later by Generate once g.buf.pc() is final.
func (g *Generator) genStringLit(s string) {
	g.buf.emit(z80.LD_HL_NN)
	operand := g.buf.reserveWord()

	offset, ok := g.stringOffsets[s]
	if !ok {
		offset = uint16(len(g.data))
		g.data = append(g.data, []byte(s)...)
		g.data = append(g.data, 0)
		g.stringOffsets[s] = offset
	}

	g.stringPatches[s] = append(g.stringPatches[s], operand)
}

func (g *Generator) genProcedure(proc lang.Procedure) (uint16, error) {
	g.locals = g.procLocals[strings.ToUpper(proc.Name)]

	addr := g.buf.pc()

	hadReturn := false

	for _, stmt := range proc.Body {
		if err := g.genStatement(stmt); err != nil {
			return 0, err
		}

		if _, ok := stmt.(lang.Return); ok {
			hadReturn = true
		}
	}

	if !hadReturn {
		g.buf.emit(z80.RET)
	}

	return addr, nil
}

func (g *Generator) resolvePendingCalls(name string, addr uint16) {
	for _, operand := range g.pendingCalls[name] {
		g.buf.patchWord(operand, addr)
	}

	delete(g.pendingCalls, name)
}

func (g *Generator) checkUnresolvedCalls() error {
	for name := range g.pendingCalls {
		return &UndefinedProcedureError{Name: name}
	}

	return nil
}

// genCall emits a CALL to name, which may be a runtime intrinsic, an already-generated procedure,
// or a procedure that appears later in the source; the latter gets a placeholder operand queued in
// pendingCalls, patched once that procedure is actually generated.
func (g *Generator) genCall(name string) {
	if addr, ok := g.runtime.Address(name); ok {
		g.buf.emitCall(addr)
		return
	}

	key := strings.ToUpper(name)

	if info, ok := g.procs[key]; ok {
		g.buf.emitCall(info.Address)
		return
	}

	operand := g.buf.reserveCall()
	g.pendingCalls[key] = append(g.pendingCalls[key], operand)
}
