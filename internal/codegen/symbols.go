package codegen

import "github.com/retrolang/actzc/internal/lang"

// SymbolInfo describes one declared name: its absolute address (globals, locals and parameters all
// live at fixed addresses) and its static type.
type SymbolInfo struct {
	Address     uint16
	Type        lang.DataType
	IsParam     bool
	StackOffset int
}

// SymbolTable maps declared names to their SymbolInfo. Globals and the current procedure's locals
// live in separate tables so a local can shadow a global of the same name and so the local table
// can be cleared wholesale between procedures.
type SymbolTable map[string]SymbolInfo

// Lookup resolves name first against locals, then globals, matching lexical shadowing rules.
func Lookup(locals, globals SymbolTable, name string) (SymbolInfo, bool) {
	if info, ok := locals[name]; ok {
		return info, true
	}

	info, ok := globals[name]

	return info, ok
}

// ProcedureInfo records where a procedure's code begins and its signature, so calls emitted before
// the procedure itself is generated can be patched once the address is known.
type ProcedureInfo struct {
	Address    uint16
	Params     []lang.Parameter
	ReturnType *lang.DataType
}

// ProcedureTable maps procedure names to their ProcedureInfo.
type ProcedureTable map[string]ProcedureInfo
