package listing

import (
	"strings"
	"testing"

	"github.com/retrolang/actzc/internal/codegen"
	"github.com/retrolang/actzc/internal/lang"
)

func TestWriteIncludesSectionsAndDump(t *testing.T) {
	result := &codegen.Result{
		Code:         []byte{0xC3, 0x10, 0x42, 0x00, 0x3E, 0x05},
		Origin:       0x4200,
		EntryAddress: 0x4210,
		Globals: codegen.SymbolTable{
			"COUNT": {Address: 0x2000, Type: lang.DataType{Base: lang.TypeCard}},
		},
		Procedures: codegen.ProcedureTable{
			"MAIN": {Address: 0x4210},
		},
	}

	var b strings.Builder
	if err := Write(&b, result); err != nil {
		t.Fatalf("write: %v", err)
	}

	out := b.String()

	for _, want := range []string{"origin:", "0x4200", "entry:", "0x4210", "procedures:", "MAIN", "globals:", "COUNT", "CARD", "dump:", "4200:"} {
		if !strings.Contains(out, want) {
			t.Errorf("listing output missing %q:\n%s", want, out)
		}
	}
}
