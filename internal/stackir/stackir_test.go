package stackir

import (
	"testing"

	"kefir/internal/ir"
)

func TestFunctionBlocksAndEmit(t *testing.T) {
	types := ir.NewTypeTable()
	i32 := types.Intern(ir.Type{Kind: ir.KindInt, BitWidth: 32, Signed: true, Align: 4})

	fn := NewFunction("add_one", []ir.TypeRef{i32}, i32, ir.Void)
	if got := len(fn.Blocks); got != 1 {
		t.Fatalf("expected a single entry block, got %d", got)
	}

	fn.Emit(0, Instr{Op: OpConst, Type: i32, Immediate: 1})
	fn.Emit(0, Instr{Op: OpAdd, Type: i32})
	fn.Emit(0, Instr{Op: OpReturn, Type: i32})

	if got := len(fn.Blocks[0].Instrs); got != 3 {
		t.Fatalf("expected 3 instructions, got %d", got)
	}
	if fn.FunctionName() != "add_one" {
		t.Fatalf("FunctionName mismatch: %q", fn.FunctionName())
	}

	var _ ir.SourceFunction = fn
}

func TestModuleAddFunction(t *testing.T) {
	m := NewModule("unit")
	i32 := m.Types.Intern(ir.Type{Kind: ir.KindInt, BitWidth: 32, Signed: true, Align: 4})
	fn := NewFunction("f", nil, i32, ir.Void)
	m.AddFunction(fn)
	if len(m.Functions) != 1 || m.Functions[0].Name != "f" {
		t.Fatalf("expected module to retain the added function")
	}
}

func TestBranchAndJumpTargets(t *testing.T) {
	fn := NewFunction("branchy", nil, ir.Void, ir.Void)
	thenBlk := fn.AddBlock("then")
	elseBlk := fn.AddBlock("else")
	join := fn.AddBlock("join")

	fn.Emit(0, Instr{Op: OpConst, Immediate: 1})
	fn.Emit(0, Instr{Op: OpBranch, Targets: []int{thenBlk, elseBlk}})
	fn.Emit(thenBlk, Instr{Op: OpJump, Targets: []int{join}})
	fn.Emit(elseBlk, Instr{Op: OpJump, Targets: []int{join}})
	fn.Emit(join, Instr{Op: OpReturnVoid})

	branch := fn.Blocks[0].Instrs[1]
	if len(branch.Targets) != 2 || branch.Targets[0] != thenBlk || branch.Targets[1] != elseBlk {
		t.Fatalf("branch targets not recorded correctly: %+v", branch.Targets)
	}
}
