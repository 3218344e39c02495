package construct

import (
	"testing"

	"kefir/internal/diag"
	"kefir/internal/ir"
	"kefir/internal/stackir"
)

func i32Type(types *ir.TypeTable) ir.TypeRef {
	return types.Intern(ir.Type{Kind: ir.KindInt, BitWidth: 32, Signed: true, Align: 4})
}

// TestBuildStraightLine covers steps 1-3: a function with no merges
// translates one stack-IR instruction to one optimizer instruction per
// opcode, popping/pushing the symbolic stack in order.
func TestBuildStraightLine(t *testing.T) {
	types := ir.NewTypeTable()
	i32 := i32Type(types)

	src := stackir.NewFunction("add_one", []ir.TypeRef{i32}, i32, ir.Void)
	src.Emit(0, stackir.Instr{Op: stackir.OpParam, Immediate: 0})
	src.Emit(0, stackir.Instr{Op: stackir.OpConst, Type: i32, Immediate: 1})
	src.Emit(0, stackir.Instr{Op: stackir.OpAdd, Type: i32})
	src.Emit(0, stackir.Instr{Op: stackir.OpReturn})

	b := NewBuilder(types, diag.NewStack())
	fn, err := b.Build(src)
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	if err := fn.Validate(); err != nil {
		t.Fatalf("constructed function failed validation: %v", err)
	}

	instrs := fn.Code.Blocks[fn.Entry].Instrs
	if len(instrs) != 4 {
		t.Fatalf("expected 4 instructions (param, const, add, return), got %d", len(instrs))
	}
	if fn.Code.Instructions[instrs[2]].Opcode != ir.OpAdd {
		t.Fatalf("expected third instruction to be OpAdd, got %v", fn.Code.Instructions[instrs[2]].Opcode)
	}
	addInst := fn.Code.Instructions[instrs[2]]
	if addInst.Operands[0] != instrs[0] || addInst.Operands[1] != instrs[1] {
		t.Fatalf("add operands not wired to param/const in program order: %+v", addInst.Operands)
	}
}

// TestBuildDiamondMergeInsertsPhi covers steps 4-5: an if/else that
// merges control must introduce a block input and phi for the live
// stack slot, with one incoming entry per predecessor.
func TestBuildDiamondMergeInsertsPhi(t *testing.T) {
	types := ir.NewTypeTable()
	i32 := i32Type(types)

	src := stackir.NewFunction("select_const", nil, i32, ir.Void)
	thenBlk := src.AddBlock("then")
	elseBlk := src.AddBlock("else")
	join := src.AddBlock("join")

	src.Emit(0, stackir.Instr{Op: stackir.OpConst, Type: i32, Immediate: 1})
	src.Emit(0, stackir.Instr{Op: stackir.OpBranch, Targets: []int{thenBlk, elseBlk}})

	src.Emit(thenBlk, stackir.Instr{Op: stackir.OpConst, Type: i32, Immediate: 10})
	src.Emit(thenBlk, stackir.Instr{Op: stackir.OpJump, Targets: []int{join}})

	src.Emit(elseBlk, stackir.Instr{Op: stackir.OpConst, Type: i32, Immediate: 20})
	src.Emit(elseBlk, stackir.Instr{Op: stackir.OpJump, Targets: []int{join}})

	src.Emit(join, stackir.Instr{Op: stackir.OpReturn})

	b := NewBuilder(types, diag.NewStack())
	fn, err := b.Build(src)
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	if err := fn.Validate(); err != nil {
		t.Fatalf("constructed function failed validation: %v", err)
	}

	if len(fn.Code.Phis) != 1 {
		t.Fatalf("expected exactly one phi at the merge, got %d", len(fn.Code.Phis))
	}
	phi := fn.Code.Phis[0]
	if len(phi.Incoming) != 2 {
		t.Fatalf("expected 2 incoming values (then, else), got %d", len(phi.Incoming))
	}
}

// TestBuildLoopBackedgePatchesPhi covers a back edge: the loop header's
// phi is established from its unique forward predecessor, and the
// back-edge value is patched in once the loop body finishes.
func TestBuildLoopBackedgePatchesPhi(t *testing.T) {
	types := ir.NewTypeTable()
	i32 := i32Type(types)
	boolT := types.Intern(ir.Type{Kind: ir.KindBool})

	src := stackir.NewFunction("count_down", nil, ir.Void, ir.Void)
	header := src.AddBlock("header")
	body := src.AddBlock("body")
	exit := src.AddBlock("exit")

	src.Emit(0, stackir.Instr{Op: stackir.OpConst, Type: i32, Immediate: 3})
	src.Emit(0, stackir.Instr{Op: stackir.OpJump, Targets: []int{header}})

	// header keeps the loop counter live across the comparison by
	// duplicating it, so the same stack slot (depth 1) flows into both
	// the back edge and the forward edge to exit.
	src.Emit(header, stackir.Instr{Op: stackir.OpDup})
	src.Emit(header, stackir.Instr{Op: stackir.OpConst, Type: i32, Immediate: 0})
	src.Emit(header, stackir.Instr{Op: stackir.OpICmp, Type: boolT, Predicate: ir.PredNE})
	src.Emit(header, stackir.Instr{Op: stackir.OpBranch, Targets: []int{body, exit}})

	src.Emit(body, stackir.Instr{Op: stackir.OpConst, Type: i32, Immediate: 1})
	src.Emit(body, stackir.Instr{Op: stackir.OpSub, Type: i32})
	src.Emit(body, stackir.Instr{Op: stackir.OpJump, Targets: []int{header}})

	src.Emit(exit, stackir.Instr{Op: stackir.OpReturnVoid})

	b := NewBuilder(types, diag.NewStack())
	fn, err := b.Build(src)
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	if err := fn.Validate(); err != nil {
		t.Fatalf("constructed function failed validation: %v", err)
	}

	if len(fn.Code.Phis) != 1 {
		t.Fatalf("expected one phi at the loop header, got %d", len(fn.Code.Phis))
	}
	phi := fn.Code.Phis[0]
	if len(phi.Incoming) != 2 {
		t.Fatalf("expected 2 incoming values (preheader, back edge), got %d", len(phi.Incoming))
	}
}

// TestBuildMismatchedMergeDepthIsMalformed covers step 4: predecessors
// disagreeing on stack depth at a merge is a malformed-IR error, pushed
// onto the diagnostic stack with category Error.
func TestBuildMismatchedMergeDepthIsMalformed(t *testing.T) {
	types := ir.NewTypeTable()
	i32 := i32Type(types)

	src := stackir.NewFunction("broken", nil, ir.Void, ir.Void)
	thenBlk := src.AddBlock("then")
	elseBlk := src.AddBlock("else")
	join := src.AddBlock("join")

	src.Emit(0, stackir.Instr{Op: stackir.OpConst, Type: i32, Immediate: 1})
	src.Emit(0, stackir.Instr{Op: stackir.OpBranch, Targets: []int{thenBlk, elseBlk}})

	// then leaves one extra value on the stack relative to else.
	src.Emit(thenBlk, stackir.Instr{Op: stackir.OpConst, Type: i32, Immediate: 10})
	src.Emit(thenBlk, stackir.Instr{Op: stackir.OpJump, Targets: []int{join}})

	src.Emit(elseBlk, stackir.Instr{Op: stackir.OpJump, Targets: []int{join}})

	src.Emit(join, stackir.Instr{Op: stackir.OpReturnVoid})

	diags := diag.NewStack()
	b := NewBuilder(types, diags)
	if _, err := b.Build(src); err == nil {
		t.Fatalf("expected a malformed-IR error for mismatched merge depths")
	}
	if !diags.HasErrors() {
		t.Fatalf("expected the malformed-IR error to be pushed onto the diagnostic stack")
	}
}
