package analysis

import (
	"testing"

	"kefir/internal/ir"
)

// buildDiamond constructs entry -> {then, else} -> join, each leaf
// jumping to join, mirroring a typical if/else lowering.
func buildDiamond(t *testing.T) (*ir.Function, ir.BlockRef, ir.BlockRef, ir.BlockRef) {
	t.Helper()
	types := ir.NewTypeTable()
	i32 := types.Intern(ir.Type{Kind: ir.KindInt, BitWidth: 32, Signed: true, Align: 4})

	fn := ir.NewFunction("f", nil, i32)
	then := fn.Code.NewBlock("then", 0)
	els := fn.Code.NewBlock("else", 0)
	join := fn.Code.NewBlock("join", 0)
	fn.Code.Blocks[then].Preds = []ir.BlockRef{fn.Entry}
	fn.Code.Blocks[els].Preds = []ir.BlockRef{fn.Entry}
	fn.Code.Blocks[join].Preds = []ir.BlockRef{then, els}

	cond := fn.Code.NewInstruction(fn.Entry, ir.Instruction{Opcode: ir.OpConstInt32, Type: i32, Immediate: 1})
	fn.Code.NewInstruction(fn.Entry, ir.Instruction{Opcode: ir.OpBranch, Operands: [2]ir.InstructionRef{cond, ir.InvalidRef}, Targets: []ir.BlockRef{then, els}})

	v1 := fn.Code.NewInstruction(then, ir.Instruction{Opcode: ir.OpConstInt32, Type: i32, Immediate: 10})
	fn.Code.NewInstruction(then, ir.Instruction{Opcode: ir.OpJump, Targets: []ir.BlockRef{join}})

	v2 := fn.Code.NewInstruction(els, ir.Instruction{Opcode: ir.OpConstInt32, Type: i32, Immediate: 20})
	fn.Code.NewInstruction(els, ir.Instruction{Opcode: ir.OpJump, Targets: []ir.BlockRef{join}})

	input := fn.Code.NewInstruction(join, ir.Instruction{Opcode: ir.OpBlockInput, Type: i32})
	phi := fn.Code.AddPhi(join, input)
	phi.Incoming[then] = v1
	phi.Incoming[els] = v2
	fn.Code.NewInstruction(join, ir.Instruction{Opcode: ir.OpReturn, Operands: [2]ir.InstructionRef{input, ir.InvalidRef}})

	if err := fn.Validate(); err != nil {
		t.Fatalf("test fixture failed validation: %v", err)
	}
	return fn, then, els, join
}

func TestDominatorsDiamond(t *testing.T) {
	fn, then, els, join := buildDiamond(t)
	dom := computeDominators(fn)

	if dom.IDom(then) != fn.Entry || dom.IDom(els) != fn.Entry {
		t.Fatalf("then/else should be immediately dominated by entry")
	}
	if dom.IDom(join) != fn.Entry {
		t.Fatalf("join should be immediately dominated by entry (neither then nor else alone dominates it), got %v", dom.IDom(join))
	}
	if !dom.Dominates(fn.Entry, join) {
		t.Fatalf("entry should dominate every block")
	}
	if dom.Dominates(then, els) {
		t.Fatalf("then should not dominate else")
	}
}

func TestLoopForestFindsBackEdge(t *testing.T) {
	types := ir.NewTypeTable()
	fn := ir.NewFunction("loop", nil, ir.Void)
	header := fn.Code.NewBlock("header", 0)
	body := fn.Code.NewBlock("body", 0)
	exit := fn.Code.NewBlock("exit", 0)
	fn.Code.Blocks[header].Preds = []ir.BlockRef{fn.Entry, body}
	fn.Code.Blocks[body].Preds = []ir.BlockRef{header}
	fn.Code.Blocks[exit].Preds = []ir.BlockRef{header}

	fn.Code.NewInstruction(fn.Entry, ir.Instruction{Opcode: ir.OpJump, Targets: []ir.BlockRef{header}})
	cond := fn.Code.NewInstruction(header, ir.Instruction{Opcode: ir.OpConstInt32, Type: types.Intern(ir.Type{Kind: ir.KindBool}), Immediate: 1})
	fn.Code.NewInstruction(header, ir.Instruction{Opcode: ir.OpBranch, Operands: [2]ir.InstructionRef{cond, ir.InvalidRef}, Targets: []ir.BlockRef{body, exit}})
	fn.Code.NewInstruction(body, ir.Instruction{Opcode: ir.OpJump, Targets: []ir.BlockRef{header}})
	fn.Code.NewInstruction(exit, ir.Instruction{Opcode: ir.OpReturnVoid})

	dom := computeDominators(fn)
	loops := computeLoops(fn, dom)
	if len(loops.Loops()) != 1 {
		t.Fatalf("expected exactly one natural loop, got %d", len(loops.Loops()))
	}
	l := loops.Loops()[0]
	if l.Header != header {
		t.Fatalf("expected loop header to be %v, got %v", header, l.Header)
	}
	if !l.Blocks[body] || !l.Blocks[header] {
		t.Fatalf("expected loop body to contain header and body blocks")
	}
	if l.Blocks[exit] {
		t.Fatalf("exit block should not be part of the loop")
	}
	if loops.DepthOf(body) != 1 {
		t.Fatalf("expected body depth 1, got %d", loops.DepthOf(body))
	}
	if loops.DepthOf(exit) != 0 {
		t.Fatalf("expected exit depth 0, got %d", loops.DepthOf(exit))
	}
}

func TestLivenessCrossesMerge(t *testing.T) {
	fn, then, els, _ := buildDiamond(t)
	live := computeLiveness(fn)

	thenDefs := fn.Code.Blocks[then].Instrs
	v1 := thenDefs[0]
	if !live.LiveOut(then, v1) {
		t.Fatalf("v1 should be live-out of then (consumed by the phi in join)")
	}

	elsDefs := fn.Code.Blocks[els].Instrs
	v2 := elsDefs[0]
	if !live.LiveOut(els, v2) {
		t.Fatalf("v2 should be live-out of else (consumed by the phi in join)")
	}
}

func TestUseDefTracksPhiAndInstructionUses(t *testing.T) {
	fn, then, els, join := buildDiamond(t)
	ud := computeUseDef(fn)

	v1 := fn.Code.Blocks[then].Instrs[0]
	if len(ud.PhisUsing(v1)) != 1 {
		t.Fatalf("expected v1 to be used by exactly one phi")
	}

	input := fn.Code.Blocks[join].Instrs[0]
	uses := ud.UsesOf(input)
	if len(uses) != 1 {
		t.Fatalf("expected the block input to be used by exactly one instruction (the return), got %d", len(uses))
	}

	v2 := fn.Code.Blocks[els].Instrs[0]
	if ud.IsUnused(v2) {
		t.Fatalf("v2 feeds the join phi, should not be reported unused")
	}
}
