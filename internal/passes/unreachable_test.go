package passes

import (
	"testing"

	"kefir/internal/analysis"
	"kefir/internal/ir"
)

func TestUnreachableSkipsBareTrapArm(t *testing.T) {
	mod := ir.NewModule("m")
	i32 := mod.Types.Intern(ir.Type{Kind: ir.KindInt, BitWidth: 32, Signed: true, Align: 4})
	fn := ir.NewFunction("f", nil, i32)
	mod.AddFunction(fn)

	trap := fn.Code.NewBlock("trap", 0)
	ok := fn.Code.NewBlock("ok", 0)
	fn.Code.Blocks[trap].Preds = []ir.BlockRef{fn.Entry}
	fn.Code.Blocks[ok].Preds = []ir.BlockRef{fn.Entry}

	cond := fn.Code.NewInstruction(fn.Entry, ir.Instruction{Opcode: ir.OpConstInt32, Type: i32, Immediate: 1})
	fn.Code.NewInstruction(fn.Entry, ir.Instruction{Opcode: ir.OpBranch, Operands: [2]ir.InstructionRef{cond, ir.InvalidRef}, Targets: []ir.BlockRef{trap, ok}})
	fn.Code.NewInstruction(trap, ir.Instruction{Opcode: ir.OpUnreachable})
	v := fn.Code.NewInstruction(ok, ir.Instruction{Opcode: ir.OpConstInt32, Type: i32, Immediate: 10})
	fn.Code.NewInstruction(ok, ir.Instruction{Opcode: ir.OpReturn, Operands: [2]ir.InstructionRef{v, ir.InvalidRef}})

	cache := analysis.NewCache(fn)
	if err := unreachableSimplify(mod, fn, cache, nil); err != nil {
		t.Fatalf("unreachable: %v", err)
	}

	term := fn.Code.Blocks[fn.Entry].Terminator(fn.Code)
	inst := fn.Code.Instructions[term]
	if inst.Opcode != ir.OpJump || len(inst.Targets) != 1 || inst.Targets[0] != ok {
		t.Fatalf("expected entry to jump straight to ok, got opcode %v targets %v", inst.Opcode, inst.Targets)
	}
	if !fn.Code.Blocks[trap].IsDead() {
		t.Fatalf("expected the bare-trap block to be removed once nothing branches to it")
	}
}

func TestUnreachableRemovesBlockWithNoPredecessorsAndFixesPhis(t *testing.T) {
	mod := ir.NewModule("m")
	i32 := mod.Types.Intern(ir.Type{Kind: ir.KindInt, BitWidth: 32, Signed: true, Align: 4})
	fn := ir.NewFunction("f", nil, i32)
	mod.AddFunction(fn)

	dead := fn.Code.NewBlock("dead", 0)
	join := fn.Code.NewBlock("join", 0)
	fn.Code.Blocks[join].Preds = []ir.BlockRef{fn.Entry, dead}

	v0 := fn.Code.NewInstruction(fn.Entry, ir.Instruction{Opcode: ir.OpConstInt32, Type: i32, Immediate: 1})
	fn.Code.NewInstruction(fn.Entry, ir.Instruction{Opcode: ir.OpJump, Targets: []ir.BlockRef{join}})

	vDead := fn.Code.NewInstruction(dead, ir.Instruction{Opcode: ir.OpConstInt32, Type: i32, Immediate: 99})
	fn.Code.NewInstruction(dead, ir.Instruction{Opcode: ir.OpJump, Targets: []ir.BlockRef{join}})

	input := fn.Code.NewInstruction(join, ir.Instruction{Opcode: ir.OpBlockInput, Type: i32})
	phi := fn.Code.AddPhi(join, input)
	phi.Incoming[fn.Entry] = v0
	phi.Incoming[dead] = vDead
	fn.Code.NewInstruction(join, ir.Instruction{Opcode: ir.OpReturn, Operands: [2]ir.InstructionRef{input, ir.InvalidRef}})

	cache := analysis.NewCache(fn)
	if err := unreachableSimplify(mod, fn, cache, nil); err != nil {
		t.Fatalf("unreachable: %v", err)
	}

	if !fn.Code.Blocks[dead].IsDead() {
		t.Fatalf("expected the predecessor-less block to be removed")
	}
	if _, ok := phi.Incoming[dead]; ok {
		t.Fatalf("expected the removed block's phi contribution to be dropped")
	}
	found := false
	for _, p := range fn.Code.Blocks[join].Preds {
		if p == dead {
			found = true
		}
	}
	if found {
		t.Fatalf("expected join's Preds to no longer list the removed block")
	}
}
