package passes

import (
	"testing"

	"kefir/internal/analysis"
	"kefir/internal/ir"
)

func newFunctionWithOneLocal(t *testing.T, mod *ir.Module, localType ir.TypeRef, ret ir.TypeRef) *ir.Function {
	t.Helper()
	localsType := mod.Types.Intern(ir.Type{Kind: ir.KindStruct, Members: []ir.Member{{Type: localType}}})
	fn := ir.NewFunction("f", nil, ret)
	fn.Locals = localsType
	mod.AddFunction(fn)
	return fn
}

func TestMem2RegPromotesStraightLineLocal(t *testing.T) {
	mod := ir.NewModule("m")
	i32 := mod.Types.Intern(ir.Type{Kind: ir.KindInt, BitWidth: 32, Signed: true, Align: 4})
	fn := newFunctionWithOneLocal(t, mod, i32, i32)

	addr := fn.Code.NewInstruction(fn.Entry, ir.Instruction{Opcode: ir.OpAddrOfLocal, Type: ir.Void, Immediate: 0})
	c := fn.Code.NewInstruction(fn.Entry, ir.Instruction{Opcode: ir.OpConstInt32, Type: i32, Immediate: 42})
	fn.Code.NewInstruction(fn.Entry, ir.Instruction{Opcode: ir.OpStore, Type: ir.Void, Operands: [2]ir.InstructionRef{addr, c}})
	load := fn.Code.NewInstruction(fn.Entry, ir.Instruction{Opcode: ir.OpLoad, Type: i32, Operands: [2]ir.InstructionRef{addr, ir.InvalidRef}})
	fn.Code.NewInstruction(fn.Entry, ir.Instruction{Opcode: ir.OpReturn, Operands: [2]ir.InstructionRef{load, ir.InvalidRef}})

	cache := analysis.NewCache(fn)
	if err := mem2reg(mod, fn, cache, nil); err != nil {
		t.Fatalf("mem2reg: %v", err)
	}

	term := fn.Code.Blocks[fn.Entry].Terminator(fn.Code)
	ret := fn.Code.Instructions[term].Operands[0]
	if ret != c {
		t.Fatalf("expected the return to use the stored constant %v directly, got %v", c, ret)
	}
	if !fn.Code.Instructions[load].IsDead() {
		t.Fatalf("expected the load to be removed")
	}
}

func TestMem2RegInsertsPhiAtMerge(t *testing.T) {
	mod := ir.NewModule("m")
	i32 := mod.Types.Intern(ir.Type{Kind: ir.KindInt, BitWidth: 32, Signed: true, Align: 4})
	fn := newFunctionWithOneLocal(t, mod, i32, i32)

	then := fn.Code.NewBlock("then", 0)
	els := fn.Code.NewBlock("else", 0)
	join := fn.Code.NewBlock("join", 0)
	fn.Code.Blocks[then].Preds = []ir.BlockRef{fn.Entry}
	fn.Code.Blocks[els].Preds = []ir.BlockRef{fn.Entry}
	fn.Code.Blocks[join].Preds = []ir.BlockRef{then, els}

	addr := fn.Code.NewInstruction(fn.Entry, ir.Instruction{Opcode: ir.OpAddrOfLocal, Type: ir.Void, Immediate: 0})
	cond := fn.Code.NewInstruction(fn.Entry, ir.Instruction{Opcode: ir.OpConstInt32, Type: i32, Immediate: 1})
	fn.Code.NewInstruction(fn.Entry, ir.Instruction{Opcode: ir.OpBranch, Operands: [2]ir.InstructionRef{cond, ir.InvalidRef}, Targets: []ir.BlockRef{then, els}})

	v1 := fn.Code.NewInstruction(then, ir.Instruction{Opcode: ir.OpConstInt32, Type: i32, Immediate: 10})
	fn.Code.NewInstruction(then, ir.Instruction{Opcode: ir.OpStore, Type: ir.Void, Operands: [2]ir.InstructionRef{addr, v1}})
	fn.Code.NewInstruction(then, ir.Instruction{Opcode: ir.OpJump, Targets: []ir.BlockRef{join}})

	v2 := fn.Code.NewInstruction(els, ir.Instruction{Opcode: ir.OpConstInt32, Type: i32, Immediate: 20})
	fn.Code.NewInstruction(els, ir.Instruction{Opcode: ir.OpStore, Type: ir.Void, Operands: [2]ir.InstructionRef{addr, v2}})
	fn.Code.NewInstruction(els, ir.Instruction{Opcode: ir.OpJump, Targets: []ir.BlockRef{join}})

	load := fn.Code.NewInstruction(join, ir.Instruction{Opcode: ir.OpLoad, Type: i32, Operands: [2]ir.InstructionRef{addr, ir.InvalidRef}})
	fn.Code.NewInstruction(join, ir.Instruction{Opcode: ir.OpReturn, Operands: [2]ir.InstructionRef{load, ir.InvalidRef}})

	cache := analysis.NewCache(fn)
	if err := mem2reg(mod, fn, cache, nil); err != nil {
		t.Fatalf("mem2reg: %v", err)
	}

	term := fn.Code.Blocks[join].Terminator(fn.Code)
	retVal := fn.Code.Instructions[term].Operands[0]
	phi := fn.Code.PhiFor(retVal)
	if phi == nil {
		t.Fatalf("expected the return to read a newly introduced block input fed by a phi, got %v directly", retVal)
	}
	if phi.Incoming[then] != v1 || phi.Incoming[els] != v2 {
		t.Fatalf("expected phi incoming values %v/%v from then/else, got %v", v1, v2, phi.Incoming)
	}
}
