package passes

import (
	"testing"

	"kefir/internal/analysis"
	"kefir/internal/ir"
)

func newI32Function(t *testing.T) (*ir.Module, *ir.Function, ir.TypeRef) {
	t.Helper()
	mod := ir.NewModule("m")
	i32 := mod.Types.Intern(ir.Type{Kind: ir.KindInt, BitWidth: 32, Signed: true, Align: 4})
	fn := ir.NewFunction("f", nil, i32)
	mod.AddFunction(fn)
	return mod, fn, i32
}

func TestSimplifyAddZeroIdentity(t *testing.T) {
	mod, fn, i32 := newI32Function(t)
	x := fn.Code.NewInstruction(fn.Entry, ir.Instruction{Opcode: ir.OpParam, Type: i32})
	zero := fn.Code.NewInstruction(fn.Entry, ir.Instruction{Opcode: ir.OpConstInt32, Type: i32, Immediate: 0})
	add := fn.Code.NewInstruction(fn.Entry, ir.Instruction{Opcode: ir.OpAdd, Type: i32, Operands: [2]ir.InstructionRef{x, zero}})
	fn.Code.NewInstruction(fn.Entry, ir.Instruction{Opcode: ir.OpReturn, Operands: [2]ir.InstructionRef{add, ir.InvalidRef}})

	cache := analysis.NewCache(fn)
	if err := simplify(mod, fn, cache, nil); err != nil {
		t.Fatalf("simplify: %v", err)
	}

	ret := fn.Code.Blocks[fn.Entry].Terminator(fn.Code)
	retOperand := fn.Code.Instructions[ret].Operands[0]
	if retOperand != x {
		t.Fatalf("expected return to use %v directly after x+0 collapses, got %v", x, retOperand)
	}
	if !fn.Code.Instructions[add].IsDead() {
		t.Fatalf("expected the add instruction to be removed")
	}
}

func TestSimplifyMulByZeroAnnihilates(t *testing.T) {
	mod, fn, i32 := newI32Function(t)
	x := fn.Code.NewInstruction(fn.Entry, ir.Instruction{Opcode: ir.OpParam, Type: i32})
	zero := fn.Code.NewInstruction(fn.Entry, ir.Instruction{Opcode: ir.OpConstInt32, Type: i32, Immediate: 0})
	mul := fn.Code.NewInstruction(fn.Entry, ir.Instruction{Opcode: ir.OpMul, Type: i32, Operands: [2]ir.InstructionRef{x, zero}})
	fn.Code.NewInstruction(fn.Entry, ir.Instruction{Opcode: ir.OpReturn, Operands: [2]ir.InstructionRef{mul, ir.InvalidRef}})

	cache := analysis.NewCache(fn)
	if err := simplify(mod, fn, cache, nil); err != nil {
		t.Fatalf("simplify: %v", err)
	}

	ret := fn.Code.Blocks[fn.Entry].Terminator(fn.Code)
	retOperand := fn.Code.Instructions[ret].Operands[0]
	if retOperand != zero {
		t.Fatalf("expected return to use the zero constant after x*0 annihilates, got %v", retOperand)
	}
}

func TestSimplifyCollapsesSiblingConstants(t *testing.T) {
	mod, fn, i32 := newI32Function(t)
	x := fn.Code.NewInstruction(fn.Entry, ir.Instruction{Opcode: ir.OpParam, Type: i32})
	c1 := fn.Code.NewInstruction(fn.Entry, ir.Instruction{Opcode: ir.OpConstInt32, Type: i32, Immediate: 3})
	inner := fn.Code.NewInstruction(fn.Entry, ir.Instruction{Opcode: ir.OpAdd, Type: i32, Operands: [2]ir.InstructionRef{x, c1}})
	c2 := fn.Code.NewInstruction(fn.Entry, ir.Instruction{Opcode: ir.OpConstInt32, Type: i32, Immediate: 4})
	outer := fn.Code.NewInstruction(fn.Entry, ir.Instruction{Opcode: ir.OpAdd, Type: i32, Operands: [2]ir.InstructionRef{inner, c2}})
	fn.Code.NewInstruction(fn.Entry, ir.Instruction{Opcode: ir.OpReturn, Operands: [2]ir.InstructionRef{outer, ir.InvalidRef}})

	cache := analysis.NewCache(fn)
	if err := simplify(mod, fn, cache, nil); err != nil {
		t.Fatalf("simplify: %v", err)
	}

	rewritten := fn.Code.Instructions[outer]
	if rewritten.Opcode != ir.OpAdd || rewritten.Operands[0] != x {
		t.Fatalf("expected outer add to become x+7, got opcode %v operand0 %v", rewritten.Opcode, rewritten.Operands[0])
	}
	combined := fn.Code.Instructions[rewritten.Operands[1]]
	if combined.Opcode != ir.OpConstInt32 || combined.Immediate != 7 {
		t.Fatalf("expected combined constant 7, got opcode %v immediate %d", combined.Opcode, combined.Immediate)
	}
}

func TestSimplifyNegatesNotOverComparison(t *testing.T) {
	mod, fn, i32 := newI32Function(t)
	a := fn.Code.NewInstruction(fn.Entry, ir.Instruction{Opcode: ir.OpParam, Type: i32})
	b := fn.Code.NewInstruction(fn.Entry, ir.Instruction{Opcode: ir.OpParam, Type: i32})
	boolType := mod.Types.Intern(ir.Type{Kind: ir.KindBool})
	cmp := fn.Code.NewInstruction(fn.Entry, ir.Instruction{Opcode: ir.OpICmp, Type: boolType, Predicate: ir.PredSLT, Operands: [2]ir.InstructionRef{a, b}})
	not := fn.Code.NewInstruction(fn.Entry, ir.Instruction{Opcode: ir.OpNot, Type: boolType, Operands: [2]ir.InstructionRef{cmp, ir.InvalidRef}})
	fn.Code.NewInstruction(fn.Entry, ir.Instruction{Opcode: ir.OpReturn, Operands: [2]ir.InstructionRef{not, ir.InvalidRef}})

	cache := analysis.NewCache(fn)
	if err := simplify(mod, fn, cache, nil); err != nil {
		t.Fatalf("simplify: %v", err)
	}

	rewritten := fn.Code.Instructions[not]
	if rewritten.Opcode != ir.OpICmp || rewritten.Predicate != ir.PredSGE {
		t.Fatalf("expected !(a<b) to become a>=b in place, got opcode %v predicate %v", rewritten.Opcode, rewritten.Predicate)
	}
}
