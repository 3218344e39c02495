package ir

import "testing"

func TestTypeTableInterning(t *testing.T) {
	tt := NewTypeTable()
	i32 := tt.Intern(Type{Kind: KindInt, BitWidth: 32, Signed: true, Align: 4})
	again := tt.Intern(Type{Kind: KindInt, BitWidth: 32, Signed: true, Align: 4})
	if i32 != again {
		t.Fatalf("structurally equal types interned to different refs: %d vs %d", i32, again)
	}
	u32 := tt.Intern(Type{Kind: KindInt, BitWidth: 32, Signed: false, Align: 4})
	if u32 == i32 {
		t.Fatalf("signed and unsigned i32 interned to the same ref")
	}
	if Void != 0 {
		t.Fatalf("Void must be TypeRef 0")
	}
}

func TestCodeContainerInstructionLifecycle(t *testing.T) {
	fn := NewFunction("f", nil, Void)
	code := fn.Code

	c1 := code.NewInstruction(fn.Entry, Instruction{Opcode: OpConstInt32, Immediate: 1})
	c2 := code.NewInstruction(fn.Entry, Instruction{Opcode: OpConstInt32, Immediate: 2})
	add := code.NewInstruction(fn.Entry, Instruction{Opcode: OpAdd, Operands: [2]InstructionRef{c1, c2}})
	code.NewInstruction(fn.Entry, Instruction{Opcode: OpReturn, Operands: [2]InstructionRef{add, InvalidRef}})

	if got := len(code.Blocks[fn.Entry].Instrs); got != 4 {
		t.Fatalf("expected 4 instructions in entry block, got %d", got)
	}

	code.RemoveInstruction(c2)
	if !code.Instructions[c2].IsDead() {
		t.Fatalf("removed instruction should be dead")
	}
	if got := len(code.Blocks[fn.Entry].Instrs); got != 3 {
		t.Fatalf("expected 3 instructions after removal, got %d", got)
	}

	reused := code.NewInstruction(fn.Entry, Instruction{Opcode: OpConstInt32, Immediate: 3})
	if reused != c2 {
		t.Fatalf("expected free-list reuse of ref %d, got %d", c2, reused)
	}
}

func TestFunctionValidateRequiresTerminator(t *testing.T) {
	fn := NewFunction("f", nil, Void)
	if err := fn.Validate(); err == nil {
		t.Fatalf("expected validation error for entry block with no terminator")
	}
	fn.Code.NewInstruction(fn.Entry, Instruction{Opcode: OpReturnVoid})
	if err := fn.Validate(); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}
}

func TestPhiIncomingMatchesPredecessors(t *testing.T) {
	fn := NewFunction("f", nil, Void)
	code := fn.Code

	then := code.NewBlock("then", 0)
	join := code.NewBlock("join", 0)
	code.Blocks[join].Preds = []BlockRef{fn.Entry, then}

	v1 := code.NewInstruction(fn.Entry, Instruction{Opcode: OpConstInt32, Immediate: 1})
	code.NewInstruction(fn.Entry, Instruction{Opcode: OpJump, Targets: []BlockRef{join}})

	v2 := code.NewInstruction(then, Instruction{Opcode: OpConstInt32, Immediate: 2})
	code.NewInstruction(then, Instruction{Opcode: OpJump, Targets: []BlockRef{join}})

	input := code.NewInstruction(join, Instruction{Opcode: OpBlockInput})
	phi := code.AddPhi(join, input)
	phi.Incoming[fn.Entry] = v1
	phi.Incoming[then] = v2
	code.NewInstruction(join, Instruction{Opcode: OpReturnVoid})

	if err := fn.Validate(); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}

	delete(phi.Incoming, then)
	if err := fn.Validate(); err == nil {
		t.Fatalf("expected validation error for phi missing a predecessor's incoming value")
	}
}

func TestDebugInfoTransfer(t *testing.T) {
	d := NewDebugInfo()
	d.SetLocation(5, SourceLocation{File: "a.c", Line: 10})
	d.Locals[5] = []LocalVar{{Name: "x"}}

	d.TransferDebugInfo(5, 6)

	if _, ok := d.Locations[5]; ok {
		t.Fatalf("source location should have been removed from the old ref")
	}
	if loc := d.Locations[6]; loc.Line != 10 {
		t.Fatalf("expected transferred line 10, got %d", loc.Line)
	}
	if len(d.Locals[6]) != 1 || d.Locals[6][0].Name != "x" {
		t.Fatalf("expected local variable to transfer to new ref")
	}
}

func TestPredicateNegateAndSwapped(t *testing.T) {
	if PredSLT.Negate() != PredSGE {
		t.Fatalf("Negate(SLT) should be SGE")
	}
	if PredSLT.Swapped() != PredSGT {
		t.Fatalf("Swapped(SLT) should be SGT")
	}
	if PredEQ.Negate() != PredNE || PredNE.Negate() != PredEQ {
		t.Fatalf("EQ/NE should negate to each other")
	}
}

func TestOpcodeClassification(t *testing.T) {
	if !OpJump.IsTerminator() || OpAdd.IsTerminator() {
		t.Fatalf("IsTerminator misclassified jump/add")
	}
	if !OpAdd.IsCommutative() || OpSub.IsCommutative() {
		t.Fatalf("IsCommutative misclassified add/sub")
	}
	if !OpAdd.IsPure() || OpStore.IsPure() || OpCall.IsPure() {
		t.Fatalf("IsPure misclassified add/store/call")
	}
	if !OpConstInt32.IsConstant() || OpAdd.IsConstant() {
		t.Fatalf("IsConstant misclassified const/add")
	}
}
