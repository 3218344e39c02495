package passes

import (
	"testing"

	"kefir/internal/analysis"
	"kefir/internal/ir"
)

func TestTailCallMarksReturnedCall(t *testing.T) {
	mod, fn, i32 := newI32Function(t)
	callRef := fn.Code.AddCall(ir.CallNode{CalleeSymbol: "g"})
	call := fn.Code.NewInstruction(fn.Entry, ir.Instruction{Opcode: ir.OpCall, Type: i32, CallRef: callRef})
	fn.Code.NewInstruction(fn.Entry, ir.Instruction{Opcode: ir.OpReturn, Operands: [2]ir.InstructionRef{call, ir.InvalidRef}})

	cache := analysis.NewCache(fn)
	if err := tailCall(mod, fn, cache, nil); err != nil {
		t.Fatalf("tail-call: %v", err)
	}

	if fn.Code.Instructions[call].Opcode != ir.OpTailCall {
		t.Fatalf("expected the call directly preceding a matching return to become a tail call")
	}
}

func TestTailCallSkipsReturnsTwice(t *testing.T) {
	mod, fn, i32 := newI32Function(t)
	callRef := fn.Code.AddCall(ir.CallNode{CalleeSymbol: "setjmp", ReturnsTwice: true})
	call := fn.Code.NewInstruction(fn.Entry, ir.Instruction{Opcode: ir.OpCall, Type: i32, CallRef: callRef})
	fn.Code.NewInstruction(fn.Entry, ir.Instruction{Opcode: ir.OpReturn, Operands: [2]ir.InstructionRef{call, ir.InvalidRef}})

	cache := analysis.NewCache(fn)
	if err := tailCall(mod, fn, cache, nil); err != nil {
		t.Fatalf("tail-call: %v", err)
	}

	if fn.Code.Instructions[call].Opcode != ir.OpCall {
		t.Fatalf("a ReturnsTwice callee must never be marked a tail call")
	}
}

func TestTailCallSkipsEscapedLocalArgument(t *testing.T) {
	mod, fn, i32 := newI32Function(t)
	addr := fn.Code.NewInstruction(fn.Entry, ir.Instruction{Opcode: ir.OpAddrOfLocal, Type: ir.Void, Immediate: 0})
	callRef := fn.Code.AddCall(ir.CallNode{CalleeSymbol: "g", Args: []ir.InstructionRef{addr}})
	call := fn.Code.NewInstruction(fn.Entry, ir.Instruction{Opcode: ir.OpCall, Type: i32, CallRef: callRef})
	fn.Code.NewInstruction(fn.Entry, ir.Instruction{Opcode: ir.OpReturn, Operands: [2]ir.InstructionRef{call, ir.InvalidRef}})

	cache := analysis.NewCache(fn)
	if err := tailCall(mod, fn, cache, nil); err != nil {
		t.Fatalf("tail-call: %v", err)
	}

	if fn.Code.Instructions[call].Opcode != ir.OpCall {
		t.Fatalf("a call receiving a local's address must not be converted to a tail call")
	}
}

func TestTailCallMarksVoidCallBeforeReturnVoid(t *testing.T) {
	mod := ir.NewModule("m")
	fn := ir.NewFunction("f", nil, ir.Void)
	mod.AddFunction(fn)
	callRef := fn.Code.AddCall(ir.CallNode{CalleeSymbol: "g"})
	call := fn.Code.NewInstruction(fn.Entry, ir.Instruction{Opcode: ir.OpCall, Type: ir.Void, CallRef: callRef})
	fn.Code.NewInstruction(fn.Entry, ir.Instruction{Opcode: ir.OpReturnVoid})

	cache := analysis.NewCache(fn)
	if err := tailCall(mod, fn, cache, nil); err != nil {
		t.Fatalf("tail-call: %v", err)
	}

	if fn.Code.Instructions[call].Opcode != ir.OpTailCall {
		t.Fatalf("expected a void call directly preceding return-void to become a tail call")
	}
}
