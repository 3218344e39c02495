package passes

import (
	"kefir/internal/analysis"
	"kefir/internal/ir"
	"kefir/internal/pipeline"
)

func init() {
	pipeline.Register(&pipeline.Pass{Name: "tail-call", Apply: tailCall})
}

// tailCall implements spec.md section 4.3's "tail-call marking": an
// OpCall in tail position — the last instruction before its block's
// terminator, with that terminator returning the call's own result (or
// returning void, for a void call) — is rewritten to OpTailCall.
// Disqualified when the callee is marked ReturnsTwice (setjmp-like;
// resuming through a tail-call-converted frame would resume into a
// frame that no longer exists) or when any of the local addresses taken
// in this function reach the call as an argument (the address could
// still be read after a tail call reuses the frame). Designated
// idempotent per spec.md section 8: a call already marked OpTailCall is
// not an OpCall, so a second run finds nothing left to convert.
func tailCall(mod *ir.Module, fn *ir.Function, cache *analysis.Cache, _ any) error {
	escapingAddrs := addressesPassedToAnyCall(fn)
	changed := false

	for _, b := range fn.Code.LiveBlocks() {
		instrs := fn.Code.Blocks[b].Instrs
		if len(instrs) < 2 {
			continue
		}
		termRef := instrs[len(instrs)-1]
		callRef := instrs[len(instrs)-2]
		term := fn.Code.Instructions[termRef]
		call := fn.Code.Instructions[callRef]

		if call.Opcode != ir.OpCall {
			continue
		}
		if call.CallRef < 0 || call.CallRef >= len(fn.Code.Calls) {
			continue
		}
		node := fn.Code.Calls[call.CallRef]
		if node.ReturnsTwice {
			continue
		}
		if callEscapesLocal(node, escapingAddrs) {
			continue
		}

		switch {
		case term.Opcode == ir.OpReturn && term.Operands[0] == callRef:
		case term.Opcode == ir.OpReturnVoid && call.Type == ir.Void:
		default:
			continue
		}

		fn.Code.ReplaceInstruction(callRef, ir.Instruction{
			Opcode:  ir.OpTailCall,
			Type:    call.Type,
			CallRef: call.CallRef,
		})
		fn.Debug.TransferDebugInfo(termRef, callRef)
		fn.Code.RemoveInstruction(termRef)
		changed = true
	}

	if changed {
		cache.Invalidate()
	}
	return nil
}

// addressesPassedToAnyCall collects every OpAddrOfLocal instruction whose
// result reaches any call's argument list, directly.
func addressesPassedToAnyCall(fn *ir.Function) map[ir.InstructionRef]bool {
	addrs := make(map[ir.InstructionRef]bool)
	for i, inst := range fn.Code.Instructions {
		if inst.IsDead() || inst.Opcode != ir.OpAddrOfLocal {
			continue
		}
		addrs[ir.InstructionRef(i)] = true
	}
	if len(addrs) == 0 {
		return addrs
	}

	escaping := make(map[ir.InstructionRef]bool)
	for _, call := range fn.Code.Calls {
		for _, arg := range call.Args {
			if addrs[arg] {
				escaping[arg] = true
			}
		}
	}
	return escaping
}

func callEscapesLocal(node ir.CallNode, escaping map[ir.InstructionRef]bool) bool {
	for _, arg := range node.Args {
		if escaping[arg] {
			return true
		}
	}
	return false
}
