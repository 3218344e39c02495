// Package passes implements every named optimizer pass spec.md section
// 4.3 lists: mem2reg, compare-branch fuse, operation simplification,
// global value numbering, constant folding, tail-call marking,
// unreachable simplification, and target lowering. Each pass registers
// itself with internal/pipeline's process-wide registry from an init
// func, the same "register on import" shape other_examples' kanso-lang
// uses for its optimization passes, generalized here to a name-keyed
// registry instead of a fixed slice so a driver can select passes by
// name from configuration (spec.md section 4.3).
package passes

import (
	"kefir/internal/analysis"
	"kefir/internal/ir"
)

// replaceAllUses rewrites every instruction operand and phi incoming
// value pointing at old to point at with instead, using the function's
// current use-def chains. Callers that go on to remove old must do so
// after calling this (old's uses must be empty first) and are
// responsible for transferring old's debug-info entry if the
// replacement value doesn't already carry its own, per spec.md section
// 4.5's atomic-transfer requirement.
func replaceAllUses(fn *ir.Function, cache *analysis.Cache, old, with ir.InstructionRef) {
	ud := cache.UseDef()
	for _, user := range ud.UsesOf(old) {
		inst := &fn.Code.Instructions[user]
		for i := range inst.Operands {
			if inst.Operands[i] == old {
				inst.Operands[i] = with
			}
		}
		for i := range inst.Extra {
			if inst.Extra[i] == old {
				inst.Extra[i] = with
			}
		}
	}
	for _, phi := range ud.PhisUsing(old) {
		for pred, val := range phi.Incoming {
			if val == old {
				phi.Incoming[pred] = with
			}
		}
	}
	cache.Invalidate()
}

// constValue returns a narrow integer constant's immediate value. Wide
// _BitInt constants are handled separately by constant folding's BigInt
// path, not by this helper.
func constValue(fn *ir.Function, ref ir.InstructionRef) (int64, bool) {
	if ref == ir.InvalidRef {
		return 0, false
	}
	inst := fn.Code.Instructions[ref]
	switch inst.Opcode {
	case ir.OpConstInt8, ir.OpConstInt16, ir.OpConstInt32, ir.OpConstInt64:
		return inst.Immediate, true
	}
	return 0, false
}

// allOnesMask returns the bit pattern of every bit set within bitWidth
// bits, used by the "x & ~0 -> x" identity and the "x | ~0 -> ~0"
// annihilator (spec.md section 4.3's operation-simplification bullets).
func allOnesMask(bitWidth int) int64 {
	if bitWidth <= 0 || bitWidth >= 64 {
		return -1
	}
	return (int64(1) << uint(bitWidth)) - 1
}

func appendUniqueBlock(blocks []ir.BlockRef, b ir.BlockRef) []ir.BlockRef {
	for _, existing := range blocks {
		if existing == b {
			return blocks
		}
	}
	return append(blocks, b)
}
