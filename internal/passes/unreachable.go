package passes

import (
	"kefir/internal/analysis"
	"kefir/internal/ir"
	"kefir/internal/pipeline"
)

func init() {
	pipeline.Register(&pipeline.Pass{Name: "unreachable", Apply: unreachableSimplify})
}

// unreachableSimplify implements spec.md section 4.3's "unreachable
// simplification": a branch whose target block immediately traps
// (OpUnreachable, with no other instructions) is rewritten to jump
// straight to its other arm, and any block left with no control
// predecessor — except the entry block, which is always reachable by
// definition — is removed along with its contribution to every
// successor's phis, per invariant 3. Removing a block can strand its own
// successors, so both rewrites run to a fixpoint. Designated idempotent
// per spec.md section 8: once no branch targets a bare-trap block and
// every live block has a predecessor, a further run changes nothing.
func unreachableSimplify(mod *ir.Module, fn *ir.Function, cache *analysis.Cache, _ any) error {
	changed := true
	for changed {
		changed = false
		if skipTrivialTrapArms(fn) {
			changed = true
			cache.Invalidate()
		}
		if removeUnreachableBlocks(fn, cache) {
			changed = true
			cache.Invalidate()
		}
	}
	return nil
}

// isBareTrap reports whether b contains nothing but an OpUnreachable
// terminator.
func isBareTrap(fn *ir.Function, b ir.BlockRef) bool {
	instrs := fn.Code.Blocks[b].Instrs
	return len(instrs) == 1 && fn.Code.Instructions[instrs[0]].Opcode == ir.OpUnreachable
}

// skipTrivialTrapArms retargets OpBranch terminators with one bare-trap
// arm into an unconditional OpJump to the surviving arm.
func skipTrivialTrapArms(fn *ir.Function) bool {
	changed := false
	for _, b := range fn.Code.LiveBlocks() {
		term := fn.Code.Blocks[b].Terminator(fn.Code)
		if term == ir.InvalidRef {
			continue
		}
		inst := fn.Code.Instructions[term]
		if inst.Opcode != ir.OpBranch || len(inst.Targets) != 2 {
			continue
		}
		trueTrap := isBareTrap(fn, inst.Targets[0])
		falseTrap := isBareTrap(fn, inst.Targets[1])
		if trueTrap == falseTrap {
			continue
		}
		trapArm, survivor := inst.Targets[0], inst.Targets[1]
		if falseTrap {
			trapArm, survivor = inst.Targets[1], inst.Targets[0]
		}
		fn.Code.ReplaceInstruction(term, ir.Instruction{
			Opcode:  ir.OpJump,
			Type:    ir.Void,
			Targets: []ir.BlockRef{survivor},
		})
		fn.Code.Blocks[trapArm].Preds = removeBlock(fn.Code.Blocks[trapArm].Preds, b)
		changed = true
	}
	return changed
}

// removeUnreachableBlocks deletes every live block other than the entry
// with no remaining control predecessor, fixing up each successor's Preds
// list and phi Incoming maps to match.
func removeUnreachableBlocks(fn *ir.Function, cache *analysis.Cache) bool {
	changed := false
	for _, b := range fn.Code.LiveBlocks() {
		if b == fn.Entry || len(fn.Code.Blocks[b].Preds) > 0 {
			continue
		}

		for _, succ := range blockSuccessors(fn, b) {
			fn.Code.Blocks[succ].Preds = removeBlock(fn.Code.Blocks[succ].Preds, b)
			for i := range fn.Code.Phis {
				phi := &fn.Code.Phis[i]
				if phi.Block == succ {
					delete(phi.Incoming, b)
				}
			}
		}
		fn.Code.RemoveBlock(b)
		changed = true
	}
	return changed
}

func blockSuccessors(fn *ir.Function, b ir.BlockRef) []ir.BlockRef {
	term := fn.Code.Blocks[b].Terminator(fn.Code)
	if term == ir.InvalidRef {
		return nil
	}
	return fn.Code.Instructions[term].Targets
}

func removeBlock(blocks []ir.BlockRef, target ir.BlockRef) []ir.BlockRef {
	out := blocks[:0]
	for _, b := range blocks {
		if b != target {
			out = append(out, b)
		}
	}
	return out
}
