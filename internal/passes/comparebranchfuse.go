package passes

import (
	"kefir/internal/analysis"
	"kefir/internal/ir"
	"kefir/internal/pipeline"
)

func init() {
	pipeline.Register(&pipeline.Pass{Name: "compare-branch-fuse", Apply: compareBranchFuse})
}

// compareBranchFuse implements spec.md section 4.3's "compare-branch
// fuse": rewrites `cmp op a,b; branch-nonzero(cmp), T, F` into
// `branch-cmp(op, a, b), T, F`, and fuses negation
// (`branch-nonzero(not(x)), T, F` into `branch-nonzero(x), F, T`, a
// branch on x with swapped successors). The comparison instruction is removed only when fusion
// leaves it with no other uses; otherwise it survives alongside the
// fused branch. Designated idempotent per spec.md section 8.
func compareBranchFuse(mod *ir.Module, fn *ir.Function, cache *analysis.Cache, _ any) error {
	changed := true
	for changed {
		changed = false
		ud := cache.UseDef()
		for _, b := range fn.Code.LiveBlocks() {
			term := fn.Code.Blocks[b].Terminator(fn.Code)
			if term == ir.InvalidRef {
				continue
			}
			inst := fn.Code.Instructions[term]
			if inst.Opcode != ir.OpBranch {
				continue
			}
			cond := inst.Operands[0]
			condInst := fn.Code.Instructions[cond]
			onlyUse := len(ud.UsesOf(cond)) == 1 && len(ud.PhisUsing(cond)) == 0

			switch condInst.Opcode {
			case ir.OpICmp, ir.OpFCmp:
				fn.Code.ReplaceInstruction(term, ir.Instruction{
					Opcode:    ir.OpBranchCmp,
					Type:      ir.Void,
					Operands:  condInst.Operands,
					Predicate: condInst.Predicate,
					Targets:   inst.Targets,
				})
				if onlyUse {
					fn.Debug.TransferDebugInfo(cond, term)
					fn.Code.RemoveInstruction(cond)
				}
				changed = true

			case ir.OpNot:
				x := condInst.Operands[0]
				fn.Code.ReplaceInstruction(term, ir.Instruction{
					Opcode:   ir.OpBranch,
					Type:     ir.Void,
					Operands: [2]ir.InstructionRef{x, ir.InvalidRef},
					Targets:  []ir.BlockRef{inst.Targets[1], inst.Targets[0]},
				})
				if onlyUse {
					fn.Debug.TransferDebugInfo(cond, term)
					fn.Code.RemoveInstruction(cond)
				}
				changed = true
			}
		}
		if changed {
			cache.Invalidate()
		}
	}
	return nil
}
