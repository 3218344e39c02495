package asmcmp

import (
	"kefir/internal/config"
)

func init() {
	Register(&Pass{Name: "amd64-peephole", Kind: config.Both, Apply: amd64Peephole})
}

// amd64Peephole implements spec.md section 4.4's Amd64Peephole: a
// fixpoint of local rewrites over adjacent instructions — redundant move
// elimination, load/store combining into a memory-to-memory move,
// collapsing repeated register-zeroing idioms, and folding a
// small-immediate arithmetic source into the instruction that consumes
// it. Runs at both the Virtual and Devirtual stage, since none of its
// rewrites depend on whether registers have been allocated yet.
func amd64Peephole(prog *Program) error {
	changed := true
	for changed {
		changed = false
		if dropRedundantMoves(prog) {
			changed = true
		}
		if fuseLoadStore(prog) {
			changed = true
		}
		if collapseRepeatedZeroXor(prog) {
			changed = true
		}
		if foldImmediateIntoConsumer(prog) {
			changed = true
		}
	}
	return nil
}

// dropRedundantMoves removes an OpMov whose destination and source name
// the same register — a no-op once registers (virtual or physical) are
// compared for equality.
func dropRedundantMoves(prog *Program) bool {
	changed := false
	out := prog.Instrs[:0]
	for _, inst := range prog.Instrs {
		if inst.Op == OpMov && inst.Dst.Kind == OperandReg && inst.Src1.Kind == OperandReg && inst.Dst.Reg == inst.Src1.Reg {
			changed = true
			continue
		}
		out = append(out, inst)
	}
	prog.Instrs = out
	return changed
}

// fuseLoadStore combines "load tmp, [mem1]; store [mem2], tmp" into one
// "mov [mem2], [mem1]" memory-to-memory shell when tmp is used nowhere
// else, per spec.md's "combining adjacent loads/stores into
// memory-to-memory moves where legal."
func fuseLoadStore(prog *Program) bool {
	changed := false
	for i := 0; i+1 < len(prog.Instrs); i++ {
		load := prog.Instrs[i]
		store := prog.Instrs[i+1]
		if load.Op != OpLoad || store.Op != OpStore {
			continue
		}
		if load.Dst.Kind != OperandReg || store.Src1.Kind != OperandReg || load.Dst.Reg != store.Src1.Reg {
			continue
		}
		if countRegUses(prog, load.Dst.Reg) != 2 {
			continue // tmp must be used only by this load and this store
		}
		prog.Instrs[i] = Instruction{Op: OpMov, Dst: store.Dst, Src1: load.Src1}
		prog.Instrs = append(prog.Instrs[:i+1], prog.Instrs[i+2:]...)
		changed = true
	}
	return changed
}

// collapseRepeatedZeroXor removes a second consecutive "xor reg,reg"
// zeroing the same register the first already zeroed — the degenerate
// case of spec.md's "collapsing xor reg, reg sequences": idempotent
// zeroing, so the second instance is dead the instant it follows the
// first with nothing observing the register in between.
func collapseRepeatedZeroXor(prog *Program) bool {
	changed := false
	out := prog.Instrs[:0]
	var lastZeroed Reg
	haveLastZeroed := false
	for _, inst := range prog.Instrs {
		if isZeroXor(inst) {
			if haveLastZeroed && lastZeroed == inst.Dst.Reg {
				changed = true
				continue
			}
			lastZeroed = inst.Dst.Reg
			haveLastZeroed = true
			out = append(out, inst)
			continue
		}
		regsOf(&inst, func(r *Reg) { // any other use of the zeroed register invalidates tracking
			if haveLastZeroed && *r == lastZeroed {
				haveLastZeroed = false
			}
		})
		out = append(out, inst)
	}
	prog.Instrs = out
	return changed
}

func isZeroXor(inst Instruction) bool {
	return inst.Op == OpXor && inst.Dst.Kind == OperandReg && inst.Src1.Kind == OperandReg &&
		inst.Src2.Kind == OperandReg && inst.Dst.Reg == inst.Src1.Reg && inst.Dst.Reg == inst.Src2.Reg
}

// foldImmediateIntoConsumer rewrites "mov tmp, imm; add dst, tmp" into
// "add dst, imm" (OpAddImm) when tmp has no other use, per spec.md's
// "folding small-immediate arithmetic into the instruction that consumes
// the result."
func foldImmediateIntoConsumer(prog *Program) bool {
	changed := false
	for i := 0; i+1 < len(prog.Instrs); i++ {
		movImm := prog.Instrs[i]
		add := prog.Instrs[i+1]
		if movImm.Op != OpMov || movImm.Dst.Kind != OperandReg || movImm.Src1.Kind != OperandImm {
			continue
		}
		if add.Op != OpAdd || add.Src2.Kind != OperandReg || add.Src2.Reg != movImm.Dst.Reg {
			continue
		}
		if countRegUses(prog, movImm.Dst.Reg) != 2 {
			continue
		}
		prog.Instrs[i+1] = Instruction{Op: OpAddImm, Dst: add.Dst, Src1: add.Src1, Src2: ImmOperand(movImm.Src1.Imm)}
		prog.Instrs = append(prog.Instrs[:i], prog.Instrs[i+1:]...)
		changed = true
	}
	return changed
}

// countRegUses counts every operand/lifetime-marker reference to r across
// the whole program, used to prove a temporary has exactly the two
// references (its own definition and its one consumer) a fusion rule
// requires before it can safely disappear.
func countRegUses(prog *Program, r Reg) int {
	n := 0
	for i := range prog.Instrs {
		regsOf(&prog.Instrs[i], func(candidate *Reg) {
			if *candidate == r {
				n++
			}
		})
	}
	return n
}
