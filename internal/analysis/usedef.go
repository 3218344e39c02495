package analysis

import "kefir/internal/ir"

// UseDef is the inverse of the operand relation: for each instruction,
// every instruction (and, separately, every phi) that uses it. Passes
// that replace one value with another (constant folding, GVN,
// simplification) use this to rewrite every use in one pass instead of
// re-scanning the whole function per replacement.
type UseDef struct {
	uses    map[ir.InstructionRef][]ir.InstructionRef
	phiUses map[ir.InstructionRef][]*ir.Phi
}

func computeUseDef(fn *ir.Function) *UseDef {
	ud := &UseDef{
		uses:    make(map[ir.InstructionRef][]ir.InstructionRef),
		phiUses: make(map[ir.InstructionRef][]*ir.Phi),
	}

	for _, b := range fn.Code.LiveBlocks() {
		for _, ref := range fn.Code.Blocks[b].Instrs {
			inst := fn.Code.Instructions[ref]
			n := inst.Opcode.NumOperands()
			for i := 0; i < n; i++ {
				if op := inst.Operands[i]; op != ir.InvalidRef {
					ud.uses[op] = append(ud.uses[op], ref)
				}
			}
			for _, op := range inst.Extra {
				if op != ir.InvalidRef {
					ud.uses[op] = append(ud.uses[op], ref)
				}
			}
		}
	}

	for i := range fn.Code.Phis {
		phi := &fn.Code.Phis[i]
		for _, val := range phi.Incoming {
			if val != ir.InvalidRef {
				ud.phiUses[val] = append(ud.phiUses[val], phi)
			}
		}
	}

	return ud
}

// UsesOf returns every instruction that takes ref as an operand.
func (ud *UseDef) UsesOf(ref ir.InstructionRef) []ir.InstructionRef {
	return ud.uses[ref]
}

// PhisUsing returns every phi with an incoming value of ref.
func (ud *UseDef) PhisUsing(ref ir.InstructionRef) []*ir.Phi {
	return ud.phiUses[ref]
}

// IsUnused reports whether ref has no remaining instruction or phi uses,
// the precondition for dead-instruction elimination on a pure opcode.
func (ud *UseDef) IsUnused(ref ir.InstructionRef) bool {
	return len(ud.uses[ref]) == 0 && len(ud.phiUses[ref]) == 0
}
