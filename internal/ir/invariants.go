package ir

import "fmt"

// Validate checks fn against the structural invariants spec.md section 8
// requires of every function between passes: each live block ends in
// exactly one terminator, each phi has exactly one incoming value per
// control predecessor of its block, and every operand ref points at a
// live instruction (definition-before-use order is not checked). It
// returns the first violation
// found, or nil if fn is well-formed.
func (fn *Function) Validate() error {
	code := fn.Code

	for _, b := range code.LiveBlocks() {
		block := code.Blocks[b]
		if len(block.Instrs) == 0 {
			return fmt.Errorf("ir: block %q has no instructions", block.Label)
		}
		term := block.Instrs[len(block.Instrs)-1]
		if !code.Instructions[term].Opcode.IsTerminator() {
			return fmt.Errorf("ir: block %q does not end in a terminator", block.Label)
		}
		for _, ref := range block.Instrs[:len(block.Instrs)-1] {
			if code.Instructions[ref].Opcode.IsTerminator() {
				return fmt.Errorf("ir: block %q has a non-final terminator at %d", block.Label, ref)
			}
		}
	}

	for i := range code.Phis {
		phi := &code.Phis[i]
		block := code.Blocks[phi.Block]
		if block.dead {
			continue
		}
		if len(phi.Incoming) != len(block.Preds) {
			return fmt.Errorf("ir: phi for block %q has %d incoming values, want %d (one per predecessor)",
				block.Label, len(phi.Incoming), len(block.Preds))
		}
		for _, pred := range block.Preds {
			if _, ok := phi.Incoming[pred]; !ok {
				return fmt.Errorf("ir: phi for block %q missing incoming value from predecessor %q",
					block.Label, code.Blocks[pred].Label)
			}
		}
	}

	for _, b := range code.LiveBlocks() {
		for _, ref := range code.Blocks[b].Instrs {
			inst := code.Instructions[ref]
			for _, op := range inst.Operands {
				if op == InvalidRef {
					continue
				}
				if int(op) < 0 || int(op) >= len(code.Instructions) {
					return fmt.Errorf("ir: instruction %d has out-of-range operand %d", ref, op)
				}
				if code.Instructions[op].IsDead() {
					return fmt.Errorf("ir: instruction %d uses dead operand %d", ref, op)
				}
			}
		}
	}

	return nil
}
