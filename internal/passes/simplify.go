package passes

import (
	"kefir/internal/analysis"
	"kefir/internal/ir"
	"kefir/internal/pipeline"
)

func init() {
	pipeline.Register(&pipeline.Pass{Name: "simplify", Apply: simplify})
}

// simplify implements spec.md section 4.3's "operation simplification":
// a collection of peephole rewrites over the value graph — identities,
// annihilators, constant collapse of sibling operations, relational
// negation normalization, and distributive fusion over idempotent
// bitwise operators. Designated idempotent per spec.md section 8: each
// rule only fires while its pattern is still present, so a second run
// finds nothing left to rewrite.
func simplify(mod *ir.Module, fn *ir.Function, cache *analysis.Cache, _ any) error {
	changed := true
	for changed {
		changed = false
		for _, b := range fn.Code.LiveBlocks() {
			for _, ref := range append([]ir.InstructionRef(nil), fn.Code.Blocks[b].Instrs...) {
				inst := fn.Code.Instructions[ref]
				if inst.IsDead() {
					continue
				}
				if rewriteOne(mod, fn, cache, ref, inst) {
					changed = true
				}
			}
		}
		if changed {
			cache.Invalidate()
		}
	}
	return nil
}

func rewriteOne(mod *ir.Module, fn *ir.Function, cache *analysis.Cache, ref ir.InstructionRef, inst ir.Instruction) bool {
	replaceWith := func(with ir.InstructionRef) bool {
		replaceAllUses(fn, cache, ref, with)
		fn.Debug.TransferDebugInfo(ref, with)
		fn.Code.RemoveInstruction(ref)
		return true
	}
	becomeConst := func(opcode ir.Opcode, immediate int64) bool {
		fn.Code.ReplaceInstruction(ref, ir.Instruction{Opcode: opcode, Type: inst.Type, Immediate: immediate})
		return true
	}
	bitWidth := 0
	if inst.Type != ir.Void {
		bitWidth = mod.Types.Lookup(inst.Type).BitWidth
	}

	switch inst.Opcode {
	// Additive/bitwise identities: x OP 0 -> x.
	case ir.OpAdd, ir.OpSub, ir.OpXor, ir.OpShl, ir.OpLShr, ir.OpAShr:
		if c, ok := constValue(fn, inst.Operands[1]); ok && c == 0 {
			return replaceWith(inst.Operands[0])
		}
		if inst.Opcode == ir.OpAdd || inst.Opcode == ir.OpXor {
			if c, ok := constValue(fn, inst.Operands[0]); ok && c == 0 {
				return replaceWith(inst.Operands[1])
			}
		}
		if collapseSiblingConstant(fn, cache, bitWidth, ref, inst) {
			return true
		}

	// Multiplicative identities and the x*0 annihilator.
	case ir.OpMul, ir.OpUDiv, ir.OpSDiv:
		if c, ok := constValue(fn, inst.Operands[1]); ok && c == 1 {
			return replaceWith(inst.Operands[0])
		}
		if inst.Opcode == ir.OpMul {
			if c, ok := constValue(fn, inst.Operands[1]); ok && c == 0 {
				return replaceWith(inst.Operands[1])
			}
			if c, ok := constValue(fn, inst.Operands[0]); ok {
				if c == 0 {
					return replaceWith(inst.Operands[0])
				}
				if c == 1 {
					return replaceWith(inst.Operands[1])
				}
			}
			if collapseSiblingConstant(fn, cache, bitWidth, ref, inst) {
				return true
			}
		}

	// x & 0 -> 0 (annihilator); x & ~0 -> x (identity); x & x -> x.
	case ir.OpAnd:
		if c, ok := constValue(fn, inst.Operands[1]); ok {
			if c == 0 {
				return replaceWith(inst.Operands[1])
			}
			if c == allOnesMask(bitWidth) {
				return replaceWith(inst.Operands[0])
			}
		}
		if inst.Operands[0] == inst.Operands[1] {
			return replaceWith(inst.Operands[0])
		}
		if collapseSiblingConstant(fn, cache, bitWidth, ref, inst) {
			return true
		}
		if fused, ok := distributiveFuse(fn, ir.OpAnd, inst); ok {
			return applyDistributiveFuse(fn, cache, ref, fused)
		}

	case ir.OpOr:
		if c, ok := constValue(fn, inst.Operands[1]); ok {
			if c == 0 {
				return replaceWith(inst.Operands[0])
			}
			if c == allOnesMask(bitWidth) {
				return becomeConst(constOpcodeForWidth(bitWidth), c)
			}
		}
		if c, ok := constValue(fn, inst.Operands[0]); ok && c == 0 {
			return replaceWith(inst.Operands[1])
		}
		if inst.Operands[0] == inst.Operands[1] {
			return replaceWith(inst.Operands[0])
		}
		if collapseSiblingConstant(fn, cache, bitWidth, ref, inst) {
			return true
		}
		if fused, ok := distributiveFuse(fn, ir.OpOr, inst); ok {
			return applyDistributiveFuse(fn, cache, ref, fused)
		}

	// !(a<b) -> a>=b, mirrored across all six relational predicates
	// (spec.md section 4.3's bitwise/comparison normalization bullet).
	case ir.OpNot:
		operand := fn.Code.Instructions[inst.Operands[0]]
		if operand.Opcode == ir.OpICmp || operand.Opcode == ir.OpFCmp {
			fn.Code.ReplaceInstruction(ref, ir.Instruction{
				Opcode:    operand.Opcode,
				Type:      inst.Type,
				Predicate: operand.Predicate.Negate(),
				Operands:  operand.Operands,
			})
			return true
		}
	}
	return false
}

// collapseSiblingConstant implements "(x+c1)+c2 -> x+(c1+c2)" for
// commutative/associative additive and bitwise opcodes: if inst's
// non-constant operand is itself the same opcode applied to a value and
// a constant, fold the two constants at inst's own width and rewrite
// inst to apply one freshly materialized combined constant directly to
// the inner value, in place of the two original constants.
func collapseSiblingConstant(fn *ir.Function, cache *analysis.Cache, bitWidth int, ref ir.InstructionRef, inst ir.Instruction) bool {
	if !inst.Opcode.IsCommutative() {
		return false
	}
	outerConst, ok := constValue(fn, inst.Operands[1])
	if !ok {
		return false
	}
	inner := fn.Code.Instructions[inst.Operands[0]]
	if inner.Opcode != inst.Opcode || inner.IsDead() {
		return false
	}
	innerConst, ok := constValue(fn, inner.Operands[1])
	if !ok {
		return false
	}
	combined := combine(inst.Opcode, innerConst, outerConst)
	combinedRef := fn.Code.InsertBefore(ref, ir.Instruction{Opcode: constOpcodeForWidth(bitWidth), Type: inst.Type, Immediate: combined})
	fn.Code.ReplaceInstruction(ref, ir.Instruction{
		Opcode:   inst.Opcode,
		Type:     inst.Type,
		Operands: [2]ir.InstructionRef{inner.Operands[0], combinedRef},
	})
	cache.Invalidate()
	return true
}

func combine(op ir.Opcode, a, b int64) int64 {
	switch op {
	case ir.OpAdd:
		return a + b
	case ir.OpMul:
		return a * b
	case ir.OpAnd:
		return a & b
	case ir.OpOr:
		return a | b
	case ir.OpXor:
		return a ^ b
	}
	return b
}

func constOpcodeForWidth(bitWidth int) ir.Opcode {
	switch {
	case bitWidth <= 8:
		return ir.OpConstInt8
	case bitWidth <= 16:
		return ir.OpConstInt16
	case bitWidth <= 32:
		return ir.OpConstInt32
	default:
		return ir.OpConstInt64
	}
}

// distributiveFuse detects "(a OP b) OP (a OP c)" for an idempotent
// bitwise op (And/Or) and returns the operands for the fused
// "a OP (b OP c)" form: the shared operand and the two distinct ones to
// combine under the same op one level in.
func distributiveFuse(fn *ir.Function, op ir.Opcode, inst ir.Instruction) (fusedOperands [3]ir.InstructionRef, ok bool) {
	l := fn.Code.Instructions[inst.Operands[0]]
	r := fn.Code.Instructions[inst.Operands[1]]
	if l.Opcode != op || r.Opcode != op || l.IsDead() || r.IsDead() {
		return fusedOperands, false
	}
	shared, b, c, found := sharedOperand(l, r)
	if !found {
		return fusedOperands, false
	}
	return [3]ir.InstructionRef{shared, b, c}, true
}

func sharedOperand(l, r ir.Instruction) (shared, b, c ir.InstructionRef, ok bool) {
	switch {
	case l.Operands[0] == r.Operands[0]:
		return l.Operands[0], l.Operands[1], r.Operands[1], true
	case l.Operands[0] == r.Operands[1]:
		return l.Operands[0], l.Operands[1], r.Operands[0], true
	case l.Operands[1] == r.Operands[0]:
		return l.Operands[1], l.Operands[0], r.Operands[1], true
	case l.Operands[1] == r.Operands[1]:
		return l.Operands[1], l.Operands[0], r.Operands[0], true
	}
	return ir.InvalidRef, ir.InvalidRef, ir.InvalidRef, false
}

func applyDistributiveFuse(fn *ir.Function, cache *analysis.Cache, ref ir.InstructionRef, operands [3]ir.InstructionRef) bool {
	inst := fn.Code.Instructions[ref]
	shared, b, c := operands[0], operands[1], operands[2]
	inner := fn.Code.InsertBefore(ref, ir.Instruction{
		Opcode:   inst.Opcode,
		Type:     inst.Type,
		Operands: [2]ir.InstructionRef{b, c},
	})
	fn.Code.ReplaceInstruction(ref, ir.Instruction{
		Opcode:   inst.Opcode,
		Type:     inst.Type,
		Operands: [2]ir.InstructionRef{shared, inner},
	})
	cache.Invalidate()
	return true
}
