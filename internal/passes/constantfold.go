package passes

import (
	"kefir/internal/analysis"
	"kefir/internal/bigint"
	"kefir/internal/ir"
	"kefir/internal/pipeline"
)

func init() {
	pipeline.Register(&pipeline.Pass{Name: "constant-fold", Apply: constantFold})
}

// constantFold implements spec.md section 4.3's "constant folding":
// evaluates pure arithmetic/bitwise/comparison instructions whose
// operands are all constants, narrow or wide. Narrow operands (fitting a
// native word) fold with plain Go int64 arithmetic; _BitInt operands
// wider than the platform word size fold through the internal/bigint
// kernel per spec.md section 3's "BigInt kernel... used both to emit
// runtime calls for over-wide operations and to constant-fold them at
// compile time." Results are written back through ReplaceInstruction
// using the canonical narrowest constant opcode for the result's width,
// per invariant 6. Designated idempotent per spec.md section 8: a folded
// instruction becomes a constant opcode, which this pass never matches
// as foldable input again.
func constantFold(mod *ir.Module, fn *ir.Function, cache *analysis.Cache, _ any) error {
	changed := false
	for _, b := range fn.Code.LiveBlocks() {
		for _, ref := range append([]ir.InstructionRef(nil), fn.Code.Blocks[b].Instrs...) {
			inst := fn.Code.Instructions[ref]
			if inst.IsDead() {
				continue
			}
			if foldOne(mod, fn, ref, inst) {
				changed = true
			}
		}
	}
	if changed {
		cache.Invalidate()
	}
	return nil
}

func foldOne(mod *ir.Module, fn *ir.Function, ref ir.InstructionRef, inst ir.Instruction) bool {
	t := mod.Types.Lookup(inst.Type)
	if t.Kind == ir.KindBitInt && t.BitWidth > 64 {
		return foldWide(mod, fn, ref, inst, t)
	}

	switch inst.Opcode {
	case ir.OpAdd, ir.OpSub, ir.OpMul, ir.OpUDiv, ir.OpSDiv, ir.OpURem, ir.OpSRem,
		ir.OpAnd, ir.OpOr, ir.OpXor, ir.OpShl, ir.OpLShr, ir.OpAShr:
		lhs, ok1 := constValue(fn, inst.Operands[0])
		rhs, ok2 := constValue(fn, inst.Operands[1])
		if !ok1 || !ok2 {
			return false
		}
		result, ok := evalNarrow(inst.Opcode, lhs, rhs)
		if !ok {
			return false
		}
		bitWidth := t.BitWidth
		result = truncate(result, bitWidth, t.Signed)
		fn.Code.ReplaceInstruction(ref, ir.Instruction{Opcode: constOpcodeForWidth(bitWidth), Type: inst.Type, Immediate: result})
		return true

	case ir.OpNeg:
		v, ok := constValue(fn, inst.Operands[0])
		if !ok {
			return false
		}
		result := truncate(-v, t.BitWidth, t.Signed)
		fn.Code.ReplaceInstruction(ref, ir.Instruction{Opcode: constOpcodeForWidth(t.BitWidth), Type: inst.Type, Immediate: result})
		return true

	case ir.OpNot:
		v, ok := constValue(fn, inst.Operands[0])
		if !ok {
			return false
		}
		result := truncate(^v, t.BitWidth, t.Signed)
		fn.Code.ReplaceInstruction(ref, ir.Instruction{Opcode: constOpcodeForWidth(t.BitWidth), Type: inst.Type, Immediate: result})
		return true

	case ir.OpICmp:
		lhsRef, rhsRef := inst.Operands[0], inst.Operands[1]
		lhs, ok1 := constValue(fn, lhsRef)
		rhs, ok2 := constValue(fn, rhsRef)
		if !ok1 || !ok2 {
			return false
		}
		operandType := mod.Types.Lookup(fn.Code.Instructions[lhsRef].Type)
		result := evalICmp(inst.Predicate, lhs, rhs, operandType.Signed)
		fn.Code.ReplaceInstruction(ref, ir.Instruction{Opcode: ir.OpConstInt8, Type: inst.Type, Immediate: boolInt(result)})
		return true
	}
	return false
}

// evalNarrow evaluates one native-width integer operation, returning
// ok=false for a signed or unsigned division/remainder by zero (left unfolded so
// the program's own trap/UB path stays observable rather than silently
// producing a bogus constant).
func evalNarrow(op ir.Opcode, lhs, rhs int64) (int64, bool) {
	switch op {
	case ir.OpAdd:
		return lhs + rhs, true
	case ir.OpSub:
		return lhs - rhs, true
	case ir.OpMul:
		return lhs * rhs, true
	case ir.OpUDiv:
		if rhs == 0 {
			return 0, false
		}
		return int64(uint64(lhs) / uint64(rhs)), true
	case ir.OpSDiv:
		if rhs == 0 {
			return 0, false
		}
		return lhs / rhs, true
	case ir.OpURem:
		if rhs == 0 {
			return 0, false
		}
		return int64(uint64(lhs) % uint64(rhs)), true
	case ir.OpSRem:
		if rhs == 0 {
			return 0, false
		}
		return lhs % rhs, true
	case ir.OpAnd:
		return lhs & rhs, true
	case ir.OpOr:
		return lhs | rhs, true
	case ir.OpXor:
		return lhs ^ rhs, true
	case ir.OpShl:
		return lhs << uint64(rhs), true
	case ir.OpLShr:
		return int64(uint64(lhs) >> uint64(rhs)), true
	case ir.OpAShr:
		return lhs >> uint64(rhs), true
	}
	return 0, false
}

func evalICmp(pred ir.Predicate, lhs, rhs int64, signed bool) bool {
	switch pred {
	case ir.PredEQ:
		return lhs == rhs
	case ir.PredNE:
		return lhs != rhs
	case ir.PredSLT:
		return lhs < rhs
	case ir.PredSLE:
		return lhs <= rhs
	case ir.PredSGT:
		return lhs > rhs
	case ir.PredSGE:
		return lhs >= rhs
	case ir.PredULT:
		return uint64(lhs) < uint64(rhs)
	case ir.PredULE:
		return uint64(lhs) <= uint64(rhs)
	case ir.PredUGT:
		return uint64(lhs) > uint64(rhs)
	case ir.PredUGE:
		return uint64(lhs) >= uint64(rhs)
	}
	return false
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// truncate wraps v into bitWidth bits, sign-extending the result back out
// to int64 when signed is true (two's-complement wraparound in both
// directions, spec.md's resolved Open Question on overflow behavior —
// see DESIGN.md).
func truncate(v int64, bitWidth int, signed bool) int64 {
	if bitWidth <= 0 || bitWidth >= 64 {
		return v
	}
	mask := (int64(1) << uint(bitWidth)) - 1
	v &= mask
	if signed && v&(int64(1)<<uint(bitWidth-1)) != 0 {
		v -= int64(1) << uint(bitWidth)
	}
	return v
}

// foldWide folds an operation over two wide _BitInt constants via the
// internal/bigint kernel (spec.md section 3).
func foldWide(mod *ir.Module, fn *ir.Function, ref ir.InstructionRef, inst ir.Instruction, t ir.Type) bool {
	var opKind func(lhs *bigint.Digits, rhs bigint.Digits, width int)
	switch inst.Opcode {
	case ir.OpAdd:
		opKind = bigint.Add
	case ir.OpSub:
		opKind = bigint.Subtract
	case ir.OpAnd:
		opKind = bigint.And
	case ir.OpOr:
		opKind = bigint.Or
	case ir.OpXor:
		opKind = bigint.Xor
	default:
		return foldWideOther(mod, fn, ref, inst, t)
	}

	lhs, ok1 := wideConstValue(fn, inst.Operands[0])
	rhs, ok2 := wideConstValue(fn, inst.Operands[1])
	if !ok1 || !ok2 {
		return false
	}
	buf := append(bigint.Digits(nil), lhs...)
	opKind(&buf, rhs, t.BitWidth)
	idx := fn.Code.AddBitIntConstant(buf)
	fn.Code.ReplaceInstruction(ref, ir.Instruction{Opcode: ir.OpConstBitInt, Type: inst.Type, BitIntRef: idx})
	return true
}

// foldWideOther handles the wide operations whose bigint entry points
// don't share Add/Subtract/And/Or/Xor's uniform (lhs *Digits, rhs Digits,
// width int) shape: multiply (signedness-dependent result interpretation
// only, same bit pattern either way) and the two division forms (which
// can fail with ErrDivisionByZero and so are left unfolded rather than
// folded to an arbitrary value).
func foldWideOther(mod *ir.Module, fn *ir.Function, ref ir.InstructionRef, inst ir.Instruction, t ir.Type) bool {
	lhs, ok1 := wideConstValue(fn, inst.Operands[0])
	rhs, ok2 := wideConstValue(fn, inst.Operands[1])
	if !ok1 || !ok2 {
		return false
	}
	buf := append(bigint.Digits(nil), lhs...)

	switch inst.Opcode {
	case ir.OpMul:
		if t.Signed {
			bigint.SignedMultiply(&buf, rhs, t.BitWidth)
		} else {
			bigint.UnsignedMultiply(&buf, rhs, t.BitWidth)
		}
	case ir.OpUDiv:
		var rem bigint.Digits
		if err := bigint.UnsignedDivide(&buf, &rem, rhs, t.BitWidth); err != nil {
			return false
		}
	case ir.OpSDiv:
		var rem bigint.Digits
		if err := bigint.SignedDivide(&buf, &rem, rhs, t.BitWidth); err != nil {
			return false
		}
	default:
		return false
	}

	idx := fn.Code.AddBitIntConstant(buf)
	fn.Code.ReplaceInstruction(ref, ir.Instruction{Opcode: ir.OpConstBitInt, Type: inst.Type, BitIntRef: idx})
	return true
}

func wideConstValue(fn *ir.Function, ref ir.InstructionRef) (bigint.Digits, bool) {
	if ref == ir.InvalidRef {
		return nil, false
	}
	inst := fn.Code.Instructions[ref]
	if inst.Opcode != ir.OpConstBitInt {
		return nil, false
	}
	return fn.Code.BitIntConstants[inst.BitIntRef], true
}
