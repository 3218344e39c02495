package passes

import (
	"fmt"

	"kefir/internal/analysis"
	"kefir/internal/ir"
	"kefir/internal/pipeline"
)

func init() {
	pipeline.Register(&pipeline.Pass{Name: "gvn", Apply: gvn})
}

// gvn implements spec.md section 4.3's global value numbering: walks
// blocks in reverse postorder (spec.md section 5: "GVN uses reverse
// post-order"), assigns each pure instruction a congruence key from its
// opcode and its operands' own value numbers (canonicalizing commutative
// operand order so "a+b" and "b+a" collapse to the same key), and
// replaces every later instruction congruent to an earlier one. Memory
// operations, calls, and anything else impure are never congruence-keyed
// — they keep their identity-only value number, the cautious default for
// values this pass cannot prove side-effect-free or order-independent.
func gvn(mod *ir.Module, fn *ir.Function, cache *analysis.Cache, _ any) error {
	numbers := make(map[ir.InstructionRef]string)
	leader := make(map[string]ir.InstructionRef)

	numberOf := func(ref ir.InstructionRef) string {
		if n, ok := numbers[ref]; ok {
			return n
		}
		return fmt.Sprintf("#%d", ref)
	}

	changed := false
	for _, b := range cache.Dominators().ReversePostorder() {
		for _, ref := range append([]ir.InstructionRef(nil), fn.Code.Blocks[b].Instrs...) {
			inst := fn.Code.Instructions[ref]
			if inst.IsDead() || !inst.Opcode.IsPure() {
				continue
			}

			key := congruenceKey(mod, inst, numberOf)
			if key == "" {
				continue
			}

			if existing, ok := leader[key]; ok && existing != ref {
				replaceAllUses(fn, cache, ref, existing)
				fn.Debug.TransferDebugInfo(ref, existing)
				fn.Code.RemoveInstruction(ref)
				numbers[ref] = numberOf(existing)
				changed = true
				continue
			}
			leader[key] = ref
			numbers[ref] = key
		}
	}

	if changed {
		cache.Invalidate()
	}
	return nil
}

// congruenceKey builds the string congruence class for inst, or "" if
// inst's opcode carries identity beyond its declared operands (constants
// needing their side-table payload, block inputs, anything with
// out-of-line Extra operands this pass does not attempt to canonicalize).
func congruenceKey(mod *ir.Module, inst ir.Instruction, numberOf func(ir.InstructionRef) string) string {
	switch inst.Opcode {
	case ir.OpConstInt8, ir.OpConstInt16, ir.OpConstInt32, ir.OpConstInt64:
		return fmt.Sprintf("const:%d:%d", inst.Type, inst.Immediate)
	case ir.OpConstFloat32, ir.OpConstFloat64:
		return fmt.Sprintf("constf:%d:%d", inst.Type, inst.Immediate)
	}

	if len(inst.Extra) > 0 {
		return ""
	}

	n := inst.Opcode.NumOperands()
	if n == 0 {
		return ""
	}

	a := numberOf(inst.Operands[0])
	predicate := inst.Predicate

	if n == 1 {
		return fmt.Sprintf("%d:%d:%s", inst.Opcode, inst.Type, a)
	}

	b := numberOf(inst.Operands[1])
	if inst.Opcode.IsCommutative() && b < a {
		a, b = b, a
	} else if (inst.Opcode == ir.OpICmp || inst.Opcode == ir.OpFCmp) && b < a {
		a, b = b, a
		predicate = predicate.Swapped()
	}
	return fmt.Sprintf("%d:%d:%d:%s:%s", inst.Opcode, inst.Type, predicate, a, b)
}
