package target

import "kefir/internal/ir"

// runtimeHelperSymbol names the compiler-support routine that implements
// one target-abstract opcode for a platform whose backend has no native
// instruction for it. These mirror the handful of helper entry points a
// real codegen emits calls to for wide arithmetic it cannot lower
// in-line (spec.md section 4.3, "lowering... to runtime helper calls").
var runtimeHelperSymbol = map[ir.Opcode]string{
	ir.OpWideBitIntAdd:      "__kefir_bitint_add",
	ir.OpWideBitIntSub:      "__kefir_bitint_sub",
	ir.OpWideBitIntMul:      "__kefir_bitint_mul",
	ir.OpWideBitIntUDiv:     "__kefir_bitint_udiv",
	ir.OpWideBitIntSDiv:     "__kefir_bitint_sdiv",
	ir.OpComplexAdd:         "__kefir_complex_add",
	ir.OpComplexMul:         "__kefir_complex_mul",
	ir.OpLongDoubleAdd:      "__kefir_ldouble_add",
	ir.OpBuiltinOverflowAdd: "__kefir_overflow_add",
}

// LowerToRuntimeCalls is the reference LowerFunc (spec.md section 4.3's
// "lowering" pass): every target-abstract opcode becomes a direct call
// to its runtime helper symbol, operands becoming arguments in operand
// order. This is deliberately the simplest legal lowering — a real
// backend instead inlines a BigInt kernel expansion or a native
// add-with-carry sequence for small wide-bitint widths — but it keeps
// the contract (ref's identity and debug-info entry preserved via
// ReplaceInstruction, per spec.md section 4.5) exercisable without a
// concrete backend, which spec.md section 1 places out of scope.
func LowerToRuntimeCalls(mod *ir.Module, fn *ir.Function, platform Platform, ref ir.InstructionRef) (bool, error) {
	inst := fn.Code.Instructions[ref]
	symbol, ok := runtimeHelperSymbol[inst.Opcode]
	if !ok {
		return false, nil
	}

	args := make([]ir.InstructionRef, 0, 2)
	for i := 0; i < inst.NumOperands(); i++ {
		args = append(args, inst.Operands[i])
	}

	callRef := fn.Code.AddCall(ir.CallNode{
		Callee:       ir.InvalidRef,
		CalleeSymbol: symbol,
		Args:         args,
		ABITag:       platform.Name(),
	})

	fn.Code.ReplaceInstruction(ref, ir.Instruction{
		Opcode:  ir.OpCall,
		Type:    inst.Type,
		CallRef: callRef,
	})
	return true, nil
}
