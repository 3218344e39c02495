package construct

import (
	"kefir/internal/ir"
	"kefir/internal/stackir"
)

// step translates one stack-IR instruction, popping its operands from
// stack and pushing its result (if any), per spec.md section 4.2 step 3.
// It returns the updated symbolic stack.
func (b *Builder) step(fn *ir.Function, cursor *ir.Cursor, src *stackir.Function, states []*blockState, st *blockState,
	params []ir.InstructionRef, instr stackir.Instr, stack []ir.InstructionRef) ([]ir.InstructionRef, error) {

	pop := func() (ir.InstructionRef, error) {
		if len(stack) == 0 {
			return ir.InvalidRef, b.malformed("operand stack underflow in block %q", src.Blocks[st.irRef].Label)
		}
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		return v, nil
	}
	push := func(ref ir.InstructionRef) {
		stack = append(stack, ref)
	}
	emit := func(inst ir.Instruction) ir.InstructionRef {
		ref := fn.Code.NewInstruction(st.irRef, inst)
		cursor.Stamp(ref)
		return ref
	}

	switch instr.Op {
	case stackir.OpDebugCursor:
		cursor.SetLocation(instr.Loc)

	case stackir.OpConst:
		push(emit(b.constInstruction(fn, instr)))

	case stackir.OpParam:
		push(params[instr.Immediate])

	case stackir.OpDup:
		top, err := pop()
		if err != nil {
			return nil, err
		}
		push(top)
		push(top)

	case stackir.OpAdd, stackir.OpSub, stackir.OpMul, stackir.OpUDiv, stackir.OpSDiv,
		stackir.OpURem, stackir.OpSRem, stackir.OpAnd, stackir.OpOr, stackir.OpXor,
		stackir.OpShl, stackir.OpLShr, stackir.OpAShr:
		rhs, err := pop()
		if err != nil {
			return nil, err
		}
		lhs, err := pop()
		if err != nil {
			return nil, err
		}
		push(emit(ir.Instruction{Opcode: binOpcode(instr.Op), Type: instr.Type, Operands: [2]ir.InstructionRef{lhs, rhs}}))

	case stackir.OpNeg, stackir.OpNot:
		operand, err := pop()
		if err != nil {
			return nil, err
		}
		op := ir.OpNeg
		if instr.Op == stackir.OpNot {
			op = ir.OpNot
		}
		push(emit(ir.Instruction{Opcode: op, Type: instr.Type, Operands: [2]ir.InstructionRef{operand, ir.InvalidRef}}))

	case stackir.OpICmp:
		rhs, err := pop()
		if err != nil {
			return nil, err
		}
		lhs, err := pop()
		if err != nil {
			return nil, err
		}
		push(emit(ir.Instruction{Opcode: ir.OpICmp, Type: instr.Type, Predicate: instr.Predicate, Operands: [2]ir.InstructionRef{lhs, rhs}}))

	case stackir.OpAddrOfLocal:
		push(emit(ir.Instruction{Opcode: ir.OpAddrOfLocal, Type: instr.Type, Immediate: instr.Immediate}))

	case stackir.OpLoad:
		addr, err := pop()
		if err != nil {
			return nil, err
		}
		push(emit(ir.Instruction{Opcode: ir.OpLoad, Type: instr.Type, Operands: [2]ir.InstructionRef{addr, ir.InvalidRef}}))

	case stackir.OpStore:
		addr, err := pop()
		if err != nil {
			return nil, err
		}
		val, err := pop()
		if err != nil {
			return nil, err
		}
		emit(ir.Instruction{Opcode: ir.OpStore, Type: ir.Void, Operands: [2]ir.InstructionRef{addr, val}})

	case stackir.OpCall:
		args := make([]ir.InstructionRef, instr.Immediate)
		for k := int(instr.Immediate) - 1; k >= 0; k-- {
			v, err := pop()
			if err != nil {
				return nil, err
			}
			args[k] = v
		}
		var callee ir.InstructionRef = ir.InvalidRef
		if instr.CalleeSymbol == "" {
			v, err := pop()
			if err != nil {
				return nil, err
			}
			callee = v
		}
		callIdx := fn.Code.AddCall(ir.CallNode{Callee: callee, CalleeSymbol: instr.CalleeSymbol, Args: args})
		ref := emit(ir.Instruction{Opcode: ir.OpCall, Type: instr.Type, CallRef: callIdx})
		if instr.Type != ir.Void {
			push(ref)
		}

	case stackir.OpJump:
		targets := make([]ir.BlockRef, len(instr.Targets))
		for k, t := range instr.Targets {
			targets[k] = states[t].irRef
		}
		emit(ir.Instruction{Opcode: ir.OpJump, Type: ir.Void, Targets: targets})

	case stackir.OpBranch:
		cond, err := pop()
		if err != nil {
			return nil, err
		}
		targets := make([]ir.BlockRef, len(instr.Targets))
		for k, t := range instr.Targets {
			targets[k] = states[t].irRef
		}
		emit(ir.Instruction{Opcode: ir.OpBranch, Type: ir.Void, Operands: [2]ir.InstructionRef{cond, ir.InvalidRef}, Targets: targets})

	case stackir.OpReturn:
		v, err := pop()
		if err != nil {
			return nil, err
		}
		emit(ir.Instruction{Opcode: ir.OpReturn, Type: ir.Void, Operands: [2]ir.InstructionRef{v, ir.InvalidRef}})

	case stackir.OpReturnVoid:
		emit(ir.Instruction{Opcode: ir.OpReturnVoid, Type: ir.Void})

	default:
		return nil, b.malformed("unknown stack-IR opcode %d", instr.Op)
	}

	return stack, nil
}

// binOpcode maps a two-operand stack-IR opcode to its optimizer-IR
// equivalent.
func binOpcode(op stackir.Op) ir.Opcode {
	switch op {
	case stackir.OpAdd:
		return ir.OpAdd
	case stackir.OpSub:
		return ir.OpSub
	case stackir.OpMul:
		return ir.OpMul
	case stackir.OpUDiv:
		return ir.OpUDiv
	case stackir.OpSDiv:
		return ir.OpSDiv
	case stackir.OpURem:
		return ir.OpURem
	case stackir.OpSRem:
		return ir.OpSRem
	case stackir.OpAnd:
		return ir.OpAnd
	case stackir.OpOr:
		return ir.OpOr
	case stackir.OpXor:
		return ir.OpXor
	case stackir.OpShl:
		return ir.OpShl
	case stackir.OpLShr:
		return ir.OpLShr
	case stackir.OpAShr:
		return ir.OpAShr
	}
	return ir.OpNop
}

// constInstruction chooses the narrowest constant opcode that fits
// instr's declared type, per spec.md invariant 6 ("constants are
// canonical: the narrowest opcode that fits is always chosen").
func (b *Builder) constInstruction(fn *ir.Function, instr stackir.Instr) ir.Instruction {
	t := b.types.Lookup(instr.Type)
	switch t.Kind {
	case ir.KindBitInt:
		idx := fn.Code.AddBitIntConstant(instr.BitIntConst)
		return ir.Instruction{Opcode: ir.OpConstBitInt, Type: instr.Type, BitIntRef: idx}
	case ir.KindFloat32:
		return ir.Instruction{Opcode: ir.OpConstFloat32, Type: instr.Type, Immediate: instr.Immediate}
	case ir.KindFloat64:
		return ir.Instruction{Opcode: ir.OpConstFloat64, Type: instr.Type, Immediate: instr.Immediate}
	default:
		switch {
		case t.BitWidth <= 8:
			return ir.Instruction{Opcode: ir.OpConstInt8, Type: instr.Type, Immediate: instr.Immediate}
		case t.BitWidth <= 16:
			return ir.Instruction{Opcode: ir.OpConstInt16, Type: instr.Type, Immediate: instr.Immediate}
		case t.BitWidth <= 32:
			return ir.Instruction{Opcode: ir.OpConstInt32, Type: instr.Type, Immediate: instr.Immediate}
		default:
			return ir.Instruction{Opcode: ir.OpConstInt64, Type: instr.Type, Immediate: instr.Immediate}
		}
	}
}
