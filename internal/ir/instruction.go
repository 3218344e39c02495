package ir

// InstructionRef densely identifies one instruction within a
// CodeContainer. It is stable across a function's lifetime except
// through explicit remapping during cloning (spec.md glossary).
type InstructionRef int

// InvalidRef marks an absent operand or reference.
const InvalidRef = -1

// BlockRef densely identifies one block within a CodeContainer.
type BlockRef int

// Instruction is one entry in a function's dense instruction array. Its
// operand layout is uniform across opcodes (spec.md section 9): up to two
// inline operand refs, an out-of-line variable-length operand list for
// opcodes that need more (e.g. OpSwitch case values), an immediate
// payload, and side-table indices for the variable-shaped node kinds
// (calls, inline assembly, wide constants) the data model keeps in
// separate arrays.
type Instruction struct {
	Opcode    Opcode
	Type      TypeRef
	Operands  [2]InstructionRef
	Extra     []InstructionRef // out-of-line operand list (e.g. switch case values)
	Immediate int64            // small scalar payload: shift amount, local index, narrow constant value
	Predicate Predicate
	Targets   []BlockRef // terminator successor blocks

	CallRef   int // index into CodeContainer.Calls, InvalidRef if unused
	AsmRef    int // index into CodeContainer.InlineAsm, InvalidRef if unused
	BitIntRef int // index into CodeContainer.BitIntConstants, InvalidRef if unused

	Block BlockRef // producing block
	Seq   int      // position within the producing block's instruction order

	dead bool
}

// IsDead reports whether ref has been removed and tombstoned.
func (i Instruction) IsDead() bool {
	return i.dead || i.Opcode == OpTombstone
}

// NumOperands returns how many of Operands[0:2] are meaningful for i's
// opcode (beyond any Extra list).
func (i Instruction) NumOperands() int {
	switch i.Opcode {
	case OpNeg, OpNot, OpLoad, OpBranch, OpSwitch, OpReturn:
		return 1
	case OpAdd, OpSub, OpMul, OpUDiv, OpSDiv, OpURem, OpSRem,
		OpAnd, OpOr, OpXor, OpShl, OpLShr, OpAShr, OpICmp, OpFCmp, OpStore,
		OpBranchCmp, OpWideBitIntAdd, OpWideBitIntSub, OpWideBitIntMul,
		OpWideBitIntUDiv, OpWideBitIntSDiv, OpComplexAdd, OpComplexMul, OpBuiltinOverflowAdd:
		return 2
	default:
		return 0
	}
}

// CallNode carries the operands of a call that don't fit the uniform
// two-ref instruction layout: the callee and its argument list.
type CallNode struct {
	Callee        InstructionRef // indirect callee value, or InvalidRef for a direct call
	CalleeSymbol  string         // direct-call target name, empty for indirect calls
	Args          []InstructionRef
	ReturnsTwice  bool // disqualifies tail-call marking (spec.md section 4.3)
	ABITag        string
}

// InlineAsmNode carries the template and operand bindings of an inline
// assembly instruction.
type InlineAsmNode struct {
	Template string
	Inputs   []InstructionRef
	Outputs  []InstructionRef
	Clobbers []string
}
