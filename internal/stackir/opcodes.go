// Package stackir is the front-end's typed bytecode contract: a stream
// of opcodes that push and pop values on an abstract per-block operand
// stack, grouped into labeled blocks (spec.md section 4.2). It is the
// input to internal/construct's SSA construction and is otherwise opaque
// to the optimizer.
package stackir

import (
	"kefir/internal/bigint"
	"kefir/internal/ir"
)

// Op is one stack-IR opcode. Unlike the optimizer's ir.Opcode, a stack-IR
// opcode's operand count is implicit: it is always popped from the
// block's symbolic operand stack rather than carried as an explicit ref.
type Op int

const (
	OpNop Op = iota

	// OpConst pushes a constant. Its payload lives in Instr.Immediate
	// (narrow) or Instr.BitIntConst (wide _BitInt constants).
	OpConst

	// OpParam pushes the function parameter at Instr.Immediate. Per
	// spec.md section 4.2 step 2, parameters are separate entities from
	// the entry block's (empty-initialized) operand stack; a function
	// body references one by pushing it explicitly wherever it is used,
	// rather than finding it pre-seeded on the stack.
	OpParam

	OpAdd
	OpSub
	OpMul
	OpUDiv
	OpSDiv
	OpURem
	OpSRem
	OpNeg
	OpAnd
	OpOr
	OpXor
	OpNot
	OpShl
	OpLShr
	OpAShr
	OpICmp // pops two, pushes one bool; Instr.Predicate selects the comparison

	// OpDup duplicates the top of the operand stack, the standard way a
	// stack-IR producer keeps a value live across an instruction (like a
	// comparison) that would otherwise consume its only copy.
	OpDup

	OpAddrOfLocal // pushes the address of Instr.Immediate, an index into the function's Locals type
	OpLoad        // pops an address, pushes the loaded value
	OpStore       // pops a value then an address, pushes nothing

	OpCall // pops Instr.Immediate arguments then, if Instr.CalleeSymbol=="", the callee; pushes a result unless the callee returns void

	OpJump       // unconditional edge to Instr.Targets[0]
	OpBranch     // pops a condition; true edge Instr.Targets[0], false edge Instr.Targets[1]
	OpReturn     // pops a value
	OpReturnVoid // no operands

	// OpDebugCursor carries no stack effect; it updates the active
	// source location for subsequent instructions in the same block
	// (spec.md section 4.2 step 7, "pragma-style cursor updates").
	OpDebugCursor
)

// Instr is one stack-IR instruction.
type Instr struct {
	Op        Op
	Type      ir.TypeRef
	Immediate int64
	Predicate ir.Predicate

	CalleeSymbol string // OpCall direct-target name; empty means the callee is popped from the stack

	BitIntConst bigint.Digits // present only for OpConst of a _BitInt width

	Targets []int // successor block indices, for OpJump/OpBranch

	Loc ir.SourceLocation // only meaningful on OpDebugCursor
}
