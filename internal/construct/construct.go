// Package construct translates a stack-IR function into SSA form,
// implementing spec.md section 4.2's seven-step algorithm: per-block
// symbolic operand stacks, block-input/phi insertion at merges,
// malformed-IR detection when predecessor stacks disagree, locals as
// memory, and debug-cursor propagation.
package construct

import (
	"fmt"

	"kefir/internal/diag"
	"kefir/internal/ir"
	"kefir/internal/stackir"
)

// Builder holds the state shared across one stack-IR function's
// construction: the module's type table (for narrowest-constant-opcode
// selection) and the diagnostic stack malformed-IR errors are pushed to.
// Grounded on internal/compiler.Compiler (teacher): a small struct
// wrapping the thing being built, with one method per source construct —
// generalized here from an AST-visitor's one-shot Compile(expr) to a
// block-at-a-time walk over an already-block-structured bytecode.
type Builder struct {
	types *ir.TypeTable
	diags *diag.Stack
}

// NewBuilder returns a Builder that interns constant/local types against
// types and reports malformed input on diags.
func NewBuilder(types *ir.TypeTable, diags *diag.Stack) *Builder {
	return &Builder{types: types, diags: diags}
}

// blockState tracks one stack-IR block's construction progress.
type blockState struct {
	irRef      ir.BlockRef
	entryStack []ir.InstructionRef
	exitStack  []ir.InstructionRef
	phis       []*ir.Phi // one per entry-stack slot, nil unless this block merges
	visited    bool
}

// Build translates src into an SSA-form ir.Function. It returns a
// non-nil error (already reflected onto b.diags as a KindMalformedIR
// diagnostic) if src's stack-IR invariants are violated.
func (b *Builder) Build(src *stackir.Function) (*ir.Function, error) {
	fn := ir.NewFunction(src.Name, src.Params, src.ReturnType)
	fn.Locals = src.Locals
	fn.Source = src

	preds := computePreds(src)

	states := make([]*blockState, len(src.Blocks))
	states[0] = &blockState{irRef: fn.Entry}
	for i := 1; i < len(src.Blocks); i++ {
		ref := fn.Code.NewBlock(src.Blocks[i].Label, 0)
		states[i] = &blockState{irRef: ref}
	}

	params := make([]ir.InstructionRef, len(src.Params))
	for i, t := range src.Params {
		params[i] = fn.Code.NewInstruction(fn.Entry, ir.Instruction{Opcode: ir.OpParam, Type: t, Immediate: int64(i)})
	}

	cursor := ir.NewCursor(fn.Debug)

	for i, blk := range src.Blocks {
		st := states[i]
		if err := b.establishEntryStack(fn, src, states, preds, i); err != nil {
			return nil, err
		}
		stack := append([]ir.InstructionRef(nil), st.entryStack...)

		for _, instr := range blk.Instrs {
			var err error
			stack, err = b.step(fn, cursor, src, states, st, params, instr, stack)
			if err != nil {
				return nil, err
			}
		}

		st.exitStack = stack
		st.visited = true
		b.patchBackedges(fn, states, i, blk, stack)
	}

	for i := range src.Blocks {
		irPreds := make([]ir.BlockRef, 0, len(preds[i]))
		for _, p := range preds[i] {
			irPreds = append(irPreds, states[p].irRef)
		}
		fn.Code.Blocks[states[i].irRef].Preds = irPreds
	}

	return fn, nil
}

// computePreds scans every block's terminator for its successor indices
// and inverts the edge list into a predecessor list per block.
func computePreds(src *stackir.Function) [][]int {
	preds := make([][]int, len(src.Blocks))
	for i, blk := range src.Blocks {
		if len(blk.Instrs) == 0 {
			continue
		}
		last := blk.Instrs[len(blk.Instrs)-1]
		for _, t := range last.Targets {
			preds[t] = append(preds[t], i)
		}
	}
	return preds
}

func (b *Builder) malformed(format string, args ...any) error {
	d := diag.New(diag.KindMalformedIR, diag.Error, fmt.Sprintf(format, args...), diag.Location{})
	b.diags.Push(d)
	return d
}
