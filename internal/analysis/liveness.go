package analysis

import "kefir/internal/ir"

// Liveness is the live-in/live-out instruction-ref sets for every block
// in a function, computed by backward dataflow iterated to a fixpoint:
// every block is re-swept until no set changes (no worklist is kept).
// A block input's (phi's) incoming value is treated as used at the end
// of the contributing predecessor, not inside the merge block itself —
// the usual SSA liveness convention, needed so mem2reg and dead-code
// elimination agree on whether a dropped predecessor value is still
// observable.
type Liveness struct {
	liveIn  map[ir.BlockRef]map[ir.InstructionRef]bool
	liveOut map[ir.BlockRef]map[ir.InstructionRef]bool
}

func computeLiveness(fn *ir.Function) *Liveness {
	blocks := fn.Code.LiveBlocks()

	uses := make(map[ir.BlockRef]map[ir.InstructionRef]bool, len(blocks))
	defs := make(map[ir.BlockRef]map[ir.InstructionRef]bool, len(blocks))
	for _, b := range blocks {
		u := make(map[ir.InstructionRef]bool)
		d := make(map[ir.InstructionRef]bool)
		for _, ref := range fn.Code.Blocks[b].Instrs {
			inst := fn.Code.Instructions[ref]
			n := inst.Opcode.NumOperands()
			for i := 0; i < n; i++ {
				op := inst.Operands[i]
				if op != ir.InvalidRef && !d[op] {
					u[op] = true
				}
			}
			for _, op := range inst.Extra {
				if op != ir.InvalidRef && !d[op] {
					u[op] = true
				}
			}
			d[ref] = true
		}
		uses[b] = u
		defs[b] = d
	}

	// Phi incoming values are used at the end of their contributing
	// predecessor block, regardless of what that predecessor's own
	// instructions define: they are live-out of that predecessor.
	phiOut := make(map[ir.BlockRef]map[ir.InstructionRef]bool)
	for i := range fn.Code.Phis {
		phi := &fn.Code.Phis[i]
		for pred, val := range phi.Incoming {
			if val == ir.InvalidRef {
				continue
			}
			if phiOut[pred] == nil {
				phiOut[pred] = make(map[ir.InstructionRef]bool)
			}
			phiOut[pred][val] = true
		}
	}

	liveIn := make(map[ir.BlockRef]map[ir.InstructionRef]bool, len(blocks))
	liveOut := make(map[ir.BlockRef]map[ir.InstructionRef]bool, len(blocks))
	for _, b := range blocks {
		liveIn[b] = make(map[ir.InstructionRef]bool)
		liveOut[b] = make(map[ir.InstructionRef]bool)
	}

	changed := true
	for changed {
		changed = false
		for _, b := range blocks {
			out := make(map[ir.InstructionRef]bool)
			term := fn.Code.Blocks[b].Terminator(fn.Code)
			if term != ir.InvalidRef {
				for _, s := range fn.Code.Instructions[term].Targets {
					for ref := range liveIn[s] {
						out[ref] = true
					}
				}
			}
			for ref := range phiOut[b] {
				out[ref] = true
			}

			in := make(map[ir.InstructionRef]bool)
			for ref := range uses[b] {
				in[ref] = true
			}
			for ref := range out {
				if !defs[b][ref] {
					in[ref] = true
				}
			}

			if !setEqual(in, liveIn[b]) || !setEqual(out, liveOut[b]) {
				liveIn[b] = in
				liveOut[b] = out
				changed = true
			}
		}
	}

	return &Liveness{liveIn: liveIn, liveOut: liveOut}
}

func setEqual(a, b map[ir.InstructionRef]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if !b[k] {
			return false
		}
	}
	return true
}

// LiveIn reports whether ref is live on entry to block b.
func (l *Liveness) LiveIn(b ir.BlockRef, ref ir.InstructionRef) bool {
	return l.liveIn[b][ref]
}

// LiveOut reports whether ref is live on exit from block b.
func (l *Liveness) LiveOut(b ir.BlockRef, ref ir.InstructionRef) bool {
	return l.liveOut[b][ref]
}
