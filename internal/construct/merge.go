package construct

import (
	"kefir/internal/ir"
	"kefir/internal/stackir"
)

// establishEntryStack computes block i's entry operand stack exactly
// once, the first time construction reaches it (spec.md section 4.2
// steps 4-5). A block with exactly one predecessor passes its
// predecessor's exit stack through untouched (a non-entry block with no
// predecessor is reported as malformed); a block with more than one
// predecessor gets one block input and phi per live stack slot, with
// incoming values filled in from every already-visited predecessor
// immediately, and from not-yet-visited (back-edge) predecessors later
// via patchBackedges.
func (b *Builder) establishEntryStack(fn *ir.Function, src *stackir.Function, states []*blockState, preds [][]int, i int) error {
	st := states[i]
	if i == 0 {
		st.entryStack = []ir.InstructionRef{}
		return nil
	}
	if st.entryStack != nil {
		return nil
	}

	ps := preds[i]
	if len(ps) == 0 {
		return b.malformed("block %q is unreachable (no predecessors) but is not the entry block", src.Blocks[i].Label)
	}

	if len(ps) == 1 {
		pred := states[ps[0]]
		if !pred.visited {
			return b.malformed("block %q reads from predecessor %q before it is constructed", src.Blocks[i].Label, src.Blocks[ps[0]].Label)
		}
		st.entryStack = append([]ir.InstructionRef(nil), pred.exitStack...)
		return nil
	}

	depth := -1
	var template []ir.InstructionRef
	for _, p := range ps {
		if states[p].visited {
			depth = len(states[p].exitStack)
			template = states[p].exitStack
			break
		}
	}
	if depth < 0 {
		return b.malformed("block %q merges control but has no already-constructed predecessor to determine its operand-stack depth", src.Blocks[i].Label)
	}
	for _, p := range ps {
		if states[p].visited && len(states[p].exitStack) != depth {
			return b.malformed("mismatched operand stack depth at merge into block %q: predecessor %q has depth %d, expected %d",
				src.Blocks[i].Label, src.Blocks[p].Label, len(states[p].exitStack), depth)
		}
	}

	st.entryStack = make([]ir.InstructionRef, depth)
	st.phis = make([]*ir.Phi, depth)
	for slot := 0; slot < depth; slot++ {
		typ := fn.Code.Instructions[template[slot]].Type
		inputRef := fn.Code.NewInstruction(st.irRef, ir.Instruction{Opcode: ir.OpBlockInput, Type: typ})
		phi := fn.Code.AddPhi(st.irRef, inputRef)
		st.entryStack[slot] = inputRef
		st.phis[slot] = phi
	}
	for _, p := range ps {
		if !states[p].visited {
			continue
		}
		for slot, phi := range st.phis {
			phi.Incoming[states[p].irRef] = states[p].exitStack[slot]
		}
	}
	return nil
}

// patchBackedges fills in Incoming[sourceBlock] = value for every
// already-established phi at one of src.Blocks[i]'s successors that has
// already been visited — i.e. every successor reached via a back edge,
// since a forward successor is only established once this block's exit
// stack already exists (handled instead by establishEntryStack's normal
// path).
func (b *Builder) patchBackedges(fn *ir.Function, states []*blockState, i int, blk stackir.Block, exitStack []ir.InstructionRef) {
	if len(blk.Instrs) == 0 {
		return
	}
	last := blk.Instrs[len(blk.Instrs)-1]
	for _, t := range last.Targets {
		target := states[t]
		if target.phis == nil || !target.visited {
			continue
		}
		for slot, phi := range target.phis {
			if phi == nil {
				continue
			}
			if slot < len(exitStack) {
				phi.Incoming[states[i].irRef] = exitStack[slot]
			}
		}
	}
}
