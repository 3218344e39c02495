package passes

import (
	"kefir/internal/analysis"
	"kefir/internal/ir"
	"kefir/internal/pipeline"
)

func init() {
	pipeline.Register(&pipeline.Pass{Name: "mem2reg", Apply: mem2reg})
}

// mem2reg implements spec.md section 4.3's mem2reg pass: promotes local
// scalars whose address is not taken (beyond being loaded from or stored
// to directly) to SSA values. For each promotable local, it computes the
// set of blocks containing stores, inserts block inputs at the
// dominance frontier of that set, and rewrites loads to the current
// definition while walking the dominator tree.
func mem2reg(mod *ir.Module, fn *ir.Function, cache *analysis.Cache, _ any) error {
	if fn.Locals == ir.Void {
		return nil
	}
	localsType := mod.Types.Lookup(fn.Locals)
	if localsType.Kind != ir.KindStruct {
		return nil
	}

	addrsBySlot := make(map[int][]ir.InstructionRef)
	for i, inst := range fn.Code.Instructions {
		if inst.IsDead() || inst.Opcode != ir.OpAddrOfLocal {
			continue
		}
		slot := int(inst.Immediate)
		addrsBySlot[slot] = append(addrsBySlot[slot], ir.InstructionRef(i))
	}
	if len(addrsBySlot) == 0 {
		return nil
	}

	dom := cache.Dominators()
	frontier := dominanceFrontier(fn, dom)

	for slot, addrs := range addrsBySlot {
		if slot < 0 || slot >= len(localsType.Members) {
			continue
		}
		member := localsType.Members[slot]
		if member.IsBitField || !isScalarKind(mod.Types.Lookup(member.Type).Kind) {
			continue
		}
		if !addressNotTaken(fn, cache, addrs) {
			continue
		}
		promoteLocal(mod, fn, cache, dom, frontier, member.Type, addrs)
	}

	cache.Invalidate()
	return fn.Validate()
}

// isScalarKind reports whether k is one of the scalar kinds mem2reg can
// promote (spec.md section 4.3: "promotes local scalars").
func isScalarKind(k ir.TypeKind) bool {
	switch k {
	case ir.KindInt, ir.KindBool, ir.KindFloat32, ir.KindFloat64, ir.KindPointer:
		return true
	}
	return false
}

// addressNotTaken reports whether every use of every address-of-local
// instruction in addrs is exactly the address operand of a load or
// store — spec.md section 4.3's mem2reg disqualifier: "addresses that
// escape (passed to calls, stored to memory, converted to integer)
// disqualify a local."
func addressNotTaken(fn *ir.Function, cache *analysis.Cache, addrs []ir.InstructionRef) bool {
	ud := cache.UseDef()
	for _, addr := range addrs {
		if len(ud.PhisUsing(addr)) > 0 {
			return false
		}
		for _, user := range ud.UsesOf(addr) {
			inst := fn.Code.Instructions[user]
			switch inst.Opcode {
			case ir.OpLoad:
				if inst.Operands[0] != addr {
					return false
				}
			case ir.OpStore:
				if inst.Operands[0] != addr {
					return false
				}
			default:
				return false
			}
		}
	}
	return true
}

// dominanceFrontier computes every live block's dominance frontier via
// the standard Cytron/Ferrante/Rosen/Wegman/Zadeck construction: for
// each block with 2+ predecessors, walk each predecessor up its
// dominator chain until reaching the block's immediate dominator,
// marking every block visited along the way.
func dominanceFrontier(fn *ir.Function, dom *analysis.Dominators) map[ir.BlockRef][]ir.BlockRef {
	df := make(map[ir.BlockRef][]ir.BlockRef)
	for _, b := range fn.Code.LiveBlocks() {
		preds := fn.Code.Blocks[b].Preds
		if len(preds) < 2 {
			continue
		}
		idom := dom.IDom(b)
		for _, p := range preds {
			runner := p
			for runner != idom {
				df[runner] = appendUniqueBlock(df[runner], b)
				runner = dom.IDom(runner)
			}
		}
	}
	return df
}

// promoteLocal rewrites every load/store through addrs (all address-of
// instructions for one promotable local of type typ) into SSA form,
// inserting block inputs at the local's iterated dominance frontier and
// renaming reads to the nearest dominating definition.
func promoteLocal(mod *ir.Module, fn *ir.Function, cache *analysis.Cache, dom *analysis.Dominators,
	frontier map[ir.BlockRef][]ir.BlockRef, typ ir.TypeRef, addrs []ir.InstructionRef) {

	addrSet := make(map[ir.InstructionRef]bool, len(addrs))
	for _, a := range addrs {
		addrSet[a] = true
	}

	defBlocks := make(map[ir.BlockRef]bool)
	for _, b := range fn.Code.LiveBlocks() {
		for _, ref := range fn.Code.Blocks[b].Instrs {
			inst := fn.Code.Instructions[ref]
			if inst.Opcode == ir.OpStore && addrSet[inst.Operands[0]] {
				defBlocks[b] = true
			}
		}
	}

	phiBlocks := make(map[ir.BlockRef]*ir.Phi)
	worklist := make([]ir.BlockRef, 0, len(defBlocks))
	for b := range defBlocks {
		worklist = append(worklist, b)
	}
	for len(worklist) > 0 {
		b := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]
		for _, f := range frontier[b] {
			if _, has := phiBlocks[f]; has {
				continue
			}
			if len(fn.Code.Blocks[f].Instrs) == 0 {
				continue
			}
			first := fn.Code.Blocks[f].Instrs[0]
			input := fn.Code.InsertBefore(first, ir.Instruction{Opcode: ir.OpBlockInput, Type: typ})
			phi := fn.Code.AddPhi(f, input)
			fn.Code.Blocks[f].Inputs = append(fn.Code.Blocks[f].Inputs, input)
			phiBlocks[f] = phi
			if !defBlocks[f] {
				defBlocks[f] = true
				worklist = append(worklist, f)
			}
		}
	}

	var defaultVal ir.InstructionRef = ir.InvalidRef
	getDefault := func() ir.InstructionRef {
		if defaultVal == ir.InvalidRef {
			entryInstrs := fn.Code.Blocks[fn.Entry].Instrs
			if len(entryInstrs) == 0 {
				defaultVal = fn.Code.NewInstruction(fn.Entry, zeroValue(mod.Types, typ))
			} else {
				defaultVal = fn.Code.InsertBefore(entryInstrs[0], zeroValue(mod.Types, typ))
			}
		}
		return defaultVal
	}

	blockEnd := make(map[ir.BlockRef]ir.InstructionRef)
	for _, b := range dom.PreorderBlocks() {
		var current ir.InstructionRef
		switch {
		case phiBlocks[b] != nil:
			current = phiBlocks[b].Input
		case b == fn.Entry:
			current = getDefault()
		default:
			if v, ok := blockEnd[dom.IDom(b)]; ok {
				current = v
			} else {
				current = getDefault()
			}
		}

		for _, ref := range append([]ir.InstructionRef(nil), fn.Code.Blocks[b].Instrs...) {
			inst := fn.Code.Instructions[ref]
			if inst.IsDead() {
				continue
			}
			switch inst.Opcode {
			case ir.OpLoad:
				if addrSet[inst.Operands[0]] {
					replaceAllUses(fn, cache, ref, current)
					fn.Debug.TransferDebugInfo(ref, current)
					fn.Code.RemoveInstruction(ref)
				}
			case ir.OpStore:
				if addrSet[inst.Operands[0]] {
					current = inst.Operands[1]
					fn.Code.RemoveInstruction(ref)
				}
			}
		}
		blockEnd[b] = current
	}

	for b, phi := range phiBlocks {
		for _, pred := range fn.Code.Blocks[b].Preds {
			if v, ok := blockEnd[pred]; ok {
				phi.Incoming[pred] = v
			}
		}
	}

	cache.Invalidate()
	for _, addr := range addrs {
		if cache.UseDef().IsUnused(addr) {
			fn.Code.RemoveInstruction(addr)
		}
	}
}

// zeroValue returns the canonical zero-initialized constant instruction
// for typ, used as a promoted local's value on entry when no dominating
// store reaches it yet.
func zeroValue(types *ir.TypeTable, typ ir.TypeRef) ir.Instruction {
	t := types.Lookup(typ)
	switch t.Kind {
	case ir.KindFloat32:
		return ir.Instruction{Opcode: ir.OpConstFloat32, Type: typ}
	case ir.KindFloat64:
		return ir.Instruction{Opcode: ir.OpConstFloat64, Type: typ}
	case ir.KindPointer:
		return ir.Instruction{Opcode: ir.OpConstInt64, Type: typ}
	case ir.KindBool:
		return ir.Instruction{Opcode: ir.OpConstInt8, Type: typ}
	default:
		switch {
		case t.BitWidth <= 8:
			return ir.Instruction{Opcode: ir.OpConstInt8, Type: typ}
		case t.BitWidth <= 16:
			return ir.Instruction{Opcode: ir.OpConstInt16, Type: typ}
		case t.BitWidth <= 32:
			return ir.Instruction{Opcode: ir.OpConstInt32, Type: typ}
		default:
			return ir.Instruction{Opcode: ir.OpConstInt64, Type: typ}
		}
	}
}
