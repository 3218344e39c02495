package ir

import "kefir/internal/bigint"

// CodeContainer is a function's arena: dense instruction, block, phi,
// call-node, and inline-assembly-node pools, plus a free-list of
// reclaimable instruction refs. Nothing in a CodeContainer is
// individually owned or freed; removal tombstones a slot so the pool can
// reuse it (spec.md section 3, "Lifecycles").
type CodeContainer struct {
	Instructions []Instruction
	Blocks       []Block
	Phis         []Phi
	Calls        []CallNode
	InlineAsm    []InlineAsmNode

	BitIntConstants []bigint.Digits

	freeInstructions []InstructionRef
}

// NewCodeContainer returns an empty container.
func NewCodeContainer() *CodeContainer {
	return &CodeContainer{}
}

// NewBlock appends a new, empty block and returns its ref.
func (c *CodeContainer) NewBlock(label string, flags BlockFlags) BlockRef {
	ref := BlockRef(len(c.Blocks))
	c.Blocks = append(c.Blocks, Block{ID: ref, Label: label, Flags: flags})
	return ref
}

// NewInstruction allocates an instruction in block, reusing a tombstoned
// slot from the free-list before growing the pool, and appends it to the
// block's instruction order.
func (c *CodeContainer) NewInstruction(block BlockRef, inst Instruction) InstructionRef {
	inst.Block = block
	clearUnusedSideTableRefs(&inst)
	clearUnusedOperands(&inst)
	inst.dead = false

	var ref InstructionRef
	if n := len(c.freeInstructions); n > 0 {
		ref = c.freeInstructions[n-1]
		c.freeInstructions = c.freeInstructions[:n-1]
		c.Instructions[ref] = inst
	} else {
		ref = InstructionRef(len(c.Instructions))
		c.Instructions = append(c.Instructions, inst)
	}

	c.Instructions[ref].Seq = len(c.Blocks[block].Instrs)
	c.Blocks[block].Instrs = append(c.Blocks[block].Instrs, ref)
	return ref
}

// InsertBefore allocates an instruction immediately before `before`
// within the same block, used by passes (e.g. fusion, lowering) that
// replace one instruction with a short sequence.
func (c *CodeContainer) InsertBefore(before InstructionRef, inst Instruction) InstructionRef {
	block := c.Instructions[before].Block
	instrs := c.Blocks[block].Instrs
	pos := -1
	for i, r := range instrs {
		if r == before {
			pos = i
			break
		}
	}
	if pos < 0 {
		panic("ir: InsertBefore: instruction not found in its own block")
	}

	inst.Block = block
	clearUnusedSideTableRefs(&inst)
	clearUnusedOperands(&inst)

	var ref InstructionRef
	if n := len(c.freeInstructions); n > 0 {
		ref = c.freeInstructions[n-1]
		c.freeInstructions = c.freeInstructions[:n-1]
		c.Instructions[ref] = inst
	} else {
		ref = InstructionRef(len(c.Instructions))
		c.Instructions = append(c.Instructions, inst)
	}

	newInstrs := make([]InstructionRef, 0, len(instrs)+1)
	newInstrs = append(newInstrs, instrs[:pos]...)
	newInstrs = append(newInstrs, ref)
	newInstrs = append(newInstrs, instrs[pos:]...)
	c.Blocks[block].Instrs = newInstrs
	c.renumberSeq(block)
	return ref
}

// RemoveInstruction tombstones ref: it is marked dead, removed from its
// block's order, and pushed onto the free-list for reuse.
func (c *CodeContainer) RemoveInstruction(ref InstructionRef) {
	inst := &c.Instructions[ref]
	if inst.dead {
		return
	}
	block := inst.Block
	instrs := c.Blocks[block].Instrs
	for i, r := range instrs {
		if r == ref {
			c.Blocks[block].Instrs = append(instrs[:i], instrs[i+1:]...)
			break
		}
	}
	inst.Opcode = OpTombstone
	inst.dead = true
	inst.Operands = [2]InstructionRef{InvalidRef, InvalidRef}
	inst.Extra = nil
	inst.Targets = nil
	c.freeInstructions = append(c.freeInstructions, ref)
	c.renumberSeq(block)
}

// ReplaceInstruction overwrites ref's opcode/operands/type in place,
// preserving its identity (so existing uses keep referring to it) —
// the standard way a pass like constant folding or compare-branch fuse
// turns one instruction into another without a separate debug-info
// transfer, since the ref itself does not change.
func (c *CodeContainer) ReplaceInstruction(ref InstructionRef, replacement Instruction) {
	block := c.Instructions[ref].Block
	seq := c.Instructions[ref].Seq
	replacement.Block = block
	replacement.Seq = seq
	clearUnusedSideTableRefs(&replacement)
	clearUnusedOperands(&replacement)
	c.Instructions[ref] = replacement
}

// clearUnusedSideTableRefs normalizes CallRef/AsmRef/BitIntRef to
// InvalidRef for any opcode that doesn't index the corresponding
// side-table array, so a zero value (a legitimate index) is never
// mistaken for "unused" — the zero value only means "unused" after this
// normalization has run.
func clearUnusedSideTableRefs(inst *Instruction) {
	if inst.Opcode != OpCall && inst.Opcode != OpTailCall {
		inst.CallRef = InvalidRef
	}
	if inst.Opcode != OpInlineAsm {
		inst.AsmRef = InvalidRef
	}
	if inst.Opcode != OpConstBitInt {
		inst.BitIntRef = InvalidRef
	}
}

// clearUnusedOperands forces every Operands slot beyond what inst's
// opcode actually uses to InvalidRef, so a caller that leaves an unused
// slot at its Go zero value (0, a legitimate instruction ref) never gets
// misread as "operand 0" by code that checks for InvalidRef.
func clearUnusedOperands(inst *Instruction) {
	for i := inst.Opcode.NumOperands(); i < len(inst.Operands); i++ {
		inst.Operands[i] = InvalidRef
	}
}

func (c *CodeContainer) renumberSeq(block BlockRef) {
	for i, r := range c.Blocks[block].Instrs {
		c.Instructions[r].Seq = i
	}
}

// RemoveBlock marks a block dead. Callers must first remove it from
// every successor's Preds and from any phi Incoming maps that reference
// it (see passes/unreachable.go), per spec.md section 4.3.
func (c *CodeContainer) RemoveBlock(ref BlockRef) {
	c.Blocks[ref].dead = true
	c.Blocks[ref].Instrs = nil
	c.Blocks[ref].Preds = nil
}

// AddPhi registers a phi for a newly created block input, per spec.md
// section 4.2 step 5.
func (c *CodeContainer) AddPhi(block BlockRef, input InstructionRef) *Phi {
	c.Phis = append(c.Phis, Phi{Block: block, Input: input, Incoming: make(map[BlockRef]InstructionRef)})
	return &c.Phis[len(c.Phis)-1]
}

// PhiFor returns the phi owning input, or nil if input is not a block
// input.
func (c *CodeContainer) PhiFor(input InstructionRef) *Phi {
	for i := range c.Phis {
		if c.Phis[i].Input == input {
			return &c.Phis[i]
		}
	}
	return nil
}

// AddCall registers a call node and returns its index.
func (c *CodeContainer) AddCall(node CallNode) int {
	c.Calls = append(c.Calls, node)
	return len(c.Calls) - 1
}

// AddInlineAsm registers an inline-assembly node and returns its index.
func (c *CodeContainer) AddInlineAsm(node InlineAsmNode) int {
	c.InlineAsm = append(c.InlineAsm, node)
	return len(c.InlineAsm) - 1
}

// AddBitIntConstant registers a wide constant's digit buffer and returns
// its index.
func (c *CodeContainer) AddBitIntConstant(digits bigint.Digits) int {
	c.BitIntConstants = append(c.BitIntConstants, digits)
	return len(c.BitIntConstants) - 1
}

// LiveBlocks iterates non-dead blocks in ascending ref order.
func (c *CodeContainer) LiveBlocks() []BlockRef {
	var out []BlockRef
	for i := range c.Blocks {
		if !c.Blocks[i].dead {
			out = append(out, BlockRef(i))
		}
	}
	return out
}

// Clone deep-copies c, including phi incoming maps, so a caller can
// snapshot a function before a risky transform and restore it verbatim
// on failure (internal/pipeline's poison-on-error semantics, spec.md
// section 4.3: "partial results are not committed").
func (c *CodeContainer) Clone() *CodeContainer {
	clone := &CodeContainer{
		Instructions:     make([]Instruction, len(c.Instructions)),
		Blocks:           make([]Block, len(c.Blocks)),
		Phis:             make([]Phi, len(c.Phis)),
		Calls:            make([]CallNode, len(c.Calls)),
		InlineAsm:        make([]InlineAsmNode, len(c.InlineAsm)),
		BitIntConstants:  append([]bigint.Digits(nil), c.BitIntConstants...),
		freeInstructions: append([]InstructionRef(nil), c.freeInstructions...),
	}
	for i, inst := range c.Instructions {
		clone.Instructions[i] = inst
		clone.Instructions[i].Extra = append([]InstructionRef(nil), inst.Extra...)
		clone.Instructions[i].Targets = append([]BlockRef(nil), inst.Targets...)
	}
	for i, b := range c.Blocks {
		clone.Blocks[i] = b
		clone.Blocks[i].Instrs = append([]InstructionRef(nil), b.Instrs...)
		clone.Blocks[i].Preds = append([]BlockRef(nil), b.Preds...)
	}
	for i, p := range c.Phis {
		clone.Phis[i] = p
		clone.Phis[i].Incoming = make(map[BlockRef]InstructionRef, len(p.Incoming))
		for k, v := range p.Incoming {
			clone.Phis[i].Incoming[k] = v
		}
	}
	for i, call := range c.Calls {
		clone.Calls[i] = call
		clone.Calls[i].Args = append([]InstructionRef(nil), call.Args...)
	}
	for i, asm := range c.InlineAsm {
		clone.InlineAsm[i] = asm
		clone.InlineAsm[i].Inputs = append([]InstructionRef(nil), asm.Inputs...)
		clone.InlineAsm[i].Outputs = append([]InstructionRef(nil), asm.Outputs...)
		clone.InlineAsm[i].Clobbers = append([]string(nil), asm.Clobbers...)
	}
	return clone
}

// Allocator abstracts the allocation strategy behind a CodeContainer, per
// spec.md section 5 ("Memory is acquired through an allocator handle...
// the allocator handle abstracts over malloc/free and supports arena
// variants for short-lived analyses"). The default implementation is
// ordinary Go slices; no pack example carries a suitable arena-allocator
// library for this shape (see DESIGN.md).
type Allocator interface {
	NewContainer() *CodeContainer
	Release(*CodeContainer)
}

// SliceAllocator is the default Allocator: containers are plain Go
// slices, released by dropping every reference so the garbage collector
// reclaims them — the natural Go rendition of "every allocation has a
// matched release on all exit paths" (spec.md section 5).
type SliceAllocator struct{}

// NewContainer implements Allocator.
func (SliceAllocator) NewContainer() *CodeContainer { return NewCodeContainer() }

// Release implements Allocator.
func (SliceAllocator) Release(c *CodeContainer) {
	c.Instructions = nil
	c.Blocks = nil
	c.Phis = nil
	c.Calls = nil
	c.InlineAsm = nil
	c.BitIntConstants = nil
	c.freeInstructions = nil
}
