package ir

// BlockFlags are the "public/private flags" spec.md section 3 assigns to
// each block.
type BlockFlags int

const (
	BlockPublic BlockFlags = 1 << iota
	BlockPrivate
	BlockEntry
)

// Block is one entry in a function's dense block array. Instructions are
// kept in an explicit ordered list rather than a literal contiguous index
// range into the instruction array: the two are semantically equivalent
// (Instrs is always the producing order within the block) but an
// explicit list stays trivially correct as passes insert and remove
// instructions, which a bare [first,last) range would not.
type Block struct {
	ID     BlockRef
	Label  string
	Instrs []InstructionRef
	Preds  []BlockRef
	Inputs []InstructionRef // one OpBlockInput instruction per SSA merge parameter
	Flags  BlockFlags

	dead bool
}

// IsDead reports whether this block has been removed (spec.md section
// 4.3, "unreachable simplification": blocks with no control predecessors
// are removed along with their phi contributions in successors).
func (b Block) IsDead() bool {
	return b.dead
}

// Terminator returns the instruction ref of b's terminator, or
// InvalidRef if b currently has none (only true mid-construction;
// invariant 2 requires exactly one once construction completes).
func (b Block) Terminator(c *CodeContainer) InstructionRef {
	if len(b.Instrs) == 0 {
		return InvalidRef
	}
	last := b.Instrs[len(b.Instrs)-1]
	if c.Instructions[last].Opcode.IsTerminator() {
		return last
	}
	return InvalidRef
}
