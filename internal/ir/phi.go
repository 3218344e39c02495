package ir

// Phi maps each control predecessor of Block to the instruction-ref
// supplying the corresponding SSA value for Input, one of Block's block
// inputs. Invariant 3 (spec.md section 3): each phi has exactly one entry
// per control predecessor of Block.
type Phi struct {
	Block    BlockRef
	Input    InstructionRef
	Incoming map[BlockRef]InstructionRef
}
