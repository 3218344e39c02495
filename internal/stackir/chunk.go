package stackir

import "kefir/internal/ir"

// Block is one labeled run of stack-IR instructions, the stack-IR analog
// of a basic block. Its operand-stack depth on entry is implicit:
// construction computes it by walking predecessors (spec.md section 4.2
// step 4).
type Block struct {
	Label  string
	Instrs []Instr
}

// Function is one stack-IR function: its signature, its locals layout,
// and its blocks in declaration order. This is deliberately the
// teacher's flat Chunk shape (internal/bytecode.Chunk) generalized from
// a single linear []byte plus jump offsets to explicit labeled blocks
// carrying typed instructions, matching spec.md's description of the
// stack IR as block-structured rather than purely linear.
type Function struct {
	Name       string
	Params     []ir.TypeRef
	ReturnType ir.TypeRef
	Locals     ir.TypeRef

	Blocks []Block
}

// FunctionName implements ir.SourceFunction.
func (f *Function) FunctionName() string {
	return f.Name
}

// NewFunction returns an empty stack-IR function with a single empty
// entry block.
func NewFunction(name string, params []ir.TypeRef, ret, locals ir.TypeRef) *Function {
	return &Function{
		Name:       name,
		Params:     params,
		ReturnType: ret,
		Locals:     locals,
		Blocks:     []Block{{Label: "entry"}},
	}
}

// AddBlock appends a new, empty labeled block and returns its index.
func (f *Function) AddBlock(label string) int {
	f.Blocks = append(f.Blocks, Block{Label: label})
	return len(f.Blocks) - 1
}

// Emit appends instr to the block at index blk.
func (f *Function) Emit(blk int, instr Instr) {
	f.Blocks[blk].Instrs = append(f.Blocks[blk].Instrs, instr)
}

// Module is the stack-IR input to module construction: a shared type
// table and the set of functions to translate.
type Module struct {
	Name      string
	Types     *ir.TypeTable
	Functions []*Function
}

// NewModule returns an empty stack-IR module with a fresh type table.
func NewModule(name string) *Module {
	return &Module{Name: name, Types: ir.NewTypeTable()}
}

// AddFunction registers fn.
func (m *Module) AddFunction(fn *Function) {
	m.Functions = append(m.Functions, fn)
}
