package ir

// SourceFunction is the subset of a stack-IR function that an ir.Function
// needs to retain a back-reference to (its un-optimized form, for
// diagnostics that want to show "before" and "after"). Declared here
// rather than imported from stackir so that internal/stackir can import
// internal/ir without a cycle; internal/stackir.Function implements this.
type SourceFunction interface {
	FunctionName() string
}

// Function is one function body: its parameter and return types, its
// code container, and the debug-info sidecar tracking source positions
// for every instruction in that container (spec.md section 3).
type Function struct {
	Name       string
	Params     []TypeRef
	ReturnType TypeRef
	Locals     TypeRef // aggregate type describing the stack frame's named locals

	Code  *CodeContainer
	Debug *DebugInfo

	Entry BlockRef

	Source SourceFunction // optional back-reference to the pre-SSA form
}

// NewFunction builds an empty function with a freshly allocated entry
// block and an empty code container and debug sidecar.
func NewFunction(name string, params []TypeRef, ret TypeRef) *Function {
	code := NewCodeContainer()
	entry := code.NewBlock("entry", BlockEntry)
	return &Function{
		Name:       name,
		Params:     params,
		ReturnType: ret,
		Code:       code,
		Debug:      NewDebugInfo(),
		Entry:      entry,
	}
}

// NumBlocks returns the number of live blocks in the function.
func (f *Function) NumBlocks() int {
	n := 0
	for i := range f.Code.Blocks {
		if !f.Code.Blocks[i].dead {
			n++
		}
	}
	return n
}
