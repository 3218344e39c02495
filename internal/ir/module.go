package ir

// Module is a translation unit's complete SSA form: one shared type
// table and the set of functions built against it (spec.md section 3).
type Module struct {
	Name      string
	Types     *TypeTable
	Functions map[string]*Function

	order []string // declaration order, for deterministic iteration/printing
}

// NewModule returns an empty module with a fresh type table.
func NewModule(name string) *Module {
	return &Module{
		Name:      name,
		Types:     NewTypeTable(),
		Functions: make(map[string]*Function),
	}
}

// AddFunction registers fn under its name, preserving insertion order for
// Functions iteration via FunctionNames.
func (m *Module) AddFunction(fn *Function) {
	if _, exists := m.Functions[fn.Name]; !exists {
		m.order = append(m.order, fn.Name)
	}
	m.Functions[fn.Name] = fn
}

// FunctionNames returns function names in declaration order.
func (m *Module) FunctionNames() []string {
	out := make([]string, len(m.order))
	copy(out, m.order)
	return out
}
