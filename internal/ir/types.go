// Package ir implements the optimizer's SSA data model: a module of
// functions, each owning a code_container of dense-indexed instructions,
// blocks, phis, call and inline-assembly nodes, plus a debug-info
// sidecar. See the package's companion files for the container, the
// instruction/opcode model, and the debug-info sidecar.
package ir

import "fmt"

// TypeKind enumerates the structural categories an IR Type can take.
type TypeKind int

const (
	KindVoid TypeKind = iota
	KindBool
	KindInt    // fixed-width native integer (8/16/32/64 bits)
	KindBitInt // arbitrary-width _BitInt(N), N up to BITINT_MAXWIDTH
	KindFloat32
	KindFloat64
	KindLongDouble
	KindPointer
	KindArray
	KindStruct
	KindUnion
	KindFunction
)

// TypeRef is a dense index into a Module's TypeTable. The zero value
// refers to the canonical void type, which every TypeTable pre-interns.
type TypeRef int

// Void is the TypeRef every TypeTable reserves at index 0.
const Void TypeRef = 0

// Member describes one field of a struct or union type: its type and its
// bit offset within the aggregate (ABI-controlled bit-field allocation,
// spec.md section 3).
type Member struct {
	Type       TypeRef
	BitOffset  int64
	BitWidth   int64 // nonzero only for declared bit-fields
	IsBitField bool
}

// Type is one entry in a module's flat type table. Only the fields
// relevant to Kind are meaningful; the rest are zero.
type Type struct {
	Kind     TypeKind
	Align    int64
	BitWidth int    // KindInt, KindBitInt: width in bits
	Signed   bool   // KindInt, KindBitInt: default signedness of the declared type
	Elem     TypeRef // KindPointer, KindArray: pointee/element type
	Count    int64   // KindArray: element count
	Members  []Member
	Params   []TypeRef
	Return   TypeRef
	Variadic bool
}

// key returns a canonical string encoding used to intern structurally
// equal types once, per spec.md section 3 ("Type identity is by
// structural equality within a module's type table").
func (t Type) key() string {
	return fmt.Sprintf("%d|%d|%d|%t|%d|%d|%v|%v|%d|%t",
		t.Kind, t.Align, t.BitWidth, t.Signed, t.Elem, t.Count, t.Members, t.Params, t.Return, t.Variadic)
}

// TypeTable is a module's structural-equality-deduplicated type store.
type TypeTable struct {
	types []Type
	index map[string]TypeRef
}

// NewTypeTable returns a TypeTable with the canonical void type interned
// at index Void.
func NewTypeTable() *TypeTable {
	tt := &TypeTable{index: make(map[string]TypeRef)}
	voidRef := tt.Intern(Type{Kind: KindVoid})
	if voidRef != Void {
		panic("ir: void type must intern to TypeRef 0")
	}
	return tt
}

// Intern returns the TypeRef for t, reusing an existing structurally
// equal entry when one exists.
func (tt *TypeTable) Intern(t Type) TypeRef {
	k := t.key()
	if ref, ok := tt.index[k]; ok {
		return ref
	}
	ref := TypeRef(len(tt.types))
	tt.types = append(tt.types, t)
	tt.index[k] = ref
	return ref
}

// Lookup returns the Type stored at ref.
func (tt *TypeTable) Lookup(ref TypeRef) Type {
	return tt.types[ref]
}

// Len reports how many distinct types are interned.
func (tt *TypeTable) Len() int {
	return len(tt.types)
}
