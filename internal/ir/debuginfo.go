package ir

// SourceLocation is a single position in the original translation unit,
// attached to instructions for diagnostics and line tables.
type SourceLocation struct {
	File   string
	Line   int
	Column int
}

// DebugInfo is the sidecar mapping instruction refs to source locations
// and in-scope local variables, kept separate from Instruction itself so
// that debug-free builds (and most pass-internal transforms) never pay
// for it (spec.md section 4.5).
type DebugInfo struct {
	Locations map[InstructionRef]SourceLocation
	Locals    map[InstructionRef][]LocalVar
}

// LocalVar names a source-level variable live at a given instruction,
// carried purely for diagnostics; it has no effect on optimization.
type LocalVar struct {
	Name  string
	Type  TypeRef
	Slot  int
}

// NewDebugInfo returns an empty sidecar.
func NewDebugInfo() *DebugInfo {
	return &DebugInfo{
		Locations: make(map[InstructionRef]SourceLocation),
		Locals:    make(map[InstructionRef][]LocalVar),
	}
}

// SetLocation records loc for ref, overwriting any prior entry.
func (d *DebugInfo) SetLocation(ref InstructionRef, loc SourceLocation) {
	d.Locations[ref] = loc
}

// TransferDebugInfo moves from's location and local-variable entries to
// to, then removes from's entries. Every pass that replaces one
// instruction with another (constant folding's rewrite, compare-branch
// fuse, peephole simplification) must call this so the replacement
// keeps pointing at the same source position (spec.md section 4.5,
// "Debug info must be transferred, not dropped, when an instruction is
// replaced during optimization").
func (d *DebugInfo) TransferDebugInfo(from, to InstructionRef) {
	if from == to {
		return
	}
	if loc, ok := d.Locations[from]; ok {
		d.Locations[to] = loc
		delete(d.Locations, from)
	}
	if locals, ok := d.Locals[from]; ok {
		d.Locals[to] = append(d.Locals[to], locals...)
		delete(d.Locals, from)
	}
}

// Clone deep-copies d, for the same poison-rollback snapshot use as
// CodeContainer.Clone.
func (d *DebugInfo) Clone() *DebugInfo {
	clone := NewDebugInfo()
	for ref, loc := range d.Locations {
		clone.Locations[ref] = loc
	}
	for ref, locals := range d.Locals {
		clone.Locals[ref] = append([]LocalVar(nil), locals...)
	}
	return clone
}

// Cursor tracks the "current source location" while a stack-IR-to-SSA
// construction walk or a pass that synthesizes new instructions is
// running, so every newly created instruction can be stamped without
// threading a SourceLocation through every call site.
type Cursor struct {
	debug *DebugInfo
	loc   SourceLocation
}

// NewCursor returns a cursor writing into debug.
func NewCursor(debug *DebugInfo) *Cursor {
	return &Cursor{debug: debug}
}

// SetLocation updates the cursor's current position; subsequent Stamp
// calls use it until the next SetLocation.
func (cur *Cursor) SetLocation(loc SourceLocation) {
	cur.loc = loc
}

// Stamp records the cursor's current location against ref.
func (cur *Cursor) Stamp(ref InstructionRef) {
	if cur.debug == nil {
		return
	}
	cur.debug.SetLocation(ref, cur.loc)
}
