// Package target is the bridge between the optimizer core and the
// target-specific facts and lowering behavior spec.md section 1 places
// out of scope as external collaborators: ABI type layout and the
// backend's own instruction selection. The core only ever reaches these
// through the Platform interface and the LowerFunc hook (spec.md section
// 6, "a target-platform handle" and "optional target-lowering hook").
package target

import "kefir/internal/ir"

// Layout is the size and alignment a Platform computes for one IR
// type: the per-type layout computation service spec.md section 6
// requires from the front-end's target-platform handle.
type Layout struct {
	Size  int64
	Align int64
}

// Platform supplies the ABI-controlled facts the optimizer core consumes
// but never computes itself: integer/float sizes and alignments,
// bit-field allocation, and per-type layout (spec.md section 6).
// A real implementation is an external collaborator (an ABI
// classification table, out of scope per spec.md section 1); Generic64
// below is a minimal stand-in so the pipeline is exercisable without one.
type Platform interface {
	// Name identifies the platform for diagnostics (e.g. "amd64-sysv").
	Name() string

	// WordSize is the native machine word width in bits. Widths at or
	// below it fold to native arithmetic before entering the BigInt
	// kernel (spec.md section 3); widths above it need the kernel or a
	// lowered runtime helper.
	WordSize() int

	// Layout returns the size and alignment of t.
	Layout(mod *ir.Module, t ir.TypeRef) Layout

	// BitFieldOffset returns the bit offset of member within owner,
	// given the bit offset the front-end already assigned to the
	// members before it (ABI-specific bit-field packing, spec.md
	// section 3, "Bit-field allocation is target-ABI-controlled").
	BitFieldOffset(mod *ir.Module, owner ir.TypeRef, memberIndex int) int64
}

// LowerFunc rewrites the target-abstract instruction at ref in fn (wide
// BitInt arithmetic, complex arithmetic, long double, checked-overflow
// add — spec.md section 4.3's "lowering" pass) into a sequence the
// backend can handle. It reports whether it changed anything; a false
// return with a nil error means ref was left as-is (e.g. a width the
// backend natively supports). The hook owns inserting any new
// instructions and must transfer ref's debug-info entry itself if it
// replaces ref with a differently-identified instruction (spec.md
// section 4.5).
type LowerFunc func(mod *ir.Module, fn *ir.Function, platform Platform, ref ir.InstructionRef) (bool, error)
