package target

import "kefir/internal/ir"

// Generic64 is a minimal LP64-shaped Platform: natural alignment (no
// struct packing #pragmas), sequential bit-field packing that may
// straddle storage units,
// and an 8-byte pointer/word size. It stands in for the real per-target
// ABI classification table spec.md section 1 places out of scope, so the
// rest of the pipeline has something concrete to compute layouts and
// lower against.
var Generic64 Platform = generic64{}

type generic64 struct{}

func (generic64) Name() string { return "generic64" }

func (generic64) WordSize() int { return 64 }

func (g generic64) Layout(mod *ir.Module, ref ir.TypeRef) Layout {
	t := mod.Types.Lookup(ref)
	switch t.Kind {
	case ir.KindVoid:
		return Layout{Size: 0, Align: 1}
	case ir.KindBool:
		return Layout{Size: 1, Align: 1}
	case ir.KindInt, ir.KindBitInt:
		bytes := int64(bytesForBitWidth(t.BitWidth))
		return Layout{Size: bytes, Align: naturalAlign(bytes)}
	case ir.KindFloat32:
		return Layout{Size: 4, Align: 4}
	case ir.KindFloat64:
		return Layout{Size: 8, Align: 8}
	case ir.KindLongDouble:
		return Layout{Size: 16, Align: 16}
	case ir.KindPointer, ir.KindFunction:
		return Layout{Size: 8, Align: 8}
	case ir.KindArray:
		elem := g.Layout(mod, t.Elem)
		return Layout{Size: elem.Size * t.Count, Align: elem.Align}
	case ir.KindStruct:
		return g.layoutStruct(mod, t)
	case ir.KindUnion:
		return g.layoutUnion(mod, t)
	default:
		return Layout{Size: 0, Align: 1}
	}
}

func (g generic64) layoutStruct(mod *ir.Module, t ir.Type) Layout {
	var offset, align int64 = 0, 1
	for _, m := range t.Members {
		if m.IsBitField {
			continue
		}
		ml := g.Layout(mod, m.Type)
		offset = alignUp(offset, ml.Align)
		offset += ml.Size
		if ml.Align > align {
			align = ml.Align
		}
	}
	return Layout{Size: alignUp(offset, align), Align: align}
}

func (g generic64) layoutUnion(mod *ir.Module, t ir.Type) Layout {
	var size, align int64 = 0, 1
	for _, m := range t.Members {
		ml := g.Layout(mod, m.Type)
		if ml.Size > size {
			size = ml.Size
		}
		if ml.Align > align {
			align = ml.Align
		}
	}
	return Layout{Size: alignUp(size, align), Align: align}
}

// BitFieldOffset packs bit-fields sequentially from the owner's bit
// offset zero with no storage-unit splitting avoidance: each bit-field
// simply starts immediately after the previous bit-field's bits end
// (members that are not bit-fields add nothing to the offset), the
// simplest ABI-legal strategy and the one spec.md section 3 leaves to
// "target-ABI-controlled" policy this stand-in platform must still pick.
func (generic64) BitFieldOffset(mod *ir.Module, owner ir.TypeRef, memberIndex int) int64 {
	t := mod.Types.Lookup(owner)
	if memberIndex < 0 || memberIndex >= len(t.Members) {
		return 0
	}
	var offset int64
	for i := 0; i < memberIndex; i++ {
		if t.Members[i].IsBitField {
			offset += t.Members[i].BitWidth
		}
	}
	return offset
}

func bytesForBitWidth(bits int) int {
	switch {
	case bits <= 8:
		return 1
	case bits <= 16:
		return 2
	case bits <= 32:
		return 4
	case bits <= 64:
		return 8
	default:
		return (bits + 7) / 8
	}
}

func naturalAlign(size int64) int64 {
	switch {
	case size <= 1:
		return 1
	case size <= 2:
		return 2
	case size <= 4:
		return 4
	default:
		return 8
	}
}

func alignUp(v, align int64) int64 {
	if align <= 1 {
		return v
	}
	return (v + align - 1) / align * align
}
