package ir

import (
	"fmt"
	"strings"

	"github.com/llir/llvm/ir/constant"
	"github.com/llir/llvm/ir/types"
)

// TypeString renders t's canonical textual form. Fixed-width integer
// types borrow llir/llvm's type grammar (iN) so that diagnostics read in
// a syntax already familiar from LLVM-based tooling in the pack, rather
// than a bespoke notation invented for this module; _BitInt types render
// as _BitInt(N).
func (tt *TypeTable) TypeString(ref TypeRef) string {
	t := tt.Lookup(ref)
	switch t.Kind {
	case KindVoid:
		return "void"
	case KindBool:
		return "i1"
	case KindInt:
		return types.NewInt(uint64(t.BitWidth)).String()
	case KindBitInt:
		return fmt.Sprintf("_BitInt(%d)", t.BitWidth)
	case KindFloat32:
		return "float"
	case KindFloat64:
		return "double"
	case KindLongDouble:
		return "x86_fp80"
	case KindPointer:
		return tt.TypeString(t.Elem) + "*"
	case KindArray:
		return fmt.Sprintf("[%d x %s]", t.Count, tt.TypeString(t.Elem))
	case KindStruct:
		fields := make([]string, len(t.Members))
		for i, m := range t.Members {
			fields[i] = tt.TypeString(m.Type)
		}
		return "{ " + strings.Join(fields, ", ") + " }"
	case KindUnion:
		return "<union>"
	case KindFunction:
		params := make([]string, len(t.Params))
		for i, p := range t.Params {
			params[i] = tt.TypeString(p)
		}
		return fmt.Sprintf("%s (%s)", tt.TypeString(t.Return), strings.Join(params, ", "))
	}
	return "<unknown>"
}

// ConstantString renders a narrow integer constant's canonical decimal
// text via llir/llvm's constant package, giving this module's constant
// pretty-printing the same textual form LLVM-based tools in the pack
// use rather than a hand-rolled formatter.
func ConstantString(width int, value int64) string {
	c := constant.NewInt(types.NewInt(uint64(width)), value)
	return c.String()
}

// Print renders fn as a readable listing: block labels and one line per
// instruction (its ref and opcode name); phi incoming values and
// operands are not printed. It is a debugging aid,
// not a stable serialization format (there is no parser for it).
func (fn *Function) Print(types *TypeTable) string {
	var b strings.Builder
	fmt.Fprintf(&b, "function %s(", fn.Name)
	for i, p := range fn.Params {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(types.TypeString(p))
	}
	fmt.Fprintf(&b, ") -> %s {\n", types.TypeString(fn.ReturnType))

	for _, blk := range fn.Code.LiveBlocks() {
		block := fn.Code.Blocks[blk]
		fmt.Fprintf(&b, "%s:\n", block.Label)
		for _, ref := range block.Instrs {
			inst := fn.Code.Instructions[ref]
			fmt.Fprintf(&b, "  %%%d = %s\n", ref, opcodeName(inst.Opcode))
		}
	}
	b.WriteString("}\n")
	return b.String()
}

func opcodeName(op Opcode) string {
	names := [...]string{
		"nop", "tombstone", "blockinput", "param",
		"const.i8", "const.i16", "const.i32", "const.i64", "const.bitint",
		"const.f32", "const.f64",
		"add", "sub", "mul", "udiv", "sdiv", "urem", "srem", "neg",
		"and", "or", "xor", "not", "shl", "lshr", "ashr",
		"icmp", "fcmp",
		"addrof.local", "load", "store",
		"call", "tailcall", "inlineasm",
		"jump", "branch", "branchcmp", "switch", "return", "return.void", "unreachable",
		"wide.add", "wide.sub", "wide.mul", "wide.udiv", "wide.sdiv",
		"complex.add", "complex.mul", "longdouble.add", "overflow.add",
	}
	if int(op) >= 0 && int(op) < len(names) {
		return names[op]
	}
	return "?"
}
