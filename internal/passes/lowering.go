package passes

import (
	"fmt"

	"kefir/internal/analysis"
	"kefir/internal/ir"
	"kefir/internal/pipeline"
	"kefir/internal/target"
)

func init() {
	pipeline.Register(&pipeline.Pass{Name: "lowering", Apply: lowering})
}

// LoweringPayload bundles the target facts the lowering pass needs:
// the platform handle and the lowering callback itself (spec.md section
// 6, "an optional target-lowering hook (pointer to a callback plus
// payload)"). internal/config keeps Platform and Lower unmarshalled
// (they carry behavior, not data) and nothing reads them; the driver
// builds a LoweringPayload itself (cmd/kefir-opt uses target.Generic64
// and target.LowerToRuntimeCalls) and assigns it onto the
// registered "lowering" pass before resolving a pipeline.Pipeline,
// since pipeline.Pass.Payload is the only per-pass extension point the
// registry exposes.
type LoweringPayload struct {
	Platform target.Platform
	Lower    target.LowerFunc
}

// lowering implements spec.md section 4.3's "lowering" pass: invokes the
// configured target.LowerFunc on every target-abstract instruction (wide
// BitInt arithmetic, complex arithmetic, long double, checked-overflow
// add) still present after the rest of the pipeline has run, per spec.md
// section 9's explicit ordering requirement that lowering runs after GVN
// so GVN never has to reason about opaque post-lowering helper calls. A
// missing payload or Lower hook is a no-op: a driver that never wires a
// backend gets an unlowered (but still valid) IR, not an error.
func lowering(mod *ir.Module, fn *ir.Function, cache *analysis.Cache, payload any) error {
	p, ok := payload.(LoweringPayload)
	if !ok || p.Lower == nil {
		return nil
	}

	changed := false
	for _, b := range fn.Code.LiveBlocks() {
		for _, ref := range append([]ir.InstructionRef(nil), fn.Code.Blocks[b].Instrs...) {
			inst := fn.Code.Instructions[ref]
			if inst.IsDead() || !isTargetAbstract(inst.Opcode) {
				continue
			}
			rewrote, err := p.Lower(mod, fn, p.Platform, ref)
			if err != nil {
				return fmt.Errorf("passes: lowering %s at %d: %w", opcodeName(inst.Opcode), ref, err)
			}
			if rewrote {
				changed = true
			}
		}
	}

	if changed {
		cache.Invalidate()
	}
	return nil
}

func isTargetAbstract(op ir.Opcode) bool {
	switch op {
	case ir.OpWideBitIntAdd, ir.OpWideBitIntSub, ir.OpWideBitIntMul, ir.OpWideBitIntUDiv, ir.OpWideBitIntSDiv,
		ir.OpComplexAdd, ir.OpComplexMul, ir.OpLongDoubleAdd, ir.OpBuiltinOverflowAdd:
		return true
	}
	return false
}

func opcodeName(op ir.Opcode) string {
	switch op {
	case ir.OpWideBitIntAdd:
		return "wide-bitint-add"
	case ir.OpWideBitIntSub:
		return "wide-bitint-sub"
	case ir.OpWideBitIntMul:
		return "wide-bitint-mul"
	case ir.OpWideBitIntUDiv:
		return "wide-bitint-udiv"
	case ir.OpWideBitIntSDiv:
		return "wide-bitint-sdiv"
	case ir.OpComplexAdd:
		return "complex-add"
	case ir.OpComplexMul:
		return "complex-mul"
	case ir.OpLongDoubleAdd:
		return "long-double-add"
	case ir.OpBuiltinOverflowAdd:
		return "builtin-overflow-add"
	}
	return "unknown"
}
