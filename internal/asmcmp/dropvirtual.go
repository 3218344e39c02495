package asmcmp

import (
	"fmt"

	"kefir/internal/config"
)

func init() {
	Register(&Pass{Name: "amd64-drop-virtual", Kind: config.Devirtual, Apply: amd64DropVirtual})
}

// amd64DropVirtual implements spec.md section 4.4's Amd64DropVirtual: it
// runs only at the Devirtual stage, after register allocation has
// resolved every virtual register to a physical one. It verifies no
// virtual register reference survives — any that do are a programmer
// error, not a data error, so they abort compilation rather than being
// silently patched over (spec.md: "programmer errors... abort
// compilation") — and removes the OpLifetimeStart/OpLifetimeEnd
// placeholder markers that only existed to bound virtual-register
// liveness for the allocator.
func amd64DropVirtual(prog *Program) error {
	out := prog.Instrs[:0]
	for i := range prog.Instrs {
		inst := prog.Instrs[i]
		if inst.Op == OpLifetimeStart || inst.Op == OpLifetimeEnd {
			continue
		}
		var stray *Reg
		regsOf(&inst, func(r *Reg) {
			if r.Virtual && stray == nil {
				stray = r
			}
		})
		if stray != nil {
			return fmt.Errorf("asmcmp: virtual register v%d survived past register allocation", stray.Num)
		}
		out = append(out, inst)
	}
	prog.Instrs = out
	return nil
}
