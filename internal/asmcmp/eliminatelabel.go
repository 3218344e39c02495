package asmcmp

import (
	"kefir/internal/config"
)

func init() {
	Register(&Pass{Name: "amd64-eliminate-label", Kind: config.Devirtual, Apply: amd64EliminateLabel})
}

// amd64EliminateLabel implements spec.md section 4.4's
// Amd64EliminateLabel: it runs only at the Devirtual stage, once
// Amd64PropagateJump has had every chance to retarget jumps away from
// jump-only labels, and removes any OpLabel no longer referenced by any
// jump's Target. This package has no relocation table or exception-table
// concept, so only the jump-target reference kind spec.md mentions is
// checked.
func amd64EliminateLabel(prog *Program) error {
	referenced := make(map[string]bool)
	for _, inst := range prog.Instrs {
		if inst.Op == OpJmp || inst.Op == OpJcc {
			referenced[inst.Target] = true
		}
	}

	out := prog.Instrs[:0]
	for _, inst := range prog.Instrs {
		if inst.Op == OpLabel && !referenced[inst.Label] {
			continue
		}
		out = append(out, inst)
	}
	prog.Instrs = out
	return nil
}
