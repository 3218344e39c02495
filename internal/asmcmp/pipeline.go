package asmcmp

import (
	"fmt"

	"kefir/internal/config"
)

// Pipeline is a resolved, ready-to-run sequence of asmcmp passes built
// from a config.AsmcmpConfig, mirroring internal/pipeline.Pipeline's
// resolve-once-at-construction shape so an unknown pass name fails at
// construction rather than mid-run.
type Pipeline struct {
	passes []*Pass
}

// New resolves cfg.Passes against the process-wide registry.
func New(cfg config.AsmcmpConfig) (*Pipeline, error) {
	passes, err := resolve(cfg.Passes)
	if err != nil {
		return nil, err
	}
	return &Pipeline{passes: passes}, nil
}

// RunVirtual applies every resolved pass whose Kind is Virtual or Both,
// in configured order — the stage that runs before register allocation
// (spec.md section 4.4).
func (p *Pipeline) RunVirtual(prog *Program) error {
	return p.run(prog, config.Virtual)
}

// RunDevirtual applies every resolved pass whose Kind is Devirtual or
// Both, in configured order — the stage that runs after register
// allocation.
func (p *Pipeline) RunDevirtual(prog *Program) error {
	return p.run(prog, config.Devirtual)
}

// run applies every pass matching stage, per spec.md section 4.4's "the
// pipeline apply function takes a kind filter and runs only matching
// passes." Asmcmp passes never fail for data reasons once construction
// has succeeded (spec.md section 4.4): an error here means a programmer
// error (unknown pass, malformed instruction) and aborts the whole
// compilation rather than rolling back, unlike internal/pipeline's
// per-function poison semantics.
func (p *Pipeline) run(prog *Program, stage config.AsmcmpPassKind) error {
	for _, pass := range p.passes {
		if pass.Kind != stage && pass.Kind != config.Both {
			continue
		}
		if err := pass.Apply(prog); err != nil {
			return fmt.Errorf("asmcmp: pass %q failed: %w", pass.Name, err)
		}
	}
	return nil
}
