package pipeline

import (
	"fmt"

	"github.com/dustin/go-humanize"

	"kefir/internal/analysis"
	"kefir/internal/config"
	"kefir/internal/ir"
)

// Logger receives one line of pass telemetry per function per pass.
// Drivers that don't want it can pass a no-op Logger.
type Logger interface {
	Logf(format string, args ...any)
}

// Pipeline is a resolved, ready-to-run sequence of passes built from a
// config.Config. Resolution happens once, at New, so an unknown pass
// name is a construction-time failure rather than a mid-run one
// (spec.md section 4.3).
type Pipeline struct {
	passes []*Pass
	cfg    config.Config
	log    Logger
}

// New resolves cfg.Passes against the process-wide registry.
func New(cfg config.Config, log Logger) (*Pipeline, error) {
	passes, err := resolve(cfg.Passes)
	if err != nil {
		return nil, err
	}
	return &Pipeline{passes: passes, cfg: cfg, log: log}, nil
}

// Run applies every resolved pass to every function in mod, one pass at
// a time across the whole module (a function-at-a-time traversal within
// each pass, so adjacent passes on the same function share cache), per
// spec.md section 4.3. Analyses are invalidated between passes.
//
// If a pass fails on a function, that function's code container and
// debug info are rolled back to their state before the pass ran (the
// function's own code_container and debug_info are the only things a
// pass may mutate, so this rollback is sufficient to make the failure
// non-committing), and the whole pipeline run aborts with the error.
func (p *Pipeline) Run(mod *ir.Module) error {
	caches := make(map[*ir.Function]*analysis.Cache, len(mod.Functions))
	for _, name := range mod.FunctionNames() {
		fn := mod.Functions[name]
		caches[fn] = analysis.NewCache(fn)
	}

	for _, pass := range p.passes {
		for _, name := range mod.FunctionNames() {
			fn := mod.Functions[name]
			cache := caches[fn]

			codeSnapshot := fn.Code.Clone()
			debugSnapshot := fn.Debug.Clone()

			if err := pass.Apply(mod, fn, cache, pass.Payload); err != nil {
				fn.Code = codeSnapshot
				fn.Debug = debugSnapshot
				return fmt.Errorf("pipeline: pass %q poisoned function %q: %w", pass.Name, name, err)
			}

			cache.Invalidate()
			if p.log != nil {
				p.log.Logf("pass %s on %s: %s instructions, %s blocks",
					pass.Name, name,
					humanize.Comma(int64(len(fn.Code.Instructions))),
					humanize.Comma(int64(len(fn.Code.Blocks))))
			}
		}
	}
	return nil
}

// Names returns the resolved pass names in execution order.
func (p *Pipeline) Names() []string {
	out := make([]string, len(p.passes))
	for i, pass := range p.passes {
		out[i] = pass.Name
	}
	return out
}
