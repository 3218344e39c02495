// Package pipeline implements the optimizer pipeline (spec.md section
// 4.3): a process-wide pass registry, function-at-a-time traversal, and
// poison-on-error failure semantics.
package pipeline

import (
	"kefir/internal/analysis"
	"kefir/internal/ir"
)

// Pass is one named, registered optimizer pass. Apply may read the
// module and the function but may mutate only the function's code
// container and debug info, per spec.md section 4.3.
type Pass struct {
	Name    string
	Apply   func(mod *ir.Module, fn *ir.Function, cache *analysis.Cache, payload any) error
	Payload any
}
