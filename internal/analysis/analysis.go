// Package analysis computes and caches the dataflow facts the optimizer
// pipeline's passes depend on: dominator trees, loop nesting, block-input
// (phi) liveness, and use-def chains (spec.md sections 3, 4.2 supplement,
// 5). No teacher file implements compiler dataflow directly; this
// package follows spec.md section 5's explicit ordering requirements
// ("dominator-tree pre-order... GVN uses reverse post-order") and
// section 9's "iterative data-flow uses explicit worklists."
package analysis

import "kefir/internal/ir"

// Cache holds every analysis computed for one function, invalidated in
// bulk whenever a pass mutates that function's CodeContainer — passes
// that only read analyses call Get; passes that mutate control flow or
// definitions call Invalidate before the next pass may request one.
type Cache struct {
	fn *ir.Function

	dom      *Dominators
	loops    *LoopForest
	liveness *Liveness
	useDef   *UseDef
}

// NewCache returns an empty, uncomputed cache for fn.
func NewCache(fn *ir.Function) *Cache {
	return &Cache{fn: fn}
}

// Invalidate drops every cached analysis, forcing the next Get* call to
// recompute from the function's current state.
func (c *Cache) Invalidate() {
	c.dom = nil
	c.loops = nil
	c.liveness = nil
	c.useDef = nil
}

// Dominators returns (computing and caching if necessary) fn's dominator
// tree.
func (c *Cache) Dominators() *Dominators {
	if c.dom == nil {
		c.dom = computeDominators(c.fn)
	}
	return c.dom
}

// Loops returns (computing and caching if necessary) fn's loop forest,
// built on top of the dominator tree.
func (c *Cache) Loops() *LoopForest {
	if c.loops == nil {
		c.loops = computeLoops(c.fn, c.Dominators())
	}
	return c.loops
}

// Liveness returns (computing and caching if necessary) fn's block-input
// liveness.
func (c *Cache) Liveness() *Liveness {
	if c.liveness == nil {
		c.liveness = computeLiveness(c.fn)
	}
	return c.liveness
}

// UseDef returns (computing and caching if necessary) fn's use-def
// chains.
func (c *Cache) UseDef() *UseDef {
	if c.useDef == nil {
		c.useDef = computeUseDef(c.fn)
	}
	return c.useDef
}
