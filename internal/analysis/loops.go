package analysis

import "kefir/internal/ir"

// Loop is one natural loop: its header (the sole entry block, which
// dominates every block in the loop) and its body blocks, including the
// header.
type Loop struct {
	Header ir.BlockRef
	Blocks map[ir.BlockRef]bool
	Depth  int
}

// LoopForest is every natural loop in a function, along with each
// block's nesting depth (0 for blocks outside any loop).
type LoopForest struct {
	loops []*Loop
	depth map[ir.BlockRef]int
}

// computeLoops finds natural loops from back edges (an edge a->b where b
// dominates a) and grows each loop's body by walking predecessors
// backward from the back-edge source until the header is reached —
// the standard construction, run here over this package's own
// reverse-postorder block order and dominator tree.
func computeLoops(fn *ir.Function, dom *Dominators) *LoopForest {
	var loops []*Loop
	for _, b := range dom.rpo {
		term := fn.Code.Blocks[b].Terminator(fn.Code)
		if term == ir.InvalidRef {
			continue
		}
		for _, succ := range fn.Code.Instructions[term].Targets {
			if dom.Dominates(succ, b) {
				loops = append(loops, growLoop(fn, succ, b))
			}
		}
	}

	depth := make(map[ir.BlockRef]int)
	assignNestingDepth(loops, depth)

	return &LoopForest{loops: loops, depth: depth}
}

func growLoop(fn *ir.Function, header, latch ir.BlockRef) *Loop {
	blocks := map[ir.BlockRef]bool{header: true}
	worklist := []ir.BlockRef{latch}
	for len(worklist) > 0 {
		b := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]
		if blocks[b] {
			continue
		}
		blocks[b] = true
		for _, p := range fn.Code.Blocks[b].Preds {
			if !blocks[p] {
				worklist = append(worklist, p)
			}
		}
	}
	return &Loop{Header: header, Blocks: blocks}
}

// assignNestingDepth sets each loop's Depth to one plus the number of
// other loops whose body strictly contains its header, and fills the
// per-block depth map with the maximum depth of any loop containing
// that block.
func assignNestingDepth(loops []*Loop, depth map[ir.BlockRef]int) {
	for _, l := range loops {
		d := 0
		for _, other := range loops {
			if other == l {
				continue
			}
			if other.Blocks[l.Header] {
				d++
			}
		}
		l.Depth = d + 1
	}
	for _, l := range loops {
		for b := range l.Blocks {
			if l.Depth > depth[b] {
				depth[b] = l.Depth
			}
		}
	}
}

// Loops returns every natural loop found, header-block order undefined.
func (f *LoopForest) Loops() []*Loop {
	return f.loops
}

// DepthOf returns b's loop nesting depth, 0 if b is in no loop.
func (f *LoopForest) DepthOf(b ir.BlockRef) int {
	return f.depth[b]
}
