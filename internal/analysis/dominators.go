package analysis

import "kefir/internal/ir"

// Dominators is a function's dominator tree, computed over its live
// blocks in reverse postorder using the Cooper/Harvey/Kennedy iterative
// algorithm (no teacher file implements this; the algorithm itself is
// the specification, per spec.md section 5's ordering requirements).
type Dominators struct {
	rpo     []ir.BlockRef
	rpoIdx  map[ir.BlockRef]int
	idom    map[ir.BlockRef]ir.BlockRef
	entry   ir.BlockRef
}

func computeDominators(fn *ir.Function) *Dominators {
	rpo := reversePostorder(fn)
	idx := make(map[ir.BlockRef]int, len(rpo))
	for i, b := range rpo {
		idx[b] = i
	}

	idom := make(map[ir.BlockRef]ir.BlockRef, len(rpo))
	idom[fn.Entry] = fn.Entry

	changed := true
	for changed {
		changed = false
		for _, b := range rpo {
			if b == fn.Entry {
				continue
			}
			var newIdom ir.BlockRef
			found := false
			for _, p := range fn.Code.Blocks[b].Preds {
				if _, ok := idom[p]; !ok {
					continue
				}
				if !found {
					newIdom = p
					found = true
					continue
				}
				newIdom = intersect(idx, idom, newIdom, p)
			}
			if !found {
				continue
			}
			if prev, ok := idom[b]; !ok || prev != newIdom {
				idom[b] = newIdom
				changed = true
			}
		}
	}

	return &Dominators{rpo: rpo, rpoIdx: idx, idom: idom, entry: fn.Entry}
}

func intersect(idx map[ir.BlockRef]int, idom map[ir.BlockRef]ir.BlockRef, a, b ir.BlockRef) ir.BlockRef {
	for a != b {
		for idx[a] > idx[b] {
			a = idom[a]
		}
		for idx[b] > idx[a] {
			b = idom[b]
		}
	}
	return a
}

// reversePostorder walks fn's live blocks from the entry via control
// successors (read off each block's terminator) and returns them in
// reverse postorder — the order spec.md section 5 requires GVN to use,
// and the order every other forward dataflow pass in this package walks
// blocks in.
func reversePostorder(fn *ir.Function) []ir.BlockRef {
	visited := make(map[ir.BlockRef]bool)
	var post []ir.BlockRef

	var visit func(b ir.BlockRef)
	visit = func(b ir.BlockRef) {
		if visited[b] || fn.Code.Blocks[b].IsDead() {
			return
		}
		visited[b] = true
		for _, s := range successors(fn, b) {
			visit(s)
		}
		post = append(post, b)
	}
	visit(fn.Entry)

	rpo := make([]ir.BlockRef, len(post))
	for i, b := range post {
		rpo[len(post)-1-i] = b
	}
	return rpo
}

func successors(fn *ir.Function, b ir.BlockRef) []ir.BlockRef {
	term := fn.Code.Blocks[b].Terminator(fn.Code)
	if term == ir.InvalidRef {
		return nil
	}
	return fn.Code.Instructions[term].Targets
}

// IDom returns b's immediate dominator. For the entry block it returns
// the entry block itself.
func (d *Dominators) IDom(b ir.BlockRef) ir.BlockRef {
	return d.idom[b]
}

// Dominates reports whether a dominates b (every path from the entry to
// b passes through a), inclusive of a == b.
func (d *Dominators) Dominates(a, b ir.BlockRef) bool {
	for b != d.entry || a == d.entry {
		if a == b {
			return true
		}
		if b == d.entry {
			return false
		}
		b = d.idom[b]
	}
	return false
}

// PreorderBlocks returns every block reachable from the entry, in
// dominator-tree preorder — the order spec.md section 5 requires mem2reg
// to walk blocks in.
func (d *Dominators) PreorderBlocks() []ir.BlockRef {
	children := make(map[ir.BlockRef][]ir.BlockRef)
	for _, b := range d.rpo {
		if b == d.entry {
			continue
		}
		p := d.idom[b]
		children[p] = append(children[p], b)
	}

	var out []ir.BlockRef
	var walk func(b ir.BlockRef)
	walk = func(b ir.BlockRef) {
		out = append(out, b)
		for _, c := range children[b] {
			walk(c)
		}
	}
	walk(d.entry)
	return out
}

// ReversePostorder returns the block order the dominator computation
// itself walked in, exposed so other passes (GVN) can reuse it without
// recomputing.
func (d *Dominators) ReversePostorder() []ir.BlockRef {
	out := make([]ir.BlockRef, len(d.rpo))
	copy(out, d.rpo)
	return out
}
