package compiler

import "github.com/roach88/flowc/internal/ir"

// Simplify removes Unpersist markers left by batching. Unpersist(Persist(x))
// collapses to x; a bare Unpersist(x) becomes x, since a top-level stream
// already delivers one batch per tick. It returns the number of markers
// removed.
func Simplify(g *ir.Graph) int {
	removed := 0
	g.TransformLeaves(func(slot *ir.Node) {
		u, ok := (*slot).(*ir.Unpersist)
		if !ok {
			return
		}
		removed++
		if inner, persisted := ir.UnwrapPersist(u.Inner); persisted {
			*slot = inner
			return
		}
		*slot = u.Inner
	})
	return removed
}
