package ir

// TransformFunc transforms the node in slot in place, or replaces it.
type TransformFunc func(slot *Node, seen SeenTees)

// TransformChildren applies fn to each direct child slot of the node in
// slot, in the order given by ChildSlots.
//
// A Tee child is transformed at most once per memo: on a hit the Tee is
// rebound to the memoized cell. On a miss a fresh cell is reserved and
// recorded first, the shared node is moved out of its old cell, fn runs on
// it, and the result is stored in the fresh cell. A reentrant visit finds a
// Placeholder and aborts.
func (g *Graph) TransformChildren(slot *Node, fn TransformFunc, seen SeenTees) {
	switch n := (*slot).(type) {
	case *Placeholder:
		Fatalf(Contract, "transform", "placeholder node visited; a shared node is being transformed reentrantly")
	case *Tee:
		if moved, ok := seen[n.Ref]; ok {
			n.Ref = moved
			return
		}
		moved := g.Arena.alloc()
		seen[n.Ref] = moved
		inner := g.Arena.take(n.Ref)
		fn(&inner, seen)
		g.Arena.put(moved, inner)
		n.Ref = moved
	default:
		for _, child := range ChildSlots(n) {
			fn(child, seen)
		}
	}
}

// TransformBottomUp applies fn to every node reachable from slot in
// depth-first post-order. Shared nodes are visited once per memo.
func (g *Graph) TransformBottomUp(slot *Node, fn func(slot *Node), seen SeenTees) {
	g.TransformChildren(slot, func(child *Node, seen SeenTees) {
		g.TransformBottomUp(child, fn, seen)
	}, seen)
	fn(slot)
}

// TransformLeafChildren applies fn to the single input slot of l.
func (g *Graph) TransformLeafChildren(l Leaf, fn TransformFunc, seen SeenTees) {
	fn(l.InputSlot(), seen)
}

// TransformLeaves runs TransformBottomUp over every leaf with one shared
// memo, so a node shared between leaves is also visited once.
func (g *Graph) TransformLeaves(fn func(slot *Node)) {
	seen := SeenTees{}
	for _, l := range g.Leaves {
		g.TransformLeafChildren(l, func(child *Node, seen SeenTees) {
			g.TransformBottomUp(child, fn, seen)
		}, seen)
	}
}

// Walk calls fn on every node of the graph in post-order without modifying
// it. Shared nodes are visited once.
func (g *Graph) Walk(fn func(n Node)) {
	visited := map[TeeID]bool{}
	var walk func(n Node)
	walk = func(n Node) {
		switch n := n.(type) {
		case *Placeholder:
			Fatalf(Contract, "walk", "placeholder node visited")
		case *Tee:
			if !visited[n.Ref] {
				visited[n.Ref] = true
				walk(g.Arena.Load(n.Ref))
			}
		default:
			for _, child := range ChildSlots(n) {
				walk(*child)
			}
		}
		fn(n)
	}
	for _, l := range g.Leaves {
		walk(*l.InputSlot())
	}
}

// Compact renumbers the arena so it holds only cells reachable from the
// leaves, in first-visit order, and rebinds every Tee. It must not run
// while a pass is in flight.
func (g *Graph) Compact() {
	remap := map[TeeID]TeeID{}
	var cells []Node
	var tees []*Tee
	g.Walk(func(n Node) {
		t, ok := n.(*Tee)
		if !ok {
			return
		}
		tees = append(tees, t)
		if _, ok := remap[t.Ref]; !ok {
			remap[t.Ref] = TeeID(len(cells))
			cells = append(cells, g.Arena.Load(t.Ref))
		}
	})
	for _, t := range tees {
		t.Ref = remap[t.Ref]
	}
	g.Arena.cells = cells
}
