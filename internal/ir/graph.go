package ir

// Graph is a built dataflow graph: its leaves in declaration order and the
// arena holding its shared nodes.
type Graph struct {
	Arena  *Arena
	Leaves []Leaf
}

// NewGraph returns a graph over arena. A nil arena is replaced by an empty
// one.
func NewGraph(arena *Arena, leaves ...Leaf) *Graph {
	if arena == nil {
		arena = NewArena()
	}
	return &Graph{Arena: arena, Leaves: leaves}
}

// Networks returns every Network node of the graph, each shared one once,
// in post-order.
func (g *Graph) Networks() []*Network {
	var out []*Network
	g.Walk(func(n Node) {
		if net, ok := n.(*Network); ok {
			out = append(out, net)
		}
	})
	return out
}

// CountNodes returns the number of distinct nodes in the graph. Tee
// references are not counted; the shared node behind them is counted once.
func (g *Graph) CountNodes() int {
	count := 0
	g.Walk(func(n Node) {
		if _, ok := n.(*Tee); !ok {
			count++
		}
	})
	return count
}
