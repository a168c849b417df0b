package ir

// TeeID is a stable handle to a shared node cell in an Arena.
type TeeID int

// SeenTees memoizes, for one pass, the cell each already-visited shared node
// was moved to. Keys are the handles found in the graph before the pass.
type SeenTees map[TeeID]TeeID

// Arena owns every shared node of a graph.
//
// A cell holds a Placeholder only while its node is moved out for a
// transformation, or after a pass relocated the node to a new cell. Each
// pass therefore grows the arena by the number of shared nodes it visits;
// Graph.Compact drops the vacated cells.
type Arena struct {
	cells []Node
}

// NewArena returns an empty arena.
func NewArena() *Arena {
	return &Arena{}
}

// Share stores n in a new cell and returns its handle.
func (a *Arena) Share(n Node) TeeID {
	if _, ok := n.(*Placeholder); ok {
		Fatalf(Contract, "share", "cannot share a placeholder")
	}
	a.cells = append(a.cells, n)
	return TeeID(len(a.cells) - 1)
}

// Load returns the node in cell id. It aborts if the cell holds a
// Placeholder: the node is being transformed and this visit is reentrant.
func (a *Arena) Load(id TeeID) Node {
	n := a.cell(id)
	if _, ok := n.(*Placeholder); ok {
		Fatalf(Contract, "tee", "tee cell %d holds a placeholder; reentrant visit of a shared node", id)
	}
	return n
}

// Len returns the number of cells, including vacated ones.
func (a *Arena) Len() int {
	return len(a.cells)
}

func (a *Arena) cell(id TeeID) Node {
	if id < 0 || int(id) >= len(a.cells) {
		Fatalf(Contract, "tee", "unknown tee cell %d", id)
	}
	return a.cells[id]
}

// alloc reserves a new cell holding a Placeholder.
func (a *Arena) alloc() TeeID {
	a.cells = append(a.cells, &Placeholder{})
	return TeeID(len(a.cells) - 1)
}

// take moves the node out of cell id, leaving a Placeholder behind.
func (a *Arena) take(id TeeID) Node {
	n := a.Load(id)
	a.cells[id] = &Placeholder{}
	return n
}

func (a *Arena) put(id TeeID, n Node) {
	a.cell(id)
	a.cells[id] = n
}
