package ir

import "fmt"

// InstantiateState is the synthesis state of a Network edge.
type InstantiateState int

const (
	// Building is a logical edge with no transport yet.
	Building InstantiateState = iota
	// Finalized carries provider descriptors and a pending connect closure.
	Finalized
	// Connected has run its connect closure.
	Connected
)

func (s InstantiateState) String() string {
	switch s {
	case Building:
		return "building"
	case Finalized:
		return "finalized"
	case Connected:
		return "connected"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ConnectFunc performs the transport handshake for one edge. It may block.
type ConnectFunc func()

// Instantiate tracks the two-phase synthesis of a Network edge. The zero
// value is Building.
type Instantiate struct {
	state   InstantiateState
	sink    Expr
	source  Expr
	connect ConnectFunc
}

// State returns the current state.
func (i *Instantiate) State() InstantiateState {
	return i.state
}

// Finalize moves a Building edge to Finalized.
func (i *Instantiate) Finalize(sink, source Expr, connect ConnectFunc) {
	if i.state != Building {
		Fatalf(Contract, "compile_network", "network already finalized")
	}
	i.state = Finalized
	i.sink = sink
	i.source = source
	i.connect = connect
}

// Connect runs the connect closure exactly once.
func (i *Instantiate) Connect() {
	switch i.state {
	case Building:
		Fatalf(Contract, "connect_network", "network not built")
	case Connected:
		Fatalf(Contract, "connect_network", "network already connected")
	}
	connect := i.connect
	i.connect = nil
	i.state = Connected
	if connect != nil {
		connect()
	}
}

// Descriptors returns the sink and source descriptors of a finalized edge.
func (i *Instantiate) Descriptors() (sink, source Expr) {
	if i.state == Building {
		Fatalf(Contract, "emit", "network must be finalized before emission")
	}
	return i.sink, i.source
}
