package ir

import "github.com/roach88/flowc/internal/location"

// Leaf is a terminal consumer of a dataflow graph. Every leaf owns exactly
// one upstream node.
//
// Leaf is sealed; the variants are ForEach, DestSink and CycleSink.
type Leaf interface {
	// InputSlot returns the slot holding the leaf's upstream node.
	InputSlot() *Node
	leaf()
}

// ForEach consumes every element with a side-effecting closure.
type ForEach struct {
	F     Expr
	Input Node
}

// DestSink writes every element to an external sink.
type DestSink struct {
	Sink  Expr
	Input Node
}

// CycleSink binds Ident, declared by a cycle marker at Location, to its
// input stream. The input must resolve to Location.
type CycleSink struct {
	Ident    string
	Location location.ID
	Input    Node
}

func (*ForEach) leaf()   {}
func (*DestSink) leaf()  {}
func (*CycleSink) leaf() {}

func (l *ForEach) InputSlot() *Node   { return &l.Input }
func (l *DestSink) InputSlot() *Node  { return &l.Input }
func (l *CycleSink) InputSlot() *Node { return &l.Input }

// LeafName returns the operator name of a leaf, as used in diagnostics.
func LeafName(l Leaf) string {
	switch l.(type) {
	case *ForEach:
		return "for_each"
	case *DestSink:
		return "dest_sink"
	case *CycleSink:
		return "cycle_sink"
	default:
		return "leaf"
	}
}
