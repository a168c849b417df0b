// Package cycle provides forward-reference markers for streams that are
// used before they are defined.
//
// A marker is created with a pending identifier and a declared location. It
// must be completed exactly once by binding the identifier to a concrete
// node; completion appends a CycleSink leaf to the graph under
// construction. The Registry tracks every marker so graph finalization can
// reject a flow with an incomplete cycle.
package cycle

import (
	"fmt"

	"github.com/roach88/flowc/internal/ir"
	"github.com/roach88/flowc/internal/location"
)

// State is the lifecycle state of a marker.
type State int

const (
	// Created markers are waiting for completion.
	Created State = iota
	// Completed markers are bound; this is terminal.
	Completed
)

func (s State) String() string {
	if s == Completed {
		return "completed"
	}
	return "created"
}

// LeafSink receives the CycleSink leaf produced by a completion.
type LeafSink interface {
	AddLeaf(l ir.Leaf)
}

// marker is the state shared by ForwardRef and TickCycle.
type marker struct {
	kind     string
	ident    string
	location location.ID
	state    State
	sink     LeafSink
}

func (m *marker) bind(n ir.Node) {
	if m.state == Completed {
		ir.Fatalf(ir.Contract, "cycle", "%s %s completed twice", m.kind, m.ident)
	}
	if got := n.Meta().Location; !got.Equal(m.location) {
		ir.Fatalf(ir.Contract, "cycle", "%s %s declared at %s but completed with a stream at %s",
			m.kind, m.ident, m.location, got)
	}
	m.state = Completed
	m.sink.AddLeaf(&ir.CycleSink{Ident: m.ident, Location: m.location, Input: n})
}

// Ident returns the pending identifier.
func (m *marker) Ident() string { return m.ident }

// Location returns the declared location.
func (m *marker) Location() location.ID { return m.location }

// State returns the marker state.
func (m *marker) State() State { return m.state }

// ForwardRef stands in for a stream defined later in the same scope.
type ForwardRef struct {
	*marker
}

// Complete binds the marker to n.
func (r *ForwardRef) Complete(n ir.Node) {
	r.bind(n)
}

// TickCycle stands in for a stream whose previous-tick value feeds back
// into the current tick.
type TickCycle struct {
	*marker
}

// CompleteNextTick binds the marker to n delayed by one tick, so the loop
// only observes values from earlier ticks.
func (c *TickCycle) CompleteNextTick(n ir.Node) {
	meta := *n.Meta()
	c.bind(&ir.DeferTick{Input: n, Metadata: meta})
}

// Registry allocates marker identifiers and remembers every marker.
type Registry struct {
	sink    LeafSink
	next    int
	markers []*marker
}

// NewRegistry returns a registry whose completions are delivered to sink.
func NewRegistry(sink LeafSink) *Registry {
	return &Registry{sink: sink}
}

// ForwardRef creates a marker at loc and the CycleSource reading it.
func (r *Registry) ForwardRef(loc location.ID) (*ForwardRef, *ir.CycleSource) {
	m := r.newMarker("ForwardRef", loc)
	return &ForwardRef{marker: m}, r.source(m)
}

// TickCycle creates a tick cycle at loc, which must be a tick.
func (r *Registry) TickCycle(loc location.ID) (*TickCycle, *ir.CycleSource) {
	if loc.Kind() != location.KindTick {
		ir.Fatalf(ir.Contract, "cycle", "tick cycle declared outside a tick at %s", loc)
	}
	m := r.newMarker("TickCycle", loc)
	return &TickCycle{marker: m}, r.source(m)
}

func (r *Registry) newMarker(kind string, loc location.ID) *marker {
	m := &marker{kind: kind, ident: fmt.Sprintf("cycle_%d", r.next), location: loc, sink: r.sink}
	r.next++
	r.markers = append(r.markers, m)
	return m
}

func (r *Registry) source(m *marker) *ir.CycleSource {
	return &ir.CycleSource{Ident: m.ident, Metadata: ir.Metadata{Location: m.location}}
}

// Check aborts if any marker is still Created.
func (r *Registry) Check() {
	for _, m := range r.markers {
		if m.state != Completed {
			ir.Fatalf(ir.Contract, "cycle", "%s %s dropped without being completed", m.kind, m.ident)
		}
	}
}

// Pending returns the identifiers of markers not yet completed.
func (r *Registry) Pending() []string {
	var out []string
	for _, m := range r.markers {
		if m.state != Completed {
			out = append(out, m.ident)
		}
	}
	return out
}
