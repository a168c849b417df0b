// Package builder constructs located dataflow graphs.
//
// A FlowBuilder allocates locations and hands out Stream handles. Every
// operator consumes its receiver stream; Clone shares a stream between
// consumers by moving its node into the graph's arena behind a Tee.
// Structural operators check that their operands resolve to the same root
// location, and Finalize rejects graphs with incomplete cycles.
package builder

import (
	"github.com/roach88/flowc/internal/cycle"
	"github.com/roach88/flowc/internal/ir"
	"github.com/roach88/flowc/internal/location"
)

// FlowBuilder accumulates the leaves of one graph.
type FlowBuilder struct {
	nextID          int
	nextTick        int
	nextExternalOut int

	arena     *ir.Arena
	leaves    []ir.Leaf
	cycles    *cycle.Registry
	finalized bool
}

// New returns an empty builder.
func New() *FlowBuilder {
	b := &FlowBuilder{arena: ir.NewArena()}
	b.cycles = cycle.NewRegistry(b)
	return b
}

// AddLeaf appends a terminal consumer to the graph.
func (b *FlowBuilder) AddLeaf(l ir.Leaf) {
	b.checkOpen("add leaf")
	b.leaves = append(b.leaves, l)
}

// Process allocates a new process location.
func (b *FlowBuilder) Process() *Location {
	return b.root(location.Process(b.allocID()))
}

// Cluster allocates a new cluster location.
func (b *FlowBuilder) Cluster() *Location {
	return b.root(location.Cluster(b.allocID()))
}

// External allocates a new external process.
func (b *FlowBuilder) External() *External {
	return &External{b: b, id: location.ExternalProcess(b.allocID())}
}

// Finalize checks that every cycle marker was completed and returns the
// built graph. The builder cannot be used afterwards.
func (b *FlowBuilder) Finalize() *ir.Graph {
	b.checkOpen("finalize")
	b.cycles.Check()
	b.finalized = true
	return ir.NewGraph(b.arena, b.leaves...)
}

// Pending returns the identifiers of cycle markers not yet completed.
func (b *FlowBuilder) Pending() []string {
	return b.cycles.Pending()
}

// Processes, clusters and externals share one id space so every root
// location has a distinct raw id.
func (b *FlowBuilder) allocID() int {
	id := b.nextID
	b.nextID++
	return id
}

func (b *FlowBuilder) allocExternalPort() int {
	port := b.nextExternalOut
	b.nextExternalOut++
	return port
}

func (b *FlowBuilder) root(id location.ID) *Location {
	return &Location{b: b, id: id}
}

func (b *FlowBuilder) checkOpen(op string) {
	if b.finalized {
		ir.Fatalf(ir.Contract, op, "flow builder already finalized")
	}
}

// Location is a handle to a process, cluster or tick of a builder.
type Location struct {
	b  *FlowBuilder
	id location.ID
}

// ID returns the location identifier.
func (l *Location) ID() location.ID { return l.id }

// Tick opens a new tick scope nested in l.
func (l *Location) Tick() *Location {
	id := l.b.nextTick
	l.b.nextTick++
	return &Location{b: l.b, id: location.Tick(id, l.id)}
}

// Outer returns the location a tick is nested in.
func (l *Location) Outer() *Location {
	outer, ok := l.id.Outer()
	if !ok {
		ir.Fatalf(ir.Contract, "outer", "%s is not a tick", l.id)
	}
	return &Location{b: l.b, id: outer}
}

// SourceStream reads an asynchronous external stream.
func (l *Location) SourceStream(expr ir.Expr) *Stream {
	return l.source(ir.SourceStream, expr)
}

// SourceIter replays an iterator.
func (l *Location) SourceIter(expr ir.Expr) *Stream {
	return l.source(ir.SourceIter, expr)
}

// Spin emits a unit value on every tick.
func (l *Location) Spin() *Stream {
	return l.source(ir.SourceSpin, "")
}

func (l *Location) source(kind ir.SourceKind, expr ir.Expr) *Stream {
	l.b.checkOpen("source")
	return l.b.stream(&ir.Source{Kind: kind, Expr: expr, Metadata: ir.Metadata{Location: l.id}}, l.id)
}

// ForwardRef declares a stream at l that is defined later. The returned
// marker must be completed before Finalize.
func (l *Location) ForwardRef() (*ForwardRef, *Stream) {
	l.b.checkOpen("forward_ref")
	marker, src := l.b.cycles.ForwardRef(l.id)
	return &ForwardRef{marker: marker}, l.b.stream(src, l.id)
}

// TickCycle declares a stream at tick l whose value is the completing
// stream from the previous tick.
func (l *Location) TickCycle() (*TickCycle, *Stream) {
	l.b.checkOpen("tick_cycle")
	marker, src := l.b.cycles.TickCycle(l.id)
	return &TickCycle{marker: marker}, l.b.stream(src, l.id)
}

// ForwardRef is a pending stream declared with Location.ForwardRef.
type ForwardRef struct {
	marker *cycle.ForwardRef
}

// Ident returns the cycle identifier.
func (r *ForwardRef) Ident() string { return r.marker.Ident() }

// Complete binds the reference to s, consuming it.
func (r *ForwardRef) Complete(s *Stream) {
	r.marker.Complete(s.take("complete"))
}

// TickCycle is a pending stream declared with Location.TickCycle.
type TickCycle struct {
	marker *cycle.TickCycle
}

// Ident returns the cycle identifier.
func (c *TickCycle) Ident() string { return c.marker.Ident() }

// CompleteNextTick binds the cycle to s delayed by one tick, consuming s.
func (c *TickCycle) CompleteNextTick(s *Stream) {
	c.marker.CompleteNextTick(s.take("complete_next_tick"))
}
