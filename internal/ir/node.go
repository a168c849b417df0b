package ir

import (
	"fmt"

	"github.com/roach88/flowc/internal/location"
)

// Metadata is carried by every node except Placeholder.
type Metadata struct {
	// Location is where the node's output stream lives.
	Location location.ID

	// OutputType is the element type of the output stream, if known.
	OutputType Type
}

// Node is an intermediate node in a dataflow graph: it consumes data from
// upstream nodes and emits data downstream.
//
// Node is sealed; the variants are the types in this file. Child slots are
// interface fields so a pass can replace a child in place.
type Node interface {
	// Meta returns the node's metadata. It aborts on a Placeholder.
	Meta() *Metadata
	node()
}

// SourceKind selects where a Source reads from.
type SourceKind int

const (
	// SourceStream reads an external asynchronous stream.
	SourceStream SourceKind = iota
	// SourceIter replays an iterator on the first tick.
	SourceIter
	// SourceSpin emits a unit value on every tick.
	SourceSpin
	// SourceExternalNetwork marks data entering from an external process. It
	// is always the input of a Network node and emits no statement itself.
	SourceExternalNetwork
)

func (k SourceKind) String() string {
	switch k {
	case SourceStream:
		return "source_stream"
	case SourceIter:
		return "source_iter"
	case SourceSpin:
		return "spin"
	case SourceExternalNetwork:
		return "external_network"
	default:
		return fmt.Sprintf("source(%d)", int(k))
	}
}

// Placeholder occupies a node slot while the node is moved out for an
// in-place transformation.
type Placeholder struct{}

// Source is where data enters the graph.
type Source struct {
	Kind SourceKind
	Expr Expr
	Metadata
}

// CycleSource reads the stream bound to Ident by a CycleSink.
type CycleSource struct {
	Ident string
	Metadata
}

// Tee references a shared node stored in the graph's Arena.
type Tee struct {
	Ref TeeID
	Metadata
}

// Persist replays every element it has ever received on every tick.
type Persist struct {
	Inner Node
	Metadata
}

// Unpersist is a marker that cancels an enclosing Persist. It must be
// optimized away before emission.
type Unpersist struct {
	Inner Node
	Metadata
}

// Delta emits only elements not emitted on the previous tick.
type Delta struct {
	Inner Node
	Metadata
}

// DeferTick delays its input by one tick.
type DeferTick struct {
	Input Node
	Metadata
}

// Map applies F to every element.
type Map struct {
	F     Expr
	Input Node
	Metadata
}

// FlatMap applies F and flattens the resulting iterables.
type FlatMap struct {
	F     Expr
	Input Node
	Metadata
}

// Filter keeps elements for which F holds.
type Filter struct {
	F     Expr
	Input Node
	Metadata
}

// FilterMap applies F and keeps the present results.
type FilterMap struct {
	F     Expr
	Input Node
	Metadata
}

// Inspect calls F on every element and passes it through.
type Inspect struct {
	F     Expr
	Input Node
	Metadata
}

// Enumerate pairs elements with a counter. A static counter keeps counting
// across ticks.
type Enumerate struct {
	Static bool
	Input  Node
	Metadata
}

// Sort emits the tick's elements in order.
type Sort struct {
	Input Node
	Metadata
}

// Unique drops duplicate elements within a tick.
type Unique struct {
	Input Node
	Metadata
}

// Chain concatenates First and Second.
type Chain struct {
	First  Node
	Second Node
	Metadata
}

// CrossProduct pairs every element of Left with every element of Right.
type CrossProduct struct {
	Left  Node
	Right Node
	Metadata
}

// CrossSingleton pairs every element of Left with the single value of Right.
type CrossSingleton struct {
	Left  Node
	Right Node
	Metadata
}

// Join is an equi-join of two keyed streams.
type Join struct {
	Left  Node
	Right Node
	Metadata
}

// Difference emits elements of Pos absent from Neg.
type Difference struct {
	Pos Node
	Neg Node
	Metadata
}

// AntiJoin emits keyed elements of Pos whose key is absent from Neg.
type AntiJoin struct {
	Pos Node
	Neg Node
	Metadata
}

// Fold folds all elements into one accumulator created by Init.
type Fold struct {
	Init  Expr
	Acc   Expr
	Input Node
	Metadata
}

// FoldKeyed folds values per key into accumulators created by Init.
type FoldKeyed struct {
	Init  Expr
	Acc   Expr
	Input Node
	Metadata
}

// Reduce combines all elements with F.
type Reduce struct {
	F     Expr
	Input Node
	Metadata
}

// ReduceKeyed combines values per key with F.
type ReduceKeyed struct {
	F     Expr
	Input Node
	Metadata
}

// Network is the only edge that crosses locations.
//
// FromKey and ToKey number the output and input ports of an external
// endpoint; they are nil for edges between processes and clusters.
type Network struct {
	From        location.ID
	FromKey     *int
	To          location.ID
	ToKey       *int
	Serialize   Expr
	Deserialize Expr
	Instantiate Instantiate
	Input       Node
	Metadata
}

func (*Placeholder) node()    {}
func (*Source) node()         {}
func (*CycleSource) node()    {}
func (*Tee) node()            {}
func (*Persist) node()        {}
func (*Unpersist) node()      {}
func (*Delta) node()          {}
func (*DeferTick) node()      {}
func (*Map) node()            {}
func (*FlatMap) node()        {}
func (*Filter) node()         {}
func (*FilterMap) node()      {}
func (*Inspect) node()        {}
func (*Enumerate) node()      {}
func (*Sort) node()           {}
func (*Unique) node()         {}
func (*Chain) node()          {}
func (*CrossProduct) node()   {}
func (*CrossSingleton) node() {}
func (*Join) node()           {}
func (*Difference) node()     {}
func (*AntiJoin) node()       {}
func (*Fold) node()           {}
func (*FoldKeyed) node()      {}
func (*Reduce) node()         {}
func (*ReduceKeyed) node()    {}
func (*Network) node()        {}

// Meta aborts: a placeholder has no metadata.
func (*Placeholder) Meta() *Metadata {
	Fatalf(Contract, "metadata", "placeholder node visited; a shared node is being transformed reentrantly")
	return nil
}

func (n *Source) Meta() *Metadata         { return &n.Metadata }
func (n *CycleSource) Meta() *Metadata    { return &n.Metadata }
func (n *Tee) Meta() *Metadata            { return &n.Metadata }
func (n *Persist) Meta() *Metadata        { return &n.Metadata }
func (n *Unpersist) Meta() *Metadata      { return &n.Metadata }
func (n *Delta) Meta() *Metadata          { return &n.Metadata }
func (n *DeferTick) Meta() *Metadata      { return &n.Metadata }
func (n *Map) Meta() *Metadata            { return &n.Metadata }
func (n *FlatMap) Meta() *Metadata        { return &n.Metadata }
func (n *Filter) Meta() *Metadata         { return &n.Metadata }
func (n *FilterMap) Meta() *Metadata      { return &n.Metadata }
func (n *Inspect) Meta() *Metadata        { return &n.Metadata }
func (n *Enumerate) Meta() *Metadata      { return &n.Metadata }
func (n *Sort) Meta() *Metadata           { return &n.Metadata }
func (n *Unique) Meta() *Metadata         { return &n.Metadata }
func (n *Chain) Meta() *Metadata          { return &n.Metadata }
func (n *CrossProduct) Meta() *Metadata   { return &n.Metadata }
func (n *CrossSingleton) Meta() *Metadata { return &n.Metadata }
func (n *Join) Meta() *Metadata           { return &n.Metadata }
func (n *Difference) Meta() *Metadata     { return &n.Metadata }
func (n *AntiJoin) Meta() *Metadata       { return &n.Metadata }
func (n *Fold) Meta() *Metadata           { return &n.Metadata }
func (n *FoldKeyed) Meta() *Metadata      { return &n.Metadata }
func (n *Reduce) Meta() *Metadata         { return &n.Metadata }
func (n *ReduceKeyed) Meta() *Metadata    { return &n.Metadata }
func (n *Network) Meta() *Metadata        { return &n.Metadata }

// OpName returns the operator name of a node, as used in diagnostics.
func OpName(n Node) string {
	switch n := n.(type) {
	case *Placeholder:
		return "placeholder"
	case *Source:
		return n.Kind.String()
	case *CycleSource:
		return "cycle_source"
	case *Tee:
		return "tee"
	case *Persist:
		return "persist"
	case *Unpersist:
		return "unpersist"
	case *Delta:
		return "delta"
	case *DeferTick:
		return "defer_tick"
	case *Map:
		return "map"
	case *FlatMap:
		return "flat_map"
	case *Filter:
		return "filter"
	case *FilterMap:
		return "filter_map"
	case *Inspect:
		return "inspect"
	case *Enumerate:
		return "enumerate"
	case *Sort:
		return "sort"
	case *Unique:
		return "unique"
	case *Chain:
		return "chain"
	case *CrossProduct:
		return "cross_product"
	case *CrossSingleton:
		return "cross_singleton"
	case *Join:
		return "join"
	case *Difference:
		return "difference"
	case *AntiJoin:
		return "anti_join"
	case *Fold:
		return "fold"
	case *FoldKeyed:
		return "fold_keyed"
	case *Reduce:
		return "reduce"
	case *ReduceKeyed:
		return "reduce_keyed"
	case *Network:
		return "network"
	default:
		return fmt.Sprintf("%T", n)
	}
}

// ChildSlots returns pointers to the direct structural children of n in
// the fixed per-variant order: input; first, second; left, right; pos, neg.
//
// Tee children are not included: the shared node lives in the Arena and is
// reached through Graph.TransformChildren. Sources, cycle sources and
// placeholders have no children.
func ChildSlots(n Node) []*Node {
	switch n := n.(type) {
	case *Persist:
		return []*Node{&n.Inner}
	case *Unpersist:
		return []*Node{&n.Inner}
	case *Delta:
		return []*Node{&n.Inner}
	case *DeferTick:
		return []*Node{&n.Input}
	case *Map:
		return []*Node{&n.Input}
	case *FlatMap:
		return []*Node{&n.Input}
	case *Filter:
		return []*Node{&n.Input}
	case *FilterMap:
		return []*Node{&n.Input}
	case *Inspect:
		return []*Node{&n.Input}
	case *Enumerate:
		return []*Node{&n.Input}
	case *Sort:
		return []*Node{&n.Input}
	case *Unique:
		return []*Node{&n.Input}
	case *Chain:
		return []*Node{&n.First, &n.Second}
	case *CrossProduct:
		return []*Node{&n.Left, &n.Right}
	case *CrossSingleton:
		return []*Node{&n.Left, &n.Right}
	case *Join:
		return []*Node{&n.Left, &n.Right}
	case *Difference:
		return []*Node{&n.Pos, &n.Neg}
	case *AntiJoin:
		return []*Node{&n.Pos, &n.Neg}
	case *Fold:
		return []*Node{&n.Input}
	case *FoldKeyed:
		return []*Node{&n.Input}
	case *Reduce:
		return []*Node{&n.Input}
	case *ReduceKeyed:
		return []*Node{&n.Input}
	case *Network:
		return []*Node{&n.Input}
	default:
		return nil
	}
}

// UnwrapPersist returns the inner node and true when n is a Persist.
func UnwrapPersist(n Node) (Node, bool) {
	if p, ok := n.(*Persist); ok {
		return p.Inner, true
	}
	return n, false
}
