package emit

import (
	"fmt"

	"github.com/roach88/flowc/internal/ir"
	"github.com/roach88/flowc/internal/location"
)

const (
	lifetimeTick   = "'tick"
	lifetimeStatic = "'static"
)

// ref names an emitted stream and the location it lives on.
type ref struct {
	ident string
	loc   location.ID
}

type emitter struct {
	arena *ir.Arena
	progs Programs
	tees  map[ir.TeeID]ref
}

// Emit lowers g into per-location programs. Every Network edge must be
// finalized and every Unpersist marker simplified away. A malformed graph
// is reported as an *ir.Error.
func Emit(g *ir.Graph) (progs Programs, err error) {
	defer ir.Recover(&err)
	return MustEmit(g), nil
}

// MustEmit is Emit for callers already running under ir.Recover. It aborts
// on a malformed graph.
func MustEmit(g *ir.Graph) Programs {
	e := &emitter{
		arena: g.Arena,
		progs: Programs{},
		tees:  map[ir.TeeID]ref{},
	}
	next := 0
	for _, l := range g.Leaves {
		next = e.leaf(l, next)
	}
	return e.progs
}

func fresh(next int) (string, int) {
	return fmt.Sprintf("stream_%d", next), next + 1
}

func sameRoot(op string, a, b ref) {
	if !a.loc.SameRoot(b.loc) {
		ir.Fatalf(ir.Contract, "emit", "%s inputs must be in the same location", op)
	}
}

// operand lowers one side of a binary operator. A Persist-wrapped operand
// is lowered without the wrapper and gets a static lifetime.
func (e *emitter) operand(n ir.Node, next int) (ref, string, int) {
	inner, persisted := ir.UnwrapPersist(n)
	r, next := e.node(inner, next)
	if persisted {
		return r, lifetimeStatic, next
	}
	return r, lifetimeTick, next
}

func (e *emitter) leaf(l ir.Leaf, next int) int {
	in, next := e.node(*l.InputSlot(), next)
	switch l := l.(type) {
	case *ir.ForEach:
		e.progs.add(in.loc, "", fmt.Sprintf("%s -> for_each(%s);", in.ident, l.F))
	case *ir.DestSink:
		e.progs.add(in.loc, "", fmt.Sprintf("%s -> dest_sink(%s);", in.ident, l.Sink))
	case *ir.CycleSink:
		if !l.Location.SameRoot(in.loc) {
			ir.Fatalf(ir.Contract, "emit", "cycle_sink location mismatch")
		}
		e.progs.add(l.Location, l.Ident, fmt.Sprintf("%s = %s;", l.Ident, in.ident))
	}
	return next
}

// unary lowers n's input and appends "stream_N = input -> op;".
func (e *emitter) unary(input ir.Node, op string, next int) (ref, int) {
	in, next := e.node(input, next)
	ident, next := fresh(next)
	e.progs.add(in.loc, ident, fmt.Sprintf("%s = %s -> %s;", ident, in.ident, op))
	return ref{ident: ident, loc: in.loc}, next
}

func (e *emitter) node(n ir.Node, next int) (ref, int) {
	switch n := n.(type) {
	case *ir.Placeholder:
		ir.Fatalf(ir.Contract, "emit", "placeholder reached during emission")

	case *ir.Source:
		return e.source(n, next)

	case *ir.CycleSource:
		return ref{ident: n.Ident, loc: n.Location}, next

	case *ir.Tee:
		if r, ok := e.tees[n.Ref]; ok {
			return r, next
		}
		r, next := e.unary(e.arena.Load(n.Ref), "tee()", next)
		e.tees[n.Ref] = r
		return r, next

	case *ir.Persist:
		return e.unary(n.Inner, "persist::<'static>()", next)
	case *ir.Unpersist:
		ir.Fatalf(ir.Contract, "emit", "unpersist is a marker node and should have been optimized away")
	case *ir.Delta:
		return e.unary(n.Inner, "multiset_delta()", next)
	case *ir.DeferTick:
		return e.unary(n.Input, "defer_tick_lazy()", next)

	case *ir.Map:
		return e.unary(n.Input, fmt.Sprintf("map(%s)", n.F), next)
	case *ir.FlatMap:
		return e.unary(n.Input, fmt.Sprintf("flat_map(%s)", n.F), next)
	case *ir.Filter:
		return e.unary(n.Input, fmt.Sprintf("filter(%s)", n.F), next)
	case *ir.FilterMap:
		return e.unary(n.Input, fmt.Sprintf("filter_map(%s)", n.F), next)
	case *ir.Inspect:
		return e.unary(n.Input, fmt.Sprintf("inspect(%s)", n.F), next)
	case *ir.Sort:
		return e.unary(n.Input, "sort()", next)
	case *ir.Unique:
		return e.unary(n.Input, "unique::<'tick>()", next)
	case *ir.Enumerate:
		lt := lifetimeTick
		if n.Static {
			lt = lifetimeStatic
		}
		return e.unary(n.Input, fmt.Sprintf("enumerate::<%s>()", lt), next)

	case *ir.Fold:
		return e.aggregate("fold", n.Input, fmt.Sprintf("%s, %s", n.Init, n.Acc), next)
	case *ir.FoldKeyed:
		return e.aggregate("fold_keyed", n.Input, fmt.Sprintf("%s, %s", n.Init, n.Acc), next)
	case *ir.Reduce:
		return e.aggregate("reduce", n.Input, n.F.String(), next)
	case *ir.ReduceKeyed:
		return e.aggregate("reduce_keyed", n.Input, n.F.String(), next)

	case *ir.Chain:
		first, next := e.node(n.First, next)
		second, next := e.node(n.Second, next)
		sameRoot("chain", first, second)
		ident, next := fresh(next)
		e.progs.add(first.loc, ident, fmt.Sprintf("%s = chain();\n%s -> [0]%s;\n%s -> [1]%s;",
			ident, first.ident, ident, second.ident, ident))
		return ref{ident: ident, loc: first.loc}, next

	case *ir.CrossSingleton:
		left, next := e.node(n.Left, next)
		right, next := e.node(n.Right, next)
		sameRoot("cross_singleton", left, right)
		ident, next := fresh(next)
		e.progs.add(left.loc, ident, fmt.Sprintf("%s = cross_singleton();\n%s -> [input]%s;\n%s -> [single]%s;",
			ident, left.ident, ident, right.ident, ident))
		return ref{ident: ident, loc: left.loc}, next

	case *ir.Join:
		return e.binary("join_multiset", "join / cross product", n.Left, n.Right, "0", "1", next)
	case *ir.CrossProduct:
		return e.binary("cross_join_multiset", "join / cross product", n.Left, n.Right, "0", "1", next)
	case *ir.Difference:
		return e.binary("difference_multiset", "difference / anti join", n.Pos, n.Neg, "pos", "neg", next)
	case *ir.AntiJoin:
		return e.binary("anti_join_multiset", "difference / anti join", n.Pos, n.Neg, "pos", "neg", next)

	case *ir.Network:
		return e.network(n, next)
	}
	ir.Fatalf(ir.NotImplemented, "emit", "cannot emit %s", ir.OpName(n))
	return ref{}, next
}

func (e *emitter) source(n *ir.Source, next int) (ref, int) {
	if n.Kind == ir.SourceExternalNetwork {
		return ref{ident: "DUMMY", loc: n.Location}, next
	}
	ident, next := fresh(next)
	var text string
	switch n.Kind {
	case ir.SourceStream:
		text = fmt.Sprintf("%s = source_stream(%s);", ident, n.Expr)
	case ir.SourceIter:
		text = fmt.Sprintf("%s = source_iter(%s);", ident, n.Expr)
	case ir.SourceSpin:
		text = fmt.Sprintf("%s = spin();", ident)
	}
	e.progs.add(n.Location, ident, text)
	return ref{ident: ident, loc: n.Location}, next
}

// binary lowers a set-like operator. Each operand picks its own lifetime.
func (e *emitter) binary(op, family string, a, b ir.Node, portA, portB string, next int) (ref, int) {
	left, ltA, next := e.operand(a, next)
	right, ltB, next := e.operand(b, next)
	sameRoot(family, left, right)
	ident, next := fresh(next)
	e.progs.add(left.loc, ident, fmt.Sprintf("%s = %s::<%s, %s>();\n%s -> [%s]%s;\n%s -> [%s]%s;",
		ident, op, ltA, ltB, left.ident, portA, ident, right.ident, portB, ident))
	return ref{ident: ident, loc: left.loc}, next
}

// aggregate lowers a fold or reduce. A Persist-wrapped input accumulates
// across ticks.
func (e *emitter) aggregate(op string, input ir.Node, args string, next int) (ref, int) {
	in, lt, next := e.operand(input, next)
	ident, next := fresh(next)
	e.progs.add(in.loc, ident, fmt.Sprintf("%s = %s -> %s::<%s>(%s);", ident, in.ident, op, lt, args))
	return ref{ident: ident, loc: in.loc}, next
}

// network lowers an edge into a sender statement on the input's location
// and a receiver statement on the destination. Data entering from an
// external process has no sender statement.
func (e *emitter) network(n *ir.Network, next int) (ref, int) {
	sink, source := n.Instantiate.Descriptors()

	in, next := e.node(n.Input, next)
	if src, ok := n.Input.(*ir.Source); !ok || src.Kind != ir.SourceExternalNetwork {
		if n.Serialize.IsZero() {
			e.progs.add(in.loc, "", fmt.Sprintf("%s -> dest_sink(%s);", in.ident, sink))
		} else {
			e.progs.add(in.loc, "", fmt.Sprintf("%s -> map(%s) -> dest_sink(%s);", in.ident, n.Serialize, sink))
		}
	}

	ident, next := fresh(next)
	if n.Deserialize.IsZero() {
		e.progs.add(n.To, ident, fmt.Sprintf("%s = source_stream(%s);", ident, source))
	} else {
		e.progs.add(n.To, ident, fmt.Sprintf("%s = source_stream(%s) -> map(%s);", ident, source, n.Deserialize))
	}
	return ref{ident: ident, loc: n.To.Root()}, next
}
