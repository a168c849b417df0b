package builder

import (
	"github.com/roach88/flowc/internal/ir"
	"github.com/roach88/flowc/internal/location"
)

// Stream is a handle to the output of a node at a location.
//
// Operators consume the receiver. Use Clone to feed one stream to several
// consumers.
type Stream struct {
	b        *FlowBuilder
	node     ir.Node
	loc      location.ID
	consumed bool
}

func (b *FlowBuilder) stream(n ir.Node, loc location.ID) *Stream {
	return &Stream{b: b, node: n, loc: loc}
}

// Location returns where the stream lives.
func (s *Stream) Location() location.ID { return s.loc }

// Type returns the declared element type, if any.
func (s *Stream) Type() ir.Type {
	s.live("type")
	return s.node.Meta().OutputType
}

// As declares the element type of the stream.
func (s *Stream) As(t ir.Type) *Stream {
	s.live("as")
	s.node.Meta().OutputType = t
	return s
}

func (s *Stream) live(op string) {
	if s.consumed {
		ir.Fatalf(ir.Contract, op, "stream at %s already consumed; use Clone to share it", s.loc)
	}
}

// take consumes s and returns its node.
func (s *Stream) take(op string) ir.Node {
	s.live(op)
	s.b.checkOpen(op)
	s.consumed = true
	return s.node
}

// meta returns metadata at the stream's location carrying its type.
func (s *Stream) meta() ir.Metadata {
	return ir.Metadata{Location: s.loc, OutputType: s.node.Meta().OutputType}
}

// Clone returns a second handle to the same stream. The underlying node is
// shared, so it is lowered once no matter how many consumers it has.
func (s *Stream) Clone() *Stream {
	s.live("clone")
	s.b.checkOpen("clone")
	tee, ok := s.node.(*ir.Tee)
	if !ok {
		meta := s.meta()
		tee = &ir.Tee{Ref: s.b.arena.Share(s.node), Metadata: meta}
		s.node = tee
	}
	return s.b.stream(&ir.Tee{Ref: tee.Ref, Metadata: tee.Metadata}, s.loc)
}

func (s *Stream) unary(op string, build func(in ir.Node, meta ir.Metadata) ir.Node) *Stream {
	meta := ir.Metadata{Location: s.loc}
	return s.b.stream(build(s.take(op), meta), s.loc)
}

// binary consumes s and other after checking they share a root location.
func (s *Stream) binary(op string, other *Stream, build func(left, right ir.Node, meta ir.Metadata) ir.Node) *Stream {
	s.live(op)
	other.live(op)
	if !s.loc.SameRoot(other.loc) {
		ir.Fatalf(ir.Contract, op, "%s inputs must be in the same location, got %s and %s", op, s.loc, other.loc)
	}
	meta := ir.Metadata{Location: s.loc}
	return s.b.stream(build(s.take(op), other.take(op), meta), s.loc)
}

// Map applies f to every element.
func (s *Stream) Map(f ir.Expr) *Stream {
	return s.unary("map", func(in ir.Node, m ir.Metadata) ir.Node { return &ir.Map{F: f, Input: in, Metadata: m} })
}

// FlatMap applies f and flattens the results.
func (s *Stream) FlatMap(f ir.Expr) *Stream {
	return s.unary("flat_map", func(in ir.Node, m ir.Metadata) ir.Node { return &ir.FlatMap{F: f, Input: in, Metadata: m} })
}

// Filter keeps elements for which f holds.
func (s *Stream) Filter(f ir.Expr) *Stream {
	return s.unary("filter", func(in ir.Node, m ir.Metadata) ir.Node {
		m.OutputType = in.Meta().OutputType
		return &ir.Filter{F: f, Input: in, Metadata: m}
	})
}

// FilterMap applies f and keeps present results.
func (s *Stream) FilterMap(f ir.Expr) *Stream {
	return s.unary("filter_map", func(in ir.Node, m ir.Metadata) ir.Node { return &ir.FilterMap{F: f, Input: in, Metadata: m} })
}

// Inspect calls f on every element.
func (s *Stream) Inspect(f ir.Expr) *Stream {
	return s.unary("inspect", func(in ir.Node, m ir.Metadata) ir.Node {
		m.OutputType = in.Meta().OutputType
		return &ir.Inspect{F: f, Input: in, Metadata: m}
	})
}

// Enumerate pairs elements with a counter. At a top-level location the
// counter keeps counting across ticks.
func (s *Stream) Enumerate() *Stream {
	static := s.loc.IsTopLevel()
	return s.unary("enumerate", func(in ir.Node, m ir.Metadata) ir.Node {
		return &ir.Enumerate{Static: static, Input: in, Metadata: m}
	})
}

// Sort emits each tick's elements in order.
func (s *Stream) Sort() *Stream {
	return s.unary("sort", func(in ir.Node, m ir.Metadata) ir.Node {
		m.OutputType = in.Meta().OutputType
		return &ir.Sort{Input: in, Metadata: m}
	})
}

// Unique drops duplicates within a tick.
func (s *Stream) Unique() *Stream {
	return s.unary("unique", func(in ir.Node, m ir.Metadata) ir.Node {
		m.OutputType = in.Meta().OutputType
		return &ir.Unique{Input: in, Metadata: m}
	})
}

// Persist replays every element received so far on every tick.
func (s *Stream) Persist() *Stream {
	return s.unary("persist", func(in ir.Node, m ir.Metadata) ir.Node {
		m.OutputType = in.Meta().OutputType
		return &ir.Persist{Inner: in, Metadata: m}
	})
}

// Delta emits only elements new since the previous tick.
func (s *Stream) Delta() *Stream {
	return s.unary("delta", func(in ir.Node, m ir.Metadata) ir.Node {
		m.OutputType = in.Meta().OutputType
		return &ir.Delta{Inner: in, Metadata: m}
	})
}

// DeferTick delays the stream by one tick.
func (s *Stream) DeferTick() *Stream {
	return s.unary("defer_tick", func(in ir.Node, m ir.Metadata) ir.Node {
		m.OutputType = in.Meta().OutputType
		return &ir.DeferTick{Input: in, Metadata: m}
	})
}

// Batch moves a top-level stream into tick, one batch per tick. The marker
// is removed again by the compiler's simplify pass.
func (s *Stream) Batch(tick *Location) *Stream {
	s.live("batch")
	if tick.id.Kind() != location.KindTick {
		ir.Fatalf(ir.Contract, "batch", "batch target %s is not a tick", tick.id)
	}
	if !s.loc.SameRoot(tick.id) {
		ir.Fatalf(ir.Contract, "batch", "batch inputs must be in the same location, got %s and %s", s.loc, tick.id)
	}
	meta := ir.Metadata{Location: tick.id, OutputType: s.node.Meta().OutputType}
	return s.b.stream(&ir.Unpersist{Inner: s.take("batch"), Metadata: meta}, tick.id)
}

// AllTicks moves a tick stream out to the enclosing location, accumulating
// every tick's elements.
func (s *Stream) AllTicks() *Stream {
	s.live("all_ticks")
	outer, ok := s.loc.Outer()
	if !ok {
		ir.Fatalf(ir.Contract, "all_ticks", "%s is not a tick", s.loc)
	}
	meta := ir.Metadata{Location: outer, OutputType: s.node.Meta().OutputType}
	return s.b.stream(&ir.Persist{Inner: s.take("all_ticks"), Metadata: meta}, outer)
}

// Chain concatenates s and other.
func (s *Stream) Chain(other *Stream) *Stream {
	return s.binary("chain", other, func(l, r ir.Node, m ir.Metadata) ir.Node {
		m.OutputType = l.Meta().OutputType
		return &ir.Chain{First: l, Second: r, Metadata: m}
	})
}

// CrossProduct pairs every element of s with every element of other.
func (s *Stream) CrossProduct(other *Stream) *Stream {
	return s.binary("cross_product", other, func(l, r ir.Node, m ir.Metadata) ir.Node {
		return &ir.CrossProduct{Left: l, Right: r, Metadata: m}
	})
}

// CrossSingleton pairs every element of s with the single value of other.
func (s *Stream) CrossSingleton(other *Stream) *Stream {
	return s.binary("cross_singleton", other, func(l, r ir.Node, m ir.Metadata) ir.Node {
		return &ir.CrossSingleton{Left: l, Right: r, Metadata: m}
	})
}

// Join joins two keyed streams on their keys.
func (s *Stream) Join(other *Stream) *Stream {
	return s.binary("join", other, func(l, r ir.Node, m ir.Metadata) ir.Node {
		return &ir.Join{Left: l, Right: r, Metadata: m}
	})
}

// Difference emits elements of s absent from neg.
func (s *Stream) Difference(neg *Stream) *Stream {
	return s.binary("difference", neg, func(p, n ir.Node, m ir.Metadata) ir.Node {
		m.OutputType = p.Meta().OutputType
		return &ir.Difference{Pos: p, Neg: n, Metadata: m}
	})
}

// AntiJoin emits keyed elements of s whose key is absent from neg.
func (s *Stream) AntiJoin(neg *Stream) *Stream {
	return s.binary("anti_join", neg, func(p, n ir.Node, m ir.Metadata) ir.Node {
		m.OutputType = p.Meta().OutputType
		return &ir.AntiJoin{Pos: p, Neg: n, Metadata: m}
	})
}

// Fold folds all elements into one accumulator.
func (s *Stream) Fold(init, acc ir.Expr) *Stream {
	return s.unary("fold", func(in ir.Node, m ir.Metadata) ir.Node {
		return &ir.Fold{Init: init, Acc: acc, Input: in, Metadata: m}
	})
}

// FoldKeyed folds values per key.
func (s *Stream) FoldKeyed(init, acc ir.Expr) *Stream {
	return s.unary("fold_keyed", func(in ir.Node, m ir.Metadata) ir.Node {
		return &ir.FoldKeyed{Init: init, Acc: acc, Input: in, Metadata: m}
	})
}

// Reduce combines all elements with f.
func (s *Stream) Reduce(f ir.Expr) *Stream {
	return s.unary("reduce", func(in ir.Node, m ir.Metadata) ir.Node {
		m.OutputType = in.Meta().OutputType
		return &ir.Reduce{F: f, Input: in, Metadata: m}
	})
}

// ReduceKeyed combines values per key with f.
func (s *Stream) ReduceKeyed(f ir.Expr) *Stream {
	return s.unary("reduce_keyed", func(in ir.Node, m ir.Metadata) ir.Node {
		m.OutputType = in.Meta().OutputType
		return &ir.ReduceKeyed{F: f, Input: in, Metadata: m}
	})
}

// ForEach consumes every element with f.
func (s *Stream) ForEach(f ir.Expr) {
	s.b.AddLeaf(&ir.ForEach{F: f, Input: s.take("for_each")})
}

// DestSink writes every element to sink.
func (s *Stream) DestSink(sink ir.Expr) {
	s.b.AddLeaf(&ir.DestSink{Sink: sink, Input: s.take("dest_sink")})
}
