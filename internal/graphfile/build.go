package graphfile

import (
	"fmt"

	"github.com/roach88/flowc/internal/builder"
	"github.com/roach88/flowc/internal/ir"
)

// Built is a replayed document.
type Built struct {
	Graph *ir.Graph
	// Ports maps the names of send_external, source_bytes and
	// source_bincode steps to the external ports they allocated.
	Ports map[string]builder.ExternalPort
}

var unaryExpr = map[string]func(*builder.Stream, ir.Expr) *builder.Stream{
	"map":          (*builder.Stream).Map,
	"flat_map":     (*builder.Stream).FlatMap,
	"filter":       (*builder.Stream).Filter,
	"filter_map":   (*builder.Stream).FilterMap,
	"inspect":      (*builder.Stream).Inspect,
	"reduce":       (*builder.Stream).Reduce,
	"reduce_keyed": (*builder.Stream).ReduceKeyed,
}

var unary = map[string]func(*builder.Stream) *builder.Stream{
	"enumerate":  (*builder.Stream).Enumerate,
	"sort":       (*builder.Stream).Sort,
	"unique":     (*builder.Stream).Unique,
	"persist":    (*builder.Stream).Persist,
	"delta":      (*builder.Stream).Delta,
	"defer_tick": (*builder.Stream).DeferTick,
	"all_ticks":  (*builder.Stream).AllTicks,
}

var fold = map[string]func(*builder.Stream, ir.Expr, ir.Expr) *builder.Stream{
	"fold":       (*builder.Stream).Fold,
	"fold_keyed": (*builder.Stream).FoldKeyed,
}

var binary = map[string]func(*builder.Stream, *builder.Stream) *builder.Stream{
	"chain":           (*builder.Stream).Chain,
	"cross_product":   (*builder.Stream).CrossProduct,
	"cross_singleton": (*builder.Stream).CrossSingleton,
	"join":            (*builder.Stream).Join,
	"difference":      (*builder.Stream).Difference,
	"anti_join":       (*builder.Stream).AntiJoin,
}

var leaf = map[string]func(*builder.Stream, ir.Expr){
	"for_each":  (*builder.Stream).ForEach,
	"dest_sink": (*builder.Stream).DestSink,
}

// Build replays doc through a new builder and finalizes the graph.
// Unknown names and misplaced fields are reported with the index of the
// offending step; builder contract violations are returned as *ir.Error.
func Build(doc *Document) (built *Built, err error) {
	defer ir.Recover(&err)

	r := &replay{
		b:       builder.New(),
		locs:    make(map[string]*builder.Location),
		exts:    make(map[string]*builder.External),
		streams: make(map[string]*builder.Stream),
		uses:    make(map[string]int),
		refs:    make(map[string]*builder.ForwardRef),
		cycles:  make(map[string]*builder.TickCycle),
		ports:   make(map[string]builder.ExternalPort),
	}

	for i, l := range doc.Locations {
		if err := r.declare(l); err != nil {
			return nil, fmt.Errorf("locations[%d]: %w", i, err)
		}
	}
	for _, s := range doc.Steps {
		for _, name := range []string{s.Input, s.Other} {
			if name != "" {
				r.uses[name]++
			}
		}
	}
	for i, s := range doc.Steps {
		if err := r.step(s); err != nil {
			return nil, fmt.Errorf("steps[%d] (%s): %w", i, s.Op, err)
		}
	}

	if pending := r.b.Pending(); len(pending) > 0 {
		return nil, fmt.Errorf("cycles never completed: %v", pending)
	}
	return &Built{Graph: r.b.Finalize(), Ports: r.ports}, nil
}

type replay struct {
	b       *builder.FlowBuilder
	locs    map[string]*builder.Location
	exts    map[string]*builder.External
	streams map[string]*builder.Stream
	uses    map[string]int
	refs    map[string]*builder.ForwardRef
	cycles  map[string]*builder.TickCycle
	ports   map[string]builder.ExternalPort
}

func (r *replay) declare(l Location) error {
	if l.Name == "" {
		return fmt.Errorf("location name is required")
	}
	if r.locs[l.Name] != nil || r.exts[l.Name] != nil {
		return fmt.Errorf("location %q declared twice", l.Name)
	}
	if l.Of != "" && l.Kind != KindTick {
		return fmt.Errorf("location %q: of only applies to ticks", l.Name)
	}

	switch l.Kind {
	case KindProcess:
		r.locs[l.Name] = r.b.Process()
	case KindCluster:
		r.locs[l.Name] = r.b.Cluster()
	case KindExternal:
		r.exts[l.Name] = r.b.External()
	case KindTick:
		outer, err := r.location(l.Of)
		if err != nil {
			return fmt.Errorf("tick %q: %w", l.Name, err)
		}
		r.locs[l.Name] = outer.Tick()
	default:
		return fmt.Errorf("location %q: unknown kind %q", l.Name, l.Kind)
	}
	return nil
}

func (r *replay) location(name string) (*builder.Location, error) {
	if name == "" {
		return nil, fmt.Errorf("location is required")
	}
	l, ok := r.locs[name]
	if !ok {
		return nil, fmt.Errorf("unknown location %q", name)
	}
	return l, nil
}

func (r *replay) external(name string) (*builder.External, error) {
	e, ok := r.exts[name]
	if !ok {
		return nil, fmt.Errorf("unknown external %q", name)
	}
	return e, nil
}

// take returns the stream for one use of name. Every use but the last
// gets a clone.
func (r *replay) take(name string) (*builder.Stream, error) {
	if name == "" {
		return nil, fmt.Errorf("input is required")
	}
	s, ok := r.streams[name]
	if !ok {
		return nil, fmt.Errorf("unknown stream %q", name)
	}
	r.uses[name]--
	if r.uses[name] > 0 {
		return s.Clone(), nil
	}
	delete(r.streams, name)
	return s, nil
}

// define records the output of a step.
func (r *replay) define(s Step, out *builder.Stream) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if _, ok := r.streams[s.Name]; ok {
		return fmt.Errorf("stream %q defined twice", s.Name)
	}
	if s.Type != "" && s.Op != "source_bincode" {
		out = out.As(ir.Type(s.Type))
	}
	r.streams[s.Name] = out
	return nil
}

func (r *replay) step(s Step) error {
	if f, ok := unaryExpr[s.Op]; ok {
		in, err := r.take(s.Input)
		if err != nil {
			return err
		}
		return r.define(s, f(in, ir.Expr(s.Expr)))
	}
	if f, ok := unary[s.Op]; ok {
		in, err := r.take(s.Input)
		if err != nil {
			return err
		}
		return r.define(s, f(in))
	}
	if f, ok := fold[s.Op]; ok {
		in, err := r.take(s.Input)
		if err != nil {
			return err
		}
		return r.define(s, f(in, ir.Expr(s.Init), ir.Expr(s.Expr)))
	}
	if f, ok := binary[s.Op]; ok {
		left, err := r.take(s.Input)
		if err != nil {
			return err
		}
		if s.Other == "" {
			return fmt.Errorf("other is required")
		}
		right, err := r.take(s.Other)
		if err != nil {
			return err
		}
		return r.define(s, f(left, right))
	}
	if f, ok := leaf[s.Op]; ok {
		in, err := r.take(s.Input)
		if err != nil {
			return err
		}
		f(in, ir.Expr(s.Expr))
		return nil
	}

	switch s.Op {
	case "source_stream", "source_iter", "spin":
		at, err := r.location(s.At)
		if err != nil {
			return err
		}
		switch s.Op {
		case "source_stream":
			return r.define(s, at.SourceStream(ir.Expr(s.Expr)))
		case "source_iter":
			return r.define(s, at.SourceIter(ir.Expr(s.Expr)))
		default:
			return r.define(s, at.Spin())
		}

	case "forward_ref", "tick_cycle":
		at, err := r.location(s.At)
		if err != nil {
			return err
		}
		if r.refs[s.Name] != nil || r.cycles[s.Name] != nil {
			return fmt.Errorf("cycle %q declared twice", s.Name)
		}
		var out *builder.Stream
		if s.Op == "forward_ref" {
			var ref *builder.ForwardRef
			ref, out = at.ForwardRef()
			r.refs[s.Name] = ref
		} else {
			var cyc *builder.TickCycle
			cyc, out = at.TickCycle()
			r.cycles[s.Name] = cyc
		}
		return r.define(s, out)

	case "complete":
		ref, ok := r.refs[s.Cycle]
		if !ok {
			return fmt.Errorf("unknown forward_ref %q", s.Cycle)
		}
		in, err := r.take(s.Input)
		if err != nil {
			return err
		}
		ref.Complete(in)
		return nil

	case "complete_next_tick":
		cyc, ok := r.cycles[s.Cycle]
		if !ok {
			return fmt.Errorf("unknown tick_cycle %q", s.Cycle)
		}
		in, err := r.take(s.Input)
		if err != nil {
			return err
		}
		cyc.CompleteNextTick(in)
		return nil

	case "batch":
		in, err := r.take(s.Input)
		if err != nil {
			return err
		}
		tick, err := r.location(s.To)
		if err != nil {
			return err
		}
		return r.define(s, in.Batch(tick))

	case "send":
		in, err := r.take(s.Input)
		if err != nil {
			return err
		}
		to, err := r.location(s.To)
		if err != nil {
			return err
		}
		return r.define(s, in.Send(to))

	case "send_external":
		in, err := r.take(s.Input)
		if err != nil {
			return err
		}
		ext, err := r.external(s.To)
		if err != nil {
			return err
		}
		port := in.SendExternal(ext)
		if s.Name != "" {
			r.ports[s.Name] = port
		}
		return nil

	case "source_bytes", "source_bincode":
		ext, err := r.external(s.At)
		if err != nil {
			return err
		}
		to, err := r.location(s.To)
		if err != nil {
			return err
		}
		var port builder.ExternalPort
		var out *builder.Stream
		if s.Op == "source_bytes" {
			port, out = ext.SourceBytes(to)
		} else {
			if s.Type == "" {
				return fmt.Errorf("type is required")
			}
			port, out = ext.SourceBincode(to, ir.Type(s.Type))
		}
		if err := r.define(s, out); err != nil {
			return err
		}
		r.ports[s.Name] = port
		return nil
	}

	return fmt.Errorf("unknown op %q", s.Op)
}
