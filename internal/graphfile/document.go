// Package graphfile decodes declarative graph documents and replays them
// through the builder.
//
// A document declares named locations and an ordered list of steps. Each
// step applies one builder operation to streams produced by earlier steps,
// referenced by name. A stream named by more than one step is cloned
// automatically, so the node is shared instead of duplicated.
//
//	locations:
//	  - {name: leader, kind: process}
//	  - {name: workers, kind: cluster}
//	steps:
//	  - {name: nums, op: source_iter, at: leader, expr: "0..10"}
//	  - {name: out, op: send, input: nums, to: workers}
//	  - {op: for_each, input: out, expr: "|x| println!(\"{}\", x)"}
//
// Documents are read from YAML (and JSON) or CUE. CUE documents are checked
// against the schema in schema.cue before decoding.
package graphfile

// Location kinds.
const (
	KindProcess  = "process"
	KindCluster  = "cluster"
	KindExternal = "external"
	KindTick     = "tick"
)

// Document is a declarative graph.
type Document struct {
	Name      string     `yaml:"name,omitempty" json:"name,omitempty"`
	Locations []Location `yaml:"locations" json:"locations"`
	Steps     []Step     `yaml:"steps" json:"steps"`
}

// Location declares a named location. Of names the enclosing location of
// a tick.
type Location struct {
	Name string `yaml:"name" json:"name"`
	Kind string `yaml:"kind" json:"kind"`
	Of   string `yaml:"of,omitempty" json:"of,omitempty"`
}

// Step is one builder operation. Which fields apply depends on Op:
//
//	sources          at, expr
//	forward_ref      at            (name is both the stream and the cycle)
//	tick_cycle       at            (name is both the stream and the cycle)
//	complete         cycle, input
//	complete_next_tick cycle, input
//	unary operators  input, expr
//	fold, fold_keyed input, init, expr
//	batch            input, to     (to is a tick)
//	binary operators input, other
//	send             input, to
//	send_external    input, to     (to is an external; name records the port)
//	source_bytes     at, to        (at is an external)
//	source_bincode   at, to, type
//	for_each, dest_sink input, expr
//
// Type, when set on any other step, declares the element type of its
// output.
type Step struct {
	Name  string `yaml:"name,omitempty" json:"name,omitempty"`
	Op    string `yaml:"op" json:"op"`
	At    string `yaml:"at,omitempty" json:"at,omitempty"`
	Input string `yaml:"input,omitempty" json:"input,omitempty"`
	Other string `yaml:"other,omitempty" json:"other,omitempty"`
	To    string `yaml:"to,omitempty" json:"to,omitempty"`
	Cycle string `yaml:"cycle,omitempty" json:"cycle,omitempty"`
	Expr  string `yaml:"expr,omitempty" json:"expr,omitempty"`
	Init  string `yaml:"init,omitempty" json:"init,omitempty"`
	Type  string `yaml:"type,omitempty" json:"type,omitempty"`
}
