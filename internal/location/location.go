// Package location identifies where a fragment of a dataflow graph runs.
//
// A location is either a root (a process, a cluster of processes, or an
// external process that talks to the deployment over the network) or a
// tick: a nested temporal scope inside some root. Every physical placement
// decision is made on the root; ticks only describe batching.
package location

import (
	"cmp"
	"fmt"
)

// Kind is the variant of a location ID.
type Kind int

const (
	// KindProcess is a single process.
	KindProcess Kind = iota
	// KindCluster is a group of identical processes.
	KindCluster
	// KindExternal is a process outside the deployment.
	KindExternal
	// KindTick is a per-epoch scope nested inside another location.
	KindTick
)

func (k Kind) String() string {
	switch k {
	case KindProcess:
		return "process"
	case KindCluster:
		return "cluster"
	case KindExternal:
		return "external"
	case KindTick:
		return "tick"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ID identifies a placement target. The zero value is Process(0).
//
// IDs are immutable values; Tick keeps a pointer to its enclosing location
// which is never mutated after construction.
type ID struct {
	kind  Kind
	raw   int
	outer *ID
}

// Process returns the location of process id.
func Process(id int) ID { return ID{kind: KindProcess, raw: id} }

// Cluster returns the location of cluster id.
func Cluster(id int) ID { return ID{kind: KindCluster, raw: id} }

// ExternalProcess returns the location of external process id.
func ExternalProcess(id int) ID { return ID{kind: KindExternal, raw: id} }

// Tick returns tick scope id nested inside outer.
func Tick(id int, outer ID) ID {
	o := outer
	return ID{kind: KindTick, raw: id, outer: &o}
}

// Kind returns the variant of l.
func (l ID) Kind() Kind { return l.kind }

// Raw returns the numeric id of l (for a tick, the tick's own id).
func (l ID) Raw() int { return l.raw }

// Outer returns the location a tick is nested in. It reports false for roots.
func (l ID) Outer() (ID, bool) {
	if l.kind != KindTick || l.outer == nil {
		return ID{}, false
	}
	return *l.outer, true
}

// Root resolves l to its enclosing root. Roots resolve to themselves.
func (l ID) Root() ID {
	for l.kind == KindTick {
		l = *l.outer
	}
	return l
}

// IsTopLevel reports whether l is a root.
func (l ID) IsTopLevel() bool {
	return l.kind != KindTick
}

// Equal reports whether l and o name the same location, including the
// nesting chain of ticks.
func (l ID) Equal(o ID) bool {
	for {
		if l.kind != o.kind || l.raw != o.raw {
			return false
		}
		if l.kind != KindTick {
			return true
		}
		l, o = *l.outer, *o.outer
	}
}

// SameRoot reports whether l and o resolve to the same root.
func (l ID) SameRoot(o ID) bool {
	return l.Root().Equal(o.Root())
}

func (l ID) String() string {
	if l.kind == KindTick {
		return fmt.Sprintf("tick(%d)@%s", l.raw, l.outer.String())
	}
	return fmt.Sprintf("%s(%d)", l.kind, l.raw)
}

// Compare orders roots by raw id, then by kind. It returns a negative
// number if a sorts before b, zero if they are the same root, and a
// positive number otherwise. Ticks compare by their roots.
func Compare(a, b ID) int {
	a, b = a.Root(), b.Root()
	if a.raw != b.raw {
		return cmp.Compare(a.raw, b.raw)
	}
	return cmp.Compare(a.kind, b.kind)
}
