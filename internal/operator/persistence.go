// Package operator defines the contract stateful operators follow in the
// local runtime: how per-operator state is held, when it is cleared or
// replayed across ticks, and what the operator asks of the scheduler.
//
// The keyed aggregations (FoldKeyed, ReduceKeyed) and Fold share one keyed
// table implementation; their outputs are selected by a Persistence policy.
package operator

import (
	"fmt"
	"strings"
)

// Persistence selects how long operator state lives.
type Persistence int

const (
	// None behaves as Tick.
	None Persistence = iota
	// Tick clears state after every activation.
	Tick
	// Loop keeps state across the activations of one tick and clears it
	// when the next tick starts.
	Loop
	// Static keeps state forever and emits it once per tick.
	Static
	// Mutable keeps state forever, accepts Upsert and Delete entries, and
	// emits it on every activation.
	Mutable
)

// String returns the lifetime annotation of p, e.g. "'static". None has
// no annotation.
func (p Persistence) String() string {
	switch p {
	case None:
		return ""
	case Tick:
		return "'tick"
	case Loop:
		return "'loop"
	case Static:
		return "'static"
	case Mutable:
		return "'mutable"
	default:
		return fmt.Sprintf("persistence(%d)", int(p))
	}
}

// ParsePersistence parses a lifetime annotation. The leading quote is
// optional and an empty string is None.
func ParsePersistence(s string) (Persistence, error) {
	switch strings.TrimPrefix(s, "'") {
	case "", "none":
		return None, nil
	case "tick":
		return Tick, nil
	case "loop":
		return Loop, nil
	case "static":
		return Static, nil
	case "mutable":
		return Mutable, nil
	default:
		return None, fmt.Errorf("unknown persistence %q", s)
	}
}

// ClearsEveryActivation reports whether state is dropped after each
// activation.
func (p Persistence) ClearsEveryActivation() bool {
	return p == None || p == Tick
}

// Reschedules reports whether the operator asks the scheduler to run its
// subgraph again on a later tick, so consumers that start observing late
// still see the replayed state.
func (p Persistence) Reschedules() bool {
	return p == Static || p == Mutable
}

// DelayType is the kind of barrier an operator places on an input edge.
type DelayType int

const (
	// DelayNone passes input through as it arrives.
	DelayNone DelayType = iota
	// DelayStratum drains all of the tick's input before the operator runs.
	DelayStratum
)

func (d DelayType) String() string {
	if d == DelayStratum {
		return "stratum"
	}
	return "none"
}
