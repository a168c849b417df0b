package compiler

import (
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/flowc/internal/ir"
	"github.com/roach88/flowc/internal/location"
)

// Validation error codes (E200-E299)
const (
	// Graph errors (E200-E209)
	ErrEmptyGraph        = "E200" // graph has no leaves
	ErrPlaceholder       = "E201" // placeholder left in the graph
	ErrCoLocation        = "E202" // operands resolve to different roots
	ErrCycleSinkLocation = "E203" // cycle sink input on another root
	ErrUnboundCycle      = "E204" // cycle source without a sink
	ErrDuplicateCycle    = "E205" // cycle identifier bound twice

	// Network errors (E210-E219)
	ErrTickEndpoint       = "E210" // network endpoint is a tick
	ErrUnsupportedShape   = "E211" // no transport for the location pair
	ErrMissingExternalKey = "E212" // external edge without a port key
	ErrNetworkState       = "E213" // network not in Building state
)

// ValidationError represents a graph validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// ValidationErrors is returned by Compile when validation fails.
type ValidationErrors []ValidationError

func (es ValidationErrors) Error() string {
	msgs := make([]string, len(es))
	for i, e := range es {
		msgs[i] = e.Error()
	}
	return fmt.Sprintf("%d validation error(s):\n  %s", len(es), strings.Join(msgs, "\n  "))
}

// Validate checks a finalized graph before compilation.
// Returns all errors found (does not fail-fast).
//
// Field names a node by the path from its leaf, e.g.
// "leaves[0]/for_each/join.right".
func Validate(g *ir.Graph) []ValidationError {
	v := &validator{
		arena:   g.Arena,
		visited: map[ir.TeeID]bool{},
		sources: map[string]string{},
		sinks:   map[string]string{},
	}

	if len(g.Leaves) == 0 {
		v.add("leaves", ErrEmptyGraph, "graph has no leaves")
	}

	for i, l := range g.Leaves {
		path := fmt.Sprintf("leaves[%d]/%s", i, ir.LeafName(l))
		if cs, ok := l.(*ir.CycleSink); ok {
			if prev, dup := v.sinks[cs.Ident]; dup {
				v.add(path, ErrDuplicateCycle, fmt.Sprintf("%s already bound at %s", cs.Ident, prev))
			} else {
				v.sinks[cs.Ident] = path
			}
		}
		loc, ok := v.node(*l.InputSlot(), path)
		if cs, isSink := l.(*ir.CycleSink); isSink && ok && !loc.SameRoot(cs.Location) {
			v.add(path, ErrCycleSinkLocation,
				fmt.Sprintf("%s declared at %s is bound to a stream at %s", cs.Ident, cs.Location, loc))
		}
	}

	for _, ident := range sortedKeys(v.sources) {
		if _, ok := v.sinks[ident]; !ok {
			v.add(v.sources[ident], ErrUnboundCycle, fmt.Sprintf("%s is never bound by a cycle sink", ident))
		}
	}

	return v.errs
}

type validator struct {
	arena   *ir.Arena
	visited map[ir.TeeID]bool
	sources map[string]string
	sinks   map[string]string
	errs    []ValidationError
}

func (v *validator) add(field, code, msg string) {
	v.errs = append(v.errs, ValidationError{Field: field, Message: msg, Code: code})
}

// node validates n and its inputs. It returns n's location, or false if n
// has none.
func (v *validator) node(n ir.Node, path string) (location.ID, bool) {
	if _, ok := n.(*ir.Placeholder); ok {
		v.add(path, ErrPlaceholder, "placeholder left in the graph")
		return location.ID{}, false
	}
	path = path + "/" + ir.OpName(n)
	loc := n.Meta().Location

	switch n := n.(type) {
	case *ir.Tee:
		if v.visited[n.Ref] {
			return loc, true
		}
		v.visited[n.Ref] = true
		if n.Ref < 0 || int(n.Ref) >= v.arena.Len() {
			v.add(path, ErrPlaceholder, fmt.Sprintf("tee cell %d does not exist", n.Ref))
			return loc, true
		}
		v.node(v.arena.Load(n.Ref), path)
		return loc, true

	case *ir.CycleSource:
		if _, ok := v.sources[n.Ident]; !ok {
			v.sources[n.Ident] = path
		}
		return loc, true

	case *ir.Network:
		v.network(n, path)
		v.node(n.Input, path)
		return loc, true
	}

	slots := ir.ChildSlots(n)
	var first location.ID
	var haveFirst bool
	for i, slot := range slots {
		child, ok := v.node(*slot, path+childLabel(n, i))
		if !ok {
			continue
		}
		if !haveFirst {
			first, haveFirst = child, true
			continue
		}
		if !first.SameRoot(child) {
			v.add(path, ErrCoLocation,
				fmt.Sprintf("%s inputs must be in the same location, got %s and %s", ir.OpName(n), first, child))
		}
	}
	return loc, true
}

func (v *validator) network(n *ir.Network, path string) {
	if !n.From.IsTopLevel() || !n.To.IsTopLevel() {
		v.add(path, ErrTickEndpoint, fmt.Sprintf("network endpoints must be top-level, got %s -> %s", n.From, n.To))
		return
	}
	from, to := n.From.Kind(), n.To.Kind()
	switch {
	case from == location.KindExternal && to == location.KindExternal:
		v.add(path, ErrUnsupportedShape, "cannot send from external to external")
	case from == location.KindExternal && to == location.KindCluster,
		from == location.KindCluster && to == location.KindExternal:
		v.add(path, ErrUnsupportedShape, fmt.Sprintf("no transport between %s and %s", n.From, n.To))
	case from == location.KindExternal && n.FromKey == nil:
		v.add(path, ErrMissingExternalKey, fmt.Sprintf("network from %s has no external port key", n.From))
	case to == location.KindExternal && n.ToKey == nil:
		v.add(path, ErrMissingExternalKey, fmt.Sprintf("network to %s has no external port key", n.To))
	}
	if st := n.Instantiate.State(); st != ir.Building {
		v.add(path, ErrNetworkState, fmt.Sprintf("network is %s; graphs are compiled once", st))
	}
}

// childLabel names the i-th input of a binary operator.
func childLabel(n ir.Node, i int) string {
	var labels [2]string
	switch n.(type) {
	case *ir.Chain:
		labels = [2]string{".first", ".second"}
	case *ir.CrossProduct, *ir.CrossSingleton, *ir.Join:
		labels = [2]string{".left", ".right"}
	case *ir.Difference, *ir.AntiJoin:
		labels = [2]string{".pos", ".neg"}
	default:
		return ""
	}
	return labels[i]
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
