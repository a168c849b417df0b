package compiler

import (
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/flowc/internal/ir"
	"github.com/roach88/flowc/internal/location"
)

// Feedback levels.
const (
	LevelWarning = "warning"
	LevelInfo    = "info"
)

// FeedbackWarning describes a loop through cycle identifiers.
//
// Loops are never errors: a forward reference or tick cycle exists to build
// one. A loop inside a tick that never passes through defer_tick is
// reported at warning level as same-tick feedback.
type FeedbackWarning struct {
	Path    []string `json:"path"`    // e.g. ["cycle_0", "cycle_1", "cycle_0"]
	Message string   `json:"message"` // human-readable description
	Level   string   `json:"level"`   // "warning" or "info"
}

// String renders the warning as "level: message".
func (w FeedbackWarning) String() string {
	return w.Level + ": " + w.Message
}

// AnalyzeFeedback finds loops between cycle identifiers.
//
// The algorithm:
//  1. For every cycle sink, collect the cycle sources upstream of its input,
//     noting whether each is reachable without passing defer_tick or a
//     network edge
//  2. Use Tarjan's algorithm to find strongly connected components over
//     source -> sink edges
//  3. Report each SCC with size > 1 or a self-loop; an SCC that stays
//     cyclic over immediate edges alone, inside a tick, is same-tick feedback
//
// A graph without loops returns an empty list.
func AnalyzeFeedback(g *ir.Graph) []FeedbackWarning {
	graph, immediate, locs := buildFeedbackGraph(g)
	if len(graph) == 0 {
		return []FeedbackWarning{}
	}

	warnings := []FeedbackWarning{}
	for _, scc := range tarjanSCC(graph) {
		if len(scc) == 1 && !hasSelfLoop(scc[0], graph) {
			continue
		}
		warnings = append(warnings, sccToWarning(scc, graph, immediate, locs))
	}
	sort.Slice(warnings, func(i, j int) bool {
		return strings.Join(warnings[i].Path, ",") < strings.Join(warnings[j].Path, ",")
	})
	return warnings
}

// dependencyGraph maps a cycle identifier to the identifiers its stream
// flows into.
type dependencyGraph map[string][]string

// upstream maps a cycle identifier to whether it is reachable without delay.
type upstream map[string]bool

func merge(dst, src upstream) {
	for k, v := range src {
		dst[k] = dst[k] || v
	}
}

func delayed(u upstream) upstream {
	out := make(upstream, len(u))
	for k := range u {
		out[k] = false
	}
	return out
}

type feedbackWalker struct {
	arena *ir.Arena
	tees  map[ir.TeeID]upstream
}

func (w *feedbackWalker) sources(n ir.Node) upstream {
	switch n := n.(type) {
	case *ir.CycleSource:
		return upstream{n.Ident: true}
	case *ir.Tee:
		if u, ok := w.tees[n.Ref]; ok {
			return u
		}
		w.tees[n.Ref] = upstream{}
		u := w.sources(w.arena.Load(n.Ref))
		w.tees[n.Ref] = u
		return u
	case *ir.DeferTick:
		return delayed(w.sources(n.Input))
	case *ir.Network:
		return delayed(w.sources(n.Input))
	}
	u := upstream{}
	for _, slot := range ir.ChildSlots(n) {
		merge(u, w.sources(*slot))
	}
	return u
}

// buildFeedbackGraph returns source -> sink edges over every edge, the
// subset of edges with an undelayed path, and each sink's location.
func buildFeedbackGraph(g *ir.Graph) (all, immediate dependencyGraph, locs map[string]location.ID) {
	w := &feedbackWalker{arena: g.Arena, tees: map[ir.TeeID]upstream{}}
	all, immediate = dependencyGraph{}, dependencyGraph{}
	locs = map[string]location.ID{}

	for _, l := range g.Leaves {
		cs, ok := l.(*ir.CycleSink)
		if !ok {
			continue
		}
		locs[cs.Ident] = cs.Location
		if all[cs.Ident] == nil {
			all[cs.Ident] = []string{}
		}
		u := w.sources(cs.Input)
		for _, src := range sortedKeys(u) {
			all[src] = append(all[src], cs.Ident)
			if u[src] {
				immediate[src] = append(immediate[src], cs.Ident)
			}
		}
	}
	return all, immediate, locs
}

// hasSelfLoop checks if a node has an edge to itself.
func hasSelfLoop(node string, graph dependencyGraph) bool {
	for _, neighbor := range graph[node] {
		if neighbor == node {
			return true
		}
	}
	return false
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
//
// Nodes are visited in sorted order so the result is deterministic.
// Single-node SCCs without self-loops are NOT cycles.
func tarjanSCC(graph dependencyGraph) [][]string {
	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var strongConnect func(string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range graph[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		// If v is a root node, pop the stack and create an SCC
		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sort.Strings(scc)
			sccs = append(sccs, scc)
		}
	}

	for _, node := range sortedKeys(graph) {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}

	return sccs
}

// sameTick reports whether scc stays cyclic over immediate edges and every
// member lives in a tick.
func sameTick(scc []string, immediate dependencyGraph, locs map[string]location.ID) bool {
	members := make(map[string]bool, len(scc))
	for _, id := range scc {
		if locs[id].Kind() != location.KindTick {
			return false
		}
		members[id] = true
	}
	restricted := dependencyGraph{}
	for _, id := range scc {
		restricted[id] = []string{}
		for _, next := range immediate[id] {
			if members[next] {
				restricted[id] = append(restricted[id], next)
			}
		}
	}
	for _, sub := range tarjanSCC(restricted) {
		if len(sub) > 1 || hasSelfLoop(sub[0], restricted) {
			return true
		}
	}
	return false
}

func sccToWarning(scc []string, graph, immediate dependencyGraph, locs map[string]location.ID) FeedbackWarning {
	path := []string{scc[0], scc[0]}
	if len(scc) > 1 {
		path = reconstructCyclePath(scc, graph)
	}
	pathStr := strings.Join(path, " -> ")

	if sameTick(scc, immediate, locs) {
		return FeedbackWarning{
			Path:    path,
			Message: fmt.Sprintf("same-tick feedback: %s has no defer_tick", pathStr),
			Level:   LevelWarning,
		}
	}
	return FeedbackWarning{
		Path:    path,
		Message: fmt.Sprintf("feedback loop: %s", pathStr),
		Level:   LevelInfo,
	}
}

// reconstructCyclePath builds a cycle path from an SCC.
//
// Strategy: Start at first node in SCC, follow edges to other SCC members,
// continue until we return to start node.
func reconstructCyclePath(scc []string, graph dependencyGraph) []string {
	sccSet := make(map[string]bool)
	for _, node := range scc {
		sccSet[node] = true
	}

	start := scc[0]
	current := start
	path := []string{current}
	visited := make(map[string]bool)

	for {
		visited[current] = true

		var next string
		for _, neighbor := range graph[current] {
			if sccSet[neighbor] && (!visited[neighbor] || neighbor == start) {
				next = neighbor
				break
			}
		}
		if next == "" {
			break
		}

		path = append(path, next)
		if next == start {
			break
		}
		current = next
	}

	return path
}
