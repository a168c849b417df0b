package deploy

import (
	"github.com/roach88/flowc/internal/ir"
	"github.com/roach88/flowc/internal/location"
)

// CompileNetwork is phase 1 of synthesis. It walks the graph bottom-up and
// finalizes every Network edge with descriptors from p. It aborts on an
// edge that was already finalized, on an unsupported shape, and on a
// location missing from ep.
func CompileNetwork(g *ir.Graph, p Provider, ep Endpoints) {
	g.TransformLeaves(func(slot *ir.Node) {
		if n, ok := (*slot).(*ir.Network); ok {
			compileEdge(n, p, ep)
		}
	})
}

// ConnectNetwork is phase 2 of synthesis. It runs the connect closure of
// every finalized edge exactly once.
func ConnectNetwork(g *ir.Graph) {
	g.TransformLeaves(func(slot *ir.Node) {
		if n, ok := (*slot).(*ir.Network); ok {
			n.Instantiate.Connect()
		}
	})
}

func compileEdge(n *ir.Network, p Provider, ep Endpoints) {
	if n.Instantiate.State() != ir.Building {
		ir.Fatalf(ir.Contract, "compile_network", "network already finalized")
	}

	var ch Channel
	switch ShapeOf(n.From, n.To) {
	case O2O:
		from, to := ep.process(n.From), ep.process(n.To)
		ch = p.O2O(from, p.AllocateProcessPort(from), to, p.AllocateProcessPort(to))
	case O2M:
		from, to := ep.process(n.From), ep.cluster(n.To)
		ch = p.O2M(from, p.AllocateProcessPort(from), to, p.AllocateClusterPort(to))
	case M2O:
		from, to := ep.cluster(n.From), ep.process(n.To)
		ch = p.M2O(from, p.AllocateClusterPort(from), to, p.AllocateProcessPort(to))
	case M2M:
		from, to := ep.cluster(n.From), ep.cluster(n.To)
		ch = p.M2M(from, p.AllocateClusterPort(from), to, p.AllocateClusterPort(to))
	case E2O:
		from, to := ep.external(n.From), ep.process(n.To)
		if n.FromKey == nil {
			ir.Fatalf(ir.Contract, "compile_network", "network from %s has no external port key", n.From)
		}
		sinkPort := p.AllocateExternalPort(from)
		sourcePort := p.AllocateProcessPort(to)
		from.Register(*n.FromKey, sinkPort)
		ch = p.E2O(from, sinkPort, to, sourcePort)
		ch.Sink = Dummy
	case O2E:
		from, to := ep.process(n.From), ep.external(n.To)
		if n.ToKey == nil {
			ir.Fatalf(ir.Contract, "compile_network", "network to %s has no external port key", n.To)
		}
		sinkPort := p.AllocateProcessPort(from)
		sourcePort := p.AllocateExternalPort(to)
		to.Register(*n.ToKey, sourcePort)
		ch = p.O2E(from, sinkPort, to, sourcePort)
		ch.Source = Dummy
	}

	n.Instantiate.Finalize(ch.Sink, ch.Source, ch.Connect)
}

func (ep Endpoints) process(l location.ID) Endpoint {
	e, ok := ep.Processes[l.Raw()]
	if !ok {
		ir.Fatalf(ir.MissingEndpoint, "compile_network", "A process used in the graph was not instantiated: %d", l.Raw())
	}
	return e
}

func (ep Endpoints) cluster(l location.ID) Endpoint {
	e, ok := ep.Clusters[l.Raw()]
	if !ok {
		ir.Fatalf(ir.MissingEndpoint, "compile_network", "A cluster used in the graph was not instantiated: %d", l.Raw())
	}
	return e
}

func (ep Endpoints) external(l location.ID) ExternalEndpoint {
	e, ok := ep.Externals[l.Raw()]
	if !ok {
		ir.Fatalf(ir.MissingEndpoint, "compile_network", "An external used in the graph was not instantiated: %d", l.Raw())
	}
	return e
}
