// Package deploy synthesizes the network edges of a graph.
//
// Synthesis runs in two phases. CompileNetwork resolves each logical
// Network edge against the endpoints a deployment provides and asks the
// Provider for descriptors and a deferred connect closure; ConnectNetwork
// later runs every closure exactly once. The core never opens a transport
// itself.
package deploy

import (
	"github.com/roach88/flowc/internal/ir"
)

// Endpoint is a provider handle for a process or cluster.
type Endpoint interface {
	Name() string
}

// ExternalEndpoint is a provider handle for an external process. It
// records which provider port serves each numbered external port.
type ExternalEndpoint interface {
	Endpoint
	Register(key int, port Port)
}

// Port is a provider-allocated port.
type Port interface {
	String() string
}

// Channel is the result of instantiating one edge: the sender-side sink
// descriptor, the receiver-side source descriptor, and the connect closure.
type Channel struct {
	Sink    ir.Expr
	Source  ir.Expr
	Connect ir.ConnectFunc
}

// Provider is implemented once per deployment backend.
//
// The shape methods are invoked only through the dispatch in
// CompileNetwork, with ports allocated on the matching endpoints.
type Provider interface {
	AllocateProcessPort(p Endpoint) Port
	AllocateClusterPort(c Endpoint) Port
	AllocateExternalPort(e ExternalEndpoint) Port

	// O2O connects one process to one process.
	O2O(from Endpoint, fromPort Port, to Endpoint, toPort Port) Channel
	// O2M connects a process to every member of a cluster.
	O2M(from Endpoint, fromPort Port, to Endpoint, toPort Port) Channel
	// M2O connects every member of a cluster to a process.
	M2O(from Endpoint, fromPort Port, to Endpoint, toPort Port) Channel
	// M2M connects every member of a cluster to every member of a cluster.
	M2M(from Endpoint, fromPort Port, to Endpoint, toPort Port) Channel
	// E2O connects an external process to a process. Only Source and
	// Connect of the result are used.
	E2O(from ExternalEndpoint, fromPort Port, to Endpoint, toPort Port) Channel
	// O2E connects a process to an external process. Only Sink and Connect
	// of the result are used.
	O2E(from Endpoint, fromPort Port, to ExternalEndpoint, toPort Port) Channel
}

// Endpoints maps raw location ids to provider handles.
type Endpoints struct {
	Processes map[int]Endpoint
	Clusters  map[int]Endpoint
	Externals map[int]ExternalEndpoint
}

// Dummy is the descriptor used for the half of an external edge that has no
// statement in any program.
const Dummy ir.Expr = "DUMMY"
