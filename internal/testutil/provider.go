package testutil

import (
	"fmt"
	"sync"

	"github.com/roach88/flowc/internal/deploy"
	"github.com/roach88/flowc/internal/ir"
)

// Endpoint is a named process, cluster or external endpoint.
type Endpoint struct {
	name string

	mu         sync.Mutex
	registered map[int]deploy.Port
}

// NewEndpoint creates an endpoint with the given name.
func NewEndpoint(name string) *Endpoint {
	return &Endpoint{name: name, registered: map[int]deploy.Port{}}
}

// Name implements deploy.Endpoint.
func (e *Endpoint) Name() string { return e.name }

// Register implements deploy.ExternalEndpoint.
func (e *Endpoint) Register(key int, port deploy.Port) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.registered[key] = port
}

// Registered returns the port registered for key, if any.
func (e *Endpoint) Registered(key int) (deploy.Port, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, ok := e.registered[key]
	return p, ok
}

// Port is a port numbered per endpoint.
type Port struct {
	Endpoint string
	N        int
}

func (p Port) String() string { return fmt.Sprintf("%s:%d", p.Endpoint, p.N) }

// RecordingProvider is a deploy.Provider that renders descriptors from the
// shape and ports, and records every shape call and connect.
type RecordingProvider struct {
	mu        sync.Mutex
	next      map[string]int
	calls     []string
	connected []string
}

// NewRecordingProvider creates an empty provider.
func NewRecordingProvider() *RecordingProvider {
	return &RecordingProvider{next: map[string]int{}}
}

// Calls returns the shape calls in order, e.g. "o2o p0:0 -> p1:0".
func (r *RecordingProvider) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

// Connected returns the connect closures run so far, in order.
func (r *RecordingProvider) Connected() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.connected...)
}

func (r *RecordingProvider) allocate(e deploy.Endpoint) deploy.Port {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := r.next[e.Name()]
	r.next[e.Name()]++
	return Port{Endpoint: e.Name(), N: n}
}

// AllocateProcessPort implements deploy.Provider.
func (r *RecordingProvider) AllocateProcessPort(p deploy.Endpoint) deploy.Port { return r.allocate(p) }

// AllocateClusterPort implements deploy.Provider.
func (r *RecordingProvider) AllocateClusterPort(c deploy.Endpoint) deploy.Port { return r.allocate(c) }

// AllocateExternalPort implements deploy.Provider.
func (r *RecordingProvider) AllocateExternalPort(e deploy.ExternalEndpoint) deploy.Port {
	return r.allocate(e)
}

func (r *RecordingProvider) channel(shape string, fromPort, toPort deploy.Port) deploy.Channel {
	call := fmt.Sprintf("%s %s -> %s", shape, fromPort, toPort)
	r.mu.Lock()
	r.calls = append(r.calls, call)
	r.mu.Unlock()

	return deploy.Channel{
		Sink:   ir.Expr(fmt.Sprintf("%s_sink(%q)", shape, fromPort.String())),
		Source: ir.Expr(fmt.Sprintf("%s_source(%q)", shape, toPort.String())),
		Connect: func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.connected = append(r.connected, call)
		},
	}
}

// O2O implements deploy.Provider.
func (r *RecordingProvider) O2O(_ deploy.Endpoint, fp deploy.Port, _ deploy.Endpoint, tp deploy.Port) deploy.Channel {
	return r.channel("o2o", fp, tp)
}

// O2M implements deploy.Provider.
func (r *RecordingProvider) O2M(_ deploy.Endpoint, fp deploy.Port, _ deploy.Endpoint, tp deploy.Port) deploy.Channel {
	return r.channel("o2m", fp, tp)
}

// M2O implements deploy.Provider.
func (r *RecordingProvider) M2O(_ deploy.Endpoint, fp deploy.Port, _ deploy.Endpoint, tp deploy.Port) deploy.Channel {
	return r.channel("m2o", fp, tp)
}

// M2M implements deploy.Provider.
func (r *RecordingProvider) M2M(_ deploy.Endpoint, fp deploy.Port, _ deploy.Endpoint, tp deploy.Port) deploy.Channel {
	return r.channel("m2m", fp, tp)
}

// E2O implements deploy.Provider.
func (r *RecordingProvider) E2O(_ deploy.ExternalEndpoint, fp deploy.Port, _ deploy.Endpoint, tp deploy.Port) deploy.Channel {
	return r.channel("e2o", fp, tp)
}

// O2E implements deploy.Provider.
func (r *RecordingProvider) O2E(_ deploy.Endpoint, fp deploy.Port, _ deploy.ExternalEndpoint, tp deploy.Port) deploy.Channel {
	return r.channel("o2e", fp, tp)
}

// Endpoints returns deploy endpoints named p<id>, c<id> and e<id> for the
// given raw ids.
func Endpoints(processes, clusters, externals []int) deploy.Endpoints {
	ep := deploy.Endpoints{
		Processes: map[int]deploy.Endpoint{},
		Clusters:  map[int]deploy.Endpoint{},
		Externals: map[int]deploy.ExternalEndpoint{},
	}
	for _, id := range processes {
		ep.Processes[id] = NewEndpoint(fmt.Sprintf("p%d", id))
	}
	for _, id := range clusters {
		ep.Clusters[id] = NewEndpoint(fmt.Sprintf("c%d", id))
	}
	for _, id := range externals {
		ep.Externals[id] = NewEndpoint(fmt.Sprintf("e%d", id))
	}
	return ep
}

var _ deploy.Provider = (*RecordingProvider)(nil)
