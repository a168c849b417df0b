// Package localhost is a single-host deployment backend.
//
// Every process, cluster member and external process is placed on one
// host address. Ports are handed out sequentially from a base port.
// Receivers bind and senders connect; the connect closure of an edge
// records the established channel in a Ledger.
package localhost

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/roach88/flowc/internal/deploy"
	"github.com/roach88/flowc/internal/ir"
	"github.com/roach88/flowc/internal/location"
	"github.com/roach88/flowc/internal/store"
)

// DefaultHost is the address every endpoint is placed on.
const DefaultHost = "127.0.0.1"

// DefaultBasePort is the first port handed out.
const DefaultBasePort = 7000

// Ledger records established channels. store.Store implements it.
type Ledger interface {
	RecordChannel(ctx context.Context, c store.ChannelRecord) error
}

// Config configures a Deployment.
type Config struct {
	Host     string
	BasePort int
	BuildID  string
	Ledger   Ledger
	Logger   *slog.Logger
}

// Deployment is a deploy.Provider placing everything on one host.
type Deployment struct {
	host    string
	buildID string
	ledger  Ledger
	logger  *slog.Logger

	mu        sync.Mutex
	nextPort  int
	endpoints deploy.Endpoints
	errs      []error
}

// New creates a deployment. Zero config fields take their defaults.
func New(cfg Config) *Deployment {
	if cfg.Host == "" {
		cfg.Host = DefaultHost
	}
	if cfg.BasePort == 0 {
		cfg.BasePort = DefaultBasePort
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Deployment{
		host:     cfg.Host,
		buildID:  cfg.BuildID,
		ledger:   cfg.Ledger,
		logger:   cfg.Logger,
		nextPort: cfg.BasePort,
		endpoints: deploy.Endpoints{
			Processes: map[int]deploy.Endpoint{},
			Clusters:  map[int]deploy.Endpoint{},
			Externals: map[int]deploy.ExternalEndpoint{},
		},
	}
}

// Process instantiates the process with the given raw location id.
func (d *Deployment) Process(id int) *Process {
	p := &Process{name: fmt.Sprintf("process(%d)", id)}
	d.mu.Lock()
	d.endpoints.Processes[id] = p
	d.mu.Unlock()
	return p
}

// Cluster instantiates the cluster with the given raw location id and
// member count.
func (d *Deployment) Cluster(id, members int) *Cluster {
	if members < 1 {
		members = 1
	}
	c := &Cluster{name: fmt.Sprintf("cluster(%d)", id), members: members}
	d.mu.Lock()
	d.endpoints.Clusters[id] = c
	d.mu.Unlock()
	return c
}

// External instantiates the external process with the given raw location id.
func (d *Deployment) External(id int) *External {
	e := &External{name: fmt.Sprintf("external(%d)", id), ports: map[int]deploy.Port{}}
	d.mu.Lock()
	d.endpoints.Externals[id] = e
	d.mu.Unlock()
	return e
}

// InstantiateGraph instantiates every root location g places a node on
// or sends across, in location.Compare order. Clusters get members members
// each.
func (d *Deployment) InstantiateGraph(g *ir.Graph, members int) {
	roots := map[location.ID]bool{}
	add := func(l location.ID) {
		roots[l.Root()] = true
	}
	g.Walk(func(n ir.Node) {
		add(n.Meta().Location)
		if net, ok := n.(*ir.Network); ok {
			add(net.From)
			add(net.To)
		}
	})

	ids := make([]location.ID, 0, len(roots))
	for id := range roots {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, location.Compare)
	for _, id := range ids {
		switch id.Kind() {
		case location.KindProcess:
			d.Process(id.Raw())
		case location.KindCluster:
			d.Cluster(id.Raw(), members)
		case location.KindExternal:
			d.External(id.Raw())
		}
	}
}

// Endpoints returns every endpoint instantiated so far.
func (d *Deployment) Endpoints() deploy.Endpoints {
	return d.endpoints
}

// Err returns the ledger errors of every connect closure run so far.
func (d *Deployment) Err() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return errors.Join(d.errs...)
}

func (d *Deployment) addr() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	a := d.host + ":" + strconv.Itoa(d.nextPort)
	d.nextPort++
	return a
}

// AllocateProcessPort implements deploy.Provider.
func (d *Deployment) AllocateProcessPort(p deploy.Endpoint) deploy.Port {
	return Port{addrs: []string{d.addr()}}
}

// AllocateClusterPort implements deploy.Provider. One address is allocated
// per member.
func (d *Deployment) AllocateClusterPort(c deploy.Endpoint) deploy.Port {
	cl, ok := c.(*Cluster)
	if !ok {
		ir.Fatalf(ir.Contract, "compile_network", "%s is not a localhost cluster", c.Name())
	}
	addrs := make([]string, cl.members)
	for i := range addrs {
		addrs[i] = d.addr()
	}
	return Port{addrs: addrs, many: true}
}

// AllocateExternalPort implements deploy.Provider.
func (d *Deployment) AllocateExternalPort(e deploy.ExternalEndpoint) deploy.Port {
	return Port{addrs: []string{d.addr()}}
}

// O2O implements deploy.Provider.
func (d *Deployment) O2O(from deploy.Endpoint, fp deploy.Port, to deploy.Endpoint, tp deploy.Port) deploy.Channel {
	return d.channel("o2o", from, fp, to, tp)
}

// O2M implements deploy.Provider.
func (d *Deployment) O2M(from deploy.Endpoint, fp deploy.Port, to deploy.Endpoint, tp deploy.Port) deploy.Channel {
	return d.channel("o2m", from, fp, to, tp)
}

// M2O implements deploy.Provider.
func (d *Deployment) M2O(from deploy.Endpoint, fp deploy.Port, to deploy.Endpoint, tp deploy.Port) deploy.Channel {
	return d.channel("m2o", from, fp, to, tp)
}

// M2M implements deploy.Provider.
func (d *Deployment) M2M(from deploy.Endpoint, fp deploy.Port, to deploy.Endpoint, tp deploy.Port) deploy.Channel {
	return d.channel("m2m", from, fp, to, tp)
}

// E2O implements deploy.Provider.
func (d *Deployment) E2O(from deploy.ExternalEndpoint, fp deploy.Port, to deploy.Endpoint, tp deploy.Port) deploy.Channel {
	return d.channel("e2o", from, fp, to, tp)
}

// O2E implements deploy.Provider.
func (d *Deployment) O2E(from deploy.Endpoint, fp deploy.Port, to deploy.ExternalEndpoint, tp deploy.Port) deploy.Channel {
	return d.channel("o2e", from, fp, to, tp)
}

// channel renders the descriptors of an edge. The receiver binds its
// allocated addresses and the sender connects to them.
func (d *Deployment) channel(shape string, from deploy.Endpoint, fp deploy.Port, to deploy.Endpoint, tp deploy.Port) deploy.Channel {
	dst := asPort(tp)
	sink := ir.Expr(dst.render("connect_tcp"))
	source := ir.Expr(dst.render("bind_tcp"))

	rec := store.ChannelRecord{
		BuildID:  d.buildID,
		Shape:    shape,
		Sender:   from.Name(),
		Receiver: to.Name(),
		Sink:     sink.String(),
		Source:   source.String(),
	}

	return deploy.Channel{
		Sink:   sink,
		Source: source,
		Connect: func() {
			d.logger.Debug("channel connected",
				"shape", shape,
				"sender", rec.Sender,
				"sender_port", fp.String(),
				"receiver", rec.Receiver,
				"receiver_port", tp.String(),
			)
			if d.ledger == nil {
				return
			}
			if err := d.ledger.RecordChannel(context.Background(), rec); err != nil {
				d.mu.Lock()
				d.errs = append(d.errs, fmt.Errorf("%s %s -> %s: %w", shape, rec.Sender, rec.Receiver, err))
				d.mu.Unlock()
			}
		},
	}
}

// Process is a localhost process endpoint.
type Process struct {
	name string
}

// Name implements deploy.Endpoint.
func (p *Process) Name() string { return p.name }

// Cluster is a localhost cluster endpoint.
type Cluster struct {
	name    string
	members int
}

// Name implements deploy.Endpoint.
func (c *Cluster) Name() string { return c.name }

// Members returns the member count.
func (c *Cluster) Members() int { return c.members }

// External is a localhost external process endpoint.
type External struct {
	name string

	mu    sync.Mutex
	ports map[int]deploy.Port
}

// Name implements deploy.Endpoint.
func (e *External) Name() string { return e.name }

// Register implements deploy.ExternalEndpoint.
func (e *External) Register(key int, port deploy.Port) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ports[key] = port
}

// Port returns the address serving external port key.
func (e *External) Port(key int) (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, ok := e.ports[key]
	if !ok {
		return "", false
	}
	return p.String(), true
}

// Port is one address, or one address per cluster member.
type Port struct {
	addrs []string
	many  bool
}

func (p Port) String() string { return strings.Join(p.addrs, ",") }

func (p Port) render(fn string) string {
	if !p.many {
		return fmt.Sprintf("%s(%q)", fn, p.addrs[0])
	}
	quoted := make([]string, len(p.addrs))
	for i, a := range p.addrs {
		quoted[i] = strconv.Quote(a)
	}
	return fmt.Sprintf("%s_members([%s])", fn, strings.Join(quoted, ", "))
}

func asPort(p deploy.Port) Port {
	lp, ok := p.(Port)
	if !ok {
		ir.Fatalf(ir.Contract, "compile_network", "port %s was not allocated by the localhost backend", p)
	}
	return lp
}

var _ deploy.Provider = (*Deployment)(nil)
