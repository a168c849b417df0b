package localhost_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/roach88/flowc/internal/builder"
	"github.com/roach88/flowc/internal/deploy"
	"github.com/roach88/flowc/internal/deploy/localhost"
	"github.com/roach88/flowc/internal/ir"
	"github.com/roach88/flowc/internal/location"
	"github.com/roach88/flowc/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pipeline() *ir.Graph {
	b := builder.New()
	leader := b.Process()
	workers := b.Cluster()

	leader.SourceIter("0..10").
		Send(workers).
		Map("|x| x * 2").
		Send(leader).
		ForEach("|(id, x)| println!(\"{id}: {x}\")")
	return b.Finalize()
}

func openStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestDeployment_SequentialPortsAndDescriptors(t *testing.T) {
	g := pipeline()
	d := localhost.New(localhost.Config{})
	d.Process(0)
	d.Cluster(1, 2)

	deploy.CompileNetwork(g, d, d.Endpoints())

	nets := g.Networks()
	require.Len(t, nets, 2)

	sink, source := nets[0].Instantiate.Descriptors()
	assert.Equal(t, ir.Expr(`connect_tcp_members(["127.0.0.1:7001", "127.0.0.1:7002"])`), sink)
	assert.Equal(t, ir.Expr(`bind_tcp_members(["127.0.0.1:7001", "127.0.0.1:7002"])`), source)

	sink, source = nets[1].Instantiate.Descriptors()
	assert.Equal(t, ir.Expr(`connect_tcp("127.0.0.1:7005")`), sink)
	assert.Equal(t, ir.Expr(`bind_tcp("127.0.0.1:7005")`), source)
}

func TestDeployment_ConnectRecordsChannels(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	_, err := s.WriteBuild(ctx, store.Build{ID: "b1", Fingerprint: "fp", Source: "test", CompilerVersion: "0.1.0", IRVersion: "1"})
	require.NoError(t, err)

	g := pipeline()
	d := localhost.New(localhost.Config{Host: "10.0.0.1", BasePort: 9000, BuildID: "b1", Ledger: s})
	d.Process(0)
	d.Cluster(1, 1)
	deploy.CompileNetwork(g, d, d.Endpoints())

	channels, err := s.ReadChannels(ctx, "b1")
	require.NoError(t, err)
	assert.Empty(t, channels, "nothing is recorded before connect")

	deploy.ConnectNetwork(g)
	require.NoError(t, d.Err())

	channels, err = s.ReadChannels(ctx, "b1")
	require.NoError(t, err)
	require.Len(t, channels, 2)
	assert.Equal(t, "o2m", channels[0].Shape)
	assert.Equal(t, "process(0)", channels[0].Sender)
	assert.Equal(t, "cluster(1)", channels[0].Receiver)
	assert.Equal(t, `connect_tcp_members(["10.0.0.1:9001"])`, channels[0].Sink)
	assert.Equal(t, "m2o", channels[1].Shape)
	assert.Equal(t, `bind_tcp("10.0.0.1:9003")`, channels[1].Source)
}

type failingLedger struct{}

func (failingLedger) RecordChannel(context.Context, store.ChannelRecord) error {
	return errors.New("disk full")
}

func TestDeployment_LedgerErrorsCollected(t *testing.T) {
	g := pipeline()
	d := localhost.New(localhost.Config{Ledger: failingLedger{}})
	d.Process(0)
	d.Cluster(1, 1)
	deploy.CompileNetwork(g, d, d.Endpoints())
	deploy.ConnectNetwork(g)

	err := d.Err()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "o2m process(0) -> cluster(1): disk full")
	assert.Contains(t, err.Error(), "m2o cluster(1) -> process(0): disk full")
}

func TestDeployment_ExternalPortsRegistered(t *testing.T) {
	b := builder.New()
	p := b.Process()
	ext := b.External()

	in, s := ext.SourceBytes(p)
	out := s.Map("|b| b.len()").SendExternal(ext)
	g := b.Finalize()

	d := localhost.New(localhost.Config{})
	d.Process(p.ID().Raw())
	e := d.External(ext.ID().Raw())
	deploy.CompileNetwork(g, d, d.Endpoints())

	addr, ok := e.Port(in.PortID)
	require.True(t, ok)
	assert.Equal(t, "127.0.0.1:7000", addr)

	addr, ok = e.Port(out.PortID)
	require.True(t, ok)
	assert.Equal(t, "127.0.0.1:7003", addr)

	_, ok = e.Port(99)
	assert.False(t, ok)
}

func TestDeployment_MissingEndpointAborts(t *testing.T) {
	g := pipeline()
	d := localhost.New(localhost.Config{})
	d.Process(0)

	var err error
	func() {
		defer ir.Recover(&err)
		deploy.CompileNetwork(g, d, d.Endpoints())
	}()
	require.Error(t, err)
	assert.True(t, ir.IsKind(err, ir.MissingEndpoint))
	assert.Contains(t, err.Error(), "A cluster used in the graph was not instantiated: 1")
}

func TestDeployment_InstantiateGraph(t *testing.T) {
	b := builder.New()
	p := b.Process()
	c := b.Cluster()
	ext := b.External()
	_, in := ext.SourceBytes(p)
	in.Send(c).ForEach("f")
	g := b.Finalize()

	d := localhost.New(localhost.Config{})
	d.InstantiateGraph(g, 3)

	eps := d.Endpoints()
	require.Contains(t, eps.Processes, 0)
	require.Contains(t, eps.Clusters, 1)
	require.Contains(t, eps.Externals, 2)
	assert.Equal(t, 3, eps.Clusters[1].(*localhost.Cluster).Members())

	var err error
	func() {
		defer ir.Recover(&err)
		deploy.CompileNetwork(g, d, eps)
	}()
	assert.NoError(t, err)
}

func TestDeployment_InstantiateGraph_SharedRawID(t *testing.T) {
	src := &ir.Source{Kind: ir.SourceIter, Expr: "0..3", Metadata: ir.Metadata{Location: location.Process(0)}}
	net := &ir.Network{
		From:     location.Process(0),
		To:       location.Cluster(0),
		Input:    src,
		Metadata: ir.Metadata{Location: location.Cluster(0)},
	}
	g := ir.NewGraph(nil, &ir.ForEach{F: "f", Input: net})

	d := localhost.New(localhost.Config{})
	d.InstantiateGraph(g, 2)

	eps := d.Endpoints()
	assert.Contains(t, eps.Processes, 0)
	assert.Contains(t, eps.Clusters, 0)
	assert.Empty(t, eps.Externals)
}
