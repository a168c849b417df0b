package deploy_test

import (
	"testing"

	"github.com/roach88/flowc/internal/builder"
	"github.com/roach88/flowc/internal/deploy"
	"github.com/roach88/flowc/internal/ir"
	"github.com/roach88/flowc/internal/location"
	"github.com/roach88/flowc/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func catchAbort(fn func()) (err error) {
	defer ir.Recover(&err)
	fn()
	return nil
}

// pipeline builds process(0) -> cluster(1) -> process(0).
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

// TestCompileNetwork_FinalizesEveryEdge verifies phase 1 dispatches on the
// pair shape and moves every edge to Finalized without connecting.
func TestCompileNetwork_FinalizesEveryEdge(t *testing.T) {
	g := pipeline()
	p := testutil.NewRecordingProvider()

	deploy.CompileNetwork(g, p, testutil.Endpoints([]int{0}, []int{1}, nil))

	assert.Equal(t, []string{"o2m p0:0 -> c1:0", "m2o c1:1 -> p0:1"}, p.Calls())
	assert.Empty(t, p.Connected())
	for _, n := range g.Networks() {
		assert.Equal(t, ir.Finalized, n.Instantiate.State())
	}
}

func TestConnectNetwork_RunsEachClosureOnce(t *testing.T) {
	g := pipeline()
	p := testutil.NewRecordingProvider()
	deploy.CompileNetwork(g, p, testutil.Endpoints([]int{0}, []int{1}, nil))

	deploy.ConnectNetwork(g)

	assert.Equal(t, p.Calls(), p.Connected())
	for _, n := range g.Networks() {
		assert.Equal(t, ir.Connected, n.Instantiate.State())
	}

	err := catchAbort(func() { deploy.ConnectNetwork(g) })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "network already connected")
	assert.Len(t, p.Connected(), 2)
}

func TestCompileNetwork_TwiceAborts(t *testing.T) {
	g := pipeline()
	p := testutil.NewRecordingProvider()
	ep := testutil.Endpoints([]int{0}, []int{1}, nil)
	deploy.CompileNetwork(g, p, ep)

	err := catchAbort(func() { deploy.CompileNetwork(g, p, ep) })
	require.Error(t, err)
	assert.True(t, ir.IsKind(err, ir.Contract))
	assert.Contains(t, err.Error(), "network already finalized")
}

func TestConnectNetwork_BeforeCompileAborts(t *testing.T) {
	g := pipeline()

	err := catchAbort(func() { deploy.ConnectNetwork(g) })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "network not built")
}

func TestCompileNetwork_MissingEndpointNamesID(t *testing.T) {
	g := pipeline()

	err := catchAbort(func() {
		deploy.CompileNetwork(g, testutil.NewRecordingProvider(), testutil.Endpoints([]int{0}, nil, nil))
	})
	require.Error(t, err)
	assert.True(t, ir.IsKind(err, ir.MissingEndpoint))
	assert.Contains(t, err.Error(), "A cluster used in the graph was not instantiated: 1")
}

// TestCompileNetwork_ExternalPorts verifies external edges register their
// keyed ports and use the dummy descriptor for the half with no statement.
func TestCompileNetwork_ExternalPorts(t *testing.T) {
	b := builder.New()
	p := b.Process()
	ext := b.External()
	inPort, in := ext.SourceBytes(p)
	outPort := in.Map("|b| b.len()").SendExternal(ext)
	g := b.Finalize()

	prov := testutil.NewRecordingProvider()
	ep := testutil.Endpoints([]int{0}, nil, []int{1})
	deploy.CompileNetwork(g, prov, ep)

	assert.Equal(t, []string{"e2o e1:0 -> p0:0", "o2e p0:1 -> e1:1"}, prov.Calls())

	e := ep.Externals[1].(*testutil.Endpoint)
	port, ok := e.Registered(inPort.PortID)
	require.True(t, ok)
	assert.Equal(t, "e1:0", port.String())
	port, ok = e.Registered(outPort.PortID)
	require.True(t, ok)
	assert.Equal(t, "e1:1", port.String())

	nets := g.Networks()
	require.Len(t, nets, 2)
	sink, _ := nets[0].Instantiate.Descriptors()
	assert.Equal(t, deploy.Dummy, sink)
	_, source := nets[1].Instantiate.Descriptors()
	assert.Equal(t, deploy.Dummy, source)
}

// TestShapeOf_RejectsUnsupportedPairs verifies pairs with no transport are
// rejected explicitly instead of producing a no-op edge.
func TestShapeOf_RejectsUnsupportedPairs(t *testing.T) {
	p, c, e := location.Process(0), location.Cluster(1), location.ExternalProcess(2)
	tests := []struct {
		name     string
		from, to location.ID
		kind     ir.Kind
	}{
		{"external to external", e, location.ExternalProcess(3), ir.Invalid},
		{"external to cluster", e, c, ir.NotImplemented},
		{"cluster to external", c, e, ir.NotImplemented},
		{"tick source", location.Tick(0, p), c, ir.Invalid},
		{"tick destination", p, location.Tick(0, c), ir.Invalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := catchAbort(func() { deploy.ShapeOf(tt.from, tt.to) })
			require.Error(t, err)
			assert.True(t, ir.IsKind(err, tt.kind), err.Error())
		})
	}
}

func TestShapeOf_SupportedPairs(t *testing.T) {
	p, c, e := location.Process(0), location.Cluster(1), location.ExternalProcess(2)

	assert.Equal(t, deploy.O2O, deploy.ShapeOf(p, location.Process(3)))
	assert.Equal(t, deploy.O2M, deploy.ShapeOf(p, c))
	assert.Equal(t, deploy.M2O, deploy.ShapeOf(c, p))
	assert.Equal(t, deploy.M2M, deploy.ShapeOf(c, location.Cluster(4)))
	assert.Equal(t, deploy.E2O, deploy.ShapeOf(e, p))
	assert.Equal(t, deploy.O2E, deploy.ShapeOf(p, e))
}
