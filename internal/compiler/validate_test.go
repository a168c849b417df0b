package compiler

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/flowc/internal/builder"
	"github.com/roach88/flowc/internal/deploy"
	"github.com/roach88/flowc/internal/ir"
	"github.com/roach88/flowc/internal/location"
	"github.com/roach88/flowc/internal/testutil"
)

func src(loc location.ID) *ir.Source {
	return &ir.Source{Kind: ir.SourceIter, Expr: "0..1", Metadata: ir.Metadata{Location: loc}}
}

func errCodes(errs []ValidationError) []string {
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.Code
	}
	return out
}

func TestValidate_ValidGraph(t *testing.T) {
	b := builder.New()
	leader := b.Process()
	workers := b.Cluster()

	s := leader.SourceIter("0..10").Send(workers).Map("|x| x * 2")
	c := s.Clone()
	s.Send(leader).ForEach("f")
	c.DestSink("sink")

	errs := Validate(b.Finalize())
	assert.Empty(t, errs)
}

func TestValidate_EmptyGraph(t *testing.T) {
	errs := Validate(ir.NewGraph(nil))
	require.Len(t, errs, 1)
	assert.Equal(t, ErrEmptyGraph, errs[0].Code)
}

func TestValidate_CoLocation(t *testing.T) {
	join := &ir.Join{
		Left:     src(location.Process(0)),
		Right:    src(location.Process(1)),
		Metadata: ir.Metadata{Location: location.Process(0)},
	}
	errs := Validate(ir.NewGraph(nil, &ir.ForEach{F: "f", Input: join}))

	require.Len(t, errs, 1)
	assert.Equal(t, ErrCoLocation, errs[0].Code)
	assert.Equal(t, "leaves[0]/for_each/join", errs[0].Field)
	assert.Contains(t, errs[0].Message, "join inputs must be in the same location")
}

func TestValidate_TickCoLocationUsesRoot(t *testing.T) {
	p := location.Process(0)
	tick := location.Tick(0, p)
	chain := &ir.Chain{
		First:    src(tick),
		Second:   src(p),
		Metadata: ir.Metadata{Location: tick},
	}
	errs := Validate(ir.NewGraph(nil, &ir.ForEach{F: "f", Input: chain}))
	assert.Empty(t, errs)
}

func TestValidate_NetworkShapes(t *testing.T) {
	key := 0
	tests := []struct {
		name string
		net  *ir.Network
		code string
	}{
		{
			name: "tick endpoint",
			net:  &ir.Network{From: location.Process(0), To: location.Tick(0, location.Process(1))},
			code: ErrTickEndpoint,
		},
		{
			name: "external to external",
			net:  &ir.Network{From: location.ExternalProcess(0), FromKey: &key, To: location.ExternalProcess(1)},
			code: ErrUnsupportedShape,
		},
		{
			name: "cluster to external",
			net:  &ir.Network{From: location.Cluster(0), To: location.ExternalProcess(1), ToKey: &key},
			code: ErrUnsupportedShape,
		},
		{
			name: "external without key",
			net:  &ir.Network{From: location.ExternalProcess(0), To: location.Process(1)},
			code: ErrMissingExternalKey,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.net.Input = src(tt.net.From)
			tt.net.Metadata = ir.Metadata{Location: tt.net.To}
			errs := Validate(ir.NewGraph(nil, &ir.ForEach{F: "f", Input: tt.net}))
			require.Len(t, errs, 1)
			assert.Equal(t, tt.code, errs[0].Code)
			assert.True(t, strings.HasSuffix(errs[0].Field, "/network"))
		})
	}
}

func TestValidate_CycleBindings(t *testing.T) {
	p := location.Process(0)
	unbound := &ir.CycleSource{Ident: "cycle_7", Metadata: ir.Metadata{Location: p}}
	g := ir.NewGraph(nil,
		&ir.ForEach{F: "f", Input: unbound},
		&ir.CycleSink{Ident: "cycle_1", Location: p, Input: src(p)},
		&ir.CycleSink{Ident: "cycle_1", Location: p, Input: src(p)},
		&ir.CycleSink{Ident: "cycle_2", Location: p, Input: src(location.Process(3))},
	)

	errs := Validate(g)
	assert.Equal(t, []string{ErrDuplicateCycle, ErrCycleSinkLocation, ErrUnboundCycle}, errCodes(errs))
	assert.Equal(t, "leaves[0]/for_each/cycle_source", errs[2].Field)
}

func TestValidate_FinalizedNetworkRejected(t *testing.T) {
	b := builder.New()
	leader := b.Process()
	workers := b.Cluster()
	leader.SourceIter("0..10").Send(workers).ForEach("f")
	g := b.Finalize()

	deploy.CompileNetwork(g, testutil.NewRecordingProvider(), testutil.Endpoints([]int{0}, []int{1}, nil))

	errs := Validate(g)
	require.Len(t, errs, 1)
	assert.Equal(t, ErrNetworkState, errs[0].Code)
	assert.Contains(t, errs[0].Message, "finalized")
}

func TestValidationErrors_Error(t *testing.T) {
	errs := ValidationErrors{
		{Field: "leaves", Message: "graph has no leaves", Code: ErrEmptyGraph},
		{Field: "leaves[0]/for_each/join", Message: "bad", Code: ErrCoLocation},
	}
	assert.Equal(t,
		"2 validation error(s):\n  [E200] leaves: graph has no leaves\n  [E202] leaves[0]/for_each/join: bad",
		errs.Error())
}
