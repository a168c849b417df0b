package graphfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/flowc/internal/builder"
	"github.com/roach88/flowc/internal/ir"
)

func mustLoad(t *testing.T, name string) *Built {
	t.Helper()
	doc, err := Load(filepath.Join("testdata", name))
	require.NoError(t, err)
	built, err := Build(doc)
	require.NoError(t, err)
	return built
}

func fingerprint(t *testing.T, g *ir.Graph) string {
	t.Helper()
	fp, err := ir.Fingerprint(g)
	require.NoError(t, err)
	return fp
}

// TestBuild_MatchesBuilder verifies a document replays to the same graph
// as the equivalent builder calls, from both YAML and CUE.
func TestBuild_MatchesBuilder(t *testing.T) {
	b := builder.New()
	leader := b.Process()
	workers := b.Cluster()
	s := leader.SourceIter("0..10").Send(workers).Map("|x| x * 2")
	c := s.Clone()
	c.Send(leader).ForEach(`|(id, x)| println!("{id}: {x}")`)
	s.DestSink("sink")
	want := fingerprint(t, b.Finalize())

	for _, name := range []string{"pipeline.yaml", "pipeline.cue"} {
		t.Run(name, func(t *testing.T) {
			built := mustLoad(t, name)
			assert.Equal(t, want, fingerprint(t, built.Graph))
			assert.Len(t, built.Graph.Leaves, 2)
			assert.Equal(t, 1, built.Graph.Arena.Len(), "doubled is shared, not duplicated")
		})
	}
}

func TestBuild_ExternalPorts(t *testing.T) {
	built := mustLoad(t, "counter.yaml")

	assert.Equal(t, builder.ExternalPort{ProcessID: 1, PortID: 0}, built.Ports["requests"])
	assert.Equal(t, builder.ExternalPort{ProcessID: 1, PortID: 1}, built.Ports["replies"])
	assert.Len(t, built.Graph.Networks(), 2)
}

func TestBuild_Cycles(t *testing.T) {
	doc := &Document{
		Locations: []Location{
			{Name: "p", Kind: KindProcess},
			{Name: "t", Kind: KindTick, Of: "p"},
		},
		Steps: []Step{
			{Name: "prev", Op: "tick_cycle", At: "t"},
			{Name: "seed", Op: "source_iter", At: "t", Expr: "vec![1]"},
			{Name: "all", Op: "chain", Input: "seed", Other: "prev"},
			{Op: "complete_next_tick", Cycle: "prev", Input: "all"},
			{Op: "for_each", Input: "all", Expr: "f"},
		},
	}

	built, err := Build(doc)
	require.NoError(t, err)
	require.Len(t, built.Graph.Leaves, 2)
	sink, ok := built.Graph.Leaves[0].(*ir.CycleSink)
	require.True(t, ok)
	assert.Equal(t, "cycle_0", sink.Ident)
}

func TestBuild_Errors(t *testing.T) {
	procs := []Location{{Name: "p", Kind: KindProcess}}

	tests := []struct {
		name string
		doc  *Document
		want string
	}{
		{
			name: "unknown kind",
			doc:  &Document{Locations: []Location{{Name: "p", Kind: "vm"}}},
			want: `locations[0]: location "p": unknown kind "vm"`,
		},
		{
			name: "duplicate location",
			doc:  &Document{Locations: append(procs, procs...)},
			want: `locations[1]: location "p" declared twice`,
		},
		{
			name: "tick of unknown",
			doc:  &Document{Locations: []Location{{Name: "t", Kind: KindTick, Of: "q"}}},
			want: `locations[0]: tick "t": unknown location "q"`,
		},
		{
			name: "unknown stream",
			doc: &Document{Locations: procs, Steps: []Step{
				{Op: "for_each", Input: "ghost", Expr: "f"},
			}},
			want: `steps[0] (for_each): unknown stream "ghost"`,
		},
		{
			name: "unknown op",
			doc: &Document{Locations: procs, Steps: []Step{
				{Name: "x", Op: "teleport", At: "p"},
			}},
			want: `steps[0] (teleport): unknown op "teleport"`,
		},
		{
			name: "missing name",
			doc: &Document{Locations: procs, Steps: []Step{
				{Op: "source_iter", At: "p", Expr: "0..1"},
			}},
			want: `steps[0] (source_iter): name is required`,
		},
		{
			name: "pending cycle",
			doc: &Document{Locations: procs, Steps: []Step{
				{Name: "r", Op: "forward_ref", At: "p"},
				{Op: "for_each", Input: "r", Expr: "f"},
			}},
			want: "cycles never completed: [cycle_0]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build(tt.doc)
			require.Error(t, err)
			assert.Equal(t, tt.want, err.Error())
		})
	}
}

func TestBuild_BuilderAbortIsError(t *testing.T) {
	doc := &Document{
		Locations: []Location{{Name: "p", Kind: KindProcess}, {Name: "q", Kind: KindProcess}},
		Steps: []Step{
			{Name: "x", Op: "source_iter", At: "p", Expr: "0..1"},
			{Name: "b", Op: "batch", Input: "x", To: "q"},
		},
	}

	_, err := Build(doc)
	require.Error(t, err)
	assert.True(t, ir.IsKind(err, ir.Contract))
	assert.Contains(t, err.Error(), "is not a tick")
}

func TestDecodeYAML_RejectsUnknownFields(t *testing.T) {
	_, err := DecodeYAML([]byte("locations: []\nstep: []\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML")
}

func TestDecodeCUE_Schema(t *testing.T) {
	_, err := DecodeCUE("bad.cue", []byte(`locations: [{name: "p", kind: "vm"}], steps: []`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid graph document")

	_, err = DecodeCUE("bad.cue", []byte(`locations: [], steps: [{op: "teleport"}]`))
	require.Error(t, err)

	doc, err := DecodeCUE("ok.cue", []byte(`locations: [{name: "p", kind: "process"}], steps: []`))
	require.NoError(t, err)
	assert.Equal(t, []Location{{Name: "p", Kind: KindProcess}}, doc.Locations)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
