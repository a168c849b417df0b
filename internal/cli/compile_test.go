package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/flowc/internal/compiler"
	"github.com/roach88/flowc/internal/ir"
)

func decodeCompile(t *testing.T, out string) CompileResult {
	t.Helper()
	var resp struct {
		Status string        `json:"status"`
		Data   CompileResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Equal(t, "ok", resp.Status)
	return resp.Data
}

func TestCompile_Text(t *testing.T) {
	out, _, err := execute(t, "compile", "--base-port", "9000", testdata("pipeline.yaml"))
	require.NoError(t, err)

	assert.Contains(t, out, "✓ Compiled 2 location(s)")
	assert.Contains(t, out, "2 network edge(s)")
	assert.Contains(t, out, "// process(0)")
	assert.Contains(t, out, "// cluster(1)")
	assert.Contains(t, out, `dest_sink(connect_tcp("127.0.0.1:9005"))`)
	assert.Contains(t, out, `source_stream(bind_tcp("127.0.0.1:9005"))`)
	assert.Contains(t, out, `connect_tcp_members(["127.0.0.1:9001", "127.0.0.1:9002"])`)
}

func TestCompile_JSON(t *testing.T) {
	out, _, err := execute(t, "--format", "json", "compile", "--members", "3", testdata("pipeline.yaml"))
	require.NoError(t, err)

	res := decodeCompile(t, out)
	assert.NotEmpty(t, res.BuildID)
	assert.Equal(t, 2, res.Networks)
	require.Len(t, res.Programs, 2)
	assert.Equal(t, "process(0)", res.Programs[0].Location)
	assert.Equal(t, "cluster(1)", res.Programs[1].Location)
	assert.Equal(t, ir.ProgramHash(res.Programs[0].Text), res.Programs[0].Hash)
	assert.Contains(t, res.Programs[0].Text, `connect_tcp_members(["127.0.0.1:7001", "127.0.0.1:7002", "127.0.0.1:7003"])`)
	assert.Zero(t, res.Seq, "no store configured")
}

func TestCompile_CUEWithoutNetworks(t *testing.T) {
	out, _, err := execute(t, "--format", "json", "compile", testdata("local.cue"))
	require.NoError(t, err)

	res := decodeCompile(t, out)
	assert.Equal(t, 0, res.Networks)
	require.Len(t, res.Programs, 1)
	assert.Equal(t,
		"stream_0 = source_iter(0..3);\nstream_0 -> for_each(|x| println!(\"{}\", x));\n",
		res.Programs[0].Text)
}

func TestCompile_WritesProgramFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	out, _, err := execute(t, "--format", "json", "compile", "--output", dir, testdata("pipeline.yaml"))
	require.NoError(t, err)

	res := decodeCompile(t, out)
	assert.Equal(t, []string{
		filepath.Join(dir, "process_0.dfir"),
		filepath.Join(dir, "cluster_1.dfir"),
	}, res.Files)

	data, err := os.ReadFile(filepath.Join(dir, "cluster_1.dfir"))
	require.NoError(t, err)
	assert.Equal(t, res.Programs[1].Text, string(data))
}

func TestCompile_StoresBuild(t *testing.T) {
	db := filepath.Join(t.TempDir(), "flowc.db")

	out := &bytes.Buffer{}
	cmd := &cobra.Command{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetContext(context.Background())
	opts := &CompileOptions{
		RootOptions: &RootOptions{Format: "json"},
		Database:    db,
		Host:        "127.0.0.1",
		BasePort:    7000,
		Members:     2,
		IDs:         compiler.NewFixedGenerator("build-1"),
	}
	require.NoError(t, runCompile(opts, testdata("pipeline.yaml"), cmd))

	res := decodeCompile(t, out.String())
	assert.Equal(t, "build-1", res.BuildID)
	assert.Equal(t, int64(1), res.Seq)

	shown, _, err := execute(t, "--format", "json", "show", "--db", db, "build-1")
	require.NoError(t, err)

	var resp struct {
		Data BuildDetail `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(shown), &resp))
	d := resp.Data
	assert.Equal(t, "build-1", d.ID)
	assert.Equal(t, res.Fingerprint, d.Fingerprint)
	assert.Equal(t, testdata("pipeline.yaml"), d.Source)
	assert.Equal(t, ir.CompilerVersion, d.CompilerVersion)
	require.Len(t, d.Programs, 2)
	assert.Equal(t, res.Programs[0].Text, d.Programs[0].Text)
	require.Len(t, d.Channels, 2)
	assert.Equal(t, "o2m", d.Channels[0].Shape)
	assert.Equal(t, "process(0)", d.Channels[0].Sender)
	assert.Equal(t, "cluster(1)", d.Channels[0].Receiver)
	assert.Equal(t, "m2o", d.Channels[1].Shape)
}

func TestCompile_ValidationFailure(t *testing.T) {
	out, _, err := execute(t, "compile", testdata("tick_send.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ Validation failed")
	assert.Contains(t, out, compiler.ErrTickEndpoint)
}

func TestCompile_VerboseLogsToStderr(t *testing.T) {
	out, errOut, err := execute(t, "--format", "json", "-v", "compile", testdata("pipeline.yaml"))
	require.NoError(t, err)
	decodeCompile(t, out)
	assert.Contains(t, errOut, "Loaded testdata/pipeline.yaml")
	assert.Contains(t, errOut, "graph compiled")
	assert.Contains(t, errOut, "channel connected")
}

func TestCompile_MissingFile(t *testing.T) {
	out, _, err := execute(t, "compile", testdata("nope.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E005]")
}

type failingLookup struct{ err error }

func (l failingLookup) LatestByFingerprint(context.Context, string) (string, bool, error) {
	return "", false, l.err
}

type foundLookup struct{ id string }

func (l foundLookup) LatestByFingerprint(context.Context, string) (string, bool, error) {
	return l.id, true, nil
}

func TestNoteUnchanged(t *testing.T) {
	tests := []struct {
		name    string
		lookup  buildLookup
		verbose bool
		want    string
	}{
		{"lookup error is logged", failingLookup{errors.New("database is locked")}, true,
			"Warning: could not look up earlier builds: database is locked\n"},
		{"earlier build", foundLookup{"build-0"}, true, "Graph unchanged since build build-0\n"},
		{"quiet without verbose", failingLookup{errors.New("database is locked")}, false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out, errOut bytes.Buffer
			f := &OutputFormatter{Format: "text", Writer: &out, ErrWriter: &errOut, Verbose: tt.verbose}

			noteUnchanged(context.Background(), f, tt.lookup, "fp")
			assert.Equal(t, tt.want, errOut.String())
			assert.Empty(t, out.String())
		})
	}
}
