package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/flowc/internal/compiler"
)

// execute runs the root command with args and returns stdout, stderr and
// the command error.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func testdata(name string) string {
	return filepath.Join("testdata", name)
}

func TestValidate_ValidGraph(t *testing.T) {
	for _, name := range []string{"pipeline.yaml", "local.cue"} {
		t.Run(name, func(t *testing.T) {
			out, _, err := execute(t, "validate", testdata(name))
			require.NoError(t, err)
			assert.Contains(t, out, "✓ Graph valid")
		})
	}
}

func TestValidate_ValidGraphJSON(t *testing.T) {
	out, _, err := execute(t, "--format", "json", "validate", testdata("feedback.yaml"))
	require.NoError(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Valid)
	require.Len(t, resp.Data.Warnings, 1)
	assert.Equal(t, compiler.LevelWarning, resp.Data.Warnings[0].Level)
}

func TestValidate_FeedbackWarningText(t *testing.T) {
	out, _, err := execute(t, "validate", testdata("feedback.yaml"))
	require.NoError(t, err)
	assert.Contains(t, out, "warning: same-tick feedback: cycle_0 -> cycle_0 has no defer_tick")
}

func TestValidate_InvalidGraph(t *testing.T) {
	out, _, err := execute(t, "validate", testdata("tick_send.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "✗ Validation failed")
	assert.Contains(t, out, compiler.ErrTickEndpoint)
}

func TestValidate_InvalidGraphJSON(t *testing.T) {
	out, _, err := execute(t, "--format", "json", "validate", testdata("tick_send.yaml"))
	require.Error(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, compiler.ErrTickEndpoint, resp.Error.Code)
}

func TestValidate_LoadErrors(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		code     string
		exitCode int
	}{
		{"missing file", testdata("nope.yaml"), ErrCodeNotFound, ExitCommandError},
		{"directory", "testdata", ErrCodeNotFound, ExitCommandError},
		{"unknown field", testdata("broken.yaml"), ErrCodeLoadFailed, ExitCommandError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := execute(t, "validate", tt.path)
			require.Error(t, err)
			assert.Equal(t, tt.exitCode, GetExitCode(err))
			assert.Contains(t, out, "Error ["+tt.code+"]")
		})
	}
}
