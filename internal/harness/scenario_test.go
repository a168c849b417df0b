package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScenario(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadScenario_ResolvesGraphPath(t *testing.T) {
	s := loadScenario(t, "pipeline.yaml")
	assert.Equal(t, filepath.Join("testdata", "graphs", "pipeline.yaml"), s.Graph)
	assert.Equal(t, "pipeline", s.Name)
	assert.Len(t, s.Assertions, 6)
}

func TestLoadScenario_Deployment(t *testing.T) {
	s := loadScenario(t, "counter.yaml")
	assert.Equal(t, Deployment{BasePort: 8000}, s.Deployment)
}

func TestLoadScenario_Invalid(t *testing.T) {
	dir := t.TempDir()
	graph := filepath.Join(dir, "g.yaml")
	require.NoError(t, os.WriteFile(graph, []byte("locations: []\nsteps: []\n"), 0o644))

	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "unknown field",
			content: "name: x\ndescription: d\ngraph: g.yaml\nassertion: []\n",
			want:    "failed to parse YAML",
		},
		{
			name:    "missing name",
			content: "description: d\ngraph: g.yaml\nassertions: [{type: valid}]\n",
			want:    "name is required",
		},
		{
			name:    "missing graph file",
			content: "name: x\ndescription: d\ngraph: other.yaml\nassertions: [{type: valid}]\n",
			want:    "graph file not found",
		},
		{
			name:    "no assertions",
			content: "name: x\ndescription: d\ngraph: g.yaml\nassertions: []\n",
			want:    "assertions list is required",
		},
		{
			name:    "unknown assertion type",
			content: "name: x\ndescription: d\ngraph: g.yaml\nassertions: [{type: fast}]\n",
			want:    `assertions[0]: unknown assertion type "fast"`,
		},
		{
			name:    "invalid without codes",
			content: "name: x\ndescription: d\ngraph: g.yaml\nassertions: [{type: invalid}]\n",
			want:    "codes list is required",
		},
		{
			name:    "bad warning level",
			content: "name: x\ndescription: d\ngraph: g.yaml\nassertions: [{type: warning, level: loud, text: x}]\n",
			want:    "level must be",
		},
		{
			name:    "channel without endpoints",
			content: "name: x\ndescription: d\ngraph: g.yaml\nassertions: [{type: channel, shape: o2o}]\n",
			want:    "shape, sender and receiver are required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadScenario(writeScenario(t, dir, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "none.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}
