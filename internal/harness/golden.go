package harness

import (
	"context"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// Render writes one block per program, in location order:
//
//	// process(0)
//	stream_0 = ...;
//
// Blocks are separated by a blank line.
func Render(result *Result) []byte {
	var blocks []string
	for _, id := range result.Programs.Locations() {
		p := result.Programs[id]
		blocks = append(blocks, "// "+p.Location.String()+"\n"+p.String())
	}
	return []byte(strings.Join(blocks, "\n"))
}

// RunWithGolden runs a scenario and compares its programs against
// testdata/golden/<scenario name>.golden.
//
// Returns an error if the scenario cannot run. Assertion failures and
// golden mismatches fail t.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(context.Background(), scenario)
	if err != nil {
		return nil, err
	}
	for _, msg := range result.Errors {
		t.Error(msg)
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, Render(result))
	return result, nil
}
