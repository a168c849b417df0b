package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/roach88/flowc/internal/graphfile"
	"github.com/roach88/flowc/internal/ir"
)

// loadGraph reads and replays the graph document at path. Failures are
// written to f and returned as an ExitError.
func loadGraph(f *OutputFormatter, path string) (*ir.Graph, error) {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, f.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("graph file not found: %s", path), nil)
	}
	if err != nil {
		return nil, f.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("error accessing graph file: %v", err), nil)
	}
	if info.IsDir() {
		return nil, f.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("not a file: %s", path), nil)
	}

	doc, err := graphfile.Load(path)
	if err != nil {
		return nil, f.Fail(ExitCommandError, ErrCodeLoadFailed, err.Error(), nil)
	}
	f.VerboseLog("Loaded %s: %d location(s), %d step(s)", path, len(doc.Locations), len(doc.Steps))

	built, err := graphfile.Build(doc)
	if err != nil {
		return nil, f.Fail(ExitFailure, ErrCodeBuildFailed, err.Error(), nil)
	}
	return built.Graph, nil
}
