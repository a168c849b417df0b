package store

import (
	"path/filepath"
	"testing"
)

// createTestStore creates a new store in a temporary directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestBuild creates a build with one program per location name.
func createTestBuild(id, fingerprint string, locations ...string) Build {
	b := Build{
		ID:              id,
		Fingerprint:     fingerprint,
		Source:          "test.yaml",
		Warnings:        []string{},
		CompilerVersion: "0.1.0",
		IRVersion:       "1",
	}
	for i, loc := range locations {
		b.Programs = append(b.Programs, Program{
			Position:   i,
			Location:   loc,
			Body:       "stream_0 = source_iter(0..10);\n",
			Hash:       "hash-" + loc,
			Statements: 1,
		})
	}
	return b
}
