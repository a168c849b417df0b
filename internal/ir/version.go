package ir

// Version constants for the IR schema and the compiler.
const (
	// IRVersion is the IR schema version. It is part of every fingerprint.
	IRVersion = "1"

	// CompilerVersion is the flowc compiler version recorded with each build.
	CompilerVersion = "0.1.0"
)
