package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/flowc/internal/compiler"
	"github.com/roach88/flowc/internal/deploy/localhost"
	"github.com/roach88/flowc/internal/emit"
	"github.com/roach88/flowc/internal/ir"
	"github.com/roach88/flowc/internal/location"
	"github.com/roach88/flowc/internal/store"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output   string // directory for <location>.dfir files
	Database string // artifact store path; empty disables persistence
	Host     string
	BasePort int
	Members  int // members per cluster

	// IDs overrides the build id generator (for testing).
	// If nil, defaults to compiler.UUIDv7Generator.
	IDs compiler.IDGenerator
}

// CompileResult is the JSON payload of a successful compile.
type CompileResult struct {
	BuildID     string                     `json:"build_id"`
	Seq         int64                      `json:"seq,omitempty"`
	Fingerprint string                     `json:"fingerprint"`
	Networks    int                        `json:"networks"`
	Programs    []ProgramOutput            `json:"programs"`
	Warnings    []compiler.FeedbackWarning `json:"warnings,omitempty"`
	Files       []string                   `json:"files,omitempty"`
}

// ProgramOutput is one emitted program.
type ProgramOutput struct {
	Location   string `json:"location"`
	Statements int    `json:"statements"`
	Hash       string `json:"hash"`
	Text       string `json:"text"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <graph-file>",
		Short: "Compile a graph into per-location programs",
		Long: `Compile a graph document (YAML or CUE) into one program per location.

Every process, cluster and external process of the graph is placed on a
single host. Network edges get sequential TCP ports starting at --base-port.

Example:
  flowc compile pipeline.yaml
  flowc compile --db ./flowc.db --output ./out pipeline.cue`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "directory to write <location>.dfir files to")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite artifact store")
	cmd.Flags().StringVar(&opts.Host, "host", localhost.DefaultHost, "host address every location is placed on")
	cmd.Flags().IntVar(&opts.BasePort, "base-port", localhost.DefaultBasePort, "first port handed out to network edges")
	cmd.Flags().IntVar(&opts.Members, "members", 2, "members per cluster")

	return cmd
}

func runCompile(opts *CompileOptions, path string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	logger := opts.logger()

	g, err := loadGraph(formatter, path)
	if err != nil {
		return err
	}

	var st *store.Store
	var ledger localhost.Ledger
	if opts.Database != "" {
		st, err = store.Open(opts.Database)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeStoreFailed, fmt.Sprintf("opening store: %v", err), nil)
		}
		defer st.Close()
		ledger = st
	}

	ids := opts.IDs
	if ids == nil {
		ids = compiler.UUIDv7Generator{}
	}
	buildID := ids.Generate()

	dep := localhost.New(localhost.Config{
		Host:     opts.Host,
		BasePort: opts.BasePort,
		BuildID:  buildID,
		Ledger:   ledger,
		Logger:   logger,
	})
	dep.InstantiateGraph(g, opts.Members)

	c := compiler.New(
		compiler.WithLogger(logger),
		compiler.WithIDGenerator(compiler.NewFixedGenerator(buildID)),
	)
	res, err := c.Compile(ctx, g, &compiler.Deployment{Provider: dep, Endpoints: dep.Endpoints()})
	if err != nil {
		return outputCompileError(formatter, err)
	}
	if err := dep.Err(); err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStoreFailed, fmt.Sprintf("recording channels: %v", err), nil)
	}

	result := CompileResult{
		BuildID:     res.BuildID,
		Fingerprint: res.Fingerprint,
		Networks:    res.Networks,
		Programs:    programOutputs(res.Programs),
		Warnings:    res.Warnings,
	}

	if opts.Output != "" {
		result.Files, err = writePrograms(opts.Output, res.Programs)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeWriteFailed, fmt.Sprintf("writing programs: %v", err), nil)
		}
	}

	if st != nil {
		noteUnchanged(ctx, formatter, st, res.Fingerprint)
		result.Seq, err = st.WriteBuild(ctx, storeBuild(path, res))
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeStoreFailed, fmt.Sprintf("storing build: %v", err), nil)
		}
	}

	return outputCompileSuccess(formatter, result)
}

// buildLookup finds earlier builds of the same graph.
type buildLookup interface {
	LatestByFingerprint(ctx context.Context, fingerprint string) (string, bool, error)
}

// noteUnchanged reports an earlier build of the same graph. A failed
// lookup does not fail the compile.
func noteUnchanged(ctx context.Context, formatter *OutputFormatter, st buildLookup, fingerprint string) {
	prev, ok, err := st.LatestByFingerprint(ctx, fingerprint)
	switch {
	case err != nil:
		formatter.VerboseLog("Warning: could not look up earlier builds: %v", err)
	case ok:
		formatter.VerboseLog("Graph unchanged since build %s", prev)
	}
}

func programOutputs(progs emit.Programs) []ProgramOutput {
	out := make([]ProgramOutput, 0, len(progs))
	for _, id := range progs.Locations() {
		p := progs[id]
		text := p.String()
		out = append(out, ProgramOutput{
			Location:   p.Location.String(),
			Statements: len(p.Statements),
			Hash:       ir.ProgramHash(text),
			Text:       text,
		})
	}
	return out
}

func storeBuild(path string, res *compiler.Result) store.Build {
	b := store.Build{
		ID:              res.BuildID,
		Fingerprint:     res.Fingerprint,
		Source:          path,
		CompilerVersion: ir.CompilerVersion,
		IRVersion:       ir.IRVersion,
	}
	for _, w := range res.Warnings {
		b.Warnings = append(b.Warnings, w.String())
	}
	for i, id := range res.Programs.Locations() {
		p := res.Programs[id]
		text := p.String()
		b.Programs = append(b.Programs, store.Program{
			Position:   i,
			Location:   p.Location.String(),
			Body:       text,
			Hash:       ir.ProgramHash(text),
			Statements: len(p.Statements),
		})
	}
	return b
}

// programFile names the file of a location's program, e.g. cluster_1.dfir.
func programFile(loc location.ID) string {
	return fmt.Sprintf("%s_%d.dfir", loc.Kind(), loc.Raw())
}

func writePrograms(dir string, progs emit.Programs) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	var files []string
	for _, id := range progs.Locations() {
		p := progs[id]
		name := filepath.Join(dir, programFile(p.Location))
		if err := os.WriteFile(name, []byte(p.String()), 0o644); err != nil {
			return nil, err
		}
		files = append(files, name)
	}
	return files, nil
}

func outputCompileSuccess(formatter *OutputFormatter, result CompileResult) error {
	if formatter.JSON() {
		return formatter.Success(result)
	}

	statements := 0
	for _, p := range result.Programs {
		statements += p.Statements
	}
	fmt.Fprintf(formatter.Writer, "✓ Compiled %d location(s), %d statement(s), %d network edge(s)\n",
		len(result.Programs), statements, result.Networks)
	fmt.Fprintf(formatter.Writer, "  build %s\n", result.BuildID)
	printWarnings(formatter, result.Warnings)

	for _, p := range result.Programs {
		fmt.Fprintf(formatter.Writer, "\n// %s\n%s", p.Location, p.Text)
	}
	for _, f := range result.Files {
		fmt.Fprintf(formatter.Writer, "\nWrote %s", f)
	}
	if len(result.Files) > 0 {
		fmt.Fprintln(formatter.Writer)
	}
	return nil
}

func outputCompileError(formatter *OutputFormatter, err error) error {
	var verrs compiler.ValidationErrors
	if errors.As(err, &verrs) {
		return outputValidationErrors(formatter, ValidationResult{Errors: verrs})
	}
	var abort *ir.Error
	if errors.As(err, &abort) {
		return formatter.Fail(ExitFailure, ErrCodeCompileAborts, abort.Error(), map[string]string{
			"kind": abort.Kind.String(),
			"op":   abort.Op,
		})
	}
	return formatter.Fail(ExitFailure, ErrCodeGeneric, err.Error(), nil)
}
