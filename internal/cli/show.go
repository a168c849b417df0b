package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/flowc/internal/store"
)

// ShowOptions holds flags for the show command.
type ShowOptions struct {
	*RootOptions
	Database string
}

// BuildSummary is one row of the build listing.
type BuildSummary struct {
	ID          string `json:"id"`
	Seq         int64  `json:"seq"`
	Fingerprint string `json:"fingerprint"`
	Source      string `json:"source"`
}

// BuildDetail is a stored build with its programs and channels.
type BuildDetail struct {
	BuildSummary
	CompilerVersion string          `json:"compiler_version"`
	IRVersion       string          `json:"ir_version"`
	Warnings        []string        `json:"warnings"`
	Programs        []ProgramOutput `json:"programs"`
	Channels        []ChannelOutput `json:"channels"`
}

// ChannelOutput is one recorded channel.
type ChannelOutput struct {
	Shape    string `json:"shape"`
	Sender   string `json:"sender"`
	Receiver string `json:"receiver"`
	Sink     string `json:"sink"`
	Source   string `json:"source"`
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ShowOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "show [build-id]",
		Short: "Show stored builds",
		Long: `List the builds in an artifact store, newest first, or show one build's
programs and the channels established for it.

Example:
  flowc show --db ./flowc.db
  flowc show --db ./flowc.db 0190a6c4-...`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite artifact store (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runShow(opts *ShowOptions, args []string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	st, err := store.Open(opts.Database)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStoreFailed, fmt.Sprintf("opening store: %v", err), nil)
	}
	defer st.Close()

	if len(args) == 0 {
		builds, err := st.ListBuilds(ctx)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeStoreFailed, fmt.Sprintf("listing builds: %v", err), nil)
		}
		return outputBuildList(formatter, builds)
	}

	b, err := st.ReadBuild(ctx, args[0])
	if errors.Is(err, store.ErrBuildNotFound) {
		return formatter.Fail(ExitCommandError, ErrCodeUnknownBuild, fmt.Sprintf("build not found: %s", args[0]), nil)
	}
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStoreFailed, fmt.Sprintf("reading build: %v", err), nil)
	}
	channels, err := st.ReadChannels(ctx, b.ID)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStoreFailed, fmt.Sprintf("reading channels: %v", err), nil)
	}
	return outputBuildDetail(formatter, buildDetail(b, channels))
}

func summarize(b store.Build) BuildSummary {
	return BuildSummary{ID: b.ID, Seq: b.Seq, Fingerprint: b.Fingerprint, Source: b.Source}
}

func buildDetail(b store.Build, channels []store.ChannelRecord) BuildDetail {
	d := BuildDetail{
		BuildSummary:    summarize(b),
		CompilerVersion: b.CompilerVersion,
		IRVersion:       b.IRVersion,
		Warnings:        b.Warnings,
		Programs:        make([]ProgramOutput, 0, len(b.Programs)),
		Channels:        make([]ChannelOutput, 0, len(channels)),
	}
	for _, p := range b.Programs {
		d.Programs = append(d.Programs, ProgramOutput{
			Location:   p.Location,
			Statements: p.Statements,
			Hash:       p.Hash,
			Text:       p.Body,
		})
	}
	for _, c := range channels {
		d.Channels = append(d.Channels, ChannelOutput{
			Shape:    c.Shape,
			Sender:   c.Sender,
			Receiver: c.Receiver,
			Sink:     c.Sink,
			Source:   c.Source,
		})
	}
	return d
}

func outputBuildList(formatter *OutputFormatter, builds []store.Build) error {
	summaries := make([]BuildSummary, 0, len(builds))
	for _, b := range builds {
		summaries = append(summaries, summarize(b))
	}
	if formatter.JSON() {
		return formatter.Success(summaries)
	}

	if len(summaries) == 0 {
		fmt.Fprintln(formatter.Writer, "No builds")
		return nil
	}
	for _, s := range summaries {
		fmt.Fprintf(formatter.Writer, "%4d  %s  %s  %s\n", s.Seq, s.ID, shortHash(s.Fingerprint), s.Source)
	}
	return nil
}

func outputBuildDetail(formatter *OutputFormatter, d BuildDetail) error {
	if formatter.JSON() {
		return formatter.Success(d)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "Build %s (seq %d)\n", d.ID, d.Seq)
	fmt.Fprintf(w, "  source:      %s\n", d.Source)
	fmt.Fprintf(w, "  fingerprint: %s\n", d.Fingerprint)
	fmt.Fprintf(w, "  compiler:    %s (ir %s)\n", d.CompilerVersion, d.IRVersion)
	for _, warning := range d.Warnings {
		fmt.Fprintf(w, "  %s\n", warning)
	}

	if len(d.Channels) > 0 {
		fmt.Fprintln(w, "\nChannels:")
		for _, c := range d.Channels {
			fmt.Fprintf(w, "  %s %s -> %s  %s\n", c.Shape, c.Sender, c.Receiver, c.Sink)
		}
	}
	for _, p := range d.Programs {
		fmt.Fprintf(w, "\n// %s\n%s", p.Location, p.Text)
	}
	return nil
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
