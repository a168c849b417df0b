package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/flowc/internal/compiler"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool                       `json:"valid"`
	Errors   []compiler.ValidationError `json:"errors,omitempty"`
	Warnings []compiler.FeedbackWarning `json:"warnings,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <graph-file>",
		Short: "Check a graph without compiling it",
		Long: `Check a graph document without synthesizing networks or emitting programs.

Reports co-location, cycle binding and network shape errors, and the
feedback loops of the graph. Faster than compile for development feedback.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	g, err := loadGraph(formatter, path)
	if err != nil {
		return err
	}

	result := ValidationResult{Errors: compiler.Validate(g)}
	if len(result.Errors) == 0 {
		result.Valid = true
		result.Warnings = compiler.AnalyzeFeedback(g)
	}
	formatter.VerboseLog("Checked %d node(s) in %d leaf chain(s)", g.CountNodes(), len(g.Leaves))

	if !result.Valid {
		return outputValidationErrors(formatter, result)
	}
	return outputValidateSuccess(formatter, result)
}

func outputValidateSuccess(formatter *OutputFormatter, result ValidationResult) error {
	if formatter.JSON() {
		return formatter.Success(result)
	}

	fmt.Fprintln(formatter.Writer, "✓ Graph valid")
	printWarnings(formatter, result.Warnings)
	return nil
}

func outputValidationErrors(formatter *OutputFormatter, result ValidationResult) error {
	errs := result.Errors
	failure := NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))

	if formatter.JSON() {
		if err := formatter.encode(CLIResponse{
			Status: "error",
			Data:   result,
			Error:  &CLIError{Code: errs[0].Code, Message: errs[0].Message},
		}); err != nil {
			return err
		}
		return failure
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)
	for _, e := range errs {
		fmt.Fprintf(formatter.Writer, "%s\n  %s: %s\n\n", e.Field, e.Code, e.Message)
	}
	return failure
}

func printWarnings(formatter *OutputFormatter, warnings []compiler.FeedbackWarning) {
	for _, w := range warnings {
		if w.Level == compiler.LevelInfo && !formatter.Verbose {
			continue
		}
		fmt.Fprintf(formatter.Writer, "  %s\n", w)
	}
}
