package cli

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/quotedesk/internal/harness"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Golden string // golden trace file to compare against
}

// ScenarioResult is the outcome of one scenario run.
type ScenarioResult struct {
	Name   string               `json:"name"`
	Pass   bool                 `json:"pass"`
	Trace  []harness.TraceEvent `json:"trace"`
	Errors []string             `json:"errors,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scenario.yaml>",
		Short: "Execute a scenario and print its trace",
		Long: `Execute a scenario against a fresh in-memory store and print its trace.

The scenario seeds its own documents, so --db and --config are not used.

Exit codes:
  0 - Every step met its expectation and every assertion held
  1 - The scenario failed, or the trace differs from --golden
  2 - Command error (unreadable or invalid scenario)`,
		Example: `  quotedesk run testdata/scenarios/rfq_single_winner.yaml
  quotedesk run scenario.yaml --golden scenario.golden --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenario(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Golden, "golden", "", "golden trace file to compare against")

	return cmd
}

func runScenario(opts *RunOptions, path string, cmd *cobra.Command) error {
	scenario, err := harness.LoadScenario(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load scenario", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if opts.Verbose {
		logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	result, err := harness.RunWithLogger(scenario, logger)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to execute scenario", err)
	}

	trace := harness.FormatTrace(scenario.Name, result.Trace)
	errs := result.Errors
	if opts.Golden != "" {
		want, err := os.ReadFile(opts.Golden)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read golden file", err)
		}
		if !bytes.Equal(want, trace) {
			errs = append(errs, fmt.Sprintf("trace differs from %s", opts.Golden))
		}
	}

	out := ScenarioResult{Name: scenario.Name, Pass: len(errs) == 0, Trace: result.Trace, Errors: errs}
	w := cmd.OutOrStdout()
	if opts.Format == "json" {
		if err := (&OutputFormatter{Format: "json", Writer: w}).Success(out); err != nil {
			return err
		}
	} else {
		w.Write(trace)
		for _, e := range errs {
			fmt.Fprintf(w, "✗ %s\n", e)
		}
		if out.Pass {
			fmt.Fprintf(w, "✓ %s\n", scenario.Name)
		}
	}

	if !out.Pass {
		return NewExitError(ExitFailure, fmt.Sprintf("scenario %s failed", scenario.Name))
	}
	return nil
}
