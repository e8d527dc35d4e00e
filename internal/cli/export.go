package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/quotedesk/internal/export"
	"github.com/roach88/quotedesk/internal/ledger"
	"github.com/roach88/quotedesk/internal/reconcile"
)

// ExportOptions holds flags for the export command.
type ExportOptions struct {
	*RootOptions
	CSV  string
	XLSX string
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "export <request>",
		Short: "Write the comparison matrix as CSV or an XLSX RFQ workbook",
		Example: `  quotedesk export SB-1 --csv comparison.csv
  quotedesk export SB-1 --csv -
  quotedesk export SB-1 --xlsx rfq.xlsx`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if (opts.CSV == "") == (opts.XLSX == "") {
				return NewExitError(ExitCommandError, "exactly one of --csv or --xlsx is required")
			}
			return withEngine(opts.RootOptions, cmd, args[0], func(e *reconcile.Engine, sb ledger.SentBack) error {
				return runExport(opts, cmd, e, sb)
			})
		},
	}

	cmd.Flags().StringVar(&opts.CSV, "csv", "", "CSV output file (\"-\" for stdout)")
	cmd.Flags().StringVar(&opts.XLSX, "xlsx", "", "XLSX output file")

	return cmd
}

func runExport(opts *ExportOptions, cmd *cobra.Command, e *reconcile.Engine, sb ledger.SentBack) error {
	rfq := e.Draft().Snapshot()
	winners := e.Tracker().Snapshot()

	path := opts.CSV
	if path == "" {
		path = opts.XLSX
	}
	var w io.Writer = cmd.OutOrStdout()
	if path != "-" {
		file, err := os.Create(path)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to create output file", err)
		}
		defer file.Close()
		w = file
	}

	var err error
	if opts.CSV != "" {
		err = export.WriteCSV(w, export.Matrix(e.Items(), rfq, winners))
	} else {
		sb.Items = e.Items()
		err = export.WriteXLSX(w, sb, rfq, winners)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to write export", err)
	}
	if path != "-" {
		fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s\n", path)
	}
	return nil
}
