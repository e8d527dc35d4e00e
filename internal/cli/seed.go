package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/quotedesk/internal/seed"
)

// NewSeedCommand creates the seed command.
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed <fixture.yaml>",
		Short: "Import vendors, requests, quotation rows, orders and payments",
		Long: `Import a YAML fixture into the database. Vendors are upserted; other
documents are inserted and fail on duplicate ids.`,
		Example:       `  quotedesk seed --db site.db site.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			fixture, err := seed.LoadFile(args[0])
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to load fixture", err)
			}
			d, st, err := rootOpts.openDesk(cmd)
			if err != nil {
				return err
			}
			defer closeStore(st)

			counts, err := seed.Import(cmd.Context(), d.Store(), fixture)
			if err != nil {
				return rootOpts.formatter(cmd).Fail(ExitCommandError, "failed to import fixture", err, nil)
			}
			f := rootOpts.formatter(cmd)
			if f.Format == "json" {
				return f.Success(counts)
			}
			return f.Success(fmt.Sprintf("Imported %s", counts))
		},
	}
}
