package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/quotedesk/internal/config"
	"github.com/roach88/quotedesk/internal/desk"
	"github.com/roach88/quotedesk/internal/store"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose  bool
	Format   string // "json" | "text"
	Database string // overrides the configured database path
	Config   string // CUE config file
	EnvFile  string // dotenv file; missing is ignored

	// Lookup reads process environment; nil uses os.LookupEnv.
	Lookup func(string) (string, bool)
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the quotedesk CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "quotedesk",
		Short: "quotedesk - compare vendor quotations and reconcile awards",
		Long: `Compare quotations from several vendors for a sent-back procurement
request, award each item to one vendor, and keep the request consistent with
the selection. Also records vendor quotes in batches and checks payment
amounts against order balances.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "path to SQLite database (overrides config)")
	cmd.PersistentFlags().StringVar(&opts.Config, "config", "", "CUE config file")
	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env-file", ".env", "dotenv file with QUOTEDESK_* overrides")

	cmd.AddCommand(NewSeedCommand(opts))
	cmd.AddCommand(NewRFQCommand(opts))
	cmd.AddCommand(NewQuotesCommand(opts))
	cmd.AddCommand(NewPaymentsCommand(opts))
	cmd.AddCommand(NewExportCommand(opts))
	cmd.AddCommand(NewRunCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// formatter returns the output formatter for a command.
func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

// loadConfig resolves configuration from --config, the dotenv file and the
// process environment. --db wins over all of them.
func (o *RootOptions) loadConfig() (config.Config, error) {
	lookup := o.Lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}
	cfg, err := config.Load(config.Source{File: o.Config, EnvFile: o.EnvFile, Lookup: lookup})
	if err != nil {
		return config.Config{}, err
	}
	if o.Database != "" {
		cfg.Database = o.Database
	}
	return cfg, nil
}

// newLogger builds the text logger for a command. --verbose forces debug.
func (o *RootOptions) newLogger(cfg config.Config, w io.Writer) *slog.Logger {
	level := cfg.Level()
	if o.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// openDesk loads configuration, opens the store and returns a desk over it.
// The caller closes the returned store.
func (o *RootOptions) openDesk(cmd *cobra.Command) (*desk.Desk, *store.Store, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	logger := o.newLogger(cfg, cmd.ErrOrStderr())
	logger.Debug("opening database", "path", cfg.Database)

	st, err := store.Open(cfg.Database)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return desk.New(st, cfg, desk.WithLogger(logger)), st, nil
}

// closeStore closes st, logging failures through slog's default logger.
func closeStore(st *store.Store) {
	if err := st.Close(); err != nil {
		slog.Error("error closing database", "error", err)
	}
}
