package cli

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/roach88/quotedesk/internal/export"
	"github.com/roach88/quotedesk/internal/ledger"
	"github.com/roach88/quotedesk/internal/reconcile"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true)
	warningStyle = lipgloss.NewStyle().Bold(true)
)

// RFQView is the comparison matrix and selection state of one request.
type RFQView struct {
	Request  string       `json:"request"`
	State    string       `json:"state"`
	Mode     string       `json:"mode"`
	Revision int64        `json:"revision"`
	Complete bool         `json:"complete"`
	Missing  []string     `json:"missing,omitempty"`
	Rows     []export.Row `json:"rows"`
}

func (v RFQView) String() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("%s  %s  (mode %s, revision %d)", v.Request, v.State, v.Mode, v.Revision)))
	b.WriteString("\n")

	if len(v.Rows) == 0 {
		b.WriteString("No vendors selected.\n")
	} else {
		rows := make([][]string, 0, len(v.Rows))
		for _, r := range v.Rows {
			mark := ""
			switch {
			case r.Winner:
				mark = "winner"
			case r.Lowest:
				mark = "lowest"
			}
			rows = append(rows, []string{r.Item, r.Name, r.Vendor, r.Quote, r.Make, r.Amount, mark})
		}
		t := table.New().
			Border(lipgloss.NormalBorder()).
			Headers("Item", "Name", "Vendor", "Rate", "Make", "Amount", "").
			Rows(rows...)
		b.WriteString(t.String())
		b.WriteString("\n")
	}

	if v.Complete {
		b.WriteString("Every item has a winner.")
	} else {
		fmt.Fprintf(&b, "Items without a winner: %s", strings.Join(v.Missing, ", "))
	}
	return b.String()
}

func viewOf(e *reconcile.Engine, state string) RFQView {
	missing := e.Tracker().Missing()
	names := make([]string, len(missing))
	for i, m := range missing {
		names[i] = string(m)
	}
	return RFQView{
		Request:  string(e.ID()),
		State:    state,
		Mode:     string(e.Mode()),
		Revision: e.Revision(),
		Complete: len(missing) == 0,
		Missing:  names,
		Rows:     export.Matrix(e.Items(), e.Draft().Snapshot(), e.Tracker().Snapshot()),
	}
}

// NewRFQCommand creates the rfq command group.
func NewRFQCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rfq",
		Short: "Compare and award vendor quotes for a sent-back request",
	}
	cmd.AddCommand(newRFQShowCommand(rootOpts))
	cmd.AddCommand(newRFQVendorsCommand(rootOpts))
	cmd.AddCommand(newRFQQuoteCommand(rootOpts))
	cmd.AddCommand(newRFQMakeCommand(rootOpts))
	cmd.AddCommand(newRFQReviewCommand(rootOpts))
	return cmd
}

// withEngine opens the desk and the request's engine, runs fn and closes the
// store.
func withEngine(opts *RootOptions, cmd *cobra.Command, id string, fn func(e *reconcile.Engine, sb ledger.SentBack) error) error {
	d, st, err := opts.openDesk(cmd)
	if err != nil {
		return err
	}
	defer closeStore(st)

	sb, err := st.GetSentBack(cmd.Context(), ledger.RequestID(id))
	if err != nil {
		return opts.formatter(cmd).Fail(ExitCommandError, "failed to load request", err, nil)
	}
	e, err := d.OpenRequest(cmd.Context(), sb.ID)
	if err != nil {
		return opts.formatter(cmd).Fail(ExitCommandError, "failed to open request", err, nil)
	}
	return fn(e, sb)
}

// failEdit reports an engine error. Invalid transitions and blocked commits
// are domain failures; anything else is a command error.
func failEdit(opts *RootOptions, cmd *cobra.Command, message string, err error) error {
	var te *reconcile.TransitionError
	if errors.As(err, &te) {
		return opts.formatter(cmd).Fail(ExitFailure, message, err, te.Details)
	}
	return opts.formatter(cmd).Fail(ExitCommandError, message, err, nil)
}

func newRFQShowCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <request>",
		Short: "Print the comparison matrix and selection state",
		Example: `  quotedesk rfq show SB-1
  quotedesk rfq show SB-1 --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(opts, cmd, args[0], func(e *reconcile.Engine, sb ledger.SentBack) error {
				return opts.formatter(cmd).Success(viewOf(e, sb.WorkflowState))
			})
		},
	}
}

func newRFQVendorsCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vendors",
		Short: "Add or remove vendors from a request's comparison",
	}
	cmd.AddCommand(&cobra.Command{
		Use:           "add <request> <vendor>...",
		Short:         "Add vendors to the comparison",
		Args:          cobra.MinimumNArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, st, err := opts.openDesk(cmd)
			if err != nil {
				return err
			}
			defer closeStore(st)

			vendors, err := d.Vendors(cmd.Context(), args[1:]...)
			if err != nil {
				return opts.formatter(cmd).Fail(ExitCommandError, "failed to load vendors", err, nil)
			}
			e, err := d.OpenRequest(cmd.Context(), ledger.RequestID(args[0]))
			if err != nil {
				return opts.formatter(cmd).Fail(ExitCommandError, "failed to open request", err, nil)
			}
			n, err := e.AddVendors(cmd.Context(), vendors...)
			if err != nil {
				return failEdit(opts, cmd, "failed to add vendors", err)
			}
			return opts.formatter(cmd).Success(fmt.Sprintf("Added %d vendor(s) to %s", n, args[0]))
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:           "remove <request> <vendor>...",
		Short:         "Remove vendors, purging their quotes and awards",
		Args:          cobra.MinimumNArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(opts, cmd, args[0], func(e *reconcile.Engine, _ ledger.SentBack) error {
				for _, v := range args[1:] {
					if err := e.RemoveVendor(cmd.Context(), ledger.VendorID(v)); err != nil {
						return failEdit(opts, cmd, "failed to remove vendor", err)
					}
				}
				return opts.formatter(cmd).Success(fmt.Sprintf("Removed %d vendor(s) from %s", len(args)-1, args[0]))
			})
		},
	})
	return cmd
}

// parsePrice reads a price argument; "-" clears the quote.
func parsePrice(s string) (*decimal.Decimal, error) {
	if s == "-" {
		return nil, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, NewExitError(ExitCommandError, fmt.Sprintf("invalid price %q", s))
	}
	return &d, nil
}

func newRFQQuoteCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "quote <request> <item> <vendor> <price>",
		Short: "Set a vendor's rate for an item (\"-\" clears it)",
		Example: `  quotedesk rfq quote SB-1 I1 V2 90
  quotedesk rfq quote SB-1 I1 V2 -`,
		Args:          cobra.ExactArgs(4),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			price, err := parsePrice(args[3])
			if err != nil {
				return err
			}
			return withEngine(opts, cmd, args[0], func(e *reconcile.Engine, _ ledger.SentBack) error {
				item, vendor := ledger.ItemID(args[1]), ledger.VendorID(args[2])
				if err := e.SetQuote(cmd.Context(), item, vendor, price); err != nil {
					return failEdit(opts, cmd, "failed to set quote", err)
				}
				q, _ := e.Draft().Quote(item, vendor)
				return opts.formatter(cmd).Success(fmt.Sprintf("%s/%s: %s", item, vendor, q.Kind()))
			})
		},
	}
}

func newRFQMakeCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "make <request> <item> <vendor> <make>",
		Short:         "Choose the make a vendor quotes for an item",
		Args:          cobra.ExactArgs(4),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(opts, cmd, args[0], func(e *reconcile.Engine, _ ledger.SentBack) error {
				item, vendor := ledger.ItemID(args[1]), ledger.VendorID(args[2])
				if err := e.SetMake(cmd.Context(), item, vendor, args[3]); err != nil {
					return failEdit(opts, cmd, "failed to set make", err)
				}
				q, _ := e.Draft().Quote(item, vendor)
				return opts.formatter(cmd).Success(fmt.Sprintf("%s/%s: %s", item, vendor, q.Kind()))
			})
		},
	}
}

// parseAwards reads item=vendor pairs in item order.
func parseAwards(args []string) ([][2]string, error) {
	seen := map[string]string{}
	for _, a := range args {
		item, vendor, ok := strings.Cut(a, "=")
		if !ok || item == "" || vendor == "" {
			return nil, NewExitError(ExitCommandError, fmt.Sprintf("invalid award %q: want item=vendor", a))
		}
		seen[item] = vendor
	}
	out := make([][2]string, 0, len(seen))
	for item, vendor := range seen {
		out = append(out, [2]string{item, vendor})
	}
	sort.Slice(out, func(i, j int) bool { return out[i][0] < out[j][0] })
	return out, nil
}

func newRFQReviewCommand(opts *RootOptions) *cobra.Command {
	var commit bool
	cmd := &cobra.Command{
		Use:   "review <request> [item=vendor]...",
		Short: "Checkpoint the draft, select winners and optionally commit",
		Long: `Checkpoint the draft into the request's item list, then record a winning
vendor for each item=vendor pair. With --commit the request is submitted for
approval once every item has a winner. Without it, selections that are not
already stored on the items are only checked, not saved.`,
		Example: `  quotedesk rfq review SB-1 I1=V2 I2=V1
  quotedesk rfq review SB-1 I1=V2 I2=V1 --commit`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			awards, err := parseAwards(args[1:])
			if err != nil {
				return err
			}
			return withEngine(opts, cmd, args[0], func(e *reconcile.Engine, sb ledger.SentBack) error {
				f := opts.formatter(cmd)
				state := sb.WorkflowState
				written, err := e.ToView(cmd.Context())
				if err != nil {
					return failEdit(opts, cmd, "failed to checkpoint draft", err)
				}
				f.VerboseLog("checkpoint written=%t revision=%d", written, e.Revision())

				for _, a := range awards {
					if err := e.Select(ledger.ItemID(a[0]), ledger.VendorID(a[1])); err != nil {
						return f.Fail(ExitCommandError, fmt.Sprintf("failed to select %s for %s", a[1], a[0]), err, nil)
					}
				}
				if commit {
					if err := e.Commit(cmd.Context()); err != nil {
						return failEdit(opts, cmd, "failed to commit", err)
					}
					state = ledger.StateReviewing
				}
				return f.Success(viewOf(e, state))
			})
		},
	}
	cmd.Flags().BoolVar(&commit, "commit", false, "submit the request once every item has a winner")
	return cmd
}
