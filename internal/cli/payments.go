package cli

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/roach88/quotedesk/internal/money"
)

// AmountCheck is the balance summary of a document and the verdict on an
// entered amount.
type AmountCheck struct {
	money.Summary
	Entered decimal.Decimal `json:"entered"`
	Warning string          `json:"warning,omitempty"`
}

func (c AmountCheck) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%s)\n", c.Order, c.Kind)
	fmt.Fprintf(&b, "  total          %s\n", money.FormatINR(c.TotalExclTax))
	fmt.Fprintf(&b, "  total incl tax %s\n", money.FormatINR(c.TotalInclTax))
	fmt.Fprintf(&b, "  paid           %s\n", money.FormatINR(c.AmountPaid))
	fmt.Fprintf(&b, "  outstanding    %s\n", money.FormatINR(c.Outstanding))
	if c.Warning != "" {
		b.WriteString(warningStyle.Render("Warning: " + c.Warning))
	} else {
		fmt.Fprintf(&b, "%s is within the balance.", money.FormatINR(c.Entered))
	}
	return b.String()
}

// NewPaymentsCommand creates the payments command group.
func NewPaymentsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "payments",
		Short: "Check payment amounts against order balances",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "check <document> <amount>",
		Short: "Warn when an amount exceeds what is still owed on an order",
		Long: `Summarize a purchase or service order and compare an amount against its
balance. An amount above the balance prints a warning; the warning is advice,
so the command still succeeds.`,
		Example:       `  quotedesk payments check PO-D 700`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := decimal.NewFromString(args[1])
			if err != nil {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid amount %q", args[1]))
			}
			d, st, err := rootOpts.openDesk(cmd)
			if err != nil {
				return err
			}
			defer closeStore(st)

			summary, warning, err := d.CheckAmount(cmd.Context(), args[0], amount)
			if err != nil {
				return rootOpts.formatter(cmd).Fail(ExitCommandError, "failed to load document", err, nil)
			}
			check := AmountCheck{Summary: summary, Entered: amount}
			if warning != nil {
				check.Warning = warning.String()
			}
			return rootOpts.formatter(cmd).Success(check)
		},
	})
	return cmd
}
