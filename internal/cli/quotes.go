package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/quotedesk/internal/ledger"
	"github.com/roach88/quotedesk/internal/quoteedit"
)

// QuotesOptions holds flags for the quotes submit command.
type QuotesOptions struct {
	*RootOptions
	LeadTime int
	Prices   []string // row=price
	Makes    []string // row=make
}

// SubmitResult is the outcome of one quotes submit.
type SubmitResult struct {
	Request   string   `json:"request"`
	Vendor    string   `json:"vendor"`
	Batches   int      `json:"batches"`
	Updated   []string `json:"updated"`
	Failed    []string `json:"failed,omitempty"`
	NotIssued []string `json:"not_issued,omitempty"`
	Summary   string   `json:"summary"`
}

func (r SubmitResult) String() string {
	return fmt.Sprintf("%s/%s: %s in %d batch(es)", r.Request, r.Vendor, r.Summary, r.Batches)
}

// NewQuotesCommand creates the quotes command group.
func NewQuotesCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quotes",
		Short: "Record a vendor's quotation rows",
	}
	cmd.AddCommand(newQuotesSubmitCommand(rootOpts))
	return cmd
}

func newQuotesSubmitCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QuotesOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "submit <request> <vendor>",
		Short: "Apply rate and make edits to a vendor's rows and save them in batches",
		Long: `Apply rate and make edits to a vendor's quotation rows for a request, then
save every pending row in bounded concurrent batches.

A priced row in a category with declared makes must name a make before
anything is saved. A lead time is required; changing it saves every row.

Exit codes:
  0 - All rows saved
  1 - Save blocked, or some rows failed or were not sent
  2 - Command error (bad arguments, unknown request or row)`,
		Example: `  quotedesk quotes submit SB-1 V1 --lead-time 7 --price Q1=250 --make Q1=Polycab`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuotesSubmit(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().IntVar(&opts.LeadTime, "lead-time", 0, "delivery lead time in days")
	cmd.Flags().StringArrayVar(&opts.Prices, "price", nil, "row=price (\"-\" clears); repeatable")
	cmd.Flags().StringArrayVar(&opts.Makes, "make", nil, "row=make; repeatable")

	return cmd
}

func splitPair(flag, s string) (string, string, error) {
	k, v, ok := strings.Cut(s, "=")
	if !ok || k == "" || v == "" {
		return "", "", NewExitError(ExitCommandError, fmt.Sprintf("invalid --%s %q: want row=value", flag, s))
	}
	return k, v, nil
}

func runQuotesSubmit(opts *QuotesOptions, request, vendor string, cmd *cobra.Command) error {
	d, st, err := opts.openDesk(cmd)
	if err != nil {
		return err
	}
	defer closeStore(st)
	f := opts.formatter(cmd)

	s, err := d.OpenQuotes(cmd.Context(), ledger.RequestID(request), ledger.VendorID(vendor))
	if err != nil {
		return f.Fail(ExitCommandError, "failed to open quotation rows", err, nil)
	}
	f.VerboseLog("loaded %d row(s)", len(s.Rows()))

	for _, p := range opts.Prices {
		row, raw, err := splitPair("price", p)
		if err != nil {
			return err
		}
		price, err := parsePrice(raw)
		if err != nil {
			return err
		}
		if err := s.SetPrice(row, price); err != nil {
			return f.Fail(ExitCommandError, "failed to set price", err, nil)
		}
	}
	for _, m := range opts.Makes {
		row, name, err := splitPair("make", m)
		if err != nil {
			return err
		}
		if err := s.SetMake(row, name); err != nil {
			return f.Fail(ExitCommandError, "failed to set make", err, nil)
		}
	}
	if opts.LeadTime > 0 {
		s.SetLeadTime(opts.LeadTime)
	}

	report, err := s.Submit(cmd.Context())
	if err != nil && len(report.Results) == 0 {
		details := map[string]any{}
		if b := s.Blocking(); len(b) > 0 {
			details["blocking"] = b
		}
		code := ExitFailure
		if errors.Is(err, quoteedit.ErrNoLeadTime) {
			code = ExitCommandError
		}
		return f.Fail(code, "quotes not saved", err, details)
	}

	result := SubmitResult{
		Request:   request,
		Vendor:    vendor,
		Batches:   report.Batches,
		Updated:   nonNil(report.Succeeded()),
		Failed:    report.Failed(),
		NotIssued: report.NotIssued(),
		Summary:   report.Summary(),
	}
	if err != nil || !report.OK() {
		if err == nil {
			err = fmt.Errorf("%s", report.Summary())
		}
		return f.Fail(ExitFailure, "quotes partly saved", err, result)
	}
	return f.Success(result)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
