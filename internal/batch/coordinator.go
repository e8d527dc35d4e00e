// Package batch writes many quotation row patches in bounded concurrent
// batches and reports every row's outcome.
package batch

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/quotedesk/internal/ledger"
)

// DefaultSize is the number of updates issued concurrently per batch.
const DefaultSize = 10

// Update is one row's pending patch.
type Update struct {
	Row   string
	Patch ledger.QuotationPatch
}

// Writer applies a partial update to one quotation row.
type Writer interface {
	UpdateQuotation(ctx context.Context, id string, patch ledger.QuotationPatch) error
}

// Outcome is the fate of one update.
type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed"
	// OutcomeNotIssued marks updates of batches after a failed one.
	OutcomeNotIssued Outcome = "not_issued"
	// OutcomeSkipped marks updates that touched nothing.
	OutcomeSkipped Outcome = "skipped"
)

// Result is the outcome of one update.
type Result struct {
	Row     string
	Batch   int
	Shape   ledger.PatchShape
	Outcome Outcome
	Err     error
}

// Report is the consolidated outcome of one Submit.
type Report struct {
	Results    []Result
	Batches    int
	Issued     int
	RefreshErr error
}

func (r Report) rows(o Outcome) []string {
	var out []string
	for _, res := range r.Results {
		if res.Outcome == o {
			out = append(out, res.Row)
		}
	}
	return out
}

// Succeeded returns the rows written successfully, in input order.
func (r Report) Succeeded() []string { return r.rows(OutcomeSucceeded) }

// Failed returns the rows whose write failed.
func (r Report) Failed() []string { return r.rows(OutcomeFailed) }

// NotIssued returns the rows that were never sent.
func (r Report) NotIssued() []string { return r.rows(OutcomeNotIssued) }

// OK reports whether every non-skipped update succeeded.
func (r Report) OK() bool {
	return len(r.Failed()) == 0 && len(r.NotIssued()) == 0
}

// Summary is the single user-facing notification text.
func (r Report) Summary() string {
	ok, failed, notIssued := len(r.Succeeded()), len(r.Failed()), len(r.NotIssued())
	if failed == 0 && notIssued == 0 {
		return fmt.Sprintf("updated %d quotation(s)", ok)
	}
	return fmt.Sprintf("updated %d quotation(s), %d failed, %d not sent", ok, failed, notIssued)
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithSize sets the batch size.
func WithSize(n int) Option {
	return func(c *Coordinator) {
		if n > 0 {
			c.size = n
		}
	}
}

// WithRefresh sets the function called once after all batches settle.
func WithRefresh(f func(context.Context) error) Option {
	return func(c *Coordinator) { c.refresh = f }
}

// WithNotify sets the function that receives the consolidated report.
func WithNotify(f func(Report)) Option {
	return func(c *Coordinator) { c.notify = f }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Coordinator) {
		if l != nil {
			c.logger = l
		}
	}
}

// Coordinator issues updates batch by batch.
//
// Within a batch all updates run concurrently; batch N+1 is issued only
// after batch N settled. A failure in a batch lets its in-flight siblings
// finish and be reported, then stops: later batches are not issued. There
// is no automatic retry and no cancellation of in-flight writes.
type Coordinator struct {
	writer  Writer
	size    int
	refresh func(context.Context) error
	notify  func(Report)
	logger  *slog.Logger
}

// New creates a coordinator writing through w.
func New(w Writer, opts ...Option) *Coordinator {
	c := &Coordinator{
		writer: w,
		size:   DefaultSize,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Partition splits updates into consecutive batches of at most size.
func Partition(updates []Update, size int) [][]Update {
	if size <= 0 {
		size = DefaultSize
	}
	var out [][]Update
	for start := 0; start < len(updates); start += size {
		end := min(start+size, len(updates))
		out = append(out, updates[start:end])
	}
	return out
}

// Submit writes updates and returns the consolidated report. The error is
// non-nil when any update failed; the report is always complete.
func (c *Coordinator) Submit(ctx context.Context, updates []Update) (Report, error) {
	var report Report
	var sendable []Update
	for _, u := range updates {
		if u.Patch.Shape() == ledger.PatchEmpty {
			report.Results = append(report.Results, Result{Row: u.Row, Batch: -1, Outcome: OutcomeSkipped})
			continue
		}
		sendable = append(sendable, u)
	}

	batches := Partition(sendable, c.size)
	report.Batches = len(batches)

	var firstErr error
	for i, b := range batches {
		if firstErr != nil {
			for _, u := range b {
				report.Results = append(report.Results, Result{
					Row: u.Row, Batch: i, Shape: u.Patch.Shape(), Outcome: OutcomeNotIssued,
				})
			}
			continue
		}
		results, err := c.runBatch(ctx, i, b)
		report.Issued++
		report.Results = append(report.Results, results...)
		if err != nil {
			firstErr = err
			c.logger.Warn("batch failed, aborting remaining batches",
				"batch", i, "remaining", len(batches)-i-1, "error", err)
		}
	}

	if c.refresh != nil && report.Issued > 0 {
		if err := c.refresh(ctx); err != nil {
			report.RefreshErr = err
			c.logger.Warn("refresh after batch submit failed", "error", err)
		}
	}
	if c.notify != nil {
		c.notify(report)
	}
	if firstErr != nil {
		return report, fmt.Errorf("submit quotations: %w", firstErr)
	}
	return report, nil
}

func (c *Coordinator) runBatch(ctx context.Context, index int, b []Update) ([]Result, error) {
	results := make([]Result, len(b))

	// A Group without a context: one failure does not cancel its siblings,
	// and Wait still returns after every write settled.
	var g errgroup.Group
	for j, u := range b {
		g.Go(func() error {
			res := Result{Row: u.Row, Batch: index, Shape: u.Patch.Shape(), Outcome: OutcomeSucceeded}
			err := c.writer.UpdateQuotation(ctx, u.Row, u.Patch)
			if err != nil {
				res.Outcome = OutcomeFailed
				res.Err = err
				err = fmt.Errorf("row %s: %w", u.Row, err)
			}
			results[j] = res
			return err
		})
	}
	err := g.Wait()
	c.logger.Debug("batch settled", "batch", index, "size", len(b), "ok", err == nil)
	return results, err
}
