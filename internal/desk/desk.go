// Package desk wires the store, configuration and domain components into the
// operations the CLI and scenario runner perform on a site's documents.
package desk

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/roach88/quotedesk/internal/batch"
	"github.com/roach88/quotedesk/internal/config"
	"github.com/roach88/quotedesk/internal/debounce"
	"github.com/roach88/quotedesk/internal/ledger"
	"github.com/roach88/quotedesk/internal/money"
	"github.com/roach88/quotedesk/internal/queryir"
	"github.com/roach88/quotedesk/internal/quoteedit"
	"github.com/roach88/quotedesk/internal/reconcile"
	"github.com/roach88/quotedesk/internal/store"
)

// Desk is the application service over one store.
//
// Thread-safety: Desk holds no mutable state of its own; the components it
// returns document their own guarantees.
type Desk struct {
	store  *store.Store
	cfg    config.Config
	clock  debounce.Clock
	logger *slog.Logger
	calc   *money.Calculator
}

// Option configures a Desk.
type Option func(*Desk)

// WithClock sets the clock used by debounced guards.
func WithClock(c debounce.Clock) Option {
	return func(d *Desk) { d.clock = c }
}

// WithLogger sets the logger passed to components.
func WithLogger(l *slog.Logger) Option {
	return func(d *Desk) { d.logger = l }
}

// New creates a desk over st.
func New(st *store.Store, cfg config.Config, opts ...Option) *Desk {
	d := &Desk{
		store:  st,
		cfg:    cfg,
		clock:  debounce.SystemClock{},
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		calc:   money.NewCalculator(cfg.ServiceTax()),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Store returns the underlying store.
func (d *Desk) Store() *store.Store {
	return d.store
}

// Calculator returns the money calculator configured with the service tax.
func (d *Desk) Calculator() *money.Calculator {
	return d.calc
}

// OpenRequest loads a sent-back request and starts its edit session. The
// store is both the durable draft backend and the persister.
func (d *Desk) OpenRequest(ctx context.Context, id ledger.RequestID) (*reconcile.Engine, error) {
	sb, err := d.store.GetSentBack(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("open request: %w", err)
	}
	return reconcile.Open(ctx, sb, d.store, d.store,
		reconcile.WithLogger(d.logger),
		reconcile.WithKeyPrefix(d.cfg.DraftKeyPrefix),
	), nil
}

// Vendors returns the vendor documents with the given ids, in argument order.
func (d *Desk) Vendors(ctx context.Context, ids ...string) ([]ledger.Vendor, error) {
	found, err := d.store.FindVendors(ctx, queryir.In{Field: "id", Values: queryir.Strings(ids...)})
	if err != nil {
		return nil, err
	}
	byID := make(map[ledger.VendorID]ledger.Vendor, len(found))
	for _, v := range found {
		byID[v.ID] = v
	}
	out := make([]ledger.Vendor, 0, len(ids))
	for _, id := range ids {
		v, ok := byID[ledger.VendorID(id)]
		if !ok {
			return nil, fmt.Errorf("vendor %s: %w", id, store.ErrNotFound)
		}
		out = append(out, v)
	}
	return out, nil
}

// OpenQuotes starts a quote edit session over one vendor's quotation rows
// for a request. Mandatory makes follow the request's declared categories.
func (d *Desk) OpenQuotes(ctx context.Context, request ledger.RequestID, vendor ledger.VendorID, opts ...batch.Option) (*quoteedit.Session, error) {
	sb, err := d.store.GetSentBack(ctx, request)
	if err != nil {
		return nil, fmt.Errorf("open quotes: %w", err)
	}
	rows, err := d.store.FindQuotations(ctx, queryir.And{Predicates: []queryir.Predicate{
		queryir.Equals{Field: "procurement_task", Value: queryir.String(sb.ProcurementRequest)},
		queryir.Equals{Field: "vendor", Value: queryir.String(string(vendor))},
	}})
	if err != nil {
		return nil, fmt.Errorf("open quotes: %w", err)
	}
	base := []batch.Option{
		batch.WithSize(d.cfg.BatchSize),
		batch.WithLogger(d.logger.With("request_id", string(request), "vendor_id", string(vendor))),
	}
	coord := batch.New(d.store, append(base, opts...)...)
	return quoteedit.NewSession(rows, sb.CategoryNames(), coord), nil
}

// Document loads an order and the payments booked against it.
func (d *Desk) Document(ctx context.Context, id string) (ledger.Order, []ledger.Payment, error) {
	o, err := d.store.GetOrder(ctx, id)
	if err != nil {
		return ledger.Order{}, nil, fmt.Errorf("load document: %w", err)
	}
	pays, err := d.store.FindPayments(ctx, queryir.Equals{Field: "document_name", Value: queryir.String(id)})
	if err != nil {
		return ledger.Order{}, nil, fmt.Errorf("load document: %w", err)
	}
	return o, pays, nil
}

// CheckAmount summarizes a document and checks an entered amount against it.
func (d *Desk) CheckAmount(ctx context.Context, id string, amount decimal.Decimal) (money.Summary, *money.ValidationWarning, error) {
	o, pays, err := d.Document(ctx, id)
	if err != nil {
		return money.Summary{}, nil, err
	}
	return d.calc.Summarize(o, pays), d.calc.CheckAmount(o, pays, amount), nil
}

// NewGuard returns a debounced amount guard on the desk's clock.
func (d *Desk) NewGuard(onResult func(*money.ValidationWarning)) *money.Guard {
	return money.NewGuard(d.calc, d.clock, d.cfg.Debounce(), onResult)
}
