package reconcile

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/shopspring/decimal"

	"github.com/roach88/quotedesk/internal/draft"
	"github.com/roach88/quotedesk/internal/ledger"
	"github.com/roach88/quotedesk/internal/selection"
	"github.com/roach88/quotedesk/internal/store"
)

// Persister writes reconciled request state. *store.Store implements it.
type Persister interface {
	UpdateSentBack(ctx context.Context, id ledger.RequestID, u store.SentBackUpdate) (int64, error)
}

var _ Persister = (*store.Store)(nil)

// Engine is the mode state machine of one sent-back request.
//
// Thread-safety: all methods are safe for concurrent use. Transitions hold
// the engine lock for their whole duration, so edits wait for an in-flight
// write to settle.
type Engine struct {
	mu        sync.Mutex
	mode      atomic.Value // ledger.Mode
	request   ledger.SentBack
	persisted ledger.RFQ
	draft     *draft.Store
	tracker   *selection.Tracker
	persister Persister
	logger    *slog.Logger
}

// Option configures an Engine.
type Option func(*options)

type options struct {
	logger    *slog.Logger
	keyPrefix string
}

// WithLogger sets the engine logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithKeyPrefix sets the durable draft key prefix.
func WithKeyPrefix(p string) Option {
	return func(o *options) { o.keyPrefix = p }
}

// Open starts an edit session for a request.
//
// The durable draft under the request's key is loaded. When it is empty it is
// hydrated from the request's persisted RFQ snapshot. Every item is then seeded
// with its default makes, and winners are hydrated from items that already
// carry a vendor. A request already submitted for review opens committed.
func Open(ctx context.Context, sb ledger.SentBack, kv draft.KV, p Persister, opts ...Option) *Engine {
	o := options{keyPrefix: draft.DefaultKeyPrefix}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	logger := o.logger.With("request_id", string(sb.ID))

	e := &Engine{
		request: ledger.SentBack{
			ID:                 sb.ID,
			Project:            sb.Project,
			ProcurementRequest: sb.ProcurementRequest,
			WorkflowState:      sb.WorkflowState,
			Type:               sb.Type,
			Items:              ledger.CloneItems(sb.Items),
			Categories:         append([]ledger.Category(nil), sb.Categories...),
			Revision:           sb.Revision,
		},
		persisted: sb.RFQ.Clone(),
		persister: p,
		logger:    logger,
	}
	mode := ledger.ModeEdit
	if sb.WorkflowState == ledger.StateReviewing {
		mode = ledger.ModeCommitted
	}
	e.mode.Store(mode)

	e.draft = draft.Open(ctx, kv, draft.Key(o.keyPrefix, sb.ID), logger)
	if e.draft.Hydrate(ctx, sb.RFQ) {
		logger.Debug("draft hydrated from persisted snapshot")
	}
	if n := e.draft.Seed(ctx, sb.Items, sb.Categories); n > 0 {
		logger.Debug("draft seeded", "items", n)
	}
	e.tracker = selection.New(e.draft, sb.Items, e.Mode)
	return e
}

// Mode returns the current mode.
func (e *Engine) Mode() ledger.Mode {
	return e.mode.Load().(ledger.Mode)
}

// ID returns the request id.
func (e *Engine) ID() ledger.RequestID {
	return e.request.ID
}

// Items returns a copy of the current item list.
func (e *Engine) Items() []ledger.Item {
	e.mu.Lock()
	defer e.mu.Unlock()
	return ledger.CloneItems(e.request.Items)
}

// Revision returns the revision of the last persisted write.
func (e *Engine) Revision() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.request.Revision
}

// Persisted returns the last persisted RFQ snapshot.
func (e *Engine) Persisted() ledger.RFQ {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.persisted.Clone()
}

// Draft returns the request's draft store.
func (e *Engine) Draft() *draft.Store {
	return e.draft
}

// Tracker returns the request's selection tracker.
func (e *Engine) Tracker() *selection.Tracker {
	return e.tracker
}

// CanCommit reports whether review may be submitted.
func (e *Engine) CanCommit() bool {
	return e.Mode() == ledger.ModeView && e.tracker.IsComplete()
}

// Apply reconciles items against winners and the draft. The result is a new
// list; items is not modified. An item whose winner has no draft quote is
// kept as it is.
func Apply(items []ledger.Item, winners map[ledger.ItemID]ledger.VendorID, rfq ledger.RFQ) []ledger.Item {
	out := make([]ledger.Item, len(items))
	for i, it := range items {
		vendor, ok := winners[it.ID]
		if !ok {
			out[i] = it.Strip()
			continue
		}
		q, ok := rfq.Quote(it.ID, vendor)
		if !ok {
			out[i] = it.Clone()
			continue
		}
		out[i] = it.Award(vendor, q)
	}
	return out
}

// ToView checkpoints the draft and enters view mode. It reports whether a
// write was issued.
func (e *Engine) ToView(ctx context.Context) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	from := e.Mode()
	if from != ledger.ModeEdit {
		return false, newInvalidTransition(e.request.ID, from, ledger.ModeView)
	}

	differs, err := e.draft.Differs(e.persisted)
	if err != nil {
		return false, NewPersistenceError(e.request.ID, from, ledger.ModeView, fmt.Errorf("compare draft: %w", err))
	}
	if !differs {
		e.mode.Store(ledger.ModeView)
		e.logger.Debug("view without changes")
		return false, nil
	}

	snap := e.draft.Snapshot()
	items := Apply(e.request.Items, e.tracker.Snapshot(), snap)
	if err := e.persistLocked(ctx, items, snap, "", from, ledger.ModeView); err != nil {
		return false, err
	}
	e.mode.Store(ledger.ModeView)
	e.logger.Info("draft checkpointed", "revision", e.request.Revision)
	return true, nil
}

// ToEdit returns to edit mode. Nothing is written.
func (e *Engine) ToEdit() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	from := e.Mode()
	if from != ledger.ModeView {
		return newInvalidTransition(e.request.ID, from, ledger.ModeEdit)
	}
	e.mode.Store(ledger.ModeEdit)
	return nil
}

// Commit submits the request for approval. Every item needs a winner.
func (e *Engine) Commit(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	from := e.Mode()
	if from != ledger.ModeView {
		return newInvalidTransition(e.request.ID, from, ledger.ModeCommitted)
	}
	if missing := e.tracker.Missing(); len(missing) > 0 {
		return NewIncompleteSelectionError(e.request.ID, missing)
	}

	snap := e.draft.Snapshot()
	items := Apply(e.request.Items, e.tracker.Snapshot(), snap)
	if err := e.persistLocked(ctx, items, snap, ledger.StateReviewing, from, ledger.ModeCommitted); err != nil {
		return err
	}
	e.request.WorkflowState = ledger.StateReviewing
	e.mode.Store(ledger.ModeCommitted)

	// The request is already committed; a stale durable draft is rehydrated
	// harmlessly on the next open.
	if err := e.draft.Clear(ctx); err != nil {
		e.logger.Warn("clear draft after commit", "error", err)
	}
	e.logger.Info("request committed", "revision", e.request.Revision)
	return nil
}

func (e *Engine) persistLocked(ctx context.Context, items []ledger.Item, snap ledger.RFQ, state string, from, to ledger.Mode) error {
	rev, err := e.persister.UpdateSentBack(ctx, e.request.ID, store.SentBackUpdate{
		Items:          items,
		RFQ:            snap,
		WorkflowState:  state,
		ExpectRevision: e.request.Revision,
	})
	if err != nil {
		e.logger.Warn("persist request failed", "from", string(from), "to", string(to), "error", err)
		return NewPersistenceError(e.request.ID, from, to, err)
	}
	e.request.Items = items
	e.request.Revision = rev
	e.persisted = snap
	return nil
}

// AddVendors adds vendors to the draft and returns how many were new.
func (e *Engine) AddVendors(ctx context.Context, vendors ...ledger.Vendor) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireEdit("add vendors"); err != nil {
		return 0, err
	}
	return e.draft.AddVendors(ctx, vendors...), nil
}

// RemoveVendor drops a vendor from the draft, purging its quotes and winners,
// and strips in-memory items awarded to it.
func (e *Engine) RemoveVendor(ctx context.Context, vendor ledger.VendorID) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireEdit("remove vendor"); err != nil {
		return err
	}
	if err := e.draft.RemoveVendor(ctx, vendor); err != nil {
		return fmt.Errorf("remove vendor %s: %w", vendor, err)
	}
	items := ledger.CloneItems(e.request.Items)
	for i, it := range items {
		if it.Vendor == vendor {
			items[i] = it.Strip()
		}
	}
	e.request.Items = items
	e.logger.Debug("vendor removed", "vendor_id", string(vendor))
	return nil
}

// SetQuote sets the draft price of an item/vendor cell.
func (e *Engine) SetQuote(ctx context.Context, item ledger.ItemID, vendor ledger.VendorID, price *decimal.Decimal) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireEdit("set quote"); err != nil {
		return err
	}
	return e.draft.SetQuote(ctx, item, vendor, price)
}

// SetMake chooses the make of an item/vendor cell.
func (e *Engine) SetMake(ctx context.Context, item ledger.ItemID, vendor ledger.VendorID, name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireEdit("set make"); err != nil {
		return err
	}
	return e.draft.SetMake(ctx, item, vendor, name)
}

// Select records vendor as the winner of item. Only allowed in view mode.
func (e *Engine) Select(item ledger.ItemID, vendor ledger.VendorID) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tracker.Select(item, vendor)
}

func (e *Engine) requireEdit(op string) error {
	if m := e.Mode(); m != ledger.ModeEdit {
		return newWrongMode(e.request.ID, m, op)
	}
	return nil
}
