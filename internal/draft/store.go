package draft

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/roach88/quotedesk/internal/ledger"
)

var (
	// ErrUnknownItem is returned when an item has no entry in the draft.
	ErrUnknownItem = errors.New("item not in draft")
	// ErrUnknownVendor is returned when a vendor is not in the selected set.
	ErrUnknownVendor = errors.New("vendor not selected")
)

// EventKind identifies a draft change other components react to.
type EventKind int

const (
	// EventVendorRemoved fires after a vendor and its quotes were purged.
	EventVendorRemoved EventKind = iota + 1
	// EventQuoteCleared fires when a cell lost its positive price.
	EventQuoteCleared
	// EventHydrated fires when the draft was replaced by a persisted snapshot.
	EventHydrated
)

// Event describes one draft change.
type Event struct {
	Kind   EventKind
	Item   ledger.ItemID
	Vendor ledger.VendorID
}

// Listener receives draft events.
type Listener func(Event)

// Store holds one request's RFQ draft.
//
// Thread-safety: all methods are safe for concurrent use. Mutations are
// serialized by the store mutex, including the write-through.
type Store struct {
	mu        sync.Mutex
	key       string
	kv        KV
	logger    *slog.Logger
	rfq       ledger.RFQ
	listeners []Listener
	saveErr   error
}

// Open creates a store for key, loading any previously saved draft.
func Open(ctx context.Context, kv KV, key string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = discardLogger()
	}
	return &Store{
		key:    key,
		kv:     kv,
		logger: logger,
		rfq:    Load(ctx, kv, key, logger),
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Key returns the durable key of this draft.
func (s *Store) Key() string {
	return s.key
}

// Subscribe registers a listener for draft events.
func (s *Store) Subscribe(l Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

// Snapshot returns a deep copy of the current draft.
func (s *Store) Snapshot() ledger.RFQ {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rfq.Clone()
}

// Quote returns the draft quote for one cell.
func (s *Store) Quote(item ledger.ItemID, vendor ledger.VendorID) (ledger.Quote, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rfq.Quote(item, vendor)
}

// HasVendor reports whether the vendor is selected.
func (s *Store) HasVendor(vendor ledger.VendorID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rfq.HasVendor(vendor)
}

// LastSaveError returns the most recent write-through failure, or nil once a
// later save succeeded.
func (s *Store) LastSaveError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveErr
}

// Serialize returns the canonical JSON form of the draft.
func (s *Store) Serialize() ([]byte, error) {
	return ledger.MarshalCanonical(s.Snapshot())
}

// Differs reports whether the draft content differs from a persisted snapshot.
func (s *Store) Differs(persisted ledger.RFQ) (bool, error) {
	current, err := ledger.Fingerprint(s.Snapshot())
	if err != nil {
		return false, err
	}
	other, err := ledger.Fingerprint(persisted)
	if err != nil {
		return false, err
	}
	return current != other, nil
}

// Hydrate replaces an empty draft with a persisted snapshot.
// A draft that already has item details wins; Hydrate then returns false.
func (s *Store) Hydrate(ctx context.Context, snapshot ledger.RFQ) bool {
	applied := false
	s.mutate(ctx, func(cur ledger.RFQ) (ledger.RFQ, []Event, error) {
		if !cur.IsEmpty() || snapshot.IsEmpty() {
			return cur, nil, errNoChange
		}
		applied = true
		return snapshot.Clone(), []Event{{Kind: EventHydrated}}, nil
	})
	return applied
}

// Seed adds an empty entry for every item missing from the draft. Each new
// entry starts with its category's makes (or the item's own list when the
// category declares none), all marked as defaults.
func (s *Store) Seed(ctx context.Context, items []ledger.Item, categories []ledger.Category) int {
	byName := make(map[string]ledger.Category, len(categories))
	for _, c := range categories {
		byName[c.Name] = c
	}
	added := 0
	s.mutate(ctx, func(cur ledger.RFQ) (ledger.RFQ, []Event, error) {
		next := cur.Clone()
		for _, it := range items {
			if _, ok := next.Details[it.ID]; ok {
				continue
			}
			makes := it.Makes
			if c, ok := byName[it.Category]; ok && len(c.Makes) > 0 {
				makes = c.Makes
			}
			next.Details[it.ID] = ledger.ItemQuotes{
				VendorQuotes: map[ledger.VendorID]ledger.Quote{},
				Makes:        makes.AsDefaults(),
			}
			added++
		}
		if added == 0 {
			return cur, nil, errNoChange
		}
		return next, nil, nil
	})
	return added
}

// AddVendors appends vendors that are not selected yet and returns how many
// were added.
func (s *Store) AddVendors(ctx context.Context, vendors ...ledger.Vendor) int {
	added := 0
	s.mutate(ctx, func(cur ledger.RFQ) (ledger.RFQ, []Event, error) {
		next := cur.Clone()
		for _, v := range vendors {
			if v.ID == "" || next.HasVendor(v.ID) {
				continue
			}
			next.SelectedVendors = append(next.SelectedVendors, v)
			added++
		}
		if added == 0 {
			return cur, nil, errNoChange
		}
		return next, nil, nil
	})
	return added
}

// RemoveVendor drops a vendor from the selected set and purges its quotes
// from every item.
func (s *Store) RemoveVendor(ctx context.Context, vendor ledger.VendorID) error {
	return s.mutate(ctx, func(cur ledger.RFQ) (ledger.RFQ, []Event, error) {
		if !cur.HasVendor(vendor) {
			return cur, nil, fmt.Errorf("remove vendor %s: %w", vendor, ErrUnknownVendor)
		}
		next := cur.Clone()
		kept := next.SelectedVendors[:0]
		for _, v := range next.SelectedVendors {
			if v.ID != vendor {
				kept = append(kept, v)
			}
		}
		next.SelectedVendors = kept
		for id, d := range next.Details {
			delete(d.VendorQuotes, vendor)
			next.Details[id] = d
		}
		return next, []Event{{Kind: EventVendorRemoved, Vendor: vendor}}, nil
	})
}

// SetQuote records a price for one cell. A nil or non-positive price leaves
// the cell unpriced and emits EventQuoteCleared.
func (s *Store) SetQuote(ctx context.Context, item ledger.ItemID, vendor ledger.VendorID, price *decimal.Decimal) error {
	return s.mutate(ctx, func(cur ledger.RFQ) (ledger.RFQ, []Event, error) {
		if err := checkCell(cur, item, vendor); err != nil {
			return cur, nil, fmt.Errorf("set quote: %w", err)
		}
		next := cur.Clone()
		d := next.Details[item]
		q := d.VendorQuotes[vendor]
		q.Price = nil
		if price != nil {
			p := *price
			q.Price = &p
		}
		d.VendorQuotes[vendor] = q
		next.Details[item] = d

		var events []Event
		if !q.Priced() {
			events = append(events, Event{Kind: EventQuoteCleared, Item: item, Vendor: vendor})
		}
		return next, events, nil
	})
}

// SetMake records a vendor's make for one item and rewrites the item's draft
// make list so that make is the single enabled entry.
func (s *Store) SetMake(ctx context.Context, item ledger.ItemID, vendor ledger.VendorID, name string) error {
	return s.mutate(ctx, func(cur ledger.RFQ) (ledger.RFQ, []Event, error) {
		if err := checkCell(cur, item, vendor); err != nil {
			return cur, nil, fmt.Errorf("set make: %w", err)
		}
		next := cur.Clone()
		d := next.Details[item]
		makes, err := d.Makes.Select(name)
		if err != nil {
			return cur, nil, fmt.Errorf("set make: %w", err)
		}
		chosen, _ := makes.Enabled()
		d.Makes = makes
		q := d.VendorQuotes[vendor]
		q.Make = chosen.Make
		d.VendorQuotes[vendor] = q
		next.Details[item] = d
		return next, nil, nil
	})
}

// Clear removes the durable copy of the draft. The in-memory draft is kept.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.kv.ClearDraft(ctx, s.key); err != nil {
		return fmt.Errorf("clear draft %s: %w", s.key, err)
	}
	return nil
}

func checkCell(r ledger.RFQ, item ledger.ItemID, vendor ledger.VendorID) error {
	if _, ok := r.Details[item]; !ok {
		return fmt.Errorf("%s: %w", item, ErrUnknownItem)
	}
	if !r.HasVendor(vendor) {
		return fmt.Errorf("%s: %w", vendor, ErrUnknownVendor)
	}
	return nil
}

// errNoChange tells mutate to skip the swap and the write-through.
var errNoChange = errors.New("no change")

// mutate applies fn to the current snapshot, swaps in the result, writes it
// through, then notifies listeners. fn must not modify cur.
func (s *Store) mutate(ctx context.Context, fn func(cur ledger.RFQ) (ledger.RFQ, []Event, error)) error {
	s.mu.Lock()
	next, events, err := fn(s.rfq)
	if err != nil {
		s.mu.Unlock()
		if errors.Is(err, errNoChange) {
			return nil
		}
		return err
	}
	s.rfq = next
	s.persistLocked(ctx)
	listeners := make([]Listener, len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.Unlock()

	for _, ev := range events {
		for _, l := range listeners {
			l(ev)
		}
	}
	return nil
}

// persistLocked writes the current snapshot through. Failures are logged and
// kept for LastSaveError; the in-memory draft stays authoritative.
func (s *Store) persistLocked(ctx context.Context) {
	if err := Save(ctx, s.kv, s.key, s.rfq); err != nil {
		s.saveErr = err
		s.logger.Warn("draft write-through failed", "key", s.key, "error", err)
		return
	}
	s.saveErr = nil
}
