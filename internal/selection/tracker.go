// Package selection tracks the winning vendor chosen for each item of a
// sent-back request.
package selection

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/roach88/quotedesk/internal/draft"
	"github.com/roach88/quotedesk/internal/ledger"
)

var (
	// ErrNotViewMode is returned when selecting outside view mode.
	ErrNotViewMode = errors.New("selection requires view mode")
	// ErrUnpriced is returned when the chosen cell has no positive price.
	ErrUnpriced = errors.New("quote has no positive price")
)

// Tracker maps each item to at most one winning vendor.
//
// Draft events arrive after the store released its lock, so the tracker may
// read the draft while holding its own lock.
type Tracker struct {
	mu      sync.Mutex
	mode    func() ledger.Mode
	draft   *draft.Store
	order   []ledger.ItemID
	known   map[ledger.ItemID]struct{}
	winners map[ledger.ItemID]ledger.VendorID
}

// New creates a tracker over items, hydrating winners from items that
// already carry a vendor. A loaded winner is kept only while its vendor is
// selected in the draft and the draft prices that cell. The tracker subscribes to the draft's events.
func New(d *draft.Store, items []ledger.Item, mode func() ledger.Mode) *Tracker {
	t := &Tracker{
		mode:    mode,
		draft:   d,
		known:   make(map[ledger.ItemID]struct{}, len(items)),
		winners: make(map[ledger.ItemID]ledger.VendorID),
	}
	snap := d.Snapshot()
	for _, it := range items {
		t.addLocked(it.ID)
		if !it.Resolved() || !snap.HasVendor(it.Vendor) {
			continue
		}
		if q, ok := snap.Quote(it.ID, it.Vendor); ok && q.Priced() {
			t.winners[it.ID] = it.Vendor
		}
	}
	d.Subscribe(t.onDraftEvent)
	return t
}

func (t *Tracker) addLocked(id ledger.ItemID) {
	if _, ok := t.known[id]; ok {
		return
	}
	t.known[id] = struct{}{}
	t.order = append(t.order, id)
}

// AddItem registers an item that may receive a selection.
func (t *Tracker) AddItem(id ledger.ItemID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.addLocked(id)
}

// Select records vendor as the winner for item, replacing any previous one.
func (t *Tracker) Select(item ledger.ItemID, vendor ledger.VendorID) error {
	if m := t.mode(); m != ledger.ModeView {
		return fmt.Errorf("select %s: %w (mode=%s)", item, ErrNotViewMode, m)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.draft.HasVendor(vendor) {
		return fmt.Errorf("select %s: %s: %w", item, vendor, draft.ErrUnknownVendor)
	}
	if _, ok := t.known[item]; !ok {
		return fmt.Errorf("select %s: %w", item, draft.ErrUnknownItem)
	}
	if q, _ := t.draft.Quote(item, vendor); !q.Priced() {
		return fmt.Errorf("select %s/%s: %w", item, vendor, ErrUnpriced)
	}
	t.winners[item] = vendor
	return nil
}

// Deselect removes the winner of item, if any.
func (t *Tracker) Deselect(item ledger.ItemID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.winners, item)
}

// Winner returns the selected vendor for item.
func (t *Tracker) Winner(item ledger.ItemID) (ledger.VendorID, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	v, ok := t.winners[item]
	return v, ok
}

// IsComplete reports whether every known item has a winner.
func (t *Tracker) IsComplete() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.winners) == len(t.order)
}

// Missing returns the items without a winner, in registration order.
func (t *Tracker) Missing() []ledger.ItemID {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []ledger.ItemID
	for _, id := range t.order {
		if _, ok := t.winners[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}

// Snapshot returns a copy of the selection map.
func (t *Tracker) Snapshot() map[ledger.ItemID]ledger.VendorID {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[ledger.ItemID]ledger.VendorID, len(t.winners))
	for k, v := range t.winners {
		out[k] = v
	}
	return out
}

// Pairs returns the selection as item/vendor pairs sorted by item.
func (t *Tracker) Pairs() [][2]string {
	snap := t.Snapshot()
	out := make([][2]string, 0, len(snap))
	for item, vendor := range snap {
		out = append(out, [2]string{string(item), string(vendor)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i][0] < out[j][0] })
	return out
}

// Clear drops every selection.
func (t *Tracker) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.winners = make(map[ledger.ItemID]ledger.VendorID)
}

func (t *Tracker) onDraftEvent(ev draft.Event) {
	switch ev.Kind {
	case draft.EventVendorRemoved:
		t.mu.Lock()
		for item, v := range t.winners {
			if v == ev.Vendor {
				delete(t.winners, item)
			}
		}
		t.mu.Unlock()
	case draft.EventQuoteCleared:
		t.mu.Lock()
		if t.winners[ev.Item] == ev.Vendor {
			delete(t.winners, ev.Item)
		}
		t.mu.Unlock()
	case draft.EventHydrated:
		snap := t.draft.Snapshot()
		t.mu.Lock()
		for item, v := range t.winners {
			if !snap.HasVendor(v) {
				delete(t.winners, item)
			}
		}
		t.mu.Unlock()
	}
}
