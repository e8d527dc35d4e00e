// Package quoteedit is the per-vendor quotation editing flow: a vendor's
// rows of one request are edited locally, gated by the mandatory-make rule
// and written back in batches.
package quoteedit

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/roach88/quotedesk/internal/batch"
	"github.com/roach88/quotedesk/internal/ledger"
	"github.com/roach88/quotedesk/internal/makes"
)

var (
	// ErrUnknownRow is returned for a row id outside the session.
	ErrUnknownRow = errors.New("unknown quotation row")
	// ErrNoLeadTime is returned by Submit when no positive lead time is set.
	ErrNoLeadTime = errors.New("lead time is required")
	// ErrSaveBlocked is returned by Submit when a touched mandatory-make row
	// is not fully resolved.
	ErrSaveBlocked = errors.New("mandatory make rows are incomplete")
	// ErrNothingPending is returned by Submit when no row was touched.
	ErrNothingPending = errors.New("nothing to save")
)

// Session edits one vendor's quotation rows.
//
// Thread-safety: all methods are safe for concurrent use. Submit holds no
// lock while the coordinator writes.
type Session struct {
	mu       sync.Mutex
	rows     []ledger.QuotationRow
	index    map[string]int
	resolver *makes.Resolver
	coord    *batch.Coordinator
	leadTime int
	pending  map[string]makes.Pending
}

// NewSession creates a session over rows. categories are the request's
// declared category names. The initial lead time is the first row's.
func NewSession(rows []ledger.QuotationRow, categories []string, coord *batch.Coordinator) *Session {
	s := &Session{
		rows:     make([]ledger.QuotationRow, len(rows)),
		index:    make(map[string]int, len(rows)),
		resolver: makes.NewResolver(categories),
		coord:    coord,
		pending:  make(map[string]makes.Pending),
	}
	copy(s.rows, rows)
	for i, r := range s.rows {
		s.rows[i].Makes = r.Makes.Clone()
		s.index[r.ID] = i
	}
	if len(rows) > 0 {
		s.leadTime = rows[0].LeadTime
	}
	return s
}

func (s *Session) rowLocked(id string) (ledger.QuotationRow, error) {
	i, ok := s.index[id]
	if !ok {
		return ledger.QuotationRow{}, fmt.Errorf("%s: %w", id, ErrUnknownRow)
	}
	return s.rows[i], nil
}

// SetPrice records a price for row. A nil price clears it.
func (s *Session) SetPrice(row string, price *decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.rowLocked(row); err != nil {
		return fmt.Errorf("set price: %w", err)
	}
	p := s.pending[row]
	p.PriceSet = true
	p.Price = nil
	if price != nil {
		v := *price
		p.Price = &v
	}
	s.pending[row] = p
	return nil
}

// SetMake makes name the single enabled make of row.
func (s *Session) SetMake(row, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, err := s.rowLocked(row)
	if err != nil {
		return fmt.Errorf("set make: %w", err)
	}
	p := s.pending[row]
	list, err := p.EffectiveMakes(r).Select(name)
	if err != nil {
		return fmt.Errorf("set make %s: %w", row, err)
	}
	p.Makes = list
	p.MakesSet = true
	s.pending[row] = p
	return nil
}

// AddMakes appends disabled user makes to row's list, skipping names
// already present.
func (s *Session) AddMakes(row string, names ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, err := s.rowLocked(row)
	if err != nil {
		return fmt.Errorf("add makes: %w", err)
	}
	p := s.pending[row]
	current := p.EffectiveMakes(r)
	list := current.Add(names...)
	if len(list) == len(current) {
		return nil
	}
	p.Makes = list
	p.MakesSet = true
	s.pending[row] = p
	return nil
}

// SetLeadTime sets the lead time in days. A change pulls every row into the
// pending set, carrying its ledger price when its price was not touched.
func (s *Session) SetLeadTime(days int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if days == s.leadTime {
		return
	}
	s.leadTime = days
	for _, r := range s.rows {
		p := s.pending[r.ID]
		if !p.PriceSet {
			p.PriceSet = true
			p.Price = r.Quote
			if r.Quote != nil {
				v := *r.Quote
				p.Price = &v
			}
		}
		s.pending[r.ID] = p
	}
}

// LeadTime returns the current lead time.
func (s *Session) LeadTime() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.leadTime
}

// Mandatory reports whether row requires an explicit make.
func (s *Session) Mandatory(row string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, err := s.rowLocked(row)
	if err != nil {
		return false, err
	}
	return s.resolver.Mandatory(r.Category, r.Makes), nil
}

// SaveEnabled reports whether the pending edits may be submitted.
func (s *Session) SaveEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.leadTime > 0 && s.resolver.SaveEnabled(s.rows, s.pending)
}

// Blocking returns the touched mandatory rows that are not resolved.
func (s *Session) Blocking() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resolver.Blocking(s.rows, s.pending)
}

// Updates returns the pending patches in row order.
func (s *Session) Updates() []batch.Update {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updatesLocked()
}

func (s *Session) updatesLocked() []batch.Update {
	ids := make([]string, 0, len(s.pending))
	for id := range s.pending {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return s.index[ids[i]] < s.index[ids[j]] })

	out := make([]batch.Update, 0, len(ids))
	for _, id := range ids {
		p := s.pending[id]
		out = append(out, batch.Update{
			Row: id,
			Patch: ledger.QuotationPatch{
				LeadTime: s.leadTime,
				Quote:    p.Price,
				QuoteSet: p.PriceSet,
				Makes:    p.Makes,
				MakesSet: p.MakesSet,
			},
		})
	}
	return out
}

// Rows returns the rows with pending edits applied.
func (s *Session) Rows() []ledger.QuotationRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ledger.QuotationRow, len(s.rows))
	for i, r := range s.rows {
		out[i] = applyPending(r, s.pending[r.ID], s.leadTime)
	}
	return out
}

func applyPending(r ledger.QuotationRow, p makes.Pending, leadTime int) ledger.QuotationRow {
	out := r
	out.Makes = r.Makes.Clone()
	out.LeadTime = leadTime
	if p.PriceSet {
		out.Quote = ledger.QuotationPatch{Quote: p.Price}.QuoteValue()
	}
	if p.MakesSet {
		out.Makes = p.Makes.Clone()
	}
	return out
}

// Submit writes the pending edits through the coordinator. Rows written
// successfully leave the pending set and become the new ledger state; failed
// and unsent rows stay pending for another attempt.
func (s *Session) Submit(ctx context.Context) (batch.Report, error) {
	s.mu.Lock()
	switch {
	case s.leadTime <= 0:
		s.mu.Unlock()
		return batch.Report{}, ErrNoLeadTime
	case len(s.pending) == 0:
		s.mu.Unlock()
		return batch.Report{}, ErrNothingPending
	case !s.resolver.SaveEnabled(s.rows, s.pending):
		blocking := s.resolver.Blocking(s.rows, s.pending)
		s.mu.Unlock()
		return batch.Report{}, fmt.Errorf("%w: %v", ErrSaveBlocked, blocking)
	}
	updates := s.updatesLocked()
	s.mu.Unlock()

	report, err := s.coord.Submit(ctx, updates)

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, res := range report.Results {
		if res.Outcome != batch.OutcomeSucceeded && res.Outcome != batch.OutcomeSkipped {
			continue
		}
		i := s.index[res.Row]
		s.rows[i] = applyPending(s.rows[i], s.pending[res.Row], s.leadTime)
		delete(s.pending, res.Row)
	}
	return report, err
}
