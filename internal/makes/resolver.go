// Package makes decides which quotation rows need an explicit make choice
// and whether a set of pending row edits may be saved.
package makes

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/roach88/quotedesk/internal/ledger"
)

// Pending is the set of in-session edits for one quotation row.
// A nil Price with PriceSet means the price was cleared.
type Pending struct {
	Price    *decimal.Decimal
	PriceSet bool
	Makes    ledger.MakeList
	MakesSet bool
}

// EffectivePrice returns the pending price when touched, else the ledger price.
func (p Pending) EffectivePrice(row ledger.QuotationRow) *decimal.Decimal {
	if p.PriceSet {
		return p.Price
	}
	return row.Quote
}

// EffectiveMakes returns the pending make list when touched, else the ledger list.
func (p Pending) EffectiveMakes(row ledger.QuotationRow) ledger.MakeList {
	if p.MakesSet {
		return p.Makes
	}
	return row.Makes
}

// Resolver classifies rows against a request's declared categories.
type Resolver struct {
	declared map[string]struct{}
}

// NewResolver creates a resolver for the given declared category names.
func NewResolver(categories []string) *Resolver {
	r := &Resolver{declared: make(map[string]struct{}, len(categories))}
	for _, c := range categories {
		r.declared[c] = struct{}{}
	}
	return r
}

// Mandatory reports whether a row with this category and make list must carry
// an explicit make before it counts as priced.
func (r *Resolver) Mandatory(category string, makes ledger.MakeList) bool {
	if _, ok := r.declared[category]; !ok {
		return false
	}
	return makes.AllDisabled()
}

// Complete reports whether a price/make pair resolves a row.
func (r *Resolver) Complete(mandatory bool, price *decimal.Decimal, makes ledger.MakeList) bool {
	if price == nil || !price.IsPositive() {
		return false
	}
	if !mandatory {
		return true
	}
	_, ok := makes.Enabled()
	return ok
}

// Blocking returns the ids of touched mandatory rows that are not complete,
// sorted. Mandatory-ness is read from the ledger row, not the pending edit.
func (r *Resolver) Blocking(rows []ledger.QuotationRow, pending map[string]Pending) []string {
	var out []string
	for _, row := range rows {
		p, touched := pending[row.ID]
		if !touched || !r.Mandatory(row.Category, row.Makes) {
			continue
		}
		if !r.Complete(true, p.EffectivePrice(row), p.EffectiveMakes(row)) {
			out = append(out, row.ID)
		}
	}
	sort.Strings(out)
	return out
}

// SaveEnabled reports whether the pending edits may be saved: something is
// pending and no touched mandatory row is half-resolved. Untouched rows are
// ignored.
func (r *Resolver) SaveEnabled(rows []ledger.QuotationRow, pending map[string]Pending) bool {
	if len(pending) == 0 {
		return false
	}
	return len(r.Blocking(rows, pending)) == 0
}
