package ledger

import (
	"github.com/shopspring/decimal"
)

// QuoteKind classifies a draft quote cell.
type QuoteKind int

const (
	QuoteUnpriced QuoteKind = iota
	QuotePricedNoMake
	QuotePricedWithMake
)

// String method for QuoteKind enum
func (k QuoteKind) String() string {
	switch k {
	case QuoteUnpriced:
		return "unpriced"
	case QuotePricedNoMake:
		return "priced-no-make"
	case QuotePricedWithMake:
		return "priced-with-make"
	default:
		return "unknown"
	}
}

// Quote is one vendor's offer for one item inside the RFQ draft.
// A non-positive price is kept as entered but does not count as priced.
type Quote struct {
	Price *decimal.Decimal `json:"quote,omitempty"`
	Make  string           `json:"make,omitempty"`
}

// Kind returns the exhaustive classification of the quote.
func (q Quote) Kind() QuoteKind {
	if !q.Priced() {
		return QuoteUnpriced
	}
	if q.Make == "" {
		return QuotePricedNoMake
	}
	return QuotePricedWithMake
}

// Priced reports whether the quote carries a positive price.
func (q Quote) Priced() bool {
	return q.Price != nil && q.Price.IsPositive()
}

func (q Quote) clone() Quote {
	if q.Price != nil {
		p := *q.Price
		q.Price = &p
	}
	return q
}

// ItemQuotes holds every vendor quote and the draft make list for one item.
type ItemQuotes struct {
	VendorQuotes map[VendorID]Quote `json:"vendorQuotes"`
	Makes        MakeList           `json:"makes"`
}

// Clone returns a deep copy.
func (d ItemQuotes) Clone() ItemQuotes {
	out := ItemQuotes{
		VendorQuotes: make(map[VendorID]Quote, len(d.VendorQuotes)),
		Makes:        d.Makes.Clone(),
	}
	for v, q := range d.VendorQuotes {
		out.VendorQuotes[v] = q.clone()
	}
	return out
}

// RFQ is the per-request comparison draft: the chosen vendors and the quote matrix.
type RFQ struct {
	SelectedVendors []Vendor              `json:"selectedVendors"`
	Details         map[ItemID]ItemQuotes `json:"details"`
}

// NewRFQ returns an empty draft.
func NewRFQ() RFQ {
	return RFQ{
		SelectedVendors: []Vendor{},
		Details:         map[ItemID]ItemQuotes{},
	}
}

// IsEmpty reports whether the draft has no item details.
func (r RFQ) IsEmpty() bool {
	return len(r.Details) == 0
}

// HasVendor reports whether the vendor is part of the selected set.
func (r RFQ) HasVendor(id VendorID) bool {
	for _, v := range r.SelectedVendors {
		if v.ID == id {
			return true
		}
	}
	return false
}

// Quote returns the draft quote for an item/vendor cell.
func (r RFQ) Quote(item ItemID, vendor VendorID) (Quote, bool) {
	d, ok := r.Details[item]
	if !ok {
		return Quote{}, false
	}
	q, ok := d.VendorQuotes[vendor]
	if !ok {
		return Quote{}, false
	}
	return q.clone(), true
}

// Clone returns a deep copy; nil collections come back empty.
func (r RFQ) Clone() RFQ {
	out := RFQ{
		SelectedVendors: make([]Vendor, len(r.SelectedVendors)),
		Details:         make(map[ItemID]ItemQuotes, len(r.Details)),
	}
	copy(out.SelectedVendors, r.SelectedVendors)
	for id, d := range r.Details {
		out.Details[id] = d.Clone()
	}
	return out
}
