package ledger

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// PatchShape names which fields a quotation patch carries besides lead time.
type PatchShape int

const (
	// PatchEmpty carries nothing and is never sent.
	PatchEmpty PatchShape = iota
	// PatchQuoteMakes carries lead_time, quote and makes.
	PatchQuoteMakes
	// PatchQuote carries lead_time and quote.
	PatchQuote
	// PatchMakes carries lead_time and makes.
	PatchMakes
)

func (s PatchShape) String() string {
	switch s {
	case PatchQuoteMakes:
		return "lead_time+quote+makes"
	case PatchQuote:
		return "lead_time+quote"
	case PatchMakes:
		return "lead_time+makes"
	default:
		return "empty"
	}
}

// QuotationPatch is a partial update of one quotation row. Fields that were
// not touched are never written, so concurrent edits of other fields by
// other sessions survive.
type QuotationPatch struct {
	LeadTime int
	Quote    *decimal.Decimal
	QuoteSet bool
	Makes    MakeList
	MakesSet bool
}

// Shape returns the payload shape of the patch.
func (p QuotationPatch) Shape() PatchShape {
	switch {
	case p.QuoteSet && p.MakesSet:
		return PatchQuoteMakes
	case p.QuoteSet:
		return PatchQuote
	case p.MakesSet:
		return PatchMakes
	default:
		return PatchEmpty
	}
}

// QuoteValue returns the quote to write; a zero or negative price is
// written as null.
func (p QuotationPatch) QuoteValue() *decimal.Decimal {
	if p.Quote == nil || !p.Quote.IsPositive() {
		return nil
	}
	q := *p.Quote
	return &q
}

// MarshalJSON emits only the touched fields.
func (p QuotationPatch) MarshalJSON() ([]byte, error) {
	out := map[string]any{"lead_time": p.LeadTime}
	if p.QuoteSet {
		if q := p.QuoteValue(); q != nil {
			out["quote"] = q
		} else {
			out["quote"] = nil
		}
	}
	if p.MakesSet {
		out["makes"] = p.Makes
	}
	return json.Marshal(out)
}
