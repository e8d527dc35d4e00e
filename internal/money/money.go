// Package money computes order totals, amounts paid and outstanding balances,
// and checks new payment amounts against what is still owed.
package money

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/roach88/quotedesk/internal/ledger"
)

// DefaultServiceTaxPercent is the flat tax applied to service orders.
var DefaultServiceTaxPercent = decimal.NewFromInt(18)

var hundred = decimal.NewFromInt(100)

// Calculator computes order amounts.
type Calculator struct {
	serviceTax decimal.Decimal
}

// NewCalculator creates a calculator using serviceTaxPercent for service
// orders. A negative value falls back to DefaultServiceTaxPercent.
func NewCalculator(serviceTaxPercent decimal.Decimal) *Calculator {
	if serviceTaxPercent.IsNegative() {
		serviceTaxPercent = DefaultServiceTaxPercent
	}
	return &Calculator{serviceTax: serviceTaxPercent}
}

// LineTotal returns quantity × price. A zero quantity counts as 1.
func LineTotal(l ledger.OrderLine) decimal.Decimal {
	qty := l.Quantity
	if qty.IsZero() {
		qty = decimal.NewFromInt(1)
	}
	return qty.Mul(l.Price)
}

func withTax(amount, percent decimal.Decimal) decimal.Decimal {
	return amount.Mul(decimal.NewFromInt(1).Add(percent.Div(hundred)))
}

// TotalExclTax sums the line totals of an order.
func (c *Calculator) TotalExclTax(o ledger.Order) decimal.Decimal {
	total := decimal.Zero
	for _, l := range o.Lines {
		total = total.Add(LineTotal(l))
	}
	return total
}

// TotalInclTax applies per-line tax for purchase orders and the flat service
// tax for service orders.
func (c *Calculator) TotalInclTax(o ledger.Order) decimal.Decimal {
	if o.Kind == ledger.OrderService {
		return withTax(c.TotalExclTax(o), c.serviceTax)
	}
	total := decimal.Zero
	for _, l := range o.Lines {
		total = total.Add(withTax(LineTotal(l), l.Tax))
	}
	return total
}

// AmountPaid sums the amounts of paid payments booked against document.
func AmountPaid(document string, payments []ledger.Payment) decimal.Decimal {
	paid := decimal.Zero
	for _, p := range payments {
		if p.DocumentName == document && p.Status == ledger.PaymentPaid {
			paid = paid.Add(p.Amount)
		}
	}
	return paid
}

// Outstanding returns the tax-inclusive total minus the amount paid.
// The result is negative when the order was overpaid.
func (c *Calculator) Outstanding(o ledger.Order, payments []ledger.Payment) decimal.Decimal {
	return c.TotalInclTax(o).Sub(AmountPaid(o.ID, payments))
}

// NetPaid returns the amount that reaches the vendor after TDS.
func NetPaid(amount, tds decimal.Decimal) decimal.Decimal {
	return amount.Sub(tds)
}

// Limit is the balance a new payment is compared against.
type Limit struct {
	Amount      decimal.Decimal
	IncludesTax bool
	// Remaining is set when payments were already made.
	Remaining bool
}

// CompareAmount returns the balance limit for a new payment. Purchase orders
// always use the tax-inclusive balance; service orders do so only when tax
// applies.
func (c *Calculator) CompareAmount(o ledger.Order, payments []ledger.Payment) Limit {
	paid := AmountPaid(o.ID, payments)
	inclTax := o.Kind != ledger.OrderService || o.TaxApplicable
	total := c.TotalExclTax(o)
	if inclTax {
		total = c.TotalInclTax(o)
	}
	return Limit{
		Amount:      total.Sub(paid),
		IncludesTax: inclTax,
		Remaining:   !paid.IsZero(),
	}
}

// ValidationWarning reports an amount above the order balance. It is advice
// for the user, not a rejection.
type ValidationWarning struct {
	Document string
	Entered  decimal.Decimal
	Limit    Limit
}

func (w *ValidationWarning) String() string {
	var b strings.Builder
	b.WriteString("Entered amount exceeds the total ")
	if w.Limit.Remaining {
		b.WriteString("remaining ")
	}
	b.WriteString("amount ")
	if w.Limit.IncludesTax {
		b.WriteString("including")
	} else {
		b.WriteString("excluding")
	}
	fmt.Fprintf(&b, " GST: %s", FormatINR(w.Limit.Amount))
	return b.String()
}

// CheckAmount returns a warning when amount exceeds the order balance, or nil.
func (c *Calculator) CheckAmount(o ledger.Order, payments []ledger.Payment, amount decimal.Decimal) *ValidationWarning {
	limit := c.CompareAmount(o, payments)
	if !amount.GreaterThan(limit.Amount) {
		return nil
	}
	return &ValidationWarning{Document: o.ID, Entered: amount, Limit: limit}
}

// Summary is the per-order figure set shown in payment listings.
type Summary struct {
	Order        string           `json:"order"`
	Kind         ledger.OrderKind `json:"kind"`
	TotalExclTax decimal.Decimal  `json:"total"`
	TotalInclTax decimal.Decimal  `json:"total_incl_tax"`
	AmountPaid   decimal.Decimal  `json:"amount_paid"`
	Outstanding  decimal.Decimal  `json:"outstanding"`
}

// Summarize computes the summary of one order.
func (c *Calculator) Summarize(o ledger.Order, payments []ledger.Payment) Summary {
	incl := c.TotalInclTax(o)
	paid := AmountPaid(o.ID, payments)
	return Summary{
		Order:        o.ID,
		Kind:         o.Kind,
		TotalExclTax: c.TotalExclTax(o),
		TotalInclTax: incl,
		AmountPaid:   paid,
		Outstanding:  incl.Sub(paid),
	}
}

// FormatINR renders an amount with a rupee sign, two decimals and Indian
// digit grouping (12,34,567.00).
func FormatINR(d decimal.Decimal) string {
	s := d.Abs().StringFixed(2)
	intPart, frac, _ := strings.Cut(s, ".")

	var groups []string
	if len(intPart) > 3 {
		groups = append(groups, intPart[len(intPart)-3:])
		intPart = intPart[:len(intPart)-3]
		for len(intPart) > 2 {
			groups = append([]string{intPart[len(intPart)-2:]}, groups...)
			intPart = intPart[:len(intPart)-2]
		}
	}
	groups = append([]string{intPart}, groups...)

	sign := ""
	if d.IsNegative() {
		sign = "-"
	}
	return sign + "₹" + strings.Join(groups, ",") + "." + frac
}
