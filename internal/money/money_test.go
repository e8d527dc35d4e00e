package money

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/quotedesk/internal/ledger"
	"github.com/roach88/quotedesk/internal/testutil"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDec(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, dec(want).Equal(got), "want %s, got %s", want, got)
}

// purchaseD totals 1000 including tax.
func purchaseD() ledger.Order {
	return ledger.Order{
		ID:   "PO-D",
		Kind: ledger.OrderPurchase,
		Lines: []ledger.OrderLine{
			{Quantity: dec("2"), Price: dec("400"), Tax: dec("25")},
		},
	}
}

func paymentsD() []ledger.Payment {
	return []ledger.Payment{
		{ID: "P1", DocumentName: "PO-D", Amount: dec("400"), Status: ledger.PaymentPaid},
		{ID: "P2", DocumentName: "PO-D", Amount: dec("100"), Status: ledger.PaymentRequested},
		{ID: "P3", DocumentName: "PO-X", Amount: dec("999"), Status: ledger.PaymentPaid},
	}
}

func TestCalculator_PurchaseTotals(t *testing.T) {
	c := NewCalculator(DefaultServiceTaxPercent)
	o := ledger.Order{
		Kind: ledger.OrderPurchase,
		Lines: []ledger.OrderLine{
			{Quantity: dec("3"), Price: dec("10"), Tax: dec("18")},
			{Price: dec("5"), Tax: dec("0")},
		},
	}
	assertDec(t, "35", c.TotalExclTax(o))
	assertDec(t, "40.4", c.TotalInclTax(o))
}

func TestCalculator_ServiceTotals(t *testing.T) {
	c := NewCalculator(DefaultServiceTaxPercent)
	o := ledger.Order{
		ID:   "SR-1",
		Kind: ledger.OrderService,
		Lines: []ledger.OrderLine{
			{Quantity: dec("2"), Price: dec("250"), Tax: dec("5")},
			{Price: dec("500")},
		},
	}
	assertDec(t, "1000", c.TotalExclTax(o))
	assertDec(t, "1180", c.TotalInclTax(o)) // per-line tax is ignored for service orders

	custom := NewCalculator(dec("12"))
	assertDec(t, "1120", custom.TotalInclTax(o))
}

func TestAmountPaid_OnlyPaidForDocument(t *testing.T) {
	assertDec(t, "400", AmountPaid("PO-D", paymentsD()))
	assertDec(t, "0", AmountPaid("PO-none", paymentsD()))
}

func TestCalculator_OutstandingMayBeNegative(t *testing.T) {
	c := NewCalculator(DefaultServiceTaxPercent)
	assertDec(t, "600", c.Outstanding(purchaseD(), paymentsD()))

	over := append(paymentsD(), ledger.Payment{DocumentName: "PO-D", Amount: dec("700"), Status: ledger.PaymentPaid})
	assertDec(t, "-100", c.Outstanding(purchaseD(), over))
}

func TestCalculator_CompareAmount(t *testing.T) {
	c := NewCalculator(DefaultServiceTaxPercent)
	service := ledger.Order{
		ID:    "SR-1",
		Kind:  ledger.OrderService,
		Lines: []ledger.OrderLine{{Quantity: dec("1"), Price: dec("1000")}},
	}

	tests := []struct {
		name        string
		order       ledger.Order
		payments    []ledger.Payment
		want        string
		includesTax bool
		remaining   bool
	}{
		{"purchase always incl tax", purchaseD(), paymentsD(), "600", true, true},
		{"purchase unpaid", purchaseD(), nil, "1000", true, false},
		{"service without tax", service, nil, "1000", false, false},
		{"service with tax", func() ledger.Order { o := service; o.TaxApplicable = true; return o }(), nil, "1180", true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			limit := c.CompareAmount(tt.order, tt.payments)
			assertDec(t, tt.want, limit.Amount)
			assert.Equal(t, tt.includesTax, limit.IncludesTax)
			assert.Equal(t, tt.remaining, limit.Remaining)
		})
	}
}

func TestCalculator_CheckAmount(t *testing.T) {
	c := NewCalculator(DefaultServiceTaxPercent)

	w := c.CheckAmount(purchaseD(), paymentsD(), dec("700"))
	require.NotNil(t, w)
	assertDec(t, "600", w.Limit.Amount)
	assert.Equal(t, "Entered amount exceeds the total remaining amount including GST: ₹600.00", w.String())

	assert.Nil(t, c.CheckAmount(purchaseD(), paymentsD(), dec("500")))
	assert.Nil(t, c.CheckAmount(purchaseD(), paymentsD(), dec("600")), "equal to the balance is allowed")

	service := ledger.Order{ID: "SR-1", Kind: ledger.OrderService, Lines: []ledger.OrderLine{{Price: dec("100")}}}
	w = c.CheckAmount(service, nil, dec("101"))
	require.NotNil(t, w)
	assert.Equal(t, "Entered amount exceeds the total amount excluding GST: ₹100.00", w.String())
}

func TestNetPaid(t *testing.T) {
	assertDec(t, "980", NetPaid(dec("1000"), dec("20")))
}

func TestFormatINR(t *testing.T) {
	tests := map[string]string{
		"0":          "₹0.00",
		"999":        "₹999.00",
		"1000":       "₹1,000.00",
		"123456.789": "₹1,23,456.79",
		"12345678":   "₹1,23,45,678.00",
		"-1500.5":    "-₹1,500.50",
	}
	for in, want := range tests {
		assert.Equal(t, want, FormatINR(dec(in)), in)
	}
}

func TestGuard_DebouncedWarning(t *testing.T) {
	clock := testutil.NewVirtualClock(time.Time{})
	c := NewCalculator(DefaultServiceTaxPercent)
	var results []*ValidationWarning
	g := NewGuard(c, clock, 300*time.Millisecond, func(w *ValidationWarning) {
		results = append(results, w)
	})

	entry := func(amount string) Entry {
		return Entry{Order: purchaseD(), Payments: paymentsD(), Amount: dec(amount)}
	}

	// Typing "7", "70", "700" in quick succession checks only "700".
	g.Enter(entry("7"))
	clock.Advance(50 * time.Millisecond)
	g.Enter(entry("70"))
	clock.Advance(50 * time.Millisecond)
	g.Enter(entry("700"))
	clock.Advance(300 * time.Millisecond)

	require.Len(t, results, 1)
	require.NotNil(t, g.Warning())
	assertDec(t, "600", g.Warning().Limit.Amount)

	g.Enter(entry("500"))
	clock.Advance(300 * time.Millisecond)
	assert.Nil(t, g.Warning())
	assert.Equal(t, 2, g.Checked())

	g.Enter(entry("900"))
	g.Reset()
	clock.Advance(time.Second)
	assert.Nil(t, g.Warning())
	assert.Equal(t, 2, g.Checked())
}
