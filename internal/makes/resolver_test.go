package makes

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/quotedesk/internal/ledger"
)

func price(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func selected(t *testing.T, l ledger.MakeList, name string) ledger.MakeList {
	t.Helper()
	out, err := l.Select(name)
	require.NoError(t, err)
	return out
}

func TestResolver_Mandatory(t *testing.T) {
	r := NewResolver([]string{"Cables"})
	withDefault := selected(t, ledger.NewMakeList("A", "B"), "A")

	tests := []struct {
		name     string
		category string
		makes    ledger.MakeList
		want     bool
	}{
		{"all disabled in declared category", "Cables", ledger.NewMakeList("A", "B"), true},
		{"no makes", "Cables", nil, false},
		{"default winner present", "Cables", withDefault, false},
		{"undeclared category", "Pipes", ledger.NewMakeList("A"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.Mandatory(tt.category, tt.makes))
		})
	}
}

func TestResolver_Complete(t *testing.T) {
	r := NewResolver(nil)
	chosen := selected(t, ledger.NewMakeList("A"), "A")

	assert.True(t, r.Complete(false, price("10"), nil))
	assert.False(t, r.Complete(false, price("0"), chosen))
	assert.False(t, r.Complete(true, price("10"), ledger.NewMakeList("A")))
	assert.False(t, r.Complete(true, nil, chosen))
	assert.True(t, r.Complete(true, price("10"), chosen))
}

func TestResolver_SaveEnabled(t *testing.T) {
	r := NewResolver([]string{"Cables"})
	rows := []ledger.QuotationRow{
		{ID: "Q1", Category: "Cables", Makes: ledger.NewMakeList("A", "B"), Quote: price("50")},
		{ID: "Q2", Category: "Cables", Makes: ledger.NewMakeList("A", "B")},
		{ID: "Q3", Category: "Pipes", Makes: ledger.NewMakeList("P")},
	}
	chosen := selected(t, rows[0].Makes, "B")

	tests := []struct {
		name    string
		pending map[string]Pending
		want    bool
	}{
		{"nothing pending", nil, false},
		{"non-mandatory price only", map[string]Pending{"Q3": {Price: price("7"), PriceSet: true}}, true},
		{"mandatory price without make", map[string]Pending{"Q1": {Price: price("60"), PriceSet: true}}, false},
		{"mandatory make uses ledger price", map[string]Pending{"Q1": {Makes: chosen, MakesSet: true}}, true},
		{"mandatory make without any price", map[string]Pending{"Q2": {Makes: chosen, MakesSet: true}}, false},
		{"mandatory both set", map[string]Pending{"Q2": {Price: price("5"), PriceSet: true, Makes: chosen, MakesSet: true}}, true},
		{"cleared price blocks", map[string]Pending{"Q1": {PriceSet: true, Makes: chosen, MakesSet: true}}, false},
		{"untouched mandatory rows ignored", map[string]Pending{"Q3": {Price: price("1"), PriceSet: true}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.SaveEnabled(rows, tt.pending))
		})
	}
}

func TestResolver_BlockingSorted(t *testing.T) {
	r := NewResolver([]string{"Cables"})
	rows := []ledger.QuotationRow{
		{ID: "Q2", Category: "Cables", Makes: ledger.NewMakeList("A")},
		{ID: "Q1", Category: "Cables", Makes: ledger.NewMakeList("A")},
	}
	pending := map[string]Pending{
		"Q1": {Price: price("1"), PriceSet: true},
		"Q2": {Price: price("1"), PriceSet: true},
	}
	assert.Equal(t, []string{"Q1", "Q2"}, r.Blocking(rows, pending))
}
