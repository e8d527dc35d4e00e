package store

import (
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/roach88/quotedesk/internal/ledger"
	"github.com/roach88/quotedesk/internal/testutil"
)

// createTestStore creates a new temp-dir store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, WithIDGenerator(testutil.NewSequenceIDGenerator("pay")))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

// createTestSentBack creates a request with two items in one declared category.
func createTestSentBack(id ledger.RequestID) ledger.SentBack {
	return ledger.SentBack{
		ID:                 id,
		Project:            "PRJ-1",
		ProcurementRequest: "PR-1",
		WorkflowState:      ledger.StatePending,
		Items: []ledger.Item{
			{ID: "I1", Name: "Copper cable", Category: "Cables", Quantity: dec("10"), Unit: "m", Tax: dec("18")},
			{ID: "I2", Name: "PVC pipe", Category: "Pipes", Quantity: dec("4"), Unit: "nos", Tax: dec("12")},
		},
		Categories: []ledger.Category{
			{Name: "Cables", Makes: ledger.NewMakeList("Havells", "Polycab")},
		},
		RFQ: ledger.NewRFQ(),
	}
}
