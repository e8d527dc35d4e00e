package store

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/quotedesk/internal/ledger"
	"github.com/roach88/quotedesk/internal/queryir"
)

func TestVendors_UpsertAndFind(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	require.NoError(t, s.UpsertVendor(ctx, ledger.Vendor{ID: "V2", Name: "Beta", City: "Pune"}))
	require.NoError(t, s.UpsertVendor(ctx, ledger.Vendor{ID: "V1", Name: "Alpha"}))
	require.NoError(t, s.UpsertVendor(ctx, ledger.Vendor{ID: "V2", Name: "Beta Traders", City: "Pune"}))

	all, err := s.FindVendors(ctx, nil)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, ledger.VendorID("V1"), all[0].ID, "ordered by id")
	assert.Equal(t, "Beta Traders", all[1].Name)

	pune, err := s.FindVendors(ctx, queryir.Equals{Field: "vendor_city", Value: queryir.String("Pune")})
	require.NoError(t, err)
	require.Len(t, pune, 1)
	assert.Equal(t, ledger.VendorID("V2"), pune[0].ID)
}

func TestSentBack_InsertGetUpdate(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	sb := createTestSentBack("SB-1")
	require.NoError(t, s.InsertSentBack(ctx, sb))

	got, err := s.GetSentBack(ctx, "SB-1")
	require.NoError(t, err)
	assert.Equal(t, "PR-1", got.ProcurementRequest)
	require.Len(t, got.Items, 2)
	assert.True(t, got.Items[0].Quantity.Equal(dec("10")))
	assert.Equal(t, []string{"Havells", "Polycab"}, got.Categories[0].Makes.Names())
	assert.True(t, got.RFQ.IsEmpty())

	rfq := ledger.NewRFQ()
	rfq.SelectedVendors = []ledger.Vendor{{ID: "V1"}}
	rfq.Details["I1"] = ledger.ItemQuotes{
		VendorQuotes: map[ledger.VendorID]ledger.Quote{"V1": {Price: decPtr("90"), Make: "Polycab"}},
	}
	items := []ledger.Item{got.Items[0].Award("V1", ledger.Quote{Price: decPtr("90"), Make: "Polycab"}), got.Items[1]}

	rev, err := s.UpdateSentBack(ctx, "SB-1", SentBackUpdate{Items: items, RFQ: rfq, ExpectRevision: 0})
	require.NoError(t, err)
	assert.Equal(t, int64(1), rev)

	got, err = s.GetSentBack(ctx, "SB-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.Revision)
	assert.Equal(t, ledger.StatePending, got.WorkflowState, "empty state leaves it unchanged")
	assert.Equal(t, ledger.VendorID("V1"), got.Items[0].Vendor)
	q, ok := got.RFQ.Quote("I1", "V1")
	require.True(t, ok)
	assert.True(t, q.Price.Equal(dec("90")))

	_, err = s.UpdateSentBack(ctx, "SB-1", SentBackUpdate{Items: items, RFQ: rfq, ExpectRevision: 0})
	assert.ErrorIs(t, err, ErrConflict)

	rev, err = s.UpdateSentBack(ctx, "SB-1", SentBackUpdate{Items: items, RFQ: rfq, WorkflowState: ledger.StateReviewing, ExpectRevision: -1})
	require.NoError(t, err)
	assert.Equal(t, int64(2), rev)
	got, err = s.GetSentBack(ctx, "SB-1")
	require.NoError(t, err)
	assert.Equal(t, ledger.StateReviewing, got.WorkflowState)

	_, err = s.UpdateSentBack(ctx, "SB-9", SentBackUpdate{ExpectRevision: -1})
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.GetSentBack(ctx, "SB-9")
	assert.ErrorIs(t, err, ErrNotFound)
}

func insertQuotations(t *testing.T, s *Store) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.UpsertVendor(ctx, ledger.Vendor{ID: "V1", Name: "Alpha"}))
	require.NoError(t, s.UpsertVendor(ctx, ledger.Vendor{ID: "V2", Name: "Beta"}))
	rows := []ledger.QuotationRow{
		{ID: "Q1", Request: "PR-1", Vendor: "V1", Item: "I1", Category: "Cables", Quantity: dec("10"), Quote: decPtr("100"), LeadTime: 7, Makes: ledger.NewMakeList("Havells", "Polycab")},
		{ID: "Q2", Request: "PR-1", Vendor: "V1", Item: "I2", Category: "Pipes", Quantity: dec("4")},
		{ID: "Q3", Request: "PR-1", Vendor: "V2", Item: "I1", Category: "Cables", Quantity: dec("10")},
	}
	for _, r := range rows {
		require.NoError(t, s.InsertQuotation(ctx, r))
	}
}

func TestQuotations_FindByRequestAndVendor(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	insertQuotations(t, s)

	rows, err := s.FindQuotations(ctx, queryir.Where(Quotations,
		queryir.Equals{Field: "procurement_task", Value: queryir.String("PR-1")},
		queryir.Equals{Field: "vendor", Value: queryir.String("V1")},
	).Filter)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Q1", rows[0].ID)
	assert.True(t, rows[0].Quote.Equal(dec("100")))
	assert.Nil(t, rows[1].Quote)
	assert.Equal(t, []string{"Havells", "Polycab"}, rows[0].Makes.Names())

	byItem, err := s.FindQuotations(ctx, queryir.In{Field: "item", Values: queryir.Strings("I1")})
	require.NoError(t, err)
	assert.Len(t, byItem, 2)
}

func TestQuotations_ForeignKeyOnVendor(t *testing.T) {
	s := createTestStore(t)
	err := s.InsertQuotation(context.Background(), ledger.QuotationRow{ID: "Q9", Request: "PR-1", Vendor: "nobody", Item: "I1"})
	assert.Error(t, err)
}

func TestUpdateQuotation_WritesOnlyTouchedFields(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	insertQuotations(t, s)

	makes, err := ledger.NewMakeList("Havells", "Polycab").Select("Polycab")
	require.NoError(t, err)

	// Makes only: quote must survive.
	require.NoError(t, s.UpdateQuotation(ctx, "Q1", ledger.QuotationPatch{LeadTime: 5, Makes: makes, MakesSet: true}))
	rows, err := s.FindQuotations(ctx, byID("Q1"))
	require.NoError(t, err)
	assert.Equal(t, 5, rows[0].LeadTime)
	assert.True(t, rows[0].Quote.Equal(dec("100")))
	enabled, ok := rows[0].Makes.Enabled()
	require.True(t, ok)
	assert.Equal(t, "Polycab", enabled.Make)

	// Zero quote is stored as NULL; makes must survive.
	require.NoError(t, s.UpdateQuotation(ctx, "Q1", ledger.QuotationPatch{LeadTime: 5, Quote: decPtr("0"), QuoteSet: true}))
	rows, err = s.FindQuotations(ctx, byID("Q1"))
	require.NoError(t, err)
	assert.Nil(t, rows[0].Quote)
	_, ok = rows[0].Makes.Enabled()
	assert.True(t, ok)

	err = s.UpdateQuotation(ctx, "Q404", ledger.QuotationPatch{LeadTime: 1})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOrdersAndPayments(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	order := ledger.Order{
		ID: "PO-1", Kind: ledger.OrderPurchase, Project: "PRJ-1", Vendor: "V1",
		Lines: []ledger.OrderLine{{Item: "Cable", Quantity: dec("2"), Price: dec("400"), Tax: dec("25")}},
	}
	require.NoError(t, s.InsertOrder(ctx, order))
	require.NoError(t, s.InsertOrder(ctx, ledger.Order{ID: "SR-1", Kind: ledger.OrderService, TaxApplicable: true}))

	got, err := s.GetOrder(ctx, "PO-1")
	require.NoError(t, err)
	require.Len(t, got.Lines, 1)
	assert.True(t, got.Lines[0].Price.Equal(dec("400")))

	sr, err := s.GetOrder(ctx, "SR-1")
	require.NoError(t, err)
	assert.True(t, sr.TaxApplicable)
	assert.Empty(t, sr.Lines)

	_, err = s.GetOrder(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)

	id, err := s.InsertPayment(ctx, ledger.Payment{DocumentType: "Procurement Orders", DocumentName: "PO-1", Amount: dec("400"), Status: ledger.PaymentPaid})
	require.NoError(t, err)
	assert.Equal(t, "pay-0001", id)
	_, err = s.InsertPayment(ctx, ledger.Payment{ID: "P-X", DocumentType: "Procurement Orders", DocumentName: "PO-1", Amount: dec("100"), TDS: dec("2"), Status: ledger.PaymentRequested})
	require.NoError(t, err)

	paid, err := s.FindPayments(ctx, queryir.Where(Payments,
		queryir.Equals{Field: "document_name", Value: queryir.String("PO-1")},
		queryir.Equals{Field: "status", Value: queryir.String(ledger.PaymentPaid)},
	).Filter)
	require.NoError(t, err)
	require.Len(t, paid, 1)
	assert.True(t, paid[0].Amount.Equal(dec("400")))
}

func TestMarshalList_Envelope(t *testing.T) {
	text, err := marshalList[ledger.Category](nil)
	require.NoError(t, err)
	assert.Equal(t, `{"list":[]}`, text)

	cats, err := unmarshalList[ledger.Category](`{"list":[{"name":"Cables"}]}`)
	require.NoError(t, err)
	assert.Equal(t, "Cables", cats[0].Name)

	_, err = unmarshalList[ledger.Category](`[`)
	assert.Error(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal([]byte(text), &raw))
	assert.Contains(t, raw, "list")
}
