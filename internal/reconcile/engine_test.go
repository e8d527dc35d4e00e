package reconcile

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/quotedesk/internal/draft"
	"github.com/roach88/quotedesk/internal/ledger"
	"github.com/roach88/quotedesk/internal/selection"
	"github.com/roach88/quotedesk/internal/store"
)

func price(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

// requestR has two items in a category without default makes.
func requestR() ledger.SentBack {
	return ledger.SentBack{
		ID:            "R",
		Project:       "PRJ-1",
		WorkflowState: ledger.StateSentBack,
		Items: []ledger.Item{
			{ID: "I1", Category: "C1", Quantity: decimal.NewFromInt(2)},
			{ID: "I2", Category: "C1", Quantity: decimal.NewFromInt(1)},
		},
		Categories: []ledger.Category{{Name: "C1"}},
		RFQ:        ledger.NewRFQ(),
	}
}

func createTestStore(t *testing.T, sb ledger.SentBack) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.InsertSentBack(context.Background(), sb))
	return s
}

// fakePersister records writes and fails on demand.
type fakePersister struct {
	mu     sync.Mutex
	fail   error
	writes []store.SentBackUpdate
	rev    int64
}

func (f *fakePersister) UpdateSentBack(_ context.Context, _ ledger.RequestID, u store.SentBackUpdate) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return 0, f.fail
	}
	f.writes = append(f.writes, u)
	f.rev++
	return f.rev, nil
}

func quoteScenario(t *testing.T, e *Engine) {
	t.Helper()
	ctx := context.Background()
	_, err := e.AddVendors(ctx, ledger.Vendor{ID: "V1"}, ledger.Vendor{ID: "V2"})
	require.NoError(t, err)
	require.NoError(t, e.SetQuote(ctx, "I1", "V1", price("100")))
	require.NoError(t, e.SetQuote(ctx, "I1", "V2", price("90")))
}

func TestEngine_ScenarioCommitBlockedUntilComplete(t *testing.T) {
	ctx := context.Background()
	sb := requestR()
	st := createTestStore(t, sb)
	e := Open(ctx, sb, st, st)

	quoteScenario(t, e)
	wrote, err := e.ToView(ctx)
	require.NoError(t, err)
	assert.True(t, wrote)

	require.NoError(t, e.Select("I1", "V2"))
	assert.False(t, e.Tracker().IsComplete())
	assert.False(t, e.CanCommit())

	err = e.Commit(ctx)
	require.Error(t, err)
	assert.True(t, IsIncompleteSelection(err))
	var te *TransitionError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, "I2", te.Details["missing"])
	assert.Equal(t, ledger.ModeView, e.Mode())

	// The blocked commit wrote nothing; the checkpoint predates the selection.
	got, err := st.GetSentBack(ctx, "R")
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.Revision)
	assert.False(t, got.Items[0].Resolved())

	// Reconciling the current selection awards I1 to V2 at 90.
	items := Apply(e.Items(), e.Tracker().Snapshot(), e.Draft().Snapshot())
	assert.Equal(t, ledger.VendorID("V2"), items[0].Vendor)
	require.NotNil(t, items[0].Quote)
	assert.True(t, items[0].Quote.Equal(decimal.NewFromInt(90)))
	assert.False(t, items[1].Resolved())
}

func TestEngine_CommitPersistsAndClearsDraft(t *testing.T) {
	ctx := context.Background()
	sb := requestR()
	st := createTestStore(t, sb)
	e := Open(ctx, sb, st, st)

	quoteScenario(t, e)
	require.NoError(t, e.SetQuote(ctx, "I2", "V1", price("40")))
	require.NoError(t, e.SetMake(ctx, "I2", "V1", "Acme"))
	_, err := e.ToView(ctx)
	require.NoError(t, err)

	require.NoError(t, e.Select("I1", "V2"))
	require.NoError(t, e.Select("I2", "V1"))
	require.NoError(t, e.Commit(ctx))
	assert.Equal(t, ledger.ModeCommitted, e.Mode())

	got, err := st.GetSentBack(ctx, "R")
	require.NoError(t, err)
	assert.Equal(t, ledger.StateReviewing, got.WorkflowState)
	assert.Equal(t, ledger.VendorID("V2"), got.Items[0].Vendor)
	assert.Equal(t, ledger.VendorID("V1"), got.Items[1].Vendor)
	assert.Equal(t, "Acme", got.Items[1].Make)
	assert.True(t, got.RFQ.HasVendor("V1"))

	data, err := st.LoadDraft(ctx, draft.Key("", "R"))
	require.NoError(t, err)
	assert.Empty(t, data)

	// Committed is terminal.
	assert.True(t, IsInvalidTransition(e.ToEdit()))
	_, err = e.AddVendors(ctx, ledger.Vendor{ID: "V3"})
	assert.True(t, IsInvalidTransition(err))
}

func TestEngine_ToViewSkipsWriteWhenUnchanged(t *testing.T) {
	ctx := context.Background()
	p := &fakePersister{}
	e := Open(ctx, requestR(), draft.NewMemoryKV(), p)
	quoteScenario(t, e)

	wrote, err := e.ToView(ctx)
	require.NoError(t, err)
	assert.True(t, wrote)
	require.NoError(t, e.ToEdit())

	wrote, err = e.ToView(ctx)
	require.NoError(t, err)
	assert.False(t, wrote)
	assert.Len(t, p.writes, 1)
	assert.Equal(t, ledger.ModeView, e.Mode())
}

func TestEngine_PersistenceFailurePreservesState(t *testing.T) {
	ctx := context.Background()
	p := &fakePersister{}
	kv := draft.NewMemoryKV()
	e := Open(ctx, requestR(), kv, p)
	quoteScenario(t, e)
	_, err := e.ToView(ctx)
	require.NoError(t, err)
	require.NoError(t, e.Select("I1", "V2"))
	require.NoError(t, e.Select("I2", "V1"))

	before := e.Items()
	draftBefore, err := e.Draft().Serialize()
	require.NoError(t, err)

	p.fail = errors.New("network down")
	err = e.Commit(ctx)
	require.Error(t, err)
	assert.True(t, IsPersistenceFailure(err))
	assert.ErrorContains(t, err, "network down")

	assert.Equal(t, ledger.ModeView, e.Mode())
	assert.Equal(t, before, e.Items())
	draftAfter, err := e.Draft().Serialize()
	require.NoError(t, err)
	assert.Equal(t, draftBefore, draftAfter)
	assert.True(t, kv.Has(draft.Key("", "R")))

	// Retry succeeds with the same selection.
	p.fail = nil
	require.NoError(t, e.Commit(ctx))
	last := p.writes[len(p.writes)-1]
	assert.Equal(t, ledger.StateReviewing, last.WorkflowState)
	assert.False(t, kv.Has(draft.Key("", "R")))
}

func TestEngine_EditsRejectedOutsideEditMode(t *testing.T) {
	ctx := context.Background()
	e := Open(ctx, requestR(), draft.NewMemoryKV(), &fakePersister{})
	quoteScenario(t, e)
	_, err := e.ToView(ctx)
	require.NoError(t, err)

	assert.True(t, IsInvalidTransition(e.SetQuote(ctx, "I1", "V1", price("1"))))
	assert.True(t, IsInvalidTransition(e.SetMake(ctx, "I1", "V1", "X")))
	assert.True(t, IsInvalidTransition(e.RemoveVendor(ctx, "V1")))
	_, err = e.ToView(ctx)
	assert.True(t, IsInvalidTransition(err))

	require.NoError(t, e.ToEdit())
	assert.ErrorIs(t, e.Select("I1", "V1"), selection.ErrNotViewMode)
}

func TestEngine_RemoveVendorStripsAwardedItems(t *testing.T) {
	ctx := context.Background()
	p := &fakePersister{}
	e := Open(ctx, requestR(), draft.NewMemoryKV(), p)
	quoteScenario(t, e)
	_, err := e.ToView(ctx)
	require.NoError(t, err)
	require.NoError(t, e.Select("I1", "V2"))
	require.NoError(t, e.ToEdit())

	// A changed draft checkpoints the award into the item list.
	require.NoError(t, e.SetQuote(ctx, "I1", "V2", price("95")))
	_, err = e.ToView(ctx)
	require.NoError(t, err)
	assert.Equal(t, ledger.VendorID("V2"), e.Items()[0].Vendor)
	require.NoError(t, e.ToEdit())

	require.NoError(t, e.RemoveVendor(ctx, "V2"))
	assert.False(t, e.Items()[0].Resolved())
	_, ok := e.Tracker().Winner("I1")
	assert.False(t, ok)
	assert.False(t, e.Draft().HasVendor("V2"))
}

func TestEngine_OpenHydratesWinnersFromItems(t *testing.T) {
	ctx := context.Background()
	sb := requestR()
	sb.RFQ = ledger.RFQ{
		SelectedVendors: []ledger.Vendor{{ID: "V1"}},
		Details: map[ledger.ItemID]ledger.ItemQuotes{
			"I1": {VendorQuotes: map[ledger.VendorID]ledger.Quote{"V1": {Price: price("10")}}},
			"I2": {VendorQuotes: map[ledger.VendorID]ledger.Quote{}},
		},
	}
	sb.Items[0].Vendor = "V1"
	sb.Items[1].Vendor = "GONE"

	e := Open(ctx, sb, draft.NewMemoryKV(), &fakePersister{})
	w, ok := e.Tracker().Winner("I1")
	require.True(t, ok)
	assert.Equal(t, ledger.VendorID("V1"), w)
	_, ok = e.Tracker().Winner("I2")
	assert.False(t, ok)
	assert.True(t, e.Draft().HasVendor("V1"))
}

func TestEngine_OpenReviewedRequestIsCommitted(t *testing.T) {
	ctx := context.Background()
	sb := requestR()
	sb.WorkflowState = ledger.StateReviewing

	e := Open(ctx, sb, draft.NewMemoryKV(), &fakePersister{})
	assert.Equal(t, ledger.ModeCommitted, e.Mode())

	_, err := e.AddVendors(ctx, ledger.Vendor{ID: "V1"})
	assert.True(t, IsInvalidTransition(err))
	assert.True(t, IsInvalidTransition(e.ToEdit()))
}

func TestEngine_ReopenedWinnerWithoutDraftQuoteIsNotCommitted(t *testing.T) {
	ctx := context.Background()
	sb := requestR()
	sb.Items[0].Vendor = "V1"
	sb.Items[0].Quote = price("90")
	kv := draft.NewMemoryKV()
	p := &fakePersister{}

	first := Open(ctx, sb, kv, p)
	_, err := first.AddVendors(ctx, ledger.Vendor{ID: "V1"})
	require.NoError(t, err)

	second := Open(ctx, sb, kv, p)
	_, ok := second.Tracker().Winner("I1")
	assert.False(t, ok)
	_, err = second.ToView(ctx)
	require.NoError(t, err)

	err = second.Commit(ctx)
	require.Error(t, err)
	assert.True(t, IsIncompleteSelection(err))
	assert.Equal(t, ledger.ModeView, second.Mode())
}

func TestApply_KeepsItemWhenWinnerHasNoDraftQuote(t *testing.T) {
	sb := requestR()
	sb.Items[0].Vendor = "V1"
	sb.Items[0].Quote = price("90")
	sb.Items[0].Make = "Polycab"
	rfq := ledger.RFQ{SelectedVendors: []ledger.Vendor{{ID: "V1"}}}

	out := Apply(sb.Items, map[ledger.ItemID]ledger.VendorID{"I1": "V1"}, rfq)

	assert.Equal(t, sb.Items[0], out[0])
	require.NotNil(t, out[0].Quote)
	assert.True(t, out[0].Quote.Equal(decimal.NewFromInt(90)))
	assert.False(t, out[1].Resolved())
}

func TestApply_IsIdempotent(t *testing.T) {
	sb := requestR()
	sb.Items[1].Vendor = "V9"
	sb.Items[1].Make = "Old"
	rfq := ledger.RFQ{
		SelectedVendors: []ledger.Vendor{{ID: "V1"}},
		Details: map[ledger.ItemID]ledger.ItemQuotes{
			"I1": {VendorQuotes: map[ledger.VendorID]ledger.Quote{"V1": {Price: price("12.5"), Make: "M"}}},
		},
	}
	winners := map[ledger.ItemID]ledger.VendorID{"I1": "V1"}

	once := Apply(sb.Items, winners, rfq)
	twice := Apply(once, winners, rfq)
	assert.Equal(t, once, twice)
	assert.Equal(t, "M", once[0].Make)
	assert.False(t, once[1].Resolved())
	assert.Empty(t, once[1].Make)
	// Input untouched.
	assert.Equal(t, ledger.VendorID("V9"), sb.Items[1].Vendor)
}
