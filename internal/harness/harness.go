package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/roach88/quotedesk/internal/batch"
	"github.com/roach88/quotedesk/internal/config"
	"github.com/roach88/quotedesk/internal/desk"
	"github.com/roach88/quotedesk/internal/draft"
	"github.com/roach88/quotedesk/internal/ledger"
	"github.com/roach88/quotedesk/internal/money"
	"github.com/roach88/quotedesk/internal/quoteedit"
	"github.com/roach88/quotedesk/internal/reconcile"
	"github.com/roach88/quotedesk/internal/seed"
	"github.com/roach88/quotedesk/internal/selection"
	"github.com/roach88/quotedesk/internal/store"
	"github.com/roach88/quotedesk/internal/testutil"
)

// Harness executes one scenario.
// Each scenario gets its own in-memory store, virtual clock and id sequence.
type Harness struct {
	desk    *desk.Desk
	store   *store.Store
	clock   *testutil.VirtualClock
	logger  *slog.Logger
	request ledger.RequestID

	engine *reconcile.Engine
	quotes *quoteedit.Session
	guard  *money.Guard

	// delivered collects guard results fired by clock.advance.
	delivered []*money.ValidationWarning
	refreshes int
}

type actionFunc func(h *Harness, ctx context.Context, args map[string]any) (map[string]string, error)

var actions = map[string]actionFunc{
	"rfq.add_vendors":   (*Harness).addVendors,
	"rfq.remove_vendor": (*Harness).removeVendor,
	"rfq.set_quote":     (*Harness).setQuote,
	"rfq.set_make":      (*Harness).setMake,
	"rfq.view":          (*Harness).view,
	"rfq.edit":          (*Harness).edit,
	"rfq.select":        (*Harness).selectWinner,
	"rfq.commit":        (*Harness).commit,
	"quotes.open":       (*Harness).openQuotes,
	"quotes.price":      (*Harness).quotePrice,
	"quotes.make":       (*Harness).quoteMake,
	"quotes.add_makes":  (*Harness).quoteAddMakes,
	"quotes.lead_time":  (*Harness).quoteLeadTime,
	"quotes.submit":     (*Harness).quoteSubmit,
	"payments.enter":    (*Harness).paymentEnter,
	"clock.advance":     (*Harness).clockAdvance,
}

// Run executes a scenario and returns the result.
//
// Execution flow:
//  1. Create a fresh in-memory store and import the seed documents
//  2. Open the scenario request in edit mode
//  3. Execute flow steps, checking each against its expect clause
//  4. Evaluate assertions
func Run(scenario *Scenario) (*Result, error) {
	return RunWithLogger(scenario, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// RunWithLogger is Run with component logging sent to logger.
func RunWithLogger(scenario *Scenario, logger *slog.Logger) (*Result, error) {
	ctx := context.Background()

	st, err := store.Open(":memory:", store.WithIDGenerator(testutil.NewSequenceIDGenerator("doc")))
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	if _, err := seed.Import(ctx, st, &scenario.Seed); err != nil {
		return nil, fmt.Errorf("failed to seed: %w", err)
	}

	cfg := config.Default()
	if scenario.BatchSize > 0 {
		cfg.BatchSize = scenario.BatchSize
	}
	clock := testutil.NewVirtualClock(time.Time{})
	h := &Harness{
		desk:    desk.New(st, cfg, desk.WithClock(clock), desk.WithLogger(logger)),
		store:   st,
		clock:   clock,
		logger:  logger,
		request: ledger.RequestID(scenario.Request),
	}
	h.engine, err = h.desk.OpenRequest(ctx, h.request)
	if err != nil {
		return nil, err
	}

	result := NewResult()
	for i, step := range scenario.Flow {
		fn, ok := actions[step.Do]
		if !ok {
			return nil, fmt.Errorf("flow step %d: unknown action %q", i, step.Do)
		}
		res, err := fn(h, ctx, step.Args)
		outcome := OutcomeOf(err)
		ev := result.AddTrace(step.Do, step.Args, outcome, res)
		h.logger.Info("flow step completed", "step", i, "action", step.Do, "outcome", outcome)
		for _, msg := range checkExpect(ev, step.Expect, err) {
			result.AddError(fmt.Sprintf("flow step %d (%s): %s", i, step.Do, msg))
		}
	}

	actx := &AssertionContext{Ctx: ctx, Store: st, Engine: h.engine, Request: h.request}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}
	return result, nil
}

func checkExpect(ev TraceEvent, expect *Expect, err error) []string {
	if expect == nil {
		if ev.Outcome != OutcomeOK {
			return []string{fmt.Sprintf("unexpected outcome %s: %v", ev.Outcome, err)}
		}
		return nil
	}
	var errs []string
	if ev.Outcome != expect.Outcome {
		errs = append(errs, fmt.Sprintf("outcome %s, expected %s", ev.Outcome, expect.Outcome))
	}
	keys := make([]string, 0, len(expect.Result))
	for k := range expect.Result {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if got := ev.Result[k]; got != expect.Result[k] {
			errs = append(errs, fmt.Sprintf("result %s = %q, expected %q", k, got, expect.Result[k]))
		}
	}
	return errs
}

// OutcomeOf maps an error to its trace outcome code.
func OutcomeOf(err error) string {
	if err == nil {
		return OutcomeOK
	}
	var te *reconcile.TransitionError
	if errors.As(err, &te) {
		return string(te.Code)
	}
	codes := []struct {
		err  error
		code string
	}{
		{selection.ErrNotViewMode, "NOT_VIEW_MODE"},
		{selection.ErrUnpriced, "UNPRICED"},
		{draft.ErrUnknownItem, "UNKNOWN_ITEM"},
		{draft.ErrUnknownVendor, "UNKNOWN_VENDOR"},
		{ledger.ErrEmptyMake, "EMPTY_MAKE"},
		{quoteedit.ErrUnknownRow, "UNKNOWN_ROW"},
		{quoteedit.ErrNoLeadTime, "NO_LEAD_TIME"},
		{quoteedit.ErrSaveBlocked, "SAVE_BLOCKED"},
		{quoteedit.ErrNothingPending, "NOTHING_PENDING"},
		{store.ErrNotFound, "NOT_FOUND"},
		{store.ErrConflict, "CONFLICT"},
		{errNoSession, "NO_SESSION"},
	}
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return OutcomeError
}

var errNoSession = errors.New("no quote session open")

func (h *Harness) addVendors(ctx context.Context, args map[string]any) (map[string]string, error) {
	vendors, err := h.desk.Vendors(ctx, argStrings(args, "vendors")...)
	if err != nil {
		return nil, err
	}
	n, err := h.engine.AddVendors(ctx, vendors...)
	if err != nil {
		return nil, err
	}
	return map[string]string{"added": strconv.Itoa(n)}, nil
}

func (h *Harness) removeVendor(ctx context.Context, args map[string]any) (map[string]string, error) {
	return nil, h.engine.RemoveVendor(ctx, ledger.VendorID(argString(args, "vendor")))
}

func (h *Harness) setQuote(ctx context.Context, args map[string]any) (map[string]string, error) {
	price, err := argDecimal(args, "price")
	if err != nil {
		return nil, err
	}
	item, vendor := ledger.ItemID(argString(args, "item")), ledger.VendorID(argString(args, "vendor"))
	if err := h.engine.SetQuote(ctx, item, vendor, price); err != nil {
		return nil, err
	}
	q, _ := h.engine.Draft().Quote(item, vendor)
	return map[string]string{"kind": q.Kind().String()}, nil
}

func (h *Harness) setMake(ctx context.Context, args map[string]any) (map[string]string, error) {
	item, vendor := ledger.ItemID(argString(args, "item")), ledger.VendorID(argString(args, "vendor"))
	if err := h.engine.SetMake(ctx, item, vendor, argString(args, "make")); err != nil {
		return nil, err
	}
	q, _ := h.engine.Draft().Quote(item, vendor)
	return map[string]string{"kind": q.Kind().String()}, nil
}

func (h *Harness) view(ctx context.Context, _ map[string]any) (map[string]string, error) {
	written, err := h.engine.ToView(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]string{"written": strconv.FormatBool(written)}, nil
}

func (h *Harness) edit(context.Context, map[string]any) (map[string]string, error) {
	return nil, h.engine.ToEdit()
}

func (h *Harness) selectWinner(_ context.Context, args map[string]any) (map[string]string, error) {
	err := h.engine.Select(ledger.ItemID(argString(args, "item")), ledger.VendorID(argString(args, "vendor")))
	if err != nil {
		return nil, err
	}
	return map[string]string{"complete": strconv.FormatBool(h.engine.Tracker().IsComplete())}, nil
}

func (h *Harness) commit(ctx context.Context, _ map[string]any) (map[string]string, error) {
	if err := h.engine.Commit(ctx); err != nil {
		var te *reconcile.TransitionError
		if errors.As(err, &te) && te.Details["missing"] != "" {
			return map[string]string{"missing": te.Details["missing"]}, err
		}
		return nil, err
	}
	return map[string]string{"mode": string(h.engine.Mode())}, nil
}

func (h *Harness) openQuotes(ctx context.Context, args map[string]any) (map[string]string, error) {
	request := h.request
	if r := argString(args, "request"); r != "" {
		request = ledger.RequestID(r)
	}
	s, err := h.desk.OpenQuotes(ctx, request, ledger.VendorID(argString(args, "vendor")),
		batch.WithRefresh(func(context.Context) error {
			h.refreshes++
			return nil
		}))
	if err != nil {
		return nil, err
	}
	h.quotes = s
	return map[string]string{"rows": strconv.Itoa(len(s.Rows()))}, nil
}

func (h *Harness) quotePrice(_ context.Context, args map[string]any) (map[string]string, error) {
	if h.quotes == nil {
		return nil, errNoSession
	}
	price, err := argDecimal(args, "price")
	if err != nil {
		return nil, err
	}
	if err := h.quotes.SetPrice(argString(args, "row"), price); err != nil {
		return nil, err
	}
	return h.saveState(), nil
}

func (h *Harness) quoteMake(_ context.Context, args map[string]any) (map[string]string, error) {
	if h.quotes == nil {
		return nil, errNoSession
	}
	if err := h.quotes.SetMake(argString(args, "row"), argString(args, "make")); err != nil {
		return nil, err
	}
	return h.saveState(), nil
}

func (h *Harness) quoteAddMakes(_ context.Context, args map[string]any) (map[string]string, error) {
	if h.quotes == nil {
		return nil, errNoSession
	}
	if err := h.quotes.AddMakes(argString(args, "row"), argStrings(args, "makes")...); err != nil {
		return nil, err
	}
	return h.saveState(), nil
}

func (h *Harness) quoteLeadTime(_ context.Context, args map[string]any) (map[string]string, error) {
	if h.quotes == nil {
		return nil, errNoSession
	}
	days, err := strconv.Atoi(argString(args, "days"))
	if err != nil {
		return nil, fmt.Errorf("days: %w", err)
	}
	h.quotes.SetLeadTime(days)
	return h.saveState(), nil
}

func (h *Harness) saveState() map[string]string {
	res := map[string]string{"save_enabled": strconv.FormatBool(h.quotes.SaveEnabled())}
	if b := h.quotes.Blocking(); len(b) > 0 {
		res["blocking"] = strings.Join(b, ",")
	}
	return res
}

func (h *Harness) quoteSubmit(ctx context.Context, _ map[string]any) (map[string]string, error) {
	if h.quotes == nil {
		return nil, errNoSession
	}
	before := h.refreshes
	report, err := h.quotes.Submit(ctx)
	if err != nil && len(report.Results) == 0 {
		return nil, err
	}
	return map[string]string{
		"updated":    strconv.Itoa(len(report.Succeeded())),
		"failed":     strconv.Itoa(len(report.Failed())),
		"not_issued": strconv.Itoa(len(report.NotIssued())),
		"batches":    strconv.Itoa(report.Batches),
		"refreshed":  strconv.Itoa(h.refreshes - before),
	}, err
}

func (h *Harness) paymentEnter(ctx context.Context, args map[string]any) (map[string]string, error) {
	amount, err := argDecimal(args, "amount")
	if err != nil {
		return nil, err
	}
	if amount == nil {
		return nil, fmt.Errorf("amount is required")
	}
	o, pays, err := h.desk.Document(ctx, argString(args, "document"))
	if err != nil {
		return nil, err
	}
	if h.guard == nil {
		h.guard = h.desk.NewGuard(func(w *money.ValidationWarning) {
			h.delivered = append(h.delivered, w)
		})
	}
	h.guard.Enter(money.Entry{Order: o, Payments: pays, Amount: *amount})
	return map[string]string{"pending_timers": strconv.Itoa(h.clock.Pending())}, nil
}

func (h *Harness) clockAdvance(_ context.Context, args map[string]any) (map[string]string, error) {
	ms, err := strconv.Atoi(argString(args, "ms"))
	if err != nil {
		return nil, fmt.Errorf("ms: %w", err)
	}
	h.delivered = nil
	h.clock.Advance(time.Duration(ms) * time.Millisecond)
	res := map[string]string{"checks": strconv.Itoa(len(h.delivered))}
	if n := len(h.delivered); n > 0 {
		if w := h.delivered[n-1]; w != nil {
			res["warning"] = w.String()
		} else {
			res["warning"] = "none"
		}
	}
	return res, nil
}

// argString renders a scalar argument as text; YAML numbers keep their
// literal form.
func argString(args map[string]any, key string) string {
	v, ok := args[key]
	if !ok || v == nil {
		return ""
	}
	return formatScalar(v)
}

func argStrings(args map[string]any, key string) []string {
	switch v := args[key].(type) {
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			out = append(out, formatScalar(e))
		}
		return out
	case nil:
		return nil
	default:
		return []string{formatScalar(v)}
	}
}

// argDecimal parses a decimal argument. A missing or null value is nil.
func argDecimal(args map[string]any, key string) (*decimal.Decimal, error) {
	s := argString(args, key)
	if s == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}
	return &d, nil
}

func formatScalar(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case int:
		return strconv.Itoa(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}
