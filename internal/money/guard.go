package money

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/roach88/quotedesk/internal/debounce"
	"github.com/roach88/quotedesk/internal/ledger"
)

// Entry is one amount typed against an order.
type Entry struct {
	Order    ledger.Order
	Payments []ledger.Payment
	Amount   decimal.Decimal
}

// Guard checks payment amounts as they are typed. Only the last entry of a
// burst is checked; its warning (or nil) replaces the previous one.
//
// Thread-safety: all methods are safe for concurrent use.
type Guard struct {
	deb *debounce.Debouncer[Entry, *ValidationWarning]

	mu      sync.Mutex
	warning *ValidationWarning
	checked int
}

// NewGuard creates a guard over calc. onResult, when non-nil, is called with
// each delivered result.
func NewGuard(calc *Calculator, clock debounce.Clock, wait time.Duration, onResult func(*ValidationWarning)) *Guard {
	g := &Guard{}
	g.deb = debounce.New(clock, wait,
		func(e Entry) *ValidationWarning {
			return calc.CheckAmount(e.Order, e.Payments, e.Amount)
		},
		func(w *ValidationWarning) {
			g.mu.Lock()
			g.warning = w
			g.checked++
			g.mu.Unlock()
			if onResult != nil {
				onResult(w)
			}
		},
	)
	return g
}

// Enter records a typed amount.
func (g *Guard) Enter(e Entry) {
	g.deb.Push(e)
}

// Reset drops any pending entry and clears the warning.
func (g *Guard) Reset() {
	g.deb.Cancel()
	g.mu.Lock()
	defer g.mu.Unlock()
	g.warning = nil
}

// Warning returns the current warning, or nil.
func (g *Guard) Warning() *ValidationWarning {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.warning
}

// Checked returns how many entries were evaluated and delivered.
func (g *Guard) Checked() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.checked
}
