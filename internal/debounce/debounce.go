// Package debounce coalesces bursts of inputs and evaluates only the last one.
//
// A Debouncer is a two-stage pipeline: Push restarts a quiet-window timer,
// and when the window elapses the latest input is evaluated and delivered.
// Every Push bumps a generation counter; an evaluation whose generation is no
// longer current when it finishes is discarded as stale.
package debounce

import (
	"sync"
	"time"
)

// DefaultWait is the default quiet window.
const DefaultWait = 300 * time.Millisecond

// Timer is a scheduled callback that can be cancelled.
type Timer interface {
	Stop() bool
}

// Clock is the time source of a Debouncer.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// SystemClock is the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

func (SystemClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Debouncer evaluates the last input pushed within a quiet window.
//
// Thread-safety: Push, Cancel and the accessors are safe for concurrent use.
// eval runs without the lock held; deliver is called at most once per
// generation and never for a stale one.
type Debouncer[T, R any] struct {
	clock   Clock
	wait    time.Duration
	eval    func(T) R
	deliver func(R)

	mu    sync.Mutex
	gen   uint64
	timer Timer
	stale int
}

// New creates a debouncer. A nil clock uses the wall clock and a
// non-positive wait uses DefaultWait.
func New[T, R any](clock Clock, wait time.Duration, eval func(T) R, deliver func(R)) *Debouncer[T, R] {
	if clock == nil {
		clock = SystemClock{}
	}
	if wait <= 0 {
		wait = DefaultWait
	}
	return &Debouncer[T, R]{clock: clock, wait: wait, eval: eval, deliver: deliver}
}

// Push records v as the latest input and restarts the quiet window.
func (d *Debouncer[T, R]) Push(v T) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.timer = d.clock.AfterFunc(d.wait, func() { d.fire(gen, v) })
}

// Cancel drops the pending input and invalidates any running evaluation.
func (d *Debouncer[T, R]) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.gen++
}

// Generation returns the current input generation.
func (d *Debouncer[T, R]) Generation() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.gen
}

// Stale returns how many evaluations were discarded.
func (d *Debouncer[T, R]) Stale() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stale
}

func (d *Debouncer[T, R]) fire(gen uint64, v T) {
	if !d.current(gen) {
		return
	}
	r := d.eval(v)

	d.mu.Lock()
	if gen != d.gen {
		d.stale++
		d.mu.Unlock()
		return
	}
	d.timer = nil
	d.mu.Unlock()

	if d.deliver != nil {
		d.deliver(r)
	}
}

func (d *Debouncer[T, R]) current(gen uint64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if gen != d.gen {
		d.stale++
		return false
	}
	return true
}
