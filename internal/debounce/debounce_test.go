package debounce_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/quotedesk/internal/debounce"
	"github.com/roach88/quotedesk/internal/testutil"
)

func TestDebouncer_LastCallWins(t *testing.T) {
	clock := testutil.NewVirtualClock(time.Time{})
	var evaluated, delivered []int
	d := debounce.New(clock, 300*time.Millisecond,
		func(v int) int { evaluated = append(evaluated, v); return v * 10 },
		func(r int) { delivered = append(delivered, r) },
	)

	d.Push(1)
	clock.Advance(100 * time.Millisecond)
	d.Push(2)
	clock.Advance(100 * time.Millisecond)
	d.Push(3)

	clock.Advance(299 * time.Millisecond)
	assert.Empty(t, evaluated, "quiet window not elapsed")

	clock.Advance(time.Millisecond)
	assert.Equal(t, []int{3}, evaluated)
	assert.Equal(t, []int{30}, delivered)
	assert.Zero(t, clock.Pending())
}

func TestDebouncer_StaleEvaluationDiscarded(t *testing.T) {
	clock := testutil.NewVirtualClock(time.Time{})
	var delivered []string
	var d *debounce.Debouncer[string, string]
	d = debounce.New(clock, 300*time.Millisecond,
		func(v string) string {
			if v == "slow" {
				// A newer input arrives while this one is being evaluated.
				d.Push("fast")
			}
			return v
		},
		func(r string) { delivered = append(delivered, r) },
	)

	d.Push("slow")
	clock.Advance(300 * time.Millisecond)
	assert.Empty(t, delivered)
	assert.Equal(t, 1, d.Stale())

	clock.Advance(300 * time.Millisecond)
	assert.Equal(t, []string{"fast"}, delivered)
}

func TestDebouncer_Cancel(t *testing.T) {
	clock := testutil.NewVirtualClock(time.Time{})
	calls := 0
	d := debounce.New(clock, 0, func(v int) int { calls++; return v }, nil)

	d.Push(1)
	gen := d.Generation()
	d.Cancel()
	require.Greater(t, d.Generation(), gen)

	clock.Advance(time.Second)
	assert.Zero(t, calls)
}

func TestDebouncer_DefaultWait(t *testing.T) {
	clock := testutil.NewVirtualClock(time.Time{})
	calls := 0
	d := debounce.New(clock, 0, func(v int) int { calls++; return v }, nil)

	d.Push(1)
	clock.Advance(debounce.DefaultWait - time.Millisecond)
	assert.Zero(t, calls)
	clock.Advance(time.Millisecond)
	assert.Equal(t, 1, calls)
}
