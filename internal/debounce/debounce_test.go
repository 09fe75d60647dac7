package debounce

import (
	"sync"
	"testing"
	"time"

	"github.com/dlowans/facet/internal/clock"
)

const delay = 300 * time.Millisecond

func TestDebouncer_CoalescesBurst(t *testing.T) {
	clk := clock.NewFake()
	d := New(clk, delay)

	var mu sync.Mutex
	var calls []int
	record := func(n int) func() {
		return func() {
			mu.Lock()
			calls = append(calls, n)
			mu.Unlock()
		}
	}

	d.Trigger(record(1))
	clk.Advance(50 * time.Millisecond)
	d.Trigger(record(2))
	clk.Advance(50 * time.Millisecond)
	d.Trigger(record(3))

	// Nothing fires before the full delay after the last trigger.
	clk.Advance(delay - time.Millisecond)
	mu.Lock()
	if len(calls) != 0 {
		t.Fatalf("fired early: %v", calls)
	}
	mu.Unlock()

	clk.Advance(time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	if len(calls) != 1 || calls[0] != 3 {
		t.Errorf("calls = %v, want [3]", calls)
	}
}

func TestDebouncer_CancelDropsPending(t *testing.T) {
	clk := clock.NewFake()
	d := New(clk, delay)

	fired := false
	d.Trigger(func() { fired = true })
	d.Cancel()
	clk.Advance(2 * delay)

	if fired {
		t.Error("cancelled trigger still fired")
	}
}

func TestDebouncer_CloseRejectsTriggers(t *testing.T) {
	clk := clock.NewFake()
	d := New(clk, delay)

	fired := false
	d.Trigger(func() { fired = true })
	d.Close()
	d.Trigger(func() { fired = true })
	clk.Advance(2 * delay)

	if fired {
		t.Error("callback ran after Close")
	}
	if n := clk.PendingTimers(); n != 0 {
		t.Errorf("%d timers still armed after Close", n)
	}
}

// Typing "a","ab","abc" at 50ms intervals must yield exactly one
// settle, to "abc", a full delay after the last keystroke.
func TestSearch_SingleSettleAtFinalValue(t *testing.T) {
	clk := clock.NewFake()

	var mu sync.Mutex
	var settles []string
	s := NewSearch(clk, delay, func(term string) {
		mu.Lock()
		settles = append(settles, term)
		mu.Unlock()
	})

	s.Set("a")
	clk.Advance(50 * time.Millisecond)
	s.Set("ab")
	clk.Advance(50 * time.Millisecond)
	s.Set("abc")

	if !s.Pending() {
		t.Error("Pending() = false while timer armed")
	}

	clk.Advance(delay)

	mu.Lock()
	defer mu.Unlock()
	if len(settles) != 1 || settles[0] != "abc" {
		t.Errorf("settles = %v, want [abc]", settles)
	}
	if s.Value() != "abc" {
		t.Errorf("Value() = %q, want abc", s.Value())
	}
	if s.Pending() {
		t.Error("Pending() = true after settle")
	}
}

// Reverting to the settled value before the delay elapses must clear
// the pending flag without another settle.
func TestSearch_RevertClearsPending(t *testing.T) {
	clk := clock.NewFake()

	settles := 0
	s := NewSearch(clk, delay, func(string) { settles++ })

	s.Set("abc")
	clk.Advance(delay)
	if settles != 1 {
		t.Fatalf("settles = %d, want 1", settles)
	}

	s.Set("abcd")
	if !s.Pending() {
		t.Fatal("Pending() = false after divergence")
	}
	s.Set("abc") // back to the settled value

	if s.Pending() {
		t.Error("Pending() = true after reverting to settled value")
	}
	clk.Advance(2 * delay)
	if settles != 1 {
		t.Errorf("settles = %d, want no settle for a revert", settles)
	}
}

// Seeding adopts the value as already settled: no timer, no callback,
// no pending window.
func TestSearch_SeedSettlesImmediately(t *testing.T) {
	clk := clock.NewFake()

	settles := 0
	s := NewSearch(clk, delay, func(string) { settles++ })

	s.Seed("sunset")

	if s.Value() != "sunset" {
		t.Errorf("Value() = %q, want sunset", s.Value())
	}
	if s.Pending() {
		t.Error("Pending() = true after Seed")
	}
	if n := clk.PendingTimers(); n != 0 {
		t.Errorf("%d timers armed by Seed, want 0", n)
	}
	clk.Advance(2 * delay)
	if settles != 0 {
		t.Errorf("settles = %d after Seed, want 0", settles)
	}
}

func TestSearch_CloseCancelsPendingSettle(t *testing.T) {
	clk := clock.NewFake()

	settles := 0
	s := NewSearch(clk, delay, func(string) { settles++ })

	s.Set("abc")
	s.Close()
	clk.Advance(2 * delay)

	if settles != 0 {
		t.Errorf("settles = %d after Close, want 0", settles)
	}
	if s.Value() != "" {
		t.Errorf("Value() = %q, want unchanged", s.Value())
	}
}
