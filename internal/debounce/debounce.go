// Package debounce delays propagation of rapidly-changing values until
// the input has been stable for a fixed interval.
//
// This is a classic debounce, not a throttle: every new value cancels
// and re-arms the pending timer, so the settled value only ever
// reflects the final input of a burst.
package debounce

import (
	"sync"
	"time"

	"github.com/dlowans/facet/internal/clock"
)

// Debouncer coalesces calls to Trigger. The function passed to the
// last Trigger before the delay elapses is the one that runs.
type Debouncer struct {
	mu     sync.Mutex
	clk    clock.Clock
	delay  time.Duration
	timer  clock.Timer
	closed bool
}

// New creates a Debouncer with the given delay. The clock must not be
// nil; pass clock.System() outside of tests.
func New(clk clock.Clock, delay time.Duration) *Debouncer {
	return &Debouncer{clk: clk, delay: delay}
}

// Trigger schedules fn after the delay, cancelling any pending call.
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = d.clk.AfterFunc(d.delay, fn)
}

// Cancel drops any pending call without closing the debouncer.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

// Close cancels any pending call and rejects future triggers. Safe to
// call more than once.
func (d *Debouncer) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.closed = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

// SearchDebouncer tracks a raw search term and a settled copy that
// lags it by the debounce delay. The settle callback fires on the
// clock's timer goroutine each time the settled value catches up.
type SearchDebouncer struct {
	mu       sync.Mutex
	deb      *Debouncer
	raw      string
	settled  string
	onSettle func(term string)
}

// NewSearch creates a SearchDebouncer. onSettle may be nil.
func NewSearch(clk clock.Clock, delay time.Duration, onSettle func(term string)) *SearchDebouncer {
	return &SearchDebouncer{
		deb:      New(clk, delay),
		onSettle: onSettle,
	}
}

// Set records a new raw term. If it already matches the settled value
// the pending timer is dropped; a burst that returns to the settled
// value settles immediately rather than waiting out the delay.
func (s *SearchDebouncer) Set(term string) {
	s.mu.Lock()
	s.raw = term
	if term == s.settled {
		s.mu.Unlock()
		s.deb.Cancel()
		return
	}
	s.mu.Unlock()

	s.deb.Trigger(func() {
		s.mu.Lock()
		s.settled = s.raw
		settled := s.settled
		cb := s.onSettle
		s.mu.Unlock()

		if cb != nil {
			cb(settled)
		}
	})
}

// Seed adopts term as both the raw and settled value without arming a
// timer or firing the settle callback. Used when restoring a persisted
// term at session start; the restored value is not new input and must
// not lag behind the first query by a debounce delay.
func (s *SearchDebouncer) Seed(term string) {
	s.mu.Lock()
	s.raw = term
	s.settled = term
	s.mu.Unlock()
	s.deb.Cancel()
}

// Value returns the settled term.
func (s *SearchDebouncer) Value() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settled
}

// Raw returns the most recent input term.
func (s *SearchDebouncer) Raw() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.raw
}

// Pending reports whether the settled value is lagging the input; UIs
// use it to show a busy indicator next to the search box.
func (s *SearchDebouncer) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.raw != s.settled
}

// Close cancels any pending settle. The settled value stops changing.
func (s *SearchDebouncer) Close() {
	s.deb.Close()
}
