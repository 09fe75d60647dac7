// Package clock provides an injectable time source so that debounce,
// retry and save-delay timers can be driven deterministically in tests.
package clock

import "time"

// Timer is a handle to a pending callback scheduled with AfterFunc.
type Timer interface {
	// Stop cancels the timer. It reports whether the call stopped the
	// timer before the callback fired.
	Stop() bool

	// Reset re-arms the timer to fire after d. It reports whether the
	// timer had been active.
	Reset(d time.Duration) bool
}

// Clock abstracts the ambient timer primitives used by this module.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// AfterFunc schedules fn to run in its own goroutine after d.
	AfterFunc(d time.Duration, fn func()) Timer
}

// System returns a Clock backed by the time package.
func System() Clock {
	return systemClock{}
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}

func (systemClock) AfterFunc(d time.Duration, fn func()) Timer {
	return systemTimer{time.AfterFunc(d, fn)}
}

type systemTimer struct {
	t *time.Timer
}

func (st systemTimer) Stop() bool {
	return st.t.Stop()
}

func (st systemTimer) Reset(d time.Duration) bool {
	return st.t.Reset(d)
}
