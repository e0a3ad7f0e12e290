package timing

//go:generate mockgen -package timingmock -destination ../internal/testutil/timingmock/timing.go github.com/ghettovoice/asynctimer/timing Clock,Timer

import "time"

// MockMode enables the virtual clock. It must be set before any timers are
// created and never toggled while timers are in flight.
var MockMode bool

// Timer is a single-fire countdown, the subset of [time.Timer] the package
// needs plus an accessor for the fire channel.
type Timer interface {
	// C returns the channel on which the fire time is delivered.
	C() <-chan time.Time
	// Stop prevents the timer from firing. It reports whether the call
	// stopped the timer, false if it had already fired or been stopped.
	Stop() bool
	// Reset re-arms the timer to fire after duration d, counted from now.
	// It reports whether the timer had been active.
	Reset(d time.Duration) bool
}

// Clock creates timers and reports the current time. The zero-value system
// clock honors [MockMode], so injected code stays testable with virtual time.
type Clock interface {
	NewTimer(d time.Duration) Timer
	Now() time.Time
}

type systemClock struct{}

func (systemClock) NewTimer(d time.Duration) Timer { return NewTimer(d) }

func (systemClock) Now() time.Time { return Now() }

// SystemClock returns the default clock. It delegates to the package-level
// constructors and therefore follows [MockMode].
func SystemClock() Clock { return systemClock{} }

// NewTimer creates a timer that delivers the current time on its channel
// after at least duration d. A non-positive d fires immediately.
func NewTimer(d time.Duration) Timer {
	if MockMode {
		return newMockTimer(d, nil)
	}
	tmr := time.NewTimer(d)
	return &realTimer{tmr: tmr}
}

// AfterFunc creates a timer that calls f in its own goroutine after at least
// duration d. The returned timer's channel is never used.
func AfterFunc(d time.Duration, f func()) Timer {
	if MockMode {
		return newMockTimer(d, f)
	}
	return &realTimer{tmr: time.AfterFunc(d, f)}
}

// After waits for duration d to elapse and then delivers the current time on
// the returned channel.
func After(d time.Duration) <-chan time.Time {
	return NewTimer(d).C()
}

// Now returns the current time of the active clock.
func Now() time.Time {
	if MockMode {
		return mockNow()
	}
	return time.Now()
}

// Sleep blocks until duration d has elapsed on the active clock.
func Sleep(d time.Duration) {
	<-After(d)
}

type realTimer struct {
	tmr *time.Timer
}

func (t *realTimer) C() <-chan time.Time { return t.tmr.C }

func (t *realTimer) Stop() bool { return t.tmr.Stop() }

func (t *realTimer) Reset(d time.Duration) bool { return t.tmr.Reset(d) }
