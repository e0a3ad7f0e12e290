package timing

import (
	"slices"
	"sync"
	"time"
)

// Virtual clock state. All registered mock timers share it; Elapse is the
// only way it moves forward.
var mock = struct {
	sync.Mutex
	now    time.Time
	timers []*mockTimer
}{now: time.Unix(0, 0)}

func mockNow() time.Time {
	mock.Lock()
	defer mock.Unlock()
	return mock.now
}

// Elapse advances the virtual clock by d and fires every due timer in
// chronological order. It panics if MockMode is disabled.
func Elapse(d time.Duration) {
	if !MockMode {
		panic("timing: Elapse called without MockMode")
	}

	mock.Lock()
	mock.now = mock.now.Add(d)
	now := mock.now

	var due []*mockTimer
	for _, tmr := range mock.timers {
		if tmr.active && !tmr.fireAt.After(now) {
			tmr.active = false
			due = append(due, tmr)
		}
	}
	mock.Unlock()

	slices.SortStableFunc(due, func(a, b *mockTimer) int {
		return a.fireAt.Compare(b.fireAt)
	})
	for _, tmr := range due {
		tmr.fire(now)
	}
}

type mockTimer struct {
	c  chan time.Time
	fn func()

	// guarded by mock.Mutex
	fireAt time.Time
	active bool
}

func newMockTimer(d time.Duration, fn func()) *mockTimer {
	tmr := &mockTimer{
		// Capacity 1 matches time.Timer: a fire is never dropped and the
		// firing goroutine never blocks.
		c:  make(chan time.Time, 1),
		fn: fn,
	}

	mock.Lock()
	tmr.fireAt = mock.now.Add(d)
	tmr.active = true
	mock.timers = append(mock.timers, tmr)
	fireNow := !tmr.fireAt.After(mock.now)
	if fireNow {
		tmr.active = false
	}
	now := mock.now
	mock.Unlock()

	if fireNow {
		tmr.fire(now)
	}
	return tmr
}

func (t *mockTimer) fire(now time.Time) {
	if t.fn != nil {
		go t.fn()
		return
	}
	select {
	case t.c <- now:
	default:
	}
}

func (t *mockTimer) C() <-chan time.Time { return t.c }

func (t *mockTimer) Stop() bool {
	mock.Lock()
	defer mock.Unlock()

	wasActive := t.active
	t.active = false
	return wasActive
}

func (t *mockTimer) Reset(d time.Duration) bool {
	mock.Lock()
	wasActive := t.active
	t.fireAt = mock.now.Add(d)
	t.active = true
	fireNow := !t.fireAt.After(mock.now)
	if fireNow {
		t.active = false
	}
	now := mock.now
	mock.Unlock()

	// Drain a stale fire so a reset timer behaves like a fresh one.
	select {
	case <-t.c:
	default:
	}

	if fireNow {
		t.fire(now)
	}
	return wasActive
}
