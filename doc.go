// Package asynctimer provides an asynchronous, cancellable, restartable
// timer: after a caller-specified delay it invokes a callback either once
// (one-shot) or repeatedly at that interval (periodic), on a background
// goroutine, and delivers the outcome through an asynchronous result handle.
//
// Each timer manages exactly one logical countdown. Running many timers means
// running many independent instances; there is no shared scheduler, deadline
// heap, or wheel.
//
// Basic usage:
//
//	tmr := asynctimer.New[string](nil)
//	res, err := tmr.Start(ctx, 100*time.Millisecond, func(ctx context.Context) (string, error) {
//	    return "fired", nil
//	})
//	if err != nil {
//	    // invalid configuration, no loop started
//	}
//	val, err := res.Get(ctx) // "fired", nil
//
// Stopping a one-shot before its deadline is a defined outcome, not a
// failure: the callback never runs and Get returns [ErrStopped].
//
//	res, _ = tmr.Start(ctx, time.Second, fn)
//	tmr.Stop()
//	_, err = res.Get(ctx) // errors.Is(err, asynctimer.ErrStopped)
//
// Calling Start on a running timer restarts it: the active loop is signaled
// to stop, Start waits for it to fully terminate (an in-flight callback
// always completes), and only then begins the new loop. Two loops are never
// active at once for the same instance.
//
// All operations are safe for concurrent use. The only caller obligation is
// lifetime: stop the timer and wait on the result's Done channel before
// discarding an instance, and do not call Start or Stop on the same instance
// from inside its own callback without accounting for the restart wait.
package asynctimer
