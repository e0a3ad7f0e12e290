// Package timing provides the clock layer used by asynctimer: a minimal
// Timer/Clock abstraction over the standard library time package, plus a
// virtual clock for deterministic tests.
//
// In normal operation all constructors delegate to real time. Setting
// MockMode to true before any timers are created switches the package to a
// virtual clock that only advances through explicit Elapse calls:
//
//	timing.MockMode = true
//	tmr := timing.NewTimer(5 * time.Second)
//	timing.Elapse(5 * time.Second) // tmr.C() receives now
//
// MockMode is process-global and intended for sequential test code; it must
// not be toggled while timers are in flight.
package timing
