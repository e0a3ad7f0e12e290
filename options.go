package asynctimer

import (
	"log/slog"

	"github.com/ghettovoice/asynctimer/log"
	"github.com/ghettovoice/asynctimer/timing"
)

// TimerOptions contains options for a timer instance.
// The zero value is fully usable: a one-shot timer on the system clock with
// the default logger.
type TimerOptions struct {
	// Mode is the initial firing mode.
	// If zero, [ModeOneShot] is used.
	Mode Mode
	// Clock is the clock used for deadline waits and timestamps.
	// If nil, [timing.SystemClock] is used.
	Clock timing.Clock
	// Log is the logger that will be used with the timer.
	// If nil, the [log.Default] will be used.
	Log *slog.Logger
}

func (o *TimerOptions) mode() Mode {
	if o == nil || !o.Mode.IsValid() {
		return ModeOneShot
	}
	return o.Mode
}

func (o *TimerOptions) clock() timing.Clock {
	if o == nil || o.Clock == nil {
		return timing.SystemClock()
	}
	return o.Clock
}

func (o *TimerOptions) log() *slog.Logger {
	if o == nil || o.Log == nil {
		return log.Default()
	}
	return o.Log
}
