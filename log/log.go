// Package log exposes the loggers used across asynctimer.
//
// The package default is a silent logger so the library never writes to the
// process output unless asked to. Call [SetDefault] with [Console] or [Dev]
// (or any custom slog logger) to turn logging on globally, or pass a logger
// per timer through TimerOptions.
package log

import (
	"log/slog"
	"sync/atomic"

	"github.com/ghettovoice/asynctimer/internal/log"
)

var def atomic.Pointer[slog.Logger]

func init() { def.Store(log.Noop) }

// Default returns the process-wide default logger used when no logger is
// configured per timer.
func Default() *slog.Logger { return def.Load() }

// SetDefault replaces the process-wide default logger.
// A nil logger resets it to [Noop].
func SetDefault(l *slog.Logger) {
	if l == nil {
		l = log.Noop
	}
	def.Store(l)
}

// Console returns a human-readable console logger at debug level.
func Console() *slog.Logger { return log.Def }

// Dev returns a developer logger with verbose, sorted output.
func Dev() *slog.Logger { return log.Dev }

// Noop returns a logger that discards everything.
func Noop() *slog.Logger { return log.Noop }
