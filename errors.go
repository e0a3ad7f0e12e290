package asynctimer

import "github.com/ghettovoice/asynctimer/internal/errorutil"

// Common errors.
const (
	ErrInvalidArgument = errorutil.ErrInvalidArgument
	// ErrStopped is the resolved outcome of a one-shot run that was stopped
	// before its deadline: the callback never ran and the result carries no
	// value. It is a defined outcome, not a failure of the timer itself.
	ErrStopped Error = "timer stopped"
	// ErrCallbackPanic wraps a panic recovered from the callback.
	ErrCallbackPanic Error = "callback panic"
)

// Error represents an asynctimer error.
// See [errorutil.Error].
type Error = errorutil.Error

// NewInvalidArgumentError creates a new error with [ErrInvalidArgument] or
// wraps provided error with [ErrInvalidArgument].
func NewInvalidArgumentError(args ...any) error {
	return errorutil.NewInvalidArgumentError(args...) //errtrace:skip
}
