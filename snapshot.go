package asynctimer

import (
	"encoding/json"
	"log/slog"
	"time"

	"braces.dev/errtrace"
)

// TimerSnapshot is a deterministic view of a timer's state, safe to persist
// or log. Runtime-only state (the callback, the loop goroutine, channels) is
// intentionally excluded; a snapshot describes a timer, it cannot resume one.
type TimerSnapshot struct {
	Mode        Mode          `json:"mode"`
	State       TimerState    `json:"state"`
	Duration    time.Duration `json:"duration,omitempty"`
	StartedAt   time.Time     `json:"started_at,omitzero"`
	StoppedAt   time.Time     `json:"stopped_at,omitzero"`
	Generation  uint64        `json:"generation"`
	Invocations uint64        `json:"invocations"`
}

// LogValue implements [slog.LogValuer].
func (s *TimerSnapshot) LogValue() slog.Value {
	if s == nil {
		return slog.Value{}
	}
	attrs := []slog.Attr{
		slog.Any("mode", s.Mode),
		slog.Any("state", s.State),
		slog.Uint64("generation", s.Generation),
		slog.Uint64("invocations", s.Invocations),
	}
	if s.Duration > 0 {
		attrs = append(attrs, slog.Duration("duration", s.Duration))
	}
	return slog.GroupValue(attrs...)
}

// Snapshot returns the current deterministic state of the timer.
func (t *Timer[T]) Snapshot() *TimerSnapshot {
	if t == nil {
		return nil
	}

	snap := &TimerSnapshot{
		Mode:       t.Mode(),
		State:      t.State(),
		Generation: t.Generation(),
	}
	if rn := t.cur.Load(); rn != nil {
		snap.Duration = rn.dur
		snap.StartedAt = rn.startedAt
		if end := rn.stoppedAtNano.Load(); end != 0 {
			snap.StoppedAt = time.Unix(0, end)
		}
		snap.Invocations = rn.res.Invocations()
	}
	return snap
}

// MarshalJSON implements json.Marshaler.
func (t *Timer[T]) MarshalJSON() ([]byte, error) {
	return errtrace.Wrap2(json.Marshal(t.Snapshot()))
}
