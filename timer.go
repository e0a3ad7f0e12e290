package asynctimer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"braces.dev/errtrace"
	"github.com/qmuntal/stateless"

	ilog "github.com/ghettovoice/asynctimer/internal/log"
	"github.com/ghettovoice/asynctimer/timing"
)

// TimerState represents the current state of a timer instance.
type TimerState string

const (
	// TimerStateIdle indicates that no wait/invoke loop is active.
	TimerStateIdle TimerState = "idle"
	// TimerStateWaiting indicates the loop is blocked in a deadline wait.
	TimerStateWaiting TimerState = "waiting"
	// TimerStateInvoking indicates the callback is running.
	TimerStateInvoking TimerState = "invoking"
	// TimerStateTerminating indicates the loop is tearing down.
	TimerStateTerminating TimerState = "terminating"
)

func (s TimerState) String() string { return string(s) }

// Func is the callback invoked when the timer fires. The context is the
// timer's own context, see [Timer.Context]; the timer can be retrieved from
// it with [TimerFromContext].
type Func[T any] func(ctx context.Context) (T, error)

// Timer is an asynchronous, cancellable, restartable timer.
//
// After [Timer.Start] the callback is invoked on a background goroutine after
// the given delay, once ([ModeOneShot]) or repeatedly at that interval
// ([ModePeriodic]) until stopped. At most one loop is active per instance:
// starting a running timer first tears the old loop down and waits for its
// termination, then begins a fresh one.
//
// A Timer must be created with [New] and must not be copied after first use:
// its synchronization state is tied to the instance. Discarding a timer while
// a loop is active is a caller error; call [Timer.Stop] and wait on the
// result's [Result.Done] channel first.
type Timer[T any] struct {
	fsm   *stateless.StateMachine
	clock timing.Clock
	log   *slog.Logger
	ctx   context.Context

	// startMu serializes Start calls so two restarters never race for the
	// same outgoing loop.
	startMu sync.Mutex
	running atomic.Bool
	mode    atomic.Value // Mode
	gen     atomic.Uint64

	// activeLoops counts live loop goroutines; the loop asserts it never
	// exceeds one.
	activeLoops atomic.Int32

	cur atomic.Pointer[run[T]]
}

// run is the per-Start state of one wait/invoke loop. The stop and done
// channels are deliberately distinct so a stop request never blocks against
// an in-progress deadline wait.
type run[T any] struct {
	gen       uint64
	dur       time.Duration
	startedAt time.Time

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
	res      *Result[T]

	armedAtNano   atomic.Int64
	stoppedAtNano atomic.Int64
}

func (r *run[T]) requestStop() {
	r.stopOnce.Do(func() { close(r.stop) })
}

func (r *run[T]) stopRequested() bool {
	select {
	case <-r.stop:
		return true
	default:
		return false
	}
}

const timerCtxKey ctxKey = "timer"

type ctxKey string

// TimerFromContext retrieves the timer from a callback context.
func TimerFromContext[T any](ctx context.Context) (*Timer[T], bool) {
	t, ok := ctx.Value(timerCtxKey).(*Timer[T])
	return t, ok
}

// New creates an idle timer with the given options.
// Options may be nil, see [TimerOptions] for the defaults.
func New[T any](opts *TimerOptions) *Timer[T] {
	t := &Timer[T]{
		clock: opts.clock(),
		log:   opts.log(),
	}
	t.mode.Store(opts.mode())
	t.ctx = context.WithValue(context.Background(), timerCtxKey, t)
	t.initFSM()
	return t
}

const (
	evtStart               = "start"
	evtDeadlineElapsed     = "deadline_elapsed"
	evtDeadlineInterrupted = "deadline_interrupted"
	evtInvoked             = "invoked"
	evtCallbackFailed      = "callback_failed"
	evtTerminated          = "terminated"
)

func (t *Timer[T]) initFSM() {
	fsm := stateless.NewStateMachine(TimerStateIdle)

	fsm.Configure(TimerStateIdle).
		Permit(evtStart, TimerStateWaiting)

	fsm.Configure(TimerStateWaiting).
		OnEntryFrom(evtStart, t.actStarted).
		Permit(evtDeadlineElapsed, TimerStateInvoking).
		Permit(evtDeadlineInterrupted, TimerStateTerminating)

	fsm.Configure(TimerStateInvoking).
		OnEntry(t.actInvoking).
		Permit(evtInvoked, TimerStateWaiting, t.guardRearm).
		Permit(evtInvoked, TimerStateTerminating, t.guardNoRearm).
		Permit(evtCallbackFailed, TimerStateTerminating)

	fsm.Configure(TimerStateTerminating).
		OnEntry(t.actTerminating).
		Permit(evtTerminated, TimerStateIdle)

	t.fsm = fsm
}

func (t *Timer[T]) fire(trigger string) {
	if err := t.fsm.FireCtx(t.ctx, trigger); err != nil {
		panic(fmt.Errorf("fire %q in state %q: %w", trigger, t.State(), err))
	}
}

// guardRearm allows Invoking -> Waiting only for a periodic run with no stop
// observed; guardNoRearm is its exact complement so evtInvoked always has one
// enabled transition.
func (t *Timer[T]) guardRearm(context.Context, ...any) bool {
	rn := t.cur.Load()
	return t.Mode() == ModePeriodic && t.running.Load() && rn != nil && !rn.stopRequested()
}

func (t *Timer[T]) guardNoRearm(ctx context.Context, args ...any) bool {
	return !t.guardRearm(ctx, args...)
}

func (t *Timer[T]) actStarted(ctx context.Context, _ ...any) error {
	t.log.LogAttrs(ctx, slog.LevelDebug, "timer started", slog.Any("timer", t))
	return nil
}

func (t *Timer[T]) actInvoking(ctx context.Context, _ ...any) error {
	t.log.LogAttrs(ctx, slog.LevelDebug, "deadline elapsed, invoking callback", slog.Any("timer", t))
	return nil
}

func (t *Timer[T]) actTerminating(ctx context.Context, _ ...any) error {
	t.log.LogAttrs(ctx, slog.LevelDebug, "timer terminating", slog.Any("timer", t),
		slog.Any("snapshot", ilog.CalcValue(func() any { return t.Snapshot() })))
	return nil
}

// LogValue implements [slog.LogValuer].
func (t *Timer[T]) LogValue() slog.Value {
	if t == nil {
		return slog.Value{}
	}
	return slog.GroupValue(
		slog.Any("state", t.State()),
		slog.Any("mode", t.Mode()),
		slog.Uint64("generation", t.Generation()),
	)
}

// Context returns the timer's context, the one passed to callbacks.
func (t *Timer[T]) Context() context.Context { return t.ctx }

// State returns the current timer state.
func (t *Timer[T]) State() TimerState {
	return t.fsm.MustState().(TimerState) //nolint:forcetypeassert
}

// Mode returns the current firing mode.
func (t *Timer[T]) Mode() Mode {
	return t.mode.Load().(Mode) //nolint:forcetypeassert
}

// SetMode changes the firing mode. Changing the mode while a loop is active
// takes effect starting with the next iteration, not retroactively.
func (t *Timer[T]) SetMode(m Mode) error {
	if !m.IsValid() {
		return errtrace.Wrap(NewInvalidArgumentError("unknown mode %q", string(m)))
	}
	t.mode.Store(m)
	return nil
}

// SetSingleShot switches the firing mode to [ModeOneShot] when single is
// true, [ModePeriodic] otherwise. See [Timer.SetMode] for the timing of the
// change.
func (t *Timer[T]) SetSingleShot(single bool) {
	if single {
		t.mode.Store(ModeOneShot)
	} else {
		t.mode.Store(ModePeriodic)
	}
}

// SetPeriodic switches the firing mode to [ModePeriodic].
// See [Timer.SetMode] for the timing of the change.
func (t *Timer[T]) SetPeriodic() { t.mode.Store(ModePeriodic) }

// Running reports whether a wait/invoke loop is active.
func (t *Timer[T]) Running() bool { return t.running.Load() }

// Generation returns the number of loops started over the timer's lifetime.
// It increases by exactly one per accepted Start call.
func (t *Timer[T]) Generation() uint64 { return t.gen.Load() }

// Elapsed returns the time elapsed since the current (or last) run started.
func (t *Timer[T]) Elapsed() time.Duration {
	rn := t.cur.Load()
	if rn == nil {
		return 0
	}
	if end := rn.stoppedAtNano.Load(); end != 0 {
		return time.Unix(0, end).Sub(rn.startedAt)
	}
	return t.clock.Now().Sub(rn.startedAt)
}

// Left returns the time remaining until the current deadline wait expires,
// or 0 when no wait is in flight.
func (t *Timer[T]) Left() time.Duration {
	rn := t.cur.Load()
	if rn == nil || !t.running.Load() {
		return 0
	}
	armed := rn.armedAtNano.Load()
	if armed == 0 {
		return 0
	}
	left := time.Unix(0, armed).Add(rn.dur).Sub(t.clock.Now())
	if left < 0 {
		return 0
	}
	return left
}

// Start schedules the callback to run after duration d, once or repeatedly
// according to the timer's mode, and returns the handle for the run's
// eventual outcome.
//
// If a loop is already active, Start first signals it to stop, waits for its
// termination (including any in-flight callback invocation running to
// completion), and only then begins the new loop; ctx bounds that wait. Two
// loops are never active at once.
//
// A negative d is rejected with [ErrInvalidArgument]; zero is legal and fires
// immediately.
func (t *Timer[T]) Start(ctx context.Context, d time.Duration, fn Func[T]) (*Result[T], error) {
	if d < 0 {
		return nil, errtrace.Wrap(NewInvalidArgumentError("negative duration %s", d))
	}
	if fn == nil {
		return nil, errtrace.Wrap(NewInvalidArgumentError("nil callback"))
	}

	t.startMu.Lock()
	defer t.startMu.Unlock()

	if old := t.cur.Load(); old != nil {
		if t.running.Load() {
			t.log.LogAttrs(ctx, slog.LevelDebug, "restarting, stopping active loop", slog.Any("timer", t))
			t.running.Store(false)
			old.requestStop()
		}
		// The old loop may still be past its stop check; wait for its
		// termination signal before touching any new state.
		select {
		case <-old.done:
		case <-ctx.Done():
			return nil, errtrace.Wrap(ctx.Err())
		}
	}

	rn := &run[T]{
		gen:       t.gen.Add(1),
		dur:       d,
		startedAt: t.clock.Now(),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
		res:       newResult[T](),
	}
	t.cur.Store(rn)
	t.running.Store(true)
	t.fire(evtStart)

	go t.loop(rn, fn)

	return rn.res, nil
}

// StartOneShot switches the timer to [ModeOneShot] and starts it.
func (t *Timer[T]) StartOneShot(ctx context.Context, d time.Duration, fn Func[T]) (*Result[T], error) {
	t.mode.Store(ModeOneShot)
	return errtrace.Wrap2(t.Start(ctx, d, fn))
}

// StartPeriodic switches the timer to [ModePeriodic] and starts it.
func (t *Timer[T]) StartPeriodic(ctx context.Context, d time.Duration, fn Func[T]) (*Result[T], error) {
	t.mode.Store(ModePeriodic)
	return errtrace.Wrap2(t.Start(ctx, d, fn))
}

// Stop requests termination of the active loop. It never blocks and is
// idempotent; on an idle timer it is a no-op.
//
// Stop is a request, not a synchronous guarantee: an in-flight callback
// invocation always runs to completion, only the next deadline wait or
// invocation is suppressed. Wait on the result's [Result.Done] channel to
// observe the termination.
func (t *Timer[T]) Stop() {
	rn := t.cur.Load()
	if rn == nil {
		return
	}
	rn.requestStop()
}

// loop drives repeated deadline-wait/invoke cycles for a single run.
// All state machine triggers except evtStart are fired from here.
func (t *Timer[T]) loop(rn *run[T], fn Func[T]) {
	if n := t.activeLoops.Add(1); n != 1 {
		panic(fmt.Sprintf("asynctimer: %d concurrent timer loops", n))
	}

	// Termination bookkeeping runs on every exit path, including a
	// panicking callback: clear running, settle the state machine, resolve
	// the result, and signal any restart waiter last.
	defer func() {
		t.activeLoops.Add(-1)
		t.running.Store(false)
		rn.stoppedAtNano.Store(t.clock.Now().UnixNano())
		if t.State() == TimerStateTerminating {
			t.fire(evtTerminated)
		}
		rn.res.terminate()
		close(rn.done)
	}()

	for {
		elapsed := t.waitDeadline(rn)
		if !elapsed || !t.running.Load() || rn.stopRequested() {
			t.fire(evtDeadlineInterrupted)
			return
		}
		t.fire(evtDeadlineElapsed)

		val, err, panicked := t.invoke(fn)
		rn.res.publish(val, err)
		if panicked {
			t.log.LogAttrs(t.ctx, slog.LevelError, "callback panicked", slog.Any("timer", t), slog.Any("error", err))
			t.fire(evtCallbackFailed)
			return
		}
		if err != nil {
			t.log.LogAttrs(t.ctx, slog.LevelWarn, "callback returned error", slog.Any("timer", t), slog.Any("error", err))
		}

		t.fire(evtInvoked)
		if t.State() != TimerStateWaiting {
			return
		}
	}
}

// waitDeadline blocks until the run's duration elapses or a stop arrives,
// whichever is first, and reports whether the deadline elapsed naturally.
// It is a single timed block: no busy polling, and it never returns before
// the requested duration unless a stop was requested.
func (t *Timer[T]) waitDeadline(rn *run[T]) bool {
	if rn.stopRequested() || !t.running.Load() {
		return false
	}

	rn.armedAtNano.Store(t.clock.Now().UnixNano())
	defer rn.armedAtNano.Store(0)

	tmr := t.clock.NewTimer(rn.dur)
	defer tmr.Stop()

	select {
	case <-tmr.C():
		return true
	case <-rn.stop:
		return false
	}
}

// invoke runs the callback, converting a panic into an error wrapping
// [ErrCallbackPanic] so loop bookkeeping survives misbehaving callbacks.
func (t *Timer[T]) invoke(fn Func[T]) (val T, err error, panicked bool) {
	defer func() {
		if p := recover(); p != nil {
			panicked = true
			err = fmt.Errorf("%w: %v", ErrCallbackPanic, p)
		}
	}()
	val, err = fn(t.ctx)
	return val, err, false
}
