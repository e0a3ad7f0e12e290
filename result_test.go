package asynctimer_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ghettovoice/asynctimer"
	"github.com/ghettovoice/asynctimer/log"
)

func TestResult_ReadyBeforeDone(t *testing.T) {
	t.Parallel()

	tmr := asynctimer.New[int](&asynctimer.TimerOptions{Mode: asynctimer.ModePeriodic, Log: log.Noop()})

	release := make(chan struct{})
	res, err := tmr.Start(t.Context(), 5*time.Millisecond, func(context.Context) (int, error) {
		<-release
		return 7, nil
	})
	if err != nil {
		t.Fatalf("tmr.Start() error = %v, want nil", err)
	}

	select {
	case <-res.Ready():
		t.Fatal("result ready before any invocation outcome")
	default:
	}

	close(release)
	awaitSignal(t, res.Ready(), time.Second, "result never became ready")

	// A periodic run stays live after the first outcome.
	select {
	case <-res.Done():
		t.Fatal("result done while the loop is still running")
	default:
	}

	if got, ok := res.Last(); !ok || got != 7 {
		t.Fatalf("res.Last() = (%d, %t), want (7, true)", got, ok)
	}

	tmr.Stop()
	awaitDone(t, res, time.Second)
}

func TestResult_GetHonorsContext(t *testing.T) {
	t.Parallel()

	tmr := asynctimer.New[int](&asynctimer.TimerOptions{Log: log.Noop()})

	res, err := tmr.Start(t.Context(), time.Hour, func(context.Context) (int, error) { return 1, nil })
	if err != nil {
		t.Fatalf("tmr.Start() error = %v, want nil", err)
	}

	ctx, cancel := context.WithTimeout(t.Context(), 10*time.Millisecond)
	defer cancel()
	if _, err := res.Get(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("res.Get() error = %v, want %v", err, context.DeadlineExceeded)
	}

	tmr.Stop()
	awaitDone(t, res, time.Second)
}

func TestResult_PeriodicKeepsLatest(t *testing.T) {
	t.Parallel()

	tmr := asynctimer.New[int](&asynctimer.TimerOptions{Mode: asynctimer.ModePeriodic, Log: log.Noop()})

	hits := make(chan int, 16)
	var n int
	res, err := tmr.Start(t.Context(), time.Millisecond, func(context.Context) (int, error) {
		n++
		hits <- n
		return n, nil
	})
	if err != nil {
		t.Fatalf("tmr.Start() error = %v, want nil", err)
	}

	var last int
	for last < 3 {
		select {
		case last = <-hits:
		case <-time.After(time.Second):
			t.Fatal("periodic timer stalled")
		}
	}
	tmr.Stop()
	awaitDone(t, res, time.Second)

	got, err := res.Get(t.Context())
	if err != nil {
		t.Fatalf("res.Get() error = %v, want nil", err)
	}
	if want, _ := res.Last(); got != want {
		t.Fatalf("res.Get() = %d, want latest outcome %d", got, want)
	}
	if got < 3 {
		t.Fatalf("res.Get() = %d, want >= 3", got)
	}
	if inv := res.Invocations(); inv != uint64(got) {
		t.Fatalf("res.Invocations() = %d, want %d", inv, got)
	}
}

func TestResult_ErrKeepsLatestError(t *testing.T) {
	t.Parallel()

	tmr := asynctimer.New[int](&asynctimer.TimerOptions{Mode: asynctimer.ModePeriodic, Log: log.Noop()})

	errOdd := errors.New("odd tick")
	hits := make(chan int, 16)
	var n int
	res, err := tmr.Start(t.Context(), time.Millisecond, func(context.Context) (int, error) {
		n++
		hits <- n
		if n%2 == 1 {
			return 0, errOdd
		}
		return n, nil
	})
	if err != nil {
		t.Fatalf("tmr.Start() error = %v, want nil", err)
	}

	for tick := 0; tick < 2; {
		select {
		case tick = <-hits:
		case <-time.After(time.Second):
			t.Fatal("periodic timer stalled")
		}
	}
	tmr.Stop()
	awaitDone(t, res, time.Second)

	inv := res.Invocations()
	if inv < 2 {
		t.Fatalf("res.Invocations() = %d, want >= 2", inv)
	}
	if inv%2 == 1 {
		if got := res.Err(); !errors.Is(got, errOdd) {
			t.Fatalf("res.Err() = %v, want %v", got, errOdd)
		}
	} else if got := res.Err(); got != nil {
		t.Fatalf("res.Err() = %v, want nil", got)
	}
}
