package asynctimer

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/mock/gomock"

	"github.com/ghettovoice/asynctimer/internal/testutil/timingmock"
	"github.com/ghettovoice/asynctimer/log"
)

// Hammers interleaved Start/Stop from many goroutines. The loop itself panics
// if two loops are ever concurrently active, and the sampler double-checks
// the live counter from outside.
func TestTimer_NoDoubleLoop(t *testing.T) {
	t.Parallel()

	tmr := New[int](&TimerOptions{Mode: ModePeriodic, Log: log.Noop()})
	ctx := context.Background()

	stopSampling := make(chan struct{})
	var samplerWG sync.WaitGroup
	samplerWG.Add(1)
	go func() {
		defer samplerWG.Done()
		for {
			select {
			case <-stopSampling:
				return
			default:
			}
			if n := tmr.activeLoops.Load(); n > 1 {
				t.Errorf("activeLoops = %d, want <= 1", n)
				return
			}
		}
	}()

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 25 {
				//nolint:errcheck
				tmr.Start(ctx, time.Millisecond, func(context.Context) (int, error) { return 0, nil })
				tmr.Stop()
			}
		}()
	}
	wg.Wait()

	close(stopSampling)
	samplerWG.Wait()

	tmr.Stop()
	if rn := tmr.cur.Load(); rn != nil {
		select {
		case <-rn.done:
		case <-time.After(time.Second):
			t.Fatal("last loop did not terminate")
		}
	}
	if got := tmr.activeLoops.Load(); got != 0 {
		t.Fatalf("activeLoops = %d after shutdown, want 0", got)
	}
}

// The deadline wait must be a single timed block per iteration: exactly one
// clock timer is created, and it is stopped when the wait is interrupted.
func TestTimer_WaitDeadlineSingleTimedBlock(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)

	fireC := make(chan time.Time) // never fires

	clockTmr := timingmock.NewMockTimer(ctrl)
	clockTmr.EXPECT().C().Return((<-chan time.Time)(fireC)).AnyTimes()
	clockTmr.EXPECT().Stop().Return(true).Times(1)

	clock := timingmock.NewMockClock(ctrl)
	clock.EXPECT().Now().Return(time.Unix(0, 0)).AnyTimes()
	clock.EXPECT().NewTimer(5*time.Second).Return(clockTmr).Times(1)

	tmr := New[struct{}](&TimerOptions{Clock: clock, Log: log.Noop()})

	res, err := tmr.Start(context.Background(), 5*time.Second, func(context.Context) (struct{}, error) {
		return struct{}{}, nil
	})
	if err != nil {
		t.Fatalf("tmr.Start() error = %v, want nil", err)
	}

	// Wait until the loop has armed its deadline wait.
	deadline := time.Now().Add(time.Second)
	for tmr.cur.Load().armedAtNano.Load() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("loop never armed a deadline wait")
		}
		time.Sleep(time.Millisecond)
	}

	tmr.Stop()
	select {
	case <-res.Done():
	case <-time.After(time.Second):
		t.Fatal("interrupted loop did not terminate")
	}

	if got, want := res.Invocations(), uint64(0); got != want {
		t.Fatalf("res.Invocations() = %d, want %d", got, want)
	}
}

func TestTimer_GenerationStampsLoopEntry(t *testing.T) {
	t.Parallel()

	tmr := New[int](&TimerOptions{Log: log.Noop()})
	ctx := context.Background()

	var prevGen uint64
	for i := 0; i < 5; i++ {
		res, err := tmr.Start(ctx, time.Hour, func(context.Context) (int, error) { return 0, nil })
		if err != nil {
			t.Fatalf("tmr.Start() error = %v, want nil", err)
		}
		rn := tmr.cur.Load()
		if rn.gen <= prevGen {
			t.Fatalf("run generation = %d, want > %d", rn.gen, prevGen)
		}
		prevGen = rn.gen
		_ = res
	}

	tmr.Stop()
	select {
	case <-tmr.cur.Load().done:
	case <-time.After(time.Second):
		t.Fatal("loop did not terminate")
	}
}
