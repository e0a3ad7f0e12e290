package asynctimer

import (
	"context"
	"sync"

	"braces.dev/errtrace"
)

// Result is the handle through which the outcome of a timer run is delivered.
//
// A result becomes ready once the run has produced at least one invocation
// outcome, or terminated without one (a stopped one-shot). For a periodic run
// every invocation updates the latest outcome; read the final one after
// [Result.Done] is closed.
//
// The handle has single-producer semantics: only the run's loop writes to it.
// Any number of goroutines may read.
type Result[T any] struct {
	ready     chan struct{}
	done      chan struct{}
	readyOnce sync.Once
	doneOnce  sync.Once

	mu      sync.Mutex
	val     T
	err     error
	invoked uint64
}

func newResult[T any]() *Result[T] {
	return &Result[T]{
		ready: make(chan struct{}),
		done:  make(chan struct{}),
	}
}

// Ready returns a channel that is closed once the result is ready: the run
// produced at least one invocation outcome or terminated without one.
func (r *Result[T]) Ready() <-chan struct{} { return r.ready }

// Done returns a channel that is closed once the run's loop has fully
// terminated. After Done, [Result.Last] and [Result.Err] observe the final
// invocation's outcome and no further updates occur.
func (r *Result[T]) Done() <-chan struct{} { return r.done }

// Get blocks until the result is ready or ctx is done, then returns the
// latest invocation's outcome.
//
// If the run terminated without any invocation (a one-shot stopped before its
// deadline), Get returns the zero value and [ErrStopped].
func (r *Result[T]) Get(ctx context.Context) (T, error) {
	select {
	case <-r.ready:
	case <-ctx.Done():
		var zero T
		return zero, errtrace.Wrap(ctx.Err())
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.invoked == 0 {
		var zero T
		return zero, errtrace.Wrap(ErrStopped)
	}
	return r.val, r.err
}

// Last returns the latest invocation's value and whether any invocation
// happened yet. It never blocks.
func (r *Result[T]) Last() (T, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.val, r.invoked > 0
}

// Err returns the latest invocation's error, if any. It never blocks.
func (r *Result[T]) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// Invocations returns the number of callback invocations recorded so far.
func (r *Result[T]) Invocations() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.invoked
}

// publish records one invocation outcome and marks the result ready.
func (r *Result[T]) publish(val T, err error) {
	r.mu.Lock()
	r.val = val
	r.err = err
	r.invoked++
	r.mu.Unlock()

	r.readyOnce.Do(func() { close(r.ready) })
}

// terminate marks the run as fully ended. A run that never invoked resolves
// here to the stopped outcome.
func (r *Result[T]) terminate() {
	r.readyOnce.Do(func() { close(r.ready) })
	r.doneOnce.Do(func() { close(r.done) })
}
