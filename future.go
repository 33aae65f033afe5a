package proximity

import (
	"context"
	"sync/atomic"
)

// Future is the eventual result of a request. It may be observed by any
// number of goroutines; all of them see the same value or error. Cached reads
// hand the same Future to every caller asking for the same query while it is
// cached, which is how identical reads are coalesced.
type Future[T any] struct {
	done    chan struct{}
	settled atomic.Bool
	val     T
	err     error
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// Done is closed once the future settles.
func (f *Future[T]) Done() <-chan struct{} { return f.done }

// Wait blocks until the future settles or ctx is done. Giving up on ctx does
// not cancel the underlying request; use Scheduler.Cancel for that.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Result returns the settled value without blocking. ok is false while the
// future is pending.
func (f *Future[T]) Result() (v T, err error, ok bool) {
	select {
	case <-f.done:
		return f.val, f.err, true
	default:
		var zero T
		return zero, nil, false
	}
}

func (f *Future[T]) resolve(v T) { f.settle(v, nil) }

func (f *Future[T]) reject(err error) {
	var zero T
	f.settle(zero, err)
}

// settle completes the future. Completing twice is a bug in the scheduler,
// not a race to tolerate.
func (f *Future[T]) settle(v T, err error) {
	if !f.settled.CompareAndSwap(false, true) {
		panic("proximity: future settled twice")
	}
	f.val, f.err = v, err
	close(f.done)
}
