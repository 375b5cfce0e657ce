package admin

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dray-io/dray-lookup/internal/adminerr"
)

// ErrPending is returned by Result before the future settles.
var ErrPending = errors.New("admin: result pending")

// Future is the pending result of one asynchronous admin call. It settles
// exactly once, either with a value or with an error; later settle attempts
// are ignored.
type Future[T any] struct {
	once  sync.Once
	done  chan struct{}
	value T
	err   error
}

// NewFuture returns an unsettled future.
func NewFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// Complete settles f with v. It reports whether this call settled f.
func (f *Future[T]) Complete(v T) bool {
	settled := false
	f.once.Do(func() {
		f.value = v
		settled = true
		close(f.done)
	})
	return settled
}

// Fail settles f with err. It reports whether this call settled f.
func (f *Future[T]) Fail(err error) bool {
	settled := false
	f.once.Do(func() {
		f.err = err
		settled = true
		close(f.done)
	})
	return settled
}

// Done is closed once f has settled.
func (f *Future[T]) Done() <-chan struct{} { return f.done }

// Settled reports whether f has a value or an error.
func (f *Future[T]) Settled() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Result returns the settled outcome without blocking, or ErrPending.
func (f *Future[T]) Result() (T, error) {
	if !f.Settled() {
		var zero T
		return zero, ErrPending
	}
	return f.value, f.err
}

// Wait blocks until f settles or ctx is done. A ctx error is returned as is.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Get is the blocking form of an async admin call. It waits at most timeout
// (no bound when timeout <= 0) and maps the wait outcome onto the admin
// error domain:
//
//   - a failed future returns its error unchanged;
//   - ctx cancellation returns a KindInterrupted error wrapping ctx.Err();
//   - an elapsed timeout returns a KindTimeout error.
//
// Giving up does not cancel the underlying request; its late outcome is kept
// by f and simply never read.
func (f *Future[T]) Get(ctx context.Context, timeout time.Duration, op, topic string) (T, error) {
	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	var zero T
	select {
	case <-f.done:
		return f.value, f.err
	default:
	}

	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		return zero, adminerr.Interrupted(op, topic, ctx.Err())
	case <-expired:
		return zero, adminerr.Timeout(op, topic, fmt.Errorf("admin: no result after %s", timeout))
	}
}
