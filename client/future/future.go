// Package future provides a single-assignment result container with
// completion signaling and callback composition. A Future is completed at
// most once; later completion attempts are ignored.
package future

import (
	"fmt"
	"sync"

	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("future")

// Callback is invoked with the completed future as its only argument.
type Callback[T any] func(*Future[T])

// Future is a value that may not be available yet. It is completed exactly
// once by SetResult or SetErr; whichever call comes first wins and every
// later call is a no-op.
type Future[T any] struct {
	mu        sync.Mutex
	result    T
	err       error
	resolved  bool
	callbacks []Callback[T]
	done      chan struct{}
}

// New creates an unresolved future.
func New[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// --------------------------------------------------------------------------
// Completion
// --------------------------------------------------------------------------

// SetResult completes the future with a value. Returns false if the future
// was already completed.
func (f *Future[T]) SetResult(result T) bool {
	return f.complete(result, nil)
}

// SetErr completes the future with an error. Returns false if the future
// was already completed.
func (f *Future[T]) SetErr(err error) bool {
	var zero T
	return f.complete(zero, err)
}

func (f *Future[T]) complete(result T, err error) bool {
	f.mu.Lock()
	if f.resolved {
		f.mu.Unlock()
		return false
	}
	f.result = result
	f.err = err
	f.resolved = true
	callbacks := f.callbacks
	f.callbacks = nil
	close(f.done)
	f.mu.Unlock()

	// Callbacks run outside the lock, in registration order. A callback
	// registered concurrently observes resolved==true and runs itself.
	for _, callback := range callbacks {
		f.invoke(callback)
	}
	return true
}

// invoke runs a single callback, isolating failures so one bad callback
// cannot abort its siblings or reach the resolver.
func (f *Future[T]) invoke(callback Callback[T]) {
	defer func() {
		if r := recover(); r != nil {
			Logger.Errorf("panic in future callback: %v", r)
		}
	}()
	callback(f)
}

// --------------------------------------------------------------------------
// Inspection
// --------------------------------------------------------------------------

// Result blocks the calling goroutine until the future is completed and
// returns the stored value or error.
func (f *Future[T]) Result() (T, error) {
	<-f.done
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.result, f.err
}

// Done reports whether the future is completed without blocking.
func (f *Future[T]) Done() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// DoneCh returns a channel that is closed when the future completes. It
// allows select-based waiting next to other channels.
func (f *Future[T]) DoneCh() <-chan struct{} {
	return f.done
}

// --------------------------------------------------------------------------
// Composition
// --------------------------------------------------------------------------

// AddDoneCallback registers a callback to run with the future once it is
// completed. If the future is already completed the callback runs
// immediately on the calling goroutine.
func (f *Future[T]) AddDoneCallback(callback Callback[T]) {
	f.mu.Lock()
	if !f.resolved {
		f.callbacks = append(f.callbacks, callback)
		f.mu.Unlock()
		return
	}
	f.mu.Unlock()

	f.invoke(callback)
}

// ContinueWith chains a transformation onto f. The returned future resolves
// with fn's result once f resolves with a value. If f resolves with an
// error, fn is not invoked and the error propagates. An error or panic
// inside fn becomes the continuation's error.
func ContinueWith[T, U any](f *Future[T], fn func(T) (U, error)) *Future[U] {
	continuation := New[U]()

	f.AddDoneCallback(func(done *Future[T]) {
		result, err := done.Result()
		if err != nil {
			continuation.SetErr(err)
			return
		}
		transformed, err := protect(fn, result)
		if err != nil {
			continuation.SetErr(err)
			return
		}
		continuation.SetResult(transformed)
	})

	return continuation
}

// protect runs fn and converts a panic into an error.
func protect[T, U any](fn func(T) (U, error), arg T) (result U, err error) {
	defer func() {
		if r := recover(); r != nil {
			if recovered, ok := r.(error); ok {
				err = recovered
				return
			}
			err = &PanicError{Value: r}
		}
	}()
	return fn(arg)
}

// PanicError wraps a non-error panic value recovered from a continuation.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic in continuation: %v", e.Value)
}
