package rx

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/deadlyengineer/rx-with-go/internal/metrics"
	logging "github.com/ipfs/go-log/v2"
)

var log = logging.Logger("rx")

var (
	// ErrDisposed is the cause used to cancel a subscription's context when it is disposed.
	ErrDisposed = errors.New("disposed")

	// ErrLimitReached is the cause used to cancel the upstream of Take, First, or ElementAt once
	// enough elements have been received.
	ErrLimitReached = errors.New("limit reached")

	// ErrTimeout is matched by every *TimeoutError.
	ErrTimeout = errors.New("timeout")

	// ErrOverflow is matched by every *OverflowError.
	ErrOverflow = errors.New("overflow")

	// ErrNoSuchElement is delivered by First and Last when the upstream completes without elements.
	ErrNoSuchElement = errors.New("no such element")

	// ErrMissingDemand is delivered when a Flowable emits more elements than were requested.
	ErrMissingDemand = errors.New("element emitted without demand")

	// ErrAlreadySubscribed is delivered to the second subscriber of a stream that supports only one,
	// such as a GroupedObservable.
	ErrAlreadySubscribed = errors.New("already subscribed")
)

// A CallbackError is delivered downstream when a function passed to an operator returns an error
// or panics. The upstream subscription is disposed.
type CallbackError struct {
	// Op is the name of the operator that called the function.
	Op string

	// Index is the 0-based index of the element the function was called with.
	Index uint64

	// Err is the error returned by the function, if any.
	Err error

	// Panic is the recovered value if the function panicked.
	Panic any
}

// Error implements error.
func (e *CallbackError) Error() string {
	if e.Panic != nil {
		return fmt.Sprintf("%s: callback panicked at element %d: %v", e.Op, e.Index, e.Panic)
	}
	return fmt.Sprintf("%s: callback failed at element %d: %v", e.Op, e.Index, e.Err)
}

// Unwrap returns the error returned by the function.
func (e *CallbackError) Unwrap() error {
	return e.Err
}

// A TimeoutError is delivered by Timeout when no element arrived in time.
type TimeoutError struct {
	// After is the duration that elapsed without an element.
	After time.Duration
}

// Error implements error.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("no element within %s", e.After)
}

// Is reports whether target is ErrTimeout.
func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout
}

// An OverflowError is delivered by a Flowable using OverflowFail when its producer emits while
// there is no outstanding demand.
type OverflowError struct {
	// Pending is the number of elements that were waiting for demand.
	Pending int
}

// Error implements error.
func (e *OverflowError) Error() string {
	return fmt.Sprintf("producer outpaced demand with %d elements pending", e.Pending)
}

// Is reports whether target is ErrOverflow.
func (e *OverflowError) Is(target error) bool {
	return target == ErrOverflow
}

// undeliverable records an error that arrived after its subscription terminated or was disposed.
func undeliverable(err error) {
	if err == nil || errors.Is(err, ErrDisposed) || errors.Is(err, context.Canceled) {
		return
	}

	metrics.UndeliverableErrors.Inc()
	log.Warnw("dropping error raised after the subscription terminated", "err", err)
}
