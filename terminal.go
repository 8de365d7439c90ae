package rx

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"
)

// ConsumerFunc consumes element elem.
// The index is the 0-based index of elem, in the order produced by the upstream Observable.
type ConsumerFunc[T any] func(ctx context.Context, cancel context.CancelCauseFunc, elem T, index uint64)

// AccumulatorFunc folds element elem into the accumulator acc, returning acc, or a new accumulator.
// The index is the 0-based index of elem, in the order produced by the upstream Observable.
type AccumulatorFunc[T any, A any] func(ctx context.Context, cancel context.CancelCauseFunc, elem T, index uint64, acc A) A

// ErrShortCircuit is a generic error used to short-circuit a stream by canceling its context.
var ErrShortCircuit = errors.New("short circuit")

// Reduce subscribes to src, and calls reduce for each element, folding it into accumulator acc,
// returning the final accumulator once src completes.
// If src fails, or reduce cancels the stream's context, it returns the accumulator so far, and the cause.
func Reduce[T any, A any](ctx context.Context, src Observable[T], acc A, reduce AccumulatorFunc[T, A]) (A, error) {
	err := Each(ctx, src, func(ctx context.Context, cancel context.CancelCauseFunc, elem T, index uint64) {
		acc = reduce(ctx, cancel, elem, index, acc)
	})

	return acc, err
}

// ReduceSlice subscribes to src, and collects all elements into a slice.
func ReduceSlice[T any](ctx context.Context, src Observable[T]) ([]T, error) {
	return Reduce(ctx, src, nil, CollectSlice[T]())
}

// Each subscribes to src, and calls each for each element, blocking until src terminates.
// If src fails, or each cancels the stream's context, it returns the cause.
func Each[T any](ctx context.Context, src Observable[T], each ConsumerFunc[T]) error {
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	index := uint64(0)

	return await(ctx, src, ObserverFuncs[T]{
		Next: func(elem T) {
			each(ctx, cancel, elem, index)
			index++
		},
	})
}

// EachConcurrent subscribes to src, and concurrently calls each for each element, with at most
// limit calls running at the same time. A limit < 1 does not limit concurrency.
// If src fails, or each cancels the stream's context, it returns the cause.
func EachConcurrent[T any](ctx context.Context, src Observable[T], limit int, each ConsumerFunc[T]) error {
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	if limit < 1 {
		limit = -1
	}

	grp := errgroup.Group{}
	grp.SetLimit(limit)

	index := uint64(0)

	err := await(ctx, src, ObserverFuncs[T]{
		Next: func(elem T) {
			elemIndex := index
			index++

			grp.Go(func() error {
				each(ctx, cancel, elem, elemIndex)
				return nil
			})
		},
	})

	_ = grp.Wait()

	if err == nil {
		err = shortCircuited(context.Cause(ctx))
	}

	return err
}

// await subscribes obs to src, and blocks until src terminates or ctx is done.
// It returns the error of src, or the cause of ctx, with ErrShortCircuit reported as nil.
func await[T any](ctx context.Context, src Observable[T], obs ObserverFuncs[T]) error {
	done := make(chan struct{})

	var srcErr error

	obs.Error = func(err error) {
		srcErr = err
		close(done)
	}

	obs.Complete = func() {
		close(done)
	}

	sub := src.Subscribe(ctx, obs)
	defer sub.Dispose()

	select {
	case <-done:
		return shortCircuited(srcErr)

	case <-ctx.Done():
		return shortCircuited(context.Cause(ctx))
	}
}

func shortCircuited(err error) error {
	if errors.Is(err, ErrShortCircuit) {
		return nil
	}
	return err
}

// AnyMatch returns true as soon as pred returns true for an element of src, that is, an element matches.
// If an element matches, it cancels the stream's context using ErrShortCircuit.
// If src fails, or pred returns an error, it returns an undefined result, and the error.
func AnyMatch[T any](ctx context.Context, src Observable[T], pred PredicateFunc[T]) (bool, error) {
	anyMatch := false

	err := Each(ctx, src, func(ctx context.Context, cancel context.CancelCauseFunc, elem T, index uint64) {
		match, err := pred(ctx, elem, index)
		if err != nil {
			cancel(err)
			return
		}

		if !match {
			return
		}

		anyMatch = true

		cancel(ErrShortCircuit)
	})

	return anyMatch, err
}

// AllMatch returns true if pred returns true for all elements of src, that is, all elements match.
// If any element does not match, it cancels the stream's context using ErrShortCircuit.
// If src fails, or pred returns an error, it returns an undefined result, and the error.
func AllMatch[T any](ctx context.Context, src Observable[T], pred PredicateFunc[T]) (bool, error) {
	allMatch := true

	err := Each(ctx, src, func(ctx context.Context, cancel context.CancelCauseFunc, elem T, index uint64) {
		match, err := pred(ctx, elem, index)
		if err != nil {
			cancel(err)
			return
		}

		if match {
			return
		}

		allMatch = false

		cancel(ErrShortCircuit)
	})

	return allMatch, err
}

// Count returns the number of elements of src.
// If src fails, it returns an undefined result, and the error.
func Count[T any](ctx context.Context, src Observable[T]) (uint64, error) {
	count := uint64(0)

	err := Each(ctx, src, func(_ context.Context, _ context.CancelCauseFunc, _ T, _ uint64) {
		count++
	})

	return count, err
}
