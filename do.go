package rx

import (
	"context"
	"errors"
	"sync/atomic"
)

// DoOnNext returns an Observable that calls fn for each element of src before emitting it.
func DoOnNext[T any](src Observable[T], fn func(elem T)) Observable[T] {
	return func(ctx context.Context, obs Observer[T]) {
		ctx, cancel := context.WithCancelCause(ctx)

		index := uint64(0)
		failed := false

		src(ctx, ObserverFuncs[T]{
			Next: func(elem T) {
				if failed {
					return
				}

				_, err := guarded("doOnNext", index, func() (struct{}, error) {
					fn(elem)
					return struct{}{}, nil
				})
				index++

				if err != nil {
					failed = true
					cancel(err)
					obs.OnError(err)
					return
				}

				obs.OnNext(elem)
			},

			Error: func(err error) {
				if !failed {
					obs.OnError(err)
				}
			},

			Complete: func() {
				if !failed {
					obs.OnComplete()
				}
			},
		})
	}
}

// DoOnError returns an Observable that calls fn with the error of src before delivering it.
func DoOnError[T any](src Observable[T], fn func(err error)) Observable[T] {
	return func(ctx context.Context, obs Observer[T]) {
		src(ctx, ObserverFuncs[T]{
			Next: obs.OnNext,

			Error: func(err error) {
				if _, cbErr := guarded("doOnError", 0, func() (struct{}, error) {
					fn(err)
					return struct{}{}, nil
				}); cbErr != nil {
					err = errors.Join(err, cbErr)
				}

				obs.OnError(err)
			},

			Complete: obs.OnComplete,
		})
	}
}

// DoOnComplete returns an Observable that calls fn when src completes, before delivering the completion.
func DoOnComplete[T any](src Observable[T], fn func()) Observable[T] {
	return func(ctx context.Context, obs Observer[T]) {
		src(ctx, ObserverFuncs[T]{
			Next:  obs.OnNext,
			Error: obs.OnError,

			Complete: func() {
				if _, err := guarded("doOnComplete", 0, func() (struct{}, error) {
					fn()
					return struct{}{}, nil
				}); err != nil {
					obs.OnError(err)
					return
				}

				obs.OnComplete()
			},
		})
	}
}

// DoOnSubscribe returns an Observable that calls fn each time it is subscribed, before subscribing to src.
func DoOnSubscribe[T any](src Observable[T], fn func()) Observable[T] {
	return func(ctx context.Context, obs Observer[T]) {
		if _, err := guarded("doOnSubscribe", 0, func() (struct{}, error) {
			fn()
			return struct{}{}, nil
		}); err != nil {
			obs.OnError(err)
			return
		}

		src(ctx, obs)
	}
}

// DoOnDispose returns an Observable that calls fn when its subscription is canceled before src
// terminated, either by the subscriber or by a downstream operator.
func DoOnDispose[T any](src Observable[T], fn func()) Observable[T] {
	return func(ctx context.Context, obs Observer[T]) {
		var terminated atomic.Bool

		context.AfterFunc(ctx, func() {
			if terminated.Load() {
				return
			}

			if _, err := guarded("doOnDispose", 0, func() (struct{}, error) {
				fn()
				return struct{}{}, nil
			}); err != nil {
				undeliverable(err)
			}
		})

		src(ctx, ObserverFuncs[T]{
			Next: obs.OnNext,

			Error: func(err error) {
				terminated.Store(true)
				obs.OnError(err)
			},

			Complete: func() {
				terminated.Store(true)
				obs.OnComplete()
			},
		})
	}
}
