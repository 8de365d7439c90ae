package rx

import (
	"context"
	"time"

	"github.com/deadlyengineer/rx-with-go/scheduler"
)

// EmitterFunc produces elements for emit until ctx is done.
// Notifications delivered after a terminal notification, or after ctx is done, are ignored.
type EmitterFunc[T any] func(ctx context.Context, emit Observer[T])

// Just returns an Observable that emits elems, in order, and completes.
func Just[T any](elems ...T) Observable[T] {
	return FromSlice(elems)
}

// FromSlice returns an Observable that emits all elements in slices, in order, and completes.
func FromSlice[T any](slices ...[]T) Observable[T] {
	return func(ctx context.Context, obs Observer[T]) {
		for _, slice := range slices {
			for _, elem := range slice {
				if contextDone(ctx) {
					return
				}

				obs.OnNext(elem)
			}
		}

		if contextDone(ctx) {
			return
		}

		obs.OnComplete()
	}
}

// FromChannel returns an Observable that emits all elements read from channels, in order,
// and completes once the last channel is closed.
// Reading blocks the subscribing goroutine, use SubscribeOn to read on a scheduler instead.
func FromChannel[T any](channels ...<-chan T) Observable[T] {
	return func(ctx context.Context, obs Observer[T]) {
		for _, ch := range channels {
		read:
			for {
				select {
				case elem, ok := <-ch:
					if !ok {
						break read
					}

					obs.OnNext(elem)

				case <-ctx.Done():
					return
				}
			}
		}

		obs.OnComplete()
	}
}

// Range returns an Observable that emits count consecutive integers starting with start, and completes.
func Range(start int, count int) Observable[int] {
	return func(ctx context.Context, obs Observer[int]) {
		for i := 0; i < count; i++ {
			if contextDone(ctx) {
				return
			}

			obs.OnNext(start + i)
		}

		if contextDone(ctx) {
			return
		}

		obs.OnComplete()
	}
}

// Interval returns an Observable that emits 0, 1, 2, ... every period, starting one period after
// subscription. It never completes.
func Interval(period time.Duration, opts ...Option) Observable[int64] {
	return IntervalFrom(period, period, opts...)
}

// IntervalFrom is like Interval, emitting the first element after initial instead of period.
func IntervalFrom(initial time.Duration, period time.Duration, opts ...Option) Observable[int64] {
	cfg := applyOptions(opts)

	return func(ctx context.Context, obs Observer[int64]) {
		w := scheduler.NewWorker(cfg.scheduler)

		tick := int64(0)

		h := scheduler.SchedulePeriodic(w, initial, period, func() {
			if contextDone(ctx) {
				return
			}

			obs.OnNext(tick)
			tick++
		})

		context.AfterFunc(ctx, func() {
			h.Cancel()
			w.Stop()
		})
	}
}

// Timer returns an Observable that emits 0 once delay has elapsed, and completes.
func Timer(delay time.Duration, opts ...Option) Observable[int64] {
	cfg := applyOptions(opts)

	return func(ctx context.Context, obs Observer[int64]) {
		h := cfg.scheduler.Schedule(delay, func() {
			if contextDone(ctx) {
				return
			}

			obs.OnNext(0)
			obs.OnComplete()
		})

		context.AfterFunc(ctx, h.Cancel)
	}
}

// Create returns an Observable that calls emit for each subscription.
// A panic raised by emit is delivered as a *CallbackError.
func Create[T any](emit EmitterFunc[T]) Observable[T] {
	return func(ctx context.Context, obs Observer[T]) {
		g := &guard[T]{
			ctx: ctx,
			obs: obs,
		}

		_, err := guarded("create", 0, func() (struct{}, error) {
			emit(ctx, g)
			return struct{}{}, nil
		})
		if err != nil {
			g.OnError(err)
		}
	}
}

// Defer returns an Observable that calls factory for each subscription, and subscribes to the
// Observable it returns. An error returned by factory is delivered as a *CallbackError.
func Defer[T any](factory func() (Observable[T], error)) Observable[T] {
	return func(ctx context.Context, obs Observer[T]) {
		src, err := guarded("defer", 0, factory)
		if err != nil {
			obs.OnError(err)
			return
		}

		src(ctx, obs)
	}
}

// Empty returns an Observable that completes immediately.
func Empty[T any]() Observable[T] {
	return func(ctx context.Context, obs Observer[T]) {
		if contextDone(ctx) {
			return
		}

		obs.OnComplete()
	}
}

// Never returns an Observable that never delivers any notification.
func Never[T any]() Observable[T] {
	return func(context.Context, Observer[T]) {}
}

// Throw returns an Observable that fails immediately with err.
func Throw[T any](err error) Observable[T] {
	return func(ctx context.Context, obs Observer[T]) {
		if contextDone(ctx) {
			return
		}

		obs.OnError(err)
	}
}
