package rx

import (
	"context"

	"github.com/deadlyengineer/rx-with-go/scheduler"
)

// SubscribeOn returns an Observable that subscribes to src on a worker of s.
func SubscribeOn[T any](src Observable[T], s scheduler.Scheduler) Observable[T] {
	return func(ctx context.Context, obs Observer[T]) {
		h := s.Schedule(0, func() {
			if contextDone(ctx) {
				return
			}

			src(ctx, obs)
		})

		context.AfterFunc(ctx, h.Cancel)
	}
}

// ObserveOn returns an Observable that delivers the notifications of src on a Worker of s.
// Notifications keep their order.
func ObserveOn[T any](src Observable[T], s scheduler.Scheduler) Observable[T] {
	return func(ctx context.Context, obs Observer[T]) {
		w := scheduler.NewWorker(s)

		context.AfterFunc(ctx, w.Stop)

		src(ctx, ObserverFuncs[T]{
			Next: func(elem T) {
				w.Schedule(0, func() {
					if contextDone(ctx) {
						return
					}

					obs.OnNext(elem)
				})
			},

			Error: func(err error) {
				w.Schedule(0, func() {
					if contextDone(ctx) {
						undeliverable(err)
						return
					}

					obs.OnError(err)
				})
			},

			Complete: func() {
				w.Schedule(0, func() {
					if contextDone(ctx) {
						return
					}

					obs.OnComplete()
				})
			},
		})
	}
}
