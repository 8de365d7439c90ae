package rx

import (
	"context"
	"sync"
	"time"

	"github.com/deadlyengineer/rx-with-go/scheduler"
)

// Timed is an element annotated with time information.
type Timed[T any] struct {
	Value T

	// Time is the time the element was received.
	Time time.Time

	// Elapsed is the time since the previous element, or since subscription for the first element.
	// It is only set by TimeInterval.
	Elapsed time.Duration
}

// Debounce returns an Observable that emits an element of src only once d has elapsed without src
// emitting another element. Completion emits the pending element immediately. An error discards it.
func Debounce[T any](src Observable[T], d time.Duration, opts ...Option) Observable[T] {
	cfg := applyOptions(opts)

	return func(ctx context.Context, obs Observer[T]) {
		out := newSerializer(obs)

		var (
			lk         sync.Mutex
			generation uint64
			pending    T
			hasPending bool
			timer      scheduler.Handle
			finished   bool
		)

		takePending := func() T {
			var zero T
			elem := pending
			pending = zero
			hasPending = false
			return elem
		}

		context.AfterFunc(ctx, func() {
			lk.Lock()
			defer lk.Unlock()

			if timer != nil {
				timer.Cancel()
			}
		})

		src(ctx, ObserverFuncs[T]{
			Next: func(elem T) {
				lk.Lock()

				if finished {
					lk.Unlock()
					return
				}

				generation++
				gen := generation
				pending = elem
				hasPending = true

				if timer != nil {
					timer.Cancel()
				}

				lk.Unlock()

				h := cfg.scheduler.Schedule(d, func() {
					lk.Lock()

					if finished || !hasPending || generation != gen || contextDone(ctx) {
						lk.Unlock()
						return
					}

					out.offer(nextNotification(takePending()))

					lk.Unlock()

					out.drain()
				})

				lk.Lock()
				if generation == gen {
					timer = h
				}
				lk.Unlock()
			},

			Error: func(err error) {
				lk.Lock()
				finished = true
				takePending()
				if timer != nil {
					timer.Cancel()
				}
				out.offer(errorNotification[T](err))
				lk.Unlock()

				out.drain()
			},

			Complete: func() {
				lk.Lock()
				finished = true
				if hasPending {
					out.offer(nextNotification(takePending()))
				}
				if timer != nil {
					timer.Cancel()
				}
				out.offer(completeNotification[T]())
				lk.Unlock()

				out.drain()
			},
		})
	}
}

// Sample returns an Observable that emits the most recent element of src every period, if src
// emitted since the previous period. The pending element is not emitted when src completes.
func Sample[T any](src Observable[T], period time.Duration, opts ...Option) Observable[T] {
	cfg := applyOptions(opts)

	return func(ctx context.Context, obs Observer[T]) {
		out := newSerializer(obs)
		w := scheduler.NewWorker(cfg.scheduler)

		var (
			lk        sync.Mutex
			latest    T
			hasLatest bool
			finished  bool
			zero      T
		)

		h := scheduler.SchedulePeriodic(w, period, period, func() {
			lk.Lock()

			if finished || !hasLatest || contextDone(ctx) {
				lk.Unlock()
				return
			}

			elem := latest
			latest, hasLatest = zero, false
			out.offer(nextNotification(elem))

			lk.Unlock()

			out.drain()
		})

		stop := func() {
			h.Cancel()
			w.Stop()
		}

		context.AfterFunc(ctx, stop)

		terminate := func(n notification[T]) {
			lk.Lock()
			finished = true
			latest, hasLatest = zero, false
			out.offer(n)
			lk.Unlock()

			stop()
			out.drain()
		}

		src(ctx, ObserverFuncs[T]{
			Next: func(elem T) {
				lk.Lock()
				if !finished {
					latest, hasLatest = elem, true
				}
				lk.Unlock()
			},

			Error: func(err error) {
				terminate(errorNotification[T](err))
			},

			Complete: func() {
				terminate(completeNotification[T]())
			},
		})
	}
}

// Delay returns an Observable that emits each element and the completion of src once d has
// elapsed. Errors are delivered without delay, discarding the elements not emitted yet.
func Delay[T any](src Observable[T], d time.Duration, opts ...Option) Observable[T] {
	cfg := applyOptions(opts)

	return func(ctx context.Context, obs Observer[T]) {
		w := scheduler.NewWorker(cfg.scheduler)

		context.AfterFunc(ctx, w.Stop)

		var (
			lk      sync.Mutex
			queue   []notification[T]
			errored bool
		)

		// every timer delivers the oldest queued notification, which keeps the original order
		// even if timers fire in a different order.
		deliverOldest := func() {
			lk.Lock()

			if errored || len(queue) == 0 || contextDone(ctx) {
				lk.Unlock()
				return
			}

			n := queue[0]
			queue[0] = notification[T]{}
			queue = queue[1:]

			lk.Unlock()

			n.deliver(obs)
		}

		schedule := func(n notification[T]) {
			lk.Lock()
			queue = append(queue, n)
			lk.Unlock()

			w.Schedule(d, deliverOldest)
		}

		src(ctx, ObserverFuncs[T]{
			Next: func(elem T) {
				schedule(nextNotification(elem))
			},

			Error: func(err error) {
				w.Schedule(0, func() {
					lk.Lock()
					errored = true
					queue = nil
					lk.Unlock()

					if contextDone(ctx) {
						undeliverable(err)
						return
					}

					obs.OnError(err)
				})
			},

			Complete: func() {
				schedule(completeNotification[T]())
			},
		})
	}
}

// Timeout returns an Observable that emits the elements of src, and fails with a *TimeoutError if
// d elapses after subscription, or after the most recent element, without src emitting.
// The upstream is disposed when the timeout fires.
func Timeout[T any](src Observable[T], d time.Duration, opts ...Option) Observable[T] {
	cfg := applyOptions(opts)

	if d <= 0 {
		d = time.Nanosecond
	}

	return func(ctx context.Context, obs Observer[T]) {
		ctx, cancel := context.WithCancelCause(ctx)

		out := newSerializer(obs)

		var (
			lk         sync.Mutex
			generation uint64
			timer      scheduler.Handle
			finished   bool
		)

		// arm must be called with lk held.
		arm := func() {
			generation++
			gen := generation

			if timer != nil {
				timer.Cancel()
			}

			timer = cfg.scheduler.Schedule(d, func() {
				lk.Lock()

				if finished || generation != gen {
					lk.Unlock()
					return
				}

				finished = true

				err := &TimeoutError{After: d}
				out.offer(errorNotification[T](err))

				lk.Unlock()

				cancel(err)
				out.drain()
			})
		}

		// terminate must be called with lk held.
		terminate := func(n notification[T]) {
			if finished {
				return
			}

			finished = true

			if timer != nil {
				timer.Cancel()
			}

			out.offer(n)
		}

		lk.Lock()
		arm()
		lk.Unlock()

		context.AfterFunc(ctx, func() {
			lk.Lock()
			defer lk.Unlock()

			timer.Cancel()
		})

		src(ctx, ObserverFuncs[T]{
			Next: func(elem T) {
				lk.Lock()

				if finished {
					lk.Unlock()
					return
				}

				arm()
				out.offer(nextNotification(elem))

				lk.Unlock()

				out.drain()
			},

			Error: func(err error) {
				lk.Lock()
				terminate(errorNotification[T](err))
				lk.Unlock()

				out.drain()
			},

			Complete: func() {
				lk.Lock()
				terminate(completeNotification[T]())
				lk.Unlock()

				out.drain()
			},
		})
	}
}

// Timestamp returns an Observable that emits the elements of src annotated with the time they were
// received, according to the clock of the operator's scheduler. Elapsed is left zero.
func Timestamp[T any](src Observable[T], opts ...Option) Observable[Timed[T]] {
	cfg := applyOptions(opts)

	return func(ctx context.Context, obs Observer[Timed[T]]) {
		clk := cfg.scheduler.Clock()

		src(ctx, ObserverFuncs[T]{
			Next: func(elem T) {
				obs.OnNext(Timed[T]{
					Value: elem,
					Time:  clk.Now(),
				})
			},
			Error:    obs.OnError,
			Complete: obs.OnComplete,
		})
	}
}

// TimeInterval returns an Observable that emits the elements of src annotated with the time they
// were received, and the time elapsed since the previous element.
func TimeInterval[T any](src Observable[T], opts ...Option) Observable[Timed[T]] {
	cfg := applyOptions(opts)

	return func(ctx context.Context, obs Observer[Timed[T]]) {
		clk := cfg.scheduler.Clock()
		last := clk.Now()

		src(ctx, ObserverFuncs[T]{
			Next: func(elem T) {
				now := clk.Now()
				elapsed := now.Sub(last)
				last = now

				obs.OnNext(Timed[T]{
					Value:   elem,
					Time:    now,
					Elapsed: elapsed,
				})
			},
			Error:    obs.OnError,
			Complete: obs.OnComplete,
		})
	}
}

// BufferTime returns an Observable that emits the elements of src in groups. A group is opened by
// the first element that arrives while no group is open, and emitted once d has elapsed.
// Completion emits the open group immediately.
func BufferTime[T any](src Observable[T], d time.Duration, opts ...Option) Observable[[]T] {
	cfg := applyOptions(opts)

	if d <= 0 {
		d = time.Nanosecond
	}

	return func(ctx context.Context, obs Observer[[]T]) {
		out := newSerializer(obs)

		var (
			lk       sync.Mutex
			group    []T
			timer    scheduler.Handle
			finished bool
		)

		context.AfterFunc(ctx, func() {
			lk.Lock()
			defer lk.Unlock()

			if timer != nil {
				timer.Cancel()
			}
		})

		// flush must be called with lk held.
		flush := func() {
			if len(group) == 0 {
				return
			}

			out.offer(nextNotification(group))
			group = nil
		}

		src(ctx, ObserverFuncs[T]{
			Next: func(elem T) {
				lk.Lock()
				defer lk.Unlock()

				if finished {
					return
				}

				opening := len(group) == 0
				group = append(group, elem)

				if !opening {
					return
				}

				timer = cfg.scheduler.Schedule(d, func() {
					lk.Lock()

					if finished || contextDone(ctx) {
						lk.Unlock()
						return
					}

					timer = nil
					flush()

					lk.Unlock()

					out.drain()
				})
			},

			Error: func(err error) {
				lk.Lock()
				finished = true
				group = nil
				if timer != nil {
					timer.Cancel()
				}
				out.offer(errorNotification[[]T](err))
				lk.Unlock()

				out.drain()
			},

			Complete: func() {
				lk.Lock()
				finished = true
				if timer != nil {
					timer.Cancel()
				}
				flush()
				out.offer(completeNotification[[]T]())
				lk.Unlock()

				out.drain()
			},
		})
	}
}
