package rx

import (
	"context"
	"sync"
	"time"

	"github.com/deadlyengineer/rx-with-go/scheduler"
)

// Zip returns an Observable that pairs the elements of a and b by index, emitting zipper(a[i], b[i]).
// It completes as soon as either source has completed and all its elements have been paired,
// disposing the other source.
func Zip[A any, B any, R any](a Observable[A], b Observable[B], zipper func(a A, b B) (R, error)) Observable[R] {
	return func(ctx context.Context, obs Observer[R]) {
		ctx, cancel := context.WithCancelCause(ctx)

		out := newSerializer(obs)

		var (
			lk           sync.Mutex
			queueA       []A
			queueB       []B
			doneA, doneB bool
			finished     bool
			index        uint64
		)

		// pair must be called with lk held.
		pair := func() {
			for !finished && len(queueA) > 0 && len(queueB) > 0 {
				elemA, elemB := queueA[0], queueB[0]
				queueA, queueB = queueA[1:], queueB[1:]

				outElem, err := guarded("zip", index, func() (R, error) {
					return zipper(elemA, elemB)
				})
				index++

				if err != nil {
					finished = true
					out.offer(errorNotification[R](err))
					cancel(err)
					return
				}

				out.offer(nextNotification(outElem))
			}

			if !finished && ((doneA && len(queueA) == 0) || (doneB && len(queueB) == 0)) {
				finished = true
				out.offer(completeNotification[R]())
				cancel(nil)
			}
		}

		fail := func(err error) {
			lk.Lock()
			if finished {
				lk.Unlock()
				return
			}
			finished = true
			out.offer(errorNotification[R](err))
			lk.Unlock()

			cancel(err)
			out.drain()
		}

		a(ctx, ObserverFuncs[A]{
			Next: func(elem A) {
				lk.Lock()
				queueA = append(queueA, elem)
				pair()
				lk.Unlock()

				out.drain()
			},

			Error: fail,

			Complete: func() {
				lk.Lock()
				doneA = true
				pair()
				lk.Unlock()

				out.drain()
			},
		})

		if contextDone(ctx) {
			return
		}

		b(ctx, ObserverFuncs[B]{
			Next: func(elem B) {
				lk.Lock()
				queueB = append(queueB, elem)
				pair()
				lk.Unlock()

				out.drain()
			},

			Error: fail,

			Complete: func() {
				lk.Lock()
				doneB = true
				pair()
				lk.Unlock()

				out.drain()
			},
		})
	}
}

// CombineLatest returns an Observable that emits combiner(latest) whenever any source emits, once
// every source has emitted at least once. The latest slice is a fresh copy owned by combiner.
// It completes once all sources have completed, or as soon as a source completes without
// having emitted.
func CombineLatest[T any, R any](sources []Observable[T], combiner func(latest []T) (R, error)) Observable[R] {
	return func(ctx context.Context, obs Observer[R]) {
		if len(sources) == 0 {
			if !contextDone(ctx) {
				obs.OnComplete()
			}
			return
		}

		ctx, cancel := context.WithCancelCause(ctx)

		out := newSerializer(obs)

		var (
			lk       sync.Mutex
			latest   = make([]T, len(sources))
			seen     = make([]bool, len(sources))
			missing  = len(sources)
			running  = len(sources)
			finished bool
			index    uint64
		)

		fail := func(err error) {
			lk.Lock()
			if finished {
				lk.Unlock()
				return
			}
			finished = true
			out.offer(errorNotification[R](err))
			lk.Unlock()

			cancel(err)
			out.drain()
		}

		for i, src := range sources {
			i := i

			if contextDone(ctx) {
				return
			}

			src(ctx, ObserverFuncs[T]{
				Next: func(elem T) {
					lk.Lock()

					if finished {
						lk.Unlock()
						return
					}

					if !seen[i] {
						seen[i] = true
						missing--
					}

					latest[i] = elem

					if missing > 0 {
						lk.Unlock()
						return
					}

					snapshot := make([]T, len(latest))
					copy(snapshot, latest)

					outElem, err := guarded("combineLatest", index, func() (R, error) {
						return combiner(snapshot)
					})
					index++

					if err != nil {
						finished = true
						out.offer(errorNotification[R](err))
						lk.Unlock()

						cancel(err)
						out.drain()

						return
					}

					out.offer(nextNotification(outElem))

					lk.Unlock()

					out.drain()
				},

				Error: fail,

				Complete: func() {
					lk.Lock()

					if finished {
						lk.Unlock()
						return
					}

					running--

					if running > 0 && seen[i] {
						lk.Unlock()
						return
					}

					finished = true
					out.offer(completeNotification[R]())

					lk.Unlock()

					cancel(nil)
					out.drain()
				},
			})
		}
	}
}

// CombineLatest2 is CombineLatest for two sources of different types.
func CombineLatest2[A any, B any, R any](a Observable[A], b Observable[B], combiner func(a A, b B) (R, error)) Observable[R] {
	return CombineLatest([]Observable[any]{toAny(a), toAny(b)}, func(latest []any) (R, error) {
		return combiner(fromAny[A](latest[0]), fromAny[B](latest[1]))
	})
}

func toAny[T any](src Observable[T]) Observable[any] {
	return Map(src, FuncMapper(func(elem T) any {
		return elem
	}))
}

func fromAny[T any](v any) T {
	t, _ := v.(T)
	return t
}

// Join returns an Observable that emits combiner(l, r) for every pair of elements of left and right
// whose windows overlap. The window of an element opens when it is emitted, and closes once the
// duration returned by leftWindow or rightWindow has elapsed on the operator's scheduler.
// It completes once both sources have completed.
func Join[L any, R any, O any](
	left Observable[L],
	right Observable[R],
	leftWindow func(elem L) time.Duration,
	rightWindow func(elem R) time.Duration,
	combiner func(l L, r R) (O, error),
	opts ...Option,
) Observable[O] {
	cfg := applyOptions(opts)

	return func(ctx context.Context, obs Observer[O]) {
		ctx, cancel := context.WithCancelCause(ctx)

		out := newSerializer(obs)

		j := newJoiner[L, R](ctx, cancel, out, combiner)

		var lefts windows[L]
		var rights windows[R]

		leftObserver := ObserverFuncs[L]{
			Next: func(elem L) {
				window, err := guarded("join", 0, func() (time.Duration, error) {
					return leftWindow(elem), nil
				})
				if err != nil {
					j.fail(err)
					return
				}

				j.lk.Lock()
				id := lefts.open(elem)
				for _, r := range rights.items {
					if !j.combineLocked(elem, r.elem) {
						break
					}
				}
				j.lk.Unlock()

				out.drain()

				j.closeAfter(cfg, window, func() {
					lefts.close(id)
				})
			},
			Error:    j.fail,
			Complete: j.complete,
		}

		rightObserver := ObserverFuncs[R]{
			Next: func(elem R) {
				window, err := guarded("join", 0, func() (time.Duration, error) {
					return rightWindow(elem), nil
				})
				if err != nil {
					j.fail(err)
					return
				}

				j.lk.Lock()
				id := rights.open(elem)
				for _, l := range lefts.items {
					if !j.combineLocked(l.elem, elem) {
						break
					}
				}
				j.lk.Unlock()

				out.drain()

				j.closeAfter(cfg, window, func() {
					rights.close(id)
				})
			},
			Error:    j.fail,
			Complete: j.complete,
		}

		left(ctx, leftObserver)

		if contextDone(ctx) {
			return
		}

		right(ctx, rightObserver)
	}
}

// joiner holds the state shared by both sides of one Join subscription.
type joiner[L any, R any, O any] struct {
	ctx      context.Context
	cancel   context.CancelCauseFunc
	out      *serializer[O]
	combiner func(l L, r R) (O, error)

	lk        sync.Mutex
	running   int
	finished  bool
	index     uint64
	nextTimer uint64
	timers    map[uint64]scheduler.Handle
}

func newJoiner[L any, R any, O any](
	ctx context.Context,
	cancel context.CancelCauseFunc,
	out *serializer[O],
	combiner func(l L, r R) (O, error),
) *joiner[L, R, O] {
	j := &joiner[L, R, O]{
		ctx:      ctx,
		cancel:   cancel,
		out:      out,
		combiner: combiner,
		running:  2,
		timers:   map[uint64]scheduler.Handle{},
	}

	context.AfterFunc(ctx, j.cancelTimers)

	return j
}

// combineLocked emits the combination of l and r, returning false if the stream failed.
func (j *joiner[L, R, O]) combineLocked(l L, r R) bool {
	if j.finished {
		return false
	}

	outElem, err := guarded("join", j.index, func() (O, error) {
		return j.combiner(l, r)
	})
	j.index++

	if err != nil {
		j.finished = true
		j.out.offer(errorNotification[O](err))
		j.cancel(err)
		return false
	}

	j.out.offer(nextNotification(outElem))

	return true
}

// closeAfter runs closeWindow with the state lock held once d has elapsed.
// Pending closes are tracked until they run, and canceled together when the subscription ends.
func (j *joiner[L, R, O]) closeAfter(cfg config, d time.Duration, closeWindow func()) {
	if d <= 0 {
		j.lk.Lock()
		closeWindow()
		j.lk.Unlock()
		return
	}

	j.lk.Lock()
	j.nextTimer++
	id := j.nextTimer
	j.timers[id] = nil
	j.lk.Unlock()

	h := cfg.scheduler.Schedule(d, func() {
		j.lk.Lock()
		delete(j.timers, id)
		closeWindow()
		j.lk.Unlock()
	})

	j.lk.Lock()
	_, pending := j.timers[id]
	if pending {
		j.timers[id] = h
	}
	j.lk.Unlock()

	if pending && contextDone(j.ctx) {
		j.cancelTimers()
	}
}

func (j *joiner[L, R, O]) cancelTimers() {
	j.lk.Lock()
	timers := j.timers
	j.timers = map[uint64]scheduler.Handle{}
	j.lk.Unlock()

	for _, h := range timers {
		if h != nil {
			h.Cancel()
		}
	}
}

func (j *joiner[L, R, O]) fail(err error) {
	j.lk.Lock()
	if j.finished {
		j.lk.Unlock()
		return
	}
	j.finished = true
	j.out.offer(errorNotification[O](err))
	j.lk.Unlock()

	j.cancel(err)
	j.out.drain()
}

func (j *joiner[L, R, O]) complete() {
	j.lk.Lock()

	if j.finished {
		j.lk.Unlock()
		return
	}

	j.running--
	if j.running > 0 {
		j.lk.Unlock()
		return
	}

	j.finished = true
	j.out.offer(completeNotification[O]())

	j.lk.Unlock()

	j.cancel(nil)
	j.out.drain()
}

// windows holds the elements of one side of a Join whose windows are open, in arrival order.
type windows[T any] struct {
	nextID uint64
	items  []window[T]
}

type window[T any] struct {
	id   uint64
	elem T
}

func (w *windows[T]) open(elem T) uint64 {
	w.nextID++
	w.items = append(w.items, window[T]{id: w.nextID, elem: elem})
	return w.nextID
}

func (w *windows[T]) close(id uint64) {
	for i, item := range w.items {
		if item.id == id {
			w.items = append(w.items[:i], w.items[i+1:]...)
			return
		}
	}
}
