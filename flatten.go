package rx

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/multierr"
)

// FlattenPolicy decides when the inner Observables of Flatten are subscribed.
type FlattenPolicy interface {
	// admit returns how a new inner Observable is handled while active inner Observables are running.
	admit(active int) admission
}

type admission int

const (
	admitStart admission = iota
	admitQueue
	admitReplace
)

type concurrentPolicy struct {
	max int
}

func (p concurrentPolicy) admit(active int) admission {
	if p.max > 0 && active >= p.max {
		return admitQueue
	}
	return admitStart
}

type latestPolicy struct{}

func (latestPolicy) admit(int) admission {
	return admitReplace
}

// Concurrent returns a policy that runs up to max inner Observables at the same time, queueing the
// rest in arrival order. A max <= 0 runs all inner Observables at the same time.
func Concurrent(max int) FlattenPolicy {
	return concurrentPolicy{max: max}
}

// Serial returns a policy that runs one inner Observable at a time, in arrival order.
func Serial() FlattenPolicy {
	return concurrentPolicy{max: 1}
}

// Latest returns a policy that disposes the running inner Observable as soon as a new one arrives.
// Elements of the disposed inner Observable that were not delivered yet are discarded.
func Latest() FlattenPolicy {
	return latestPolicy{}
}

// Flatten returns an Observable that calls mapp for each element of src, and emits the elements of
// the resulting inner Observables. The policy decides when inner Observables are subscribed.
// It completes once src and all inner Observables have completed. The first error fails the stream
// and disposes src and all inner Observables.
func Flatten[T any, U any](src Observable[T], mapp MapperFunc[T, Observable[U]], policy FlattenPolicy) Observable[U] {
	return flatten(src, mapp, policy, false)
}

// FlattenDelayError is like Flatten, but an error of src or of an inner Observable does not dispose
// the others. All errors are combined and delivered once src and every inner Observable have
// terminated. An error returned by mapp still fails the stream at once.
func FlattenDelayError[T any, U any](src Observable[T], mapp MapperFunc[T, Observable[U]], policy FlattenPolicy) Observable[U] {
	return flatten(src, mapp, policy, true)
}

// FlatMapDelayError is FlattenDelayError using Concurrent(0).
func FlatMapDelayError[T any, U any](src Observable[T], mapp MapperFunc[T, Observable[U]]) Observable[U] {
	return FlattenDelayError(src, mapp, Concurrent(0))
}

// ConcatMapDelayError is FlattenDelayError using Serial.
func ConcatMapDelayError[T any, U any](src Observable[T], mapp MapperFunc[T, Observable[U]]) Observable[U] {
	return FlattenDelayError(src, mapp, Serial())
}

// FlatMap is Flatten using Concurrent(0). The order of elements from different inner Observables
// is undefined.
func FlatMap[T any, U any](src Observable[T], mapp MapperFunc[T, Observable[U]]) Observable[U] {
	return Flatten(src, mapp, Concurrent(0))
}

// SwitchMap is Flatten using Latest: only the inner Observable of the most recent element is emitted.
func SwitchMap[T any, U any](src Observable[T], mapp MapperFunc[T, Observable[U]]) Observable[U] {
	return Flatten(src, mapp, Latest())
}

// ConcatMap is Flatten using Serial: inner Observables are emitted one after another, in order.
func ConcatMap[T any, U any](src Observable[T], mapp MapperFunc[T, Observable[U]]) Observable[U] {
	return Flatten(src, mapp, Serial())
}

// Merge returns an Observable that emits the elements of all sources as they arrive.
// It completes once all sources have completed. The first error fails the stream and disposes
// the other sources.
func Merge[T any](sources ...Observable[T]) Observable[T] {
	return merge(sources, false)
}

// MergeDelayError is like Merge, but an error of one source does not dispose the other sources.
// All errors are combined and delivered once every source has terminated.
func MergeDelayError[T any](sources ...Observable[T]) Observable[T] {
	return merge(sources, true)
}

func merge[T any](sources []Observable[T], delayErrors bool) Observable[T] {
	return func(ctx context.Context, obs Observer[T]) {
		ctx, cancel := context.WithCancelCause(ctx)

		out := newSerializer(obs)

		var (
			lk       sync.Mutex
			running  = len(sources)
			finished bool
			errs     error
		)

		// sourceDone must be called with lk held.
		sourceDone := func() {
			running--
			if running > 0 || finished {
				return
			}

			finished = true

			if errs != nil {
				out.offer(errorNotification[T](errs))
			} else {
				out.offer(completeNotification[T]())
			}
		}

		if running == 0 {
			if !contextDone(ctx) {
				obs.OnComplete()
			}
			return
		}

		for _, src := range sources {
			if contextDone(ctx) {
				return
			}

			src(ctx, ObserverFuncs[T]{
				Next: func(elem T) {
					lk.Lock()
					if !finished {
						out.offer(nextNotification(elem))
					}
					lk.Unlock()

					out.drain()
				},

				Error: func(err error) {
					lk.Lock()

					if finished {
						lk.Unlock()
						undeliverable(err)
						return
					}

					if delayErrors {
						errs = multierr.Append(errs, err)
						sourceDone()
						lk.Unlock()

						out.drain()

						return
					}

					finished = true
					out.offer(errorNotification[T](err))

					lk.Unlock()

					cancel(err)
					out.drain()
				},

				Complete: func() {
					lk.Lock()
					sourceDone()
					lk.Unlock()

					out.drain()
				},
			})
		}
	}
}

// Concat returns an Observable that emits all elements of each source, one source after another.
func Concat[T any](sources ...Observable[T]) Observable[T] {
	return func(ctx context.Context, obs Observer[T]) {
		var wip atomic.Int32

		next := 0

		var subscribeNext func()

		inner := ObserverFuncs[T]{
			Next:  obs.OnNext,
			Error: obs.OnError,
			Complete: func() {
				subscribeNext()
			},
		}

		// subscribeNext subscribes the sources in a loop rather than recursively, so that a
		// long run of synchronous sources does not grow the stack.
		subscribeNext = func() {
			if wip.Add(1) != 1 {
				return
			}

			for {
				if contextDone(ctx) {
					return
				}

				if next == len(sources) {
					obs.OnComplete()
					return
				}

				src := sources[next]
				next++

				src(ctx, inner)

				if wip.Add(-1) == 0 {
					return
				}
			}
		}

		subscribeNext()
	}
}

// SwitchOnNext returns an Observable that emits the elements of the most recent Observable emitted by src.
func SwitchOnNext[T any](src Observable[Observable[T]]) Observable[T] {
	return SwitchMap(src, Identity[Observable[T]]())
}

// MapConcurrent returns an Observable that calls mapp for each element of src on the operator's
// scheduler, and emits the results as they become available. The order of elements is undefined.
func MapConcurrent[T any, U any](src Observable[T], mapp MapperFunc[T, U], opts ...Option) Observable[U] {
	cfg := applyOptions(opts)

	return FlatMap(src, func(_ context.Context, elem T, index uint64) (Observable[U], error) {
		inner := Observable[U](func(ctx context.Context, obs Observer[U]) {
			outElem, err := guarded("map", index, func() (U, error) {
				return mapp(ctx, elem, index)
			})
			if err != nil {
				obs.OnError(err)
				return
			}

			obs.OnNext(outElem)
			obs.OnComplete()
		})

		return SubscribeOn(inner, cfg.scheduler), nil
	})
}

func flatten[T any, U any](src Observable[T], mapp MapperFunc[T, Observable[U]], policy FlattenPolicy, delayErrors bool) Observable[U] {
	return func(ctx context.Context, obs Observer[U]) {
		ctx, cancel := context.WithCancelCause(ctx)

		f := &flattener[U]{
			ctx:         ctx,
			cancel:      cancel,
			policy:      policy,
			delayErrors: delayErrors,
			out:         newSerializer(obs),
			active:      map[uint64]context.CancelCauseFunc{},
		}

		index := uint64(0)

		src(ctx, ObserverFuncs[T]{
			Next: func(elem T) {
				inner, err := guarded("flatten", index, func() (Observable[U], error) {
					return mapp(ctx, elem, index)
				})
				index++

				if err != nil {
					f.fail(err)
					return
				}

				f.push(inner)
			},

			Error: func(err error) {
				if delayErrors {
					f.lk.Lock()
					f.errs = multierr.Append(f.errs, err)
					f.upstreamDone = true
					f.lk.Unlock()

					f.drain()

					return
				}

				f.fail(err)
			},

			Complete: func() {
				f.lk.Lock()
				f.upstreamDone = true
				f.lk.Unlock()

				f.drain()
			},
		})
	}
}

// flattener holds the state of one Flatten subscription.
type flattener[U any] struct {
	ctx         context.Context
	cancel      context.CancelCauseFunc
	policy      FlattenPolicy
	delayErrors bool
	out         *serializer[U]

	lk           sync.Mutex
	pending      []Observable[U]
	active       map[uint64]context.CancelCauseFunc
	nextID       uint64
	upstreamDone bool
	finished     bool
	errs         error

	// wip counts drain requests, so that only one goroutine subscribes inner Observables at a time.
	wip atomic.Int32
}

func (f *flattener[U]) push(inner Observable[U]) {
	f.lk.Lock()

	if f.finished {
		f.lk.Unlock()
		return
	}

	if f.policy.admit(len(f.active)) == admitReplace && len(f.active) > 0 {
		replaced := make(map[uint64]struct{}, len(f.active))
		for id, cancel := range f.active {
			cancel(ErrDisposed)
			replaced[id] = struct{}{}
			delete(f.active, id)
		}

		f.out.purge(func(n notification[U]) bool {
			_, ok := replaced[n.tag]
			return ok && n.kind == kindNext
		})
	}

	if f.policy.admit(0) == admitReplace {
		f.pending = f.pending[:0]
	}

	f.pending = append(f.pending, inner)

	f.lk.Unlock()

	f.drain()
}

// drain subscribes pending inner Observables as far as the policy admits them, and completes the
// stream once nothing is left.
func (f *flattener[U]) drain() {
	if f.wip.Add(1) != 1 {
		return
	}

	missed := int32(1)

	for {
		for {
			f.lk.Lock()

			if f.finished || len(f.pending) == 0 || f.policy.admit(len(f.active)) == admitQueue {
				f.lk.Unlock()
				break
			}

			inner := f.pending[0]
			f.pending[0] = nil
			f.pending = f.pending[1:]

			f.nextID++
			id := f.nextID

			innerCtx, innerCancel := context.WithCancelCause(f.ctx)
			f.active[id] = innerCancel

			f.lk.Unlock()

			inner(innerCtx, &innerObserver[U]{f: f, id: id})
		}

		f.lk.Lock()

		if !f.finished && f.upstreamDone && len(f.active) == 0 && len(f.pending) == 0 {
			f.finished = true
			errs := f.errs

			if errs != nil {
				f.out.offer(errorNotification[U](errs))
			} else {
				f.out.offer(completeNotification[U]())
			}

			f.lk.Unlock()

			f.out.drain()
			f.cancel(nil)
		} else {
			f.lk.Unlock()
		}

		missed = f.wip.Add(-missed)
		if missed == 0 {
			return
		}
	}
}

// fail terminates the stream with err, disposing src and all inner Observables.
func (f *flattener[U]) fail(err error) {
	f.lk.Lock()

	if f.finished {
		f.lk.Unlock()
		undeliverable(err)
		return
	}

	f.finished = true
	f.pending = nil
	f.out.offer(errorNotification[U](err))

	f.lk.Unlock()

	f.cancel(err)
	f.out.drain()
}

// innerObserver receives the notifications of one inner Observable.
type innerObserver[U any] struct {
	f  *flattener[U]
	id uint64
}

// OnNext implements Observer.
func (o *innerObserver[U]) OnNext(elem U) {
	f := o.f

	f.lk.Lock()

	if _, ok := f.active[o.id]; !ok || f.finished {
		f.lk.Unlock()
		return
	}

	n := nextNotification(elem)
	n.tag = o.id
	f.out.offer(n)

	f.lk.Unlock()

	f.out.drain()
}

// OnError implements Observer.
func (o *innerObserver[U]) OnError(err error) {
	f := o.f

	if !f.delayErrors {
		f.lk.Lock()
		_, ok := f.active[o.id]
		f.lk.Unlock()

		if ok {
			f.fail(err)
		}

		return
	}

	f.lk.Lock()

	cancel, ok := f.active[o.id]
	if ok {
		delete(f.active, o.id)
		f.errs = multierr.Append(f.errs, err)
	}

	f.lk.Unlock()

	if ok {
		cancel(nil)
		f.drain()
	}
}

// OnComplete implements Observer.
func (o *innerObserver[U]) OnComplete() {
	f := o.f

	f.lk.Lock()

	cancel, ok := f.active[o.id]
	if ok {
		delete(f.active, o.id)
	}

	f.lk.Unlock()

	if ok {
		cancel(nil)
		f.drain()
	}
}
