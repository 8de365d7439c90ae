package rx

import (
	"context"
	"math"
	"sync"

	"github.com/deadlyengineer/rx-with-go/scheduler"
)

// MapFlowable returns a Flowable that calls mapp for each element of src, and emits the results, in order.
func MapFlowable[T any, U any](src Flowable[T], mapp MapperFunc[T, U]) Flowable[U] {
	return func(ctx context.Context, sub Subscriber[U]) {
		m := &mapSubscriber[T, U]{
			ctx:  ctx,
			sub:  sub,
			mapp: mapp,
		}

		src(ctx, m)
	}
}

type mapSubscriber[T any, U any] struct {
	ctx      context.Context
	sub      Subscriber[U]
	mapp     MapperFunc[T, U]
	upstream Subscription
	index    uint64
	failed   bool
}

// OnSubscribe implements Subscriber.
func (m *mapSubscriber[T, U]) OnSubscribe(s Subscription) {
	m.upstream = s
	m.sub.OnSubscribe(s)
}

// OnNext implements Observer.
func (m *mapSubscriber[T, U]) OnNext(elem T) {
	if m.failed {
		return
	}

	outElem, err := guarded("map", m.index, func() (U, error) {
		return m.mapp(m.ctx, elem, m.index)
	})
	m.index++

	if err != nil {
		m.failed = true
		m.upstream.Cancel()
		m.sub.OnError(err)
		return
	}

	m.sub.OnNext(outElem)
}

// OnError implements Observer.
func (m *mapSubscriber[T, U]) OnError(err error) {
	if !m.failed {
		m.sub.OnError(err)
	}
}

// OnComplete implements Observer.
func (m *mapSubscriber[T, U]) OnComplete() {
	if !m.failed {
		m.sub.OnComplete()
	}
}

// Filter returns a Flowable that emits the elements for which filter returns true, in order.
// Each rejected element is replaced by requesting another one.
func (f Flowable[T]) Filter(filter PredicateFunc[T]) Flowable[T] {
	return func(ctx context.Context, sub Subscriber[T]) {
		f(ctx, &filterSubscriber[T]{
			ctx:    ctx,
			sub:    sub,
			filter: filter,
		})
	}
}

type filterSubscriber[T any] struct {
	ctx      context.Context
	sub      Subscriber[T]
	filter   PredicateFunc[T]
	upstream Subscription
	index    uint64
	failed   bool
}

// OnSubscribe implements Subscriber.
func (s *filterSubscriber[T]) OnSubscribe(upstream Subscription) {
	s.upstream = upstream
	s.sub.OnSubscribe(upstream)
}

// OnNext implements Observer.
func (s *filterSubscriber[T]) OnNext(elem T) {
	if s.failed {
		return
	}

	match, err := guarded("filter", s.index, func() (bool, error) {
		return s.filter(s.ctx, elem, s.index)
	})
	s.index++

	if err != nil {
		s.failed = true
		s.upstream.Cancel()
		s.sub.OnError(err)
		return
	}

	if !match {
		s.upstream.Request(1)
		return
	}

	s.sub.OnNext(elem)
}

// OnError implements Observer.
func (s *filterSubscriber[T]) OnError(err error) {
	if !s.failed {
		s.sub.OnError(err)
	}
}

// OnComplete implements Observer.
func (s *filterSubscriber[T]) OnComplete() {
	if !s.failed {
		s.sub.OnComplete()
	}
}

// ToObservable returns an Observable that requests unbounded demand from f.
func (f Flowable[T]) ToObservable() Observable[T] {
	return func(ctx context.Context, obs Observer[T]) {
		f(ctx, &batchSubscriber[T]{obs: obs})
	}
}

// OnBackpressure returns a Flowable that requests unbounded demand from f, and handles the elements
// its own Subscriber did not request according to policy.
func (f Flowable[T]) OnBackpressure(policy OverflowPolicy) Flowable[T] {
	return ToFlowable(f.ToObservable(), policy)
}

// ObserveOn returns a Flowable that delivers the notifications of f on a Worker of s.
// It requests prefetch elements ahead, and requests more once three quarters of them were delivered.
// A prefetch < 1 uses DefaultPrefetch.
func (f Flowable[T]) ObserveOn(s scheduler.Scheduler, prefetch int) Flowable[T] {
	limit := int64(prefetch)
	if limit < 1 {
		limit = DefaultPrefetch
	}

	return func(ctx context.Context, sub Subscriber[T]) {
		ctx, cancel := context.WithCancelCause(ctx)

		o := &observeOnSubscriber[T]{
			ctx:      ctx,
			cancel:   cancel,
			sub:      sub,
			w:        scheduler.NewWorker(s),
			prefetch: limit,
			refill:   limit - limit/4,
		}

		context.AfterFunc(ctx, o.w.Stop)

		f(ctx, o)
	}
}

// observeOnSubscriber hands elements over to a Worker through a bounded queue.
type observeOnSubscriber[T any] struct {
	ctx      context.Context
	cancel   context.CancelCauseFunc
	sub      Subscriber[T]
	w        *scheduler.Worker
	prefetch int64
	refill   int64

	upstream Subscription

	lk        sync.Mutex
	queue     []T
	terminal  *notification[T]
	requested int64
	consumed  int64
	finished  bool
}

// OnSubscribe implements Subscriber.
func (o *observeOnSubscriber[T]) OnSubscribe(s Subscription) {
	o.upstream = s

	o.w.Schedule(0, func() {
		o.sub.OnSubscribe(o)
	})

	s.Request(o.prefetch)
}

// OnNext implements Observer.
func (o *observeOnSubscriber[T]) OnNext(elem T) {
	o.lk.Lock()

	if o.finished || o.terminal != nil {
		o.lk.Unlock()
		return
	}

	if int64(len(o.queue)) >= o.prefetch {
		o.terminal = &notification[T]{kind: kindError, err: ErrMissingDemand}
		o.lk.Unlock()

		o.upstream.Cancel()
		o.schedule()

		return
	}

	o.queue = append(o.queue, elem)

	o.lk.Unlock()

	o.schedule()
}

// OnError implements Observer.
func (o *observeOnSubscriber[T]) OnError(err error) {
	o.setTerminal(notification[T]{kind: kindError, err: err})
}

// OnComplete implements Observer.
func (o *observeOnSubscriber[T]) OnComplete() {
	o.setTerminal(notification[T]{kind: kindComplete})
}

func (o *observeOnSubscriber[T]) setTerminal(n notification[T]) {
	o.lk.Lock()

	if o.finished || o.terminal != nil {
		o.lk.Unlock()

		if n.kind == kindError {
			undeliverable(n.err)
		}

		return
	}

	o.terminal = &n

	o.lk.Unlock()

	o.schedule()
}

// Request implements Subscription.
func (o *observeOnSubscriber[T]) Request(n int64) {
	if n <= 0 {
		log.Debugw("ignoring non-positive request", "n", n)
		return
	}

	o.lk.Lock()
	o.requested = addDemand(o.requested, n)
	o.lk.Unlock()

	o.schedule()
}

// Cancel implements Subscription.
func (o *observeOnSubscriber[T]) Cancel() {
	o.lk.Lock()
	o.finished = true
	o.queue = nil
	o.lk.Unlock()

	o.upstream.Cancel()
	o.cancel(ErrDisposed)
}

func (o *observeOnSubscriber[T]) schedule() {
	o.w.Schedule(0, o.deliver)
}

// deliver runs on the worker, handing over queued elements as far as demand allows.
func (o *observeOnSubscriber[T]) deliver() {
	for {
		o.lk.Lock()

		if o.finished {
			o.lk.Unlock()
			return
		}

		if o.terminal != nil && (o.terminal.kind == kindError || len(o.queue) == 0) {
			o.finished = true
			terminal := *o.terminal
			o.queue = nil
			o.lk.Unlock()

			terminal.deliver(o.sub)

			return
		}

		if o.requested == 0 || len(o.queue) == 0 {
			o.lk.Unlock()
			return
		}

		elem := o.queue[0]
		var zero T
		o.queue[0] = zero
		o.queue = o.queue[1:]

		if o.requested != math.MaxInt64 {
			o.requested--
		}

		o.consumed++
		replenish := o.consumed == o.refill
		if replenish {
			o.consumed = 0
		}

		o.lk.Unlock()

		o.sub.OnNext(elem)

		if replenish {
			o.upstream.Request(o.refill)
		}
	}
}
