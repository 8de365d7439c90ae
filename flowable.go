package rx

import (
	"context"
	"math"
	"sync"
	"sync/atomic"

	"github.com/deadlyengineer/rx-with-go/internal/metrics"
)

// Subscription is the demand channel between a Flowable and its Subscriber.
type Subscription interface {
	// Request adds n to the number of elements the Subscriber is willing to receive.
	// Requests saturate at math.MaxInt64, which means unbounded demand. Non-positive requests are ignored.
	Request(n int64)

	// Cancel stops the Flowable. Cancel is idempotent.
	Cancel()
}

// Subscriber is an Observer that controls the pace of a Flowable.
// OnSubscribe is called before any other notification.
type Subscriber[T any] interface {
	Observer[T]
	OnSubscribe(s Subscription)
}

// Flowable is a demand-aware stream: it never emits more elements than its Subscriber requested.
type Flowable[T any] func(ctx context.Context, sub Subscriber[T])

// OverflowPolicy decides what a Flowable does with elements its producer emits without demand.
type OverflowPolicy int

const (
	// OverflowFail fails the stream with an *OverflowError.
	OverflowFail OverflowPolicy = iota

	// OverflowLatest keeps only the most recent element without demand.
	OverflowLatest

	// OverflowDrop discards elements without demand.
	OverflowDrop

	// OverflowBuffer keeps all elements until they are requested.
	OverflowBuffer

	// OverflowBlock blocks the producer until there is demand.
	// The producer must run on a different goroutine than the Subscriber's requests.
	OverflowBlock
)

// String implements fmt.Stringer.
func (p OverflowPolicy) String() string {
	switch p {
	case OverflowFail:
		return "error"
	case OverflowLatest:
		return "latest"
	case OverflowDrop:
		return "drop"
	case OverflowBuffer:
		return "buffer"
	case OverflowBlock:
		return "block"
	default:
		return "unknown"
	}
}

// addDemand adds n to requested, saturating at math.MaxInt64.
func addDemand(requested int64, n int64) int64 {
	if requested > math.MaxInt64-n {
		return math.MaxInt64
	}
	return requested + n
}

// CreateFlowable returns a Flowable that calls emit for each subscription. Elements emitted without
// demand are handled according to policy.
func CreateFlowable[T any](emit EmitterFunc[T], policy OverflowPolicy) Flowable[T] {
	return func(ctx context.Context, sub Subscriber[T]) {
		e := newOverflowEmitter(ctx, policy, sub)

		sub.OnSubscribe(e)

		if contextDone(e.ctx) {
			return
		}

		_, err := guarded("create", 0, func() (struct{}, error) {
			emit(e.ctx, e)
			return struct{}{}, nil
		})
		if err != nil {
			e.OnError(err)
		}
	}
}

// ToFlowable returns a Flowable that emits the elements of src, handling elements emitted without
// demand according to policy.
func ToFlowable[T any](src Observable[T], policy OverflowPolicy) Flowable[T] {
	return func(ctx context.Context, sub Subscriber[T]) {
		e := newOverflowEmitter(ctx, policy, sub)

		sub.OnSubscribe(e)

		if contextDone(e.ctx) {
			return
		}

		src(e.ctx, e)
	}
}

// overflowEmitter sits between a producer that ignores demand and a Subscriber.
// It is the producer's Observer, and the Subscriber's Subscription.
type overflowEmitter[T any] struct {
	ctx    context.Context
	cancel context.CancelCauseFunc
	policy OverflowPolicy
	sub    Subscriber[T]

	lk        sync.Mutex
	cond      *sync.Cond
	requested int64
	queue     []T
	terminal  *notification[T]
	finished  bool
	emitting  bool
	missed    bool
}

func newOverflowEmitter[T any](ctx context.Context, policy OverflowPolicy, sub Subscriber[T]) *overflowEmitter[T] {
	ctx, cancel := context.WithCancelCause(ctx)

	e := &overflowEmitter[T]{
		ctx:    ctx,
		cancel: cancel,
		policy: policy,
		sub:    sub,
	}
	e.cond = sync.NewCond(&e.lk)

	if policy == OverflowBlock {
		context.AfterFunc(ctx, func() {
			e.lk.Lock()
			e.cond.Broadcast()
			e.lk.Unlock()
		})
	}

	return e
}

// Request implements Subscription.
func (e *overflowEmitter[T]) Request(n int64) {
	if n <= 0 {
		log.Debugw("ignoring non-positive request", "n", n)
		return
	}

	e.lk.Lock()
	e.requested = addDemand(e.requested, n)
	e.cond.Broadcast()
	e.lk.Unlock()

	e.drain()
}

// Cancel implements Subscription.
func (e *overflowEmitter[T]) Cancel() {
	e.cancel(ErrDisposed)

	e.lk.Lock()
	e.finished = true
	e.queue = nil
	e.cond.Broadcast()
	e.lk.Unlock()
}

// OnNext implements Observer.
func (e *overflowEmitter[T]) OnNext(elem T) {
	e.lk.Lock()

	if e.finished || e.terminal != nil || contextDone(e.ctx) {
		e.lk.Unlock()
		return
	}

	if int64(len(e.queue)) < e.requested {
		e.queue = append(e.queue, elem)
		e.lk.Unlock()
		e.drain()
		return
	}

	switch e.policy {
	case OverflowBuffer:
		e.queue = append(e.queue, elem)

	case OverflowLatest:
		if int64(len(e.queue)) > e.requested {
			e.queue[len(e.queue)-1] = elem
			e.dropped()
		} else {
			e.queue = append(e.queue, elem)
		}

	case OverflowDrop:
		e.dropped()

	case OverflowBlock:
		for int64(len(e.queue)) >= e.requested && !e.finished && !contextDone(e.ctx) {
			e.cond.Wait()
		}

		if e.finished || contextDone(e.ctx) {
			e.lk.Unlock()
			return
		}

		e.queue = append(e.queue, elem)

	default:
		err := &OverflowError{Pending: len(e.queue)}
		e.terminal = &notification[T]{kind: kindError, err: err}
		e.lk.Unlock()

		e.cancel(err)
		e.drain()

		return
	}

	e.lk.Unlock()

	e.drain()
}

// dropped must be called with lk held.
func (e *overflowEmitter[T]) dropped() {
	metrics.BackpressureDropped.WithLabelValues(e.policy.String()).Inc()
}

// OnError implements Observer.
func (e *overflowEmitter[T]) OnError(err error) {
	e.lk.Lock()

	if e.finished || e.terminal != nil {
		e.lk.Unlock()
		undeliverable(err)
		return
	}

	e.terminal = &notification[T]{kind: kindError, err: err}

	e.lk.Unlock()

	e.drain()
}

// OnComplete implements Observer.
func (e *overflowEmitter[T]) OnComplete() {
	e.lk.Lock()

	if e.finished || e.terminal != nil {
		e.lk.Unlock()
		return
	}

	e.terminal = &notification[T]{kind: kindComplete}

	e.lk.Unlock()

	e.drain()
}

// drain delivers queued elements as far as demand allows, followed by the terminal notification.
// Errors are delivered without waiting for queued elements.
func (e *overflowEmitter[T]) drain() {
	e.lk.Lock()

	if e.emitting {
		e.missed = true
		e.lk.Unlock()
		return
	}

	e.emitting = true

	for {
		for !e.finished && e.requested > 0 && len(e.queue) > 0 && (e.terminal == nil || e.terminal.kind != kindError) {
			elem := e.queue[0]
			var zero T
			e.queue[0] = zero
			e.queue = e.queue[1:]

			if e.requested != math.MaxInt64 {
				e.requested--
			}

			e.lk.Unlock()

			e.sub.OnNext(elem)

			e.lk.Lock()
		}

		if !e.finished && e.terminal != nil && (len(e.queue) == 0 || e.terminal.kind == kindError) {
			e.finished = true
			e.queue = nil
			terminal := *e.terminal

			e.lk.Unlock()

			terminal.deliver(e.sub)
			e.cancel(nil)

			e.lk.Lock()
		}

		if !e.missed {
			e.emitting = false
			e.lk.Unlock()
			return
		}

		e.missed = false
	}
}

// FlowableFromSlice returns a Flowable that emits elems, in order, as they are requested.
func FlowableFromSlice[T any](elems ...T) Flowable[T] {
	return generate(len(elems), func(i int) T {
		return elems[i]
	})
}

// FlowableRange returns a Flowable that emits count consecutive integers starting with start,
// as they are requested.
func FlowableRange(start int, count int) Flowable[int] {
	return generate(count, func(i int) int {
		return start + i
	})
}

// generate returns a Flowable that emits at(0), ..., at(count-1) as they are requested.
func generate[T any](count int, at func(i int) T) Flowable[T] {
	return func(ctx context.Context, sub Subscriber[T]) {
		ctx, cancel := context.WithCancelCause(ctx)

		g := &generator[T]{
			ctx:    ctx,
			cancel: cancel,
			sub:    sub,
			count:  count,
			at:     at,
		}

		sub.OnSubscribe(g)

		if count <= 0 {
			g.Request(1)
		}
	}
}

// generator emits on the goroutine that requests demand.
type generator[T any] struct {
	ctx    context.Context
	cancel context.CancelCauseFunc
	sub    Subscriber[T]
	count  int
	at     func(i int) T

	lk        sync.Mutex
	requested int64
	next      int
	emitting  bool
	done      bool
}

// Request implements Subscription.
func (g *generator[T]) Request(n int64) {
	if n <= 0 {
		log.Debugw("ignoring non-positive request", "n", n)
		return
	}

	g.lk.Lock()

	g.requested = addDemand(g.requested, n)

	if g.emitting || g.done {
		g.lk.Unlock()
		return
	}

	g.emitting = true

	for !g.done {
		if contextDone(g.ctx) {
			g.done = true
			break
		}

		if g.next >= g.count {
			g.done = true

			g.lk.Unlock()

			g.sub.OnComplete()
			g.cancel(nil)

			return
		}

		if g.requested == 0 {
			break
		}

		elem := g.at(g.next)
		g.next++

		if g.requested != math.MaxInt64 {
			g.requested--
		}

		g.lk.Unlock()

		g.sub.OnNext(elem)

		g.lk.Lock()
	}

	g.emitting = false

	g.lk.Unlock()
}

// Cancel implements Subscription.
func (g *generator[T]) Cancel() {
	g.cancel(ErrDisposed)
}

// Subscribe starts a production run delivering notifications to sub.
// The returned Disposable cancels the run.
//
// Elements emitted beyond the demand requested by sub fail the stream with ErrMissingDemand.
func (f Flowable[T]) Subscribe(ctx context.Context, sub Subscriber[T]) Disposable {
	s, ctx := newSubscription(ctx)

	f(ctx, &demandGuard[T]{
		guard: guard[T]{
			ctx:     ctx,
			obs:     sub,
			release: s.release,
		},
		sub:     sub,
		dispose: s.Dispose,
	})

	return s
}

// SubscribeWithDemand subscribes obs, requesting batch elements up front, and another batch each
// time a batch has been received. A batch < 1 requests unbounded demand.
func (f Flowable[T]) SubscribeWithDemand(ctx context.Context, batch int64, obs Observer[T]) Disposable {
	return f.Subscribe(ctx, &batchSubscriber[T]{
		obs:   obs,
		batch: batch,
	})
}

// demandGuard enforces the Subscriber contract, including demand, on behalf of sub.
type demandGuard[T any] struct {
	guard[T]

	sub     Subscriber[T]
	dispose func()

	upstream    Subscription
	outstanding atomic.Int64
}

// OnSubscribe implements Subscriber.
func (g *demandGuard[T]) OnSubscribe(s Subscription) {
	g.upstream = s
	g.sub.OnSubscribe(g)
}

// Request implements Subscription.
func (g *demandGuard[T]) Request(n int64) {
	if n <= 0 {
		log.Debugw("ignoring non-positive request", "n", n)
		return
	}

	for {
		current := g.outstanding.Load()
		if g.outstanding.CompareAndSwap(current, addDemand(current, n)) {
			break
		}
	}

	g.upstream.Request(n)
}

// Cancel implements Subscription.
func (g *demandGuard[T]) Cancel() {
	g.upstream.Cancel()
	g.dispose()
}

// OnNext implements Observer.
func (g *demandGuard[T]) OnNext(elem T) {
	if g.terminated.Load() || contextDone(g.ctx) {
		return
	}

	if !g.consume() {
		g.upstream.Cancel()
		g.guard.OnError(ErrMissingDemand)
		return
	}

	g.guard.OnNext(elem)
}

// consume takes one element off the outstanding demand, returning false if there is none.
func (g *demandGuard[T]) consume() bool {
	for {
		current := g.outstanding.Load()

		switch {
		case current == math.MaxInt64:
			return true
		case current <= 0:
			return false
		case g.outstanding.CompareAndSwap(current, current-1):
			return true
		}
	}
}

// batchSubscriber requests elements in batches on behalf of obs.
type batchSubscriber[T any] struct {
	obs      Observer[T]
	batch    int64
	s        Subscription
	received int64
}

// OnSubscribe implements Subscriber.
func (b *batchSubscriber[T]) OnSubscribe(s Subscription) {
	b.s = s

	if b.batch < 1 {
		s.Request(math.MaxInt64)
		return
	}

	s.Request(b.batch)
}

// OnNext implements Observer.
func (b *batchSubscriber[T]) OnNext(elem T) {
	b.obs.OnNext(elem)

	if b.batch < 1 {
		return
	}

	b.received++
	if b.received == b.batch {
		b.received = 0
		b.s.Request(b.batch)
	}
}

// OnError implements Observer.
func (b *batchSubscriber[T]) OnError(err error) {
	b.obs.OnError(err)
}

// OnComplete implements Observer.
func (b *batchSubscriber[T]) OnComplete() {
	b.obs.OnComplete()
}
