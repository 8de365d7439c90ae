package rx

import (
	"context"
	"sync/atomic"
)

// Observable produces elements for an Observer when it is called.
// Every call starts a new production run that lasts until a terminal notification is delivered,
// or ctx is done. Implementations must not deliver notifications after ctx is done.
type Observable[T any] func(ctx context.Context, obs Observer[T])

// Subscribe starts a production run delivering notifications to obs.
// The returned Disposable cancels the run. It reports disposed once the run has terminated.
//
// Notifications arriving after a terminal notification or after disposal are not delivered.
func (o Observable[T]) Subscribe(ctx context.Context, obs Observer[T]) Disposable {
	sub, ctx := newSubscription(ctx)

	o(ctx, &guard[T]{
		ctx:     ctx,
		obs:     obs,
		release: sub.release,
	})

	return sub
}

// SubscribeFuncs is like Subscribe, using optional functions to receive the notifications.
func (o Observable[T]) SubscribeFuncs(ctx context.Context, next func(elem T), err func(err error), complete func()) Disposable {
	return o.Subscribe(ctx, ObserverFuncs[T]{
		Next:     next,
		Error:    err,
		Complete: complete,
	})
}

// guard enforces the Observer contract on behalf of obs: nothing is delivered after a terminal
// notification, or after ctx is done.
type guard[T any] struct {
	ctx        context.Context
	obs        Observer[T]
	release    func()
	terminated atomic.Bool
}

// OnNext implements Observer.
func (g *guard[T]) OnNext(elem T) {
	if g.terminated.Load() || contextDone(g.ctx) {
		return
	}

	g.obs.OnNext(elem)
}

// OnError implements Observer.
func (g *guard[T]) OnError(err error) {
	if g.terminated.Swap(true) || contextDone(g.ctx) {
		undeliverable(err)
		return
	}

	g.obs.OnError(err)

	if g.release != nil {
		g.release()
	}
}

// OnComplete implements Observer.
func (g *guard[T]) OnComplete() {
	if g.terminated.Swap(true) || contextDone(g.ctx) {
		return
	}

	g.obs.OnComplete()

	if g.release != nil {
		g.release()
	}
}
