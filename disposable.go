package rx

import (
	"context"
	"sync"
	"sync/atomic"
)

// Disposable releases the resources of a subscription.
type Disposable interface {
	// Dispose cancels the subscription. Dispose is idempotent and safe for concurrent use.
	Dispose()

	// IsDisposed returns true once Dispose has been called, or the subscription has terminated.
	IsDisposed() bool
}

// subscription is the Disposable returned by Subscribe.
type subscription struct {
	ctx      context.Context
	cancel   context.CancelCauseFunc
	disposed atomic.Bool
}

func newSubscription(ctx context.Context) (*subscription, context.Context) {
	ctx, cancel := context.WithCancelCause(ctx)
	return &subscription{ctx: ctx, cancel: cancel}, ctx
}

// Dispose implements Disposable.
func (s *subscription) Dispose() {
	if s.disposed.Swap(true) {
		return
	}

	s.cancel(ErrDisposed)
}

// IsDisposed implements Disposable.
func (s *subscription) IsDisposed() bool {
	return s.disposed.Load() || contextDone(s.ctx)
}

// release cancels the subscription's context after a terminal notification.
func (s *subscription) release() {
	if s.disposed.Swap(true) {
		return
	}

	s.cancel(nil)
}

type funcDisposable struct {
	once     sync.Once
	disposed atomic.Bool
	fn       func()
}

// NewDisposable returns a Disposable that calls fn the first time it is disposed.
func NewDisposable(fn func()) Disposable {
	return &funcDisposable{fn: fn}
}

// Dispose implements Disposable.
func (d *funcDisposable) Dispose() {
	d.once.Do(func() {
		d.disposed.Store(true)

		if d.fn != nil {
			d.fn()
		}
	})
}

// IsDisposed implements Disposable.
func (d *funcDisposable) IsDisposed() bool {
	return d.disposed.Load()
}

// CompositeDisposable is a bag of Disposables that are disposed together.
// The zero value is ready to use.
type CompositeDisposable struct {
	lk       sync.Mutex
	items    []Disposable
	disposed bool
}

// Add adds items to the bag. If the bag is already disposed, items are disposed immediately.
func (c *CompositeDisposable) Add(items ...Disposable) {
	c.lk.Lock()

	if c.disposed {
		c.lk.Unlock()

		disposeAll(items)

		return
	}

	c.items = append(c.items, items...)

	c.lk.Unlock()
}

// Len returns the number of items in the bag.
func (c *CompositeDisposable) Len() int {
	c.lk.Lock()
	defer c.lk.Unlock()

	return len(c.items)
}

// Clear disposes and removes all items. The bag remains usable.
func (c *CompositeDisposable) Clear() {
	c.lk.Lock()
	items := c.items
	c.items = nil
	c.lk.Unlock()

	disposeAll(items)
}

// Dispose disposes and removes all items. Items added afterwards are disposed immediately.
func (c *CompositeDisposable) Dispose() {
	c.lk.Lock()
	c.disposed = true
	items := c.items
	c.items = nil
	c.lk.Unlock()

	disposeAll(items)
}

// IsDisposed implements Disposable.
func (c *CompositeDisposable) IsDisposed() bool {
	c.lk.Lock()
	defer c.lk.Unlock()

	return c.disposed
}

func disposeAll(items []Disposable) {
	for _, item := range items {
		if item != nil {
			item.Dispose()
		}
	}
}
