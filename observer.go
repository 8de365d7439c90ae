package rx

import "sync"

// Observer receives the notifications of a stream.
// OnNext is called zero or more times, followed by at most one call to either OnError or OnComplete.
// Calls to the same Observer never overlap.
type Observer[T any] interface {
	OnNext(elem T)
	OnError(err error)
	OnComplete()
}

// ObserverFuncs implements Observer using optional functions. Nil functions are ignored.
type ObserverFuncs[T any] struct {
	Next     func(elem T)
	Error    func(err error)
	Complete func()
}

// OnNext implements Observer.
func (o ObserverFuncs[T]) OnNext(elem T) {
	if o.Next != nil {
		o.Next(elem)
	}
}

// OnError implements Observer.
func (o ObserverFuncs[T]) OnError(err error) {
	if o.Error != nil {
		o.Error(err)
	}
}

// OnComplete implements Observer.
func (o ObserverFuncs[T]) OnComplete() {
	if o.Complete != nil {
		o.Complete()
	}
}

type notificationKind uint8

const (
	kindNext notificationKind = iota
	kindError
	kindComplete
)

// notification is a recorded call to an Observer.
type notification[T any] struct {
	kind notificationKind
	elem T
	err  error

	// tag identifies the source of the notification in operators that merge several sources.
	tag uint64
}

func nextNotification[T any](elem T) notification[T] {
	return notification[T]{kind: kindNext, elem: elem}
}

func errorNotification[T any](err error) notification[T] {
	return notification[T]{kind: kindError, err: err}
}

func completeNotification[T any]() notification[T] {
	return notification[T]{kind: kindComplete}
}

func (n notification[T]) terminal() bool {
	return n.kind != kindNext
}

func (n notification[T]) deliver(obs Observer[T]) {
	switch n.kind {
	case kindNext:
		obs.OnNext(n.elem)
	case kindError:
		obs.OnError(n.err)
	case kindComplete:
		obs.OnComplete()
	}
}

// serializer delivers notifications coming from several goroutines to a single Observer,
// one at a time, in the order they were accepted. Only the first terminal notification is accepted.
//
// Operators that keep their own state lock may call offer while holding it, and drain once it
// is released. This fixes the delivery order without calling the Observer under the lock.
type serializer[T any] struct {
	obs Observer[T]

	lk       sync.Mutex
	queue    []notification[T]
	emitting bool
	done     bool
}

func newSerializer[T any](obs Observer[T]) *serializer[T] {
	return &serializer[T]{obs: obs}
}

// OnNext implements Observer.
func (s *serializer[T]) OnNext(elem T) {
	s.emit(nextNotification(elem))
}

// OnError implements Observer.
func (s *serializer[T]) OnError(err error) {
	if !s.emit(errorNotification[T](err)) {
		undeliverable(err)
	}
}

// OnComplete implements Observer.
func (s *serializer[T]) OnComplete() {
	s.emit(completeNotification[T]())
}

func (s *serializer[T]) emit(n notification[T]) bool {
	if !s.offer(n) {
		return false
	}

	s.drain()

	return true
}

// offer queues n for delivery, and reports whether it was accepted.
// An accepted notification is delivered by the next call to drain.
func (s *serializer[T]) offer(n notification[T]) bool {
	s.lk.Lock()
	defer s.lk.Unlock()

	if s.done {
		return false
	}

	if n.terminal() {
		s.done = true
	}

	s.queue = append(s.queue, n)

	return true
}

// drain delivers queued notifications, unless another goroutine is already doing so.
func (s *serializer[T]) drain() {
	s.lk.Lock()

	if s.emitting {
		s.lk.Unlock()
		return
	}

	s.emitting = true

	for len(s.queue) > 0 {
		n := s.queue[0]
		s.queue[0] = notification[T]{}
		s.queue = s.queue[1:]

		s.lk.Unlock()

		n.deliver(s.obs)

		s.lk.Lock()
	}

	s.queue = nil

	s.emitting = false

	s.lk.Unlock()
}

// purge removes queued notifications for which drop returns true.
func (s *serializer[T]) purge(drop func(n notification[T]) bool) {
	s.lk.Lock()
	defer s.lk.Unlock()

	kept := s.queue[:0]
	for _, n := range s.queue {
		if !drop(n) {
			kept = append(kept, n)
		}
	}

	for i := len(kept); i < len(s.queue); i++ {
		s.queue[i] = notification[T]{}
	}

	s.queue = kept
}
