package rx

import (
	"context"
	"sync"

	"github.com/deadlyengineer/rx-with-go/internal/queue"
)

// Subject is a hot source: it is an Observer whose notifications are multicast to the Observers
// currently subscribed to its Observable. Late subscribers only receive later notifications, or
// the terminal notification if the Subject has already terminated.
//
// Calls to OnNext, OnError, and OnComplete must not overlap.
type Subject[T any] struct {
	lk        sync.Mutex
	observers map[uint64]Observer[T]
	nextID    uint64
	done      bool
	err       error
}

// NewSubject returns a new Subject.
func NewSubject[T any]() *Subject[T] {
	return &Subject[T]{
		observers: map[uint64]Observer[T]{},
	}
}

// Observable returns an Observable that subscribes to the Subject's notifications.
func (s *Subject[T]) Observable() Observable[T] {
	return func(ctx context.Context, obs Observer[T]) {
		s.lk.Lock()

		if s.done {
			err := s.err
			s.lk.Unlock()

			if err != nil {
				obs.OnError(err)
			} else {
				obs.OnComplete()
			}

			return
		}

		s.nextID++
		id := s.nextID
		s.observers[id] = obs

		s.lk.Unlock()

		context.AfterFunc(ctx, func() {
			s.lk.Lock()
			defer s.lk.Unlock()

			delete(s.observers, id)
		})
	}
}

// HasObservers returns true if any Observer is subscribed.
func (s *Subject[T]) HasObservers() bool {
	s.lk.Lock()
	defer s.lk.Unlock()

	return len(s.observers) > 0
}

// OnNext implements Observer.
func (s *Subject[T]) OnNext(elem T) {
	for _, obs := range s.snapshot(false, nil) {
		obs.OnNext(elem)
	}
}

// OnError implements Observer.
func (s *Subject[T]) OnError(err error) {
	for _, obs := range s.snapshot(true, err) {
		obs.OnError(err)
	}
}

// OnComplete implements Observer.
func (s *Subject[T]) OnComplete() {
	for _, obs := range s.snapshot(true, nil) {
		obs.OnComplete()
	}
}

// snapshot returns the current observers, removing them if terminal is true.
func (s *Subject[T]) snapshot(terminal bool, err error) []Observer[T] {
	s.lk.Lock()
	defer s.lk.Unlock()

	if s.done {
		return nil
	}

	observers := make([]Observer[T], 0, len(s.observers))
	for _, obs := range s.observers {
		observers = append(observers, obs)
	}

	if terminal {
		s.done = true
		s.err = err
		s.observers = map[uint64]Observer[T]{}
	}

	return observers
}

// unicast buffers notifications until its single Observer subscribes, then delivers them in order.
type unicast[T any] struct {
	lk         sync.Mutex
	pending    *queue.Queue[notification[T]]
	obs        Observer[T]
	subscribed bool
	emitting   bool
	cancelled  bool
	onCancel   func()
}

func newUnicast[T any]() *unicast[T] {
	return &unicast[T]{pending: queue.Unbounded[notification[T]]()}
}

func (u *unicast[T]) push(n notification[T]) {
	u.lk.Lock()

	if u.cancelled {
		u.lk.Unlock()
		return
	}

	u.pending.Push(n)

	u.lk.Unlock()

	u.drain()
}

func (u *unicast[T]) drain() {
	u.lk.Lock()

	if u.obs == nil || u.emitting {
		u.lk.Unlock()
		return
	}

	u.emitting = true

	for !u.cancelled {
		n, ok := u.pending.Pop()
		if !ok {
			break
		}

		u.lk.Unlock()

		n.deliver(u.obs)

		u.lk.Lock()
	}

	u.emitting = false

	u.lk.Unlock()
}

func (u *unicast[T]) observable() Observable[T] {
	return func(ctx context.Context, obs Observer[T]) {
		u.lk.Lock()

		if u.subscribed {
			u.lk.Unlock()
			obs.OnError(ErrAlreadySubscribed)
			return
		}

		u.subscribed = true
		u.obs = obs

		u.lk.Unlock()

		context.AfterFunc(ctx, u.cancel)

		u.drain()
	}
}

func (u *unicast[T]) cancel() {
	u.lk.Lock()
	u.cancelled = true
	u.pending.Drain()
	onCancel := u.onCancel
	u.lk.Unlock()

	if onCancel != nil {
		onCancel()
	}
}
