package rx

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/deadlyengineer/rx-with-go/scheduler"
)

// recorder is an Observer that records every notification it receives.
type recorder[T any] struct {
	clk clock.Clock

	lk        sync.Mutex
	elems     []T
	times     []time.Time
	err       error
	completed bool
	terminals int
	done      chan struct{}
}

func newRecorder[T any](clk clock.Clock) *recorder[T] {
	return &recorder[T]{
		clk:  clk,
		done: make(chan struct{}),
	}
}

func (r *recorder[T]) OnNext(elem T) {
	r.lk.Lock()
	defer r.lk.Unlock()

	r.elems = append(r.elems, elem)
	if r.clk != nil {
		r.times = append(r.times, r.clk.Now())
	}
}

func (r *recorder[T]) OnError(err error) {
	r.lk.Lock()
	defer r.lk.Unlock()

	r.err = err
	r.terminate()
}

func (r *recorder[T]) OnComplete() {
	r.lk.Lock()
	defer r.lk.Unlock()

	r.completed = true
	r.terminate()
}

func (r *recorder[T]) terminate() {
	r.terminals++
	if r.terminals == 1 {
		close(r.done)
	}
}

func (r *recorder[T]) values() []T {
	r.lk.Lock()
	defer r.lk.Unlock()

	return append([]T(nil), r.elems...)
}

func (r *recorder[T]) instants() []time.Time {
	r.lk.Lock()
	defer r.lk.Unlock()

	return append([]time.Time(nil), r.times...)
}

func (r *recorder[T]) error() error {
	r.lk.Lock()
	defer r.lk.Unlock()

	return r.err
}

func (r *recorder[T]) isCompleted() bool {
	r.lk.Lock()
	defer r.lk.Unlock()

	return r.completed
}

func (r *recorder[T]) terminalCount() int {
	r.lk.Lock()
	defer r.lk.Unlock()

	return r.terminals
}

func (r *recorder[T]) count() int {
	r.lk.Lock()
	defer r.lk.Unlock()

	return len(r.elems)
}

// wait blocks until a terminal notification was received.
func (r *recorder[T]) wait(t *testing.T) {
	t.Helper()

	select {
	case <-r.done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for terminal notification")
	}
}

func (r *recorder[T]) terminated() bool {
	select {
	case <-r.done:
		return true
	default:
		return false
	}
}

// eventually polls cond until it returns true.
func eventually(t *testing.T, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(time.Millisecond)
	}
}

// settle gives asynchronous timer callbacks a chance to run, for assertions that nothing happened.
func settle() {
	time.Sleep(20 * time.Millisecond)
}

// virtualTime returns a mock clock and a scheduler running delayed tasks on the clock's timers.
func virtualTime() (*clock.Mock, scheduler.Scheduler) {
	mock := clock.NewMock()
	return mock, scheduler.NewImmediate(scheduler.WithClock(mock))
}

func subscribe[T any](src Observable[T]) (*recorder[T], Disposable) {
	rec := newRecorder[T](nil)
	return rec, src.Subscribe(context.Background(), rec)
}

var (
	testPoolOnce sync.Once
	testPool     *scheduler.Pool
)

// testScheduler returns a pool shared by the tests of the package.
func testScheduler() scheduler.Scheduler {
	testPoolOnce.Do(func() {
		testPool = scheduler.NewPool(4, scheduler.WithName("test"))
	})
	return testPool
}
