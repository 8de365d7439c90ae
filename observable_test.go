package rx

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/deadlyengineer/rx-with-go/internal/metrics"
	"github.com/matryer/is"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestSubscribe(t *testing.T) {
	is := is.New(t)

	rec, sub := subscribe(Just(1, 2, 3))

	is.Equal(rec.values(), []int{1, 2, 3})
	is.True(rec.isCompleted())
	is.NoErr(rec.error())
	is.True(sub.IsDisposed())
}

func TestSubscribe_Cold(t *testing.T) {
	is := is.New(t)

	runs := 0
	src := Defer(func() (Observable[int], error) {
		runs++
		return Just(runs), nil
	})

	first, _ := subscribe(src)
	second, _ := subscribe(src)

	is.Equal(first.values(), []int{1})
	is.Equal(second.values(), []int{2})
}

func TestSubscribe_RejectsAfterTerminal(t *testing.T) {
	is := is.New(t)

	before := testutil.ToFloat64(metrics.UndeliverableErrors)

	misbehaving := Observable[int](func(_ context.Context, obs Observer[int]) {
		obs.OnNext(1)
		obs.OnComplete()
		obs.OnNext(2)
		obs.OnComplete()
		obs.OnError(errors.New("late"))
	})

	rec, _ := subscribe(misbehaving)

	is.Equal(rec.values(), []int{1})
	is.True(rec.isCompleted())
	is.Equal(rec.terminalCount(), 1)
	is.Equal(testutil.ToFloat64(metrics.UndeliverableErrors), before+1)
}

func TestSubscribeFuncs(t *testing.T) {
	is := is.New(t)

	var elems []string
	completed := false

	Just("a", "b").SubscribeFuncs(context.Background(), func(elem string) {
		elems = append(elems, elem)
	}, nil, func() {
		completed = true
	})

	is.Equal(elems, []string{"a", "b"})
	is.True(completed)
}

func TestDispose(t *testing.T) {
	is := is.New(t)

	subject := NewSubject[int]()

	var subCtx context.Context
	src := Observable[int](func(ctx context.Context, obs Observer[int]) {
		subCtx = ctx
		subject.Observable()(ctx, obs)
	})

	rec, sub := subscribe(src)

	subject.OnNext(1)
	is.True(!sub.IsDisposed())

	sub.Dispose()
	sub.Dispose()

	subject.OnNext(2)
	subject.OnComplete()

	is.True(sub.IsDisposed())
	is.Equal(rec.values(), []int{1})
	is.Equal(rec.terminalCount(), 0)
	is.True(errors.Is(context.Cause(subCtx), ErrDisposed))
}

func TestDispose_ParentContext(t *testing.T) {
	is := is.New(t)

	ctx, cancel := context.WithCancel(context.Background())

	sub := Never[int]().Subscribe(ctx, ObserverFuncs[int]{})
	is.True(!sub.IsDisposed())

	cancel()
	is.True(sub.IsDisposed())
}

func TestDispose_ConcurrentEmission(t *testing.T) {
	is := is.New(t)

	started := make(chan struct{})
	stopped := make(chan struct{})

	src := Create(func(ctx context.Context, emit Observer[int]) {
		go func() {
			defer close(stopped)

			close(started)

			for i := 0; !contextDone(ctx); i++ {
				emit.OnNext(i)
			}
		}()
	})

	rec, sub := subscribe(src)

	<-started
	eventually(t, func() bool {
		return rec.count() >= 100
	})

	sub.Dispose()
	atDispose := rec.count()

	<-stopped
	settle()

	// at most the delivery in flight when Dispose was called completes
	is.True(rec.count() <= atDispose+1)
	is.Equal(rec.terminalCount(), 0)
}

func TestDispose_ConcurrentCalls(t *testing.T) {
	is := is.New(t)

	calls := 0
	var lk sync.Mutex

	src := DoOnDispose(Never[int](), func() {
		lk.Lock()
		calls++
		lk.Unlock()
	})

	_, sub := subscribe(src)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sub.Dispose()
		}()
	}
	wg.Wait()

	eventually(t, func() bool {
		lk.Lock()
		defer lk.Unlock()
		return calls == 1
	})

	settle()

	lk.Lock()
	is.Equal(calls, 1)
	lk.Unlock()
}
