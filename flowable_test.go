package rx

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/deadlyengineer/rx-with-go/internal/metrics"
	"github.com/deadlyengineer/rx-with-go/scheduler"
	"github.com/matryer/is"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// testSubscriber records notifications, and requests initial elements when subscribed.
type testSubscriber[T any] struct {
	*recorder[T]

	initial int64

	lk sync.Mutex
	s  Subscription
}

func newTestSubscriber[T any](initial int64) *testSubscriber[T] {
	return &testSubscriber[T]{
		recorder: newRecorder[T](nil),
		initial:  initial,
	}
}

func (s *testSubscriber[T]) OnSubscribe(sub Subscription) {
	s.lk.Lock()
	s.s = sub
	s.lk.Unlock()

	if s.initial > 0 {
		sub.Request(s.initial)
	}
}

func (s *testSubscriber[T]) request(n int64) {
	s.lk.Lock()
	sub := s.s
	s.lk.Unlock()

	sub.Request(n)
}

func (s *testSubscriber[T]) cancel() {
	s.lk.Lock()
	sub := s.s
	s.lk.Unlock()

	sub.Cancel()
}

type noopSubscription struct{}

func (noopSubscription) Request(int64) {}

func (noopSubscription) Cancel() {}

func dropped(policy OverflowPolicy) float64 {
	return testutil.ToFloat64(metrics.BackpressureDropped.WithLabelValues(policy.String()))
}

func TestFlowableRange(t *testing.T) {
	is := is.New(t)

	sub := newTestSubscriber[int](0)
	FlowableRange(0, 5).Subscribe(context.Background(), sub)

	is.Equal(sub.count(), 0)

	sub.request(3)
	is.Equal(sub.values(), []int{0, 1, 2})
	is.True(!sub.terminated())

	sub.request(10)
	is.Equal(sub.values(), []int{0, 1, 2, 3, 4})
	is.True(sub.isCompleted())
}

func TestFlowableRange_Empty(t *testing.T) {
	is := is.New(t)

	sub := newTestSubscriber[int](0)
	FlowableRange(0, 0).Subscribe(context.Background(), sub)

	is.True(sub.isCompleted())
}

func TestFlowable_NonPositiveRequest(t *testing.T) {
	is := is.New(t)

	sub := newTestSubscriber[string](0)
	FlowableFromSlice("a", "b").Subscribe(context.Background(), sub)

	sub.request(0)
	sub.request(-1)

	is.Equal(sub.count(), 0)

	sub.request(1)
	is.Equal(sub.values(), []string{"a"})
}

func TestFlowable_Cancel(t *testing.T) {
	is := is.New(t)

	sub := newTestSubscriber[int](2)
	FlowableRange(0, 10).Subscribe(context.Background(), sub)

	sub.cancel()
	sub.request(5)

	is.Equal(sub.values(), []int{0, 1})
	is.Equal(sub.terminalCount(), 0)
}

func TestFlowable_MissingDemand(t *testing.T) {
	is := is.New(t)

	ignoresDemand := Flowable[int](func(_ context.Context, sub Subscriber[int]) {
		sub.OnSubscribe(noopSubscription{})
		sub.OnNext(1)
		sub.OnNext(2)
		sub.OnComplete()
	})

	sub := newTestSubscriber[int](1)
	ignoresDemand.Subscribe(context.Background(), sub)

	is.Equal(sub.values(), []int{1})
	is.Equal(sub.error(), ErrMissingDemand)
	is.Equal(sub.terminalCount(), 1)
}

func TestSubscribeWithDemand(t *testing.T) {
	is := is.New(t)

	rec := newRecorder[int](nil)
	FlowableRange(0, 5).SubscribeWithDemand(context.Background(), 2, rec)

	is.Equal(rec.values(), []int{0, 1, 2, 3, 4})
	is.True(rec.isCompleted())
}

func TestToFlowable(t *testing.T) {
	scenarios := []struct {
		name     string
		policy   OverflowPolicy
		values   []int
		dropped  float64
		more     []int
		overflow bool
	}{
		{name: "error", policy: OverflowFail, values: []int{0, 1, 2}, overflow: true},
		{name: "drop", policy: OverflowDrop, values: []int{0, 1, 2}, dropped: 7},
		{name: "latest", policy: OverflowLatest, values: []int{0, 1, 2}, dropped: 6, more: []int{9}},
		{name: "buffer", policy: OverflowBuffer, values: []int{0, 1, 2}, more: []int{3, 4, 5, 6, 7, 8, 9}},
	}

	for _, scenario := range scenarios {
		scenario := scenario
		t.Run(scenario.name, func(t *testing.T) {
			is := is.New(t)

			before := dropped(scenario.policy)

			sub := newTestSubscriber[int](3)
			ToFlowable(Range(0, 10), scenario.policy).Subscribe(context.Background(), sub)

			is.Equal(sub.values(), scenario.values)
			is.Equal(dropped(scenario.policy)-before, scenario.dropped)

			if scenario.overflow {
				is.True(errors.Is(sub.error(), ErrOverflow))
				return
			}

			if len(scenario.more) > 0 {
				is.True(!sub.terminated())
				sub.request(100)
			}

			is.Equal(sub.values(), append(scenario.values, scenario.more...))
			is.True(sub.isCompleted())
		})
	}
}

func TestToFlowable_Block(t *testing.T) {
	is := is.New(t)

	sub := newTestSubscriber[int](3)
	ToFlowable(Range(0, 10).SubscribeOn(testScheduler()), OverflowBlock).Subscribe(context.Background(), sub)

	eventually(t, func() bool {
		return sub.count() == 3
	})

	settle()
	is.Equal(sub.count(), 3)

	sub.request(7)
	sub.wait(t)

	is.Equal(sub.values(), []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9})
	is.True(sub.isCompleted())
}

func TestToFlowable_BlockCancel(t *testing.T) {
	returned := make(chan struct{})

	src := Create(func(ctx context.Context, emit Observer[int]) {
		defer close(returned)

		for i := 0; ctx.Err() == nil; i++ {
			emit.OnNext(i)
		}
	})

	sub := newTestSubscriber[int](1)
	ToFlowable(src.SubscribeOn(testScheduler()), OverflowBlock).Subscribe(context.Background(), sub)

	eventually(t, func() bool {
		return sub.count() == 1
	})

	sub.cancel()

	select {
	case <-returned:
	case <-time.After(2 * time.Second):
		t.Fatal("blocked producer was not released")
	}
}

func TestCreateFlowable(t *testing.T) {
	is := is.New(t)

	f := CreateFlowable(func(_ context.Context, emit Observer[int]) {
		for i := 0; i < 5; i++ {
			emit.OnNext(i)
		}
		emit.OnComplete()
	}, OverflowBuffer)

	rec := newRecorder[int](nil)
	f.SubscribeWithDemand(context.Background(), 2, rec)

	is.Equal(rec.values(), []int{0, 1, 2, 3, 4})
	is.True(rec.isCompleted())
}

func TestCreateFlowable_Panic(t *testing.T) {
	is := is.New(t)

	f := CreateFlowable(func(context.Context, Observer[int]) {
		panic("boom")
	}, OverflowBuffer)

	rec := newRecorder[int](nil)
	f.SubscribeWithDemand(context.Background(), 0, rec)

	var cbErr *CallbackError
	is.True(errors.As(rec.error(), &cbErr))
	is.Equal(cbErr.Op, "create")
}

func TestFlowable_FilterMap(t *testing.T) {
	is := is.New(t)

	even := FlowableRange(0, 10).Filter(func(_ context.Context, elem int, _ uint64) (bool, error) {
		return elem%2 == 0, nil
	})

	tens := MapFlowable(even, func(_ context.Context, elem int, _ uint64) (int, error) {
		return elem * 10, nil
	})

	rec := newRecorder[int](nil)
	tens.SubscribeWithDemand(context.Background(), 2, rec)

	is.Equal(rec.values(), []int{0, 20, 40, 60, 80})
	is.True(rec.isCompleted())
}

func TestMapFlowable_Error(t *testing.T) {
	is := is.New(t)

	errBad := errors.New("bad")

	f := MapFlowable(FlowableRange(0, 10), func(_ context.Context, elem int, _ uint64) (int, error) {
		if elem == 2 {
			return 0, errBad
		}
		return elem, nil
	})

	sub := newTestSubscriber[int](100)
	f.Subscribe(context.Background(), sub)

	is.Equal(sub.values(), []int{0, 1})
	is.True(errors.Is(sub.error(), errBad))
	is.Equal(sub.terminalCount(), 1)
}

func TestFlowable_ToObservable(t *testing.T) {
	is := is.New(t)

	result, err := ReduceSlice(context.Background(), FlowableRange(1, 3).ToObservable())

	is.NoErr(err)
	is.Equal(result, []int{1, 2, 3})
}

func TestFlowable_OnBackpressure(t *testing.T) {
	is := is.New(t)

	sub := newTestSubscriber[int](3)
	FlowableRange(0, 10).OnBackpressure(OverflowDrop).Subscribe(context.Background(), sub)

	is.Equal(sub.values(), []int{0, 1, 2})
	is.True(sub.isCompleted())
}

func TestFlowable_ObserveOn(t *testing.T) {
	is := is.New(t)

	host := scheduler.NewHost()

	rec := newRecorder[int](nil)
	FlowableRange(0, 5).ObserveOn(host, 2).SubscribeWithDemand(context.Background(), 0, rec)

	is.Equal(rec.count(), 0)

	host.RunPending()

	is.Equal(rec.values(), []int{0, 1, 2, 3, 4})
	is.True(rec.isCompleted())
}

func TestFlowable_ObserveOnPool(t *testing.T) {
	is := is.New(t)

	f := FlowableRange(0, 1000).ObserveOn(testScheduler(), 16)

	result, err := ReduceSlice(context.Background(), f.ToObservable())
	is.NoErr(err)

	is.Equal(len(result), 1000)
	for i, v := range result {
		is.Equal(v, i)
	}
}

func TestOverflowPolicy_String(t *testing.T) {
	is := is.New(t)

	is.Equal(OverflowFail.String(), "error")
	is.Equal(OverflowBlock.String(), "block")
	is.Equal(OverflowPolicy(42).String(), "unknown")
}
