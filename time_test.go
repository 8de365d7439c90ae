package rx

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/matryer/is"
)

func TestDebounce(t *testing.T) {
	is := is.New(t)

	mock, sched := virtualTime()
	start := mock.Now()

	src := NewSubject[string]()

	rec := newRecorder[string](mock)
	src.Observable().Debounce(100*time.Millisecond, WithScheduler(sched)).Subscribe(context.Background(), rec)

	src.OnNext("a")
	mock.Add(30 * time.Millisecond)
	src.OnNext("b")
	mock.Add(30 * time.Millisecond)
	src.OnNext("c")

	// t=160
	mock.Add(100 * time.Millisecond)
	eventually(t, func() bool {
		return rec.count() == 1
	})

	// t=200
	mock.Add(40 * time.Millisecond)
	src.OnNext("d")

	// t=300
	mock.Add(100 * time.Millisecond)
	eventually(t, func() bool {
		return rec.count() == 2
	})

	src.OnComplete()

	is.Equal(rec.values(), []string{"c", "d"})
	is.Equal(rec.instants(), []time.Time{start.Add(160 * time.Millisecond), start.Add(300 * time.Millisecond)})
	is.True(rec.isCompleted())
}

func TestDebounce_FlushOnComplete(t *testing.T) {
	is := is.New(t)

	_, sched := virtualTime()

	rec, _ := subscribe(Just(1, 2, 3).Debounce(time.Second, WithScheduler(sched)))

	is.Equal(rec.values(), []int{3})
	is.True(rec.isCompleted())
}

func TestDebounce_ErrorDiscardsPending(t *testing.T) {
	is := is.New(t)

	errBad := errors.New("bad")

	_, sched := virtualTime()

	rec, _ := subscribe(Concat(Just(1), Throw[int](errBad)).Debounce(time.Second, WithScheduler(sched)))

	is.Equal(rec.count(), 0)
	is.Equal(rec.error(), errBad)
}

func TestSample(t *testing.T) {
	is := is.New(t)

	mock, sched := virtualTime()

	src := NewSubject[int]()

	rec, _ := subscribe(src.Observable().Sample(100*time.Millisecond, WithScheduler(sched)))

	mock.Add(10 * time.Millisecond)
	src.OnNext(1)
	mock.Add(40 * time.Millisecond)
	src.OnNext(2)

	// t=100
	mock.Add(50 * time.Millisecond)
	eventually(t, func() bool {
		return rec.count() == 1
	})

	// t=200, nothing new since the previous period
	mock.Add(100 * time.Millisecond)
	settle()
	is.Equal(rec.count(), 1)

	mock.Add(50 * time.Millisecond)
	src.OnNext(3)

	// t=300
	mock.Add(50 * time.Millisecond)
	eventually(t, func() bool {
		return rec.count() == 2
	})

	src.OnNext(4)
	src.OnComplete()

	is.Equal(rec.values(), []int{2, 3})
	is.True(rec.isCompleted())
}

func TestDelay(t *testing.T) {
	is := is.New(t)

	mock, sched := virtualTime()
	start := mock.Now()

	src := NewSubject[int]()

	rec := newRecorder[int](mock)
	src.Observable().Delay(100*time.Millisecond, WithScheduler(sched)).Subscribe(context.Background(), rec)

	src.OnNext(1)
	mock.Add(50 * time.Millisecond)
	src.OnNext(2)
	mock.Add(10 * time.Millisecond)
	src.OnComplete()

	// t=100
	mock.Add(40 * time.Millisecond)
	eventually(t, func() bool {
		return rec.count() == 1
	})

	// t=150
	mock.Add(50 * time.Millisecond)
	eventually(t, func() bool {
		return rec.count() == 2
	})
	is.True(!rec.terminated())

	// t=160
	mock.Add(10 * time.Millisecond)
	rec.wait(t)

	is.Equal(rec.values(), []int{1, 2})
	is.Equal(rec.instants(), []time.Time{start.Add(100 * time.Millisecond), start.Add(150 * time.Millisecond)})
	is.True(rec.isCompleted())
}

func TestDelay_ErrorCutsAhead(t *testing.T) {
	is := is.New(t)

	errBad := errors.New("bad")

	mock, sched := virtualTime()

	src := NewSubject[int]()

	rec, _ := subscribe(src.Observable().Delay(100*time.Millisecond, WithScheduler(sched)))

	src.OnNext(1)
	src.OnError(errBad)

	is.Equal(rec.error(), errBad)

	mock.Add(time.Second)
	settle()

	is.Equal(rec.count(), 0)
	is.Equal(rec.terminalCount(), 1)
}

func TestTimeout(t *testing.T) {
	is := is.New(t)

	mock, sched := virtualTime()

	src := NewSubject[int]()

	rec, _ := subscribe(src.Observable().Timeout(100*time.Millisecond, WithScheduler(sched)))

	mock.Add(50 * time.Millisecond)
	src.OnNext(1)

	// t=140, 90ms after the last element
	mock.Add(90 * time.Millisecond)
	settle()
	is.True(!rec.terminated())

	// t=150
	mock.Add(10 * time.Millisecond)
	rec.wait(t)

	err := rec.error()
	is.True(errors.Is(err, ErrTimeout))

	var timeoutErr *TimeoutError
	is.True(errors.As(err, &timeoutErr))
	is.Equal(timeoutErr.After, 100*time.Millisecond)

	is.Equal(rec.values(), []int{1})

	eventually(t, func() bool {
		return !src.HasObservers()
	})
}

func TestTimeout_Completes(t *testing.T) {
	is := is.New(t)

	mock, sched := virtualTime()

	rec, _ := subscribe(Just(1, 2).Timeout(100*time.Millisecond, WithScheduler(sched)))

	mock.Add(time.Second)
	settle()

	is.Equal(rec.values(), []int{1, 2})
	is.True(rec.isCompleted())
	is.Equal(rec.terminalCount(), 1)
}

func TestTimeInterval(t *testing.T) {
	is := is.New(t)

	mock, sched := virtualTime()
	start := mock.Now()

	src := NewSubject[string]()

	rec, _ := subscribe(TimeInterval(src.Observable(), WithScheduler(sched)))

	mock.Add(10 * time.Millisecond)
	src.OnNext("a")
	mock.Add(30 * time.Millisecond)
	src.OnNext("b")
	src.OnComplete()

	is.Equal(rec.values(), []Timed[string]{
		{Value: "a", Time: start.Add(10 * time.Millisecond), Elapsed: 10 * time.Millisecond},
		{Value: "b", Time: start.Add(40 * time.Millisecond), Elapsed: 30 * time.Millisecond},
	})
	is.True(rec.isCompleted())
}

func TestTimestamp(t *testing.T) {
	is := is.New(t)

	mock, sched := virtualTime()
	start := mock.Now()

	src := NewSubject[int]()

	rec, _ := subscribe(Timestamp(src.Observable(), WithScheduler(sched)))

	mock.Add(30 * time.Millisecond)
	src.OnNext(1)
	mock.Add(50 * time.Millisecond)
	src.OnNext(2)
	src.OnComplete()

	values := rec.values()
	is.Equal(len(values), 2)
	is.Equal(values[0].Value, 1)
	is.Equal(values[0].Time, start.Add(30*time.Millisecond))
	is.Equal(values[1].Time, start.Add(80*time.Millisecond))
	is.Equal(values[0].Elapsed, time.Duration(0))
	is.Equal(values[1].Elapsed, time.Duration(0))
	is.True(rec.isCompleted())
}

func TestBufferTime(t *testing.T) {
	is := is.New(t)

	mock, sched := virtualTime()

	src := NewSubject[int]()

	rec, _ := subscribe(BufferTime(src.Observable(), 100*time.Millisecond, WithScheduler(sched)))

	src.OnNext(1)
	mock.Add(50 * time.Millisecond)
	src.OnNext(2)

	// t=100
	mock.Add(50 * time.Millisecond)
	eventually(t, func() bool {
		return rec.count() == 1
	})

	mock.Add(20 * time.Millisecond)
	src.OnNext(3)
	src.OnComplete()

	is.Equal(rec.values(), [][]int{{1, 2}, {3}})
	is.True(rec.isCompleted())
}
