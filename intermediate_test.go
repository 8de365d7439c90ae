package rx

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"testing"

	"github.com/matryer/is"
)

func TestMap(t *testing.T) {
	is := is.New(t)

	ctx := context.Background()

	ints := Just(1, 2, 3, 4, 5)

	ints = Map(ints, func(_ context.Context, elem int, index uint64) (int, error) {
		is.Equal(index, uint64(elem-1))

		return elem * 2, nil
	})

	result, _ := Reduce(ctx, ints, nil, CollectSlice[int]())

	is.Equal(result, []int{2, 4, 6, 8, 10})
}

func TestMap_Error(t *testing.T) {
	is := is.New(t)

	ctx := context.Background()

	errBad := errors.New("bad")
	ints := Just(1, 2, 3, 4, 5)

	var upstreamCtx context.Context
	src := Observable[int](func(ctx context.Context, obs Observer[int]) {
		upstreamCtx = ctx
		ints(ctx, obs)
	})

	strs := Map(src, func(_ context.Context, elem int, _ uint64) (string, error) {
		is.True(elem <= 3)

		if elem == 3 {
			return "", errBad
		}

		return strconv.Itoa(elem), nil
	})

	result, err := Reduce(ctx, strs, nil, CollectSlice[string]())

	is.Equal(result, []string{"1", "2"})
	is.True(errors.Is(err, errBad))
	is.True(errors.Is(context.Cause(upstreamCtx), errBad))

	var callbackErr *CallbackError
	is.True(errors.As(err, &callbackErr))
	is.Equal(callbackErr.Op, "map")
	is.Equal(callbackErr.Index, uint64(2))
}

func TestMap_Panic(t *testing.T) {
	is := is.New(t)

	ints := Map(Just(1, 2), func(_ context.Context, elem int, _ uint64) (int, error) {
		if elem == 2 {
			panic("boom")
		}
		return elem, nil
	})

	rec, _ := subscribe(ints)

	is.Equal(rec.values(), []int{1})

	var callbackErr *CallbackError
	is.True(errors.As(rec.error(), &callbackErr))
	is.Equal(callbackErr.Panic, "boom")
}

func TestFilter(t *testing.T) {
	is := is.New(t)

	ctx := context.Background()

	ints := Just(1, 2, 3, 4, 5)

	ints = Filter(ints, func(_ context.Context, elem int, index uint64) (bool, error) {
		is.Equal(index, uint64(elem-1))

		return elem%2 == 0, nil
	})

	result, _ := ReduceSlice(ctx, ints)

	is.Equal(result, []int{2, 4})
}

func TestFilter_Error(t *testing.T) {
	is := is.New(t)

	ctx := context.Background()

	errBad := errors.New("bad")

	ints := Just(1, 2, 3, 4, 5).Filter(func(_ context.Context, elem int, _ uint64) (bool, error) {
		is.True(elem <= 3)

		if elem == 3 {
			return false, errBad
		}

		return true, nil
	})

	result, err := ReduceSlice(ctx, ints)

	is.Equal(result, []int{1, 2})
	is.True(errors.Is(err, errBad))
}

func TestDistinct(t *testing.T) {
	is := is.New(t)

	result, err := ReduceSlice(context.Background(), Distinct(Just(1, 2, 1, 3, 2, 4)))

	is.NoErr(err)
	is.Equal(result, []int{1, 2, 3, 4})
}

func TestDistinct_Interleaved(t *testing.T) {
	scenarios := []struct {
		name string
		in   []string
		want []string
	}{
		{name: "no duplicates", in: []string{"a", "b", "c"}, want: []string{"a", "b", "c"}},
		{name: "interleaved", in: []string{"b", "a", "b", "c", "a", "d", "c", "b"}, want: []string{"b", "a", "c", "d"}},
		{name: "all equal", in: []string{"x", "x", "x"}, want: []string{"x"}},
		{name: "empty", in: nil, want: nil},
	}

	for _, scenario := range scenarios {
		scenario := scenario
		t.Run(scenario.name, func(t *testing.T) {
			is := is.New(t)

			result, err := ReduceSlice(context.Background(), Distinct(FromSlice(scenario.in)))

			is.NoErr(err)
			is.Equal(result, scenario.want)
		})
	}
}

func TestMapFilter_Composition(t *testing.T) {
	double := FuncMapper(func(elem int) int {
		return elem * 2
	})
	overTen := FuncPredicate(func(elem int) bool {
		return elem > 10
	})
	// filtering doubled values is filtering by the predicate of the doubled value
	doubledOverTen := FuncPredicate(func(elem int) bool {
		return elem*2 > 10
	})

	for _, count := range []int{0, 1, 5, 6, 20} {
		count := count
		t.Run(strconv.Itoa(count), func(t *testing.T) {
			is := is.New(t)

			ctx := context.Background()

			mapThenFilter, err := ReduceSlice(ctx, Filter(Map(Range(0, count), double), overTen))
			is.NoErr(err)

			filterThenMap, err := ReduceSlice(ctx, Map(Filter(Range(0, count), doubledOverTen), double))
			is.NoErr(err)

			is.Equal(mapThenFilter, filterThenMap)

			var want []int
			for i := 0; i < count; i++ {
				if i*2 > 10 {
					want = append(want, i*2)
				}
			}
			is.Equal(mapThenFilter, want)
		})
	}
}

func TestDistinctBy(t *testing.T) {
	is := is.New(t)

	words := Just("apple", "avocado", "banana", "blueberry", "cherry")

	result, _ := ReduceSlice(context.Background(), DistinctBy(words, FuncMapper(func(elem string) byte {
		return elem[0]
	})))

	is.Equal(result, []string{"apple", "banana", "cherry"})
}

func TestDistinctBy_Panic(t *testing.T) {
	is := is.New(t)

	ints := DistinctBy(Just(1, 2, 3), func(_ context.Context, elem int, _ uint64) (int, error) {
		if elem == 2 {
			panic("boom")
		}
		return elem, nil
	})

	rec, _ := subscribe(ints)

	is.Equal(rec.values(), []int{1})
	is.Equal(rec.terminalCount(), 1)

	var callbackErr *CallbackError
	is.True(errors.As(rec.error(), &callbackErr))
	is.Equal(callbackErr.Op, "distinct")
	is.Equal(callbackErr.Index, uint64(1))
	is.Equal(callbackErr.Panic, "boom")
}

func TestDistinctBy_Error(t *testing.T) {
	is := is.New(t)

	errBad := errors.New("bad key")
	ints := DistinctBy(Just(1, 2, 3), func(_ context.Context, elem int, _ uint64) (int, error) {
		if elem == 3 {
			return 0, errBad
		}
		return elem % 2, nil
	})

	result, err := ReduceSlice(context.Background(), ints)

	is.Equal(result, []int{1, 2})
	is.True(errors.Is(err, errBad))
}

func TestDistinctUntilChanged(t *testing.T) {
	is := is.New(t)

	result, _ := ReduceSlice(context.Background(), DistinctUntilChanged(Just(1, 1, 2, 2, 1, 3, 3)))

	is.Equal(result, []int{1, 2, 1, 3})
}

func TestScan(t *testing.T) {
	is := is.New(t)

	sums := Just(1, 2, 3, 4).Scan(func(acc int, elem int) (int, error) {
		return acc + elem, nil
	})

	result, _ := ReduceSlice(context.Background(), sums)

	is.Equal(result, []int{1, 3, 6, 10})
}

func TestScanSeed(t *testing.T) {
	is := is.New(t)

	lengths := ScanSeed(Just("a", "bb", "ccc"), 10, func(acc int, elem string) (int, error) {
		return acc + len(elem), nil
	})

	result, _ := ReduceSlice(context.Background(), lengths)

	is.Equal(result, []int{10, 11, 13, 16})
}

func TestTake(t *testing.T) {
	is := is.New(t)

	var upstreamCtx context.Context
	src := Observable[int](func(ctx context.Context, obs Observer[int]) {
		upstreamCtx = ctx
		Range(0, 100)(ctx, obs)
	})

	result, err := ReduceSlice(context.Background(), src.Take(3))

	is.NoErr(err)
	is.Equal(result, []int{0, 1, 2})
	is.True(errors.Is(context.Cause(upstreamCtx), ErrLimitReached))
}

func TestTake_Zero(t *testing.T) {
	is := is.New(t)

	rec, _ := subscribe(Take(Never[int](), 0))

	is.True(rec.isCompleted())
	is.Equal(rec.count(), 0)
}

func TestTake_Short(t *testing.T) {
	is := is.New(t)

	result, err := ReduceSlice(context.Background(), Take(Just(1, 2), 5))

	is.NoErr(err)
	is.Equal(result, []int{1, 2})
}

func TestTakeLast(t *testing.T) {
	is := is.New(t)

	result, _ := ReduceSlice(context.Background(), Range(1, 10).TakeLast(3))
	is.Equal(result, []int{8, 9, 10})

	result, _ = ReduceSlice(context.Background(), Range(1, 2).TakeLast(3))
	is.Equal(result, []int{1, 2})

	rec, _ := subscribe(Range(1, 2).TakeLast(0))
	is.Equal(rec.count(), 0)
	is.True(rec.isCompleted())
}

func TestSkip(t *testing.T) {
	is := is.New(t)

	result, _ := ReduceSlice(context.Background(), Skip(Just(1, 2, 3, 4, 5), 2))

	is.Equal(result, []int{3, 4, 5})
}

func TestSkipLast(t *testing.T) {
	is := is.New(t)

	result, _ := ReduceSlice(context.Background(), Range(1, 5).SkipLast(2))
	is.Equal(result, []int{1, 2, 3})

	result, _ = ReduceSlice(context.Background(), Range(1, 5).SkipLast(0))
	is.Equal(result, []int{1, 2, 3, 4, 5})
}

func TestElementAt(t *testing.T) {
	is := is.New(t)

	result, _ := ReduceSlice(context.Background(), Just("a", "b", "c").ElementAt(1))
	is.Equal(result, []string{"b"})

	rec, _ := subscribe(Just("a").ElementAt(3))
	is.Equal(rec.count(), 0)
	is.True(rec.isCompleted())
}

func TestFirstLast(t *testing.T) {
	is := is.New(t)

	ctx := context.Background()

	first, err := ReduceSlice(ctx, Just(1, 2, 3).First())
	is.NoErr(err)
	is.Equal(first, []int{1})

	last, err := ReduceSlice(ctx, Just(1, 2, 3).Last())
	is.NoErr(err)
	is.Equal(last, []int{3})

	_, err = ReduceSlice(ctx, Empty[int]().First())
	is.True(errors.Is(err, ErrNoSuchElement))

	_, err = ReduceSlice(ctx, Empty[int]().Last())
	is.True(errors.Is(err, ErrNoSuchElement))
}

func TestIgnoreElements(t *testing.T) {
	is := is.New(t)

	rec, _ := subscribe(Just(1, 2, 3).IgnoreElements())

	is.Equal(rec.count(), 0)
	is.True(rec.isCompleted())
}

func TestDefaultIfEmpty(t *testing.T) {
	is := is.New(t)

	result, _ := ReduceSlice(context.Background(), Empty[int]().DefaultIfEmpty(42))
	is.Equal(result, []int{42})

	result, _ = ReduceSlice(context.Background(), Just(1).DefaultIfEmpty(42))
	is.Equal(result, []int{1})
}

func TestStartWith(t *testing.T) {
	is := is.New(t)

	result, _ := ReduceSlice(context.Background(), Just(3, 4).StartWith(1, 2))

	is.Equal(result, []int{1, 2, 3, 4})
}

func TestSort(t *testing.T) {
	is := is.New(t)

	ints := Just(5, 3, 1, 4, 2).Sort(func(a int, b int) bool {
		return a < b
	})

	result, _ := ReduceSlice(context.Background(), ints)

	is.Equal(result, []int{1, 2, 3, 4, 5})
}

func TestBuffer(t *testing.T) {
	is := is.New(t)

	result, err := ReduceSlice(context.Background(), Buffer(Just(1, 2, 3, 4, 5), 2))

	is.NoErr(err)
	is.Equal(result, [][]int{{1, 2}, {3, 4}, {5}})
}

func TestBuffer_Sizes(t *testing.T) {
	for m := 0; m <= 10; m++ {
		for n := 1; n <= 4; n++ {
			m, n := m, n
			t.Run(fmt.Sprintf("%d by %d", m, n), func(t *testing.T) {
				is := is.New(t)

				groups, err := ReduceSlice(context.Background(), Buffer(Range(0, m), n))

				is.NoErr(err)
				is.Equal(len(groups), (m+n-1)/n)

				next := 0
				for i, group := range groups {
					if i < len(groups)-1 {
						is.Equal(len(group), n)
					} else {
						is.True(len(group) >= 1 && len(group) <= n)
					}

					for _, elem := range group {
						is.Equal(elem, next)
						next++
					}
				}
				is.Equal(next, m)
			})
		}
	}
}

func TestBuffer_Error(t *testing.T) {
	is := is.New(t)

	errBad := errors.New("bad")

	rec, _ := subscribe(Buffer(Concat(Just(1, 2, 3), Throw[int](errBad)), 2))

	is.Equal(rec.values(), [][]int{{1, 2}})
	is.Equal(rec.error(), errBad)
}

func TestCountAllAny(t *testing.T) {
	is := is.New(t)

	ctx := context.Background()

	count, _ := ReduceSlice(ctx, Range(0, 7).Count())
	is.Equal(count, []uint64{7})

	positive := FuncPredicate(func(elem int) bool {
		return elem > 0
	})

	all, _ := ReduceSlice(ctx, Just(1, 2, 3).All(positive))
	is.Equal(all, []bool{true})

	all, _ = ReduceSlice(ctx, Just(1, -2, 3).All(positive))
	is.Equal(all, []bool{false})

	anyPositive, _ := ReduceSlice(ctx, Just(-1, -2).Any(positive))
	is.Equal(anyPositive, []bool{false})

	anyPositive, _ = ReduceSlice(ctx, Just(-1, 2).Any(positive))
	is.Equal(anyPositive, []bool{true})

	all, _ = ReduceSlice(ctx, Empty[int]().All(positive))
	is.Equal(all, []bool{true})
}
