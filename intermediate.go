package rx

import (
	"context"

	"github.com/deadlyengineer/rx-with-go/internal/queue"
	"golang.org/x/exp/slices"
)

// Function returns the result of applying an operation to elem.
type Function[T any, U any] func(elem T) U

// MapperFunc maps element elem to type U.
// The index is the 0-based index of elem, in the order produced by the upstream Observable.
// A returned error fails the stream.
type MapperFunc[T any, U any] func(ctx context.Context, elem T, index uint64) (U, error)

// PredicateFunc returns true if elem matches a predicate.
// The index is the 0-based index of elem, in the order produced by the upstream Observable.
// A returned error fails the stream.
type PredicateFunc[T any] func(ctx context.Context, elem T, index uint64) (bool, error)

// LessFunc returns true if element a is "less" than element b.
type LessFunc[T any] func(a T, b T) bool

// FuncMapper returns a mapper that calls mapp for each element.
func FuncMapper[T any, U any](mapp Function[T, U]) MapperFunc[T, U] {
	return func(_ context.Context, elem T, _ uint64) (U, error) {
		return mapp(elem), nil
	}
}

// FuncPredicate returns a predicate that calls pred for each element.
func FuncPredicate[T any](pred Function[T, bool]) PredicateFunc[T] {
	return func(_ context.Context, elem T, _ uint64) (bool, error) {
		return pred(elem), nil
	}
}

// Identity returns a mapper that returns the same element it receives.
func Identity[T any]() MapperFunc[T, T] {
	return func(_ context.Context, elem T, _ uint64) (T, error) {
		return elem, nil
	}
}

// Map returns an Observable that calls mapp for each element emitted by src, and emits the
// results, in order.
func Map[T any, U any](src Observable[T], mapp MapperFunc[T, U]) Observable[U] {
	return func(ctx context.Context, obs Observer[U]) {
		ctx, cancel := context.WithCancelCause(ctx)

		index := uint64(0)
		failed := false

		src(ctx, ObserverFuncs[T]{
			Next: func(elem T) {
				if failed {
					return
				}

				outElem, err := guarded("map", index, func() (U, error) {
					return mapp(ctx, elem, index)
				})
				if err != nil {
					failed = true
					cancel(err)
					obs.OnError(err)
					return
				}

				index++

				obs.OnNext(outElem)
			},

			Error: func(err error) {
				if !failed {
					obs.OnError(err)
				}
			},

			Complete: func() {
				if !failed {
					obs.OnComplete()
				}
			},
		})
	}
}

// Filter returns an Observable that emits the elements of src for which filter returns true, in order.
func Filter[T any](src Observable[T], filter PredicateFunc[T]) Observable[T] {
	return func(ctx context.Context, obs Observer[T]) {
		ctx, cancel := context.WithCancelCause(ctx)

		index := uint64(0)
		failed := false

		src(ctx, ObserverFuncs[T]{
			Next: func(elem T) {
				if failed {
					return
				}

				filterResult, err := guarded("filter", index, func() (bool, error) {
					return filter(ctx, elem, index)
				})
				if err != nil {
					failed = true
					cancel(err)
					obs.OnError(err)
					return
				}

				index++

				if !filterResult {
					return
				}

				obs.OnNext(elem)
			},

			Error: func(err error) {
				if !failed {
					obs.OnError(err)
				}
			},

			Complete: func() {
				if !failed {
					obs.OnComplete()
				}
			},
		})
	}
}

// Distinct returns an Observable that emits the elements of src that have not been emitted before.
// Every distinct element is retained until the stream terminates.
func Distinct[T comparable](src Observable[T]) Observable[T] {
	return DistinctBy(src, Identity[T]())
}

// DistinctBy returns an Observable that emits the elements of src whose key has not been seen before.
// Every distinct key is retained until the stream terminates.
func DistinctBy[T any, K comparable](src Observable[T], key MapperFunc[T, K]) Observable[T] {
	return func(ctx context.Context, obs Observer[T]) {
		ctx, cancel := context.WithCancelCause(ctx)

		seen := map[K]struct{}{}
		index := uint64(0)
		failed := false

		src(ctx, ObserverFuncs[T]{
			Next: func(elem T) {
				if failed {
					return
				}

				k, err := guarded("distinct", index, func() (K, error) {
					return key(ctx, elem, index)
				})
				if err != nil {
					failed = true
					cancel(err)
					obs.OnError(err)
					return
				}

				index++

				if _, ok := seen[k]; ok {
					return
				}

				seen[k] = struct{}{}

				obs.OnNext(elem)
			},

			Error: func(err error) {
				if !failed {
					obs.OnError(err)
				}
			},

			Complete: func() {
				if !failed {
					obs.OnComplete()
				}
			},
		})
	}
}

// DistinctUntilChanged returns an Observable that emits the elements of src that differ from
// their predecessor.
func DistinctUntilChanged[T comparable](src Observable[T]) Observable[T] {
	return func(ctx context.Context, obs Observer[T]) {
		var last T
		first := true

		src(ctx, ObserverFuncs[T]{
			Next: func(elem T) {
				if !first && elem == last {
					return
				}

				first = false
				last = elem

				obs.OnNext(elem)
			},
			Error:    obs.OnError,
			Complete: obs.OnComplete,
		})
	}
}

// Scan returns an Observable that emits the first element of src, followed by the result of
// accumulating each further element into the previous result.
func Scan[T any](src Observable[T], accumulate func(acc T, elem T) (T, error)) Observable[T] {
	return func(ctx context.Context, obs Observer[T]) {
		ctx, cancel := context.WithCancelCause(ctx)

		var acc T
		index := uint64(0)
		failed := false

		src(ctx, ObserverFuncs[T]{
			Next: func(elem T) {
				if failed {
					return
				}

				if index == 0 {
					acc = elem
					index++
					obs.OnNext(acc)
					return
				}

				next, err := guarded("scan", index, func() (T, error) {
					return accumulate(acc, elem)
				})
				if err != nil {
					failed = true
					cancel(err)
					obs.OnError(err)
					return
				}

				acc = next
				index++

				obs.OnNext(acc)
			},

			Error: func(err error) {
				if !failed {
					obs.OnError(err)
				}
			},

			Complete: func() {
				if !failed {
					obs.OnComplete()
				}
			},
		})
	}
}

// ScanSeed returns an Observable that emits seed, followed by the result of accumulating each
// element of src into the previous result.
func ScanSeed[T any, A any](src Observable[T], seed A, accumulate func(acc A, elem T) (A, error)) Observable[A] {
	return func(ctx context.Context, obs Observer[A]) {
		ctx, cancel := context.WithCancelCause(ctx)

		acc := seed
		index := uint64(0)
		failed := false

		if contextDone(ctx) {
			return
		}

		obs.OnNext(acc)

		src(ctx, ObserverFuncs[T]{
			Next: func(elem T) {
				if failed {
					return
				}

				next, err := guarded("scan", index, func() (A, error) {
					return accumulate(acc, elem)
				})
				if err != nil {
					failed = true
					cancel(err)
					obs.OnError(err)
					return
				}

				acc = next
				index++

				obs.OnNext(acc)
			},

			Error: func(err error) {
				if !failed {
					obs.OnError(err)
				}
			},

			Complete: func() {
				if !failed {
					obs.OnComplete()
				}
			},
		})
	}
}

// Take returns an Observable that emits the first max elements of src, and completes.
// Once max elements have been emitted, the upstream is disposed with cause ErrLimitReached.
func Take[T any](src Observable[T], max uint64) Observable[T] {
	return func(ctx context.Context, obs Observer[T]) {
		srcCtx, cancelSrc := context.WithCancelCause(ctx)

		if max == 0 {
			cancelSrc(ErrLimitReached)
			obs.OnComplete()
			return
		}

		done := uint64(0)
		finished := false

		src(srcCtx, ObserverFuncs[T]{
			Next: func(elem T) {
				if finished {
					return
				}

				done++

				obs.OnNext(elem)

				if done == max {
					finished = true
					cancelSrc(ErrLimitReached)
					obs.OnComplete()
				}
			},

			Error: func(err error) {
				if !finished {
					finished = true
					obs.OnError(err)
				}
			},

			Complete: func() {
				if !finished {
					finished = true
					obs.OnComplete()
				}
			},
		})
	}
}

// TakeLast returns an Observable that emits the last num elements of src once it completes.
func TakeLast[T any](src Observable[T], num int) Observable[T] {
	return func(ctx context.Context, obs Observer[T]) {
		if num <= 0 {
			IgnoreElements(src)(ctx, obs)
			return
		}

		last := queue.Bounded[T](num)

		src(ctx, ObserverFuncs[T]{
			Next: func(elem T) {
				last.Push(elem)
			},

			Error: obs.OnError,

			Complete: func() {
				for _, elem := range last.Drain() {
					if contextDone(ctx) {
						return
					}

					obs.OnNext(elem)
				}

				obs.OnComplete()
			},
		})
	}
}

// Skip returns an Observable that emits the elements of src, skipping the first num elements.
func Skip[T any](src Observable[T], num uint64) Observable[T] {
	return func(ctx context.Context, obs Observer[T]) {
		done := uint64(0)

		src(ctx, ObserverFuncs[T]{
			Next: func(elem T) {
				done++
				if done <= num {
					return
				}

				obs.OnNext(elem)
			},
			Error:    obs.OnError,
			Complete: obs.OnComplete,
		})
	}
}

// SkipLast returns an Observable that emits the elements of src, except for the last num elements.
// Elements are emitted once num further elements have been received.
func SkipLast[T any](src Observable[T], num int) Observable[T] {
	return func(ctx context.Context, obs Observer[T]) {
		if num <= 0 {
			src(ctx, obs)
			return
		}

		window := queue.Bounded[T](num)

		src(ctx, ObserverFuncs[T]{
			Next: func(elem T) {
				if old, dropped := window.Push(elem); dropped {
					obs.OnNext(old)
				}
			},
			Error:    obs.OnError,
			Complete: obs.OnComplete,
		})
	}
}

// ElementAt returns an Observable that emits only the element of src at the 0-based index, and completes.
// If src completes before, the Observable completes without elements.
func ElementAt[T any](src Observable[T], index uint64) Observable[T] {
	return func(ctx context.Context, obs Observer[T]) {
		srcCtx, cancelSrc := context.WithCancelCause(ctx)

		current := uint64(0)
		finished := false

		src(srcCtx, ObserverFuncs[T]{
			Next: func(elem T) {
				if finished {
					return
				}

				if current < index {
					current++
					return
				}

				finished = true
				cancelSrc(ErrLimitReached)
				obs.OnNext(elem)
				obs.OnComplete()
			},

			Error: func(err error) {
				if !finished {
					obs.OnError(err)
				}
			},

			Complete: func() {
				if !finished {
					obs.OnComplete()
				}
			},
		})
	}
}

// First returns an Observable that emits only the first element of src, and completes.
// If src completes without elements, it fails with ErrNoSuchElement.
func First[T any](src Observable[T]) Observable[T] {
	return func(ctx context.Context, obs Observer[T]) {
		srcCtx, cancelSrc := context.WithCancelCause(ctx)

		finished := false

		src(srcCtx, ObserverFuncs[T]{
			Next: func(elem T) {
				if finished {
					return
				}

				finished = true
				cancelSrc(ErrLimitReached)
				obs.OnNext(elem)
				obs.OnComplete()
			},

			Error: func(err error) {
				if !finished {
					obs.OnError(err)
				}
			},

			Complete: func() {
				if !finished {
					obs.OnError(ErrNoSuchElement)
				}
			},
		})
	}
}

// Last returns an Observable that emits only the last element of src once it completes.
// If src completes without elements, it fails with ErrNoSuchElement.
func Last[T any](src Observable[T]) Observable[T] {
	return func(ctx context.Context, obs Observer[T]) {
		var last T
		seen := false

		src(ctx, ObserverFuncs[T]{
			Next: func(elem T) {
				last = elem
				seen = true
			},

			Error: obs.OnError,

			Complete: func() {
				if !seen {
					obs.OnError(ErrNoSuchElement)
					return
				}

				obs.OnNext(last)
				obs.OnComplete()
			},
		})
	}
}

// IgnoreElements returns an Observable that only delivers the terminal notification of src.
func IgnoreElements[T any](src Observable[T]) Observable[T] {
	return func(ctx context.Context, obs Observer[T]) {
		src(ctx, ObserverFuncs[T]{
			Error:    obs.OnError,
			Complete: obs.OnComplete,
		})
	}
}

// DefaultIfEmpty returns an Observable that emits the elements of src, or def if src completes
// without elements.
func DefaultIfEmpty[T any](src Observable[T], def T) Observable[T] {
	return func(ctx context.Context, obs Observer[T]) {
		empty := true

		src(ctx, ObserverFuncs[T]{
			Next: func(elem T) {
				empty = false
				obs.OnNext(elem)
			},

			Error: obs.OnError,

			Complete: func() {
				if empty {
					obs.OnNext(def)
				}

				obs.OnComplete()
			},
		})
	}
}

// StartWith returns an Observable that emits elems, followed by the elements of src.
func StartWith[T any](src Observable[T], elems ...T) Observable[T] {
	return Concat(Just(elems...), src)
}

// Sort returns an Observable that collects all elements of src, sorts them using less, and
// emits them in sorted order once src completes.
func Sort[T any](src Observable[T], less LessFunc[T]) Observable[T] {
	return func(ctx context.Context, obs Observer[T]) {
		result := []T{}

		src(ctx, ObserverFuncs[T]{
			Next: func(elem T) {
				result = append(result, elem)
			},

			Error: obs.OnError,

			Complete: func() {
				_, err := guarded("sort", 0, func() (struct{}, error) {
					slices.SortFunc(result, less)
					return struct{}{}, nil
				})
				if err != nil {
					obs.OnError(err)
					return
				}

				FromSlice(result)(ctx, obs)
			},
		})
	}
}

// Buffer returns an Observable that emits the elements of src in groups of size, in order.
// The last group may be shorter. A size < 1 is treated as 1.
func Buffer[T any](src Observable[T], size int) Observable[[]T] {
	if size < 1 {
		size = 1
	}

	return func(ctx context.Context, obs Observer[[]T]) {
		var group []T

		src(ctx, ObserverFuncs[T]{
			Next: func(elem T) {
				if group == nil {
					group = make([]T, 0, size)
				}

				group = append(group, elem)

				if len(group) == size {
					out := group
					group = nil
					obs.OnNext(out)
				}
			},

			Error: func(err error) {
				group = nil
				obs.OnError(err)
			},

			Complete: func() {
				if len(group) > 0 {
					out := group
					group = nil
					obs.OnNext(out)
				}

				obs.OnComplete()
			},
		})
	}
}

// Count returns an Observable that emits the number of elements of src once it completes.
func (o Observable[T]) Count() Observable[uint64] {
	return func(ctx context.Context, obs Observer[uint64]) {
		count := uint64(0)

		o(ctx, ObserverFuncs[T]{
			Next: func(T) {
				count++
			},

			Error: obs.OnError,

			Complete: func() {
				obs.OnNext(count)
				obs.OnComplete()
			},
		})
	}
}

// All returns an Observable that emits true if pred returns true for all elements of src.
// The first element that does not match emits false and disposes the upstream.
func (o Observable[T]) All(pred PredicateFunc[T]) Observable[bool] {
	return matchAll(o, pred, false)
}

// Any returns an Observable that emits true if pred returns true for any element of src.
// The first element that matches emits true and disposes the upstream.
func (o Observable[T]) Any(pred PredicateFunc[T]) Observable[bool] {
	return matchAll(o, pred, true)
}

// matchAll emits decisive as soon as pred returns decisive for an element, or !decisive once src completes.
func matchAll[T any](src Observable[T], pred PredicateFunc[T], decisive bool) Observable[bool] {
	op := "all"
	if decisive {
		op = "any"
	}

	return func(ctx context.Context, obs Observer[bool]) {
		srcCtx, cancelSrc := context.WithCancelCause(ctx)

		index := uint64(0)
		finished := false

		src(srcCtx, ObserverFuncs[T]{
			Next: func(elem T) {
				if finished {
					return
				}

				match, err := guarded(op, index, func() (bool, error) {
					return pred(srcCtx, elem, index)
				})
				index++

				if err != nil {
					finished = true
					cancelSrc(err)
					obs.OnError(err)
					return
				}

				if match != decisive {
					return
				}

				finished = true
				cancelSrc(ErrLimitReached)
				obs.OnNext(decisive)
				obs.OnComplete()
			},

			Error: func(err error) {
				if !finished {
					obs.OnError(err)
				}
			},

			Complete: func() {
				if !finished {
					obs.OnNext(!decisive)
					obs.OnComplete()
				}
			},
		})
	}
}
