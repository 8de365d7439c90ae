package rx

import (
	"time"

	"github.com/deadlyengineer/rx-with-go/scheduler"
)

// Operators that keep the element type are also available as methods.
// Methods must not instantiate Observable with a type derived from T, such as Observable[[]T]:
// that would make the method set of Observable infinitely recursive.

// Map is like the package function Map, for mappers that keep the element type.
func (o Observable[T]) Map(mapp MapperFunc[T, T]) Observable[T] {
	return Map(o, mapp)
}

// Filter is like the package function Filter.
func (o Observable[T]) Filter(filter PredicateFunc[T]) Observable[T] {
	return Filter(o, filter)
}

// Scan is like the package function Scan.
func (o Observable[T]) Scan(accumulate func(acc T, elem T) (T, error)) Observable[T] {
	return Scan(o, accumulate)
}

// Take is like the package function Take.
func (o Observable[T]) Take(max uint64) Observable[T] {
	return Take(o, max)
}

// TakeLast is like the package function TakeLast.
func (o Observable[T]) TakeLast(num int) Observable[T] {
	return TakeLast(o, num)
}

// Skip is like the package function Skip.
func (o Observable[T]) Skip(num uint64) Observable[T] {
	return Skip(o, num)
}

// SkipLast is like the package function SkipLast.
func (o Observable[T]) SkipLast(num int) Observable[T] {
	return SkipLast(o, num)
}

// ElementAt is like the package function ElementAt.
func (o Observable[T]) ElementAt(index uint64) Observable[T] {
	return ElementAt(o, index)
}

// First is like the package function First.
func (o Observable[T]) First() Observable[T] {
	return First(o)
}

// Last is like the package function Last.
func (o Observable[T]) Last() Observable[T] {
	return Last(o)
}

// IgnoreElements is like the package function IgnoreElements.
func (o Observable[T]) IgnoreElements() Observable[T] {
	return IgnoreElements(o)
}

// DefaultIfEmpty is like the package function DefaultIfEmpty.
func (o Observable[T]) DefaultIfEmpty(def T) Observable[T] {
	return DefaultIfEmpty(o, def)
}

// StartWith is like the package function StartWith.
func (o Observable[T]) StartWith(elems ...T) Observable[T] {
	return StartWith(o, elems...)
}

// Sort is like the package function Sort.
func (o Observable[T]) Sort(less LessFunc[T]) Observable[T] {
	return Sort(o, less)
}

// MergeWith returns an Observable that merges the elements of o and others as they arrive.
func (o Observable[T]) MergeWith(others ...Observable[T]) Observable[T] {
	return Merge(append([]Observable[T]{o}, others...)...)
}

// ConcatWith returns an Observable that emits the elements of o, followed by those of others.
func (o Observable[T]) ConcatWith(others ...Observable[T]) Observable[T] {
	return Concat(append([]Observable[T]{o}, others...)...)
}

// Debounce is like the package function Debounce.
func (o Observable[T]) Debounce(d time.Duration, opts ...Option) Observable[T] {
	return Debounce(o, d, opts...)
}

// Sample is like the package function Sample.
func (o Observable[T]) Sample(period time.Duration, opts ...Option) Observable[T] {
	return Sample(o, period, opts...)
}

// Delay is like the package function Delay.
func (o Observable[T]) Delay(d time.Duration, opts ...Option) Observable[T] {
	return Delay(o, d, opts...)
}

// Timeout is like the package function Timeout.
func (o Observable[T]) Timeout(d time.Duration, opts ...Option) Observable[T] {
	return Timeout(o, d, opts...)
}

// DoOnNext is like the package function DoOnNext.
func (o Observable[T]) DoOnNext(fn func(elem T)) Observable[T] {
	return DoOnNext(o, fn)
}

// DoOnError is like the package function DoOnError.
func (o Observable[T]) DoOnError(fn func(err error)) Observable[T] {
	return DoOnError(o, fn)
}

// DoOnComplete is like the package function DoOnComplete.
func (o Observable[T]) DoOnComplete(fn func()) Observable[T] {
	return DoOnComplete(o, fn)
}

// DoOnSubscribe is like the package function DoOnSubscribe.
func (o Observable[T]) DoOnSubscribe(fn func()) Observable[T] {
	return DoOnSubscribe(o, fn)
}

// DoOnDispose is like the package function DoOnDispose.
func (o Observable[T]) DoOnDispose(fn func()) Observable[T] {
	return DoOnDispose(o, fn)
}

// SubscribeOn is like the package function SubscribeOn.
func (o Observable[T]) SubscribeOn(s scheduler.Scheduler) Observable[T] {
	return SubscribeOn(o, s)
}

// ObserveOn is like the package function ObserveOn.
func (o Observable[T]) ObserveOn(s scheduler.Scheduler) Observable[T] {
	return ObserveOn(o, s)
}
