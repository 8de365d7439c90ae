// Package rx provides push-based reactive streams.
//
// A stream is an Observable, a function that produces elements for an Observer once it is called.
// Observables are cold: nothing happens until they are subscribed, and every subscription starts
// a fresh production run. Observers receive zero or more OnNext notifications, followed by at most
// one terminal notification, either OnError or OnComplete.
//
// Streams are composed using operators such as Map, Filter, FlatMap, SwitchMap, ConcatMap, Buffer,
// Debounce, Sample, Zip, Merge, CombineLatest, or Join. Operators that do not change the element
// type are also available as methods, which allows fluent chaining.
//
// Every subscription owns a context.Context. Disposing the subscription cancels that context with
// ErrDisposed, which transitively disposes every upstream and inner subscription. Producers must be
// prepared to be disposed at any time by checking the context before emitting.
//
// Production and delivery are moved between goroutines using the schedulers of package scheduler:
// SubscribeOn moves the point where production starts, ObserveOn moves the point where notifications
// are delivered. Time-based operators use the clock of their scheduler.
//
// Flowable is a demand-aware variant: subscribers request elements, and producers never emit more
// than requested. Producers that cannot slow down are handled by an OverflowPolicy.
//
// Errors returned or panics raised by functions passed to operators are delivered downstream as
// *CallbackError and dispose the upstream subscription.
package rx
