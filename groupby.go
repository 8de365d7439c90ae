package rx

import (
	"context"
	"sync"
)

// GroupedObservable is an Observable of the elements of a GroupBy upstream that share the same key.
// It buffers elements until it is subscribed, and supports a single subscriber.
type GroupedObservable[K comparable, T any] struct {
	Observable[T]

	// Key is the key shared by all elements of the group.
	Key K
}

// GroupBy returns an Observable that emits a GroupedObservable for each distinct key returned by
// key, and routes every element of src to the group of its key.
//
// Disposing the subscription of a group removes it: a later element with the same key opens
// a new group. The groups terminate with src.
func GroupBy[T any, K comparable](src Observable[T], key MapperFunc[T, K]) Observable[*GroupedObservable[K, T]] {
	return func(ctx context.Context, obs Observer[*GroupedObservable[K, T]]) {
		ctx, cancel := context.WithCancelCause(ctx)

		var lk sync.Mutex
		groups := map[K]*unicast[T]{}

		index := uint64(0)
		failed := false

		terminateGroups := func(n notification[T]) {
			lk.Lock()
			current := make([]*unicast[T], 0, len(groups))
			for _, g := range groups {
				current = append(current, g)
			}
			groups = map[K]*unicast[T]{}
			lk.Unlock()

			for _, g := range current {
				g.push(n)
			}
		}

		src(ctx, ObserverFuncs[T]{
			Next: func(elem T) {
				if failed {
					return
				}

				k, err := guarded("groupBy", index, func() (K, error) {
					return key(ctx, elem, index)
				})
				index++

				if err != nil {
					failed = true
					cancel(err)
					terminateGroups(errorNotification[T](err))
					obs.OnError(err)
					return
				}

				lk.Lock()
				g, ok := groups[k]
				if !ok {
					g = newUnicast[T]()
					g.onCancel = func() {
						lk.Lock()
						defer lk.Unlock()

						if groups[k] == g {
							delete(groups, k)
						}
					}
					groups[k] = g
				}
				lk.Unlock()

				if !ok {
					obs.OnNext(&GroupedObservable[K, T]{
						Observable: g.observable(),
						Key:        k,
					})
				}

				g.push(nextNotification(elem))
			},

			Error: func(err error) {
				if failed {
					return
				}

				terminateGroups(errorNotification[T](err))
				obs.OnError(err)
			},

			Complete: func() {
				if failed {
					return
				}

				terminateGroups(completeNotification[T]())
				obs.OnComplete()
			},
		})
	}
}
