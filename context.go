package rx

import "context"

// contextDone returns true if ctx.Err() != nil.
func contextDone(ctx context.Context) bool {
	return ctx.Err() != nil
}

// guarded calls fn, returning its error or a recovered panic as a *CallbackError.
func guarded[R any](op string, index uint64, fn func() (R, error)) (result R, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &CallbackError{Op: op, Index: index, Panic: r}
		}
	}()

	result, err = fn()
	if err != nil {
		err = &CallbackError{Op: op, Index: index, Err: err}
	}

	return result, err
}
