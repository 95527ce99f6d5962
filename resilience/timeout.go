package resilience

import (
	"context"
	"errors"
	"time"
)

// Do runs op under a deadline of d and returns its result. If the deadline
// passes first, Do returns ErrTimeout without waiting for op; op observes the
// cancelled context. Cancellation of the parent ctx returns ctx.Err().
// An op error caused by the deadline is also reported as ErrTimeout.
func Do[T any](ctx context.Context, d time.Duration, op func(context.Context) (T, error)) (T, error) {
	if d <= 0 {
		return op(ctx)
	}
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	type result struct {
		v   T
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := op(ctx)
		done <- result{v, err}
	}()

	var zero T
	select {
	case res := <-done:
		if res.err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) && errors.Is(res.err, context.DeadlineExceeded) {
			return zero, ErrTimeout
		}
		return res.v, res.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return zero, ErrTimeout
		}
		return zero, ctx.Err()
	}
}
