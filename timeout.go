package kvgate

import (
	"context"
	"errors"
	"os"
	"time"
)

// runWithTimeout races op against a deadline. When the deadline fires
// first the distinguished ErrRequestTimeout is returned and the
// operation's goroutine is abandoned; the remote side may still execute
// it. When op finishes first its result is returned unmodified, except
// that a deadline-class error reported by op after the guard's deadline
// expired is still mapped to ErrRequestTimeout: op observing the expiry
// itself (ctx.Err(), a socket deadline) must look the same to the
// caller as the guard observing it.
//
// Caller cancellation through ctx is reported as the context's own
// error, not as a timeout.
func runWithTimeout[T any](ctx context.Context, timeout time.Duration, op func(ctx context.Context) (T, error)) (T, error) {
	opCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		value T
		err   error
	}

	// Buffered so the abandoned goroutine can still deliver and exit.
	done := make(chan outcome, 1)
	go func() {
		value, err := op(opCtx)
		done <- outcome{value, err}
	}()

	select {
	case out := <-done:
		if out.err != nil && ctx.Err() == nil &&
			errors.Is(opCtx.Err(), context.DeadlineExceeded) && isDeadlineError(out.err) {
			var zero T
			return zero, ErrRequestTimeout
		}
		return out.value, out.err
	case <-opCtx.Done():
		var zero T
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		return zero, ErrRequestTimeout
	}
}

// isDeadlineError reports whether err is an expiry, either of a context
// or of an I/O deadline derived from one.
func isDeadlineError(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded)
}
