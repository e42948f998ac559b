package source

import (
	"context"
	"errors"
	"time"
)

// maxRetryDelay caps the wait between fetch attempts.
const maxRetryDelay = 30 * time.Second

// RetryableError marks a fetch failure worth another attempt: network
// errors and 5xx responses.
type RetryableError struct{ Err error }

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// Retry calls fn until it succeeds, fails with an error that is not a
// RetryableError, or has run attempts times. The wait starts at delay and
// doubles up to maxRetryDelay. Cancelling ctx during a wait returns
// ctx.Err().
func Retry(ctx context.Context, attempts int, delay time.Duration, fn func() error) error {
	return retry(ctx, attempts, delay, nil, fn)
}

// retry is Retry with a hook that runs before every wait.
func retry(ctx context.Context, attempts int, delay time.Duration,
	onRetry func(attempt int, wait time.Duration, err error), fn func() error) error {
	for attempt := 1; ; attempt++ {
		err := fn()
		if err == nil || !isRetryable(err) || attempt >= attempts {
			return err
		}
		if onRetry != nil {
			onRetry(attempt, delay, err)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		delay = min(delay*2, maxRetryDelay)
	}
}

func isRetryable(err error) bool {
	return errors.As(err, new(*RetryableError))
}
