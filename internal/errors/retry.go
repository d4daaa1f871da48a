package errors

import (
	"context"
	"errors"
	"time"
)

const (
	retryAttempts = 3
	retryBase     = 100 * time.Millisecond
	retryCap      = 5 * time.Second
)

// WithRetry runs fn up to four times, doubling the delay between
// attempts. Only errors marked retryable (Telegram and database
// failures) are retried; everything else returns on the first try.
func WithRetry(ctx context.Context, fn func() error) error {
	if fn == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	delay := retryBase
	for attempt := 0; ; attempt++ {
		err := fn()
		if err == nil || !IsRetryable(err) || attempt == retryAttempts {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}

		delay *= 2
		if delay > retryCap {
			delay = retryCap
		}
	}
}

// IsRetryable reports whether err carries the retryable flag.
func IsRetryable(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr != nil && appErr.Retryable
}
