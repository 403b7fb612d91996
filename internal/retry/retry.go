// File: internal/retry/retry.go
package retry

import (
	"context"
	"errors"
	"os"
	"strings"
	"time"
)

// Policy is a reusable retry schedule: a fixed attempt budget, a fixed
// backoff between attempts, and a predicate deciding which errors are worth
// retrying. A nil predicate retries everything.
type Policy struct {
	MaxAttempts int
	Backoff     time.Duration
	Retryable   func(error) bool
}

// Do runs fn until it succeeds, the attempt budget is exhausted, a
// non-retryable error occurs, or the context is cancelled. The last error is
// returned.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if errors.Is(lastErr, context.Canceled) || errors.Is(lastErr, context.DeadlineExceeded) {
			return lastErr
		}
		if p.Retryable != nil && !p.Retryable(lastErr) {
			return lastErr
		}
		if attempt == attempts {
			break
		}

		select {
		case <-time.After(p.Backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return lastErr
}

// IsPermissionError reports whether err looks like a transient
// permission-class failure (EPERM/EACCES or the textual equivalents Chrome
// emits when sandboxed process setup races container teardown).
func IsPermissionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, os.ErrPermission) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "operation not permitted") ||
		strings.Contains(msg, "permission denied") ||
		strings.Contains(msg, "eperm") ||
		strings.Contains(msg, "eacces")
}
