// Package retry runs an operation a bounded number of times with a fixed
// pause between attempts.
package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// ErrExhausted is wrapped by the error returned when every attempt failed.
var ErrExhausted = errors.New("retry: attempts exhausted")

// Policy bounds a retry loop. There is no backoff: every pause is Delay.
type Policy struct {
	MaxAttempts int
	Delay       time.Duration
}

// wait pauses between attempts. Tests replace it to observe delays.
var wait = func(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Do calls op until it succeeds, the attempt budget is spent or ctx is done.
// No pause follows a successful attempt or the final failure.
func Do[T any](ctx context.Context, p Policy, logger *slog.Logger, name string, op func(context.Context) (T, error)) (T, int, error) {
	var zero T
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		v, err := op(ctx)
		if err == nil {
			if attempt > 1 {
				logger.Info("connected after retry", "target", name, "attempt", attempt)
			}
			return v, attempt, nil
		}
		lastErr = err
		logger.Warn("attempt failed", "target", name, "attempt", attempt, "max_attempts", attempts, "error", err)

		if attempt == attempts {
			break
		}
		if err := wait(ctx, p.Delay); err != nil {
			return zero, attempt, fmt.Errorf("%s: %w after %d attempts: %w", name, err, attempt, lastErr)
		}
	}

	return zero, attempts, fmt.Errorf("%s: %w after %d attempts: %w", name, ErrExhausted, attempts, lastErr)
}
