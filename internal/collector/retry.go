package collector

import (
	"context"
	"fmt"
	"time"

	"TrendSentinel/internal/logger"
)

// RetryPolicy retries a call a bounded number of times with a fixed delay.
type RetryPolicy struct {
	Attempts int
	Delay    time.Duration
}

// DefaultRetryPolicy is three attempts two seconds apart.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Attempts: 3, Delay: 2 * time.Second}
}

// Do runs fn until it succeeds, attempts run out, or ctx is done.
func (p RetryPolicy) Do(ctx context.Context, what string, fn func(context.Context) error) error {
	attempts := max(p.Attempts, 1)
	var err error
	for i := 1; i <= attempts; i++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if i == attempts {
			break
		}
		logger.Warn("%s failed (attempt %d/%d), retrying in %s: %v", what, i, attempts, p.Delay, err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.Delay):
		}
	}
	return fmt.Errorf("%s: giving up after %d attempts: %w", what, attempts, err)
}
