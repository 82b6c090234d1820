package common

import (
	"context"
	"fmt"
	"time"
)

// Retry calls fn every retryPeriod until it succeeds, ctx is done or maxWaitTime has elapsed.
func Retry(ctx context.Context, fn func() error, retryPeriod, maxWaitTime time.Duration) error {
	return RetryIncreasing(ctx, fn, retryPeriod, retryPeriod, maxWaitTime)
}

// RetryIncreasing is Retry with a delay multiplied by ten after every failure, capped at maxDelay.
func RetryIncreasing(ctx context.Context, fn func() error, initialDelay, maxDelay, maxWaitTime time.Duration) error {
	startTime := time.Now()
	delay := initialDelay

	for {
		err := fn()
		if err == nil {
			return nil
		}

		if time.Since(startTime) > maxWaitTime {
			return fmt.Errorf("retry timeout, latest err: %w", err)
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("retry cancelled, latest err: %w", err)
		case <-time.After(delay):
		}

		delay *= 10
		if delay > maxDelay {
			delay = maxDelay
		}
	}
}
