package scheduler

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// RetryStrategy defines the interface for retry strategies
type RetryStrategy interface {
	// NextRetry calculates the delay before the given attempt
	NextRetry(attempt int) time.Duration
}

// ExponentialBackoff implements exponential backoff retry strategy
type ExponentialBackoff struct {
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// NextRetry calculates the next retry time using exponential backoff
func (s *ExponentialBackoff) NextRetry(attempt int) time.Duration {
	delay := float64(s.InitialDelay)
	for i := 0; i < attempt; i++ {
		delay *= s.Multiplier
	}

	if delay > float64(s.MaxDelay) {
		return s.MaxDelay
	}
	return time.Duration(delay)
}

// DefaultBackoff returns the backoff used for digest delivery
func DefaultBackoff() RetryStrategy {
	return &ExponentialBackoff{
		InitialDelay: defaultInitialDelay,
		MaxDelay:     defaultMaxDelay,
		Multiplier:   2,
	}
}

// retry calls fn until it succeeds, maxAttempts is reached or ctx is done
func retry(ctx context.Context, strategy RetryStrategy, maxAttempts int, logger *zap.Logger, fn func(context.Context) error) error {
	var err error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			delay := strategy.NextRetry(attempt - 1)
			logger.Debug("Retrying delivery",
				zap.Int("attempt", attempt+1),
				zap.Duration("delay", delay),
				zap.Error(err))

			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}

		if err = fn(ctx); err == nil {
			return nil
		}
	}
	return fmt.Errorf("%w: %v", ErrMaxRetriesExceeded, err)
}
