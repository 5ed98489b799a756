// internal/resilience/retry.go
package resilience

import (
	"context"
	"time"

	"research-orchestrator/internal/common/config"
	"research-orchestrator/internal/common/errors"
	"research-orchestrator/internal/common/logger"
	"research-orchestrator/internal/common/metrics"
)

// RetryPolicy controls exponential backoff for a single source.
type RetryPolicy struct {
	MaxRetries        int
	InitialDelay      time.Duration
	MaxDelay          time.Duration
	BackoffMultiplier float64
}

// PolicyFromConfig converts the millisecond-based config block into a policy.
func PolicyFromConfig(cfg config.RetryConfig) RetryPolicy {
	return RetryPolicy{
		MaxRetries:        cfg.MaxRetries,
		InitialDelay:      time.Duration(cfg.InitialDelay) * time.Millisecond,
		MaxDelay:          time.Duration(cfg.MaxDelay) * time.Millisecond,
		BackoffMultiplier: cfg.BackoffMultiplier,
	}
}

// DefaultRetryPolicy returns the policy applied when a source has none configured.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:        3,
		InitialDelay:      500 * time.Millisecond,
		MaxDelay:          10 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

// Retry executes operation with exponential backoff. Non-retryable failures
// are returned immediately. A server-supplied retry-after hint overrides the
// computed delay for that attempt. After maxRetries additional attempts the
// last failure is returned.
func Retry(ctx context.Context, source string, policy RetryPolicy, log logger.Logger, operation func(ctx context.Context) error) error {
	var err error
	delay := policy.InitialDelay

	for attempt := 0; attempt <= policy.MaxRetries; attempt++ {
		err = operation(ctx)
		if err == nil {
			return nil
		}

		if !errors.IsRetryable(err) {
			return err
		}

		if attempt == policy.MaxRetries {
			break
		}

		wait := delay
		if hint := errors.RetryAfterHint(err); hint > 0 {
			wait = hint
		}
		if wait > policy.MaxDelay {
			wait = policy.MaxDelay
		}

		metrics.RetryAttemptsTotal.WithLabelValues(source).Inc()
		log.Warn("source call failed, retrying", map[string]interface{}{
			"source":      source,
			"attempt":     attempt + 1,
			"maxRetries":  policy.MaxRetries,
			"nextRetryIn": wait.String(),
			"error":       err.Error(),
		})

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}

		delay = time.Duration(float64(delay) * policy.BackoffMultiplier)
		if delay > policy.MaxDelay {
			delay = policy.MaxDelay
		}
	}

	return err
}
