// internal/resilience/fallback.go
package resilience

import (
	"context"
	"fmt"
	"strings"

	"research-orchestrator/internal/common/logger"
)

// Operation is a single attempt against one source.
type Operation func(ctx context.Context) error

// FallbackChainError carries the primary failure plus every fallback failure
// for diagnostics. The primary error remains the cause for unwrapping.
type FallbackChainError struct {
	Primary   error
	Fallbacks []error
}

func (e *FallbackChainError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "primary failed: %v", e.Primary)
	for i, ferr := range e.Fallbacks {
		fmt.Fprintf(&sb, "; fallback %d failed: %v", i+1, ferr)
	}
	return sb.String()
}

func (e *FallbackChainError) Unwrap() error {
	return e.Primary
}

// ExecuteWithFallbacks invokes primary; on failure it tries each fallback in
// order and returns on the first success. When everything fails the primary's
// error is returned augmented with all fallback failures.
func ExecuteWithFallbacks(ctx context.Context, log logger.Logger, primary Operation, fallbacks ...Operation) error {
	primaryErr := primary(ctx)
	if primaryErr == nil {
		return nil
	}
	if len(fallbacks) == 0 {
		return primaryErr
	}

	fallbackErrs := make([]error, 0, len(fallbacks))
	for i, fb := range fallbacks {
		if ctx.Err() != nil {
			fallbackErrs = append(fallbackErrs, ctx.Err())
			break
		}

		log.Warn("primary source failed, trying fallback", map[string]interface{}{
			"fallback": i + 1,
			"of":       len(fallbacks),
			"error":    primaryErr.Error(),
		})

		err := fb(ctx)
		if err == nil {
			return nil
		}
		fallbackErrs = append(fallbackErrs, err)
	}

	return &FallbackChainError{Primary: primaryErr, Fallbacks: fallbackErrs}
}
