// internal/resilience/breaker.go
package resilience

import (
	"sync"
	"time"

	"research-orchestrator/internal/common/config"
	"research-orchestrator/internal/common/errors"
	"research-orchestrator/internal/common/metrics"
)

// CircuitState is the current state of a per-source breaker.
type CircuitState int

const (
	CircuitClosed CircuitState = iota
	CircuitOpen
	CircuitHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// BreakerPolicy controls when a source's circuit opens and recovers.
type BreakerPolicy struct {
	FailureThreshold int
	ResetTimeout     time.Duration
}

// BreakerFromConfig converts the millisecond-based config block into a policy.
func BreakerFromConfig(cfg config.BreakerConfig) BreakerPolicy {
	return BreakerPolicy{
		FailureThreshold: cfg.FailureThreshold,
		ResetTimeout:     time.Duration(cfg.ResetTimeout) * time.Millisecond,
	}
}

// DefaultBreakerPolicy returns the policy applied when a source has none configured.
func DefaultBreakerPolicy() BreakerPolicy {
	return BreakerPolicy{
		FailureThreshold: 5,
		ResetTimeout:     60 * time.Second,
	}
}

// CircuitBreaker isolates a single flaky source. Closed passes calls through
// and counts consecutive failures; open rejects immediately with a
// CircuitOpenError; half-open admits exactly one trial call. The open to
// half-open transition is checked lazily at call time, there is no
// background timer.
//
// Safe for concurrent use.
type CircuitBreaker struct {
	source string
	policy BreakerPolicy

	mu                  sync.Mutex
	state               CircuitState
	consecutiveFailures int
	lastFailure         time.Time
	trialInFlight       bool

	// now is swapped in tests to drive the reset timeout.
	now func() time.Time
}

// NewCircuitBreaker creates a closed breaker for the named source.
func NewCircuitBreaker(source string, policy BreakerPolicy) *CircuitBreaker {
	if policy.FailureThreshold <= 0 {
		policy.FailureThreshold = DefaultBreakerPolicy().FailureThreshold
	}
	if policy.ResetTimeout <= 0 {
		policy.ResetTimeout = DefaultBreakerPolicy().ResetTimeout
	}
	return &CircuitBreaker{
		source: source,
		policy: policy,
		state:  CircuitClosed,
		now:    time.Now,
	}
}

// State reports the breaker's current state, applying the lazy
// open-to-half-open transition first.
func (b *CircuitBreaker) State() CircuitState {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.maybeHalfOpen()
	return b.state
}

// Allow reports whether a call may proceed. In half-open state only one
// trial call is admitted; callers that were admitted must report the
// outcome via RecordSuccess or RecordFailure.
func (b *CircuitBreaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.maybeHalfOpen()

	switch b.state {
	case CircuitClosed:
		return nil
	case CircuitHalfOpen:
		if b.trialInFlight {
			return &errors.CircuitOpenError{Source: b.source}
		}
		b.trialInFlight = true
		return nil
	default:
		return &errors.CircuitOpenError{Source: b.source}
	}
}

// RecordSuccess notes a successful call. A success in half-open closes the
// circuit and resets the failure counter.
func (b *CircuitBreaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.trialInFlight = false
	b.consecutiveFailures = 0
	if b.state != CircuitClosed {
		b.transition(CircuitClosed)
	}
}

// RecordFailure notes a failed call. Reaching the failure threshold opens
// the circuit; a failure during the half-open trial reopens it and restarts
// the reset timer.
func (b *CircuitBreaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.lastFailure = b.now()

	if b.state == CircuitHalfOpen {
		b.trialInFlight = false
		b.transition(CircuitOpen)
		return
	}

	b.consecutiveFailures++
	if b.state == CircuitClosed && b.consecutiveFailures >= b.policy.FailureThreshold {
		b.transition(CircuitOpen)
	}
}

// Execute wraps operation with the breaker. The operation is only invoked
// when the breaker admits the call.
func (b *CircuitBreaker) Execute(operation func() error) error {
	if err := b.Allow(); err != nil {
		return err
	}
	if err := operation(); err != nil {
		b.RecordFailure()
		return err
	}
	b.RecordSuccess()
	return nil
}

// maybeHalfOpen performs the lazy open-to-half-open transition. Caller must
// hold the mutex.
func (b *CircuitBreaker) maybeHalfOpen() {
	if b.state == CircuitOpen && b.now().Sub(b.lastFailure) >= b.policy.ResetTimeout {
		b.trialInFlight = false
		b.transition(CircuitHalfOpen)
	}
}

func (b *CircuitBreaker) transition(to CircuitState) {
	b.state = to
	metrics.CircuitTransitionsTotal.WithLabelValues(b.source, to.String()).Inc()
}
