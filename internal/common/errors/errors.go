// Package errors provides standardized error handling for the research
// orchestration engine.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeWebSearchTimeout   ErrorCode = "WEB_SEARCH_TIMEOUT"
	ErrCodeWebSearchFailed    ErrorCode = "WEB_SEARCH_FAILED"
	ErrCodeInternalDataFailed ErrorCode = "INTERNAL_DATA_QUERY_FAILED"
	ErrCodeTechStackFailed    ErrorCode = "TECH_STACK_SCAN_FAILED"
	ErrCodeSecurityScanFailed ErrorCode = "SECURITY_SCAN_FAILED"
	ErrCodeReviewsFailed      ErrorCode = "REVIEW_AGGREGATION_FAILED"
	ErrCodeFinancialFailed    ErrorCode = "FINANCIAL_SIGNALS_FAILED"
	ErrCodeAdapterRateLimited ErrorCode = "ADAPTER_RATE_LIMITED"
	ErrCodeAdapterBadInput    ErrorCode = "ADAPTER_BAD_INPUT"

	ErrCodeSynthesisTimeout ErrorCode = "SYNTHESIS_TIMEOUT"
	ErrCodeSynthesisFailed  ErrorCode = "SYNTHESIS_FAILED"

	ErrCodeCircuitOpen          ErrorCode = "CIRCUIT_OPEN"
	ErrCodeConvergenceTimeout   ErrorCode = "CONVERGENCE_TIMEOUT"
	ErrCodeFatalInterpretation  ErrorCode = "FATAL_INTERPRETATION"
	ErrCodePlanValidationFailed ErrorCode = "PLAN_VALIDATION_FAILED"

	ErrCodeStoreWriteFailed       ErrorCode = "STORE_WRITE_FAILED"
	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"
)

// AdapterError represents a structured failure from an external collaborator.
// RetryAfter, when non-zero, carries a server-supplied backoff hint that
// overrides the retry policy's computed delay.
type AdapterError struct {
	Code       ErrorCode              `json:"code"`
	Source     string                 `json:"source"`
	Message    string                 `json:"message"`
	Details    string                 `json:"details,omitempty"`
	Retryable  bool                   `json:"retryable"`
	RetryAfter time.Duration          `json:"retryAfter,omitempty"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
	Timestamp  time.Time              `json:"timestamp"`
}

func (e *AdapterError) Error() string {
	return fmt.Sprintf("AdapterError[%s] %s: %s", e.Code, e.Source, e.Message)
}

// CircuitOpenError indicates a call was rejected without invoking the
// operation because the source's breaker is open.
type CircuitOpenError struct {
	Source string
}

func (e *CircuitOpenError) Error() string {
	return fmt.Sprintf("CircuitOpenError: circuit open for source %q", e.Source)
}

// ConvergenceTimeoutError indicates the iteration cap was reached without
// meeting convergence thresholds. It is not fatal; it triggers forced
// finalization with whatever evidence was gathered.
type ConvergenceTimeoutError struct {
	Iterations int
	Quality    float64
	Evidence   int
}

func (e *ConvergenceTimeoutError) Error() string {
	return fmt.Sprintf("ConvergenceTimeoutError: cap of %d iterations reached (evidence=%d, quality=%.2f)",
		e.Iterations, e.Evidence, e.Quality)
}

// FatalInterpretationError indicates no usable thesis or context could be
// derived. It is the only error that aborts the whole run.
type FatalInterpretationError struct {
	Reason string
}

func (e *FatalInterpretationError) Error() string {
	return fmt.Sprintf("FatalInterpretationError: %s", e.Reason)
}

// ==========================
// 2. Error Constructors
// ==========================

// NewAdapterTimeout creates a retryable timeout error for a source.
func NewAdapterTimeout(code ErrorCode, source string) *AdapterError {
	return &AdapterError{
		Code:      code,
		Source:    source,
		Message:   "collaborator call timed out",
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewAdapterFailure creates a retryable source failure wrapping the cause.
func NewAdapterFailure(code ErrorCode, source string, err error) *AdapterError {
	return &AdapterError{
		Code:      code,
		Source:    source,
		Message:   "collaborator call failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewAdapterRateLimited creates a retryable error carrying the server's
// retry-after hint.
func NewAdapterRateLimited(source string, retryAfter time.Duration) *AdapterError {
	return &AdapterError{
		Code:       ErrCodeAdapterRateLimited,
		Source:     source,
		Message:    "collaborator rate limited the request",
		Retryable:  true,
		RetryAfter: retryAfter,
		Timestamp:  time.Now().UTC(),
	}
}

// NewAdapterBadInput creates a non-retryable error for a rejected task.
func NewAdapterBadInput(source, details string) *AdapterError {
	return &AdapterError{
		Code:      ErrCodeAdapterBadInput,
		Source:    source,
		Message:   "collaborator rejected the task input",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewPlanValidationError creates a non-retryable error for an invalid
// research plan.
func NewPlanValidationError(details string) *AdapterError {
	return &AdapterError{
		Code:      ErrCodePlanValidationFailed,
		Source:    "plan",
		Message:   "research plan failed schema validation",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewStoreWriteError creates a retryable persistence error.
func NewStoreWriteError(err error) *AdapterError {
	return &AdapterError{
		Code:      ErrCodeStoreWriteFailed,
		Source:    "store",
		Message:   "failed to persist finalized run",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 3. Classification Helpers
// ==========================

// IsRetryable reports whether err should be retried. Circuit-open rejections
// and fatal interpretation failures are never retryable.
func IsRetryable(err error) bool {
	var adapterErr *AdapterError
	if errors.As(err, &adapterErr) {
		return adapterErr.Retryable
	}
	var circuitErr *CircuitOpenError
	if errors.As(err, &circuitErr) {
		return false
	}
	var fatalErr *FatalInterpretationError
	if errors.As(err, &fatalErr) {
		return false
	}
	// Unclassified errors default to retryable: transient network failures
	// from collaborator clients rarely arrive pre-classified.
	return true
}

// RetryAfterHint extracts a server-supplied backoff hint, or zero.
func RetryAfterHint(err error) time.Duration {
	var adapterErr *AdapterError
	if errors.As(err, &adapterErr) {
		return adapterErr.RetryAfter
	}
	return 0
}

// CodeOf returns the error code for a classified error, or UNKNOWN_ERROR.
func CodeOf(err error) ErrorCode {
	var adapterErr *AdapterError
	if errors.As(err, &adapterErr) {
		return adapterErr.Code
	}
	var circuitErr *CircuitOpenError
	if errors.As(err, &circuitErr) {
		return ErrCodeCircuitOpen
	}
	var convErr *ConvergenceTimeoutError
	if errors.As(err, &convErr) {
		return ErrCodeConvergenceTimeout
	}
	var fatalErr *FatalInterpretationError
	if errors.As(err, &fatalErr) {
		return ErrCodeFatalInterpretation
	}
	return "UNKNOWN_ERROR"
}

// GetRetryCount returns how many additional attempts a code deserves beyond
// the first. Non-retryable codes get zero.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeWebSearchTimeout, ErrCodeSynthesisTimeout:
		return 2
	case ErrCodeWebSearchFailed, ErrCodeInternalDataFailed, ErrCodeTechStackFailed,
		ErrCodeSecurityScanFailed, ErrCodeReviewsFailed, ErrCodeFinancialFailed,
		ErrCodeSynthesisFailed, ErrCodeStoreWriteFailed:
		return 3
	case ErrCodeAdapterRateLimited:
		return 5
	default:
		return 0
	}
}

// GetErrorCategory groups codes for logging and metrics labels.
func GetErrorCategory(code ErrorCode) string {
	switch code {
	case ErrCodeWebSearchTimeout, ErrCodeWebSearchFailed, ErrCodeInternalDataFailed,
		ErrCodeTechStackFailed, ErrCodeSecurityScanFailed, ErrCodeReviewsFailed,
		ErrCodeFinancialFailed, ErrCodeAdapterRateLimited, ErrCodeAdapterBadInput:
		return "adapter"
	case ErrCodeSynthesisTimeout, ErrCodeSynthesisFailed:
		return "synthesis"
	case ErrCodeCircuitOpen:
		return "resilience"
	case ErrCodeConvergenceTimeout, ErrCodeFatalInterpretation:
		return "orchestration"
	case ErrCodeStoreWriteFailed:
		return "store"
	case ErrCodeNotificationSendFailed:
		return "notification"
	default:
		return "unknown"
	}
}
