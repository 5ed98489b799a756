// internal/resilience/health.go
package resilience

import (
	"sync"
	"time"
)

// HealthStatus is the derived status of one external source. It is used for
// observability only and never gates retries or circuits.
type HealthStatus string

const (
	HealthHealthy   HealthStatus = "healthy"
	HealthDegraded  HealthStatus = "degraded"
	HealthUnhealthy HealthStatus = "unhealthy"
)

// ServiceHealthRecord tracks one source for the life of the host process.
type ServiceHealthRecord struct {
	Source           string       `json:"source"`
	SuccessCount     int64        `json:"successCount"`
	FailureCount     int64        `json:"failureCount"`
	AverageLatencyMs float64      `json:"averageLatencyMs"`
	LastError        string       `json:"lastError,omitempty"`
	CircuitState     CircuitState `json:"-"`
}

// Status derives a health status from the record's error rate. Healthy is
// under 5% errors, degraded under 20%, anything else is unhealthy. A source
// with no completed attempts is healthy.
func (r *ServiceHealthRecord) Status() HealthStatus {
	total := r.SuccessCount + r.FailureCount
	if total == 0 {
		return HealthHealthy
	}
	rate := float64(r.FailureCount) / float64(total)
	switch {
	case rate < 0.05:
		return HealthHealthy
	case rate < 0.20:
		return HealthDegraded
	default:
		return HealthUnhealthy
	}
}

// HealthMonitor is a process-wide registry of per-source health records,
// updated on every completed attempt. Records are reset only by explicit
// operator action via Reset.
//
// Safe for concurrent use.
type HealthMonitor struct {
	mu      sync.RWMutex
	records map[string]*ServiceHealthRecord
}

// NewHealthMonitor creates an empty registry.
func NewHealthMonitor() *HealthMonitor {
	return &HealthMonitor{
		records: make(map[string]*ServiceHealthRecord),
	}
}

// RecordSuccess notes one successful attempt and folds the latency into the
// running average.
func (m *HealthMonitor) RecordSuccess(source string, latency time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec := m.record(source)
	rec.SuccessCount++
	rec.AverageLatencyMs = foldLatency(rec, latency)
}

// RecordFailure notes one failed attempt.
func (m *HealthMonitor) RecordFailure(source string, latency time.Duration, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec := m.record(source)
	rec.FailureCount++
	rec.AverageLatencyMs = foldLatency(rec, latency)
	if err != nil {
		rec.LastError = err.Error()
	}
}

// SetCircuitState mirrors the breaker's current state into the record.
func (m *HealthMonitor) SetCircuitState(source string, state CircuitState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record(source).CircuitState = state
}

// Record returns a copy of the named source's record, or false when the
// source has never completed an attempt.
func (m *HealthMonitor) Record(source string) (ServiceHealthRecord, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.records[source]
	if !ok {
		return ServiceHealthRecord{}, false
	}
	return *rec, true
}

// Snapshot returns a copy of every record keyed by source name.
func (m *HealthMonitor) Snapshot() map[string]ServiceHealthRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]ServiceHealthRecord, len(m.records))
	for name, rec := range m.records {
		out[name] = *rec
	}
	return out
}

// Reset clears the named source's record. Intended for operator use only.
func (m *HealthMonitor) Reset(source string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, source)
}

// ResetAll clears every record. Intended for operator use only.
func (m *HealthMonitor) ResetAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = make(map[string]*ServiceHealthRecord)
}

// record returns the live record for source, creating it if needed. Caller
// must hold the write lock.
func (m *HealthMonitor) record(source string) *ServiceHealthRecord {
	rec, ok := m.records[source]
	if !ok {
		rec = &ServiceHealthRecord{Source: source}
		m.records[source] = rec
	}
	return rec
}

func foldLatency(rec *ServiceHealthRecord, latency time.Duration) float64 {
	total := rec.SuccessCount + rec.FailureCount
	if total <= 0 {
		return rec.AverageLatencyMs
	}
	ms := float64(latency.Milliseconds())
	return rec.AverageLatencyMs + (ms-rec.AverageLatencyMs)/float64(total)
}
