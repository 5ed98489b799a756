// internal/resilience/health_test.go
package resilience

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthMonitor_RecordsOutcomes(t *testing.T) {
	m := NewHealthMonitor()

	m.RecordSuccess("web_search", 120*time.Millisecond)
	m.RecordSuccess("web_search", 80*time.Millisecond)
	m.RecordFailure("web_search", 200*time.Millisecond, assert.AnError)

	rec, ok := m.Record("web_search")
	require.True(t, ok)
	assert.Equal(t, int64(2), rec.SuccessCount)
	assert.Equal(t, int64(1), rec.FailureCount)
	assert.Equal(t, assert.AnError.Error(), rec.LastError)
	assert.InDelta(t, 133.3, rec.AverageLatencyMs, 1.0)
}

func TestHealthMonitor_UnknownSource(t *testing.T) {
	m := NewHealthMonitor()
	_, ok := m.Record("tech_stack")
	assert.False(t, ok)
}

func TestHealthRecord_StatusThresholds(t *testing.T) {
	tests := []struct {
		name      string
		successes int64
		failures  int64
		expected  HealthStatus
	}{
		{name: "no attempts", successes: 0, failures: 0, expected: HealthHealthy},
		{name: "all success", successes: 100, failures: 0, expected: HealthHealthy},
		{name: "under 5 percent", successes: 99, failures: 4, expected: HealthHealthy},
		{name: "exactly 5 percent is degraded", successes: 95, failures: 5, expected: HealthDegraded},
		{name: "under 20 percent", successes: 85, failures: 15, expected: HealthDegraded},
		{name: "exactly 20 percent is unhealthy", successes: 80, failures: 20, expected: HealthUnhealthy},
		{name: "all failures", successes: 0, failures: 10, expected: HealthUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &ServiceHealthRecord{
				SuccessCount: tt.successes,
				FailureCount: tt.failures,
			}
			assert.Equal(t, tt.expected, rec.Status())
		})
	}
}

func TestHealthMonitor_ResetClearsRecord(t *testing.T) {
	m := NewHealthMonitor()
	m.RecordFailure("security_scan", time.Second, assert.AnError)

	m.Reset("security_scan")

	_, ok := m.Record("security_scan")
	assert.False(t, ok)
}

func TestHealthMonitor_ResetAll(t *testing.T) {
	m := NewHealthMonitor()
	m.RecordSuccess("web_search", time.Millisecond)
	m.RecordFailure("reviews", time.Second, assert.AnError)

	m.ResetAll()

	assert.Empty(t, m.Snapshot())
}

func TestHealthMonitor_SnapshotCopies(t *testing.T) {
	m := NewHealthMonitor()
	m.RecordSuccess("web_search", 10*time.Millisecond)

	snap := m.Snapshot()
	require.Len(t, snap, 1)

	rec := snap["web_search"]
	rec.SuccessCount = 999

	live, _ := m.Record("web_search")
	assert.Equal(t, int64(1), live.SuccessCount)
}

func TestHealthMonitor_ConcurrentWriters(t *testing.T) {
	m := NewHealthMonitor()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			source := fmt.Sprintf("source_%d", n%4)
			for j := 0; j < 100; j++ {
				if j%2 == 0 {
					m.RecordSuccess(source, 10*time.Millisecond)
				} else {
					m.RecordFailure(source, 10*time.Millisecond, assert.AnError)
				}
			}
		}(i)
	}
	wg.Wait()

	snap := m.Snapshot()
	require.Len(t, snap, 4)
	for _, rec := range snap {
		assert.Equal(t, int64(200), rec.SuccessCount+rec.FailureCount)
	}
}
