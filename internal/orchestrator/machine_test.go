// internal/orchestrator/machine_test.go
package orchestrator

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"research-orchestrator/internal/adapters"
	"research-orchestrator/internal/collector"
	"research-orchestrator/internal/common/config"
	"research-orchestrator/internal/common/errors"
	"research-orchestrator/internal/common/logger"
	"research-orchestrator/internal/models"
	"research-orchestrator/internal/resilience"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

// scriptedAdapter emits a fixed number of fresh high-confidence items per
// call, each with a unique URL so dedup never collapses them.
type scriptedAdapter struct {
	kind       models.SourceKind
	perCall    int
	confidence float64
	calls      atomic.Int32
}

func (s *scriptedAdapter) Kind() models.SourceKind { return s.kind }

func (s *scriptedAdapter) Search(ctx context.Context, task adapters.SearchTask) ([]models.Evidence, error) {
	n := s.calls.Add(1)

	items := make([]models.Evidence, 0, s.perCall)
	for i := 0; i < s.perCall; i++ {
		url := fmt.Sprintf("https://%s.example.com/%d/%d", s.kind, n, i)
		ev := models.NewEvidence(s.kind, "acme market growth demand outlook", url, s.confidence)
		ev.PillarID = task.PillarID
		items = append(items, ev)
	}
	return items, nil
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Research.MaxIterations = 3
	cfg.Research.QualityFloor = 50
	cfg.Research.MinEvidenceCount = 20
	cfg.Research.QualityThreshold = 0.7
	cfg.Research.CollectionTimeout = 5000
	cfg.Research.RefinedQueriesPerGap = 2
	cfg.Sources = map[string]config.SourceConfig{
		string(models.SourceWebSearch): {Enabled: true, Timeout: 1000},
	}
	return cfg
}

func newTestMachine(t *testing.T, cfg *config.Config, adapterList ...adapters.SourceAdapter) *Machine {
	coll := collector.New(resilience.NewHealthMonitor(), nil, logger.NewTestLogger(t))
	for _, a := range adapterList {
		coll.Register(a, config.SourceConfig{
			Enabled: true,
			Timeout: 1000,
			Retry:   config.RetryConfig{MaxRetries: 1, InitialDelay: 1, MaxDelay: 5, BackoffMultiplier: 2},
			Breaker: config.BreakerConfig{FailureThreshold: 5, ResetTimeout: 60000},
		})
	}
	return NewMachine(cfg, coll, nil, nil, logger.NewTestLogger(t))
}

// ==========================
// Pure Transition Tests
// ==========================

func TestNextPhase_HappyPath(t *testing.T) {
	tests := []struct {
		name     string
		phase    models.Phase
		outcomes StepOutcomes
		iter     int
		max      int
		expected models.Phase
	}{
		{name: "initializing moves to interpreting", phase: models.PhaseInitializing, expected: models.PhaseInterpreting, max: 3},
		{name: "interpreting without segment skips market scan", phase: models.PhaseInterpreting, expected: models.PhaseGeneratingQueries, max: 3},
		{name: "interpreting with segment wants market scan", phase: models.PhaseInterpreting, outcomes: StepOutcomes{MarketScanWanted: true}, expected: models.PhaseMarketResearch, max: 3},
		{name: "interpreting failure finalizes", phase: models.PhaseInterpreting, outcomes: StepOutcomes{InterpretationFailed: true}, expected: models.PhaseFinalized, max: 3},
		{name: "market research collects results", phase: models.PhaseMarketResearch, expected: models.PhaseMarketResultsCollection, max: 3},
		{name: "market results done moves on", phase: models.PhaseMarketResultsCollection, outcomes: StepOutcomes{MarketScanDone: true}, expected: models.PhaseGeneratingQueries, max: 3},
		{name: "market results pending loops back", phase: models.PhaseMarketResultsCollection, expected: models.PhaseMarketResearch, max: 3},
		{name: "queries lead to gathering", phase: models.PhaseGeneratingQueries, expected: models.PhaseGatheringEvidence, max: 3},
		{name: "gathering leads to evaluation", phase: models.PhaseGatheringEvidence, expected: models.PhaseEvaluatingQuality, max: 3},
		{name: "converged evaluation reports", phase: models.PhaseEvaluatingQuality, outcomes: StepOutcomes{Converged: true}, expected: models.PhaseReporting, max: 3},
		{name: "unconverged evaluation reflects", phase: models.PhaseEvaluatingQuality, iter: 1, max: 3, expected: models.PhaseReflecting},
		{name: "cap reached forces reporting at evaluation", phase: models.PhaseEvaluatingQuality, iter: 3, max: 3, expected: models.PhaseReporting},
		{name: "reflecting loops to queries", phase: models.PhaseReflecting, iter: 1, max: 3, expected: models.PhaseGeneratingQueries},
		{name: "reflecting at cap forces reporting", phase: models.PhaseReflecting, iter: 3, max: 3, expected: models.PhaseReporting},
		{name: "reporting finalizes", phase: models.PhaseReporting, expected: models.PhaseFinalized, max: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next := NextPhase(tt.phase, tt.outcomes, tt.iter, tt.max)
			assert.Equal(t, tt.expected, next)
		})
	}
}

// ==========================
// Run Tests
// ==========================

func TestMachine_ConvergedRun(t *testing.T) {
	// 4 pillars x 1 source x 7 items = 28 high-confidence items per round
	adapter := &scriptedAdapter{kind: models.SourceWebSearch, perCall: 7, confidence: 0.95}
	m := newTestMachine(t, testConfig(), adapter)

	result, err := m.Run(context.Background(), Request{
		Target:    "acme",
		Archetype: "accelerate-organic-growth",
	})

	require.NoError(t, err)
	assert.False(t, result.Forced)
	assert.Equal(t, models.PhaseFinalized, result.State.Phase)
	assert.Equal(t, 0, result.State.IterationCount, "first evaluation already converges")
	assert.GreaterOrEqual(t, len(result.Accepted), 20)
	require.NotNil(t, result.State.FinalizedAt)
}

func TestMachine_IterationBound(t *testing.T) {
	// one thin low-confidence item per call: thresholds never met
	adapter := &scriptedAdapter{kind: models.SourceWebSearch, perCall: 1, confidence: 0.3}
	m := newTestMachine(t, testConfig(), adapter)

	result, err := m.Run(context.Background(), Request{
		Target:    "acme",
		Archetype: "accelerate-organic-growth",
	})

	require.NoError(t, err)
	assert.True(t, result.Forced)
	assert.Equal(t, 3, result.State.IterationCount, "exactly maxIterations reflection cycles")
	assert.Equal(t, models.PhaseFinalized, result.State.Phase)

	// the forced finalization is recorded for the caller to see
	found := false
	for _, runErr := range result.State.Errors {
		if runErr.Code == string(errors.ErrCodeConvergenceTimeout) {
			found = true
		}
	}
	assert.True(t, found)
}

func TestMachine_EvidenceGrowsAcrossIterations(t *testing.T) {
	adapter := &scriptedAdapter{kind: models.SourceWebSearch, perCall: 1, confidence: 0.3}
	m := newTestMachine(t, testConfig(), adapter)

	result, err := m.Run(context.Background(), Request{
		Target:    "acme",
		Archetype: "accelerate-organic-growth",
	})

	require.NoError(t, err)
	// 4 initial tasks plus refined rounds, every item has a unique URL
	assert.Greater(t, result.State.EvidenceCount(), 4)
}

func TestMachine_FatalInterpretation(t *testing.T) {
	m := newTestMachine(t, testConfig())

	tests := []struct {
		name string
		req  Request
	}{
		{name: "missing target", req: Request{Thesis: "a thesis"}},
		{name: "missing thesis and archetype", req: Request{Target: "acme"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.Run(context.Background(), tt.req)

			require.Error(t, err)
			var fatal *errors.FatalInterpretationError
			assert.ErrorAs(t, err, &fatal)
		})
	}
}

func TestMachine_SegmentRunsMarketScan(t *testing.T) {
	cfg := testConfig()
	cfg.Segments = map[string]config.SegmentConfig{
		"enterprise": {MinEvidenceCount: 5, QualityThreshold: 0.5},
	}

	adapter := &scriptedAdapter{kind: models.SourceWebSearch, perCall: 7, confidence: 0.95}
	m := newTestMachine(t, cfg, adapter)

	result, err := m.Run(context.Background(), Request{
		Target:    "acme",
		Archetype: "digital-transformation",
		Segment:   "enterprise",
	})

	require.NoError(t, err)
	assert.Equal(t, models.PhaseFinalized, result.State.Phase)
	// market scan round ran before the pillar rounds
	assert.Greater(t, adapter.calls.Load(), int32(4))
}

func TestMachine_CancelledRunReturnsPartialResult(t *testing.T) {
	adapter := &scriptedAdapter{kind: models.SourceWebSearch, perCall: 1, confidence: 0.3}
	m := newTestMachine(t, testConfig(), adapter)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := m.Run(ctx, Request{
		Target:    "acme",
		Archetype: "accelerate-organic-growth",
	})

	require.NoError(t, err, "cancellation degrades, it does not fail")
	assert.True(t, result.Forced)
	assert.Equal(t, models.PhaseFinalized, result.State.Phase)
}

// flakySynth fails its first N calls with a retryable error, then succeeds.
type flakySynth struct {
	failures int
	calls    atomic.Int32
}

func (s *flakySynth) Synthesize(ctx context.Context, items []models.Evidence, researchContext string) (string, error) {
	if int(s.calls.Add(1)) <= s.failures {
		return "", errors.NewAdapterRateLimited(string(models.SourceSynthesizer), time.Millisecond)
	}
	return "acme shows strong organic growth signals", nil
}

func TestMachine_SummarySurvivesTransientSynthesizerFailure(t *testing.T) {
	cfg := testConfig()
	cfg.Sources[string(models.SourceSynthesizer)] = config.SourceConfig{
		Retry:   config.RetryConfig{MaxRetries: 2, InitialDelay: 1, MaxDelay: 5, BackoffMultiplier: 2},
		Breaker: config.BreakerConfig{FailureThreshold: 5, ResetTimeout: 60000},
	}

	adapter := &scriptedAdapter{kind: models.SourceWebSearch, perCall: 7, confidence: 0.95}
	coll := collector.New(resilience.NewHealthMonitor(), nil, logger.NewTestLogger(t))
	coll.Register(adapter, config.SourceConfig{
		Enabled: true,
		Timeout: 1000,
		Retry:   config.RetryConfig{MaxRetries: 1, InitialDelay: 1, MaxDelay: 5, BackoffMultiplier: 2},
		Breaker: config.BreakerConfig{FailureThreshold: 5, ResetTimeout: 60000},
	})

	synth := &flakySynth{failures: 1}
	m := NewMachine(cfg, coll, synth, nil, logger.NewTestLogger(t))

	result, err := m.Run(context.Background(), Request{
		Target:    "acme",
		Archetype: "accelerate-organic-growth",
	})

	require.NoError(t, err)
	assert.Equal(t, "acme shows strong organic growth signals", result.Summary)
	assert.Equal(t, int32(2), synth.calls.Load(), "first rate-limited call is retried")
	assert.Empty(t, result.State.Errors)
}
