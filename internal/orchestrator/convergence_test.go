// internal/orchestrator/convergence_test.go
package orchestrator

import (
	"testing"

	"research-orchestrator/internal/common/config"
	"research-orchestrator/internal/models"

	"github.com/stretchr/testify/assert"
)

// ==========================
// Test Helper Functions
// ==========================

func acceptedItems(count int, quality float64) []models.Evidence {
	out := make([]models.Evidence, count)
	for i := range out {
		out[i] = models.Evidence{
			Quality: &models.QualityScore{Overall: quality},
		}
	}
	return out
}

func genericThresholds() Thresholds {
	return Thresholds{MinEvidenceCount: 20, QualityThreshold: 0.7}
}

// ==========================
// Generic Threshold Tests
// ==========================

func TestEvaluate_QualityBelowThreshold(t *testing.T) {
	// 22 items averaging 0.65: enough evidence, quality too low
	d := Evaluate(acceptedItems(22, 0.65), nil, genericThresholds(), nil)

	assert.False(t, d.Converged)
	assert.Equal(t, 22, d.EvidenceCount)
	assert.InDelta(t, 0.65, d.Quality, 0.001)
	assert.Contains(t, d.Reason, "quality")
}

func TestEvaluate_AggregateRecomputesAcrossRounds(t *testing.T) {
	// same 22 items plus a stronger round pushes the aggregate over 0.7
	items := acceptedItems(22, 0.65)
	items = append(items, acceptedItems(8, 0.85)...)

	d := Evaluate(items, nil, genericThresholds(), nil)

	assert.True(t, d.Converged)
	assert.GreaterOrEqual(t, d.Quality, 0.7)
}

func TestEvaluate_EvidenceCountBelowMinimum(t *testing.T) {
	d := Evaluate(acceptedItems(10, 0.9), nil, genericThresholds(), nil)

	assert.False(t, d.Converged)
	assert.Contains(t, d.Reason, "evidence count")
}

func TestEvaluate_EmptySetNeverConverges(t *testing.T) {
	d := Evaluate(nil, nil, genericThresholds(), nil)
	assert.False(t, d.Converged)
}

// ==========================
// Segment Threshold Tests
// ==========================

func TestEvaluate_SegmentThresholdsOverrideGeneric(t *testing.T) {
	seg := &config.SegmentConfig{
		MinEvidenceCount: 5,
		QualityThreshold: 0.6,
	}

	// fails generic thresholds but passes the segment's lower bar
	d := Evaluate(acceptedItems(6, 0.65), seg, genericThresholds(), nil)

	assert.True(t, d.Converged)
}

func TestEvaluate_SegmentRequiresTopicCoverage(t *testing.T) {
	seg := &config.SegmentConfig{
		MinEvidenceCount: 2,
		QualityThreshold: 0.5,
		RequiredAspects:  []string{"market size", "unit economics", "security posture"},
	}

	items := []models.Evidence{
		{Content: "the market size is large", Quality: &models.QualityScore{Overall: 0.8}},
		{Content: "unrelated commentary", Quality: &models.QualityScore{Overall: 0.8}},
	}

	// only one of three aspects covered: 33% < 70%
	d := Evaluate(items, seg, genericThresholds(), nil)

	assert.False(t, d.Converged)
	assert.Contains(t, d.Reason, "coverage")
}

func TestEvaluate_SegmentCoverageSatisfied(t *testing.T) {
	seg := &config.SegmentConfig{
		MinEvidenceCount: 2,
		QualityThreshold: 0.5,
		RequiredAspects:  []string{"market size", "unit economics"},
	}

	items := []models.Evidence{
		{Content: "the market size is large", Quality: &models.QualityScore{Overall: 0.8}},
		{Content: "unit economics look healthy", Quality: &models.QualityScore{Overall: 0.8}},
	}

	d := Evaluate(items, seg, genericThresholds(), nil)

	assert.True(t, d.Converged)
	assert.Equal(t, 1.0, d.Coverage)
}
