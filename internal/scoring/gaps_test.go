// internal/scoring/gaps_test.go
package scoring

import (
	"testing"

	"research-orchestrator/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gapItem(pillarID string, confidence float64, contradicts bool) models.Evidence {
	return models.Evidence{
		PillarID:          pillarID,
		Confidence:        confidence,
		ContradictsThesis: contradicts,
	}
}

func findGap(gaps []Gap, pillarID string) (Gap, bool) {
	for _, g := range gaps {
		if g.PillarID == pillarID {
			return g, true
		}
	}
	return Gap{}, false
}

func TestIdentifyGaps(t *testing.T) {
	pillars := []models.ThesisPillar{
		{ID: "empty", Name: "No coverage"},
		{ID: "sparse", Name: "Thin coverage"},
		{ID: "shaky", Name: "Low confidence"},
		{ID: "contested", Name: "Contradicted"},
		{ID: "solid", Name: "Well covered"},
	}

	items := []models.Evidence{
		// sparse: 2 items, high confidence
		gapItem("sparse", 0.9, false),
		gapItem("sparse", 0.9, false),
		// shaky: 3 items averaging 0.5
		gapItem("shaky", 0.5, false),
		gapItem("shaky", 0.5, false),
		gapItem("shaky", 0.5, false),
		// contested: 3 items, 2 contradicting
		gapItem("contested", 0.9, true),
		gapItem("contested", 0.9, true),
		gapItem("contested", 0.9, false),
		// solid: 3 items, high confidence, supportive
		gapItem("solid", 0.9, false),
		gapItem("solid", 0.8, false),
		gapItem("solid", 0.95, false),
	}

	gaps := IdentifyGaps(pillars, items)

	empty, ok := findGap(gaps, "empty")
	require.True(t, ok)
	assert.Equal(t, SeverityCritical, empty.Severity)
	assert.Equal(t, 0, empty.EvidenceCount)

	sparse, ok := findGap(gaps, "sparse")
	require.True(t, ok)
	assert.Equal(t, SeverityHigh, sparse.Severity)
	assert.Equal(t, 2, sparse.EvidenceCount)

	shaky, ok := findGap(gaps, "shaky")
	require.True(t, ok)
	assert.Equal(t, SeverityMedium, shaky.Severity)

	contested, ok := findGap(gaps, "contested")
	require.True(t, ok)
	assert.Equal(t, SeverityCritical, contested.Severity)

	_, ok = findGap(gaps, "solid")
	assert.False(t, ok)
}

func TestIdentifyGaps_ContradictionOutranksSparsity(t *testing.T) {
	pillars := []models.ThesisPillar{{ID: "p", Name: "Pillar"}}
	items := []models.Evidence{
		gapItem("p", 0.9, true),
		gapItem("p", 0.9, true),
	}

	gaps := IdentifyGaps(pillars, items)

	require.Len(t, gaps, 1)
	assert.Equal(t, SeverityCritical, gaps[0].Severity)
}

func TestIdentifyGaps_NoPillarsNoGaps(t *testing.T) {
	assert.Empty(t, IdentifyGaps(nil, nil))
}

func TestIdentifyGaps_ExactlyHalfContradictingIsNotCritical(t *testing.T) {
	pillars := []models.ThesisPillar{{ID: "p", Name: "Pillar"}}
	items := []models.Evidence{
		gapItem("p", 0.9, true),
		gapItem("p", 0.9, false),
		gapItem("p", 0.9, true),
		gapItem("p", 0.9, false),
	}

	gaps := IdentifyGaps(pillars, items)
	assert.Empty(t, gaps)
}
