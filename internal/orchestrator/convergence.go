// internal/orchestrator/convergence.go
package orchestrator

import (
	"fmt"

	"research-orchestrator/internal/common/config"
	"research-orchestrator/internal/models"
	"research-orchestrator/internal/scoring"
)

// Required topic coverage when a market segment context is present.
const segmentCoverageThreshold = 0.70

// Thresholds are the generic convergence requirements applied when no
// market-specific segment table entry overrides them.
type Thresholds struct {
	MinEvidenceCount int
	QualityThreshold float64
}

// Decision is the outcome of one convergence evaluation.
type Decision struct {
	Converged     bool
	Reason        string
	EvidenceCount int
	Quality       float64
	Coverage      float64
}

// Evaluate decides whether the accepted evidence set is sufficient. Segment
// thresholds override the generic ones when present, and additionally
// require topic coverage of the segment's required-aspect checklist.
func Evaluate(accepted []models.Evidence, segCfg *config.SegmentConfig, generic Thresholds, requiredAspects []string) Decision {
	minEvidence := generic.MinEvidenceCount
	qualityThreshold := generic.QualityThreshold
	coverageRequired := false

	if segCfg != nil {
		if segCfg.MinEvidenceCount > 0 {
			minEvidence = segCfg.MinEvidenceCount
		}
		if segCfg.QualityThreshold > 0 {
			qualityThreshold = segCfg.QualityThreshold
		}
		if len(segCfg.RequiredAspects) > 0 {
			requiredAspects = segCfg.RequiredAspects
		}
		coverageRequired = true
	}

	d := Decision{
		EvidenceCount: len(accepted),
		Quality:       scoring.MeanQuality(accepted),
	}

	if d.EvidenceCount < minEvidence {
		d.Reason = fmt.Sprintf("evidence count %d below minimum %d", d.EvidenceCount, minEvidence)
		return d
	}
	if d.Quality < qualityThreshold {
		d.Reason = fmt.Sprintf("mean quality %.2f below threshold %.2f", d.Quality, qualityThreshold)
		return d
	}

	if coverageRequired {
		d.Coverage = scoring.Completeness(accepted, requiredAspects)
		if d.Coverage < segmentCoverageThreshold {
			d.Reason = fmt.Sprintf("topic coverage %.0f%% below required %.0f%%",
				d.Coverage*100, segmentCoverageThreshold*100)
			return d
		}
	}

	d.Converged = true
	d.Reason = "thresholds met"
	return d
}
