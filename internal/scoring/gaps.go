// internal/scoring/gaps.go
package scoring

import (
	"research-orchestrator/internal/models"
)

// GapSeverity ranks how badly a pillar is under-evidenced.
type GapSeverity string

const (
	SeverityCritical GapSeverity = "critical"
	SeverityHigh     GapSeverity = "high"
	SeverityMedium   GapSeverity = "medium"
)

// Gap describes one under-evidenced pillar for the reflection step.
type Gap struct {
	PillarID      string      `json:"pillarId"`
	PillarName    string      `json:"pillarName"`
	Severity      GapSeverity `json:"severity"`
	Reason        string      `json:"reason"`
	EvidenceCount int         `json:"evidenceCount"`
}

// IdentifyGaps classifies each pillar against the accepted evidence set.
// A pillar is a gap when it has no evidence (critical), fewer than three
// items (high), average confidence under 0.7 (medium), or when more than
// half its evidence contradicts the thesis (critical).
func IdentifyGaps(pillars []models.ThesisPillar, items []models.Evidence) []Gap {
	byPillar := make(map[string][]models.Evidence)
	for _, ev := range items {
		byPillar[ev.PillarID] = append(byPillar[ev.PillarID], ev)
	}

	var gaps []Gap
	for _, pillar := range pillars {
		evs := byPillar[pillar.ID]

		if len(evs) == 0 {
			gaps = append(gaps, Gap{
				PillarID:   pillar.ID,
				PillarName: pillar.Name,
				Severity:   SeverityCritical,
				Reason:     "no evidence collected",
			})
			continue
		}

		contradicting := 0
		confidenceSum := 0.0
		for _, ev := range evs {
			if ev.ContradictsThesis {
				contradicting++
			}
			confidenceSum += ev.Confidence
		}

		switch {
		case contradicting*2 > len(evs):
			gaps = append(gaps, Gap{
				PillarID:      pillar.ID,
				PillarName:    pillar.Name,
				Severity:      SeverityCritical,
				Reason:        "majority of evidence contradicts the thesis",
				EvidenceCount: len(evs),
			})
		case len(evs) < 3:
			gaps = append(gaps, Gap{
				PillarID:      pillar.ID,
				PillarName:    pillar.Name,
				Severity:      SeverityHigh,
				Reason:        "fewer than 3 evidence items",
				EvidenceCount: len(evs),
			})
		case confidenceSum/float64(len(evs)) < 0.7:
			gaps = append(gaps, Gap{
				PillarID:      pillar.ID,
				PillarName:    pillar.Name,
				Severity:      SeverityMedium,
				Reason:        "average confidence below 0.7",
				EvidenceCount: len(evs),
			})
		}
	}
	return gaps
}
