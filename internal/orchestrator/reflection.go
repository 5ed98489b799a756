// internal/orchestrator/reflection.go
package orchestrator

import (
	"fmt"

	"research-orchestrator/internal/adapters"
	"research-orchestrator/internal/models"
	"research-orchestrator/internal/scoring"
)

// RefineQueries turns the gaps from the last evaluation into the next
// collection round. Each gap yields up to perGap narrower queries built from
// the pillar's vocabulary, targeted at every enabled source. Critical gaps
// come first so a tight collection budget spends itself on the worst holes.
func RefineQueries(target string, gaps []scoring.Gap, pillars []models.ThesisPillar, sources []models.SourceKind, perGap int) []adapters.SearchTask {
	if perGap <= 0 {
		perGap = 2
	}

	byID := make(map[string]models.ThesisPillar, len(pillars))
	for _, p := range pillars {
		byID[p.ID] = p
	}

	ordered := make([]scoring.Gap, 0, len(gaps))
	for _, severity := range []scoring.GapSeverity{scoring.SeverityCritical, scoring.SeverityHigh, scoring.SeverityMedium} {
		for _, gap := range gaps {
			if gap.Severity == severity {
				ordered = append(ordered, gap)
			}
		}
	}

	var plan []adapters.SearchTask
	for _, gap := range ordered {
		pillar, ok := byID[gap.PillarID]
		if !ok {
			continue
		}

		queries := refinedQueriesFor(target, pillar, perGap)
		for _, query := range queries {
			for _, kind := range sources {
				plan = append(plan, adapters.SearchTask{
					Source:   kind,
					Query:    query,
					Target:   target,
					PillarID: pillar.ID,
				})
			}
		}
	}
	return plan
}

// refinedQueriesFor narrows a pillar into keyword-anchored queries. The
// first query restates the pillar, later ones drill into single keywords.
func refinedQueriesFor(target string, pillar models.ThesisPillar, limit int) []string {
	queries := []string{fmt.Sprintf("%s %s detailed analysis", target, pillar.Name)}
	for _, kw := range pillar.Keywords {
		if len(queries) >= limit {
			break
		}
		queries = append(queries, fmt.Sprintf("%s %s", target, kw))
	}
	return queries
}
