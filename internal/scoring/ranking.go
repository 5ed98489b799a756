// internal/scoring/ranking.go
package scoring

import (
	"sort"

	"research-orchestrator/internal/models"
)

// Rank orders accepted evidence by thesis alignment first, then quality,
// then supporting items before neutral ones. Alignment dominates because
// downstream report sections are pillar-scoped and want the strongest
// pillar-relevant items first. The input slice is sorted in place and
// returned.
func Rank(items []models.Evidence) []models.Evidence {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]

		if a.RelevanceScore != b.RelevanceScore {
			return a.RelevanceScore > b.RelevanceScore
		}

		qa, qb := overallOf(a), overallOf(b)
		if qa != qb {
			return qa > qb
		}

		return a.SupportsThesis && !b.SupportsThesis
	})
	return items
}

// TopForPillar returns up to limit highest-ranked items assigned to one pillar.
func TopForPillar(items []models.Evidence, pillarID string, limit int) []models.Evidence {
	matched := make([]models.Evidence, 0, limit)
	for _, ev := range items {
		if ev.PillarID == pillarID {
			matched = append(matched, ev)
		}
	}
	Rank(matched)
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	return matched
}

func overallOf(ev models.Evidence) float64 {
	if ev.Quality == nil {
		return 0
	}
	return ev.Quality.Overall
}
