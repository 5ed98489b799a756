// internal/scoring/scorer.go
package scoring

import (
	"strings"

	"research-orchestrator/internal/models"
)

// Quality floors. Items scoring below the floor are dropped unless they
// contradict the thesis, which are always retained for risk analysis.
const (
	DefaultQualityFloor   = 60.0
	LowStakesQualityFloor = 50.0
)

// credibilityBySource is a static trust table keyed by origin class,
// independent of content. Values in [0,100].
var credibilityBySource = map[models.SourceKind]float64{
	models.SourceInternalData: 90,
	models.SourceSecurityScan: 85,
	models.SourceFinancial:    85,
	models.SourceTechStack:    80,
	models.SourceWebSearch:    65,
	models.SourceReviews:      60,
	models.SourceSynthesizer:  70,
}

const defaultCredibility = 50.0

// Scorer assigns per-item quality scores against a thesis context. All
// scoring is a pure function of the evidence and the pillar vocabulary.
type Scorer struct {
	pillars      []models.ThesisPillar
	qualityFloor float64
}

// NewScorer creates a scorer for the given pillars. A non-positive floor
// selects the default.
func NewScorer(pillars []models.ThesisPillar, qualityFloor float64) *Scorer {
	if qualityFloor <= 0 {
		qualityFloor = DefaultQualityFloor
	}
	return &Scorer{pillars: pillars, qualityFloor: qualityFloor}
}

// Relevance computes keyword overlap between the evidence content and the
// pillar vocabularies, normalized to [0,100]. The best-matching pillar wins
// and is reported alongside the score.
func (s *Scorer) Relevance(ev models.Evidence) (float64, string) {
	content := strings.ToLower(ev.Content + " " + ev.Title)

	bestScore := 0.0
	bestPillar := ""
	for _, pillar := range s.pillars {
		if len(pillar.Keywords) == 0 {
			continue
		}
		hits := 0
		for _, kw := range pillar.Keywords {
			if strings.Contains(content, strings.ToLower(kw)) {
				hits++
			}
		}
		score := float64(hits) / float64(len(pillar.Keywords)) * 100
		if score > bestScore {
			bestScore = score
			bestPillar = pillar.ID
		}
	}
	return bestScore, bestPillar
}

// Credibility looks up the static trust score for the item's source kind.
func Credibility(kind models.SourceKind) float64 {
	if v, ok := credibilityBySource[kind]; ok {
		return v
	}
	return defaultCredibility
}

// Score computes the overall quality for one item: the unweighted mean of
// confidence scaled to 100, source credibility and relevance. The item is
// returned with its Quality, RelevanceScore and PillarID filled in; content
// is never touched.
func (s *Scorer) Score(ev models.Evidence) models.Evidence {
	relevance, pillarID := s.Relevance(ev)
	credibility := Credibility(ev.SourceKind)
	overall := (ev.Confidence*100 + credibility + relevance) / 3

	ev.RelevanceScore = relevance
	if ev.PillarID == "" {
		ev.PillarID = pillarID
	}
	ev.Quality = &models.QualityScore{
		Relevance:   relevance / 100,
		Credibility: credibility / 100,
		Overall:     overall / 100,
	}
	return ev
}

// Accepted reports whether a scored item survives the quality floor.
// Contradicting evidence always survives.
func (s *Scorer) Accepted(ev models.Evidence) bool {
	if ev.ContradictsThesis {
		return true
	}
	return ev.Quality != nil && ev.Quality.Overall*100 >= s.qualityFloor
}

// ScoreAndFilter scores every item and returns the accepted set.
func (s *Scorer) ScoreAndFilter(items []models.Evidence) []models.Evidence {
	out := make([]models.Evidence, 0, len(items))
	for _, ev := range items {
		scored := s.Score(ev)
		if s.Accepted(scored) {
			out = append(out, scored)
		}
	}
	return out
}

// Completeness returns the fraction of the required-aspect checklist that
// the accumulated set satisfies. An aspect counts as satisfied when any
// accepted item mentions it or maps to a pillar covering it.
func Completeness(items []models.Evidence, requiredAspects []string) float64 {
	if len(requiredAspects) == 0 {
		return 1
	}

	satisfied := 0
	for _, aspect := range requiredAspects {
		terms := strings.Split(strings.ToLower(aspect), "_")
		for _, ev := range items {
			content := strings.ToLower(ev.Content + " " + ev.Title)
			matched := true
			for _, term := range terms {
				if !strings.Contains(content, term) {
					matched = false
					break
				}
			}
			if matched {
				satisfied++
				break
			}
		}
	}
	return float64(satisfied) / float64(len(requiredAspects))
}

// MeanQuality returns the mean overall quality of the items in [0,1], or 0
// for an empty set.
func MeanQuality(items []models.Evidence) float64 {
	if len(items) == 0 {
		return 0
	}
	total := 0.0
	for _, ev := range items {
		if ev.Quality != nil {
			total += ev.Quality.Overall
		}
	}
	return total / float64(len(items))
}
