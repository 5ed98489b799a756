// internal/models/evidence.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// SourceKind tags an Evidence item with the external collaborator that produced it.
type SourceKind string

const (
	SourceWebSearch    SourceKind = "web_search"
	SourceInternalData SourceKind = "internal_data"
	SourceTechStack    SourceKind = "tech_stack"
	SourceSecurityScan SourceKind = "security_scan"
	SourceReviews      SourceKind = "review_aggregator"
	SourceFinancial    SourceKind = "financial_signals"
	SourceSynthesizer  SourceKind = "synthesizer"
)

// QualityScore holds the sub-scores assigned by the scorer. All values in [0,1].
type QualityScore struct {
	Relevance   float64 `json:"relevance"`
	Credibility float64 `json:"credibility"`
	Overall     float64 `json:"overall"`
}

// Evidence is a single collected unit of information. It is immutable once
// created except for score enrichment: the scorer attaches RelevanceScore,
// Quality and the thesis flags, but content and origin are never rewritten.
type Evidence struct {
	ID                string                 `json:"id"`
	SourceKind        SourceKind             `json:"sourceKind"`
	PillarID          string                 `json:"pillarId,omitempty"`
	Content           string                 `json:"content"`
	OriginURL         string                 `json:"originUrl,omitempty"`
	Title             string                 `json:"title,omitempty"`
	Confidence        float64                `json:"confidence"`
	RelevanceScore    float64                `json:"relevanceScore"`
	Quality           *QualityScore          `json:"quality,omitempty"`
	SupportsThesis    bool                   `json:"supportsThesis"`
	ContradictsThesis bool                   `json:"contradictsThesis"`
	Metadata          map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt         time.Time              `json:"createdAt"`
}

// NewEvidence creates an unscored Evidence record with a fresh ID.
func NewEvidence(kind SourceKind, content, originURL string, confidence float64) Evidence {
	return Evidence{
		ID:         uuid.NewString(),
		SourceKind: kind,
		Content:    content,
		OriginURL:  originURL,
		Confidence: clamp01(confidence),
		CreatedAt:  time.Now().UTC(),
	}
}

// Scored reports whether the scorer has annotated this item.
func (e *Evidence) Scored() bool {
	return e.Quality != nil
}

// ThesisPillar is a weighted sub-topic of the research thesis.
type ThesisPillar struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Weight   float64  `json:"weight"`
	Keywords []string `json:"keywords"`
}

// NormalizePillarWeights rescales pillar weights so they sum to 1.
// Pillars with non-positive weight receive an equal share of the remainder.
func NormalizePillarWeights(pillars []ThesisPillar) []ThesisPillar {
	total := 0.0
	for _, p := range pillars {
		if p.Weight > 0 {
			total += p.Weight
		}
	}
	out := make([]ThesisPillar, len(pillars))
	copy(out, pillars)
	if total <= 0 {
		if len(out) == 0 {
			return out
		}
		equal := 1.0 / float64(len(out))
		for i := range out {
			out[i].Weight = equal
		}
		return out
	}
	for i := range out {
		if out[i].Weight > 0 {
			out[i].Weight = out[i].Weight / total
		} else {
			out[i].Weight = 0
		}
	}
	return out
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
