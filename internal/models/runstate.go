// internal/models/runstate.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// Phase is a state of the research run state machine.
type Phase string

const (
	PhaseInitializing            Phase = "initializing"
	PhaseInterpreting            Phase = "interpreting"
	PhaseMarketResearch          Phase = "market_research"
	PhaseMarketResultsCollection Phase = "market_results_collection"
	PhaseGeneratingQueries       Phase = "generating_queries"
	PhaseGatheringEvidence       Phase = "gathering_evidence"
	PhaseEvaluatingQuality       Phase = "evaluating_quality"
	PhaseReflecting              Phase = "reflecting"
	PhaseReporting               Phase = "reporting"
	PhaseFinalized               Phase = "finalized"
)

// RunError records a collaborator failure. Errors accumulate for the life of
// the run and are never cleared.
type RunError struct {
	Source    SourceKind `json:"source"`
	Phase     Phase      `json:"phase"`
	Code      string     `json:"code"`
	Message   string     `json:"message"`
	Retryable bool       `json:"retryable"`
	Timestamp time.Time  `json:"timestamp"`
}

// ResearchRunState is the single mutable aggregate owned by the state machine.
// Evidence grows monotonically: new items are unioned in, never replaced.
type ResearchRunState struct {
	RunID          string              `json:"runId"`
	Target         string              `json:"target"`
	Thesis         string              `json:"thesis"`
	Segment        string              `json:"segment,omitempty"`
	Pillars        []ThesisPillar      `json:"pillars"`
	Evidence       map[string]Evidence `json:"evidence"`
	IterationCount int                 `json:"iterationCount"`
	MaxIterations  int                 `json:"maxIterations"`
	Phase          Phase               `json:"phase"`
	Errors         []RunError          `json:"errors"`
	StartedAt      time.Time           `json:"startedAt"`
	FinalizedAt    *time.Time          `json:"finalizedAt,omitempty"`
}

// NewRunState creates a run in the initializing phase with iteration zero.
func NewRunState(target, thesis string, maxIterations int) *ResearchRunState {
	if maxIterations <= 0 {
		maxIterations = 3
	}
	return &ResearchRunState{
		RunID:         uuid.NewString(),
		Target:        target,
		Thesis:        thesis,
		Evidence:      make(map[string]Evidence),
		MaxIterations: maxIterations,
		Phase:         PhaseInitializing,
		StartedAt:     time.Now().UTC(),
	}
}

// RecordError appends a collaborator failure without affecting control flow.
func (s *ResearchRunState) RecordError(source SourceKind, code, message string, retryable bool) {
	s.Errors = append(s.Errors, RunError{
		Source:    source,
		Phase:     s.Phase,
		Code:      code,
		Message:   message,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
	})
}

// EvidenceList returns the evidence set as a slice, in no particular order.
func (s *ResearchRunState) EvidenceList() []Evidence {
	out := make([]Evidence, 0, len(s.Evidence))
	for _, e := range s.Evidence {
		out = append(out, e)
	}
	return out
}

// EvidenceCount returns the size of the deduplicated evidence set.
func (s *ResearchRunState) EvidenceCount() int {
	return len(s.Evidence)
}
