// internal/adapters/adapter.go
package adapters

import (
	"context"

	"research-orchestrator/internal/models"
)

// SearchTask is one sub-task of a research plan, aimed at a single source.
type SearchTask struct {
	Source   models.SourceKind      `json:"source"`
	Query    string                 `json:"query"`
	Target   string                 `json:"target"`
	PillarID string                 `json:"pillarId,omitempty"`
	Options  map[string]interface{} `json:"options,omitempty"`
}

// SourceAdapter is one external data origin. Search must be idempotent from
// the caller's perspective: retrying a failed call must not produce side
// effects observable across attempts.
type SourceAdapter interface {
	Kind() models.SourceKind
	Search(ctx context.Context, task SearchTask) ([]models.Evidence, error)
}

// Synthesizer summarizes an evidence subset at phase boundaries. It is
// treated as one opaque call with the same resilience wrapping as a
// source adapter.
type Synthesizer interface {
	Synthesize(ctx context.Context, items []models.Evidence, context string) (string, error)
}
