// internal/store/postgres.go
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"research-orchestrator/internal/common/errors"
	"research-orchestrator/internal/common/logger"
	"research-orchestrator/internal/models"
	"research-orchestrator/internal/scoring"
)

// RunStore persists finalized research runs for the report mapper and for
// audit. Evidence and gaps go into JSONB columns; the run row carries the
// aggregates used for querying.
type RunStore struct {
	db     *sql.DB
	logger logger.Logger
}

func NewRunStore(db *sql.DB, log logger.Logger) *RunStore {
	return &RunStore{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "run_store"}),
	}
}

// SaveRun writes one finalized run. Called exactly once per run, after the
// state machine reaches Finalized.
func (s *RunStore) SaveRun(ctx context.Context, state *models.ResearchRunState, accepted []models.Evidence, gaps []scoring.Gap, summary string, forced bool) error {
	evidenceJSON, err := json.Marshal(accepted)
	if err != nil {
		return errors.NewStoreWriteError(fmt.Errorf("marshal evidence: %w", err))
	}
	gapsJSON, err := json.Marshal(gaps)
	if err != nil {
		return errors.NewStoreWriteError(fmt.Errorf("marshal gaps: %w", err))
	}
	errorsJSON, err := json.Marshal(state.Errors)
	if err != nil {
		return errors.NewStoreWriteError(fmt.Errorf("marshal errors: %w", err))
	}

	finalizedAt := time.Now().UTC()
	if state.FinalizedAt != nil {
		finalizedAt = *state.FinalizedAt
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO research_runs (
			id, target, thesis, segment, iteration_count, evidence_count,
			accepted_count, forced, summary, evidence, gaps, errors,
			started_at, finalized_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		state.RunID,
		state.Target,
		state.Thesis,
		state.Segment,
		state.IterationCount,
		state.EvidenceCount(),
		len(accepted),
		forced,
		summary,
		evidenceJSON,
		gapsJSON,
		errorsJSON,
		state.StartedAt,
		finalizedAt,
	)
	if err != nil {
		return errors.NewStoreWriteError(err)
	}

	s.logger.Info("run persisted", map[string]interface{}{
		"runId":    state.RunID,
		"accepted": len(accepted),
		"forced":   forced,
	})
	return nil
}

// RunSummary is the queryable projection of one persisted run.
type RunSummary struct {
	RunID          string    `json:"runId"`
	Target         string    `json:"target"`
	IterationCount int       `json:"iterationCount"`
	AcceptedCount  int       `json:"acceptedCount"`
	Forced         bool      `json:"forced"`
	FinalizedAt    time.Time `json:"finalizedAt"`
}

// RecentRuns lists the latest finalized runs, newest first.
func (s *RunStore) RecentRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, target, iteration_count, accepted_count, forced, finalized_at
		FROM research_runs
		ORDER BY finalized_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var r RunSummary
		if err := rows.Scan(&r.RunID, &r.Target, &r.IterationCount, &r.AcceptedCount, &r.Forced, &r.FinalizedAt); err != nil {
			return nil, fmt.Errorf("scan run row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
