// internal/orchestrator/machine.go
package orchestrator

import (
	"context"
	"strings"
	"time"

	"research-orchestrator/internal/adapters"
	"research-orchestrator/internal/collector"
	"research-orchestrator/internal/common/config"
	"research-orchestrator/internal/common/errors"
	"research-orchestrator/internal/common/logger"
	"research-orchestrator/internal/common/metrics"
	"research-orchestrator/internal/common/observability"
	"research-orchestrator/internal/models"
	"research-orchestrator/internal/resilience"
	"research-orchestrator/internal/scoring"
)

// Request starts one research run.
type Request struct {
	Target        string `json:"target"`
	Thesis        string `json:"thesis"`
	Archetype     string `json:"archetype,omitempty"`
	Segment       string `json:"segment,omitempty"`
	MaxIterations int    `json:"maxIterations,omitempty"`
}

// Result is the finalized outcome handed to the report mapper.
type Result struct {
	State    *models.ResearchRunState `json:"state"`
	Accepted []models.Evidence        `json:"accepted"`
	Gaps     []scoring.Gap            `json:"gaps"`
	Summary  string                   `json:"summary,omitempty"`
	Forced   bool                     `json:"forced"`
}

// StepOutcomes feeds the pure transition function. Each field is the result
// of the side-effecting work done in the phase that just ran.
type StepOutcomes struct {
	InterpretationFailed bool
	MarketScanWanted     bool
	MarketScanDone       bool
	Converged            bool
}

// Machine drives one run through the research phases. All collaborator calls
// happen between transitions; the transition itself is a pure function so
// the control flow is testable without any network.
type Machine struct {
	cfg          *config.Config
	collector    *collector.Collector
	synth        adapters.Synthesizer
	synthRetry   resilience.RetryPolicy
	synthBreaker *resilience.CircuitBreaker
	obs          *observability.Observability
	logger       logger.Logger
}

// NewMachine wires the orchestrator. The synthesizer may be nil; summaries
// are then skipped. The synthesizer gets the same retry and breaker
// treatment as a source adapter, driven by its entry in the sources config.
func NewMachine(cfg *config.Config, coll *collector.Collector, synth adapters.Synthesizer, obs *observability.Observability, log logger.Logger) *Machine {
	retry := resilience.DefaultRetryPolicy()
	breakerPolicy := resilience.DefaultBreakerPolicy()
	if srcCfg, ok := cfg.Sources[string(models.SourceSynthesizer)]; ok {
		retry = resilience.PolicyFromConfig(srcCfg.Retry)
		breakerPolicy = resilience.BreakerFromConfig(srcCfg.Breaker)
	}

	return &Machine{
		cfg:          cfg,
		collector:    coll,
		synth:        synth,
		synthRetry:   retry,
		synthBreaker: resilience.NewCircuitBreaker(string(models.SourceSynthesizer), breakerPolicy),
		obs:          obs,
		logger:       log.WithFields(map[string]interface{}{"component": "orchestrator"}),
	}
}

// NextPhase is the pure transition function. Given the current phase and the
// outcomes of the work just performed, it returns the next phase. Reflecting
// always loops back to GeneratingQueries unless the iteration cap is hit,
// which forces Reporting.
func NextPhase(phase models.Phase, o StepOutcomes, iterationCount, maxIterations int) models.Phase {
	switch phase {
	case models.PhaseInitializing:
		return models.PhaseInterpreting

	case models.PhaseInterpreting:
		if o.InterpretationFailed {
			return models.PhaseFinalized
		}
		if o.MarketScanWanted {
			return models.PhaseMarketResearch
		}
		return models.PhaseGeneratingQueries

	case models.PhaseMarketResearch:
		return models.PhaseMarketResultsCollection

	case models.PhaseMarketResultsCollection:
		if o.MarketScanDone {
			return models.PhaseGeneratingQueries
		}
		return models.PhaseMarketResearch

	case models.PhaseGeneratingQueries:
		return models.PhaseGatheringEvidence

	case models.PhaseGatheringEvidence:
		return models.PhaseEvaluatingQuality

	case models.PhaseEvaluatingQuality:
		if o.Converged || iterationCount >= maxIterations {
			return models.PhaseReporting
		}
		return models.PhaseReflecting

	case models.PhaseReflecting:
		if iterationCount >= maxIterations {
			return models.PhaseReporting
		}
		return models.PhaseGeneratingQueries

	case models.PhaseReporting:
		return models.PhaseFinalized

	default:
		return models.PhaseFinalized
	}
}

// Run executes one research run to finalization. Collaborator failures are
// recorded and absorbed; only a failed interpretation aborts the run.
func (m *Machine) Run(ctx context.Context, req Request) (*Result, error) {
	maxIterations := req.MaxIterations
	if maxIterations <= 0 {
		maxIterations = m.cfg.Research.MaxIterations
	}

	state := models.NewRunState(req.Target, req.Thesis, maxIterations)
	state.Segment = req.Segment

	m.logger.Info("research run started", map[string]interface{}{
		"runId":  state.RunID,
		"target": req.Target,
	})

	// Interpreting
	state.Phase = NextPhase(state.Phase, StepOutcomes{}, state.IterationCount, state.MaxIterations)
	profile, err := m.interpret(req)
	if err != nil {
		state.Phase = models.PhaseFinalized
		metrics.RunsCompleted.WithLabelValues("fatal").Inc()
		return nil, err
	}
	state.Pillars = profile.Pillars
	state.Phase = NextPhase(state.Phase, StepOutcomes{MarketScanWanted: req.Segment != ""}, state.IterationCount, state.MaxIterations)

	scorer := scoring.NewScorer(state.Pillars, m.cfg.Research.QualityFloor)

	var (
		plan     []adapters.SearchTask
		accepted []models.Evidence
		gaps     []scoring.Gap
		forced   bool
	)

	for state.Phase != models.PhaseReporting && state.Phase != models.PhaseFinalized {
		if ctx.Err() != nil {
			// top-level cancellation: keep what we have and finalize
			state.Phase = models.PhaseReporting
			forced = true
			break
		}

		current := state.Phase
		phaseStart := time.Now()
		phaseCtx := ctx
		endSpan := func() {}
		if m.obs != nil {
			phaseCtx, endSpan = m.obs.StartPhase(ctx, string(current))
		}

		switch state.Phase {
		case models.PhaseMarketResearch:
			plan = BuildMarketScanPlan(req.Target, state.Segment)
			state.Phase = NextPhase(state.Phase, StepOutcomes{}, state.IterationCount, state.MaxIterations)

		case models.PhaseMarketResultsCollection:
			collectCtx, cancel := context.WithTimeout(phaseCtx, m.cfg.Research.CollectionTimeoutDuration())
			m.collector.Collect(collectCtx, state, plan)
			cancel()
			state.Phase = NextPhase(state.Phase, StepOutcomes{MarketScanDone: true}, state.IterationCount, state.MaxIterations)

		case models.PhaseGeneratingQueries:
			if state.IterationCount == 0 {
				plan = BuildInitialPlan(req.Target, state.Pillars, m.enabledSources())
			} else {
				plan = RefineQueries(req.Target, gaps, state.Pillars, m.enabledSources(), m.cfg.Research.RefinedQueriesPerGap)
			}
			if err := ValidateTasks(plan); err != nil {
				state.RecordError(models.SourceKind("planner"), string(errors.ErrCodePlanValidationFailed), err.Error(), false)
				m.logger.Warn("plan failed validation, proceeding with it regardless", map[string]interface{}{
					"runId": state.RunID,
					"error": err.Error(),
				})
			}
			state.Phase = NextPhase(state.Phase, StepOutcomes{}, state.IterationCount, state.MaxIterations)

		case models.PhaseGatheringEvidence:
			collectCtx, cancel := context.WithTimeout(phaseCtx, m.cfg.Research.CollectionTimeoutDuration())
			m.collector.Collect(collectCtx, state, plan)
			cancel()
			state.Phase = NextPhase(state.Phase, StepOutcomes{}, state.IterationCount, state.MaxIterations)

		case models.PhaseEvaluatingQuality:
			accepted = scorer.ScoreAndFilter(state.EvidenceList())
			gaps = scoring.IdentifyGaps(state.Pillars, accepted)

			decision := m.evaluateConvergence(state, accepted, profile)
			m.logger.Info("convergence evaluated", map[string]interface{}{
				"runId":     state.RunID,
				"iteration": state.IterationCount,
				"evidence":  decision.EvidenceCount,
				"quality":   decision.Quality,
				"converged": decision.Converged,
				"reason":    decision.Reason,
			})

			next := NextPhase(state.Phase, StepOutcomes{Converged: decision.Converged}, state.IterationCount, state.MaxIterations)
			if next == models.PhaseReporting && !decision.Converged {
				forced = true
				state.RecordError(models.SourceKind("orchestrator"), string(errors.ErrCodeConvergenceTimeout),
					(&errors.ConvergenceTimeoutError{
						Iterations: state.IterationCount,
						Quality:    decision.Quality,
						Evidence:   decision.EvidenceCount,
					}).Error(), false)
			}
			state.Phase = next

		case models.PhaseReflecting:
			state.IterationCount++
			next := NextPhase(state.Phase, StepOutcomes{}, state.IterationCount, state.MaxIterations)
			if next == models.PhaseReporting {
				forced = true
				state.RecordError(models.SourceKind("orchestrator"), string(errors.ErrCodeConvergenceTimeout),
					(&errors.ConvergenceTimeoutError{
						Iterations: state.IterationCount,
						Quality:    scoring.MeanQuality(accepted),
						Evidence:   len(accepted),
					}).Error(), false)
			}
			state.Phase = next

		default:
			state.Phase = NextPhase(state.Phase, StepOutcomes{}, state.IterationCount, state.MaxIterations)
		}

		endSpan()
		if m.obs != nil {
			m.obs.RecordPhase(ctx, string(current), time.Since(phaseStart))
		}
	}

	// Reporting
	scoring.Rank(accepted)
	summary := m.summarize(ctx, state, accepted)
	state.Phase = models.PhaseFinalized
	now := time.Now().UTC()
	state.FinalizedAt = &now

	metrics.RunIterations.Observe(float64(state.IterationCount))
	outcome := "converged"
	if forced {
		outcome = "forced"
	}
	metrics.RunsCompleted.WithLabelValues(outcome).Inc()
	if m.obs != nil {
		m.obs.RecordRunCompleted(ctx, outcome)
	}

	m.logger.Info("research run finalized", map[string]interface{}{
		"runId":      state.RunID,
		"iterations": state.IterationCount,
		"evidence":   state.EvidenceCount(),
		"accepted":   len(accepted),
		"gaps":       len(gaps),
		"forced":     forced,
	})

	return &Result{
		State:    state,
		Accepted: accepted,
		Gaps:     gaps,
		Summary:  summary,
		Forced:   forced,
	}, nil
}

// interpret resolves the thesis profile for the run. An empty target is the
// one unrecoverable failure: there is nothing to research.
func (m *Machine) interpret(req Request) (models.ThesisProfile, error) {
	if strings.TrimSpace(req.Target) == "" {
		return models.ThesisProfile{}, &errors.FatalInterpretationError{Reason: "no research target supplied"}
	}
	if strings.TrimSpace(req.Thesis) == "" && strings.TrimSpace(req.Archetype) == "" {
		return models.ThesisProfile{}, &errors.FatalInterpretationError{Reason: "no usable thesis or archetype supplied"}
	}
	return models.LookupThesisProfile(req.Archetype), nil
}

func (m *Machine) evaluateConvergence(state *models.ResearchRunState, accepted []models.Evidence, profile models.ThesisProfile) Decision {
	generic := Thresholds{
		MinEvidenceCount: m.cfg.Research.MinEvidenceCount,
		QualityThreshold: m.cfg.Research.QualityThreshold,
	}

	var segCfg *config.SegmentConfig
	if state.Segment != "" {
		if sc, ok := m.cfg.Segments[state.Segment]; ok {
			segCfg = &sc
		}
	}

	return Evaluate(accepted, segCfg, generic, profile.RequiredAspects)
}

func (m *Machine) summarize(ctx context.Context, state *models.ResearchRunState, accepted []models.Evidence) string {
	if m.synth == nil || len(accepted) == 0 {
		return ""
	}

	var summary string
	err := m.synthBreaker.Execute(func() error {
		return resilience.Retry(ctx, string(models.SourceSynthesizer), m.synthRetry, m.logger, func(ctx context.Context) error {
			out, synthErr := m.synth.Synthesize(ctx, accepted, state.Thesis)
			if synthErr != nil {
				return synthErr
			}
			summary = out
			return nil
		})
	})
	if err != nil {
		state.RecordError(models.SourceSynthesizer, string(errors.CodeOf(err)), err.Error(), errors.IsRetryable(err))
		return ""
	}
	return summary
}

func (m *Machine) enabledSources() []models.SourceKind {
	var kinds []models.SourceKind
	for name, src := range m.cfg.Sources {
		if src.Enabled {
			kinds = append(kinds, models.SourceKind(name))
		}
	}
	return kinds
}
