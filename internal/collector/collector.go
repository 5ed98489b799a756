// internal/collector/collector.go
package collector

import (
	"context"
	"sync"
	"time"

	"research-orchestrator/internal/adapters"
	"research-orchestrator/internal/common/config"
	"research-orchestrator/internal/common/errors"
	"research-orchestrator/internal/common/logger"
	"research-orchestrator/internal/common/metrics"
	"research-orchestrator/internal/evidence"
	"research-orchestrator/internal/models"
	"research-orchestrator/internal/resilience"
)

// sourcePlumbing carries the per-source resilience state. Breakers and
// health counters live for the life of the process, not per run.
type sourcePlumbing struct {
	adapter   adapters.SourceAdapter
	breaker   *resilience.CircuitBreaker
	retry     resilience.RetryPolicy
	timeout   time.Duration
	fallbacks []models.SourceKind
}

// Collector fans a research plan out to the registered source adapters
// concurrently, wrapping every call in circuit breaker, retry and fallback
// chain. Failures are recorded into the run state and swallowed; a round
// with partial source coverage is still a valid round.
type Collector struct {
	mu      sync.RWMutex
	sources map[models.SourceKind]*sourcePlumbing

	health *resilience.HealthMonitor
	cache  *evidence.Cache
	logger logger.Logger
}

// Outcome is the terminal result of one plan task.
type Outcome struct {
	Task     adapters.SearchTask
	Evidence []models.Evidence
	Err      error
}

// New creates a collector with no registered sources.
func New(health *resilience.HealthMonitor, cache *evidence.Cache, log logger.Logger) *Collector {
	return &Collector{
		sources: make(map[models.SourceKind]*sourcePlumbing),
		health:  health,
		cache:   cache,
		logger:  log.WithFields(map[string]interface{}{"component": "collector"}),
	}
}

// Register wires one adapter with its source policy. Missing policy fields
// fall back to defaults.
func (c *Collector) Register(adapter adapters.SourceAdapter, cfg config.SourceConfig) {
	kind := adapter.Kind()

	timeout := time.Duration(cfg.Timeout) * time.Millisecond
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	fallbacks := make([]models.SourceKind, 0, len(cfg.Fallbacks))
	for _, name := range cfg.Fallbacks {
		fallbacks = append(fallbacks, models.SourceKind(name))
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.sources[kind] = &sourcePlumbing{
		adapter:   adapter,
		breaker:   resilience.NewCircuitBreaker(string(kind), resilience.BreakerFromConfig(cfg.Breaker)),
		retry:     resilience.PolicyFromConfig(cfg.Retry),
		timeout:   timeout,
		fallbacks: fallbacks,
	}
}

// Collect executes every plan task concurrently and merges successful
// results into the run state through the deduplicator. Terminal failures are
// recorded into state.Errors, one entry per failed task. Cancellation stops
// issuing new work and returns the evidence gathered so far.
func (c *Collector) Collect(ctx context.Context, state *models.ResearchRunState, plan []adapters.SearchTask) {
	outcomes := make(chan Outcome, len(plan))

	var wg sync.WaitGroup
	for _, task := range plan {
		if ctx.Err() != nil {
			break
		}

		wg.Add(1)
		go func(task adapters.SearchTask) {
			defer wg.Done()
			items, err := c.collectOne(ctx, task)
			outcomes <- Outcome{Task: task, Evidence: items, Err: err}
		}(task)
	}

	go func() {
		wg.Wait()
		close(outcomes)
	}()

	succeeded, failed := 0, 0
	for outcome := range outcomes {
		if outcome.Err != nil {
			failed++
			state.RecordError(outcome.Task.Source, string(errors.CodeOf(outcome.Err)),
				outcome.Err.Error(), errors.IsRetryable(outcome.Err))
			continue
		}

		succeeded++
		state.Evidence = evidence.Merge(state.Evidence, outcome.Evidence)
		metrics.EvidenceCollected.WithLabelValues(string(outcome.Task.Source)).Add(float64(len(outcome.Evidence)))
	}

	c.logger.Info("collection round finished", map[string]interface{}{
		"runId":     state.RunID,
		"planned":   len(plan),
		"succeeded": succeeded,
		"failed":    failed,
		"evidence":  state.EvidenceCount(),
	})
}

// collectOne resolves a single task: cache, then the primary source wrapped
// in breaker and retry, then each configured fallback source in order.
func (c *Collector) collectOne(ctx context.Context, task adapters.SearchTask) ([]models.Evidence, error) {
	if items, ok := c.cache.Get(ctx, task.Source, task.Query); ok {
		metrics.SourceCallsTotal.WithLabelValues(string(task.Source), "cache_hit").Inc()
		return items, nil
	}

	primary, ok := c.plumbing(task.Source)
	if !ok {
		return nil, errors.NewAdapterBadInput(string(task.Source), "no adapter registered for source")
	}

	var items []models.Evidence
	var fromPrimary bool

	chain := make([]resilience.Operation, 0, len(primary.fallbacks))
	for _, kind := range primary.fallbacks {
		fb, ok := c.plumbing(kind)
		if !ok {
			continue
		}

		fbTask := task
		fbTask.Source = kind
		chain = append(chain, func(ctx context.Context) error {
			got, fbErr := c.callSource(ctx, fb, fbTask)
			if fbErr != nil {
				return fbErr
			}
			items = got
			return nil
		})
	}

	log := c.logger.WithFields(map[string]interface{}{"source": string(task.Source)})
	err := resilience.ExecuteWithFallbacks(ctx, log, func(ctx context.Context) error {
		got, primaryErr := c.callSource(ctx, primary, task)
		if primaryErr != nil {
			return primaryErr
		}
		items = got
		fromPrimary = true
		return nil
	}, chain...)
	if err != nil {
		return nil, err
	}

	// only primary results are cached under the primary's key
	if fromPrimary {
		c.cache.Put(ctx, task.Source, task.Query, items)
	}
	return items, nil
}

// callSource performs breaker-gated, retried invocation of one adapter with
// the per-source timeout, updating health counters on every attempt.
func (c *Collector) callSource(ctx context.Context, sp *sourcePlumbing, task adapters.SearchTask) ([]models.Evidence, error) {
	kind := sp.adapter.Kind()

	if err := sp.breaker.Allow(); err != nil {
		metrics.SourceCallsTotal.WithLabelValues(string(kind), "circuit_open").Inc()
		c.health.SetCircuitState(string(kind), sp.breaker.State())
		return nil, err
	}

	var items []models.Evidence
	err := resilience.Retry(ctx, string(kind), sp.retry, c.logger, func(ctx context.Context) error {
		callCtx, cancel := context.WithTimeout(ctx, sp.timeout)
		defer cancel()

		start := time.Now()
		result, callErr := sp.adapter.Search(callCtx, task)
		elapsed := time.Since(start)

		metrics.SourceCallDuration.WithLabelValues(string(kind)).Observe(elapsed.Seconds())
		if callErr != nil {
			c.health.RecordFailure(string(kind), elapsed, callErr)
			return callErr
		}

		c.health.RecordSuccess(string(kind), elapsed)
		items = result
		return nil
	})

	if err != nil {
		sp.breaker.RecordFailure()
		c.health.SetCircuitState(string(kind), sp.breaker.State())
		metrics.SourceCallsTotal.WithLabelValues(string(kind), "failure").Inc()
		return nil, err
	}

	sp.breaker.RecordSuccess()
	c.health.SetCircuitState(string(kind), sp.breaker.State())
	metrics.SourceCallsTotal.WithLabelValues(string(kind), "success").Inc()
	return items, nil
}

func (c *Collector) plumbing(kind models.SourceKind) (*sourcePlumbing, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	sp, ok := c.sources[kind]
	return sp, ok
}
