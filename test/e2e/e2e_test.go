// test/e2e/e2e_test.go
package e2e

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"research-orchestrator/internal/adapters"
	"research-orchestrator/internal/collector"
	"research-orchestrator/internal/common/config"
	"research-orchestrator/internal/common/logger"
	"research-orchestrator/internal/evidence"
	"research-orchestrator/internal/models"
	"research-orchestrator/internal/orchestrator"
	"research-orchestrator/internal/resilience"
)

// fakeSearchAPI serves a web search endpoint that always finds three
// on-thesis results per query. Links are derived from the query so distinct
// queries contribute distinct evidence.
type fakeSearchAPI struct {
	requests atomic.Int32
}

func (f *fakeSearchAPI) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f.requests.Add(1)
		q := r.URL.Query().Get("q")
		qh := sha256.Sum256([]byte(q))
		slug := hex.EncodeToString(qh[:6])

		type item struct {
			Link    string `json:"link"`
			Title   string `json:"title"`
			Snippet string `json:"snippet"`
			Mime    string `json:"mime"`
		}
		var items []item
		for i := 0; i < 3; i++ {
			items = append(items, item{
				Link:    fmt.Sprintf("https://results.example.com/%s/%d", slug, i),
				Title:   fmt.Sprintf("Report on %s", q),
				Snippet: "market growth demand trajectory tam expanding year over year",
			})
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"items": items})
	}
}

func e2eConfig(searchURL string) *config.Config {
	cfg := &config.Config{}
	cfg.Research.MaxIterations = 3
	cfg.Research.QualityFloor = 60
	cfg.Research.MinEvidenceCount = 10
	cfg.Research.QualityThreshold = 0.7
	cfg.Research.CollectionTimeout = 5000
	cfg.Research.RefinedQueriesPerGap = 2
	cfg.Sources = map[string]config.SourceConfig{
		"web_search": {
			Enabled: true,
			Timeout: 2000,
			Retry: config.RetryConfig{
				MaxRetries:        1,
				InitialDelay:      1,
				MaxDelay:          5,
				BackoffMultiplier: 2,
			},
			Breaker: config.BreakerConfig{
				FailureThreshold: 5,
				ResetTimeout:     60000,
			},
		},
	}
	cfg.APIs.WebSearch.BaseURL = searchURL
	return cfg
}

func newPipeline(t *testing.T, cfg *config.Config, redisAddr, synthURL string) *orchestrator.Machine {
	log := logger.NewTestLogger(t)

	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
	cache := evidence.NewCache(rdb, time.Minute, log)

	coll := collector.New(resilience.NewHealthMonitor(), cache, log)
	coll.Register(adapters.NewWebSearchAdapter(adapters.WebSearchConfig{
		BaseURL:    cfg.APIs.WebSearch.BaseURL,
		Timeout:    2 * time.Second,
		MaxResults: 5,
	}, log), cfg.Sources["web_search"])

	var synth adapters.Synthesizer
	if synthURL != "" {
		synth = adapters.NewHTTPSynthesizer(adapters.SynthesizerConfig{
			BaseURL:   synthURL,
			Model:     "summarizer-v1",
			Timeout:   2 * time.Second,
			MaxTokens: 200,
		}, log)
	}

	return orchestrator.NewMachine(cfg, coll, synth, nil, log)
}

func TestResearchPipeline_EndToEnd(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	searchAPI := &fakeSearchAPI{}
	searchSrv := httptest.NewServer(searchAPI.handler())
	defer searchSrv.Close()

	synthSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"text":       "The target shows sustained market growth across all pillars.",
			"confidence": 0.9,
		})
	}))
	defer synthSrv.Close()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	cfg := e2eConfig(searchSrv.URL)
	machine := newPipeline(t, cfg, mr.Addr(), synthSrv.URL)

	result, err := machine.Run(ctx, orchestrator.Request{
		Target:    "Acme Analytics",
		Thesis:    "Acme can accelerate organic growth",
		Archetype: "accelerate-organic-growth",
	})
	require.NoError(t, err)
	require.NotNil(t, result)

	state := result.State

	assert.Equal(t, models.PhaseFinalized, state.Phase)
	assert.False(t, result.Forced)
	assert.Equal(t, 0, state.IterationCount)
	assert.NotNil(t, state.FinalizedAt)

	// 4 pillar queries, 3 results each, all above the quality floor.
	assert.Equal(t, 12, state.EvidenceCount())
	assert.Len(t, result.Accepted, 12)
	for _, ev := range result.Accepted {
		require.NotNil(t, ev.Quality)
		assert.GreaterOrEqual(t, ev.Quality.Overall, 0.7)
	}

	assert.Contains(t, result.Summary, "sustained market growth")

	// One upstream call per pillar query, results cached afterwards.
	assert.Equal(t, int32(4), searchAPI.requests.Load())
	assert.NotEmpty(t, mr.Keys())
}

func TestResearchPipeline_SecondRunServedFromCache(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	searchAPI := &fakeSearchAPI{}
	searchSrv := httptest.NewServer(searchAPI.handler())
	defer searchSrv.Close()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	cfg := e2eConfig(searchSrv.URL)
	req := orchestrator.Request{
		Target:    "Acme Analytics",
		Thesis:    "Acme can accelerate organic growth",
		Archetype: "accelerate-organic-growth",
	}

	first := newPipeline(t, cfg, mr.Addr(), "")
	_, err = first.Run(ctx, req)
	require.NoError(t, err)
	callsAfterFirst := searchAPI.requests.Load()
	require.Equal(t, int32(4), callsAfterFirst)

	second := newPipeline(t, cfg, mr.Addr(), "")
	result, err := second.Run(ctx, req)
	require.NoError(t, err)

	assert.Equal(t, callsAfterFirst, searchAPI.requests.Load(), "repeat queries come from the cache")
	assert.Equal(t, 12, result.State.EvidenceCount())
	assert.Equal(t, models.PhaseFinalized, result.State.Phase)
}

func TestResearchPipeline_UpstreamOutageForcesFinalization(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	searchSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer searchSrv.Close()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	cfg := e2eConfig(searchSrv.URL)
	machine := newPipeline(t, cfg, mr.Addr(), "")

	result, err := machine.Run(ctx, orchestrator.Request{
		Target:    "Acme Analytics",
		Thesis:    "Acme can accelerate organic growth",
		Archetype: "accelerate-organic-growth",
	})
	require.NoError(t, err)

	state := result.State
	assert.Equal(t, models.PhaseFinalized, state.Phase)
	assert.True(t, result.Forced, "run finalizes with whatever it has")
	assert.Equal(t, cfg.Research.MaxIterations, state.IterationCount)
	assert.Equal(t, 0, state.EvidenceCount())
	assert.NotEmpty(t, state.Errors)
	assert.NotEmpty(t, result.Gaps)
}
