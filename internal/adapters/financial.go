// internal/adapters/financial.go
package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"research-orchestrator/internal/common/errors"
	httpclient "research-orchestrator/internal/common/http"
	"research-orchestrator/internal/common/logger"
	"research-orchestrator/internal/models"
)

// FinancialAdapter pulls funding and revenue signals for the target entity.
type FinancialAdapter struct {
	config RESTAdapterConfig
	client *httpclient.Client
	logger logger.Logger
}

func NewFinancialAdapter(cfg RESTAdapterConfig, log logger.Logger) *FinancialAdapter {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	return &FinancialAdapter{
		config: cfg,
		client: httpclient.NewClient(cfg.Timeout),
		logger: log.WithFields(map[string]interface{}{"adapter": string(models.SourceFinancial)}),
	}
}

func (a *FinancialAdapter) Kind() models.SourceKind {
	return models.SourceFinancial
}

func (a *FinancialAdapter) Search(ctx context.Context, task SearchTask) ([]models.Evidence, error) {
	target := task.Target
	if target == "" {
		target = task.Query
	}
	if strings.TrimSpace(target) == "" {
		return nil, errors.NewAdapterBadInput(string(models.SourceFinancial), "target must not be empty")
	}

	endpoint := fmt.Sprintf("%s/v2/signals?company=%s", strings.TrimRight(a.config.BaseURL, "/"), url.QueryEscape(target))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, errors.NewAdapterFailure(errors.ErrCodeFinancialFailed, string(models.SourceFinancial), err)
	}
	req.Header.Set("X-API-Key", a.config.APIKey)

	resp, err := a.client.Do(req)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded || isTimeout(err) {
			return nil, errors.NewAdapterTimeout(errors.ErrCodeFinancialFailed, string(models.SourceFinancial))
		}
		return nil, errors.NewAdapterFailure(errors.ErrCodeFinancialFailed, string(models.SourceFinancial), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, errors.NewAdapterRateLimited(string(models.SourceFinancial), retryAfterOf(resp))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.NewAdapterFailure(errors.ErrCodeFinancialFailed, string(models.SourceFinancial),
			fmt.Errorf("signals API returned %d", resp.StatusCode))
	}

	var apiResponse struct {
		Signals []struct {
			Type      string  `json:"type"`
			Statement string  `json:"statement"`
			Sentiment string  `json:"sentiment"`
			SourceURL string  `json:"sourceUrl"`
			Score     float64 `json:"score"`
		} `json:"signals"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResponse); err != nil {
		return nil, errors.NewAdapterFailure(errors.ErrCodeFinancialFailed, string(models.SourceFinancial), err)
	}

	var results []models.Evidence
	for _, signal := range apiResponse.Signals {
		confidence := signal.Score
		if confidence <= 0 {
			confidence = 0.65
		}

		ev := models.NewEvidence(models.SourceFinancial, signal.Statement, signal.SourceURL, confidence)
		ev.PillarID = task.PillarID
		ev.SupportsThesis = signal.Sentiment == "positive"
		ev.ContradictsThesis = signal.Sentiment == "negative"
		ev.Metadata = map[string]interface{}{"signalType": signal.Type}
		results = append(results, ev)
	}

	a.logger.Info("financial signals collected", map[string]interface{}{
		"target":      target,
		"signalCount": len(results),
	})
	return results, nil
}
