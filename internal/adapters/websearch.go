// internal/adapters/websearch.go
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

// WebSearchConfig holds the search API settings.
type WebSearchConfig struct {
	BaseURL    string
	APIKey     string
	EngineID   string
	Timeout    time.Duration
	MaxResults int
}

// WebSearchAdapter queries a web search API and converts result items into
// evidence. Results are deduped by URL and boosted for authoritative domains.
type WebSearchAdapter struct {
	config WebSearchConfig
	client *httpclient.Client
	logger logger.Logger
}

func NewWebSearchAdapter(cfg WebSearchConfig, log logger.Logger) *WebSearchAdapter {
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 10
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &WebSearchAdapter{
		config: cfg,
		client: httpclient.NewClient(cfg.Timeout),
		logger: log.WithFields(map[string]interface{}{"adapter": string(models.SourceWebSearch)}),
	}
}

func (a *WebSearchAdapter) Kind() models.SourceKind {
	return models.SourceWebSearch
}

func (a *WebSearchAdapter) Search(ctx context.Context, task SearchTask) ([]models.Evidence, error) {
	if strings.TrimSpace(task.Query) == "" {
		return nil, errors.NewAdapterBadInput(string(models.SourceWebSearch), "query must not be empty")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.buildSearchURL(task.Query), nil)
	if err != nil {
		return nil, errors.NewAdapterFailure(errors.ErrCodeWebSearchFailed, string(models.SourceWebSearch), err)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded || isTimeout(err) {
			return nil, errors.NewAdapterTimeout(errors.ErrCodeWebSearchTimeout, string(models.SourceWebSearch))
		}
		return nil, errors.NewAdapterFailure(errors.ErrCodeWebSearchFailed, string(models.SourceWebSearch), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, errors.NewAdapterRateLimited(string(models.SourceWebSearch), retryAfterOf(resp))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.NewAdapterFailure(errors.ErrCodeWebSearchFailed, string(models.SourceWebSearch),
			fmt.Errorf("search API returned %d", resp.StatusCode))
	}

	var apiResponse struct {
		Items []struct {
			Link    string `json:"link"`
			Title   string `json:"title"`
			Snippet string `json:"snippet"`
			Mime    string `json:"mime"`
		} `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResponse); err != nil {
		return nil, errors.NewAdapterFailure(errors.ErrCodeWebSearchFailed, string(models.SourceWebSearch), err)
	}

	seen := make(map[string]bool)
	var results []models.Evidence
	for _, item := range apiResponse.Items {
		if item.Mime != "" && !strings.Contains(item.Mime, "html") {
			continue
		}
		if seen[item.Link] {
			continue
		}
		seen[item.Link] = true

		confidence := 0.6
		if strings.Contains(item.Link, ".gov") || strings.Contains(item.Link, ".edu") {
			confidence += 0.2
		}
		if strings.Contains(strings.ToLower(item.Title), "official") {
			confidence += 0.1
		}

		ev := models.NewEvidence(models.SourceWebSearch, item.Snippet, item.Link, confidence)
		ev.Title = item.Title
		ev.PillarID = task.PillarID
		results = append(results, ev)

		if len(results) >= a.config.MaxResults {
			break
		}
	}

	a.logger.Info("web search completed", map[string]interface{}{
		"query":       task.Query,
		"resultCount": len(results),
	})
	return results, nil
}

func (a *WebSearchAdapter) buildSearchURL(query string) string {
	baseURL, _ := url.Parse(a.config.BaseURL)
	params := url.Values{}
	params.Add("key", a.config.APIKey)
	params.Add("cx", a.config.EngineID)
	params.Add("q", query)
	params.Add("num", fmt.Sprintf("%d", a.config.MaxResults))
	baseURL.RawQuery = params.Encode()
	return baseURL.String()
}
