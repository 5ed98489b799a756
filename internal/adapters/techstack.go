// internal/adapters/techstack.go
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

// RESTAdapterConfig holds the settings shared by the plain HTTP adapters.
type RESTAdapterConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// TechStackAdapter profiles the target's detected technology stack through a
// scanning API. Each detected technology becomes one evidence item.
type TechStackAdapter struct {
	config RESTAdapterConfig
	client *httpclient.Client
	logger logger.Logger
}

func NewTechStackAdapter(cfg RESTAdapterConfig, log logger.Logger) *TechStackAdapter {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &TechStackAdapter{
		config: cfg,
		client: httpclient.NewClient(cfg.Timeout),
		logger: log.WithFields(map[string]interface{}{"adapter": string(models.SourceTechStack)}),
	}
}

func (a *TechStackAdapter) Kind() models.SourceKind {
	return models.SourceTechStack
}

func (a *TechStackAdapter) Search(ctx context.Context, task SearchTask) ([]models.Evidence, error) {
	target := task.Target
	if target == "" {
		target = task.Query
	}
	if strings.TrimSpace(target) == "" {
		return nil, errors.NewAdapterBadInput(string(models.SourceTechStack), "target must not be empty")
	}

	endpoint := fmt.Sprintf("%s/scan?domain=%s", strings.TrimRight(a.config.BaseURL, "/"), url.QueryEscape(target))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, errors.NewAdapterFailure(errors.ErrCodeTechStackFailed, string(models.SourceTechStack), err)
	}
	req.Header.Set("Authorization", "Bearer "+a.config.APIKey)

	resp, err := a.client.Do(req)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded || isTimeout(err) {
			return nil, errors.NewAdapterTimeout(errors.ErrCodeTechStackFailed, string(models.SourceTechStack))
		}
		return nil, errors.NewAdapterFailure(errors.ErrCodeTechStackFailed, string(models.SourceTechStack), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, errors.NewAdapterRateLimited(string(models.SourceTechStack), retryAfterOf(resp))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.NewAdapterFailure(errors.ErrCodeTechStackFailed, string(models.SourceTechStack),
			fmt.Errorf("scan API returned %d", resp.StatusCode))
	}

	var apiResponse struct {
		Technologies []struct {
			Name       string  `json:"name"`
			Category   string  `json:"category"`
			Confidence float64 `json:"confidence"`
			FirstSeen  string  `json:"firstSeen"`
		} `json:"technologies"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResponse); err != nil {
		return nil, errors.NewAdapterFailure(errors.ErrCodeTechStackFailed, string(models.SourceTechStack), err)
	}

	var results []models.Evidence
	for _, tech := range apiResponse.Technologies {
		content := fmt.Sprintf("%s uses %s (%s)", target, tech.Name, tech.Category)
		confidence := tech.Confidence
		if confidence <= 0 {
			confidence = 0.7
		}

		ev := models.NewEvidence(models.SourceTechStack, content, "", confidence)
		ev.PillarID = task.PillarID
		ev.Metadata = map[string]interface{}{
			"technology": tech.Name,
			"category":   tech.Category,
		}
		if tech.FirstSeen != "" {
			ev.Metadata["firstSeen"] = tech.FirstSeen
		}
		results = append(results, ev)
	}

	a.logger.Info("tech stack scan completed", map[string]interface{}{
		"target":          target,
		"technologyCount": len(results),
	})
	return results, nil
}
