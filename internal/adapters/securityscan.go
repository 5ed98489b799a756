// internal/adapters/securityscan.go
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

// SecurityScanAdapter queries an external posture-scanning service. High and
// critical findings are flagged as contradicting evidence so they survive
// quality filtering regardless of score.
type SecurityScanAdapter struct {
	config RESTAdapterConfig
	client *httpclient.Client
	logger logger.Logger
}

func NewSecurityScanAdapter(cfg RESTAdapterConfig, log logger.Logger) *SecurityScanAdapter {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 45 * time.Second
	}
	return &SecurityScanAdapter{
		config: cfg,
		client: httpclient.NewClient(cfg.Timeout),
		logger: log.WithFields(map[string]interface{}{"adapter": string(models.SourceSecurityScan)}),
	}
}

func (a *SecurityScanAdapter) Kind() models.SourceKind {
	return models.SourceSecurityScan
}

func (a *SecurityScanAdapter) Search(ctx context.Context, task SearchTask) ([]models.Evidence, error) {
	target := task.Target
	if target == "" {
		target = task.Query
	}
	if strings.TrimSpace(target) == "" {
		return nil, errors.NewAdapterBadInput(string(models.SourceSecurityScan), "target must not be empty")
	}

	endpoint := fmt.Sprintf("%s/v1/posture?domain=%s", strings.TrimRight(a.config.BaseURL, "/"), url.QueryEscape(target))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, errors.NewAdapterFailure(errors.ErrCodeSecurityScanFailed, string(models.SourceSecurityScan), err)
	}
	req.Header.Set("X-API-Key", a.config.APIKey)

	resp, err := a.client.Do(req)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded || isTimeout(err) {
			return nil, errors.NewAdapterTimeout(errors.ErrCodeSecurityScanFailed, string(models.SourceSecurityScan))
		}
		return nil, errors.NewAdapterFailure(errors.ErrCodeSecurityScanFailed, string(models.SourceSecurityScan), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, errors.NewAdapterRateLimited(string(models.SourceSecurityScan), retryAfterOf(resp))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.NewAdapterFailure(errors.ErrCodeSecurityScanFailed, string(models.SourceSecurityScan),
			fmt.Errorf("posture API returned %d", resp.StatusCode))
	}

	var apiResponse struct {
		Grade    string `json:"grade"`
		Findings []struct {
			Title       string `json:"title"`
			Severity    string `json:"severity"`
			Description string `json:"description"`
			Reference   string `json:"reference"`
		} `json:"findings"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResponse); err != nil {
		return nil, errors.NewAdapterFailure(errors.ErrCodeSecurityScanFailed, string(models.SourceSecurityScan), err)
	}

	var results []models.Evidence
	if apiResponse.Grade != "" {
		ev := models.NewEvidence(models.SourceSecurityScan,
			fmt.Sprintf("%s security posture grade: %s", target, apiResponse.Grade), "", 0.85)
		ev.PillarID = task.PillarID
		ev.SupportsThesis = apiResponse.Grade == "A" || apiResponse.Grade == "B"
		results = append(results, ev)
	}

	for _, finding := range apiResponse.Findings {
		severity := strings.ToLower(finding.Severity)

		ev := models.NewEvidence(models.SourceSecurityScan,
			fmt.Sprintf("[%s] %s: %s", severity, finding.Title, finding.Description),
			finding.Reference, 0.8)
		ev.Title = finding.Title
		ev.PillarID = task.PillarID
		ev.ContradictsThesis = severity == "high" || severity == "critical"
		ev.Metadata = map[string]interface{}{"severity": severity}
		results = append(results, ev)
	}

	a.logger.Info("security scan completed", map[string]interface{}{
		"target":       target,
		"findingCount": len(apiResponse.Findings),
	})
	return results, nil
}
