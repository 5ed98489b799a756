// internal/adapters/synthesizer.go
package adapters

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"research-orchestrator/internal/common/errors"
	httpclient "research-orchestrator/internal/common/http"
	"research-orchestrator/internal/common/logger"
	"research-orchestrator/internal/models"
)

// SynthesizerConfig holds the generation API settings.
type SynthesizerConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	Timeout     time.Duration
	MaxTokens   int
	Temperature float64
}

// HTTPSynthesizer summarizes an evidence subset through a text generation
// API. Retries and circuit breaking are applied by the caller, not here.
type HTTPSynthesizer struct {
	config SynthesizerConfig
	client *httpclient.Client
	logger logger.Logger
}

func NewHTTPSynthesizer(cfg SynthesizerConfig, log logger.Logger) *HTTPSynthesizer {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 1024
	}
	return &HTTPSynthesizer{
		config: cfg,
		client: httpclient.NewClient(cfg.Timeout),
		logger: log.WithFields(map[string]interface{}{"adapter": string(models.SourceSynthesizer)}),
	}
}

func (s *HTTPSynthesizer) Synthesize(ctx context.Context, items []models.Evidence, researchContext string) (string, error) {
	if len(items) == 0 {
		return "", errors.NewAdapterBadInput(string(models.SourceSynthesizer), "evidence subset must not be empty")
	}

	requestBody := map[string]interface{}{
		"prompt": s.buildPrompt(items, researchContext),
		"model":  s.config.Model,
		"context": map[string]interface{}{
			"evidenceCount": len(items),
		},
		"max_tokens":  s.config.MaxTokens,
		"temperature": s.config.Temperature,
	}

	body, _ := json.Marshal(requestBody)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimRight(s.config.BaseURL, "/")+"/api/ai/generate", bytes.NewBuffer(body))
	if err != nil {
		return "", errors.NewAdapterFailure(errors.ErrCodeSynthesisFailed, string(models.SourceSynthesizer), err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.config.APIKey)

	resp, err := s.client.Do(req)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded || isTimeout(err) {
			return "", errors.NewAdapterTimeout(errors.ErrCodeSynthesisTimeout, string(models.SourceSynthesizer))
		}
		return "", errors.NewAdapterFailure(errors.ErrCodeSynthesisFailed, string(models.SourceSynthesizer), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return "", errors.NewAdapterRateLimited(string(models.SourceSynthesizer), retryAfterOf(resp))
	}
	if resp.StatusCode != http.StatusOK {
		return "", errors.NewAdapterFailure(errors.ErrCodeSynthesisFailed, string(models.SourceSynthesizer),
			fmt.Errorf("generate API returned %d", resp.StatusCode))
	}

	var apiResponse struct {
		Text       string  `json:"text"`
		Confidence float64 `json:"confidence"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResponse); err != nil {
		return "", errors.NewAdapterFailure(errors.ErrCodeSynthesisFailed, string(models.SourceSynthesizer), err)
	}

	if strings.TrimSpace(apiResponse.Text) == "" {
		return "", errors.NewAdapterFailure(errors.ErrCodeSynthesisFailed, string(models.SourceSynthesizer),
			fmt.Errorf("empty synthesis response"))
	}

	s.logger.Info("synthesis completed", map[string]interface{}{
		"evidenceCount": len(items),
		"confidence":    apiResponse.Confidence,
	})
	return apiResponse.Text, nil
}

func (s *HTTPSynthesizer) buildPrompt(items []models.Evidence, researchContext string) string {
	var sb strings.Builder
	sb.WriteString("Summarize the following research evidence")
	if researchContext != "" {
		sb.WriteString(" in the context of: ")
		sb.WriteString(researchContext)
	}
	sb.WriteString("\n\n")

	for i, ev := range items {
		fmt.Fprintf(&sb, "%d. [%s] %s\n", i+1, ev.SourceKind, ev.Content)
	}
	return sb.String()
}
