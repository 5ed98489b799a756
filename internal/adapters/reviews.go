// internal/adapters/reviews.go
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

// ReviewsAdapter aggregates customer review signals. Low-rated reviews are
// flagged as contradicting evidence; they matter most for risk analysis.
type ReviewsAdapter struct {
	config RESTAdapterConfig
	client *httpclient.Client
	logger logger.Logger
}

func NewReviewsAdapter(cfg RESTAdapterConfig, log logger.Logger) *ReviewsAdapter {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	return &ReviewsAdapter{
		config: cfg,
		client: httpclient.NewClient(cfg.Timeout),
		logger: log.WithFields(map[string]interface{}{"adapter": string(models.SourceReviews)}),
	}
}

func (a *ReviewsAdapter) Kind() models.SourceKind {
	return models.SourceReviews
}

func (a *ReviewsAdapter) Search(ctx context.Context, task SearchTask) ([]models.Evidence, error) {
	target := task.Target
	if target == "" {
		target = task.Query
	}
	if strings.TrimSpace(target) == "" {
		return nil, errors.NewAdapterBadInput(string(models.SourceReviews), "target must not be empty")
	}

	endpoint := fmt.Sprintf("%s/reviews?product=%s", strings.TrimRight(a.config.BaseURL, "/"), url.QueryEscape(target))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, errors.NewAdapterFailure(errors.ErrCodeReviewsFailed, string(models.SourceReviews), err)
	}
	req.Header.Set("Authorization", "Bearer "+a.config.APIKey)

	resp, err := a.client.Do(req)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded || isTimeout(err) {
			return nil, errors.NewAdapterTimeout(errors.ErrCodeReviewsFailed, string(models.SourceReviews))
		}
		return nil, errors.NewAdapterFailure(errors.ErrCodeReviewsFailed, string(models.SourceReviews), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, errors.NewAdapterRateLimited(string(models.SourceReviews), retryAfterOf(resp))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.NewAdapterFailure(errors.ErrCodeReviewsFailed, string(models.SourceReviews),
			fmt.Errorf("reviews API returned %d", resp.StatusCode))
	}

	var apiResponse struct {
		AverageRating float64 `json:"averageRating"`
		TotalReviews  int     `json:"totalReviews"`
		Reviews       []struct {
			Rating   float64 `json:"rating"`
			Title    string  `json:"title"`
			Body     string  `json:"body"`
			URL      string  `json:"url"`
			Verified bool    `json:"verified"`
		} `json:"reviews"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResponse); err != nil {
		return nil, errors.NewAdapterFailure(errors.ErrCodeReviewsFailed, string(models.SourceReviews), err)
	}

	var results []models.Evidence
	if apiResponse.TotalReviews > 0 {
		ev := models.NewEvidence(models.SourceReviews,
			fmt.Sprintf("%s averages %.1f stars across %d reviews", target, apiResponse.AverageRating, apiResponse.TotalReviews),
			"", 0.75)
		ev.PillarID = task.PillarID
		ev.SupportsThesis = apiResponse.AverageRating >= 4.0
		ev.ContradictsThesis = apiResponse.AverageRating < 3.0
		results = append(results, ev)
	}

	for _, review := range apiResponse.Reviews {
		confidence := 0.5
		if review.Verified {
			confidence = 0.7
		}

		ev := models.NewEvidence(models.SourceReviews, review.Body, review.URL, confidence)
		ev.Title = review.Title
		ev.PillarID = task.PillarID
		ev.SupportsThesis = review.Rating >= 4.0
		ev.ContradictsThesis = review.Rating < 3.0
		ev.Metadata = map[string]interface{}{
			"rating":   review.Rating,
			"verified": review.Verified,
		}
		results = append(results, ev)
	}

	a.logger.Info("review aggregation completed", map[string]interface{}{
		"target":      target,
		"reviewCount": len(apiResponse.Reviews),
	})
	return results, nil
}
