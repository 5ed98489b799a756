// internal/adapters/internaldata.go
package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"research-orchestrator/internal/common/errors"
	"research-orchestrator/internal/common/logger"
	"research-orchestrator/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// InternalDataConfig holds the settings for the internal evidence index.
type InternalDataConfig struct {
	Index      string
	MaxResults int
}

// InternalDataAdapter searches previously curated research documents stored
// in Elasticsearch. It is the most credible origin class because its content
// went through human review before indexing.
type InternalDataAdapter struct {
	config InternalDataConfig
	client *elasticsearch.Client
	logger logger.Logger
}

func NewInternalDataAdapter(cfg InternalDataConfig, client *elasticsearch.Client, log logger.Logger) *InternalDataAdapter {
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 10
	}
	return &InternalDataAdapter{
		config: cfg,
		client: client,
		logger: log.WithFields(map[string]interface{}{"adapter": string(models.SourceInternalData)}),
	}
}

func (a *InternalDataAdapter) Kind() models.SourceKind {
	return models.SourceInternalData
}

func (a *InternalDataAdapter) Search(ctx context.Context, task SearchTask) ([]models.Evidence, error) {
	if strings.TrimSpace(task.Query) == "" {
		return nil, errors.NewAdapterBadInput(string(models.SourceInternalData), "query must not be empty")
	}
	if a.config.Index == "" {
		return nil, errors.NewAdapterBadInput(string(models.SourceInternalData), "index name is required")
	}

	queryBody := map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must": []interface{}{
					map[string]interface{}{
						"multi_match": map[string]interface{}{
							"query":  task.Query,
							"fields": []string{"title^3", "content^2", "summary"},
							"type":   "best_fields",
						},
					},
				},
				"filter": buildTargetFilter(task.Target),
			},
		},
	}

	body, _ := json.Marshal(queryBody)
	size := a.config.MaxResults
	req := esapi.SearchRequest{
		Index: []string{a.config.Index},
		Body:  strings.NewReader(string(body)),
		Size:  &size,
	}

	res, err := req.Do(ctx, a.client)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, errors.NewAdapterTimeout(errors.ErrCodeInternalDataFailed, string(models.SourceInternalData))
		}
		return nil, errors.NewAdapterFailure(errors.ErrCodeInternalDataFailed, string(models.SourceInternalData), err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, errors.NewAdapterFailure(errors.ErrCodeInternalDataFailed, string(models.SourceInternalData),
			fmt.Errorf("search returned %s", res.Status()))
	}

	var parsed struct {
		Hits struct {
			MaxScore float64 `json:"max_score"`
			Hits     []struct {
				Score  float64 `json:"_score"`
				Source struct {
					Title   string `json:"title"`
					Content string `json:"content"`
					Summary string `json:"summary"`
					URL     string `json:"url"`
				} `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, errors.NewAdapterFailure(errors.ErrCodeInternalDataFailed, string(models.SourceInternalData), err)
	}

	var results []models.Evidence
	for _, hit := range parsed.Hits.Hits {
		content := hit.Source.Content
		if content == "" {
			content = hit.Source.Summary
		}

		confidence := 0.85
		if parsed.Hits.MaxScore > 0 {
			confidence = 0.6 + 0.35*(hit.Score/parsed.Hits.MaxScore)
		}

		ev := models.NewEvidence(models.SourceInternalData, content, hit.Source.URL, confidence)
		ev.Title = hit.Source.Title
		ev.PillarID = task.PillarID
		results = append(results, ev)
	}

	a.logger.Info("internal data search completed", map[string]interface{}{
		"query":       task.Query,
		"resultCount": len(results),
	})
	return results, nil
}

func buildTargetFilter(target string) []interface{} {
	if target == "" {
		return []interface{}{}
	}
	return []interface{}{
		map[string]interface{}{
			"term": map[string]interface{}{"target": target},
		},
	}
}
