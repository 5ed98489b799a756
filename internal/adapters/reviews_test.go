// internal/adapters/reviews_test.go
package adapters

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"research-orchestrator/internal/common/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReviewsAdapter_Search(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"averageRating": 4.4,
			"totalReviews": 128,
			"reviews": [
				{"rating": 5, "title": "Great product", "body": "Onboarding was easy", "url": "https://reviews.example.com/1", "verified": true},
				{"rating": 2, "title": "Disappointed", "body": "Support never responded", "url": "https://reviews.example.com/2", "verified": false}
			]
		}`))
	}))
	t.Cleanup(server.Close)

	adapter := NewReviewsAdapter(RESTAdapterConfig{
		BaseURL: server.URL,
		Timeout: time.Second,
	}, logger.NewTestLogger(t))

	results, err := adapter.Search(context.Background(), SearchTask{Target: "Acme Platform"})

	require.NoError(t, err)
	require.Len(t, results, 3)

	summary := results[0]
	assert.Contains(t, summary.Content, "4.4 stars")
	assert.True(t, summary.SupportsThesis)

	positive := results[1]
	assert.True(t, positive.SupportsThesis)
	assert.InDelta(t, 0.7, positive.Confidence, 0.001, "verified reviews carry more confidence")

	negative := results[2]
	assert.True(t, negative.ContradictsThesis)
	assert.InDelta(t, 0.5, negative.Confidence, 0.001)
}

func TestReviewsAdapter_NoReviews(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"averageRating": 0, "totalReviews": 0, "reviews": []}`))
	}))
	t.Cleanup(server.Close)

	adapter := NewReviewsAdapter(RESTAdapterConfig{
		BaseURL: server.URL,
		Timeout: time.Second,
	}, logger.NewTestLogger(t))

	results, err := adapter.Search(context.Background(), SearchTask{Target: "Unknown Product"})

	require.NoError(t, err)
	assert.Empty(t, results)
}
