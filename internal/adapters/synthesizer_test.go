// internal/adapters/synthesizer_test.go
package adapters

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"research-orchestrator/internal/common/errors"
	"research-orchestrator/internal/common/logger"
	"research-orchestrator/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func synthItems() []models.Evidence {
	return []models.Evidence{
		models.NewEvidence(models.SourceWebSearch, "market grew 20%", "https://a.example.com", 0.8),
		models.NewEvidence(models.SourceFinancial, "ARR doubled", "", 0.9),
	}
}

func TestHTTPSynthesizer_Synthesize(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/ai/generate", r.URL.Path)

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Contains(t, body["prompt"], "market grew 20%")
		assert.Contains(t, body["prompt"], "growth thesis")

		w.Write([]byte(`{"text": "The target shows strong growth.", "confidence": 0.82}`))
	}))
	t.Cleanup(server.Close)

	synth := NewHTTPSynthesizer(SynthesizerConfig{
		BaseURL: server.URL,
		Model:   "summarize-v2",
		Timeout: time.Second,
	}, logger.NewTestLogger(t))

	text, err := synth.Synthesize(context.Background(), synthItems(), "growth thesis")

	require.NoError(t, err)
	assert.Equal(t, "The target shows strong growth.", text)
}

func TestHTTPSynthesizer_EmptySubsetRejected(t *testing.T) {
	synth := NewHTTPSynthesizer(SynthesizerConfig{BaseURL: "http://unused"}, logger.NewTestLogger(t))

	_, err := synth.Synthesize(context.Background(), nil, "")

	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeAdapterBadInput, errors.CodeOf(err))
}

func TestHTTPSynthesizer_EmptyResponseIsFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"text": "   ", "confidence": 0}`))
	}))
	t.Cleanup(server.Close)

	synth := NewHTTPSynthesizer(SynthesizerConfig{
		BaseURL: server.URL,
		Timeout: time.Second,
	}, logger.NewTestLogger(t))

	_, err := synth.Synthesize(context.Background(), synthItems(), "")

	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeSynthesisFailed, errors.CodeOf(err))
}
