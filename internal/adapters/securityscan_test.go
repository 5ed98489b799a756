// internal/adapters/securityscan_test.go
package adapters

import (
	"context"
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

const postureResponse = `{
	"grade": "C",
	"findings": [
		{"title": "TLS 1.0 enabled", "severity": "high", "description": "Legacy protocol accepted", "reference": "https://scanner.example.com/f/1"},
		{"title": "Missing CSP header", "severity": "low", "description": "No content security policy", "reference": "https://scanner.example.com/f/2"}
	]
}`

func TestSecurityScanAdapter_Search(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "acme.com", r.URL.Query().Get("domain"))
		w.Write([]byte(postureResponse))
	}))
	t.Cleanup(server.Close)

	adapter := NewSecurityScanAdapter(RESTAdapterConfig{
		BaseURL: server.URL,
		Timeout: time.Second,
	}, logger.NewTestLogger(t))

	results, err := adapter.Search(context.Background(), SearchTask{
		Target:   "acme.com",
		PillarID: "security",
	})

	require.NoError(t, err)
	require.Len(t, results, 3)

	grade := results[0]
	assert.Contains(t, grade.Content, "grade: C")
	assert.False(t, grade.SupportsThesis)

	high := results[1]
	assert.True(t, high.ContradictsThesis, "high severity findings contradict the thesis")
	assert.Equal(t, "high", high.Metadata["severity"])

	low := results[2]
	assert.False(t, low.ContradictsThesis)
	assert.Equal(t, models.SourceSecurityScan, low.SourceKind)
}

func TestSecurityScanAdapter_MissingTargetRejected(t *testing.T) {
	adapter := NewSecurityScanAdapter(RESTAdapterConfig{BaseURL: "http://unused"}, logger.NewTestLogger(t))

	_, err := adapter.Search(context.Background(), SearchTask{})

	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeAdapterBadInput, errors.CodeOf(err))
}

func TestSecurityScanAdapter_QueryUsedWhenTargetAbsent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "acme.com", r.URL.Query().Get("domain"))
		w.Write([]byte(`{"grade": "A", "findings": []}`))
	}))
	t.Cleanup(server.Close)

	adapter := NewSecurityScanAdapter(RESTAdapterConfig{
		BaseURL: server.URL,
		Timeout: time.Second,
	}, logger.NewTestLogger(t))

	results, err := adapter.Search(context.Background(), SearchTask{Query: "acme.com"})

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, results[0].SupportsThesis)
}
