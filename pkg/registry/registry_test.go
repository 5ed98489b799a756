// pkg/registry/registry_test.go
package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalog_CoversAllSourceKinds(t *testing.T) {
	cat := DefaultCatalog()

	kinds := []string{
		"web_search", "internal_data", "tech_stack",
		"security_scan", "review_aggregator", "financial_signals",
	}
	for _, kind := range kinds {
		d, ok := cat.Lookup(kind)
		assert.True(t, ok, "missing descriptor for %s", kind)
		assert.NotEmpty(t, d.DisplayName)
		assert.Greater(t, d.Credibility, 0.0)
	}
}

func TestLookup_UnknownKind(t *testing.T) {
	_, ok := DefaultCatalog().Lookup("carrier_pigeon")
	assert.False(t, ok)
}

func TestLoadCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json")
	content := `{
		"version": "2.0.0",
		"sources": [
			{"kind": "web_search", "displayName": "Search", "description": "d", "credibility": 65}
		]
	}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cat, err := LoadCatalog(path)
	require.NoError(t, err)
	assert.Equal(t, "2.0.0", cat.Version)
	require.Len(t, cat.Sources, 1)
	assert.Equal(t, "web_search", cat.Sources[0].Kind)
}

func TestLoadCatalog_MissingFile(t *testing.T) {
	_, err := LoadCatalog(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}
