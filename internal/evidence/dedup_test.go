// internal/evidence/dedup_test.go
package evidence

import (
	"strings"
	"testing"

	"research-orchestrator/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

func urlEvidence(url, content string) models.Evidence {
	return models.NewEvidence(models.SourceWebSearch, content, url, 0.8)
}

func anonEvidence(kind models.SourceKind, content string) models.Evidence {
	return models.NewEvidence(kind, content, "", 0.8)
}

// ==========================
// Dedup Key Tests
// ==========================

func TestDedupKey_PrefersOriginURL(t *testing.T) {
	ev := urlEvidence("https://example.com/report", "some content")
	assert.Equal(t, "https://example.com/report", DedupKey(ev))
}

func TestDedupKey_HashesWhenURLAbsent(t *testing.T) {
	a := anonEvidence(models.SourceWebSearch, "identical content")
	b := anonEvidence(models.SourceWebSearch, "identical content")
	c := anonEvidence(models.SourceTechStack, "identical content")

	assert.Equal(t, DedupKey(a), DedupKey(b))
	assert.NotEqual(t, DedupKey(a), DedupKey(c), "source kind participates in the hash")
}

func TestDedupKey_OnlyFirst100CharsParticipate(t *testing.T) {
	prefix := strings.Repeat("x", 100)
	a := anonEvidence(models.SourceWebSearch, prefix+" tail one")
	b := anonEvidence(models.SourceWebSearch, prefix+" different tail")

	assert.Equal(t, DedupKey(a), DedupKey(b))
}

func TestDedupKey_BlankURLFallsBackToHash(t *testing.T) {
	ev := urlEvidence("   ", "content here")
	assert.NotEqual(t, "   ", DedupKey(ev))
	assert.Len(t, DedupKey(ev), 64)
}

// ==========================
// Merge Tests
// ==========================

func TestMerge_DistinctKeysUnion(t *testing.T) {
	set := Merge(nil, []models.Evidence{
		urlEvidence("https://a.example.com", "a"),
		urlEvidence("https://b.example.com", "b"),
	})
	set = Merge(set, []models.Evidence{
		urlEvidence("https://c.example.com", "c"),
	})

	assert.Len(t, set, 3)
}

func TestMerge_CollisionKeepsEarlierContent(t *testing.T) {
	first := urlEvidence("https://example.com/page", "original content")
	second := urlEvidence("https://example.com/page", "later content")

	set := Merge(nil, []models.Evidence{first})
	set = Merge(set, []models.Evidence{second})

	require.Len(t, set, 1)
	kept := set["https://example.com/page"]
	assert.Equal(t, "original content", kept.Content)
	assert.Equal(t, first.ID, kept.ID)
}

func TestMerge_CollisionMergesMetadataLaterWins(t *testing.T) {
	first := urlEvidence("https://example.com/page", "content")
	first.Metadata = map[string]interface{}{"rank": 1, "fetchedBy": "primary"}

	second := urlEvidence("https://example.com/page", "other content")
	second.Metadata = map[string]interface{}{"rank": 2, "lang": "en"}

	set := Merge(nil, []models.Evidence{first, second})

	require.Len(t, set, 1)
	kept := set["https://example.com/page"]
	assert.Equal(t, 2, kept.Metadata["rank"])
	assert.Equal(t, "primary", kept.Metadata["fetchedBy"])
	assert.Equal(t, "en", kept.Metadata["lang"])
}

func TestMerge_Idempotent(t *testing.T) {
	batch := []models.Evidence{
		urlEvidence("https://a.example.com", "a"),
		anonEvidence(models.SourceReviews, "review text"),
		anonEvidence(models.SourceReviews, "review text"),
	}

	once := Merge(nil, batch)
	twice := Merge(Merge(nil, batch), batch)

	assert.Equal(t, once, twice)
}

func TestMerge_OrderIndependentForDistinctKeys(t *testing.T) {
	a := urlEvidence("https://a.example.com", "a")
	b := urlEvidence("https://b.example.com", "b")

	forward := Merge(nil, []models.Evidence{a, b})
	reversed := Merge(nil, []models.Evidence{b, a})

	assert.Equal(t, forward, reversed)
}
