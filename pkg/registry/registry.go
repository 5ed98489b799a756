// pkg/registry/registry.go
package registry

import (
	"encoding/json"
	"os"
)

// LoadCatalog reads a source catalog from a JSON file. Operators can ship an
// edited catalog next to the binary to annotate or disable sources without a
// rebuild.
func LoadCatalog(path string) (*SourceCatalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cat SourceCatalog
	err = json.Unmarshal(data, &cat)
	return &cat, err
}

// DefaultCatalog returns the built-in descriptor set for every source
// adapter the engine ships with.
func DefaultCatalog() *SourceCatalog {
	return &SourceCatalog{
		Version: "1.0.0",
		Sources: []SourceDescriptor{
			{
				Kind:        "web_search",
				DisplayName: "Web Search",
				Description: "General web search results, deduplicated by URL",
				Credibility: 65,
				ErrorCodes:  []string{"WEB_SEARCH_TIMEOUT", "WEB_SEARCH_RATE_LIMITED", "WEB_SEARCH_FAILED"},
			},
			{
				Kind:        "internal_data",
				DisplayName: "Internal Research Index",
				Description: "Curated documents from the internal Elasticsearch index",
				Credibility: 90,
				ErrorCodes:  []string{"INTERNAL_DATA_QUERY_FAILED"},
			},
			{
				Kind:        "tech_stack",
				DisplayName: "Technology Stack Scan",
				Description: "Detected technologies for the target's domain",
				Credibility: 80,
				ErrorCodes:  []string{"ADAPTER_TIMEOUT", "ADAPTER_RATE_LIMITED", "ADAPTER_FAILED"},
			},
			{
				Kind:        "security_scan",
				DisplayName: "Security Posture Scan",
				Description: "External security grade and findings for the target",
				Credibility: 85,
				ErrorCodes:  []string{"ADAPTER_TIMEOUT", "ADAPTER_RATE_LIMITED", "ADAPTER_FAILED"},
			},
			{
				Kind:        "review_aggregator",
				DisplayName: "Review Aggregator",
				Description: "Customer review summaries and individual reviews",
				Credibility: 60,
				ErrorCodes:  []string{"ADAPTER_TIMEOUT", "ADAPTER_RATE_LIMITED", "ADAPTER_FAILED"},
			},
			{
				Kind:        "financial_signals",
				DisplayName: "Financial Signals",
				Description: "Funding, revenue and sentiment signals for the target company",
				Credibility: 85,
				ErrorCodes:  []string{"ADAPTER_TIMEOUT", "ADAPTER_RATE_LIMITED", "ADAPTER_FAILED"},
			},
		},
	}
}

// Lookup returns the descriptor for a source kind, if present.
func (c *SourceCatalog) Lookup(kind string) (SourceDescriptor, bool) {
	for _, d := range c.Sources {
		if d.Kind == kind {
			return d, true
		}
	}
	return SourceDescriptor{}, false
}
