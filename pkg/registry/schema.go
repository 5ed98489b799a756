// pkg/registry/schema.go
package registry

// SourceCatalog describes the evidence sources a deployment exposes.
type SourceCatalog struct {
	Version     string             `json:"version"`
	LastUpdated string             `json:"lastUpdated,omitempty"`
	Sources     []SourceDescriptor `json:"sources"`
}

// SourceDescriptor is the operator-facing description of one source adapter.
type SourceDescriptor struct {
	Kind        string   `json:"kind"`
	DisplayName string   `json:"displayName"`
	Description string   `json:"description"`
	Credibility float64  `json:"credibility"`
	ErrorCodes  []string `json:"errorCodes,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}
