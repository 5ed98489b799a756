// internal/models/thesis.go
package models

import "strings"

// ThesisProfile maps a thesis archetype to its pillar breakdown and the
// checklist of evidence aspects a complete run must cover.
type ThesisProfile struct {
	Archetype       string
	Pillars         []ThesisPillar
	RequiredAspects []string
}

var thesisProfiles = map[string]ThesisProfile{
	"accelerate-organic-growth": {
		Archetype: "accelerate-organic-growth",
		Pillars: []ThesisPillar{
			{ID: "market", Name: "Market size and growth", Weight: 0.30,
				Keywords: []string{"market", "tam", "growth", "trajectory", "demand"}},
			{ID: "competition", Name: "Competitive position", Weight: 0.25,
				Keywords: []string{"competitor", "differentiation", "moat", "positioning"}},
			{ID: "product", Name: "Product-market fit", Weight: 0.25,
				Keywords: []string{"customer", "retention", "adoption", "satisfaction", "nps"}},
			{ID: "economics", Name: "Unit economics", Weight: 0.20,
				Keywords: []string{"revenue", "arr", "cac", "margin", "profitability"}},
		},
		RequiredAspects: []string{
			"market_size", "growth_metrics", "competitive_position",
			"customer_satisfaction", "unit_economics",
		},
	},
	"buy-and-build": {
		Archetype: "buy-and-build",
		Pillars: []ThesisPillar{
			{ID: "platform", Name: "Platform architecture", Weight: 0.30,
				Keywords: []string{"platform", "architecture", "extensibility", "modular"}},
			{ID: "api", Name: "API and developer experience", Weight: 0.25,
				Keywords: []string{"api", "sdk", "developer", "documentation", "integration"}},
			{ID: "ecosystem", Name: "Integration ecosystem", Weight: 0.25,
				Keywords: []string{"marketplace", "partner", "plugin", "ecosystem"}},
			{ID: "consolidation", Name: "Consolidation opportunity", Weight: 0.20,
				Keywords: []string{"acquisition", "m&a", "fragmented", "consolidation"}},
		},
		RequiredAspects: []string{
			"platform_quality", "api_assessment", "integration_ecosystem",
			"developer_adoption", "acquisition_potential",
		},
	},
	"digital-transformation": {
		Archetype: "digital-transformation",
		Pillars: []ThesisPillar{
			{ID: "enterprise", Name: "Enterprise readiness", Weight: 0.30,
				Keywords: []string{"enterprise", "sla", "scale", "compliance", "soc2"}},
			{ID: "security", Name: "Security and compliance", Weight: 0.25,
				Keywords: []string{"security", "encryption", "audit", "gdpr", "certification"}},
			{ID: "displacement", Name: "Legacy displacement", Weight: 0.25,
				Keywords: []string{"legacy", "migration", "implementation", "onboarding"}},
			{ID: "roi", Name: "ROI evidence", Weight: 0.20,
				Keywords: []string{"roi", "case study", "savings", "time to value"}},
		},
		RequiredAspects: []string{
			"enterprise_readiness", "security_compliance", "implementation_complexity",
			"roi_evidence", "customer_success",
		},
	},
}

// LookupThesisProfile resolves a thesis archetype, falling back to the
// organic-growth profile for unknown values. Pillar weights come back
// normalized.
func LookupThesisProfile(archetype string) ThesisProfile {
	key := strings.ToLower(strings.TrimSpace(archetype))
	profile, ok := thesisProfiles[key]
	if !ok {
		profile = thesisProfiles["accelerate-organic-growth"]
	}
	profile.Pillars = NormalizePillarWeights(profile.Pillars)
	return profile
}

// ThesisArchetypes lists the known archetype keys.
func ThesisArchetypes() []string {
	return []string{"accelerate-organic-growth", "buy-and-build", "digital-transformation"}
}
