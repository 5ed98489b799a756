// internal/orchestrator/plan.go
package orchestrator

import (
	"encoding/json"
	"fmt"

	"research-orchestrator/internal/adapters"
	"research-orchestrator/internal/common/validation"
	"research-orchestrator/internal/models"
)

// BuildInitialPlan produces the first collection round: one task per
// (pillar, enabled source) pairing the pillar's vocabulary with the target.
func BuildInitialPlan(target string, pillars []models.ThesisPillar, sources []models.SourceKind) []adapters.SearchTask {
	var plan []adapters.SearchTask
	for _, pillar := range pillars {
		query := fmt.Sprintf("%s %s", target, pillar.Name)
		for _, kind := range sources {
			plan = append(plan, adapters.SearchTask{
				Source:   kind,
				Query:    query,
				Target:   target,
				PillarID: pillar.ID,
			})
		}
	}
	return plan
}

// BuildMarketScanPlan produces the optional market research round used when
// a segment context is present: broad market-context queries against the
// wide-coverage sources only.
func BuildMarketScanPlan(target, segment string) []adapters.SearchTask {
	return []adapters.SearchTask{
		{
			Source: models.SourceWebSearch,
			Query:  fmt.Sprintf("%s %s market landscape competitors", target, segment),
			Target: target,
		},
		{
			Source: models.SourceInternalData,
			Query:  fmt.Sprintf("%s market analysis", target),
			Target: target,
		},
	}
}

// ValidateTasks checks a plan against the plan schema before it is handed
// to the collector.
func ValidateTasks(plan []adapters.SearchTask) error {
	raw, err := json.Marshal(map[string]interface{}{"tasks": plan})
	if err != nil {
		return err
	}

	var doc map[string]interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return err
	}
	return validation.ValidatePlan(doc)
}
