// internal/common/validation/plan.go
package validation

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// planSchema describes the shape of a research plan handed to the collector:
// a non-empty list of tasks, each naming a known source kind and a query.
var planSchema = map[string]interface{}{
	"type": "object",
	"properties": map[string]interface{}{
		"tasks": map[string]interface{}{
			"type":     "array",
			"minItems": 1,
			"items": map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"source": map[string]interface{}{
						"type": "string",
						"enum": []string{
							"web_search", "internal_data", "tech_stack",
							"security_scan", "review_aggregator", "financial_signals",
						},
					},
					"query": map[string]interface{}{
						"type":      "string",
						"minLength": 1,
					},
					"pillarId": map[string]interface{}{
						"type": "string",
					},
					"options": map[string]interface{}{
						"type": "object",
					},
				},
				"required": []string{"source", "query"},
			},
		},
	},
	"required": []string{"tasks"},
}

// ValidatePlan checks a research plan document against the plan schema.
// The document is the plan serialized to generic JSON types.
func ValidatePlan(doc map[string]interface{}) error {
	schemaLoader := gojsonschema.NewGoLoader(planSchema)
	documentLoader := gojsonschema.NewGoLoader(doc)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("validation error: %w", err)
	}

	if !result.Valid() {
		errs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			errs[i] = desc.String()
		}
		return fmt.Errorf("plan validation failed: %s", strings.Join(errs, "; "))
	}

	return nil
}
