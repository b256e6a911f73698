package hazard

import (
	"strings"

	"github.com/frahmantamala/safety-hazards/internal/hazardtype"
)

type Classification struct {
	Severity   Severity `json:"severity"`
	HazardType string   `json:"hazard_type"`
}

type classifierRule struct {
	keywords   []string
	hazardType string
	severity   Severity
}

// Classifier suggests a severity and type from free text by keyword match.
// Rules are tried in order; the first hit wins.
type Classifier struct {
	rules    []classifierRule
	fallback Classification
}

func NewClassifier() *Classifier {
	return &Classifier{
		rules: []classifierRule{
			{keywords: []string{"fire", "smoke", "אש", "עשן"}, hazardType: "Fire", severity: SeverityHigh},
			{keywords: []string{"electric", "חשמל", "קצר"}, hazardType: "Electrical", severity: SeverityHigh},
			{keywords: []string{"chemical", "acid", "gas", "fume", "כימ", "חומצה", "גז", "אדים"}, hazardType: "Chemical", severity: SeverityCritical},
			{keywords: []string{"machine", "equipment", "forklift", "מכונה", "ציוד", "מלגזה"}, hazardType: "Equipment", severity: SeverityHigh},
		},
		fallback: Classification{Severity: SeverityMedium, HazardType: hazardtype.General},
	}
}

func (c *Classifier) Classify(description string) Classification {
	text := strings.ToLower(description)
	if strings.TrimSpace(text) == "" {
		return c.fallback
	}
	for _, rule := range c.rules {
		for _, kw := range rule.keywords {
			if strings.Contains(text, kw) {
				return Classification{Severity: rule.severity, HazardType: rule.hazardType}
			}
		}
	}
	return c.fallback
}
