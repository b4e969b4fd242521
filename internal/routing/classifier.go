package routing

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Classifier derives a task complexity profile from a description string.
// Implementations are pluggable so the keyword heuristic can later be
// replaced by a learned model without touching selection or overrides.
type Classifier interface {
	Classify(description string) ComplexityProfile
}

// KeywordSets holds the per-axis keyword lists as data. The lists are
// configuration, not control flow.
type KeywordSets struct {
	Reasoning []string `yaml:"reasoning"`
	Domain    []string `yaml:"domain"`
	Impact    []string `yaml:"impact"`
	Urgency   []string `yaml:"urgency"`
}

// DefaultKeywordSets returns the built-in keyword lists.
func DefaultKeywordSets() KeywordSets {
	return KeywordSets{
		Reasoning: []string{
			"analyze", "evaluate", "strategy", "strategic", "optimize",
			"forecast", "model", "compare", "assess", "recommend",
			"prioritize", "tradeoff", "scenario", "projection", "derive",
		},
		Domain: []string{
			"revenue", "customer", "churn", "pipeline", "margin",
			"compliance", "enterprise", "acquisition", "stakeholder",
			"pricing", "retention", "contract", "procurement", "valuation",
		},
		Impact: []string{
			"critical", "board", "launch", "deadline", "executive",
			"quarterly", "investor", "audit", "escalation",
		},
		Urgency: []string{
			"urgent", "asap", "immediately", "today", "right away", "now",
		},
	}
}

// LoadKeywordSets reads keyword lists from a YAML file. Missing axes fall
// back to the defaults.
func LoadKeywordSets(path string) (KeywordSets, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return KeywordSets{}, fmt.Errorf("read keyword sets: %w", err)
	}

	sets := DefaultKeywordSets()
	if err := yaml.Unmarshal(raw, &sets); err != nil {
		return KeywordSets{}, fmt.Errorf("parse keyword sets: %w", err)
	}
	return sets, nil
}

// KeywordClassifier buckets each axis into ordinal tiers by counting
// distinct keyword hits: >=5 hits selects the top tier, >=2 the middle
// tier, anything less the lowest.
type KeywordClassifier struct {
	sets KeywordSets
}

// NewKeywordClassifier creates a classifier over the given keyword sets.
func NewKeywordClassifier(sets KeywordSets) *KeywordClassifier {
	return &KeywordClassifier{sets: sets}
}

// Classify derives the complexity profile for a description. Cost
// sensitivity is left at its zero value; the router fills it from budget
// headroom.
func (c *KeywordClassifier) Classify(description string) ComplexityProfile {
	lower := strings.ToLower(description)

	reasoningHits := countHits(lower, c.sets.Reasoning)
	domainHits := countHits(lower, c.sets.Domain)
	impactHits := countHits(lower, c.sets.Impact)

	profile := ComplexityProfile{
		ContentLength:   len(description),
		ReasoningDepth:  tier(reasoningHits, DepthComplex, DepthModerate, DepthSimple),
		TimeSensitivity: TimeNormal,
	}
	profile.DomainComplexity = tier(domainHits, DomainEnterprise, DomainBusiness, DomainBasic)
	profile.BusinessImpact = tier(impactHits, ImpactHigh, ImpactMedium, ImpactLow)

	if countHits(lower, c.sets.Urgency) > 0 {
		profile.TimeSensitivity = TimeUrgent
	}

	switch profile.ReasoningDepth {
	case DepthComplex:
		profile.RequiredAccuracy = 0.9
	case DepthModerate:
		profile.RequiredAccuracy = 0.8
	default:
		profile.RequiredAccuracy = 0.7
	}

	return profile
}

// countHits counts distinct keywords present in the text.
func countHits(lower string, keywords []string) int {
	hits := 0
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			hits++
		}
	}
	return hits
}

func tier[T any](hits int, top, middle, low T) T {
	switch {
	case hits >= 5:
		return top
	case hits >= 2:
		return middle
	default:
		return low
	}
}
