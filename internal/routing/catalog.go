package routing

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultProfiles returns the built-in compute profile catalog: a
// high-capability tier, a balanced workhorse, and a cheap fast tier.
func DefaultProfiles() []Profile {
	return []Profile{
		{
			Name:               "atlas-pro",
			CostPerInputToken:  3e-06,
			CostPerOutputToken: 1.5e-05,
			MaxContext:         200_000,
			ReasoningStrength:  0.95,
			SpeedRating:        0.45,
			AccuracyRating:     0.95,
			SuitableUseCases:   []string{"strategy", "financial modeling", "board reporting"},
		},
		{
			Name:               "harbor-standard",
			CostPerInputToken:  8e-07,
			CostPerOutputToken: 4e-06,
			MaxContext:         128_000,
			ReasoningStrength:  0.75,
			SpeedRating:        0.70,
			AccuracyRating:     0.85,
			SuitableUseCases:   []string{"report generation", "analysis", "summaries"},
		},
		{
			Name:               "swift-lite",
			CostPerInputToken:  1e-07,
			CostPerOutputToken: 4e-07,
			MaxContext:         32_000,
			ReasoningStrength:  0.45,
			SpeedRating:        0.95,
			AccuracyRating:     0.70,
			SuitableUseCases:   []string{"classification", "extraction", "formatting"},
		},
	}
}

type profileCatalog struct {
	Profiles []Profile `yaml:"profiles"`
}

// LoadProfiles reads a compute profile catalog from a YAML file.
func LoadProfiles(path string) ([]Profile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profile catalog: %w", err)
	}

	var catalog profileCatalog
	if err := yaml.Unmarshal(raw, &catalog); err != nil {
		return nil, fmt.Errorf("parse profile catalog: %w", err)
	}
	if len(catalog.Profiles) == 0 {
		return nil, fmt.Errorf("profile catalog %s is empty", path)
	}

	for _, p := range catalog.Profiles {
		if err := validateProfile(p); err != nil {
			return nil, fmt.Errorf("profile %q: %w", p.Name, err)
		}
	}
	return catalog.Profiles, nil
}

func validateProfile(p Profile) error {
	if p.Name == "" {
		return fmt.Errorf("missing name")
	}
	for label, rating := range map[string]float64{
		"reasoning_strength": p.ReasoningStrength,
		"speed_rating":       p.SpeedRating,
		"accuracy_rating":    p.AccuracyRating,
	} {
		if rating < 0 || rating > 1 {
			return fmt.Errorf("%s %v out of range [0,1]", label, rating)
		}
	}
	if p.CostPerInputToken < 0 || p.CostPerOutputToken < 0 {
		return fmt.Errorf("negative token cost")
	}
	return nil
}
