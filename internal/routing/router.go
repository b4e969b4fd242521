package routing

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
)

// Weights configures the additive scoring terms.
type Weights struct {
	Reasoning     float64 `yaml:"reasoning"`
	Accuracy      float64 `yaml:"accuracy"`
	Speed         float64 `yaml:"speed"`
	CostPenalty   float64 `yaml:"cost_penalty"`
	AccuracyBonus float64 `yaml:"accuracy_bonus"`
}

// DefaultWeights returns the default scoring weights. CostPenalty scales
// the blended per-million price, so a $50/M profile loses ~0.5 points when
// cost sensitivity is high.
func DefaultWeights() Weights {
	return Weights{
		Reasoning:     1.0,
		Accuracy:      1.0,
		Speed:         1.0,
		CostPenalty:   0.01,
		AccuracyBonus: 0.2,
	}
}

// Config configures the router.
type Config struct {
	// Classifier derives complexity profiles (default KeywordClassifier).
	Classifier Classifier

	// Weights for scoring (zero value uses defaults).
	Weights Weights

	// RevenueOverrideThreshold forces the highest-capability profile when
	// the declared revenue impact meets it (default 10000).
	RevenueOverrideThreshold float64

	// DowngradeUtilizationPct triggers a one-tier cost downgrade of the
	// most expensive profile at or above this spend percentage (default 90).
	DowngradeUtilizationPct float64

	// EstimatedOutputRatio estimates output tokens as a multiple of input
	// tokens for cost estimates (default 2).
	EstimatedOutputRatio float64

	// Logger for decisions.
	Logger *slog.Logger
}

// Router scores compute profiles per task and selects one, consulting the
// budget governor. Stateless per call apart from that consultation.
type Router struct {
	mu         sync.RWMutex
	profiles   []Profile
	classifier Classifier
	weights    Weights
	cfg        Config
	budget     BudgetView
	logger     *slog.Logger

	routeCount int64
}

// NewRouter creates a router over the given profiles.
func NewRouter(profiles []Profile, budget BudgetView, cfg Config) *Router {
	if cfg.Classifier == nil {
		cfg.Classifier = NewKeywordClassifier(DefaultKeywordSets())
	}
	if cfg.RevenueOverrideThreshold <= 0 {
		cfg.RevenueOverrideThreshold = 10000
	}
	if cfg.DowngradeUtilizationPct <= 0 {
		cfg.DowngradeUtilizationPct = 90
	}
	if cfg.EstimatedOutputRatio <= 0 {
		cfg.EstimatedOutputRatio = 2
	}
	weights := cfg.Weights
	if weights == (Weights{}) {
		weights = DefaultWeights()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Router{
		profiles:   append([]Profile(nil), profiles...),
		classifier: cfg.Classifier,
		weights:    weights,
		cfg:        cfg,
		budget:     budget,
		logger:     logger,
	}
}

// Route selects a compute profile for a task description. The returned
// decision is always populated, even when the budget is exhausted.
func (r *Router) Route(description string, rctx map[string]any) *Decision {
	r.mu.Lock()
	r.routeCount++
	r.mu.Unlock()

	r.mu.RLock()
	profiles := append([]Profile(nil), r.profiles...)
	weights := r.weights
	r.mu.RUnlock()

	complexity := r.classifier.Classify(description)
	complexity.CostSensitivity = r.costSensitivity()

	// Score every profile; ties break on name for determinism.
	best := profiles[0]
	bestScore := r.score(best, complexity, weights)
	for _, p := range profiles[1:] {
		s := r.score(p, complexity, weights)
		if s > bestScore || (s == bestScore && p.Name < best.Name) {
			best, bestScore = p, s
		}
	}

	decision := &Decision{
		Profile:    best,
		Complexity: complexity,
	}

	r.applyOverrides(decision, profiles, rctx)

	inputTokens := estimateTokens(description)
	outputTokens := int(float64(inputTokens) * r.cfg.EstimatedOutputRatio)
	decision.EstimatedCost = float64(inputTokens)*decision.Profile.CostPerInputToken +
		float64(outputTokens)*decision.Profile.CostPerOutputToken

	decision.Rationale = rationale(complexity, decision)
	decision.Budget = BudgetStatus{
		CanProceed:     r.budget.CanProceed(),
		UtilizationPct: r.budget.UtilizationPct(),
		Remaining:      r.budget.Remaining(),
	}

	r.logger.Debug("route decision",
		"profile", decision.Profile.Name,
		"reasoning_depth", complexity.ReasoningDepth,
		"cost_sensitivity", complexity.CostSensitivity,
		"downgraded", decision.Downgraded,
		"estimated_cost", decision.EstimatedCost)

	return decision
}

// RecordUsage computes the actual cost of a completed call, feeds it back
// into the governor, and returns it.
func (r *Router) RecordUsage(p Profile, inputTokens, outputTokens int) float64 {
	cost := float64(inputTokens)*p.CostPerInputToken + float64(outputTokens)*p.CostPerOutputToken
	r.budget.RecordSpend(p.Name, cost, map[string]any{
		"input_tokens":  inputTokens,
		"output_tokens": outputTokens,
	})
	return cost
}

// AddProfile adds or replaces a profile.
func (r *Router) AddProfile(p Profile) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, existing := range r.profiles {
		if existing.Name == p.Name {
			r.profiles[i] = p
			return
		}
	}
	r.profiles = append(r.profiles, p)
}

// score computes the additive score for one profile. A profile below the
// task's required accuracy keeps half its score rather than being excluded.
func (r *Router) score(p Profile, c ComplexityProfile, w Weights) float64 {
	score := p.ReasoningStrength * c.ReasoningDepth.weight() * w.Reasoning
	score += p.AccuracyRating * (c.DomainComplexity.weight() + c.BusinessImpact.weight()) / 2 * w.Accuracy
	score += p.SpeedRating * c.TimeSensitivity.weight() * w.Speed

	if c.CostSensitivity == CostHigh {
		score -= p.CostIndex() * w.CostPenalty
	}
	if c.CostSensitivity == CostLow {
		score += p.AccuracyRating * w.AccuracyBonus
	}

	if p.AccuracyRating < c.RequiredAccuracy {
		score *= 0.5
	}
	return score
}

// applyOverrides applies the deterministic post-scoring rules in order:
// executive role, revenue impact, budget-pressure downgrade.
func (r *Router) applyOverrides(d *Decision, profiles []Profile, rctx map[string]any) {
	if role, ok := rctx["role"].(string); ok && isExecutiveRole(role) {
		d.Profile = mostCapable(profiles)
		d.OverrideReason = "executive role declared"
	}

	if revenue, ok := asFloat(rctx["revenue_impact"]); ok && revenue >= r.cfg.RevenueOverrideThreshold {
		d.Profile = mostCapable(profiles)
		d.OverrideReason = fmt.Sprintf("revenue impact %.0f above threshold", revenue)
	}

	if r.budget.UtilizationPct() >= r.cfg.DowngradeUtilizationPct &&
		d.Profile.Name == mostExpensive(profiles).Name {
		if cheaper, ok := nextCheaper(profiles, d.Profile); ok {
			r.logger.Warn("budget pressure downgrade",
				"from", d.Profile.Name, "to", cheaper.Name,
				"utilization_pct", r.budget.UtilizationPct())
			d.Profile = cheaper
			d.Downgraded = true
		}
	}
}

// costSensitivity maps governor headroom onto the cost axis: over 80%
// spent is high, under 20% is low.
func (r *Router) costSensitivity() CostSensitivity {
	util := r.budget.UtilizationPct()
	switch {
	case util > 80:
		return CostHigh
	case util < 20:
		return CostLow
	default:
		return CostMedium
	}
}

func rationale(c ComplexityProfile, d *Decision) string {
	var clauses []string

	if c.ReasoningDepth != DepthSimple {
		clauses = append(clauses, string(c.ReasoningDepth)+" reasoning")
	}
	if c.DomainComplexity != DomainBasic {
		clauses = append(clauses, string(c.DomainComplexity)+" domain")
	}
	if c.BusinessImpact != ImpactLow {
		clauses = append(clauses, string(c.BusinessImpact)+" business impact")
	}
	if c.TimeSensitivity == TimeUrgent {
		clauses = append(clauses, "time sensitive")
	}
	if c.CostSensitivity != CostMedium {
		clauses = append(clauses, string(c.CostSensitivity)+" cost sensitivity")
	}
	if d.OverrideReason != "" {
		clauses = append(clauses, "override: "+d.OverrideReason)
	}
	if d.Downgraded {
		clauses = append(clauses, "downgraded under budget pressure")
	}

	if len(clauses) == 0 {
		return "baseline task; best overall score"
	}
	return strings.Join(clauses, "; ")
}

var executiveMarkers = []string{"executive", "chief", "ceo", "cfo", "coo", "founder", "vp", "strategic"}

func isExecutiveRole(role string) bool {
	lower := strings.ToLower(role)
	for _, marker := range executiveMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

func mostCapable(profiles []Profile) Profile {
	best := profiles[0]
	for _, p := range profiles[1:] {
		if p.CapabilityScore() > best.CapabilityScore() {
			best = p
		}
	}
	return best
}

func mostExpensive(profiles []Profile) Profile {
	best := profiles[0]
	for _, p := range profiles[1:] {
		if p.CostIndex() > best.CostIndex() {
			best = p
		}
	}
	return best
}

// nextCheaper returns the most expensive profile strictly cheaper than p.
func nextCheaper(profiles []Profile, p Profile) (Profile, bool) {
	sorted := append([]Profile(nil), profiles...)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].CostIndex() > sorted[j].CostIndex()
	})
	for _, candidate := range sorted {
		if candidate.CostIndex() < p.CostIndex() {
			return candidate, true
		}
	}
	return Profile{}, false
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func estimateTokens(text string) int {
	return len(text) / 4
}
