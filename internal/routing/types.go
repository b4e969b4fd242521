// Package routing scores compute profiles against task complexity and
// selects which backend executes a unit of work under budget pressure.
package routing

// ReasoningDepth buckets how much multi-step reasoning a task needs.
type ReasoningDepth string

const (
	DepthSimple   ReasoningDepth = "simple"
	DepthModerate ReasoningDepth = "moderate"
	DepthComplex  ReasoningDepth = "complex"
)

func (d ReasoningDepth) weight() float64 {
	switch d {
	case DepthComplex:
		return 1.5
	case DepthModerate:
		return 1.0
	default:
		return 0.5
	}
}

// DomainComplexity buckets the business-domain sophistication of a task.
type DomainComplexity string

const (
	DomainBasic      DomainComplexity = "basic"
	DomainBusiness   DomainComplexity = "business"
	DomainEnterprise DomainComplexity = "enterprise"
)

func (d DomainComplexity) weight() float64 {
	switch d {
	case DomainEnterprise:
		return 1.5
	case DomainBusiness:
		return 1.0
	default:
		return 0.5
	}
}

// TimeSensitivity marks whether a task is deadline-driven.
type TimeSensitivity string

const (
	TimeNormal TimeSensitivity = "normal"
	TimeUrgent TimeSensitivity = "urgent"
)

func (t TimeSensitivity) weight() float64 {
	if t == TimeUrgent {
		return 1.5
	}
	return 0.5
}

// BusinessImpact buckets the stakes of getting the task right.
type BusinessImpact string

const (
	ImpactLow    BusinessImpact = "low"
	ImpactMedium BusinessImpact = "medium"
	ImpactHigh   BusinessImpact = "high"
)

func (b BusinessImpact) weight() float64 {
	switch b {
	case ImpactHigh:
		return 1.5
	case ImpactMedium:
		return 1.0
	default:
		return 0.5
	}
}

// CostSensitivity is derived from budget headroom, not from the task text.
type CostSensitivity string

const (
	CostLow    CostSensitivity = "low"
	CostMedium CostSensitivity = "medium"
	CostHigh   CostSensitivity = "high"
)

// Profile is a named cost/capability vector describing one backend a task
// can be executed against. Ratings are in [0,1]; token costs are USD per
// token.
type Profile struct {
	Name               string   `json:"name" yaml:"name"`
	CostPerInputToken  float64  `json:"cost_per_input_token" yaml:"cost_per_input_token"`
	CostPerOutputToken float64  `json:"cost_per_output_token" yaml:"cost_per_output_token"`
	MaxContext         int      `json:"max_context" yaml:"max_context"`
	ReasoningStrength  float64  `json:"reasoning_strength" yaml:"reasoning_strength"`
	SpeedRating        float64  `json:"speed_rating" yaml:"speed_rating"`
	AccuracyRating     float64  `json:"accuracy_rating" yaml:"accuracy_rating"`
	SuitableUseCases   []string `json:"suitable_use_cases,omitempty" yaml:"suitable_use_cases,omitempty"`
}

// CapabilityScore orders profiles by raw capability.
func (p Profile) CapabilityScore() float64 {
	return p.ReasoningStrength + p.AccuracyRating
}

// CostIndex is a blended per-million-token price used for cost ordering
// and penalties. Output tokens are weighted 3x: generation-heavy workloads
// dominate spend.
func (p Profile) CostIndex() float64 {
	return (p.CostPerInputToken + 3*p.CostPerOutputToken) * 1_000_000
}

// ComplexityProfile is the extracted feature vector for one task.
type ComplexityProfile struct {
	ContentLength    int              `json:"content_length"`
	ReasoningDepth   ReasoningDepth   `json:"reasoning_depth"`
	DomainComplexity DomainComplexity `json:"domain_complexity"`
	TimeSensitivity  TimeSensitivity  `json:"time_sensitivity"`
	BusinessImpact   BusinessImpact   `json:"business_impact"`
	RequiredAccuracy float64          `json:"required_accuracy"`
	CostSensitivity  CostSensitivity  `json:"cost_sensitivity"`
}

// BudgetStatus snapshots governor state at decision time.
type BudgetStatus struct {
	CanProceed     bool    `json:"can_proceed"`
	UtilizationPct float64 `json:"utilization_pct"`
	Remaining      float64 `json:"remaining"`
}

// Decision is the output of one routing call. It is always returned, even
// under budget exhaustion; CanProceed and Downgraded tell the caller how
// to degrade.
type Decision struct {
	Profile        Profile           `json:"profile"`
	Complexity     ComplexityProfile `json:"complexity_profile"`
	Rationale      string            `json:"rationale"`
	EstimatedCost  float64           `json:"estimated_cost"`
	Budget         BudgetStatus      `json:"budget_status"`
	Downgraded     bool              `json:"downgraded,omitempty"`
	OverrideReason string            `json:"override_reason,omitempty"`
}

// BudgetView is the governor surface the router consults and feeds spend
// back into.
type BudgetView interface {
	UtilizationPct() float64
	Remaining() float64
	CanProceed() bool
	RecordSpend(service string, amount float64, metadata map[string]any)
}
