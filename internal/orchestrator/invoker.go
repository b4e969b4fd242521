package orchestrator

import (
	"context"
	"fmt"

	"github.com/meridian-labs/waverider/internal/routing"
	"github.com/meridian-labs/waverider/internal/task"
)

// InvokeResult is the shape the orchestrator depends on from a work unit
// invoker; invocation internals live with the caller.
type InvokeResult struct {
	Text         string  `json:"text"`
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	Cost         float64 `json:"cost"`
}

// Invoker executes a prompt against a chosen compute profile.
type Invoker interface {
	Invoke(ctx context.Context, prompt string, profile routing.Profile, args map[string]any) (*InvokeResult, error)
}

// GenerationTask builds a task spec whose work routes the prompt to a
// compute profile, checks budget headroom, invokes, and feeds actual cost
// back into the governor. When the budget is exhausted the task fails with
// an explicit marker instead of spending; dependents see the failure in
// their injected previous results and decide locally how to degrade.
func (o *Orchestrator) GenerationTask(id, prompt string, invoker Invoker, opts ...func(*task.Spec)) task.Spec {
	spec := task.Spec{
		ID:       id,
		Kind:     "generation",
		Priority: 3,
	}

	spec.Work = task.AsyncWork(func(ctx context.Context, tc *task.Context) (any, error) {
		decision, err := o.Route(prompt, routingContext(tc.Args))
		if err != nil {
			return nil, err
		}
		if !decision.Budget.CanProceed {
			return nil, fmt.Errorf("budget exhausted: %.1f%% of ceiling spent, skipping paid work",
				decision.Budget.UtilizationPct)
		}

		res, err := invoker.Invoke(ctx, prompt, decision.Profile, tc.Args)
		if err != nil {
			return nil, fmt.Errorf("invoke on %s: %w", decision.Profile.Name, err)
		}

		actual := o.router.RecordUsage(decision.Profile, res.InputTokens, res.OutputTokens)

		return map[string]any{
			"text":           res.Text,
			"profile":        decision.Profile.Name,
			"rationale":      decision.Rationale,
			"estimated_cost": decision.EstimatedCost,
			"actual_cost":    actual,
		}, nil
	})

	for _, opt := range opts {
		opt(&spec)
	}
	return spec
}

// WithDependencies sets a generation task's dependencies.
func WithDependencies(ids ...string) func(*task.Spec) {
	return func(s *task.Spec) { s.DependsOn = ids }
}

// WithArgs sets a generation task's args, forwarded to the invoker and the
// routing context.
func WithArgs(args map[string]any) func(*task.Spec) {
	return func(s *task.Spec) { s.Args = args }
}

// routingContext extracts routing-relevant keys from task args.
func routingContext(args map[string]any) map[string]any {
	rctx := make(map[string]any, 2)
	if args == nil {
		return rctx
	}
	if role, ok := args["role"]; ok {
		rctx["role"] = role
	}
	if revenue, ok := args["revenue_impact"]; ok {
		rctx["revenue_impact"] = revenue
	}
	return rctx
}
