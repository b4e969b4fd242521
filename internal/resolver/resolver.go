// Package resolver orders a task batch into dependency waves. Every
// dependency of a task is placed in a strictly earlier wave than the task
// itself. Cycles degrade to a forced final wave rather than failing the
// batch; the degradation is surfaced as a structured diagnostic.
package resolver

import (
	"fmt"
	"sort"

	"github.com/meridian-labs/waverider/internal/task"
)

// Diagnostic kinds recorded on a plan.
const (
	DiagMissingDependency = "missing_dependency"
	DiagDependencyCycle   = "dependency_cycle"
)

// Diagnostic describes a scheduling anomaly that did not fail the batch.
type Diagnostic struct {
	Kind   string `json:"kind"`
	TaskID string `json:"task_id"`
	Detail string `json:"detail"`
}

// Plan is an ordered set of waves plus any diagnostics raised while
// computing them.
type Plan struct {
	Waves       [][]task.Spec `json:"waves"`
	Diagnostics []Diagnostic  `json:"diagnostics,omitempty"`
}

// Degraded reports whether the plan fell back to force-scheduling tasks
// whose dependencies could not be ordered.
func (p *Plan) Degraded() bool {
	for _, d := range p.Diagnostics {
		if d.Kind == DiagDependencyCycle {
			return true
		}
	}
	return false
}

// WaveIDs returns the task IDs per wave, for reports and logging.
func (p *Plan) WaveIDs() [][]string {
	ids := make([][]string, len(p.Waves))
	for i, wave := range p.Waves {
		ids[i] = make([]string, len(wave))
		for j, s := range wave {
			ids[i][j] = s.ID
		}
	}
	return ids
}

// Resolve computes execution waves for a batch. Dependencies referencing
// unknown IDs are treated as already satisfied and reported as diagnostics.
// If at any point no task becomes ready (a cycle), all remaining tasks are
// force-scheduled into one final wave.
func Resolve(specs []task.Spec) *Plan {
	plan := &Plan{}
	if len(specs) == 0 {
		return plan
	}

	known := make(map[string]bool, len(specs))
	for _, s := range specs {
		known[s.ID] = true
	}

	// Effective dependencies: only edges to tasks in this batch gate
	// scheduling. Unknown targets are satisfied by definition.
	deps := make(map[string][]string, len(specs))
	for _, s := range specs {
		for _, dep := range s.DependsOn {
			if !known[dep] {
				plan.Diagnostics = append(plan.Diagnostics, Diagnostic{
					Kind:   DiagMissingDependency,
					TaskID: s.ID,
					Detail: fmt.Sprintf("dependency %q not in batch; treated as satisfied", dep),
				})
				continue
			}
			deps[s.ID] = append(deps[s.ID], dep)
		}
	}

	scheduled := make(map[string]bool, len(specs))
	remaining := specs

	for len(remaining) > 0 {
		var wave, next []task.Spec
		for _, s := range remaining {
			if ready(deps[s.ID], scheduled) {
				wave = append(wave, s)
			} else {
				next = append(next, s)
			}
		}

		if len(wave) == 0 {
			// Cycle or never-satisfiable remainder: force everything left
			// into one final wave so the batch still drains.
			for _, s := range next {
				plan.Diagnostics = append(plan.Diagnostics, Diagnostic{
					Kind:   DiagDependencyCycle,
					TaskID: s.ID,
					Detail: "unresolvable dependencies; force-scheduled into final wave",
				})
			}
			sortWave(next)
			plan.Waves = append(plan.Waves, next)
			return plan
		}

		sortWave(wave)
		for _, s := range wave {
			scheduled[s.ID] = true
		}
		plan.Waves = append(plan.Waves, wave)
		remaining = next
	}

	return plan
}

func ready(deps []string, scheduled map[string]bool) bool {
	for _, dep := range deps {
		if !scheduled[dep] {
			return false
		}
	}
	return true
}

// sortWave orders a wave by ascending priority then ID. The order is for
// deterministic telemetry only; it does not gate concurrent execution.
func sortWave(wave []task.Spec) {
	sort.Slice(wave, func(i, j int) bool {
		if wave[i].Priority != wave[j].Priority {
			return wave[i].Priority < wave[j].Priority
		}
		return wave[i].ID < wave[j].ID
	})
}
