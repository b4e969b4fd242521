// Package report merges per-task outcomes into a batch report with
// parallel-efficiency metrics.
package report

import (
	"time"

	"github.com/meridian-labs/waverider/internal/task"
)

// Failure identifies one failed task.
type Failure struct {
	TaskID string `json:"task_id"`
	Err    string `json:"error"`
}

// Performance summarizes batch timing. ParallelEfficiency is the ratio of
// sequential-equivalent time to wall-clock time; values >= 1.0 indicate a
// concurrency benefit.
type Performance struct {
	TotalExecutionTime       time.Duration `json:"total_execution_time"`
	SequentialTimeEquivalent time.Duration `json:"sequential_time_equivalent"`
	ParallelEfficiency       float64       `json:"parallel_efficiency"`
}

// Report is the merged outcome of a batch. Success means zero failures;
// partial-success callers must inspect Failures directly.
type Report struct {
	Success     bool           `json:"success"`
	Results     map[string]any `json:"results"`
	Failures    []Failure      `json:"failures"`
	Performance Performance    `json:"performance"`
}

// Aggregate combines task results into a report. wallClock is the measured
// duration of the whole batch.
func Aggregate(results []task.Result, wallClock time.Duration) Report {
	rep := Report{
		Results: make(map[string]any),
	}

	var sequential time.Duration
	for _, r := range results {
		sequential += r.ExecutionTime
		if r.Success {
			rep.Results[r.TaskID] = r.Data
		} else {
			rep.Failures = append(rep.Failures, Failure{TaskID: r.TaskID, Err: r.Err})
		}
	}

	rep.Success = len(rep.Failures) == 0
	rep.Performance = Performance{
		TotalExecutionTime:       wallClock,
		SequentialTimeEquivalent: sequential,
	}
	if wallClock > 0 {
		rep.Performance.ParallelEfficiency = float64(sequential) / float64(wallClock)
	}

	return rep
}
