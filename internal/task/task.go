// Package task defines the unit-of-work model for batch orchestration.
package task

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// AsyncFunc is a context-aware work function. It runs under cooperative
// scheduling and should honor ctx cancellation at its suspension points.
type AsyncFunc func(ctx context.Context, tc *Context) (any, error)

// SyncFunc is a blocking work function. It runs on the bounded worker pool.
type SyncFunc func(tc *Context) (any, error)

// Work is a tagged variant holding exactly one kind of work function.
// The variant is resolved once at submission time; the executor never
// introspects the function at call time.
type Work struct {
	async AsyncFunc
	sync  SyncFunc
}

// AsyncWork wraps a context-aware function.
func AsyncWork(fn AsyncFunc) Work {
	return Work{async: fn}
}

// SyncWork wraps a blocking function.
func SyncWork(fn SyncFunc) Work {
	return Work{sync: fn}
}

// IsAsync reports whether the work runs under cooperative scheduling.
func (w Work) IsAsync() bool {
	return w.async != nil
}

// Async returns the async function, or nil.
func (w Work) Async() AsyncFunc { return w.async }

// Sync returns the sync function, or nil.
func (w Work) Sync() SyncFunc { return w.sync }

// Validate checks that exactly one variant is set.
func (w Work) Validate() error {
	if w.async == nil && w.sync == nil {
		return fmt.Errorf("no work function set")
	}
	if w.async != nil && w.sync != nil {
		return fmt.Errorf("both async and sync work set")
	}
	return nil
}

// Spec describes a single task within a batch.
type Spec struct {
	// ID must be unique within the batch.
	ID string `json:"id"`

	// Kind labels the task type for routing and telemetry.
	Kind string `json:"kind"`

	// Work is the function to execute.
	Work Work `json:"-"`

	// Args are passed to the work function via the injected Context.
	Args map[string]any `json:"args,omitempty"`

	// Priority orders tasks within a wave for telemetry (1 = highest).
	Priority int `json:"priority"`

	// Timeout bounds this task's execution (0 = executor default).
	Timeout time.Duration `json:"timeout"`

	// DependsOn lists task IDs that must complete in earlier waves.
	DependsOn []string `json:"depends_on,omitempty"`
}

// Result is the outcome of one task execution.
type Result struct {
	TaskID        string         `json:"task_id"`
	Success       bool           `json:"success"`
	Data          any            `json:"data,omitempty"`
	Err           string         `json:"error,omitempty"`
	ExecutionTime time.Duration  `json:"execution_time"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// Context carries the injected state a task may read. PreviousResults and
// Memory reflect strictly earlier waves; they are snapshots and must be
// treated as read-only.
type Context struct {
	SessionID       string
	Args            map[string]any
	PreviousResults map[string]Result
	Memory          map[string]any
}

// Dependency returns the result of a dependency task, if it ran.
func (c *Context) Dependency(id string) (Result, bool) {
	r, ok := c.PreviousResults[id]
	return r, ok
}

// ValidationError reports malformed batch submissions. It aborts the whole
// submission before any wave runs.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid batch: %s", strings.Join(e.Problems, "; "))
}

// ValidateBatch checks a batch for duplicate or empty IDs and malformed work.
// A nil return means the batch may be scheduled.
func ValidateBatch(specs []Spec) error {
	var problems []string

	seen := make(map[string]bool, len(specs))
	for i, s := range specs {
		if s.ID == "" {
			problems = append(problems, fmt.Sprintf("task at index %d has empty id", i))
			continue
		}
		if seen[s.ID] {
			problems = append(problems, fmt.Sprintf("duplicate task id %q", s.ID))
		}
		seen[s.ID] = true

		if err := s.Work.Validate(); err != nil {
			problems = append(problems, fmt.Sprintf("task %q: %v", s.ID, err))
		}
		for _, dep := range s.DependsOn {
			if dep == s.ID {
				problems = append(problems, fmt.Sprintf("task %q depends on itself", s.ID))
			}
		}
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}
