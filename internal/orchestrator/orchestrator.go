// Package orchestrator wires the resolver, executor, router, governor, and
// session memory into one explicit object. There is no global accessor;
// callers construct an Orchestrator and pass it where needed.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/meridian-labs/waverider/internal/budget"
	"github.com/meridian-labs/waverider/internal/executor"
	"github.com/meridian-labs/waverider/internal/memory"
	"github.com/meridian-labs/waverider/internal/report"
	"github.com/meridian-labs/waverider/internal/resolver"
	"github.com/meridian-labs/waverider/internal/routing"
	"github.com/meridian-labs/waverider/internal/task"
)

// Config configures an Orchestrator. Zero-value fields get working
// defaults so tests can construct one piecemeal.
type Config struct {
	// Executor runs waves (default executor.DefaultConfig()).
	Executor *executor.WaveExecutor

	// Router selects compute profiles. Optional; Route fails without it.
	Router *routing.Router

	// Governor gatekeeps paid work. Optional.
	Governor *budget.Governor

	// Store backs session memory (default in-process MapStore).
	Store memory.Store

	// Logger for batch lifecycle events.
	Logger *slog.Logger
}

// Orchestrator is the library surface: SubmitBatch and Route.
type Orchestrator struct {
	exec     *executor.WaveExecutor
	router   *routing.Router
	governor *budget.Governor
	store    memory.Store
	logger   *slog.Logger
}

// New creates an orchestrator from explicit dependencies.
func New(cfg Config) *Orchestrator {
	if cfg.Executor == nil {
		cfg.Executor = executor.New(executor.DefaultConfig())
	}
	if cfg.Store == nil {
		cfg.Store = memory.NewMapStore()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Orchestrator{
		exec:     cfg.Executor,
		router:   cfg.Router,
		governor: cfg.Governor,
		store:    cfg.Store,
		logger:   logger,
	}
}

// BatchReport is the outcome of one SubmitBatch call.
type BatchReport struct {
	report.Report

	BatchID     string                `json:"batch_id"`
	SessionID   string                `json:"session_id"`
	Waves       [][]string            `json:"waves"`
	Degraded    bool                  `json:"degraded,omitempty"`
	Diagnostics []resolver.Diagnostic `json:"diagnostics,omitempty"`
}

// SubmitBatch validates a batch, resolves it into waves, and runs them in
// order. It raises only for malformed submissions; task failures, cycles,
// and timeouts are captured in the returned report. Cancelling ctx aborts
// the whole batch cooperatively.
func (o *Orchestrator) SubmitBatch(ctx context.Context, specs []task.Spec, sessionID string) (*BatchReport, error) {
	if err := task.ValidateBatch(specs); err != nil {
		return nil, err
	}

	batchID := uuid.New().String()
	session := memory.NewSession(ctx, sessionID, o.store, o.logger)
	plan := resolver.Resolve(specs)

	for _, d := range plan.Diagnostics {
		o.logger.Warn("scheduling diagnostic",
			"batch_id", batchID, "kind", d.Kind, "task_id", d.TaskID, "detail", d.Detail)
	}
	o.logger.Info("batch submitted",
		"batch_id", batchID, "session_id", sessionID,
		"tasks", len(specs), "waves", len(plan.Waves))

	start := time.Now()
	previous := make(map[string]task.Result, len(specs))
	all := make([]task.Result, 0, len(specs))

	for i, wave := range plan.Waves {
		input := executor.WaveInput{
			SessionID:       sessionID,
			PreviousResults: clonePrevious(previous),
			Memory:          session.Snapshot(),
		}

		results := o.exec.ExecuteWave(ctx, wave, input)

		// The wave has fully drained; record outcomes before the next
		// wave's context is built so dependents can read them.
		for _, r := range results {
			previous[r.TaskID] = r
			all = append(all, r)
			session.Put(ctx, "task:"+r.TaskID, map[string]any{
				"success":           r.Success,
				"data":              r.Data,
				"error":             r.Err,
				"execution_time_ms": r.ExecutionTime.Milliseconds(),
			})
		}

		o.logger.Debug("wave completed", "batch_id", batchID, "wave", i, "tasks", len(wave))
	}

	rep := report.Aggregate(all, time.Since(start))
	return &BatchReport{
		Report:      rep,
		BatchID:     batchID,
		SessionID:   sessionID,
		Waves:       plan.WaveIDs(),
		Degraded:    plan.Degraded(),
		Diagnostics: plan.Diagnostics,
	}, nil
}

// Route selects a compute profile for a task description, consulting the
// budget governor.
func (o *Orchestrator) Route(description string, rctx map[string]any) (*routing.Decision, error) {
	if o.router == nil {
		return nil, fmt.Errorf("no router configured")
	}
	return o.router.Route(description, rctx), nil
}

func clonePrevious(previous map[string]task.Result) map[string]task.Result {
	copied := make(map[string]task.Result, len(previous))
	for k, v := range previous {
		copied[k] = v
	}
	return copied
}
