// Package executor runs each wave's tasks concurrently with failure
// isolation. Synchronous work is capped by a bounded worker pool; async
// work runs directly under cooperative scheduling.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/meridian-labs/waverider/internal/task"
)

// Config configures the wave executor.
type Config struct {
	// Workers caps true OS-thread parallelism for synchronous work
	// (default 10). Async tasks are bounded only by the wave.
	Workers int

	// DefaultTimeout applies to tasks that don't set their own (default 30s).
	DefaultTimeout time.Duration

	// LaunchRate throttles task launches per second to protect downstream
	// providers (0 = unlimited).
	LaunchRate rate.Limit

	// Logger for task lifecycle events.
	Logger *slog.Logger
}

// DefaultConfig returns sensible executor defaults.
func DefaultConfig() Config {
	return Config{
		Workers:        10,
		DefaultTimeout: 30 * time.Second,
	}
}

// WaveExecutor fans a wave out concurrently and collects settled results.
type WaveExecutor struct {
	cfg     Config
	sem     chan struct{}
	limiter *rate.Limiter
	logger  *slog.Logger
}

// New creates a wave executor.
func New(cfg Config) *WaveExecutor {
	if cfg.Workers <= 0 {
		cfg.Workers = 10
	}
	if cfg.DefaultTimeout <= 0 {
		cfg.DefaultTimeout = 30 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	e := &WaveExecutor{
		cfg:    cfg,
		sem:    make(chan struct{}, cfg.Workers),
		logger: logger,
	}
	if cfg.LaunchRate > 0 {
		e.limiter = rate.NewLimiter(cfg.LaunchRate, 1)
	}
	return e
}

// WaveInput carries the injected state shared by every task in a wave.
type WaveInput struct {
	SessionID       string
	PreviousResults map[string]task.Result
	Memory          map[string]any
}

// ExecuteWave launches every task in the wave concurrently and blocks
// until all of them settle. One task's failure never cancels its siblings;
// failures are captured into results, not propagated as errors. Results
// are returned in wave order.
func (e *WaveExecutor) ExecuteWave(ctx context.Context, wave []task.Spec, input WaveInput) []task.Result {
	results := make([]task.Result, len(wave))
	var mu sync.Mutex

	g, _ := errgroup.WithContext(ctx)
	for i, spec := range wave {
		i, spec := i, spec
		g.Go(func() error {
			r := e.runOne(ctx, spec, input)

			mu.Lock()
			results[i] = r
			mu.Unlock()
			return nil
		})
	}
	g.Wait()

	return results
}

type outcome struct {
	data any
	err  error
}

// runOne executes a single task under its own timeout, recovering panics
// into the result.
func (e *WaveExecutor) runOne(ctx context.Context, spec task.Spec, input WaveInput) task.Result {
	start := time.Now()
	result := task.Result{TaskID: spec.ID}

	fail := func(err error) task.Result {
		result.Success = false
		result.Err = err.Error()
		result.ExecutionTime = time.Since(start)
		e.logger.Warn("task failed", "task_id", spec.ID, "kind", spec.Kind, "error", result.Err)
		return result
	}

	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return fail(err)
		}
	}

	timeout := spec.Timeout
	if timeout <= 0 {
		timeout = e.cfg.DefaultTimeout
	}
	tctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	tc := &task.Context{
		SessionID:       input.SessionID,
		Args:            spec.Args,
		PreviousResults: input.PreviousResults,
		Memory:          input.Memory,
	}

	ch := make(chan outcome, 1)

	if spec.Work.IsAsync() {
		go func() {
			defer recoverInto(ch)
			data, err := spec.Work.Async()(tctx, tc)
			ch <- outcome{data: data, err: err}
		}()
	} else {
		// Sync work holds a pool slot. On timeout the slot stays occupied
		// until the blocking function actually returns; the wave itself
		// moves on.
		select {
		case e.sem <- struct{}{}:
		case <-tctx.Done():
			return fail(fmt.Errorf("timeout: task %q waited %s for a worker", spec.ID, timeout))
		}
		go func() {
			defer func() { <-e.sem }()
			defer recoverInto(ch)
			data, err := spec.Work.Sync()(tc)
			ch <- outcome{data: data, err: err}
		}()
	}

	select {
	case o := <-ch:
		result.ExecutionTime = time.Since(start)
		if o.err != nil {
			return fail(o.err)
		}
		result.Success = true
		result.Data = o.data
		e.logger.Debug("task completed",
			"task_id", spec.ID, "kind", spec.Kind, "duration", result.ExecutionTime)
		return result
	case <-tctx.Done():
		if ctx.Err() != nil {
			return fail(fmt.Errorf("batch cancelled: %w", ctx.Err()))
		}
		return fail(fmt.Errorf("timeout: task %q exceeded %s", spec.ID, timeout))
	}
}

func recoverInto(ch chan<- outcome) {
	if r := recover(); r != nil {
		ch <- outcome{err: fmt.Errorf("panic: %v", r)}
	}
}
