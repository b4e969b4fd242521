package executor

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-labs/waverider/internal/task"
)

func sleeper(id string, d time.Duration) task.Spec {
	return task.Spec{
		ID: id,
		Work: task.AsyncWork(func(ctx context.Context, tc *task.Context) (any, error) {
			select {
			case <-time.After(d):
				return id, nil
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}),
	}
}

func TestExecuteWave_ResultsInWaveOrder(t *testing.T) {
	e := New(DefaultConfig())

	wave := []task.Spec{
		sleeper("slow", 50*time.Millisecond),
		sleeper("fast", time.Millisecond),
	}
	results := e.ExecuteWave(context.Background(), wave, WaveInput{})

	require.Len(t, results, 2)
	assert.Equal(t, "slow", results[0].TaskID)
	assert.Equal(t, "fast", results[1].TaskID)
	assert.True(t, results[0].Success)
	assert.True(t, results[1].Success)
	assert.Equal(t, "slow", results[0].Data)
}

func TestExecuteWave_FailureIsolation(t *testing.T) {
	e := New(DefaultConfig())

	wave := []task.Spec{
		{ID: "bad", Work: task.AsyncWork(func(ctx context.Context, tc *task.Context) (any, error) {
			return nil, fmt.Errorf("backend unavailable")
		})},
		sleeper("good", 20*time.Millisecond),
	}
	results := e.ExecuteWave(context.Background(), wave, WaveInput{})

	assert.False(t, results[0].Success)
	assert.Equal(t, "backend unavailable", results[0].Err)

	assert.True(t, results[1].Success, "sibling must not be cancelled by a failing task")
}

func TestExecuteWave_PanicCaptured(t *testing.T) {
	e := New(DefaultConfig())

	wave := []task.Spec{
		{ID: "boom", Work: task.SyncWork(func(tc *task.Context) (any, error) {
			panic("nil map write")
		})},
		sleeper("calm", time.Millisecond),
	}
	results := e.ExecuteWave(context.Background(), wave, WaveInput{})

	assert.False(t, results[0].Success)
	assert.Contains(t, results[0].Err, "panic: nil map write")
	assert.True(t, results[1].Success)
}

func TestExecuteWave_PerTaskTimeout(t *testing.T) {
	e := New(DefaultConfig())

	wave := []task.Spec{
		{
			ID:      "stuck",
			Timeout: 40 * time.Millisecond,
			Work: task.AsyncWork(func(ctx context.Context, tc *task.Context) (any, error) {
				<-time.After(5 * time.Second)
				return nil, nil
			}),
		},
		sleeper("quick", time.Millisecond),
	}

	start := time.Now()
	results := e.ExecuteWave(context.Background(), wave, WaveInput{})
	elapsed := time.Since(start)

	assert.False(t, results[0].Success)
	assert.Contains(t, results[0].Err, `timeout: task "stuck" exceeded 40ms`)
	assert.True(t, results[1].Success)

	// The wave settles at the timeout, not at the stuck task's sleep.
	assert.Less(t, elapsed, time.Second)
}

func TestExecuteWave_RunsConcurrently(t *testing.T) {
	e := New(DefaultConfig())

	wave := make([]task.Spec, 5)
	for i := range wave {
		wave[i] = sleeper(fmt.Sprintf("t%d", i), 100*time.Millisecond)
	}

	start := time.Now()
	results := e.ExecuteWave(context.Background(), wave, WaveInput{})
	elapsed := time.Since(start)

	for _, r := range results {
		assert.True(t, r.Success)
	}
	assert.Less(t, elapsed, 400*time.Millisecond,
		"five 100ms tasks should overlap, not serialize")
}

func TestExecuteWave_SyncWorkBoundedByPool(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Workers = 1
	e := New(cfg)

	block := func(tc *task.Context) (any, error) {
		time.Sleep(80 * time.Millisecond)
		return nil, nil
	}
	wave := []task.Spec{
		{ID: "s1", Work: task.SyncWork(block)},
		{ID: "s2", Work: task.SyncWork(block)},
	}

	start := time.Now()
	results := e.ExecuteWave(context.Background(), wave, WaveInput{})
	elapsed := time.Since(start)

	assert.True(t, results[0].Success)
	assert.True(t, results[1].Success)
	assert.GreaterOrEqual(t, elapsed, 160*time.Millisecond,
		"a single worker must serialize sync tasks")
}

func TestExecuteWave_BatchCancellation(t *testing.T) {
	e := New(DefaultConfig())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()

	results := e.ExecuteWave(ctx, []task.Spec{sleeper("long", 5*time.Second)}, WaveInput{})

	assert.False(t, results[0].Success)
	assert.Contains(t, results[0].Err, "batch cancelled")
}

func TestExecuteWave_InjectsContext(t *testing.T) {
	e := New(DefaultConfig())

	input := WaveInput{
		SessionID: "s1",
		PreviousResults: map[string]task.Result{
			"earlier": {TaskID: "earlier", Success: true, Data: "upstream"},
		},
		Memory: map[string]any{"phase": "analysis"},
	}

	spec := task.Spec{
		ID:   "reader",
		Args: map[string]any{"limit": 3},
		Work: task.SyncWork(func(tc *task.Context) (any, error) {
			dep, ok := tc.Dependency("earlier")
			if !ok {
				return nil, fmt.Errorf("missing dependency result")
			}
			return map[string]any{
				"session": tc.SessionID,
				"dep":     dep.Data,
				"phase":   tc.Memory["phase"],
				"limit":   tc.Args["limit"],
			}, nil
		}),
	}

	results := e.ExecuteWave(context.Background(), []task.Spec{spec}, input)

	require.True(t, results[0].Success, results[0].Err)
	data := results[0].Data.(map[string]any)
	assert.Equal(t, "s1", data["session"])
	assert.Equal(t, "upstream", data["dep"])
	assert.Equal(t, "analysis", data["phase"])
	assert.Equal(t, 3, data["limit"])
}
