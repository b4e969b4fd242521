// Command waverun executes a batch described in a YAML file and prints the
// resulting report as JSON. It exists for smoke-testing orchestration
// plans without writing a Go caller.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/meridian-labs/waverider/internal/budget"
	"github.com/meridian-labs/waverider/internal/executor"
	"github.com/meridian-labs/waverider/internal/memory"
	"github.com/meridian-labs/waverider/internal/orchestrator"
	"github.com/meridian-labs/waverider/internal/routing"
	"github.com/meridian-labs/waverider/internal/task"
)

type batchFile struct {
	Session string      `yaml:"session"`
	Tasks   []batchTask `yaml:"tasks"`
}

type batchTask struct {
	ID        string   `yaml:"id"`
	Kind      string   `yaml:"kind"`
	Duration  duration `yaml:"duration"`
	Fail      bool     `yaml:"fail"`
	Priority  int      `yaml:"priority"`
	Timeout   duration `yaml:"timeout"`
	DependsOn []string `yaml:"depends_on"`
}

// duration decodes "250ms"-style YAML strings.
type duration time.Duration

func (d *duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", s, err)
	}
	*d = duration(parsed)
	return nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "waverun",
		Short:        "Run dependency-aware task batches",
		SilenceUsage: true,
	}
	root.AddCommand(newRunCmd(), newRouteCmd())
	return root
}

func newRunCmd() *cobra.Command {
	var (
		sessionID string
		dbPath    string
		workers   int
		verbose   bool
	)

	cmd := &cobra.Command{
		Use:   "run <batch.yaml>",
		Short: "Execute a batch file and print the report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(verbose)

			raw, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read batch file: %w", err)
			}
			var batch batchFile
			if err := yaml.Unmarshal(raw, &batch); err != nil {
				return fmt.Errorf("parse batch file: %w", err)
			}
			if sessionID == "" {
				sessionID = batch.Session
			}
			if sessionID == "" {
				sessionID = "default"
			}

			var store memory.Store
			if dbPath != "" {
				sqlStore, err := memory.NewSQLiteStore(memory.SQLiteStoreOptions{
					Path:              dbPath,
					CreateIfNotExists: true,
				})
				if err != nil {
					return fmt.Errorf("open session store: %w", err)
				}
				defer sqlStore.Close()
				store = sqlStore
			}

			execCfg := executor.DefaultConfig()
			execCfg.Workers = workers
			execCfg.Logger = logger

			orch := orchestrator.New(orchestrator.Config{
				Executor: executor.New(execCfg),
				Store:    store,
				Logger:   logger,
			})

			specs := make([]task.Spec, 0, len(batch.Tasks))
			for _, t := range batch.Tasks {
				specs = append(specs, simulatedSpec(t))
			}

			rep, err := orch.SubmitBatch(cmd.Context(), specs, sessionID)
			if err != nil {
				return err
			}
			return printJSON(cmd, rep)
		},
	}

	cmd.Flags().StringVar(&sessionID, "session", "", "session id (overrides the batch file)")
	cmd.Flags().StringVar(&dbPath, "db", "", "sqlite session store path (default in-memory)")
	cmd.Flags().IntVar(&workers, "workers", 10, "worker pool size for synchronous tasks")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	return cmd
}

func newRouteCmd() *cobra.Command {
	var (
		ceiling float64
		role    string
		revenue float64
		verbose bool
	)

	cmd := &cobra.Command{
		Use:   "route <description>",
		Short: "Show the routing decision for a task description",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(verbose)

			govCfg := budget.DefaultConfig()
			govCfg.Ceiling = ceiling
			govCfg.Logger = logger
			governor := budget.NewGovernor(govCfg)

			router := routing.NewRouter(routing.DefaultProfiles(), governor, routing.Config{
				Logger: logger,
			})

			rctx := map[string]any{}
			if role != "" {
				rctx["role"] = role
			}
			if revenue > 0 {
				rctx["revenue_impact"] = revenue
			}

			return printJSON(cmd, router.Route(args[0], rctx))
		},
	}

	cmd.Flags().Float64Var(&ceiling, "ceiling", 25.0, "budget ceiling, USD")
	cmd.Flags().StringVar(&role, "role", "", "declared caller role")
	cmd.Flags().Float64Var(&revenue, "revenue-impact", 0, "declared revenue impact, USD")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	return cmd
}

// simulatedSpec builds a task that sleeps for its configured duration and
// optionally fails, which is enough to exercise waves, timeouts, and
// failure isolation from the command line.
func simulatedSpec(t batchTask) task.Spec {
	sleep := time.Duration(t.Duration)
	fail := t.Fail

	return task.Spec{
		ID:        t.ID,
		Kind:      t.Kind,
		Priority:  t.Priority,
		Timeout:   time.Duration(t.Timeout),
		DependsOn: t.DependsOn,
		Work: task.AsyncWork(func(ctx context.Context, tc *task.Context) (any, error) {
			if sleep > 0 {
				select {
				case <-time.After(sleep):
				case <-ctx.Done():
					return nil, ctx.Err()
				}
			}
			if fail {
				return nil, fmt.Errorf("simulated failure")
			}
			return map[string]any{"slept_ms": sleep.Milliseconds()}, nil
		}),
	}
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func printJSON(cmd *cobra.Command, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}
