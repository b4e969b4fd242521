// Package budget enforces a spend ceiling over rolling accounting periods.
package budget

import (
	"log/slog"
	"sync"
	"time"
)

// Ledger is a fire-and-forget accounting sink for recorded spend.
type Ledger interface {
	Record(service string, amount float64, metadata map[string]any)
}

// Config configures a Governor.
type Config struct {
	// Ceiling is the maximum spend per period, USD.
	Ceiling float64

	// PeriodKey derives the accounting period key from a time.
	// Defaults to the UTC date, giving daily rollover.
	PeriodKey func(time.Time) string

	// Now is the clock source, injectable for tests.
	Now func() time.Time

	// Ledger receives every recorded spend. Optional.
	Ledger Ledger

	// ProceedThreshold is the fraction of the ceiling that must remain
	// for CanProceed to stay true (default 0.01).
	ProceedThreshold float64

	// Logger for rollover and threshold events.
	Logger *slog.Logger
}

// DefaultConfig returns sensible governor defaults.
func DefaultConfig() Config {
	return Config{
		Ceiling:          25.0,
		ProceedThreshold: 0.01,
	}
}

// State is a snapshot of governor accounting.
type State struct {
	Ceiling   float64 `json:"ceiling"`
	Spent     float64 `json:"spent_so_far"`
	PeriodKey string  `json:"period_key"`
}

// Governor tracks spend against a ceiling for a rolling period and
// gatekeeps further paid work. RecordSpend is the sole mutator and is safe
// under concurrent invocation from tasks in the same wave.
type Governor struct {
	mu        sync.Mutex
	spent     float64
	periodKey string
	cfg       Config
	logger    *slog.Logger
}

// NewGovernor creates a governor with the given config.
func NewGovernor(cfg Config) *Governor {
	if cfg.PeriodKey == nil {
		cfg.PeriodKey = func(t time.Time) string {
			return t.UTC().Format("2006-01-02")
		}
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.ProceedThreshold <= 0 {
		cfg.ProceedThreshold = 0.01
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	g := &Governor{cfg: cfg, logger: logger}
	g.periodKey = cfg.PeriodKey(cfg.Now())
	return g
}

// RecordSpend adds an amount to the running total and forwards it to the
// ledger under the given service label.
func (g *Governor) RecordSpend(service string, amount float64, metadata map[string]any) {
	if amount < 0 {
		return
	}

	g.mu.Lock()
	g.rolloverLocked()
	g.spent += amount
	spent := g.spent
	g.mu.Unlock()

	if spent >= g.cfg.Ceiling {
		g.logger.Warn("budget ceiling reached",
			"service", service, "spent", spent, "ceiling", g.cfg.Ceiling)
	}

	if g.cfg.Ledger != nil {
		g.cfg.Ledger.Record(service, amount, metadata)
	}
}

// Remaining returns ceiling minus spend for the current period.
func (g *Governor) Remaining() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rolloverLocked()
	return g.cfg.Ceiling - g.spent
}

// Spent returns the running total for the current period.
func (g *Governor) Spent() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rolloverLocked()
	return g.spent
}

// UtilizationPct returns spend as a percentage of the ceiling (0-100+).
func (g *Governor) UtilizationPct() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rolloverLocked()
	if g.cfg.Ceiling <= 0 {
		return 0
	}
	return g.spent / g.cfg.Ceiling * 100
}

// CanProceed reports whether further paid work is allowed: true iff the
// remaining headroom exceeds the proceed threshold share of the ceiling.
// Exhaustion is never an error; callers degrade, downgrade, or defer.
func (g *Governor) CanProceed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rolloverLocked()
	return g.cfg.Ceiling-g.spent > g.cfg.Ceiling*g.cfg.ProceedThreshold
}

// Snapshot returns the current accounting state.
func (g *Governor) Snapshot() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rolloverLocked()
	return State{
		Ceiling:   g.cfg.Ceiling,
		Spent:     g.spent,
		PeriodKey: g.periodKey,
	}
}

// rolloverLocked lazily resets the running total when the period key
// changes. Must be called with the mutex held.
func (g *Governor) rolloverLocked() {
	key := g.cfg.PeriodKey(g.cfg.Now())
	if key == g.periodKey {
		return
	}
	g.logger.Info("budget period rollover",
		"previous_period", g.periodKey, "period", key, "spent", g.spent)
	g.periodKey = key
	g.spent = 0
}
