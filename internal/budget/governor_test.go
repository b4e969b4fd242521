package budget

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedSpend struct {
	service  string
	amount   float64
	metadata map[string]any
}

type mockLedger struct {
	mu      sync.Mutex
	records []recordedSpend
}

func (m *mockLedger) Record(service string, amount float64, metadata map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, recordedSpend{service, amount, metadata})
}

func TestGovernor_RecordSpend(t *testing.T) {
	g := NewGovernor(Config{Ceiling: 10})

	g.RecordSpend("atlas-pro", 2.5, nil)
	g.RecordSpend("swift-lite", 0.5, nil)

	assert.InDelta(t, 3.0, g.Spent(), 1e-9)
	assert.InDelta(t, 7.0, g.Remaining(), 1e-9)
	assert.InDelta(t, 30.0, g.UtilizationPct(), 1e-9)
}

func TestGovernor_NegativeSpendIgnored(t *testing.T) {
	g := NewGovernor(Config{Ceiling: 10})
	g.RecordSpend("atlas-pro", -5, nil)
	assert.Zero(t, g.Spent())
}

func TestGovernor_CanProceedThreshold(t *testing.T) {
	g := NewGovernor(Config{Ceiling: 100, ProceedThreshold: 0.01})

	require.True(t, g.CanProceed())

	// Leave exactly 2% headroom: still above the 1% threshold.
	g.RecordSpend("atlas-pro", 98, nil)
	assert.True(t, g.CanProceed())

	// Down to 1% exactly: remaining must strictly exceed the threshold.
	g.RecordSpend("atlas-pro", 1, nil)
	assert.False(t, g.CanProceed())

	// Overspend never panics or goes error-shaped.
	g.RecordSpend("atlas-pro", 50, nil)
	assert.False(t, g.CanProceed())
	assert.InDelta(t, 149.0, g.UtilizationPct(), 1e-9)
}

func TestGovernor_LedgerReceivesEverySpend(t *testing.T) {
	ledger := &mockLedger{}
	g := NewGovernor(Config{Ceiling: 10, Ledger: ledger})

	g.RecordSpend("atlas-pro", 1.25, map[string]any{"input_tokens": 100})

	require.Len(t, ledger.records, 1)
	assert.Equal(t, "atlas-pro", ledger.records[0].service)
	assert.InDelta(t, 1.25, ledger.records[0].amount, 1e-9)
	assert.Equal(t, 100, ledger.records[0].metadata["input_tokens"])
}

func TestGovernor_ConcurrentRecordSpend(t *testing.T) {
	g := NewGovernor(Config{Ceiling: 10})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			g.RecordSpend("atlas-pro", 0.01, nil)
		}()
	}
	wg.Wait()

	assert.InDelta(t, 0.5, g.Spent(), 1e-9)
}

func TestGovernor_PeriodRollover(t *testing.T) {
	now := time.Date(2026, 3, 1, 23, 50, 0, 0, time.UTC)
	var mu sync.Mutex
	g := NewGovernor(Config{
		Ceiling: 10,
		Now: func() time.Time {
			mu.Lock()
			defer mu.Unlock()
			return now
		},
	})

	g.RecordSpend("atlas-pro", 9.95, nil)
	assert.False(t, g.CanProceed())
	assert.Equal(t, "2026-03-01", g.Snapshot().PeriodKey)

	mu.Lock()
	now = now.Add(time.Hour)
	mu.Unlock()

	// New UTC date: the running total resets lazily on next read.
	assert.Zero(t, g.Spent())
	assert.True(t, g.CanProceed())
	assert.Equal(t, "2026-03-02", g.Snapshot().PeriodKey)
}
