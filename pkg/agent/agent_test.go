package agent

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/pario-ai/tokmon/pkg/budget"
	"github.com/pario-ai/tokmon/pkg/models"
	"github.com/pario-ai/tokmon/pkg/notify"
	"github.com/pario-ai/tokmon/pkg/pricing"
	"github.com/pario-ai/tokmon/pkg/source"
	"github.com/pario-ai/tokmon/pkg/store"
)

type staticAdapter struct {
	id  models.SourceID
	rec *models.UsageRecord
	err error
}

func (a staticAdapter) ID() models.SourceID { return a.id }

func (a staticAdapter) Fetch(context.Context) (*models.UsageRecord, error) {
	return a.rec, a.err
}

type recordingSender struct {
	mu         sync.Mutex
	sent       []notify.Message
	failOn     map[models.Date]bool
	failAlerts bool
}

func (s *recordingSender) Send(_ context.Context, msg notify.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if msg.Kind == notify.KindReport && s.failOn[msg.Date] {
		return errors.New("channel down")
	}
	if msg.Kind == notify.KindAlert && s.failAlerts {
		return errors.New("channel down")
	}
	s.sent = append(s.sent, msg)
	return nil
}

func (s *recordingSender) reports() []notify.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []notify.Message
	for _, m := range s.sent {
		if m.Kind == notify.KindReport {
			out = append(out, m)
		}
	}
	return out
}

func (s *recordingSender) alerts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, m := range s.sent {
		if m.Kind == notify.KindAlert {
			n++
		}
	}
	return n
}

// flakyStore fails Put while broken is set.
type flakyStore struct {
	*store.SQLiteStore
	broken bool
}

func (f *flakyStore) Put(ctx context.Context, snap models.Snapshot) error {
	if f.broken {
		return fmt.Errorf("put snapshot: %w: disk I/O error", models.ErrPersistence)
	}
	return f.SQLiteStore.Put(ctx, snap)
}

type memRuns struct {
	runs []models.CycleRun
}

func (m *memRuns) Record(_ context.Context, run models.CycleRun) (string, error) {
	m.runs = append(m.runs, run)
	return "", nil
}

var (
	day1 = models.MustParseDate("2026-02-01")
	day3 = models.MustParseDate("2026-02-03")
	day4 = models.MustParseDate("2026-02-04")
	day5 = models.MustParseDate("2026-02-05")
)

func gpt4oRecord() *models.UsageRecord {
	model := "gpt-4o"
	return &models.UsageRecord{
		Source:       models.SourceMoltbot,
		Model:        &model,
		Tokens:       models.TokenCounts{Input: 1_000_000, Output: 100_000},
		SessionCount: 4,
		AsOf:         day5,
	}
}

type fixture struct {
	agent  *Agent
	store  *flakyStore
	sender *recordingSender
	runs   *memRuns
}

func newFixture(t *testing.T, opts Options, thresholds ...models.BudgetThreshold) *fixture {
	t.Helper()
	st, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	fs := &flakyStore{SQLiteStore: st}

	logger := zaptest.NewLogger(t)
	collector := source.NewCollector([]source.Adapter{
		staticAdapter{id: models.SourceMoltbot, rec: gpt4oRecord()},
		staticAdapter{id: models.SourceBilling, err: errors.New("unreachable")},
	}, time.Second, logger)

	var enforcer *budget.Enforcer
	if len(thresholds) > 0 {
		enforcer = budget.New(thresholds, fs)
	}
	sender := &recordingSender{failOn: map[models.Date]bool{}}
	runs := &memRuns{}

	a := New(collector, pricing.Default(), fs, sender, runs, enforcer, opts, logger)
	a.now = func() time.Time { return time.Date(2026, 2, 5, 21, 0, 0, 0, time.UTC) }
	return &fixture{agent: a, store: fs, sender: sender, runs: runs}
}

func TestCaptureStoresSnapshot(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()

	snap, err := f.agent.Capture(ctx, day5)
	require.NoError(t, err)
	// 1M input at $2.50 + 100k output at $10.
	assert.InDelta(t, 3.5, snap.Cost.TotalCost, 1e-9)
	assert.Equal(t, []models.SourceID{models.SourceBilling}, snap.Usage.Missing)

	got, err := f.store.Get(ctx, day5)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(1_100_000), got.TotalTokens())
	assert.InDelta(t, 3.5, got.Cost.TotalCost, 1e-9)
}

func TestMeasureDoesNotPersist(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()

	snap, statuses := f.agent.Measure(ctx, day5)
	assert.Len(t, statuses, 2)
	assert.Equal(t, int64(1_100_000), snap.TotalTokens())

	got, err := f.store.Get(ctx, day5)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRunScheduledCatchesUp(t *testing.T) {
	f := newFixture(t, Options{SnapshotEnabled: true, NotifyEnabled: true, MaxMakeupDays: 3})
	ctx := context.Background()
	require.NoError(t, f.store.SetLastRun(ctx, models.JobNotify, day1))

	out, err := f.agent.RunScheduled(ctx, day5)
	require.NoError(t, err)
	assert.False(t, out.Failed())

	require.NotNil(t, out.Snapshot)
	assert.Equal(t, []models.Date{day5}, out.Snapshot.Planned)
	require.NotNil(t, out.Notify)
	assert.Equal(t, []models.Date{day3, day4, day5}, out.Notify.Planned)

	reports := f.sender.reports()
	require.Len(t, reports, 3)
	assert.Contains(t, reports[0].Body, "[catch-up]")
	assert.Contains(t, reports[0].Body, "No usage snapshot was recorded for 2026-02-03")
	assert.NotContains(t, reports[2].Body, "[catch-up]")
	assert.NotContains(t, reports[2].Body, "No usage snapshot")

	last, err := f.store.LastRun(ctx, models.JobNotify)
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, day5, *last)

	last, err = f.store.LastRun(ctx, models.JobSnapshot)
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, day5, *last)

	// One snapshot cycle and three notify cycles.
	assert.Len(t, f.runs.runs, 4)
}

func TestRunScheduledIsIdempotentWithinADay(t *testing.T) {
	f := newFixture(t, Options{SnapshotEnabled: true, NotifyEnabled: true, MaxMakeupDays: 3})
	ctx := context.Background()

	_, err := f.agent.RunScheduled(ctx, day5)
	require.NoError(t, err)
	require.Len(t, f.sender.reports(), 1)

	out, err := f.agent.RunScheduled(ctx, day5)
	require.NoError(t, err)
	assert.Empty(t, out.Notify.Planned)
	assert.Empty(t, out.Snapshot.Planned)
	assert.Len(t, f.sender.reports(), 1)
}

func TestRunScheduledHoldsMarkerAtFirstFailure(t *testing.T) {
	f := newFixture(t, Options{NotifyEnabled: true, MaxMakeupDays: 3})
	ctx := context.Background()
	require.NoError(t, f.store.SetLastRun(ctx, models.JobNotify, day1))
	f.sender.failOn[day4] = true

	out, err := f.agent.RunScheduled(ctx, day5)
	require.NoError(t, err)
	assert.True(t, out.Failed())
	require.Len(t, out.Notify.Failures, 1)
	assert.ErrorIs(t, out.Notify.Failures[0], models.ErrCatchupCycle)

	// 02-05 still went out, but the marker stops before the failed day.
	assert.Len(t, f.sender.reports(), 2)
	last, err := f.store.LastRun(ctx, models.JobNotify)
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, day3, *last)

	var failed int
	for _, r := range f.runs.runs {
		if r.Status == models.CycleFailed {
			failed++
			assert.Equal(t, day4, r.Date)
			assert.Contains(t, r.Error, "channel down")
		}
	}
	assert.Equal(t, 1, failed)
}

func TestRunScheduledSendsAlertOncePerDay(t *testing.T) {
	f := newFixture(t, Options{SnapshotEnabled: true},
		models.BudgetThreshold{Name: "daily-cap", MaxCost: 1, Period: models.BudgetDaily})
	ctx := context.Background()

	out, err := f.agent.RunScheduled(ctx, day5)
	require.NoError(t, err)
	require.Len(t, out.Alerts, 1)
	assert.True(t, out.Alerts[0].Exceeded)
	assert.Equal(t, 1, f.sender.alerts())

	_, err = f.agent.RunScheduled(ctx, day5)
	require.NoError(t, err)
	assert.Equal(t, 1, f.sender.alerts())
}

func TestRunScheduledHoldsReportWhenSnapshotNotStored(t *testing.T) {
	f := newFixture(t, Options{SnapshotEnabled: true, NotifyEnabled: true, MaxMakeupDays: 3})
	ctx := context.Background()
	require.NoError(t, f.store.SetLastRun(ctx, models.JobNotify, day4))
	f.store.broken = true

	out, err := f.agent.RunScheduled(ctx, day5)
	require.NoError(t, err)
	assert.True(t, out.Failed())
	require.Len(t, out.Snapshot.Failures, 1)
	assert.ErrorIs(t, out.Snapshot.Failures[0], models.ErrPersistence)
	require.Len(t, out.Notify.Failures, 1)
	assert.ErrorIs(t, out.Notify.Failures[0], models.ErrPersistence)
	assert.Empty(t, f.sender.reports())

	last, err := f.store.LastRun(ctx, models.JobNotify)
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, day4, *last)

	// Once the store recovers, the next tick stores the snapshot and sends
	// the real report for the same day.
	f.store.broken = false
	out, err = f.agent.RunScheduled(ctx, day5)
	require.NoError(t, err)
	assert.False(t, out.Failed())
	assert.Equal(t, []models.Date{day5}, out.Snapshot.Planned)
	assert.Equal(t, []models.Date{day5}, out.Notify.Planned)

	reports := f.sender.reports()
	require.Len(t, reports, 1)
	assert.NotContains(t, reports[0].Body, "No usage snapshot")

	last, err = f.store.LastRun(ctx, models.JobNotify)
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, day5, *last)
}

func TestRunScheduledReportsAlertFailure(t *testing.T) {
	f := newFixture(t, Options{SnapshotEnabled: true},
		models.BudgetThreshold{Name: "daily-cap", MaxCost: 1, Period: models.BudgetDaily})
	f.sender.failAlerts = true
	ctx := context.Background()

	out, err := f.agent.RunScheduled(ctx, day5)
	require.NoError(t, err)
	require.Error(t, out.AlertErr)
	assert.Contains(t, out.AlertErr.Error(), "channel down")
	assert.True(t, out.Failed())

	// The alert marker is untouched, so the next run tries again.
	last, err := f.store.LastRun(ctx, models.JobAlert)
	require.NoError(t, err)
	assert.Nil(t, last)

	f.sender.failAlerts = false
	out, err = f.agent.RunScheduled(ctx, day5)
	require.NoError(t, err)
	assert.NoError(t, out.AlertErr)
	assert.Equal(t, 1, f.sender.alerts())
}

func TestRunScheduledWritesMetricsTextfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokmon.prom")
	f := newFixture(t, Options{SnapshotEnabled: true, MetricsTextfile: path})

	_, err := f.agent.RunScheduled(context.Background(), day5)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, `tokmon_estimated_cost_usd{source="moltbot"} 3.5`)
	assert.Contains(t, text, `tokmon_source_up{source="billing"} 0`)
	assert.Contains(t, text, `tokmon_cycles_total{job="snapshot",status="succeeded"} 1`)
	assert.True(t, strings.Contains(text, "tokmon_schedule_last_run_timestamp_seconds"))
}

func TestReportComparesWithPreviousSnapshot(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()

	_, err := f.agent.Capture(ctx, day3)
	require.NoError(t, err)
	_, err = f.agent.Capture(ctx, day5)
	require.NoError(t, err)

	text, err := f.agent.Report(ctx, day5, false)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(text, "Token Monitor Daily Report\n2026-02-05"))
	assert.Contains(t, text, "[vs 2026-02-03]")
	assert.Contains(t, text, "Moltbot")
}
