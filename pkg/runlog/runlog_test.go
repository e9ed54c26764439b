package runlog

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pario-ai/tokmon/pkg/models"
)

func mustNew(t *testing.T, cfg models.RunLogConfig) *Log {
	t.Helper()
	l, err := New(cfg, filepath.Join(t.TempDir(), "runs.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func enabled() models.RunLogConfig {
	return models.RunLogConfig{Enabled: true, RetentionDays: 30}
}

func TestRecordAndQuery(t *testing.T) {
	l := mustNew(t, enabled())
	ctx := context.Background()
	base := time.Date(2026, 2, 5, 9, 0, 0, 0, time.UTC)

	id, err := l.Record(ctx, models.CycleRun{
		Job:       models.JobNotify,
		Date:      models.MustParseDate("2026-02-04"),
		Status:    models.CycleFailed,
		Error:     "send failed",
		StartedAt: base,
		Duration:  1500 * time.Millisecond,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	_, err = l.Record(ctx, models.CycleRun{
		Job:       models.JobNotify,
		Date:      models.MustParseDate("2026-02-05"),
		Status:    models.CycleSucceeded,
		StartedAt: base.Add(time.Minute),
	})
	require.NoError(t, err)

	_, err = l.Record(ctx, models.CycleRun{
		Job:       models.JobSnapshot,
		Date:      models.MustParseDate("2026-02-05"),
		Status:    models.CycleSucceeded,
		StartedAt: base.Add(2 * time.Minute),
	})
	require.NoError(t, err)

	runs, err := l.Query(ctx, models.RunQueryOpts{Job: models.JobNotify})
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, models.MustParseDate("2026-02-05"), runs[0].Date, "newest first")
	assert.Equal(t, id, runs[1].ID)
	assert.Equal(t, "send failed", runs[1].Error)
	assert.Equal(t, 1500*time.Millisecond, runs[1].Duration)

	failed, err := l.Query(ctx, models.RunQueryOpts{Status: models.CycleFailed})
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.Equal(t, models.CycleFailed, failed[0].Status)

	limited, err := l.Query(ctx, models.RunQueryOpts{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestRecordDisabled(t *testing.T) {
	l := mustNew(t, models.RunLogConfig{Enabled: false})
	ctx := context.Background()

	_, err := l.Record(ctx, models.CycleRun{Job: models.JobNotify, Status: models.CycleSucceeded})
	require.NoError(t, err)

	runs, err := l.Query(ctx, models.RunQueryOpts{})
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestCleanup(t *testing.T) {
	l := mustNew(t, enabled())
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	_, err := l.Record(ctx, models.CycleRun{
		Job: models.JobNotify, Date: models.MustParseDate("2026-01-01"),
		Status: models.CycleSucceeded, StartedAt: now.AddDate(0, 0, -60),
	})
	require.NoError(t, err)
	_, err = l.Record(ctx, models.CycleRun{
		Job: models.JobNotify, Date: models.MustParseDate("2026-02-28"),
		Status: models.CycleSucceeded, StartedAt: now.Add(-time.Hour),
	})
	require.NoError(t, err)

	n, err := l.Cleanup(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	runs, err := l.Query(ctx, models.RunQueryOpts{})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, models.MustParseDate("2026-02-28"), runs[0].Date)
}
