package catchup

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pario-ai/tokmon/pkg/models"
)

func d(s string) models.Date { return models.MustParseDate(s) }

func ptr(date models.Date) *models.Date { return &date }

func TestPlan(t *testing.T) {
	tests := []struct {
		name    string
		lastRun *models.Date
		today   string
		max     int
		want    []string
	}{
		{"never run", nil, "2026-02-05", 3, []string{"2026-02-05"}},
		{"ran today", ptr(d("2026-02-05")), "2026-02-05", 3, nil},
		{"clock moved back", ptr(d("2026-02-07")), "2026-02-05", 3, nil},
		{"ran yesterday", ptr(d("2026-02-04")), "2026-02-05", 3, []string{"2026-02-05"}},
		{"gap under cap", ptr(d("2026-02-03")), "2026-02-05", 3, []string{"2026-02-04", "2026-02-05"}},
		{"gap capped", ptr(d("2026-02-01")), "2026-02-05", 3, []string{"2026-02-03", "2026-02-04", "2026-02-05"}},
		{"month boundary", ptr(d("2026-01-30")), "2026-02-02", 5, []string{"2026-01-31", "2026-02-01", "2026-02-02"}},
		{"zero cap", ptr(d("2026-02-01")), "2026-02-05", 0, []string{"2026-02-05"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Plan(tt.lastRun, d(tt.today), tt.max)
			var gotStr []string
			for _, g := range got {
				gotStr = append(gotStr, g.String())
			}
			assert.Equal(t, tt.want, gotStr)
		})
	}
}

func TestPlanBounded(t *testing.T) {
	today := d("2026-03-15")
	for gap := 1; gap <= 40; gap++ {
		last := today.AddDays(-gap)
		got := Plan(&last, today, 3)
		require.Len(t, got, min(gap, 3))
		assert.Equal(t, today, got[len(got)-1])
		for _, date := range got {
			assert.True(t, date.After(last))
		}
	}
}

func TestRunAllSucceed(t *testing.T) {
	var ran []models.Date
	state := models.ScheduleState{Job: models.JobNotify, LastRun: ptr(d("2026-02-01"))}

	res := Run(context.Background(), state, d("2026-02-05"), 3, func(_ context.Context, date models.Date) error {
		ran = append(ran, date)
		return nil
	})

	assert.Equal(t, []models.Date{d("2026-02-03"), d("2026-02-04"), d("2026-02-05")}, ran)
	assert.Empty(t, res.Failures)
	assert.Equal(t, 3, res.Succeeded())
	require.NotNil(t, res.State.LastRun)
	assert.Equal(t, d("2026-02-05"), *res.State.LastRun)
	assert.True(t, res.Advanced(state.LastRun))
}

func TestRunFailureContinuesButHoldsMarker(t *testing.T) {
	boom := errors.New("send failed")
	state := models.ScheduleState{Job: models.JobNotify, LastRun: ptr(d("2026-02-01"))}

	var ran []models.Date
	res := Run(context.Background(), state, d("2026-02-05"), 3, func(_ context.Context, date models.Date) error {
		ran = append(ran, date)
		if date == d("2026-02-04") {
			return boom
		}
		return nil
	})

	assert.Len(t, ran, 3, "a failing date must not stop later dates")
	require.Len(t, res.Failures, 1)
	assert.True(t, errors.Is(res.Failures[0], models.ErrCatchupCycle))
	assert.True(t, errors.Is(res.Failures[0], boom))
	require.NotNil(t, res.State.LastRun)
	assert.Equal(t, d("2026-02-03"), *res.State.LastRun)
}

func TestRunFirstDateFailsKeepsMarker(t *testing.T) {
	state := models.ScheduleState{Job: models.JobNotify, LastRun: ptr(d("2026-02-03"))}
	res := Run(context.Background(), state, d("2026-02-05"), 3, func(_ context.Context, date models.Date) error {
		if date == d("2026-02-04") {
			return errors.New("fail")
		}
		return nil
	})
	assert.Equal(t, d("2026-02-03"), *res.State.LastRun)
	assert.False(t, res.Advanced(state.LastRun))
}

func TestRunNothingDue(t *testing.T) {
	called := false
	state := models.ScheduleState{Job: models.JobNotify, LastRun: ptr(d("2026-02-05"))}
	res := Run(context.Background(), state, d("2026-02-05"), 3, func(context.Context, models.Date) error {
		called = true
		return nil
	})
	assert.False(t, called)
	assert.Empty(t, res.Planned)
	assert.Equal(t, state, res.State)
}

func TestRunCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	state := models.ScheduleState{Job: models.JobSnapshot}

	calls := 0
	last := d("2026-02-02")
	state.LastRun = &last
	res := Run(ctx, state, d("2026-02-05"), 3, func(context.Context, models.Date) error {
		calls++
		cancel()
		return nil
	})

	assert.Equal(t, 1, calls)
	assert.Len(t, res.Failures, 2)
	assert.True(t, errors.Is(res.Failures[0], context.Canceled))
	assert.Equal(t, d("2026-02-03"), *res.State.LastRun)
}
