package trend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pario-ai/tokmon/pkg/models"
)

func snap(date string, input int64, cost float64) models.Snapshot {
	return models.Snapshot{
		Date: models.MustParseDate(date),
		Usage: models.NormalizedUsage{
			Sources: map[models.SourceID]models.UsageRecord{
				models.SourceClaudeCode: {
					Source: models.SourceClaudeCode,
					Tokens: models.TokenCounts{Input: input},
				},
			},
		},
		Cost: models.CostBreakdown{TotalCost: cost},
	}
}

func TestAnalyzeWindowWithGaps(t *testing.T) {
	history := []models.Snapshot{
		snap("2026-02-01", 100, 1),
		snap("2026-02-02", 200, 2),
		snap("2026-02-05", 300, 3),
	}

	rep := AnalyzeEnding(history, 7, models.MustParseDate("2026-02-07"))

	assert.Equal(t, 3, rep.DaysWithData)
	assert.Equal(t, int64(600), rep.TotalTokens)
	assert.InDelta(t, 6.0, rep.TotalCost, 1e-12)
	assert.InDelta(t, 200.0, rep.AvgTokensPerDay, 1e-12)
	assert.InDelta(t, 2.0, rep.AvgCostPerDay, 1e-12)
	assert.Equal(t, models.MustParseDate("2026-02-01"), rep.Start)
	assert.Equal(t, models.MustParseDate("2026-02-07"), rep.End)
}

func TestAnalyzeIgnoresOutsideWindow(t *testing.T) {
	history := []models.Snapshot{
		snap("2026-01-20", 9999, 99),
		snap("2026-02-06", 10, 0.1),
		snap("2026-02-07", 30, 0.3),
	}

	rep := Analyze(history, 7)

	assert.Equal(t, models.MustParseDate("2026-02-07"), rep.End)
	assert.Equal(t, 2, rep.DaysWithData)
	assert.Equal(t, int64(40), rep.TotalTokens)

	require.NotNil(t, rep.DayOverDay)
	assert.Equal(t, int64(20), rep.DayOverDay.TotalTokens)
	assert.InDelta(t, 200.0, rep.DayOverDay.TokenPct, 1e-9)
	assert.InDelta(t, 0.2, rep.DayOverDay.Cost, 1e-12)
}

func TestAnalyzeSingleSnapshot(t *testing.T) {
	rep := Analyze([]models.Snapshot{snap("2026-02-01", 5, 0.5)}, 7)
	assert.Equal(t, 1, rep.DaysWithData)
	assert.Nil(t, rep.DayOverDay)
}

func TestAnalyzeEmpty(t *testing.T) {
	rep := Analyze(nil, 0)
	assert.Equal(t, DefaultWindow, rep.WindowDays)
	assert.Zero(t, rep.DaysWithData)
	assert.Zero(t, rep.AvgTokensPerDay)
	assert.Nil(t, rep.DayOverDay)
}

func TestCompareWeekOverWeek(t *testing.T) {
	history := []models.Snapshot{
		snap("2026-01-26", 100, 1), // previous week
		snap("2026-01-31", 100, 1), // previous week
		snap("2026-02-02", 300, 3),
		snap("2026-02-07", 100, 1),
	}

	rep := Compare(history, 7, models.MustParseDate("2026-02-07"))

	require.NotNil(t, rep.Previous)
	assert.Equal(t, models.MustParseDate("2026-01-25"), rep.Previous.Start)
	assert.Equal(t, models.MustParseDate("2026-01-31"), rep.Previous.End)
	assert.Equal(t, 2, rep.Previous.DaysWithData)
	assert.Equal(t, int64(200), rep.Previous.TotalTokens)
	assert.Equal(t, int64(400), rep.TotalTokens)
	assert.InDelta(t, 100.0, rep.TokenChangePct, 1e-9)
	assert.InDelta(t, 100.0, rep.CostChangePct, 1e-9)
}

func TestPercentChange(t *testing.T) {
	assert.Zero(t, PercentChange(0, 0))
	assert.Equal(t, 100.0, PercentChange(0, 5))
	assert.InDelta(t, -50.0, PercentChange(10, 5), 1e-12)
	assert.InDelta(t, 25.0, PercentChange(4, 5), 1e-12)
}
