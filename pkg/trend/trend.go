// Package trend summarizes snapshot history over windows of calendar days.
package trend

import (
	"sort"

	"github.com/pario-ai/tokmon/pkg/models"
)

// DefaultWindow is the window used when callers pass a non-positive size.
const DefaultWindow = 7

// Analyze reports on the window days ending at the most recent snapshot.
func Analyze(history []models.Snapshot, window int) models.TrendReport {
	var end models.Date
	for _, s := range history {
		if end.IsZero() || s.Date.After(end) {
			end = s.Date
		}
	}
	if end.IsZero() {
		return models.TrendReport{WindowDays: normWindow(window)}
	}
	return AnalyzeEnding(history, window, end)
}

// AnalyzeEnding reports on the window days ending at end. Snapshots outside
// the window are ignored and missing days are not filled with zeros.
func AnalyzeEnding(history []models.Snapshot, window int, end models.Date) models.TrendReport {
	window = normWindow(window)
	included := inRange(history, models.LastDays(end, window))

	rep := models.TrendReport{
		WindowDays:   window,
		PeriodTotals: totals(included, models.LastDays(end, window)),
	}
	if rep.DaysWithData > 0 {
		n := float64(rep.DaysWithData)
		rep.AvgTokensPerDay = float64(rep.TotalTokens) / n
		rep.AvgCostPerDay = rep.TotalCost / n
	}
	if len(included) >= 2 {
		prev, cur := included[len(included)-2], included[len(included)-1]
		rep.DayOverDay = delta(prev, cur)
	}
	return rep
}

// Compare is AnalyzeEnding plus the totals of the window immediately before
// it and the percent change between the two.
func Compare(history []models.Snapshot, window int, end models.Date) models.TrendReport {
	window = normWindow(window)
	rep := AnalyzeEnding(history, window, end)

	prevRange := models.LastDays(end.AddDays(-window), window)
	prev := totals(inRange(history, prevRange), prevRange)
	rep.Previous = &prev
	rep.TokenChangePct = PercentChange(float64(prev.TotalTokens), float64(rep.TotalTokens))
	rep.CostChangePct = PercentChange(prev.TotalCost, rep.TotalCost)
	return rep
}

// PercentChange returns the change from prev to cur in percent. It is 0 when
// both are zero and 100 when only prev is zero.
func PercentChange(prev, cur float64) float64 {
	if prev == 0 {
		if cur == 0 {
			return 0
		}
		return 100
	}
	return (cur - prev) / prev * 100
}

func normWindow(window int) int {
	if window < 1 {
		return DefaultWindow
	}
	return window
}

// inRange returns the snapshots in r sorted by date, keeping the last one
// seen for any duplicated date.
func inRange(history []models.Snapshot, r models.DateRange) []models.Snapshot {
	byDate := make(map[models.Date]models.Snapshot)
	for _, s := range history {
		if r.Contains(s.Date) {
			byDate[s.Date] = s
		}
	}
	out := make([]models.Snapshot, 0, len(byDate))
	for _, s := range byDate {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

func totals(snaps []models.Snapshot, r models.DateRange) models.PeriodTotals {
	pt := models.PeriodTotals{Start: r.From, End: r.To, DaysWithData: len(snaps)}
	for _, s := range snaps {
		pt.Tokens = pt.Tokens.Add(s.Usage.Totals())
		pt.TotalCost += s.Cost.TotalCost
	}
	pt.TotalTokens = pt.Tokens.Total()
	return pt
}

func delta(prev, cur models.Snapshot) *models.DayDelta {
	prevTokens, curTokens := prev.Usage.Totals(), cur.Usage.Totals()
	return &models.DayDelta{
		From:        prev.Date,
		To:          cur.Date,
		Tokens:      curTokens.Sub(prevTokens),
		TotalTokens: curTokens.Total() - prevTokens.Total(),
		Cost:        cur.Cost.TotalCost - prev.Cost.TotalCost,
		TokenPct:    PercentChange(float64(prevTokens.Total()), float64(curTokens.Total())),
		CostPct:     PercentChange(prev.Cost.TotalCost, cur.Cost.TotalCost),
	}
}
