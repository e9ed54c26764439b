package models

// DayDelta compares the two most recent snapshots in a window.
type DayDelta struct {
	From        Date        `json:"from"`
	To          Date        `json:"to"`
	Tokens      TokenCounts `json:"tokens"`
	TotalTokens int64       `json:"total_tokens"`
	Cost        float64     `json:"cost"`
	TokenPct    float64     `json:"token_change_pct"`
	CostPct     float64     `json:"cost_change_pct"`
}

// PeriodTotals summarizes one window of snapshots.
type PeriodTotals struct {
	Start        Date        `json:"start"`
	End          Date        `json:"end"`
	DaysWithData int         `json:"days_with_data"`
	Tokens       TokenCounts `json:"tokens"`
	TotalTokens  int64       `json:"total_tokens"`
	TotalCost    float64     `json:"total_cost"`
}

// TrendReport aggregates snapshot history over a window of calendar days.
type TrendReport struct {
	WindowDays int `json:"window_days"`
	PeriodTotals

	AvgTokensPerDay float64 `json:"avg_tokens_per_day"`
	AvgCostPerDay   float64 `json:"avg_cost_per_day"`

	DayOverDay *DayDelta `json:"day_over_day,omitempty"`

	// Previous is set by trend.Compare.
	Previous       *PeriodTotals `json:"previous,omitempty"`
	TokenChangePct float64       `json:"token_change_pct"`
	CostChangePct  float64       `json:"cost_change_pct"`
}
