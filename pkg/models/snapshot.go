package models

import "time"

// Snapshot is the persisted record of one calendar day's usage and cost.
type Snapshot struct {
	Date       Date            `json:"date"`
	Usage      NormalizedUsage `json:"usage"`
	Cost       CostBreakdown   `json:"cost"`
	CapturedAt time.Time       `json:"captured_at"`
}

// TotalTokens returns the snapshot's aggregate token count across sources.
func (s Snapshot) TotalTokens() int64 {
	return s.Usage.Totals().Total()
}
