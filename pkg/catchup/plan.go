// Package catchup decides which scheduled cycles are due and runs them in
// order, recovering a bounded number of missed days.
package catchup

import "github.com/pario-ai/tokmon/pkg/models"

// DefaultMaxMakeupDays bounds how many days a single run will recover.
const DefaultMaxMakeupDays = 3

// Plan returns the dates that need a cycle, oldest first.
//
// A job that has never run is due today only. Otherwise the due dates are
// the most recent min(gap, maxMakeupDays) days ending at today, where gap is
// the number of whole days since lastRun. A lastRun of today or later (the
// clock moved backwards) means nothing is due. maxMakeupDays below 1 is
// treated as 1.
func Plan(lastRun *models.Date, today models.Date, maxMakeupDays int) []models.Date {
	if lastRun == nil {
		return []models.Date{today}
	}
	gap := today.DaysSince(*lastRun)
	if gap <= 0 {
		return nil
	}
	if maxMakeupDays < 1 {
		maxMakeupDays = 1
	}
	n := min(gap, maxMakeupDays)
	dates := make([]models.Date, 0, n)
	for i := n - 1; i >= 0; i-- {
		dates = append(dates, today.AddDays(-i))
	}
	return dates
}
