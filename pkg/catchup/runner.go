package catchup

import (
	"context"
	"fmt"

	"github.com/pario-ai/tokmon/pkg/models"
)

// CycleFunc performs one cycle for one date.
type CycleFunc func(ctx context.Context, date models.Date) error

// DateResult is the outcome of one planned date.
type DateResult struct {
	Date models.Date
	Err  error
}

// Result describes one Run.
type Result struct {
	Planned []models.Date
	Results []DateResult
	// Failures holds one ErrCatchupCycle-wrapped error per failed date.
	Failures []error
	// State is the updated schedule state. LastRun advances only through the
	// leading run of successful dates.
	State models.ScheduleState
}

// Advanced reports whether Run moved the schedule marker.
func (r Result) Advanced(before *models.Date) bool {
	if r.State.LastRun == nil {
		return false
	}
	return before == nil || r.State.LastRun.After(*before)
}

// Succeeded returns the number of dates whose cycle completed.
func (r Result) Succeeded() int {
	n := 0
	for _, dr := range r.Results {
		if dr.Err == nil {
			n++
		}
	}
	return n
}

// Run executes cycle once per due date, oldest first. A failing date is
// recorded and the remaining dates still run. If ctx is done, the remaining
// dates are recorded as failed without running.
func Run(ctx context.Context, state models.ScheduleState, today models.Date, maxMakeupDays int, cycle CycleFunc) Result {
	res := Result{
		Planned: Plan(state.LastRun, today, maxMakeupDays),
		State:   state,
	}

	advancing := true
	for _, date := range res.Planned {
		var err error
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		} else {
			err = cycle(ctx, date)
		}

		res.Results = append(res.Results, DateResult{Date: date, Err: err})
		if err != nil {
			advancing = false
			res.Failures = append(res.Failures,
				fmt.Errorf("%s %s: %w: %w", state.Job, date, models.ErrCatchupCycle, err))
			continue
		}
		if advancing {
			d := date
			res.State.LastRun = &d
		}
	}
	return res
}
