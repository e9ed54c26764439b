// Package budget checks estimated cost against configured thresholds.
package budget

import (
	"context"
	"errors"
	"fmt"

	"github.com/pario-ai/tokmon/pkg/models"
)

// ErrBudgetExceeded is returned by Check when any threshold is exceeded.
var ErrBudgetExceeded = errors.New("budget exceeded")

// SnapshotReader is the part of the snapshot store the enforcer needs.
type SnapshotReader interface {
	Get(ctx context.Context, date models.Date) (*models.Snapshot, error)
	List(ctx context.Context, r models.DateRange) ([]models.Snapshot, error)
}

// Enforcer evaluates cost thresholds.
type Enforcer struct {
	thresholds []models.BudgetThreshold
	store      SnapshotReader
}

// New creates an Enforcer. store may be nil when only Evaluate is used.
func New(thresholds []models.BudgetThreshold, store SnapshotReader) *Enforcer {
	return &Enforcer{thresholds: thresholds, store: store}
}

// Evaluate checks every threshold against a single cost breakdown, such as
// one just estimated from live usage. The period is not consulted.
func (e *Enforcer) Evaluate(cost models.CostBreakdown) []models.BudgetStatus {
	statuses := make([]models.BudgetStatus, 0, len(e.thresholds))
	for _, t := range e.thresholds {
		statuses = append(statuses, status(t, spentFrom(t, cost)))
	}
	return statuses
}

// Status checks every threshold against stored snapshots ending at today.
// Daily thresholds use today's snapshot; weekly thresholds sum the last
// seven days that have one.
func (e *Enforcer) Status(ctx context.Context, today models.Date) ([]models.BudgetStatus, error) {
	if e.store == nil {
		return nil, fmt.Errorf("budget status: no snapshot store")
	}
	statuses := make([]models.BudgetStatus, 0, len(e.thresholds))
	for _, t := range e.thresholds {
		var spent float64
		switch t.Period {
		case models.BudgetWeekly:
			snaps, err := e.store.List(ctx, models.LastDays(today, 7))
			if err != nil {
				return nil, fmt.Errorf("budget status: %w", err)
			}
			for _, s := range snaps {
				spent += spentFrom(t, s.Cost)
			}
		default: // daily
			snap, err := e.store.Get(ctx, today)
			if err != nil {
				return nil, fmt.Errorf("budget status: %w", err)
			}
			if snap != nil {
				spent = spentFrom(t, snap.Cost)
			}
		}
		statuses = append(statuses, status(t, spent))
	}
	return statuses, nil
}

// Check returns ErrBudgetExceeded, naming the thresholds, if any stored
// total is at or above its limit.
func (e *Enforcer) Check(ctx context.Context, today models.Date) error {
	statuses, err := e.Status(ctx, today)
	if err != nil {
		return err
	}
	if over := Exceeded(statuses); len(over) > 0 {
		return fmt.Errorf("%w: %s", ErrBudgetExceeded, over[0].Threshold.Name)
	}
	return nil
}

// Exceeded filters statuses down to the exceeded ones.
func Exceeded(statuses []models.BudgetStatus) []models.BudgetStatus {
	var out []models.BudgetStatus
	for _, s := range statuses {
		if s.Exceeded {
			out = append(out, s)
		}
	}
	return out
}

func spentFrom(t models.BudgetThreshold, cost models.CostBreakdown) float64 {
	if t.Source != "" {
		return cost.BySource[t.Source]
	}
	return cost.TotalCost
}

func status(t models.BudgetThreshold, spent float64) models.BudgetStatus {
	remaining := t.MaxCost - spent
	if remaining < 0 {
		remaining = 0
	}
	return models.BudgetStatus{
		Threshold: t,
		Spent:     spent,
		Remaining: remaining,
		Exceeded:  spent >= t.MaxCost,
	}
}
