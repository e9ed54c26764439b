// Package agent runs tokmon's capture and scheduled report cycles.
package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/pario-ai/tokmon/pkg/budget"
	"github.com/pario-ai/tokmon/pkg/catchup"
	"github.com/pario-ai/tokmon/pkg/models"
	"github.com/pario-ai/tokmon/pkg/normalize"
	"github.com/pario-ai/tokmon/pkg/notify"
	"github.com/pario-ai/tokmon/pkg/pricing"
	"github.com/pario-ai/tokmon/pkg/render"
	"github.com/pario-ai/tokmon/pkg/source"
	"github.com/pario-ai/tokmon/pkg/store"
)

// Sender delivers notifications.
type Sender interface {
	Send(ctx context.Context, msg notify.Message) error
}

// RunRecorder persists cycle attempts.
type RunRecorder interface {
	Record(ctx context.Context, run models.CycleRun) (string, error)
}

// Options controls which jobs run and how far notifications catch up.
type Options struct {
	SnapshotEnabled bool
	NotifyEnabled   bool
	MaxMakeupDays   int
	// MetricsTextfile, if set, is rewritten after every scheduled run.
	MetricsTextfile string
}

// Agent wires the collector, pricing table, store and notifiers together.
type Agent struct {
	collector *source.Collector
	table     *pricing.Table
	store     store.Store
	sender    Sender
	runs      RunRecorder
	budget    *budget.Enforcer
	metrics   *Metrics
	opts      Options
	logger    *zap.Logger
	now       func() time.Time
}

// New creates an Agent. sender, runs and enforcer may be nil.
func New(collector *source.Collector, table *pricing.Table, st store.Store, sender Sender,
	runs RunRecorder, enforcer *budget.Enforcer, opts Options, logger *zap.Logger) *Agent {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Agent{
		collector: collector,
		table:     table,
		store:     st,
		sender:    sender,
		runs:      runs,
		budget:    enforcer,
		metrics:   NewMetrics(),
		opts:      opts,
		logger:    logger,
		now:       time.Now,
	}
}

// Metrics returns the agent's collectors.
func (a *Agent) Metrics() *Metrics { return a.metrics }

// Measure collects from every source and prices the result without
// persisting it.
func (a *Agent) Measure(ctx context.Context, date models.Date) (models.Snapshot, []source.Status) {
	col := a.collector.Collect(ctx)
	a.metrics.ObserveCollection(col.Statuses)

	usage := normalize.Normalize(col.Records, col.Expected()...)
	if err := usage.Validate(); err != nil {
		a.logger.Warn("usage breakdown mismatch", zap.Error(err))
	}
	cost := pricing.Estimate(usage, a.table)
	for _, u := range cost.Unpriced {
		a.logger.Warn("model has no price entry",
			zap.String("source", string(u.Source)),
			zap.String("model", u.Model),
			zap.Error(models.ErrUnpricedModel),
		)
	}
	return models.Snapshot{
		Date:       date,
		Usage:      usage,
		Cost:       cost,
		CapturedAt: a.now(),
	}, col.Statuses
}

// Capture measures current usage and stores it as the snapshot for date,
// replacing any earlier snapshot of that day.
func (a *Agent) Capture(ctx context.Context, date models.Date) (models.Snapshot, error) {
	snap, _ := a.Measure(ctx, date)
	if err := a.store.Put(ctx, snap); err != nil {
		return snap, fmt.Errorf("capture snapshot: %w", err)
	}
	a.metrics.ObserveSnapshot(snap)
	a.logger.Info("snapshot captured",
		zap.Stringer("date", date),
		zap.Int64("tokens", snap.TotalTokens()),
		zap.Float64("cost_usd", snap.Cost.TotalCost),
		zap.Int("missing_sources", len(snap.Usage.Missing)),
	)
	return snap, nil
}

// Report renders the daily report for date from stored snapshots.
func (a *Agent) Report(ctx context.Context, date models.Date, catchUp bool) (string, error) {
	snap, err := a.store.Get(ctx, date)
	if err != nil {
		return "", fmt.Errorf("load snapshot: %w", err)
	}
	prev, err := a.previous(ctx, date)
	if err != nil {
		return "", err
	}
	return render.DailyReport(render.Report{
		Date:        date,
		Snapshot:    snap,
		Previous:    prev,
		CatchUp:     catchUp,
		GeneratedAt: a.now(),
	}), nil
}

// previous returns the latest snapshot strictly before date.
func (a *Agent) previous(ctx context.Context, date models.Date) (*models.Snapshot, error) {
	snaps, err := a.store.List(ctx, models.DateRange{To: date.AddDays(-1)})
	if err != nil {
		return nil, fmt.Errorf("load previous snapshot: %w", err)
	}
	if len(snaps) == 0 {
		return nil, nil
	}
	return &snaps[len(snaps)-1], nil
}

// Outcome is the result of one RunScheduled call.
type Outcome struct {
	Snapshot *catchup.Result
	Notify   *catchup.Result
	Alerts   []models.BudgetStatus
	// AlertErr is set when the budget check or the alert delivery failed.
	AlertErr error
}

// Failed reports whether any cycle or the cost alert failed.
func (o Outcome) Failed() bool {
	return (o.Snapshot != nil && len(o.Snapshot.Failures) > 0) ||
		(o.Notify != nil && len(o.Notify.Failures) > 0) ||
		o.AlertErr != nil
}

// snapshotLost reports whether res holds a persistence failure for date.
func snapshotLost(res *catchup.Result, date models.Date) bool {
	if res == nil {
		return false
	}
	for _, dr := range res.Results {
		if dr.Date == date && errors.Is(dr.Err, models.ErrPersistence) {
			return true
		}
	}
	return false
}

// RunScheduled is the scheduled entry point. It captures today's snapshot
// if that has not happened yet, sends a cost alert once per day when a
// threshold is exceeded, and sends the daily report for every due date.
// Each job's marker is persisted only after it advances. If today's
// snapshot could not be stored, today's report fails too so it is sent
// again once a snapshot exists. The returned error covers marker
// persistence failures; per-date failures are in the Outcome.
func (a *Agent) RunScheduled(ctx context.Context, today models.Date) (Outcome, error) {
	var out Outcome

	if a.opts.SnapshotEnabled {
		// Past usage cannot be re-measured, so the snapshot job only ever
		// plans today.
		res, err := a.runJob(ctx, models.JobSnapshot, today, 1, func(ctx context.Context, date models.Date) error {
			_, err := a.Capture(ctx, date)
			return err
		})
		out.Snapshot = &res
		if err != nil {
			return out, err
		}
	}

	if a.budget != nil {
		alerts, err := a.alert(ctx, today)
		if err != nil {
			a.logger.Error("cost alert failed", zap.Error(err))
		}
		out.Alerts = alerts
		out.AlertErr = err
	}

	if a.opts.NotifyEnabled && a.sender != nil {
		lost := snapshotLost(out.Snapshot, today)
		res, err := a.runJob(ctx, models.JobNotify, today, a.opts.MaxMakeupDays, func(ctx context.Context, date models.Date) error {
			if lost && date == today {
				return fmt.Errorf("report %s: snapshot not stored: %w", date, models.ErrPersistence)
			}
			return a.sendReport(ctx, date, date != today)
		})
		out.Notify = &res
		if err != nil {
			return out, err
		}
	}

	if a.opts.MetricsTextfile != "" {
		if err := a.metrics.WriteTextfile(a.opts.MetricsTextfile); err != nil {
			a.logger.Warn("metrics export failed", zap.Error(err))
		}
	}
	return out, nil
}

func (a *Agent) runJob(ctx context.Context, job string, today models.Date, maxMakeupDays int, cycle catchup.CycleFunc) (catchup.Result, error) {
	last, err := a.store.LastRun(ctx, job)
	if err != nil {
		return catchup.Result{}, fmt.Errorf("load %s marker: %w", job, err)
	}
	state := models.ScheduleState{Job: job, LastRun: last}

	res := catchup.Run(ctx, state, today, maxMakeupDays, a.recorded(job, cycle))
	for _, f := range res.Failures {
		a.logger.Error("cycle failed", zap.String("job", job), zap.Error(f))
	}

	if res.Advanced(last) {
		if err := a.store.SetLastRun(ctx, job, *res.State.LastRun); err != nil {
			return res, fmt.Errorf("save %s marker: %w", job, err)
		}
		a.metrics.ObserveMarker(job, *res.State.LastRun)
	}
	if len(res.Planned) > 0 {
		a.logger.Info("scheduled job finished",
			zap.String("job", job),
			zap.Int("planned", len(res.Planned)),
			zap.Int("succeeded", res.Succeeded()),
			zap.Int("failed", len(res.Failures)),
		)
	}
	return res, nil
}

// recorded wraps cycle so every attempt lands in the run log and metrics.
func (a *Agent) recorded(job string, cycle catchup.CycleFunc) catchup.CycleFunc {
	return func(ctx context.Context, date models.Date) error {
		start := a.now()
		err := cycle(ctx, date)

		run := models.CycleRun{
			Job:       job,
			Date:      date,
			Status:    models.CycleSucceeded,
			StartedAt: start,
			Duration:  a.now().Sub(start),
		}
		if err != nil {
			run.Status = models.CycleFailed
			run.Error = err.Error()
		}
		a.metrics.ObserveCycle(job, run.Status)
		if a.runs != nil {
			if _, rerr := a.runs.Record(context.WithoutCancel(ctx), run); rerr != nil {
				a.logger.Warn("record cycle run failed", zap.String("job", job), zap.Error(rerr))
			}
		}
		return err
	}
}

func (a *Agent) sendReport(ctx context.Context, date models.Date, catchUp bool) error {
	text, err := a.Report(ctx, date, catchUp)
	if err != nil {
		return err
	}
	return a.sender.Send(ctx, notify.Message{
		Kind:    notify.KindReport,
		Date:    date,
		Subject: render.ReportTitle,
		Body:    text,
	})
}

// alert sends one cost alert per day for exceeded thresholds.
func (a *Agent) alert(ctx context.Context, today models.Date) ([]models.BudgetStatus, error) {
	statuses, err := a.budget.Status(ctx, today)
	if err != nil {
		return nil, err
	}
	exceeded := budget.Exceeded(statuses)
	if len(exceeded) == 0 || a.sender == nil {
		return exceeded, nil
	}

	last, err := a.store.LastRun(ctx, models.JobAlert)
	if err != nil {
		return exceeded, err
	}
	if last != nil && !last.Before(today) {
		return exceeded, nil
	}

	err = a.sender.Send(ctx, notify.Message{
		Kind:    notify.KindAlert,
		Date:    today,
		Subject: "Token Monitor cost alert",
		Body:    render.Alert(today, exceeded),
	})
	if err != nil {
		return exceeded, fmt.Errorf("send cost alert: %w", err)
	}
	if err := a.store.SetLastRun(ctx, models.JobAlert, today); err != nil {
		return exceeded, err
	}
	return exceeded, nil
}

// IsPersistence reports whether err came from the snapshot store.
func IsPersistence(err error) bool {
	return errors.Is(err, models.ErrPersistence)
}
