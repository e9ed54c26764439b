package agent

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/pario-ai/tokmon/pkg/budget"
	"github.com/pario-ai/tokmon/pkg/config"
	"github.com/pario-ai/tokmon/pkg/models"
	"github.com/pario-ai/tokmon/pkg/notify"
	"github.com/pario-ai/tokmon/pkg/pricing"
	"github.com/pario-ai/tokmon/pkg/runlog"
	"github.com/pario-ai/tokmon/pkg/source"
	"github.com/pario-ai/tokmon/pkg/store"
)

// Runtime bundles an Agent with the resources it owns.
type Runtime struct {
	*Agent
	Config *config.Config
	Store  *store.SQLiteStore
	RunLog *runlog.Log
	Table  *pricing.Table
	// Sender is nil when no notification channel is enabled.
	Sender Sender
	// Budget is nil when no thresholds are configured.
	Budget *budget.Enforcer
}

// Build opens the store and run log and wires the adapters, notifiers and
// budget thresholds described by cfg. Call Close when done.
func Build(cfg *config.Config, logger *zap.Logger) (*Runtime, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	table, err := pricing.LoadOrDefault(cfg.Pricing.File)
	if err != nil {
		return nil, err
	}

	st, err := store.New(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	rl, err := runlog.New(cfg.RunLog, cfg.DBPath, logger.Named("runlog"))
	if err != nil {
		st.Close()
		return nil, err
	}

	loc := cfg.Location()
	today := func() models.Date { return models.Today(loc) }
	collector := source.NewCollector(source.FromConfig(cfg.Sources, today), cfg.Sources.Timeout, logger.Named("source"))

	var sender Sender
	if notifiers := notify.FromConfig(cfg.Notify, logger.Named("notify")); len(notifiers) > 0 {
		sender = notify.NewDispatcher(notifiers, cfg.Notify.MinInterval, logger.Named("notify"))
	}

	var enforcer *budget.Enforcer
	if len(cfg.Budget.Thresholds) > 0 {
		enforcer = budget.New(cfg.Budget.Thresholds, st)
	}

	a := New(collector, table, st, sender, rl, enforcer, Options{
		SnapshotEnabled: cfg.Snapshot.Enabled,
		NotifyEnabled:   cfg.Notify.Enabled,
		MaxMakeupDays:   cfg.Notify.MaxMakeupDays,
		MetricsTextfile: cfg.Metrics.Textfile,
	}, logger)

	return &Runtime{
		Agent:  a,
		Config: cfg,
		Store:  st,
		RunLog: rl,
		Table:  table,
		Sender: sender,
		Budget: enforcer,
	}, nil
}

// Today returns the current calendar day in the configured time zone.
func (r *Runtime) Today() models.Date {
	return models.Today(r.Config.Location())
}

// Close releases the run log and store.
func (r *Runtime) Close() error {
	return errors.Join(r.RunLog.Close(), r.Store.Close())
}
