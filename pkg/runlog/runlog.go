// Package runlog keeps a history of scheduled cycle attempts.
package runlog

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/pario-ai/tokmon/pkg/models"
)

// Log writes and queries cycle runs in SQLite.
type Log struct {
	db     *sql.DB
	cfg    models.RunLogConfig
	logger *zap.Logger
	now    func() time.Time
	done   chan struct{}
	wg     sync.WaitGroup
}

// New opens the run log database at dbPath, creates the schema and starts
// the retention goroutine when a retention period is configured.
func New(cfg models.RunLogConfig, dbPath string, logger *zap.Logger) (*Log, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open runlog db: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate runlog db: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	l := &Log{
		db:     db,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
		done:   make(chan struct{}),
	}

	if cfg.RetentionDays > 0 {
		l.wg.Add(1)
		go l.retentionLoop()
	}
	return l, nil
}

func migrate(db *sql.DB) error {
	for _, stmt := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		`CREATE TABLE IF NOT EXISTS cycle_runs (
			id          TEXT PRIMARY KEY,
			job         TEXT NOT NULL,
			date        TEXT NOT NULL,
			status      TEXT NOT NULL,
			error       TEXT,
			started_at  DATETIME NOT NULL,
			duration_ms INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_cycle_runs_job ON cycle_runs(job, started_at)`,
		`CREATE INDEX IF NOT EXISTS idx_cycle_runs_started ON cycle_runs(started_at)`,
	} {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Record stores a cycle run. An empty ID is filled with a new UUID, which
// is also returned.
func (l *Log) Record(ctx context.Context, run models.CycleRun) (string, error) {
	if l == nil || l.db == nil || !l.cfg.Enabled {
		return run.ID, nil
	}
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = l.now()
	}

	_, err := l.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO cycle_runs (id, job, date, status, error, started_at, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Job, run.Date.String(), string(run.Status), run.Error,
		run.StartedAt.UTC(), run.Duration.Milliseconds(),
	)
	if err != nil {
		return "", fmt.Errorf("record cycle run: %w", err)
	}
	return run.ID, nil
}

// Query returns cycle runs matching opts, newest first.
func (l *Log) Query(ctx context.Context, opts models.RunQueryOpts) ([]models.CycleRun, error) {
	q := `SELECT id, job, date, status, error, started_at, duration_ms
		FROM cycle_runs WHERE 1=1`
	var args []any

	if opts.Job != "" {
		q += " AND job = ?"
		args = append(args, opts.Job)
	}
	if opts.Status != "" {
		q += " AND status = ?"
		args = append(args, string(opts.Status))
	}
	if !opts.Since.IsZero() {
		q += " AND started_at >= ?"
		args = append(args, opts.Since.UTC())
	}

	q += " ORDER BY started_at DESC"

	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}
	q += " LIMIT ?"
	args = append(args, limit)

	rows, err := l.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query cycle runs: %w", err)
	}
	defer rows.Close()

	var runs []models.CycleRun
	for rows.Next() {
		var (
			r        models.CycleRun
			date     string
			status   string
			errText  sql.NullString
			duration int64
		)
		if err := rows.Scan(&r.ID, &r.Job, &date, &status, &errText, &r.StartedAt, &duration); err != nil {
			return nil, fmt.Errorf("scan cycle run: %w", err)
		}
		if r.Date, err = models.ParseDate(date); err != nil {
			return nil, fmt.Errorf("scan cycle run: %w", err)
		}
		r.Status = models.CycleStatus(status)
		r.Error = errText.String
		r.Duration = time.Duration(duration) * time.Millisecond
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Cleanup deletes runs older than the retention period.
func (l *Log) Cleanup(ctx context.Context) (int64, error) {
	if l.cfg.RetentionDays <= 0 {
		return 0, nil
	}
	cutoff := l.now().AddDate(0, 0, -l.cfg.RetentionDays).UTC()
	res, err := l.db.ExecContext(ctx, `DELETE FROM cycle_runs WHERE started_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("runlog cleanup: %w", err)
	}
	return res.RowsAffected()
}

// Close stops the retention goroutine and closes the database.
func (l *Log) Close() error {
	close(l.done)
	l.wg.Wait()
	return l.db.Close()
}

func (l *Log) retentionLoop() {
	defer l.wg.Done()
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-l.done:
			return
		case <-ticker.C:
			n, err := l.Cleanup(context.Background())
			if err != nil {
				l.logger.Warn("runlog cleanup failed", zap.Error(err))
				continue
			}
			if n > 0 {
				l.logger.Debug("runlog cleanup", zap.Int64("deleted", n))
			}
		}
	}
}
