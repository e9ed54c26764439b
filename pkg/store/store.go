// Package store persists daily snapshots and schedule markers in SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/pario-ai/tokmon/pkg/models"
)

// Store records and queries daily snapshots and schedule markers.
type Store interface {
	// Put stores a snapshot, replacing any existing one for the same date.
	Put(ctx context.Context, snap models.Snapshot) error
	// Get returns the snapshot for a date, or nil if none exists.
	Get(ctx context.Context, date models.Date) (*models.Snapshot, error)
	// List returns snapshots within r in ascending date order.
	List(ctx context.Context, r models.DateRange) ([]models.Snapshot, error)
	// Latest returns the most recent snapshot, or nil if the store is empty.
	Latest(ctx context.Context) (*models.Snapshot, error)
	// LastRun returns the last successful run date for a job, or nil.
	LastRun(ctx context.Context, job string) (*models.Date, error)
	// SetLastRun records the last successful run date for a job.
	SetLastRun(ctx context.Context, job string, date models.Date) error
	// Close releases resources.
	Close() error
}

// SQLiteStore implements Store with a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

const createSnapshots = `
CREATE TABLE IF NOT EXISTS snapshots (
	date TEXT PRIMARY KEY,
	usage TEXT NOT NULL,
	cost TEXT NOT NULL,
	total_tokens INTEGER NOT NULL DEFAULT 0,
	total_cost REAL NOT NULL DEFAULT 0,
	captured_at DATETIME NOT NULL
);
`

const createScheduleState = `
CREATE TABLE IF NOT EXISTS schedule_state (
	job TEXT PRIMARY KEY,
	last_run TEXT NOT NULL,
	updated_at DATETIME NOT NULL
);
`

var pragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA busy_timeout=5000",
	"PRAGMA synchronous=NORMAL",
}

// New opens the SQLite database at dbPath and runs auto-migration.
func New(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, persistErr("open store db", err)
	}

	// SQLite allows one writer; a single connection keeps the pragmas in effect.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, persistErr("set pragma", err)
		}
	}

	if _, err := db.Exec(createSnapshots); err != nil {
		db.Close()
		return nil, persistErr("migrate snapshots table", err)
	}
	if _, err := db.Exec(createScheduleState); err != nil {
		db.Close()
		return nil, persistErr("migrate schedule_state table", err)
	}

	return &SQLiteStore{db: db}, nil
}

func persistErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, models.ErrPersistence, err)
}

// Put upserts a snapshot in one statement, so a failed write leaves the
// previous row intact.
func (s *SQLiteStore) Put(ctx context.Context, snap models.Snapshot) error {
	if snap.Date.IsZero() {
		return fmt.Errorf("put snapshot: %w: zero date", models.ErrPersistence)
	}
	usage, err := json.Marshal(snap.Usage)
	if err != nil {
		return persistErr("encode snapshot usage", err)
	}
	cost, err := json.Marshal(snap.Cost)
	if err != nil {
		return persistErr("encode snapshot cost", err)
	}
	captured := snap.CapturedAt
	if captured.IsZero() {
		captured = time.Now()
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO snapshots (date, usage, cost, total_tokens, total_cost, captured_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(date) DO UPDATE SET
			usage = excluded.usage,
			cost = excluded.cost,
			total_tokens = excluded.total_tokens,
			total_cost = excluded.total_cost,
			captured_at = excluded.captured_at`,
		snap.Date.String(), string(usage), string(cost),
		snap.TotalTokens(), snap.Cost.TotalCost, captured.UTC(),
	)
	if err != nil {
		return persistErr("put snapshot", err)
	}
	return nil
}

const selectSnapshot = `SELECT date, usage, cost, captured_at FROM snapshots`

// Get returns the snapshot for date, or nil if none exists.
func (s *SQLiteStore) Get(ctx context.Context, date models.Date) (*models.Snapshot, error) {
	row := s.db.QueryRowContext(ctx, selectSnapshot+` WHERE date = ?`, date.String())
	snap, err := scanSnapshot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, persistErr("get snapshot", err)
	}
	return snap, nil
}

// List returns snapshots in r, ascending by date. Days without a snapshot
// are simply absent.
func (s *SQLiteStore) List(ctx context.Context, r models.DateRange) ([]models.Snapshot, error) {
	query := selectSnapshot + ` WHERE 1=1`
	var args []any
	if !r.From.IsZero() {
		query += ` AND date >= ?`
		args = append(args, r.From.String())
	}
	if !r.To.IsZero() {
		query += ` AND date <= ?`
		args = append(args, r.To.String())
	}
	query += ` ORDER BY date ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, persistErr("list snapshots", err)
	}
	defer rows.Close()

	var snaps []models.Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, persistErr("scan snapshot", err)
		}
		snaps = append(snaps, *snap)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("list snapshots", err)
	}
	return snaps, nil
}

// Latest returns the most recent snapshot, or nil if the store is empty.
func (s *SQLiteStore) Latest(ctx context.Context) (*models.Snapshot, error) {
	row := s.db.QueryRowContext(ctx, selectSnapshot+` ORDER BY date DESC LIMIT 1`)
	snap, err := scanSnapshot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, persistErr("latest snapshot", err)
	}
	return snap, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(sc scanner) (*models.Snapshot, error) {
	var (
		date, usage, cost string
		snap              models.Snapshot
	)
	if err := sc.Scan(&date, &usage, &cost, &snap.CapturedAt); err != nil {
		return nil, err
	}
	d, err := models.ParseDate(date)
	if err != nil {
		return nil, err
	}
	snap.Date = d
	if err := json.Unmarshal([]byte(usage), &snap.Usage); err != nil {
		return nil, fmt.Errorf("decode usage for %s: %w", date, err)
	}
	if err := json.Unmarshal([]byte(cost), &snap.Cost); err != nil {
		return nil, fmt.Errorf("decode cost for %s: %w", date, err)
	}
	return &snap, nil
}

// LastRun returns the last successful run date for job, or nil if the job
// has never completed.
func (s *SQLiteStore) LastRun(ctx context.Context, job string) (*models.Date, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT last_run FROM schedule_state WHERE job = ?`, job,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, persistErr("read last run", err)
	}
	d, err := models.ParseDate(raw)
	if err != nil {
		return nil, persistErr("read last run", err)
	}
	return &d, nil
}

// SetLastRun records date as the last successful run for job.
func (s *SQLiteStore) SetLastRun(ctx context.Context, job string, date models.Date) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO schedule_state (job, last_run, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(job) DO UPDATE SET last_run = excluded.last_run, updated_at = excluded.updated_at`,
		job, date.String(), time.Now().UTC(),
	)
	if err != nil {
		return persistErr("set last run", err)
	}
	return nil
}

// Close releases the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
