package models

import "time"

// CycleStatus is the outcome of one scheduled cycle.
type CycleStatus string

const (
	CycleSucceeded CycleStatus = "succeeded"
	CycleFailed    CycleStatus = "failed"
)

// CycleRun records one attempt of a scheduled job for one date.
type CycleRun struct {
	ID        string        `json:"id"`
	Job       string        `json:"job"`
	Date      Date          `json:"date"`
	Status    CycleStatus   `json:"status"`
	Error     string        `json:"error,omitempty"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
}

// RunLogConfig controls the run log.
type RunLogConfig struct {
	Enabled       bool `yaml:"enabled"`
	RetentionDays int  `yaml:"retention_days"`
}

// RunQueryOpts specifies filters for querying cycle runs.
type RunQueryOpts struct {
	Job    string
	Status CycleStatus
	Since  time.Time
	Limit  int
}
