package models

// Scheduled jobs with independent run markers.
const (
	JobSnapshot = "snapshot"
	JobNotify   = "notify"
	// JobAlert marks the last day a cost alert was sent, so it fires once per day.
	JobAlert = "alert"
)

// ScheduleState is the run marker of one scheduled job.
type ScheduleState struct {
	Job     string `json:"job"`
	LastRun *Date  `json:"last_run,omitempty"`
}
