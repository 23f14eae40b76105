package models

import "time"

type RunStatus string

const (
	RunStatusPending  RunStatus = "pending"
	RunStatusCrawling RunStatus = "crawling"
	RunStatusSaving   RunStatus = "saving"
	RunStatusSuccess  RunStatus = "success"
	RunStatusPartial  RunStatus = "partial"
	RunStatusFailed   RunStatus = "failed"
)

// Terminal reports whether a run in this status will never change again.
func (s RunStatus) Terminal() bool {
	switch s {
	case RunStatusSuccess, RunStatusPartial, RunStatusFailed:
		return true
	}
	return false
}

type RunTrigger string

const (
	TriggerManual   RunTrigger = "manual"
	TriggerSchedule RunTrigger = "schedule"
	TriggerAPI      RunTrigger = "api"
)

// CrawlRun is one row of the run ledger: a single execution attempt of the
// crawl worker across one or more complexes. Rows are never deleted; the
// timeout estimator reads them back as history.
type CrawlRun struct {
	ID             string     `json:"id" db:"id"`
	ComplexNos     []string   `json:"complex_nos" db:"complex_nos"`
	TotalComplexes int        `json:"total_complexes" db:"total_complexes"`
	SuccessCount   int        `json:"success_count" db:"success_count"`
	ErrorCount     int        `json:"error_count" db:"error_count"`
	TotalArticles  int        `json:"total_articles" db:"total_articles"`
	DurationSec    int        `json:"duration_sec" db:"duration_sec"`
	Status         RunStatus  `json:"status" db:"status"`
	CurrentStep    string     `json:"current_step" db:"current_step"`
	ErrorMessage   string     `json:"error_message" db:"error_message"`
	TriggeredBy    RunTrigger `json:"triggered_by" db:"triggered_by"`
	ScheduleID     *string    `json:"schedule_id" db:"schedule_id"`
	UserID         string     `json:"user_id" db:"user_id"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	StartedAt      *time.Time `json:"started_at" db:"started_at"`
	FinishedAt     *time.Time `json:"finished_at" db:"finished_at"`
}

// RunStat is the slice of a finished run the timeout estimator cares about.
type RunStat struct {
	TotalComplexes int
	TotalArticles  int
	DurationSec    int
}
