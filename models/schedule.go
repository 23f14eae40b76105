package models

import "time"

// Schedule is a recurring crawl trigger. Either a fixed complex list or, when
// UseFavorites is set, the owner's current favorite set resolved at fire time.
type Schedule struct {
	ID           string     `json:"id" db:"id"`
	Name         string     `json:"name" db:"name"`
	ComplexNos   []string   `json:"complex_nos" db:"complex_nos"`
	UseFavorites bool       `json:"use_favorites" db:"use_favorites"`
	CronExpr     string     `json:"cron_expr" db:"cron_expr"`
	IsActive     bool       `json:"is_active" db:"is_active"`
	UserID       string     `json:"user_id" db:"user_id"`
	LastRun      *time.Time `json:"last_run" db:"last_run"`
	NextRun      *time.Time `json:"next_run" db:"next_run"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
}

type ScheduleLogStatus string

const (
	ScheduleLogSuccess ScheduleLogStatus = "success"
	ScheduleLogFailed  ScheduleLogStatus = "failed"
)

// ScheduleLog is one append-only audit row per firing. Never mutated.
type ScheduleLog struct {
	ID            int64             `json:"id" db:"id"`
	ScheduleID    string            `json:"schedule_id" db:"schedule_id"`
	Status        ScheduleLogStatus `json:"status" db:"status"`
	DurationSec   int               `json:"duration_sec" db:"duration_sec"`
	ArticlesCount int               `json:"articles_count" db:"articles_count"`
	ErrorMessage  string            `json:"error_message" db:"error_message"`
	ExecutedAt    time.Time         `json:"executed_at" db:"executed_at"`
}
