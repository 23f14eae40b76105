package models

import (
	"encoding/json"
	"time"
)

type CommandType string

const (
	CmdCrawlNow        CommandType = "crawl_now"
	CmdRunSchedule     CommandType = "run_schedule"
	CmdReloadSchedules CommandType = "reload_schedules"
)

// Command is a row in the local SQLite command queue. A CLI invocation writes
// one; the running daemon picks it up on its 2-second poll.
type Command struct {
	ID          int64           `json:"id" db:"id"`
	Command     CommandType     `json:"command" db:"command"`
	Params      json.RawMessage `json:"params" db:"params"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	ProcessedAt *time.Time      `json:"processed_at" db:"processed_at"`
}

type CommandParams struct {
	ComplexNos []string `json:"complex_nos,omitempty"`
	ScheduleID string   `json:"schedule_id,omitempty"`
}
