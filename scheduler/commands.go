package scheduler

import (
	"context"
	"log"
	"time"

	"danji_watch/crawler"
	"danji_watch/models"
)

// CommandQueue is the local queue the CLI writes into.
type CommandQueue interface {
	GetPendingCommands() ([]models.Command, error)
	MarkCommandProcessed(id int64) error
	ParseCommandParams(cmd *models.Command) (*models.CommandParams, error)
}

// PollCommands drains the local command queue on an interval until the
// context is cancelled. Each command is marked processed whether it succeeded
// or not; a broken command should not wedge the queue.
func (e *Engine) PollCommands(ctx context.Context, queue CommandQueue, userID string, interval time.Duration) {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.drainCommands(ctx, queue, userID)
		}
	}
}

func (e *Engine) drainCommands(ctx context.Context, queue CommandQueue, userID string) {
	cmds, err := queue.GetPendingCommands()
	if err != nil {
		log.Printf("command poll: %v", err)
		return
	}
	for i := range cmds {
		cmd := &cmds[i]
		e.handleCommand(ctx, queue, cmd, userID)
		if err := queue.MarkCommandProcessed(cmd.ID); err != nil {
			log.Printf("command %d: mark processed: %v", cmd.ID, err)
		}
	}
}

func (e *Engine) handleCommand(ctx context.Context, queue CommandQueue, cmd *models.Command, userID string) {
	params, err := queue.ParseCommandParams(cmd)
	if err != nil {
		log.Printf("command %d (%s): bad params: %v", cmd.ID, cmd.Command, err)
		return
	}

	switch cmd.Command {
	case models.CmdCrawlNow:
		if len(params.ComplexNos) == 0 {
			log.Printf("command %d: crawl_now without targets, ignoring", cmd.ID)
			return
		}
		runID, err := e.trigger.Submit(ctx, crawler.SubmitRequest{
			ComplexNos:  params.ComplexNos,
			TriggeredBy: models.TriggerManual,
			UserID:      userID,
		})
		if err != nil {
			log.Printf("command %d: crawl_now: %v", cmd.ID, err)
			return
		}
		log.Printf("command %d: crawl_now started run %s", cmd.ID, runID)

	case models.CmdRunSchedule:
		if params.ScheduleID == "" {
			log.Printf("command %d: run_schedule without schedule id, ignoring", cmd.ID)
			return
		}
		status, runID, err := e.RunNow(ctx, params.ScheduleID)
		if err != nil {
			log.Printf("command %d: run_schedule %s: %v", cmd.ID, params.ScheduleID, err)
			return
		}
		log.Printf("command %d: run_schedule %s: %s (run %s)", cmd.ID, params.ScheduleID, status, runID)

	case models.CmdReloadSchedules:
		if _, err := e.LoadAll(ctx); err != nil {
			log.Printf("command %d: reload_schedules: %v", cmd.ID, err)
		}

	default:
		log.Printf("command %d: unknown command %q", cmd.ID, cmd.Command)
	}
}
