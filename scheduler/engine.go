package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"danji_watch/crawler"
	"danji_watch/models"
)

const defaultWaitBudget = 35 * time.Minute

// Store is the schedule persistence surface plus the run-ledger lookups the
// engine needs for recovery and double-fire protection.
type Store interface {
	ListActiveSchedules(ctx context.Context) ([]models.Schedule, error)
	GetSchedule(ctx context.Context, id string) (*models.Schedule, error)
	SetScheduleActive(ctx context.Context, id string, active bool) error
	UpdateScheduleNextRun(ctx context.Context, id string, nextRun *time.Time) error
	UpdateScheduleRunTimes(ctx context.Context, id string, lastRun time.Time, nextRun *time.Time) error
	AppendScheduleLog(ctx context.Context, entry *models.ScheduleLog) error
	FavoriteComplexNos(ctx context.Context, userID string) ([]string, error)
	FindActiveRunForSchedule(ctx context.Context, scheduleID string) (*models.CrawlRun, error)
	FindRecentCompletedRun(ctx context.Context, targetCount int, window time.Duration) (*models.CrawlRun, error)
}

// Trigger starts crawls and waits on them. The crawl supervisor implements it.
type Trigger interface {
	Submit(ctx context.Context, req crawler.SubmitRequest) (string, error)
	Wait(ctx context.Context, runID string, timeout time.Duration) (*models.CrawlRun, error)
}

// RunNowStatus distinguishes "a run started" from "one was already going".
type RunNowStatus string

const (
	RunNowStarted        RunNowStatus = "started"
	RunNowAlreadyRunning RunNowStatus = "already_running"
	RunNowSkipped        RunNowStatus = "skipped"
)

// Engine drives recurring crawls off one cron runner pinned to a single
// timezone. Registration is idempotent per schedule id.
type Engine struct {
	store   Store
	trigger Trigger
	cron    *cron.Cron
	loc     *time.Location

	recoveryGrace  time.Duration
	recoveryWindow time.Duration
	waitBudget     time.Duration

	mu      sync.Mutex
	entries map[string]cron.EntryID
}

func New(store Store, trigger Trigger, timezone string, recoveryGrace, recoveryWindow time.Duration) (*Engine, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("load scheduler timezone %q: %w", timezone, err)
	}
	if recoveryGrace <= 0 {
		recoveryGrace = 30 * time.Second
	}
	if recoveryWindow <= 0 {
		recoveryWindow = 10 * time.Minute
	}
	return &Engine{
		store:          store,
		trigger:        trigger,
		cron:           cron.New(cron.WithLocation(loc)),
		loc:            loc,
		recoveryGrace:  recoveryGrace,
		recoveryWindow: recoveryWindow,
		waitBudget:     defaultWaitBudget,
		entries:        make(map[string]cron.EntryID),
	}, nil
}

func (e *Engine) Start() {
	e.cron.Start()
}

// Stop halts the timer and waits for any firing in progress to return.
func (e *Engine) Stop() {
	<-e.cron.Stop().Done()
}

// Register adds (or replaces) the timer for one schedule. An invalid cron
// expression is logged and reported as false, never fatal.
func (e *Engine) Register(id, cronExpr string) bool {
	if _, err := cron.ParseStandard(cronExpr); err != nil {
		log.Printf("schedule %s: invalid cron expression %q: %v", id, cronExpr, err)
		return false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if prev, ok := e.entries[id]; ok {
		e.cron.Remove(prev)
		delete(e.entries, id)
	}
	entryID, err := e.cron.AddFunc(cronExpr, func() { e.fire(id) })
	if err != nil {
		log.Printf("schedule %s: register failed: %v", id, err)
		return false
	}
	e.entries[id] = entryID
	return true
}

// Unregister removes a schedule's timer. Unknown ids are a no-op.
func (e *Engine) Unregister(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	entryID, ok := e.entries[id]
	if !ok {
		return false
	}
	e.cron.Remove(entryID)
	delete(e.entries, id)
	return true
}

// Registered returns the ids currently holding a timer.
func (e *Engine) Registered() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	ids := make([]string, 0, len(e.entries))
	for id := range e.entries {
		ids = append(ids, id)
	}
	return ids
}

// LoadAll registers every active schedule from storage and persists each
// recomputed next-run time. Safe to call repeatedly; existing registrations
// are replaced, not duplicated.
func (e *Engine) LoadAll(ctx context.Context) (int, error) {
	schedules, err := e.store.ListActiveSchedules(ctx)
	if err != nil {
		return 0, fmt.Errorf("list active schedules: %w", err)
	}

	loaded := 0
	for i := range schedules {
		sched := &schedules[i]
		if !e.Register(sched.ID, sched.CronExpr) {
			continue
		}
		loaded++
		if next, err := e.NextRunAfter(sched.CronExpr, time.Now()); err == nil {
			if err := e.store.UpdateScheduleNextRun(ctx, sched.ID, &next); err != nil {
				log.Printf("schedule %s: persist next run: %v", sched.ID, err)
			}
		}
	}
	log.Printf("scheduler: %d/%d active schedules registered", loaded, len(schedules))
	return loaded, nil
}

// SetActive flips a schedule on or off in storage and keeps the timer and
// stored next-run time in sync.
func (e *Engine) SetActive(ctx context.Context, id string, active bool) error {
	if err := e.store.SetScheduleActive(ctx, id, active); err != nil {
		return err
	}
	if !active {
		e.Unregister(id)
		return e.store.UpdateScheduleNextRun(ctx, id, nil)
	}
	sched, err := e.store.GetSchedule(ctx, id)
	if err != nil {
		return err
	}
	if sched == nil {
		return fmt.Errorf("schedule %s not found", id)
	}
	if !e.Register(id, sched.CronExpr) {
		return fmt.Errorf("schedule %s: invalid cron expression %q", id, sched.CronExpr)
	}
	next, err := e.NextRunAfter(sched.CronExpr, time.Now())
	if err != nil {
		return err
	}
	return e.store.UpdateScheduleNextRun(ctx, id, &next)
}

// NextRunAfter computes the first firing strictly after the given instant,
// evaluated in the engine's timezone. Pure; no storage access.
func (e *Engine) NextRunAfter(cronExpr string, now time.Time) (time.Time, error) {
	sched, err := cron.ParseStandard(cronExpr)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse cron expression %q: %w", cronExpr, err)
	}
	return sched.Next(now.In(e.loc)), nil
}

// NextRunTime is NextRunAfter anchored at the current time.
func (e *Engine) NextRunTime(cronExpr string) (time.Time, error) {
	return e.NextRunAfter(cronExpr, time.Now())
}

// RunNow fires a schedule immediately, outside its timer. If the ledger
// shows a run already in flight for this schedule, that is reported as its
// own outcome with the active run id, not as an error.
func (e *Engine) RunNow(ctx context.Context, id string) (RunNowStatus, string, error) {
	sched, err := e.store.GetSchedule(ctx, id)
	if err != nil {
		return "", "", err
	}
	if sched == nil {
		return "", "", fmt.Errorf("schedule %s not found", id)
	}

	active, err := e.store.FindActiveRunForSchedule(ctx, id)
	if err != nil {
		return "", "", fmt.Errorf("ledger check for schedule %s: %w", id, err)
	}
	if active != nil {
		return RunNowAlreadyRunning, active.ID, nil
	}

	runID, executed, err := e.executeSchedule(ctx, sched)
	if err != nil {
		return "", runID, err
	}
	if !executed {
		return RunNowSkipped, "", nil
	}
	return RunNowStarted, runID, nil
}

// fire is the timer callback. It reloads the schedule so edits made since
// registration take effect without a reload cycle.
func (e *Engine) fire(id string) {
	ctx := context.Background()
	sched, err := e.store.GetSchedule(ctx, id)
	if err != nil {
		log.Printf("schedule %s: load on fire failed: %v", id, err)
		return
	}
	if sched == nil || !sched.IsActive {
		log.Printf("schedule %s: gone or inactive, unregistering", id)
		e.Unregister(id)
		return
	}
	if _, _, err := e.executeSchedule(ctx, sched); err != nil {
		log.Printf("schedule %s (%s): firing failed: %v", id, sched.Name, err)
	}
}

// executeSchedule resolves targets, runs a crawl and records the outcome.
// Returns executed=false when the schedule was skipped for lack of targets.
func (e *Engine) executeSchedule(ctx context.Context, sched *models.Schedule) (string, bool, error) {
	start := time.Now()

	targets := sched.ComplexNos
	if sched.UseFavorites {
		favs, err := e.store.FavoriteComplexNos(ctx, sched.UserID)
		if err != nil {
			e.recordFailure(ctx, sched, start, fmt.Sprintf("resolve favorites: %v", err))
			return "", false, fmt.Errorf("resolve favorites: %w", err)
		}
		targets = favs
	}
	if len(targets) == 0 {
		log.Printf("schedule %s (%s): no live targets, skipping", sched.ID, sched.Name)
		return "", false, nil
	}

	runID, err := e.trigger.Submit(ctx, crawler.SubmitRequest{
		ComplexNos:  targets,
		TriggeredBy: models.TriggerSchedule,
		UserID:      sched.UserID,
		ScheduleID:  &sched.ID,
	})

	var run *models.CrawlRun
	if err == nil {
		run, err = e.trigger.Wait(ctx, runID, e.waitBudget)
	}

	if err != nil {
		// Another trigger may have won the race for the same work. Give its
		// run a grace period, then accept a matching completed run from the
		// ledger in place of our own.
		time.Sleep(e.recoveryGrace)
		recovered, rerr := e.store.FindRecentCompletedRun(ctx, len(targets), e.recoveryWindow)
		if rerr == nil && recovered != nil {
			log.Printf("schedule %s: adopted run %s after submit error: %v", sched.ID, recovered.ID, err)
			run, err = recovered, nil
			runID = recovered.ID
		}
	}

	if err != nil || run == nil || run.Status == models.RunStatusFailed {
		msg := "run failed"
		if err != nil {
			msg = err.Error()
		} else if run != nil && run.ErrorMessage != "" {
			msg = run.ErrorMessage
		}
		e.recordFailure(ctx, sched, start, msg)
		return runID, true, fmt.Errorf("schedule run: %s", msg)
	}

	next, nerr := e.NextRunAfter(sched.CronExpr, time.Now())
	var nextPtr *time.Time
	if nerr == nil {
		nextPtr = &next
	}
	if uerr := e.store.UpdateScheduleRunTimes(ctx, sched.ID, time.Now(), nextPtr); uerr != nil {
		log.Printf("schedule %s: update run times: %v", sched.ID, uerr)
	}
	entry := &models.ScheduleLog{
		ScheduleID:    sched.ID,
		Status:        models.ScheduleLogSuccess,
		DurationSec:   int(time.Since(start) / time.Second),
		ArticlesCount: run.TotalArticles,
		ErrorMessage:  run.ErrorMessage,
		ExecutedAt:    start,
	}
	if lerr := e.store.AppendScheduleLog(ctx, entry); lerr != nil {
		log.Printf("schedule %s: append log: %v", sched.ID, lerr)
	}
	return runID, true, nil
}

func (e *Engine) recordFailure(ctx context.Context, sched *models.Schedule, start time.Time, msg string) {
	entry := &models.ScheduleLog{
		ScheduleID:   sched.ID,
		Status:       models.ScheduleLogFailed,
		DurationSec:  int(time.Since(start) / time.Second),
		ErrorMessage: msg,
		ExecutedAt:   start,
	}
	if err := e.store.AppendScheduleLog(ctx, entry); err != nil {
		log.Printf("schedule %s: append failure log: %v", sched.ID, err)
	}
}
