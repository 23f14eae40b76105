package crawler

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"danji_watch/models"
	"danji_watch/notify"
)

// Store is the persistence surface the supervisor needs: the run ledger plus
// the ingestion tables.
type Store interface {
	CreateRun(ctx context.Context, run *models.CrawlRun) error
	GetRun(ctx context.Context, id string) (*models.CrawlRun, error)
	UpdateRunStep(ctx context.Context, id, step string) error
	UpdateRunStatus(ctx context.Context, id string, status models.RunStatus, step string) error
	FinalizeRun(ctx context.Context, run *models.CrawlRun) error
	FindActiveRunForSchedule(ctx context.Context, scheduleID string) (*models.CrawlRun, error)

	UpsertComplexes(ctx context.Context, complexes []*models.Complex) (map[string]string, error)
	GetExistingGeoData(ctx context.Context, complexNos []string) (map[string]*models.Complex, error)
	GetArticlesByComplexID(ctx context.Context, complexID string) ([]*models.Article, error)
	ReplaceArticles(ctx context.Context, complexIDs []string, articles []*models.Article) (int, int, error)
}

// BudgetEstimator computes the kill budget for a run over n complexes.
type BudgetEstimator interface {
	EstimateTimeout(ctx context.Context, complexCount int) time.Duration
}

// AlertNotifier fans a finished run's deltas out to matching alerts.
type AlertNotifier interface {
	ProcessRunDeltas(ctx context.Context, result *IngestResult)
}

// CacheInvalidator drops derived caches after listings change.
type CacheInvalidator interface {
	InvalidateCrawlCaches(ctx context.Context)
}

// Archiver uploads the run's raw artifact for later replay.
type Archiver interface {
	Archive(ctx context.Context, runID, path string) error
}

// SubmitRequest describes one crawl to execute.
type SubmitRequest struct {
	ComplexNos  []string
	TriggeredBy models.RunTrigger
	UserID      string
	ScheduleID  *string
}

// SupervisorConfig wires a Supervisor's collaborators. Broadcaster is
// required; Alerts, Caches and Archive may be nil.
type SupervisorConfig struct {
	Store        Store
	Runner       WorkerRunner
	Estimator    BudgetEstimator
	Geocoder     Geocoder
	Broadcaster  *notify.Broadcaster
	Alerts       AlertNotifier
	Caches       CacheInvalidator
	Archive      Archiver
	DataDir      string
	GeocodeDelay time.Duration
	PollInterval time.Duration
}

// Supervisor owns the whole lifetime of a crawl run: admission, worker
// execution under a budget, result ingestion and ledger finalization. At most
// one run is in flight per process.
type Supervisor struct {
	store        Store
	runner       WorkerRunner
	estimator    BudgetEstimator
	geocoder     Geocoder
	broadcaster  *notify.Broadcaster
	alerts       AlertNotifier
	caches       CacheInvalidator
	archive      Archiver
	dataDir      string
	geocodeDelay time.Duration
	pollInterval time.Duration

	mu          sync.Mutex
	active      bool
	activeRunID string
}

func NewSupervisor(cfg SupervisorConfig) *Supervisor {
	if cfg.GeocodeDelay <= 0 {
		cfg.GeocodeDelay = 300 * time.Millisecond
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	return &Supervisor{
		store:        cfg.Store,
		runner:       cfg.Runner,
		estimator:    cfg.Estimator,
		geocoder:     cfg.Geocoder,
		broadcaster:  cfg.Broadcaster,
		alerts:       cfg.Alerts,
		caches:       cfg.Caches,
		archive:      cfg.Archive,
		dataDir:      cfg.DataDir,
		geocodeDelay: cfg.GeocodeDelay,
		pollInterval: cfg.PollInterval,
	}
}

// Active returns the in-flight run id, if any.
func (s *Supervisor) Active() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeRunID, s.active
}

// Submit admits a crawl, writes its pending ledger row and starts execution
// in the background. A second submission while one is in flight gets a
// ConflictError carrying the active run id. Schedule submissions are also
// checked against the ledger so a restarted process cannot double-fire.
func (s *Supervisor) Submit(ctx context.Context, req SubmitRequest) (string, error) {
	if len(req.ComplexNos) == 0 {
		return "", ErrNoTargets
	}
	if req.TriggeredBy == "" {
		req.TriggeredBy = models.TriggerManual
	}

	if req.ScheduleID != nil {
		active, err := s.store.FindActiveRunForSchedule(ctx, *req.ScheduleID)
		if err != nil {
			return "", fmt.Errorf("ledger check for schedule %s: %w", *req.ScheduleID, err)
		}
		if active != nil {
			return "", &ConflictError{RunID: active.ID}
		}
	}

	runID := uuid.NewString()
	s.mu.Lock()
	if s.active {
		id := s.activeRunID
		s.mu.Unlock()
		return "", &ConflictError{RunID: id}
	}
	s.active = true
	s.activeRunID = runID
	s.mu.Unlock()

	now := time.Now()
	run := &models.CrawlRun{
		ID:             runID,
		ComplexNos:     req.ComplexNos,
		TotalComplexes: len(req.ComplexNos),
		Status:         models.RunStatusPending,
		CurrentStep:    "Initializing",
		TriggeredBy:    req.TriggeredBy,
		ScheduleID:     req.ScheduleID,
		UserID:         req.UserID,
		CreatedAt:      now,
		StartedAt:      &now,
	}
	if err := s.store.CreateRun(ctx, run); err != nil {
		s.release()
		return "", fmt.Errorf("create run record: %w", err)
	}

	go s.execute(run)
	return runID, nil
}

// Wait polls the ledger until the run reaches a terminal status or the
// timeout elapses.
func (s *Supervisor) Wait(ctx context.Context, runID string, timeout time.Duration) (*models.CrawlRun, error) {
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		run, err := s.store.GetRun(ctx, runID)
		if err != nil {
			return nil, err
		}
		if run == nil {
			return nil, fmt.Errorf("run %s not found", runID)
		}
		if run.Status.Terminal() {
			return run, nil
		}
		if time.Now().After(deadline) {
			return run, fmt.Errorf("run %s still %s after %s", runID, run.Status, timeout)
		}
		select {
		case <-ctx.Done():
			return run, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (s *Supervisor) release() {
	s.mu.Lock()
	s.active = false
	s.activeRunID = ""
	s.mu.Unlock()
}

// execute runs the full pipeline on its own context so a caller timeout
// cannot orphan a half-finished run. The active flag is released only after
// the ledger row is terminal, panic included.
func (s *Supervisor) execute(run *models.CrawlRun) {
	ctx := context.Background()
	start := time.Now()
	state := NewRunState()
	finalized := false

	defer func() {
		if r := recover(); r != nil {
			log.Printf("PANIC in crawl run %s: %v", run.ID, r)
			if !finalized {
				s.finalizeFailure(ctx, run, start, fmt.Sprintf("panic: %v", r))
			}
		}
		s.release()
	}()

	if s.broadcaster != nil {
		s.broadcaster.RunStart(run.ID)
	}

	budget := s.estimator.EstimateTimeout(ctx, run.TotalComplexes)

	s.transition(ctx, run.ID, state, models.RunStatusCrawling, "Running crawl worker")
	if err := s.runner.Run(ctx, run.ComplexNos, run.ID, budget); err != nil {
		s.finalizeFailure(ctx, run, start, err.Error())
		finalized = true
		if s.broadcaster != nil {
			s.broadcaster.RunFailed(run.ID, err.Error())
		}
		return
	}

	s.transition(ctx, run.ID, state, models.RunStatusSaving, "Crawl completed, saving results")
	res, err := s.ingest(ctx, run)
	if err != nil {
		s.finalizeFailure(ctx, run, start, err.Error())
		finalized = true
		if s.broadcaster != nil {
			s.broadcaster.RunFailed(run.ID, err.Error())
		}
		return
	}

	status := models.RunStatusSuccess
	if len(res.Errors) > 0 {
		status = models.RunStatusPartial
	}
	if err := state.To(status); err != nil {
		log.Printf("run %s: %v", run.ID, err)
	}

	finished := time.Now()
	run.Status = status
	run.CurrentStep = "Completed"
	run.SuccessCount = res.TotalComplexes
	run.ErrorCount = run.TotalComplexes - res.TotalComplexes
	if run.ErrorCount < 0 {
		run.ErrorCount = 0
	}
	run.TotalArticles = res.TotalArticles
	run.DurationSec = int(finished.Sub(start) / time.Second)
	run.ErrorMessage = strings.Join(res.Errors, "; ")
	run.FinishedAt = &finished
	if err := s.store.FinalizeRun(ctx, run); err != nil {
		log.Printf("finalize run %s: %v", run.ID, err)
	}
	finalized = true

	log.Printf("run %s %s: %d complexes, %d articles (%d inserted, %d skipped) in %ds",
		run.ID, status, res.TotalComplexes, res.TotalArticles, res.Inserted, res.Skipped, run.DurationSec)
	if s.broadcaster != nil {
		s.broadcaster.RunComplete(run.ID, res.TotalArticles)
	}

	if s.caches != nil {
		s.caches.InvalidateCrawlCaches(ctx)
	}
	if s.archive != nil && res.ArtifactPath != "" {
		if err := s.archive.Archive(ctx, run.ID, res.ArtifactPath); err != nil {
			log.Printf("archive artifact for run %s: %v", run.ID, err)
		}
	}
	if s.alerts != nil {
		s.alerts.ProcessRunDeltas(ctx, res)
	}
}

func (s *Supervisor) transition(ctx context.Context, runID string, state *RunState, status models.RunStatus, step string) {
	if err := state.To(status); err != nil {
		log.Printf("run %s: %v", runID, err)
		return
	}
	if err := s.store.UpdateRunStatus(ctx, runID, status, step); err != nil {
		log.Printf("run %s: update status %s: %v", runID, status, err)
	}
	if s.broadcaster != nil {
		s.broadcaster.RunProgress(runID, step)
	}
}

func (s *Supervisor) step(ctx context.Context, runID, step string) {
	if err := s.store.UpdateRunStep(ctx, runID, step); err != nil {
		log.Printf("run %s: update step %q: %v", runID, step, err)
	}
	if s.broadcaster != nil {
		s.broadcaster.RunProgress(runID, step)
	}
}

func (s *Supervisor) finalizeFailure(ctx context.Context, run *models.CrawlRun, start time.Time, msg string) {
	finished := time.Now()
	run.Status = models.RunStatusFailed
	run.CurrentStep = "Failed"
	run.ErrorMessage = msg
	run.DurationSec = int(finished.Sub(start) / time.Second)
	run.FinishedAt = &finished
	if err := s.store.FinalizeRun(ctx, run); err != nil {
		log.Printf("finalize failed run %s: %v", run.ID, err)
	}
}
