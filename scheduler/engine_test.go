package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"danji_watch/crawler"
	"danji_watch/models"
)

type fakeSchedStore struct {
	mu        sync.Mutex
	schedules map[string]*models.Schedule
	favorites []string
	activeRun *models.CrawlRun
	recovered *models.CrawlRun
	logs      []*models.ScheduleLog
	nextRuns  map[string]*time.Time
	runTimes  int
}

func newFakeSchedStore(schedules ...*models.Schedule) *fakeSchedStore {
	f := &fakeSchedStore{
		schedules: make(map[string]*models.Schedule),
		nextRuns:  make(map[string]*time.Time),
	}
	for _, s := range schedules {
		f.schedules[s.ID] = s
	}
	return f
}

func (f *fakeSchedStore) ListActiveSchedules(ctx context.Context) ([]models.Schedule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Schedule
	for _, s := range f.schedules {
		if s.IsActive {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (f *fakeSchedStore) GetSchedule(ctx context.Context, id string) (*models.Schedule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.schedules[id]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (f *fakeSchedStore) SetScheduleActive(ctx context.Context, id string, active bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.schedules[id]; ok {
		s.IsActive = active
	}
	return nil
}

func (f *fakeSchedStore) UpdateScheduleNextRun(ctx context.Context, id string, nextRun *time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextRuns[id] = nextRun
	return nil
}

func (f *fakeSchedStore) UpdateScheduleRunTimes(ctx context.Context, id string, lastRun time.Time, nextRun *time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runTimes++
	f.nextRuns[id] = nextRun
	return nil
}

func (f *fakeSchedStore) AppendScheduleLog(ctx context.Context, entry *models.ScheduleLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logs = append(f.logs, entry)
	return nil
}

func (f *fakeSchedStore) FavoriteComplexNos(ctx context.Context, userID string) ([]string, error) {
	return f.favorites, nil
}

func (f *fakeSchedStore) FindActiveRunForSchedule(ctx context.Context, scheduleID string) (*models.CrawlRun, error) {
	return f.activeRun, nil
}

func (f *fakeSchedStore) FindRecentCompletedRun(ctx context.Context, targetCount int, window time.Duration) (*models.CrawlRun, error) {
	return f.recovered, nil
}

type fakeTrigger struct {
	mu        sync.Mutex
	submitErr error
	run       *models.CrawlRun
	submits   []crawler.SubmitRequest
}

func (f *fakeTrigger) Submit(ctx context.Context, req crawler.SubmitRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submits = append(f.submits, req)
	if f.submitErr != nil {
		return "", f.submitErr
	}
	return f.run.ID, nil
}

func (f *fakeTrigger) Wait(ctx context.Context, runID string, timeout time.Duration) (*models.CrawlRun, error) {
	return f.run, nil
}

func newTestEngine(t *testing.T, store Store, trigger Trigger) *Engine {
	t.Helper()
	e, err := New(store, trigger, "Asia/Seoul", time.Millisecond, time.Minute)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return e
}

func seoul(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Seoul")
	if err != nil {
		t.Fatalf("load Asia/Seoul: %v", err)
	}
	return loc
}

func TestNextRunAfter(t *testing.T) {
	e := newTestEngine(t, newFakeSchedStore(), &fakeTrigger{})
	loc := seoul(t)

	// 2026-09-01 is a Tuesday; next Mon/Wed/Fri 09:00 firing is Wednesday.
	now := time.Date(2026, 9, 1, 10, 0, 0, 0, loc)
	next, err := e.NextRunAfter("0 9 * * 1,3,5", now)
	if err != nil {
		t.Fatalf("NextRunAfter: %v", err)
	}
	want := time.Date(2026, 9, 2, 9, 0, 0, 0, loc)
	if !next.Equal(want) {
		t.Errorf("next = %s, want %s", next, want)
	}
}

func TestNextRunAfterDailySchedule(t *testing.T) {
	e := newTestEngine(t, newFakeSchedStore(), &fakeTrigger{})
	loc := seoul(t)

	now := time.Date(2026, 9, 1, 23, 30, 0, 0, loc)
	next, err := e.NextRunAfter("0 6 * * *", now)
	if err != nil {
		t.Fatalf("NextRunAfter: %v", err)
	}
	want := time.Date(2026, 9, 2, 6, 0, 0, 0, loc)
	if !next.Equal(want) {
		t.Errorf("next = %s, want %s", next, want)
	}
}

func TestRegisterRejectsInvalidCron(t *testing.T) {
	e := newTestEngine(t, newFakeSchedStore(), &fakeTrigger{})

	if e.Register("s1", "not a cron line") {
		t.Error("invalid expression registered")
	}
	if e.Register("s2", "99 9 * * *") {
		t.Error("out-of-range expression registered")
	}
	if len(e.Registered()) != 0 {
		t.Errorf("registered = %v, want none", e.Registered())
	}
}

func TestLoadAllIsIdempotent(t *testing.T) {
	store := newFakeSchedStore(
		&models.Schedule{ID: "s1", CronExpr: "0 9 * * *", IsActive: true},
		&models.Schedule{ID: "s2", CronExpr: "30 18 * * 1,3,5", IsActive: true},
		&models.Schedule{ID: "s3", CronExpr: "0 0 * * *", IsActive: false},
		&models.Schedule{ID: "s4", CronExpr: "bogus", IsActive: true},
	)
	e := newTestEngine(t, store, &fakeTrigger{})

	for i := 0; i < 2; i++ {
		loaded, err := e.LoadAll(context.Background())
		if err != nil {
			t.Fatalf("LoadAll pass %d: %v", i+1, err)
		}
		if loaded != 2 {
			t.Errorf("pass %d loaded %d schedules, want 2", i+1, loaded)
		}
	}

	if got := len(e.Registered()); got != 2 {
		t.Errorf("%d ids registered, want 2", got)
	}
	if got := len(e.cron.Entries()); got != 2 {
		t.Errorf("%d cron entries, want 2 (reload must replace, not stack)", got)
	}
	if store.nextRuns["s1"] == nil || store.nextRuns["s2"] == nil {
		t.Error("next run times not persisted for registered schedules")
	}
}

func TestUnregister(t *testing.T) {
	e := newTestEngine(t, newFakeSchedStore(), &fakeTrigger{})

	if !e.Register("s1", "0 9 * * *") {
		t.Fatal("register failed")
	}
	if !e.Unregister("s1") {
		t.Error("unregister known id = false")
	}
	if e.Unregister("s1") {
		t.Error("unregister twice = true")
	}
	if len(e.cron.Entries()) != 0 {
		t.Error("cron entry survived unregister")
	}
}

func TestRunNowAlreadyRunning(t *testing.T) {
	store := newFakeSchedStore(&models.Schedule{
		ID: "s1", CronExpr: "0 9 * * *", IsActive: true, ComplexNos: []string{"1001"},
	})
	store.activeRun = &models.CrawlRun{ID: "busy-run", Status: models.RunStatusCrawling}
	trigger := &fakeTrigger{}
	e := newTestEngine(t, store, trigger)

	status, runID, err := e.RunNow(context.Background(), "s1")
	if err != nil {
		t.Fatalf("RunNow: %v", err)
	}
	if status != RunNowAlreadyRunning {
		t.Errorf("status = %s, want already_running", status)
	}
	if runID != "busy-run" {
		t.Errorf("run id = %s, want busy-run", runID)
	}
	if len(trigger.submits) != 0 {
		t.Error("RunNow submitted despite active run")
	}
	if len(store.logs) != 0 {
		t.Error("already-running outcome wrote a schedule log")
	}
}

func TestRunNowExecutes(t *testing.T) {
	store := newFakeSchedStore(&models.Schedule{
		ID: "s1", CronExpr: "0 9 * * *", IsActive: true,
		ComplexNos: []string{"1001", "1002"}, UserID: "u1",
	})
	trigger := &fakeTrigger{run: &models.CrawlRun{
		ID: "run-1", Status: models.RunStatusSuccess, TotalArticles: 42,
	}}
	e := newTestEngine(t, store, trigger)

	status, runID, err := e.RunNow(context.Background(), "s1")
	if err != nil {
		t.Fatalf("RunNow: %v", err)
	}
	if status != RunNowStarted || runID != "run-1" {
		t.Errorf("got (%s, %s), want (started, run-1)", status, runID)
	}

	if len(trigger.submits) != 1 {
		t.Fatalf("%d submits, want 1", len(trigger.submits))
	}
	req := trigger.submits[0]
	if req.TriggeredBy != models.TriggerSchedule || req.ScheduleID == nil || *req.ScheduleID != "s1" {
		t.Errorf("submit request = %+v, want schedule-triggered s1", req)
	}

	if len(store.logs) != 1 || store.logs[0].Status != models.ScheduleLogSuccess {
		t.Fatalf("logs = %+v, want one success entry", store.logs)
	}
	if store.logs[0].ArticlesCount != 42 {
		t.Errorf("log articles = %d, want 42", store.logs[0].ArticlesCount)
	}
	if store.runTimes != 1 {
		t.Errorf("run times updated %d times, want 1", store.runTimes)
	}
}

func TestRunNowSkipsEmptyFavorites(t *testing.T) {
	store := newFakeSchedStore(&models.Schedule{
		ID: "s1", CronExpr: "0 9 * * *", IsActive: true, UseFavorites: true, UserID: "u1",
	})
	trigger := &fakeTrigger{}
	e := newTestEngine(t, store, trigger)

	status, _, err := e.RunNow(context.Background(), "s1")
	if err != nil {
		t.Fatalf("RunNow: %v", err)
	}
	if status != RunNowSkipped {
		t.Errorf("status = %s, want skipped", status)
	}
	if len(trigger.submits) != 0 {
		t.Error("submitted with no live targets")
	}
	if len(store.logs) != 0 {
		t.Error("skip wrote a schedule log")
	}
}

func TestRunNowAdoptsRecoveredRun(t *testing.T) {
	store := newFakeSchedStore(&models.Schedule{
		ID: "s1", CronExpr: "0 9 * * *", IsActive: true, ComplexNos: []string{"1001"},
	})
	store.recovered = &models.CrawlRun{
		ID: "other-run", Status: models.RunStatusSuccess, TotalArticles: 7,
	}
	trigger := &fakeTrigger{submitErr: errors.New("a crawl is already running (run other-run)")}
	e := newTestEngine(t, store, trigger)

	status, runID, err := e.RunNow(context.Background(), "s1")
	if err != nil {
		t.Fatalf("RunNow: %v", err)
	}
	if status != RunNowStarted || runID != "other-run" {
		t.Errorf("got (%s, %s), want adoption of other-run", status, runID)
	}
	if len(store.logs) != 1 || store.logs[0].Status != models.ScheduleLogSuccess {
		t.Fatalf("logs = %+v, want one success entry", store.logs)
	}
}

func TestRunNowRecordsFailure(t *testing.T) {
	store := newFakeSchedStore(&models.Schedule{
		ID: "s1", CronExpr: "0 9 * * *", IsActive: true, ComplexNos: []string{"1001"},
	})
	trigger := &fakeTrigger{submitErr: errors.New("postgres is down")}
	e := newTestEngine(t, store, trigger)

	_, _, err := e.RunNow(context.Background(), "s1")
	if err == nil {
		t.Fatal("expected error")
	}
	if len(store.logs) != 1 || store.logs[0].Status != models.ScheduleLogFailed {
		t.Fatalf("logs = %+v, want one failed entry", store.logs)
	}
	if store.runTimes != 0 {
		t.Error("failed run updated last/next run times")
	}
}
