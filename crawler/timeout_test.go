package crawler

import (
	"context"
	"errors"
	"testing"
	"time"

	"danji_watch/models"
)

type fakeHistory struct {
	stats []models.RunStat
	err   error
}

func (f *fakeHistory) RecentRunStats(ctx context.Context, since time.Time, limit int) ([]models.RunStat, error) {
	return f.stats, f.err
}

func TestEstimateTimeoutNoHistory(t *testing.T) {
	e := NewTimeoutEstimator(&fakeHistory{})

	// 5min buffer + 2 * 3min
	if got := e.EstimateTimeout(context.Background(), 2); got != 11*time.Minute {
		t.Errorf("budget = %s, want 11m", got)
	}
}

func TestEstimateTimeoutHistoryError(t *testing.T) {
	e := NewTimeoutEstimator(&fakeHistory{err: errors.New("db down")})

	if got := e.EstimateTimeout(context.Background(), 2); got != 11*time.Minute {
		t.Errorf("budget = %s, want fallback 11m", got)
	}
}

func TestEstimateTimeoutFromHistory(t *testing.T) {
	// 60s per complex across every sample.
	hist := &fakeHistory{stats: []models.RunStat{
		{TotalComplexes: 2, DurationSec: 120},
		{TotalComplexes: 4, DurationSec: 240},
	}}
	e := NewTimeoutEstimator(hist)

	// 60 * 5 * 1.5 = 450s, + 5min buffer = 12m30s
	if got := e.EstimateTimeout(context.Background(), 5); got != 12*time.Minute+30*time.Second {
		t.Errorf("budget = %s, want 12m30s", got)
	}
}

func TestEstimateTimeoutClamps(t *testing.T) {
	fast := NewTimeoutEstimator(&fakeHistory{stats: []models.RunStat{
		{TotalComplexes: 10, DurationSec: 10},
	}})
	if got := fast.EstimateTimeout(context.Background(), 1); got != minBudget {
		t.Errorf("fast history budget = %s, want min %s", got, minBudget)
	}

	slow := NewTimeoutEstimator(&fakeHistory{stats: []models.RunStat{
		{TotalComplexes: 1, DurationSec: 600},
	}})
	if got := slow.EstimateTimeout(context.Background(), 50); got != maxBudget {
		t.Errorf("slow history budget = %s, want max %s", got, maxBudget)
	}
}

func TestEstimateTimeoutMonotonic(t *testing.T) {
	hist := &fakeHistory{stats: []models.RunStat{
		{TotalComplexes: 2, DurationSec: 200},
	}}
	e := NewTimeoutEstimator(hist)

	prev := time.Duration(0)
	for _, n := range []int{1, 2, 5, 10, 20} {
		got := e.EstimateTimeout(context.Background(), n)
		if got < prev {
			t.Fatalf("budget for %d complexes (%s) below smaller run (%s)", n, got, prev)
		}
		if got < minBudget || got > maxBudget {
			t.Fatalf("budget for %d complexes = %s, outside [%s, %s]", n, got, minBudget, maxBudget)
		}
		prev = got
	}
}

func TestEstimateTimeoutSkipsBadSamples(t *testing.T) {
	hist := &fakeHistory{stats: []models.RunStat{
		{TotalComplexes: 0, DurationSec: 500},
		{TotalComplexes: 3, DurationSec: 0},
	}}
	e := NewTimeoutEstimator(hist)

	// Every sample unusable, so the fallback applies.
	if got := e.EstimateTimeout(context.Background(), 2); got != 11*time.Minute {
		t.Errorf("budget = %s, want fallback 11m", got)
	}
}
