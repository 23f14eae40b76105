package crawler

import (
	"context"
	"log"
	"time"

	"danji_watch/models"
)

const (
	historyWindow = 30 * 24 * time.Hour
	historyLimit  = 50

	safetyFactor       = 1.5
	budgetBuffer       = 5 * time.Minute
	perComplexFallback = 3 * time.Minute
	minBudget          = 10 * time.Minute
	maxBudget          = 30 * time.Minute
)

// RunHistory supplies per-run duration samples for budget estimation.
type RunHistory interface {
	RecentRunStats(ctx context.Context, since time.Time, limit int) ([]models.RunStat, error)
}

// TimeoutEstimator derives a kill budget for a crawl from recent completed
// runs. It never fails: with no usable history it falls back to a flat
// per-complex allowance.
type TimeoutEstimator struct {
	history RunHistory
}

func NewTimeoutEstimator(history RunHistory) *TimeoutEstimator {
	return &TimeoutEstimator{history: history}
}

func (e *TimeoutEstimator) EstimateTimeout(ctx context.Context, complexCount int) time.Duration {
	stats, err := e.history.RecentRunStats(ctx, time.Now().Add(-historyWindow), historyLimit)
	if err != nil {
		log.Printf("timeout estimate: history lookup failed, using fallback: %v", err)
		return fallbackBudget(complexCount)
	}

	var perComplexSec float64
	var samples int
	for _, st := range stats {
		if st.TotalComplexes <= 0 || st.DurationSec <= 0 {
			continue
		}
		perComplexSec += float64(st.DurationSec) / float64(st.TotalComplexes)
		samples++
	}
	if samples == 0 {
		return fallbackBudget(complexCount)
	}
	perComplexSec /= float64(samples)

	budget := time.Duration(perComplexSec*float64(complexCount)*safetyFactor)*time.Second + budgetBuffer
	if budget < minBudget {
		budget = minBudget
	}
	if budget > maxBudget {
		budget = maxBudget
	}
	return budget
}

func fallbackBudget(complexCount int) time.Duration {
	budget := budgetBuffer + time.Duration(complexCount)*perComplexFallback
	if budget > maxBudget {
		budget = maxBudget
	}
	return budget
}
