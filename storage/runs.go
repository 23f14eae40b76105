package storage

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"danji_watch/models"
)

// =============================================================================
// Run ledger (crawl_history)
// =============================================================================

func (s *PostgresStore) CreateRun(ctx context.Context, run *models.CrawlRun) error {
	query := `
		INSERT INTO crawl_history (
			id, complex_nos, total_complexes, status, current_step,
			triggered_by, schedule_id, user_id, created_at, started_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := s.pool.Exec(ctx, query,
		run.ID, run.ComplexNos, run.TotalComplexes, run.Status, run.CurrentStep,
		run.TriggeredBy, run.ScheduleID, run.UserID, run.CreatedAt, run.StartedAt,
	)
	return err
}

func (s *PostgresStore) GetRun(ctx context.Context, id string) (*models.CrawlRun, error) {
	query := `
		SELECT id, complex_nos, total_complexes, success_count, error_count,
			total_articles, duration_sec, status, current_step, error_message,
			triggered_by, schedule_id, user_id, created_at, started_at, finished_at
		FROM crawl_history WHERE id = $1`

	var r models.CrawlRun
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&r.ID, &r.ComplexNos, &r.TotalComplexes, &r.SuccessCount, &r.ErrorCount,
		&r.TotalArticles, &r.DurationSec, &r.Status, &r.CurrentStep, &r.ErrorMessage,
		&r.TriggeredBy, &r.ScheduleID, &r.UserID, &r.CreatedAt, &r.StartedAt, &r.FinishedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// UpdateRunStep only touches the step label; used for progress visibility
// during ingestion.
func (s *PostgresStore) UpdateRunStep(ctx context.Context, id, step string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE crawl_history SET current_step = $2 WHERE id = $1`, id, step)
	return err
}

func (s *PostgresStore) UpdateRunStatus(ctx context.Context, id string, status models.RunStatus, step string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE crawl_history SET status = $2, current_step = $3 WHERE id = $1`,
		id, status, step)
	return err
}

// FinalizeRun writes the terminal state of a run in one statement.
func (s *PostgresStore) FinalizeRun(ctx context.Context, run *models.CrawlRun) error {
	query := `
		UPDATE crawl_history SET
			success_count = $2, error_count = $3, total_articles = $4,
			duration_sec = $5, status = $6, current_step = $7,
			error_message = $8, finished_at = $9
		WHERE id = $1`

	_, err := s.pool.Exec(ctx, query,
		run.ID, run.SuccessCount, run.ErrorCount, run.TotalArticles,
		run.DurationSec, run.Status, run.CurrentStep,
		run.ErrorMessage, run.FinishedAt,
	)
	return err
}

// FindActiveRunForSchedule returns the newest non-terminal run tied to a
// schedule, or nil. This is the advisory cross-process "already running"
// signal; callers must still respect the in-process flag.
func (s *PostgresStore) FindActiveRunForSchedule(ctx context.Context, scheduleID string) (*models.CrawlRun, error) {
	query := `
		SELECT id, complex_nos, total_complexes, success_count, error_count,
			total_articles, duration_sec, status, current_step, error_message,
			triggered_by, schedule_id, user_id, created_at, started_at, finished_at
		FROM crawl_history
		WHERE schedule_id = $1 AND status IN ('pending', 'crawling', 'saving')
		ORDER BY created_at DESC
		LIMIT 1`

	var r models.CrawlRun
	err := s.pool.QueryRow(ctx, query, scheduleID).Scan(
		&r.ID, &r.ComplexNos, &r.TotalComplexes, &r.SuccessCount, &r.ErrorCount,
		&r.TotalArticles, &r.DurationSec, &r.Status, &r.CurrentStep, &r.ErrorMessage,
		&r.TriggeredBy, &r.ScheduleID, &r.UserID, &r.CreatedAt, &r.StartedAt, &r.FinishedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// RecentRunStats feeds the timeout estimator: successful or partial runs since
// the cutoff with positive duration and target count, newest first.
func (s *PostgresStore) RecentRunStats(ctx context.Context, since time.Time, limit int) ([]models.RunStat, error) {
	query := `
		SELECT total_complexes, total_articles, duration_sec
		FROM crawl_history
		WHERE status IN ('success', 'partial')
			AND created_at >= $1
			AND total_complexes > 0
			AND duration_sec > 0
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := s.pool.Query(ctx, query, since, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []models.RunStat
	for rows.Next() {
		var st models.RunStat
		if err := rows.Scan(&st.TotalComplexes, &st.TotalArticles, &st.DurationSec); err != nil {
			return nil, err
		}
		stats = append(stats, st)
	}
	return stats, rows.Err()
}

// FindRecentCompletedRun looks for a run that finished in a terminal success
// state within the window and crawled the given number of targets. Used by
// the scheduler to recover from false-negative trigger failures.
func (s *PostgresStore) FindRecentCompletedRun(ctx context.Context, targetCount int, window time.Duration) (*models.CrawlRun, error) {
	query := `
		SELECT id, complex_nos, total_complexes, success_count, error_count,
			total_articles, duration_sec, status, current_step, error_message,
			triggered_by, schedule_id, user_id, created_at, started_at, finished_at
		FROM crawl_history
		WHERE status IN ('success', 'partial')
			AND total_complexes = $1
			AND finished_at >= $2
		ORDER BY finished_at DESC
		LIMIT 1`

	var r models.CrawlRun
	err := s.pool.QueryRow(ctx, query, targetCount, time.Now().Add(-window)).Scan(
		&r.ID, &r.ComplexNos, &r.TotalComplexes, &r.SuccessCount, &r.ErrorCount,
		&r.TotalArticles, &r.DurationSec, &r.Status, &r.CurrentStep, &r.ErrorMessage,
		&r.TriggeredBy, &r.ScheduleID, &r.UserID, &r.CreatedAt, &r.StartedAt, &r.FinishedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// LatestRun returns the most recently created run regardless of status.
func (s *PostgresStore) LatestRun(ctx context.Context) (*models.CrawlRun, error) {
	query := `
		SELECT id, complex_nos, total_complexes, success_count, error_count,
			total_articles, duration_sec, status, current_step, error_message,
			triggered_by, schedule_id, user_id, created_at, started_at, finished_at
		FROM crawl_history
		ORDER BY created_at DESC
		LIMIT 1`

	var r models.CrawlRun
	err := s.pool.QueryRow(ctx, query).Scan(
		&r.ID, &r.ComplexNos, &r.TotalComplexes, &r.SuccessCount, &r.ErrorCount,
		&r.TotalArticles, &r.DurationSec, &r.Status, &r.CurrentStep, &r.ErrorMessage,
		&r.TriggeredBy, &r.ScheduleID, &r.UserID, &r.CreatedAt, &r.StartedAt, &r.FinishedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}
