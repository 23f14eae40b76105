package storage

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"danji_watch/models"
)

// =============================================================================
// Schedules
// =============================================================================

func (s *PostgresStore) CreateSchedule(ctx context.Context, sched *models.Schedule) error {
	query := `
		INSERT INTO schedules (
			id, name, complex_nos, use_favorites, cron_expr, is_active,
			user_id, next_run, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())`

	_, err := s.pool.Exec(ctx, query,
		sched.ID, sched.Name, sched.ComplexNos, sched.UseFavorites,
		sched.CronExpr, sched.IsActive, sched.UserID, sched.NextRun,
	)
	return err
}

func (s *PostgresStore) GetSchedule(ctx context.Context, id string) (*models.Schedule, error) {
	query := `
		SELECT id, name, complex_nos, use_favorites, cron_expr, is_active,
			user_id, last_run, next_run, created_at, updated_at
		FROM schedules WHERE id = $1`

	var sc models.Schedule
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&sc.ID, &sc.Name, &sc.ComplexNos, &sc.UseFavorites, &sc.CronExpr,
		&sc.IsActive, &sc.UserID, &sc.LastRun, &sc.NextRun, &sc.CreatedAt, &sc.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sc, nil
}

func (s *PostgresStore) ListActiveSchedules(ctx context.Context) ([]models.Schedule, error) {
	query := `
		SELECT id, name, complex_nos, use_favorites, cron_expr, is_active,
			user_id, last_run, next_run, created_at, updated_at
		FROM schedules WHERE is_active ORDER BY created_at`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var schedules []models.Schedule
	for rows.Next() {
		var sc models.Schedule
		if err := rows.Scan(
			&sc.ID, &sc.Name, &sc.ComplexNos, &sc.UseFavorites, &sc.CronExpr,
			&sc.IsActive, &sc.UserID, &sc.LastRun, &sc.NextRun, &sc.CreatedAt, &sc.UpdatedAt,
		); err != nil {
			return nil, err
		}
		schedules = append(schedules, sc)
	}
	return schedules, rows.Err()
}

func (s *PostgresStore) SetScheduleActive(ctx context.Context, id string, active bool) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE schedules SET is_active = $2, updated_at = NOW() WHERE id = $1`,
		id, active)
	return err
}

func (s *PostgresStore) DeleteSchedule(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM schedules WHERE id = $1`, id)
	return err
}

// UpdateScheduleNextRun recomputed fire times are persisted so they survive a
// process restart.
func (s *PostgresStore) UpdateScheduleNextRun(ctx context.Context, id string, nextRun *time.Time) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE schedules SET next_run = $2, updated_at = NOW() WHERE id = $1`,
		id, nextRun)
	return err
}

func (s *PostgresStore) UpdateScheduleRunTimes(ctx context.Context, id string, lastRun time.Time, nextRun *time.Time) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE schedules SET last_run = $2, next_run = $3, updated_at = NOW() WHERE id = $1`,
		id, lastRun, nextRun)
	return err
}

// AppendScheduleLog writes one audit row per firing. Rows are never updated.
func (s *PostgresStore) AppendScheduleLog(ctx context.Context, log *models.ScheduleLog) error {
	query := `
		INSERT INTO schedule_logs (schedule_id, status, duration_sec, articles_count, error_message, executed_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := s.pool.Exec(ctx, query,
		log.ScheduleID, log.Status, log.DurationSec,
		log.ArticlesCount, log.ErrorMessage, log.ExecutedAt,
	)
	return err
}

// FavoriteComplexNos resolves a user's current bookmark set to complex
// numbers, used by schedules in favorites mode at fire time.
func (s *PostgresStore) FavoriteComplexNos(ctx context.Context, userID string) ([]string, error) {
	query := `
		SELECT c.complex_no
		FROM favorites f
		JOIN complexes c ON c.id = f.complex_id
		WHERE f.user_id = $1
		ORDER BY f.created_at`

	rows, err := s.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var nos []string
	for rows.Next() {
		var no string
		if err := rows.Scan(&no); err != nil {
			return nil, err
		}
		nos = append(nos, no)
	}
	return nos, rows.Err()
}
