package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, connString string) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = 30 * time.Minute
	config.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) Pool() *pgxpool.Pool {
	return s.pool
}

// EnsureSchema creates all tables the daemon needs. Idempotent; called once
// at startup.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS complexes (
			id TEXT PRIMARY KEY,
			complex_no TEXT NOT NULL UNIQUE,
			complex_name TEXT NOT NULL,
			total_household INT,
			total_dong INT,
			latitude DOUBLE PRECISION,
			longitude DOUBLE PRECISION,
			address TEXT NOT NULL DEFAULT '',
			road_address TEXT NOT NULL DEFAULT '',
			beopjungdong TEXT NOT NULL DEFAULT '',
			haengjeongdong TEXT NOT NULL DEFAULT '',
			sido_code TEXT NOT NULL DEFAULT '',
			sigungu_code TEXT NOT NULL DEFAULT '',
			dong_code TEXT NOT NULL DEFAULT '',
			user_id TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS articles (
			id BIGSERIAL PRIMARY KEY,
			article_no TEXT NOT NULL,
			complex_id TEXT NOT NULL REFERENCES complexes(id) ON DELETE CASCADE,
			trade_type_name TEXT NOT NULL DEFAULT '',
			deal_price TEXT NOT NULL DEFAULT '',
			rent_price TEXT NOT NULL DEFAULT '',
			deal_price_man BIGINT NOT NULL DEFAULT 0,
			rent_price_man BIGINT NOT NULL DEFAULT 0,
			area1 DOUBLE PRECISION NOT NULL DEFAULT 0,
			area2 DOUBLE PRECISION,
			floor_info TEXT NOT NULL DEFAULT '',
			direction TEXT NOT NULL DEFAULT '',
			building_name TEXT NOT NULL DEFAULT '',
			realtor_name TEXT NOT NULL DEFAULT '',
			feature_desc TEXT NOT NULL DEFAULT '',
			confirmed_ymd TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (complex_id, article_no)
		)`,
		`CREATE TABLE IF NOT EXISTS crawl_history (
			id TEXT PRIMARY KEY,
			complex_nos TEXT[] NOT NULL DEFAULT '{}',
			total_complexes INT NOT NULL DEFAULT 0,
			success_count INT NOT NULL DEFAULT 0,
			error_count INT NOT NULL DEFAULT 0,
			total_articles INT NOT NULL DEFAULT 0,
			duration_sec INT NOT NULL DEFAULT 0,
			status TEXT NOT NULL,
			current_step TEXT NOT NULL DEFAULT '',
			error_message TEXT NOT NULL DEFAULT '',
			triggered_by TEXT NOT NULL DEFAULT 'manual',
			schedule_id TEXT,
			user_id TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			started_at TIMESTAMPTZ,
			finished_at TIMESTAMPTZ
		)`,
		`CREATE INDEX IF NOT EXISTS idx_crawl_history_status ON crawl_history(status)`,
		`CREATE INDEX IF NOT EXISTS idx_crawl_history_created ON crawl_history(created_at DESC)`,
		`CREATE TABLE IF NOT EXISTS schedules (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			complex_nos TEXT[] NOT NULL DEFAULT '{}',
			use_favorites BOOLEAN NOT NULL DEFAULT TRUE,
			cron_expr TEXT NOT NULL,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			user_id TEXT NOT NULL DEFAULT '',
			last_run TIMESTAMPTZ,
			next_run TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS schedule_logs (
			id BIGSERIAL PRIMARY KEY,
			schedule_id TEXT NOT NULL REFERENCES schedules(id) ON DELETE CASCADE,
			status TEXT NOT NULL,
			duration_sec INT NOT NULL DEFAULT 0,
			articles_count INT NOT NULL DEFAULT 0,
			error_message TEXT NOT NULL DEFAULT '',
			executed_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS alerts (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			complex_nos TEXT[] NOT NULL DEFAULT '{}',
			trade_types TEXT[] NOT NULL DEFAULT '{}',
			min_price BIGINT,
			max_price BIGINT,
			min_area DOUBLE PRECISION,
			max_area DOUBLE PRECISION,
			webhook_url TEXT NOT NULL DEFAULT '',
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			user_id TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS favorites (
			id BIGSERIAL PRIMARY KEY,
			user_id TEXT NOT NULL,
			complex_id TEXT NOT NULL REFERENCES complexes(id) ON DELETE CASCADE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (user_id, complex_id)
		)`,
		`CREATE TABLE IF NOT EXISTS notification_logs (
			id BIGSERIAL PRIMARY KEY,
			alert_id TEXT NOT NULL,
			channel TEXT NOT NULL DEFAULT 'webhook',
			status TEXT NOT NULL,
			message TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
	}

	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
