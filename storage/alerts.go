package storage

import (
	"context"
	"time"

	"danji_watch/models"
)

// =============================================================================
// Alerts
// =============================================================================

// GetActiveAlertsForComplex returns active alert definitions that watch the
// given complex number.
func (s *PostgresStore) GetActiveAlertsForComplex(ctx context.Context, complexNo string) ([]*models.Alert, error) {
	query := `
		SELECT id, name, complex_nos, trade_types, min_price, max_price,
			min_area, max_area, webhook_url, is_active, user_id, created_at
		FROM alerts
		WHERE is_active AND $1 = ANY(complex_nos)`

	rows, err := s.pool.Query(ctx, query, complexNo)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var alerts []*models.Alert
	for rows.Next() {
		var a models.Alert
		if err := rows.Scan(
			&a.ID, &a.Name, &a.ComplexNos, &a.TradeTypes, &a.MinPrice, &a.MaxPrice,
			&a.MinArea, &a.MaxArea, &a.WebhookURL, &a.IsActive, &a.UserID, &a.CreatedAt,
		); err != nil {
			return nil, err
		}
		alerts = append(alerts, &a)
	}
	return alerts, rows.Err()
}

// SaveNotificationLog records one delivery attempt. Failures here are the
// caller's to ignore; notification logging never fails a run.
func (s *PostgresStore) SaveNotificationLog(ctx context.Context, alertID, channel, status, message string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO notification_logs (alert_id, channel, status, message, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		alertID, channel, status, message, time.Now())
	return err
}
