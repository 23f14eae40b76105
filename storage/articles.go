package storage

import (
	"context"
	"fmt"

	"danji_watch/models"
)

// =============================================================================
// Articles
// =============================================================================

// GetArticlesByComplexID returns the stored listing snapshot for one complex.
// Delta detection reads this before ReplaceArticles wipes it.
func (s *PostgresStore) GetArticlesByComplexID(ctx context.Context, complexID string) ([]*models.Article, error) {
	query := `
		SELECT id, article_no, complex_id, trade_type_name, deal_price, rent_price,
			deal_price_man, rent_price_man, area1, area2, floor_info, direction,
			building_name, realtor_name, feature_desc, confirmed_ymd, created_at
		FROM articles WHERE complex_id = $1`

	rows, err := s.pool.Query(ctx, query, complexID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var articles []*models.Article
	for rows.Next() {
		var a models.Article
		if err := rows.Scan(
			&a.ID, &a.ArticleNo, &a.ComplexID, &a.TradeTypeName, &a.DealPrice, &a.RentPrice,
			&a.DealPriceMan, &a.RentPriceMan, &a.Area1, &a.Area2, &a.FloorInfo, &a.Direction,
			&a.BuildingName, &a.RealtorName, &a.FeatureDesc, &a.ConfirmedYmd, &a.CreatedAt,
		); err != nil {
			return nil, err
		}
		articles = append(articles, &a)
	}
	return articles, rows.Err()
}

// ReplaceArticles deletes every stored listing for the given complexes and
// bulk-inserts the new rows, skipping duplicates, inside one transaction so a
// crash can no longer leave a complex with zero listings.
func (s *PostgresStore) ReplaceArticles(ctx context.Context, complexIDs []string, articles []*models.Article) (inserted int, skipped int, err error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`DELETE FROM articles WHERE complex_id = ANY($1)`, complexIDs); err != nil {
		return 0, 0, fmt.Errorf("delete old articles: %w", err)
	}

	query := `
		INSERT INTO articles (
			article_no, complex_id, trade_type_name, deal_price, rent_price,
			deal_price_man, rent_price_man, area1, area2, floor_info, direction,
			building_name, realtor_name, feature_desc, confirmed_ymd, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, NOW())
		ON CONFLICT (complex_id, article_no) DO NOTHING`

	for _, a := range articles {
		tag, err := tx.Exec(ctx, query,
			a.ArticleNo, a.ComplexID, a.TradeTypeName, a.DealPrice, a.RentPrice,
			a.DealPriceMan, a.RentPriceMan, a.Area1, a.Area2, a.FloorInfo, a.Direction,
			a.BuildingName, a.RealtorName, a.FeatureDesc, a.ConfirmedYmd,
		)
		if err != nil {
			return 0, 0, fmt.Errorf("insert article %s: %w", a.ArticleNo, err)
		}
		if tag.RowsAffected() > 0 {
			inserted++
		} else {
			skipped++
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, 0, fmt.Errorf("commit: %w", err)
	}
	return inserted, skipped, nil
}
