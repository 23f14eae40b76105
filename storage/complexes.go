package storage

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"danji_watch/models"
)

// =============================================================================
// Complexes
// =============================================================================

// UpsertComplexes batch-upserts target metadata keyed on the external complex
// number and returns a complexNo -> internal id map. Geo columns only move
// forward: COALESCE keeps an already resolved value when the new row has none.
func (s *PostgresStore) UpsertComplexes(ctx context.Context, complexes []*models.Complex) (map[string]string, error) {
	query := `
		INSERT INTO complexes (
			id, complex_no, complex_name, total_household, total_dong,
			latitude, longitude, address, road_address,
			beopjungdong, haengjeongdong, sido_code, sigungu_code, dong_code,
			user_id, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, NOW(), NOW())
		ON CONFLICT (complex_no) DO UPDATE SET
			complex_name = EXCLUDED.complex_name,
			total_household = COALESCE(EXCLUDED.total_household, complexes.total_household),
			total_dong = COALESCE(EXCLUDED.total_dong, complexes.total_dong),
			latitude = COALESCE(EXCLUDED.latitude, complexes.latitude),
			longitude = COALESCE(EXCLUDED.longitude, complexes.longitude),
			address = COALESCE(NULLIF(EXCLUDED.address, ''), complexes.address),
			road_address = COALESCE(NULLIF(EXCLUDED.road_address, ''), complexes.road_address),
			beopjungdong = COALESCE(NULLIF(EXCLUDED.beopjungdong, ''), complexes.beopjungdong),
			haengjeongdong = COALESCE(NULLIF(EXCLUDED.haengjeongdong, ''), complexes.haengjeongdong),
			sido_code = COALESCE(NULLIF(EXCLUDED.sido_code, ''), complexes.sido_code),
			sigungu_code = COALESCE(NULLIF(EXCLUDED.sigungu_code, ''), complexes.sigungu_code),
			dong_code = COALESCE(NULLIF(EXCLUDED.dong_code, ''), complexes.dong_code),
			updated_at = NOW()
		RETURNING id`

	ids := make(map[string]string, len(complexes))
	for _, c := range complexes {
		if c.ID == "" {
			c.ID = uuid.NewString()
		}
		var id string
		err := s.pool.QueryRow(ctx, query,
			c.ID, c.ComplexNo, c.ComplexName, c.TotalHousehold, c.TotalDong,
			c.Latitude, c.Longitude, c.Address, c.RoadAddress,
			c.Beopjungdong, c.Haengjeongdong, c.SidoCode, c.SigunguCode, c.DongCode,
			c.UserID,
		).Scan(&id)
		if err != nil {
			return nil, err
		}
		c.ID = id
		ids[c.ComplexNo] = id
	}
	return ids, nil
}

// GetExistingGeoData returns resolved geo fields for the given complex
// numbers so already geocoded targets are never geocoded again.
func (s *PostgresStore) GetExistingGeoData(ctx context.Context, complexNos []string) (map[string]*models.Complex, error) {
	query := `
		SELECT complex_no, beopjungdong, haengjeongdong, sido_code, sigungu_code, dong_code
		FROM complexes
		WHERE complex_no = ANY($1) AND beopjungdong <> ''`

	rows, err := s.pool.Query(ctx, query, complexNos)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	existing := make(map[string]*models.Complex)
	for rows.Next() {
		var c models.Complex
		if err := rows.Scan(
			&c.ComplexNo, &c.Beopjungdong, &c.Haengjeongdong,
			&c.SidoCode, &c.SigunguCode, &c.DongCode,
		); err != nil {
			return nil, err
		}
		existing[c.ComplexNo] = &c
	}
	return existing, rows.Err()
}

func (s *PostgresStore) GetComplexByNo(ctx context.Context, complexNo string) (*models.Complex, error) {
	query := `
		SELECT id, complex_no, complex_name, total_household, total_dong,
			latitude, longitude, address, road_address,
			beopjungdong, haengjeongdong, sido_code, sigungu_code, dong_code,
			user_id, created_at, updated_at
		FROM complexes WHERE complex_no = $1`

	var c models.Complex
	err := s.pool.QueryRow(ctx, query, complexNo).Scan(
		&c.ID, &c.ComplexNo, &c.ComplexName, &c.TotalHousehold, &c.TotalDong,
		&c.Latitude, &c.Longitude, &c.Address, &c.RoadAddress,
		&c.Beopjungdong, &c.Haengjeongdong, &c.SidoCode, &c.SigunguCode, &c.DongCode,
		&c.UserID, &c.CreatedAt, &c.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}
