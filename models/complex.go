package models

import "time"

// Complex is one crawl target: an apartment complex identified by a stable
// external number. Geo fields are filled lazily and cached; once resolved
// they are never geocoded again.
type Complex struct {
	ID             string    `json:"id" db:"id"`
	ComplexNo      string    `json:"complex_no" db:"complex_no"`
	ComplexName    string    `json:"complex_name" db:"complex_name"`
	TotalHousehold *int      `json:"total_household" db:"total_household"`
	TotalDong      *int      `json:"total_dong" db:"total_dong"`
	Latitude       *float64  `json:"latitude" db:"latitude"`
	Longitude      *float64  `json:"longitude" db:"longitude"`
	Address        string    `json:"address" db:"address"`
	RoadAddress    string    `json:"road_address" db:"road_address"`
	Beopjungdong   string    `json:"beopjungdong" db:"beopjungdong"`
	Haengjeongdong string    `json:"haengjeongdong" db:"haengjeongdong"`
	SidoCode       string    `json:"sido_code" db:"sido_code"`
	SigunguCode    string    `json:"sigungu_code" db:"sigungu_code"`
	DongCode       string    `json:"dong_code" db:"dong_code"`
	UserID         string    `json:"user_id" db:"user_id"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// HasGeo reports whether administrative-area fields are already resolved.
func (c *Complex) HasGeo() bool {
	return c.Beopjungdong != ""
}

// Favorite links a user to a bookmarked complex. Schedules in favorites mode
// resolve their target list through this table at fire time.
type Favorite struct {
	ID        int64     `json:"id" db:"id"`
	UserID    string    `json:"user_id" db:"user_id"`
	ComplexID string    `json:"complex_id" db:"complex_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
