package models

import "time"

// Article is the current known state of one listing belonging to a complex.
// The whole set for a complex is replaced on every successful ingestion, so
// rows only ever reflect the latest crawl.
type Article struct {
	ID            int64     `json:"id" db:"id"`
	ArticleNo     string    `json:"article_no" db:"article_no"`
	ComplexID     string    `json:"complex_id" db:"complex_id"`
	TradeTypeName string    `json:"trade_type_name" db:"trade_type_name"`
	DealPrice     string    `json:"deal_price" db:"deal_price"`
	RentPrice     string    `json:"rent_price" db:"rent_price"`
	DealPriceMan  int64     `json:"deal_price_man" db:"deal_price_man"`
	RentPriceMan  int64     `json:"rent_price_man" db:"rent_price_man"`
	Area1         float64   `json:"area1" db:"area1"`
	Area2         *float64  `json:"area2" db:"area2"`
	FloorInfo     string    `json:"floor_info" db:"floor_info"`
	Direction     string    `json:"direction" db:"direction"`
	BuildingName  string    `json:"building_name" db:"building_name"`
	RealtorName   string    `json:"realtor_name" db:"realtor_name"`
	FeatureDesc   string    `json:"feature_desc" db:"feature_desc"`
	ConfirmedYmd  string    `json:"confirmed_ymd" db:"confirmed_ymd"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}
