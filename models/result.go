package models

import "encoding/json"

// CrawlResultEntry is one complex's worth of worker output. The worker writes
// an array of these as a single JSON artifact. Overview or articles may be
// missing on partially failed targets; entries lacking both are skipped.
type CrawlResultEntry struct {
	Overview     *ResultOverview `json:"overview"`
	Articles     *ResultArticles `json:"articles"`
	CrawlingInfo *CrawlingInfo   `json:"crawling_info"`
}

// ComplexNo resolves the target identifier, overview first with a fallback to
// the worker's own crawl metadata.
func (e *CrawlResultEntry) ComplexNo() string {
	if e.Overview != nil && e.Overview.ComplexNo != "" {
		return e.Overview.ComplexNo
	}
	if e.CrawlingInfo != nil {
		return e.CrawlingInfo.ComplexNo
	}
	return ""
}

type ResultOverview struct {
	ComplexNo      string          `json:"complexNo"`
	ComplexName    string          `json:"complexName"`
	TotalHousehold int             `json:"totalHouseholdCount"`
	TotalDong      int             `json:"totalDongCount"`
	Latitude       float64         `json:"latitude"`
	Longitude      float64         `json:"longitude"`
	Location       *ResultLocation `json:"location"`
	Address        string          `json:"address"`
	RoadAddress    string          `json:"roadAddress"`
	Beopjungdong   string          `json:"beopjungdong"`
	Haengjeongdong string          `json:"haengjeongdong"`
}

type ResultLocation struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Lat returns the overview coordinate, preferring the nested location block.
func (o *ResultOverview) Lat() float64 {
	if o.Location != nil && o.Location.Latitude != 0 {
		return o.Location.Latitude
	}
	return o.Latitude
}

func (o *ResultOverview) Lng() float64 {
	if o.Location != nil && o.Location.Longitude != 0 {
		return o.Location.Longitude
	}
	return o.Longitude
}

type ResultArticles struct {
	ArticleList []ResultArticle `json:"articleList"`
}

type ResultArticle struct {
	ArticleNo     string          `json:"articleNo"`
	TradeTypeName string          `json:"tradeTypeName"`
	DealPrice     string          `json:"dealOrWarrantPrc"`
	RentPrice     string          `json:"rentPrc"`
	Area1         json.Number     `json:"area1"`
	Area2         json.Number     `json:"area2"`
	FloorInfo     string          `json:"floorInfo"`
	Direction     string          `json:"direction"`
	BuildingName  string          `json:"buildingName"`
	RealtorName   string          `json:"realtorName"`
	FeatureDesc   string          `json:"articleFeatureDesc"`
	ConfirmedYmd  string          `json:"articleConfirmYmd"`
	Latitude      json.Number     `json:"latitude"`
	Longitude     json.Number     `json:"longitude"`
	TagList       json.RawMessage `json:"tagList"`
}

type CrawlingInfo struct {
	ComplexNo string `json:"complex_no"`
	CrawledAt string `json:"crawled_at"`
}
