package crawler

import (
	"context"
	"fmt"
	"log"
	"time"

	"danji_watch/geocode"
	"danji_watch/models"
)

// Geocoder resolves administrative-area names for a coordinate.
type Geocoder interface {
	Reverse(ctx context.Context, lat, lng float64) (*geocode.Result, error)
}

// IngestResult summarizes one run's result-file processing.
type IngestResult struct {
	TotalComplexes int
	TotalArticles  int
	Inserted       int
	Skipped        int
	Errors         []string
	ArtifactPath   string

	// Deltas, Names and Counts are keyed by complex number for alert fan-out.
	Deltas map[string]*models.Delta
	Names  map[string]string
	Counts map[string]int
}

// ingest reads the worker's newest artifact and persists it: complexes first
// (with cached geo data merged and missing areas geocoded), then a
// delete-and-insert replacement of every target's listings inside one
// transaction. Per-complex deltas are captured against the pre-replacement
// snapshot.
func (s *Supervisor) ingest(ctx context.Context, run *models.CrawlRun) (*IngestResult, error) {
	s.step(ctx, run.ID, "Reading crawl result files")
	entries, notes, artifactPath, err := LoadLatestResults(s.dataDir)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("result file %s had no usable entries", artifactPath)
	}

	res := &IngestResult{
		TotalComplexes: len(entries),
		Errors:         notes,
		ArtifactPath:   artifactPath,
		Deltas:         make(map[string]*models.Delta),
		Names:          make(map[string]string),
		Counts:         make(map[string]int),
	}

	s.step(ctx, run.ID, fmt.Sprintf("Processing %d complexes", len(entries)))
	complexes := buildComplexes(entries, run.UserID)

	s.step(ctx, run.ID, "Merging cached geo data")
	nos := make([]string, 0, len(complexes))
	for _, c := range complexes {
		nos = append(nos, c.ComplexNo)
	}
	cached, err := s.store.GetExistingGeoData(ctx, nos)
	if err != nil {
		log.Printf("geo cache lookup failed, geocoding everything: %v", err)
		cached = nil
	}
	for _, c := range complexes {
		if prev, ok := cached[c.ComplexNo]; ok && prev.HasGeo() {
			c.Beopjungdong = prev.Beopjungdong
			c.Haengjeongdong = prev.Haengjeongdong
			c.SidoCode = prev.SidoCode
			c.SigunguCode = prev.SigunguCode
			c.DongCode = prev.DongCode
		}
	}

	s.step(ctx, run.ID, "Reverse geocoding addresses")
	s.geocodeMissing(ctx, complexes)

	s.step(ctx, run.ID, "Saving complex data")
	idByNo, err := s.store.UpsertComplexes(ctx, complexes)
	if err != nil {
		return nil, fmt.Errorf("save complexes: %w", err)
	}
	for _, c := range complexes {
		res.Names[c.ComplexNo] = c.ComplexName
	}

	s.step(ctx, run.ID, "Preparing article data")
	articles, prepErrs := buildArticles(entries, idByNo)
	res.Errors = append(res.Errors, prepErrs...)
	res.TotalArticles = len(articles)

	noByID := make(map[string]string, len(idByNo))
	for no, id := range idByNo {
		noByID[id] = no
	}
	touched := make(map[string]bool)
	for _, a := range articles {
		touched[a.ComplexID] = true
	}
	complexIDs := make([]string, 0, len(touched))
	for id := range touched {
		complexIDs = append(complexIDs, id)
	}

	before := make(map[string][]*models.Article, len(complexIDs))
	for _, id := range complexIDs {
		prev, err := s.store.GetArticlesByComplexID(ctx, id)
		if err != nil {
			log.Printf("previous snapshot for complex %s failed: %v", id, err)
			continue
		}
		before[id] = prev
	}

	s.step(ctx, run.ID, "Saving article data")
	inserted, skipped, err := s.store.ReplaceArticles(ctx, complexIDs, articles)
	if err != nil {
		return nil, fmt.Errorf("save articles: %w", err)
	}
	res.Inserted = inserted
	res.Skipped = skipped

	currentByID := make(map[string][]*models.Article)
	for _, a := range articles {
		currentByID[a.ComplexID] = append(currentByID[a.ComplexID], a)
	}
	for _, id := range complexIDs {
		no := noByID[id]
		if no == "" {
			continue
		}
		res.Deltas[no] = DetectDelta(before[id], currentByID[id])
		res.Counts[no] = len(currentByID[id])
	}

	s.step(ctx, run.ID, "DB save completed")
	return res, nil
}

// geocodeMissing resolves areas for complexes that have coordinates but no
// cached geo data. Calls are serialized with a fixed delay between them;
// failures are logged and skipped.
func (s *Supervisor) geocodeMissing(ctx context.Context, complexes []*models.Complex) {
	if s.geocoder == nil {
		return
	}
	first := true
	for _, c := range complexes {
		if c.HasGeo() || c.Latitude == nil || c.Longitude == nil {
			continue
		}
		if !first {
			select {
			case <-time.After(s.geocodeDelay):
			case <-ctx.Done():
				return
			}
		}
		first = false

		result, err := s.geocoder.Reverse(ctx, *c.Latitude, *c.Longitude)
		if err != nil {
			log.Printf("geocode %s (%s) failed: %v", c.ComplexNo, c.ComplexName, err)
			continue
		}
		c.Beopjungdong = result.Beopjungdong
		c.Haengjeongdong = result.Haengjeongdong
		c.SidoCode = result.SidoCode
		c.SigunguCode = result.SigunguCode
		c.DongCode = result.DongCode
		if c.RoadAddress == "" {
			c.RoadAddress = result.RoadAddress
		}
	}
}

func buildComplexes(entries []*models.CrawlResultEntry, userID string) []*models.Complex {
	out := make([]*models.Complex, 0, len(entries))
	for _, entry := range entries {
		c := &models.Complex{
			ComplexNo: entry.ComplexNo(),
			UserID:    userID,
		}
		if ov := entry.Overview; ov != nil {
			c.ComplexName = ov.ComplexName
			c.Address = ov.Address
			c.RoadAddress = ov.RoadAddress
			c.Beopjungdong = ov.Beopjungdong
			c.Haengjeongdong = ov.Haengjeongdong
			if ov.TotalHousehold > 0 {
				v := ov.TotalHousehold
				c.TotalHousehold = &v
			}
			if ov.TotalDong > 0 {
				v := ov.TotalDong
				c.TotalDong = &v
			}
			if lat, lng := ov.Lat(), ov.Lng(); lat != 0 && lng != 0 {
				c.Latitude = &lat
				c.Longitude = &lng
			}
		}
		out = append(out, c)
	}
	return out
}

// buildArticles flattens entry listings into rows, deduplicating globally by
// article number and normalizing prices to 만원.
func buildArticles(entries []*models.CrawlResultEntry, idByNo map[string]string) ([]*models.Article, []string) {
	var out []*models.Article
	var errs []string
	seen := make(map[string]bool)

	for _, entry := range entries {
		no := entry.ComplexNo()
		complexID, ok := idByNo[no]
		if !ok {
			errs = append(errs, fmt.Sprintf("complex %s: no saved id, articles dropped", no))
			continue
		}
		if entry.Articles == nil {
			continue
		}
		for i := range entry.Articles.ArticleList {
			ra := &entry.Articles.ArticleList[i]
			if ra.ArticleNo == "" || seen[ra.ArticleNo] {
				continue
			}
			seen[ra.ArticleNo] = true

			a := &models.Article{
				ArticleNo:     ra.ArticleNo,
				ComplexID:     complexID,
				TradeTypeName: ra.TradeTypeName,
				DealPrice:     ra.DealPrice,
				RentPrice:     ra.RentPrice,
				DealPriceMan:  ParsePriceMan(ra.DealPrice),
				RentPriceMan:  ParsePriceMan(ra.RentPrice),
				FloorInfo:     ra.FloorInfo,
				Direction:     ra.Direction,
				BuildingName:  ra.BuildingName,
				RealtorName:   ra.RealtorName,
				FeatureDesc:   ra.FeatureDesc,
				ConfirmedYmd:  ra.ConfirmedYmd,
			}
			if v, err := ra.Area1.Float64(); err == nil {
				a.Area1 = v
			}
			if v, err := ra.Area2.Float64(); err == nil && v > 0 {
				a.Area2 = &v
			}
			out = append(out, a)
		}
	}
	return out, errs
}
