package services

import (
	"context"
	"fmt"
	"log"

	"danji_watch/crawler"
	"danji_watch/models"
	"danji_watch/notify"
	"danji_watch/workers"
)

// AlertStore serves active alert rules per complex.
type AlertStore interface {
	GetActiveAlertsForComplex(ctx context.Context, complexNo string) ([]*models.Alert, error)
}

// AlertService matches a run's per-complex deltas against user alert rules
// and queues webhook notifications for the hits. It implements the crawl
// supervisor's notifier hook.
type AlertService struct {
	store  AlertStore
	worker *workers.NotifyWorker
}

func NewAlertService(store AlertStore, worker *workers.NotifyWorker) *AlertService {
	return &AlertService{store: store, worker: worker}
}

func (s *AlertService) ProcessRunDeltas(ctx context.Context, result *crawler.IngestResult) {
	if result == nil {
		return
	}
	queued := 0
	for complexNo, delta := range result.Deltas {
		if delta == nil || delta.Empty() {
			continue
		}
		alerts, err := s.store.GetActiveAlertsForComplex(ctx, complexNo)
		if err != nil {
			log.Printf("alerts for complex %s: %v", complexNo, err)
			continue
		}
		name := result.Names[complexNo]
		if name == "" {
			name = complexNo
		}
		for _, alert := range alerts {
			job, ok := s.buildJob(alert, name, delta, result.Counts[complexNo])
			if !ok {
				continue
			}
			if s.worker.Enqueue(job) {
				queued++
			}
		}
	}
	if queued > 0 {
		log.Printf("alerts: %d webhook jobs queued", queued)
	}
}

// buildJob filters one delta through one alert's constraints and assembles
// the embeds. Returns ok=false when nothing matched.
func (s *AlertService) buildJob(alert *models.Alert, complexName string, delta *models.Delta, total int) (workers.WebhookJob, bool) {
	var embeds []notify.Embed
	var added, removed, changed int

	for _, a := range delta.Added {
		if alert.Matches(a) {
			embeds = append(embeds, notify.NewArticleEmbed(
				complexName, a.TradeTypeName, a.DealPrice, formatArea(a.Area1), a.FloorInfo))
			added++
		}
	}
	for _, a := range delta.Removed {
		if alert.Matches(a) {
			embeds = append(embeds, notify.DeletedArticleEmbed(complexName, a.TradeTypeName, a.DealPrice))
			removed++
		}
	}
	for _, pc := range delta.PriceChanged {
		if alert.Matches(pc.New) {
			embeds = append(embeds, notify.PriceChangedEmbed(
				complexName, pc.New.TradeTypeName, pc.Old.DealPrice, pc.New.DealPrice))
			changed++
		}
	}

	if len(embeds) == 0 {
		return workers.WebhookJob{}, false
	}
	embeds = append(embeds, notify.SummaryEmbed(complexName, added, removed, changed, total))
	return workers.WebhookJob{
		AlertID: alert.ID,
		URL:     alert.WebhookURL,
		Embeds:  embeds,
	}, true
}

func formatArea(area float64) string {
	if area <= 0 {
		return "-"
	}
	return fmt.Sprintf("%.1f㎡", area)
}
