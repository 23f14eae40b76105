package services

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"danji_watch/crawler"
	"danji_watch/models"
	"danji_watch/notify"
	"danji_watch/workers"
)

type fakeAlertStore struct {
	alerts []*models.Alert
}

func (f *fakeAlertStore) GetActiveAlertsForComplex(ctx context.Context, complexNo string) ([]*models.Alert, error) {
	return f.alerts, nil
}

type fakeLogStore struct {
	mu   sync.Mutex
	logs []string
	done chan struct{}
}

func (f *fakeLogStore) SaveNotificationLog(ctx context.Context, alertID, channel, status, message string) error {
	f.mu.Lock()
	f.logs = append(f.logs, alertID+"/"+channel+"/"+status)
	f.mu.Unlock()
	select {
	case f.done <- struct{}{}:
	default:
	}
	return nil
}

func man(v int64) *int64 { return &v }

func priced(no, trade, price string) *models.Article {
	return &models.Article{
		ArticleNo:     no,
		TradeTypeName: trade,
		DealPrice:     price,
		DealPriceMan:  crawler.ParsePriceMan(price),
		Area1:         84.9,
	}
}

func TestBuildJobFiltersByAlertRules(t *testing.T) {
	svc := NewAlertService(&fakeAlertStore{}, workers.NewNotifyWorker(nil, nil))
	alert := &models.Alert{
		ID:         "al-1",
		TradeTypes: []string{"매매"},
		MinPrice:   man(40000),
		WebhookURL: "http://example.invalid/hook",
	}
	delta := &models.Delta{
		Added: []*models.Article{
			priced("cheap", "매매", "2억"),    // below min price
			priced("match", "매매", "5억"),    // matches
			priced("rent", "월세", "5억"),     // wrong trade type
		},
		Removed: []*models.Article{
			priced("gone", "매매", "6억"),
		},
	}

	job, ok := svc.buildJob(alert, "테스트단지", delta, 10)
	if !ok {
		t.Fatal("no job built, want one")
	}
	// one added + one removed + summary
	if len(job.Embeds) != 3 {
		t.Fatalf("%d embeds, want 3", len(job.Embeds))
	}
	if job.AlertID != "al-1" || job.URL != alert.WebhookURL {
		t.Errorf("job routing = %s %s", job.AlertID, job.URL)
	}
}

func TestBuildJobNoMatches(t *testing.T) {
	svc := NewAlertService(&fakeAlertStore{}, workers.NewNotifyWorker(nil, nil))
	alert := &models.Alert{ID: "al-1", MinPrice: man(100000)}
	delta := &models.Delta{Added: []*models.Article{priced("a1", "매매", "5억")}}

	if _, ok := svc.buildJob(alert, "테스트단지", delta, 1); ok {
		t.Fatal("job built with no matching articles")
	}
}

func TestProcessRunDeltasDelivers(t *testing.T) {
	var mu sync.Mutex
	var payloads []map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var payload map[string]any
		if err := json.Unmarshal(body, &payload); err != nil {
			t.Errorf("bad webhook payload: %v", err)
		}
		mu.Lock()
		payloads = append(payloads, payload)
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	logs := &fakeLogStore{done: make(chan struct{}, 1)}
	worker := workers.NewNotifyWorker(notify.NewWebhookSender(server.Client()), logs)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go worker.Run(ctx)

	store := &fakeAlertStore{alerts: []*models.Alert{{
		ID:         "al-1",
		IsActive:   true,
		WebhookURL: server.URL,
	}}}
	svc := NewAlertService(store, worker)

	svc.ProcessRunDeltas(ctx, &crawler.IngestResult{
		Deltas: map[string]*models.Delta{
			"1001": {Added: []*models.Article{priced("a1", "매매", "5억")}},
		},
		Names:  map[string]string{"1001": "강변단지"},
		Counts: map[string]int{"1001": 12},
	})

	select {
	case <-logs.done:
	case <-time.After(5 * time.Second):
		t.Fatal("webhook never delivered")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(payloads) != 1 {
		t.Fatalf("%d webhook posts, want 1", len(payloads))
	}
	embeds, _ := payloads[0]["embeds"].([]any)
	// one article embed + summary
	if len(embeds) != 2 {
		t.Errorf("%d embeds, want 2", len(embeds))
	}

	logs.mu.Lock()
	defer logs.mu.Unlock()
	if len(logs.logs) != 1 || logs.logs[0] != "al-1/webhook/sent" {
		t.Errorf("logs = %v, want [al-1/webhook/sent]", logs.logs)
	}
}
