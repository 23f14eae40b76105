package workers

import (
	"context"
	"log"

	"danji_watch/notify"
)

// NotificationLogStore records delivery attempts.
type NotificationLogStore interface {
	SaveNotificationLog(ctx context.Context, alertID, channel, status, message string) error
}

// WebhookJob is one queued delivery: a webhook URL plus the embeds to post.
type WebhookJob struct {
	AlertID string
	URL     string
	Content string
	Embeds  []notify.Embed
}

// NotifyWorker delivers webhook jobs off a bounded queue so slow webhook
// endpoints never stall a crawl run.
type NotifyWorker struct {
	sender *notify.WebhookSender
	store  NotificationLogStore
	jobs   chan WebhookJob
}

func NewNotifyWorker(sender *notify.WebhookSender, store NotificationLogStore) *NotifyWorker {
	return &NotifyWorker{
		sender: sender,
		store:  store,
		jobs:   make(chan WebhookJob, 64),
	}
}

// Enqueue hands a job to the worker. Returns false and drops the job when the
// queue is full.
func (w *NotifyWorker) Enqueue(job WebhookJob) bool {
	select {
	case w.jobs <- job:
		return true
	default:
		log.Printf("notify queue full, dropping job for alert %s", job.AlertID)
		return false
	}
}

func (w *NotifyWorker) Run(ctx context.Context) {
	log.Println("notify worker started")
	for {
		select {
		case <-ctx.Done():
			log.Println("notify worker stopped")
			return
		case job := <-w.jobs:
			w.deliver(ctx, job)
		}
	}
}

func (w *NotifyWorker) deliver(ctx context.Context, job WebhookJob) {
	status := "sent"
	message := job.Content
	if err := w.sender.Send(job.URL, job.Content, job.Embeds); err != nil {
		status = "failed"
		message = err.Error()
		log.Printf("webhook delivery for alert %s failed: %v", job.AlertID, err)
	}
	if w.store == nil {
		return
	}
	if err := w.store.SaveNotificationLog(ctx, job.AlertID, "webhook", status, message); err != nil {
		log.Printf("save notification log for alert %s: %v", job.AlertID, err)
	}
}
