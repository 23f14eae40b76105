package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const (
	embedBatchSize  = 10
	batchSendDelay  = 1 * time.Second
	colorNew        = 0x2ecc71
	colorDeleted    = 0xe74c3c
	colorPriceMoved = 0xf39c12
	colorSummary    = 0x3498db
)

// Embed is the generic structured message rendered for one delta item or a
// run summary.
type Embed struct {
	Title     string  `json:"title"`
	Fields    []Field `json:"fields,omitempty"`
	Color     int     `json:"color"`
	Timestamp string  `json:"timestamp"`
}

type Field struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

type webhookPayload struct {
	Username string  `json:"username,omitempty"`
	Content  string  `json:"content,omitempty"`
	Embeds   []Embed `json:"embeds"`
}

// WebhookSender delivers embeds to a configured endpoint URL, batched at ten
// per request with a fixed delay between batches for rate-limit compliance.
type WebhookSender struct {
	http     *http.Client
	username string
}

func NewWebhookSender(httpClient *http.Client) *WebhookSender {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &WebhookSender{http: httpClient, username: "danji_watch"}
}

// Send posts all embeds to url. The first batch carries the content line.
// Returns on the first failed batch.
func (w *WebhookSender) Send(url, content string, embeds []Embed) error {
	for i := 0; i < len(embeds); i += embedBatchSize {
		end := i + embedBatchSize
		if end > len(embeds) {
			end = len(embeds)
		}

		payload := webhookPayload{
			Username: w.username,
			Embeds:   embeds[i:end],
		}
		if i == 0 {
			payload.Content = content
		}

		if err := w.post(url, payload); err != nil {
			return fmt.Errorf("batch %d: %w", i/embedBatchSize+1, err)
		}

		if end < len(embeds) {
			time.Sleep(batchSendDelay)
		}
	}
	return nil
}

func (w *WebhookSender) post(url string, payload webhookPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	resp, err := w.http.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned %d", resp.StatusCode)
	}
	return nil
}

func now() string {
	return time.Now().Format(time.RFC3339)
}

// NewArticleEmbed renders an added listing.
func NewArticleEmbed(complexName, tradeType, price, area, floor string) Embed {
	return Embed{
		Title: fmt.Sprintf("🆕 신규 매물: %s", complexName),
		Color: colorNew,
		Fields: []Field{
			{Name: "거래유형", Value: tradeType, Inline: true},
			{Name: "가격", Value: price, Inline: true},
			{Name: "면적", Value: area, Inline: true},
			{Name: "층", Value: floor, Inline: true},
		},
		Timestamp: now(),
	}
}

// DeletedArticleEmbed renders a removed listing.
func DeletedArticleEmbed(complexName, tradeType, price string) Embed {
	return Embed{
		Title: fmt.Sprintf("🗑️ 매물 삭제: %s", complexName),
		Color: colorDeleted,
		Fields: []Field{
			{Name: "거래유형", Value: tradeType, Inline: true},
			{Name: "가격", Value: price, Inline: true},
		},
		Timestamp: now(),
	}
}

// PriceChangedEmbed renders a price move, old to new.
func PriceChangedEmbed(complexName, tradeType, oldPrice, newPrice string) Embed {
	return Embed{
		Title: fmt.Sprintf("💰 가격 변동: %s", complexName),
		Color: colorPriceMoved,
		Fields: []Field{
			{Name: "거래유형", Value: tradeType, Inline: true},
			{Name: "변동", Value: fmt.Sprintf("%s → %s", oldPrice, newPrice), Inline: true},
		},
		Timestamp: now(),
	}
}

// SummaryEmbed renders the per-complex run summary.
func SummaryEmbed(complexName string, added, removed, priceChanged, total int) Embed {
	return Embed{
		Title: fmt.Sprintf("📊 크롤링 요약: %s", complexName),
		Color: colorSummary,
		Fields: []Field{
			{Name: "신규", Value: fmt.Sprintf("%d", added), Inline: true},
			{Name: "삭제", Value: fmt.Sprintf("%d", removed), Inline: true},
			{Name: "가격변동", Value: fmt.Sprintf("%d", priceChanged), Inline: true},
			{Name: "전체 매물", Value: fmt.Sprintf("%d", total), Inline: true},
		},
		Timestamp: now(),
	}
}
