package models

import "time"

// Alert is one user-configured notification rule. Deltas are filtered against
// the constraints here before anything is sent to the webhook.
type Alert struct {
	ID         string    `json:"id" db:"id"`
	Name       string    `json:"name" db:"name"`
	ComplexNos []string  `json:"complex_nos" db:"complex_nos"`
	TradeTypes []string  `json:"trade_types" db:"trade_types"`
	MinPrice   *int64    `json:"min_price" db:"min_price"` // 만원
	MaxPrice   *int64    `json:"max_price" db:"max_price"`
	MinArea    *float64  `json:"min_area" db:"min_area"`
	MaxArea    *float64  `json:"max_area" db:"max_area"`
	WebhookURL string    `json:"webhook_url" db:"webhook_url"`
	IsActive   bool      `json:"is_active" db:"is_active"`
	UserID     string    `json:"user_id" db:"user_id"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// Matches reports whether an article satisfies the alert's constraints.
// Price comparison uses the normalized amount in 만원.
func (a *Alert) Matches(article *Article) bool {
	if len(a.TradeTypes) > 0 {
		found := false
		for _, t := range a.TradeTypes {
			if t == article.TradeTypeName {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if a.MinPrice != nil && article.DealPriceMan < *a.MinPrice {
		return false
	}
	if a.MaxPrice != nil && article.DealPriceMan > *a.MaxPrice {
		return false
	}
	if a.MinArea != nil && article.Area1 < *a.MinArea {
		return false
	}
	if a.MaxArea != nil && article.Area1 > *a.MaxArea {
		return false
	}
	return true
}

// NotificationLog records one webhook delivery attempt for an alert.
type NotificationLog struct {
	ID        int64     `json:"id" db:"id"`
	AlertID   string    `json:"alert_id" db:"alert_id"`
	Channel   string    `json:"channel" db:"channel"` // webhook
	Status    string    `json:"status" db:"status"`   // sent, failed
	Message   string    `json:"message" db:"message"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
