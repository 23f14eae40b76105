package httputil

import (
	"net/http"
	"time"
)

// Clients separates the internal geocode endpoint from outbound webhook
// delivery so a slow webhook target cannot starve geocoding and vice versa.
type Clients struct {
	Geocode *http.Client
	Webhook *http.Client
}

func NewClients() *Clients {
	return &Clients{
		Geocode: &http.Client{Timeout: 10 * time.Second},
		Webhook: &http.Client{
			Timeout: 15 * time.Second,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}
