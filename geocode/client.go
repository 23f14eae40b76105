package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// Result carries the administrative-area fields for a coordinate.
type Result struct {
	Beopjungdong   string `json:"beopjungdong"`
	Haengjeongdong string `json:"haengjeongdong"`
	SidoCode       string `json:"sidoCode"`
	SigunguCode    string `json:"sigunguCode"`
	DongCode       string `json:"dongCode"`
	RoadAddress    string `json:"roadAddress"`
}

// Client calls the internal reverse-geocode endpoint. Best effort: callers
// log and skip failures, never retry within a run.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{baseURL: baseURL, http: httpClient}
}

func (c *Client) Reverse(ctx context.Context, lat, lng float64) (*Result, error) {
	if c.baseURL == "" {
		return nil, fmt.Errorf("geocode endpoint not configured")
	}

	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse geocode url: %w", err)
	}
	q := u.Query()
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lng", strconv.FormatFloat(lng, 'f', -1, 64))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geocode returned %d", resp.StatusCode)
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode geocode response: %w", err)
	}
	return &result, nil
}
