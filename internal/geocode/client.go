// Package geocode translates free-form addresses to coordinates via an
// external geocoding API (spec C9, §4.9).
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Error surfaces a non-OK response from the geocoding API.
type Error struct {
	Status     int
	BodyStatus string
}

func (e *Error) Error() string {
	return fmt.Sprintf("geocode error: status=%d body_status=%q", e.Status, e.BodyStatus)
}

// Result is a resolved coordinate pair.
type Result struct {
	Latitude  float64
	Longitude float64
}

// Client calls an external geocoding API. There is no retry at this
// layer (spec §4.9, §5, §7 item 5): a failure here becomes an
// impossible predicate in the query engine, not a retried request.
type Client struct {
	httpClient *http.Client
	endpoint   string
	apiKey     string
}

func New(endpoint, apiKey string, timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		endpoint:   endpoint,
		apiKey:     apiKey,
	}
}

type geocodeResponse struct {
	Status  string `json:"status"`
	Results []struct {
		Geometry struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

// Geocode resolves address to a coordinate pair. Status != 200 or body
// status != "OK" fails explicitly with *Error.
func (c *Client) Geocode(ctx context.Context, address string) (Result, error) {
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return Result{}, fmt.Errorf("parse geocoding endpoint: %w", err)
	}
	q := u.Query()
	q.Set("address", address)
	q.Set("key", c.apiKey)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return Result{}, fmt.Errorf("build geocoding request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("call geocoding API: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return Result{}, &Error{Status: resp.StatusCode}
	}

	var parsed geocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return Result{}, fmt.Errorf("decode geocoding response: %w", err)
	}
	if parsed.Status != "OK" || len(parsed.Results) == 0 {
		return Result{}, &Error{Status: resp.StatusCode, BodyStatus: parsed.Status}
	}

	loc := parsed.Results[0].Geometry.Location
	return Result{Latitude: loc.Lat, Longitude: loc.Lng}, nil
}
