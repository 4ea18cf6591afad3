package wwo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/spencer-p/tidegraph/pkg/tides"
)

const (
	WWO_URL = "https://api.worldweatheronline.com/premium/v1/marine.ashx"
)

// Client talks to the marine API.
type Client struct {
	baseURL string
	key     string
	http    *http.Client
}

// NewClient returns a client for the API at baseURL, or the public endpoint
// when baseURL is empty.
func NewClient(baseURL, key string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = WWO_URL
	}
	return &Client{
		baseURL: baseURL,
		key:     key,
		http:    &http.Client{Timeout: timeout},
	}
}

// GetTides fetches tide events for a location. Malformed entries are logged
// and skipped.
func (c *Client) GetTides(ctx context.Context, locationID int64, q *MarineQuery) ([]tides.Event, error) {
	var result MarineResult

	// Build request URL first
	addr, err := c.url(q)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, addr.String(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("requesting tides: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("marine api returned %s", resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding tides: %w", err)
	}
	if len(result.Data.Error) > 0 {
		return nil, errors.New("marine api: " + result.Data.Error[0].Msg)
	}

	events, errs := result.Events(locationID)
	for _, err := range errs {
		zerolog.Ctx(ctx).Warn().
			Err(err).
			Int64("location_id", locationID).
			Msg("Skipping malformed tide entry")
	}
	return events, nil
}

func (c *Client) url(q *MarineQuery) (*url.URL, error) {
	addr, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, err
	}
	vals := q.build()
	vals.Add("key", c.key)
	addr.RawQuery = vals.Encode()
	return addr, nil
}

func (q *MarineQuery) build() url.Values {
	vals := make(url.Values)
	vals.Add("format", "json")
	vals.Add("q", strconv.FormatFloat(q.Lat, 'f', -1, 64)+","+strconv.FormatFloat(q.Long, 'f', -1, 64))
	vals.Add("tide", "yes")
	if !q.Date.IsZero() {
		vals.Add("date", q.Date.String())
	}
	return vals
}
