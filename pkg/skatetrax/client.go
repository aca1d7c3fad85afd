// Package skatetrax talks to the peer skatetrax system: its public rink
// API, read during promotion for UUID alignment, and its operational
// Postgres database, written by the push and read by the ice-time sync.
package skatetrax

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// DefaultAPIURL is the public rink list endpoint.
const DefaultAPIURL = "https://api.skatetrax.com/api/v4/public/rinks"

// Rink is one row of the public rink list.
type Rink struct {
	ID      string `json:"rink_id"`
	Name    string `json:"rink_name"`
	Address string `json:"rink_address"`
	City    string `json:"rink_city"`
	State   string `json:"rink_state"`
}

// ClientOption configures the API client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithAPIURL overrides the rink list endpoint. An empty URL disables
// the client; FetchRinks then reports no rinks.
func WithAPIURL(u string) ClientOption {
	return func(c *Client) {
		c.apiURL = u
	}
}

// Client fetches the public rink list.
type Client struct {
	httpClient *http.Client
	apiURL     string
	logger     *zap.Logger
}

// NewClient creates a rink list client with the given options.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		apiURL:     DefaultAPIURL,
		logger:     zap.L().With(zap.String("component", "skatetrax.client")),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchRinks returns the published rinks, dropping rows whose city is
// the "-" placeholder. Every failure mode degrades to (nil, nil) after
// a warning: alignment with the peer is an optimization, and promotion
// without it simply mints fresh identifiers.
func (c *Client) FetchRinks(ctx context.Context) ([]Rink, error) {
	if c.apiURL == "" {
		return nil, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL, nil)
	if err != nil {
		c.logger.Warn("public API request failed", zap.Error(err))
		return nil, nil
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("public API request failed", zap.Error(err))
		return nil, nil
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("public API request failed",
			zap.Int("status", resp.StatusCode))
		return nil, nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.logger.Warn("public API request failed", zap.Error(err))
		return nil, nil
	}

	var rinks []Rink
	if err := json.Unmarshal(body, &rinks); err != nil {
		c.logger.Warn("public API returned unparseable body", zap.Error(err))
		return nil, nil
	}

	out := make([]Rink, 0, len(rinks))
	for _, r := range rinks {
		if r.City == "-" {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}
