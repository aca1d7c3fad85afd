// Package nominatim provides a rate-limited client for the OSM Nominatim
// search API with an optional on-disk result cache.
package nominatim

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// DefaultBaseURL is the public Nominatim search endpoint.
const DefaultBaseURL = "https://nominatim.openstreetmap.org/search"

const defaultUserAgent = "ice-maker/0.1 (skatetrax rink directory builder)"

// Query is a structured search request. Empty fields are sent as empty
// parameters, which Nominatim tolerates.
type Query struct {
	Street string
	City   string
	State  string
}

// Address is the structured address detail attached to a hit.
type Address struct {
	Road        string
	HouseNumber string
	City        string
	Town        string
	Village     string
	State       string
	Postcode    string
	ISO3166Lvl4 string
}

// Locality returns the best available locality name: city, then town,
// then village.
func (a Address) Locality() string {
	if a.City != "" {
		return a.City
	}
	if a.Town != "" {
		return a.Town
	}
	return a.Village
}

// Result is the top hit for a query.
type Result struct {
	Lat         float64
	Lon         float64
	DisplayName string
	Address     Address
}

// Option configures the client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithBaseURL overrides the search endpoint, e.g. for a self-hosted instance.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		c.baseURL = u
	}
}

// WithUserAgent sets the User-Agent header. Nominatim's usage policy
// requires one that identifies the application.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithGap sets the minimum interval between requests. The public
// instance requires at least one second.
func WithGap(gap time.Duration) Option {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Every(gap), 1)
	}
}

// WithCache attaches an on-disk result cache. Only successful lookups
// are cached.
func WithCache(cache *Cache) Option {
	return func(c *Client) {
		c.cache = cache
	}
}

// Client queries Nominatim, one request per gap interval.
type Client struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	limiter    *rate.Limiter
	cache      *Cache
}

// NewClient creates a Nominatim client with the given options.
func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    DefaultBaseURL,
		userAgent:  defaultUserAgent,
		limiter:    rate.NewLimiter(rate.Every(time.Second), 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// searchHit is the wire shape of a Nominatim search result. Coordinates
// arrive as strings.
type searchHit struct {
	DisplayName string `json:"display_name"`
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	Address     struct {
		Road        string `json:"road"`
		HouseNumber string `json:"house_number"`
		City        string `json:"city"`
		Town        string `json:"town"`
		Village     string `json:"village"`
		State       string `json:"state"`
		Postcode    string `json:"postcode"`
		ISOLvl4     string `json:"ISO3166-2-lvl4"`
	} `json:"address"`
}

// Search returns the top hit for a structured query, or (nil, nil) when
// Nominatim knows nothing about the address. Cached hits bypass the
// rate limiter.
func (c *Client) Search(ctx context.Context, q Query) (*Result, error) {
	if c.cache != nil {
		if r, err := c.cache.Get(q); err == nil && r != nil {
			return r, nil
		}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "nominatim: rate limit")
	}

	params := url.Values{
		"street":         {q.Street},
		"city":           {q.City},
		"state":          {q.State},
		"country":        {"US"},
		"format":         {"json"},
		"addressdetails": {"1"},
		"limit":          {"1"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "nominatim: build request")
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "nominatim: request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("nominatim: returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "nominatim: read body")
	}

	var hits []searchHit
	if err := json.Unmarshal(body, &hits); err != nil {
		return nil, eris.Wrap(err, "nominatim: parse response")
	}

	if len(hits) == 0 {
		return nil, nil
	}

	hit := hits[0]
	lat, err := strconv.ParseFloat(hit.Lat, 64)
	if err != nil {
		return nil, eris.Wrapf(err, "nominatim: parse lat %q", hit.Lat)
	}
	lon, err := strconv.ParseFloat(hit.Lon, 64)
	if err != nil {
		return nil, eris.Wrapf(err, "nominatim: parse lon %q", hit.Lon)
	}

	r := &Result{
		Lat:         lat,
		Lon:         lon,
		DisplayName: hit.DisplayName,
		Address: Address{
			Road:        hit.Address.Road,
			HouseNumber: hit.Address.HouseNumber,
			City:        hit.Address.City,
			Town:        hit.Address.Town,
			Village:     hit.Address.Village,
			State:       hit.Address.State,
			Postcode:    hit.Address.Postcode,
			ISO3166Lvl4: hit.Address.ISOLvl4,
		},
	}

	if c.cache != nil {
		if err := c.cache.Put(q, r); err != nil {
			zap.L().Warn("geocode cache store failed", zap.Error(err))
		}
	}

	return r, nil
}
