package geoip

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/abdullah0035/itip-sub000/pkg/httpclient"
)

// Location is the result of an IP lookup. Country is ISO 3166-1 alpha-2.
type Location struct {
	Country string
	City    string
}

// Resolver looks up a rough location for an IP address. Implementations are
// best effort; callers must tolerate errors and empty results.
type Resolver interface {
	Lookup(ctx context.Context, ip string) (*Location, error)
}

// Client resolves IP locations through an external HTTP lookup service,
// protected by a circuit breaker so a flaky upstream cannot slow down logins.
type Client struct {
	http    *httpclient.CircuitBreakerClient
	baseURL string
	logger  *slog.Logger
}

// lookupTimeout caps a single lookup; login latency must not ride on the
// geo provider.
const lookupTimeout = 2 * time.Second

// NewClient creates a geoip client against the given base URL.
func NewClient(baseURL string, logger *slog.Logger) *Client {
	inner := httpclient.New(httpclient.Config{
		Timeout:         lookupTimeout,
		MaxRetries:      1,
		RetryWaitMin:    100 * time.Millisecond,
		RetryWaitMax:    500 * time.Millisecond,
		MaxConnsPerHost: 10,
	})

	cb := httpclient.NewCircuitBreakerClient(
		inner,
		httpclient.DefaultCircuitBreakerConfig("geoip"),
		logger,
	)

	return &Client{
		http:    cb,
		baseURL: baseURL,
		logger:  logger,
	}
}

type lookupResponse struct {
	Status      string `json:"status"`
	CountryCode string `json:"countryCode"`
	City        string `json:"city"`
	Message     string `json:"message"`
}

// Lookup resolves the IP to a country and city.
func (c *Client) Lookup(ctx context.Context, ip string) (*Location, error) {
	ctx, cancel := context.WithTimeout(ctx, lookupTimeout)
	defer cancel()

	u := fmt.Sprintf("%s/json/%s?fields=status,message,countryCode,city", c.baseURL, url.PathEscape(ip))
	resp, err := c.http.Get(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("geoip lookup: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("geoip lookup: status %d", resp.StatusCode)
	}

	var body lookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode geoip response: %w", err)
	}

	if body.Status != "success" {
		return nil, fmt.Errorf("geoip lookup failed: %s", body.Message)
	}

	return &Location{Country: body.CountryCode, City: body.City}, nil
}

// Noop is a Resolver that always reports no location. Used when geo
// enrichment is disabled.
type Noop struct{}

// Lookup implements Resolver.
func (Noop) Lookup(context.Context, string) (*Location, error) {
	return &Location{}, nil
}
