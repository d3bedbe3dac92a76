// Package sheet loads DHT temperature/humidity records from a spreadsheet
// CSV export.
package sheet

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/campus-air-dashboard/internal/cache"
	"github.com/couchcryptid/campus-air-dashboard/internal/domain"
	"github.com/couchcryptid/campus-air-dashboard/internal/observability"
	"github.com/jonboulle/clockwork"
)

// Client downloads and normalizes the DHT export.
type Client struct {
	httpClient *http.Client
	location   *time.Location
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a sheet client. Timestamps without a zone are read in loc
// (UTC when nil).
func NewClient(timeout time.Duration, loc *time.Location, metrics *observability.Metrics, logger *slog.Logger) *Client {
	if loc == nil {
		loc = time.UTC
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		location:   loc,
		metrics:    metrics,
		logger:     logger,
	}
}

// LoadDHT fetches the export at url and returns its valid rows sorted by time.
// A wrong column count yields an error wrapping ErrColumnCount and no rows.
func (c *Client) LoadDHT(ctx context.Context, url string) ([]domain.DHTRecord, error) {
	res, err := c.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}
	return res.Records, nil
}

// Fetch is LoadDHT with the full parse result, including the header and the
// number of dropped rows.
func (c *Client) Fetch(ctx context.Context, url string) (ParseResult, error) {
	res, err := c.load(ctx, url)
	if err != nil {
		c.metrics.DHTLoadErrors.Inc()
		c.logger.Error("dht load failed", "error", err)
		return res, err
	}
	return res, nil
}

func (c *Client) load(ctx context.Context, url string) (ParseResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return ParseResult{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "text/csv")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return ParseResult{}, fmt.Errorf("fetch sheet: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return ParseResult{}, fmt.Errorf("sheet export error: status %d: %s", resp.StatusCode, body)
	}

	res, err := ParseDHT(resp.Body, c.location)
	if err != nil {
		return res, err
	}

	c.logger.Debug("dht sheet loaded",
		"columns", res.Header,
		"rows", len(res.Records),
		"dropped", res.Dropped,
	)
	c.metrics.DHTRowsLoaded.Add(float64(len(res.Records)))
	c.metrics.DHTRowsDropped.Add(float64(res.Dropped))
	return res, nil
}

// Loader is the operation the cached wrapper decorates.
type Loader interface {
	LoadDHT(ctx context.Context, url string) ([]domain.DHTRecord, error)
}

// Cached wraps a Loader with a TTL cache keyed by URL. Each load fully
// replaces the previous result once the entry expires.
type Cached struct {
	inner   Loader
	ttl     time.Duration
	cache   *cache.TTL[[]domain.DHTRecord]
	metrics *observability.Metrics
}

// NewCached creates a cache decorator around a loader.
func NewCached(inner Loader, ttl time.Duration, clock clockwork.Clock, metrics *observability.Metrics) *Cached {
	return &Cached{
		inner:   inner,
		ttl:     ttl,
		cache:   cache.New[[]domain.DHTRecord](8, clock),
		metrics: metrics,
	}
}

func (c *Cached) LoadDHT(ctx context.Context, url string) ([]domain.DHTRecord, error) {
	if records, ok := c.cache.Get(url); ok {
		c.metrics.CacheLookups.WithLabelValues("dht", "hit").Inc()
		return records, nil
	}
	c.metrics.CacheLookups.WithLabelValues("dht", "miss").Inc()

	records, err := c.inner.LoadDHT(ctx, url)
	if err != nil {
		// Failed loads are not cached so a fixed sheet shows up on the next request.
		return nil, err
	}
	c.cache.Set(url, records, c.ttl)
	return records, nil
}
