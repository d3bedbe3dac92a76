// Package feed serves latest readings and trend series, falling back to
// synthetic or empty data when the air-quality API fails. Results are held in
// a short-lived cache so repeated dashboard refreshes reuse the last outcome.
package feed

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/couchcryptid/campus-air-dashboard/internal/cache"
	"github.com/couchcryptid/campus-air-dashboard/internal/domain"
	"github.com/couchcryptid/campus-air-dashboard/internal/observability"
	"github.com/jonboulle/clockwork"
)

// Source fetches live data. airapi.Client implements it.
type Source interface {
	Latest(ctx context.Context) ([]domain.Reading, error)
	Series(ctx context.Context, nodeID string, minutes int) ([]domain.SeriesPoint, error)
}

// Simulator produces substitute data. simulate.Generator implements it.
type Simulator interface {
	Latest() []domain.Reading
	Series(nodeID string, minutes int) []domain.SeriesPoint
}

// LatestResult is the outcome of a latest-readings lookup. Err holds the
// fetch failure when Origin is not OriginAPI.
type LatestResult struct {
	Readings []domain.Reading
	Origin   domain.Origin
	Err      error
}

// SeriesResult is the outcome of a series lookup.
type SeriesResult struct {
	NodeID string
	Points []domain.SeriesPoint
	Origin domain.Origin
	Err    error
}

// Options configures a Feed.
type Options struct {
	Simulate  bool
	LatestTTL time.Duration
	SeriesTTL time.Duration
	CacheSize int
	Clock     clockwork.Clock
}

// DefaultOptions mirror the dashboard defaults: simulate on failure, 10s
// latest TTL, 15s series TTL.
func DefaultOptions() Options {
	return Options{
		Simulate:  true,
		LatestTTL: 10 * time.Second,
		SeriesTTL: 15 * time.Second,
		CacheSize: 256,
	}
}

// Feed implements fetch-with-fallback over a Source.
type Feed struct {
	source    Source
	simulator Simulator
	opts      Options
	latest    *cache.TTL[LatestResult]
	series    *cache.TTL[SeriesResult]
	metrics   *observability.Metrics
	logger    *slog.Logger
}

// New creates a Feed. simulator may be nil when opts.Simulate is false.
func New(source Source, simulator Simulator, opts Options, metrics *observability.Metrics, logger *slog.Logger) *Feed {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if simulator == nil {
		opts.Simulate = false
	}
	return &Feed{
		source:    source,
		simulator: simulator,
		opts:      opts,
		latest:    cache.New[LatestResult](1, opts.Clock),
		series:    cache.New[SeriesResult](opts.CacheSize, opts.Clock),
		metrics:   metrics,
		logger:    logger,
	}
}

// Latest returns the latest readings, from cache when fresh.
func (f *Feed) Latest(ctx context.Context) LatestResult {
	res, hit := f.latest.GetOrLoad("latest", f.opts.LatestTTL, func() LatestResult {
		return f.loadLatest(ctx)
	})
	f.countLookup("latest", hit)
	return res
}

// Series returns the PM2.5 series of a node, from cache when fresh.
func (f *Feed) Series(ctx context.Context, nodeID string, minutes int) SeriesResult {
	key := "series|" + nodeID + "|" + strconv.Itoa(minutes)
	res, hit := f.series.GetOrLoad(key, f.opts.SeriesTTL, func() SeriesResult {
		return f.loadSeries(ctx, nodeID, minutes)
	})
	f.countLookup("series", hit)
	return res
}

// GetLatest returns just the readings of Latest.
func (f *Feed) GetLatest(ctx context.Context) []domain.Reading {
	return f.Latest(ctx).Readings
}

// GetSeries returns just the points of Series.
func (f *Feed) GetSeries(ctx context.Context, nodeID string, minutes int) []domain.SeriesPoint {
	return f.Series(ctx, nodeID, minutes).Points
}

func (f *Feed) loadLatest(ctx context.Context) LatestResult {
	readings, err := f.source.Latest(ctx)
	if err == nil {
		return LatestResult{Readings: readings, Origin: domain.OriginAPI}
	}

	if f.opts.Simulate {
		f.fallback("latest", domain.OriginSimulated, err)
		return LatestResult{Readings: f.simulator.Latest(), Origin: domain.OriginSimulated, Err: err}
	}
	f.fallback("latest", domain.OriginEmpty, err)
	return LatestResult{Readings: []domain.Reading{}, Origin: domain.OriginEmpty, Err: err}
}

func (f *Feed) loadSeries(ctx context.Context, nodeID string, minutes int) SeriesResult {
	points, err := f.source.Series(ctx, nodeID, minutes)
	if err == nil {
		return SeriesResult{NodeID: nodeID, Points: points, Origin: domain.OriginAPI}
	}

	if f.opts.Simulate {
		f.fallback("series", domain.OriginSimulated, err)
		return SeriesResult{NodeID: nodeID, Points: f.simulator.Series(nodeID, minutes), Origin: domain.OriginSimulated, Err: err}
	}
	f.fallback("series", domain.OriginEmpty, err)
	return SeriesResult{NodeID: nodeID, Points: []domain.SeriesPoint{}, Origin: domain.OriginEmpty, Err: err}
}

func (f *Feed) fallback(endpoint string, origin domain.Origin, err error) {
	f.logger.Info("using fallback data", "endpoint", endpoint, "origin", origin, "error", err)
	f.metrics.FetchFallback.WithLabelValues(endpoint, string(origin)).Inc()
}

func (f *Feed) countLookup(endpoint string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	f.metrics.CacheLookups.WithLabelValues(endpoint, result).Inc()
}
