package dashboard

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/campus-air-dashboard/internal/domain"
	"github.com/couchcryptid/campus-air-dashboard/internal/feed"
	"github.com/couchcryptid/campus-air-dashboard/internal/observability"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// LatestFetcher returns the latest readings with their origin. feed.Feed implements it.
type LatestFetcher interface {
	Latest(ctx context.Context) feed.LatestResult
}

// Publisher sends refresh snapshots downstream.
type Publisher interface {
	Publish(ctx context.Context, snap domain.Snapshot) error
}

// Refresher rebuilds the overview on a fixed interval and keeps the newest one.
type Refresher struct {
	fetcher   LatestFetcher
	publisher Publisher
	threshold float64
	interval  time.Duration
	clock     clockwork.Clock
	logger    *slog.Logger
	metrics   *observability.Metrics

	current atomic.Pointer[Overview]
	ready   atomic.Bool
}

// NewRefresher creates a Refresher. publisher may be nil.
func NewRefresher(fetcher LatestFetcher, publisher Publisher, threshold float64, interval time.Duration, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Refresher {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Refresher{
		fetcher:   fetcher,
		publisher: publisher,
		threshold: threshold,
		interval:  interval,
		clock:     clock,
		logger:    logger,
		metrics:   metrics,
	}
}

// Threshold returns the PM2.5 alert threshold the views are built with.
func (r *Refresher) Threshold() float64 {
	return r.threshold
}

// CheckReadiness returns nil once the first overview has been built.
func (r *Refresher) CheckReadiness(_ context.Context) error {
	if !r.ready.Load() {
		return errors.New("dashboard has not refreshed yet")
	}
	return nil
}

// Current returns the newest overview, or false before the first refresh.
func (r *Refresher) Current() (Overview, bool) {
	ov := r.current.Load()
	if ov == nil {
		return Overview{}, false
	}
	return *ov, true
}

// Run refreshes immediately and then on every tick until ctx is cancelled.
func (r *Refresher) Run(ctx context.Context) error {
	r.logger.Info("refresher started", "interval", r.interval, "threshold", r.threshold)

	ticker := r.clock.NewTicker(r.interval)
	defer ticker.Stop()

	r.Refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("refresher stopping", "reason", ctx.Err())
			return nil
		case <-ticker.Chan():
			r.Refresh(ctx)
		}
	}
}

// Refresh performs one fetch-build-publish cycle and returns the new overview.
func (r *Refresher) Refresh(ctx context.Context) Overview {
	start := r.clock.Now()

	res := r.fetcher.Latest(ctx)
	ov := BuildOverview(res.Readings, r.threshold, start)
	ov.Origin = res.Origin
	if res.Err != nil {
		ov.Degraded = res.Err.Error()
	}

	r.current.Store(&ov)
	r.ready.Store(true)

	r.metrics.NodesReporting.Set(float64(ov.Summary.Reporting))
	if ov.Alert.Active {
		r.metrics.AlertActive.Set(1)
		r.logger.Warn("pm2.5 above threshold", "nodes", ov.Alert.Nodes, "threshold", r.threshold)
	} else {
		r.metrics.AlertActive.Set(0)
	}

	r.publish(ctx, res, ov)
	r.metrics.RefreshDuration.Observe(r.clock.Since(start).Seconds())
	return ov
}

func (r *Refresher) publish(ctx context.Context, res feed.LatestResult, ov Overview) {
	if r.publisher == nil {
		return
	}
	snap := domain.Snapshot{
		ID:          uuid.NewString(),
		GeneratedAt: ov.GeneratedAt,
		Origin:      res.Origin,
		Readings:    res.Readings,
		Threshold:   r.threshold,
		Exceeding:   ov.Alert.Nodes,
	}
	if snap.Readings == nil {
		snap.Readings = []domain.Reading{}
	}
	if err := r.publisher.Publish(ctx, snap); err != nil {
		if ctx.Err() != nil {
			return
		}
		r.metrics.SnapshotErrors.Inc()
		r.logger.Error("publish snapshot failed", "error", err, "snapshot_id", snap.ID)
		return
	}
	r.metrics.SnapshotsSent.Inc()
}
