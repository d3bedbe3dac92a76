package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "air_dashboard"

// Metrics holds the Prometheus counters, histograms, and gauges for the dashboard.
type Metrics struct {
	// Air-quality API fetches.
	FetchRequests *prometheus.CounterVec   // labels: endpoint={latest,series}, outcome={success,transport,status,decode}
	FetchDuration *prometheus.HistogramVec // labels: endpoint
	FetchFallback *prometheus.CounterVec   // labels: endpoint, origin={simulated,empty}
	CacheLookups  *prometheus.CounterVec   // labels: endpoint={latest,series,dht}, result={hit,miss}

	// DHT spreadsheet ingestion.
	DHTRowsLoaded  prometheus.Counter
	DHTRowsDropped prometheus.Counter
	DHTLoadErrors  prometheus.Counter

	// Refresh loop.
	RefreshDuration prometheus.Histogram
	AlertActive     prometheus.Gauge
	NodesReporting  prometheus.Gauge
	SnapshotsSent   prometheus.Counter
	SnapshotErrors  prometheus.Counter
}

// NewMetrics creates and registers all dashboard metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.FetchRequests,
		m.FetchDuration,
		m.FetchFallback,
		m.CacheLookups,
		m.DHTRowsLoaded,
		m.DHTRowsDropped,
		m.DHTLoadErrors,
		m.RefreshDuration,
		m.AlertActive,
		m.NodesReporting,
		m.SnapshotsSent,
		m.SnapshotErrors,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

// NewLocalMetrics creates unregistered Metrics for one-shot tools that expose
// no /metrics endpoint.
func NewLocalMetrics() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		FetchRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_requests_total",
			Help:      "Air-quality API requests by endpoint and outcome.",
		}, []string{"endpoint", "outcome"}),
		FetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Air-quality API request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"endpoint"}),
		FetchFallback: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_fallback_total",
			Help:      "Failed fetches replaced by simulated or empty results.",
		}, []string{"endpoint", "origin"}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Result cache lookups by endpoint and result.",
		}, []string{"endpoint", "result"}),
		DHTRowsLoaded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dht_rows_loaded_total",
			Help:      "DHT rows kept after normalization.",
		}),
		DHTRowsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dht_rows_dropped_total",
			Help:      "DHT rows dropped because a field failed to parse.",
		}),
		DHTLoadErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dht_load_errors_total",
			Help:      "DHT loads that failed outright (fetch or column shape).",
		}),
		RefreshDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "refresh_duration_seconds",
			Help:      "Duration of one dashboard refresh cycle.",
			Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
		AlertActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "alert_active",
			Help:      "1 when any node's PM2.5 exceeds the alert threshold.",
		}),
		NodesReporting: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "nodes_reporting",
			Help:      "Nodes with a PM2.5 value in the latest refresh.",
		}),
		SnapshotsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshots_published_total",
			Help:      "Refresh snapshots written to Kafka.",
		}),
		SnapshotErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshot_errors_total",
			Help:      "Refresh snapshots that failed to publish.",
		}),
	}
}
