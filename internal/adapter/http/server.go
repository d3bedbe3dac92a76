package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/couchcryptid/campus-air-dashboard/internal/adapter/sheet"
	"github.com/couchcryptid/campus-air-dashboard/internal/dashboard"
	"github.com/couchcryptid/campus-air-dashboard/internal/domain"
	"github.com/couchcryptid/campus-air-dashboard/internal/feed"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MaxSeriesMinutes bounds the minutes query parameter of /api/series.
const MaxSeriesMinutes = 24 * 60

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// Dashboard provides the latest overview. dashboard.Refresher implements it.
type Dashboard interface {
	Current() (dashboard.Overview, bool)
	Refresh(ctx context.Context) dashboard.Overview
	Threshold() float64
}

// SeriesSource provides trend series. feed.Feed implements it.
type SeriesSource interface {
	Series(ctx context.Context, nodeID string, minutes int) feed.SeriesResult
}

// DHTLoader provides DHT records. sheet.Cached implements it.
type DHTLoader interface {
	LoadDHT(ctx context.Context, url string) ([]domain.DHTRecord, error)
}

// Deps are the data sources behind the /api routes.
type Deps struct {
	Dashboard     Dashboard
	Series        SeriesSource
	DHT           DHTLoader
	DHTURL        string
	SeriesMinutes int
	Location      *time.Location
}

// Server exposes the dashboard API alongside health, readiness, and metrics endpoints.
type Server struct {
	httpServer *http.Server
	deps       Deps
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics and the
// /api dashboard routes.
func NewServer(addr string, ready ReadinessChecker, deps Deps, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		deps:   deps,
		logger: logger,
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", handleReady(ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /api/overview", s.handleOverview)
	mux.HandleFunc("GET /api/series", s.handleSeries)
	mux.HandleFunc("GET /api/dht", s.handleDHT)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func handleReady(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.CheckReadiness(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

// overview returns the refresher's newest view, building one on demand
// before the first tick.
func (s *Server) overview(ctx context.Context) dashboard.Overview {
	if ov, ok := s.deps.Dashboard.Current(); ok {
		return ov
	}
	return s.deps.Dashboard.Refresh(ctx)
}

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.overview(r.Context()))
}

func (s *Server) handleSeries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	minutes := s.deps.SeriesMinutes
	if raw := q.Get("minutes"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > MaxSeriesMinutes {
			writeError(w, http.StatusBadRequest, "minutes must be an integer between 1 and "+strconv.Itoa(MaxSeriesMinutes))
			return
		}
		minutes = n
	}

	nodeID := q.Get("node_id")
	if nodeID == "" {
		ov := s.overview(r.Context())
		if len(ov.Nodes) == 0 {
			writeError(w, http.StatusBadRequest, "node_id is required when no nodes are reporting")
			return
		}
		nodeID = ov.Nodes[0].NodeID
	}

	res := s.deps.Series.Series(r.Context(), nodeID, minutes)
	writeJSON(w, http.StatusOK, dashboard.BuildTrend(nodeID, minutes, res.Origin, res.Points, s.deps.Dashboard.Threshold()))
}

func (s *Server) handleDHT(w http.ResponseWriter, r *http.Request) {
	records, err := s.deps.DHT.LoadDHT(r.Context(), s.deps.DHTURL)
	if err != nil {
		if errors.Is(err, sheet.ErrColumnCount) {
			writeError(w, http.StatusBadGateway, err.Error())
			return
		}
		s.logger.Warn("dht request failed", "error", err)
		writeError(w, http.StatusBadGateway, "could not load the DHT sheet")
		return
	}
	writeJSON(w, http.StatusOK, dashboard.BuildDHTView(records, s.deps.Location))
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // client may have gone away
}
