// Package airapi is a client for the campus air-quality API.
package airapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/couchcryptid/campus-air-dashboard/internal/domain"
	"github.com/couchcryptid/campus-air-dashboard/internal/observability"
)

// Failure reasons reported by Reason and used as the metrics outcome label.
const (
	ReasonTransport = "transport"
	ReasonStatus    = "status"
	ReasonDecode    = "decode"
)

// Error describes a failed API call. The caller decides how to recover.
type Error struct {
	Endpoint string
	Reason   string
	Status   int
	Err      error
}

func (e *Error) Error() string {
	if e.Reason == ReasonStatus {
		return fmt.Sprintf("%s: unexpected status %d: %v", e.Endpoint, e.Status, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Endpoint, e.Reason, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Reason returns the failure reason of an API error, or "" if err is not one.
func Reason(err error) string {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Reason
	}
	return ""
}

// Client fetches readings from the air-quality API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates an API client with a per-request timeout.
func NewClient(baseURL string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: baseURL,
		metrics: metrics,
		logger:  logger,
	}
}

// Latest fetches the newest reading of every node. A payload with a reading
// that lacks node_id or ts is rejected as a decode failure.
func (c *Client) Latest(ctx context.Context) ([]domain.Reading, error) {
	var readings []domain.Reading
	err := c.get(ctx, "latest", c.baseURL+"/latest", &readings, func() error {
		if readings == nil {
			return errors.New("null payload")
		}
		return validateReadings(readings)
	})
	if err != nil {
		return nil, err
	}
	return readings, nil
}

// Series fetches the PM2.5 series of one node over the last minutes.
func (c *Client) Series(ctx context.Context, nodeID string, minutes int) ([]domain.SeriesPoint, error) {
	params := url.Values{
		"node_id": {nodeID},
		"minutes": {strconv.Itoa(minutes)},
	}

	var series domain.Series
	err := c.get(ctx, "series", c.baseURL+"/series?"+params.Encode(), &series, func() error {
		if series.Points == nil {
			return errors.New("missing points")
		}
		return validatePoints(series.Points)
	})
	if err != nil {
		return nil, err
	}
	return series.Points, nil
}

func validateReadings(readings []domain.Reading) error {
	for i, r := range readings {
		if r.NodeID == "" {
			return fmt.Errorf("reading %d: missing node_id", i)
		}
		if r.TS.IsZero() {
			return fmt.Errorf("reading %d (%s): missing ts", i, r.NodeID)
		}
	}
	return nil
}

func validatePoints(points []domain.SeriesPoint) error {
	for i, p := range points {
		if p.TS.IsZero() {
			return fmt.Errorf("point %d: missing ts", i)
		}
	}
	return nil
}

// get decodes the response into v and then runs check, whose error is
// reported as a decode failure.
func (c *Client) get(ctx context.Context, endpoint, fullURL string, v any, check func() error) error {
	start := time.Now()
	err := c.doRequest(ctx, endpoint, fullURL, v)
	if err == nil {
		if cerr := check(); cerr != nil {
			err = &Error{Endpoint: endpoint, Reason: ReasonDecode, Err: cerr}
		}
	}
	c.metrics.FetchDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())

	outcome := "success"
	if err != nil {
		outcome = Reason(err)
		c.logger.Warn("air-quality api request failed", "endpoint", endpoint, "reason", outcome, "error", err)
	}
	c.metrics.FetchRequests.WithLabelValues(endpoint, outcome).Inc()
	return err
}

func (c *Client) doRequest(ctx context.Context, endpoint, fullURL string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return &Error{Endpoint: endpoint, Reason: ReasonTransport, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &Error{Endpoint: endpoint, Reason: ReasonTransport, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &Error{Endpoint: endpoint, Reason: ReasonStatus, Status: resp.StatusCode, Err: fmt.Errorf("%s", body)}
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return &Error{Endpoint: endpoint, Reason: ReasonDecode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}
