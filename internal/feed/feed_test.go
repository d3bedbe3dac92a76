package feed_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/couchcryptid/campus-air-dashboard/internal/adapter/airapi"
	"github.com/couchcryptid/campus-air-dashboard/internal/domain"
	"github.com/couchcryptid/campus-air-dashboard/internal/feed"
	"github.com/couchcryptid/campus-air-dashboard/internal/observability"
	"github.com/couchcryptid/campus-air-dashboard/internal/simulate"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, time.March, 1, 8, 0, 0, 0, time.UTC)

// --- mocks ---

type countingSource struct {
	latestCalls int
	seriesCalls int
	err         error
	readings    []domain.Reading
	points      []domain.SeriesPoint
}

func (s *countingSource) Latest(_ context.Context) ([]domain.Reading, error) {
	s.latestCalls++
	if s.err != nil {
		return nil, s.err
	}
	return s.readings, nil
}

func (s *countingSource) Series(_ context.Context, _ string, _ int) ([]domain.SeriesPoint, error) {
	s.seriesCalls++
	if s.err != nil {
		return nil, s.err
	}
	return s.points, nil
}

// gatedSource blocks Latest until release is closed.
type gatedSource struct {
	calls   atomic.Int32
	release chan struct{}
}

func (s *gatedSource) Latest(_ context.Context) ([]domain.Reading, error) {
	s.calls.Add(1)
	<-s.release
	return []domain.Reading{{NodeID: "NODE-X", TS: testNow, PM25: domain.Float(9)}}, nil
}

func (s *gatedSource) Series(_ context.Context, _ string, _ int) ([]domain.SeriesPoint, error) {
	return nil, errDown
}

var errDown = errors.New("connection refused")

func newFeed(src feed.Source, simulateOn bool, clock clockwork.Clock) (*feed.Feed, *observability.Metrics) {
	metrics := observability.NewMetricsForTesting()
	opts := feed.DefaultOptions()
	opts.Simulate = simulateOn
	opts.Clock = clock
	gen := simulate.New(simulate.WithClock(clock))
	return feed.New(src, gen, opts, metrics, observability.DiscardLogger()), metrics
}

// --- tests ---

func TestFeed_Latest_FromAPI(t *testing.T) {
	src := &countingSource{readings: []domain.Reading{{NodeID: "NODE-X", TS: testNow, PM25: domain.Float(9)}}}
	f, _ := newFeed(src, true, clockwork.NewFakeClockAt(testNow))

	res := f.Latest(context.Background())
	assert.Equal(t, domain.OriginAPI, res.Origin)
	require.NoError(t, res.Err)
	require.Len(t, res.Readings, 1)
	assert.Equal(t, "NODE-X", res.Readings[0].NodeID)
}

func TestFeed_Latest_FailureSimulates(t *testing.T) {
	src := &countingSource{err: errDown}
	f, metrics := newFeed(src, true, clockwork.NewFakeClockAt(testNow))

	res := f.Latest(context.Background())
	assert.Equal(t, domain.OriginSimulated, res.Origin)
	require.ErrorIs(t, res.Err, errDown)

	require.Len(t, res.Readings, 2)
	assert.Equal(t, "NODE-A", res.Readings[0].NodeID)
	assert.Equal(t, "NODE-B", res.Readings[1].NodeID)
	assert.InDelta(t, 1.0, testutil.ToFloat64(metrics.FetchFallback.WithLabelValues("latest", "simulated")), 0)
}

func TestFeed_Latest_FailureWithoutSimulationIsEmpty(t *testing.T) {
	src := &countingSource{err: errDown}
	f, metrics := newFeed(src, false, clockwork.NewFakeClockAt(testNow))

	res := f.Latest(context.Background())
	assert.Equal(t, domain.OriginEmpty, res.Origin)
	require.ErrorIs(t, res.Err, errDown)
	assert.NotNil(t, res.Readings)
	assert.Empty(t, res.Readings)
	assert.Empty(t, f.GetLatest(context.Background()))
	assert.InDelta(t, 1.0, testutil.ToFloat64(metrics.FetchFallback.WithLabelValues("latest", "empty")), 0)
}

// An API that answers with an empty list is reachable; that is not a failure.
func TestFeed_Latest_EmptyAPIResponseIsNotFallback(t *testing.T) {
	src := &countingSource{readings: []domain.Reading{}}
	f, _ := newFeed(src, true, clockwork.NewFakeClockAt(testNow))

	res := f.Latest(context.Background())
	assert.Equal(t, domain.OriginAPI, res.Origin)
	assert.Empty(t, res.Readings)
	assert.NoError(t, res.Err)
}

func TestFeed_Latest_CachedWithinTTL(t *testing.T) {
	clock := clockwork.NewFakeClockAt(testNow)
	src := &countingSource{readings: []domain.Reading{{NodeID: "NODE-A", TS: testNow}}}
	f, metrics := newFeed(src, true, clock)

	f.GetLatest(context.Background())
	clock.Advance(9 * time.Second)
	f.GetLatest(context.Background())
	assert.Equal(t, 1, src.latestCalls, "second call within 10s must hit the cache")

	clock.Advance(time.Second)
	f.GetLatest(context.Background())
	assert.Equal(t, 2, src.latestCalls, "entry expires after 10s")

	assert.InDelta(t, 1.0, testutil.ToFloat64(metrics.CacheLookups.WithLabelValues("latest", "hit")), 0)
	assert.InDelta(t, 2.0, testutil.ToFloat64(metrics.CacheLookups.WithLabelValues("latest", "miss")), 0)
}

// Fallback outcomes are cached too, so a down API is not hammered and the
// simulated values stay stable across quick refreshes.
func TestFeed_Latest_ConcurrentRequestsShareFetch(t *testing.T) {
	src := &gatedSource{release: make(chan struct{})}
	f, _ := newFeed(src, true, clockwork.NewFakeClockAt(testNow))

	const requests = 5
	origins := make([]domain.Origin, requests)
	var wg sync.WaitGroup
	for i := range requests {
		wg.Add(1)
		go func() {
			defer wg.Done()
			origins[i] = f.Latest(context.Background()).Origin
		}()
	}

	require.Eventually(t, func() bool { return src.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(src.release)
	wg.Wait()

	assert.Equal(t, int32(1), src.calls.Load())
	for _, o := range origins {
		assert.Equal(t, domain.OriginAPI, o)
	}
}

func TestFeed_Latest_FallbackCached(t *testing.T) {
	clock := clockwork.NewFakeClockAt(testNow)
	src := &countingSource{err: errDown}
	f, _ := newFeed(src, true, clock)

	first := f.Latest(context.Background())
	clock.Advance(5 * time.Second)
	second := f.Latest(context.Background())

	assert.Equal(t, 1, src.latestCalls)
	assert.Equal(t, first.Readings, second.Readings)
}

func TestFeed_Latest_IncompleteReadingsSimulate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[{"pm2_5":12.5},{"foo":"bar"}]`))
	}))
	defer srv.Close()

	metrics := observability.NewMetricsForTesting()
	api := airapi.NewClient(srv.URL, 5*time.Second, metrics, observability.DiscardLogger())
	clock := clockwork.NewFakeClockAt(testNow)
	opts := feed.DefaultOptions()
	opts.Clock = clock
	f := feed.New(api, simulate.New(simulate.WithClock(clock)), opts, metrics, observability.DiscardLogger())

	res := f.Latest(context.Background())
	assert.Equal(t, domain.OriginSimulated, res.Origin)
	assert.Equal(t, airapi.ReasonDecode, airapi.Reason(res.Err))
	require.Len(t, res.Readings, 2)
	for _, r := range res.Readings {
		assert.NotEmpty(t, r.NodeID)
		assert.False(t, r.TS.IsZero())
	}
}

func TestFeed_Series_CachedPerParams(t *testing.T) {
	clock := clockwork.NewFakeClockAt(testNow)
	src := &countingSource{points: []domain.SeriesPoint{{TS: testNow, PM25: domain.Float(10)}}}
	f, _ := newFeed(src, true, clock)

	ctx := context.Background()
	f.GetSeries(ctx, "NODE-A", 180)
	f.GetSeries(ctx, "NODE-A", 180)
	assert.Equal(t, 1, src.seriesCalls)

	f.GetSeries(ctx, "NODE-B", 180)
	f.GetSeries(ctx, "NODE-A", 120)
	assert.Equal(t, 3, src.seriesCalls, "different node or window is a different key")

	clock.Advance(14 * time.Second)
	f.GetSeries(ctx, "NODE-A", 180)
	assert.Equal(t, 3, src.seriesCalls)

	clock.Advance(time.Second)
	f.GetSeries(ctx, "NODE-A", 180)
	assert.Equal(t, 4, src.seriesCalls, "series entries expire after 15s")
}

func TestFeed_Series_FailureSimulates(t *testing.T) {
	clock := clockwork.NewFakeClockAt(testNow)
	f, _ := newFeed(&countingSource{err: errDown}, true, clock)

	res := f.Series(context.Background(), "NODE-A", 180)
	assert.Equal(t, domain.OriginSimulated, res.Origin)
	assert.Equal(t, "NODE-A", res.NodeID)
	require.Len(t, res.Points, 60)

	first := res.Points[0]
	require.NotNil(t, first.PM25)
	assert.GreaterOrEqual(t, *first.PM25, 0.0)
	assert.LessOrEqual(t, *first.PM25, 30.0+15+3)

	step := 3 * time.Minute
	last := res.Points[len(res.Points)-1]
	assert.LessOrEqual(t, testNow.Sub(last.TS), step, "last point within one step of now")
	for i := 1; i < len(res.Points); i++ {
		assert.True(t, res.Points[i].TS.After(res.Points[i-1].TS))
	}
}

func TestFeed_Series_FailureWithoutSimulationIsEmpty(t *testing.T) {
	f, _ := newFeed(&countingSource{err: errDown}, false, clockwork.NewFakeClockAt(testNow))

	res := f.Series(context.Background(), "NODE-A", 180)
	assert.Equal(t, domain.OriginEmpty, res.Origin)
	assert.Empty(t, res.Points)
	assert.Error(t, res.Err)
}

func TestFeed_NilSimulatorDisablesSimulation(t *testing.T) {
	opts := feed.DefaultOptions()
	opts.Clock = clockwork.NewFakeClockAt(testNow)
	f := feed.New(&countingSource{err: errDown}, nil, opts, observability.NewMetricsForTesting(), observability.DiscardLogger())

	res := f.Latest(context.Background())
	assert.Equal(t, domain.OriginEmpty, res.Origin)
}
