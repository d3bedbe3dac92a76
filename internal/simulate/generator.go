// Package simulate produces synthetic readings for the fixed node roster.
// It stands in for the air-quality API when the API is unreachable.
package simulate

import (
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/couchcryptid/campus-air-dashboard/internal/domain"
	"github.com/jonboulle/clockwork"
)

const (
	// DefaultSeriesPoints is the number of points in a synthetic series.
	DefaultSeriesPoints = 60
	// DefaultSeriesWindow applies when a series request carries no window.
	DefaultSeriesWindow = 120 * time.Minute

	latestNoiseFactor = 0.3
	seriesNoise       = 3.0
	seriesPeriod      = 7.0
	latestPeriodSec   = 60.0
)

// Noise is a source of uniform values in [0, 1). *rand.Rand satisfies it.
type Noise interface {
	Float64() float64
}

// Wave is the base value and amplitude of one synthetic metric.
type Wave struct {
	Base      float64
	Amplitude float64
}

// Node describes a roster entry and the shape of each of its metrics.
type Node struct {
	ID   string
	Lat  float64
	Lng  float64
	PM25 Wave
	PM10 Wave
	CO2  Wave
	Temp Wave
	RH   Wave

	// Series is the PM2.5 wave used for trend series.
	Series Wave
}

// DefaultRoster is the two-node campus deployment.
var DefaultRoster = []Node{
	{
		ID: "NODE-A", Lat: 13.736717, Lng: 100.523186,
		PM25: Wave{28, 18}, PM10: Wave{35, 22}, CO2: Wave{650, 250}, Temp: Wave{31, 2}, RH: Wave{55, 10},
		Series: Wave{30, 15},
	},
	{
		ID: "NODE-B", Lat: 13.738650, Lng: 100.529100,
		PM25: Wave{42, 22}, PM10: Wave{50, 25}, CO2: Wave{800, 300}, Temp: Wave{32, 2}, RH: Wave{58, 10},
		Series: Wave{42, 20},
	},
}

// fallbackSeries shapes the series for node IDs outside the roster.
var fallbackSeries = Wave{42, 20}

// Generator builds synthetic latest readings and PM2.5 series. It is safe for
// concurrent use.
type Generator struct {
	roster []Node
	clock  clockwork.Clock
	points int

	mu    sync.Mutex // guards noise
	noise Noise
}

// Option configures a Generator.
type Option func(*Generator)

// WithNoise sets the noise source. Pass a seeded *rand.Rand for reproducible output.
func WithNoise(n Noise) Option {
	return func(g *Generator) { g.noise = n }
}

// WithClock sets the time source.
func WithClock(c clockwork.Clock) Option {
	return func(g *Generator) { g.clock = c }
}

// WithRoster replaces the default roster.
func WithRoster(nodes []Node) Option {
	return func(g *Generator) { g.roster = nodes }
}

// WithSeriesPoints sets how many points Series returns.
func WithSeriesPoints(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.points = n
		}
	}
}

// New creates a Generator over the default roster with an unseeded noise
// source and the real clock.
func New(opts ...Option) *Generator {
	g := &Generator{
		roster: DefaultRoster,
		noise:  rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		clock:  clockwork.NewRealClock(),
		points: DefaultSeriesPoints,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// NodeIDs returns the roster's node identifiers in order.
func (g *Generator) NodeIDs() []string {
	ids := make([]string, len(g.roster))
	for i, n := range g.roster {
		ids[i] = n.ID
	}
	return ids
}

// Latest returns one reading per roster node, all stamped with the same time.
func (g *Generator) Latest() []domain.Reading {
	now := g.clock.Now().UTC()
	t := float64(now.UnixNano()) / float64(time.Second)

	out := make([]domain.Reading, 0, len(g.roster))
	for _, n := range g.roster {
		out = append(out, domain.Reading{
			NodeID: n.ID,
			TS:     now,
			Lat:    domain.Float(n.Lat),
			Lng:    domain.Float(n.Lng),
			PM25:   domain.Float(g.latestValue(n.PM25, t)),
			PM10:   domain.Float(g.latestValue(n.PM10, t)),
			CO2:    domain.Int(int(g.latestValue(n.CO2, t))),
			Temp:   domain.Float(g.latestValue(n.Temp, t)),
			RH:     domain.Int(int(g.latestValue(n.RH, t))),
		})
	}
	return out
}

// Series returns evenly spaced PM2.5 points ending one step before now.
// The step is the window divided by the point count; a non-positive
// window falls back to DefaultSeriesWindow.
func (g *Generator) Series(nodeID string, minutes int) []domain.SeriesPoint {
	step := g.Step(minutes)
	wave := g.seriesWave(nodeID)
	now := g.clock.Now().UTC()

	out := make([]domain.SeriesPoint, 0, g.points)
	for i := 0; i < g.points; i++ {
		v := wave.Base + wave.Amplitude*math.Sin(float64(i)/seriesPeriod) + g.uniform(-seriesNoise, seriesNoise)
		out = append(out, domain.SeriesPoint{
			TS:   now.Add(-time.Duration(g.points-i) * step),
			PM25: domain.Float(domain.Round1(math.Max(0, v))),
		})
	}
	return out
}

// Step returns the spacing Series uses for the given window.
func (g *Generator) Step(minutes int) time.Duration {
	window := time.Duration(minutes) * time.Minute
	if window <= 0 {
		window = DefaultSeriesWindow
	}
	return window / time.Duration(g.points)
}

func (g *Generator) latestValue(w Wave, t float64) float64 {
	spread := latestNoiseFactor * w.Amplitude
	v := w.Base + w.Amplitude*math.Sin(t/latestPeriodSec) + g.uniform(-spread, spread)
	return domain.Round1(math.Max(0, v))
}

func (g *Generator) seriesWave(nodeID string) Wave {
	for _, n := range g.roster {
		if n.ID == nodeID {
			return n.Series
		}
	}
	return fallbackSeries
}

func (g *Generator) uniform(lo, hi float64) float64 {
	g.mu.Lock()
	u := g.noise.Float64()
	g.mu.Unlock()
	return lo + (hi-lo)*u
}
