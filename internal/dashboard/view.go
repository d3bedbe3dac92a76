// Package dashboard turns readings into the view models rendered by the
// dashboard (metrics, map, node list, trend, alert banner, DHT tables) and
// runs the periodic refresh.
package dashboard

import (
	"fmt"
	"time"

	"github.com/couchcryptid/campus-air-dashboard/internal/domain"
)

const (
	// MapZoom is the initial zoom of the campus map.
	MapZoom = 15
	// DHTTailRows is how many of the newest DHT rows the table shows.
	DHTTailRows = 10
	// DHTDailyDays is how many days the daily-mean chart covers.
	DHTDailyDays = 7

	timeLayout = "2006-01-02 15:04:05"

	MsgNoLatest   = "No latest data yet. Enable simulation or check the API URL."
	MsgNoSeries   = "No series data."
	MsgNoDHT      = "No DHT data to chart yet."
	MsgAlertClear = "PM2.5 is within the configured threshold."
)

// TopMetrics are the headline values, taken from the first node.
type TopMetrics struct {
	NodeID string    `json:"node_id"`
	PM25   *float64  `json:"pm2_5"`
	CO2    *int      `json:"co2"`
	Temp   *float64  `json:"temp"`
	RH     *int      `json:"rh"`
	TS     time.Time `json:"ts"`
}

// MapPoint is one colored marker on the map layer.
type MapPoint struct {
	NodeID  string              `json:"node_id"`
	Lat     float64             `json:"lat"`
	Lng     float64             `json:"lng"`
	PM25    *float64            `json:"pm2_5"`
	CO2     *int                `json:"co2"`
	Tier    domain.SeverityTier `json:"tier"`
	Color   []int               `json:"color"`
	Tooltip string              `json:"tooltip"`
}

// MapView is the map layer plus its initial viewport.
type MapView struct {
	CenterLat float64    `json:"center_lat"`
	CenterLng float64    `json:"center_lng"`
	Zoom      int        `json:"zoom"`
	Points    []MapPoint `json:"points"`
}

// NodeStatus is one row of the node list.
type NodeStatus struct {
	NodeID    string       `json:"node_id"`
	PM25      *float64     `json:"pm2_5"`
	Badge     domain.Badge `json:"badge"`
	BadgeText string       `json:"badge_text"`
	CO2       *int         `json:"co2"`
	Updated   string       `json:"updated"`
}

// AlertBanner is the threshold banner shown under the dashboard.
type AlertBanner struct {
	Threshold float64  `json:"threshold"`
	Active    bool     `json:"active"`
	Nodes     []string `json:"nodes,omitempty"`
	Message   string   `json:"message"`
}

// Overview is the full latest-readings view.
type Overview struct {
	GeneratedAt time.Time      `json:"generated_at"`
	Origin      domain.Origin  `json:"origin"`
	Degraded    string         `json:"degraded,omitempty"`
	Metrics     *TopMetrics    `json:"metrics,omitempty"`
	Map         *MapView       `json:"map,omitempty"`
	Nodes       []NodeStatus   `json:"nodes"`
	Alert       AlertBanner    `json:"alert"`
	Summary     domain.Summary `json:"summary"`
	Message     string         `json:"message,omitempty"`
}

// BuildOverview assembles the latest-readings view. An empty reading set is
// not an error: the view carries an informational message instead.
func BuildOverview(readings []domain.Reading, threshold float64, now time.Time) Overview {
	ov := Overview{
		GeneratedAt: now.UTC(),
		Nodes:       []NodeStatus{},
		Alert:       buildAlert(readings, threshold),
		Summary:     domain.Summarize(readings),
	}
	if len(readings) == 0 {
		ov.Message = MsgNoLatest
		return ov
	}

	first := readings[0]
	ov.Metrics = &TopMetrics{
		NodeID: first.NodeID,
		PM25:   first.PM25,
		CO2:    first.CO2,
		Temp:   first.Temp,
		RH:     first.RH,
		TS:     first.TS,
	}
	ov.Map = buildMap(readings)

	for _, r := range readings {
		ov.Nodes = append(ov.Nodes, NodeStatus{
			NodeID:    r.NodeID,
			PM25:      r.PM25,
			Badge:     domain.BadgeFor(r.PM25),
			BadgeText: domain.FormatBadge(r.PM25),
			CO2:       r.CO2,
			Updated:   r.TS.Format(timeLayout),
		})
	}
	return ov
}

func buildMap(readings []domain.Reading) *MapView {
	mv := &MapView{Zoom: MapZoom, Points: []MapPoint{}}
	var sumLat, sumLng float64
	for _, r := range readings {
		if !r.HasLocation() {
			continue
		}
		tier := domain.Classify(r.PM25)
		mv.Points = append(mv.Points, MapPoint{
			NodeID:  r.NodeID,
			Lat:     *r.Lat,
			Lng:     *r.Lng,
			PM25:    r.PM25,
			CO2:     r.CO2,
			Tier:    tier,
			Color:   tier.Color().Slice(),
			Tooltip: tooltip(r),
		})
		sumLat += *r.Lat
		sumLng += *r.Lng
	}
	if n := len(mv.Points); n > 0 {
		mv.CenterLat = sumLat / float64(n)
		mv.CenterLng = sumLng / float64(n)
	}
	return mv
}

func tooltip(r domain.Reading) string {
	return fmt.Sprintf("%s\nPM2.5: %s µg/m³\nCO₂: %s ppm", r.NodeID, formatFloat(r.PM25), formatInt(r.CO2))
}

func buildAlert(readings []domain.Reading, threshold float64) AlertBanner {
	nodes := domain.Exceeding(readings, threshold)
	if len(nodes) == 0 {
		return AlertBanner{Threshold: threshold, Message: MsgAlertClear}
	}
	return AlertBanner{
		Threshold: threshold,
		Active:    true,
		Nodes:     nodes,
		Message:   fmt.Sprintf("PM2.5 at some nodes exceeds %g µg/m³", threshold),
	}
}

// Trend is the PM2.5 chart for one node with the alert threshold line.
type Trend struct {
	NodeID    string               `json:"node_id"`
	Minutes   int                  `json:"minutes"`
	Origin    domain.Origin        `json:"origin"`
	Points    []domain.SeriesPoint `json:"points"`
	Threshold float64              `json:"threshold"`
	Message   string               `json:"message,omitempty"`
}

// BuildTrend assembles the chart view; an empty series gets a placeholder message.
func BuildTrend(nodeID string, minutes int, origin domain.Origin, points []domain.SeriesPoint, threshold float64) Trend {
	tr := Trend{
		NodeID:    nodeID,
		Minutes:   minutes,
		Origin:    origin,
		Points:    points,
		Threshold: threshold,
	}
	if tr.Points == nil {
		tr.Points = []domain.SeriesPoint{}
	}
	if len(tr.Points) == 0 {
		tr.Message = MsgNoSeries
	}
	return tr
}

// DHTView is the DHT table and charts.
type DHTView struct {
	Count   int                `json:"count"`
	Latest  []domain.DHTRecord `json:"latest"`
	Series  []domain.DHTRecord `json:"series"`
	Daily   []domain.DailyMean `json:"daily"`
	Message string             `json:"message,omitempty"`
}

// BuildDHTView assembles the DHT view from records sorted by time.
func BuildDHTView(records []domain.DHTRecord, loc *time.Location) DHTView {
	v := DHTView{
		Count:  len(records),
		Latest: tail(records, DHTTailRows),
		Series: records,
		Daily:  domain.DailyMeans(records, DHTDailyDays, loc),
	}
	if v.Series == nil {
		v.Series = []domain.DHTRecord{}
	}
	if len(records) == 0 {
		v.Message = MsgNoDHT
	}
	return v
}

func tail(records []domain.DHTRecord, n int) []domain.DHTRecord {
	if len(records) <= n {
		return append([]domain.DHTRecord{}, records...)
	}
	return append([]domain.DHTRecord{}, records[len(records)-n:]...)
}

func formatFloat(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%g", *v)
}

func formatInt(v *int) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *v)
}
