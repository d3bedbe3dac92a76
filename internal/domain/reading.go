package domain

import "time"

// Reading is one sensor sample from an air-quality node.
type Reading struct {
	NodeID string    `json:"node_id"`
	TS     time.Time `json:"ts"`
	Lat    *float64  `json:"lat,omitempty"`
	Lng    *float64  `json:"lng,omitempty"`
	PM25   *float64  `json:"pm2_5"`
	PM10   *float64  `json:"pm10"`
	CO2    *int      `json:"co2"`
	Temp   *float64  `json:"temp"`
	RH     *int      `json:"rh"`
}

// HasLocation reports whether both coordinates are present.
func (r Reading) HasLocation() bool {
	return r.Lat != nil && r.Lng != nil
}

// SeriesPoint is a single PM2.5 sample in a node's trend series.
type SeriesPoint struct {
	TS   time.Time `json:"ts"`
	PM25 *float64  `json:"pm2_5"`
}

// Series is the envelope returned by the series endpoint.
type Series struct {
	NodeID string        `json:"node_id"`
	Points []SeriesPoint `json:"points"`
}

// DHTRecord is a temperature/humidity sample from the spreadsheet export.
type DHTRecord struct {
	Timestamp time.Time `json:"timestamp"`
	Device    string    `json:"device"`
	Temp      float64   `json:"temp"`
	Humidity  float64   `json:"humidity"`
}

// Origin records where a set of readings came from.
type Origin string

const (
	OriginAPI       Origin = "api"
	OriginSimulated Origin = "simulated"
	OriginEmpty     Origin = "empty"
)

// Float returns a pointer to v. Handy for building optional reading fields.
func Float(v float64) *float64 { return &v }

// Int returns a pointer to v.
func Int(v int) *int { return &v }
