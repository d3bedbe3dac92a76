package domain

import (
	"math"
	"sort"
	"time"
)

// Exceeding returns the IDs of nodes whose PM2.5 is strictly above threshold.
// An absent PM2.5 counts as 0.
func Exceeding(readings []Reading, threshold float64) []string {
	var ids []string
	for _, r := range readings {
		pm := 0.0
		if r.PM25 != nil {
			pm = *r.PM25
		}
		if pm > threshold {
			ids = append(ids, r.NodeID)
		}
	}
	return ids
}

// Summary aggregates the latest readings across nodes.
type Summary struct {
	Nodes       int      `json:"nodes"`
	Reporting   int      `json:"reporting"` // nodes with a PM2.5 value
	AveragePM25 *float64 `json:"average_pm2_5,omitempty"`
	BestNode    string   `json:"best_node,omitempty"`
	BestPM25    *float64 `json:"best_pm2_5,omitempty"`
}

// Summarize computes the mean PM2.5 over reporting nodes and picks the node
// with the cleanest air. Ties keep the later node, matching the dashboard's
// strict less-than comparison.
func Summarize(readings []Reading) Summary {
	s := Summary{Nodes: len(readings)}
	var sum float64
	for _, r := range readings {
		if r.PM25 == nil {
			continue
		}
		s.Reporting++
		sum += *r.PM25
		if s.BestPM25 == nil || !(*s.BestPM25 < *r.PM25) {
			s.BestNode = r.NodeID
			s.BestPM25 = Float(*r.PM25)
		}
	}
	if s.Reporting > 0 {
		s.AveragePM25 = Float(Round1(sum / float64(s.Reporting)))
	}
	return s
}

// DailyMean is the per-day average of DHT samples.
type DailyMean struct {
	Date     string  `json:"date"` // yyyy-mm-dd
	Temp     float64 `json:"temp"`
	Humidity float64 `json:"humidity"`
	Samples  int     `json:"samples"`
}

// DailyMeans groups records by calendar day (in loc) and returns the most
// recent days, oldest first.
func DailyMeans(records []DHTRecord, days int, loc *time.Location) []DailyMean {
	if loc == nil {
		loc = time.UTC
	}
	type acc struct {
		temp, hum float64
		n         int
	}
	byDay := make(map[string]*acc)
	for _, rec := range records {
		key := rec.Timestamp.In(loc).Format(time.DateOnly)
		a, ok := byDay[key]
		if !ok {
			a = &acc{}
			byDay[key] = a
		}
		a.temp += rec.Temp
		a.hum += rec.Humidity
		a.n++
	}

	keys := make([]string, 0, len(byDay))
	for k := range byDay {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if days > 0 && len(keys) > days {
		keys = keys[len(keys)-days:]
	}

	out := make([]DailyMean, 0, len(keys))
	for _, k := range keys {
		a := byDay[k]
		out = append(out, DailyMean{
			Date:     k,
			Temp:     Round1(a.temp / float64(a.n)),
			Humidity: Round1(a.hum / float64(a.n)),
			Samples:  a.n,
		})
	}
	return out
}

// Round1 rounds v to one decimal place.
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}
