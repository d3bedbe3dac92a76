package dashboard

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/couchcryptid/campus-air-dashboard/internal/domain"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC)

func twoNodes() []domain.Reading {
	return []domain.Reading{
		{
			NodeID: "NODE-A", TS: testNow,
			Lat: domain.Float(13.736717), Lng: domain.Float(100.523186),
			PM25: domain.Float(12.5), PM10: domain.Float(20), CO2: domain.Int(600),
			Temp: domain.Float(31), RH: domain.Int(55),
		},
		{
			NodeID: "NODE-B", TS: testNow,
			Lat: domain.Float(13.738650), Lng: domain.Float(100.529100),
			PM25: domain.Float(72), CO2: domain.Int(900),
		},
	}
}

func TestBuildOverview(t *testing.T) {
	ov := BuildOverview(twoNodes(), 50, testNow)

	require.NotNil(t, ov.Metrics)
	assert.Equal(t, "NODE-A", ov.Metrics.NodeID)
	assert.InDelta(t, 12.5, *ov.Metrics.PM25, 0)
	assert.Equal(t, 600, *ov.Metrics.CO2)
	assert.Empty(t, ov.Message)

	require.NotNil(t, ov.Map)
	require.Len(t, ov.Map.Points, 2)
	assert.Equal(t, MapZoom, ov.Map.Zoom)
	assert.Equal(t, domain.TierModerate, ov.Map.Points[0].Tier)
	assert.Equal(t, domain.TierVeryHigh, ov.Map.Points[1].Tier)
	assert.Equal(t, domain.TierVeryHigh.Color().Slice(), ov.Map.Points[1].Color)
	assert.InDelta(t, (13.736717+13.738650)/2, ov.Map.CenterLat, 1e-9)
	assert.Contains(t, ov.Map.Points[0].Tooltip, "NODE-A")

	require.Len(t, ov.Nodes, 2)
	assert.Equal(t, domain.BadgeOK, ov.Nodes[0].Badge)
	assert.Equal(t, domain.BadgeDanger, ov.Nodes[1].Badge)
	assert.Equal(t, "2025-03-01 12:00:00", ov.Nodes[0].Updated)

	assert.True(t, ov.Alert.Active)
	assert.Equal(t, []string{"NODE-B"}, ov.Alert.Nodes)
	assert.InDelta(t, 50.0, ov.Alert.Threshold, 0)

	assert.Equal(t, 2, ov.Summary.Reporting)
	assert.Equal(t, "NODE-A", ov.Summary.BestNode)
}

func TestBuildOverview_Empty(t *testing.T) {
	ov := BuildOverview(nil, 50, testNow)

	assert.Equal(t, MsgNoLatest, ov.Message)
	assert.Nil(t, ov.Metrics)
	assert.Nil(t, ov.Map)
	assert.NotNil(t, ov.Nodes)
	assert.Empty(t, ov.Nodes)
	assert.False(t, ov.Alert.Active)
	assert.Equal(t, MsgAlertClear, ov.Alert.Message)
}

func TestBuildOverview_SkipsUnlocatedNodesOnMap(t *testing.T) {
	readings := []domain.Reading{{NodeID: "NODE-X", PM25: domain.Float(5)}}

	ov := BuildOverview(readings, 50, testNow)
	require.NotNil(t, ov.Map)
	assert.Empty(t, ov.Map.Points)
	assert.Len(t, ov.Nodes, 1, "node list still shows the reading")
}

func TestBuildOverview_MissingValues(t *testing.T) {
	readings := []domain.Reading{{NodeID: "NODE-X", Lat: domain.Float(1), Lng: domain.Float(2)}}

	ov := BuildOverview(readings, 0, testNow)
	assert.False(t, ov.Alert.Active, "absent pm2.5 counts as 0, which is not above 0")
	assert.Equal(t, domain.TierUnknown, ov.Map.Points[0].Tier)
	assert.Equal(t, domain.BadgeNone, ov.Nodes[0].Badge)
	assert.Equal(t, "—", ov.Nodes[0].BadgeText)
	assert.Contains(t, ov.Map.Points[0].Tooltip, "PM2.5: -")
}

func TestBuildOverview_JSONShape(t *testing.T) {
	b, err := json.Marshal(BuildOverview(twoNodes(), 50, testNow))
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(b, &got))
	nodes := got["nodes"].([]any)
	first := nodes[0].(map[string]any)
	assert.Equal(t, "ok", first["badge"])
	point := got["map"].(map[string]any)["points"].([]any)[1].(map[string]any)
	assert.Equal(t, "very_high", point["tier"])
}

func TestBuildTrend(t *testing.T) {
	points := []domain.SeriesPoint{
		{TS: testNow.Add(-time.Minute), PM25: domain.Float(30)},
		{TS: testNow, PM25: domain.Float(31)},
	}
	tr := BuildTrend("NODE-A", 180, domain.OriginAPI, points, 50)

	assert.Equal(t, "NODE-A", tr.NodeID)
	assert.Equal(t, 180, tr.Minutes)
	assert.Len(t, tr.Points, 2)
	assert.InDelta(t, 50.0, tr.Threshold, 0)
	assert.Empty(t, tr.Message)
}

func TestBuildTrend_Empty(t *testing.T) {
	tr := BuildTrend("NODE-A", 180, domain.OriginEmpty, nil, 50)
	assert.Equal(t, MsgNoSeries, tr.Message)
	assert.NotNil(t, tr.Points)
}

func TestBuildDHTView(t *testing.T) {
	var records []domain.DHTRecord
	start := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)
	for day := 0; day < 9; day++ {
		for _, h := range []int{6, 18} {
			records = append(records, domain.DHTRecord{
				Timestamp: start.AddDate(0, 0, day).Add(time.Duration(h) * time.Hour),
				Device:    "ESP32_01",
				Temp:      float64(28 + day),
				Humidity:  float64(50 + h),
			})
		}
	}

	v := BuildDHTView(records, time.UTC)
	assert.Equal(t, 18, v.Count)
	require.Len(t, v.Latest, DHTTailRows)
	assert.Equal(t, records[len(records)-1], v.Latest[DHTTailRows-1])
	assert.Len(t, v.Series, 18)

	require.Len(t, v.Daily, DHTDailyDays)
	want := domain.DailyMean{Date: "2025-03-09", Temp: 36, Humidity: 62, Samples: 2}
	if diff := cmp.Diff(want, v.Daily[DHTDailyDays-1]); diff != "" {
		t.Fatalf("last day mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "2025-03-03", v.Daily[0].Date)
	assert.Empty(t, v.Message)
}

func TestBuildDHTView_Empty(t *testing.T) {
	v := BuildDHTView(nil, nil)
	assert.Equal(t, MsgNoDHT, v.Message)
	assert.Zero(t, v.Count)
	assert.Empty(t, v.Latest)
	assert.NotNil(t, v.Series)
}

func TestBuildDHTView_TailDoesNotAlias(t *testing.T) {
	records := []domain.DHTRecord{{Device: "a"}, {Device: "b"}}
	v := BuildDHTView(records, nil)
	v.Latest[0].Device = "changed"
	assert.Equal(t, "a", records[0].Device)
}
