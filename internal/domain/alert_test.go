package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testNodeA = "NODE-A"
	testNodeB = "NODE-B"
)

func TestExceeding(t *testing.T) {
	readings := []Reading{
		{NodeID: testNodeA, PM25: Float(50)},
		{NodeID: testNodeB, PM25: Float(50.5)},
		{NodeID: "NODE-C"},
	}

	assert.Equal(t, []string{testNodeB}, Exceeding(readings, 50))
	assert.Empty(t, Exceeding(readings, 60))
	// Absent PM2.5 counts as 0, so only a negative threshold flags it.
	assert.Equal(t, []string{testNodeA, testNodeB, "NODE-C"}, Exceeding(readings, -1))
}

func TestSummarize(t *testing.T) {
	t.Run("two reporting nodes", func(t *testing.T) {
		s := Summarize([]Reading{
			{NodeID: testNodeA, PM25: Float(20)},
			{NodeID: testNodeB, PM25: Float(31)},
		})
		assert.Equal(t, 2, s.Nodes)
		assert.Equal(t, 2, s.Reporting)
		require.NotNil(t, s.AveragePM25)
		assert.InDelta(t, 25.5, *s.AveragePM25, 1e-9)
		assert.Equal(t, testNodeA, s.BestNode)
		assert.InDelta(t, 20.0, *s.BestPM25, 1e-9)
	})

	t.Run("tie keeps later node", func(t *testing.T) {
		s := Summarize([]Reading{
			{NodeID: testNodeA, PM25: Float(20)},
			{NodeID: testNodeB, PM25: Float(20)},
		})
		assert.Equal(t, testNodeB, s.BestNode)
	})

	t.Run("missing values skipped", func(t *testing.T) {
		s := Summarize([]Reading{
			{NodeID: testNodeA},
			{NodeID: testNodeB, PM25: Float(12.34)},
		})
		assert.Equal(t, 1, s.Reporting)
		assert.InDelta(t, 12.3, *s.AveragePM25, 1e-9)
		assert.Equal(t, testNodeB, s.BestNode)
	})

	t.Run("empty", func(t *testing.T) {
		s := Summarize(nil)
		assert.Zero(t, s.Nodes)
		assert.Nil(t, s.AveragePM25)
		assert.Empty(t, s.BestNode)
	})
}

func TestDailyMeans(t *testing.T) {
	day := func(d, h int) time.Time { return time.Date(2025, time.March, d, h, 0, 0, 0, time.UTC) }
	records := []DHTRecord{
		{Timestamp: day(1, 8), Temp: 30, Humidity: 60},
		{Timestamp: day(1, 20), Temp: 32, Humidity: 70},
		{Timestamp: day(2, 9), Temp: 28, Humidity: 55},
		{Timestamp: day(3, 9), Temp: 29.25, Humidity: 50},
	}

	got := DailyMeans(records, 2, nil)
	want := []DailyMean{
		{Date: "2025-03-02", Temp: 28, Humidity: 55, Samples: 1},
		{Date: "2025-03-03", Temp: 29.3, Humidity: 50, Samples: 1},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("daily means mismatch (-want +got):\n%s", diff)
	}

	all := DailyMeans(records, 0, time.UTC)
	require.Len(t, all, 3)
	assert.Equal(t, DailyMean{Date: "2025-03-01", Temp: 31, Humidity: 65, Samples: 2}, all[0])
}

func TestReadingJSON(t *testing.T) {
	data := []byte(`{"node_id":"NODE-A","ts":"2025-03-01T08:00:00Z","lat":13.7,"lng":100.5,"pm2_5":null,"pm10":40.5,"co2":700,"temp":31.2,"rh":55}`)

	var r Reading
	require.NoError(t, json.Unmarshal(data, &r))
	assert.Equal(t, testNodeA, r.NodeID)
	assert.Nil(t, r.PM25)
	require.NotNil(t, r.PM10)
	assert.InDelta(t, 40.5, *r.PM10, 1e-9)
	assert.Equal(t, 700, *r.CO2)
	assert.Equal(t, 55, *r.RH)
	assert.True(t, r.HasLocation())
	assert.Equal(t, time.Date(2025, time.March, 1, 8, 0, 0, 0, time.UTC), r.TS)
}
