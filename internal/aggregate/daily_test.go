package aggregate

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okairos/weatherd/pkg/types"
)

func archiveRecord(station string, start time.Time, temps [2]float64, rainSum float64) *types.ArchiveRecord {
	return &types.ArchiveRecord{
		StationID:   station,
		WindowStart: start,
		Interval:    5 * time.Minute,
		Metrics: map[string]types.Aggregate{
			types.MetricOutTemp: {
				Min:   types.Float(temps[0]),
				Max:   types.Float(temps[1]),
				Avg:   types.Float((temps[0] + temps[1]) / 2),
				Count: 2,
			},
			types.MetricRain: {
				Sum:   types.Float(rainSum),
				Count: 2,
			},
			types.MetricWindGust: {
				Max:   types.Float(temps[1] / 2),
				Count: 2,
			},
		},
	}
}

func TestDailySummaryCombines(t *testing.T) {
	s := newDayStore()
	day := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	s.add(archiveRecord("s1", day.Add(10*time.Minute), [2]float64{10, 14}, 0.5))
	s.add(archiveRecord("s1", day.Add(15*time.Minute), [2]float64{12, 20}, 0.25))

	sum := s.summary("s1", "2024-06-01")
	require.NotNil(t, sum)
	assert.Equal(t, 2, sum.Records)

	temp := sum.Metrics[types.MetricOutTemp]
	assert.Equal(t, 10.0, *temp.Min)
	assert.Equal(t, 20.0, *temp.Max)
	assert.InDelta(t, 14.0, *temp.Avg, 1e-9) // (12+16)/2 weighted by equal counts
	assert.Equal(t, 4, temp.Count)

	rain := sum.Metrics[types.MetricRain]
	assert.InDelta(t, 0.75, *rain.Sum, 1e-9)

	gust := sum.Metrics[types.MetricWindGust]
	assert.Equal(t, 10.0, *gust.Max)
	assert.Nil(t, gust.Min)
}

func TestDailySummaryRecomputeIsIdentical(t *testing.T) {
	s := newDayStore()
	day := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	s.add(archiveRecord("s1", day.Add(10*time.Minute), [2]float64{10.123, 14.456}, 0.5))
	s.add(archiveRecord("s1", day.Add(15*time.Minute), [2]float64{12.789, 20.001}, 0.25))
	s.add(archiveRecord("s1", day.Add(20*time.Minute), [2]float64{11.5, 19.25}, 0.0))

	first, err := json.Marshal(s.summary("s1", "2024-06-01"))
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		again, err := json.Marshal(s.summary("s1", "2024-06-01"))
		require.NoError(t, err)
		assert.Equal(t, string(first), string(again))
	}
}

func TestDailySummaryUnknownDay(t *testing.T) {
	s := newDayStore()
	assert.Nil(t, s.summary("s1", "2024-06-01"))
}

func TestDayStorePrune(t *testing.T) {
	s := newDayStore()
	day1 := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	day3 := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)

	s.add(archiveRecord("s1", day1.Add(10*time.Minute), [2]float64{10, 14}, 0))
	s.add(archiveRecord("s1", day3.Add(10*time.Minute), [2]float64{10, 14}, 0))

	s.prune(day3)

	assert.Nil(t, s.summary("s1", "2024-06-01"))
	assert.NotNil(t, s.summary("s1", "2024-06-03"))
}
