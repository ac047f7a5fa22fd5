package aggregate

import (
	"math"
	"time"

	"github.com/okairos/weatherd/internal/units"
	"github.com/okairos/weatherd/pkg/types"
)

// dayStore keeps the current days' archive records per station so a daily
// summary can always be recomputed from scratch. Summaries are never updated
// incrementally: every emission is a full recompute over the day's records,
// so re-running the same inputs yields an identical summary.
type dayStore struct {
	// station -> date -> records in close order
	days map[string]map[string][]*types.ArchiveRecord
}

func newDayStore() *dayStore {
	return &dayStore{days: make(map[string]map[string][]*types.ArchiveRecord)}
}

func dateOf(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// add files one record under its window-start date and returns that date.
func (s *dayStore) add(rec *types.ArchiveRecord) string {
	date := dateOf(rec.WindowStart)
	byDate := s.days[rec.StationID]
	if byDate == nil {
		byDate = make(map[string][]*types.ArchiveRecord)
		s.days[rec.StationID] = byDate
	}
	byDate[date] = append(byDate[date], rec)
	return date
}

// prune drops days older than the retention horizon. Two days are kept so a
// record landing just after midnight can still finalize yesterday.
func (s *dayStore) prune(now time.Time) {
	cutoff := dateOf(now.AddDate(0, 0, -1))
	for station, byDate := range s.days {
		for date := range byDate {
			if date < cutoff {
				delete(byDate, date)
			}
		}
		if len(byDate) == 0 {
			delete(s.days, station)
		}
	}
}

// summary recomputes the daily rollup for one station and date. Returns nil
// when the day holds no records.
func (s *dayStore) summary(stationID, date string) *types.DailySummary {
	recs := s.days[stationID][date]
	if len(recs) == 0 {
		return nil
	}

	names := make(map[string]struct{})
	for _, rec := range recs {
		for name := range rec.Metrics {
			names[name] = struct{}{}
		}
	}

	out := make(map[string]types.Aggregate, len(names))
	for name := range names {
		switch name {
		case types.MetricWindDir:
			out[name] = combineCircular(recs, name)
		case types.MetricRain, metricDayRain:
			out[name] = combineSum(recs, name)
		case types.MetricWindGust:
			out[name] = combineMax(recs, name)
		default:
			out[name] = combineScalar(recs, name)
		}
	}
	return &types.DailySummary{
		StationID: stationID,
		Date:      date,
		Records:   len(recs),
		Metrics:   out,
	}
}

func combineScalar(recs []*types.ArchiveRecord, name string) types.Aggregate {
	var agg types.Aggregate
	var sum float64
	for _, rec := range recs {
		a, ok := rec.Metrics[name]
		if !ok {
			continue
		}
		if a.Min != nil && (agg.Min == nil || *a.Min < *agg.Min) {
			agg.Min = types.Float(*a.Min)
		}
		if a.Max != nil && (agg.Max == nil || *a.Max > *agg.Max) {
			agg.Max = types.Float(*a.Max)
		}
		if a.Avg != nil {
			sum += *a.Avg * float64(a.Count)
		}
		agg.Count += a.Count
	}
	if agg.Count > 0 {
		agg.Avg = types.Float(sum / float64(agg.Count))
	}
	return agg
}

// combineCircular merges per-window circular means, weighting each window's
// resultant by its sample count.
func combineCircular(recs []*types.ArchiveRecord, name string) types.Aggregate {
	var sinSum, cosSum float64
	count := 0
	for _, rec := range recs {
		a, ok := rec.Metrics[name]
		if !ok || a.Avg == nil {
			continue
		}
		rad := *a.Avg * math.Pi / 180.0
		w := float64(a.Count)
		sinSum += w * math.Sin(rad)
		cosSum += w * math.Cos(rad)
		count += a.Count
	}
	if count == 0 {
		return types.Aggregate{}
	}
	mean := math.Atan2(sinSum, cosSum) * 180.0 / math.Pi
	return types.Aggregate{
		Avg:   types.Float(units.NormalizeDirection(mean)),
		Count: count,
	}
}

func combineSum(recs []*types.ArchiveRecord, name string) types.Aggregate {
	var agg types.Aggregate
	var sum float64
	for _, rec := range recs {
		a, ok := rec.Metrics[name]
		if !ok {
			continue
		}
		if a.Sum != nil {
			sum += *a.Sum
		}
		agg.Count += a.Count
	}
	if agg.Count > 0 {
		agg.Sum = types.Float(sum)
	}
	return agg
}

func combineMax(recs []*types.ArchiveRecord, name string) types.Aggregate {
	var agg types.Aggregate
	for _, rec := range recs {
		a, ok := rec.Metrics[name]
		if !ok {
			continue
		}
		if a.Max != nil && (agg.Max == nil || *a.Max > *agg.Max) {
			agg.Max = types.Float(*a.Max)
		}
		agg.Count += a.Count
	}
	return agg
}
