package aggregate

import (
	"time"

	"github.com/okairos/weatherd/pkg/types"
)

// dayRain is the daily-counter rollup, kept apart from lifetime rain so the
// two horizons never mix.
const metricDayRain = "dayRain"

// window accumulates one station's observations for one interval.
type window struct {
	start   time.Time
	scalars map[string]*scalarAcc
	windDir circularAcc
	gust    maxAcc
	rain    sumAcc
	dayRain sumAcc
	samples int
}

func newWindow(start time.Time) *window {
	return &window{
		start:   start,
		scalars: make(map[string]*scalarAcc),
	}
}

// add folds one observation in. Rain deltas are resolved against st before
// the call reaches here; obs.Rain already holds the per-observation amount.
func (w *window) add(obs *types.Observation) {
	for name, v := range obs.Metrics() {
		switch name {
		case types.MetricWindDir:
			weight := 0.0
			if obs.WindSpeed != nil {
				weight = *obs.WindSpeed
			}
			w.windDir.add(v, weight)
		case types.MetricWindGust:
			w.gust.add(v)
		case types.MetricRain:
			w.rain.add(v)
		case metricDayRain:
			w.dayRain.add(v)
		default:
			acc := w.scalars[name]
			if acc == nil {
				acc = &scalarAcc{}
				w.scalars[name] = acc
			}
			acc.add(v)
		}
	}
	w.samples++
}

// record freezes the window into an archive record. Metrics that saw no
// samples are absent from the map.
func (w *window) record(stationID string, interval time.Duration) *types.ArchiveRecord {
	m := make(map[string]types.Aggregate, len(w.scalars)+3)
	for name, acc := range w.scalars {
		if agg, ok := acc.aggregate(); ok {
			m[name] = agg
		}
	}
	if agg, ok := w.windDir.aggregate(); ok {
		m[types.MetricWindDir] = agg
	}
	if agg, ok := w.gust.aggregate(); ok {
		m[types.MetricWindGust] = agg
	}
	if agg, ok := w.rain.aggregate(); ok {
		m[types.MetricRain] = agg
	}
	if agg, ok := w.dayRain.aggregate(); ok {
		m[metricDayRain] = agg
	}
	return &types.ArchiveRecord{
		StationID:   stationID,
		WindowStart: w.start,
		Interval:    interval,
		Metrics:     m,
	}
}
