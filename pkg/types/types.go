// Package types holds the records passed between the ingest, aggregation
// and sink layers. Every metric on an Observation is optional: absence means
// the station did not report the sensor, which is distinct from zero.
package types

import (
	"fmt"
	"time"
)

// Canonical metric names. Adapters translate wire-format keys to these and
// convert to canonical units (degC, hPa, m/s, degrees, mm, W/m2, percent)
// before anything downstream sees the record.
const (
	MetricOutTemp     = "outTemp"
	MetricInTemp      = "inTemp"
	MetricOutHumidity = "outHumidity"
	MetricInHumidity  = "inHumidity"
	MetricBarometer   = "barometer"
	MetricWindSpeed   = "windSpeed"
	MetricWindGust    = "windGust"
	MetricWindDir     = "windDir"
	MetricRainRate    = "rainRate"
	MetricRain        = "rain"
	MetricRadiation   = "radiation"
	MetricUV          = "UV"
	MetricDewpoint    = "dewpoint"
	MetricHeatindex   = "heatindex"
	MetricWindchill   = "windchill"
)

var ErrUnknownMetric = fmt.Errorf("unknown metric")

// Observation is one normalized sensor snapshot.
type Observation struct {
	StationID string    `json:"station_id"`
	Timestamp time.Time `json:"timestamp"`

	OutTemp     *float64 `json:"outTemp,omitempty"`
	InTemp      *float64 `json:"inTemp,omitempty"`
	OutHumidity *float64 `json:"outHumidity,omitempty"`
	InHumidity  *float64 `json:"inHumidity,omitempty"`
	Barometer   *float64 `json:"barometer,omitempty"`
	WindSpeed   *float64 `json:"windSpeed,omitempty"`
	WindGust    *float64 `json:"windGust,omitempty"`
	WindDir     *float64 `json:"windDir,omitempty"`
	RainRate    *float64 `json:"rainRate,omitempty"`

	// RainCum and DayRainCum are raw cumulative counters as reported by the
	// device (mm). The aggregation engine turns them into deltas; Rain is the
	// per-observation delta once derived.
	RainCum    *float64 `json:"rainCum,omitempty"`
	DayRainCum *float64 `json:"dayRainCum,omitempty"`
	Rain       *float64 `json:"rain,omitempty"`

	Radiation *float64 `json:"radiation,omitempty"`
	UV        *float64 `json:"UV,omitempty"`

	Dewpoint  *float64 `json:"dewpoint,omitempty"`
	Heatindex *float64 `json:"heatindex,omitempty"`
	Windchill *float64 `json:"windchill,omitempty"`

	// Extra carries numbered auxiliary channels (temp1, soilmoisture1,
	// battery levels) that have no dedicated field.
	Extra map[string]float64 `json:"extra,omitempty"`
}

// Float is a convenience for building optional metric values.
func Float(v float64) *float64 { return &v }

// Metric returns the named canonical metric, checking Extra as a fallback.
func (o *Observation) Metric(name string) (float64, bool) {
	if p := o.metricPtr(name); p != nil && *p != nil {
		return **p, true
	}
	v, ok := o.Extra[name]
	return v, ok
}

// SetMetric sets the named canonical metric, falling back to Extra for
// unrecognized names.
func (o *Observation) SetMetric(name string, v float64) {
	if p := o.metricPtr(name); p != nil {
		*p = &v
		return
	}
	if o.Extra == nil {
		o.Extra = make(map[string]float64)
	}
	o.Extra[name] = v
}

// ClearMetric removes the named metric from the observation.
func (o *Observation) ClearMetric(name string) {
	if p := o.metricPtr(name); p != nil {
		*p = nil
		return
	}
	delete(o.Extra, name)
}

func (o *Observation) metricPtr(name string) **float64 {
	switch name {
	case MetricOutTemp:
		return &o.OutTemp
	case MetricInTemp:
		return &o.InTemp
	case MetricOutHumidity:
		return &o.OutHumidity
	case MetricInHumidity:
		return &o.InHumidity
	case MetricBarometer:
		return &o.Barometer
	case MetricWindSpeed:
		return &o.WindSpeed
	case MetricWindGust:
		return &o.WindGust
	case MetricWindDir:
		return &o.WindDir
	case MetricRainRate:
		return &o.RainRate
	case MetricRain:
		return &o.Rain
	case MetricRadiation:
		return &o.Radiation
	case MetricUV:
		return &o.UV
	case MetricDewpoint:
		return &o.Dewpoint
	case MetricHeatindex:
		return &o.Heatindex
	case MetricWindchill:
		return &o.Windchill
	}
	return nil
}

// Metrics returns every set metric keyed by canonical name, Extra included.
// The map is freshly allocated; mutating it does not touch the observation.
func (o *Observation) Metrics() map[string]float64 {
	out := make(map[string]float64, len(canonicalMetrics)+len(o.Extra))
	for _, name := range canonicalMetrics {
		if p := o.metricPtr(name); p != nil && *p != nil {
			out[name] = **p
		}
	}
	for k, v := range o.Extra {
		out[k] = v
	}
	return out
}

// Clone returns a deep copy. Consumers receive their own record and never
// mutate a shared one.
func (o *Observation) Clone() *Observation {
	dup := *o
	for _, name := range canonicalMetrics {
		if src := o.metricPtr(name); src != nil && *src != nil {
			v := **src
			*dup.metricPtr(name) = &v
		}
	}
	if o.RainCum != nil {
		v := *o.RainCum
		dup.RainCum = &v
	}
	if o.DayRainCum != nil {
		v := *o.DayRainCum
		dup.DayRainCum = &v
	}
	if o.Extra != nil {
		dup.Extra = make(map[string]float64, len(o.Extra))
		for k, v := range o.Extra {
			dup.Extra[k] = v
		}
	}
	return &dup
}

// IsEmpty reports whether the observation carries no metrics at all.
func (o *Observation) IsEmpty() bool {
	for _, name := range canonicalMetrics {
		if p := o.metricPtr(name); p != nil && *p != nil {
			return false
		}
	}
	return o.RainCum == nil && o.DayRainCum == nil && len(o.Extra) == 0
}

var canonicalMetrics = []string{
	MetricOutTemp, MetricInTemp, MetricOutHumidity, MetricInHumidity,
	MetricBarometer, MetricWindSpeed, MetricWindGust, MetricWindDir,
	MetricRainRate, MetricRain, MetricRadiation, MetricUV,
	MetricDewpoint, MetricHeatindex, MetricWindchill,
}

// CanonicalMetrics lists every named metric in a fixed order. Cumulative rain
// counters are excluded; they are engine-internal state, not reportable
// metrics.
func CanonicalMetrics() []string {
	out := make([]string, len(canonicalMetrics))
	copy(out, canonicalMetrics)
	return out
}

// Aggregate is the rollup of one metric over one closed window. A nil field
// means the statistic is not defined for that metric: wind direction carries
// only Avg (circular mean), rain only Sum. Metrics with zero samples are
// omitted from records entirely, never reported as zero.
type Aggregate struct {
	Min   *float64 `json:"min,omitempty"`
	Max   *float64 `json:"max,omitempty"`
	Avg   *float64 `json:"avg,omitempty"`
	Sum   *float64 `json:"sum,omitempty"`
	Count int      `json:"count"`
}

// ArchiveRecord is one closed window's aggregates across all metrics,
// keyed by (station, window start). Immutable once emitted; produced exactly
// once per window per station.
type ArchiveRecord struct {
	StationID   string               `json:"station_id"`
	WindowStart time.Time            `json:"window_start"`
	Interval    time.Duration        `json:"interval"`
	Metrics     map[string]Aggregate `json:"metrics"`
}

// WindowEnd is the exclusive upper bound of the record's window.
func (r *ArchiveRecord) WindowEnd() time.Time {
	return r.WindowStart.Add(r.Interval)
}

// DailySummary aggregates a full calendar day. It is recomputed in full from
// that day's archive records; recomputing the same inputs yields an
// identical record.
type DailySummary struct {
	StationID string               `json:"station_id"`
	Date      string               `json:"date"` // 2006-01-02
	Records   int                  `json:"records"`
	Metrics   map[string]Aggregate `json:"metrics"`
}
