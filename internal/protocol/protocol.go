// Package protocol maps raw station payloads onto normalized observations.
// One adapter exists per wire format. Adapters never fail hard on malformed
// input: a bad field is skipped, a bad payload yields no observation, and
// the transport layer stays permissive either way.
package protocol

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/okairos/weatherd/internal/metrics"
	"github.com/okairos/weatherd/internal/units"
	"github.com/okairos/weatherd/pkg/types"
)

// Adapter turns one decoded key/value payload into at most one observation.
// A nil observation with nil error means the payload carried nothing usable.
type Adapter interface {
	Name() string
	Parse(fields url.Values, receivedAt time.Time) (*types.Observation, error)
}

// Options control payload interpretation policies that the source material
// leaves ambiguous. The defaults are last-occurrence-wins and field-scoped
// drops.
type Options struct {
	// FirstWins resolves duplicate keys to the first occurrence instead of
	// the last.
	FirstWins bool
}

// field resolves a possibly-duplicated key per the configured policy.
func (o Options) field(q url.Values, key string) (string, bool) {
	vs, ok := q[key]
	if !ok || len(vs) == 0 {
		return "", false
	}
	if o.FirstWins {
		return vs[0], true
	}
	return vs[len(vs)-1], true
}

// floatField parses a numeric field. Parse failures drop the field only and
// are counted; they never invalidate the observation.
func (o Options) floatField(q url.Values, key string) (float64, bool) {
	s, ok := o.field(q, key)
	if !ok {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		metrics.FieldsRejectedTotal.WithLabelValues("parse").Inc()
		return 0, false
	}
	return v, true
}

const dateutcLayout = "2006-01-02 15:04:05"

// parseTimestamp interprets a dateutc-style value: the literal "now", unix
// epoch seconds, the classic "YYYY-MM-DD HH:MM:SS" form, or RFC3339.
// Anything unparseable falls back to receipt time.
func parseTimestamp(s string, receivedAt time.Time) time.Time {
	s = strings.TrimSpace(s)
	if s == "" || s == "now" {
		return receivedAt.UTC()
	}
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(secs, 0).UTC()
	}
	if t, err := time.Parse(dateutcLayout, s); err == nil {
		return t.UTC()
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC()
	}
	metrics.FieldsRejectedTotal.WithLabelValues("timestamp").Inc()
	return receivedAt.UTC()
}

// Validate enforces adapter-agnostic range sanity once, after unit
// conversion. Offending fields are dropped and counted; the record survives.
func Validate(obs *types.Observation) {
	for name, v := range obs.Metrics() {
		if !units.Finite(v) {
			obs.ClearMetric(name)
			metrics.FieldsRejectedTotal.WithLabelValues("conversion_overflow").Inc()
			continue
		}
		switch name {
		case types.MetricOutHumidity, types.MetricInHumidity:
			if v < 0 || v > 100 {
				obs.ClearMetric(name)
				metrics.FieldsRejectedTotal.WithLabelValues("range").Inc()
			}
		case types.MetricWindDir:
			if v < 0 || v >= 360 {
				obs.ClearMetric(name)
				metrics.FieldsRejectedTotal.WithLabelValues("range").Inc()
			}
		case types.MetricWindSpeed, types.MetricWindGust, types.MetricRainRate,
			types.MetricRain, types.MetricRadiation, types.MetricUV:
			if v < 0 {
				obs.ClearMetric(name)
				metrics.FieldsRejectedTotal.WithLabelValues("range").Inc()
			}
		}
	}
	if obs.RainCum != nil && (!units.Finite(*obs.RainCum) || *obs.RainCum < 0) {
		obs.RainCum = nil
		metrics.FieldsRejectedTotal.WithLabelValues("range").Inc()
	}
	if obs.DayRainCum != nil && (!units.Finite(*obs.DayRainCum) || *obs.DayRainCum < 0) {
		obs.DayRainCum = nil
		metrics.FieldsRejectedTotal.WithLabelValues("range").Inc()
	}
}
