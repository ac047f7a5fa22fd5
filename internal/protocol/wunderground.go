package protocol

import (
	"net/url"
	"time"

	"github.com/okairos/weatherd/internal/metrics"
	"github.com/okairos/weatherd/internal/units"
	"github.com/okairos/weatherd/pkg/types"
)

// WundergroundAdapter handles the Weather Underground PWS upload protocol
// (action=updateraw). Stations may report either imperial or metric keys;
// both are accepted, metric winning when a pair is duplicated. PASSWORD is
// accepted and ignored: credential checking belongs to the operator surface,
// not the ingest core.
type WundergroundAdapter struct {
	opts Options
}

func NewWundergroundAdapter(opts Options) *WundergroundAdapter {
	return &WundergroundAdapter{opts: opts}
}

func (a *WundergroundAdapter) Name() string { return "wunderground" }

func (a *WundergroundAdapter) Parse(q url.Values, receivedAt time.Time) (*types.Observation, error) {
	obs := &types.Observation{}

	if id, ok := a.opts.field(q, "ID"); ok && id != "" {
		obs.StationID = id
	} else {
		obs.StationID = "wunderground"
	}

	dateutc, _ := a.opts.field(q, "dateutc")
	obs.Timestamp = parseTimestamp(dateutc, receivedAt)

	if tf, ok := a.opts.floatField(q, "tempf"); ok {
		obs.OutTemp = types.Float(units.FahrenheitToCelsius(tf))
	}
	if tc, ok := a.opts.floatField(q, "tempc"); ok {
		obs.OutTemp = types.Float(tc)
	}
	if tf, ok := a.opts.floatField(q, "indoortempf"); ok {
		obs.InTemp = types.Float(units.FahrenheitToCelsius(tf))
	}

	if h, ok := a.opts.floatField(q, "humidity"); ok {
		obs.OutHumidity = types.Float(h)
	}
	if h, ok := a.opts.floatField(q, "indoorhumidity"); ok {
		obs.InHumidity = types.Float(h)
	}

	if inhg, ok := a.opts.floatField(q, "baromin"); ok {
		obs.Barometer = types.Float(units.InHgToHPa(inhg))
	}
	if hpa, ok := a.opts.floatField(q, "baromhpa"); ok {
		obs.Barometer = types.Float(hpa)
	}

	if mph, ok := a.opts.floatField(q, "windspeedmph"); ok {
		obs.WindSpeed = types.Float(units.MphToMps(mph))
	}
	if mph, ok := a.opts.floatField(q, "windgustmph"); ok {
		obs.WindGust = types.Float(units.MphToMps(mph))
	}
	if dir, ok := a.opts.floatField(q, "winddir"); ok {
		obs.WindDir = types.Float(dir)
	}

	if in, ok := a.opts.floatField(q, "rainin"); ok {
		obs.RainRate = types.Float(units.InToMm(in))
	}
	if in, ok := a.opts.floatField(q, "dailyrainin"); ok {
		obs.DayRainCum = types.Float(units.InToMm(in))
	}

	if sr, ok := a.opts.floatField(q, "solarradiation"); ok {
		obs.Radiation = types.Float(sr)
	}
	if uv, ok := a.opts.floatField(q, "UV"); ok {
		obs.UV = types.Float(uv)
	}

	if tf, ok := a.opts.floatField(q, "soiltempf"); ok {
		obs.SetMetric("soilTemp", units.FahrenheitToCelsius(tf))
	}
	if sm, ok := a.opts.floatField(q, "soilmoisture"); ok {
		obs.SetMetric("soilmoisture", sm)
	}
	if pm, ok := a.opts.floatField(q, "AqPM2.5"); ok {
		obs.SetMetric("pm25", pm)
	}

	Validate(obs)
	if obs.IsEmpty() {
		metrics.PayloadsRejectedTotal.WithLabelValues(a.Name()).Inc()
		return nil, nil
	}
	metrics.ObservationsIngestedTotal.WithLabelValues(a.Name()).Inc()
	return obs, nil
}
