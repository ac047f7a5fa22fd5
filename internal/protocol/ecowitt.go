package protocol

import (
	"fmt"
	"net/url"
	"time"

	"github.com/okairos/weatherd/internal/metrics"
	"github.com/okairos/weatherd/internal/units"
	"github.com/okairos/weatherd/pkg/types"
)

// EcowittAdapter handles the Ecowitt/Fine Offset push protocol: GET query
// strings or POST form bodies with imperial-unit fields (tempf, baromin,
// windspeedmph, rain counters in inches). Unknown keys are ignored so newer
// firmware keeps working.
type EcowittAdapter struct {
	opts Options
}

func NewEcowittAdapter(opts Options) *EcowittAdapter {
	return &EcowittAdapter{opts: opts}
}

func (a *EcowittAdapter) Name() string { return "ecowitt" }

func (a *EcowittAdapter) Parse(q url.Values, receivedAt time.Time) (*types.Observation, error) {
	obs := &types.Observation{}

	// stationtype is a firmware model string shared by every unit of that
	// model, not an identity. Only PASSKEY names a station.
	if pk, ok := a.opts.field(q, "PASSKEY"); ok && pk != "" {
		obs.StationID = pk
	} else {
		obs.StationID = "ecowitt"
	}

	dateutc, _ := a.opts.field(q, "dateutc")
	obs.Timestamp = parseTimestamp(dateutc, receivedAt)

	// Temperature: degF on the wire, degC canonical.
	if tf, ok := a.opts.floatField(q, "tempf"); ok {
		obs.OutTemp = types.Float(units.FahrenheitToCelsius(tf))
	}
	if tf, ok := a.opts.floatField(q, "tempinf"); ok {
		obs.InTemp = types.Float(units.FahrenheitToCelsius(tf))
	}

	if h, ok := a.opts.floatField(q, "humidity"); ok {
		obs.OutHumidity = types.Float(h)
	}
	if h, ok := a.opts.floatField(q, "humidityin"); ok {
		obs.InHumidity = types.Float(h)
	}

	// Barometer: inHg -> hPa. Relative pressure is the station's
	// sea-level-corrected value and wins over baromin when both appear.
	if inhg, ok := a.opts.floatField(q, "baromin"); ok {
		obs.Barometer = types.Float(units.InHgToHPa(inhg))
	}
	if inhg, ok := a.opts.floatField(q, "baromrelin"); ok {
		obs.Barometer = types.Float(units.InHgToHPa(inhg))
	}
	if inhg, ok := a.opts.floatField(q, "baromabsin"); ok {
		obs.SetMetric("barometerAbs", units.InHgToHPa(inhg))
	}

	// Wind: mph -> m/s.
	if mph, ok := a.opts.floatField(q, "windspeedmph"); ok {
		obs.WindSpeed = types.Float(units.MphToMps(mph))
	}
	if mph, ok := a.opts.floatField(q, "windgustmph"); ok {
		obs.WindGust = types.Float(units.MphToMps(mph))
	}
	if dir, ok := a.opts.floatField(q, "winddir"); ok {
		obs.WindDir = types.Float(dir)
	}

	// Rain: inches -> mm. rainin is a rate; the others are cumulative
	// counters handled by the aggregation engine's delta logic.
	if in, ok := a.opts.floatField(q, "rainin"); ok {
		obs.RainRate = types.Float(units.InToMm(in))
	}
	if in, ok := a.opts.floatField(q, "dailyrainin"); ok {
		obs.DayRainCum = types.Float(units.InToMm(in))
	}
	if in, ok := a.opts.floatField(q, "totalrainin"); ok {
		obs.RainCum = types.Float(units.InToMm(in))
	} else if in, ok := a.opts.floatField(q, "yearlyrainin"); ok {
		obs.RainCum = types.Float(units.InToMm(in))
	}

	if sr, ok := a.opts.floatField(q, "solarradiation"); ok {
		obs.Radiation = types.Float(sr)
	}
	if uv, ok := a.opts.floatField(q, "uv"); ok {
		obs.UV = types.Float(uv)
	}

	a.parseChannels(q, obs)

	Validate(obs)
	if obs.IsEmpty() {
		metrics.PayloadsRejectedTotal.WithLabelValues(a.Name()).Inc()
		return nil, nil
	}
	metrics.ObservationsIngestedTotal.WithLabelValues(a.Name()).Inc()
	return obs, nil
}

// parseChannels picks up the numbered sensor channels (temp1f..temp8f,
// soilmoisture1.., humidity1..) and battery levels into Extra.
func (a *EcowittAdapter) parseChannels(q url.Values, obs *types.Observation) {
	for ch := 1; ch <= 8; ch++ {
		if tf, ok := a.opts.floatField(q, fmt.Sprintf("temp%df", ch)); ok {
			obs.SetMetric(fmt.Sprintf("temp%d", ch), units.FahrenheitToCelsius(tf))
		}
		if h, ok := a.opts.floatField(q, fmt.Sprintf("humidity%d", ch)); ok {
			obs.SetMetric(fmt.Sprintf("humidity%d", ch), h)
		}
		if sm, ok := a.opts.floatField(q, fmt.Sprintf("soilmoisture%d", ch)); ok {
			obs.SetMetric(fmt.Sprintf("soilmoisture%d", ch), sm)
		}
		if b, ok := a.opts.floatField(q, fmt.Sprintf("batt%d", ch)); ok {
			obs.SetMetric(fmt.Sprintf("batt%d", ch), b)
		}
	}
	if b, ok := a.opts.floatField(q, "wh65batt"); ok {
		obs.SetMetric("wh65batt", b)
	}
}
