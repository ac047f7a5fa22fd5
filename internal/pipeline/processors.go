package pipeline

import (
	"math"
	"sync"

	"github.com/okairos/weatherd/internal/units"
	"github.com/okairos/weatherd/pkg/types"
)

// CalibrationProcessor applies per-metric additive offsets before anything
// else sees the values. Stations with known sensor bias (a barometer reading
// consistently 1.2 hPa low, say) are corrected here, not in the adapters.
type CalibrationProcessor struct {
	Offsets map[string]float64
}

func (p *CalibrationProcessor) Name() string { return "calibration" }

func (p *CalibrationProcessor) Process(obs *types.Observation) (*types.Observation, error) {
	for name, off := range p.Offsets {
		if v, ok := obs.Metric(name); ok {
			obs.SetMetric(name, v+off)
		}
	}
	return obs, nil
}

// DerivedProcessor fills in dew point, heat index and wind chill when the
// inputs are present and the station did not report them itself. The
// formulas are defined in imperial units; values are converted in and out of
// the canonical Celsius/m-per-s representation around each call.
type DerivedProcessor struct{}

func (DerivedProcessor) Name() string { return "derived" }

func (DerivedProcessor) Process(obs *types.Observation) (*types.Observation, error) {
	if obs.OutTemp == nil {
		return obs, nil
	}
	tempC := *obs.OutTemp
	tempF := units.CelsiusToFahrenheit(tempC)

	if obs.Dewpoint == nil && obs.OutHumidity != nil {
		obs.Dewpoint = types.Float(units.DewPoint(tempC, *obs.OutHumidity))
	}
	if obs.Heatindex == nil && obs.OutHumidity != nil {
		hiF := units.HeatIndex(tempF, *obs.OutHumidity)
		obs.Heatindex = types.Float(units.FahrenheitToCelsius(hiF))
	}
	if obs.Windchill == nil && obs.WindSpeed != nil {
		wcF := units.WindChill(tempF, units.MpsToMph(*obs.WindSpeed))
		obs.Windchill = types.Float(units.FahrenheitToCelsius(wcF))
	}
	return obs, nil
}

// SpikeRejectProcessor drops a metric when it jumps further from the
// station's previous reading than the configured limit. Hardware glitches
// show up as single-sample spikes (a 400 degC temperature, a 3000 hPa
// barometer); the field is dropped, the record survives.
type SpikeRejectProcessor struct {
	// MaxDelta is the largest accepted change per metric between
	// consecutive readings of one station. Metrics without an entry are
	// never rejected.
	MaxDelta map[string]float64

	mu   sync.Mutex
	last map[string]map[string]float64 // station -> metric -> value
}

func NewSpikeRejectProcessor(maxDelta map[string]float64) *SpikeRejectProcessor {
	return &SpikeRejectProcessor{
		MaxDelta: maxDelta,
		last:     make(map[string]map[string]float64),
	}
}

func (p *SpikeRejectProcessor) Name() string { return "spike-reject" }

func (p *SpikeRejectProcessor) Process(obs *types.Observation) (*types.Observation, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	prev := p.last[obs.StationID]
	if prev == nil {
		prev = make(map[string]float64)
		p.last[obs.StationID] = prev
	}
	for name, limit := range p.MaxDelta {
		v, ok := obs.Metric(name)
		if !ok {
			continue
		}
		if last, seen := prev[name]; seen && math.Abs(v-last) > limit {
			obs.ClearMetric(name)
			continue
		}
		prev[name] = v
	}
	return obs, nil
}
