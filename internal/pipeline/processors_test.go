package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okairos/weatherd/pkg/types"
)

func TestCalibrationProcessor(t *testing.T) {
	p := &CalibrationProcessor{Offsets: map[string]float64{
		types.MetricBarometer: 1.2,
		types.MetricOutTemp:   -0.5,
	}}

	obs := &types.Observation{
		StationID: "s1",
		Timestamp: time.Now(),
		Barometer: types.Float(1012.0),
		OutTemp:   types.Float(20.0),
	}

	out, err := p.Process(obs)
	require.NoError(t, err)
	assert.InDelta(t, 1013.2, *out.Barometer, 1e-9)
	assert.InDelta(t, 19.5, *out.OutTemp, 1e-9)
}

func TestDerivedProcessorFillsMissing(t *testing.T) {
	obs := &types.Observation{
		StationID:   "s1",
		Timestamp:   time.Now(),
		OutTemp:     types.Float(30.0),
		OutHumidity: types.Float(70.0),
		WindSpeed:   types.Float(5.0),
	}

	out, err := DerivedProcessor{}.Process(obs)
	require.NoError(t, err)

	require.NotNil(t, out.Dewpoint)
	assert.InDelta(t, 24.0, *out.Dewpoint, 0.5)
	require.NotNil(t, out.Heatindex)
	// 86 degF at 70 %RH is well inside the regression's range.
	assert.Greater(t, *out.Heatindex, *out.OutTemp)
	require.NotNil(t, out.Windchill)
	// Warm air: formula out of range, temperature passes through.
	assert.InDelta(t, 30.0, *out.Windchill, 0.05)
}

func TestDerivedProcessorKeepsStationValues(t *testing.T) {
	obs := &types.Observation{
		StationID:   "s1",
		Timestamp:   time.Now(),
		OutTemp:     types.Float(30.0),
		OutHumidity: types.Float(70.0),
		Dewpoint:    types.Float(99.0),
	}

	out, err := DerivedProcessor{}.Process(obs)
	require.NoError(t, err)
	assert.Equal(t, 99.0, *out.Dewpoint)
}

func TestDerivedProcessorNoInputsNoOutputs(t *testing.T) {
	obs := &types.Observation{
		StationID: "s1",
		Timestamp: time.Now(),
		Barometer: types.Float(1013.0),
	}

	out, err := DerivedProcessor{}.Process(obs)
	require.NoError(t, err)
	assert.Nil(t, out.Dewpoint)
	assert.Nil(t, out.Heatindex)
	assert.Nil(t, out.Windchill)
}

func TestSpikeRejectDropsJumps(t *testing.T) {
	p := NewSpikeRejectProcessor(map[string]float64{
		types.MetricOutTemp: 10,
	})

	first := &types.Observation{StationID: "s1", OutTemp: types.Float(20)}
	out, err := p.Process(first)
	require.NoError(t, err)
	require.NotNil(t, out.OutTemp)

	spike := &types.Observation{StationID: "s1", OutTemp: types.Float(400), Barometer: types.Float(1000)}
	out, err = p.Process(spike)
	require.NoError(t, err)
	assert.Nil(t, out.OutTemp, "spiking metric is dropped")
	assert.NotNil(t, out.Barometer, "the record survives")

	// A plausible value after the spike is accepted against the last good one.
	next := &types.Observation{StationID: "s1", OutTemp: types.Float(22)}
	out, err = p.Process(next)
	require.NoError(t, err)
	assert.NotNil(t, out.OutTemp)
}

func TestSpikeRejectPerStation(t *testing.T) {
	p := NewSpikeRejectProcessor(map[string]float64{types.MetricOutTemp: 10})

	_, err := p.Process(&types.Observation{StationID: "s1", OutTemp: types.Float(20)})
	require.NoError(t, err)

	// A different station has no history; its first value always passes.
	out, err := p.Process(&types.Observation{StationID: "s2", OutTemp: types.Float(400)})
	require.NoError(t, err)
	assert.NotNil(t, out.OutTemp)
}
