package protocol

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okairos/weatherd/pkg/types"
)

var receivedAt = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func TestEcowittParseFullPayload(t *testing.T) {
	a := NewEcowittAdapter(Options{})
	q := url.Values{
		"PASSKEY":        {"ABC123"},
		"dateutc":        {"2024-06-01 11:58:30"},
		"tempf":          {"72.5"},
		"tempinf":        {"68.0"},
		"humidity":       {"55"},
		"humidityin":     {"48"},
		"baromrelin":     {"29.92"},
		"windspeedmph":   {"10"},
		"windgustmph":    {"15"},
		"winddir":        {"270"},
		"rainin":         {"0.1"},
		"dailyrainin":    {"0.25"},
		"totalrainin":    {"12.5"},
		"solarradiation": {"512.3"},
		"uv":             {"6"},
	}

	obs, err := a.Parse(q, receivedAt)
	require.NoError(t, err)
	require.NotNil(t, obs)

	assert.Equal(t, "ABC123", obs.StationID)
	assert.Equal(t, time.Date(2024, 6, 1, 11, 58, 30, 0, time.UTC), obs.Timestamp)

	require.NotNil(t, obs.OutTemp)
	assert.InDelta(t, 22.5, *obs.OutTemp, 1e-9)
	require.NotNil(t, obs.InTemp)
	assert.InDelta(t, 20.0, *obs.InTemp, 1e-9)
	require.NotNil(t, obs.Barometer)
	assert.InDelta(t, 1013.21, *obs.Barometer, 0.1)
	require.NotNil(t, obs.WindSpeed)
	assert.InDelta(t, 4.4704, *obs.WindSpeed, 1e-6)
	require.NotNil(t, obs.WindGust)
	assert.InDelta(t, 6.7056, *obs.WindGust, 1e-6)
	require.NotNil(t, obs.WindDir)
	assert.InDelta(t, 270.0, *obs.WindDir, 1e-9)
	require.NotNil(t, obs.RainRate)
	assert.InDelta(t, 2.54, *obs.RainRate, 1e-9)
	require.NotNil(t, obs.DayRainCum)
	assert.InDelta(t, 6.35, *obs.DayRainCum, 1e-9)
	require.NotNil(t, obs.RainCum)
	assert.InDelta(t, 317.5, *obs.RainCum, 1e-9)
	require.NotNil(t, obs.Radiation)
	assert.InDelta(t, 512.3, *obs.Radiation, 1e-9)
	require.NotNil(t, obs.UV)
	assert.InDelta(t, 6.0, *obs.UV, 1e-9)
}

func TestEcowittDuplicateKeysLastWins(t *testing.T) {
	a := NewEcowittAdapter(Options{})
	q := url.Values{"tempf": {"50", "72.5"}}

	obs, err := a.Parse(q, receivedAt)
	require.NoError(t, err)
	require.NotNil(t, obs)
	require.NotNil(t, obs.OutTemp)
	assert.InDelta(t, 22.5, *obs.OutTemp, 1e-9)
}

func TestEcowittDuplicateKeysFirstWins(t *testing.T) {
	a := NewEcowittAdapter(Options{FirstWins: true})
	q := url.Values{"tempf": {"50", "72.5"}}

	obs, err := a.Parse(q, receivedAt)
	require.NoError(t, err)
	require.NotNil(t, obs)
	require.NotNil(t, obs.OutTemp)
	assert.InDelta(t, 10.0, *obs.OutTemp, 1e-9)
}

func TestEcowittBadNumericDropsFieldOnly(t *testing.T) {
	a := NewEcowittAdapter(Options{})
	q := url.Values{
		"tempf":    {"garbage"},
		"humidity": {"55"},
	}

	obs, err := a.Parse(q, receivedAt)
	require.NoError(t, err)
	require.NotNil(t, obs)
	assert.Nil(t, obs.OutTemp)
	require.NotNil(t, obs.OutHumidity)
	assert.InDelta(t, 55.0, *obs.OutHumidity, 1e-9)
}

func TestEcowittOutOfRangeDropsFieldOnly(t *testing.T) {
	a := NewEcowittAdapter(Options{})
	q := url.Values{
		"humidity": {"150"},
		"winddir":  {"400"},
		"tempf":    {"72.5"},
	}

	obs, err := a.Parse(q, receivedAt)
	require.NoError(t, err)
	require.NotNil(t, obs)
	assert.Nil(t, obs.OutHumidity)
	assert.Nil(t, obs.WindDir)
	assert.NotNil(t, obs.OutTemp)
}

func TestEcowittEmptyPayloadYieldsNothing(t *testing.T) {
	a := NewEcowittAdapter(Options{})
	q := url.Values{"PASSKEY": {"ABC123"}, "dateutc": {"now"}}

	obs, err := a.Parse(q, receivedAt)
	require.NoError(t, err)
	assert.Nil(t, obs)
}

func TestEcowittStationFallbacks(t *testing.T) {
	a := NewEcowittAdapter(Options{})

	// stationtype identifies the model, not the station, so two GW1100s
	// without a PASSKEY must not collide behind the firmware name.
	obs, err := a.Parse(url.Values{"stationtype": {"GW1100"}, "tempf": {"70"}}, receivedAt)
	require.NoError(t, err)
	require.NotNil(t, obs)
	assert.Equal(t, "ecowitt", obs.StationID)

	obs, err = a.Parse(url.Values{"tempf": {"70"}}, receivedAt)
	require.NoError(t, err)
	require.NotNil(t, obs)
	assert.Equal(t, "ecowitt", obs.StationID)
}

func TestEcowittAuxiliaryChannels(t *testing.T) {
	a := NewEcowittAdapter(Options{})
	q := url.Values{
		"temp1f":        {"50"},
		"soilmoisture2": {"37"},
		"wh65batt":      {"1"},
	}

	obs, err := a.Parse(q, receivedAt)
	require.NoError(t, err)
	require.NotNil(t, obs)

	v, ok := obs.Metric("temp1")
	require.True(t, ok)
	assert.InDelta(t, 10.0, v, 1e-9)
	v, ok = obs.Metric("soilmoisture2")
	require.True(t, ok)
	assert.InDelta(t, 37.0, v, 1e-9)
	v, ok = obs.Metric("wh65batt")
	require.True(t, ok)
	assert.InDelta(t, 1.0, v, 1e-9)
}

func TestParseTimestampForms(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"now", receivedAt},
		{"", receivedAt},
		{"1717243110", time.Unix(1717243110, 0).UTC()},
		{"2024-06-01 11:58:30", time.Date(2024, 6, 1, 11, 58, 30, 0, time.UTC)},
		{"2024-06-01T11:58:30Z", time.Date(2024, 6, 1, 11, 58, 30, 0, time.UTC)},
		{"not a time", receivedAt},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseTimestamp(tt.in, receivedAt), "input %q", tt.in)
	}
}

func TestValidateDropsNegativeRainCounters(t *testing.T) {
	obs := &types.Observation{
		StationID: "s",
		Timestamp: receivedAt,
		RainCum:   types.Float(-1),
		OutTemp:   types.Float(20),
	}
	Validate(obs)
	assert.Nil(t, obs.RainCum)
	assert.NotNil(t, obs.OutTemp)
}
