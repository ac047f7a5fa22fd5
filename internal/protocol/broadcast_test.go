package protocol

import (
	"encoding/binary"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okairos/weatherd/pkg/types"
)

func TestBroadcastRoundTrip(t *testing.T) {
	codec := BroadcastCodec{}
	ts := time.Date(2024, 6, 1, 11, 58, 30, 0, time.UTC)
	in := &types.Observation{
		StationID:   "rooftop-7",
		Timestamp:   ts,
		OutTemp:     types.Float(22.5),
		OutHumidity: types.Float(55),
		Barometer:   types.Float(1013.2),
		WindSpeed:   types.Float(4.4),
		WindDir:     types.Float(270),
		RainCum:     types.Float(12.5),
	}

	frame := codec.Encode(in)
	out, err := codec.Decode(frame, time.Now())
	require.NoError(t, err)
	require.NotNil(t, out)

	assert.Equal(t, "rooftop-7", out.StationID)
	assert.Equal(t, ts, out.Timestamp)
	require.NotNil(t, out.OutTemp)
	assert.InDelta(t, 22.5, *out.OutTemp, 1e-12)
	require.NotNil(t, out.OutHumidity)
	assert.InDelta(t, 55.0, *out.OutHumidity, 1e-12)
	require.NotNil(t, out.Barometer)
	assert.InDelta(t, 1013.2, *out.Barometer, 1e-12)
	require.NotNil(t, out.WindSpeed)
	assert.InDelta(t, 4.4, *out.WindSpeed, 1e-12)
	require.NotNil(t, out.WindDir)
	assert.InDelta(t, 270.0, *out.WindDir, 1e-12)
	require.NotNil(t, out.RainCum)
	assert.InDelta(t, 12.5, *out.RainCum, 1e-12)

	// Fields that were absent stay absent.
	assert.Nil(t, out.WindGust)
	assert.Nil(t, out.InTemp)
}

func TestBroadcastZeroClockUsesReceiptTime(t *testing.T) {
	codec := BroadcastCodec{}
	in := &types.Observation{
		StationID: "s",
		Timestamp: time.Unix(0, 0),
		OutTemp:   types.Float(20),
	}
	frame := codec.Encode(in)

	receipt := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	out, err := codec.Decode(frame, receipt)
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.Equal(t, receipt, out.Timestamp)
}

func TestBroadcastBadMagic(t *testing.T) {
	codec := BroadcastCodec{}
	frame := codec.Encode(&types.Observation{StationID: "s", OutTemp: types.Float(20)})
	binary.BigEndian.PutUint32(frame[0:4], 0xdeadbeef)

	obs, err := codec.Decode(frame, time.Now())
	assert.ErrorIs(t, err, ErrBadFrame)
	assert.Nil(t, obs)
}

func TestBroadcastTruncatedFrame(t *testing.T) {
	codec := BroadcastCodec{}
	frame := codec.Encode(&types.Observation{
		StationID: "s",
		OutTemp:   types.Float(20),
		Barometer: types.Float(1000),
	})

	for cut := 1; cut < len(frame); cut++ {
		obs, err := codec.Decode(frame[:cut], time.Now())
		assert.ErrorIs(t, err, ErrBadFrame, "cut at %d", cut)
		assert.Nil(t, obs)
	}
}

func TestBroadcastEmptyBitmap(t *testing.T) {
	codec := BroadcastCodec{}
	frame := codec.Encode(&types.Observation{StationID: "s"})

	obs, err := codec.Decode(frame, time.Now())
	require.NoError(t, err)
	assert.Nil(t, obs)
}
