package protocol

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/okairos/weatherd/internal/metrics"
	"github.com/okairos/weatherd/pkg/types"
)

// The broadcast frame is the compact binary format local-network devices
// push over UDP. Layout, all big-endian:
//
//	uint32  magic ("WX" + format version, 0x57580001)
//	uint8   station id length
//	[]byte  station id (UTF-8)
//	int64   unix seconds (0 = sender has no clock, use receipt time)
//	uint16  field bitmap
//	float64 one value per set bit, in bitmap order
//
// Values arrive already in canonical units; the sender is our own firmware.
const BroadcastMagic uint32 = 0x57580001

// Bitmap positions, low bit first.
var broadcastFields = []string{
	types.MetricOutTemp,
	types.MetricOutHumidity,
	types.MetricBarometer,
	types.MetricWindSpeed,
	types.MetricWindGust,
	types.MetricWindDir,
	"rainCum",
	types.MetricRadiation,
	types.MetricUV,
	types.MetricInTemp,
}

var ErrBadFrame = fmt.Errorf("malformed broadcast frame")

// BroadcastCodec decodes (and, for tests and firmware, encodes) broadcast
// frames. It is stateless and safe for concurrent use.
type BroadcastCodec struct{}

func (BroadcastCodec) Name() string { return "broadcast" }

// Decode parses one datagram into at most one observation. Any structural
// problem yields ErrBadFrame; the caller drops the datagram and counts it.
func (c BroadcastCodec) Decode(frame []byte, receivedAt time.Time) (*types.Observation, error) {
	reject := func() (*types.Observation, error) {
		metrics.PayloadsRejectedTotal.WithLabelValues(c.Name()).Inc()
		return nil, ErrBadFrame
	}

	if len(frame) < 5 {
		return reject()
	}
	if binary.BigEndian.Uint32(frame[0:4]) != BroadcastMagic {
		return reject()
	}
	idLen := int(frame[4])
	off := 5
	if len(frame) < off+idLen+8+2 {
		return reject()
	}
	stationID := string(frame[off : off+idLen])
	off += idLen

	secs := int64(binary.BigEndian.Uint64(frame[off : off+8]))
	off += 8
	bitmap := binary.BigEndian.Uint16(frame[off : off+2])
	off += 2

	obs := &types.Observation{StationID: stationID}
	if secs > 0 {
		obs.Timestamp = time.Unix(secs, 0).UTC()
	} else {
		obs.Timestamp = receivedAt.UTC()
	}

	for i, name := range broadcastFields {
		if bitmap&(1<<uint(i)) == 0 {
			continue
		}
		if len(frame) < off+8 {
			return reject()
		}
		v := math.Float64frombits(binary.BigEndian.Uint64(frame[off : off+8]))
		off += 8
		if name == "rainCum" {
			obs.RainCum = types.Float(v)
		} else {
			obs.SetMetric(name, v)
		}
	}

	Validate(obs)
	if obs.IsEmpty() {
		metrics.PayloadsRejectedTotal.WithLabelValues(c.Name()).Inc()
		return nil, nil
	}
	metrics.ObservationsIngestedTotal.WithLabelValues(c.Name()).Inc()
	return obs, nil
}

// Encode builds a frame from an observation, emitting only the fields the
// bitmap can carry. Used by the simulator and by tests.
func (c BroadcastCodec) Encode(obs *types.Observation) []byte {
	var bitmap uint16
	var values []float64
	for i, name := range broadcastFields {
		var v float64
		var ok bool
		if name == "rainCum" {
			if obs.RainCum != nil {
				v, ok = *obs.RainCum, true
			}
		} else {
			v, ok = obs.Metric(name)
		}
		if !ok {
			continue
		}
		bitmap |= 1 << uint(i)
		values = append(values, v)
	}

	id := []byte(obs.StationID)
	if len(id) > 255 {
		id = id[:255]
	}
	frame := make([]byte, 0, 4+1+len(id)+8+2+8*len(values))
	frame = binary.BigEndian.AppendUint32(frame, BroadcastMagic)
	frame = append(frame, byte(len(id)))
	frame = append(frame, id...)
	frame = binary.BigEndian.AppendUint64(frame, uint64(obs.Timestamp.Unix()))
	frame = binary.BigEndian.AppendUint16(frame, bitmap)
	for _, v := range values {
		frame = binary.BigEndian.AppendUint64(frame, math.Float64bits(v))
	}
	return frame
}
