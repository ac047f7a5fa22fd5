// Package ingest hosts the network-facing observation sources. HTTP ingest
// lives with the other routes; this package owns the binary UDP listener
// stations broadcast on.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/rs/zerolog"

	"github.com/okairos/weatherd/internal/metrics"
	"github.com/okairos/weatherd/internal/pipeline"
	"github.com/okairos/weatherd/internal/protocol"
)

// maxDatagram bounds the receive buffer. A full frame with every field set
// is well under 200 bytes; anything bigger is garbage.
const maxDatagram = 2048

// UDPSource listens for binary broadcast frames and offers each decoded
// observation to the pipeline. Undecodable datagrams are counted and
// dropped; the listener never stops for bad input.
type UDPSource struct {
	Addr   string
	Logger zerolog.Logger

	codec protocol.BroadcastCodec
}

func (s *UDPSource) Name() string { return "udp" }

func (s *UDPSource) Run(ctx context.Context, rt *pipeline.Runtime) error {
	addr, err := net.ResolveUDPAddr("udp", s.Addr)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", s.Addr, err)
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.Addr, err)
	}
	defer conn.Close()

	logger := s.Logger.With().Str("component", "udp").Str("addr", s.Addr).Logger()
	logger.Info().Msg("udp listener started")

	// Close unblocks ReadFromUDP when the context ends.
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	buf := make([]byte, maxDatagram)
	for {
		n, remote, err := conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			logger.Error().Err(err).Msg("read failed")
			continue
		}

		start := time.Now()
		frame := make([]byte, n)
		copy(frame, buf[:n])

		obs, err := s.codec.Decode(frame, time.Now().UTC())
		if err != nil {
			logger.Debug().Err(err).Stringer("remote", remote).Msg("bad frame dropped")
			continue
		}
		if obs == nil {
			continue
		}
		metrics.IngestLatencySeconds.WithLabelValues(s.codec.Name()).Observe(time.Since(start).Seconds())

		// Saturation is already counted inside Offer.
		_ = rt.Offer(ctx, obs)
	}
}
