package pipeline

import (
	"context"
	"math"
	"time"

	"github.com/okairos/weatherd/pkg/types"
)

// ReplaySource replays a fixed observation sequence into the pipeline. It is
// the hardware-independent test double: integration tests and local runs use
// it in place of a live station.
type ReplaySource struct {
	Observations []*types.Observation
	// Interval between emissions; zero replays as fast as the queue accepts.
	Interval time.Duration
	// Loop restarts the sequence from the top when it runs out.
	Loop bool
}

func (s *ReplaySource) Name() string { return "replay" }

func (s *ReplaySource) Run(ctx context.Context, rt *Runtime) error {
	for {
		for _, obs := range s.Observations {
			if err := ctx.Err(); err != nil {
				return err
			}
			// Saturation drops are the backpressure policy at work, not a
			// reason to stop replaying.
			_ = rt.Offer(ctx, obs.Clone())
			if s.Interval > 0 {
				select {
				case <-time.After(s.Interval):
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		}
		if !s.Loop {
			return nil
		}
	}
}

// SimulatorSource synthesizes plausible readings on an interval, for running
// the full daemon with no hardware at all.
type SimulatorSource struct {
	StationID string
	Interval  time.Duration
	BaseTemp  float64
}

func (s *SimulatorSource) Name() string { return "simulator" }

func (s *SimulatorSource) Run(ctx context.Context, rt *Runtime) error {
	interval := s.Interval
	if interval <= 0 {
		interval = 10 * time.Second
	}
	base := s.BaseTemp
	if base == 0 {
		base = 20.0
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			variation := float64(now.Unix()%100)/10.0 - 5.0
			obs := &types.Observation{
				StationID:   s.StationID,
				Timestamp:   now.UTC(),
				OutTemp:     types.Float(base + variation),
				OutHumidity: types.Float(65.0 + variation),
				Barometer:   types.Float(1013.25 + variation*2.0),
				WindSpeed:   types.Float(5.0 + math.Abs(variation)),
				WindDir:     types.Float(float64(now.Unix() % 360)),
				RainCum:     types.Float(0),
			}
			_ = rt.Offer(ctx, obs)
		}
	}
}
