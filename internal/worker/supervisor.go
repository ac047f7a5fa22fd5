// Package worker runs the background tickers the daemon needs alongside the
// pipeline.
package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/okairos/weatherd/internal/aggregate"
)

// Supervisor closes overdue aggregation windows on a timer so idle stations
// still produce archive records. The tick is a quarter of the archive
// interval, floored at one second, which bounds how long a finished window
// can sit open.
type Supervisor struct {
	Engine    *aggregate.Engine
	Interval  time.Duration
	logger    zerolog.Logger
	cancelCtx context.CancelFunc
}

// NewSupervisor creates a background worker that sweeps windows for the
// given archive interval.
func NewSupervisor(engine *aggregate.Engine, archiveInterval time.Duration, logger zerolog.Logger) *Supervisor {
	tick := archiveInterval / 4
	if tick < time.Second {
		tick = time.Second
	}
	return &Supervisor{
		Engine:   engine,
		Interval: tick,
		logger:   logger.With().Str("component", "supervisor").Logger(),
	}
}

func (s *Supervisor) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	s.cancelCtx = cancel

	go func() {
		ticker := time.NewTicker(s.Interval)
		defer ticker.Stop()

		s.logger.Info().Dur("tick", s.Interval).Msg("window sweeper started")

		for {
			select {
			case <-ctx.Done():
				s.logger.Info().Msg("window sweeper stopped")
				return
			case now := <-ticker.C:
				if n := s.Engine.CloseDue(ctx, now.UTC()); n > 0 {
					s.logger.Debug().Int("windows", n).Msg("closed overdue windows")
				}
			}
		}
	}()
}

// Stop gracefully stops the background worker.
func (s *Supervisor) Stop() {
	if s.cancelCtx != nil {
		s.cancelCtx()
	}
}
