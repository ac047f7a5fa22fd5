package sink

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/okairos/weatherd/internal/metrics"
	"github.com/okairos/weatherd/pkg/types"
)

// DispatcherConfig bounds delivery attempts.
type DispatcherConfig struct {
	// Timeout applies to each individual write attempt.
	Timeout time.Duration
	// RetryBase is the first backoff; each further attempt doubles it up to
	// MaxBackoff.
	RetryBase   time.Duration
	MaxBackoff  time.Duration
	MaxAttempts int
}

func (c DispatcherConfig) withDefaults() DispatcherConfig {
	if c.Timeout <= 0 {
		c.Timeout = 2 * time.Second
	}
	if c.RetryBase <= 0 {
		c.RetryBase = 100 * time.Millisecond
	}
	if c.MaxBackoff <= 0 {
		c.MaxBackoff = 5 * time.Second
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	return c
}

// Dispatcher fans each unit out to every registered sink concurrently. A
// sink that fails or hangs costs only its own delivery: other sinks run on
// their own goroutines with their own timeouts, and exhausted retries end in
// a counter and an error log, never an error up the stack.
type Dispatcher struct {
	cfg    DispatcherConfig
	logger zerolog.Logger
	sinks  []Sink
}

func NewDispatcher(cfg DispatcherConfig, logger zerolog.Logger, sinks ...Sink) *Dispatcher {
	return &Dispatcher{
		cfg:    cfg.withDefaults(),
		logger: logger.With().Str("component", "dispatcher").Logger(),
		sinks:  sinks,
	}
}

// Sinks returns the registered backends, for health checks and shutdown.
func (d *Dispatcher) Sinks() []Sink { return d.sinks }

func (d *Dispatcher) Name() string { return "sinks" }

// Consume implements the pipeline consumer for live observations.
func (d *Dispatcher) Consume(ctx context.Context, obs *types.Observation) error {
	d.Observation(ctx, obs)
	return nil
}

func (d *Dispatcher) Observation(ctx context.Context, obs *types.Observation) {
	d.fanOut(ctx, KindObservation, func(s Sink, actx context.Context) error {
		return s.WriteObservation(actx, obs)
	})
}

func (d *Dispatcher) Archive(ctx context.Context, rec *types.ArchiveRecord) {
	d.fanOut(ctx, KindArchive, func(s Sink, actx context.Context) error {
		return s.WriteArchive(actx, rec)
	})
}

func (d *Dispatcher) Daily(ctx context.Context, sum *types.DailySummary) {
	d.fanOut(ctx, KindDaily, func(s Sink, actx context.Context) error {
		return s.WriteDaily(actx, sum)
	})
}

func (d *Dispatcher) fanOut(ctx context.Context, kind string, write func(Sink, context.Context) error) {
	var wg sync.WaitGroup
	for _, s := range d.sinks {
		wg.Add(1)
		go func(s Sink) {
			defer wg.Done()
			d.deliver(ctx, s, kind, write)
		}(s)
	}
	wg.Wait()
}

// deliver runs one sink's attempts for one unit, with per-attempt timeout
// and capped exponential backoff between attempts.
func (d *Dispatcher) deliver(ctx context.Context, s Sink, kind string, write func(Sink, context.Context) error) {
	ctx, span := otel.Tracer("weatherd-sink").Start(ctx, "sink.deliver")
	defer span.End()

	span.SetAttributes(
		attribute.String("sink.name", s.Name()),
		attribute.String("sink.kind", kind),
	)

	var lastErr error
	for attempt := 0; attempt < d.cfg.MaxAttempts; attempt++ {
		if attempt > 0 {
			metrics.SinkRetriesTotal.WithLabelValues(s.Name()).Inc()
			backoff := d.cfg.RetryBase << (attempt - 1)
			if backoff > d.cfg.MaxBackoff {
				backoff = d.cfg.MaxBackoff
			}
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
			}
			if ctx.Err() != nil {
				lastErr = ctx.Err()
				break
			}
		}

		actx, cancel := context.WithTimeout(ctx, d.cfg.Timeout)
		start := time.Now()
		err := write(s, actx)
		cancel()

		if err == nil {
			metrics.SinkWriteLatencySeconds.WithLabelValues(s.Name()).Observe(time.Since(start).Seconds())
			metrics.SinkDeliveredTotal.WithLabelValues(s.Name(), kind).Inc()
			span.SetStatus(codes.Ok, "")
			return
		}
		lastErr = err
	}

	metrics.SinkFailedTotal.WithLabelValues(s.Name(), kind).Inc()
	span.RecordError(lastErr)
	span.SetStatus(codes.Error, lastErr.Error())
	d.logger.Error().
		Err(lastErr).
		Str("sink", s.Name()).
		Str("kind", kind).
		Int("attempts", d.cfg.MaxAttempts).
		Msg("delivery failed, unit dropped")
}

// Close closes every sink, returning the first error encountered.
func (d *Dispatcher) Close() error {
	var first error
	for _, s := range d.sinks {
		if err := s.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
