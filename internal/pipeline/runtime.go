package pipeline

import (
	"context"
	"hash/fnv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/okairos/weatherd/internal/metrics"
	"github.com/okairos/weatherd/pkg/types"
)

// Config sizes the runtime. Workers each own a share of the queue;
// observations shard onto workers by station so per-station receipt order is
// preserved no matter how many workers run.
type Config struct {
	QueueSize   int
	Workers     int
	PushTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.QueueSize <= 0 {
		c.QueueSize = 1024
	}
	if c.Workers <= 0 {
		c.Workers = 1
	}
	if c.PushTimeout <= 0 {
		c.PushTimeout = 100 * time.Millisecond
	}
	return c
}

// Runtime is the pipeline's queue and worker pool.
type Runtime struct {
	cfg        Config
	logger     zerolog.Logger
	processors []Processor
	consumers  []Consumer

	queues   []chan *types.Observation
	closed   atomic.Bool
	draining chan struct{}
	wg       sync.WaitGroup
}

func NewRuntime(cfg Config, logger zerolog.Logger) *Runtime {
	cfg = cfg.withDefaults()
	rt := &Runtime{
		cfg:      cfg,
		logger:   logger.With().Str("component", "pipeline").Logger(),
		draining: make(chan struct{}),
	}
	per := cfg.QueueSize / cfg.Workers
	if per < 1 {
		per = 1
	}
	rt.queues = make([]chan *types.Observation, cfg.Workers)
	for i := range rt.queues {
		rt.queues[i] = make(chan *types.Observation, per)
	}
	return rt
}

// Use appends a processor to the chain.
func (rt *Runtime) Use(p Processor) {
	rt.processors = append(rt.processors, p)
}

// Deliver registers a consumer for processed observations.
func (rt *Runtime) Deliver(c Consumer) {
	rt.consumers = append(rt.consumers, c)
}

// Offer pushes one observation into the queue, waiting at most PushTimeout
// when the shard is full. On saturation the observation is dropped and
// counted; memory never grows unbounded.
func (rt *Runtime) Offer(ctx context.Context, obs *types.Observation) error {
	if rt.closed.Load() {
		return ErrQueueSaturated
	}
	q := rt.queues[rt.shard(obs.StationID)]
	select {
	case q <- obs:
		metrics.QueueDepth.Inc()
		return nil
	default:
	}

	t := time.NewTimer(rt.cfg.PushTimeout)
	defer t.Stop()
	select {
	case q <- obs:
		metrics.QueueDepth.Inc()
		return nil
	case <-t.C:
	case <-ctx.Done():
	}
	metrics.QueueDroppedTotal.Inc()
	rt.logger.Warn().Str("station", obs.StationID).Msg("queue saturated, observation dropped")
	return ErrQueueSaturated
}

func (rt *Runtime) shard(stationID string) int {
	if len(rt.queues) == 1 {
		return 0
	}
	h := fnv.New32a()
	h.Write([]byte(stationID))
	return int(h.Sum32() % uint32(len(rt.queues)))
}

// Start launches the worker pool. Workers exit when their queue is closed
// and drained; context cancellation only interrupts consumer calls.
func (rt *Runtime) Start(ctx context.Context) {
	for i := range rt.queues {
		rt.wg.Add(1)
		go rt.worker(ctx, i)
	}
	rt.logger.Info().
		Int("workers", rt.cfg.Workers).
		Int("queue_size", rt.cfg.QueueSize).
		Msg("pipeline started")
}

func (rt *Runtime) worker(ctx context.Context, idx int) {
	defer rt.wg.Done()
	for obs := range rt.queues[idx] {
		if obs == nil {
			// Drain sentinel from Shutdown.
			return
		}
		metrics.QueueDepth.Dec()
		rt.handle(ctx, obs)
	}
}

func (rt *Runtime) handle(ctx context.Context, obs *types.Observation) {
	for _, p := range rt.processors {
		next, err := p.Process(obs)
		if err != nil {
			rt.logger.Error().Err(err).Str("processor", p.Name()).Msg("processor error, observation dropped")
			return
		}
		if next == nil {
			return
		}
		obs = next
	}

	// Fan out concurrently so one slow consumer never delays the other.
	var wg sync.WaitGroup
	for _, c := range rt.consumers {
		wg.Add(1)
		go func(c Consumer) {
			defer wg.Done()
			if err := c.Consume(ctx, obs.Clone()); err != nil {
				rt.logger.Error().Err(err).Str("consumer", c.Name()).Msg("consumer error")
			}
		}(c)
	}
	wg.Wait()
}

// Shutdown stops accepting input and drains what is queued, bounded by the
// deadline on ctx. Workers still running at the deadline are abandoned.
func (rt *Runtime) Shutdown(ctx context.Context) error {
	if rt.closed.Swap(true) {
		return nil
	}
	// A nil sentinel per queue instead of close: a racing Offer that passed
	// the closed check must not panic on a closed channel.
	done := make(chan struct{})
	go func() {
		for _, q := range rt.queues {
			q <- nil
		}
		rt.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		rt.logger.Info().Msg("pipeline drained")
		return nil
	case <-ctx.Done():
		rt.logger.Warn().Msg("pipeline drain deadline exceeded")
		return ctx.Err()
	}
}
