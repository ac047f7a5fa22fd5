package pipeline

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okairos/weatherd/pkg/types"
)

// capture is a consumer that records everything it receives.
type capture struct {
	mu  sync.Mutex
	got []*types.Observation
}

func (c *capture) Name() string { return "capture" }

func (c *capture) Consume(ctx context.Context, obs *types.Observation) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.got = append(c.got, obs)
	return nil
}

func (c *capture) observations() []*types.Observation {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*types.Observation, len(c.got))
	copy(out, c.got)
	return out
}

func testObs(station string, temp float64) *types.Observation {
	return &types.Observation{
		StationID: station,
		Timestamp: time.Now().UTC(),
		OutTemp:   types.Float(temp),
	}
}

func TestReplayThroughPipeline(t *testing.T) {
	rt := NewRuntime(Config{QueueSize: 64, Workers: 2}, zerolog.Nop())
	sink := &capture{}
	rt.Deliver(sink)

	ctx := context.Background()
	rt.Start(ctx)

	src := &ReplaySource{
		Observations: []*types.Observation{
			testObs("s1", 20),
			testObs("s2", 21),
			testObs("s1", 22),
		},
	}
	require.NoError(t, src.Run(ctx, rt))

	drain, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	require.NoError(t, rt.Shutdown(drain))

	assert.Len(t, sink.observations(), 3)
}

func TestPerStationOrderPreserved(t *testing.T) {
	rt := NewRuntime(Config{QueueSize: 256, Workers: 4}, zerolog.Nop())
	sink := &capture{}
	rt.Deliver(sink)

	ctx := context.Background()
	rt.Start(ctx)

	const n = 50
	for i := 0; i < n; i++ {
		require.NoError(t, rt.Offer(ctx, testObs("s1", float64(i))))
	}

	drain, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	require.NoError(t, rt.Shutdown(drain))

	got := sink.observations()
	require.Len(t, got, n)
	for i, obs := range got {
		assert.Equal(t, float64(i), *obs.OutTemp, "position %d", i)
	}
}

func TestOfferSaturationDrops(t *testing.T) {
	// One worker, tiny queue, never started: the queue can only fill.
	rt := NewRuntime(Config{QueueSize: 2, Workers: 1, PushTimeout: 10 * time.Millisecond}, zerolog.Nop())

	ctx := context.Background()
	require.NoError(t, rt.Offer(ctx, testObs("s1", 1)))
	require.NoError(t, rt.Offer(ctx, testObs("s1", 2)))

	err := rt.Offer(ctx, testObs("s1", 3))
	assert.ErrorIs(t, err, ErrQueueSaturated)
}

func TestOfferAfterShutdown(t *testing.T) {
	rt := NewRuntime(Config{QueueSize: 8, Workers: 1}, zerolog.Nop())
	ctx := context.Background()
	rt.Start(ctx)

	drain, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	require.NoError(t, rt.Shutdown(drain))

	assert.ErrorIs(t, rt.Offer(ctx, testObs("s1", 1)), ErrQueueSaturated)
}

func TestProcessorFiltersObservation(t *testing.T) {
	rt := NewRuntime(Config{QueueSize: 8, Workers: 1}, zerolog.Nop())
	sink := &capture{}
	rt.Deliver(sink)

	rt.Use(processorFunc{name: "filter", fn: func(obs *types.Observation) (*types.Observation, error) {
		if obs.StationID == "blocked" {
			return nil, nil
		}
		return obs, nil
	}})

	ctx := context.Background()
	rt.Start(ctx)

	require.NoError(t, rt.Offer(ctx, testObs("blocked", 1)))
	require.NoError(t, rt.Offer(ctx, testObs("s1", 2)))

	drain, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	require.NoError(t, rt.Shutdown(drain))

	got := sink.observations()
	require.Len(t, got, 1)
	assert.Equal(t, "s1", got[0].StationID)
}

type processorFunc struct {
	name string
	fn   func(*types.Observation) (*types.Observation, error)
}

func (p processorFunc) Name() string { return p.name }

func (p processorFunc) Process(obs *types.Observation) (*types.Observation, error) {
	return p.fn(obs)
}

func TestConsumersReceiveIndependentCopies(t *testing.T) {
	rt := NewRuntime(Config{QueueSize: 8, Workers: 1}, zerolog.Nop())

	mutator := ConsumerFunc{
		ConsumerName: "mutator",
		Fn: func(ctx context.Context, obs *types.Observation) error {
			obs.SetMetric(types.MetricOutTemp, -100)
			return nil
		},
	}
	sink := &capture{}
	rt.Deliver(mutator)
	rt.Deliver(sink)

	ctx := context.Background()
	rt.Start(ctx)

	require.NoError(t, rt.Offer(ctx, testObs("s1", 20)))

	drain, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	require.NoError(t, rt.Shutdown(drain))

	got := sink.observations()
	require.Len(t, got, 1)
	assert.Equal(t, 20.0, *got[0].OutTemp)
}
