package sink

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okairos/weatherd/pkg/types"
)

// fakeSink counts writes and fails or blocks on demand.
type fakeSink struct {
	name  string
	fail  atomic.Bool
	block time.Duration

	mu       sync.Mutex
	obs      []*types.Observation
	records  []*types.ArchiveRecord
	dailies  []*types.DailySummary
	attempts atomic.Int64
}

func (f *fakeSink) Name() string { return f.name }

func (f *fakeSink) write(ctx context.Context) error {
	f.attempts.Add(1)
	if f.block > 0 {
		select {
		case <-time.After(f.block):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if f.fail.Load() {
		return fmt.Errorf("backend down")
	}
	return nil
}

func (f *fakeSink) WriteObservation(ctx context.Context, obs *types.Observation) error {
	if err := f.write(ctx); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.obs = append(f.obs, obs)
	return nil
}

func (f *fakeSink) WriteArchive(ctx context.Context, rec *types.ArchiveRecord) error {
	if err := f.write(ctx); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, rec)
	return nil
}

func (f *fakeSink) WriteDaily(ctx context.Context, sum *types.DailySummary) error {
	if err := f.write(ctx); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dailies = append(f.dailies, sum)
	return nil
}

func (f *fakeSink) Ping(ctx context.Context) error { return nil }
func (f *fakeSink) Close() error                   { return nil }

func (f *fakeSink) observations() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.obs)
}

func testObservation() *types.Observation {
	return &types.Observation{
		StationID: "s1",
		Timestamp: time.Now().UTC(),
		OutTemp:   types.Float(20),
	}
}

func fastConfig() DispatcherConfig {
	return DispatcherConfig{
		Timeout:     50 * time.Millisecond,
		RetryBase:   time.Millisecond,
		MaxBackoff:  5 * time.Millisecond,
		MaxAttempts: 3,
	}
}

func TestFailingSinkDoesNotAffectOthers(t *testing.T) {
	healthy1 := &fakeSink{name: "a"}
	broken := &fakeSink{name: "b"}
	broken.fail.Store(true)
	healthy2 := &fakeSink{name: "c"}

	d := NewDispatcher(fastConfig(), zerolog.Nop(), healthy1, broken, healthy2)
	d.Observation(context.Background(), testObservation())

	assert.Equal(t, 1, healthy1.observations())
	assert.Equal(t, 1, healthy2.observations())
	assert.Equal(t, 0, broken.observations())
	// The broken sink burned its whole retry budget.
	assert.Equal(t, int64(3), broken.attempts.Load())
}

func TestSlowSinkIsTimedOut(t *testing.T) {
	slow := &fakeSink{name: "slow", block: time.Second}
	fast := &fakeSink{name: "fast"}

	d := NewDispatcher(fastConfig(), zerolog.Nop(), slow, fast)

	start := time.Now()
	d.Observation(context.Background(), testObservation())
	elapsed := time.Since(start)

	assert.Equal(t, 1, fast.observations())
	assert.Equal(t, 0, slow.observations())
	// Three attempts at 50ms each plus small backoffs, nowhere near the
	// sink's full 1s stall per attempt.
	assert.Less(t, elapsed, 500*time.Millisecond)
}

func TestRetrySucceedsAfterTransientFailure(t *testing.T) {
	flaky := &fakeSink{name: "flaky"}
	flaky.fail.Store(true)

	cfg := fastConfig()
	cfg.RetryBase = 20 * time.Millisecond
	d := NewDispatcher(cfg, zerolog.Nop(), flaky)

	// Heal the backend while the dispatcher is backing off.
	go func() {
		time.Sleep(10 * time.Millisecond)
		flaky.fail.Store(false)
	}()
	d.Observation(context.Background(), testObservation())

	assert.Equal(t, 1, flaky.observations())
	assert.GreaterOrEqual(t, flaky.attempts.Load(), int64(2))
}

func TestArchiveAndDailyFanOut(t *testing.T) {
	s := &fakeSink{name: "a"}
	d := NewDispatcher(fastConfig(), zerolog.Nop(), s)

	rec := &types.ArchiveRecord{
		StationID:   "s1",
		WindowStart: time.Now().UTC().Truncate(5 * time.Minute),
		Interval:    5 * time.Minute,
		Metrics:     map[string]types.Aggregate{},
	}
	sum := &types.DailySummary{StationID: "s1", Date: "2024-06-01"}

	d.Archive(context.Background(), rec)
	d.Daily(context.Background(), sum)

	s.mu.Lock()
	defer s.mu.Unlock()
	require.Len(t, s.records, 1)
	require.Len(t, s.dailies, 1)
	assert.Equal(t, rec, s.records[0])
	assert.Equal(t, sum, s.dailies[0])
}

func TestConsumeDeliversObservations(t *testing.T) {
	s := &fakeSink{name: "a"}
	d := NewDispatcher(fastConfig(), zerolog.Nop(), s)

	require.NoError(t, d.Consume(context.Background(), testObservation()))
	assert.Equal(t, 1, s.observations())
}
