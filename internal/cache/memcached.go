package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/okairos/weatherd/pkg/types"
)

var _ Cache = (*Memcached)(nil)

// Memcached is the single-value fallback driver. Memcached has no sorted
// structures, so it keeps only the latest observation per station; FetchLast
// returns at most one entry no matter what n is.
type Memcached struct {
	client  *memcache.Client
	metrics *CacheMetrics

	TTL time.Duration
}

func NewMemcached(addr string) *Memcached {
	client := memcache.New(addr)
	cm := NewCacheMetrics("memcached")
	return &Memcached{
		client:  client,
		metrics: cm,
		TTL:     time.Hour,
	}
}

func latestKey(stationID string) string {
	return "station:" + stationID + ":latest"
}

// call wraps a blocking client call with the context and a deadline; the
// memcache client has no context support of its own.
func (m *Memcached) call(ctx context.Context, fn func() error) error {
	done := make(chan error, 1)
	go func() { done <- fn() }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(100 * time.Millisecond):
		return context.DeadlineExceeded
	}
}

func (m *Memcached) Store(ctx context.Context, obs *types.Observation) error {
	ctx, span := otel.Tracer("weatherd-cache").Start(ctx, "cache.Store")
	defer span.End()

	span.SetAttributes(
		attribute.String("cache.driver", "memcached"),
		attribute.String("cache.station", obs.StationID),
	)

	b, err := json.Marshal(obs)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to marshal observation: %w", err)
	}

	start := time.Now()
	set := func() error {
		return m.client.Set(&memcache.Item{
			Key:        latestKey(obs.StationID),
			Value:      b,
			Expiration: int32(m.TTL.Seconds()),
		})
	}
	if err := m.call(ctx, set); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to store observation: %w", err)
	}
	m.metrics.RecordWrite(start)
	span.SetStatus(codes.Ok, "")

	return nil
}

func (m *Memcached) FetchLast(ctx context.Context, stationID string, n int) ([]*types.Observation, error) {
	ctx, span := otel.Tracer("weatherd-cache").Start(ctx, "cache.FetchLast")
	defer span.End()

	span.SetAttributes(
		attribute.String("cache.driver", "memcached"),
		attribute.String("cache.station", stationID),
	)

	start := time.Now()
	item, err := m.client.Get(latestKey(stationID))
	switch {
	case err == memcache.ErrCacheMiss:
		m.metrics.RecordMiss()
		span.SetAttributes(attribute.String("cache.result", "miss"))
		span.SetStatus(codes.Ok, "")
		return nil, ErrMiss
	case err != nil:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("cache fetch: %w", err)
	}

	var obs types.Observation
	if err := json.Unmarshal(item.Value, &obs); err != nil {
		return nil, fmt.Errorf("failed to parse cached observation: %w", err)
	}

	m.metrics.RecordHit(start)
	span.SetAttributes(attribute.String("cache.result", "hit"))
	span.SetStatus(codes.Ok, "")
	return []*types.Observation{&obs}, nil
}

func (m *Memcached) Ping(ctx context.Context) error {
	return m.call(ctx, m.client.Ping)
}

func (m *Memcached) Close() {
	m.client.Close()
}
