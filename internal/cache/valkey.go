package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/okairos/weatherd/pkg/types"
)

var _ Cache = (*Valkey)(nil)

// Valkey keeps each station's recent observations in a ZSET scored by
// observation timestamp. Entries expire an hour after the last write and the
// set is trimmed on every store, so an abandoned station costs nothing.
type Valkey struct {
	client  *redis.ClusterClient
	metrics *CacheMetrics

	// Keep is how many observations survive the per-store trim.
	Keep int64
	TTL  time.Duration
}

func NewValkey(addrs []string) *Valkey {
	opts := &redis.ClusterOptions{Addrs: addrs}
	client := redis.NewClusterClient(opts)
	client.Options().DialTimeout = 2 * time.Second
	cm := NewCacheMetrics("valkey")
	return &Valkey{
		client:  client,
		metrics: cm,
		Keep:    1000,
		TTL:     time.Hour,
	}
}

func stationKey(stationID string) string {
	return "station:" + stationID + ":observations"
}

func (v *Valkey) Store(ctx context.Context, obs *types.Observation) error {
	ctx, span := otel.Tracer("weatherd-cache").Start(ctx, "cache.Store")
	defer span.End()

	span.SetAttributes(
		attribute.String("cache.driver", "valkey"),
		attribute.String("cache.station", obs.StationID),
	)

	ctx, cancel := context.WithTimeout(ctx, 200*time.Millisecond)
	defer cancel()

	b, err := json.Marshal(obs)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to marshal observation: %w", err)
	}

	key := stationKey(obs.StationID)
	start := time.Now()

	pipe := v.client.Pipeline()
	pipe.ZAdd(ctx, key, redis.Z{
		Score:  float64(obs.Timestamp.UnixMilli()),
		Member: b,
	})
	pipe.ZRemRangeByRank(ctx, key, 0, -(v.Keep + 1))
	pipe.Expire(ctx, key, v.TTL)
	if _, err := pipe.Exec(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to store observation: %w", err)
	}

	v.metrics.RecordWrite(start)
	span.SetStatus(codes.Ok, "")
	return nil
}

func (v *Valkey) FetchLast(ctx context.Context, stationID string, n int) ([]*types.Observation, error) {
	ctx, span := otel.Tracer("weatherd-cache").Start(ctx, "cache.FetchLast")
	defer span.End()

	span.SetAttributes(
		attribute.String("cache.driver", "valkey"),
		attribute.String("cache.station", stationID),
		attribute.Int("cache.n", n),
	)

	ctx, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	entries, err := v.client.ZRevRange(ctx, stationKey(stationID), 0, int64(n-1)).Result()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("cache fetch: %w", err)
	}
	if len(entries) == 0 {
		v.metrics.RecordMiss()
		span.SetAttributes(attribute.String("cache.result", "miss"))
		span.SetStatus(codes.Ok, "")
		return nil, ErrMiss
	}

	ret := make([]*types.Observation, 0, len(entries))
	for _, e := range entries {
		var obs types.Observation
		if err := json.Unmarshal([]byte(e), &obs); err != nil {
			return nil, fmt.Errorf("failed to parse cached observation: %w", err)
		}
		ret = append(ret, &obs)
	}

	v.metrics.RecordHit(start)
	span.SetAttributes(attribute.String("cache.result", "hit"))
	span.SetStatus(codes.Ok, "")
	return ret, nil
}

func (v *Valkey) Ping(ctx context.Context) error {
	return v.client.Ping(ctx).Err()
}

func (v *Valkey) Close() {
	v.client.Close()
}
