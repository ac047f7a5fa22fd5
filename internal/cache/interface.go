// Package cache keeps the most recent observations per station in a fast
// store so the read API never has to touch the archive database for
// "what is it doing right now" queries.
package cache

import (
	"context"
	"fmt"

	"github.com/okairos/weatherd/pkg/types"
)

// ErrMiss is returned when the cache holds nothing for the station.
var ErrMiss = fmt.Errorf("cache miss")

// Cache is the latest-readings store. Entries are kept per station, ordered
// by observation timestamp, and expire on their own; the cache is a
// convenience layer and may lose data freely.
type Cache interface {
	// Store records one observation under its station.
	Store(ctx context.Context, obs *types.Observation) error

	// FetchLast retrieves up to n most recent observations for a station,
	// newest first. Returns ErrMiss when the station is unknown.
	FetchLast(ctx context.Context, stationID string, n int) ([]*types.Observation, error)

	// Ping checks cache connection
	Ping(ctx context.Context) error

	// Close gracefully closes any connections
	Close()
}
