// Package sink delivers observations, archive records and daily summaries to
// the configured backends. Each backend implements Sink; the Dispatcher fans
// every unit out to all of them and keeps one backend's failure from touching
// the others.
package sink

import (
	"context"
	"fmt"

	"github.com/okairos/weatherd/pkg/types"
)

// ErrUnavailable marks a backend that cannot be reached at all, as opposed
// to a write that was attempted and failed.
var ErrUnavailable = fmt.Errorf("sink unavailable")

// Delivery kinds, used as metric labels.
const (
	KindObservation = "observation"
	KindArchive     = "archive"
	KindDaily       = "daily"
)

// Sink is one delivery backend. Writes must respect ctx: the dispatcher
// bounds every attempt with a timeout and retries on error. Daily writes are
// upserts keyed by (station, date); the same summary may arrive many times
// per day with growing content.
type Sink interface {
	Name() string
	WriteObservation(ctx context.Context, obs *types.Observation) error
	WriteArchive(ctx context.Context, rec *types.ArchiveRecord) error
	WriteDaily(ctx context.Context, sum *types.DailySummary) error
	Ping(ctx context.Context) error
	Close() error
}
