package routes

import (
	"context"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/okairos/weatherd/internal/cache"
	"github.com/okairos/weatherd/internal/pipeline"
	"github.com/okairos/weatherd/internal/protocol"
	"github.com/okairos/weatherd/pkg/types"
)

// HistoryStore is the archive-side read path behind the cache. Nil-able:
// without a store the API serves from cache alone.
type HistoryStore interface {
	ReadObservations(ctx context.Context, stationID string, limit int) ([]*types.Observation, error)
}

type App struct {
	Store   HistoryStore
	Cache   cache.Cache
	Runtime *pipeline.Runtime
	logger  zerolog.Logger

	ecowitt      protocol.Adapter
	wunderground protocol.Adapter
	ready        atomic.Bool
}

func New(store HistoryStore, c cache.Cache, rt *pipeline.Runtime, logger zerolog.Logger) *App {
	return &App{
		Store:        store,
		Cache:        c,
		Runtime:      rt,
		logger:       logger.With().Str("component", "http").Logger(),
		ecowitt:      protocol.NewEcowittAdapter(protocol.Options{}),
		wunderground: protocol.NewWundergroundAdapter(protocol.Options{}),
	}
}

// SetReady flips the readiness probe once the pipeline is running.
func (app *App) SetReady() {
	app.ready.Store(true)
}
