package routes

import (
	"errors"
	"net/http"

	"github.com/okairos/weatherd/internal/cache"
	"github.com/okairos/weatherd/pkg/types"
)

// fetchLast reads recent observations cache-first, falling back to the
// archive store when the cache is cold or holds fewer entries than asked
// for. A cache miss is normal operation, not an error.
func (app *App) fetchLast(r *http.Request, station string, n int) ([]*types.Observation, error) {
	var cached []*types.Observation
	if app.Cache != nil {
		obs, err := app.Cache.FetchLast(r.Context(), station, n)
		if err != nil && !errors.Is(err, cache.ErrMiss) {
			app.logger.Warn().Err(err).Str("station", station).Msg("cache read failed")
		}
		cached = obs
		if len(cached) >= n {
			return cached, nil
		}
	}

	if app.Store == nil {
		// Cache-only deployment; serve whatever the cache had.
		return cached, nil
	}
	return app.Store.ReadObservations(r.Context(), station, n)
}
