package routes

import (
	"net/http"
	"net/url"
	"time"

	"github.com/okairos/weatherd/internal/metrics"
	"github.com/okairos/weatherd/internal/protocol"
	"github.com/okairos/weatherd/pkg/utils"
)

// ingestValues extracts the station's key/value payload from either a GET
// query string or a POST form body; consumer firmware uses both.
func ingestValues(r *http.Request) (url.Values, error) {
	if r.Method == http.MethodPost {
		if err := r.ParseForm(); err != nil {
			return nil, err
		}
		return r.Form, nil
	}
	return r.URL.Query(), nil
}

// ingest runs one adapter over the request payload and offers the result to
// the pipeline. A payload that parses to nothing is discarded, not
// rejected: stations retry on error statuses and resubmitting garbage helps
// nobody.
func (app *App) ingest(r *http.Request, adapter protocol.Adapter) {
	start := time.Now()

	values, err := ingestValues(r)
	if err != nil {
		metrics.PayloadsRejectedTotal.WithLabelValues(adapter.Name()).Inc()
		return
	}

	obs, err := adapter.Parse(values, time.Now().UTC())
	if err != nil || obs == nil {
		return
	}
	metrics.IngestLatencySeconds.WithLabelValues(adapter.Name()).Observe(time.Since(start).Seconds())

	if err := app.Runtime.Offer(r.Context(), obs); err != nil {
		app.logger.Debug().
			Str("adapter", adapter.Name()).
			Str("station", obs.StationID).
			Msg("observation not queued")
	}
}

func (app *App) ecowittHandler(w http.ResponseWriter, r *http.Request) {
	app.ingest(r, app.ecowitt)
	utils.ReplyJSON(w, http.StatusOK, utils.Body{
		"status": "ok",
	})
}

// wundergroundHandler speaks the updateweatherstation.php convention: the
// station expects a bare "success" body, anything else makes it resend.
func (app *App) wundergroundHandler(w http.ResponseWriter, r *http.Request) {
	app.ingest(r, app.wunderground)
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("success\n"))
}
