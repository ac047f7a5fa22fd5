// Package routes
package routes

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/okairos/weatherd/pkg/utils"
)

func (app *App) Mux() http.Handler {
	mux := http.NewServeMux()

	// health checks
	mux.HandleFunc("/healthz", healthHandler)
	mux.HandleFunc("/readyz", app.readyHandler)

	// metrics
	mux.Handle("/metrics", promhttp.Handler())

	// read API
	mux.HandleFunc("/api/v1/current", app.currentHandler)
	mux.HandleFunc("/api/v1/history", app.historyHandler)

	// station ingest
	mux.HandleFunc("/ingest/ecowitt", app.ecowittHandler)
	mux.HandleFunc("/data", app.ecowittHandler)
	mux.HandleFunc("/weatherstation/updateweatherstation.php", app.wundergroundHandler)

	return utils.WithCORS(mux)
}
