package routes

import (
	"net/http"
	"strconv"

	"github.com/okairos/weatherd/pkg/utils"
)

const (
	defaultHistoryLimit = 100
	maxHistoryLimit     = 1000
)

func healthHandler(w http.ResponseWriter, r *http.Request) {
	utils.ReplyJSON(w, http.StatusOK, utils.Body{
		"state": "healthy",
	})
}

func (app *App) readyHandler(w http.ResponseWriter, r *http.Request) {
	if !app.ready.Load() {
		utils.ReplyJSON(w, http.StatusServiceUnavailable, utils.Body{
			"state": "starting",
		})
		return
	}
	utils.ReplyJSON(w, http.StatusOK, utils.Body{
		"state": "ready",
	})
}

func (app *App) currentHandler(w http.ResponseWriter, r *http.Request) {
	station := r.URL.Query().Get("station")
	if station == "" {
		utils.ReplyBadRequest(w, "missing station")
		return
	}

	obs, err := app.fetchLast(r, station, 1)
	if err != nil {
		utils.ReplyInternalServerError(w, err.Error())
		return
	}
	if len(obs) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	utils.ReplyJSON(w, http.StatusOK, utils.Body{
		"data": obs[0],
	})
}

func (app *App) historyHandler(w http.ResponseWriter, r *http.Request) {
	station := r.URL.Query().Get("station")
	if station == "" {
		utils.ReplyBadRequest(w, "missing station")
		return
	}

	limit := defaultHistoryLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			utils.ReplyBadRequest(w, "invalid limit")
			return
		}
		limit = n
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	obs, err := app.fetchLast(r, station, limit)
	if err != nil {
		utils.ReplyInternalServerError(w, err.Error())
		return
	}
	if len(obs) == 0 {
		utils.ReplyNotFound(w, "no observations found")
		return
	}
	utils.ReplyJSON(w, http.StatusOK, utils.Body{
		"data": obs,
	})
}
