// Package utils
package utils

import (
	"encoding/json"
	"net/http"
)

type Body map[string]any

func ReplyJSON(w http.ResponseWriter, status int, body map[string]any) error {
	w.Header().Add("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(body)
}

func ReplyBadRequest(w http.ResponseWriter, msg string) {
	ReplyJSON(w, http.StatusBadRequest, Body{
		"error": msg,
	})
}

func ReplyNotFound(w http.ResponseWriter, msg string) {
	ReplyJSON(w, http.StatusNotFound, Body{
		"error": msg,
	})
}

func ReplyInternalServerError(w http.ResponseWriter, msg string) {
	ReplyJSON(w, http.StatusInternalServerError, Body{
		"error": msg,
	})
}

func WithCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
