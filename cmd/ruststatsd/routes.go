package main

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"ruststats-backend/lib/scrapers/ruststats"
	"ruststats-backend/lib/statstore"
	"ruststats-backend/services/tracker"
)

func writeJson(w http.ResponseWriter, status int, body any) {
	w.Header().Set("content-type", "application/json")
	w.WriteHeader(status)
	err := json.NewEncoder(w).Encode(body)
	if err != nil {
		slog.Warn("failed to encode response", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJson(w, status, map[string]string{"error": err.Error()})
}

func readJson[T any](w http.ResponseWriter, r *http.Request) (T, bool) {
	var body T
	err := json.NewDecoder(r.Body).Decode(&body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return body, false
	}
	return body, true
}

func RegisterRoutes(mux *http.ServeMux, service *tracker.Service) {
	mux.HandleFunc("GET /servers", func(w http.ResponseWriter, r *http.Request) {
		writeJson(w, http.StatusOK, service.Servers())
	})

	mux.HandleFunc("POST /refresh", func(w http.ResponseWriter, r *http.Request) {
		strategy := ruststats.StrategyPerTab
		if r.URL.Query().Get("strategy") == string(ruststats.StrategyPerPlayer) {
			strategy = ruststats.StrategyPerPlayer
		}

		res, err := service.Refresh(r.Context(), r.URL.Query().Get("server"), strategy, nil)
		if errors.Is(err, tracker.ErrScrapeInFlight) {
			writeError(w, http.StatusConflict, err)
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJson(w, http.StatusOK, res)
	})

	mux.HandleFunc("GET /view", func(w http.ResponseWriter, r *http.Request) {
		writeJson(w, http.StatusOK, service.View(r.Context(), r.URL.Query().Get("server")))
	})

	mux.HandleFunc("GET /history", func(w http.ResponseWriter, r *http.Request) {
		series, err := service.History(r.Context(), r.URL.Query().Get("server"), r.URL.Query().Get("player"))
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJson(w, http.StatusOK, series)
	})

	mux.HandleFunc("GET /roster", func(w http.ResponseWriter, r *http.Request) {
		writeJson(w, http.StatusOK, service.Roster(r.Context()))
	})

	mux.HandleFunc("POST /roster/add", func(w http.ResponseWriter, r *http.Request) {
		body, ok := readJson[struct {
			Player string `json:"player"`
		}](w, r)
		if !ok {
			return
		}
		player, err := service.AddPlayer(r.Context(), body.Player)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		writeJson(w, http.StatusOK, player)
	})

	mux.HandleFunc("POST /roster/remove", func(w http.ResponseWriter, r *http.Request) {
		body, ok := readJson[statstore.Player](w, r)
		if !ok {
			return
		}
		err := service.RemovePlayer(r.Context(), body)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJson(w, http.StatusOK, service.Roster(r.Context()))
	})

	mux.HandleFunc("POST /roster/rename", func(w http.ResponseWriter, r *http.Request) {
		body, ok := readJson[struct {
			statstore.Player
			NewName string `json:"newName"`
		}](w, r)
		if !ok {
			return
		}
		err := service.RenamePlayer(r.Context(), body.Player, body.NewName)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		writeJson(w, http.StatusOK, service.Roster(r.Context()))
	})

	mux.HandleFunc("POST /roster/reorder", func(w http.ResponseWriter, r *http.Request) {
		body, ok := readJson[[]statstore.Player](w, r)
		if !ok {
			return
		}
		roster, err := service.ReorderRoster(r.Context(), body)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJson(w, http.StatusOK, roster)
	})
}
