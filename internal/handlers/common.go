package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/padstats/scores-api/internal/logic"
	"github.com/padstats/scores-api/internal/models"
)

// Fixed error bodies the game client pattern-matches on. The exact message
// and error strings are part of the wire contract.
var (
	errMissingCharts = models.APIError{
		Message: "Something went wrong.",
		Error:   "Required query parameter 'chartHashP1' or 'chartHashP2' not found.",
	}
	errMissingAPIKeys = models.APIError{
		Message: "Something went wrong.",
		Error:   "Header 'x-api-key-player-1' or 'x-api-key-player-2' not found.",
	}
	errMissingLimit = models.APIError{
		Message: "Something went wrong.",
		Error:   "maxLeaderboardResults parameter has not been set.",
	}
	errUpstreamDead = models.APIError{
		Message: "Something went wrong.",
		Error:   "Couldn't contact the scoring service.",
	}
)

// Health check endpoint
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.jsonResponse(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
	})
}

// Ready check endpoint
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	checks := map[string]bool{
		"postgres":   h.pg.Ping(ctx) == nil,
		"clickhouse": h.ch.Ping(ctx) == nil,
		"redis":      h.redis.Ping(ctx).Err() == nil,
	}

	allHealthy := true
	for _, ok := range checks {
		if !ok {
			allHealthy = false
			break
		}
	}

	status := http.StatusOK
	if !allHealthy {
		status = http.StatusServiceUnavailable
	}
	h.jsonResponse(w, status, map[string]interface{}{
		"ready":      allHealthy,
		"checks":     checks,
		"queueDepth": h.pool.QueueDepth(),
	})
}

func (h *Handler) jsonResponse(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (h *Handler) errorResponse(w http.ResponseWriter, status int, message string) {
	h.jsonResponse(w, status, map[string]string{"error": message})
}

// serviceError maps domain errors to HTTP responses for the management API.
func (h *Handler) serviceError(w http.ResponseWriter, err error) {
	switch {
	case logic.IsNotFound(err):
		h.errorResponse(w, http.StatusNotFound, err.Error())
	case errors.Is(err, logic.ErrInvalidScore),
		errors.Is(err, logic.ErrInvalidRate),
		errors.Is(err, logic.ErrTooManyRivals),
		errors.Is(err, logic.ErrSelfRival):
		h.errorResponse(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Errorw("Request failed", "error", err)
		h.errorResponse(w, http.StatusInternalServerError, "internal error")
	}
}

// gameBoards writes the player{n}-keyed response shape the game expects.
func (h *Handler) gameBoards(w http.ResponseWriter, boards map[int]*models.PlayerBoard) {
	response := make(map[string]*models.PlayerBoard, len(boards))
	if board, ok := boards[1]; ok {
		response["player1"] = board
	}
	if board, ok := boards[2]; ok {
		response["player2"] = board
	}
	h.jsonResponse(w, http.StatusOK, response)
}

// parseQueries extracts the per-side chart hashes and credentials from a
// game request. A side missing either value is dropped; an APIError is
// returned when no usable side remains.
func parseQueries(r *http.Request) ([]models.PlayerQuery, *models.APIError) {
	hashes := map[int]string{
		1: r.URL.Query().Get("chartHashP1"),
		2: r.URL.Query().Get("chartHashP2"),
	}
	keys := map[int]string{
		1: r.Header.Get("x-api-key-player-1"),
		2: r.Header.Get("x-api-key-player-2"),
	}

	if hashes[1] == "" && hashes[2] == "" {
		return nil, &errMissingCharts
	}
	if keys[1] == "" && keys[2] == "" {
		return nil, &errMissingAPIKeys
	}

	var queries []models.PlayerQuery
	for _, index := range []int{1, 2} {
		if hashes[index] == "" || keys[index] == "" {
			continue
		}
		queries = append(queries, models.PlayerQuery{
			Index:     index,
			ChartHash: hashes[index],
			APIKey:    keys[index],
		})
	}
	if len(queries) == 0 {
		return nil, &errMissingCharts
	}
	return queries, nil
}
