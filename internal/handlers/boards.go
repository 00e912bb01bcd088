package handlers

import (
	"net/http"
	"strconv"

	"github.com/padstats/scores-api/internal/models"
)

// PlayerScores handles GET /player-scores.php
// Returns each queried player's single best entry for the chart, from their
// preferred leaderboard source.
func (h *Handler) PlayerScores(w http.ResponseWriter, r *http.Request) {
	queries, apiErr := parseQueries(r)
	if apiErr != nil {
		h.jsonResponse(w, http.StatusBadRequest, apiErr)
		return
	}

	boards, err := h.orchestrator.PlayerScores(r.Context(), &models.BoardRequest{Queries: queries})
	if err != nil {
		h.serviceError(w, err)
		return
	}
	h.gameBoards(w, boards)
}

// PlayerLeaderboards handles GET /player-leaderboards.php
// Like PlayerScores but windowed; maxLeaderboardResults is mandatory.
func (h *Handler) PlayerLeaderboards(w http.ResponseWriter, r *http.Request) {
	maxResults, ok := leaderboardLimit(r)
	if !ok {
		h.jsonResponse(w, http.StatusBadRequest, errMissingLimit)
		return
	}

	queries, apiErr := parseQueries(r)
	if apiErr != nil {
		h.jsonResponse(w, http.StatusBadRequest, apiErr)
		return
	}

	boards, err := h.orchestrator.PlayerLeaderboards(r.Context(), &models.BoardRequest{
		Queries:    queries,
		MaxResults: maxResults,
	})
	if err != nil {
		h.serviceError(w, err)
		return
	}
	h.gameBoards(w, boards)
}

func leaderboardLimit(r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("maxLeaderboardResults")
	if raw == "" {
		return 0, false
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return 0, false
	}
	return limit, true
}
