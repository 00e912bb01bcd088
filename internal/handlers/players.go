package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// GetPlayer handles GET /api/v1/players/{id}
func (h *Handler) GetPlayer(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.errorResponse(w, http.StatusBadRequest, "Invalid player id")
		return
	}

	player, err := h.directory.GetByID(r.Context(), id)
	if err != nil {
		h.serviceError(w, err)
		return
	}

	summary := map[string]interface{}{
		"id":         player.ID,
		"machineTag": player.MachineTag,
		"name":       player.DisplayName(),
		"source":     player.Source.Label(),
		"numScores":  player.NumScores,
		"numSongs":   player.NumSongs,
		"stars": map[string]int{
			"one":   player.OneStar,
			"two":   player.TwoStars,
			"three": player.ThreeStars,
			"four":  player.FourStars,
			"five":  player.FiveStars,
		},
	}
	if player.LatestScoreID != 0 {
		if latest, err := h.ledger.GetScore(r.Context(), player.LatestScoreID); err == nil {
			summary["latestScore"] = latest
		}
	}
	h.jsonResponse(w, http.StatusOK, summary)
}

// GetPlayerLive handles GET /api/v1/players/{id}/live
func (h *Handler) GetPlayerLive(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.errorResponse(w, http.StatusBadRequest, "Invalid player id")
		return
	}

	player, err := h.directory.GetByID(r.Context(), id)
	if err != nil {
		h.serviceError(w, err)
		return
	}

	h.jsonResponse(w, http.StatusOK, map[string]interface{}{
		"id":   player.ID,
		"live": h.live.IsLive(r.Context(), player),
	})
}

type addRivalRequest struct {
	RivalID int64 `json:"rivalId" validate:"gt=0"`
}

// AddRival handles POST /api/v1/players/rivals
// Authenticated by the caller's own x-api-key header.
func (h *Handler) AddRival(w http.ResponseWriter, r *http.Request) {
	apiKey := r.Header.Get("x-api-key")
	if apiKey == "" {
		h.errorResponse(w, http.StatusUnauthorized, "Missing x-api-key header")
		return
	}

	player, err := h.directory.Lookup(r.Context(), apiKey)
	if err != nil {
		h.errorResponse(w, http.StatusUnauthorized, "Unknown api key")
		return
	}

	var req addRivalRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodySize)).Decode(&req); err != nil {
		h.errorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validator.Struct(&req); err != nil {
		h.errorResponse(w, http.StatusBadRequest, "Invalid rival id")
		return
	}

	if err := h.directory.AddRival(r.Context(), player, req.RivalID); err != nil {
		h.serviceError(w, err)
		return
	}

	rivals, err := h.directory.Rivals(r.Context(), player)
	if err != nil {
		h.serviceError(w, err)
		return
	}

	list := make([]map[string]interface{}, 0, len(rivals))
	for _, rival := range rivals {
		list = append(list, map[string]interface{}{
			"id":         rival.ID,
			"machineTag": rival.MachineTag,
			"name":       rival.DisplayName(),
		})
	}
	h.jsonResponse(w, http.StatusOK, map[string]interface{}{"rivals": list})
}
