package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/padstats/scores-api/internal/logic"
	"github.com/padstats/scores-api/internal/models"
)

// SubmitScores handles POST /score-submit.php
// The raw body is retained so the upstream forward is byte-identical to what
// the game sent; the decoded payloads drive local recording.
func (h *Handler) SubmitScores(w http.ResponseWriter, r *http.Request) {
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

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodySize))
	if err != nil {
		h.errorResponse(w, http.StatusBadRequest, "Failed to read request body")
		return
	}

	payloads, err := h.parsePayloads(body, queries)
	if err != nil {
		h.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	boards, err := h.orchestrator.SubmitScores(r.Context(), &models.SubmitRequest{
		Queries:    queries,
		MaxResults: maxResults,
		Payloads:   payloads,
		RawBody:    body,
	})
	if err != nil {
		if errors.Is(err, logic.ErrUpstreamRequired) {
			h.jsonResponse(w, http.StatusGatewayTimeout, errUpstreamDead)
			return
		}
		h.serviceError(w, err)
		return
	}
	h.gameBoards(w, boards)
}

// parsePayloads decodes the player{n}-keyed submission body and validates
// every payload before anything is recorded. A queried side without a body
// block is rejected; the whole request fails atomically.
func (h *Handler) parsePayloads(body []byte, queries []models.PlayerQuery) (map[int]*models.SubmitPayload, error) {
	var decoded map[string]json.RawMessage
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("malformed submission body")
	}

	payloads := make(map[int]*models.SubmitPayload, len(queries))
	for _, query := range queries {
		block, ok := decoded[fmt.Sprintf("player%d", query.Index)]
		if !ok {
			return nil, fmt.Errorf("missing body for player%d", query.Index)
		}
		payload := &models.SubmitPayload{}
		if err := json.Unmarshal(block, payload); err != nil {
			return nil, fmt.Errorf("malformed body for player%d", query.Index)
		}
		if err := h.validator.Struct(payload); err != nil {
			return nil, fmt.Errorf("invalid score data for player%d", query.Index)
		}
		if payload.Judgments != nil {
			if err := h.validator.Struct(payload.Judgments); err != nil {
				return nil, fmt.Errorf("invalid judgment counts for player%d", query.Index)
			}
		}
		payloads[query.Index] = payload
	}
	return payloads, nil
}
