package handlers

import "net/http"

// NewSession handles GET /new-session.php
// The game calls this once at startup to learn which services it may use.
// All three are always on; the proxy degrades internally when the upstream
// is unreachable.
func (h *Handler) NewSession(w http.ResponseWriter, r *http.Request) {
	h.jsonResponse(w, http.StatusOK, map[string]interface{}{
		"activeEvents":   []interface{}{},
		"servicesResult": "OK",
		"servicesAllowed": map[string]bool{
			"scoreSubmit":        true,
			"playerScores":       true,
			"playerLeaderboards": true,
		},
	})
}
