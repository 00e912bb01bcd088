package models

import (
	"time"

	"github.com/google/uuid"
)

// SubmissionEvent is the analytics record emitted for every score submission
// and for upstream anomalies, batch-inserted into ClickHouse by the worker
// pool.
type SubmissionEvent struct {
	EventID   uuid.UUID `json:"event_id"`
	Timestamp time.Time `json:"timestamp"`

	PlayerID   int64  `json:"player_id"`
	MachineTag string `json:"machine_tag"`
	SongHash   string `json:"song_hash"`

	ItgScore int `json:"itg_score"`
	ExScore  int `json:"ex_score"`

	Result         string `json:"result"`
	UpstreamStatus string `json:"upstream_status"`
	Source         string `json:"source"`

	// Anomaly is set for observability events (e.g. malformed upstream
	// responses) instead of the score fields.
	Anomaly string `json:"anomaly,omitempty"`
}
