package models

import "encoding/json"

// Result classification strings returned to game clients, matching the
// upstream service's vocabulary.
const (
	ResultAdded       = "score-added"
	ResultImproved    = "improved"
	ResultNotImproved = "score-not-improved"
)

// APIError is the fixed error body shape game clients expect.
type APIError struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// LeaderboardEntry is one row of a leaderboard as rendered to game clients
// and as received from the upstream service.
type LeaderboardEntry struct {
	Rank       int    `json:"rank"`
	Name       string `json:"name"`
	Score      int    `json:"score"`
	Date       string `json:"date"`
	IsSelf     bool   `json:"isSelf"`
	IsRival    bool   `json:"isRival"`
	IsFail     bool   `json:"isFail"`
	MachineTag string `json:"machineTag"`
}

// PlayerBoard is the per-player block of a leaderboard or submission
// response. Unknown keys (event-specific extension objects) survive a
// decode/encode round trip untouched via Extra.
type PlayerBoard struct {
	ChartHash   string                     `json:"chartHash"`
	IsRanked    bool                       `json:"isRanked"`
	Leaderboard []LeaderboardEntry         `json:"gsLeaderboard"`
	Result      string                     `json:"result,omitempty"`
	ScoreDelta  *int                       `json:"scoreDelta,omitempty"`
	Source      string                     `json:"sourceUsed,omitempty"`
	Extra       map[string]json.RawMessage `json:"-"`
}

func (b *PlayerBoard) MarshalJSON() ([]byte, error) {
	type alias PlayerBoard
	shadow := *(*alias)(b)
	if shadow.Leaderboard == nil {
		shadow.Leaderboard = []LeaderboardEntry{}
	}
	known, err := json.Marshal(&shadow)
	if err != nil {
		return nil, err
	}
	if len(b.Extra) == 0 {
		return known, nil
	}

	merged := make(map[string]json.RawMessage, len(b.Extra)+8)
	if err := json.Unmarshal(known, &merged); err != nil {
		return nil, err
	}
	for key, val := range b.Extra {
		if _, taken := merged[key]; taken {
			continue
		}
		merged[key] = val
	}
	return json.Marshal(merged)
}

func (b *PlayerBoard) UnmarshalJSON(data []byte) error {
	type alias PlayerBoard
	if err := json.Unmarshal(data, (*alias)(b)); err != nil {
		return err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for _, key := range []string{"chartHash", "isRanked", "gsLeaderboard", "result", "scoreDelta", "sourceUsed"} {
		delete(raw, key)
	}
	if len(raw) > 0 {
		b.Extra = raw
	}
	return nil
}

// PlayerQuery is one player's identifying parameters from a request: which
// cabinet side they are (1 or 2), the chart they played and their credential.
type PlayerQuery struct {
	Index     int
	ChartHash string
	APIKey    string
}

// BoardRequest is a parsed leaderboard-read request.
type BoardRequest struct {
	Queries    []PlayerQuery
	MaxResults int
}

// SubmitPayload is one player's score data from a submission body.
type SubmitPayload struct {
	Score     int        `json:"score" validate:"gte=0,lte=10000"`
	Comment   string     `json:"comment" validate:"max=200"`
	Rate      int        `json:"rate" validate:"gte=0,lte=500"`
	UsedCmod  *bool      `json:"usedCmod,omitempty"`
	Judgments *Judgments `json:"judgmentCounts,omitempty"`
}

// SubmitRequest is a parsed score-submission request. RawBody keeps the
// client's original JSON so the upstream forward is byte-identical.
type SubmitRequest struct {
	Queries    []PlayerQuery
	MaxResults int
	Payloads   map[int]*SubmitPayload
	RawBody    []byte
}

// Payload returns the body payload for a cabinet side, nil when absent.
func (r *SubmitRequest) Payload(index int) *SubmitPayload {
	if r.Payloads == nil {
		return nil
	}
	return r.Payloads[index]
}

// UpstreamResponse is a decoded response from the upstream service, keyed by
// cabinet side.
type UpstreamResponse struct {
	Players map[int]*PlayerBoard
}

// Empty reports whether the upstream returned nothing usable (the degrade
// sentinel for unavailable or malformed responses).
func (r *UpstreamResponse) Empty() bool {
	return r == nil || len(r.Players) == 0
}

// Player returns the upstream block for a cabinet side, nil when absent.
func (r *UpstreamResponse) Player(index int) *PlayerBoard {
	if r == nil {
		return nil
	}
	return r.Players[index]
}

func (r *UpstreamResponse) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	r.Players = make(map[int]*PlayerBoard, 2)
	for index, key := range map[int]string{1: "player1", 2: "player2"} {
		block, ok := raw[key]
		if !ok {
			continue
		}
		board := &PlayerBoard{}
		if err := json.Unmarshal(block, board); err != nil {
			return err
		}
		r.Players[index] = board
	}
	return nil
}
