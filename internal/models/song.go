package models

import "time"

// Song is an external chart identity plus locally maintained aggregates.
// At most one Song exists per hash.
type Song struct {
	Hash           string    `json:"hash"`
	UpstreamRanked bool      `json:"upstreamRanked"`
	ItgHighscoreID int64     `json:"itgHighscoreId,omitempty"`
	ExHighscoreID  int64     `json:"exHighscoreId,omitempty"`
	NumScores      int       `json:"numScores"`
	NumPlayers     int       `json:"numPlayers"`
	CreatedAt      time.Time `json:"createdAt"`
}

// HighscoreID returns the current best-score pointer under the given metric.
func (s *Song) HighscoreID(m Metric) int64 {
	if m == MetricEx {
		return s.ExHighscoreID
	}
	return s.ItgHighscoreID
}
