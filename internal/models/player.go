package models

import "time"

// MaxRivals is the most rivals a player may track.
const MaxRivals = 3

// Player is the local identity behind an upstream credential. The raw
// credential is never stored; APIKey is a one-way derived key.
type Player struct {
	ID            int64               `json:"id"`
	APIKey        string              `json:"-"`
	MachineTag    string              `json:"machineTag"`
	Name          string              `json:"name,omitempty"`
	Source        LeaderboardSource   `json:"leaderboardSource"`
	Integration   UpstreamIntegration `json:"upstreamIntegration"`
	SyncProfile   bool                `json:"syncProfile"`
	NumScores     int                 `json:"numScores"`
	NumSongs      int                 `json:"numSongs"`
	OneStar       int                 `json:"oneStar"`
	TwoStars      int                 `json:"twoStars"`
	ThreeStars    int                 `json:"threeStars"`
	FourStars     int                 `json:"fourStars"`
	FiveStars     int                 `json:"fiveStars"`
	LatestScoreID int64               `json:"latestScoreId,omitempty"`
	CreatedAt     time.Time           `json:"createdAt"`
}

// DisplayName is the player's name if set, otherwise their machine tag.
func (p *Player) DisplayName() string {
	if p.Name != "" {
		return p.Name
	}
	return p.MachineTag
}

// PrefersUpstream reports whether reads should try the upstream service for
// this player.
func (p *Player) PrefersUpstream() bool {
	return p == nil || p.Source == SourceUpstream
}

// PreferredMetric is the metric used when composing locally for this player.
func (p *Player) PreferredMetric() Metric {
	if p == nil {
		return MetricItg
	}
	return p.Source.Metric()
}
