package models

import "time"

// MaxScoreValue is the inclusive upper bound for both metrics.
const MaxScoreValue = 10000

// Judgments is the optional per-judgment breakdown submitted with a score.
// Counters use the game client's field names.
type Judgments struct {
	FantasticPlus int `json:"fantasticPlus" validate:"gte=0"`
	Fantastic     int `json:"fantastic" validate:"gte=0"`
	Excellent     int `json:"excellent" validate:"gte=0"`
	Great         int `json:"great" validate:"gte=0"`
	Decent        int `json:"decent" validate:"gte=0"`
	WayOff        int `json:"wayOff" validate:"gte=0"`
	Miss          int `json:"miss" validate:"gte=0"`
	TotalSteps    int `json:"totalSteps" validate:"gte=0"`
	MinesHit      int `json:"minesHit" validate:"gte=0"`
	TotalMines    int `json:"totalMines" validate:"gte=0"`
	HoldsHeld     int `json:"holdsHeld" validate:"gte=0"`
	TotalHolds    int `json:"totalHolds" validate:"gte=0"`
	RollsHeld     int `json:"rollsHeld" validate:"gte=0"`
	TotalRolls    int `json:"totalRolls" validate:"gte=0"`
}

// ExScore computes the derived quality metric on the 0-10000 scale.
// Weights: fantastic+ 3.5, fantastic 3, excellent 2, great 1, each held
// hold/roll 1, each mine hit -1; divided by the theoretical maximum
// (totalSteps*3.5 + totalHolds + totalRolls), floored and clamped at 0.
func (j *Judgments) ExScore() int {
	if j == nil {
		return 0
	}
	possible := float64(j.TotalSteps)*3.5 + float64(j.TotalHolds) + float64(j.TotalRolls)
	if possible <= 0 {
		return 0
	}
	earned := float64(j.FantasticPlus)*3.5 +
		float64(j.Fantastic)*3 +
		float64(j.Excellent)*2 +
		float64(j.Great) +
		float64(j.HoldsHeld) +
		float64(j.RollsHeld) -
		float64(j.MinesHit)
	ex := int(earned / possible * MaxScoreValue)
	if ex < 0 {
		return 0
	}
	if ex > MaxScoreValue {
		return MaxScoreValue
	}
	return ex
}

// Score is an immutable-once-written submission fact. Only the two top flags
// and the upstream status ever change after insert.
type Score struct {
	ID           int64          `json:"id"`
	SongHash     string         `json:"songHash"`
	PlayerID     int64          `json:"playerId"`
	SubmittedAt  time.Time      `json:"submittedAt"`
	ItgScore     int            `json:"itgScore"`
	ExScore      int            `json:"exScore"`
	Comment      string         `json:"comment"`
	Rate         int            `json:"rate"`
	UsedCmod     bool           `json:"usedCmod"`
	HasJudgments bool           `json:"hasJudgments"`
	Judgments    Judgments      `json:"judgments"`
	IsItgTop     bool           `json:"isItgTop"`
	IsExTop      bool           `json:"isExTop"`
	Status       UpstreamStatus `json:"upstreamStatus"`

	// Denormalized for display; populated by queries that join players.
	PlayerName string `json:"-"`
	MachineTag string `json:"-"`
}

// Value returns the score under the given metric.
func (s *Score) Value(m Metric) int {
	if m == MetricEx {
		return s.ExScore
	}
	return s.ItgScore
}

// IsTop reports whether this score is the player's current best for its song
// under the given metric.
func (s *Score) IsTop(m Metric) bool {
	if m == MetricEx {
		return s.IsExTop
	}
	return s.IsItgTop
}

// DisplayName mirrors Player.DisplayName for joined rows.
func (s *Score) DisplayName() string {
	if s.PlayerName != "" {
		return s.PlayerName
	}
	return s.MachineTag
}
