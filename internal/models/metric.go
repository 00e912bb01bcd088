package models

// Metric selects which of the two independent scoring metrics an operation
// works with. ITG is the score value submitted by the game client; EX is
// derived locally from judgment counts.
type Metric int

const (
	MetricItg Metric = iota
	MetricEx
)

var metricLabels = map[Metric]string{
	MetricItg: "itg",
	MetricEx:  "ex",
}

func (m Metric) String() string {
	if label, ok := metricLabels[m]; ok {
		return label
	}
	return "unknown"
}

// LeaderboardSource is a player's configured preference for which leaderboard
// backs their in-game display.
type LeaderboardSource int16

const (
	SourceLocalItg LeaderboardSource = 1
	SourceUpstream LeaderboardSource = 2
	SourceLocalEx  LeaderboardSource = 3
)

var leaderboardSourceLabels = map[LeaderboardSource]string{
	SourceLocalItg: "local-itg",
	SourceUpstream: "upstream",
	SourceLocalEx:  "local-ex",
}

func (s LeaderboardSource) Label() string {
	if label, ok := leaderboardSourceLabels[s]; ok {
		return label
	}
	return "unknown"
}

// Metric maps the source preference to the metric used for local composition.
func (s LeaderboardSource) Metric() Metric {
	if s == SourceLocalEx {
		return MetricEx
	}
	return MetricItg
}

// UpstreamIntegration is a player's policy for forwarding submissions to the
// upstream leaderboard service.
type UpstreamIntegration int16

const (
	IntegrationRequire UpstreamIntegration = 1
	IntegrationTry     UpstreamIntegration = 2
	IntegrationSkip    UpstreamIntegration = 3
)

var integrationLabels = map[UpstreamIntegration]string{
	IntegrationRequire: "require",
	IntegrationTry:     "try",
	IntegrationSkip:    "skip",
}

func (i UpstreamIntegration) Label() string {
	if label, ok := integrationLabels[i]; ok {
		return label
	}
	return "unknown"
}

// UpstreamStatus records the outcome of forwarding a score upstream.
type UpstreamStatus int16

const (
	UpstreamOK UpstreamStatus = 1
	// UpstreamError marks a score that still needs resubmission; upstream may
	// or may not have accepted it.
	UpstreamError   UpstreamStatus = 2
	UpstreamSkipped UpstreamStatus = 3
)

var upstreamStatusLabels = map[UpstreamStatus]string{
	UpstreamOK:      "ok",
	UpstreamError:   "error",
	UpstreamSkipped: "skipped",
}

func (s UpstreamStatus) Label() string {
	if label, ok := upstreamStatusLabels[s]; ok {
		return label
	}
	return "unknown"
}
