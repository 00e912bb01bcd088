package logic

import "errors"

// Typed errors returned by the core services. Handlers are the only layer
// that maps these to HTTP statuses.
var (
	ErrPlayerNotFound = errors.New("player not found")
	ErrSongNotFound   = errors.New("song not found")
	ErrScoreNotFound  = errors.New("score not found")

	ErrInvalidScore = errors.New("score value out of range")
	ErrInvalidRate  = errors.New("rate out of range")

	ErrTooManyRivals = errors.New("a player can have at most 3 rivals")
	ErrSelfRival     = errors.New("a player cannot be their own rival")

	// ErrUpstreamRequired signals that a player's policy mandates upstream
	// confirmation and the upstream call failed; the whole submission aborts.
	ErrUpstreamRequired = errors.New("upstream submission required but unavailable")
)

// IsNotFound checks if an error is a managed not-found condition rather than
// a generic failure.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrPlayerNotFound) ||
		errors.Is(err, ErrSongNotFound) ||
		errors.Is(err, ErrScoreNotFound)
}
