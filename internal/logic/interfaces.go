package logic

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/redis/go-redis/v9"

	"github.com/padstats/scores-api/internal/models"
)

// PgPool defines the interface for the PostgreSQL connection pool.
type PgPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// KVCache defines the Redis surface the live-check service needs: plain
// get/set with TTL.
type KVCache interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// PlayerDirectory resolves upstream credentials to local player identities.
type PlayerDirectory interface {
	// ResolveOrCreate returns the player for a credential, creating one on
	// first sight. Idempotent under concurrent first-time submissions.
	ResolveOrCreate(ctx context.Context, credential string) (*models.Player, error)
	// Lookup returns the player for a credential, or ErrPlayerNotFound.
	Lookup(ctx context.Context, credential string) (*models.Player, error)
	GetByID(ctx context.Context, id int64) (*models.Player, error)
	// SyncIdentity overwrites name/tag from an upstream self-entry when the
	// player opted in. Absent fields are left untouched.
	SyncIdentity(ctx context.Context, player *models.Player, board *models.PlayerBoard) error
	AddRival(ctx context.Context, player *models.Player, rivalID int64) error
	Rivals(ctx context.Context, player *models.Player) ([]*models.Player, error)
}

// ScoreLedger is the entity store and best-score bookkeeping engine.
type ScoreLedger interface {
	// Record durably persists a score and applies the top-flag, song
	// aggregate and player counter updates as one atomic unit.
	Record(ctx context.Context, req *RecordRequest) (*RecordResult, error)
	// Rank returns the 1-based position of a score among the song's current
	// top-flagged scores under the given metric.
	Rank(ctx context.Context, score *models.Score, metric models.Metric) (int, error)
	// Highscore returns a player's current top score for a song, or
	// ErrScoreNotFound.
	Highscore(ctx context.Context, songHash string, playerID int64, metric models.Metric) (*models.Score, error)
	GetSong(ctx context.Context, hash string) (*models.Song, error)
	GetScore(ctx context.Context, id int64) (*models.Score, error)
	// MarkSongRanked records that upstream confirmed tracking this chart.
	MarkSongRanked(ctx context.Context, hash string) error
}

// LeaderboardComposer computes ranked, windowed leaderboard views.
type LeaderboardComposer interface {
	Compose(ctx context.Context, songHash string, metric models.Metric, window int, viewer *models.Player) ([]models.LeaderboardEntry, error)
}

// UpstreamGateway talks to the external leaderboard service. Read calls
// degrade to an empty response on transport failure; the submit call returns
// an error only when the caller marked the request as required.
type UpstreamGateway interface {
	PlayerScores(ctx context.Context, queries []models.PlayerQuery) *models.UpstreamResponse
	PlayerLeaderboards(ctx context.Context, queries []models.PlayerQuery, maxResults int) *models.UpstreamResponse
	SubmitScores(ctx context.Context, queries []models.PlayerQuery, maxResults int, body []byte, required bool) (*models.UpstreamResponse, error)
}

// SubmissionOrchestrator is the per-request coordination layer behind the
// game-facing endpoints. Returned maps are keyed by cabinet side.
type SubmissionOrchestrator interface {
	PlayerScores(ctx context.Context, req *models.BoardRequest) (map[int]*models.PlayerBoard, error)
	PlayerLeaderboards(ctx context.Context, req *models.BoardRequest) (map[int]*models.PlayerBoard, error)
	// SubmitScores returns ErrUpstreamRequired when a player demands
	// upstream forwarding and the upstream cannot be reached; nothing is
	// recorded locally in that case.
	SubmitScores(ctx context.Context, req *models.SubmitRequest) (map[int]*models.PlayerBoard, error)
}

// EventQueue is the analytics ingestion side of the worker pool.
type EventQueue interface {
	Enqueue(event *models.SubmissionEvent) bool
	QueueDepth() int
}

// LiveProbe answers whether a player is currently streaming. Implementations
// talk to an external service; results are cached by LiveService.
type LiveProbe interface {
	IsLive(ctx context.Context, player *models.Player) (bool, error)
}
