package logic

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/padstats/scores-api/internal/models"
)

const playerColumns = `id, api_key, machine_tag, name, leaderboard_source, upstream_integration,
	sync_profile, num_scores, num_songs, one_star, two_stars, three_stars, four_stars, five_stars,
	latest_score_id, created_at`

type playerDirectory struct {
	pg     PgPool
	logger *zap.SugaredLogger
}

func NewPlayerDirectory(pg PgPool, logger *zap.Logger) PlayerDirectory {
	return &playerDirectory{pg: pg, logger: logger.Sugar()}
}

// DeriveKey maps an upstream credential to the local storage key: sha256 of
// the credential's first 32 bytes, hex encoded. The raw credential is never
// persisted.
func DeriveKey(credential string) string {
	if len(credential) > 32 {
		credential = credential[:32]
	}
	sum := sha256.Sum256([]byte(credential))
	return hex.EncodeToString(sum[:])
}

// MachineTag derives the default display tag for a new player.
func MachineTag(key string) string {
	tag := key
	if len(tag) > 4 {
		tag = tag[:4]
	}
	return strings.ToUpper(tag)
}

func (d *playerDirectory) ResolveOrCreate(ctx context.Context, credential string) (*models.Player, error) {
	key := DeriveKey(credential)

	// Idempotent upsert: concurrent first-time submissions for the same
	// credential must yield exactly one row.
	_, err := d.pg.Exec(ctx, `
		INSERT INTO players (api_key, machine_tag, leaderboard_source, upstream_integration)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (api_key) DO NOTHING
	`, key, MachineTag(key), models.SourceUpstream, models.IntegrationTry)
	if err != nil {
		return nil, fmt.Errorf("create player: %w", err)
	}

	return d.getByKey(ctx, key)
}

func (d *playerDirectory) Lookup(ctx context.Context, credential string) (*models.Player, error) {
	return d.getByKey(ctx, DeriveKey(credential))
}

func (d *playerDirectory) getByKey(ctx context.Context, key string) (*models.Player, error) {
	row := d.pg.QueryRow(ctx,
		`SELECT `+playerColumns+` FROM players WHERE api_key = $1`, key)
	return scanPlayer(row)
}

func (d *playerDirectory) GetByID(ctx context.Context, id int64) (*models.Player, error) {
	row := d.pg.QueryRow(ctx,
		`SELECT `+playerColumns+` FROM players WHERE id = $1`, id)
	return scanPlayer(row)
}

func (d *playerDirectory) SyncIdentity(ctx context.Context, player *models.Player, board *models.PlayerBoard) error {
	if player == nil || !player.SyncProfile || board == nil {
		return nil
	}

	var self *models.LeaderboardEntry
	for i := range board.Leaderboard {
		if board.Leaderboard[i].IsSelf {
			self = &board.Leaderboard[i]
			break
		}
	}
	if self == nil {
		return nil
	}

	name := player.Name
	tag := player.MachineTag
	if self.Name != "" {
		name = self.Name
	}
	if self.MachineTag != "" {
		tag = self.MachineTag
	}
	if name == player.Name && tag == player.MachineTag {
		return nil
	}

	_, err := d.pg.Exec(ctx,
		`UPDATE players SET name = $2, machine_tag = $3 WHERE id = $1`,
		player.ID, nullIfEmpty(name), tag)
	if err != nil {
		return fmt.Errorf("sync identity for player %d: %w", player.ID, err)
	}

	d.logger.Infow("Synced player identity from upstream", "player", player.ID, "tag", tag)
	player.Name = name
	player.MachineTag = tag
	return nil
}

func (d *playerDirectory) AddRival(ctx context.Context, player *models.Player, rivalID int64) error {
	if rivalID == player.ID {
		return ErrSelfRival
	}
	if _, err := d.GetByID(ctx, rivalID); err != nil {
		return err
	}

	var count int
	err := d.pg.QueryRow(ctx,
		`SELECT count(*) FROM player_rivals WHERE player_id = $1`, player.ID).Scan(&count)
	if err != nil {
		return fmt.Errorf("count rivals: %w", err)
	}
	if count >= models.MaxRivals {
		return ErrTooManyRivals
	}

	_, err = d.pg.Exec(ctx, `
		INSERT INTO player_rivals (player_id, rival_id)
		VALUES ($1, $2)
		ON CONFLICT (player_id, rival_id) DO NOTHING
	`, player.ID, rivalID)
	if err != nil {
		return fmt.Errorf("add rival: %w", err)
	}
	return nil
}

func (d *playerDirectory) Rivals(ctx context.Context, player *models.Player) ([]*models.Player, error) {
	if player == nil {
		return nil, nil
	}

	rows, err := d.pg.Query(ctx, `
		SELECT `+playerColumns+` FROM players
		WHERE id IN (SELECT rival_id FROM player_rivals WHERE player_id = $1)
		ORDER BY id
	`, player.ID)
	if err != nil {
		return nil, fmt.Errorf("query rivals: %w", err)
	}
	defer rows.Close()

	var rivals []*models.Player
	for rows.Next() {
		rival, err := scanPlayerRow(rows)
		if err != nil {
			return nil, err
		}
		rivals = append(rivals, rival)
	}
	return rivals, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPlayer(row pgx.Row) (*models.Player, error) {
	p, err := scanPlayerRow(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrPlayerNotFound
	}
	return p, err
}

func scanPlayerRow(row rowScanner) (*models.Player, error) {
	var p models.Player
	var name *string
	var latestScore *int64
	err := row.Scan(
		&p.ID, &p.APIKey, &p.MachineTag, &name, &p.Source, &p.Integration,
		&p.SyncProfile, &p.NumScores, &p.NumSongs, &p.OneStar, &p.TwoStars,
		&p.ThreeStars, &p.FourStars, &p.FiveStars, &latestScore, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if name != nil {
		p.Name = *name
	}
	if latestScore != nil {
		p.LatestScoreID = *latestScore
	}
	return &p, nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
