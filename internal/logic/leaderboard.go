package logic

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/padstats/scores-api/internal/models"
)

// MaxLeaderboardWindow caps how many entries a single composed leaderboard
// may contain regardless of what the client asked for.
const MaxLeaderboardWindow = 50

const leaderboardDateFormat = "2006-01-02 15:04:05"

type leaderboardComposer struct {
	pg     PgPool
	logger *zap.SugaredLogger
}

func NewLeaderboardComposer(pg PgPool, logger *zap.Logger) LeaderboardComposer {
	return &leaderboardComposer{pg: pg, logger: logger.Sugar()}
}

// composedRow is one top-flagged score with its absolute position on the
// song's full leaderboard, before windowing.
type composedRow struct {
	scoreID    int64
	playerID   int64
	value      int
	at         time.Time
	name       string
	machineTag string
	position   int
}

// Compose builds the windowed leaderboard for one song and metric, seen from
// the viewer's perspective. The viewer's own top entry and their rivals' top
// entries are always included when present; remaining slots fill from the
// global top. Entries stay ordered by absolute position.
func (c *leaderboardComposer) Compose(ctx context.Context, songHash string, metric models.Metric, window int, viewer *models.Player) ([]models.LeaderboardEntry, error) {
	if window <= 0 || window > MaxLeaderboardWindow {
		window = MaxLeaderboardWindow
	}

	viewerID := int64(0)
	rivalIDs := map[int64]bool{}
	pinnedIDs := []int64{}
	if viewer != nil {
		viewerID = viewer.ID
		pinnedIDs = append(pinnedIDs, viewer.ID)
		rows, err := c.pg.Query(ctx,
			`SELECT rival_id FROM player_rivals WHERE player_id = $1`, viewer.ID)
		if err != nil {
			return nil, fmt.Errorf("load rivals: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var id int64
			if err := rows.Scan(&id); err != nil {
				return nil, fmt.Errorf("scan rival: %w", err)
			}
			rivalIDs[id] = true
			pinnedIDs = append(pinnedIDs, id)
		}
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("load rivals: %w", err)
		}
	}

	valueCol, topCol := metricColumns(metric)
	rows, err := c.pg.Query(ctx, fmt.Sprintf(`
		SELECT score_id, player_id, value, submitted_at, name, machine_tag, position FROM (
			SELECT s.id AS score_id, s.player_id, s.%s AS value, s.submitted_at,
				coalesce(p.name, '') AS name, p.machine_tag,
				row_number() OVER (ORDER BY s.%s DESC, s.submitted_at ASC, s.id ASC) AS position
			FROM scores s
			JOIN players p ON p.id = s.player_id
			WHERE s.song_hash = $1 AND s.%s
		) ranked
		WHERE position <= $2 OR player_id = ANY($3)
		ORDER BY position
	`, valueCol, valueCol, topCol), songHash, window, pinnedIDs)
	if err != nil {
		return nil, fmt.Errorf("compose leaderboard: %w", err)
	}
	defer rows.Close()

	var fetched []composedRow
	for rows.Next() {
		var r composedRow
		if err := rows.Scan(&r.scoreID, &r.playerID, &r.value, &r.at, &r.name, &r.machineTag, &r.position); err != nil {
			return nil, fmt.Errorf("scan leaderboard row: %w", err)
		}
		fetched = append(fetched, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("compose leaderboard: %w", err)
	}

	// Pinned entries first, then global fill, deduplicated by score id.
	used := map[int64]bool{}
	var picked []composedRow
	for _, r := range fetched {
		if r.playerID == viewerID || rivalIDs[r.playerID] {
			used[r.scoreID] = true
			picked = append(picked, r)
		}
	}
	for _, r := range fetched {
		if len(picked) >= window {
			break
		}
		if used[r.scoreID] {
			continue
		}
		used[r.scoreID] = true
		picked = append(picked, r)
	}

	sort.Slice(picked, func(i, j int) bool { return picked[i].position < picked[j].position })

	entries := make([]models.LeaderboardEntry, 0, len(picked))
	for _, r := range picked {
		name := r.name
		if name == "" {
			name = r.machineTag
		}
		entries = append(entries, models.LeaderboardEntry{
			Rank:       r.position,
			Name:       name,
			Score:      r.value,
			Date:       r.at.UTC().Format(leaderboardDateFormat),
			IsSelf:     viewer != nil && r.playerID == viewerID,
			IsRival:    rivalIDs[r.playerID],
			IsFail:     false,
			MachineTag: r.machineTag,
		})
	}
	return entries, nil
}
