package logic

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/padstats/scores-api/internal/models"
)

const scoreColumns = `s.id, s.song_hash, s.player_id, s.submitted_at, s.itg_score, s.ex_score,
	s.comment, s.rate, s.used_cmod, s.has_judgments,
	s.fantastic_plus, s.fantastic, s.excellent, s.great, s.decent, s.way_off, s.miss,
	s.total_steps, s.mines_hit, s.total_mines, s.holds_held, s.total_holds, s.rolls_held, s.total_rolls,
	s.is_itg_top, s.is_ex_top, s.upstream_status`

const songColumns = `hash, upstream_ranked, itg_highscore_id, ex_highscore_id, num_scores, num_players, created_at`

// cmodPattern matches the constant-speed marker in score comments, e.g.
// "C500, OtherMod". False positives are tolerated.
var cmodPattern = regexp.MustCompile(`C\d+`)

// InferCmod reports whether a comment suggests a constant-speed mod was used.
func InferCmod(comment string) bool {
	return cmodPattern.MatchString(comment)
}

// metricColumns returns the value and top-flag column names for a metric.
// Explicit mapping, never reflection; both names feed fmt.Sprintf'd SQL and
// must stay in this closed set.
func metricColumns(m models.Metric) (valueCol, topCol string) {
	if m == models.MetricEx {
		return "ex_score", "is_ex_top"
	}
	return "itg_score", "is_itg_top"
}

// Star tier thresholds over the ITG score. Tier 0 means no star.
func starTier(itgScore int) int {
	switch {
	case itgScore == 10000:
		return 4
	case itgScore >= 9900:
		return 3
	case itgScore >= 9800:
		return 2
	case itgScore >= 9600:
		return 1
	default:
		return 0
	}
}

// RecordRequest carries one score submission into the ledger.
type RecordRequest struct {
	SongHash  string
	Player    *models.Player
	ItgScore  int
	Comment   string
	Rate      int
	UsedCmod  *bool
	Judgments *models.Judgments
	Status    models.UpstreamStatus
}

// RecordResult is the outcome of a Record call, including the previous top
// snapshot used for result/delta classification.
type RecordResult struct {
	Score        *models.Score
	Song         *models.Song
	PrevItgTop   *models.Score
	PrevExTop    *models.Score
	FirstForSong bool
	Result       string
	Delta        int
}

type scoreLedger struct {
	pg     PgPool
	logger *zap.SugaredLogger
}

func NewScoreLedger(pg PgPool, logger *zap.Logger) ScoreLedger {
	return &scoreLedger{pg: pg, logger: logger.Sugar()}
}

// Record persists a score and all dependent bookkeeping in one transaction.
// The song row is locked first, which serializes top-flag and aggregate
// updates for that song; submissions for different songs do not contend.
func (l *scoreLedger) Record(ctx context.Context, req *RecordRequest) (*RecordResult, error) {
	if req.ItgScore < 0 || req.ItgScore > models.MaxScoreValue {
		return nil, fmt.Errorf("itg score %d: %w", req.ItgScore, ErrInvalidScore)
	}
	rate := req.Rate
	if rate == 0 {
		rate = 100
	}
	if rate < 0 || rate > 500 {
		return nil, fmt.Errorf("rate %d: %w", req.Rate, ErrInvalidRate)
	}

	usedCmod := InferCmod(req.Comment)
	if req.UsedCmod != nil {
		usedCmod = *req.UsedCmod
	}
	exScore := req.Judgments.ExScore()
	hasJudgments := req.Judgments != nil
	var judgments models.Judgments
	if hasJudgments {
		judgments = *req.Judgments
	}

	tx, err := l.pg.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin record: %w", err)
	}
	defer tx.Rollback(ctx)

	// Get-or-create is idempotent; the FOR UPDATE read then takes the
	// per-song serialization lock.
	if _, err := tx.Exec(ctx,
		`INSERT INTO songs (hash) VALUES ($1) ON CONFLICT (hash) DO NOTHING`, req.SongHash); err != nil {
		return nil, fmt.Errorf("ensure song: %w", err)
	}
	song, err := scanSong(tx.QueryRow(ctx,
		`SELECT `+songColumns+` FROM songs WHERE hash = $1 FOR UPDATE`, req.SongHash))
	if err != nil {
		return nil, fmt.Errorf("lock song %s: %w", req.SongHash, err)
	}

	prevItg, err := l.topInTx(ctx, tx, req.SongHash, req.Player.ID, models.MetricItg)
	if err != nil {
		return nil, err
	}
	prevEx, err := l.topInTx(ctx, tx, req.SongHash, req.Player.ID, models.MetricEx)
	if err != nil {
		return nil, err
	}

	// Strict improvement only; ties keep the existing top.
	newItgTop := prevItg == nil || prevItg.ItgScore < req.ItgScore
	newExTop := prevEx == nil || prevEx.ExScore < exScore

	if newItgTop && prevItg != nil {
		if _, err := tx.Exec(ctx,
			`UPDATE scores SET is_itg_top = false WHERE id = $1`, prevItg.ID); err != nil {
			return nil, fmt.Errorf("demote itg top: %w", err)
		}
	}
	if newExTop && prevEx != nil {
		if _, err := tx.Exec(ctx,
			`UPDATE scores SET is_ex_top = false WHERE id = $1`, prevEx.ID); err != nil {
			return nil, fmt.Errorf("demote ex top: %w", err)
		}
	}

	score := &models.Score{
		SongHash:     req.SongHash,
		PlayerID:     req.Player.ID,
		ItgScore:     req.ItgScore,
		ExScore:      exScore,
		Comment:      req.Comment,
		Rate:         rate,
		UsedCmod:     usedCmod,
		HasJudgments: hasJudgments,
		Judgments:    judgments,
		IsItgTop:     newItgTop,
		IsExTop:      newExTop,
		Status:       req.Status,
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO scores (
			song_hash, player_id, itg_score, ex_score, comment, rate, used_cmod, has_judgments,
			fantastic_plus, fantastic, excellent, great, decent, way_off, miss,
			total_steps, mines_hit, total_mines, holds_held, total_holds, rolls_held, total_rolls,
			is_itg_top, is_ex_top, upstream_status
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8,
			$9, $10, $11, $12, $13, $14, $15,
			$16, $17, $18, $19, $20, $21, $22,
			$23, $24, $25
		) RETURNING id, submitted_at
	`,
		score.SongHash, score.PlayerID, score.ItgScore, score.ExScore, score.Comment,
		score.Rate, score.UsedCmod, score.HasJudgments,
		judgments.FantasticPlus, judgments.Fantastic, judgments.Excellent, judgments.Great,
		judgments.Decent, judgments.WayOff, judgments.Miss,
		judgments.TotalSteps, judgments.MinesHit, judgments.TotalMines,
		judgments.HoldsHeld, judgments.TotalHolds, judgments.RollsHeld, judgments.TotalRolls,
		score.IsItgTop, score.IsExTop, score.Status,
	).Scan(&score.ID, &score.SubmittedAt)
	if err != nil {
		return nil, fmt.Errorf("insert score: %w", err)
	}

	if err := l.refreshSongAggregates(ctx, tx, song, score); err != nil {
		return nil, err
	}

	firstForSong := prevItg == nil
	deltas := starDeltas(newItgTop, req.ItgScore, prevItg, newExTop, exScore, prevEx)
	songIncrement := 0
	if firstForSong {
		songIncrement = 1
	}
	if _, err := tx.Exec(ctx, `
		UPDATE players SET
			latest_score_id = $2,
			num_scores = num_scores + 1,
			num_songs = num_songs + $3,
			one_star = one_star + $4,
			two_stars = two_stars + $5,
			three_stars = three_stars + $6,
			four_stars = four_stars + $7,
			five_stars = five_stars + $8
		WHERE id = $1
	`, req.Player.ID, score.ID, songIncrement,
		deltas[0], deltas[1], deltas[2], deltas[3], deltas[4]); err != nil {
		return nil, fmt.Errorf("update player counters: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit record: %w", err)
	}

	result, delta := classifyResult(req.ItgScore, prevItg)
	l.logger.Infow("Recorded score",
		"player", req.Player.ID, "song", req.SongHash,
		"itg", req.ItgScore, "ex", exScore, "result", result)

	return &RecordResult{
		Score:        score,
		Song:         song,
		PrevItgTop:   prevItg,
		PrevExTop:    prevEx,
		FirstForSong: firstForSong,
		Result:       result,
		Delta:        delta,
	}, nil
}

// classifyResult computes the client-facing result string and score delta
// from the previous top under the ITG metric.
func classifyResult(itgScore int, prevTop *models.Score) (string, int) {
	if prevTop == nil {
		return models.ResultAdded, itgScore
	}
	delta := itgScore - prevTop.ItgScore
	if delta > 0 {
		return models.ResultImproved, delta
	}
	return models.ResultNotImproved, delta
}

// starDeltas computes the per-tier counter adjustments for one Record call.
// Index 0-3 are the ITG tiers; index 4 is the permanent EX 10000 counter,
// which is never decremented.
func starDeltas(newItgTop bool, itgScore int, prevItg *models.Score, newExTop bool, exScore int, prevEx *models.Score) [5]int {
	var deltas [5]int

	if newItgTop {
		if tier := starTier(itgScore); tier != 0 {
			deltas[tier-1]++
		}
		if prevItg != nil {
			if tier := starTier(prevItg.ItgScore); tier != 0 {
				deltas[tier-1]--
			}
		}
	}

	if newExTop && exScore == models.MaxScoreValue {
		if prevEx == nil || prevEx.ExScore < models.MaxScoreValue {
			deltas[4]++
		}
	}

	return deltas
}

func (l *scoreLedger) refreshSongAggregates(ctx context.Context, tx pgx.Tx, song *models.Song, score *models.Score) error {
	itgHigh, err := l.bumpHighscore(ctx, tx, song.ItgHighscoreID, score, models.MetricItg)
	if err != nil {
		return err
	}
	exHigh, err := l.bumpHighscore(ctx, tx, song.ExHighscoreID, score, models.MetricEx)
	if err != nil {
		return err
	}

	// Exact recount inside the same transaction keeps aggregates correct at
	// write time.
	_, err = tx.Exec(ctx, `
		UPDATE songs SET
			itg_highscore_id = $2,
			ex_highscore_id = $3,
			num_scores = (SELECT count(*) FROM scores WHERE song_hash = $1),
			num_players = (SELECT count(DISTINCT player_id) FROM scores WHERE song_hash = $1)
		WHERE hash = $1
	`, song.Hash, nullIfZero(itgHigh), nullIfZero(exHigh))
	if err != nil {
		return fmt.Errorf("refresh song aggregates: %w", err)
	}

	song.ItgHighscoreID = itgHigh
	song.ExHighscoreID = exHigh
	return nil
}

// bumpHighscore decides whether the new score takes over a song highscore
// pointer. Exact ties keep the existing pointer (first writer wins).
func (l *scoreLedger) bumpHighscore(ctx context.Context, tx pgx.Tx, currentID int64, score *models.Score, m models.Metric) (int64, error) {
	if currentID == 0 {
		return score.ID, nil
	}
	valueCol, _ := metricColumns(m)
	var currentValue int
	err := tx.QueryRow(ctx,
		fmt.Sprintf(`SELECT %s FROM scores WHERE id = $1`, valueCol), currentID).Scan(&currentValue)
	if err != nil {
		return 0, fmt.Errorf("read %s highscore: %w", m, err)
	}
	if score.Value(m) > currentValue {
		return score.ID, nil
	}
	return currentID, nil
}

func (l *scoreLedger) topInTx(ctx context.Context, tx pgx.Tx, songHash string, playerID int64, m models.Metric) (*models.Score, error) {
	_, topCol := metricColumns(m)
	row := tx.QueryRow(ctx, fmt.Sprintf(`
		SELECT `+scoreColumns+` FROM scores s
		WHERE s.song_hash = $1 AND s.player_id = $2 AND s.%s
	`, topCol), songHash, playerID)

	score, err := scanScoreRow(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s top: %w", m, err)
	}
	return score, nil
}

func (l *scoreLedger) Rank(ctx context.Context, score *models.Score, metric models.Metric) (int, error) {
	valueCol, topCol := metricColumns(metric)
	var ahead int
	err := l.pg.QueryRow(ctx, fmt.Sprintf(`
		SELECT count(*) FROM scores s
		WHERE s.song_hash = $1 AND s.%s AND (
			s.%s > $2
			OR (s.%s = $2 AND s.submitted_at < $3)
			OR (s.%s = $2 AND s.submitted_at = $3 AND s.id < $4)
		)
	`, topCol, valueCol, valueCol, valueCol),
		score.SongHash, score.Value(metric), score.SubmittedAt, score.ID).Scan(&ahead)
	if err != nil {
		return 0, fmt.Errorf("rank: %w", err)
	}
	return ahead + 1, nil
}

func (l *scoreLedger) Highscore(ctx context.Context, songHash string, playerID int64, metric models.Metric) (*models.Score, error) {
	_, topCol := metricColumns(metric)
	row := l.pg.QueryRow(ctx, fmt.Sprintf(`
		SELECT `+scoreColumns+`, p.machine_tag, p.name
		FROM scores s JOIN players p ON p.id = s.player_id
		WHERE s.song_hash = $1 AND s.player_id = $2 AND s.%s
	`, topCol), songHash, playerID)

	score, err := scanJoinedScoreRow(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrScoreNotFound
	}
	return score, err
}

func (l *scoreLedger) GetSong(ctx context.Context, hash string) (*models.Song, error) {
	song, err := scanSong(l.pg.QueryRow(ctx,
		`SELECT `+songColumns+` FROM songs WHERE hash = $1`, hash))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrSongNotFound
	}
	return song, err
}

func (l *scoreLedger) GetScore(ctx context.Context, id int64) (*models.Score, error) {
	row := l.pg.QueryRow(ctx,
		`SELECT `+scoreColumns+` FROM scores s WHERE s.id = $1`, id)
	score, err := scanScoreRow(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrScoreNotFound
	}
	return score, err
}

func (l *scoreLedger) MarkSongRanked(ctx context.Context, hash string) error {
	_, err := l.pg.Exec(ctx, `
		INSERT INTO songs (hash, upstream_ranked) VALUES ($1, true)
		ON CONFLICT (hash) DO UPDATE SET upstream_ranked = true
	`, hash)
	if err != nil {
		return fmt.Errorf("mark song ranked: %w", err)
	}
	return nil
}

func scanSong(row pgx.Row) (*models.Song, error) {
	var s models.Song
	var itgHigh, exHigh *int64
	err := row.Scan(&s.Hash, &s.UpstreamRanked, &itgHigh, &exHigh, &s.NumScores, &s.NumPlayers, &s.CreatedAt)
	if err != nil {
		return nil, err
	}
	if itgHigh != nil {
		s.ItgHighscoreID = *itgHigh
	}
	if exHigh != nil {
		s.ExHighscoreID = *exHigh
	}
	return &s, nil
}

func scanScoreRow(row rowScanner) (*models.Score, error) {
	var s models.Score
	err := row.Scan(
		&s.ID, &s.SongHash, &s.PlayerID, &s.SubmittedAt, &s.ItgScore, &s.ExScore,
		&s.Comment, &s.Rate, &s.UsedCmod, &s.HasJudgments,
		&s.Judgments.FantasticPlus, &s.Judgments.Fantastic, &s.Judgments.Excellent,
		&s.Judgments.Great, &s.Judgments.Decent, &s.Judgments.WayOff, &s.Judgments.Miss,
		&s.Judgments.TotalSteps, &s.Judgments.MinesHit, &s.Judgments.TotalMines,
		&s.Judgments.HoldsHeld, &s.Judgments.TotalHolds, &s.Judgments.RollsHeld, &s.Judgments.TotalRolls,
		&s.IsItgTop, &s.IsExTop, &s.Status,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func scanJoinedScoreRow(row rowScanner) (*models.Score, error) {
	var s models.Score
	var name *string
	err := row.Scan(
		&s.ID, &s.SongHash, &s.PlayerID, &s.SubmittedAt, &s.ItgScore, &s.ExScore,
		&s.Comment, &s.Rate, &s.UsedCmod, &s.HasJudgments,
		&s.Judgments.FantasticPlus, &s.Judgments.Fantastic, &s.Judgments.Excellent,
		&s.Judgments.Great, &s.Judgments.Decent, &s.Judgments.WayOff, &s.Judgments.Miss,
		&s.Judgments.TotalSteps, &s.Judgments.MinesHit, &s.Judgments.TotalMines,
		&s.Judgments.HoldsHeld, &s.Judgments.TotalHolds, &s.Judgments.RollsHeld, &s.Judgments.TotalRolls,
		&s.IsItgTop, &s.IsExTop, &s.Status,
		&s.MachineTag, &name,
	)
	if err != nil {
		return nil, err
	}
	if name != nil {
		s.PlayerName = *name
	}
	return &s, nil
}

func nullIfZero(id int64) *int64 {
	if id == 0 {
		return nil
	}
	return &id
}
