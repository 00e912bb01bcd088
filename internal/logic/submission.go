package logic

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/padstats/scores-api/internal/models"
)

const sourceUpstreamLabel = "upstream"

type submissionOrchestrator struct {
	directory PlayerDirectory
	ledger    ScoreLedger
	composer  LeaderboardComposer
	gateway   UpstreamGateway
	events    EventQueue
	logger    *zap.SugaredLogger
}

func NewSubmissionOrchestrator(
	directory PlayerDirectory,
	ledger ScoreLedger,
	composer LeaderboardComposer,
	gateway UpstreamGateway,
	events EventQueue,
	logger *zap.Logger,
) SubmissionOrchestrator {
	return &submissionOrchestrator{
		directory: directory,
		ledger:    ledger,
		composer:  composer,
		gateway:   gateway,
		events:    events,
		logger:    logger.Sugar(),
	}
}

// PlayerScores answers the single-entry personal-best view each cabinet side
// shows during song selection.
func (o *submissionOrchestrator) PlayerScores(ctx context.Context, req *models.BoardRequest) (map[int]*models.PlayerBoard, error) {
	return o.readBoards(ctx, req.Queries, 1, func(ctx context.Context, queries []models.PlayerQuery) *models.UpstreamResponse {
		return o.gateway.PlayerScores(ctx, queries)
	})
}

// PlayerLeaderboards answers the full windowed leaderboard view.
func (o *submissionOrchestrator) PlayerLeaderboards(ctx context.Context, req *models.BoardRequest) (map[int]*models.PlayerBoard, error) {
	window := req.MaxResults
	return o.readBoards(ctx, req.Queries, window, func(ctx context.Context, queries []models.PlayerQuery) *models.UpstreamResponse {
		return o.gateway.PlayerLeaderboards(ctx, queries, window)
	})
}

// readBoards resolves the queried players first, so the upstream call only
// carries the sides whose preference is upstream and is skipped entirely when
// none remain. Board composition then runs concurrently per side.
func (o *submissionOrchestrator) readBoards(
	ctx context.Context,
	queries []models.PlayerQuery,
	window int,
	fetch func(ctx context.Context, queries []models.PlayerQuery) *models.UpstreamResponse,
) (map[int]*models.PlayerBoard, error) {
	players := make(map[int]*models.Player, len(queries))
	for _, query := range queries {
		player, err := o.directory.ResolveOrCreate(ctx, query.APIKey)
		if err != nil {
			return nil, err
		}
		players[query.Index] = player
	}

	var upstreamQueries []models.PlayerQuery
	for _, query := range queries {
		if players[query.Index].PrefersUpstream() {
			upstreamQueries = append(upstreamQueries, query)
		}
	}
	var upstream *models.UpstreamResponse
	if len(upstreamQueries) > 0 {
		upstream = fetch(ctx, upstreamQueries)
	}

	boards := make(map[int]*models.PlayerBoard, len(queries))
	var mu sync.Mutex

	group, gctx := errgroup.WithContext(ctx)
	for _, query := range queries {
		query := query
		group.Go(func() error {
			player := players[query.Index]
			upstreamBoard := upstream.Player(query.Index)
			o.absorbUpstream(gctx, player, upstreamBoard)

			board, err := o.boardFor(gctx, player, query, window, upstreamBoard)
			if err != nil {
				return err
			}

			mu.Lock()
			boards[query.Index] = board
			mu.Unlock()
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return boards, nil
}

// SubmitScores is the submission pipeline: forward upstream first, then
// record locally, then answer each side from its preferred source. A player
// on the require policy fails the whole request when the upstream is down,
// before anything is written.
func (o *submissionOrchestrator) SubmitScores(ctx context.Context, req *models.SubmitRequest) (map[int]*models.PlayerBoard, error) {
	players := make(map[int]*models.Player, len(req.Queries))
	for _, query := range req.Queries {
		player, err := o.directory.ResolveOrCreate(ctx, query.APIKey)
		if err != nil {
			return nil, err
		}
		players[query.Index] = player
	}

	forward, required := forwardPolicy(players)
	var upstream *models.UpstreamResponse
	if forward {
		var err error
		upstream, err = o.gateway.SubmitScores(ctx, req.Queries, req.MaxResults, req.RawBody, required)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUpstreamRequired, err)
		}
	}

	boards := make(map[int]*models.PlayerBoard, len(req.Queries))
	for _, query := range req.Queries {
		player := players[query.Index]
		payload := req.Payload(query.Index)
		if payload == nil {
			continue
		}

		upstreamBoard := upstream.Player(query.Index)
		o.absorbUpstream(ctx, player, upstreamBoard)

		recorded, err := o.ledger.Record(ctx, &RecordRequest{
			SongHash:  query.ChartHash,
			Player:    player,
			ItgScore:  payload.Score,
			Comment:   payload.Comment,
			Rate:      payload.Rate,
			UsedCmod:  payload.UsedCmod,
			Judgments: payload.Judgments,
			Status:    upstreamStatus(player, upstreamBoard),
		})
		if err != nil {
			return nil, err
		}

		board, err := o.boardFor(ctx, player, query, req.MaxResults, upstreamBoard)
		if err != nil {
			return nil, err
		}
		if board != upstreamBoard {
			delta := recorded.Delta
			board.Result = recorded.Result
			board.ScoreDelta = &delta
		}
		boards[query.Index] = board

		o.publishEvent(player, query, recorded, upstreamBoard, board)
	}
	return boards, nil
}

// boardFor builds one side's response block. Upstream-preferring players get
// the upstream block passed through, but only when upstream actually ranks
// the chart; unranked charts and everyone else get a locally composed board
// with any upstream extension blocks re-attached.
func (o *submissionOrchestrator) boardFor(ctx context.Context, player *models.Player, query models.PlayerQuery, window int, upstream *models.PlayerBoard) (*models.PlayerBoard, error) {
	if player.PrefersUpstream() && upstream != nil && upstream.IsRanked {
		upstream.Source = sourceUpstreamLabel
		return upstream, nil
	}

	metric := player.PreferredMetric()
	entries, err := o.composer.Compose(ctx, query.ChartHash, metric, window, player)
	if err != nil {
		return nil, err
	}
	board := &models.PlayerBoard{
		ChartHash:   query.ChartHash,
		IsRanked:    true,
		Leaderboard: entries,
		Source:      localSourceLabel(metric),
	}
	if upstream != nil {
		board.Extra = upstream.Extra
	}
	return board, nil
}

// localSourceLabel names the local board variant serving a metric, used when
// a board is composed here rather than passed through.
func localSourceLabel(m models.Metric) string {
	if m == models.MetricEx {
		return models.SourceLocalEx.Label()
	}
	return models.SourceLocalItg.Label()
}

// absorbUpstream applies the side effects an upstream block carries: chart
// tracking confirmation and opt-in identity sync.
func (o *submissionOrchestrator) absorbUpstream(ctx context.Context, player *models.Player, board *models.PlayerBoard) {
	if board == nil {
		return
	}
	if board.IsRanked && board.ChartHash != "" {
		if err := o.ledger.MarkSongRanked(ctx, board.ChartHash); err != nil {
			o.logger.Warnw("Failed to mark song ranked", "song", board.ChartHash, "error", err)
		}
	}
	if err := o.directory.SyncIdentity(ctx, player, board); err != nil {
		o.logger.Warnw("Failed to sync player identity", "player", player.ID, "error", err)
	}
}

// forwardPolicy aggregates the per-player integration policies into one
// request-level decision: forward unless everyone opted out, and treat the
// forward as mandatory when anyone requires it.
func forwardPolicy(players map[int]*models.Player) (forward, required bool) {
	for _, player := range players {
		switch player.Integration {
		case models.IntegrationRequire:
			required = true
			forward = true
		case models.IntegrationTry:
			forward = true
		}
	}
	return forward, required
}

// upstreamStatus classifies what happened to this player's upstream forward.
// A missing block after an attempted forward means the score still needs
// resubmission.
func upstreamStatus(player *models.Player, board *models.PlayerBoard) models.UpstreamStatus {
	if player.Integration == models.IntegrationSkip {
		return models.UpstreamSkipped
	}
	if board == nil {
		return models.UpstreamError
	}
	return models.UpstreamOK
}

func (o *submissionOrchestrator) publishEvent(player *models.Player, query models.PlayerQuery, recorded *RecordResult, upstream *models.PlayerBoard, board *models.PlayerBoard) {
	if o.events == nil {
		return
	}
	event := &models.SubmissionEvent{
		EventID:        uuid.New(),
		Timestamp:      time.Now().UTC(),
		PlayerID:       player.ID,
		MachineTag:     player.MachineTag,
		SongHash:       query.ChartHash,
		ItgScore:       recorded.Score.ItgScore,
		ExScore:        recorded.Score.ExScore,
		Result:         recorded.Result,
		UpstreamStatus: recorded.Score.Status.Label(),
		Source:         board.Source,
	}
	if upstream != nil && upstream.Result != "" && upstream.Result != recorded.Result {
		event.Anomaly = "upstream-result-mismatch"
	}
	if !o.events.Enqueue(event) {
		o.logger.Warnw("Analytics queue full, dropping event", "player", player.ID)
	}
}
