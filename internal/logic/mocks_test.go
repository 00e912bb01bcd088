package logic

import (
	"context"

	"github.com/padstats/scores-api/internal/models"
)

// MockDirectory
type MockDirectory struct {
	ResolveOrCreateFunc func(ctx context.Context, credential string) (*models.Player, error)
	SyncIdentityFunc    func(ctx context.Context, player *models.Player, board *models.PlayerBoard) error
}

func (m *MockDirectory) ResolveOrCreate(ctx context.Context, credential string) (*models.Player, error) {
	if m.ResolveOrCreateFunc != nil {
		return m.ResolveOrCreateFunc(ctx, credential)
	}
	return &models.Player{ID: 1, MachineTag: "MOCK", Source: models.SourceLocalItg, Integration: models.IntegrationTry}, nil
}

func (m *MockDirectory) Lookup(ctx context.Context, credential string) (*models.Player, error) {
	return nil, ErrPlayerNotFound
}

func (m *MockDirectory) GetByID(ctx context.Context, id int64) (*models.Player, error) {
	return nil, ErrPlayerNotFound
}

func (m *MockDirectory) SyncIdentity(ctx context.Context, player *models.Player, board *models.PlayerBoard) error {
	if m.SyncIdentityFunc != nil {
		return m.SyncIdentityFunc(ctx, player, board)
	}
	return nil
}

func (m *MockDirectory) AddRival(ctx context.Context, player *models.Player, rivalID int64) error {
	return nil
}

func (m *MockDirectory) Rivals(ctx context.Context, player *models.Player) ([]*models.Player, error) {
	return nil, nil
}

// MockLedger
type MockLedger struct {
	RecordFunc         func(ctx context.Context, req *RecordRequest) (*RecordResult, error)
	MarkSongRankedFunc func(ctx context.Context, hash string) error
	Recorded           []*RecordRequest
	RankedSongs        []string
}

func (m *MockLedger) Record(ctx context.Context, req *RecordRequest) (*RecordResult, error) {
	m.Recorded = append(m.Recorded, req)
	if m.RecordFunc != nil {
		return m.RecordFunc(ctx, req)
	}
	result, delta := classifyResult(req.ItgScore, nil)
	return &RecordResult{
		Score: &models.Score{
			ID:       int64(len(m.Recorded)),
			SongHash: req.SongHash,
			PlayerID: req.Player.ID,
			ItgScore: req.ItgScore,
			ExScore:  req.Judgments.ExScore(),
			Status:   req.Status,
		},
		FirstForSong: true,
		Result:       result,
		Delta:        delta,
	}, nil
}

func (m *MockLedger) Rank(ctx context.Context, score *models.Score, metric models.Metric) (int, error) {
	return 1, nil
}

func (m *MockLedger) Highscore(ctx context.Context, songHash string, playerID int64, metric models.Metric) (*models.Score, error) {
	return nil, ErrScoreNotFound
}

func (m *MockLedger) GetSong(ctx context.Context, hash string) (*models.Song, error) {
	return nil, ErrSongNotFound
}

func (m *MockLedger) GetScore(ctx context.Context, id int64) (*models.Score, error) {
	return nil, ErrScoreNotFound
}

func (m *MockLedger) MarkSongRanked(ctx context.Context, hash string) error {
	m.RankedSongs = append(m.RankedSongs, hash)
	if m.MarkSongRankedFunc != nil {
		return m.MarkSongRankedFunc(ctx, hash)
	}
	return nil
}

// MockComposer
type MockComposer struct {
	ComposeFunc func(ctx context.Context, songHash string, metric models.Metric, window int, viewer *models.Player) ([]models.LeaderboardEntry, error)
	Calls       []MockComposeCall
}

type MockComposeCall struct {
	SongHash string
	Metric   models.Metric
	Window   int
}

func (m *MockComposer) Compose(ctx context.Context, songHash string, metric models.Metric, window int, viewer *models.Player) ([]models.LeaderboardEntry, error) {
	m.Calls = append(m.Calls, MockComposeCall{SongHash: songHash, Metric: metric, Window: window})
	if m.ComposeFunc != nil {
		return m.ComposeFunc(ctx, songHash, metric, window, viewer)
	}
	return []models.LeaderboardEntry{{Rank: 1, Name: "MOCK", Score: 9000, IsSelf: true}}, nil
}

// MockGateway
type MockGateway struct {
	ScoresResponse  *models.UpstreamResponse
	BoardsResponse  *models.UpstreamResponse
	SubmitResponse  *models.UpstreamResponse
	SubmitErr       error
	ScoresCalls     int
	BoardsCalls     int
	SubmitCalls     int
	LastReadQueries []models.PlayerQuery
	LastRequired    bool
	LastBody        []byte
}

func (m *MockGateway) PlayerScores(ctx context.Context, queries []models.PlayerQuery) *models.UpstreamResponse {
	m.ScoresCalls++
	m.LastReadQueries = queries
	return m.ScoresResponse
}

func (m *MockGateway) PlayerLeaderboards(ctx context.Context, queries []models.PlayerQuery, maxResults int) *models.UpstreamResponse {
	m.BoardsCalls++
	m.LastReadQueries = queries
	return m.BoardsResponse
}

func (m *MockGateway) SubmitScores(ctx context.Context, queries []models.PlayerQuery, maxResults int, body []byte, required bool) (*models.UpstreamResponse, error) {
	m.SubmitCalls++
	m.LastRequired = required
	m.LastBody = body
	if m.SubmitErr != nil {
		return nil, m.SubmitErr
	}
	return m.SubmitResponse, nil
}

// MockQueue
type MockQueue struct {
	Events []*models.SubmissionEvent
	Full   bool
}

func (m *MockQueue) Enqueue(event *models.SubmissionEvent) bool {
	if m.Full {
		return false
	}
	m.Events = append(m.Events, event)
	return true
}

func (m *MockQueue) QueueDepth() int {
	return len(m.Events)
}
