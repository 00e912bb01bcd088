package handlers

import (
	"context"

	"github.com/padstats/scores-api/internal/logic"
	"github.com/padstats/scores-api/internal/models"
)

// MockOrchestrator
type MockOrchestrator struct {
	PlayerScoresFunc       func(ctx context.Context, req *models.BoardRequest) (map[int]*models.PlayerBoard, error)
	PlayerLeaderboardsFunc func(ctx context.Context, req *models.BoardRequest) (map[int]*models.PlayerBoard, error)
	SubmitScoresFunc       func(ctx context.Context, req *models.SubmitRequest) (map[int]*models.PlayerBoard, error)
	LastSubmit             *models.SubmitRequest
}

func (m *MockOrchestrator) PlayerScores(ctx context.Context, req *models.BoardRequest) (map[int]*models.PlayerBoard, error) {
	if m.PlayerScoresFunc != nil {
		return m.PlayerScoresFunc(ctx, req)
	}
	return mockBoards(req.Queries), nil
}

func (m *MockOrchestrator) PlayerLeaderboards(ctx context.Context, req *models.BoardRequest) (map[int]*models.PlayerBoard, error) {
	if m.PlayerLeaderboardsFunc != nil {
		return m.PlayerLeaderboardsFunc(ctx, req)
	}
	return mockBoards(req.Queries), nil
}

func (m *MockOrchestrator) SubmitScores(ctx context.Context, req *models.SubmitRequest) (map[int]*models.PlayerBoard, error) {
	m.LastSubmit = req
	if m.SubmitScoresFunc != nil {
		return m.SubmitScoresFunc(ctx, req)
	}
	return mockBoards(req.Queries), nil
}

func mockBoards(queries []models.PlayerQuery) map[int]*models.PlayerBoard {
	boards := make(map[int]*models.PlayerBoard, len(queries))
	for _, q := range queries {
		boards[q.Index] = &models.PlayerBoard{ChartHash: q.ChartHash, IsRanked: true}
	}
	return boards
}

// MockPlayerDirectory
type MockPlayerDirectory struct {
	LookupFunc   func(ctx context.Context, credential string) (*models.Player, error)
	GetByIDFunc  func(ctx context.Context, id int64) (*models.Player, error)
	AddRivalFunc func(ctx context.Context, player *models.Player, rivalID int64) error
	RivalsFunc   func(ctx context.Context, player *models.Player) ([]*models.Player, error)
}

func (m *MockPlayerDirectory) ResolveOrCreate(ctx context.Context, credential string) (*models.Player, error) {
	return nil, logic.ErrPlayerNotFound
}

func (m *MockPlayerDirectory) Lookup(ctx context.Context, credential string) (*models.Player, error) {
	if m.LookupFunc != nil {
		return m.LookupFunc(ctx, credential)
	}
	return nil, logic.ErrPlayerNotFound
}

func (m *MockPlayerDirectory) GetByID(ctx context.Context, id int64) (*models.Player, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, logic.ErrPlayerNotFound
}

func (m *MockPlayerDirectory) SyncIdentity(ctx context.Context, player *models.Player, board *models.PlayerBoard) error {
	return nil
}

func (m *MockPlayerDirectory) AddRival(ctx context.Context, player *models.Player, rivalID int64) error {
	if m.AddRivalFunc != nil {
		return m.AddRivalFunc(ctx, player, rivalID)
	}
	return nil
}

func (m *MockPlayerDirectory) Rivals(ctx context.Context, player *models.Player) ([]*models.Player, error) {
	if m.RivalsFunc != nil {
		return m.RivalsFunc(ctx, player)
	}
	return nil, nil
}

// MockScoreLedger
type MockScoreLedger struct {
	GetScoreFunc func(ctx context.Context, id int64) (*models.Score, error)
}

func (m *MockScoreLedger) Record(ctx context.Context, req *logic.RecordRequest) (*logic.RecordResult, error) {
	return nil, logic.ErrInvalidScore
}

func (m *MockScoreLedger) Rank(ctx context.Context, score *models.Score, metric models.Metric) (int, error) {
	return 0, logic.ErrScoreNotFound
}

func (m *MockScoreLedger) Highscore(ctx context.Context, songHash string, playerID int64, metric models.Metric) (*models.Score, error) {
	return nil, logic.ErrScoreNotFound
}

func (m *MockScoreLedger) GetSong(ctx context.Context, hash string) (*models.Song, error) {
	return nil, logic.ErrSongNotFound
}

func (m *MockScoreLedger) GetScore(ctx context.Context, id int64) (*models.Score, error) {
	if m.GetScoreFunc != nil {
		return m.GetScoreFunc(ctx, id)
	}
	return nil, logic.ErrScoreNotFound
}

func (m *MockScoreLedger) MarkSongRanked(ctx context.Context, hash string) error {
	return nil
}

// MockEventQueue
type MockEventQueue struct{}

func (m *MockEventQueue) Enqueue(event *models.SubmissionEvent) bool { return true }

func (m *MockEventQueue) QueueDepth() int { return 0 }
