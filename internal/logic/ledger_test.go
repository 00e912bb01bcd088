package logic

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/padstats/scores-api/internal/models"
)

func TestInferCmod(t *testing.T) {
	tests := []struct {
		comment string
		want    bool
	}{
		{"", false},
		{"C500", true},
		{"C250, Overhead", true},
		{"M550, Overhead", false},
		{"Clap", false},
		{"great run C700 wow", true},
	}

	for _, tt := range tests {
		if got := InferCmod(tt.comment); got != tt.want {
			t.Errorf("InferCmod(%q) = %v, want %v", tt.comment, got, tt.want)
		}
	}
}

func TestStarTier(t *testing.T) {
	tests := []struct {
		score int
		want  int
	}{
		{0, 0},
		{9599, 0},
		{9600, 1},
		{9799, 1},
		{9800, 2},
		{9899, 2},
		{9900, 3},
		{9999, 3},
		{10000, 4},
	}

	for _, tt := range tests {
		if got := starTier(tt.score); got != tt.want {
			t.Errorf("starTier(%d) = %d, want %d", tt.score, got, tt.want)
		}
	}
}

func TestClassifyResult(t *testing.T) {
	prev := &models.Score{ItgScore: 8000}

	tests := []struct {
		name       string
		score      int
		prevTop    *models.Score
		wantResult string
		wantDelta  int
	}{
		{"first score", 8000, nil, models.ResultAdded, 8000},
		{"improvement", 8500, prev, models.ResultImproved, 500},
		{"tie", 8000, prev, models.ResultNotImproved, 0},
		{"worse", 7000, prev, models.ResultNotImproved, -1000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, delta := classifyResult(tt.score, tt.prevTop)
			if result != tt.wantResult || delta != tt.wantDelta {
				t.Errorf("classifyResult(%d) = (%s, %d), want (%s, %d)",
					tt.score, result, delta, tt.wantResult, tt.wantDelta)
			}
		})
	}
}

func TestStarDeltas(t *testing.T) {
	tests := []struct {
		name    string
		itgTop  bool
		itg     int
		prevItg *models.Score
		exTop   bool
		ex      int
		prevEx  *models.Score
		want    [5]int
	}{
		{
			name:   "first score below any tier",
			itgTop: true, itg: 9000,
			exTop: true, ex: 8800,
			want: [5]int{0, 0, 0, 0, 0},
		},
		{
			name:   "first one-star",
			itgTop: true, itg: 9650,
			exTop: true, ex: 9500,
			want: [5]int{1, 0, 0, 0, 0},
		},
		{
			name:   "tier upgrade moves the counter",
			itgTop: true, itg: 9850, prevItg: &models.Score{ItgScore: 9700},
			exTop: false, ex: 9600, prevEx: &models.Score{ExScore: 9700},
			want: [5]int{-1, 1, 0, 0, 0},
		},
		{
			name:   "improvement within the same tier is neutral",
			itgTop: true, itg: 9700, prevItg: &models.Score{ItgScore: 9650},
			want: [5]int{0, 0, 0, 0, 0},
		},
		{
			name:   "no new top changes nothing",
			itgTop: false, itg: 9999, prevItg: &models.Score{ItgScore: 10000},
			want: [5]int{0, 0, 0, 0, 0},
		},
		{
			name:   "quad plus first ex perfect",
			itgTop: true, itg: 10000, prevItg: &models.Score{ItgScore: 9950},
			exTop: true, ex: 10000, prevEx: &models.Score{ExScore: 9900},
			want: [5]int{0, 0, -1, 1, 1},
		},
		{
			name:  "repeated ex perfect is not counted again",
			exTop: false, ex: 10000, prevEx: &models.Score{ExScore: 10000},
			want:  [5]int{0, 0, 0, 0, 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := starDeltas(tt.itgTop, tt.itg, tt.prevItg, tt.exTop, tt.ex, tt.prevEx)
			if got != tt.want {
				t.Errorf("starDeltas() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMetricColumns(t *testing.T) {
	if val, top := metricColumns(models.MetricItg); val != "itg_score" || top != "is_itg_top" {
		t.Errorf("itg columns = (%s, %s)", val, top)
	}
	if val, top := metricColumns(models.MetricEx); val != "ex_score" || top != "is_ex_top" {
		t.Errorf("ex columns = (%s, %s)", val, top)
	}
}

const testSongHash = "feed000011112222"

func newTestLedger(pool *fakePool) ScoreLedger {
	return NewScoreLedger(pool, zap.NewNop())
}

// songRowValues scripts one songs row in column order. Zero highscore ids
// script as NULL.
func songRowValues(hash string, ranked bool, itgHigh, exHigh int64, numScores, numPlayers int) []interface{} {
	var itg, ex interface{}
	if itgHigh != 0 {
		itg = itgHigh
	}
	if exHigh != 0 {
		ex = exHigh
	}
	return []interface{}{hash, ranked, itg, ex, numScores, numPlayers, time.Now()}
}

// topScoreRowValues scripts one top-flagged scores row with zeroed judgments.
func topScoreRowValues(id int64, playerID int64, itg, ex int, itgTop, exTop bool) []interface{} {
	values := []interface{}{id, testSongHash, playerID, time.Now(), itg, ex, "", 100, false, true}
	for i := 0; i < 14; i++ {
		values = append(values, 0)
	}
	return append(values, itgTop, exTop, models.UpstreamOK)
}

func TestRecordFirstScoreForSong(t *testing.T) {
	pool := &fakePool{rowQueue: []*fakeRow{
		{values: songRowValues(testSongHash, false, 0, 0, 0, 0)},
		{err: pgx.ErrNoRows},
		{err: pgx.ErrNoRows},
		{values: []interface{}{int64(101), time.Now()}},
	}}

	res, err := newTestLedger(pool).Record(context.Background(), &RecordRequest{
		SongHash:  testSongHash,
		Player:    &models.Player{ID: 7},
		ItgScore:  8495,
		Comment:   "C500",
		Judgments: &models.Judgments{FantasticPlus: 10, TotalSteps: 20},
		Status:    models.UpstreamOK,
	})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}

	if res.Result != models.ResultAdded || res.Delta != 8495 {
		t.Errorf("result = %q/%d, want %q/8495", res.Result, res.Delta, models.ResultAdded)
	}
	if !res.FirstForSong {
		t.Error("first score for a song must count as a new song")
	}
	if res.Score.ID != 101 || !res.Score.IsItgTop || !res.Score.IsExTop {
		t.Errorf("score = id %d, itgTop %v, exTop %v", res.Score.ID, res.Score.IsItgTop, res.Score.IsExTop)
	}
	if !res.Score.UsedCmod {
		t.Error("C500 comment should infer a cmod")
	}
	if res.Score.ExScore != 5000 {
		t.Errorf("ex score = %d, want 5000", res.Score.ExScore)
	}
	if res.Song.ItgHighscoreID != 101 || res.Song.ExHighscoreID != 101 {
		t.Errorf("highscore pointers = %d/%d, want 101/101", res.Song.ItgHighscoreID, res.Song.ExHighscoreID)
	}
	if pool.execMatching("is_itg_top = false") != nil || pool.execMatching("is_ex_top = false") != nil {
		t.Error("no previous top to demote")
	}

	counters := pool.execMatching("UPDATE players")
	if counters == nil {
		t.Fatal("player counters not updated")
	}
	if counters.args[2] != 1 {
		t.Errorf("num_songs increment = %v, want 1", counters.args[2])
	}
	if !pool.tx.committed {
		t.Error("transaction not committed")
	}
}

func TestRecordImprovementReplacesTops(t *testing.T) {
	pool := &fakePool{rowQueue: []*fakeRow{
		{values: songRowValues(testSongHash, true, 50, 50, 1, 1)},
		{values: topScoreRowValues(50, 7, 8495, 8000, true, true)},
		{values: topScoreRowValues(50, 7, 8495, 8000, true, true)},
		{values: []interface{}{int64(102), time.Now()}},
		{values: []interface{}{8495}},
		{values: []interface{}{8000}},
	}}

	res, err := newTestLedger(pool).Record(context.Background(), &RecordRequest{
		SongHash:  testSongHash,
		Player:    &models.Player{ID: 7},
		ItgScore:  9999,
		Judgments: &models.Judgments{FantasticPlus: 100, TotalSteps: 100},
		Status:    models.UpstreamOK,
	})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}

	if res.Result != models.ResultImproved || res.Delta != 1504 {
		t.Errorf("result = %q/%d, want %q/1504", res.Result, res.Delta, models.ResultImproved)
	}
	if res.FirstForSong {
		t.Error("player already had a score for this song")
	}

	demoteItg := pool.execMatching("is_itg_top = false")
	demoteEx := pool.execMatching("is_ex_top = false")
	if demoteItg == nil || demoteItg.args[0] != int64(50) {
		t.Errorf("old itg top not demoted: %+v", demoteItg)
	}
	if demoteEx == nil || demoteEx.args[0] != int64(50) {
		t.Errorf("old ex top not demoted: %+v", demoteEx)
	}

	if res.Song.ItgHighscoreID != 102 || res.Song.ExHighscoreID != 102 {
		t.Errorf("highscore pointers = %d/%d, want 102/102", res.Song.ItgHighscoreID, res.Song.ExHighscoreID)
	}

	// 9999 earns a three-star; the perfect EX earns the permanent counter.
	counters := pool.execMatching("UPDATE players")
	if counters == nil {
		t.Fatal("player counters not updated")
	}
	if counters.args[2] != 0 {
		t.Errorf("num_songs increment = %v, want 0", counters.args[2])
	}
	wantStars := []interface{}{0, 0, 1, 0, 1}
	for i, want := range wantStars {
		if counters.args[3+i] != want {
			t.Errorf("star delta %d = %v, want %v", i, counters.args[3+i], want)
		}
	}
}

func TestRecordTieKeepsExistingTop(t *testing.T) {
	pool := &fakePool{rowQueue: []*fakeRow{
		{values: songRowValues(testSongHash, true, 60, 60, 1, 1)},
		{values: topScoreRowValues(60, 7, 9000, 5000, true, true)},
		{values: topScoreRowValues(60, 7, 9000, 5000, true, true)},
		{values: []interface{}{int64(61), time.Now()}},
		{values: []interface{}{9000}},
		{values: []interface{}{5000}},
	}}

	res, err := newTestLedger(pool).Record(context.Background(), &RecordRequest{
		SongHash: testSongHash,
		Player:   &models.Player{ID: 7},
		ItgScore: 9000,
		Status:   models.UpstreamOK,
	})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}

	if res.Result != models.ResultNotImproved || res.Delta != 0 {
		t.Errorf("result = %q/%d, want %q/0", res.Result, res.Delta, models.ResultNotImproved)
	}
	if res.Score.IsItgTop || res.Score.IsExTop {
		t.Error("a tie must not take over the top flags")
	}
	if pool.execMatching("is_itg_top = false") != nil {
		t.Error("the standing top must keep its flag on a tie")
	}
	if res.Song.ItgHighscoreID != 60 || res.Song.ExHighscoreID != 60 {
		t.Errorf("highscore pointers = %d/%d, want 60/60", res.Song.ItgHighscoreID, res.Song.ExHighscoreID)
	}
}

func TestRecordRejectsInvalidInput(t *testing.T) {
	pool := &fakePool{}
	ledger := newTestLedger(pool)

	_, err := ledger.Record(context.Background(), &RecordRequest{
		SongHash: testSongHash, Player: &models.Player{ID: 7}, ItgScore: 10001,
	})
	if !errors.Is(err, ErrInvalidScore) {
		t.Errorf("err = %v, want ErrInvalidScore", err)
	}

	_, err = ledger.Record(context.Background(), &RecordRequest{
		SongHash: testSongHash, Player: &models.Player{ID: 7}, ItgScore: 9000, Rate: 501,
	})
	if !errors.Is(err, ErrInvalidRate) {
		t.Errorf("err = %v, want ErrInvalidRate", err)
	}

	if pool.tx != nil {
		t.Error("validation failures must not open a transaction")
	}
}

func TestRankCountsAhead(t *testing.T) {
	pool := &fakePool{rowQueue: []*fakeRow{{values: []interface{}{3}}}}

	rank, err := newTestLedger(pool).Rank(context.Background(), &models.Score{
		ID: 102, SongHash: testSongHash, ItgScore: 9000, SubmittedAt: time.Now(),
	}, models.MetricItg)
	if err != nil {
		t.Fatalf("Rank: %v", err)
	}
	if rank != 4 {
		t.Errorf("rank = %d, want 4", rank)
	}
	if len(pool.queries) != 1 || pool.queries[0].args[0] != testSongHash {
		t.Errorf("rank query = %+v", pool.queries)
	}
}
