package handlers

import (
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/padstats/scores-api/internal/logic"
)

// MaxBodySize limits the size of request bodies to 1MB
const MaxBodySize = 1048576

type Config struct {
	WorkerPool logic.EventQueue
	Postgres   *pgxpool.Pool
	ClickHouse driver.Conn
	Redis      *redis.Client
	Logger     *zap.Logger
	// Services
	Directory    logic.PlayerDirectory
	Ledger       logic.ScoreLedger
	Composer     logic.LeaderboardComposer
	Orchestrator logic.SubmissionOrchestrator
	Live         *logic.LiveService
}

type Handler struct {
	pool         logic.EventQueue
	pg           *pgxpool.Pool
	ch           driver.Conn
	redis        *redis.Client
	logger       *zap.SugaredLogger
	validator    *validator.Validate
	directory    logic.PlayerDirectory
	ledger       logic.ScoreLedger
	composer     logic.LeaderboardComposer
	orchestrator logic.SubmissionOrchestrator
	live         *logic.LiveService
}

func New(cfg Config) *Handler {
	return &Handler{
		pool:         cfg.WorkerPool,
		pg:           cfg.Postgres,
		ch:           cfg.ClickHouse,
		redis:        cfg.Redis,
		logger:       cfg.Logger.Sugar(),
		validator:    validator.New(),
		directory:    cfg.Directory,
		ledger:       cfg.Ledger,
		composer:     cfg.Composer,
		orchestrator: cfg.Orchestrator,
		live:         cfg.Live,
	}
}
