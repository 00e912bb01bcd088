// Package worker is the async analytics pipeline: submission events are
// queued in-process, batch-inserted into ClickHouse and mirrored into Redis
// search indexes.
package worker

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/padstats/scores-api/internal/models"
)

// Prometheus metrics
var (
	eventsIngested = promauto.NewCounter(prometheus.CounterOpts{
		Name: "padstats_events_ingested_total",
		Help: "Total number of submission events accepted into the queue",
	})

	eventsProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "padstats_events_processed_total",
		Help: "Total number of submission events written to ClickHouse",
	})

	eventsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "padstats_events_failed_total",
		Help: "Total number of submission events that failed processing",
	})

	eventsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "padstats_events_dropped_total",
		Help: "Total number of submission events dropped at enqueue",
	})

	queueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "padstats_worker_queue_depth",
		Help: "Current depth of the analytics queue",
	})

	batchInsertDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "padstats_batch_insert_duration_seconds",
		Help:    "Duration of batch inserts to ClickHouse",
		Buckets: prometheus.DefBuckets,
	})
)

// PoolConfig configures the analytics worker pool.
type PoolConfig struct {
	WorkerCount   int
	QueueSize     int
	BatchSize     int
	FlushInterval time.Duration
	ClickHouse    driver.Conn
	Redis         *redis.Client
	Logger        *zap.Logger
}

// Pool fans submission events out to workers that flush them in batches.
type Pool struct {
	config   PoolConfig
	jobQueue chan *models.SubmissionEvent
	wg       sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc
	logger   *zap.SugaredLogger
}

func NewPool(cfg PoolConfig) *Pool {
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 4
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 10000
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 200
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = time.Second
	}

	pool := &Pool{
		config:   cfg,
		jobQueue: make(chan *models.SubmissionEvent, cfg.QueueSize),
		logger:   cfg.Logger.Sugar(),
	}
	pool.ctx, pool.cancel = context.WithCancel(context.Background())
	return pool
}

// Start launches the worker goroutines and the queue depth reporter.
func (p *Pool) Start(ctx context.Context) {
	p.ctx, p.cancel = context.WithCancel(ctx)

	for i := 0; i < p.config.WorkerCount; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
	go p.reportQueueDepth()

	p.logger.Infow("Worker pool started",
		"workers", p.config.WorkerCount,
		"queueSize", p.config.QueueSize,
		"batchSize", p.config.BatchSize,
	)
}

// Stop closes intake and waits for the workers to drain the queue and flush
// their in-flight batches. Callers must stop producing first; the HTTP server
// is shut down before the pool.
func (p *Pool) Stop() {
	p.cancel()
	close(p.jobQueue)
	p.wg.Wait()
	p.logger.Info("Worker pool stopped")
}

// Enqueue adds an event to the queue. Returns false when the queue is full or
// the pool has stopped; submission handling never blocks on analytics.
func (p *Pool) Enqueue(event *models.SubmissionEvent) bool {
	select {
	case <-p.ctx.Done():
		eventsDropped.Inc()
		return false
	default:
	}

	select {
	case p.jobQueue <- event:
		eventsIngested.Inc()
		return true
	default:
		eventsDropped.Inc()
		return false
	}
}

func (p *Pool) QueueDepth() int {
	return len(p.jobQueue)
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	batch := make([]*models.SubmissionEvent, 0, p.config.BatchSize)
	ticker := time.NewTicker(p.config.FlushInterval)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		start := time.Now()
		if err := p.processBatch(batch); err != nil {
			p.logger.Errorw("Batch processing failed",
				"worker", id, "batchSize", len(batch), "error", err)
			eventsFailed.Add(float64(len(batch)))
		} else {
			eventsProcessed.Add(float64(len(batch)))
		}
		batchInsertDuration.Observe(time.Since(start).Seconds())
		batch = batch[:0]
	}

	// Exit only through the closed channel so the queue fully drains on Stop.
	for {
		select {
		case event, ok := <-p.jobQueue:
			if !ok {
				flush()
				return
			}
			batch = append(batch, event)
			if len(batch) >= p.config.BatchSize {
				flush()
			}

		case <-ticker.C:
			flush()
		}
	}
}

// processBatch writes one batch to ClickHouse and then applies the Redis
// side indexes. The ClickHouse insert is the durability boundary; Redis
// failures are logged and ignored.
func (p *Pool) processBatch(batch []*models.SubmissionEvent) error {
	ctx := context.Background()

	chBatch, err := p.config.ClickHouse.PrepareBatch(ctx, `
		INSERT INTO padstats.submission_events (
			event_id, timestamp, player_id, machine_tag, song_hash,
			itg_score, ex_score, result, upstream_status, source, anomaly
		)
	`)
	if err != nil {
		return err
	}

	for _, event := range batch {
		err := chBatch.Append(
			event.EventID,
			event.Timestamp,
			event.PlayerID,
			event.MachineTag,
			event.SongHash,
			int32(event.ItgScore),
			int32(event.ExScore),
			event.Result,
			event.UpstreamStatus,
			event.Source,
			event.Anomaly,
		)
		if err != nil {
			p.logger.Warnw("Failed to append event to batch",
				"error", err, "event", event.EventID)
			continue
		}
	}

	if err := chBatch.Send(); err != nil {
		return err
	}

	p.updateSideIndexes(ctx, batch)
	return nil
}

// updateSideIndexes mirrors the batch into the Redis search structures the
// API serves popularity and tag lookups from.
func (p *Pool) updateSideIndexes(ctx context.Context, batch []*models.SubmissionEvent) {
	if p.config.Redis == nil {
		return
	}

	pipe := p.config.Redis.Pipeline()
	for _, event := range batch {
		pipe.ZIncrBy(ctx, "songs:popularity", 1, event.SongHash)
		pipe.HSet(ctx, "players:machine_tags", strconv.FormatInt(event.PlayerID, 10), event.MachineTag)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		p.logger.Warnw("Redis side index update failed", "error", err)
	}
}

func (p *Pool) reportQueueDepth() {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			queueDepth.Set(float64(len(p.jobQueue)))
		case <-p.ctx.Done():
			return
		}
	}
}
