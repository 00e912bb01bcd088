package logic

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/padstats/scores-api/internal/models"
)

// LiveService answers whether a player is currently streaming, caching probe
// results in Redis so a hot song-select screen does not hammer the probe.
type LiveService struct {
	probe  LiveProbe
	cache  KVCache
	ttl    time.Duration
	logger *zap.SugaredLogger
}

func NewLiveService(probe LiveProbe, cache KVCache, ttl time.Duration, logger *zap.Logger) *LiveService {
	return &LiveService{probe: probe, cache: cache, ttl: ttl, logger: logger.Sugar()}
}

func liveCacheKey(playerID int64) string {
	return fmt.Sprintf("live:%d", playerID)
}

// IsLive returns the cached liveness for a player, probing on a cache miss.
// Probe failures are reported as offline.
func (s *LiveService) IsLive(ctx context.Context, player *models.Player) bool {
	key := liveCacheKey(player.ID)
	if cached, err := s.cache.Get(ctx, key).Result(); err == nil {
		return cached == "1"
	} else if err != redis.Nil {
		s.logger.Warnw("Live cache read failed", "player", player.ID, "error", err)
	}

	live, err := s.probe.IsLive(ctx, player)
	if err != nil {
		s.logger.Warnw("Live probe failed", "player", player.ID, "error", err)
		return false
	}

	value := "0"
	if live {
		value = "1"
	}
	if err := s.cache.Set(ctx, key, value, s.ttl).Err(); err != nil {
		s.logger.Warnw("Live cache write failed", "player", player.ID, "error", err)
	}
	return live
}

// NoopProbe is the default probe when no streaming integration is configured.
type NoopProbe struct{}

func (NoopProbe) IsLive(context.Context, *models.Player) (bool, error) {
	return false, nil
}
