package service

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"wot-api/internal/domain"
	"wot-api/pkg/redis"
)

// CacheService keeps hot vote-count reads off the database and fans
// aggregate updates out to viewers. Everything here is best-effort: a cache
// failure is logged and the caller proceeds against Postgres.
type CacheService struct {
	redis  *redis.Client
	logger *zap.Logger
}

// NewCacheService creates a cache service. The Redis client may be nil, in
// which case every method is a no-op or pass-through.
func NewCacheService(redisClient *redis.Client, logger *zap.Logger) *CacheService {
	return &CacheService{redis: redisClient, logger: logger}
}

// GetVoteCounts returns cached counts for a poll, or nil on a miss.
func (c *CacheService) GetVoteCounts(ctx context.Context, pollID string) *domain.VoteCounts {
	if c.redis == nil {
		return nil
	}

	val, err := c.redis.Get(ctx, c.redis.KeyBuilder.KeyVoteCounts(pollID))
	if err != nil || val == "" {
		return nil
	}

	var counts domain.VoteCounts
	if err := json.Unmarshal([]byte(val), &counts); err != nil {
		c.logger.Warn("Discarding malformed cached vote counts",
			zap.String("poll_id", pollID), zap.Error(err))
		return nil
	}
	return &counts
}

// SetVoteCounts caches fresh counts under a short TTL.
func (c *CacheService) SetVoteCounts(ctx context.Context, counts *domain.VoteCounts) {
	if c.redis == nil || counts == nil {
		return
	}

	payload, err := json.Marshal(counts)
	if err != nil {
		return
	}
	if err := c.redis.Set(ctx, c.redis.KeyBuilder.KeyVoteCounts(counts.PollID), payload, redis.TTLVoteCounts); err != nil {
		c.logger.Warn("Failed to cache vote counts",
			zap.String("poll_id", counts.PollID), zap.Error(err))
	}
}

// PublishVoteCounts pushes fresh counts onto the poll's channel. Viewers
// treat the feed as eventually consistent; delivery is not guaranteed and
// the voter's own optimistic update covers their gap.
func (c *CacheService) PublishVoteCounts(ctx context.Context, counts *domain.VoteCounts) {
	if c.redis == nil || counts == nil {
		return
	}

	payload, err := json.Marshal(counts)
	if err != nil {
		return
	}
	if err := c.redis.Publish(ctx, c.redis.KeyBuilder.ChannelVoteCounts(counts.PollID), payload); err != nil {
		c.logger.Warn("Failed to publish vote counts",
			zap.String("poll_id", counts.PollID), zap.Error(err))
	}
}

// MarkVoted caches the identity's confirmed vote on a poll. Used only as a
// fast path for HasVoted; feed filtering always reads the votes table.
func (c *CacheService) MarkVoted(ctx context.Context, userID, pollID string, side domain.Side) {
	if c.redis == nil {
		return
	}
	if err := c.redis.Set(ctx, c.redis.KeyBuilder.KeyUserVoted(userID, pollID), string(side), redis.TTLUserVoted); err != nil {
		c.logger.Warn("Failed to cache vote status",
			zap.String("user_id", userID), zap.String("poll_id", pollID), zap.Error(err))
	}
}

// GetVoted returns the cached vote side, or nil on a miss.
func (c *CacheService) GetVoted(ctx context.Context, userID, pollID string) *domain.Side {
	if c.redis == nil {
		return nil
	}

	val, err := c.redis.Get(ctx, c.redis.KeyBuilder.KeyUserVoted(userID, pollID))
	if err != nil || val == "" {
		return nil
	}

	side := domain.Side(val)
	if !domain.ValidSide(side) {
		return nil
	}
	return &side
}

// InvalidateVoteCounts drops the cached aggregate for a poll.
func (c *CacheService) InvalidateVoteCounts(ctx context.Context, pollID string) {
	if c.redis == nil {
		return
	}
	if err := c.redis.Delete(ctx, c.redis.KeyBuilder.KeyVoteCounts(pollID)); err != nil {
		c.logger.Warn("Failed to invalidate vote counts cache",
			zap.String("poll_id", pollID), zap.Error(err))
	}
}
