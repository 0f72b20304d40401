package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"quiz-platform/internal/domain"
)

// LeaderboardCache keeps the ranked entries of each leaderboard under leaderboard:{id}:entries.
// Failures are logged and treated as misses.
type LeaderboardCache struct {
	client *redis.Client
	ttl    time.Duration
	log    zerolog.Logger
}

func NewLeaderboardCache(client *redis.Client, ttl time.Duration, log zerolog.Logger) *LeaderboardCache {
	return &LeaderboardCache{client: client, ttl: ttl, log: log}
}

func (c *LeaderboardCache) Get(ctx context.Context, leaderboardID string) ([]domain.LeaderboardEntry, bool) {
	raw, err := c.client.Get(ctx, entriesKey(leaderboardID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn().Err(err).Str("leaderboard_id", leaderboardID).Msg("leaderboard cache read failed")
		}
		return nil, false
	}
	var entries []domain.LeaderboardEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, false
	}
	return entries, true
}

func (c *LeaderboardCache) Set(ctx context.Context, leaderboardID string, entries []domain.LeaderboardEntry) {
	if entries == nil {
		entries = []domain.LeaderboardEntry{}
	}
	raw, err := json.Marshal(entries)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, entriesKey(leaderboardID), raw, c.ttl).Err(); err != nil {
		c.log.Warn().Err(err).Str("leaderboard_id", leaderboardID).Msg("leaderboard cache write failed")
	}
}

func (c *LeaderboardCache) Invalidate(ctx context.Context, leaderboardID string) {
	if err := c.client.Del(ctx, entriesKey(leaderboardID)).Err(); err != nil {
		c.log.Warn().Err(err).Str("leaderboard_id", leaderboardID).Msg("leaderboard cache invalidate failed")
	}
}

func entriesKey(leaderboardID string) string {
	return "leaderboard:" + leaderboardID + ":entries"
}
