package jobs

import (
	"context"

	"github.com/rs/zerolog"

	"quiz-platform/internal/domain"
)

type AchievementChecker interface {
	CheckAndAward(ctx context.Context, userID string) ([]domain.UserAchievement, error)
}

type LeaderboardRecomputer interface {
	Recompute(ctx context.Context, id string) (domain.Leaderboard, error)
	RecomputeAll(ctx context.Context) error
}

// Processor holds the task logic shared by the asynq worker and the inline queue.
type Processor struct {
	achievements AchievementChecker
	leaderboards LeaderboardRecomputer
	log          zerolog.Logger
}

func NewProcessor(achievements AchievementChecker, leaderboards LeaderboardRecomputer, log zerolog.Logger) *Processor {
	return &Processor{
		achievements: achievements,
		leaderboards: leaderboards,
		log:          log.With().Str("component", "jobs").Logger(),
	}
}

// AttemptFinished awards newly met achievements, then refreshes every leaderboard.
func (p *Processor) AttemptFinished(ctx context.Context, userID string) error {
	awarded, err := p.achievements.CheckAndAward(ctx, userID)
	if err != nil {
		p.log.Error().Err(err).Str("user_id", userID).Msg("achievement check failed")
		return err
	}
	if len(awarded) > 0 {
		p.log.Info().Str("user_id", userID).Int("awarded", len(awarded)).Msg("achievements awarded")
	}
	if err := p.leaderboards.RecomputeAll(ctx); err != nil {
		p.log.Error().Err(err).Msg("leaderboard recompute failed")
		return err
	}
	return nil
}

func (p *Processor) RecomputeLeaderboards(ctx context.Context, leaderboardID string) error {
	if leaderboardID == "" {
		return p.leaderboards.RecomputeAll(ctx)
	}
	_, err := p.leaderboards.Recompute(ctx, leaderboardID)
	return err
}
