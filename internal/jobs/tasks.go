// Package jobs runs the follow-up work of finished attempts and the periodic leaderboard
// recomputation, on asynq when Redis is available and inline otherwise.
package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	TaskAttemptFinished      = "attempt:finished"
	TaskLeaderboardRecompute = "leaderboard:recompute"

	QueueCritical = "critical"
	QueueDefault  = "default"
	QueueLow      = "low"
)

// attemptFinishedUniqueTTL collapses bursts of completions by the same user into one task.
const attemptFinishedUniqueTTL = 30 * time.Second

type AttemptFinishedPayload struct {
	UserID string `json:"user_id"`
}

// LeaderboardRecomputePayload recomputes one board, or every active board when empty.
type LeaderboardRecomputePayload struct {
	LeaderboardID string `json:"leaderboard_id,omitempty"`
}

func NewAttemptFinishedTask(userID string) (*asynq.Task, error) {
	payload, err := json.Marshal(AttemptFinishedPayload{UserID: userID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(
		TaskAttemptFinished,
		payload,
		asynq.MaxRetry(3),
		asynq.Queue(QueueCritical),
		asynq.Timeout(2*time.Minute),
		asynq.Unique(attemptFinishedUniqueTTL),
	), nil
}

func NewLeaderboardRecomputeTask(leaderboardID string) (*asynq.Task, error) {
	payload, err := json.Marshal(LeaderboardRecomputePayload{LeaderboardID: leaderboardID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(
		TaskLeaderboardRecompute,
		payload,
		asynq.MaxRetry(1),
		asynq.Queue(QueueLow),
		asynq.Timeout(5*time.Minute),
	), nil
}
