package jobs

import (
	"context"
	"errors"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
)

// Queue enqueues tasks on Redis through asynq.
type Queue struct {
	client *asynq.Client
	log    zerolog.Logger
}

func NewQueue(opt asynq.RedisConnOpt, log zerolog.Logger) *Queue {
	return &Queue{client: asynq.NewClient(opt), log: log}
}

func (q *Queue) AttemptFinished(ctx context.Context, userID string) error {
	task, err := NewAttemptFinishedTask(userID)
	if err != nil {
		return err
	}
	info, err := q.client.EnqueueContext(ctx, task)
	if errors.Is(err, asynq.ErrDuplicateTask) {
		q.log.Debug().Str("user_id", userID).Msg("attempt follow-up already queued")
		return nil
	}
	if err != nil {
		return err
	}
	q.log.Debug().Str("task_id", info.ID).Str("user_id", userID).Msg("queued attempt follow-up")
	return nil
}

func (q *Queue) RecomputeLeaderboards(ctx context.Context) error {
	return q.RecomputeLeaderboard(ctx, "")
}

func (q *Queue) RecomputeLeaderboard(ctx context.Context, leaderboardID string) error {
	task, err := NewLeaderboardRecomputeTask(leaderboardID)
	if err != nil {
		return err
	}
	_, err = q.client.EnqueueContext(ctx, task)
	return err
}

func (q *Queue) Close() error {
	return q.client.Close()
}

// InlineQueue runs tasks synchronously. It backs the process when no Redis is configured.
type InlineQueue struct {
	processor *Processor
}

func NewInlineQueue(p *Processor) *InlineQueue {
	return &InlineQueue{processor: p}
}

// AttemptFinished detaches from the caller's cancellation so an aborted request still
// gets its achievements and leaderboard refresh.
func (q *InlineQueue) AttemptFinished(ctx context.Context, userID string) error {
	return q.processor.AttemptFinished(context.WithoutCancel(ctx), userID)
}

func (q *InlineQueue) RecomputeLeaderboards(ctx context.Context) error {
	return q.processor.RecomputeLeaderboards(context.WithoutCancel(ctx), "")
}
