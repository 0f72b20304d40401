package jobs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
)

// Worker consumes the asynq queues with weighted priorities.
type Worker struct {
	server    *asynq.Server
	processor *Processor
	log       zerolog.Logger
}

func NewWorker(opt asynq.RedisConnOpt, concurrency int, p *Processor, log zerolog.Logger) *Worker {
	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			QueueCritical: 6,
			QueueDefault:  3,
			QueueLow:      1,
		},
		Logger: asynqLogger{log: log.With().Str("component", "asynq").Logger()},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			log.Error().Err(err).Str("type", task.Type()).Msg("task failed")
		}),
	})
	return &Worker{server: server, processor: p, log: log}
}

func (w *Worker) Mux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskAttemptFinished, w.handleAttemptFinished)
	mux.HandleFunc(TaskLeaderboardRecompute, w.handleLeaderboardRecompute)
	return mux
}

// Start launches the worker goroutines and returns.
func (w *Worker) Start() error {
	w.log.Info().Msg("Starting background job server")
	return w.server.Start(w.Mux())
}

func (w *Worker) Stop() {
	w.log.Info().Msg("Stopping background job server")
	w.server.Shutdown()
}

func (w *Worker) handleAttemptFinished(ctx context.Context, t *asynq.Task) error {
	var p AttemptFinishedPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("unmarshal %s payload: %v: %w", t.Type(), err, asynq.SkipRetry)
	}
	return w.processor.AttemptFinished(ctx, p.UserID)
}

func (w *Worker) handleLeaderboardRecompute(ctx context.Context, t *asynq.Task) error {
	var p LeaderboardRecomputePayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("unmarshal %s payload: %v: %w", t.Type(), err, asynq.SkipRetry)
	}
	return w.processor.RecomputeLeaderboards(ctx, p.LeaderboardID)
}

type asynqLogger struct {
	log zerolog.Logger
}

func (l asynqLogger) Debug(args ...any) { l.log.Debug().Msg(fmt.Sprint(args...)) }
func (l asynqLogger) Info(args ...any)  { l.log.Info().Msg(fmt.Sprint(args...)) }
func (l asynqLogger) Warn(args ...any)  { l.log.Warn().Msg(fmt.Sprint(args...)) }
func (l asynqLogger) Error(args ...any) { l.log.Error().Msg(fmt.Sprint(args...)) }
func (l asynqLogger) Fatal(args ...any) { l.log.Fatal().Msg(fmt.Sprint(args...)) }
