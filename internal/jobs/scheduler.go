package jobs

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

const recomputeTimeout = 4 * time.Minute

// Scheduler triggers the periodic leaderboard recomputation. A run is skipped while the
// previous one is still in progress.
type Scheduler struct {
	cron *cron.Cron
	log  zerolog.Logger
}

func NewScheduler(spec string, p *Processor, log zerolog.Logger) (*Scheduler, error) {
	clog := cronLogger{log: log.With().Str("component", "cron").Logger()}
	c := cron.New(cron.WithLogger(clog), cron.WithChain(cron.Recover(clog), cron.SkipIfStillRunning(clog)))

	_, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), recomputeTimeout)
		defer cancel()
		started := time.Now()
		if err := p.RecomputeLeaderboards(ctx, ""); err != nil {
			log.Error().Err(err).Msg("scheduled leaderboard recompute failed")
			return
		}
		log.Info().Dur("duration", time.Since(started)).Msg("scheduled leaderboard recompute finished")
	})
	if err != nil {
		return nil, errors.Wrapf(err, "invalid leaderboard schedule %q", spec)
	}
	return &Scheduler{cron: c, log: log}, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts scheduling and waits for a running job, bounded by ctx.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.log.Warn().Msg("scheduled job still running at shutdown")
	}
}

type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
