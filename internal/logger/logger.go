// Package logger builds the zerolog loggers shared by the server, the job worker and the database layer.
package logger

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"os"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/log/zerologadapter"
	"github.com/rs/zerolog"
	"github.com/uptrace/bun"

	"quiz-platform/internal/config"
)

const serviceName = "quiz-platform"

// New returns the root logger: console output in development, JSON otherwise.
func New(cfg config.Config) zerolog.Logger {
	return NewWithWriter(cfg, os.Stdout)
}

func NewWithWriter(cfg config.Config, out io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Logging.Level)
	if err != nil || cfg.Logging.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.TimeFieldFormat = time.RFC3339

	w := out
	if cfg.Logging.Format == "console" && !cfg.IsProduction() {
		w = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"}
	}
	return zerolog.New(w).
		Level(level).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("env", cfg.Env).
		Logger()
}

// PgxLogger adapts the root logger for the pgx pool. Pool chatter is only wanted at debug level.
func PgxLogger(log zerolog.Logger) (pgx.Logger, pgx.LogLevel) {
	var level pgx.LogLevel = pgx.LogLevelWarn
	if log.GetLevel() <= zerolog.DebugLevel {
		level = pgx.LogLevelDebug
	}
	return zerologadapter.NewLogger(log.With().Str("component", "pgx").Logger()), level
}

// QueryHook logs failed bun queries and queries slower than the threshold.
type QueryHook struct {
	log       zerolog.Logger
	threshold time.Duration
}

var _ bun.QueryHook = (*QueryHook)(nil)

func NewQueryHook(log zerolog.Logger, threshold time.Duration) *QueryHook {
	return &QueryHook{
		log:       log.With().Str("component", "bun").Logger(),
		threshold: threshold,
	}
}

func (h *QueryHook) BeforeQuery(ctx context.Context, _ *bun.QueryEvent) context.Context {
	return ctx
}

func (h *QueryHook) AfterQuery(_ context.Context, event *bun.QueryEvent) {
	took := time.Since(event.StartTime)
	switch {
	case event.Err != nil && !isNoRows(event.Err):
		h.log.Error().
			Err(event.Err).
			Str("operation", event.Operation()).
			Dur("duration", took).
			Str("query", event.Query).
			Msg("query failed")
	case h.threshold > 0 && took >= h.threshold:
		h.log.Warn().
			Str("operation", event.Operation()).
			Dur("duration", took).
			Str("query", event.Query).
			Msg("slow query")
	default:
		h.log.Trace().
			Str("operation", event.Operation()).
			Dur("duration", took).
			Msg("query")
	}
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
