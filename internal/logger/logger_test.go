package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"
	"github.com/uptrace/bun"

	"quiz-platform/internal/config"
)

func TestNewWritesJSONWithServiceField(t *testing.T) {
	cfg := config.Default()
	cfg.Env = "production"
	cfg.Logging.Format = "json"

	var buf bytes.Buffer
	log := NewWithWriter(cfg, &buf)
	log.Info().Msg("hello")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("expected json line, got %q: %v", buf.String(), err)
	}
	if line["service"] != serviceName || line["message"] != "hello" {
		t.Fatalf("unexpected log line: %v", line)
	}
}

func TestNewRespectsLevel(t *testing.T) {
	cfg := config.Default()
	cfg.Logging.Format = "json"
	cfg.Logging.Level = "warn"

	var buf bytes.Buffer
	log := NewWithWriter(cfg, &buf)
	log.Info().Msg("dropped")
	if buf.Len() != 0 {
		t.Fatalf("expected info to be filtered, got %q", buf.String())
	}
}

func TestQueryHookLogsSlowAndFailedQueries(t *testing.T) {
	var buf bytes.Buffer
	hook := NewQueryHook(zerolog.New(&buf), 10*time.Millisecond)

	hook.AfterQuery(context.Background(), &bun.QueryEvent{
		Query:     "SELECT pg_sleep(1)",
		StartTime: time.Now().Add(-time.Second),
	})
	if !strings.Contains(buf.String(), "slow query") {
		t.Fatalf("expected slow query log, got %q", buf.String())
	}

	buf.Reset()
	hook.AfterQuery(context.Background(), &bun.QueryEvent{
		Query:     "SELECT broken",
		StartTime: time.Now(),
		Err:       errors.New("syntax error"),
	})
	if !strings.Contains(buf.String(), "query failed") {
		t.Fatalf("expected failure log, got %q", buf.String())
	}
}

func TestPgxLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	base := zerolog.New(&buf)

	if _, level := PgxLogger(base.Level(zerolog.InfoLevel)); level != pgx.LogLevelWarn {
		t.Fatalf("expected warn for an info logger, got %v", level)
	}
	pl, level := PgxLogger(base.Level(zerolog.DebugLevel))
	if level != pgx.LogLevelDebug {
		t.Fatalf("expected debug for a debug logger, got %v", level)
	}

	pl.Log(context.Background(), pgx.LogLevelError, "conn lost", map[string]interface{}{"pid": 7})
	if !strings.Contains(buf.String(), `"component":"pgx"`) || !strings.Contains(buf.String(), "conn lost") {
		t.Fatalf("expected a pgx component line, got %q", buf.String())
	}
}
