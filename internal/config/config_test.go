package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "8080" || cfg.Leaderboard.Size != 100 || cfg.Leaderboard.Schedule != "@every 15m" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadYAMLThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
env: test
server:
  port: "9090"
redis:
  addr: localhost:6379
cache:
  answer_key_ttl: 30s
leaderboard:
  size: 50
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("QUIZ_SERVER__PORT", "7070")
	t.Setenv("QUIZ_LOGGING__SLOW_QUERY_THRESHOLD", "1s")
	t.Setenv("QUIZ_SERVER__CORS_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Env != "test" {
		t.Fatalf("expected env from yaml, got %q", cfg.Env)
	}
	if cfg.Server.Port != "7070" {
		t.Fatalf("expected env override for port, got %q", cfg.Server.Port)
	}
	if cfg.Cache.AnswerKeyTTL != 30*time.Second {
		t.Fatalf("expected yaml ttl, got %v", cfg.Cache.AnswerKeyTTL)
	}
	if cfg.Logging.SlowQueryThreshold != time.Second {
		t.Fatalf("expected env duration, got %v", cfg.Logging.SlowQueryThreshold)
	}
	if cfg.Leaderboard.Size != 50 || cfg.Redis.Addr != "localhost:6379" {
		t.Fatalf("unexpected yaml values: %+v", cfg)
	}
	if len(cfg.Server.CORSOrigins) != 2 || cfg.Server.CORSOrigins[1] != "https://b.example" {
		t.Fatalf("unexpected cors origins: %v", cfg.Server.CORSOrigins)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("env: staging\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected validation error for unknown env")
	}
}
