// Package config loads the service configuration.
//
// Values come from, in increasing precedence: built-in defaults, the YAML file,
// and QUIZ_ prefixed environment variables (a `.env` file is loaded first when present).
// Nested keys use a double underscore: QUIZ_SERVER__PORT -> server.port.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	_ "github.com/joho/godotenv/autoload"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const envPrefix = "QUIZ_"

type Config struct {
	Env         string            `yaml:"env" koanf:"env" validate:"required,oneof=development test production"`
	Server      ServerConfig      `yaml:"server" koanf:"server"`
	Postgres    PostgresConfig    `yaml:"postgres" koanf:"postgres"`
	Redis       RedisConfig       `yaml:"redis" koanf:"redis"`
	Cache       CacheConfig       `yaml:"cache" koanf:"cache"`
	Logging     LoggingConfig     `yaml:"logging" koanf:"logging"`
	Auth        AuthConfig        `yaml:"auth" koanf:"auth"`
	Feedback    FeedbackConfig    `yaml:"feedback" koanf:"feedback"`
	Leaderboard LeaderboardConfig `yaml:"leaderboard" koanf:"leaderboard"`
	Jobs        JobsConfig        `yaml:"jobs" koanf:"jobs"`
}

type ServerConfig struct {
	Port            string        `yaml:"port" koanf:"port" validate:"required"`
	ReadTimeout     time.Duration `yaml:"read_timeout" koanf:"read_timeout" validate:"gt=0"`
	WriteTimeout    time.Duration `yaml:"write_timeout" koanf:"write_timeout" validate:"gt=0"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" koanf:"idle_timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" koanf:"shutdown_timeout" validate:"gt=0"`
	CORSOrigins     []string      `yaml:"cors_origins" koanf:"cors_origins"`
}

type PostgresConfig struct {
	URL          string `yaml:"url" koanf:"url"`
	MaxOpenConns int    `yaml:"max_open_conns" koanf:"max_open_conns" validate:"gte=0"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr" koanf:"addr"`
	Password string `yaml:"password" koanf:"password"`
	DB       int    `yaml:"db" koanf:"db" validate:"gte=0"`
}

type CacheConfig struct {
	AnswerKeyTTL   time.Duration `yaml:"answer_key_ttl" koanf:"answer_key_ttl" validate:"gte=0"`
	LeaderboardTTL time.Duration `yaml:"leaderboard_ttl" koanf:"leaderboard_ttl" validate:"gte=0"`
}

type LoggingConfig struct {
	Level              string        `yaml:"level" koanf:"level" validate:"oneof=trace debug info warn error"`
	Format             string        `yaml:"format" koanf:"format" validate:"oneof=json console"`
	SlowQueryThreshold time.Duration `yaml:"slow_query_threshold" koanf:"slow_query_threshold" validate:"gte=0"`
}

// AuthConfig describes the identity provider. Tokens are verified with PublicKeyPEM (RS256)
// when set, otherwise with HMACSecret (HS256).
type AuthConfig struct {
	Issuer           string `yaml:"issuer" koanf:"issuer"`
	Audience         string `yaml:"audience" koanf:"audience"`
	PublicKeyPEM     string `yaml:"public_key_pem" koanf:"public_key_pem"`
	HMACSecret       string `yaml:"hmac_secret" koanf:"hmac_secret"`
	AdminRole        string `yaml:"admin_role" koanf:"admin_role" validate:"required"`
	TokenURL         string `yaml:"token_url" koanf:"token_url" validate:"omitempty,url"`
	ClientID         string `yaml:"client_id" koanf:"client_id"`
	ClientSecret     string `yaml:"client_secret" koanf:"client_secret"`
	ExchangeAudience string `yaml:"exchange_audience" koanf:"exchange_audience"`
}

type FeedbackConfig struct {
	BaseURL  string        `yaml:"base_url" koanf:"base_url" validate:"omitempty,url"`
	Timeout  time.Duration `yaml:"timeout" koanf:"timeout" validate:"gt=0"`
	Audience string        `yaml:"audience" koanf:"audience"`
}

type LeaderboardConfig struct {
	Schedule string `yaml:"schedule" koanf:"schedule"`
	Size     int    `yaml:"size" koanf:"size" validate:"gt=0,lte=1000"`
}

type JobsConfig struct {
	Concurrency int `yaml:"concurrency" koanf:"concurrency" validate:"gt=0"`
}

func Default() Config {
	return Config{
		Env: "development",
		Server: ServerConfig{
			Port:            "8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			CORSOrigins:     []string{"*"},
		},
		Postgres: PostgresConfig{MaxOpenConns: 10},
		Cache: CacheConfig{
			AnswerKeyTTL:   10 * time.Minute,
			LeaderboardTTL: 5 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:              "info",
			Format:             "console",
			SlowQueryThreshold: 200 * time.Millisecond,
		},
		Auth:        AuthConfig{AdminRole: "admin"},
		Feedback:    FeedbackConfig{Timeout: 5 * time.Second, Audience: "feedback-service"},
		Leaderboard: LeaderboardConfig{Schedule: "@every 15m", Size: 100},
		Jobs:        JobsConfig{Concurrency: 10},
	}
}

// Load reads YAML config from path, applies environment overrides and validates the result.
// A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return cfg, errors.Wrapf(err, "read config %s", path)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, errors.Wrapf(err, "parse config %s", path)
			}
		}
	}

	k := koanf.New(".")
	if err := k.Load(env.ProviderWithValue(envPrefix, ".", envKey), nil); err != nil {
		return cfg, errors.Wrap(err, "load env config")
	}
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return cfg, errors.Wrap(err, "decode env config")
	}

	if err := validator.New().Struct(cfg); err != nil {
		return cfg, errors.Wrap(err, "invalid config")
	}
	return cfg, nil
}

// envKey maps QUIZ_SERVER__CORS_ORIGINS=a,b to server.cors_origins=[a b].
func envKey(key, value string) (string, interface{}) {
	key = strings.ToLower(strings.TrimPrefix(key, envPrefix))
	key = strings.ReplaceAll(key, "__", ".")
	if strings.HasSuffix(key, "cors_origins") {
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return key, parts
	}
	return key, value
}

func (c Config) IsProduction() bool {
	return c.Env == "production"
}
