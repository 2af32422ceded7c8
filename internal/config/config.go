package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. VOCAB_REDIS_ADDR.
const EnvPrefix = "VOCAB_"

type Config struct {
	Server struct {
		Port string `yaml:"port" env:"PORT"`
	} `yaml:"server" envPrefix:"SERVER_"`
	Log struct {
		Level  string `yaml:"level" env:"LEVEL"`
		Format string `yaml:"format" env:"FORMAT"`
	} `yaml:"log" envPrefix:"LOG_"`
	Redis struct {
		Addr     string `yaml:"addr" env:"ADDR"`
		Password string `yaml:"password" env:"PASSWORD"`
		DB       int    `yaml:"db" env:"DB"`
		TTL      string `yaml:"ttl" env:"TTL"`
	} `yaml:"redis" envPrefix:"REDIS_"`
	Postgres struct {
		URL string `yaml:"url" env:"URL"`
	} `yaml:"postgres" envPrefix:"POSTGRES_"`
	SQLite struct {
		Path string `yaml:"path" env:"PATH"`
	} `yaml:"sqlite" envPrefix:"SQLITE_"`
	Catalog struct {
		Path string `yaml:"path" env:"PATH"`
		TTL  string `yaml:"ttl" env:"TTL"`
	} `yaml:"catalog" envPrefix:"CATALOG_"`
	Quiz struct {
		DefaultQuestions int    `yaml:"default_questions" env:"DEFAULT_QUESTIONS"`
		SessionTTL       string `yaml:"session_ttl" env:"SESSION_TTL"`
	} `yaml:"quiz" envPrefix:"QUIZ_"`
	Audio struct {
		Endpoint string `yaml:"endpoint" env:"ENDPOINT"`
		CacheTTL string `yaml:"cache_ttl" env:"CACHE_TTL"`
	} `yaml:"audio" envPrefix:"AUDIO_"`
	Streak struct {
		CloseAt  string `yaml:"close_at" env:"CLOSE_AT"`
		Timezone string `yaml:"timezone" env:"TIMEZONE"`
	} `yaml:"streak" envPrefix:"STREAK_"`
}

// Load reads YAML config from path and applies VOCAB_* environment
// overrides on top. A missing file leaves only the environment.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return cfg, err
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return cfg, fmt.Errorf("env overrides: %w", err)
	}
	return cfg, nil
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}

// Location resolves the streak timezone, UTC when unset or unknown.
func (c Config) Location() *time.Location {
	if c.Streak.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Streak.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// CloseAt is the daily streak close time, "00:05" by default.
func (c Config) CloseAt() string {
	if c.Streak.CloseAt == "" {
		return "00:05"
	}
	return c.Streak.CloseAt
}

// NewLogger builds the process logger from the log section.
func (c Config) NewLogger() *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(c.Log.Level)}
	if strings.EqualFold(c.Log.Format, "json") {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func parseLevel(raw string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(raw)); err != nil {
		return slog.LevelInfo
	}
	return level
}
