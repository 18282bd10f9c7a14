package config

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger builds the root logger: human-readable console output in
// development, JSON lines otherwise.
func NewLogger(cfg *Config) zerolog.Logger {
	return newLogger(cfg, os.Stderr)
}

func newLogger(cfg *Config, out io.Writer) zerolog.Logger {
	level, err := parseLevel(cfg.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	if cfg.IsDevelopment() {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	return zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		Str("service", "lease-engine").
		Str("env", cfg.App.Env).
		Logger()
}

func parseLevel(s string) (zerolog.Level, error) {
	if s == "" {
		return zerolog.InfoLevel, nil
	}
	level, err := zerolog.ParseLevel(s)
	if err != nil || level == zerolog.NoLevel {
		return zerolog.NoLevel, fmt.Errorf("log.level %q is not a valid level", s)
	}
	return level, nil
}
