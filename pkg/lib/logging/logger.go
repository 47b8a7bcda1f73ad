// Package logging builds the structured loggers used by the daemon.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Standard field keys.
const (
	LaunchIDKey   = "launch_id"
	GenerationKey = "generation"
	StateKey      = "state"
	PIDKey        = "pid"
	OperatorKey   = "operator"
	AttemptKey    = "attempt"
	DelayKey      = "delay"
)

// Config holds the logging configuration.
type Config struct {
	// Level is one of debug, info, warn, error. Default: info
	Level string
	// Format is text or json. Default: text
	Format    string
	Output    io.Writer
	AddSource bool
}

// FromEnv overlays GSV_DEBUG, GSV_LOG_LEVEL and GSV_LOG_FORMAT on base.
func FromEnv(base Config) Config {
	cfg := base

	debug := os.Getenv("GSV_DEBUG")
	if debug == "true" || debug == "1" {
		cfg.Level = "debug"
		cfg.AddSource = true
	} else if level := os.Getenv("GSV_LOG_LEVEL"); level != "" {
		cfg.Level = strings.ToLower(level)
	}

	if format := os.Getenv("GSV_LOG_FORMAT"); format != "" {
		cfg.Format = strings.ToLower(format)
	}

	return cfg
}

// New creates a logger from cfg.
func New(cfg Config) *slog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	opts := &slog.HandlerOptions{
		Level:     parseLevel(cfg.Level),
		AddSource: cfg.AddSource,
	}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}

	return slog.New(handler)
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
