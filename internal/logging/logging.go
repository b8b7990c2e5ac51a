// Package logging builds the application slog.Logger from configuration.
package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"

	"visitcounter/internal/config"
)

// NewLogger creates the application logger. In production it writes JSON
// records through a size/age-rotated file; elsewhere it writes text to
// stderr. Pass a non-nil writer to override the destination (tests).
func NewLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	level := parseLevel(cfg.GetLogLevel())
	opts := &slog.HandlerOptions{Level: level}

	if w != nil {
		return slog.New(slog.NewTextHandler(w, opts))
	}

	if cfg.IsProduction() {
		rotated := &lumberjack.Logger{
			Filename:   filepath.Join(cfg.LogsDirectory, cfg.AppName+".log"),
			MaxSize:    cfg.LogsMaxSizeInMb,
			MaxBackups: cfg.LogsMaxBackups,
			MaxAge:     cfg.LogsMaxAgeInDays,
			Compress:   true,
		}
		return slog.New(slog.NewJSONHandler(io.MultiWriter(os.Stdout, rotated), opts))
	}

	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func parseLevel(level string) slog.Level {
	switch level {
	case string(config.LogLevelDebug):
		return slog.LevelDebug
	case string(config.LogLevelInfo):
		return slog.LevelInfo
	case string(config.LogLevelWarn):
		return slog.LevelWarn
	case string(config.LogLevelError):
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
