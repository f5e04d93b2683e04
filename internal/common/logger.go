package common

import (
	"context"
	"io"
	"log/slog"
	"strings"
)

// NewLogger builds a slog logger from LogConfig writing to w.
func NewLogger(cfg LogConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// LoggerWithContext returns logger enriched with the run and source values carried by ctx.
func LoggerWithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	if runID := RunIDFromContext(ctx); runID != "" {
		logger = logger.With("run_id", runID)
	}
	if src := SourceFromContext(ctx); src != "" {
		logger = logger.With("path", src)
	}
	return logger
}
