package audit

import (
	"context"
	"log/slog"

	"renthub/internal/models"
)

// LogSink writes events to a structured logger. Useful in development and as a fan-out member.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink logs through logger, or slog.Default() when nil.
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger}
}

func (s *LogSink) Record(ctx context.Context, ev *models.EventLog) error {
	level := slog.LevelInfo
	if ev.Status == models.EventFailure {
		level = slog.LevelWarn
	}
	s.logger.Log(ctx, level, "audit",
		"event_type", ev.EventType,
		"status", ev.Status,
		"user", ev.User.Hex(),
		"role", ev.UserRole,
		"target_type", ev.TargetType,
		"target_id", ev.TargetID.Hex(),
		"description", ev.Description,
	)
	return nil
}
