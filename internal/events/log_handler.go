package events

import (
	"context"
	"log/slog"

	"github.com/phrazzld/taskflow-api/internal/platform/logger"
)

// LogHandler writes one structured audit line per event.
type LogHandler struct {
	logger *slog.Logger
}

// NewLogHandler creates an audit log handler.
func NewLogHandler(l *slog.Logger) *LogHandler {
	if l == nil {
		l = slog.Default()
	}
	return &LogHandler{logger: l.With(slog.String("component", "task_audit"))}
}

var _ EventHandler = (*LogHandler)(nil)

// HandleEvent implements EventHandler.
func (h *LogHandler) HandleEvent(ctx context.Context, event *TaskEvent) error {
	logger.FromContextOrDefault(ctx, h.logger).InfoContext(ctx, "task event",
		slog.String("event_id", event.ID.String()),
		slog.String("event_type", event.Type),
		slog.String("task_id", event.TaskID.String()),
		slog.String("actor_id", event.ActorID.String()),
		slog.Any("fields", event.Fields),
		slog.Time("occurred_at", event.OccurredAt))
	return nil
}
