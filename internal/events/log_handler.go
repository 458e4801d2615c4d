package events

import (
	"context"

	"github.com/wolfman30/bridal-quote-platform/pkg/logging"
)

// LogHandler records outbox entries in the log. Used when no queue is configured.
type LogHandler struct {
	logger *logging.Logger
}

func NewLogHandler(logger *logging.Logger) *LogHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &LogHandler{logger: logger}
}

func (h *LogHandler) Handle(ctx context.Context, entry OutboxEntry) error {
	h.logger.Info("domain event", "event_id", entry.ID, "type", entry.Type, "aggregate", entry.Aggregate)
	return nil
}
