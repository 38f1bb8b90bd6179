package jobs

import (
	"context"

	"github.com/rs/zerolog"
)

// LogNotifier implements usecase.Notifier by logging. Email delivery and PDF
// rendering belong to the notification service that consumes these logs.
type LogNotifier struct {
	logger zerolog.Logger
}

// NewLogNotifier creates a new LogNotifier.
func NewLogNotifier(logger zerolog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify logs the event.
func (n *LogNotifier) Notify(_ context.Context, eventType string, payload map[string]any) error {
	n.logger.Info().
		Str("event_type", eventType).
		Fields(payload).
		Msg("notification")

	return nil
}
