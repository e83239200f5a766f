package notify

import (
	"context"

	"github.com/rs/zerolog"
)

// LogNotifier writes admin notifications to the log instead of a real
// channel. Used when no bot token is configured, so the relay stays
// runnable in local development without Telegram credentials.
type LogNotifier struct {
	logger zerolog.Logger
}

func NewLogNotifier(logger zerolog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(_ context.Context, text string, actions ...Action) error {
	event := n.logger.Info().Str("text", text)
	for _, action := range actions {
		event = event.Str("action_"+action.Label, action.Token)
	}
	event.Msg("Admin notification (log only)")
	return nil
}

func (n *LogNotifier) Acknowledge(_ context.Context, interactionID, text string) error {
	n.logger.Info().
		Str("interaction_id", interactionID).
		Str("text", text).
		Msg("Admin acknowledgement (log only)")
	return nil
}

var (
	_ Notifier = (*Telegram)(nil)
	_ Notifier = (*LogNotifier)(nil)
)
