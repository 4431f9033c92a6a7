package clients

import (
	"context"

	"foodorder/internal/logger"
)

// LogNotifier writes notifications to the structured log instead of delivering them.
type LogNotifier struct {
	log *logger.Logger
}

func NewLogNotifier(log *logger.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

// Notify implements services.Notifier.
func (n *LogNotifier) Notify(ctx context.Context, userID, event string, payload map[string]any) error {
	n.log.Info("notification", logger.RequestID(ctx), "Notification for "+userID, map[string]any{
		"user_id": userID,
		"event":   event,
		"payload": payload,
	})
	return nil
}
