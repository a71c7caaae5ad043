package notify

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"adboard/market/internal/models"
)

// Notifier delivers toast notifications to a page session.
type Notifier interface {
	Notify(ctx context.Context, n models.Notification) error
}

// Success builds a success toast for a page session.
func Success(sessionID, message string) models.Notification {
	return models.Notification{
		SessionID: sessionID,
		Kind:      models.NotificationSuccess,
		Message:   message,
		CreatedAt: time.Now().UTC(),
	}
}

// Failure builds a failure toast for a page session.
func Failure(sessionID, message string) models.Notification {
	return models.Notification{
		SessionID: sessionID,
		Kind:      models.NotificationFailure,
		Message:   message,
		CreatedAt: time.Now().UTC(),
	}
}

// LoggingNotifier writes notifications to the log. Useful for development or
// when nothing polls the inbox.
type LoggingNotifier struct{}

// Notify logs the notification.
func (LoggingNotifier) Notify(ctx context.Context, n models.Notification) error {
	entry := log.WithFields(log.Fields{"page_session": n.SessionID, "kind": n.Kind})
	if n.Kind == models.NotificationFailure {
		entry.Warnf("Toast: %s", n.Message)
	} else {
		entry.Infof("Toast: %s", n.Message)
	}
	return nil
}
