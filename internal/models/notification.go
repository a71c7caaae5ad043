package models

import "time"

// NotificationKind classifies a toast shown to the user.
type NotificationKind string

const (
	NotificationSuccess NotificationKind = "success"
	NotificationFailure NotificationKind = "failure"
)

// Notification is a toast addressed to one page session.
type Notification struct {
	SessionID string           `json:"-"`
	Kind      NotificationKind `json:"kind"`
	Message   string           `json:"message"`
	CreatedAt time.Time        `json:"created_at"`
}
