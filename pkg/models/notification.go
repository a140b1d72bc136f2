package models

import "time"

// NotificationKind classifies a notification.
type NotificationKind string

const (
	NotificationInfo    NotificationKind = "info"
	NotificationError   NotificationKind = "error"
	NotificationSuccess NotificationKind = "success"
)

// NotificationItem is a transient user facing message. It is never mutated after creation.
type NotificationItem struct {
	ID        string           `json:"id"`
	Kind      NotificationKind `json:"kind"`
	Title     string           `json:"title"`
	List      []string         `json:"list"`
	CreatedAt time.Time        `json:"created_at"`
}
