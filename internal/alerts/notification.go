package alerts

import (
	"context"
	"errors"
	"time"
)

var ErrNotificationNotFound = errors.New("notification_not_found")

// Notification is an in-app inbox item produced from an order event.
type Notification struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	Type      string     `json:"type"`
	Title     string     `json:"title"`
	Body      string     `json:"body"`
	Reference string     `json:"reference,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	ReadAt    *time.Time `json:"read_at"`
}

type NotificationStore interface {
	CreateNotification(ctx context.Context, n Notification) error
	ListNotifications(ctx context.Context, userID string) ([]Notification, error)
	// MarkNotificationRead returns ErrNotificationNotFound if the item is missing, not
	// owned by userID or already read.
	MarkNotificationRead(ctx context.Context, id, userID string, at time.Time) error
}
