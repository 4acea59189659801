package messaging

import (
	"context"
	"time"
)

type MessageType string

const (
	TypeText     MessageType = "text"
	TypeImage    MessageType = "image"
	TypeLocation MessageType = "location"
)

type MessageStatus string

const (
	StatusSent      MessageStatus = "sent"
	StatusDelivered MessageStatus = "delivered"
	StatusRead      MessageStatus = "read"
)

type Message struct {
	ID          string        `json:"id"`
	OrderID     string        `json:"order_id"`
	SenderID    string        `json:"sender_id"`
	RecipientID string        `json:"recipient_id"`
	Content     string        `json:"content"`
	Type        MessageType   `json:"type"`
	Status      MessageStatus `json:"status"`
	CreatedAt   time.Time     `json:"created_at"`
	ReadAt      *time.Time    `json:"read_at,omitempty"`
}

// Log is the append-only message history of each order.
type Log interface {
	AppendMessage(ctx context.Context, m Message) error
	// ListMessages returns the thread oldest first; since filters strictly newer messages.
	ListMessages(ctx context.Context, orderID string, since *time.Time) ([]Message, error)
	// MarkMessagesRead flips every unread message addressed to recipientID and reports how many changed.
	MarkMessagesRead(ctx context.Context, orderID, recipientID string, at time.Time) (int, error)
	UnreadCount(ctx context.Context, recipientID string) (int, error)
}
