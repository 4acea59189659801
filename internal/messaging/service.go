package messaging

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/sudo-init-do/hirfa/internal/alerts"
	"github.com/sudo-init-do/hirfa/internal/clock"
	"github.com/sudo-init-do/hirfa/internal/order"
)

const maxContentLen = 2000

// Orders is the slice of the order engine messaging relies on.
type Orders interface {
	Get(ctx context.Context, orderID string, a order.Actor) (order.View, error)
	MarkUnread(ctx context.Context, orderID string) error
	MarkRead(ctx context.Context, orderID string, a order.Actor) error
}

type Service struct {
	log    Log
	orders Orders
	dir    order.Directory
	notes  alerts.NotificationStore
	hub    *Hub
	clock  clock.Clock
	logger *zap.Logger
}

func NewService(log Log, orders Orders, dir order.Directory, notes alerts.NotificationStore, hub *Hub, clk clock.Clock, logger *zap.Logger) *Service {
	return &Service{log: log, orders: orders, dir: dir, notes: notes, hub: hub, clock: clk, logger: logger.Named("messaging")}
}

type SendRequest struct {
	Content string      `json:"content"`
	Type    MessageType `json:"type"`
}

func (r *SendRequest) normalize() error {
	r.Content = strings.TrimSpace(r.Content)
	if r.Content == "" {
		return errors.Wrap(order.ErrValidation, "content is required")
	}
	if utf8.RuneCountInString(r.Content) > maxContentLen {
		return errors.Wrapf(order.ErrValidation, "content exceeds %d characters", maxContentLen)
	}
	switch r.Type {
	case "":
		r.Type = TypeText
	case TypeText, TypeImage, TypeLocation:
	default:
		return errors.Wrapf(order.ErrValidation, "unknown message type %q", r.Type)
	}
	return nil
}

// participant loads the order and returns the other party of a.
func (s *Service) participant(ctx context.Context, orderID string, a order.Actor) (string, error) {
	v, err := s.orders.Get(ctx, orderID, a)
	if err != nil {
		return "", err
	}
	if !v.Order.IsParty(a) {
		return "", errors.Wrapf(order.ErrUnauthorized, "%s is not a party to order %s", a.ID, orderID)
	}
	if a.ID == v.Order.ClientID {
		return v.Order.CraftsmanID, nil
	}
	return v.Order.ClientID, nil
}

// Send appends a message to the order thread and flags the order unread.
func (s *Service) Send(ctx context.Context, a order.Actor, orderID string, req SendRequest) (Message, error) {
	if err := req.normalize(); err != nil {
		return Message{}, err
	}
	recipient, err := s.participant(ctx, orderID, a)
	if err != nil {
		return Message{}, err
	}
	if recipient == "" {
		return Message{}, errors.Wrapf(order.ErrInvalidTransition, "order %s has no craftsman yet", orderID)
	}

	m := Message{
		ID:          uuid.NewString(),
		OrderID:     orderID,
		SenderID:    a.ID,
		RecipientID: recipient,
		Content:     req.Content,
		Type:        req.Type,
		Status:      StatusSent,
		CreatedAt:   s.clock.Now(),
	}
	if err := s.log.AppendMessage(ctx, m); err != nil {
		return Message{}, errors.Wrapf(order.ErrCollaboratorUnavailable, "append message: %v", err)
	}
	if err := s.orders.MarkUnread(ctx, orderID); err != nil {
		s.logger.Warn("mark unread failed", zap.String("order_id", orderID), zap.Error(err))
	}

	s.notify(ctx, a, m)
	s.hub.Broadcast(orderID, EventMessageNew, m)
	return m, nil
}

func (s *Service) notify(ctx context.Context, a order.Actor, m Message) {
	name := a.ID
	if p, err := s.dir.Profile(ctx, a.ID); err == nil && p.Name != "" {
		name = p.Name
	}
	err := s.notes.CreateNotification(ctx, alerts.Notification{
		UserID:    m.RecipientID,
		Type:      alerts.NotifyMessageNew,
		Title:     "رسالة جديدة",
		Body:      fmt.Sprintf("رسالة من %s", name),
		Reference: m.OrderID,
		CreatedAt: m.CreatedAt,
	})
	if err != nil {
		s.logger.Warn("message notification failed", zap.String("order_id", m.OrderID), zap.Error(err))
	}
}

// List returns the thread oldest first and marks everything addressed to a as read.
func (s *Service) List(ctx context.Context, a order.Actor, orderID string, since *time.Time) ([]Message, error) {
	if _, err := s.participant(ctx, orderID, a); err != nil {
		return nil, err
	}
	msgs, err := s.log.ListMessages(ctx, orderID, since)
	if err != nil {
		return nil, errors.Wrapf(order.ErrCollaboratorUnavailable, "list messages: %v", err)
	}

	now := s.clock.Now()
	n, err := s.log.MarkMessagesRead(ctx, orderID, a.ID, now)
	if err != nil {
		return nil, errors.Wrapf(order.ErrCollaboratorUnavailable, "mark messages read: %v", err)
	}
	for i := range msgs {
		if msgs[i].RecipientID == a.ID && msgs[i].ReadAt == nil {
			t := now
			msgs[i].ReadAt = &t
			msgs[i].Status = StatusRead
		}
	}
	if n == 0 {
		return msgs, nil
	}
	// only the party the unread messages were addressed to clears the order flag
	if err := s.orders.MarkRead(ctx, orderID, a); err != nil {
		s.logger.Warn("mark read failed", zap.String("order_id", orderID), zap.Error(err))
	}
	s.hub.Broadcast(orderID, EventMessageRead, map[string]interface{}{
		"order_id": orderID,
		"user_id":  a.ID,
		"read_at":  now,
		"count":    n,
	})
	return msgs, nil
}

// UnreadCount counts messages addressed to a that are still unread.
func (s *Service) UnreadCount(ctx context.Context, a order.Actor) (int, error) {
	n, err := s.log.UnreadCount(ctx, a.ID)
	if err != nil {
		return 0, errors.Wrapf(order.ErrCollaboratorUnavailable, "unread count: %v", err)
	}
	return n, nil
}

// Authorize reports whether a may follow the order's realtime stream.
func (s *Service) Authorize(ctx context.Context, a order.Actor, orderID string) error {
	_, err := s.participant(ctx, orderID, a)
	return err
}
