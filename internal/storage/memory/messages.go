package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/sudo-init-do/hirfa/internal/alerts"
	"github.com/sudo-init-do/hirfa/internal/messaging"
)

func (s *Store) AppendMessage(_ context.Context, m messaging.Message) error {
	s.mu.Lock()
	s.messages[m.OrderID] = append(s.messages[m.OrderID], m)
	s.mu.Unlock()
	return nil
}

func (s *Store) ListMessages(_ context.Context, orderID string, since *time.Time) ([]messaging.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]messaging.Message, 0, len(s.messages[orderID]))
	for _, m := range s.messages[orderID] {
		if since != nil && !m.CreatedAt.After(*since) {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

func (s *Store) MarkMessagesRead(_ context.Context, orderID, recipientID string, at time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	thread := s.messages[orderID]
	for i := range thread {
		if thread[i].RecipientID == recipientID && thread[i].ReadAt == nil {
			t := at
			thread[i].ReadAt = &t
			thread[i].Status = messaging.StatusRead
			n++
		}
	}
	return n, nil
}

func (s *Store) UnreadCount(_ context.Context, recipientID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, thread := range s.messages {
		for _, m := range thread {
			if m.RecipientID == recipientID && m.ReadAt == nil {
				n++
			}
		}
	}
	return n, nil
}

func (s *Store) CreateNotification(_ context.Context, n alerts.Notification) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = now()
	}
	s.mu.Lock()
	s.notifications = append(s.notifications, n)
	s.mu.Unlock()
	return nil
}

func (s *Store) ListNotifications(_ context.Context, userID string) ([]alerts.Notification, error) {
	s.mu.RLock()
	out := make([]alerts.Notification, 0)
	for _, n := range s.notifications {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	s.mu.RUnlock()
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) MarkNotificationRead(_ context.Context, id, userID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.notifications {
		n := &s.notifications[i]
		if n.ID == id && n.UserID == userID && n.ReadAt == nil {
			t := at
			n.ReadAt = &t
			return nil
		}
	}
	return alerts.ErrNotificationNotFound
}
