package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/sudo-init-do/hirfa/internal/alerts"
	"github.com/sudo-init-do/hirfa/internal/messaging"
)

func (s *Store) AppendMessage(ctx context.Context, m messaging.Message) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO messages (id, order_id, sender_id, recipient_id, content, type, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		m.ID, m.OrderID, m.SenderID, m.RecipientID, m.Content, string(m.Type), string(m.Status), m.CreatedAt,
	)
	return err
}

func (s *Store) ListMessages(ctx context.Context, orderID string, since *time.Time) ([]messaging.Message, error) {
	var (
		rows pgx.Rows
		err  error
	)
	const q = `SELECT id::text, order_id::text, sender_id::text, recipient_id::text, content, type, status, created_at, read_at
		FROM messages WHERE order_id = $1`
	if since != nil {
		rows, err = s.pool.Query(ctx, q+` AND created_at > $2 ORDER BY created_at ASC`, orderID, *since)
	} else {
		rows, err = s.pool.Query(ctx, q+` ORDER BY created_at ASC`, orderID)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]messaging.Message, 0)
	for rows.Next() {
		var (
			m          messaging.Message
			mtype, sts string
		)
		if err := rows.Scan(&m.ID, &m.OrderID, &m.SenderID, &m.RecipientID, &m.Content, &mtype, &sts, &m.CreatedAt, &m.ReadAt); err != nil {
			return nil, err
		}
		m.Type = messaging.MessageType(mtype)
		m.Status = messaging.MessageStatus(sts)
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Store) MarkMessagesRead(ctx context.Context, orderID, recipientID string, at time.Time) (int, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE messages SET read_at = $3, status = 'read'
		WHERE order_id = $1 AND recipient_id = $2 AND read_at IS NULL`,
		orderID, recipientID, at,
	)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func (s *Store) UnreadCount(ctx context.Context, recipientID string) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM messages WHERE recipient_id = $1 AND read_at IS NULL`, recipientID,
	).Scan(&n)
	return n, err
}

func (s *Store) CreateNotification(ctx context.Context, n alerts.Notification) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO notifications (id, user_id, type, title, body, reference, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		n.ID, n.UserID, n.Type, n.Title, n.Body, n.Reference, n.CreatedAt,
	)
	return err
}

func (s *Store) ListNotifications(ctx context.Context, userID string) ([]alerts.Notification, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id::text, user_id::text, type, title, body, reference, created_at, read_at
		FROM notifications WHERE user_id = $1 ORDER BY created_at DESC`, userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]alerts.Notification, 0)
	for rows.Next() {
		var n alerts.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Body, &n.Reference, &n.CreatedAt, &n.ReadAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (s *Store) MarkNotificationRead(ctx context.Context, id, userID string, at time.Time) error {
	if !validID(id) {
		return alerts.ErrNotificationNotFound
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE notifications SET read_at = $3 WHERE id = $1 AND user_id = $2 AND read_at IS NULL`, id, userID, at,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return alerts.ErrNotificationNotFound
	}
	return nil
}
