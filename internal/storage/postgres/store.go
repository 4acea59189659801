// Package postgres implements the storage contracts on PostgreSQL via pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sudo-init-do/hirfa/internal/order"
	"github.com/sudo-init-do/hirfa/internal/reputation"
)

type Store struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

const orderColumns = `id::text, title, description, category, price::float8, location, image_url,
	client_id::text, client_name, client_phone, client_location,
	COALESCE(craftsman_id::text, ''), craftsman_name, craftsman_phone,
	status, client_approved, contact_unlocked, has_unread_messages,
	rating, review, cancel_reason, reject_reason,
	created_at, engaged_at, accepted_at, started_at, completed_at, rated_at, rejected_at, cancelled_at,
	version`

func scanOrder(row pgx.Row) (*order.Order, error) {
	var (
		o      order.Order
		status string
		rating *int16
	)
	err := row.Scan(
		&o.ID, &o.Title, &o.Description, &o.Category, &o.Price, &o.Location, &o.ImageURL,
		&o.ClientID, &o.ClientName, &o.ClientPhone, &o.ClientLocation,
		&o.CraftsmanID, &o.CraftsmanName, &o.CraftsmanPhone,
		&status, &o.ClientApproved, &o.ContactUnlocked, &o.HasUnreadMessages,
		&rating, &o.Review, &o.CancelReason, &o.RejectReason,
		&o.CreatedAt, &o.EngagedAt, &o.AcceptedAt, &o.StartedAt, &o.CompletedAt, &o.RatedAt, &o.RejectedAt, &o.CancelledAt,
		&o.Version,
	)
	if err != nil {
		return nil, err
	}
	o.Status = order.Status(status)
	if rating != nil {
		r := int(*rating)
		o.Rating = &r
	}
	return &o, nil
}

func notFound(err error, what, id string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s %s: %w", what, id, order.ErrNotFound)
	}
	return err
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func (s *Store) GetOrder(ctx context.Context, id string) (*order.Order, error) {
	if !validID(id) {
		return nil, fmt.Errorf("order %s: %w", id, order.ErrNotFound)
	}
	o, err := scanOrder(s.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err, "order", id)
	}
	return o, nil
}

func (s *Store) ListOrders(ctx context.Context, f order.Filter) ([]order.Order, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if !validID(f.ParticipantID) && !(f.Role == order.RoleCraftsman && f.IncludeOpen) {
		return []order.Order{}, nil
	}
	switch f.Role {
	case order.RoleClient:
		where = append(where, "client_id = "+arg(f.ParticipantID))
	case order.RoleCraftsman:
		own := "FALSE"
		if validID(f.ParticipantID) {
			own = "craftsman_id = " + arg(f.ParticipantID)
		}
		if f.IncludeOpen {
			own = "(" + own + " OR (craftsman_id IS NULL AND status = 'pending'))"
		}
		where = append(where, own)
	default:
		return []order.Order{}, nil
	}
	if len(f.Statuses) > 0 {
		statuses := make([]string, len(f.Statuses))
		for i, st := range f.Statuses {
			statuses[i] = string(st)
		}
		where = append(where, "status = ANY("+arg(statuses)+")")
	}

	q := `SELECT ` + orderColumns + ` FROM orders WHERE ` + strings.Join(where, " AND ") + ` ORDER BY created_at DESC, id DESC`
	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]order.Order, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	return out, rows.Err()
}

// InTx runs fn inside a database transaction. Row locks taken with SELECT ... FOR UPDATE
// serialise commands on the same order or craftsman across processes.
func (s *Store) InTx(ctx context.Context, fn func(order.Tx) error) error {
	dbtx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("transaction start failed: %w", err)
	}
	defer dbtx.Rollback(context.Background())

	if err := fn(&tx{tx: dbtx}); err != nil {
		return err
	}
	if err := dbtx.Commit(ctx); err != nil {
		return fmt.Errorf("commit failed: %w", err)
	}
	return nil
}

type tx struct {
	tx pgx.Tx
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func (t *tx) InsertOrder(ctx context.Context, o *order.Order) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO orders (id, title, description, category, price, location, image_url,
			client_id, client_name, client_phone, client_location,
			craftsman_id, craftsman_name, craftsman_phone, status, created_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		o.ID, o.Title, o.Description, o.Category, o.Price, o.Location, o.ImageURL,
		o.ClientID, o.ClientName, o.ClientPhone, o.ClientLocation,
		nullable(o.CraftsmanID), o.CraftsmanName, o.CraftsmanPhone, string(o.Status), o.CreatedAt, o.Version,
	)
	return err
}

func (t *tx) LockOrder(ctx context.Context, id string) (*order.Order, error) {
	if !validID(id) {
		return nil, fmt.Errorf("order %s: %w", id, order.ErrNotFound)
	}
	o, err := scanOrder(t.tx.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, notFound(err, "order", id)
	}
	return o, nil
}

func (t *tx) SaveOrder(ctx context.Context, o *order.Order) error {
	var rating any
	if o.Rating != nil {
		rating = *o.Rating
	}
	tag, err := t.tx.Exec(ctx, `
		UPDATE orders SET
			craftsman_id = $2, craftsman_name = $3, craftsman_phone = $4,
			status = $5, client_approved = $6, contact_unlocked = $7, has_unread_messages = $8,
			rating = $9, review = $10, cancel_reason = $11, reject_reason = $12,
			engaged_at = $13, accepted_at = $14, started_at = $15, completed_at = $16,
			rated_at = $17, rejected_at = $18, cancelled_at = $19, version = $20
		WHERE id = $1`,
		o.ID, nullable(o.CraftsmanID), o.CraftsmanName, o.CraftsmanPhone,
		string(o.Status), o.ClientApproved, o.ContactUnlocked, o.HasUnreadMessages,
		rating, o.Review, o.CancelReason, o.RejectReason,
		o.EngagedAt, o.AcceptedAt, o.StartedAt, o.CompletedAt,
		o.RatedAt, o.RejectedAt, o.CancelledAt, o.Version,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() != 1 {
		return fmt.Errorf("order %s: %w", o.ID, order.ErrNotFound)
	}
	return nil
}

func (t *tx) Reputation() reputation.Ledger { return txLedger{t.tx} }

type txLedger struct {
	tx pgx.Tx
}

// Get creates the record on first use so the row lock always has a row to hold.
func (l txLedger) Get(ctx context.Context, craftsmanID string) (reputation.Record, error) {
	if _, err := l.tx.Exec(ctx, `
		INSERT INTO craftsman_reputation (craftsman_id) VALUES ($1)
		ON CONFLICT (craftsman_id) DO NOTHING`, craftsmanID); err != nil {
		return reputation.Record{}, err
	}
	rec := reputation.Record{CraftsmanID: craftsmanID}
	err := l.tx.QueryRow(ctx, `
		SELECT rating_average, completed_count FROM craftsman_reputation
		WHERE craftsman_id = $1 FOR UPDATE`, craftsmanID,
	).Scan(&rec.RatingAverage, &rec.CompletedCount)
	return rec, err
}

func (l txLedger) Set(ctx context.Context, rec reputation.Record) error {
	return setReputation(ctx, l.tx, rec)
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func (s *Store) GetReputation(ctx context.Context, craftsmanID string) (reputation.Record, error) {
	rec := reputation.Record{CraftsmanID: craftsmanID}
	if !validID(craftsmanID) {
		return rec, nil
	}
	err := s.pool.QueryRow(ctx, `
		SELECT rating_average, completed_count FROM craftsman_reputation WHERE craftsman_id = $1`,
		craftsmanID,
	).Scan(&rec.RatingAverage, &rec.CompletedCount)
	if errors.Is(err, pgx.ErrNoRows) {
		return rec, nil
	}
	return rec, err
}

func (s *Store) SetReputation(ctx context.Context, rec reputation.Record) error {
	return setReputation(ctx, s.pool, rec)
}

func setReputation(ctx context.Context, db execer, rec reputation.Record) error {
	_, err := db.Exec(ctx, `
		INSERT INTO craftsman_reputation (craftsman_id, rating_average, completed_count, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (craftsman_id) DO UPDATE
		SET rating_average = EXCLUDED.rating_average,
		    completed_count = EXCLUDED.completed_count,
		    updated_at = EXCLUDED.updated_at`,
		rec.CraftsmanID, rec.RatingAverage, rec.CompletedCount, time.Now().UTC(),
	)
	return err
}
