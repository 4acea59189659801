package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/sudo-init-do/hirfa/internal/auth"
	"github.com/sudo-init-do/hirfa/internal/order"
	"github.com/sudo-init-do/hirfa/internal/subscription"
)

const uniqueViolation = "23505"

const userColumns = `id::text, name, email, password, role, phone, location, specialty, experience, verified, is_active, created_at`

func scanUser(row pgx.Row) (auth.User, error) {
	var (
		u    auth.User
		role string
	)
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &role, &u.Phone, &u.Location,
		&u.Specialty, &u.Experience, &u.Verified, &u.IsActive, &u.CreatedAt)
	u.Role = order.Role(role)
	return u, err
}

func (s *Store) CreateUser(ctx context.Context, u auth.User) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO users (id, name, email, password, role, phone, location, specialty, experience, verified, is_active, created_at)
		VALUES ($1, $2, LOWER($3), $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		u.ID, u.Name, u.Email, u.PasswordHash, string(u.Role), u.Phone, u.Location,
		u.Specialty, u.Experience, u.Verified, u.IsActive, u.CreatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return auth.ErrEmailTaken
	}
	return err
}

func (s *Store) UserByEmail(ctx context.Context, email string) (auth.User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = LOWER($1)`, email))
	if errors.Is(err, pgx.ErrNoRows) {
		return auth.User{}, auth.ErrUserNotFound
	}
	return u, err
}

func (s *Store) UserByID(ctx context.Context, id string) (auth.User, error) {
	if !validID(id) {
		return auth.User{}, auth.ErrUserNotFound
	}
	u, err := scanUser(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return auth.User{}, auth.ErrUserNotFound
	}
	return u, err
}

const profileQuery = `
	SELECT u.id::text, u.name, u.phone, u.location, u.role, u.specialty, u.experience, u.verified,
	       COALESCE(r.rating_average, 0), COALESCE(r.completed_count, 0)
	FROM users u
	LEFT JOIN craftsman_reputation r ON r.craftsman_id = u.id`

func scanProfile(row pgx.Row) (order.Profile, error) {
	var (
		p    order.Profile
		role string
	)
	err := row.Scan(&p.ID, &p.Name, &p.Phone, &p.Location, &role, &p.Specialty, &p.Experience,
		&p.Verified, &p.RatingAverage, &p.CompletedCount)
	p.Role = order.Role(role)
	return p, err
}

func (s *Store) Profile(ctx context.Context, userID string) (order.Profile, error) {
	if !validID(userID) {
		return order.Profile{}, fmt.Errorf("user %s: %w", userID, order.ErrNotFound)
	}
	p, err := scanProfile(s.pool.QueryRow(ctx, profileQuery+` WHERE u.id = $1`, userID))
	if err != nil {
		return order.Profile{}, notFound(err, "user", userID)
	}
	return p, nil
}

func (s *Store) SearchCraftsmen(ctx context.Context, q order.SearchQuery) ([]order.Profile, error) {
	rows, err := s.pool.Query(ctx, profileQuery+`
		WHERE u.role = 'craftsman' AND u.is_active
		  AND ($1 = '' OR u.specialty = $1)
		  AND ($2 = '' OR STRPOS(LOWER(u.location), LOWER($2)) > 0)
		ORDER BY COALESCE(r.rating_average, 0) DESC, u.id`,
		q.Specialty, q.Location,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]order.Profile, 0)
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) GetSubscription(ctx context.Context, craftsmanID string) (*subscription.Subscription, error) {
	if !validID(craftsmanID) {
		return nil, nil
	}
	var (
		sub      subscription.Subscription
		planType string
		status   string
	)
	err := s.pool.QueryRow(ctx, `
		SELECT id::text, craftsman_id::text, plan, price::float8, plan_type, status, start_date, end_date
		FROM subscriptions WHERE craftsman_id = $1`, craftsmanID,
	).Scan(&sub.ID, &sub.CraftsmanID, &sub.Plan, &sub.Price, &planType, &status, &sub.StartDate, &sub.EndDate)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	sub.Type = subscription.PlanType(planType)
	sub.Status = subscription.Status(status)
	return &sub, nil
}

// PutSubscription replaces the craftsman's record.
func (s *Store) PutSubscription(ctx context.Context, sub subscription.Subscription) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO subscriptions (craftsman_id, id, plan, price, plan_type, status, start_date, end_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (craftsman_id) DO UPDATE
		SET id = EXCLUDED.id, plan = EXCLUDED.plan, price = EXCLUDED.price, plan_type = EXCLUDED.plan_type,
		    status = EXCLUDED.status, start_date = EXCLUDED.start_date, end_date = EXCLUDED.end_date`,
		sub.CraftsmanID, sub.ID, sub.Plan, sub.Price, string(sub.Type), string(sub.Status), sub.StartDate, sub.EndDate,
	)
	return err
}

// CancelSubscription only touches the row while it still holds record id.
func (s *Store) CancelSubscription(ctx context.Context, craftsmanID, id string) (bool, error) {
	if !validID(craftsmanID) || !validID(id) {
		return false, nil
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE subscriptions SET status = $3
		WHERE craftsman_id = $1 AND id = $2`,
		craftsmanID, id, string(subscription.StatusCancelled),
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
