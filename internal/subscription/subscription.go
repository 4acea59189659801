package subscription

import (
	"context"
	"errors"
	"time"
)

type PlanType string

const (
	Monthly PlanType = "monthly"
	Yearly  PlanType = "yearly"
)

type Status string

const (
	StatusActive    Status = "active"
	StatusExpired   Status = "expired"
	StatusCancelled Status = "cancelled"
)

var (
	ErrNotFound     = errors.New("subscription_not_found")
	ErrInvalidPlan  = errors.New("invalid_plan")
	ErrInvalidPrice = errors.New("invalid_price")
	ErrSuperseded   = errors.New("subscription_superseded")
)

// Duration returns the entitlement window of a plan type.
func (p PlanType) Duration() (time.Duration, bool) {
	switch p {
	case Monthly:
		return 30 * 24 * time.Hour, true
	case Yearly:
		return 365 * 24 * time.Hour, true
	}
	return 0, false
}

// Subscription is keyed by craftsman id; a new subscribe replaces the previous record.
type Subscription struct {
	ID          string    `json:"id"`
	CraftsmanID string    `json:"craftsman_id"`
	Plan        string    `json:"plan"`
	Price       float64   `json:"price"`
	Type        PlanType  `json:"plan_type"`
	Status      Status    `json:"status"`
	StartDate   time.Time `json:"start_date"`
	EndDate     time.Time `json:"end_date"`
}

// New builds an active subscription starting at now.
func New(id, craftsmanID, plan string, price float64, planType PlanType, now time.Time) (Subscription, error) {
	d, ok := planType.Duration()
	if !ok || plan == "" {
		return Subscription{}, ErrInvalidPlan
	}
	if price < 0 {
		return Subscription{}, ErrInvalidPrice
	}
	return Subscription{
		ID:          id,
		CraftsmanID: craftsmanID,
		Plan:        plan,
		Price:       price,
		Type:        planType,
		Status:      StatusActive,
		StartDate:   now,
		EndDate:     now.Add(d),
	}, nil
}

// Entitled reports status == active AND now < end date. Status is never rewritten here;
// an elapsed active subscription keeps reporting "active" until something else writes it.
func (s Subscription) Entitled(now time.Time) bool {
	return s.Status == StatusActive && now.Before(s.EndDate)
}

// HasActiveEntitlement is Entitled for a possibly missing record.
func HasActiveEntitlement(s *Subscription, now time.Time) bool {
	return s != nil && s.Entitled(now)
}

// Reader is the read side consulted by the order engine. A craftsman with no record
// yields (nil, nil).
type Reader interface {
	GetSubscription(ctx context.Context, craftsmanID string) (*Subscription, error)
}

type Ledger interface {
	Reader
	PutSubscription(ctx context.Context, s Subscription) error
	// CancelSubscription flips record id to cancelled in one step. It reports false when
	// the craftsman's current record is no longer id.
	CancelSubscription(ctx context.Context, craftsmanID, id string) (bool, error)
}
