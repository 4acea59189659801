package subscription

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sudo-init-do/hirfa/internal/clock"
)

// Service owns the subscribe/cancel lifecycle of craftsman subscriptions.
type Service struct {
	ledger Ledger
	clock  clock.Clock
	log    *zap.Logger
}

func NewService(ledger Ledger, clk clock.Clock, log *zap.Logger) *Service {
	if clk == nil {
		clk = clock.System{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{ledger: ledger, clock: clk, log: log.Named("subscription.service")}
}

// Subscribe replaces any prior record for the craftsman with a fresh active one.
func (s *Service) Subscribe(ctx context.Context, craftsmanID, plan string, price float64, planType PlanType) (Subscription, error) {
	sub, err := New(uuid.NewString(), craftsmanID, plan, price, planType, s.clock.Now())
	if err != nil {
		return Subscription{}, err
	}
	if err := s.ledger.PutSubscription(ctx, sub); err != nil {
		return Subscription{}, err
	}
	s.log.Info("subscription activated",
		zap.String("craftsman_id", craftsmanID),
		zap.String("plan_type", string(planType)),
		zap.Time("end_date", sub.EndDate),
	)
	return sub, nil
}

// SubscribePlan subscribes to a catalogue plan.
func (s *Service) SubscribePlan(ctx context.Context, craftsmanID string, p Plan) (Subscription, error) {
	return s.Subscribe(ctx, craftsmanID, p.Name, p.Price, p.Type)
}

// Current returns the stored record and its derived entitlement.
func (s *Service) Current(ctx context.Context, craftsmanID string) (*Subscription, bool, error) {
	sub, err := s.ledger.GetSubscription(ctx, craftsmanID)
	if err != nil {
		return nil, false, err
	}
	return sub, HasActiveEntitlement(sub, s.clock.Now()), nil
}

// Cancel marks the current record cancelled. No refund handling. A record replaced by a
// concurrent Subscribe is left alone and ErrSuperseded is returned.
func (s *Service) Cancel(ctx context.Context, craftsmanID string) (Subscription, error) {
	sub, err := s.ledger.GetSubscription(ctx, craftsmanID)
	if err != nil {
		return Subscription{}, err
	}
	if sub == nil {
		return Subscription{}, ErrNotFound
	}
	ok, err := s.ledger.CancelSubscription(ctx, craftsmanID, sub.ID)
	if err != nil {
		return Subscription{}, err
	}
	if !ok {
		s.log.Warn("cancel lost to a newer subscription", zap.String("craftsman_id", craftsmanID), zap.String("subscription_id", sub.ID))
		return Subscription{}, ErrSuperseded
	}
	sub.Status = StatusCancelled
	s.log.Info("subscription cancelled", zap.String("craftsman_id", craftsmanID))
	return *sub, nil
}
