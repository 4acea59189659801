// Package memory is an in-process implementation of every storage contract, used by
// tests and by STORE=memory deployments.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/sudo-init-do/hirfa/internal/alerts"
	"github.com/sudo-init-do/hirfa/internal/auth"
	"github.com/sudo-init-do/hirfa/internal/messaging"
	"github.com/sudo-init-do/hirfa/internal/order"
	"github.com/sudo-init-do/hirfa/internal/reputation"
	"github.com/sudo-init-do/hirfa/internal/subscription"
)

type Store struct {
	mu            sync.RWMutex
	orders        map[string]*order.Order
	reputation    map[string]reputation.Record
	subscriptions map[string]subscription.Subscription
	users         map[string]auth.User
	emails        map[string]string
	messages      map[string][]messaging.Message
	notifications []alerts.Notification

	locks *keyLocks
}

func New() *Store {
	return &Store{
		orders:        make(map[string]*order.Order),
		reputation:    make(map[string]reputation.Record),
		subscriptions: make(map[string]subscription.Subscription),
		users:         make(map[string]auth.User),
		emails:        make(map[string]string),
		messages:      make(map[string][]messaging.Message),
		locks:         newKeyLocks(),
	}
}

func orderKey(id string) string { return "order:" + id }
func repKey(id string) string   { return "reputation:" + id }

func (s *Store) GetOrder(_ context.Context, id string) (*order.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, errors.Wrapf(order.ErrNotFound, "order %s", id)
	}
	return o.Clone(), nil
}

func (s *Store) ListOrders(_ context.Context, f order.Filter) ([]order.Order, error) {
	s.mu.RLock()
	out := make([]order.Order, 0)
	for _, o := range s.orders {
		if f.Match(o) {
			out = append(out, *o.Clone())
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) InTx(ctx context.Context, fn func(order.Tx) error) error {
	t := &tx{
		s:       s,
		held:    make(map[string]func()),
		orders:  make(map[string]*order.Order),
		inserts: make(map[string]bool),
		reps:    make(map[string]reputation.Record),
	}
	defer t.release()

	if err := fn(t); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	t.commit()
	return nil
}

// tx stages writes and applies them in one critical section at commit.
type tx struct {
	s       *Store
	held    map[string]func()
	orders  map[string]*order.Order
	inserts map[string]bool
	reps    map[string]reputation.Record
}

func (t *tx) acquire(ctx context.Context, key string) error {
	if _, ok := t.held[key]; ok {
		return nil
	}
	unlock, err := t.s.locks.lock(ctx, key)
	if err != nil {
		return err
	}
	t.held[key] = unlock
	return nil
}

func (t *tx) release() {
	for _, unlock := range t.held {
		unlock()
	}
	t.held = nil
}

func (t *tx) InsertOrder(ctx context.Context, o *order.Order) error {
	if err := t.acquire(ctx, orderKey(o.ID)); err != nil {
		return err
	}
	t.s.mu.RLock()
	_, exists := t.s.orders[o.ID]
	t.s.mu.RUnlock()
	if exists || t.inserts[o.ID] {
		return errors.Errorf("order %s already exists", o.ID)
	}
	t.orders[o.ID] = o.Clone()
	t.inserts[o.ID] = true
	return nil
}

func (t *tx) LockOrder(ctx context.Context, id string) (*order.Order, error) {
	if err := t.acquire(ctx, orderKey(id)); err != nil {
		return nil, err
	}
	if staged, ok := t.orders[id]; ok {
		return staged.Clone(), nil
	}
	return t.s.GetOrder(ctx, id)
}

func (t *tx) SaveOrder(_ context.Context, o *order.Order) error {
	if _, ok := t.held[orderKey(o.ID)]; !ok {
		return errors.Errorf("order %s saved without lock", o.ID)
	}
	t.orders[o.ID] = o.Clone()
	return nil
}

func (t *tx) Reputation() reputation.Ledger { return txLedger{t} }

type txLedger struct{ t *tx }

func (l txLedger) Get(ctx context.Context, craftsmanID string) (reputation.Record, error) {
	if err := l.t.acquire(ctx, repKey(craftsmanID)); err != nil {
		return reputation.Record{}, err
	}
	if staged, ok := l.t.reps[craftsmanID]; ok {
		return staged, nil
	}
	return l.t.s.GetReputation(ctx, craftsmanID)
}

func (l txLedger) Set(_ context.Context, rec reputation.Record) error {
	if _, ok := l.t.held[repKey(rec.CraftsmanID)]; !ok {
		return errors.Errorf("reputation %s set without lock", rec.CraftsmanID)
	}
	l.t.reps[rec.CraftsmanID] = rec
	return nil
}

func (t *tx) commit() {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	for id, o := range t.orders {
		t.s.orders[id] = o
	}
	for id, rec := range t.reps {
		t.s.reputation[id] = rec
	}
}

func (s *Store) GetReputation(_ context.Context, craftsmanID string) (reputation.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.reputation[craftsmanID]
	if !ok {
		return reputation.Record{CraftsmanID: craftsmanID}, nil
	}
	return rec, nil
}

// SetReputation overwrites a record outside any order transaction (admin seeding).
func (s *Store) SetReputation(ctx context.Context, rec reputation.Record) error {
	unlock, err := s.locks.lock(ctx, repKey(rec.CraftsmanID))
	if err != nil {
		return err
	}
	defer unlock()
	s.mu.Lock()
	s.reputation[rec.CraftsmanID] = rec
	s.mu.Unlock()
	return nil
}

func (s *Store) GetSubscription(_ context.Context, craftsmanID string) (*subscription.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sub, ok := s.subscriptions[craftsmanID]
	if !ok {
		return nil, nil
	}
	return &sub, nil
}

func (s *Store) PutSubscription(_ context.Context, sub subscription.Subscription) error {
	s.mu.Lock()
	s.subscriptions[sub.CraftsmanID] = sub
	s.mu.Unlock()
	return nil
}

func (s *Store) CancelSubscription(_ context.Context, craftsmanID, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.subscriptions[craftsmanID]
	if !ok || sub.ID != id {
		return false, nil
	}
	sub.Status = subscription.StatusCancelled
	s.subscriptions[craftsmanID] = sub
	return true, nil
}

func now() time.Time { return time.Now().UTC() }

// Ping always succeeds; the store lives in process memory.
func (s *Store) Ping(context.Context) error { return nil }
