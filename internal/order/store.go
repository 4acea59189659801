package order

import (
	"context"

	"github.com/sudo-init-do/hirfa/internal/reputation"
	"github.com/sudo-init-do/hirfa/internal/subscription"
)

// Store persists orders. Implementations return ErrNotFound for unknown ids.
type Store interface {
	GetOrder(ctx context.Context, id string) (*Order, error)
	ListOrders(ctx context.Context, f Filter) ([]Order, error)
	// InTx runs fn with exclusive access to every record it locks. Nothing fn wrote is
	// visible to others unless fn returns nil and the commit succeeds.
	InTx(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is a unit of work. Lock* calls hold the record until the transaction ends, so
// read-validate-write on the same key is linearizable.
type Tx interface {
	InsertOrder(ctx context.Context, o *Order) error
	LockOrder(ctx context.Context, id string) (*Order, error)
	SaveOrder(ctx context.Context, o *Order) error
	// Reputation returns a ledger whose Get locks the craftsman record.
	Reputation() reputation.Ledger
}

// Directory resolves the display snapshot of a user.
type Directory interface {
	Profile(ctx context.Context, userID string) (Profile, error)
	SearchCraftsmen(ctx context.Context, q SearchQuery) ([]Profile, error)
}

// Subscriptions is the read-only entitlement source.
type Subscriptions = subscription.Reader
