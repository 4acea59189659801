// Package storage selects the backing store named by configuration.
package storage

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/sudo-init-do/hirfa/internal/alerts"
	"github.com/sudo-init-do/hirfa/internal/auth"
	"github.com/sudo-init-do/hirfa/internal/config"
	"github.com/sudo-init-do/hirfa/internal/db"
	"github.com/sudo-init-do/hirfa/internal/messaging"
	"github.com/sudo-init-do/hirfa/internal/order"
	"github.com/sudo-init-do/hirfa/internal/reputation"
	"github.com/sudo-init-do/hirfa/internal/storage/memory"
	"github.com/sudo-init-do/hirfa/internal/storage/postgres"
	"github.com/sudo-init-do/hirfa/internal/subscription"
)

// Backend is everything the binaries need from a store.
type Backend interface {
	order.Store
	order.Directory
	subscription.Ledger
	auth.UserStore
	messaging.Log
	alerts.NotificationStore

	GetReputation(ctx context.Context, craftsmanID string) (reputation.Record, error)
	SetReputation(ctx context.Context, rec reputation.Record) error
	Ping(ctx context.Context) error
}

var (
	_ Backend = (*memory.Store)(nil)
	_ Backend = (*postgres.Store)(nil)
)

// Open returns the configured backend and a function releasing it. Postgres schemas are
// migrated to the latest version when migrate is set.
func Open(ctx context.Context, cfg config.Config, migrate bool, log *zap.Logger) (Backend, func(), error) {
	switch cfg.Store {
	case config.StoreMemory:
		log.Warn("using in-memory store; data is lost on restart")
		return memory.New(), func() {}, nil
	case config.StorePostgres:
		dsn := cfg.DB.DSN()
		if migrate {
			if err := db.Migrate(dsn, log); err != nil {
				return nil, nil, err
			}
		}
		pool, err := db.Connect(ctx, dsn, log)
		if err != nil {
			return nil, nil, err
		}
		return postgres.New(pool), pool.Close, nil
	}
	return nil, nil, fmt.Errorf("storage: unknown store %q", cfg.Store)
}
