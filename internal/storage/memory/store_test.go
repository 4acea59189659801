package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sudo-init-do/hirfa/internal/alerts"
	"github.com/sudo-init-do/hirfa/internal/auth"
	"github.com/sudo-init-do/hirfa/internal/messaging"
	"github.com/sudo-init-do/hirfa/internal/order"
	"github.com/sudo-init-do/hirfa/internal/reputation"
	"github.com/sudo-init-do/hirfa/internal/subscription"
)

func TestLockHonoursContext(t *testing.T) {
	locks := newKeyLocks()
	unlock, err := locks.lock(context.Background(), "k")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = locks.lock(ctx, "k")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	unlock()
	unlock2, err := locks.lock(context.Background(), "k")
	require.NoError(t, err)
	unlock2()

	locks.mu.Lock()
	assert.Empty(t, locks.m)
	locks.mu.Unlock()
}

func TestTxRollsBackOnError(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.InTx(ctx, func(tx order.Tx) error {
		return tx.InsertOrder(ctx, &order.Order{ID: "o1", Status: order.StatusPending})
	}))

	boom := errors.New("boom")
	err := s.InTx(ctx, func(tx order.Tx) error {
		o, err := tx.LockOrder(ctx, "o1")
		require.NoError(t, err)
		o.Status = order.StatusCancelled
		require.NoError(t, tx.SaveOrder(ctx, o))
		_, err = tx.Reputation().Get(ctx, "c")
		require.NoError(t, err)
		require.NoError(t, tx.Reputation().Set(ctx, reputation.Record{CraftsmanID: "c"}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	o, err := s.GetOrder(ctx, "o1")
	require.NoError(t, err)
	assert.Equal(t, order.StatusPending, o.Status)
	rec, err := s.GetReputation(ctx, "c")
	require.NoError(t, err)
	assert.Zero(t, rec.CompletedCount)
}

func TestSetReputationRequiresLock(t *testing.T) {
	s := New()
	ctx := context.Background()
	err := s.InTx(ctx, func(tx order.Tx) error {
		return tx.Reputation().Set(ctx, reputation.Record{CraftsmanID: "c"})
	})
	require.Error(t, err)
}

func TestInsertDuplicate(t *testing.T) {
	s := New()
	ctx := context.Background()
	insert := func() error {
		return s.InTx(ctx, func(tx order.Tx) error {
			return tx.InsertOrder(ctx, &order.Order{ID: "dup"})
		})
	}
	require.NoError(t, insert())
	require.Error(t, insert())
}

func TestGetOrderReturnsCopy(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.InTx(ctx, func(tx order.Tx) error {
		return tx.InsertOrder(ctx, &order.Order{ID: "o1", Title: "a"})
	}))
	o, err := s.GetOrder(ctx, "o1")
	require.NoError(t, err)
	o.Title = "mutated"

	again, err := s.GetOrder(ctx, "o1")
	require.NoError(t, err)
	assert.Equal(t, "a", again.Title)

	_, err = s.GetOrder(ctx, "nope")
	assert.ErrorIs(t, err, order.ErrNotFound)
}

func TestUsersAndSearch(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.CreateUser(ctx, auth.User{ID: "a", Email: "A@x.com", Role: order.RoleCraftsman, Specialty: "سباكة", Location: "Riyadh"}))
	require.NoError(t, s.CreateUser(ctx, auth.User{ID: "b", Email: "b@x.com", Role: order.RoleCraftsman, Specialty: "سباكة", Location: "North Riyadh"}))
	require.NoError(t, s.CreateUser(ctx, auth.User{ID: "c", Email: "c@x.com", Role: order.RoleClient, Location: "Riyadh"}))
	assert.ErrorIs(t, s.CreateUser(ctx, auth.User{ID: "d", Email: "a@X.com"}), auth.ErrEmailTaken)

	u, err := s.UserByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, "a", u.ID)

	require.NoError(t, s.SetReputation(ctx, reputation.Record{CraftsmanID: "b", RatingAverage: 4.5, CompletedCount: 2}))
	found, err := s.SearchCraftsmen(ctx, order.SearchQuery{Specialty: "سباكة", Location: "riyadh"})
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, "b", found[0].ID)
	assert.Equal(t, 4.5, found[0].RatingAverage)

	_, err = s.Profile(ctx, "zzz")
	assert.ErrorIs(t, err, order.ErrNotFound)
}

func TestMessagesAndNotifications(t *testing.T) {
	s := New()
	ctx := context.Background()
	at := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.AppendMessage(ctx, messaging.Message{ID: "m1", OrderID: "o", RecipientID: "r", CreatedAt: at, Status: messaging.StatusSent}))
	require.NoError(t, s.AppendMessage(ctx, messaging.Message{ID: "m2", OrderID: "o", RecipientID: "s", CreatedAt: at.Add(time.Minute), Status: messaging.StatusSent}))

	since := at
	newer, err := s.ListMessages(ctx, "o", &since)
	require.NoError(t, err)
	require.Len(t, newer, 1)
	assert.Equal(t, "m2", newer[0].ID)

	n, err := s.UnreadCount(ctx, "r")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	n, err = s.MarkMessagesRead(ctx, "o", "r", at)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	n, err = s.UnreadCount(ctx, "r")
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, s.CreateNotification(ctx, alerts.Notification{ID: "n1", UserID: "u", Title: "t"}))
	list, err := s.ListNotifications(ctx, "u")
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.NoError(t, s.MarkNotificationRead(ctx, "n1", "u", at))
	assert.ErrorIs(t, s.MarkNotificationRead(ctx, "n1", "u", at), alerts.ErrNotificationNotFound)
}

func TestCancelSubscriptionMatchesID(t *testing.T) {
	s := New()
	ctx := context.Background()
	sub, err := subscription.New("s1", "c1", "العضوية الشهرية", 50, subscription.Monthly, time.Now())
	require.NoError(t, err)
	require.NoError(t, s.PutSubscription(ctx, sub))

	ok, err := s.CancelSubscription(ctx, "c1", "old")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = s.CancelSubscription(ctx, "c1", "s1")
	require.NoError(t, err)
	assert.True(t, ok)
	got, err := s.GetSubscription(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, subscription.StatusCancelled, got.Status)

	ok, err = s.CancelSubscription(ctx, "nobody", "s1")
	require.NoError(t, err)
	assert.False(t, ok)
}

var (
	_ subscription.Ledger      = (*Store)(nil)
	_ order.Store              = (*Store)(nil)
	_ order.Directory          = (*Store)(nil)
	_ auth.UserStore           = (*Store)(nil)
	_ messaging.Log            = (*Store)(nil)
	_ alerts.NotificationStore = (*Store)(nil)
)
