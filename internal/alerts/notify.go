package alerts

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/sudo-init-do/hirfa/internal/order"
)

var statusText = map[string]string{
	order.EventEngaged:       "حرفي مهتم بطلبك",
	order.EventAccepted:      "تم قبول الطلب",
	order.EventRejected:      "تم رفض الطلب",
	order.EventStartApproved: "وافق العميل على بدء العمل",
	order.EventStarted:       "بدء تنفيذ الطلب",
	order.EventCompleted:     "تم إنجاز الطلب",
	order.EventCancelled:     "تم إلغاء الطلب",
}

// BuildNotification renders the inbox item for the counter-party of an event.
// It returns false when nobody needs to be told.
func BuildNotification(e order.Event) (Notification, bool) {
	n := Notification{Reference: e.OrderID, CreatedAt: e.OccurredAt}
	switch e.Type {
	case order.EventCreated:
		// new orders surface on craftsman dashboards rather than an inbox
		return Notification{}, false
	case order.EventRated:
		n.UserID = e.CraftsmanID
		n.Type = NotifyOrderRated
		n.Title = "تقييم جديد"
		n.Body = fmt.Sprintf("تم تقييمك بـ %d نجوم", e.Rating)
	default:
		text, ok := statusText[e.Type]
		if !ok {
			return Notification{}, false
		}
		n.UserID = e.Recipient()
		n.Type = NotifyOrderUpdate
		n.Title = "تحديث الطلب"
		n.Body = fmt.Sprintf("%s: %s", text, e.Title)
		if e.Reason != "" {
			n.Body += " (" + e.Reason + ")"
		}
	}
	if n.UserID == "" {
		return Notification{}, false
	}
	return n, true
}

// Notifier materialises order events into in-app notifications.
type Notifier struct {
	store NotificationStore
	log   *zap.Logger
}

func NewNotifier(store NotificationStore, log *zap.Logger) *Notifier {
	return &Notifier{store: store, log: log.Named("alerts.notifier")}
}

func (n *Notifier) Handle(ctx context.Context, e order.Event) error {
	item, ok := BuildNotification(e)
	if !ok {
		return nil
	}
	if err := n.store.CreateNotification(ctx, item); err != nil {
		return fmt.Errorf("store notification for %s: %w", e.OrderID, err)
	}
	n.log.Debug("notification stored", zap.String("type", e.Type), zap.String("user_id", item.UserID), zap.String("order_id", e.OrderID))
	return nil
}

// Dispatch lets a Notifier act as an in-process event dispatcher.
func (n *Notifier) Dispatch(ctx context.Context, e order.Event) error {
	return n.Handle(ctx, e)
}
