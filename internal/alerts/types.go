package alerts

import (
	"time"

	"github.com/sudo-init-do/hirfa/internal/order"
)

// Task type prefix; the full type is TaskOrderEventPrefix + event type,
// e.g. "event:order.rated". The asynq mux routes on the prefix.
const TaskOrderEventPrefix = "event:"

const (
	QueueEvents = "events"
	QueueAlerts = "alerts"
)

// Notification types stored on inbox items.
const (
	NotifyOrderNew     = "order:new"
	NotifyOrderUpdate  = "order:update"
	NotifyOrderRated   = "order:rated"
	NotifyMessageNew   = "message:new"
	NotifySubscription = "subscription:activated"
)

// OrderEventPayload is the JSON body of an order event task or AMQP message.
type OrderEventPayload struct {
	Event      order.Event `json:"event"`
	EnqueuedAt time.Time   `json:"enqueued_at"`
}
