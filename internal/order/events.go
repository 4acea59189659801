package order

import (
	"context"
	"time"
)

// Event is emitted after a transition has been committed.
type Event struct {
	Type        string    `json:"type"`
	OrderID     string    `json:"order_id"`
	ActorID     string    `json:"actor_id"`
	ActorRole   Role      `json:"actor_role"`
	ClientID    string    `json:"client_id"`
	CraftsmanID string    `json:"craftsman_id,omitempty"`
	From        Status    `json:"from,omitempty"`
	To          Status    `json:"to"`
	Title       string    `json:"title"`
	Rating      int       `json:"rating,omitempty"`
	Reason      string    `json:"reason,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// Event type names, "order.<command>".
const (
	EventCreated       = "order.created"
	EventEngaged       = "order.engaged"
	EventAccepted      = "order.accepted"
	EventRejected      = "order.rejected"
	EventStartApproved = "order.approve_start"
	EventStarted       = "order.started"
	EventCompleted     = "order.completed"
	EventRated         = "order.rated"
	EventCancelled     = "order.cancelled"
)

var eventTypes = map[Command]string{
	CmdCreate:       EventCreated,
	CmdEngage:       EventEngaged,
	CmdAccept:       EventAccepted,
	CmdReject:       EventRejected,
	CmdApproveStart: EventStartApproved,
	CmdStart:        EventStarted,
	CmdComplete:     EventCompleted,
	CmdRate:         EventRated,
	CmdCancel:       EventCancelled,
}

// Recipient is the counter-party that should hear about the event.
func (e Event) Recipient() string {
	if e.ActorID == e.ClientID {
		return e.CraftsmanID
	}
	return e.ClientID
}

// EventDispatcher publishes committed events. Failures never undo the transition.
type EventDispatcher interface {
	Dispatch(ctx context.Context, e Event) error
}

type nopDispatcher struct{}

func (nopDispatcher) Dispatch(context.Context, Event) error { return nil }

// Observer receives one callback per engine command.
type Observer interface {
	ObserveCommand(cmd Command, kind Kind, elapsed time.Duration)
}

type nopObserver struct{}

func (nopObserver) ObserveCommand(Command, Kind, time.Duration) {}
