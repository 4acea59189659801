package order

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/sudo-init-do/hirfa/internal/clock"
	"github.com/sudo-init-do/hirfa/internal/reputation"
	"github.com/sudo-init-do/hirfa/internal/subscription"
)

const (
	maxTitleLen  = 200
	maxReviewLen = 1000
	maxReasonLen = 500
)

type Params struct {
	Store         Store
	Subscriptions subscription.Reader
	Directory     Directory
	Events        EventDispatcher
	Observer      Observer
	Clock         clock.Clock
	Policy        Policy
	Logger        *zap.Logger
}

// Engine applies lifecycle commands to orders. Every command takes the acting user
// explicitly; nothing is read from ambient state.
type Engine struct {
	store    Store
	subs     subscription.Reader
	dir      Directory
	events   EventDispatcher
	observer Observer
	clock    clock.Clock
	policy   Policy
	rules    map[Command]rule
	log      *zap.Logger
}

func NewEngine(p Params) *Engine {
	e := &Engine{
		store:    p.Store,
		subs:     p.Subscriptions,
		dir:      p.Directory,
		events:   p.Events,
		observer: p.Observer,
		clock:    p.Clock,
		policy:   p.Policy,
		log:      p.Logger,
	}
	if e.events == nil {
		e.events = nopDispatcher{}
	}
	if e.observer == nil {
		e.observer = nopObserver{}
	}
	if e.clock == nil {
		e.clock = clock.System{}
	}
	if e.policy.Flow == "" {
		e.policy.Flow = FlowApprovalRequired
	}
	if e.policy.CompletionBy == "" {
		e.policy.CompletionBy = CompletionByEither
	}
	if e.log == nil {
		e.log = zap.NewNop()
	}
	e.log = e.log.Named("order.engine")
	e.rules = e.policy.rules()
	return e
}

func (e *Engine) Policy() Policy { return e.policy }

type CreateRequest struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Price       float64 `json:"price"`
	Location    string  `json:"location"`
	ImageURL    string  `json:"image_url"`
}

func (r *CreateRequest) normalize() error {
	r.Title = strings.TrimSpace(r.Title)
	r.Description = strings.TrimSpace(r.Description)
	r.Location = strings.TrimSpace(r.Location)
	if r.Title == "" {
		return invalid("title is required")
	}
	if len([]rune(r.Title)) > maxTitleLen {
		return invalid("title longer than %d characters", maxTitleLen)
	}
	if !(r.Price > 0) {
		return invalid("price must be positive, got %v", r.Price)
	}
	if r.Category == "" {
		r.Category = "أعمال أخرى"
	}
	if !ValidCategory(r.Category) {
		return invalid("unknown category %q", r.Category)
	}
	return nil
}

// Create opens a pending order for the acting client.
func (e *Engine) Create(ctx context.Context, a Actor, req CreateRequest) (out *Order, err error) {
	started := time.Now()
	defer func() { e.observe(CmdCreate, err, started) }()

	if err := req.normalize(); err != nil {
		return nil, err
	}
	if a.Role != RoleClient || a.ID == "" {
		return nil, errors.Wrapf(ErrUnauthorized, "create requires a client, got %q", a.Role)
	}
	client, err := e.dir.Profile(ctx, a.ID)
	if err != nil {
		return nil, unavailable(err, "resolve client profile")
	}

	o := &Order{
		ID:             uuid.NewString(),
		Title:          req.Title,
		Description:    req.Description,
		Category:       req.Category,
		Price:          req.Price,
		Location:       req.Location,
		ImageURL:       req.ImageURL,
		ClientID:       a.ID,
		ClientName:     client.Name,
		ClientPhone:    client.Phone,
		ClientLocation: client.Location,
		Status:         StatusPending,
		CreatedAt:      e.clock.Now(),
		Version:        1,
	}
	if o.Location == "" {
		o.Location = client.Location
	}
	err = e.store.InTx(ctx, func(tx Tx) error {
		return tx.InsertOrder(ctx, o)
	})
	if err != nil {
		return nil, unavailable(err, "insert order")
	}

	e.log.Info("order created", zap.String("order_id", o.ID), zap.String("client_id", a.ID), zap.Float64("price", o.Price))
	e.dispatch(ctx, CmdCreate, a, "", o, nil)
	return o.Clone(), nil
}

// Engage binds the acting craftsman to a pending order and opens the discussion.
func (e *Engine) Engage(ctx context.Context, orderID string, a Actor) (*Order, error) {
	var craftsman Profile
	guard := func(o *Order) error {
		if o.CraftsmanID != "" && o.CraftsmanID != a.ID && !o.Status.Terminal() {
			return errors.Wrapf(ErrAlreadyEngaged, "order %s is bound to another craftsman", o.ID)
		}
		return nil
	}
	apply := func(ctx context.Context, _ Tx, o *Order, now time.Time) error {
		p, err := e.dir.Profile(ctx, a.ID)
		if err != nil {
			return unavailable(err, "resolve craftsman profile")
		}
		craftsman = p
		o.CraftsmanID = a.ID
		o.CraftsmanName = craftsman.Name
		o.CraftsmanPhone = craftsman.Phone
		o.Status = StatusOpenForDiscussion
		o.EngagedAt = &now
		return nil
	}
	return e.transition(ctx, orderID, a, CmdEngage, guard, apply, nil)
}

// Accept moves a discussed order forward; the target depends on the flow policy.
func (e *Engine) Accept(ctx context.Context, orderID string, a Actor) (*Order, error) {
	return e.transition(ctx, orderID, a, CmdAccept, nil, func(_ context.Context, _ Tx, o *Order, now time.Time) error {
		o.Status = e.policy.acceptTarget()
		o.AcceptedAt = &now
		return nil
	}, nil)
}

func (e *Engine) Reject(ctx context.Context, orderID string, a Actor, reason string) (*Order, error) {
	reason = strings.TrimSpace(reason)
	if len([]rune(reason)) > maxReasonLen {
		return nil, e.reject(CmdReject, invalid("reason longer than %d characters", maxReasonLen))
	}
	return e.transition(ctx, orderID, a, CmdReject, nil, func(_ context.Context, _ Tx, o *Order, now time.Time) error {
		o.Status = StatusRejected
		o.RejectReason = reason
		o.RejectedAt = &now
		return nil
	}, func(ev *Event) { ev.Reason = reason })
}

// ApproveStart is the client's go-ahead in the approval-required flow.
func (e *Engine) ApproveStart(ctx context.Context, orderID string, a Actor) (*Order, error) {
	return e.transition(ctx, orderID, a, CmdApproveStart, nil, func(_ context.Context, _ Tx, o *Order, now time.Time) error {
		o.ClientApproved = true
		o.ContactUnlocked = true
		o.Status = StatusInProgress
		o.StartedAt = &now
		return nil
	}, nil)
}

// Start begins work on an accepted order in the direct flow.
func (e *Engine) Start(ctx context.Context, orderID string, a Actor) (*Order, error) {
	return e.transition(ctx, orderID, a, CmdStart, nil, func(_ context.Context, _ Tx, o *Order, now time.Time) error {
		o.ContactUnlocked = true
		o.Status = StatusInProgress
		o.StartedAt = &now
		return nil
	}, nil)
}

func (e *Engine) Complete(ctx context.Context, orderID string, a Actor) (*Order, error) {
	return e.transition(ctx, orderID, a, CmdComplete, nil, func(_ context.Context, _ Tx, o *Order, now time.Time) error {
		o.Status = StatusCompleted
		o.CompletedAt = &now
		return nil
	}, nil)
}

type RateRequest struct {
	Rating int    `json:"rating"`
	Review string `json:"review"`
}

// Rate records the client's rating and folds it into the craftsman's reputation in the
// same transaction as the status flip.
func (e *Engine) Rate(ctx context.Context, orderID string, a Actor, req RateRequest) (*Order, error) {
	req.Review = strings.TrimSpace(req.Review)
	if req.Rating < reputation.MinRating || req.Rating > reputation.MaxRating {
		return nil, e.reject(CmdRate, invalid("rating must be between %d and %d", reputation.MinRating, reputation.MaxRating))
	}
	if len([]rune(req.Review)) > maxReviewLen {
		return nil, e.reject(CmdRate, invalid("review longer than %d characters", maxReviewLen))
	}

	guard := func(o *Order) error {
		if o.Status == StatusRated || o.Rating != nil {
			return errors.Wrapf(ErrAlreadyRated, "order %s", o.ID)
		}
		return nil
	}
	apply := func(ctx context.Context, tx Tx, o *Order, now time.Time) error {
		ledger := tx.Reputation()
		rec, err := ledger.Get(ctx, o.CraftsmanID)
		if err != nil {
			return err
		}
		next, err := rec.Apply(req.Rating)
		if err != nil {
			return invalid("%v", err)
		}
		next.CraftsmanID = o.CraftsmanID
		if err := ledger.Set(ctx, next); err != nil {
			return err
		}
		rating := req.Rating
		o.Rating = &rating
		o.Review = req.Review
		o.Status = StatusRated
		o.RatedAt = &now
		return nil
	}
	return e.transition(ctx, orderID, a, CmdRate, guard, apply, func(ev *Event) { ev.Rating = req.Rating })
}

// Cancel aborts any non-terminal order.
func (e *Engine) Cancel(ctx context.Context, orderID string, a Actor, reason string) (*Order, error) {
	reason = strings.TrimSpace(reason)
	if len([]rune(reason)) > maxReasonLen {
		return nil, e.reject(CmdCancel, invalid("reason longer than %d characters", maxReasonLen))
	}
	return e.transition(ctx, orderID, a, CmdCancel, nil, func(_ context.Context, _ Tx, o *Order, now time.Time) error {
		o.Status = StatusCancelled
		o.CancelReason = reason
		o.CancelledAt = &now
		return nil
	}, func(ev *Event) { ev.Reason = reason })
}

type applyFunc func(ctx context.Context, tx Tx, o *Order, now time.Time) error

// transition is the read-validate-write cycle shared by every command after create.
// Gates run in a fixed order: role, party, single-fire guard, source status, entitlement.
func (e *Engine) transition(ctx context.Context, orderID string, a Actor, cmd Command, guard func(*Order) error, apply applyFunc, decorate func(*Event)) (out *Order, err error) {
	started := time.Now()
	defer func() { e.observe(cmd, err, started) }()

	r, ok := e.rules[cmd]
	if !ok {
		return nil, errors.Wrapf(ErrInvalidTransition, "unknown command %s", cmd)
	}
	if orderID == "" {
		return nil, invalid("order id is required")
	}

	var from Status
	err = e.store.InTx(ctx, func(tx Tx) error {
		o, err := tx.LockOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if err := authorize(o, a, cmd, r); err != nil {
			return err
		}
		if guard != nil {
			if err := guard(o); err != nil {
				return err
			}
		}
		if !r.allows(o.Status) {
			return errors.Wrapf(ErrInvalidTransition, "%s not allowed from %s", cmd, o.Status)
		}
		if r.gated && a.Role == RoleCraftsman && !o.Unlocked() {
			entitled, err := e.entitled(ctx, a.ID)
			if err != nil {
				return err
			}
			if !entitled {
				return errors.Wrapf(ErrSubscriptionRequired, "%s needs an active subscription", cmd)
			}
		}

		from = o.Status
		if err := apply(ctx, tx, o, e.clock.Now()); err != nil {
			return err
		}
		o.Version++
		if err := tx.SaveOrder(ctx, o); err != nil {
			return err
		}
		out = o.Clone()
		return nil
	})
	if err != nil {
		err = unavailable(err, string(cmd))
		e.log.Debug("command refused",
			zap.String("command", string(cmd)),
			zap.String("order_id", orderID),
			zap.String("actor_id", a.ID),
			zap.String("kind", string(KindOf(err))),
			zap.Error(err),
		)
		return nil, err
	}

	e.log.Info("order transition",
		zap.String("command", string(cmd)),
		zap.String("order_id", out.ID),
		zap.String("actor_id", a.ID),
		zap.String("from", string(from)),
		zap.String("to", string(out.Status)),
	)
	e.dispatch(ctx, cmd, a, from, out, decorate)
	return out.Clone(), nil
}

func authorize(o *Order, a Actor, cmd Command, r rule) error {
	if !r.roleAllowed(a.Role) {
		return errors.Wrapf(ErrUnauthorized, "%s cannot %s", a.Role, cmd)
	}
	var ok bool
	switch r.party {
	case partyAny:
		ok = a.ID != ""
	case partyClient:
		ok = o.ClientID == a.ID
	case partyCraftsman:
		ok = o.CraftsmanID != "" && o.CraftsmanID == a.ID
	case partyEither:
		ok = o.IsParty(a)
	}
	if !ok {
		return errors.Wrapf(ErrUnauthorized, "%s %s is not a party to order %s", a.Role, a.ID, o.ID)
	}
	return nil
}

func (e *Engine) entitled(ctx context.Context, craftsmanID string) (bool, error) {
	if e.subs == nil {
		return false, nil
	}
	sub, err := e.subs.GetSubscription(ctx, craftsmanID)
	if err != nil {
		return false, unavailable(err, "read subscription")
	}
	return subscription.HasActiveEntitlement(sub, e.clock.Now()), nil
}

// Get returns the order as the actor may see it.
func (e *Engine) Get(ctx context.Context, orderID string, a Actor) (View, error) {
	o, err := e.store.GetOrder(ctx, orderID)
	if err != nil {
		return View{}, unavailable(err, "get order")
	}
	entitled := false
	if a.Role == RoleCraftsman && CanView(o, a) && !o.Unlocked() {
		if entitled, err = e.entitled(ctx, a.ID); err != nil {
			return View{}, err
		}
	}
	return Disclose(o, a, entitled)
}

// List returns the actor's orders, newest first. Role and participant are always
// taken from the actor.
func (e *Engine) List(ctx context.Context, a Actor, f Filter) ([]View, error) {
	if !a.Role.Valid() || a.ID == "" {
		return nil, errors.Wrap(ErrUnauthorized, "list requires an authenticated actor")
	}
	f.Role = a.Role
	f.ParticipantID = a.ID
	if a.Role != RoleCraftsman {
		f.IncludeOpen = false
	}

	orders, err := e.store.ListOrders(ctx, f)
	if err != nil {
		return nil, unavailable(err, "list orders")
	}
	entitled := false
	if a.Role == RoleCraftsman {
		if entitled, err = e.entitled(ctx, a.ID); err != nil {
			return nil, err
		}
	}
	views := make([]View, 0, len(orders))
	for i := range orders {
		v, err := Disclose(&orders[i], a, entitled)
		if err != nil {
			continue
		}
		views = append(views, v)
	}
	return views, nil
}

// MarkUnread flags the order after a message was appended to its thread.
func (e *Engine) MarkUnread(ctx context.Context, orderID string) error {
	return e.setUnread(ctx, orderID, nil, true)
}

// MarkRead clears the unread flag on behalf of a party of the order.
func (e *Engine) MarkRead(ctx context.Context, orderID string, a Actor) error {
	return e.setUnread(ctx, orderID, &a, false)
}

func (e *Engine) setUnread(ctx context.Context, orderID string, a *Actor, unread bool) error {
	err := e.store.InTx(ctx, func(tx Tx) error {
		o, err := tx.LockOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if a != nil && !o.IsParty(*a) {
			return errors.Wrapf(ErrUnauthorized, "%s is not a party to order %s", a.ID, o.ID)
		}
		if o.HasUnreadMessages == unread {
			return nil
		}
		o.HasUnreadMessages = unread
		o.Version++
		return tx.SaveOrder(ctx, o)
	})
	return unavailable(err, "update unread flag")
}

func (e *Engine) dispatch(ctx context.Context, cmd Command, a Actor, from Status, o *Order, decorate func(*Event)) {
	ev := Event{
		Type:        eventTypes[cmd],
		OrderID:     o.ID,
		ActorID:     a.ID,
		ActorRole:   a.Role,
		ClientID:    o.ClientID,
		CraftsmanID: o.CraftsmanID,
		From:        from,
		To:          o.Status,
		Title:       o.Title,
		OccurredAt:  e.clock.Now(),
	}
	if decorate != nil {
		decorate(&ev)
	}
	if err := e.events.Dispatch(ctx, ev); err != nil {
		e.log.Warn("event dispatch failed", zap.String("type", ev.Type), zap.String("order_id", o.ID), zap.Error(err))
	}
}

func (e *Engine) reject(cmd Command, err error) error {
	e.observe(cmd, err, time.Now())
	return err
}

func (e *Engine) observe(cmd Command, err error, started time.Time) {
	e.observer.ObserveCommand(cmd, KindOf(err), time.Since(started))
}
