package order

import (
	"strings"
	"time"
)

type Role string

const (
	RoleClient    Role = "client"
	RoleCraftsman Role = "craftsman"
)

func (r Role) Valid() bool { return r == RoleClient || r == RoleCraftsman }

// Actor is the authenticated caller of a command, resolved by the identity provider.
type Actor struct {
	ID   string
	Role Role
}

type Status string

const (
	StatusPending               Status = "pending"
	StatusOpenForDiscussion     Status = "open_for_discussion"
	StatusAccepted              Status = "accepted"
	StatusWaitingClientApproval Status = "waiting_client_approval"
	StatusInProgress            Status = "in_progress"
	StatusCompleted             Status = "completed"
	StatusRated                 Status = "rated"
	StatusRejected              Status = "rejected"
	StatusCancelled             Status = "cancelled"
)

var AllStatuses = []Status{
	StatusPending, StatusOpenForDiscussion, StatusAccepted, StatusWaitingClientApproval,
	StatusInProgress, StatusCompleted, StatusRated, StatusRejected, StatusCancelled,
}

func ParseStatus(s string) (Status, bool) {
	for _, st := range AllStatuses {
		if string(st) == s {
			return st, true
		}
	}
	return "", false
}

// Terminal reports whether no command may leave this status.
// Completed still admits rate.
func (s Status) Terminal() bool {
	switch s {
	case StatusRated, StatusRejected, StatusCancelled:
		return true
	}
	return false
}

// Categories offered to clients when creating an order.
var Categories = []string{
	"نجارة",
	"سباكة",
	"كهرباء",
	"تكييف",
	"صباغة",
	"بلاط وسيراميك",
	"تنظيف",
	"صيانة عامة",
	"أعمال أخرى",
}

func ValidCategory(c string) bool {
	for _, k := range Categories {
		if k == c {
			return true
		}
	}
	return false
}

// Order is the unit of work moving through the lifecycle.
//
// Client and craftsman display fields are snapshots copied when the party binds to the
// order; they are not refreshed if the profile changes later.
type Order struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Price       float64 `json:"price"`
	Location    string  `json:"location"`
	ImageURL    string  `json:"image_url,omitempty"`

	ClientID       string `json:"client_id"`
	ClientName     string `json:"client_name"`
	ClientPhone    string `json:"client_phone,omitempty"`
	ClientLocation string `json:"client_location,omitempty"`

	CraftsmanID    string `json:"craftsman_id,omitempty"`
	CraftsmanName  string `json:"craftsman_name,omitempty"`
	CraftsmanPhone string `json:"craftsman_phone,omitempty"`

	Status            Status `json:"status"`
	ClientApproved    bool   `json:"client_approved"`
	ContactUnlocked   bool   `json:"contact_unlocked"`
	HasUnreadMessages bool   `json:"has_unread_messages"`

	Rating       *int   `json:"rating,omitempty"`
	Review       string `json:"review,omitempty"`
	CancelReason string `json:"cancel_reason,omitempty"`
	RejectReason string `json:"reject_reason,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	EngagedAt   *time.Time `json:"engaged_at,omitempty"`
	AcceptedAt  *time.Time `json:"accepted_at,omitempty"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	RatedAt     *time.Time `json:"rated_at,omitempty"`
	RejectedAt  *time.Time `json:"rejected_at,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`

	Version int `json:"version"`
}

// Clone returns a deep copy so stores can hand out snapshots.
func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	c := *o
	if o.Rating != nil {
		r := *o.Rating
		c.Rating = &r
	}
	for _, p := range []**time.Time{&c.EngagedAt, &c.AcceptedAt, &c.StartedAt, &c.CompletedAt, &c.RatedAt, &c.RejectedAt, &c.CancelledAt} {
		if *p != nil {
			t := **p
			*p = &t
		}
	}
	return &c
}

// IsParty reports whether the actor is the order's client or its bound craftsman.
func (o *Order) IsParty(a Actor) bool {
	switch a.Role {
	case RoleClient:
		return o.ClientID == a.ID
	case RoleCraftsman:
		return o.CraftsmanID != "" && o.CraftsmanID == a.ID
	}
	return false
}

// Profile carries the display fields copied onto an order when a party binds.
type Profile struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Phone          string  `json:"phone,omitempty"`
	Location       string  `json:"location,omitempty"`
	Role           Role    `json:"role"`
	Specialty      string  `json:"specialty,omitempty"`
	Experience     string  `json:"experience,omitempty"`
	Verified       bool    `json:"verified"`
	RatingAverage  float64 `json:"rating_average"`
	CompletedCount int     `json:"completed_count"`
}

// Filter selects orders for listOrders.
type Filter struct {
	Role          Role
	ParticipantID string
	Statuses      []Status
	// IncludeOpen adds unassigned pending orders for a craftsman's dashboard.
	IncludeOpen bool
}

func (f Filter) matchesStatus(s Status) bool {
	if len(f.Statuses) == 0 {
		return true
	}
	for _, st := range f.Statuses {
		if st == s {
			return true
		}
	}
	return false
}

// Match reports whether o satisfies the filter.
func (f Filter) Match(o *Order) bool {
	if !f.matchesStatus(o.Status) {
		return false
	}
	switch f.Role {
	case RoleClient:
		return o.ClientID == f.ParticipantID
	case RoleCraftsman:
		if o.CraftsmanID == f.ParticipantID && f.ParticipantID != "" {
			return true
		}
		return f.IncludeOpen && o.CraftsmanID == "" && o.Status == StatusPending
	}
	return false
}

// SearchQuery filters craftsman profiles.
type SearchQuery struct {
	Specialty string
	Location  string
}

func (q SearchQuery) Match(p Profile) bool {
	if p.Role != RoleCraftsman {
		return false
	}
	if q.Specialty != "" && p.Specialty != q.Specialty {
		return false
	}
	if q.Location != "" && !strings.Contains(strings.ToLower(p.Location), strings.ToLower(strings.TrimSpace(q.Location))) {
		return false
	}
	return true
}
