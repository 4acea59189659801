package order

import "github.com/pkg/errors"

// View is an order as seen by one actor. Redacted views have the client's phone and every
// location field removed.
type View struct {
	Order
	Redacted bool `json:"redacted"`
}

// Unlocked reports whether the order has reached a point where the bound craftsman is owed
// the client's contact details. Once true it stays true.
func (o *Order) Unlocked() bool {
	if o.ContactUnlocked || o.ClientApproved {
		return true
	}
	switch o.Status {
	case StatusInProgress, StatusCompleted, StatusRated:
		return true
	}
	return false
}

// CanView reports whether the actor may see the order at all (redacted or not).
func CanView(o *Order, a Actor) bool {
	switch a.Role {
	case RoleClient:
		return o.ClientID == a.ID
	case RoleCraftsman:
		if o.CraftsmanID == "" {
			return o.Status == StatusPending
		}
		return o.CraftsmanID == a.ID
	}
	return false
}

// Disclose applies the disclosure gate. entitled is the craftsman's current subscription
// entitlement and is ignored for clients.
func Disclose(o *Order, a Actor, entitled bool) (View, error) {
	if !CanView(o, a) {
		return View{}, errors.Wrapf(ErrUnauthorized, "order %s not visible to %s %s", o.ID, a.Role, a.ID)
	}
	v := View{Order: *o.Clone()}
	if a.Role == RoleClient || entitled || o.Unlocked() {
		return v, nil
	}
	v.ClientPhone = ""
	v.ClientLocation = ""
	v.Location = ""
	v.Redacted = true
	return v, nil
}
